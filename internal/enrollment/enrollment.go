// Package enrollment turns a directory of reference photos into the identity
// table used for recognition.
package enrollment

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/amirhossein5/efl/attendance/internal/attendance"
	"github.com/amirhossein5/efl/attendance/internal/matcher"
	"github.com/amirhossein5/efl/attendance/internal/models"
)

type Status string

const (
	StatusEnrolled    Status = "enrolled"
	StatusNoFace      Status = "no-face"
	StatusAmbiguous   Status = "ambiguous"
	StatusUnreadable  Status = "unreadable"
	StatusInvalidName Status = "invalid-name"
)

var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// Encoder computes one descriptor per face found in a JPEG image.
type Encoder interface {
	Encode(jpeg []byte) ([]models.Descriptor, error)
}

type Options struct {
	// Strict drops images with more than one face instead of keeping the first.
	Strict bool
	// MaxSize bounds the longest side of an image before encoding. 0 keeps the
	// original size.
	MaxSize uint
	// OnResult is called after each image is processed.
	OnResult func(Result)
}

// Result is the outcome of enrolling a single image.
type Result struct {
	Name       string
	Path       string
	Status     Status
	Faces      int
	Descriptor models.Descriptor
	// Usable reports whether the identity takes part in matching.
	Usable bool
	Err    error
}

// Detail is a short human readable explanation of the result.
func (r Result) Detail() string {
	switch r.Status {
	case StatusEnrolled:
		return ""
	case StatusNoFace:
		return "no face found"
	case StatusAmbiguous:
		if r.Usable {
			return fmt.Sprintf("%d faces found, using the first", r.Faces)
		}
		return fmt.Sprintf("%d faces found", r.Faces)
	}
	if r.Err != nil {
		return r.Err.Error()
	}
	return ""
}

// Files lists the enrollment images in dir sorted by name.
func Files(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read enrollment directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if imageExts[strings.ToLower(filepath.Ext(entry.Name()))] {
			files = append(files, filepath.Join(dir, entry.Name()))
		}
	}
	sort.Strings(files)

	return files, nil
}

// NameOf derives the identity name from an image path.
func NameOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// Load enrolls every image in dir. A failing image never aborts the load;
// its Result says why it was not used.
func Load(ctx context.Context, dir string, enc Encoder, opts Options) ([]Result, error) {
	files, err := Files(dir)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(files))
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		res := enroll(path, enc, opts)
		logResult(res)
		if opts.OnResult != nil {
			opts.OnResult(res)
		}
		results = append(results, res)
	}

	return results, nil
}

func enroll(path string, enc Encoder, opts Options) Result {
	res := Result{Name: NameOf(path), Path: path}

	if err := attendance.ValidateName(res.Name); err != nil {
		res.Status = StatusInvalidName
		res.Err = err
		return res
	}

	buf, err := toJPEG(path, opts.MaxSize)
	if err != nil {
		res.Status = StatusUnreadable
		res.Err = err
		return res
	}

	descriptors, err := enc.Encode(buf)
	if err != nil {
		res.Status = StatusUnreadable
		res.Err = err
		return res
	}

	res.Faces = len(descriptors)
	switch {
	case len(descriptors) == 0:
		res.Status = StatusNoFace
	case len(descriptors) == 1:
		res.Status = StatusEnrolled
		res.Descriptor = descriptors[0]
		res.Usable = true
	default:
		res.Status = StatusAmbiguous
		res.Descriptor = descriptors[0]
		res.Usable = !opts.Strict
	}

	return res
}

func logResult(res Result) {
	switch {
	case res.Status == StatusEnrolled:
		slog.Debug("enrolled", "name", res.Name, "path", res.Path)
	case res.Usable:
		slog.Warn("enrolled with warning", "name", res.Name, "path", res.Path, "status", res.Status, "detail", res.Detail())
	default:
		slog.Warn("skipped enrollment image", "name", res.Name, "path", res.Path, "status", res.Status, "detail", res.Detail())
	}
}

// BuildTable returns the identities of all usable results in load order.
func BuildTable(results []Result, opts ...matcher.Option) *matcher.Table {
	var identities []matcher.Identity
	for _, res := range results {
		if res.Usable {
			identities = append(identities, matcher.Identity{
				Name:       res.Name,
				Descriptor: res.Descriptor,
			})
		}
	}
	return matcher.NewTable(identities, opts...)
}
