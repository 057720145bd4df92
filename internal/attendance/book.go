// Package attendance keeps the daily attendance files.
//
// Each calendar day has its own file, Attendance_<YYYY-MM-DD>.csv, holding
// one "name,YYYY-MM-DD HH:MM:SS" line per person. A name appears at most
// once per file. Lines are never quoted, so names must not contain commas or
// line breaks.
package attendance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/amirhossein5/efl/attendance/internal/models"
)

const (
	filePrefix      = "Attendance_"
	fileExt         = ".csv"
	TimestampLayout = "2006-01-02 15:04:05"
)

var (
	ErrEmptyName   = errors.New("attendance: empty name")
	ErrInvalidName = errors.New("attendance: name contains a comma or line break")
)

// Journal receives every fresh mark after it was written to the day file.
type Journal interface {
	Record(name string, at time.Time) error
}

// Record is one line of a day file.
type Record struct {
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

// Book appends marks to the day files in a directory. Marks from one Book
// are serialized; two processes writing the same directory are not.
type Book struct {
	dir     string
	now     func() time.Time
	journal Journal
	logger  *slog.Logger

	mu sync.Mutex
}

type Option func(*Book)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Book) { b.now = now }
}

func WithJournal(j Journal) Option {
	return func(b *Book) { b.journal = j }
}

func WithLogger(l *slog.Logger) Option {
	return func(b *Book) { b.logger = l }
}

// NewBook returns a Book writing into dir.
func NewBook(dir string, opts ...Option) *Book {
	b := &Book{
		dir:    dir,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// ValidateName reports whether name can be stored in a day file.
func ValidateName(name string) error {
	if name == "" {
		return ErrEmptyName
	}
	if strings.ContainsAny(name, ",\r\n") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return nil
}

// FileName returns the day file name for day in local time.
func FileName(day time.Time) string {
	return filePrefix + day.Format(models.DayLayout) + fileExt
}

// Path returns the full path of the day file for day.
func (b *Book) Path(day time.Time) string {
	return filepath.Join(b.dir, FileName(day))
}

// Mark records name in today's file unless it is already there.
// alreadyMarked is true when nothing was written.
func (b *Book) Mark(name string) (alreadyMarked bool, err error) {
	if err := ValidateName(name); err != nil {
		return false, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	path := b.Path(now)

	marked, unterminated, err := readNames(path)
	if err != nil {
		return false, err
	}
	if _, ok := marked[name]; ok {
		return true, nil
	}

	line := fmt.Sprintf("%s,%s\n", name, now.Format(TimestampLayout))
	// A hand-edited file may lack the final newline.
	if unterminated {
		line = "\n" + line
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return false, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	if _, err := io.WriteString(f, line); err != nil {
		return false, fmt.Errorf("failed to append to %s: %w", path, err)
	}

	if b.journal != nil {
		if err := b.journal.Record(name, now); err != nil {
			b.logger.Warn("failed to journal attendance", "name", name, "error", err)
		}
	}

	return false, nil
}

// Records returns the records of day in file order. A missing file yields
// no records.
func (b *Book) Records(day time.Time) ([]Record, error) {
	path := b.Path(day)

	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	var records []Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, ts, _ := strings.Cut(line, ",")
		records = append(records, Record{Name: name, Timestamp: ts})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	return records, nil
}

// readNames collects the first field of every non-blank line of path.
// unterminated is true when the file does not end with a newline.
func readNames(path string) (names map[string]struct{}, unterminated bool, err error) {
	names = make(map[string]struct{})

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return names, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", path, err)
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		name, _, _ := strings.Cut(line, ",")
		names[name] = struct{}{}
	}

	return names, len(data) > 0 && data[len(data)-1] != '\n', nil
}
