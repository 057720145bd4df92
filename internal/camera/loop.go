// Package camera runs the live recognition loop on a video device.
package camera

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"

	"github.com/amirhossein5/efl/attendance/internal/models"
	"github.com/amirhossein5/efl/attendance/internal/recognition"
	"gocv.io/x/gocv"
)

var ErrCaptureStalled = errors.New("camera: too many consecutive capture failures")

const (
	boxThickness  = 2
	labelScale    = 0.9
	labelOffsetY  = 10
	waitKeyMillis = 1
)

// Source yields frames. *gocv.VideoCapture satisfies it.
type Source interface {
	Read(m *gocv.Mat) bool
	Close() error
}

// Display shows frames and reports key presses. *gocv.Window satisfies it.
type Display interface {
	IMShow(img gocv.Mat)
	WaitKey(delay int) int
	Close() error
}

// Detector finds faces in a JPEG frame.
type Detector interface {
	Detect(jpeg []byte) ([]models.DetectedFace, error)
}

type Processor interface {
	Process(faces []models.DetectedFace) []recognition.Annotation
}

// Publisher receives every annotated frame as JPEG.
type Publisher interface {
	UpdateImage(buf []byte)
}

// Loop captures, recognizes, annotates and shows frames until the quit key
// is pressed or its context ends.
type Loop struct {
	Source    Source
	Display   Display
	Detector  Detector
	Processor Processor
	// Publisher is optional.
	Publisher Publisher

	QuitKey            byte
	MaxCaptureFailures int
	Logger             *slog.Logger
}

// Open opens the capture device and the window.
func Open(device int, title string) (Source, Display, error) {
	webcam, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open video capture device %d: %w", device, err)
	}
	return webcam, gocv.NewWindow(title), nil
}

// Run processes frames until the quit key, ctx cancellation or a capture
// stall. Source and Display are closed on return.
func (l *Loop) Run(ctx context.Context) error {
	logger := l.Logger
	if logger == nil {
		logger = slog.Default()
	}
	defer l.Source.Close()
	defer l.Display.Close()

	img := gocv.NewMat()
	defer img.Close()

	failures := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		if ok := l.Source.Read(&img); !ok || img.Empty() {
			failures++
			logger.Warn("failed to capture frame", "consecutive", failures)
			if failures >= l.MaxCaptureFailures {
				return ErrCaptureStalled
			}
			if l.quitPressed() {
				return nil
			}
			continue
		}
		failures = 0

		if err := l.processFrame(&img, logger); err != nil {
			logger.Error("failed to process frame", "error", err)
		}

		l.Display.IMShow(img)
		if l.Publisher != nil {
			if buf, err := encodeJPEG(img); err == nil {
				l.Publisher.UpdateImage(buf)
			}
		}

		if l.quitPressed() {
			return nil
		}
	}
}

func (l *Loop) quitPressed() bool {
	return l.Display.WaitKey(waitKeyMillis)&0xFF == int(l.QuitKey)
}

func (l *Loop) processFrame(img *gocv.Mat, logger *slog.Logger) error {
	// The frame is BGR; JPEG encoding hands the detector a format it decodes
	// to RGB itself.
	buf, err := encodeJPEG(*img)
	if err != nil {
		return err
	}

	faces, err := l.Detector.Detect(buf)
	if err != nil {
		return err
	}
	if len(faces) > 0 {
		logger.Debug("faces detected", "count", len(faces))
	}

	Annotate(img, l.Processor.Process(faces))
	return nil
}

// Annotate draws a box and a label for every annotation.
func Annotate(img *gocv.Mat, annotations []recognition.Annotation) {
	for _, a := range annotations {
		c := a.Outcome.Color()
		gocv.Rectangle(img, a.Rect, c, boxThickness)
		gocv.PutText(img, a.Label, image.Pt(a.Rect.Min.X, a.Rect.Min.Y-labelOffsetY),
			gocv.FontHersheySimplex, labelScale, c, boxThickness)
	}
}

func encodeJPEG(img gocv.Mat) ([]byte, error) {
	nb, err := gocv.IMEncode(gocv.JPEGFileExt, img)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frame: %w", err)
	}
	defer nb.Close()

	// GetBytes points into C memory released by Close.
	src := nb.GetBytes()
	buf := make([]byte, len(src))
	copy(buf, src)
	return buf, nil
}
