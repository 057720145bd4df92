// Package recognizer wraps the dlib face recognizer.
package recognizer

import (
	"fmt"
	"math"
	"log/slog"
	"sync"

	"github.com/Kagami/go-face"
	"github.com/amirhossein5/efl/attendance/internal/models"
)

// Recognizer finds faces in JPEG images and computes their descriptors.
type Recognizer struct {
	mu  sync.Mutex
	rec *face.Recognizer
}

// New loads the dlib models from modelsDir.
func New(modelsDir string) (*Recognizer, error) {
	slog.Info("initializing face-recognition-models...", "dir", modelsDir)

	rec, err := face.NewRecognizer(modelsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to load recognizer: %w", err)
	}

	return &Recognizer{rec: rec}, nil
}

func (r *Recognizer) Close() {
	r.rec.Close()
}

// Detect returns every face in the JPEG image buf.
func (r *Recognizer) Detect(buf []byte) ([]models.DetectedFace, error) {
	r.mu.Lock()
	faces, err := r.rec.Recognize(buf)
	r.mu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("failed to recognize given buffer: %w", err)
	}

	detected := make([]models.DetectedFace, 0, len(faces))
	for _, f := range faces {
		detected = append(detected, models.DetectedFace{
			Rect:       f.Rectangle,
			Descriptor: models.Descriptor(f.Descriptor),
		})
	}
	return detected, nil
}

// Encode returns the descriptor of every face in the JPEG image buf.
func (r *Recognizer) Encode(buf []byte) ([]models.Descriptor, error) {
	faces, err := r.Detect(buf)
	if err != nil {
		return nil, err
	}

	descriptors := make([]models.Descriptor, 0, len(faces))
	for _, f := range faces {
		descriptors = append(descriptors, f.Descriptor)
	}
	return descriptors, nil
}

// Distance is the Euclidean distance between two descriptors.
func Distance(a, b models.Descriptor) float64 {
	return math.Sqrt(face.SquaredEuclideanDistance(face.Descriptor(a), face.Descriptor(b)))
}
