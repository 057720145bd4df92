package recognizer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/amirhossein5/efl/attendance/internal/matcher"
	"github.com/amirhossein5/efl/attendance/internal/models"
	"github.com/stretchr/testify/require"
)

// modelsDir returns the dlib models directory or skips the test.
func modelsDir(t *testing.T) string {
	t.Helper()
	dir := os.Getenv("MODELS_DIR")
	if dir == "" {
		dir = filepath.Join("..", "..", "face-recognition-models")
	}
	if _, err := os.Stat(filepath.Join(dir, "dlib_face_recognition_resnet_model_v1.dat")); err != nil {
		t.Skipf("face recognition models not found in %s", dir)
	}
	return dir
}

// sampleFace returns a JPEG holding a single face or skips the test.
func sampleFace(t *testing.T) []byte {
	t.Helper()
	buf, err := os.ReadFile(filepath.Join("testdata", "face.jpg"))
	if err != nil {
		t.Skip("testdata/face.jpg not found")
	}
	return buf
}

func TestNewMissingModels(t *testing.T) {
	rec, err := New(t.TempDir())
	require.Error(t, err)
	require.Nil(t, rec)
}

func TestDistance(t *testing.T) {
	var a, b models.Descriptor
	b[0], b[1] = 3, 4

	require.Zero(t, Distance(a, a))
	require.InDelta(t, 5, Distance(a, b), 1e-6)
	require.InDelta(t, matcher.Distance(a, b), Distance(a, b), 1e-6)
}

func TestEncodeMatchesItself(t *testing.T) {
	rec, err := New(modelsDir(t))
	require.NoError(t, err)
	t.Cleanup(rec.Close)

	buf := sampleFace(t)

	descriptors, err := rec.Encode(buf)
	require.NoError(t, err)
	require.Len(t, descriptors, 1)

	var other models.Descriptor
	for i := range other {
		other[i] = 0.1
	}
	table := matcher.NewTable([]matcher.Identity{
		{Name: "other", Descriptor: other},
		{Name: "sample", Descriptor: descriptors[0]},
	}, matcher.WithDistance(Distance))

	res := table.Match(descriptors[0], 0.6)
	require.True(t, res.Accepted)
	require.Equal(t, "sample", res.Identity.Name)
	require.Zero(t, res.Distance)
}

func TestDetectReturnsRectangles(t *testing.T) {
	rec, err := New(modelsDir(t))
	require.NoError(t, err)
	t.Cleanup(rec.Close)

	faces, err := rec.Detect(sampleFace(t))
	require.NoError(t, err)
	require.Len(t, faces, 1)
	require.False(t, faces[0].Rect.Empty())
}

func TestDetectRejectsGarbage(t *testing.T) {
	rec, err := New(modelsDir(t))
	require.NoError(t, err)
	t.Cleanup(rec.Close)

	_, err = rec.Detect([]byte("not a jpeg"))
	require.Error(t, err)
}
