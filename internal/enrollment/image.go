package enrollment

import (
	"bytes"
	"fmt"
	"image"
	"image/jpeg"
	_ "image/png"
	"os"

	"github.com/nfnt/resize"
)

const jpegQuality = 95

// toJPEG decodes the image at path, shrinks it to fit maxSize and encodes it
// as JPEG, the only format the recognizer reads.
func toJPEG(path string, maxSize uint) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}

	if maxSize > 0 {
		bounds := img.Bounds()
		if uint(bounds.Dx()) > maxSize || uint(bounds.Dy()) > maxSize {
			img = resize.Thumbnail(maxSize, maxSize, img, resize.Lanczos3)
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}
