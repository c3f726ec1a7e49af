// Package frames extracts the camera frame shown next to a scene.
//
// Two sources are supported: seeking directly into a video file through ffmpeg, and
// looking up the nearest still image in a directory indexed by timestamp.
package frames

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"os"
	"strings"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"
)

// ErrNoFrame is returned when a source has no frame for a timestamp
var ErrNoFrame = errors.New("no frame available")

// Source returns the camera frame at a timestamp in seconds
type Source interface {
	Frame(ctx context.Context, timestamp float64) (image.Image, error)
}

// LoadImage decodes an image file, falling back to an explicit WebP decode
func LoadImage(path string) (image.Image, error) {
	if img, err := imaging.Open(path); err == nil {
		return img, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return decodeBytes(data, path)
}

func decodeBytes(data []byte, name string) (image.Image, error) {
	if img, err := imaging.Decode(bytes.NewReader(data)); err == nil {
		return img, nil
	}
	if strings.Contains(strings.ToLower(name), ".webp") {
		if img, err := webp.Decode(bytes.NewReader(data)); err == nil {
			return img, nil
		}
	}
	return nil, fmt.Errorf("image: unknown format for %s", name)
}
