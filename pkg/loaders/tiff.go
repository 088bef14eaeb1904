package loaders

import (
	"fmt"
	"image"
	"io"
	"os"

	"golang.org/x/image/tiff"

	"github.com/Ameobea/go-volumetric-fog/pkg/renderer"
)

// WriteDepthTIFF encodes a depth buffer as a deflate-compressed 16-bit
// grayscale TIFF, the interchange format most depth-export tooling speaks
func WriteDepthTIFF(w io.Writer, buf *renderer.DepthBuffer) error {
	img := image.NewGray16(image.Rect(0, 0, buf.Width(), buf.Height()))
	for y := 0; y < buf.Height(); y++ {
		for x := 0; x < buf.Width(); x++ {
			d := min(max(buf.At(x, y), 0), 1)
			v := uint16(d*65535 + 0.5)
			i := img.PixOffset(x, y)
			img.Pix[i] = uint8(v >> 8)
			img.Pix[i+1] = uint8(v)
		}
	}

	err := tiff.Encode(w, img, &tiff.Options{Compression: tiff.Deflate, Predictor: true})
	if err != nil {
		return fmt.Errorf("failed to encode depth TIFF: %w", err)
	}
	return nil
}

// ReadDepthTIFF decodes a TIFF into a depth buffer. Any pixel format works;
// the red channel carries the depth for non-grayscale images.
func ReadDepthTIFF(r io.Reader) (*renderer.DepthBuffer, error) {
	img, err := tiff.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("failed to decode depth TIFF: %w", err)
	}

	bounds := img.Bounds()
	buf, err := renderer.NewDepthBuffer(bounds.Dx(), bounds.Dy())
	if err != nil {
		return nil, err
	}
	for y := 0; y < bounds.Dy(); y++ {
		for x := 0; x < bounds.Dx(); x++ {
			r16, _, _, _ := img.At(x+bounds.Min.X, y+bounds.Min.Y).RGBA()
			buf.Set(x, y, float64(r16)/65535.0)
		}
	}
	return buf, nil
}

// SaveDepthTIFFFile writes a depth buffer to a TIFF file at path
func SaveDepthTIFFFile(path string, buf *renderer.DepthBuffer) error {
	return saveFile(path, func(w io.Writer) error { return WriteDepthTIFF(w, buf) })
}

// LoadDepthTIFFFile reads a depth buffer from a TIFF file at path
func LoadDepthTIFFFile(path string) (*renderer.DepthBuffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadDepthTIFF(f)
}
