package texture

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// Decode reads an image in any registered format (png, jpeg, gif, bmp, tiff, webp).
//
// Parameters:
//   - r: the encoded image
//
// Returns:
//   - image.Image: the decoded image
//   - string: the format name
//   - error: decode failure
func Decode(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", fmt.Errorf("decode texture: %w", err)
	}
	return img, format, nil
}

// Load opens and decodes an image file.
func Load(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open texture %s: %w", path, err)
	}
	defer f.Close()
	img, _, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// Resample scales img to a size x size RGBA layer. Catmull-Rom is used when the size
// changes; an image already at the layer size is copied texel for texel.
//
// Parameters:
//   - img: the source image
//   - size: layer width and height in pixels
//
// Returns:
//   - []byte: size*size*4 bytes of RGBA8 data
func Resample(img image.Image, size uint32) []byte {
	dst := image.NewRGBA(image.Rect(0, 0, int(size), int(size)))
	src := img.Bounds()
	if src.Dx() == int(size) && src.Dy() == int(size) {
		draw.Draw(dst, dst.Bounds(), img, src.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(dst, dst.Bounds(), img, src, draw.Src, nil)
	}
	return dst.Pix
}

// Solid returns a single-color image. A 1x1 image resamples to a uniform layer.
func Solid(c color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 1, 1))
	img.SetRGBA(0, 0, c)
	return img
}

// Checker returns a two-color checkerboard with cells of cell x cell pixels.
func Checker(size, cell int, a, b color.RGBA) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	for y := range size {
		for x := range size {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, a)
			} else {
				img.SetRGBA(x, y, b)
			}
		}
	}
	return img
}
