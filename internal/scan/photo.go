package scan

import (
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"os"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
)

// LoadPhoto reads a floor photo into a Mat for analysis.
func LoadPhoto(path string) (gocv.Mat, error) {
	img := gocv.IMRead(path, gocv.IMReadColor)
	if img.Empty() {
		return gocv.Mat{}, fmt.Errorf("could not read image %s", path)
	}
	return img, nil
}

// DecodePreview decodes a floor photo (PNG, JPEG, or TIFF) as an
// image.Image for on-screen preview, without pulling it through OpenCV.
func DecodePreview(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open photo: %w", err)
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode photo %s: %w", path, err)
	}
	return img, nil
}

// Downscale resizes an image so its longest edge is at most maxEdge,
// preserving aspect ratio. Images already within the limit are returned
// unchanged.
func Downscale(src image.Image, maxEdge int) image.Image {
	if maxEdge <= 0 {
		return src
	}
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	longest := max(w, h)
	if longest <= maxEdge {
		return src
	}

	scale := float64(maxEdge) / float64(longest)
	dw := int(float64(w) * scale)
	dh := int(float64(h) * scale)
	if dw < 1 {
		dw = 1
	}
	if dh < 1 {
		dh = 1
	}

	dst := image.NewRGBA(image.Rect(0, 0, dw, dh))
	draw.CatmullRom.Scale(dst, dst.Bounds(), src, b, draw.Over, nil)
	return dst
}
