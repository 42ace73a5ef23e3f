package imaging

import (
	"bytes"
	"fmt"
	"image"
	"image/color"

	"github.com/disintegration/imaging"
)

// CropTopLeft cuts img down to at most width x height pixels, anchored at
// the top-left corner of its bounds. Each dimension is clipped on its own and
// nothing is ever scaled, so a smaller image comes back at its own size.
//
// The result always has its origin at (0,0). Only pixels inside the returned
// box are read from img.
func CropTopLeft(img image.Image, width, height int) *image.NRGBA {
	b := img.Bounds()
	rect := image.Rect(b.Min.X, b.Min.Y, b.Min.X+width, b.Min.Y+height)
	return imaging.Crop(img, rect)
}

// ToNRGBA returns img as a zero-origin *image.NRGBA, converting when needed.
// Images without alpha come back fully opaque. An image that is already a
// zero-origin NRGBA is returned as is, not copied.
func ToNRGBA(img image.Image) *image.NRGBA {
	if n, ok := img.(*image.NRGBA); ok && n.Rect.Min == (image.Point{}) {
		return n
	}
	return imaging.Clone(img)
}

// ResizeToHeight scales img so its height equals height, with the width
// scaled by the same factor and truncated toward zero. Catmull-Rom
// resampling is used, the same cubic kernel family PIL calls bicubic.
func ResizeToHeight(img image.Image, height int) (*image.NRGBA, error) {
	if height <= 0 {
		return nil, fmt.Errorf("output height must be positive, got %d: %w", height, ErrConfig)
	}
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return nil, fmt.Errorf("cannot resize %dx%d image: %w", b.Dx(), b.Dy(), ErrDimension)
	}
	scale := float64(height) / float64(b.Dy())
	width := int(float64(b.Dx()) * scale)
	if width < 1 {
		width = 1
	}
	if width == b.Dx() && height == b.Dy() {
		return imaging.Clone(img), nil
	}
	return imaging.Resize(img, width, height, imaging.CatmullRom), nil
}

// FlattenRGB drops transparency by forcing every pixel's alpha to 255.
// The color channels are kept as they are, the same effect as converting
// an RGBA image to RGB without a matte.
func FlattenRGB(img image.Image) *image.NRGBA {
	src := ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[y*src.Stride:])
	}
	for i := 3; i < len(dst.Pix); i += 4 {
		dst.Pix[i] = 0xff
	}
	return dst
}

// Recompress passes img through a JPEG encode/decode cycle at the given
// quality, trading detail for a smaller final file. The result is opaque.
func Recompress(img image.Image, quality int) (image.Image, error) {
	if quality < 1 || quality > 100 {
		return nil, fmt.Errorf("jpeg quality must be within 1-100, got %d: %w", quality, ErrConfig)
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, FlattenRGB(img), imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	out, err := imaging.Decode(&buf)
	if err != nil {
		return nil, fmt.Errorf("failed to decode recompressed jpeg: %w", err)
	}
	return out, nil
}

// Fill returns a width x height image filled with c.
func Fill(width, height int, c color.Color) *image.NRGBA {
	return imaging.New(width, height, c)
}
