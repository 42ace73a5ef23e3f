package composite

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blend"
	"github.com/anthonynsimon/bild/parallel"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// linear maps an 8-bit sRGB channel to linear light.
var linear [256]float64

func init() {
	for i := range linear {
		linear[i] = imaging.GammaToLinear(float64(i) / 255)
	}
}

func luminance8(r, g, b uint8) float64 {
	return 0.2126*linear[r] + 0.7152*linear[g] + 0.0722*linear[b]
}

// Composite blends watermark onto base under policy p and returns a new
// image the size of base. Neither input is modified.
//
// # Alignment
//
// The watermark is cropped to the top-left width x height box of base, each
// dimension clipped on its own and never scaled. Base pixels not covered by
// the cropped watermark are copied through. A watermark smaller than the base
// (including an empty one) is therefore legal.
//
// # Per-pixel math
//
// For each covered pixel with watermark alpha a > 0:
//
//	s      = policy scale from base and watermark luminance
//	wm'    = clamp(wm * s, 0, 1)              per RGB channel
//	result = wm' * a + base * (1 - a)
//	alpha  = max(base alpha, a)
//
// and channels are rounded back to 8 bits. Pixels with a == 0 are left
// bit-identical to the base. Multiply replaces the first two lines with the
// channel product of base and watermark.
//
// # Errors
//
// A nil image wraps ErrInput and an invalid policy wraps ErrConfig. A base
// with zero area yields an empty image together with an error wrapping
// ErrDimension.
func Composite(base, watermark image.Image, p Policy) (*image.NRGBA, error) {
	if base == nil || watermark == nil {
		return nil, fmt.Errorf("base and watermark images are required: %w", imaging.ErrInput)
	}
	if p == nil {
		return nil, fmt.Errorf("blend policy is required: %w", imaging.ErrConfig)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	bb := base.Bounds()
	if bb.Empty() {
		return &image.NRGBA{}, fmt.Errorf("base image is %dx%d: %w", bb.Dx(), bb.Dy(), imaging.ErrDimension)
	}

	dst := cloneNRGBA(imaging.ToNRGBA(base))
	wm := imaging.CropTopLeft(watermark, bb.Dx(), bb.Dy())
	if wm.Rect.Empty() {
		return dst, nil
	}

	switch p := p.(type) {
	case AdaptiveToBackground:
		blendScaled(dst, wm, p.Scale)
	case GlobalMaxBoost:
		target := p.Target(maxLuminance(dst))
		blendScaled(dst, wm, func(_, wmLum float64) float64 {
			return p.Scale(target, wmLum)
		})
	case SymmetricContrast:
		blendScaled(dst, wm, p.Scale)
	case Overlay:
		blendScaled(dst, wm, func(_, _ float64) float64 { return 1 })
	case Multiply:
		blendMultiply(dst, wm, p.Opacity)
	default:
		return nil, fmt.Errorf("unsupported blend policy %T: %w", p, imaging.ErrConfig)
	}
	return dst, nil
}

// blendScaled applies the scale-then-composite step in place on dst. It
// reads only the pixels inside wm's bounds.
func blendScaled(dst, wm *image.NRGBA, scale func(baseLum, wmLum float64) float64) {
	w, h := wm.Rect.Dx(), wm.Rect.Dy()
	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			di := y * dst.Stride
			wi := y * wm.Stride
			for x := 0; x < w; x, di, wi = x+1, di+4, wi+4 {
				wa := wm.Pix[wi+3]
				if wa == 0 {
					continue
				}
				d := dst.Pix[di : di+4 : di+4]
				s := wm.Pix[wi : wi+4 : wi+4]
				k := scale(luminance8(d[0], d[1], d[2]), luminance8(s[0], s[1], s[2]))
				a := float64(wa) / 255
				for c := 0; c < 3; c++ {
					adj := clamp(float64(s[c])/255*k, 0, 1)
					d[c] = imaging.ClampByte((adj*a + float64(d[c])/255*(1-a)) * 255)
				}
				if wa > d[3] {
					d[3] = wa
				}
			}
		}
	})
}

// blendMultiply mixes the multiply-blend product of dst and wm into dst,
// weighted by the watermark alpha times opacity.
func blendMultiply(dst, wm *image.NRGBA, opacity float64) {
	w, h := wm.Rect.Dx(), wm.Rect.Dy()

	// bild works on premultiplied RGBA, so both layers go in opaque and the
	// watermark alpha is applied below.
	product := blend.Multiply(
		imaging.FlattenRGB(dst.SubImage(image.Rect(0, 0, w, h))),
		imaging.FlattenRGB(wm),
	)

	parallel.Line(h, func(start, end int) {
		for y := start; y < end; y++ {
			di := y * dst.Stride
			wi := y * wm.Stride
			pi := y * product.Stride
			for x := 0; x < w; x, di, wi, pi = x+1, di+4, wi+4, pi+4 {
				wa := wm.Pix[wi+3]
				if wa == 0 {
					continue
				}
				d := dst.Pix[di : di+4 : di+4]
				a := float64(wa) / 255 * opacity
				for c := 0; c < 3; c++ {
					d[c] = imaging.ClampByte(float64(product.Pix[pi+c])*a + float64(d[c])*(1-a))
				}
				if wa > d[3] {
					d[3] = wa
				}
			}
		}
	})
}

// maxLuminance returns the highest relative luminance in img.
func maxLuminance(img *image.NRGBA) float64 {
	maxLum := 0.0
	w, h := img.Rect.Dx(), img.Rect.Dy()
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		for i := 0; i < len(row); i += 4 {
			if l := luminance8(row[i], row[i+1], row[i+2]); l > maxLum {
				maxLum = l
			}
		}
	}
	return maxLum
}

// MaxLuminance returns the brightest relative luminance found in img, the
// quantity GlobalMaxBoost derives its target from.
func MaxLuminance(img image.Image) float64 {
	return maxLuminance(imaging.ToNRGBA(img))
}

func cloneNRGBA(src *image.NRGBA) *image.NRGBA {
	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		copy(dst.Pix[y*dst.Stride:y*dst.Stride+w*4], src.Pix[y*src.Stride:y*src.Stride+w*4])
	}
	return dst
}
