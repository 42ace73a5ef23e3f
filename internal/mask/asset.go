package mask

import (
	"fmt"
	"image"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// Mask is a width x height grid of 0/1 values stored row-major, one byte per
// pixel. A Mask is treated as immutable once built; share it freely.
type Mask struct {
	Width  int
	Height int
	Bits   []uint8
}

// newMask allocates an all-zero mask.
func newMask(w, h int) *Mask {
	return &Mask{Width: w, Height: h, Bits: make([]uint8, w*h)}
}

// FromAlpha thresholds the alpha channel of img: zero alpha becomes 0 and
// anything else becomes 1.
func FromAlpha(img image.Image) *Mask {
	src := imaging.ToNRGBA(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	m := newMask(w, h)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		bits := m.Bits[y*w : (y+1)*w]
		for x := range bits {
			if row[x*4+3] != 0 {
				bits[x] = 1
			}
		}
	}
	return m
}

// fromRGBAAlpha is FromAlpha for a premultiplied canvas, read in place.
func fromRGBAAlpha(img *image.RGBA) *Mask {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	m := newMask(w, h)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+w*4]
		bits := m.Bits[y*w : (y+1)*w]
		for x := range bits {
			if row[x*4+3] != 0 {
				bits[x] = 1
			}
		}
	}
	return m
}

// At returns the value at (x, y), or 0 outside the mask.
func (m *Mask) At(x, y int) uint8 {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return 0
	}
	return m.Bits[y*m.Width+x]
}

// Count returns the number of set pixels.
func (m *Mask) Count() int {
	n := 0
	for _, b := range m.Bits {
		n += int(b)
	}
	return n
}

// Coverage returns the fraction of set pixels.
func (m *Mask) Coverage() float64 {
	if len(m.Bits) == 0 {
		return 0
	}
	return float64(m.Count()) / float64(len(m.Bits))
}

func (m *Mask) validate() error {
	if m.Width < 0 || m.Height < 0 || len(m.Bits) != m.Width*m.Height {
		return fmt.Errorf("mask %dx%d holds %d values: %w", m.Width, m.Height, len(m.Bits), imaging.ErrInput)
	}
	for i, b := range m.Bits {
		if b > 1 {
			return fmt.Errorf("mask value %d at index %d is not 0 or 1: %w", b, i, imaging.ErrInput)
		}
	}
	return nil
}

// Preview renders the mask as 8-bit grayscale, 0 as black and 1 as white.
func (m *Mask) Preview() *image.Gray {
	g := image.NewGray(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		g.Pix[i] = b * 0xff
	}
	return g
}

// Layer paints fill wherever the mask is set and leaves every other pixel
// fully transparent.
func (m *Mask) Layer(fill imaging.RGBAColor) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, m.Width, m.Height))
	for i, b := range m.Bits {
		if b == 0 {
			continue
		}
		p := img.Pix[i*4 : i*4+4 : i*4+4]
		p[0], p[1], p[2], p[3] = fill.R, fill.G, fill.B, fill.A
	}
	return img
}

// Asset is a watermark ready to apply: the mask plus the color it is
// painted with. Options records how the mask was generated, when known.
type Asset struct {
	Mask    *Mask
	Fill    imaging.RGBAColor
	Options *Options
}

// Layer renders the asset as an image for compositing.
func (a *Asset) Layer() *image.NRGBA {
	return a.Mask.Layer(a.Fill)
}

// Info summarizes an asset for reporting.
type Info struct {
	Width    int               `json:"width"`
	Height   int               `json:"height"`
	SetCount int               `json:"set_pixels"`
	Coverage float64           `json:"coverage"`
	Fill     imaging.RGBAColor `json:"fill_color"`
}

// Describe returns the asset's Info.
func (a *Asset) Describe() Info {
	n := a.Mask.Count()
	cov := 0.0
	if total := a.Mask.Width * a.Mask.Height; total > 0 {
		cov = float64(n) / float64(total)
	}
	return Info{
		Width:    a.Mask.Width,
		Height:   a.Mask.Height,
		SetCount: n,
		Coverage: cov,
		Fill:     a.Fill,
	}
}
