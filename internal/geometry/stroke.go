package geometry

import (
	"image"
	"image/color"
	"math"

	"golang.org/x/image/vector"
)

// Default dash parameters.
const (
	DefaultGapLength   = 5
	DefaultShadowExtra = 10
)

// strokeChunk caps the length of a single rasterized piece. Long strokes are
// drawn as consecutive pieces so each rasterizer pass only touches a small
// bounding box instead of the whole canvas.
const strokeChunk = 256

// DashStyle describes a dashed stroke with a wider shadow underneath.
type DashStyle struct {
	Dash  float64 // length of each dash
	Gap   float64 // distance skipped between dashes
	Width float64 // foreground stroke width

	// ShadowExtra is added to Width for the shadow stroke.
	ShadowExtra float64

	Color  color.Color
	Shadow color.Color
}

// Stroker draws anti-aliased wide lines onto an RGBA canvas.
//
// A Stroker is not safe for concurrent use; it reuses one rasterizer.
type Stroker struct {
	dst *image.RGBA
	z   vector.Rasterizer
}

// NewStroker returns a Stroker drawing onto dst.
func NewStroker(dst *image.RGBA) *Stroker {
	return &Stroker{dst: dst}
}

// Canvas returns the image the Stroker draws onto.
func (s *Stroker) Canvas() *image.RGBA {
	return s.dst
}

// Line draws seg as a filled rectangle of the given width centered on the
// segment, with butt ends. Pixels are composited with the Over operator.
func (s *Stroker) Line(seg Segment, width float64, c color.Color) {
	l := seg.Length()
	if l == 0 || width <= 0 {
		return
	}
	src := image.NewUniform(c)
	for d := 0.0; d < l; d += strokeChunk {
		piece := Seg(seg.PointAt(d), seg.PointAt(math.Min(d+strokeChunk, l)))
		s.fillQuad(piece, width, src)
	}
}

// Dashed draws seg as a dashed line. Every dash gets the shadow stroke
// first and the foreground stroke on top.
func (s *Stroker) Dashed(seg Segment, style DashStyle) error {
	dashes, err := Dashes(seg, style.Dash, style.Gap)
	if err != nil {
		return err
	}
	for _, d := range dashes {
		s.Line(d, style.Width+style.ShadowExtra, style.Shadow)
		s.Line(d, style.Width, style.Color)
	}
	return nil
}

func (s *Stroker) fillQuad(seg Segment, width float64, src image.Image) {
	l := seg.Length()
	if l == 0 {
		return
	}
	hw := width / 2
	nx := -(seg.Y2 - seg.Y1) / l * hw
	ny := (seg.X2 - seg.X1) / l * hw
	quad := [4]Point{
		{seg.X1 + nx, seg.Y1 + ny},
		{seg.X2 + nx, seg.Y2 + ny},
		{seg.X2 - nx, seg.Y2 - ny},
		{seg.X1 - nx, seg.Y1 - ny},
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range quad {
		minX, maxX = math.Min(minX, p.X), math.Max(maxX, p.X)
		minY, maxY = math.Min(minY, p.Y), math.Max(maxY, p.Y)
	}
	r := image.Rect(
		int(math.Floor(minX)), int(math.Floor(minY)),
		int(math.Ceil(maxX)), int(math.Ceil(maxY)),
	).Intersect(s.dst.Rect)
	if r.Empty() {
		return
	}

	// Mask coordinates are relative to r.Min.
	ox, oy := float64(r.Min.X), float64(r.Min.Y)
	s.z.Reset(r.Dx(), r.Dy())
	s.z.MoveTo(float32(quad[0].X-ox), float32(quad[0].Y-oy))
	for _, p := range quad[1:] {
		s.z.LineTo(float32(p.X-ox), float32(p.Y-oy))
	}
	s.z.ClosePath()
	s.z.Draw(s.dst, r, src, image.Point{})
}
