package mask

import (
	"image"
	"image/draw"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/image-watermark-mcp/internal/geometry"
)

// Result is everything one synthesis run produced.
type Result struct {
	Asset *Asset

	// Canvas is the composited RGBA design the mask was thresholded from.
	Canvas *image.RGBA

	Lines45       []geometry.Segment
	Lines135      []geometry.Segment
	Intersections []geometry.Point
}

// Synthesize renders the watermark design described by o and bakes it into
// a binary mask.
//
// # Algorithm
//
//  1. Generate the 45° and 135° line families.
//  2. Draw every line dashed, shadow stroke first, onto a transparent canvas.
//  3. Intersect the families (every StampStride-th line of each), keep the
//     crossings inside the canvas and stamp the text centered on each in
//     the shadow color.
//  4. If FogStrokeWidth > 0, draw the same lines solid on a second canvas,
//     blur it with sigma BlurRadius and slide it under the first canvas.
//  5. Threshold the alpha channel: 0 stays 0, anything else becomes 1.
//
// The run is single-threaded apart from the blur and uses no randomness, so
// equal options give bit-identical masks.
func Synthesize(o Options) (*Result, error) {
	if err := o.Validate(); err != nil {
		return nil, err
	}

	f45, err := geometry.Family(geometry.Diagonal45, o.Width, o.Height, o.Spacing)
	if err != nil {
		return nil, err
	}
	f135, err := geometry.Family(geometry.Diagonal135, o.Width, o.Height, o.Spacing)
	if err != nil {
		return nil, err
	}

	canvas := image.NewRGBA(image.Rect(0, 0, o.Width, o.Height))
	stroker := geometry.NewStroker(canvas)
	style := geometry.DashStyle{
		Dash:        o.DashLength,
		Gap:         o.GapLength,
		Width:       o.StrokeWidth,
		ShadowExtra: o.ShadowExtra,
		Color:       o.StrokeColor.NRGBA(),
		Shadow:      o.ShadowColor.NRGBA(),
	}
	for _, fam := range [][]geometry.Segment{f45, f135} {
		for _, seg := range fam {
			if err := stroker.Dashed(seg, style); err != nil {
				return nil, err
			}
		}
	}

	points := geometry.IntersectFamilies(everyNth(f135, o.StampStride), everyNth(f45, o.StampStride), o.Width, o.Height)
	if o.StampText != "" {
		st, err := newStamper(o)
		if err != nil {
			return nil, err
		}
		for _, p := range points {
			st.Stamp(canvas, p)
		}
		if err := st.Close(); err != nil {
			return nil, err
		}
	}

	if o.FogStrokeWidth > 0 {
		canvas = underlayFog(canvas, f45, f135, o)
	}

	opts := o
	return &Result{
		Asset: &Asset{
			Mask:    fromRGBAAlpha(canvas),
			Fill:    o.FillColor,
			Options: &opts,
		},
		Canvas:        canvas,
		Lines45:       f45,
		Lines135:      f135,
		Intersections: points,
	}, nil
}

// underlayFog renders the blurred solid-line layer and composites top over it.
func underlayFog(top *image.RGBA, f45, f135 []geometry.Segment, o Options) *image.RGBA {
	fog := image.NewRGBA(top.Rect)
	s := geometry.NewStroker(fog)
	c := o.StrokeColor.NRGBA()
	for _, fam := range [][]geometry.Segment{f45, f135} {
		for _, seg := range fam {
			s.Line(seg, o.FogStrokeWidth, c)
		}
	}

	out := image.NewRGBA(top.Rect)
	if o.BlurRadius > 0 {
		draw.Draw(out, out.Rect, imaging.Blur(fog, o.BlurRadius), image.Point{}, draw.Src)
	} else {
		draw.Draw(out, out.Rect, fog, image.Point{}, draw.Src)
	}
	draw.Draw(out, out.Rect, top, image.Point{}, draw.Over)
	return out
}

func everyNth(segs []geometry.Segment, n int) []geometry.Segment {
	if n <= 1 {
		return segs
	}
	out := make([]geometry.Segment, 0, (len(segs)+n-1)/n)
	for i := 0; i < len(segs); i += n {
		out = append(out, segs[i])
	}
	return out
}
