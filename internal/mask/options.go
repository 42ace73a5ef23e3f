package mask

import (
	"fmt"

	"github.com/ironsheep/image-watermark-mcp/internal/geometry"
	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// Options configures one watermark design.
type Options struct {
	// Width and Height are the design canvas size in pixels.
	Width  int `json:"width" yaml:"width"`
	Height int `json:"height" yaml:"height"`

	// Spacing is the tiling period of each line family along the top edge.
	Spacing int `json:"spacing" yaml:"spacing"`

	DashLength  float64 `json:"dash_length" yaml:"dash_length"`
	GapLength   float64 `json:"gap_length" yaml:"gap_length"`
	StrokeWidth float64 `json:"stroke_width" yaml:"stroke_width"`

	// ShadowExtra widens the shadow stroke drawn under each dash.
	ShadowExtra float64 `json:"shadow_extra" yaml:"shadow_extra"`

	// FogStrokeWidth is the width of the solid, blurred fog lines. Zero
	// leaves the fog layer out.
	FogStrokeWidth float64 `json:"fog_stroke_width" yaml:"fog_stroke_width"`

	// BlurRadius is the Gaussian sigma applied to the fog layer.
	BlurRadius float64 `json:"blur_radius" yaml:"blur_radius"`

	StampText string  `json:"stamp_text" yaml:"stamp_text"`
	FontSize  float64 `json:"font_size" yaml:"font_size"`

	// FontPath points at a TrueType/OpenType file. Empty selects the
	// embedded Go Regular face.
	FontPath string `json:"font_path,omitempty" yaml:"font_path,omitempty"`

	// StampOffset is the diagonal offset of the four extra glyph copies.
	StampOffset int `json:"stamp_offset" yaml:"stamp_offset"`

	// StampStride stamps only every n-th line of each family. 1 stamps at
	// every intersection.
	StampStride int `json:"stamp_stride" yaml:"stamp_stride"`

	StrokeColor imaging.RGBAColor `json:"stroke_color" yaml:"stroke_color"`
	ShadowColor imaging.RGBAColor `json:"shadow_color" yaml:"shadow_color"`

	// FillColor is stored with the mask and used when it is applied.
	FillColor imaging.RGBAColor `json:"fill_color" yaml:"fill_color"`
}

// Defaults returns the classic design: a 6000x6000 canvas with lines every
// 450 px, light gray dashes at 50% opacity and "BH" stamped at each crossing.
func Defaults() Options {
	gray := func(opacity int) imaging.RGBAColor {
		return imaging.RGBAColor{R: 200, G: 200, B: 200, A: OpacityToAlpha(opacity)}
	}
	return Options{
		Width:          6000,
		Height:         6000,
		Spacing:        450,
		DashLength:     10,
		GapLength:      geometry.DefaultGapLength,
		StrokeWidth:    6,
		ShadowExtra:    geometry.DefaultShadowExtra,
		FogStrokeWidth: 0,
		BlurRadius:     20,
		StampText:      "BH",
		FontSize:       60,
		StampOffset:    2,
		StampStride:    1,
		StrokeColor:    gray(50),
		ShadowColor:    gray(25),
		FillColor:      gray(50),
	}
}

// OpacityToAlpha converts a 0-100 percentage to an 8-bit alpha, truncating.
func OpacityToAlpha(percent int) uint8 {
	if percent <= 0 {
		return 0
	}
	if percent >= 100 {
		return 255
	}
	return uint8(percent * 255 / 100)
}

// Validate checks every field and reports the first problem as ErrConfig.
func (o Options) Validate() error {
	switch {
	case o.Width <= 0 || o.Height <= 0:
		return configErr("canvas must be positive, got %dx%d", o.Width, o.Height)
	case o.Spacing <= 0:
		return configErr("spacing must be positive, got %d", o.Spacing)
	case o.DashLength <= 0:
		return configErr("dash_length must be positive, got %v", o.DashLength)
	case o.GapLength < 0:
		return configErr("gap_length must not be negative, got %v", o.GapLength)
	case o.StrokeWidth < 1:
		return configErr("stroke_width must be at least 1, got %v", o.StrokeWidth)
	case o.ShadowExtra < 0:
		return configErr("shadow_extra must not be negative, got %v", o.ShadowExtra)
	case o.FogStrokeWidth < 0:
		return configErr("fog_stroke_width must not be negative, got %v", o.FogStrokeWidth)
	case o.BlurRadius < 0:
		return configErr("blur_radius must not be negative, got %v", o.BlurRadius)
	case o.StampText != "" && o.FontSize <= 0:
		return configErr("font_size must be positive, got %v", o.FontSize)
	case o.StampOffset < 0:
		return configErr("stamp_offset must not be negative, got %d", o.StampOffset)
	case o.StampStride < 1:
		return configErr("stamp_stride must be at least 1, got %d", o.StampStride)
	}
	return nil
}

func configErr(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, imaging.ErrConfig)...)
}
