package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// WCAG contrast thresholds for normal-size text.
const (
	WCAGAA  = 4.5
	WCAGAAA = 7.0
)

const (
	solverMaxIterations = 100
	solverTolerance     = 1e-4

	// roundingStep raises the blend factor by less than half a channel
	// level per step.
	roundingStep = 1.0 / 512
)

// LuminanceTolerance is how far below the target a color's relative
// luminance may sit and still count as meeting it. 8-bit channels cannot
// hit most targets exactly.
const LuminanceTolerance = 1e-3

// MeetsLuminance reports whether c reaches target within LuminanceTolerance.
func MeetsLuminance(c RGBColor, target float64) bool {
	return c.Luminance() >= target-LuminanceTolerance
}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
//
// The alpha component represents opacity:
//   - 0 = fully transparent
//   - 255 = fully opaque
type RGBAColor struct {
	R uint8 `json:"r"` // Red component (0-255)
	G uint8 `json:"g"` // Green component (0-255)
	B uint8 `json:"b"` // Blue component (0-255)
	A uint8 `json:"a"` // Alpha/opacity component (0-255)
}

// NRGBA converts the color to the standard library's non-premultiplied type.
func (c RGBAColor) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// RGB drops the alpha component.
func (c RGBAColor) RGB() RGBColor {
	return RGBColor{R: c.R, G: c.G, B: c.B}
}

// Hex formats the color as "#RRGGBBAA".
func (c RGBAColor) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X%02X", c.R, c.G, c.B, c.A)
}

// MarshalText encodes the color as "#RRGGBBAA" so it reads naturally in
// YAML and JSON documents.
func (c RGBAColor) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText accepts any form ParseColor does; missing alpha means opaque.
func (c *RGBAColor) UnmarshalText(text []byte) error {
	parsed, err := ParseColor(string(text), 0xff)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// HSLColor represents a color in HSL (Hue, Saturation, Lightness) color space.
type HSLColor struct {
	H int `json:"h"` // Hue: 0-360 degrees (0=red, 120=green, 240=blue)
	S int `json:"s"` // Saturation: 0-100 percent (0=gray, 100=vivid)
	L int `json:"l"` // Lightness: 0-100 percent (0=black, 50=normal, 100=white)
}

// GammaToLinear applies the piecewise sRGB inverse transfer function to a
// single channel value in [0,1].
//
// Values at or below 0.04045 are divided by 12.92; larger values follow
// ((c+0.055)/1.055)^2.4. The two branches meet at the threshold, so the curve
// is continuous and monotonic over [0,1].
func GammaToLinear(c float64) float64 {
	lin, _, _ := colorful.Color{R: c}.LinearRgb()
	return lin
}

// RelativeLuminance returns the WCAG relative luminance of an sRGB triple
// whose channels are normalized to [0,1].
//
// The result is 0.2126*R + 0.7152*G + 0.0722*B computed on linearized
// channels, so black maps to 0 and white maps to 1.
func RelativeLuminance(r, g, b float64) float64 {
	lr, lg, lb := colorful.Color{R: r, G: g, B: b}.LinearRgb()
	return 0.2126*lr + 0.7152*lg + 0.0722*lb
}

// Luminance returns the relative luminance of the color.
func (c RGBColor) Luminance() float64 {
	return RelativeLuminance(float64(c.R)/255, float64(c.G)/255, float64(c.B)/255)
}

// Hex formats the color as "#RRGGBB".
func (c RGBColor) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// ContrastRatio returns the WCAG contrast ratio between two relative
// luminances. The result is symmetric in its arguments and never below 1.
func ContrastRatio(l1, l2 float64) float64 {
	hi, lo := l1, l2
	if lo > hi {
		hi, lo = lo, hi
	}
	return (hi + 0.05) / (lo + 0.05)
}

// AdjustToTargetLuminance brightens c toward white just enough for its
// relative luminance to reach target.
//
// The blend factor t in [0,1] is located by bisection: each channel becomes
// c + t*(255-c). The search stops once the bracketing interval is narrower
// than 1e-4 or after 100 halvings, and the upper end of the bracket is used.
// Channels are rounded to the nearest integer; when rounding lands the color
// short of the target, t is raised until the rounded color meets it.
//
// "Meets" means MeetsLuminance. A color that already meets the target is
// returned unchanged, so solving again on a result returns it as is. This
// operator never darkens.
//
// # Errors
//
// When the target exceeds what pure white can reach, or the iteration cap is
// hit first, the best attainable color is returned together with an error
// wrapping ErrNonConvergence. Callers may treat that as a warning.
func AdjustToTargetLuminance(c RGBColor, target float64) (RGBColor, error) {
	if MeetsLuminance(c, target) {
		return c, nil
	}

	lo, hi := 0.0, 1.0
	converged := false
	for i := 0; i < solverMaxIterations; i++ {
		mid := (lo + hi) / 2
		if blendedLuminance(c, mid) >= target {
			hi = mid
		} else {
			lo = mid
		}
		if hi-lo < solverTolerance {
			converged = true
			break
		}
	}

	out := blendToWhite(c, hi)
	for !MeetsLuminance(out, target) && hi < 1 {
		hi = math.Min(1, hi+roundingStep)
		out = blendToWhite(c, hi)
	}
	if !MeetsLuminance(out, target) {
		return out, fmt.Errorf("target luminance %.4f unreachable (best %.4f): %w", target, out.Luminance(), ErrNonConvergence)
	}
	if !converged {
		return out, fmt.Errorf("bisection stopped after %d iterations: %w", solverMaxIterations, ErrNonConvergence)
	}
	return out, nil
}

func blendedLuminance(c RGBColor, t float64) float64 {
	mix := func(v uint8) float64 {
		f := float64(v)
		return (f + t*(255-f)) / 255
	}
	return RelativeLuminance(mix(c.R), mix(c.G), mix(c.B))
}

func blendToWhite(c RGBColor, t float64) RGBColor {
	mix := func(v uint8) uint8 {
		f := float64(v)
		return ClampByte(f + t*(255-f))
	}
	return RGBColor{R: mix(c.R), G: mix(c.G), B: mix(c.B)}
}

// ClampByte rounds v to the nearest integer and clamps it to [0,255].
func ClampByte(v float64) uint8 {
	v = math.Round(v)
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}

// ParseColor parses "#RGB", "#RRGGBB" or "#RRGGBBAA". The alpha argument is
// used when the string carries no alpha of its own.
func ParseColor(s string, alpha uint8) (RGBAColor, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if len(s) == 9 {
		var a uint8
		if _, err := fmt.Sscanf(s[7:], "%02x", &a); err != nil {
			return RGBAColor{}, fmt.Errorf("invalid alpha in color %q: %w", s, ErrConfig)
		}
		alpha = a
		s = s[:7]
	}
	c, err := colorful.Hex(s)
	if err != nil {
		return RGBAColor{}, fmt.Errorf("invalid color %q: %w", s, ErrConfig)
	}
	r, g, b := c.RGB255()
	return RGBAColor{R: r, G: g, B: b, A: alpha}, nil
}

// ColorReport describes a color in the representations the tools expose.
type ColorReport struct {
	Hex       string     `json:"hex"`
	RGB       RGBColor   `json:"rgb"`
	HSL       HSLColor   `json:"hsl"`
	Linear    [3]float64 `json:"linear_rgb"`
	Luminance float64    `json:"luminance"`
}

// DescribeColor builds a ColorReport for c.
func DescribeColor(c RGBColor) ColorReport {
	cf := colorful.Color{R: float64(c.R) / 255, G: float64(c.G) / 255, B: float64(c.B) / 255}
	h, s, l := cf.Hsl()
	lr, lg, lb := cf.LinearRgb()
	return ColorReport{
		Hex:       c.Hex(),
		RGB:       c,
		HSL:       HSLColor{H: int(h), S: int(s * 100), L: int(l * 100)},
		Linear:    [3]float64{lr, lg, lb},
		Luminance: c.Luminance(),
	}
}

// ContrastReport compares two colors against the WCAG thresholds.
type ContrastReport struct {
	Foreground ColorReport `json:"foreground"`
	Background ColorReport `json:"background"`
	Ratio      float64     `json:"ratio"`
	AA         bool        `json:"passes_aa"`
	AAA        bool        `json:"passes_aaa"`
}

// CompareContrast reports the contrast ratio of fg against bg.
func CompareContrast(fg, bg RGBColor) ContrastReport {
	ratio := ContrastRatio(fg.Luminance(), bg.Luminance())
	return ContrastReport{
		Foreground: DescribeColor(fg),
		Background: DescribeColor(bg),
		Ratio:      ratio,
		AA:         ratio >= WCAGAA,
		AAA:        ratio >= WCAGAAA,
	}
}

// SampleResult is the color found at one pixel of an image.
type SampleResult struct {
	X     int         `json:"x"`
	Y     int         `json:"y"`
	Alpha uint8       `json:"alpha"`
	Color ColorReport `json:"color"`
}

// SampleColor extracts the color at (x, y), reported with its luminance.
//
// Coordinates are 0-based with the origin at the top-left of the image
// bounds. Points outside the image are rejected.
func SampleColor(img image.Image, x, y int) (*SampleResult, error) {
	bounds := img.Bounds()
	px, py := bounds.Min.X+x, bounds.Min.Y+y
	if !image.Pt(px, py).In(bounds) {
		return nil, fmt.Errorf("coordinates (%d,%d) outside image bounds: %w", x, y, ErrInput)
	}

	n := color.NRGBAModel.Convert(img.At(px, py)).(color.NRGBA)
	return &SampleResult{
		X:     x,
		Y:     y,
		Alpha: n.A,
		Color: DescribeColor(RGBColor{R: n.R, G: n.G, B: n.B}),
	}, nil
}
