package composite

import (
	"fmt"
	"math"
	"strings"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// Policy selects how the watermark's brightness is adapted to the base image
// before alpha compositing.
//
// The set of policies is closed: AdaptiveToBackground, GlobalMaxBoost,
// SymmetricContrast, Overlay and Multiply. Composite dispatches on the
// concrete type.
type Policy interface {
	// Name returns the configuration name of the policy.
	Name() string

	// Validate reports out-of-range parameters as ErrConfig.
	Validate() error

	policy()
}

// Policy names as used in configuration files and tool arguments.
const (
	NameAdaptive  = "adaptive"
	NameBoost     = "global-max-boost"
	NameSymmetric = "symmetric-contrast"
	NameOverlay   = "overlay"
	NameMultiply  = "multiply"
)

// PolicyNames lists every recognized policy name.
var PolicyNames = []string{NameAdaptive, NameBoost, NameSymmetric, NameOverlay, NameMultiply}

// AdaptiveToBackground picks a per-pixel target luminance from the pixel
// underneath: bright backgrounds (luminance above 0.5) push the watermark to
// base+0.4, darker ones keep it at the base luminance. Either target is
// clamped to [0.1, 0.9].
type AdaptiveToBackground struct {
	MinScale float64 `json:"min_scale" yaml:"min_scale"`
	MaxScale float64 `json:"max_scale" yaml:"max_scale"`
}

// DefaultAdaptiveToBackground returns the policy with its scale clamped to
// [0.3, 3.0].
func DefaultAdaptiveToBackground() AdaptiveToBackground {
	return AdaptiveToBackground{MinScale: 0.3, MaxScale: 3.0}
}

func (AdaptiveToBackground) Name() string { return NameAdaptive }
func (AdaptiveToBackground) policy()      {}

func (p AdaptiveToBackground) Validate() error {
	return validateScale(p.Name(), p.MinScale, p.MaxScale)
}

// Target returns the luminance the watermark should reach over a pixel of
// luminance baseLum.
func (AdaptiveToBackground) Target(baseLum float64) float64 {
	if baseLum > 0.5 {
		return clamp(baseLum+0.4, 0.1, 0.9)
	}
	return clamp(baseLum, 0.1, 0.9)
}

// Scale returns the channel multiplier for one pixel.
func (p AdaptiveToBackground) Scale(baseLum, wmLum float64) float64 {
	return clamp(ratio(p.Target(baseLum), wmLum), p.MinScale, p.MaxScale)
}

// GlobalMaxBoost derives one target for the whole image from the brightest
// base pixel: target = min(maxLum*BoostRatio, 1). Watermark pixels already
// at or above the target are left alone, so this policy only brightens.
type GlobalMaxBoost struct {
	BoostRatio float64 `json:"boost_ratio" yaml:"boost_ratio"`
	MinScale   float64 `json:"min_scale" yaml:"min_scale"`
	MaxScale   float64 `json:"max_scale" yaml:"max_scale"`
}

// DefaultGlobalMaxBoost returns the policy with a 1.3 boost and its scale
// clamped to [1, 5].
func DefaultGlobalMaxBoost() GlobalMaxBoost {
	return GlobalMaxBoost{BoostRatio: 1.3, MinScale: 1.0, MaxScale: 5.0}
}

func (GlobalMaxBoost) Name() string { return NameBoost }
func (GlobalMaxBoost) policy()      {}

func (p GlobalMaxBoost) Validate() error {
	if p.BoostRatio < 1 || math.IsNaN(p.BoostRatio) || math.IsInf(p.BoostRatio, 0) {
		return fmt.Errorf("%s: boost_ratio must be >= 1, got %v: %w", p.Name(), p.BoostRatio, imaging.ErrConfig)
	}
	return validateScale(p.Name(), p.MinScale, p.MaxScale)
}

// Target returns the image-wide target for a base whose brightest pixel has
// luminance maxLum.
func (p GlobalMaxBoost) Target(maxLum float64) float64 {
	return math.Min(maxLum*p.BoostRatio, 1.0)
}

// Scale returns the channel multiplier for a watermark pixel of luminance
// wmLum against the image-wide target.
func (p GlobalMaxBoost) Scale(target, wmLum float64) float64 {
	s := 1.0
	if wmLum < target {
		s = ratio(target, wmLum)
	}
	return clamp(s, p.MinScale, p.MaxScale)
}

// SymmetricContrast scales the watermark by the contrast ratio between it
// and the pixel underneath, whichever of the two is brighter.
type SymmetricContrast struct {
	MinScale float64 `json:"min_scale" yaml:"min_scale"`
	MaxScale float64 `json:"max_scale" yaml:"max_scale"`
}

// DefaultSymmetricContrast returns the policy with its scale clamped to
// [1, 21], the full range a WCAG contrast ratio can take.
func DefaultSymmetricContrast() SymmetricContrast {
	return SymmetricContrast{MinScale: 1.0, MaxScale: 21.0}
}

func (SymmetricContrast) Name() string { return NameSymmetric }
func (SymmetricContrast) policy()      {}

func (p SymmetricContrast) Validate() error {
	return validateScale(p.Name(), p.MinScale, p.MaxScale)
}

// Target returns the base luminance clamped to [0.2, 0.8]. It is reported
// for diagnostics; the scale depends only on the two luminances.
func (SymmetricContrast) Target(baseLum float64) float64 {
	return clamp(baseLum, 0.2, 0.8)
}

// Scale returns the contrast ratio of the two luminances, never below 1.
func (p SymmetricContrast) Scale(baseLum, wmLum float64) float64 {
	return clamp(imaging.ContrastRatio(baseLum, wmLum), p.MinScale, p.MaxScale)
}

// Overlay pastes the watermark with its own alpha and no brightness change.
type Overlay struct{}

func (Overlay) Name() string    { return NameOverlay }
func (Overlay) policy()         {}
func (Overlay) Validate() error { return nil }

// Multiply darkens the base by the watermark color (multiply blend) and
// mixes the product in with the watermark alpha scaled by Opacity.
type Multiply struct {
	Opacity float64 `json:"opacity" yaml:"opacity"`
}

// DefaultMultiply returns a half-strength multiply blend.
func DefaultMultiply() Multiply {
	return Multiply{Opacity: 0.5}
}

func (Multiply) Name() string { return NameMultiply }
func (Multiply) policy()      {}

func (p Multiply) Validate() error {
	if p.Opacity < 0 || p.Opacity > 1 || math.IsNaN(p.Opacity) {
		return fmt.Errorf("%s: opacity must be within [0,1], got %v: %w", p.Name(), p.Opacity, imaging.ErrConfig)
	}
	return nil
}

// DefaultPolicy returns the named policy with its default parameters.
func DefaultPolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case NameAdaptive:
		return DefaultAdaptiveToBackground(), nil
	case NameBoost:
		return DefaultGlobalMaxBoost(), nil
	case NameSymmetric:
		return DefaultSymmetricContrast(), nil
	case NameOverlay:
		return Overlay{}, nil
	case NameMultiply:
		return DefaultMultiply(), nil
	case "":
		return nil, fmt.Errorf("blend policy must be named (one of %s): %w", strings.Join(PolicyNames, ", "), imaging.ErrConfig)
	}
	return nil, fmt.Errorf("unknown blend policy %q (one of %s): %w", name, strings.Join(PolicyNames, ", "), imaging.ErrConfig)
}

// Params overrides the defaults of a named policy. Zero fields keep the
// default; fields a policy does not use are ignored.
type Params struct {
	BoostRatio float64 `json:"boost_ratio,omitempty" yaml:"boost_ratio"`
	MinScale   float64 `json:"min_scale,omitempty" yaml:"min_scale"`
	MaxScale   float64 `json:"max_scale,omitempty" yaml:"max_scale"`
	Opacity    float64 `json:"opacity,omitempty" yaml:"opacity"`
}

// NewPolicy returns the named policy with p applied over its defaults and
// validated.
func NewPolicy(name string, p Params) (Policy, error) {
	base, err := DefaultPolicy(name)
	if err != nil {
		return nil, err
	}
	override := func(dst *float64, v float64) {
		if v != 0 {
			*dst = v
		}
	}

	var out Policy
	switch pol := base.(type) {
	case AdaptiveToBackground:
		override(&pol.MinScale, p.MinScale)
		override(&pol.MaxScale, p.MaxScale)
		out = pol
	case GlobalMaxBoost:
		override(&pol.BoostRatio, p.BoostRatio)
		override(&pol.MinScale, p.MinScale)
		override(&pol.MaxScale, p.MaxScale)
		out = pol
	case SymmetricContrast:
		override(&pol.MinScale, p.MinScale)
		override(&pol.MaxScale, p.MaxScale)
		out = pol
	case Multiply:
		override(&pol.Opacity, p.Opacity)
		out = pol
	default:
		out = pol
	}
	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

func validateScale(name string, lo, hi float64) error {
	if lo <= 0 || math.IsNaN(lo) {
		return fmt.Errorf("%s: min_scale must be positive, got %v: %w", name, lo, imaging.ErrConfig)
	}
	if hi < lo || math.IsNaN(hi) {
		return fmt.Errorf("%s: max_scale %v below min_scale %v: %w", name, hi, lo, imaging.ErrConfig)
	}
	return nil
}

// ratio is the hue-preserving channel multiplier that takes a luminance of
// from to a luminance of to, in WCAG contrast terms.
func ratio(to, from float64) float64 {
	return (to + 0.05) / (from + 0.05)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
