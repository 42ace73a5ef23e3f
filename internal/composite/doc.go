// Package composite blends a watermark layer onto a base image so that the
// mark stays visible whatever the background underneath it.
//
// # Blend Policies
//
// A Policy decides how far each watermark pixel is brightened or darkened
// before it is alpha-composited:
//
//   - AdaptiveToBackground: per-pixel target from the base luminance
//   - GlobalMaxBoost: one target derived from the brightest base pixel
//   - SymmetricContrast: scale by the contrast ratio of base and watermark
//   - Overlay: no adjustment, plain alpha paste
//   - Multiply: multiply blend mixed in by the watermark alpha
//
// None of them is implied. Callers name the policy they want, usually
// through configuration (see DefaultPolicy).
//
// Scaling multiplies all three channels by one factor, so hue is preserved
// while brightness shifts. The factor is (target+0.05)/(wm+0.05) in WCAG
// luminance terms, clamped to a per-policy range.
//
// # Thread Safety
//
// Composite is pure. It may be called concurrently with shared, read-only
// inputs, which is how the batch driver shares one watermark layer across
// its workers. Each call fans its rows out over the available CPUs.
package composite
