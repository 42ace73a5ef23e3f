// Package mask synthesizes, stores and loads binary watermark masks.
//
// # Design
//
// A watermark design is two families of parallel diagonals (45° and 135°)
// tiled across a canvas. Every line is drawn dashed, each dash with a wider
// translucent shadow underneath, and a short text is stamped at the line
// crossings. An optional fog layer of solid, Gaussian-blurred lines can be
// slid under the dashes.
//
// The rendered canvas is then thresholded on alpha: any pixel the design
// touched becomes 1, the rest 0. The colors and opacities of the design only
// matter for anti-aliased coverage; the color used when applying the mask is
// the asset's fill.
//
// # Storage
//
// Save writes three files per asset:
//
//	name.npy   the mask as a (height, width) uint8 NumPy array
//	name.png   a black/white preview
//	name.yaml  fill color, coverage and the generation options
//
// Load accepts any .npy with a one-byte dtype and 0/1 values, so masks
// produced by other tools can be applied as well.
//
// # Determinism
//
// Synthesis uses no randomness and no goroutines of its own, so equal
// Options produce bit-identical masks.
package mask
