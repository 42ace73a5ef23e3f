// Package geometry generates the diagonal line families of the watermark
// pattern, draws them as dashed strokes, and finds where the two families
// cross.
//
// Coordinates are canvas pixels with (0,0) at the top-left and Y growing
// downward, so the 45° family runs toward the bottom-right and the 135°
// family toward the bottom-left.
//
// Everything here is deterministic. Family, Dashes and Intersect are pure
// functions; a Stroker mutates only the canvas it was given.
package geometry
