package geometry

const collinearTolerance = 1e-12

// Intersect returns the point where segments a and b cross.
//
// # Algorithm
//
// The infinite lines through a and b are intersected with the determinant
// formula. A zero determinant means the lines are parallel (collinear
// overlaps included) and no point is returned. Otherwise the candidate is
// accepted only if it lies inside both segments' bounding boxes and on both
// supporting lines, with the cross product below 1e-12 in absolute value.
// The bounding box alone would accept points that sit beside a segment.
func Intersect(a, b Segment) (Point, bool) {
	x1, y1, x2, y2 := a.X1, a.Y1, a.X2, a.Y2
	x3, y3, x4, y4 := b.X1, b.Y1, b.X2, b.Y2

	den := (x1-x2)*(y3-y4) - (y1-y2)*(x3-x4)
	if den == 0 {
		return Point{}, false
	}

	da := x1*y2 - y1*x2
	db := x3*y4 - y3*x4
	p := Point{
		X: (da*(x3-x4) - (x1-x2)*db) / den,
		Y: (da*(y3-y4) - (y1-y2)*db) / den,
	}

	if !a.contains(p) || !b.contains(p) {
		return Point{}, false
	}
	return p, true
}

// IntersectFamilies tests every segment of outer against every segment of
// inner and returns the crossings that fall inside the width x height canvas
// rectangle, edges included, in loop order. The result is deterministic for
// fixed inputs.
func IntersectFamilies(outer, inner []Segment, width, height int) []Point {
	var pts []Point
	for _, a := range outer {
		for _, b := range inner {
			if p, ok := Intersect(a, b); ok && p.inside(width, height) {
				pts = append(pts, p)
			}
		}
	}
	return pts
}

// canvasTolerance absorbs rounding for points computed on a canvas edge.
const canvasTolerance = 1e-9

func (p Point) inside(width, height int) bool {
	return p.X >= -canvasTolerance && p.X <= float64(width)+canvasTolerance &&
		p.Y >= -canvasTolerance && p.Y <= float64(height)+canvasTolerance
}
