package geometry

import (
	"fmt"
	"math"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// Point is a position on the canvas in pixel units.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Segment is a straight line segment from (X1, Y1) to (X2, Y2).
type Segment struct {
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
	X2 float64 `json:"x2"`
	Y2 float64 `json:"y2"`
}

// Seg builds a Segment from two endpoints.
func Seg(a, b Point) Segment {
	return Segment{X1: a.X, Y1: a.Y, X2: b.X, Y2: b.Y}
}

// Start returns the first endpoint.
func (s Segment) Start() Point { return Point{s.X1, s.Y1} }

// End returns the second endpoint.
func (s Segment) End() Point { return Point{s.X2, s.Y2} }

// Length returns the Euclidean length of the segment.
func (s Segment) Length() float64 {
	return math.Hypot(s.X2-s.X1, s.Y2-s.Y1)
}

// PointAt returns the point at arc length d from the start.
func (s Segment) PointAt(d float64) Point {
	l := s.Length()
	if l == 0 {
		return s.Start()
	}
	ux, uy := (s.X2-s.X1)/l, (s.Y2-s.Y1)/l
	return Point{s.X1 + ux*d, s.Y1 + uy*d}
}

// contains reports whether p lies on s: inside its bounding box and on its
// supporting line within an absolute cross-product tolerance.
func (s Segment) contains(p Point) bool {
	if p.X < math.Min(s.X1, s.X2) || p.X > math.Max(s.X1, s.X2) ||
		p.Y < math.Min(s.Y1, s.Y2) || p.Y > math.Max(s.Y1, s.Y2) {
		return false
	}
	cross := (s.X2-s.X1)*(p.Y-s.Y1) - (s.Y2-s.Y1)*(p.X-s.X1)
	return math.Abs(cross) < collinearTolerance
}

// Angle selects one of the two diagonal line families.
type Angle int

const (
	// Diagonal45 runs from top-left to bottom-right.
	Diagonal45 Angle = 45
	// Diagonal135 runs from top-right to bottom-left.
	Diagonal135 Angle = 135
)

func (a Angle) String() string {
	return fmt.Sprintf("%d°", int(a))
}

// Family generates one family of parallel diagonals tiling a width x height
// canvas every spacing pixels along the top edge.
//
// For Diagonal45 the segments run from (i, 0) to (i+height, height) with i
// stepping from -height up to (not including) width. For Diagonal135 they run
// from (i, 0) to (i-height, height) with i stepping from 0 up to width+height.
// Both families therefore cover the whole canvas whatever its aspect ratio.
// Segments may start or end outside the canvas; drawing clips them.
func Family(angle Angle, width, height, spacing int) ([]Segment, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas must be positive, got %dx%d: %w", width, height, imaging.ErrConfig)
	}
	if spacing <= 0 {
		return nil, fmt.Errorf("spacing must be positive, got %d: %w", spacing, imaging.ErrConfig)
	}

	h := float64(height)
	var segs []Segment
	switch angle {
	case Diagonal45:
		for i := -height; i < width; i += spacing {
			x := float64(i)
			segs = append(segs, Segment{X1: x, Y1: 0, X2: x + h, Y2: h})
		}
	case Diagonal135:
		for i := 0; i < width+height; i += spacing {
			x := float64(i)
			segs = append(segs, Segment{X1: x, Y1: 0, X2: x - h, Y2: h})
		}
	default:
		return nil, fmt.Errorf("unsupported angle %v: %w", angle, imaging.ErrConfig)
	}
	return segs, nil
}
