package geometry

import (
	"fmt"
	"math"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

// Dashes splits s into dash pieces of length dash separated by gap.
//
// The walk runs along the segment's arc length: each dash ends at
// min(start+dash, length), and the next one starts dash+gap further on. The
// last dash is truncated to the remaining length instead of overshooting the
// end point. A zero-length segment yields no dashes.
func Dashes(s Segment, dash, gap float64) ([]Segment, error) {
	if dash <= 0 {
		return nil, fmt.Errorf("dash length must be positive, got %v: %w", dash, imaging.ErrConfig)
	}
	if gap < 0 {
		return nil, fmt.Errorf("gap length must not be negative, got %v: %w", gap, imaging.ErrConfig)
	}

	total := s.Length()
	var out []Segment
	for cur := 0.0; cur < total; cur += dash + gap {
		next := math.Min(cur+dash, total)
		out = append(out, Seg(s.PointAt(cur), s.PointAt(next)))
	}
	return out, nil
}
