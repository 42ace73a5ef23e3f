package geometry

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/ironsheep/image-watermark-mcp/internal/imaging"
)

func TestIntersect(t *testing.T) {
	tests := []struct {
		name string
		a, b Segment
		want Point
		ok   bool
	}{
		{
			name: "crossing diagonals",
			a:    Segment{0, 0, 10, 10},
			b:    Segment{0, 10, 10, 0},
			want: Point{5, 5},
			ok:   true,
		},
		{
			name: "parallel",
			a:    Segment{0, 0, 10, 10},
			b:    Segment{0, 1, 10, 11},
			ok:   false,
		},
		{
			name: "collinear overlap",
			a:    Segment{0, 0, 10, 10},
			b:    Segment{5, 5, 15, 15},
			ok:   false,
		},
		{
			name: "lines cross beyond segment end",
			a:    Segment{0, 0, 4, 4},
			b:    Segment{0, 10, 10, 0},
			ok:   false,
		},
		{
			name: "touching at endpoint",
			a:    Segment{0, 0, 5, 5},
			b:    Segment{5, 5, 10, 0},
			want: Point{5, 5},
			ok:   true,
		},
		{
			name: "axis aligned",
			a:    Segment{0, 3, 8, 3},
			b:    Segment{2, 0, 2, 6},
			want: Point{2, 3},
			ok:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Intersect(tt.a, tt.b)
			if ok != tt.ok {
				t.Fatalf("ok: got %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("point: got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIntersect_RoundTrip(t *testing.T) {
	centers := []Point{{2.5, 7.25}, {100, 0.5}, {-3.75, 12}, {4096.5, 2048.25}}
	dirs := [][2]Point{
		{{3, 4}, {-4, 3}},
		{{1, 1}, {1, -1}},
		{{8, 0.5}, {0.25, -2}},
	}

	for _, c := range centers {
		for _, d := range dirs {
			a := Seg(Point{c.X - d[0].X, c.Y - d[0].Y}, Point{c.X + d[0].X, c.Y + d[0].Y})
			b := Seg(Point{c.X - d[1].X, c.Y - d[1].Y}, Point{c.X + d[1].X, c.Y + d[1].Y})
			got, ok := Intersect(a, b)
			if !ok {
				t.Errorf("center %+v dirs %+v: no intersection", c, d)
				continue
			}
			if math.Abs(got.X-c.X) > 1e-9 || math.Abs(got.Y-c.Y) > 1e-9 {
				t.Errorf("center %+v dirs %+v: got %+v", c, d, got)
			}
		}
	}
}

func TestIntersect_RejectsPointBesideSegment(t *testing.T) {
	// The infinite lines meet at (3, 3), which is inside b's bounding box
	// but not on the segment a, which stops at x=2.
	a := Segment{0, 0, 2, 2}
	b := Segment{0, 6, 6, 0}
	if p, ok := Intersect(a, b); ok {
		t.Errorf("got %+v, want no intersection", p)
	}
}

func TestFamily(t *testing.T) {
	f45, err := Family(Diagonal45, 100, 50, 30)
	if err != nil {
		t.Fatalf("Family 45: %v", err)
	}
	// i = -50, -20, 10, 40, 70
	if len(f45) != 5 {
		t.Fatalf("45 count: got %d, want 5", len(f45))
	}
	if f45[0] != (Segment{-50, 0, 0, 50}) {
		t.Errorf("45 first: got %+v", f45[0])
	}
	if f45[4] != (Segment{70, 0, 120, 50}) {
		t.Errorf("45 last: got %+v", f45[4])
	}

	f135, err := Family(Diagonal135, 100, 50, 30)
	if err != nil {
		t.Fatalf("Family 135: %v", err)
	}
	// i = 0, 30, 60, 90, 120
	if len(f135) != 5 {
		t.Fatalf("135 count: got %d, want 5", len(f135))
	}
	if f135[1] != (Segment{30, 0, -20, 50}) {
		t.Errorf("135 second: got %+v", f135[1])
	}
}

func TestFamily_InvalidArguments(t *testing.T) {
	tests := []struct {
		name                 string
		angle                Angle
		width, height, space int
	}{
		{"zero spacing", Diagonal45, 10, 10, 0},
		{"negative width", Diagonal135, -1, 10, 5},
		{"zero height", Diagonal45, 10, 0, 5},
		{"unknown angle", Angle(90), 10, 10, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Family(tt.angle, tt.width, tt.height, tt.space)
			if !errors.Is(err, imaging.ErrConfig) {
				t.Errorf("got %v, want ErrConfig", err)
			}
		})
	}
}

func TestIntersectFamilies_InsideCanvas(t *testing.T) {
	const w, h, spacing = 600, 400, 90
	f45, _ := Family(Diagonal45, w, h, spacing)
	f135, _ := Family(Diagonal135, w, h, spacing)

	pts := IntersectFamilies(f135, f45, w, h)
	if len(pts) == 0 {
		t.Fatal("no intersections")
	}
	for _, p := range pts {
		if p.X < 0 || p.X > w || p.Y < 0 || p.Y > h {
			t.Errorf("intersection %+v outside the canvas", p)
		}
	}

	again := IntersectFamilies(f135, f45, w, h)
	if len(again) != len(pts) {
		t.Fatalf("not deterministic: %d vs %d", len(again), len(pts))
	}
	for i := range pts {
		if pts[i] != again[i] {
			t.Errorf("point %d differs: %+v vs %+v", i, pts[i], again[i])
		}
	}
}

func TestIntersectFamilies_DropsOffCanvas(t *testing.T) {
	f45, _ := Family(Diagonal45, 100, 100, 50)
	f135, _ := Family(Diagonal135, 100, 100, 50)

	// 14 pairs cross inside both segments; 3 of those lie left of x=0.
	pts := IntersectFamilies(f135, f45, 100, 100)
	if len(pts) != 11 {
		t.Errorf("got %d intersections, want 11", len(pts))
	}
	for _, p := range pts {
		if p.X < 0 || p.X > 100 || p.Y < 0 || p.Y > 100 {
			t.Errorf("intersection %+v outside the canvas", p)
		}
	}

	if _, ok := Intersect(Segment{-100, 0, 0, 100}, Segment{0, 0, -100, 100}); !ok {
		t.Error("segments meeting at (-50,50) should intersect")
	}
	for _, p := range pts {
		if p == (Point{-50, 50}) {
			t.Error("off-canvas point (-50,50) kept")
		}
	}
}

func TestDashes(t *testing.T) {
	seg := Segment{0, 0, 100, 0}
	dashes, err := Dashes(seg, 30, 5)
	if err != nil {
		t.Fatalf("Dashes: %v", err)
	}
	// starts at 0, 35, 70, 105 (stop)
	want := []Segment{
		{0, 0, 30, 0},
		{35, 0, 65, 0},
		{70, 0, 100, 0},
	}
	if len(dashes) != len(want) {
		t.Fatalf("count: got %d, want %d", len(dashes), len(want))
	}
	for i := range want {
		if dashes[i] != want[i] {
			t.Errorf("dash %d: got %+v, want %+v", i, dashes[i], want[i])
		}
	}
}

func TestDashes_TruncatesLastDash(t *testing.T) {
	// starts at 0, 25, 50; the third dash only has 10px left
	dashes, err := Dashes(Segment{0, 0, 0, 60}, 20, 5)
	if err != nil {
		t.Fatalf("Dashes: %v", err)
	}
	if len(dashes) != 3 {
		t.Fatalf("count: got %d, want 3", len(dashes))
	}
	last := dashes[2]
	if last != (Segment{0, 50, 0, 60}) {
		t.Errorf("last dash: got %+v, want (0,50)-(0,60)", last)
	}
}

func TestDashes_Errors(t *testing.T) {
	if _, err := Dashes(Segment{0, 0, 1, 1}, 0, 5); !errors.Is(err, imaging.ErrConfig) {
		t.Errorf("zero dash: got %v, want ErrConfig", err)
	}
	if _, err := Dashes(Segment{0, 0, 1, 1}, 5, -1); !errors.Is(err, imaging.ErrConfig) {
		t.Errorf("negative gap: got %v, want ErrConfig", err)
	}
	if got, err := Dashes(Segment{3, 3, 3, 3}, 5, 1); err != nil || len(got) != 0 {
		t.Errorf("zero-length segment: got %v, %v", got, err)
	}
}

func countOpaque(img *image.RGBA) int {
	n := 0
	for i := 3; i < len(img.Pix); i += 4 {
		if img.Pix[i] != 0 {
			n++
		}
	}
	return n
}

func TestStroker_Line(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 40, 40))
	s := NewStroker(canvas)
	s.Line(Segment{0, 20, 40, 20}, 4, color.NRGBA{200, 200, 200, 255})

	if a := canvas.RGBAAt(20, 20).A; a != 255 {
		t.Errorf("center alpha: got %d, want 255", a)
	}
	if a := canvas.RGBAAt(20, 10).A; a != 0 {
		t.Errorf("off-stroke alpha: got %d, want 0", a)
	}
	// 4px wide band across the full 40px width
	if n := countOpaque(canvas); n < 4*40 || n > 6*40 {
		t.Errorf("covered pixels: got %d, want about 160", n)
	}
}

func TestStroker_LineOutsideCanvas(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 20, 20))
	s := NewStroker(canvas)
	s.Line(Segment{-100, -100, -50, -50}, 10, color.White)
	if n := countOpaque(canvas); n != 0 {
		t.Errorf("covered pixels: got %d, want 0", n)
	}

	// Partly outside: a diagonal entering from the left edge.
	s.Line(Segment{-20, 0, 20, 40}, 2, color.White)
	if n := countOpaque(canvas); n == 0 {
		t.Error("partly visible line left no pixels")
	}
}

func TestStroker_Dashed(t *testing.T) {
	canvas := image.NewRGBA(image.Rect(0, 0, 100, 30))
	s := NewStroker(canvas)
	err := s.Dashed(Segment{0, 15, 100, 15}, DashStyle{
		Dash:        30,
		Gap:         DefaultGapLength,
		Width:       2,
		ShadowExtra: DefaultShadowExtra,
		Color:       color.NRGBA{200, 200, 200, 153},
		Shadow:      color.NRGBA{200, 200, 200, 76},
	})
	if err != nil {
		t.Fatalf("Dashed: %v", err)
	}

	// inside the first dash, on the shadow only
	if a := canvas.RGBAAt(10, 10).A; a == 0 {
		t.Error("shadow missing at (10,10)")
	}
	// inside the gap between the first and second dash
	if a := canvas.RGBAAt(32, 15).A; a != 0 {
		t.Errorf("gap alpha: got %d, want 0", a)
	}
	// the foreground is composited over the shadow
	if canvas.RGBAAt(10, 15).A <= canvas.RGBAAt(10, 10).A {
		t.Error("foreground not stronger than shadow on the center line")
	}
}
