package geometry

import (
	"math"
	"testing"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestFrustum(t *testing.T) {
	f := Feature{X: 1, Y: 2, Heading: 0, Offset: math.Pi / 2}

	tri := Frustum(f, 2, math.Pi/2, false)
	if len(tri) != 3 {
		t.Fatalf("Expected a triangle, got %d points", len(tri))
	}
	if tri[0] != (Point{1, 2}) {
		t.Errorf("Expected apex at the person, got %v", tri[0])
	}
	d := 2 * math.Cos(math.Pi/4)
	if !almostEqual(tri[1].X, 1+d) || !almostEqual(tri[1].Y, 2-d) {
		t.Errorf("Unexpected right corner %v", tri[1])
	}
	if !almostEqual(tri[2].X, 1+d) || !almostEqual(tri[2].Y, 2+d) {
		t.Errorf("Unexpected left corner %v", tri[2])
	}

	body := Frustum(f, 2, math.Pi/2, true)
	if !almostEqual(body[1].X, 1+d) || !almostEqual(body[1].Y, 2+d) {
		t.Errorf("Expected body orientation to rotate the frustum, got %v", body[1])
	}
	for _, p := range body[1:] {
		if !almostEqual(p.Distance(body[0]), 2) {
			t.Errorf("Expected corner at frustum length, got distance %v", p.Distance(body[0]))
		}
	}
}

func TestConvexHull(t *testing.T) {
	points := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}, {1, 1}, {1, 0}, {0, 0}}
	hull := ConvexHull(points)

	want := []Point{{0, 0}, {2, 0}, {2, 2}, {0, 2}}
	if len(hull) != len(want) {
		t.Fatalf("Expected %d hull points, got %v", len(want), hull)
	}
	for i := range want {
		if hull[i] != want[i] {
			t.Errorf("Hull point %d: expected %v, got %v", i, want[i], hull[i])
		}
	}
}

func TestConvexHullCollinear(t *testing.T) {
	hull := ConvexHull([]Point{{0, 0}, {1, 1}, {2, 2}, {3, 3}})
	if len(hull) != 2 {
		t.Fatalf("Expected the two extremes, got %v", hull)
	}
	if hull[0] != (Point{0, 0}) || hull[1] != (Point{3, 3}) {
		t.Errorf("Unexpected extremes %v", hull)
	}
}

func TestEnclose(t *testing.T) {
	cases := []struct {
		name   string
		points []Point
		shape  Shape
		n      int
	}{
		{"triad", []Point{{0, 0}, {1, 0}, {0, 1}}, ShapeHull, 3},
		{"pair", []Point{{0, 0}, {1, 0}}, ShapeLine, 2},
		{"pair with duplicate", []Point{{0, 0}, {1, 0}, {1, 0}}, ShapeLine, 2},
		{"singleton", []Point{{4, 4}}, ShapeMarker, 1},
		{"stacked", []Point{{4, 4}, {4, 4}, {4, 4}}, ShapeMarker, 1},
		{"collinear", []Point{{0, 0}, {1, 0}, {2, 0}}, ShapeLine, 2},
		{"empty", nil, ShapeMarker, 0},
	}
	for _, c := range cases {
		e := Enclose(c.points)
		if e.Shape != c.shape {
			t.Errorf("%s: expected %s, got %s", c.name, c.shape, e.Shape)
		}
		if len(e.Points) != c.n {
			t.Errorf("%s: expected %d points, got %d", c.name, c.n, len(e.Points))
		}
	}
}

func TestBounds(t *testing.T) {
	b, ok := BoundsOf([]Point{{1, 5}, {-2, 3}, {4, -1}})
	if !ok {
		t.Fatal("Expected bounds")
	}
	if b.Min != (Point{-2, -1}) || b.Max != (Point{4, 5}) {
		t.Errorf("Unexpected bounds %+v", b)
	}
	p := b.Pad(1)
	if p.Width() != 8 || p.Height() != 8 {
		t.Errorf("Expected padded 8x8, got %vx%v", p.Width(), p.Height())
	}
	if _, ok := BoundsOf(nil); ok {
		t.Error("Expected no bounds for no points")
	}
}

func TestFeatureSlice(t *testing.T) {
	f := FeatureFromSlice([]float64{1, 2, 3})
	if f.Offset != 0 || f.Heading != 3 {
		t.Errorf("Unexpected feature %+v", f)
	}
	if s := f.Slice(); len(s) != 4 || s[0] != 1 {
		t.Errorf("Unexpected slice %v", s)
	}
}
