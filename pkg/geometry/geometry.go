// Package geometry holds the 2D primitives used to draw social-interaction scenes:
// person features, view frustums, convex hulls and the group enclosure policy.
package geometry

import (
	"math"
	"sort"
)

// Point is a position in scene (world) coordinates
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Add returns p+q
func (p Point) Add(q Point) Point {
	return Point{p.X + q.X, p.Y + q.Y}
}

// Sub returns p-q
func (p Point) Sub(q Point) Point {
	return Point{p.X - q.X, p.Y - q.Y}
}

// Scale returns p scaled by s
func (p Point) Scale(s float64) Point {
	return Point{p.X * s, p.Y * s}
}

// Distance returns the euclidean distance between p and q
func (p Point) Distance(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Polar returns the point at distance r from the origin in direction theta
func Polar(r, theta float64) Point {
	return Point{r * math.Cos(theta), r * math.Sin(theta)}
}

// Feature is the per-person feature vector: position, heading and heading offset.
// Heading+Offset is the body orientation.
type Feature struct {
	X       float64
	Y       float64
	Heading float64
	Offset  float64
}

// FeatureFromSlice builds a Feature from a [x, y, heading, offset] vector.
// Missing trailing components are zero.
func FeatureFromSlice(v []float64) Feature {
	var f [4]float64
	copy(f[:], v)
	return Feature{X: f[0], Y: f[1], Heading: f[2], Offset: f[3]}
}

// Slice returns the feature as a [x, y, heading, offset] vector
func (f Feature) Slice() []float64 {
	return []float64{f.X, f.Y, f.Heading, f.Offset}
}

// Position returns the person position
func (f Feature) Position() Point {
	return Point{f.X, f.Y}
}

// Orientation returns the body orientation when useBody is set, the heading otherwise
func (f Feature) Orientation(useBody bool) float64 {
	if useBody {
		return f.Heading + f.Offset
	}
	return f.Heading
}

// Frustum returns the view frustum of a person as a triangle: the apex at the person
// and two far corners at length along the orientation rotated by +-angle/2.
func Frustum(f Feature, length, angle float64, useBody bool) []Point {
	apex := f.Position()
	theta := f.Orientation(useBody)
	return []Point{
		apex,
		apex.Add(Polar(length, theta-angle/2)),
		apex.Add(Polar(length, theta+angle/2)),
	}
}

// Bounds is an axis-aligned rectangle in world coordinates
type Bounds struct {
	Min Point
	Max Point
}

// BoundsOf returns the smallest Bounds containing every point. ok is false for no points.
func BoundsOf(points []Point) (b Bounds, ok bool) {
	if len(points) == 0 {
		return Bounds{}, false
	}
	b = Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b, true
}

// Pad grows the bounds by d on every side
func (b Bounds) Pad(d float64) Bounds {
	return Bounds{
		Min: Point{b.Min.X - d, b.Min.Y - d},
		Max: Point{b.Max.X + d, b.Max.Y + d},
	}
}

// Width of the bounds
func (b Bounds) Width() float64 { return b.Max.X - b.Min.X }

// Height of the bounds
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Distinct returns the points with exact duplicates removed, sorted by x then y
func Distinct(points []Point) []Point {
	pts := make([]Point, len(points))
	copy(pts, points)
	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})
	out := pts[:0]
	for i, p := range pts {
		if i > 0 && p == pts[i-1] {
			continue
		}
		out = append(out, p)
	}
	return out
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// ConvexHull returns the convex hull of points in counter-clockwise order, starting
// from the lowest-x point. Collinear boundary points are dropped, so a collinear input
// yields its two extremes.
func ConvexHull(points []Point) []Point {
	pts := Distinct(points)
	if len(pts) < 3 {
		return pts
	}

	hull := make([]Point, 0, 2*len(pts))
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	lower := len(hull) + 1
	for i := len(pts) - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}
	return hull[:len(hull)-1]
}

// Shape is how a group of people is enclosed when drawn
type Shape int

const (
	// ShapeMarker draws no enclosure, only the person marker
	ShapeMarker Shape = iota
	// ShapeLine connects the two extreme members with a thick translucent line
	ShapeLine
	// ShapeHull fills the convex hull of the members
	ShapeHull
)

func (s Shape) String() string {
	switch s {
	case ShapeHull:
		return "hull"
	case ShapeLine:
		return "line"
	default:
		return "marker"
	}
}

// Enclosure is the resolved geometry for one group
type Enclosure struct {
	Shape  Shape
	Points []Point
}

// Enclose applies the group enclosure policy: three or more distinct points get their
// convex hull, two distinct points get a line, a single point gets neither. A degenerate
// (collinear) hull falls back to a line between its extremes.
func Enclose(points []Point) Enclosure {
	pts := Distinct(points)
	switch {
	case len(pts) >= 3:
		hull := ConvexHull(pts)
		if len(hull) >= 3 {
			return Enclosure{Shape: ShapeHull, Points: hull}
		}
		return Enclosure{Shape: ShapeLine, Points: hull}
	case len(pts) == 2:
		return Enclosure{Shape: ShapeLine, Points: pts}
	default:
		return Enclosure{Shape: ShapeMarker, Points: pts}
	}
}
