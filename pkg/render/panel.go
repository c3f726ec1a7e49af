package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"

	"golang.org/x/image/colornames"
	"gonum.org/v1/plot/vg/draw"

	"github.com/fformation/dmonkit/pkg/geometry"
	"github.com/fformation/dmonkit/pkg/scene"
)

// Arrow geometry in scene units
const (
	ArrowLength     = 0.25
	ArrowHeadWidth  = 0.08
	ArrowHeadLength = 0.14
)

// DashedWeight is the affinity at or below which a weighted edge is drawn dashed
const DashedWeight = 0.5

var (
	labelOffset      = geometry.Point{X: -0.25, Y: -0.25}
	predictionOffset = geometry.Point{X: 0.05, Y: 0.25}
)

// PanelOptions selects what a group panel draws
type PanelOptions struct {
	Title              string
	DrawFrustum        bool
	DrawArrows         bool
	UseBodyOrientation bool
	FrustumLength      float64
	FrustumAngle       float64
	// Predictions adds a marker overlay keyed by predicted label, one per person in id order
	Predictions []int
}

// GroupEnclosure is the resolved enclosure of one group
type GroupEnclosure struct {
	Membership int
	Color      color.NRGBA
	geometry.Enclosure
}

// EdgeSegment is a drawn edge
type EdgeSegment struct {
	From   geometry.Point
	To     geometry.Point
	Dashed bool
}

// Arrow is a heading arrow starting at a person
type Arrow struct {
	Origin geometry.Point
	Theta  float64
	Color  color.NRGBA
}

// Tip returns the arrow tip, head included
func (a Arrow) Tip() geometry.Point {
	return a.Origin.Add(geometry.Polar(ArrowLength+ArrowHeadLength, a.Theta))
}

// Head returns the arrow head triangle: left base, tip, right base
func (a Arrow) Head() []geometry.Point {
	base := a.Origin.Add(geometry.Polar(ArrowLength, a.Theta))
	side := geometry.Polar(ArrowHeadWidth/2, a.Theta+math.Pi/2)
	return []geometry.Point{base.Add(side), a.Tip(), base.Sub(side)}
}

// Marker is a person node
type Marker struct {
	Pos   geometry.Point
	Color color.NRGBA
	Label string
}

// LabelPos returns where the person number is written
func (m Marker) LabelPos() geometry.Point {
	return m.Pos.Add(labelOffset)
}

// PredictionMarker is one entry of the prediction overlay
type PredictionMarker struct {
	Pos   geometry.Point
	Color color.NRGBA
	Glyph draw.GlyphDrawer
}

// Panel is the resolved drawing of one scene graph, in scene coordinates
type Panel struct {
	Title       string
	Enclosures  []GroupEnclosure
	Frustums    [][]geometry.Point
	Edges       []EdgeSegment
	Markers     []Marker
	Arrows      []Arrow
	Predictions []PredictionMarker
}

// BuildPanel resolves the geometry of a scene: an enclosure per group following the
// hull/line/marker policy, optional frustums and heading arrows, edges and markers.
func BuildPanel(s *scene.Graph, opts PanelOptions) (Panel, error) {
	panel := Panel{Title: opts.Title}
	people := s.People()

	colors := make(map[int64]color.NRGBA, len(people))
	for _, p := range people {
		c, err := ParseColor(p.Color)
		if err != nil {
			return Panel{}, fmt.Errorf("person %d: %w", p.ID, err)
		}
		colors[p.ID] = c
	}

	for _, g := range s.Groups() {
		panel.Enclosures = append(panel.Enclosures, GroupEnclosure{
			Membership: g.Membership,
			Color:      colors[g.People[0].ID],
			Enclosure:  geometry.Enclose(g.Positions()),
		})
	}

	if opts.DrawFrustum {
		for _, p := range people {
			panel.Frustums = append(panel.Frustums,
				geometry.Frustum(p.Feature, opts.FrustumLength, opts.FrustumAngle, opts.UseBodyOrientation))
		}
	}

	for _, e := range s.Edges() {
		a, _ := s.Person(e.From)
		b, _ := s.Person(e.To)
		panel.Edges = append(panel.Edges, EdgeSegment{
			From:   a.Feature.Position(),
			To:     b.Feature.Position(),
			Dashed: e.HasWeight && e.Weight <= DashedWeight,
		})
	}

	for _, p := range people {
		panel.Markers = append(panel.Markers, Marker{
			Pos:   p.Feature.Position(),
			Color: colors[p.ID],
			Label: strconv.Itoa(p.PersonNo),
		})
		if opts.DrawArrows {
			panel.Arrows = append(panel.Arrows, Arrow{
				Origin: p.Feature.Position(),
				Theta:  p.Feature.Orientation(true),
				Color:  colors[p.ID],
			})
		}
	}

	if opts.Predictions != nil {
		if len(opts.Predictions) != len(people) {
			return Panel{}, fmt.Errorf("%w: %d labels for %d people",
				scene.ErrMismatchedPredictions, len(opts.Predictions), len(people))
		}
		for i, p := range people {
			label := opts.Predictions[i]
			c, err := ParseColor(paletteColor(DistinctColors, label))
			if err != nil {
				return Panel{}, err
			}
			n := len(DistinctGlyphs)
			panel.Predictions = append(panel.Predictions, PredictionMarker{
				Pos:   p.Feature.Position().Add(predictionOffset),
				Color: c,
				Glyph: DistinctGlyphs[((label%n)+n)%n],
			})
		}
	}

	return panel, nil
}

// CountShapes returns how many enclosures use each shape
func (p Panel) CountShapes() map[geometry.Shape]int {
	out := make(map[geometry.Shape]int)
	for _, e := range p.Enclosures {
		out[e.Shape]++
	}
	return out
}

// Bounds returns the extent of everything drawn
func (p Panel) Bounds() (geometry.Bounds, bool) {
	var pts []geometry.Point
	for _, m := range p.Markers {
		pts = append(pts, m.Pos, m.LabelPos())
	}
	for _, f := range p.Frustums {
		pts = append(pts, f...)
	}
	for _, a := range p.Arrows {
		pts = append(pts, a.Tip())
	}
	for _, m := range p.Predictions {
		pts = append(pts, m.Pos)
	}
	return geometry.BoundsOf(pts)
}

var (
	frustumFace = withAlpha(colornames.Yellow, 0.05)
	frustumEdge = withAlpha(colornames.Gray, 1)
	outline     = withAlpha(colornames.Black, 1)
)
