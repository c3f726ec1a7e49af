package render

import (
	"image/color"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"

	"github.com/fformation/dmonkit/pkg/geometry"
)

// Drawing sizes in points
var (
	markerRadius    = vg.Points(8)
	predictionSize  = vg.Points(7)
	edgeWidth       = vg.Points(1)
	pairLineWidth   = vg.Points(14)
	hullEdgeWidth   = vg.Points(1.5)
	frustumEdgeSize = vg.Points(0.5)
	dashes          = []vg.Length{vg.Points(5), vg.Points(3)}
)

// Enclosure opacities
const (
	hullAlpha = 0.25
	pairAlpha = 0.35
)

func xys(points []geometry.Point) plotter.XYs {
	out := make(plotter.XYs, len(points))
	for i, p := range points {
		out[i].X, out[i].Y = p.X, p.Y
	}
	return out
}

// Plot converts the panel into a plot whose axes keep equal scaling for a data area
// of the given width/height ratio
func (p Panel) Plot(aspect float64) (*plot.Plot, error) {
	plt := plot.New()
	plt.Title.Text = p.Title

	for _, e := range p.Enclosures {
		switch e.Shape {
		case geometry.ShapeHull:
			poly, err := plotter.NewPolygon(xys(e.Points))
			if err != nil {
				return nil, err
			}
			poly.Color = withAlpha(e.Color, hullAlpha)
			poly.LineStyle.Color = e.Color
			poly.LineStyle.Width = hullEdgeWidth
			plt.Add(poly)
		case geometry.ShapeLine:
			line, err := plotter.NewLine(xys(e.Points))
			if err != nil {
				return nil, err
			}
			line.LineStyle.Color = withAlpha(e.Color, pairAlpha)
			line.LineStyle.Width = pairLineWidth
			line.LineStyle.Dashes = nil
			plt.Add(line)
		}
	}

	for _, f := range p.Frustums {
		poly, err := plotter.NewPolygon(xys(f))
		if err != nil {
			return nil, err
		}
		poly.Color = frustumFace
		poly.LineStyle.Color = frustumEdge
		poly.LineStyle.Width = frustumEdgeSize
		plt.Add(poly)
	}

	for _, e := range p.Edges {
		line, err := plotter.NewLine(xys([]geometry.Point{e.From, e.To}))
		if err != nil {
			return nil, err
		}
		line.LineStyle.Color = outline
		line.LineStyle.Width = edgeWidth
		if e.Dashed {
			line.LineStyle.Dashes = dashes
		}
		plt.Add(line)
	}

	plt.Add(markerPlotter{markers: p.Markers}, arrowPlotter{arrows: p.Arrows})
	if len(p.Predictions) > 0 {
		plt.Add(predictionPlotter{markers: p.Predictions})
	}

	if b, ok := p.Bounds(); ok {
		setEqualAxes(plt, b.Pad(0.75), aspect)
	}
	return plt, nil
}

// setEqualAxes widens the shorter side of b so one scene unit spans the same length
// on both axes of a data area with the given width/height ratio
func setEqualAxes(plt *plot.Plot, b geometry.Bounds, aspect float64) {
	if aspect <= 0 {
		aspect = 1
	}
	w, h := b.Width(), b.Height()
	if w/h < aspect {
		grow := (h*aspect - w) / 2
		b.Min.X -= grow
		b.Max.X += grow
	} else {
		grow := (w/aspect - h) / 2
		b.Min.Y -= grow
		b.Max.Y += grow
	}
	plt.X.Min, plt.X.Max = b.Min.X, b.Max.X
	plt.Y.Min, plt.Y.Max = b.Min.Y, b.Max.Y
}

// markerPlotter draws outlined person nodes and their numbers
type markerPlotter struct {
	markers []Marker
}

func (mp markerPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)

	sty := plt.X.Tick.Label
	sty.Color = color.Black
	sty.XAlign = text.XLeft
	sty.YAlign = text.YBottom

	for _, m := range mp.markers {
		pt := vg.Point{X: trX(m.Pos.X), Y: trY(m.Pos.Y)}
		if !c.Contains(pt) {
			continue
		}
		c.DrawGlyph(draw.GlyphStyle{Color: m.Color, Radius: markerRadius, Shape: draw.CircleGlyph{}}, pt)
		c.DrawGlyph(draw.GlyphStyle{Color: outline, Radius: markerRadius, Shape: draw.RingGlyph{}}, pt)

		lp := m.LabelPos()
		c.FillText(sty, vg.Point{X: trX(lp.X), Y: trY(lp.Y)}, m.Label)
	}
}

func (mp markerPlotter) DataRange() (xmin, xmax, ymin, ymax float64) {
	pts := make([]geometry.Point, len(mp.markers))
	for i, m := range mp.markers {
		pts[i] = m.Pos
	}
	return dataRange(pts)
}

// arrowPlotter draws heading arrows above the nodes
type arrowPlotter struct {
	arrows []Arrow
}

func (ap arrowPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	tr := func(p geometry.Point) vg.Point { return vg.Point{X: trX(p.X), Y: trY(p.Y)} }

	shaft := draw.LineStyle{Color: outline, Width: edgeWidth}
	for _, a := range ap.arrows {
		head := a.Head()
		base := a.Origin.Add(geometry.Polar(ArrowLength, a.Theta))
		c.StrokeLine2(shaft, trX(a.Origin.X), trY(a.Origin.Y), trX(base.X), trY(base.Y))

		tri := []vg.Point{tr(head[0]), tr(head[1]), tr(head[2])}
		c.FillPolygon(a.Color, tri)
		c.StrokeLines(shaft, append(tri, tri[0]))
	}
}

// predictionPlotter draws the predicted-label marker overlay
type predictionPlotter struct {
	markers []PredictionMarker
}

func (pp predictionPlotter) Plot(c draw.Canvas, plt *plot.Plot) {
	trX, trY := plt.Transforms(&c)
	for _, m := range pp.markers {
		pt := vg.Point{X: trX(m.Pos.X), Y: trY(m.Pos.Y)}
		if !c.Contains(pt) {
			continue
		}
		c.DrawGlyph(draw.GlyphStyle{Color: withAlpha(m.Color, 0.7), Radius: predictionSize, Shape: m.Glyph}, pt)
	}
}

func dataRange(pts []geometry.Point) (xmin, xmax, ymin, ymax float64) {
	b, ok := geometry.BoundsOf(pts)
	if !ok {
		return 0, 1, 0, 1
	}
	return b.Min.X, b.Max.X, b.Min.Y, b.Max.Y
}
