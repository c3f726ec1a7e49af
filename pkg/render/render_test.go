package render

import (
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	"gonum.org/v1/plot/vg"

	"github.com/fformation/dmonkit/pkg/geometry"
	"github.com/fformation/dmonkit/pkg/scene"
)

// fakeSource serves a solid frame or a fixed error
type fakeSource struct {
	err   error
	calls []float64
}

func (f *fakeSource) Frame(_ context.Context, ts float64) (image.Image, error) {
	f.calls = append(f.calls, ts)
	if f.err != nil {
		return nil, f.err
	}
	img := image.NewNRGBA(image.Rect(0, 0, 64, 48))
	for i := range img.Pix {
		img.Pix[i] = 200
	}
	return img, nil
}

// createTestScene builds a triad, a pair and a singleton with two learned edges
func createTestScene() *scene.Graph {
	s := scene.New()
	people := []struct {
		label int
		x, y  float64
	}{
		{0, 0, 0}, {0, 1, 0}, {0, 0.5, 1},
		{1, 4, 4}, {1, 5, 4},
		{2, 8, 0},
	}
	for i, p := range people {
		s.AddPerson(scene.Person{
			ID:         int64(i + 1),
			PersonNo:   i + 1,
			Membership: p.label,
			Color:      GroupPalette[p.label],
			Feature:    geometry.Feature{X: p.x, Y: p.y, Heading: 0.3, Offset: 0.1},
			Timestamp:  42.0,
		})
	}
	s.ConnectWeighted(1, 2, 0.9)
	s.ConnectWeighted(4, 5, 0.3)
	return s
}

func smallOptions() Options {
	opts := DefaultOptions()
	opts.ComparisonWidth = 6 * vg.Inch
	opts.ComparisonHeight = 3 * vg.Inch
	opts.SingleWidth = 3 * vg.Inch
	opts.SingleHeight = 2 * vg.Inch
	return opts
}

func TestBuildPanelShapePolicy(t *testing.T) {
	panel, err := BuildPanel(createTestScene(), PanelOptions{Title: "t", DrawArrows: true})
	if err != nil {
		t.Fatalf("BuildPanel failed: %v", err)
	}

	counts := panel.CountShapes()
	if counts[geometry.ShapeHull] != 1 || counts[geometry.ShapeLine] != 1 || counts[geometry.ShapeMarker] != 1 {
		t.Errorf("Unexpected shape counts %v", counts)
	}
	for _, e := range panel.Enclosures {
		if e.Shape == geometry.ShapeHull && len(e.Points) < 3 {
			t.Errorf("Hull for group %d has %d points", e.Membership, len(e.Points))
		}
	}

	if len(panel.Markers) != 6 || len(panel.Arrows) != 6 {
		t.Errorf("Expected 6 markers and arrows, got %d and %d", len(panel.Markers), len(panel.Arrows))
	}
	if len(panel.Frustums) != 0 {
		t.Errorf("Expected no frustums, got %d", len(panel.Frustums))
	}
	if panel.Markers[0].Label != "1" {
		t.Errorf("Expected person number label, got %q", panel.Markers[0].Label)
	}
}

func TestBuildPanelEdgeStyles(t *testing.T) {
	panel, err := BuildPanel(createTestScene(), PanelOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if len(panel.Edges) != 2 {
		t.Fatalf("Expected 2 edges, got %d", len(panel.Edges))
	}
	if panel.Edges[0].Dashed {
		t.Error("Expected strong affinity edge to be solid")
	}
	if !panel.Edges[1].Dashed {
		t.Error("Expected weak affinity edge to be dashed")
	}

	gt, err := BuildPanel(createTestScene().GroundTruth(), PanelOptions{})
	if err != nil {
		t.Fatal(err)
	}
	for _, e := range gt.Edges {
		if e.Dashed {
			t.Error("Unweighted ground truth edges should be solid")
		}
	}
	if len(gt.Edges) != 4 {
		t.Errorf("Expected 4 ground truth edges, got %d", len(gt.Edges))
	}
}

func TestBuildPanelFrustums(t *testing.T) {
	panel, err := BuildPanel(createTestScene(), PanelOptions{
		DrawFrustum: true, FrustumLength: 2, FrustumAngle: 1, UseBodyOrientation: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(panel.Frustums) != 6 {
		t.Fatalf("Expected 6 frustums, got %d", len(panel.Frustums))
	}
	b, ok := panel.Bounds()
	if !ok {
		t.Fatal("Expected panel bounds")
	}
	if b.Max.X < 9 {
		t.Errorf("Expected bounds to include the singleton's frustum, got %+v", b)
	}
}

func TestBuildPanelPredictionOverlay(t *testing.T) {
	panel, err := BuildPanel(createTestScene(), PanelOptions{Predictions: []int{0, 0, 1, 1, 2, 30}})
	if err != nil {
		t.Fatal(err)
	}
	if len(panel.Predictions) != 6 {
		t.Fatalf("Expected 6 overlay markers, got %d", len(panel.Predictions))
	}
	first := panel.Predictions[0]
	if first.Pos.X != 0.05 || first.Pos.Y != 0.25 {
		t.Errorf("Expected overlay offset, got %+v", first.Pos)
	}

	if _, err := BuildPanel(createTestScene(), PanelOptions{Predictions: []int{0}}); !errors.Is(err, scene.ErrMismatchedPredictions) {
		t.Errorf("Expected ErrMismatchedPredictions, got %v", err)
	}
}

func TestBuildPanelBadColor(t *testing.T) {
	s := scene.New()
	s.AddPerson(scene.Person{ID: 1, Color: "not-a-colour"})
	if _, err := BuildPanel(s, PanelOptions{}); err == nil {
		t.Error("Expected invalid colour to fail")
	}
}

func TestToyFrustumsGroundTruthFigure(t *testing.T) {
	r := New(smallOptions(), nil)
	img, panel, err := r.GroundTruthFigure(scene.ToyFrustums(), "Example Unconnected Frustums")
	if err != nil {
		t.Fatalf("GroundTruthFigure failed: %v", err)
	}

	if len(panel.Edges) != 5 {
		t.Errorf("Expected exactly 5 connected pairs, got %d", len(panel.Edges))
	}
	for _, e := range panel.Edges {
		if e.From.Y != e.To.Y || e.To.X-e.From.X != 1 {
			t.Errorf("Edge %v-%v joins people from different pairs", e.From, e.To)
		}
	}
	if n := panel.CountShapes()[geometry.ShapeLine]; n != 5 {
		t.Errorf("Expected 5 pair lines, got %d", n)
	}
	if len(panel.Frustums) != 10 || len(panel.Arrows) != 10 {
		t.Errorf("Expected frustums and arrows for all 10 people")
	}

	if img.Bounds().Dx() != 288 || img.Bounds().Dy() != 192 {
		t.Errorf("Expected 288x192 image at 96 dpi, got %v", img.Bounds())
	}
}

func TestCompareThreePanels(t *testing.T) {
	src := &fakeSource{}
	r := New(smallOptions(), nil)

	cmp, err := r.Compare(context.Background(), createTestScene(), src, []int{0, 0, 1, 1, 1, 2}, "Frame 7")
	if err != nil {
		t.Fatalf("Compare failed: %v", err)
	}
	if !cmp.HasCamera || cmp.Predictions == nil {
		t.Fatal("Expected camera and prediction panels")
	}
	if len(src.calls) != 1 || src.calls[0] != 42.0 {
		t.Errorf("Expected one frame request at 42s, got %v", src.calls)
	}
	if len(cmp.Predictions.Frustums) != 6 || len(cmp.Predictions.Arrows) != 0 {
		t.Error("Expected prediction panel with frustums and without arrows")
	}
	if len(cmp.GroundTruth.Frustums) != 0 || len(cmp.GroundTruth.Arrows) != 6 {
		t.Error("Expected ground truth panel with arrows and without frustums")
	}
	if n := cmp.Predictions.CountShapes()[geometry.ShapeHull]; n != 1 {
		t.Errorf("Expected predicted triad 3,4,5 as a hull, got %d hulls", n)
	}

	want := GroupPalette[1]
	c, _ := ParseColor(want)
	if cmp.Predictions.Markers[3].Color != c {
		t.Errorf("Expected predicted colour %s for person 4", want)
	}
}

func TestCompareMissingFrame(t *testing.T) {
	src := &fakeSource{err: errors.New("seek failed")}

	strict := New(smallOptions(), nil)
	if _, err := strict.Compare(context.Background(), createTestScene(), src, nil, ""); !errors.Is(err, ErrFrameUnavailable) {
		t.Errorf("Expected ErrFrameUnavailable, got %v", err)
	}

	opts := smallOptions()
	opts.SkipMissingFrames = true
	lenient := New(opts, nil)
	cmp, err := lenient.Compare(context.Background(), createTestScene(), src, nil, "")
	if err != nil {
		t.Fatalf("Expected blank camera panel, got %v", err)
	}
	if cmp.Predictions != nil {
		t.Error("Expected no prediction panel without predictions")
	}
}

func TestSaveComparison(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "vis")
	r := New(smallOptions(), nil)

	path, err := r.SaveComparison(context.Background(), createTestScene(), nil, []int{0, 0, 0, 1, 1, 2}, "Frame 3", "3", dir)
	if err != nil {
		t.Fatalf("SaveComparison failed: %v", err)
	}
	if filepath.Base(path) != "dmon_3.png" {
		t.Errorf("Unexpected output name %s", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected output file: %v", err)
	}
}

func TestSaveGroundTruth(t *testing.T) {
	path := filepath.Join(t.TempDir(), "gt", "toy.png")
	if err := New(smallOptions(), nil).SaveGroundTruth(scene.ToyFrustums(), "", path); err != nil {
		t.Fatalf("SaveGroundTruth failed: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Errorf("Expected output file: %v", err)
	}
}

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#38761d":   {0x38, 0x76, 0x1d, 0xff},
		"#58C0CF":   {0x58, 0xc0, 0xcf, 0xff},
		"#fff":      {0xff, 0xff, 0xff, 0xff},
		"#00000080": {0, 0, 0, 0x80},
		"yellow":    {0xff, 0xff, 0, 0xff},
	}
	for in, want := range cases {
		got, err := ParseColor(in)
		if err != nil {
			t.Errorf("ParseColor(%q) failed: %v", in, err)
			continue
		}
		if got != want {
			t.Errorf("ParseColor(%q): expected %v, got %v", in, want, got)
		}
	}
	if _, err := ParseColor("#12"); err == nil {
		t.Error("Expected short hex to fail")
	}
}

func TestPanelAspect(t *testing.T) {
	if a := panelAspect(17.2*vg.Inch, 6*vg.Inch, 3, true); a <= 0 {
		t.Errorf("Expected positive aspect, got %v", a)
	}
	if a := panelAspect(vg.Millimeter, vg.Millimeter, 3, false); a != 1 {
		t.Errorf("Expected fallback aspect 1, got %v", a)
	}
}
