// Package render draws scene graphs as group diagrams and composes the camera,
// ground-truth and prediction panels into a single comparison image.
package render

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/text"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/fformation/dmonkit/pkg/frames"
	"github.com/fformation/dmonkit/pkg/scene"
)

// ErrFrameUnavailable wraps a camera frame that could not be extracted
var ErrFrameUnavailable = errors.New("camera frame unavailable")

// Panel titles
const (
	CameraTitle      = "Camera View"
	GroundTruthTitle = "Ground Truth"
	PredictionsTitle = "Predictions"
	DefaultGTTitle   = "Salsa Cocktail Party - Frame 0"
)

// Options configures a Renderer
type Options struct {
	UseBodyOrientation bool
	FrustumLength      float64
	FrustumAngle       float64
	// SkipMissingFrames leaves the camera panel blank instead of failing
	SkipMissingFrames bool
	// PredictionMarkers overlays a distinct marker per predicted label
	PredictionMarkers bool
	ComparisonWidth   vg.Length
	ComparisonHeight  vg.Length
	SingleWidth       vg.Length
	SingleHeight      vg.Length
}

// DefaultOptions returns a body-oriented unit frustum of 60 degrees and the usual
// figure sizes
func DefaultOptions() Options {
	return Options{
		UseBodyOrientation: true,
		FrustumLength:      1,
		FrustumAngle:       math.Pi / 3,
		ComparisonWidth:    17.2 * vg.Inch,
		ComparisonHeight:   6 * vg.Inch,
		SingleWidth:        10.8 * vg.Inch,
		SingleHeight:       7.2 * vg.Inch,
	}
}

// Renderer produces scene figures
type Renderer struct {
	opts   Options
	logger logrus.FieldLogger
}

// New creates a renderer. A nil logger discards warnings.
func New(opts Options, logger logrus.FieldLogger) *Renderer {
	if logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		logger = l
	}
	return &Renderer{opts: opts, logger: logger}
}

// Comparison is a rendered comparison figure and the panels it contains
type Comparison struct {
	Image       image.Image
	GroundTruth Panel
	Predictions *Panel
	HasCamera   bool
}

// Compare renders side by side the camera frame at the scene timestamp (when src is
// set), the ground-truth grouping and the predicted grouping (when predictions is
// set). The ground truth is derived from the scene memberships.
func (r *Renderer) Compare(ctx context.Context, s *scene.Graph, src frames.Source, predictions []int, title string) (Comparison, error) {
	var out Comparison
	var plots []*plot.Plot

	panels := 1
	if src != nil {
		panels++
	}
	if predictions != nil {
		panels++
	}
	aspect := panelAspect(r.opts.ComparisonWidth, r.opts.ComparisonHeight, panels, title != "")

	if src != nil {
		cam, err := r.cameraPlot(ctx, src, s.Timestamp(), aspect)
		if err != nil {
			return Comparison{}, err
		}
		out.HasCamera = true
		plots = append(plots, cam)
	}

	gt, err := BuildPanel(s.GroundTruth(), r.panelOptions(GroundTruthTitle, false, true))
	if err != nil {
		return Comparison{}, fmt.Errorf("ground truth panel: %w", err)
	}
	out.GroundTruth = gt
	gtPlot, err := gt.Plot(aspect)
	if err != nil {
		return Comparison{}, err
	}
	plots = append(plots, gtPlot)

	if predictions != nil {
		predicted, err := s.WithPredictions(predictions, GroupPalette)
		if err != nil {
			return Comparison{}, err
		}
		opts := r.panelOptions(PredictionsTitle, true, false)
		if r.opts.PredictionMarkers {
			opts.Predictions = predictions
		}
		pred, err := BuildPanel(predicted, opts)
		if err != nil {
			return Comparison{}, fmt.Errorf("prediction panel: %w", err)
		}
		out.Predictions = &pred
		predPlot, err := pred.Plot(aspect)
		if err != nil {
			return Comparison{}, err
		}
		plots = append(plots, predPlot)
	}

	out.Image = compose(title, plots, r.opts.ComparisonWidth, r.opts.ComparisonHeight)
	return out, nil
}

// SaveComparison renders the comparison and writes it to <saveDir>/dmon_<frameNo>.png
func (r *Renderer) SaveComparison(ctx context.Context, s *scene.Graph, src frames.Source, predictions []int, title, frameNo, saveDir string) (string, error) {
	if err := os.MkdirAll(saveDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	cmp, err := r.Compare(ctx, s, src, predictions, title)
	if err != nil {
		return "", err
	}
	path := filepath.Join(saveDir, fmt.Sprintf("dmon_%s.png", frameNo))
	if err := imaging.Save(cmp.Image, path); err != nil {
		return "", fmt.Errorf("failed to save comparison: %w", err)
	}
	return path, nil
}

// GroundTruthFigure renders the derived ground-truth graph of s as a single panel
// with frustums and heading arrows
func (r *Renderer) GroundTruthFigure(s *scene.Graph, title string) (image.Image, Panel, error) {
	if title == "" {
		title = DefaultGTTitle
	}
	panel, err := BuildPanel(s.GroundTruth(), r.panelOptions(title, true, true))
	if err != nil {
		return nil, Panel{}, err
	}
	plt, err := panel.Plot(panelAspect(r.opts.SingleWidth, r.opts.SingleHeight, 1, false))
	if err != nil {
		return nil, Panel{}, err
	}
	return compose("", []*plot.Plot{plt}, r.opts.SingleWidth, r.opts.SingleHeight), panel, nil
}

// SaveGroundTruth writes the ground-truth figure to path
func (r *Renderer) SaveGroundTruth(s *scene.Graph, title, path string) error {
	img, _, err := r.GroundTruthFigure(s, title)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("failed to save ground truth figure: %w", err)
	}
	return nil
}

func (r *Renderer) panelOptions(title string, frustum, arrows bool) PanelOptions {
	return PanelOptions{
		Title:              title,
		DrawFrustum:        frustum,
		DrawArrows:         arrows,
		UseBodyOrientation: r.opts.UseBodyOrientation,
		FrustumLength:      r.opts.FrustumLength,
		FrustumAngle:       r.opts.FrustumAngle,
	}
}

// cameraPlot shows the frame letterboxed into the panel without axes
func (r *Renderer) cameraPlot(ctx context.Context, src frames.Source, ts float64, aspect float64) (*plot.Plot, error) {
	plt := plot.New()
	plt.Title.Text = CameraTitle
	plt.HideAxes()

	img, err := src.Frame(ctx, ts)
	if err != nil {
		if !r.opts.SkipMissingFrames {
			return nil, fmt.Errorf("%w: %v", ErrFrameUnavailable, err)
		}
		r.logger.WithError(err).WithField("timestamp", ts).Warn("camera frame unavailable, leaving panel blank")
		return plt, nil
	}

	w, h := float64(img.Bounds().Dx()), float64(img.Bounds().Dy())
	plt.Add(plotter.NewImage(img, 0, 0, w, h))

	// letterbox: widen the shorter axis so the frame keeps its proportions
	if w/h < aspect {
		pad := (h*aspect - w) / 2
		plt.X.Min, plt.X.Max = -pad, w+pad
		plt.Y.Min, plt.Y.Max = 0, h
	} else {
		pad := (w/aspect - h) / 2
		plt.X.Min, plt.X.Max = 0, w
		plt.Y.Min, plt.Y.Max = -pad, h+pad
	}
	return plt, nil
}

const (
	figurePad  = 4 * vg.Millimeter
	axisMargin = 12 * vg.Millimeter
)

// panelAspect estimates the width/height ratio of one panel's data area
func panelAspect(width, height vg.Length, panels int, titled bool) float64 {
	w := (width-figurePad*vg.Length(panels+1))/vg.Length(panels) - axisMargin
	h := height - 2*figurePad - 2*axisMargin
	if titled {
		h -= 10 * vg.Millimeter
	}
	if w <= 0 || h <= 0 {
		return 1
	}
	return float64(w / h)
}

// compose tiles the plots in one row under an optional figure title
func compose(title string, plots []*plot.Plot, width, height vg.Length) image.Image {
	canvas := vgimg.New(width, height)
	dc := draw.New(canvas)

	if title != "" {
		sty := plot.New().Title.TextStyle
		sty.XAlign = text.XCenter
		sty.YAlign = text.YTop
		sty.Font.Size = vg.Points(16)
		dc.FillText(sty, vg.Point{X: dc.Center().X, Y: dc.Max.Y - figurePad}, title)
		dc.Max.Y -= sty.Height(title) + 2*figurePad
	}

	tiles := draw.Tiles{
		Rows:      1,
		Cols:      len(plots),
		PadX:      figurePad,
		PadTop:    figurePad,
		PadBottom: figurePad,
		PadLeft:   figurePad,
		PadRight:  figurePad,
	}
	canvases := plot.Align([][]*plot.Plot{plots}, tiles, dc)
	for i, p := range plots {
		p.Draw(canvases[0][i])
	}
	return canvas.Image()
}
