// Package charts renders training curves of a run as PNG line charts.
package charts

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/fformation/dmonkit/pkg/metrics"
)

// Output file names written next to metrics.json
const (
	AccuracyFile = "results.png"
	LossFile     = "losses.png"
)

// Chart titles
const (
	AccuracyTitle = "Grouping Accuracy over Training Epochs"
	LossTitle     = "Network Losses over Training Epochs"
)

// Size is the figure size of both charts
type Size struct {
	Width  vg.Length
	Height vg.Length
}

// DefaultSize is 19.2in x 10.8in
var DefaultSize = Size{Width: 19.2 * vg.Inch, Height: 10.8 * vg.Inch}

// Line is one named series on a chart
type Line struct {
	Label  string
	Series metrics.Series
}

// LineChart draws the lines onto a new plot with a legend
func LineChart(title string, lines ...Line) (*plot.Plot, error) {
	p := plot.New()
	p.Title.Text = title
	p.X.Label.Text = "Step"
	p.Legend.Top = true

	var args []interface{}
	for _, l := range lines {
		if err := l.Series.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", l.Label, err)
		}
		args = append(args, l.Label, seriesXYs(l.Series))
	}
	if err := plotutil.AddLines(p, args...); err != nil {
		return nil, fmt.Errorf("failed to add lines: %w", err)
	}
	return p, nil
}

// PlotCurves writes the accuracy and loss charts for curves into dir
func PlotCurves(curves metrics.Curves, dir string, size Size) (accPath, lossPath string, err error) {
	acc, err := LineChart(AccuracyTitle,
		Line{Label: "T=2/3", Series: curves.CardinalityF1},
		Line{Label: "T=1", Series: curves.FullF1},
	)
	if err != nil {
		return "", "", err
	}
	accPath = filepath.Join(dir, AccuracyFile)
	if err := acc.Save(size.Width, size.Height, accPath); err != nil {
		return "", "", fmt.Errorf("failed to save accuracy chart: %w", err)
	}

	loss, err := LineChart(LossTitle,
		Line{Label: metrics.SpectralLoss, Series: curves.SpectralLoss},
		Line{Label: metrics.CollapseLoss, Series: curves.CollapseLoss},
	)
	if err != nil {
		return "", "", err
	}
	lossPath = filepath.Join(dir, LossFile)
	if err := loss.Save(size.Width, size.Height, lossPath); err != nil {
		return "", "", fmt.Errorf("failed to save loss chart: %w", err)
	}

	return accPath, lossPath, nil
}

// PlotExperiment reads <dir>/metrics.json and writes results.png and losses.png into dir
func PlotExperiment(dir string) (accPath, lossPath string, err error) {
	rec, err := metrics.Load(filepath.Join(dir, metrics.File))
	if err != nil {
		return "", "", err
	}
	curves, err := rec.Curves()
	if err != nil {
		return "", "", err
	}
	return PlotCurves(curves, dir, DefaultSize)
}

func seriesXYs(s metrics.Series) plotter.XYs {
	xys := make(plotter.XYs, len(s.Values))
	for i := range s.Values {
		xys[i].X = s.Steps[i]
		xys[i].Y = s.Values[i]
	}
	return xys
}
