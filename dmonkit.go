// Package dmonkit orchestrates cross-validation training of DMoN group-detection
// models and visualizes their results.
//
// The package wraps an external trainer: it dispatches one training run per fold
// with the best hyperparameters found so far, reads back the metrics each run
// writes, and renders diagnostic images.
//
// Basic usage:
//
//	package main
//
//	import (
//		"context"
//		"log"
//
//		"github.com/fformation/dmonkit"
//	)
//
//	func main() {
//		kit := dmonkit.New()
//
//		// Retrain the best configuration on every fold of the dataset
//		runs, err := kit.TrainBestFolds(context.Background(), "experiments_salsa_cpp", "data/salsa_cpp")
//		if err != nil {
//			log.Fatal(err)
//		}
//		for _, run := range runs {
//			log.Printf("fold %d: %v", run.Fold, run.Err)
//		}
//
//		// Chart one run
//		if _, _, err := kit.PlotExperiment("experiments_salsa_cpp_folds/1"); err != nil {
//			log.Fatal(err)
//		}
//	}
//
// The package consists of these components:
//
// 1. Hyperparameters (pkg/hparams): configuration loading and Python literal formatting
// 2. Trainer (pkg/trainer): fold command construction and dispatch
// 3. Metrics (pkg/metrics) and charts (pkg/charts): run ranking and training curves
// 4. Scene (pkg/scene), frames (pkg/frames) and render (pkg/render): group visualization
// 5. Ledger (pkg/ledger): a SQLite record of dispatched folds
package dmonkit

import (
	"context"
	"fmt"
	"io"

	"github.com/sirupsen/logrus"

	"github.com/fformation/dmonkit/pkg/charts"
	"github.com/fformation/dmonkit/pkg/frames"
	"github.com/fformation/dmonkit/pkg/hparams"
	"github.com/fformation/dmonkit/pkg/metrics"
	"github.com/fformation/dmonkit/pkg/render"
	"github.com/fformation/dmonkit/pkg/scene"
	"github.com/fformation/dmonkit/pkg/trainer"
)

// Version of the toolkit
const Version = "1.0.0"

// Toolkit provides a high-level interface over the trainer, metrics and renderer
type Toolkit struct {
	trainerOpts trainer.Options
	renderOpts  render.Options
	runner      trainer.Runner
	recorder    trainer.Recorder
	progress    io.Writer
	logger      logrus.FieldLogger
	indexes     *frames.IndexCache
	ffmpeg      string
	indexFile   string
}

// New creates a Toolkit with default configuration
func New() *Toolkit {
	return NewWithConfig(trainer.DefaultOptions(), render.DefaultOptions())
}

// NewWithConfig creates a Toolkit with custom trainer and render options
func NewWithConfig(trainerOpts trainer.Options, renderOpts render.Options) *Toolkit {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Toolkit{
		trainerOpts: trainerOpts,
		renderOpts:  renderOpts,
		logger:      l,
		indexes:     frames.NewIndexCache(),
		ffmpeg:      "ffmpeg",
		indexFile:   frames.DefaultIndexFile,
	}
}

// SetLogger sets the logger used by every component
func (k *Toolkit) SetLogger(l logrus.FieldLogger) { k.logger = l }

// SetRunner replaces the process runner, e.g. with trainer.DryRunner
func (k *Toolkit) SetRunner(r trainer.Runner) { k.runner = r }

// SetRecorder stores every dispatched fold through r
func (k *Toolkit) SetRecorder(r trainer.Recorder) { k.recorder = r }

// SetProgress draws fold progress on w
func (k *Toolkit) SetProgress(w io.Writer) { k.progress = w }

// SetFFmpeg sets the ffmpeg binary used by video sources
func (k *Toolkit) SetFFmpeg(bin string) { k.ffmpeg = bin }

// SetIndexFile sets the index file name of still-image directories
func (k *Toolkit) SetIndexFile(name string) { k.indexFile = name }

// LoadConfig loads the configuration saved in a run directory
func (k *Toolkit) LoadConfig(runDir string) (*hparams.Config, error) {
	return hparams.Load(runDir)
}

// BestConfig selects the run with the highest full-overlap F1 under experimentsDir and
// loads its configuration
func (k *Toolkit) BestConfig(experimentsDir string) (*hparams.Config, metrics.Run, error) {
	best, err := metrics.FindBestRun(experimentsDir, k.logger)
	if err != nil {
		return nil, metrics.Run{}, err
	}
	cfg, err := hparams.Load(best.Dir)
	if err != nil {
		return nil, metrics.Run{}, fmt.Errorf("failed to load best configuration: %w", err)
	}
	k.logger.WithFields(logrus.Fields{"run": best.Dir, "f1": best.BestFull}).Info("selected best run")
	return cfg, best, nil
}

// Dispatcher returns a fold dispatcher wired to the toolkit's runner, recorder and logger
func (k *Toolkit) Dispatcher() *trainer.Dispatcher {
	options := []trainer.Option{trainer.WithLogger(k.logger)}
	if k.recorder != nil {
		options = append(options, trainer.WithRecorder(k.recorder))
	}
	if k.progress != nil {
		options = append(options, trainer.WithProgress(k.progress))
	}
	return trainer.NewDispatcher(k.trainerOpts, k.runner, options...)
}

// TrainFolds runs every cross-validation fold of dataset with cfg. A configuration that
// fails validation is still dispatched; the trainer has the final say.
func (k *Toolkit) TrainFolds(ctx context.Context, cfg *hparams.Config, dataset string) ([]trainer.FoldRun, error) {
	if err := cfg.Validate(); err != nil {
		k.logger.WithError(err).Warn("hyperparameters look suspicious")
	}
	return k.Dispatcher().TrainFolds(ctx, cfg, dataset)
}

// TrainBestFolds retrains the best configuration under experimentsDir on every fold
func (k *Toolkit) TrainBestFolds(ctx context.Context, experimentsDir, dataset string) ([]trainer.FoldRun, error) {
	cfg, _, err := k.BestConfig(experimentsDir)
	if err != nil {
		return nil, err
	}
	return k.TrainFolds(ctx, cfg, dataset)
}

// PlotExperiment writes results.png and losses.png for a run directory
func (k *Toolkit) PlotExperiment(runDir string) (accPath, lossPath string, err error) {
	return charts.PlotExperiment(runDir)
}

// SummarizeFolds aggregates the best scores of every run under experimentDir
func (k *Toolkit) SummarizeFolds(experimentDir string) (metrics.Summary, []metrics.Run, error) {
	runs, err := metrics.ScanRuns(experimentDir, k.logger)
	if err != nil {
		return metrics.Summary{}, nil, err
	}
	summary, err := metrics.Summarize(runs)
	if err != nil {
		return metrics.Summary{}, nil, fmt.Errorf("%s: %w", experimentDir, err)
	}
	return summary, runs, nil
}

// VideoSource returns a frame source seeking into a video file
func (k *Toolkit) VideoSource(path string) frames.Source {
	return &frames.VideoSource{Path: path, FFmpeg: k.ffmpeg}
}

// StillSource returns a frame source over an indexed still-image directory. Indexes
// are parsed once per directory for the lifetime of the toolkit.
func (k *Toolkit) StillSource(dir string) frames.Source {
	src := frames.NewStillSource(dir, k.indexes)
	src.IndexFile = k.indexFile
	return src
}

// Renderer returns a scene renderer
func (k *Toolkit) Renderer() *render.Renderer {
	return render.New(k.renderOpts, k.logger)
}

// RenderComparison writes <saveDir>/dmon_<frameNo>.png comparing ground truth and
// predictions. src and predictions may be nil.
func (k *Toolkit) RenderComparison(ctx context.Context, s *scene.Graph, src frames.Source, predictions []int, title, frameNo, saveDir string) (string, error) {
	return k.Renderer().SaveComparison(ctx, s, src, predictions, title, frameNo, saveDir)
}

// RenderGroundTruth writes the ground-truth graph of s to path
func (k *Toolkit) RenderGroundTruth(s *scene.Graph, title, path string) error {
	return k.Renderer().SaveGroundTruth(s, title, path)
}

// GetVersion returns the library version
func GetVersion() string {
	return Version
}
