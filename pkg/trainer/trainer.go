// Package trainer dispatches cross-validation training runs to the external trainer.
//
// For each fold the dispatcher builds a command line from the best known
// hyperparameters and runs it to completion. The trainer's own output is not
// captured and a failed fold is never retried; the remaining folds still run.
package trainer

import (
	"context"
	"io"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/sirupsen/logrus"

	"github.com/fformation/dmonkit/pkg/hparams"
)

// Flag is a boolean trainer option passed as common.<name>=True|False
type Flag struct {
	Name  string
	Value bool
}

// Options controls how trainer commands are built
type Options struct {
	Python      string
	Script      string
	Epochs      int
	Folds       int
	TotalFrames string
	Flags       []Flag
}

// DefaultOptions returns the options used for the published fold runs
func DefaultOptions() Options {
	return Options{
		Python:      "python",
		Script:      "src/train.py",
		Epochs:      250,
		Folds:       5,
		TotalFrames: "max",
		Flags:       []Flag{{Name: "features_as_pos", Value: true}},
	}
}

// FoldRun describes one dispatched fold
type FoldRun struct {
	Fold          int
	ExperimentDir string
	DatasetPath   string
	Command       Command
	Started       time.Time
	Duration      time.Duration
	Err           error
}

// Recorder receives every dispatched fold, successful or not
type Recorder interface {
	Record(ctx context.Context, run FoldRun) error
}

// Dispatcher runs training folds one after another
type Dispatcher struct {
	opts     Options
	runner   Runner
	recorder Recorder
	logger   logrus.FieldLogger
	progress io.Writer
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithRecorder stores each fold run through r
func WithRecorder(r Recorder) Option {
	return func(d *Dispatcher) { d.recorder = r }
}

// WithLogger sets the logger
func WithLogger(l logrus.FieldLogger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithProgress draws a fold progress bar on w
func WithProgress(w io.Writer) Option {
	return func(d *Dispatcher) { d.progress = w }
}

// NewDispatcher creates a dispatcher. A nil runner runs the trainer as a child process.
func NewDispatcher(opts Options, runner Runner, options ...Option) *Dispatcher {
	if runner == nil {
		runner = NewExecRunner()
	}
	d := &Dispatcher{
		opts:   opts,
		runner: runner,
		logger: discardLogger(),
	}
	for _, o := range options {
		o(d)
	}
	return d
}

// Options returns the dispatcher options
func (d *Dispatcher) Options() Options {
	return d.opts
}

// Commands builds the command of every fold without running anything
func (d *Dispatcher) Commands(cfg *hparams.Config, dataset string) ([]Command, error) {
	experimentDir := ExperimentDir(dataset)
	cmds := make([]Command, 0, d.opts.Folds)
	for fold := 1; fold <= d.opts.Folds; fold++ {
		cmd, err := BuildCommand(d.opts, cfg, experimentDir, FoldDatasetPath(dataset, fold))
		if err != nil {
			return nil, err
		}
		cmds = append(cmds, cmd)
	}
	return cmds, nil
}

// TrainFolds runs every fold against dataset. It fails only when a command cannot be
// built or the context is cancelled; individual trainer failures are reported in the
// returned runs.
func (d *Dispatcher) TrainFolds(ctx context.Context, cfg *hparams.Config, dataset string) ([]FoldRun, error) {
	cmds, err := d.Commands(cfg, dataset)
	if err != nil {
		return nil, err
	}

	var bar *pb.ProgressBar
	if d.progress != nil {
		bar = pb.New(len(cmds)).SetWriter(d.progress).Start()
		defer bar.Finish()
	}

	experimentDir := ExperimentDir(dataset)
	runs := make([]FoldRun, 0, len(cmds))
	for i, cmd := range cmds {
		if err := ctx.Err(); err != nil {
			return runs, err
		}

		run := FoldRun{
			Fold:          i + 1,
			ExperimentDir: experimentDir,
			DatasetPath:   FoldDatasetPath(dataset, i+1),
			Command:       cmd,
			Started:       time.Now(),
		}
		log := d.logger.WithFields(logrus.Fields{"fold": run.Fold, "dataset": run.DatasetPath})
		log.Info("starting fold")

		run.Err = d.runner.Run(ctx, cmd)
		run.Duration = time.Since(run.Started)
		if run.Err != nil {
			log.WithError(run.Err).Warn("fold failed")
		} else {
			log.WithField("duration", run.Duration.Round(time.Second)).Info("fold finished")
		}

		if d.recorder != nil {
			if err := d.recorder.Record(ctx, run); err != nil {
				log.WithError(err).Warn("failed to record fold")
			}
		}

		runs = append(runs, run)
		if bar != nil {
			bar.Increment()
		}
	}
	return runs, nil
}

func discardLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}
