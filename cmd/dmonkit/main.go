package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"text/tabwriter"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"

	"github.com/fformation/dmonkit"
	"github.com/fformation/dmonkit/internal/config"
	"github.com/fformation/dmonkit/internal/log"
	"github.com/fformation/dmonkit/internal/utils"
	"github.com/fformation/dmonkit/pkg/frames"
	"github.com/fformation/dmonkit/pkg/hparams"
	"github.com/fformation/dmonkit/pkg/ledger"
	"github.com/fformation/dmonkit/pkg/render"
	"github.com/fformation/dmonkit/pkg/scene"
	"github.com/fformation/dmonkit/pkg/trainer"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const usage = `usage: dmonkit [-config file] <command> [flags]

commands:
  train-folds  retrain a configuration on every cross-validation fold
  best-config  print the configuration of the best run in an experiments directory
  plot         write accuracy and loss charts for a run
  summary      aggregate the best scores of every run in an experiments directory
  render       render camera, ground truth and prediction panels for scenes
  render-gt    render the ground-truth grouping of a scene
  toy          write and render the toy frustum scene
  runs         list dispatched folds recorded in the ledger
`

type app struct {
	cfg    *config.Config
	logger *logrus.Logger
	kit    *dmonkit.Toolkit
}

func main() {
	global := flag.NewFlagSet("dmonkit", flag.ExitOnError)
	configPath := global.String("config", config.GetConfigPath(), "configuration file")
	logLevel := global.String("log-level", "", "log level override")
	global.Usage = func() { fmt.Fprint(os.Stderr, usage) }
	global.Parse(os.Args[1:])

	if global.NArg() == 0 {
		global.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if *logLevel != "" {
		cfg.Log.Level = *logLevel
	}

	logger, err := log.NewLogger(log.Options{Level: cfg.Log.Level, File: cfg.Log.File})
	if err != nil {
		fmt.Fprintf(os.Stderr, "log: %v\n", err)
		os.Exit(1)
	}

	a := &app{cfg: cfg, logger: logger, kit: newToolkit(cfg, logger)}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cmd, args := global.Arg(0), global.Args()[1:]
	commands := map[string]func(context.Context, []string) error{
		"train-folds": a.trainFolds,
		"best-config": a.bestConfig,
		"plot":        a.plot,
		"summary":     a.summary,
		"render":      a.render,
		"render-gt":   a.renderGT,
		"toy":         a.toy,
		"runs":        a.runs,
	}
	run, ok := commands[cmd]
	if !ok {
		global.Usage()
		logger.Fatalf("unknown command %q", cmd)
	}
	if err := run(ctx, args); err != nil {
		logger.WithError(err).Fatalf("%s failed", cmd)
	}
}

func newToolkit(cfg *config.Config, logger *logrus.Logger) *dmonkit.Toolkit {
	topts := trainer.DefaultOptions()
	topts.Python = cfg.Trainer.Python
	topts.Script = cfg.Trainer.Script
	topts.Epochs = cfg.Trainer.Epochs
	topts.Folds = cfg.Trainer.Folds
	topts.TotalFrames = cfg.Trainer.TotalFrames

	ropts := render.DefaultOptions()
	ropts.FrustumLength = cfg.Render.FrustumLength
	ropts.FrustumAngle = cfg.Render.FrustumAngle
	ropts.UseBodyOrientation = cfg.Render.UseBodyOrientation
	ropts.SkipMissingFrames = cfg.Render.SkipMissingFrames
	ropts.PredictionMarkers = cfg.Render.PredictionMarkers

	kit := dmonkit.NewWithConfig(topts, ropts)
	kit.SetLogger(logger)
	kit.SetFFmpeg(cfg.Render.FFmpeg)
	kit.SetIndexFile(cfg.Render.IndexFile)
	if cfg.Trainer.WorkDir != "" {
		runner := trainer.NewExecRunner()
		runner.Dir = cfg.Trainer.WorkDir
		kit.SetRunner(runner)
	}
	return kit
}

func (a *app) trainFolds(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("train-folds", flag.ExitOnError)
	dataset := fs.String("dataset", filepath.Join("data", "salsa_cpp"), "base dataset path; folds live in <dataset>_fold<k>/train")
	runDir := fs.String("run", filepath.Join("experiments_salsa_cpp_folds", "1"), "run directory holding config.json")
	experiments := fs.String("best-of", "", "pick the best run of this experiments directory instead of -run")
	dryRun := fs.Bool("dry-run", false, "print the trainer commands without running them")
	noLedger := fs.Bool("no-ledger", false, "do not record folds in the ledger")
	fs.Parse(args)

	var cfg *hparams.Config
	var err error
	if *experiments != "" {
		cfg, _, err = a.kit.BestConfig(*experiments)
	} else {
		cfg, err = a.kit.LoadConfig(*runDir)
	}
	if err != nil {
		return err
	}

	if *dryRun {
		a.kit.SetRunner(trainer.DryRunner{Out: os.Stdout})
	} else {
		a.kit.SetProgress(os.Stderr)
		if !*noLedger && a.cfg.Ledger.Path != "" {
			l, err := ledger.Open(a.cfg.Ledger.Path)
			if err != nil {
				return err
			}
			defer l.Close()
			a.kit.SetRecorder(l)
		}
	}

	runs, err := a.kit.TrainFolds(ctx, cfg, *dataset)
	if err != nil {
		return err
	}

	failed := 0
	for _, run := range runs {
		if run.Err != nil {
			failed++
		}
	}
	a.logger.WithFields(log.Fields{"folds": len(runs), "failed": failed}).Info("fold training finished")
	return nil
}

func (a *app) bestConfig(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("best-config", flag.ExitOnError)
	experiments := fs.String("experiments", "experiments", "experiments directory")
	fs.Parse(args)

	cfg, best, err := a.kit.BestConfig(*experiments)
	if err != nil {
		return err
	}
	fmt.Printf("best run: %s (T=1 F1 %.4f at step %.0f, T=2/3 F1 %.4f)\n", best.Dir, best.BestFull, best.BestFullStep, best.BestCard)

	out, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func (a *app) plot(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("plot", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() == 0 {
		return fmt.Errorf("usage: dmonkit plot <run-dir>...")
	}

	for _, dir := range fs.Args() {
		acc, loss, err := a.kit.PlotExperiment(dir)
		if err != nil {
			return fmt.Errorf("%s: %w", dir, err)
		}
		a.logger.WithFields(log.Fields{"accuracy": acc, "losses": loss}).Info("wrote charts")
	}
	return nil
}

func (a *app) summary(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("summary", flag.ExitOnError)
	experiments := fs.String("experiments", "experiments_salsa_cpp_folds", "experiments directory")
	fs.Parse(args)

	s, runs, err := a.kit.SummarizeFolds(*experiments)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tT=1 F1\tSTEP\tT=2/3 F1")
	for _, r := range runs {
		fmt.Fprintf(w, "%s\t%.4f\t%.0f\t%.4f\n", filepath.Base(r.Dir), r.BestFull, r.BestFullStep, r.BestCard)
	}
	w.Flush()
	fmt.Printf("\n%d runs  T=1 F1 %.4f ± %.4f  T=2/3 F1 %.4f ± %.4f\n",
		s.Runs, s.FullMean, s.FullStdDev, s.CardMean, s.CardStdDev)
	return nil
}

func (a *app) frameSource(video, stills string) (frames.Source, error) {
	switch {
	case video != "" && stills != "":
		return nil, fmt.Errorf("use either -video or -stills")
	case video != "":
		return a.kit.VideoSource(video), nil
	case stills != "":
		return a.kit.StillSource(stills), nil
	}
	return nil, nil
}

func (a *app) render(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	scenePath := fs.String("scene", "", "scene JSON file or directory of scene files")
	predsPath := fs.String("predictions", "", "predicted labels: a JSON array for one scene, or a directory of <frame>.json arrays")
	video := fs.String("video", "", "camera video file")
	stills := fs.String("stills", "", "camera still-image directory with an index file")
	out := fs.String("out", "vis", "output directory")
	title := fs.String("title", "", "figure title; %s is replaced by the frame name")
	fs.Parse(args)

	if *scenePath == "" {
		return fmt.Errorf("-scene is required")
	}
	src, err := a.frameSource(*video, *stills)
	if err != nil {
		return err
	}

	files := []string{*scenePath}
	if utils.DirExists(*scenePath) {
		if files, err = utils.ListSceneFiles(*scenePath); err != nil {
			return err
		}
	}

	for _, file := range files {
		s, err := scene.Load(file)
		if err != nil {
			return err
		}
		frame := utils.FrameName(file)

		predictions, err := loadPredictions(*predsPath, frame)
		if err != nil {
			return err
		}

		path, err := a.kit.RenderComparison(ctx, s, src, predictions, strings.ReplaceAll(*title, "%s", frame), frame, *out)
		if err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		a.logger.WithField("path", path).Info("wrote comparison")
	}
	return nil
}

// loadPredictions reads a label array. A directory holds one <frame>.json per scene;
// a missing entry means no prediction panel for that frame.
func loadPredictions(path, frame string) ([]int, error) {
	if path == "" {
		return nil, nil
	}
	if utils.DirExists(path) {
		path = filepath.Join(path, frame+".json")
		if !utils.FileExists(path) {
			return nil, nil
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read predictions: %w", err)
	}
	var labels []int
	if err := json.Unmarshal(data, &labels); err != nil {
		return nil, fmt.Errorf("failed to parse predictions %s: %w", path, err)
	}
	return labels, nil
}

func (a *app) renderGT(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("render-gt", flag.ExitOnError)
	scenePath := fs.String("scene", "", "scene JSON file")
	out := fs.String("out", "ground_truth.png", "output PNG")
	title := fs.String("title", render.DefaultGTTitle, "figure title")
	fs.Parse(args)

	if *scenePath == "" {
		return fmt.Errorf("-scene is required")
	}
	s, err := scene.Load(*scenePath)
	if err != nil {
		return err
	}
	if err := a.kit.RenderGroundTruth(s, *title, *out); err != nil {
		return err
	}
	a.logger.WithField("path", *out).Info("wrote ground truth")
	return nil
}

func (a *app) toy(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("toy", flag.ExitOnError)
	out := fs.String("out", "toy", "output directory")
	fs.Parse(args)

	s := scene.ToyFrustums()
	if err := s.Save(filepath.Join(*out, "toy_frustums.json")); err != nil {
		return err
	}
	path := filepath.Join(*out, "toy_frustums.png")
	if err := a.kit.RenderGroundTruth(s, "Example Unconnected Frustums", path); err != nil {
		return err
	}
	a.logger.WithField("path", path).Info("wrote toy scene")
	return nil
}

func (a *app) runs(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ExitOnError)
	experiment := fs.String("experiment", "", "only list folds of this experiment directory")
	fs.Parse(args)

	l, err := ledger.Open(a.cfg.Ledger.Path)
	if err != nil {
		return err
	}
	defer l.Close()

	entries, err := l.List(ctx, *experiment)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "STARTED\tFOLD\tEXPERIMENT\tDURATION\tSTATUS")
	for _, e := range entries {
		status := "ok"
		if e.Failed() {
			status = e.Error
		}
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			e.StartedAt.Local().Format(time.DateTime), e.Fold, e.ExperimentDir, e.Duration.Round(time.Second), status)
	}
	return w.Flush()
}
