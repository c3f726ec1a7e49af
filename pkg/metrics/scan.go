package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
)

// Run is a scored run directory
type Run struct {
	Dir          string
	BestFull     float64
	BestFullStep float64
	BestCard     float64
}

// ScanRuns scores every direct sub-directory of experimentsDir holding a metrics file.
// Runs that cannot be read are skipped with a warning. The result is sorted by
// descending full F1; ties keep directory order.
func ScanRuns(experimentsDir string, logger logrus.FieldLogger) ([]Run, error) {
	entries, err := os.ReadDir(experimentsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read experiments directory: %w", err)
	}

	var runs []Run
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		dir := filepath.Join(experimentsDir, entry.Name())
		if _, err := os.Stat(filepath.Join(dir, File)); err != nil {
			continue
		}

		run, err := scoreRun(dir)
		if err != nil {
			if logger != nil {
				logger.WithError(err).WithField("run", dir).Warn("skipping run")
			}
			continue
		}
		runs = append(runs, run)
	}

	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].BestFull > runs[j].BestFull
	})
	return runs, nil
}

// FindBestRun returns the run with the highest full-overlap F1
func FindBestRun(experimentsDir string, logger logrus.FieldLogger) (Run, error) {
	runs, err := ScanRuns(experimentsDir, logger)
	if err != nil {
		return Run{}, err
	}
	if len(runs) == 0 {
		return Run{}, fmt.Errorf("%w in %s", ErrNoRuns, experimentsDir)
	}
	return runs[0], nil
}

func scoreRun(dir string) (Run, error) {
	rec, err := Load(dir)
	if err != nil {
		return Run{}, err
	}
	full, err := rec.Series(FullF1)
	if err != nil {
		return Run{}, err
	}
	best, step, ok := full.Max()
	if !ok {
		return Run{}, fmt.Errorf("%s is empty", FullF1)
	}

	run := Run{Dir: dir, BestFull: best, BestFullStep: step}
	if card, err := rec.Series(CardinalityF1); err == nil {
		run.BestCard, _, _ = card.Max()
	}
	return run, nil
}

// Summary aggregates the best scores of several runs, typically the folds of one
// cross-validation experiment
type Summary struct {
	Runs       int
	FullMean   float64
	FullStdDev float64
	CardMean   float64
	CardStdDev float64
}

// Summarize computes the mean and sample standard deviation of the best scores.
// The deviation is zero for a single run.
func Summarize(runs []Run) (Summary, error) {
	if len(runs) == 0 {
		return Summary{}, ErrNoRuns
	}

	full := make([]float64, len(runs))
	card := make([]float64, len(runs))
	for i, r := range runs {
		full[i] = r.BestFull
		card[i] = r.BestCard
	}

	s := Summary{Runs: len(runs)}
	s.FullMean = stat.Mean(full, nil)
	s.CardMean = stat.Mean(card, nil)
	if len(runs) > 1 {
		s.FullStdDev = stat.StdDev(full, nil)
		s.CardStdDev = stat.StdDev(card, nil)
	}
	return s, nil
}
