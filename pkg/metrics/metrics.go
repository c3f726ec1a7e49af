// Package metrics reads the metrics.json written by a training run and ranks runs
// by their grouping accuracy.
package metrics

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	jsoniter "github.com/json-iterator/go"
)

// File is the name of the metrics file inside a run directory
const File = "metrics.json"

// Series names written by the trainer
const (
	CardinalityF1 = "T=2/3 F1 Score"
	FullF1        = "T=1 F1 Score"
	SpectralLoss  = "Spectral Loss"
	CollapseLoss  = "Collapse Loss"
)

var (
	// ErrMissingSeries is returned when a named series is absent from a record
	ErrMissingSeries = errors.New("missing metrics series")
	// ErrNoRuns is returned when no run directory holds usable metrics
	ErrNoRuns = errors.New("no runs with metrics found")
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Series is a parallel pair of training steps and values
type Series struct {
	Values []float64 `json:"values"`
	Steps  []float64 `json:"steps"`
}

// Validate checks that steps and values line up
func (s Series) Validate() error {
	if len(s.Values) != len(s.Steps) {
		return fmt.Errorf("series has %d values but %d steps", len(s.Values), len(s.Steps))
	}
	return nil
}

// Max returns the largest value and its step. ok is false for an empty series.
func (s Series) Max() (value, step float64, ok bool) {
	for i, v := range s.Values {
		if !ok || v > value {
			value, ok = v, true
			if i < len(s.Steps) {
				step = s.Steps[i]
			}
		}
	}
	return value, step, ok
}

// Last returns the final value. ok is false for an empty series.
func (s Series) Last() (float64, bool) {
	if len(s.Values) == 0 {
		return 0, false
	}
	return s.Values[len(s.Values)-1], true
}

// Record is the content of a metrics file
type Record map[string]Series

// Load reads a metrics file. A directory is resolved to its metrics.json.
func Load(path string) (Record, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, File)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metrics file: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse metrics file %s: %w", path, err)
	}
	return rec, nil
}

// Series returns the named series or an error wrapping ErrMissingSeries
func (r Record) Series(name string) (Series, error) {
	s, ok := r[name]
	if !ok {
		return Series{}, fmt.Errorf("%w: %s", ErrMissingSeries, name)
	}
	if err := s.Validate(); err != nil {
		return Series{}, fmt.Errorf("%s: %w", name, err)
	}
	return s, nil
}

// Curves holds the four series the charts draw
type Curves struct {
	CardinalityF1 Series
	FullF1        Series
	SpectralLoss  Series
	CollapseLoss  Series
}

// Curves extracts every charted series; any missing one is an error
func (r Record) Curves() (Curves, error) {
	var c Curves
	targets := []struct {
		name string
		dst  *Series
	}{
		{CardinalityF1, &c.CardinalityF1},
		{FullF1, &c.FullF1},
		{SpectralLoss, &c.SpectralLoss},
		{CollapseLoss, &c.CollapseLoss},
	}
	for _, t := range targets {
		s, err := r.Series(t.name)
		if err != nil {
			return Curves{}, err
		}
		*t.dst = s
	}
	return c, nil
}
