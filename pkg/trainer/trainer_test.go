package trainer

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fformation/dmonkit/pkg/hparams"
)

func testConfig() *hparams.Config {
	return hparams.New(map[string]hparams.Value{
		"architecture":            hparams.StringValue("gcn"),
		"dropout_rate":            hparams.FloatValue(0.5),
		"collapse_regularization": hparams.IntValue(1),
		"n_clusters":              hparams.IntValue(8),
		"learning_rate":           hparams.FloatValue(0.00001),
		"frustum_length":          hparams.FloatValue(1),
		"frustum_angle":           hparams.FloatValue(1.0471975511965976),
		"edge_cutoff":             hparams.FloatValue(0.05),
	})
}

// fakeRunner records commands and fails the folds listed in fail
type fakeRunner struct {
	cmds []Command
	fail map[int]bool
}

func (f *fakeRunner) Run(_ context.Context, cmd Command) error {
	f.cmds = append(f.cmds, cmd)
	if f.fail[len(f.cmds)] {
		return errors.New("exit status 1")
	}
	return nil
}

type memoryRecorder struct {
	runs []FoldRun
}

func (m *memoryRecorder) Record(_ context.Context, run FoldRun) error {
	m.runs = append(m.runs, run)
	return nil
}

func TestBuildCommand(t *testing.T) {
	opts := DefaultOptions()
	cmd, err := BuildCommand(opts, testConfig(), "experiments_salsa_cpp_folds", FoldDatasetPath("data/salsa_cpp", 3))
	if err != nil {
		t.Fatalf("BuildCommand failed: %v", err)
	}

	if cmd.Name != "python" {
		t.Errorf("Expected python, got %s", cmd.Name)
	}

	want := []string{
		"src/train.py", "-F", "experiments_salsa_cpp_folds", "with",
		"common.architecture=gcn",
		"common.collapse_regularization=1",
		"common.dropout_rate=0.5",
		"common.n_clusters=8",
		"n_epochs=250",
		"common.learning_rate=1e-05",
		"common.frustum_length=1.0",
		"common.frustum_angle=1.0471975511965976",
		"common.edge_cutoff=0.05",
		"common.features_as_pos=True",
		`common.total_frames="max"`,
		"common.dataset_path=" + filepath.Join("data/salsa_cpp_fold3", "train"),
	}
	if len(cmd.Args) != len(want) {
		t.Fatalf("Expected %d args, got %d: %v", len(want), len(cmd.Args), cmd.Args)
	}
	for i := range want {
		if cmd.Args[i] != want[i] {
			t.Errorf("Arg %d: expected %q, got %q", i, want[i], cmd.Args[i])
		}
	}
}

func TestBuildCommandKeysAppearOnce(t *testing.T) {
	cmd, err := BuildCommand(DefaultOptions(), testConfig(), "exp", "data")
	if err != nil {
		t.Fatal(err)
	}

	seen := map[string]int{}
	for _, arg := range cmd.Args {
		if key, _, ok := strings.Cut(arg, "="); ok {
			seen[key]++
		}
	}
	for key, n := range seen {
		if n != 1 {
			t.Errorf("Key %s appears %d times", key, n)
		}
	}
	for _, key := range hparams.Required {
		if seen["common."+key] != 1 {
			t.Errorf("Required key %s missing from command", key)
		}
	}
}

func TestBuildCommandMissingKey(t *testing.T) {
	cfg := hparams.New(map[string]hparams.Value{"architecture": hparams.StringValue("gcn")})
	_, err := BuildCommand(DefaultOptions(), cfg, "exp", "data")
	if !errors.Is(err, hparams.ErrMissingKey) {
		t.Errorf("Expected ErrMissingKey, got %v", err)
	}
}

func TestPaths(t *testing.T) {
	if got := ExperimentDir(filepath.Join("data", "salsa_cpp")); got != "experiments_salsa_cpp_folds" {
		t.Errorf("Unexpected experiment dir %s", got)
	}
	if got := FoldDatasetPath("data/salsa_ps", 1); got != filepath.Join("data/salsa_ps_fold1", "train") {
		t.Errorf("Unexpected fold path %s", got)
	}
}

func TestTrainFoldsRunsEveryFold(t *testing.T) {
	runner := &fakeRunner{fail: map[int]bool{2: true}}
	recorder := &memoryRecorder{}
	var progress bytes.Buffer

	d := NewDispatcher(DefaultOptions(), runner, WithRecorder(recorder), WithProgress(&progress))
	runs, err := d.TrainFolds(context.Background(), testConfig(), "data/cocktail_party")
	if err != nil {
		t.Fatalf("TrainFolds failed: %v", err)
	}

	if len(runner.cmds) != 5 {
		t.Fatalf("Expected 5 trainer runs, got %d", len(runner.cmds))
	}
	if len(runs) != 5 || len(recorder.runs) != 5 {
		t.Fatalf("Expected 5 fold results, got %d (recorded %d)", len(runs), len(recorder.runs))
	}

	for i, run := range runs {
		if run.Fold != i+1 {
			t.Errorf("Expected fold %d, got %d", i+1, run.Fold)
		}
		if run.ExperimentDir != "experiments_cocktail_party_folds" {
			t.Errorf("Unexpected experiment dir %s", run.ExperimentDir)
		}
		if (run.Err != nil) != (i == 1) {
			t.Errorf("Fold %d: unexpected error state %v", run.Fold, run.Err)
		}
	}
}

func TestTrainFoldsCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := &fakeRunner{}
	d := NewDispatcher(DefaultOptions(), runner)
	_, err := d.TrainFolds(ctx, testConfig(), "data/salsa_cpp")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled, got %v", err)
	}
	if len(runner.cmds) != 0 {
		t.Errorf("Expected no runs after cancel, got %d", len(runner.cmds))
	}
}

func TestDryRunner(t *testing.T) {
	var out bytes.Buffer
	d := NewDispatcher(DefaultOptions(), DryRunner{Out: &out})
	if _, err := d.TrainFolds(context.Background(), testConfig(), "data/salsa_cpp"); err != nil {
		t.Fatal(err)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 5 {
		t.Fatalf("Expected 5 printed commands, got %d", len(lines))
	}
	if !strings.HasPrefix(lines[0], "python src/train.py -F experiments_salsa_cpp_folds with ") {
		t.Errorf("Unexpected command line: %s", lines[0])
	}
}
