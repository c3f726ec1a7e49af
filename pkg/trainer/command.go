package trainer

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fformation/dmonkit/pkg/hparams"
)

// configKeys are interpolated as common.<key>=<value>, in this order
var configKeys = []string{
	"architecture",
	"collapse_regularization",
	"dropout_rate",
	"n_clusters",
}

// frustumKeys follow n_epochs and the learning rate
var frustumKeys = []string{
	"frustum_length",
	"frustum_angle",
	"edge_cutoff",
}

// Command is one trainer invocation
type Command struct {
	Name string
	Args []string
}

// String renders the command as a single shell-like line
func (c Command) String() string {
	return strings.Join(append([]string{c.Name}, c.Args...), " ")
}

// FoldDatasetPath returns <dataset>_fold<k>/train
func FoldDatasetPath(dataset string, fold int) string {
	return filepath.Join(fmt.Sprintf("%s_fold%d", dataset, fold), "train")
}

// ExperimentDir returns experiments_<basename(dataset)>_folds
func ExperimentDir(dataset string) string {
	return fmt.Sprintf("experiments_%s_folds", filepath.Base(dataset))
}

// BuildCommand constructs the trainer command for one fold. Every configuration
// value is rendered as a Python literal; a missing key fails with hparams.ErrMissingKey.
func BuildCommand(opts Options, cfg *hparams.Config, experimentDir, datasetPath string) (Command, error) {
	args := []string{opts.Script, "-F", experimentDir, "with"}

	for _, key := range configKeys {
		v, err := cfg.Get(key)
		if err != nil {
			return Command{}, err
		}
		args = append(args, fmt.Sprintf("common.%s=%s", key, v.Python()))
	}

	args = append(args, fmt.Sprintf("n_epochs=%d", opts.Epochs))

	lr, err := cfg.Get("learning_rate")
	if err != nil {
		return Command{}, err
	}
	args = append(args, "common.learning_rate="+lr.Python())

	for _, key := range frustumKeys {
		v, err := cfg.Get(key)
		if err != nil {
			return Command{}, err
		}
		args = append(args, fmt.Sprintf("common.%s=%s", key, v.Python()))
	}

	for _, flag := range opts.Flags {
		args = append(args, fmt.Sprintf("common.%s=%s", flag.Name, hparams.BoolValue(flag.Value).Python()))
	}

	args = append(args,
		fmt.Sprintf("common.total_frames=%q", opts.TotalFrames),
		"common.dataset_path="+datasetPath,
	)

	return Command{Name: opts.Python, Args: args}, nil
}
