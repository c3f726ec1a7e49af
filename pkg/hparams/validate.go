package hparams

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Required lists the keys the fold dispatcher reads from a configuration
var Required = []string{
	"architecture",
	"dropout_rate",
	"collapse_regularization",
	"n_clusters",
	"learning_rate",
	"frustum_length",
	"frustum_angle",
	"edge_cutoff",
}

// Model is the typed view of the keys a fold run needs
type Model struct {
	Architecture           string  `validate:"required"`
	DropoutRate            float64 `validate:"gte=0,lte=1"`
	CollapseRegularization float64 `validate:"gte=0"`
	NClusters              int64   `validate:"gte=1"`
	LearningRate           float64 `validate:"gt=0"`
	FrustumLength          float64 `validate:"gt=0"`
	FrustumAngle           float64 `validate:"gt=0"`
	EdgeCutoff             float64 `validate:"gte=0"`
}

var validate = validator.New()

// Model binds the required keys into a Model
func (c *Config) Model() (Model, error) {
	var m Model
	for _, key := range Required {
		if _, err := c.Get(key); err != nil {
			return Model{}, err
		}
	}

	arch, _ := c.Get("architecture")
	m.Architecture = arch.Python()

	floats := []struct {
		key string
		dst *float64
	}{
		{"dropout_rate", &m.DropoutRate},
		{"collapse_regularization", &m.CollapseRegularization},
		{"learning_rate", &m.LearningRate},
		{"frustum_length", &m.FrustumLength},
		{"frustum_angle", &m.FrustumAngle},
		{"edge_cutoff", &m.EdgeCutoff},
	}
	for _, f := range floats {
		v, _ := c.Get(f.key)
		x, err := v.Float()
		if err != nil {
			return Model{}, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = x
	}

	clusters, _ := c.Get("n_clusters")
	n, err := clusters.Int()
	if err != nil {
		return Model{}, fmt.Errorf("n_clusters: %w", err)
	}
	m.NClusters = n

	return m, nil
}

// Validate checks that every required key is present and in range
func (c *Config) Validate() error {
	m, err := c.Model()
	if err != nil {
		return err
	}
	if err := validate.Struct(m); err != nil {
		return fmt.Errorf("invalid hyperparameters: %w", err)
	}
	return nil
}
