// Package hparams loads the hyperparameter configuration saved by a training run.
//
// A configuration is a flat mapping from name to scalar. Run directories written by
// the trainer keep the model parameters under a "common" object; both layouts are
// accepted and flattened on load.
package hparams

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	jsoniter "github.com/json-iterator/go"
)

// ConfigFile is the name of the configuration file inside a run directory
const ConfigFile = "config.json"

// CommonKey is the object whose scalar keys override the top-level ones
const CommonKey = "common"

// ErrMissingKey is returned when a required configuration key is absent
var ErrMissingKey = errors.New("missing configuration key")

var json = jsoniter.Config{
	UseNumber:              true,
	EscapeHTML:             false,
	SortMapKeys:            true,
	ValidateJsonRawMessage: true,
}.Froze()

// Config is an immutable set of named scalar hyperparameters
type Config struct {
	values map[string]Value
}

// New builds a Config from already typed values
func New(values map[string]Value) *Config {
	c := &Config{values: make(map[string]Value, len(values))}
	for k, v := range values {
		c.values[k] = v
	}
	return c
}

// Load reads a configuration file. A directory is resolved to its config.json.
func Load(path string) (*Config, error) {
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		path = filepath.Join(path, ConfigFile)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return cfg, nil
}

// Decode parses a JSON configuration document
func Decode(r io.Reader) (*Config, error) {
	var doc map[string]interface{}
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	values := make(map[string]Value, len(doc))
	for k, raw := range doc {
		if k == CommonKey {
			continue
		}
		if v, ok := scalarOf(raw); ok {
			values[k] = v
		}
	}

	if common, ok := doc[CommonKey].(map[string]interface{}); ok {
		for k, raw := range common {
			if v, ok := scalarOf(raw); ok {
				values[k] = v
			}
		}
	}

	return &Config{values: values}, nil
}

// Get returns the named value or an error wrapping ErrMissingKey
func (c *Config) Get(name string) (Value, error) {
	v, ok := c.values[name]
	if !ok {
		return Value{}, fmt.Errorf("%w: %s", ErrMissingKey, name)
	}
	return v, nil
}

// Lookup returns the named value and whether it exists
func (c *Config) Lookup(name string) (Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Keys returns every key in sorted order
func (c *Config) Keys() []string {
	keys := make([]string, 0, len(c.values))
	for k := range c.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys
func (c *Config) Len() int {
	return len(c.values)
}

// MarshalJSON writes the configuration as a flat JSON object
func (c *Config) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, len(c.values))
	for k, v := range c.values {
		out[k] = v.Interface()
	}
	return json.Marshal(out)
}
