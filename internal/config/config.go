package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// EnvPrefix prefixes every environment override
const EnvPrefix = "DMONKIT_"

// Config holds the application configuration
type Config struct {
	Trainer TrainerConfig `json:"trainer"`
	Render  RenderConfig  `json:"render"`
	Ledger  LedgerConfig  `json:"ledger"`
	Log     LogConfig     `json:"log"`
}

// TrainerConfig holds how the external trainer is invoked
type TrainerConfig struct {
	Python      string `json:"python" validate:"required"`
	Script      string `json:"script" validate:"required"`
	WorkDir     string `json:"work_dir"`
	Epochs      int    `json:"epochs" validate:"gte=1"`
	Folds       int    `json:"folds" validate:"gte=1"`
	TotalFrames string `json:"total_frames" validate:"required"`
}

// RenderConfig holds scene rendering defaults
type RenderConfig struct {
	FFmpeg             string  `json:"ffmpeg" validate:"required"`
	IndexFile          string  `json:"index_file" validate:"required"`
	FrustumLength      float64 `json:"frustum_length" validate:"gt=0"`
	FrustumAngle       float64 `json:"frustum_angle" validate:"gt=0"`
	UseBodyOrientation bool    `json:"use_body_orientation"`
	SkipMissingFrames  bool    `json:"skip_missing_frames"`
	PredictionMarkers  bool    `json:"prediction_markers"`
}

// LedgerConfig holds the run ledger location. An empty path disables the ledger.
type LedgerConfig struct {
	Path string `json:"path"`
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level string `json:"level" validate:"oneof=trace debug info warn warning error fatal panic"`
	File  string `json:"file"`
}

// Default returns a configuration with default values
func Default() *Config {
	return &Config{
		Trainer: TrainerConfig{
			Python:      "python",
			Script:      "src/train.py",
			Epochs:      250,
			Folds:       5,
			TotalFrames: "max",
		},
		Render: RenderConfig{
			FFmpeg:             "ffmpeg",
			IndexFile:          "index.txt",
			FrustumLength:      1,
			FrustumAngle:       1.0471975511965976,
			UseBodyOrientation: true,
		},
		Ledger: LedgerConfig{
			Path: filepath.Join("storage", "ledger.db"),
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// LoadFromFile loads configuration from a JSON file on top of the defaults
func LoadFromFile(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Default()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// Load reads the optional .env file, the optional configuration file and applies
// DMONKIT_* environment overrides. A missing file at the default path is not an error.
func Load(filename string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	config := Default()
	if filename != "" {
		loaded, err := LoadFromFile(filename)
		switch {
		case err == nil:
			config = loaded
		case filename == GetConfigPath() && errors.Is(err, os.ErrNotExist):
		default:
			return nil, err
		}
	}

	if err := config.ApplyEnv(); err != nil {
		return nil, err
	}
	return config, config.Validate()
}

// ApplyEnv overrides fields from DMONKIT_* environment variables
func (c *Config) ApplyEnv() error {
	strs := map[string]*string{
		"PYTHON":       &c.Trainer.Python,
		"SCRIPT":       &c.Trainer.Script,
		"WORK_DIR":     &c.Trainer.WorkDir,
		"TOTAL_FRAMES": &c.Trainer.TotalFrames,
		"FFMPEG":       &c.Render.FFmpeg,
		"INDEX_FILE":   &c.Render.IndexFile,
		"LEDGER":       &c.Ledger.Path,
		"LOG_LEVEL":    &c.Log.Level,
		"LOG_FILE":     &c.Log.File,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"EPOCHS": &c.Trainer.Epochs,
		"FOLDS":  &c.Trainer.Folds,
	}
	for key, dst := range ints {
		if v, ok := os.LookupEnv(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("%s%s must be an integer: %w", EnvPrefix, key, err)
			}
			*dst = n
		}
	}

	if v, ok := os.LookupEnv(EnvPrefix + "SKIP_MISSING_FRAMES"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSKIP_MISSING_FRAMES must be a bool: %w", EnvPrefix, err)
		}
		c.Render.SkipMissingFrames = b
	}
	return nil
}

// SaveToFile saves configuration to a JSON file
func (c *Config) SaveToFile(filename string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "./config.json"
	}
	return filepath.Join(home, ".config", "dmonkit", "config.json")
}
