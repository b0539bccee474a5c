// Package config handles configuration loading and validation.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/ricesearch/rankeval/internal/evaluation"
)

// Config holds all application configuration.
type Config struct {
	// Metric configuration
	Metrics MetricsConfig `yaml:"metrics"`

	// Batch evaluation configuration
	Eval EvalConfig `yaml:"eval"`

	// Logging configuration
	Log LogConfig `yaml:"log"`
}

// MetricsConfig selects metrics and their parameters.
type MetricsConfig struct {
	Names          []string `envconfig:"RANKEVAL_METRICS" yaml:"names"`
	Gain           string   `envconfig:"RANKEVAL_GAIN" yaml:"gain"`
	RBPPersistence float64  `envconfig:"RANKEVAL_RBP_PERSISTENCE" yaml:"rbp_persistence"`
	FBeta          float64  `envconfig:"RANKEVAL_F_BETA" yaml:"f_beta"`
}

// EvalConfig holds batch evaluation settings.
type EvalConfig struct {
	Workers          int    `envconfig:"RANKEVAL_WORKERS" yaml:"workers"` // 0 = GOMAXPROCS
	MinRelevantGrade int    `envconfig:"RANKEVAL_MIN_RELEVANT_GRADE" yaml:"min_relevant_grade"`
	Complete         bool   `envconfig:"RANKEVAL_COMPLETE" yaml:"complete"` // score judged queries missing from the run as 0
	Gate             string `envconfig:"RANKEVAL_GATE" yaml:"gate"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `envconfig:"RANKEVAL_LOG_LEVEL" yaml:"level"`
	Format string `envconfig:"RANKEVAL_LOG_FORMAT" yaml:"format"`
}

// Load loads configuration from environment variables and optional config file.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Set defaults first
	setDefaults(cfg)

	// Load from YAML file if provided (overrides defaults)
	if configPath != "" {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	// Override with environment variables (highest priority)
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("processing env config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// LoadFromEnv loads configuration from environment variables only.
func LoadFromEnv() (*Config, error) {
	return Load("")
}

func loadFromFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	return yaml.Unmarshal(data, cfg)
}

func setDefaults(cfg *Config) {
	def := evaluation.DefaultParams()

	cfg.Metrics = MetricsConfig{
		Names:          []string{"p@10", "recall@100", "mrr", "map", "ndcg@10"},
		Gain:           def.Gain.String(),
		RBPPersistence: def.Persistence,
		FBeta:          def.Beta,
	}

	cfg.Eval = EvalConfig{
		Workers:          0,
		MinRelevantGrade: 1,
	}

	cfg.Log = LogConfig{
		Level:  "info",
		Format: "text",
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []string

	// Metric validation
	if _, err := evaluation.ParseMetrics(c.Metrics.Names); err != nil {
		errs = append(errs, err.Error())
	}
	if _, err := c.Params(); err != nil {
		errs = append(errs, err.Error())
	}

	// Eval validation
	if c.Eval.Workers < 0 {
		errs = append(errs, "workers must not be negative")
	}
	if c.Eval.MinRelevantGrade < 1 {
		errs = append(errs, "min_relevant_grade must be at least 1")
	}

	// Log validation
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Log.Level] {
		errs = append(errs, fmt.Sprintf("invalid log level: %s (must be debug, info, warn, or error)", c.Log.Level))
	}

	validFormats := map[string]bool{"text": true, "json": true}
	if !validFormats[c.Log.Format] {
		errs = append(errs, fmt.Sprintf("invalid log format: %s (must be text or json)", c.Log.Format))
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	return nil
}

// MetricList parses the configured metric names.
func (c *Config) MetricList() ([]evaluation.Metric, error) {
	return evaluation.ParseMetrics(c.Metrics.Names)
}

// Params builds the metric parameters.
func (c *Config) Params() (evaluation.Params, error) {
	gain, err := evaluation.ParseGainMode(c.Metrics.Gain)
	if err != nil {
		return evaluation.Params{}, err
	}
	p := evaluation.Params{
		Gain:        gain,
		Persistence: c.Metrics.RBPPersistence,
		Beta:        c.Metrics.FBeta,
	}
	return p, p.Validate()
}
