// Package config defines the typed batch configurations for bakebatch and
// loads them from YAML files. Every configuration is validated up front so
// no external process is ever invoked from a malformed batch.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Default configuration values
const (
	DefaultDriver    = "python3 main.py"
	DefaultEvaluator = "python3 evaluate_prompts.py"
	DefaultOutputDir = "experiments"
	DefaultEvalDir   = "eval_results"
	DefaultPause     = 10 * time.Second
	DefaultLimit     = 10
)

// ExperimentConfig describes one optimization run. Entries are immutable
// once loaded; runners only ever read them.
type ExperimentConfig struct {
	ScorerModel      string `mapstructure:"scorer_model" validate:"required"`
	OptimizerModel   string `mapstructure:"optimizer_model" validate:"required"`
	SampleLimit      int    `mapstructure:"sample_limit" validate:"required,gt=0"`
	Iterative        bool   `mapstructure:"iterative"`
	IterativePrompts int    `mapstructure:"iterative_prompts" validate:"gte=0"`
}

// BatchConfig is the ordered set of optimization runs for one `run` invocation.
type BatchConfig struct {
	Driver      string             `mapstructure:"driver" validate:"required"`
	OutputDir   string             `mapstructure:"output_dir" validate:"required"`
	Pause       time.Duration      `mapstructure:"pause" validate:"gte=0"`
	EnvFile     string             `mapstructure:"env_file"`
	Experiments []ExperimentConfig `mapstructure:"experiments" validate:"required,min=1,dive"`
}

// EvalConfig is the folder batch for one `eval` invocation. The output
// directory is shared by every folder; the evaluator disambiguates results
// internally.
type EvalConfig struct {
	Evaluator string   `mapstructure:"evaluator" validate:"required"`
	Model     string   `mapstructure:"model" validate:"required"`
	Limit     int      `mapstructure:"limit" validate:"required,gt=0"`
	OutputDir string   `mapstructure:"output_dir" validate:"required"`
	Subjects  []string `mapstructure:"subjects" validate:"required,min=1,dive,required"`
	Folders   []string `mapstructure:"folders" validate:"required,min=1,dive,required"`
	EnvFile   string   `mapstructure:"env_file"`
}

// validate is shared by all Load calls; struct-level rules are registered once.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterStructValidation(experimentStructLevel, ExperimentConfig{})
	return v
}

// experimentStructLevel enforces that an iterative prompt count is present
// exactly when iterative mode is enabled.
func experimentStructLevel(sl validator.StructLevel) {
	exp := sl.Current().Interface().(ExperimentConfig)
	if exp.Iterative && exp.IterativePrompts <= 0 {
		sl.ReportError(exp.IterativePrompts, "IterativePrompts", "iterative_prompts", "required_with_iterative", "")
	}
	if !exp.Iterative && exp.IterativePrompts > 0 {
		sl.ReportError(exp.IterativePrompts, "IterativePrompts", "iterative_prompts", "excluded_without_iterative", "")
	}
}

// LoadBatch reads and validates a batch configuration file.
func LoadBatch(path string) (*BatchConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("driver", DefaultDriver)
	v.SetDefault("output_dir", DefaultOutputDir)
	v.SetDefault("pause", DefaultPause)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read batch config %s: %w", path, err)
	}

	var cfg BatchConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse batch config %s: %w", path, err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid batch config %s: %w", path, err)
	}

	return &cfg, nil
}

// LoadEval reads and validates an evaluation batch configuration file.
func LoadEval(path string) (*EvalConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetDefault("evaluator", DefaultEvaluator)
	v.SetDefault("output_dir", DefaultEvalDir)
	v.SetDefault("limit", DefaultLimit)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read eval config %s: %w", path, err)
	}

	var cfg EvalConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse eval config %s: %w", path, err)
	}

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid eval config %s: %w", path, err)
	}

	return &cfg, nil
}

// SplitCommand splits a configured command string into program and arguments.
func SplitCommand(command string) (string, []string, error) {
	fields := strings.Fields(command)
	if len(fields) == 0 {
		return "", nil, fmt.Errorf("empty command")
	}
	return fields[0], fields[1:], nil
}
