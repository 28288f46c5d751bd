// Package config provides configuration loading and management for hessianenhance.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"hessianenhance/internal/logging"
	"hessianenhance/pkg/enhancement"
	"hessianenhance/pkg/estimation"
	"hessianenhance/pkg/measure"
	"hessianenhance/pkg/scales"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Processing parameters
	Processing struct {
		// NumWorkers specifies how many goroutines run region tasks
		NumWorkers int `yaml:"numWorkers"`

		// NumRegions is the number of regions an image is split into; 0 uses NumWorkers
		NumRegions int `yaml:"numRegions"`

		// SliceGap is the physical distance between consecutive input slices in mm
		SliceGap float64 `yaml:"sliceGap"`
	} `yaml:"processing"`

	// Scale schedule
	Scales struct {
		// Minimum is the smallest sigma in physical units
		Minimum float64 `yaml:"minimum"`

		// Maximum is the largest sigma in physical units
		Maximum float64 `yaml:"maximum"`

		// Steps is the number of scales
		Steps int `yaml:"steps"`

		// Method is equispaced or logarithmic
		Method string `yaml:"method"`
	} `yaml:"scales"`

	// Measure selection and fixed parameters
	Measure struct {
		// Kind is descoteaux or frangi
		Kind string `yaml:"kind"`

		// EnhanceBrightObjects selects bright structures on a dark background
		EnhanceBrightObjects bool `yaml:"enhanceBrightObjects"`

		Alpha float64 `yaml:"alpha"`
		Beta  float64 `yaml:"beta"`
		C     float64 `yaml:"c"`
	} `yaml:"measure"`

	// Parameter estimation
	Estimation struct {
		// Policy is per-scale, first-scale or fixed
		Policy string `yaml:"policy"`

		// FrobeniusNormWeight multiplies the largest Frobenius norm to obtain c
		FrobeniusNormWeight float64 `yaml:"frobeniusNormWeight"`

		// BackgroundValue is the mask label excluded from estimation
		BackgroundValue uint32 `yaml:"backgroundValue"`
	} `yaml:"estimation"`

	// Output parameters
	Output struct {
		// Verbose enables debug logging
		Verbose bool `yaml:"verbose"`

		// LogLevel overrides Verbose when set (trace, debug, info, warn, error)
		LogLevel string `yaml:"logLevel"`

		// SaveSlices writes every slice of the response along SliceAxis
		SaveSlices bool `yaml:"saveSlices"`

		// SliceAxis is x, y or z
		SliceAxis string `yaml:"sliceAxis"`

		// SaveMIP writes a maximum intensity projection along SliceAxis
		SaveMIP bool `yaml:"saveMIP"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.NumWorkers = runtime.NumCPU()
	cfg.Processing.NumRegions = 0
	cfg.Processing.SliceGap = 1.0

	cfg.Scales.Minimum = 1.0
	cfg.Scales.Maximum = 4.0
	cfg.Scales.Steps = 4
	cfg.Scales.Method = scales.Equispaced.String()

	defaults := measure.DefaultParameters()
	cfg.Measure.Kind = string(measure.KindDescoteaux)
	cfg.Measure.EnhanceBrightObjects = true
	cfg.Measure.Alpha = defaults.Alpha
	cfg.Measure.Beta = defaults.Beta
	cfg.Measure.C = defaults.C

	cfg.Estimation.Policy = enhancement.PerScale.String()
	cfg.Estimation.FrobeniusNormWeight = estimation.DefaultFrobeniusNormWeight
	cfg.Estimation.BackgroundValue = 0

	cfg.Output.Verbose = false
	cfg.Output.LogLevel = ""
	cfg.Output.SaveSlices = true
	cfg.Output.SliceAxis = "z"
	cfg.Output.SaveMIP = true

	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}

	return cfg, nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}

// CreateDefaultConfigFile creates a default configuration file at the specified path
func CreateDefaultConfigFile(configPath string) error {
	return SaveConfig(DefaultConfig(), configPath)
}

// Validate checks that every value can be turned into a pipeline component.
func (c *Config) Validate() error {
	if c.Processing.NumWorkers < 0 || c.Processing.NumRegions < 0 {
		return fmt.Errorf("processing: numWorkers and numRegions must not be negative")
	}
	if !(c.Processing.SliceGap > 0) {
		return fmt.Errorf("processing: sliceGap must be positive, got %g", c.Processing.SliceGap)
	}
	if _, err := c.Schedule(); err != nil {
		return fmt.Errorf("scales: %w", err)
	}
	if _, err := c.NewMeasure(); err != nil {
		return fmt.Errorf("measure: %w", err)
	}
	if c.Measure.Alpha < 0 || c.Measure.Beta < 0 || c.Measure.C < 0 {
		return fmt.Errorf("measure: alpha, beta and c must not be negative")
	}
	if _, err := c.Policy(); err != nil {
		return fmt.Errorf("estimation: %w", err)
	}
	if c.Estimation.FrobeniusNormWeight < 0 {
		return fmt.Errorf("estimation: frobeniusNormWeight must not be negative")
	}
	if _, err := logging.ParseLevel(c.Output.LogLevel); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if _, err := AxisIndex(c.Output.SliceAxis); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

// Schedule generates the scale list described by the scales section.
func (c *Config) Schedule() ([]float64, error) {
	method, err := scales.ParseStepMethod(c.Scales.Method)
	if err != nil {
		return nil, err
	}
	return scales.Generate(c.Scales.Minimum, c.Scales.Maximum, c.Scales.Steps, method)
}

// NewMeasure constructs the configured measure.
func (c *Config) NewMeasure() (measure.Measure, error) {
	kind, err := measure.ParseKind(c.Measure.Kind)
	if err != nil {
		return nil, err
	}
	return measure.New(kind, c.Measure.EnhanceBrightObjects)
}

// Parameters returns the fixed measure parameters.
func (c *Config) Parameters() measure.Parameters {
	return measure.Parameters{Alpha: c.Measure.Alpha, Beta: c.Measure.Beta, C: c.Measure.C}
}

// Policy returns the configured re-estimation policy.
func (c *Config) Policy() (enhancement.ReestimationPolicy, error) {
	return enhancement.ParsePolicy(c.Estimation.Policy)
}

// LogLevel returns the level string for the logger. An explicit logLevel wins
// over the verbose flag.
func (c *Config) LogLevel() string {
	if c.Output.LogLevel != "" {
		return c.Output.LogLevel
	}
	if c.Output.Verbose {
		return "debug"
	}
	return "info"
}

// AxisIndex converts x, y or z to an axis number.
func AxisIndex(axis string) (int, error) {
	switch axis {
	case "x", "X":
		return 0, nil
	case "y", "Y":
		return 1, nil
	case "z", "Z", "":
		return 2, nil
	default:
		return 0, fmt.Errorf("unknown axis %q (must be x, y or z)", axis)
	}
}
