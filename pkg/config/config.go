// Package config provides configuration loading and management for bolddenoise.
// It handles loading configuration from YAML files and provides default values.
//
// A Config is validated once and then passed by value to each run; nothing
// in the processing stages reads global settings.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"bolddenoise/internal/models"
	"bolddenoise/pkg/confounds"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Censoring parameters
	Censoring struct {
		// FDThreshold in mm. Values <= 0 disable censoring.
		FDThreshold float64 `yaml:"fdThreshold"`

		// DummyScans is a count of leading volumes to drop, or "auto" to
		// count the non-steady-state volumes flagged in the confounds.
		DummyScans AutoInt `yaml:"dummyScans"`

		// MinContiguousSeconds censors retained segments shorter than this.
		MinContiguousSeconds float64 `yaml:"minContiguousSeconds"`

		// ExactScans requests auxiliary masks retaining exactly N volumes.
		ExactScans []int `yaml:"exactScans,omitempty"`

		// Seed for the exact-scan draws. A fresh seed is drawn per run when unset.
		Seed *uint64 `yaml:"seed,omitempty"`
	} `yaml:"censoring"`

	// Motion parameters
	Motion struct {
		// HeadRadius in mm, or "auto" to estimate it from the brain volume.
		HeadRadius AutoFloat `yaml:"headRadius"`

		// FilterType is "none", "lp" or "notch".
		FilterType string `yaml:"filterType"`

		// BandStopMin and BandStopMax are in breaths per minute. Low-pass
		// uses BandStopMin as its cutoff.
		BandStopMin float64 `yaml:"bandStopMin"`
		BandStopMax float64 `yaml:"bandStopMax"`

		// FilterOrder of the motion filter.
		FilterOrder int `yaml:"filterOrder"`
	} `yaml:"motion"`

	// Band-pass filter applied to the denoised signal
	Bandpass struct {
		// HighPass and LowPass cutoffs in Hz. A cutoff <= 0 disables that edge.
		HighPass float64 `yaml:"highPass"`
		LowPass  float64 `yaml:"lowPass"`
		Order    int     `yaml:"order"`
	} `yaml:"bandpass"`

	// Confound parameters
	Confounds struct {
		// Preset names the nuisance regressor recipe.
		Preset string `yaml:"preset"`
	} `yaml:"confounds"`

	// Metric parameters
	Metrics struct {
		ALFF  bool `yaml:"alff"`
		ReHo  bool `yaml:"reho"`
		DCAN  bool `yaml:"dcan"`
		DVARS bool `yaml:"dvars"`
	} `yaml:"metrics"`

	// Output parameters
	Output struct {
		// SaveDesign writes the regression design matrix for provenance.
		SaveDesign bool `yaml:"saveDesign"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Censoring.FDThreshold = 0.3
	cfg.Censoring.DummyScans = AutoInt{Value: 0}

	cfg.Motion.HeadRadius = AutoFloat{Value: 50}
	cfg.Motion.FilterType = string(models.FilterNone)
	cfg.Motion.FilterOrder = 4

	cfg.Bandpass.HighPass = 0.01
	cfg.Bandpass.LowPass = 0.08
	cfg.Bandpass.Order = 2

	cfg.Confounds.Preset = string(confounds.Preset36P)

	cfg.Metrics.ALFF = true
	cfg.Metrics.ReHo = true
	cfg.Metrics.DVARS = true

	cfg.Output.SaveDesign = true
	return cfg
}

// LoadConfig loads configuration from a YAML file
// If the file doesn't exist, it returns the default configuration
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w: %w", err, models.ErrConfiguration)
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

// Validate reports the first invalid parameter combination.
func (c *Config) Validate() error {
	if !c.Censoring.DummyScans.Auto && c.Censoring.DummyScans.Value < 0 {
		return fmt.Errorf("dummy scans %d must be >= 0: %w", c.Censoring.DummyScans.Value, models.ErrConfiguration)
	}
	if c.Censoring.MinContiguousSeconds < 0 {
		return fmt.Errorf("minimum contiguous duration %g s must be >= 0: %w", c.Censoring.MinContiguousSeconds, models.ErrConfiguration)
	}
	seen := make(map[int]bool)
	for _, n := range c.Censoring.ExactScans {
		if n < 0 || seen[n] {
			return fmt.Errorf("exact scan target %d must be unique and >= 0: %w", n, models.ErrConfiguration)
		}
		seen[n] = true
	}
	if !c.Motion.HeadRadius.Auto && c.Motion.HeadRadius.Value <= 0 {
		return fmt.Errorf("head radius %g mm must be > 0: %w", c.Motion.HeadRadius.Value, models.ErrConfiguration)
	}
	// TR is a per-run property; any positive value exercises the cutoff rules.
	if err := c.MotionFilterSpec(1).Validate(); err != nil {
		return err
	}
	if c.Bandpass.HighPass > 0 && c.Bandpass.LowPass > 0 && c.Bandpass.HighPass >= c.Bandpass.LowPass {
		return fmt.Errorf("band-pass high-pass %g Hz must be below low-pass %g Hz: %w",
			c.Bandpass.HighPass, c.Bandpass.LowPass, models.ErrConfiguration)
	}
	if (c.Bandpass.HighPass > 0 || c.Bandpass.LowPass > 0) && c.Bandpass.Order < 1 {
		return fmt.Errorf("band-pass order %d must be >= 1: %w", c.Bandpass.Order, models.ErrConfiguration)
	}
	if _, err := confounds.ParsePreset(c.Confounds.Preset); err != nil {
		return err
	}
	return nil
}

// Normalized returns a copy with the documented auto-corrections applied,
// logging each one as a warning.
func (c *Config) Normalized(log *logrus.Entry) Config {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	n := *c
	if n.Bandpass.HighPass <= 0 && n.Bandpass.LowPass <= 0 {
		log.Warn("both band-pass cutoffs <= 0; band-pass filtering disabled")
		n.Bandpass.HighPass, n.Bandpass.LowPass = 0, 0
	}
	if n.Censoring.FDThreshold <= 0 && n.Motion.FilterType != string(models.FilterNone) {
		log.WithField("filter_type", n.Motion.FilterType).
			Warn("fd threshold <= 0 disables censoring; motion filter parameters are ignored")
		n.Motion.FilterType = string(models.FilterNone)
	}
	n.Censoring.ExactScans = append([]int(nil), n.Censoring.ExactScans...)
	return n
}

// MotionFilterSpec builds the motion filter description for a run with
// sampling interval tr.
func (c *Config) MotionFilterSpec(tr float64) models.FilterSpec {
	spec := models.FilterSpec{
		Type:  models.FilterType(c.Motion.FilterType),
		Order: c.Motion.FilterOrder,
		TR:    tr,
	}
	switch spec.Type {
	case models.FilterLowpass:
		spec.Cutoffs = []float64{c.Motion.BandStopMin}
	case models.FilterNotch:
		spec.Cutoffs = []float64{c.Motion.BandStopMin, c.Motion.BandStopMax}
	}
	return spec
}
