// Package config provides configuration loading and management for pilroi.
// It handles loading configuration from YAML files and provides default values.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"

	"pilroi/internal/models"
	"pilroi/pkg/attenuation"
)

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid configuration")

// ROI modes
const (
	ROIFixed = "fixed"
	ROITrack = "track"
)

// Config represents the application configuration loaded from YAML
type Config struct {
	// Scan assembly parameters
	Scan struct {
		// Beamline is the metadata layout tag ("72" or "21")
		Beamline string `yaml:"beamline"`

		// Foils holds the log-attenuation of each of the four foils
		Foils []float64 `yaml:"foils"`

		// NumWorkers bounds concurrent frame reads
		NumWorkers int `yaml:"numWorkers"`
	} `yaml:"scan"`

	// Crop window parameters. Either Lim1/Lim2 are given, or Suggest asks
	// for a window of width Window around the brightest profile column.
	Crop struct {
		Lim1 int `yaml:"lim1"`
		Lim2 int `yaml:"lim2"`

		// Suggest derives the window from the mean profile instead of Lim1/Lim2
		Suggest bool `yaml:"suggest"`

		// Window is the width of a suggested crop window
		Window int `yaml:"window"`

		// Center overrides the brightest profile column for suggestions
		Center *int `yaml:"center,omitempty"`
	} `yaml:"crop"`

	// ROI parameters
	ROI struct {
		// Mode is "fixed" or "track"
		Mode string `yaml:"mode"`

		// CenX is the horizontal center of a fixed ROI, in crop coordinates
		CenX int `yaml:"cenx"`

		// CenY is the vertical center of the ROI
		CenY int `yaml:"ceny"`

		// Height and Width must be odd
		Height int `yaml:"height"`
		Width  int `yaml:"width"`
	} `yaml:"roi"`

	// Output parameters
	Output struct {
		// ResultFile receives the per-point table (.csv or .xlsx)
		ResultFile string `yaml:"resultFile"`

		// ImagesDir receives rendered crop frames when non-empty
		ImagesDir string `yaml:"imagesDir"`

		// VMin and VMax bound the logarithmic gray scale of rendered frames
		VMin float64 `yaml:"vmin"`
		VMax float64 `yaml:"vmax"`

		// Verbose controls the level of logging output
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Scan.Beamline = "72"
	cfg.Scan.Foils = []float64{0, 0, 0, 0}
	cfg.Scan.NumWorkers = runtime.NumCPU()

	cfg.ROI.Mode = ROITrack
	cfg.ROI.CenY = 97
	cfg.ROI.Height = 11
	cfg.ROI.Width = 11

	cfg.Output.ResultFile = "result.csv"
	cfg.Output.VMin = 1e-6
	cfg.Output.VMax = 10
	cfg.Output.Verbose = true

	return cfg
}

// Layout returns the parsed beamline layout
func (c *Config) Layout() (models.Layout, error) {
	return models.ParseLayout(c.Scan.Beamline)
}

// Coefficients returns the foil coefficients as a fixed-size vector
func (c *Config) Coefficients() (attenuation.Coefficients, error) {
	return attenuation.CoefficientsFrom(c.Scan.Foils)
}

// Validate checks the configuration for values that can never succeed
func (c *Config) Validate() error {
	if _, err := c.Layout(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Coefficients(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	explicit := c.Crop.Lim1 != 0 || c.Crop.Lim2 != 0
	switch {
	case explicit && c.Crop.Suggest:
		return fmt.Errorf("%w: crop.lim1/lim2 and crop.suggest are mutually exclusive", ErrInvalidConfig)
	case explicit:
		if c.Crop.Lim1 < 0 || c.Crop.Lim1 >= c.Crop.Lim2 {
			return fmt.Errorf("%w: crop window [%d, %d)", ErrInvalidConfig, c.Crop.Lim1, c.Crop.Lim2)
		}
	case c.Crop.Suggest:
		if c.Crop.Window <= 0 {
			return fmt.Errorf("%w: crop.suggest needs a positive crop.window", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: no crop window (set crop.lim1/lim2 or crop.suggest)", ErrInvalidConfig)
	}

	switch c.ROI.Mode {
	case ROIFixed, ROITrack:
	default:
		return fmt.Errorf("%w: roi.mode %q (must be %s or %s)", ErrInvalidConfig, c.ROI.Mode, ROIFixed, ROITrack)
	}
	if c.ROI.Height <= 0 || c.ROI.Width <= 0 || c.ROI.Height%2 == 0 || c.ROI.Width%2 == 0 {
		return fmt.Errorf("%w: roi %dx%d must have odd positive height and width", ErrInvalidConfig, c.ROI.Height, c.ROI.Width)
	}
	return nil
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
		return nil, fmt.Errorf("error parsing config file: %w", err)
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
