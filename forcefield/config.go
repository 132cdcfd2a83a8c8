package forcefield

import "math"

// Config holds force field configuration.
type Config struct {
	// Width and Height are the grid dimensions in cells.
	// Default: 320x240
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Seed seeds the background walk. Zero seeds from the clock.
	Seed uint64 `yaml:"seed"`

	// StepMax is the largest per-cell increase of the walk length.
	// Default: 0.5
	StepMax float64 `yaml:"step_max"`

	// LengthLimit clamps the walk length to [-LengthLimit, LengthLimit].
	// Default: 5
	LengthLimit float64 `yaml:"length_limit"`

	// Scale converts walk length to force magnitude.
	// Default: 0.01
	Scale float64 `yaml:"scale"`

	// AngleStepMax is the largest per-cell rotation of the walk, in radians.
	// Default: π
	AngleStepMax float64 `yaml:"angle_step_max"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Width:        320,
		Height:       240,
		StepMax:      0.5,
		LengthLimit:  5,
		Scale:        0.01,
		AngleStepMax: math.Pi,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Width <= 0 {
		return &ConfigError{Field: "Width", Reason: "must be positive"}
	}
	if c.Height <= 0 {
		return &ConfigError{Field: "Height", Reason: "must be positive"}
	}
	if c.StepMax < 0 {
		return &ConfigError{Field: "StepMax", Reason: "must be non-negative"}
	}
	if c.LengthLimit < 0 {
		return &ConfigError{Field: "LengthLimit", Reason: "must be non-negative"}
	}
	if c.Scale < 0 {
		return &ConfigError{Field: "Scale", Reason: "must be non-negative"}
	}
	if c.AngleStepMax < 0 {
		return &ConfigError{Field: "AngleStepMax", Reason: "must be non-negative"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "forcefield: invalid config." + e.Field + ": " + e.Reason
}
