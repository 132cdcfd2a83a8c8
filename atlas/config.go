package atlas

import "strconv"

// Config holds atlas configuration.
type Config struct {
	// Width and Height are the layer dimensions in texels.
	// Default: 1024x1024
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Depth is the number of layers.
	// Default: 32
	Depth int `yaml:"depth"`

	// Label names the texture for debugging.
	Label string `yaml:"label"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Width:  1024,
		Height: 1024,
		Depth:  32,
		Label:  "atlas",
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Width <= 0 {
		return &ConfigError{Field: "Width", Reason: "must be positive, got " + strconv.Itoa(c.Width)}
	}
	if c.Height <= 0 {
		return &ConfigError{Field: "Height", Reason: "must be positive, got " + strconv.Itoa(c.Height)}
	}
	if c.Depth <= 0 {
		return &ConfigError{Field: "Depth", Reason: "must be positive, got " + strconv.Itoa(c.Depth)}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "atlas: invalid config." + e.Field + ": " + e.Reason
}
