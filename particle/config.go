package particle

import "fmt"

// Rect is an axis-aligned simulation area. X0,Y0 is the top-left corner.
type Rect struct {
	X0 float32 `yaml:"x0"`
	Y0 float32 `yaml:"y0"`
	X1 float32 `yaml:"x1"`
	Y1 float32 `yaml:"y1"`
}

// Width returns X1 - X0.
func (r Rect) Width() float32 { return r.X1 - r.X0 }

// Height returns Y1 - Y0.
func (r Rect) Height() float32 { return r.Y1 - r.Y0 }

// Contains reports whether (x, y) lies within the closed rectangle.
func (r Rect) Contains(x, y float32) bool {
	return x >= r.X0 && x <= r.X1 && y >= r.Y0 && y <= r.Y1
}

// Config holds particle system configuration.
type Config struct {
	// Count is the fixed number of particles.
	// Default: 10000
	Count int `yaml:"count"`

	// Bounds is the simulation area in world units.
	// Default: 0,0 to 320,240
	Bounds Rect `yaml:"bounds"`

	// MaxSpeed bounds the initial speed of each particle.
	// Default: 1
	MaxSpeed float32 `yaml:"max_speed"`

	// VelocityBias is added to both initial velocity components.
	// Default: 0.01
	VelocityBias float32 `yaml:"velocity_bias"`

	// Seed seeds initialization. Zero seeds from the clock.
	Seed uint64 `yaml:"seed"`

	// Kernel is the registry name of the simulation kernel.
	// Default: "particle.simulate"
	Kernel string `yaml:"kernel"`
}

// DefaultConfig returns default configuration.
func DefaultConfig() Config {
	return Config{
		Count:        10000,
		Bounds:       Rect{X0: 0, Y0: 0, X1: 320, Y1: 240},
		MaxSpeed:     1,
		VelocityBias: 0.01,
		Kernel:       KernelName,
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c.Count <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCount, c.Count)
	}
	if c.Bounds.X1 <= c.Bounds.X0 {
		return &ConfigError{Field: "Bounds", Reason: "x1 must be greater than x0"}
	}
	if c.Bounds.Y1 <= c.Bounds.Y0 {
		return &ConfigError{Field: "Bounds", Reason: "y1 must be greater than y0"}
	}
	if c.MaxSpeed < 0 {
		return &ConfigError{Field: "MaxSpeed", Reason: "must be non-negative"}
	}
	if c.Kernel == "" {
		return &ConfigError{Field: "Kernel", Reason: "must not be empty"}
	}
	return nil
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return "particle: invalid config." + e.Field + ": " + e.Reason
}
