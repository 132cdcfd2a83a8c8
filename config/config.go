// Package config loads pixkit configuration from YAML.
//
// Load starts from the embedded defaults and overlays a user file, so a
// file only needs the keys it changes. Each section is the owning
// package's own Config type.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/pixkit/atlas"
	"github.com/gogpu/pixkit/forcefield"
	"github.com/gogpu/pixkit/particle"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds the configuration of every pixkit component.
type Config struct {
	// Backend names the device backend. Empty selects the default.
	Backend string `yaml:"backend"`

	Log        LogConfig         `yaml:"log"`
	Particles  particle.Config   `yaml:"particles"`
	ForceField forcefield.Config `yaml:"forcefield"`
	Atlas      atlas.Config      `yaml:"atlas"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
}

// SlogLevel parses Level.
func (c LogConfig) SlogLevel() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.TrimSpace(c.Level))); err != nil {
		return 0, fmt.Errorf("config: log.level %q: %w", c.Level, err)
	}
	return l, nil
}

// Default returns the embedded defaults.
func Default() *Config {
	cfg, err := Parse(nil)
	if err != nil {
		panic(fmt.Sprintf("config: embedded defaults: %v", err))
	}
	return cfg
}

// Load reads the YAML file at path over the embedded defaults.
// If path is empty, only the defaults are used.
func Load(path string) (*Config, error) {
	if path == "" {
		return Parse(nil)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes data over the embedded defaults and validates the result.
// Unknown keys are an error.
func Parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}
	if len(data) > 0 {
		if err := decodeStrict(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeStrict(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	err := dec.Decode(cfg)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// Validate checks every section.
func (c *Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	if err := c.Particles.Validate(); err != nil {
		return fmt.Errorf("config: particles: %w", err)
	}
	if err := c.ForceField.Validate(); err != nil {
		return fmt.Errorf("config: forcefield: %w", err)
	}
	if err := c.Atlas.Validate(); err != nil {
		return fmt.Errorf("config: atlas: %w", err)
	}
	return nil
}

// Marshal encodes the configuration as YAML.
func (c *Config) Marshal() ([]byte, error) {
	data, err := yaml.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshaling config: %w", err)
	}
	return data, nil
}

// WriteYAML writes the configuration to a YAML file.
func (c *Config) WriteYAML(path string) error {
	data, err := c.Marshal()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}
