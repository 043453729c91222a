// Package config handles beetle configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/chazu/beetle/pkg/material"
	"github.com/chazu/beetle/pkg/shape"
	"gopkg.in/yaml.v3"
)

// Config holds all beetle settings.
type Config struct {
	Extrusion ExtrusionConfig `yaml:"extrusion"`
	Trail     TrailConfig     `yaml:"trail"`
	Export    ExportConfig    `yaml:"export"`
	Body      BodyConfig      `yaml:"body"`
	Engine    EngineConfig    `yaml:"engine"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ExtrusionConfig holds cross-section and builder settings.
type ExtrusionConfig struct {
	CircleSides     int    `yaml:"circle_sides"`
	DefaultShape    string `yaml:"default_shape"`
	DefaultColor    string `yaml:"default_color"`
	AdvanceOnRotate bool   `yaml:"advance_on_rotate"`
}

// TrailConfig holds trail store compaction settings. A zero threshold
// disables compaction.
type TrailConfig struct {
	CompactThreshold int `yaml:"compact_threshold"`
	CompactBatch     int `yaml:"compact_batch"`
}

// ExportConfig holds STL output settings.
type ExportConfig struct {
	Format    string `yaml:"format"`
	SolidName string `yaml:"solid_name"`
}

// BodyConfig holds settings for the decorative beetle body mesh.
type BodyConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Kernel    string `yaml:"kernel"` // sdfx or manifold
	MeshCells int    `yaml:"mesh_cells"`
}

// EngineConfig holds script evaluation settings.
type EngineConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Extrusion: ExtrusionConfig{
			CircleSides:  32,
			DefaultShape: "circle",
			DefaultColor: "#8f52db",
		},
		Trail: TrailConfig{
			CompactThreshold: 256,
			CompactBatch:     128,
		},
		Export: ExportConfig{
			Format:    "binary",
			SolidName: "beetle",
		},
		Body: BodyConfig{
			Enabled:   true,
			Kernel:    "sdfx",
			MeshCells: 32,
		},
		Engine: EngineConfig{
			Timeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load returns the defaults overlaid with the YAML file at path. An empty
// path returns the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading config from %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// SaveTo writes the config to a specific path.
func (c *Config) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Validate reports every out-of-range setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Extrusion.CircleSides < 3 {
		errs = append(errs, fmt.Errorf("extrusion.circle_sides must be at least 3, got %d", c.Extrusion.CircleSides))
	}
	if k, err := shape.ParseKind(c.Extrusion.DefaultShape); err != nil || k == shape.KindCustom {
		errs = append(errs, fmt.Errorf("extrusion.default_shape must be point, triangle, square or circle, got %q", c.Extrusion.DefaultShape))
	}
	if _, err := material.ParseColor(c.Extrusion.DefaultColor); err != nil {
		errs = append(errs, fmt.Errorf("extrusion.default_color: %w", err))
	}
	if c.Trail.CompactThreshold < 0 {
		errs = append(errs, fmt.Errorf("trail.compact_threshold must not be negative, got %d", c.Trail.CompactThreshold))
	}
	if c.Trail.CompactThreshold > 0 && c.Trail.CompactBatch < 2 {
		errs = append(errs, fmt.Errorf("trail.compact_batch must be at least 2 when compaction is on, got %d", c.Trail.CompactBatch))
	}
	if c.Export.Format != "binary" && c.Export.Format != "ascii" {
		errs = append(errs, fmt.Errorf("export.format must be binary or ascii, got %q", c.Export.Format))
	}
	if c.Body.Kernel != "sdfx" && c.Body.Kernel != "manifold" {
		errs = append(errs, fmt.Errorf("body.kernel must be sdfx or manifold, got %q", c.Body.Kernel))
	}
	if c.Body.MeshCells < 8 {
		errs = append(errs, fmt.Errorf("body.mesh_cells must be at least 8, got %d", c.Body.MeshCells))
	}
	if c.Engine.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("engine.timeout must be positive, got %v", c.Engine.Timeout))
	}
	return errors.Join(errs...)
}
