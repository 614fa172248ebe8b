package l2n

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/OpenTraceLab/OpenTraceLVS/pkg/region"
)

// Config controls the extraction engine.
type Config struct {
	// Engine tuning, forwarded to the deep shape store and the clustering
	Threads        int     `yaml:"threads"`          // Cells clustered concurrently (default: 1)
	AreaRatio      float64 `yaml:"area_ratio"`       // Polygon split threshold (default: 3)
	MaxVertexCount int     `yaml:"max_vertex_count"` // Polygon split threshold, 0 is unlimited

	// Label handling
	TextEnlargement  int64  `yaml:"text_enlargement"`   // Label box half size in dbu (default: 1)
	TextPropertyName string `yaml:"text_property_name"` // Property carrying label strings (default: LABEL)
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() *Config {
	return &Config{
		Threads:          1,
		AreaRatio:        3.0,
		MaxVertexCount:   0,
		TextEnlargement:  1,
		TextPropertyName: region.DefaultTextPropertyName,
	}
}

// Validate checks the configuration and fills in defaults for unset values.
func (c *Config) Validate() error {
	if c.Threads < 1 {
		c.Threads = 1
	}
	if c.AreaRatio == 0 {
		c.AreaRatio = 3.0
	}
	if c.AreaRatio < 0 {
		return fmt.Errorf("l2n: area ratio must not be negative, got %g", c.AreaRatio)
	}
	if c.MaxVertexCount < 0 {
		return fmt.Errorf("l2n: max vertex count must not be negative, got %d", c.MaxVertexCount)
	}
	if c.TextEnlargement < 0 {
		return fmt.Errorf("l2n: text enlargement must not be negative, got %d", c.TextEnlargement)
	}
	if c.TextPropertyName == "" {
		c.TextPropertyName = region.DefaultTextPropertyName
	}
	return nil
}

// LoadConfig reads a YAML configuration file. Keys missing from the file
// keep their defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("l2n: failed to read config: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("l2n: failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
