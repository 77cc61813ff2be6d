// Package config loads and validates framebench run configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config describes one benchmark run.
type Config struct {
	Source      string   `yaml:"source"`
	FrameCounts []int    `yaml:"frame_counts"`
	WorkDir     string   `yaml:"work_dir"`
	OutputExt   string   `yaml:"output_ext"`
	CopyWorkers int      `yaml:"copy_workers"`
	Renderer    Renderer `yaml:"renderer"`
}

// Renderer describes the executable under benchmark.
type Renderer struct {
	Binary    string        `yaml:"binary"`
	SourceDir string        `yaml:"source_dir"`
	Args      []string      `yaml:"args"`
	Env       []string      `yaml:"env"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DefaultFrameCounts returns the standard frame-count sweep.
func DefaultFrameCounts() []int {
	return []int{1, 10, 100, 1000, 10000}
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Source:      "tests/testdata/frame_0016.png",
		FrameCounts: DefaultFrameCounts(),
		WorkDir:     ".",
		OutputExt:   "webm",
		CopyWorkers: 1,
		Renderer: Renderer{
			Binary: "aether-renderer-core",
		},
	}
}

// Load reads path on top of Default and validates the result.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.WorkDir == "" {
		cfg.WorkDir = "."
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}

	return cfg, nil
}

// Validate checks cfg for values the driver cannot run with.
func (c *Config) Validate() error {
	if c.Source == "" {
		return fmt.Errorf("source is required")
	}
	if len(c.FrameCounts) == 0 {
		return fmt.Errorf("at least one frame count is required")
	}
	for i, n := range c.FrameCounts {
		if n < 1 {
			return fmt.Errorf("frame_counts[%d]: must be positive, got %d", i, n)
		}
	}
	if c.OutputExt == "" {
		return fmt.Errorf("output_ext is required")
	}
	if c.CopyWorkers < 1 {
		return fmt.Errorf("copy_workers must be at least 1")
	}
	if c.Renderer.Binary == "" && c.Renderer.SourceDir == "" {
		return fmt.Errorf("renderer.binary or renderer.source_dir is required")
	}
	if c.Renderer.Timeout < 0 {
		return fmt.Errorf("renderer.timeout must not be negative")
	}

	return nil
}
