package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the server-level configuration loaded from YAML.
type Config struct {
	Addr       string    `yaml:"addr"`
	DataDir    string    `yaml:"data_dir"`
	Difficulty string    `yaml:"difficulty"` // "", "casual" or "hard"
	Balance    *Balance  `yaml:"balance"`    // full override; nil = use preset
	Formatter  Formatter `yaml:"formatter"`
}

// Formatter configures display formatting.
type Formatter struct {
	Scientific                  bool `yaml:"scientific"`
	ScientificThresholdExponent int  `yaml:"scientific_threshold_exponent"`
}

// Load reads the YAML config at path. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{
		Addr:    ":8714",
		DataDir: "data",
	}

	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8714"
	}
	if cfg.DataDir == "" {
		cfg.DataDir = "data"
	}
	return cfg, nil
}

// EffectiveBalance resolves the balance from an explicit override, the
// difficulty preset, or the environment, in that order.
func (c *Config) EffectiveBalance() Balance {
	if c.Balance != nil {
		return *c.Balance
	}
	switch c.Difficulty {
	case "casual":
		return Casual()
	case "hard":
		return Hard()
	}
	return FromEnv()
}
