package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))

	var cfg AppConfig
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)

	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Gas.LimitMargin == 0 {
		cfg.Gas.LimitMargin = 1.2
	}
	if cfg.Gas.FeeMultiplier == 0 {
		cfg.Gas.FeeMultiplier = 1.0
	}
	if cfg.Gas.PriorityTipGwei == 0 {
		cfg.Gas.PriorityTipGwei = 1
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
}
