package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and overlays it on the defaults.
// A missing file is not an error; the defaults are returned unchanged so the
// client can run without any configuration on disk.
//
// Parameters:
//   - path: config file path; empty or nonexistent yields Default()
//
// Returns:
//   - *Config: merged configuration
//   - error: error if the file exists but cannot be read or parsed
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
