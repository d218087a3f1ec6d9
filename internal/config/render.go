package config

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// Render renders the effective configuration in the same layout a
// config file uses, so the output can be saved and passed back with --config.
func (cfg *Config) Render() ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}
	return data, nil
}
