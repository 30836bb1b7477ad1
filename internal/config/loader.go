package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load loads the daemon configuration.
// Search order: customPath -> ./configs/marchland.yaml -> embedded default.
// Files are overlaid on Default(), so a partial file overrides only the
// keys it sets.
func Load(customPath string) (Config, error) {
	cfg := Default()

	// Try custom path first
	if customPath != "" {
		data, err := os.ReadFile(customPath)
		if err != nil {
			return cfg, fmt.Errorf("failed to read config %s: %w", customPath, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("failed to parse config %s: %w", customPath, err)
		}
		return cfg, nil
	}

	// Try local configs directory
	if data, err := os.ReadFile("configs/marchland.yaml"); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err == nil {
			return cfg, nil
		}
	}

	// Use embedded default YAML
	if err := yaml.Unmarshal(defaultYAML, &cfg); err != nil {
		return Default(), nil // fall back to hardcoded if the embed fails
	}
	return cfg, nil
}
