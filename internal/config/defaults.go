package config

import (
	_ "embed"

	"marchland/internal/caravan"
	"marchland/internal/settlement"
	"marchland/internal/terrain"
)

//go:embed defaults/marchland.yaml
var defaultYAML []byte

// Default returns the hardcoded configuration. The embedded
// defaults/marchland.yaml mirrors these values.
func Default() Config {
	return Config{
		World:       terrain.DefaultGenConfig(),
		Settlements: settlement.DefaultPlaceConfig(),
		Caravans:    caravan.DefaultConfig(),
		Clock: ClockConfig{
			TickMillis:    1000,
			Speed:         1.0,
			AutosaveEvery: 60,
		},
		API: APIConfig{
			Addr:      ":8080",
			RateLimit: 120,
		},
		Storage: StorageConfig{
			Path: "marchland.db",
		},
		LogLevel: "info",
	}
}
