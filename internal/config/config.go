// Package config owns on-disk configuration for the router daemon.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"
)

type RouterConfig struct {
	MirrorCapacity  int          `toml:"mirror_capacity"`
	PollIntervalMS  int          `toml:"poll_interval_ms"`
	DefaultPriority uint         `toml:"default_priority"`
	Bridge          BridgeConfig `toml:"bridge"`
}

type BridgeConfig struct {
	Enabled bool   `toml:"enabled"`
	Listen  string `toml:"listen"`
	Peer    string `toml:"peer"`
}

func DefaultRouterConfig() RouterConfig {
	return RouterConfig{
		MirrorCapacity: 8,
		PollIntervalMS: 100,
	}
}

func LoadRouterConfig(path string) (RouterConfig, error) {
	cfg := DefaultRouterConfig()
	if err := loadToml(path, &cfg); err != nil {
		return RouterConfig{}, err
	}
	if err := ValidateRouterConfig(cfg); err != nil {
		return RouterConfig{}, err
	}
	return cfg, nil
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateRouterConfig(cfg RouterConfig) error {
	if cfg.MirrorCapacity <= 0 {
		return fmt.Errorf("router config: mirror_capacity must be positive")
	}
	if cfg.PollIntervalMS <= 0 {
		return fmt.Errorf("router config: poll_interval_ms must be positive")
	}
	if cfg.Bridge.Enabled {
		if strings.TrimSpace(cfg.Bridge.Listen) == "" {
			return fmt.Errorf("router config: bridge.listen required when bridge is enabled")
		}
	}
	return nil
}

// PollInterval converts the configured poll period to a duration.
func (c RouterConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}
