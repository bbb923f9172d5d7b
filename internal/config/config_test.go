package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "router.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadRouterConfig(t *testing.T) {
	path := writeConfig(t, `
mirror_capacity = 4
poll_interval_ms = 50
default_priority = 2

[bridge]
enabled = true
listen = ":7700"
peer = "10.0.0.2:7700"
`)
	cfg, err := LoadRouterConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.MirrorCapacity != 4 {
		t.Fatalf("mirror_capacity = %d, want 4", cfg.MirrorCapacity)
	}
	if cfg.PollInterval() != 50*time.Millisecond {
		t.Fatalf("poll interval = %v, want 50ms", cfg.PollInterval())
	}
	if cfg.DefaultPriority != 2 {
		t.Fatalf("default_priority = %d, want 2", cfg.DefaultPriority)
	}
	if !cfg.Bridge.Enabled || cfg.Bridge.Listen != ":7700" || cfg.Bridge.Peer != "10.0.0.2:7700" {
		t.Fatalf("bridge config = %+v", cfg.Bridge)
	}
}

func TestLoadRouterConfigDefaults(t *testing.T) {
	path := writeConfig(t, "")
	cfg, err := LoadRouterConfig(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	want := DefaultRouterConfig()
	if cfg.MirrorCapacity != want.MirrorCapacity || cfg.PollIntervalMS != want.PollIntervalMS {
		t.Fatalf("defaults not applied: %+v", cfg)
	}
	if cfg.Bridge.Enabled {
		t.Fatalf("bridge enabled by default")
	}
}

func TestLoadRouterConfigRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"zero capacity":         "mirror_capacity = 0",
		"negative poll":         "poll_interval_ms = -5",
		"bridge without listen": "[bridge]\nenabled = true",
		"unparsable":            "mirror_capacity = {",
	}
	for name, body := range cases {
		if _, err := LoadRouterConfig(writeConfig(t, body)); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestLoadRouterConfigMissingFile(t *testing.T) {
	if _, err := LoadRouterConfig(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
