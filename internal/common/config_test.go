package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
}

func TestLoadFromFilesMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "copyscope.toml")

	content := `
[server]
port = 9090

[pipeline]
competitor_cap = 4
competitor_group_size = 2
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	config, err := LoadFromFiles(path)
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if config.Server.Port != 9090 {
		t.Errorf("Port = %d, want 9090", config.Server.Port)
	}
	if config.Pipeline.CompetitorCap != 4 {
		t.Errorf("CompetitorCap = %d, want 4", config.Pipeline.CompetitorCap)
	}
	// Untouched sections keep defaults.
	if config.Retention.UnpaidTTL() != time.Hour {
		t.Errorf("Retention.Unpaid = %v, want 1h", config.Retention.Unpaid)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("COPYSCOPE_SERVER_PORT", "7777")
	t.Setenv("COPYSCOPE_REDIS_ADDR", "redis.internal:6379")

	config, err := LoadFromFiles()
	if err != nil {
		t.Fatalf("LoadFromFiles: %v", err)
	}

	if config.Server.Port != 7777 {
		t.Errorf("Port = %d, want env override 7777", config.Server.Port)
	}
	if config.Storage.Redis.Addr != "redis.internal:6379" {
		t.Errorf("Redis.Addr = %s, want env override", config.Storage.Redis.Addr)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero port", func(c *Config) { c.Server.Port = 0 }},
		{"zero group size", func(c *Config) { c.Pipeline.CompetitorGroupSize = 0 }},
		{"cap below group size", func(c *Config) { c.Pipeline.CompetitorCap = 1; c.Pipeline.CompetitorGroupSize = 3 }},
		{"bad retention duration", func(c *Config) { c.Retention.Unpaid = "soonish" }},
		{"bad claude timeout", func(c *Config) { c.Claude.Timeout = "soon" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.mutate(config)
			if err := config.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}
