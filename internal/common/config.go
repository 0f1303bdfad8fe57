package common

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/pelletier/go-toml/v2"
)

// Config represents the application configuration
type Config struct {
	Environment string          `toml:"environment"` // "development" or "production"
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	Crawler     CrawlerConfig   `toml:"crawler"`
	Claude      ClaudeConfig    `toml:"claude"`
	Pipeline    PipelineConfig  `toml:"pipeline"`
	Retention   RetentionConfig `toml:"retention"`
	Logging     LoggingConfig   `toml:"logging"`
}

type ServerConfig struct {
	Port int    `toml:"port"`
	Host string `toml:"host"`
}

type StorageConfig struct {
	Redis  RedisConfig  `toml:"redis"`
	Badger BadgerConfig `toml:"badger"`
}

// RedisConfig is the primary job store. An empty Addr disables Redis and
// jobs are held in the process-local fallback store only.
type RedisConfig struct {
	Addr     string `toml:"addr"`
	Password string `toml:"password"`
	DB       int    `toml:"db"`
}

// BadgerConfig configures the process-local fallback store used when Redis
// is unreachable. An empty Path keeps the fallback purely in memory.
type BadgerConfig struct {
	Path       string `toml:"path"`
	GCSchedule string `toml:"gc_schedule"` // cron spec for value-log GC, e.g. "@every 10m"
}

type CrawlerConfig struct {
	UserAgent       string `toml:"user_agent"`
	RequestTimeout  string `toml:"request_timeout"`   // e.g. "20s"
	RequestDelay    string `toml:"request_delay"`     // per-domain politeness delay, e.g. "500ms"
	JavaScriptWait  string `toml:"javascript_wait"`   // render settle time for JS pages
	MaxPages        int    `toml:"max_pages"`         // page budget for the main crawl
	MaxContentChars int    `toml:"max_content_chars"` // per-page content cap for prompts
}

// TimeoutDuration returns the parsed per-request timeout.
func (c CrawlerConfig) TimeoutDuration() time.Duration {
	return durationOr(c.RequestTimeout, 20*time.Second)
}

// DelayDuration returns the parsed per-domain politeness delay.
func (c CrawlerConfig) DelayDuration() time.Duration {
	return durationOr(c.RequestDelay, 500*time.Millisecond)
}

// JSWaitDuration returns the parsed headless-render settle time.
func (c CrawlerConfig) JSWaitDuration() time.Duration {
	return durationOr(c.JavaScriptWait, 3*time.Second)
}

type ClaudeConfig struct {
	APIKey      string  `toml:"api_key"`
	Model       string  `toml:"model"`
	MaxTokens   int     `toml:"max_tokens"`
	Temperature float32 `toml:"temperature"`
	Timeout     string  `toml:"timeout"` // e.g. "90s"
}

// PipelineConfig holds the tunables for the analysis pipeline.
type PipelineConfig struct {
	CompetitorCap          int    `toml:"competitor_cap"`           // max competitors per batch
	CompetitorGroupSize    int    `toml:"competitor_group_size"`    // concurrent workers per group
	InlineBatchTimeout     string `toml:"inline_batch_timeout"`     // outer timeout for the pre-completion batch
	CompetitorCrawlTimeout string `toml:"competitor_crawl_timeout"` // per-competitor homepage crawl timeout
	ProgressInterval       string `toml:"progress_interval"`        // min interval between crawl progress patches
}

// InlineTimeout returns the parsed outer timeout for the inline batch.
func (p PipelineConfig) InlineTimeout() time.Duration {
	return durationOr(p.InlineBatchTimeout, 60*time.Second)
}

// CrawlTimeout returns the parsed per-competitor crawl timeout.
func (p PipelineConfig) CrawlTimeout() time.Duration {
	return durationOr(p.CompetitorCrawlTimeout, 25*time.Second)
}

// ProgressPatchInterval returns the parsed minimum interval between crawl
// progress patches.
func (p PipelineConfig) ProgressPatchInterval() time.Duration {
	return durationOr(p.ProgressInterval, 500*time.Millisecond)
}

type RetentionConfig struct {
	Unpaid string `toml:"unpaid"` // job TTL before payment, e.g. "1h"
	Paid   string `toml:"paid"`   // job TTL after payment, e.g. "24h"
}

// UnpaidTTL returns the parsed pre-payment retention window.
func (r RetentionConfig) UnpaidTTL() time.Duration {
	return durationOr(r.Unpaid, time.Hour)
}

// PaidTTL returns the parsed post-payment retention window.
func (r RetentionConfig) PaidTTL() time.Duration {
	return durationOr(r.Paid, 24*time.Hour)
}

// durationOr parses a duration string, falling back when it is empty or
// unparseable. Validate rejects bad values at startup, so the fallback only
// covers zero-value configs in tests.
func durationOr(value string, fallback time.Duration) time.Duration {
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

type LoggingConfig struct {
	Level  string   `toml:"level"`  // "debug", "info", "warn", "error"
	Output []string `toml:"output"` // "stdout", "file"
}

// DefaultConfig returns the built-in defaults. Config files and environment
// variables override these.
func DefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Port: 8085,
			Host: "localhost",
		},
		Storage: StorageConfig{
			Redis: RedisConfig{
				Addr: "localhost:6379",
			},
			Badger: BadgerConfig{
				Path:       "./data/fallback",
				GCSchedule: "@every 10m",
			},
		},
		Crawler: CrawlerConfig{
			UserAgent:       "Copyscope/1.0 (+https://copyscope.io/bot)",
			RequestTimeout:  "20s",
			RequestDelay:    "500ms",
			JavaScriptWait:  "3s",
			MaxPages:        12,
			MaxContentChars: 6000,
		},
		Claude: ClaudeConfig{
			Model:     "claude-sonnet-4-20250514",
			MaxTokens: 8192,
			Timeout:   "90s",
		},
		Pipeline: PipelineConfig{
			CompetitorCap:          5,
			CompetitorGroupSize:    3,
			InlineBatchTimeout:     "60s",
			CompetitorCrawlTimeout: "25s",
			ProgressInterval:       "500ms",
		},
		Retention: RetentionConfig{
			Unpaid: "1h",
			Paid:   "24h",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Output: []string{"stdout"},
		},
	}
}

// LoadFromFiles loads configuration by merging defaults, the given TOML
// files in order, then environment variable overrides. Later files override
// earlier ones.
func LoadFromFiles(paths ...string) (*Config, error) {
	config := DefaultConfig()

	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies COPYSCOPE_* environment variables on top of the
// file-based configuration. Secrets are expected to arrive this way in
// production rather than living in config files.
func applyEnvOverrides(config *Config) {
	if v := os.Getenv("COPYSCOPE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.Server.Port = port
		}
	}
	if v := os.Getenv("COPYSCOPE_SERVER_HOST"); v != "" {
		config.Server.Host = v
	}
	if v := os.Getenv("COPYSCOPE_REDIS_ADDR"); v != "" {
		config.Storage.Redis.Addr = v
	}
	if v := os.Getenv("COPYSCOPE_REDIS_PASSWORD"); v != "" {
		config.Storage.Redis.Password = v
	}
	if v := os.Getenv("COPYSCOPE_BADGER_PATH"); v != "" {
		config.Storage.Badger.Path = v
	}
	if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("COPYSCOPE_CLAUDE_API_KEY"); v != "" {
		config.Claude.APIKey = v
	}
	if v := os.Getenv("COPYSCOPE_CLAUDE_MODEL"); v != "" {
		config.Claude.Model = v
	}
	if v := os.Getenv("COPYSCOPE_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("COPYSCOPE_ENVIRONMENT"); v != "" {
		config.Environment = v
	}
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Pipeline.CompetitorGroupSize <= 0 {
		return fmt.Errorf("pipeline competitor_group_size must be positive, got %d", c.Pipeline.CompetitorGroupSize)
	}
	if c.Pipeline.CompetitorCap < c.Pipeline.CompetitorGroupSize {
		return fmt.Errorf("pipeline competitor_cap (%d) must be >= competitor_group_size (%d)",
			c.Pipeline.CompetitorCap, c.Pipeline.CompetitorGroupSize)
	}
	for name, value := range map[string]string{
		"crawler.request_timeout":           c.Crawler.RequestTimeout,
		"crawler.request_delay":             c.Crawler.RequestDelay,
		"crawler.javascript_wait":           c.Crawler.JavaScriptWait,
		"pipeline.inline_batch_timeout":     c.Pipeline.InlineBatchTimeout,
		"pipeline.competitor_crawl_timeout": c.Pipeline.CompetitorCrawlTimeout,
		"pipeline.progress_interval":        c.Pipeline.ProgressInterval,
		"retention.unpaid":                  c.Retention.Unpaid,
		"retention.paid":                    c.Retention.Paid,
		"claude.timeout":                    c.Claude.Timeout,
	} {
		if value == "" {
			continue
		}
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid duration for %s: '%s'", name, value)
		}
	}
	if c.Retention.UnpaidTTL() <= 0 || c.Retention.PaidTTL() <= 0 {
		return fmt.Errorf("retention windows must be positive")
	}
	return nil
}
