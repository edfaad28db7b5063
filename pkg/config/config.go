package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
)

type GatewayConfig struct {
	Host   string `json:"host" env:"TINYPIRATE_GATEWAY_HOST"`
	Port   int    `json:"port" env:"TINYPIRATE_GATEWAY_PORT"`
	APIKey string `json:"api_key" env:"TINYPIRATE_GATEWAY_API_KEY"`
}

type EventLogConfig struct {
	// Capacity bounds the in-memory ring. Older events are evicted past
	// the floor watermark; the archive keeps full history.
	Capacity    int    `json:"capacity" env:"TINYPIRATE_EVENTLOG_CAPACITY"`
	ArchivePath string `json:"archive_path" env:"TINYPIRATE_EVENTLOG_ARCHIVE_PATH"`
}

type DispatchConfig struct {
	Workers        int `json:"workers" env:"TINYPIRATE_DISPATCH_WORKERS"`
	TimeoutSeconds int `json:"timeout_seconds" env:"TINYPIRATE_DISPATCH_TIMEOUT_SECONDS"`
}

// ScheduleConfig drives one autonomous capability. Interval schedules fire
// at a uniformly random instant between min and max after the previous
// fire; cron schedules fire when the expression becomes due.
type ScheduleConfig struct {
	Enabled            bool   `json:"enabled"`
	MinIntervalSeconds int    `json:"min_interval_seconds"`
	MaxIntervalSeconds int    `json:"max_interval_seconds"`
	Cron               string `json:"cron,omitempty"`
	Prompt             string `json:"prompt"`
}

// AutomationConfig describes one external automation capability driven
// over the local bridge endpoint (e.g. a browser-automation driver).
type AutomationConfig struct {
	Endpoint       string `json:"endpoint"`
	Resource       string `json:"resource"`
	TimeoutSeconds int    `json:"timeout_seconds"`
}

type RateLimitsConfig struct {
	MaxSubmitsPerMinute int `json:"max_submits_per_minute" env:"TINYPIRATE_RATE_LIMITS_MAX_SUBMITS_PER_MINUTE"` // 0 = unlimited
}

type LogConfig struct {
	Level string `json:"level" env:"TINYPIRATE_LOG_LEVEL"`
	File  string `json:"file" env:"TINYPIRATE_LOG_FILE"`
}

type Config struct {
	Gateway     GatewayConfig               `json:"gateway"`
	EventLog    EventLogConfig              `json:"event_log"`
	Dispatch    DispatchConfig              `json:"dispatch"`
	Schedules   map[string]ScheduleConfig   `json:"schedules"`
	Automations map[string]AutomationConfig `json:"automations"`
	RateLimits  RateLimitsConfig            `json:"rate_limits"`
	Log         LogConfig                   `json:"log"`
	DataDir     string                      `json:"data_dir" env:"TINYPIRATE_DATA_DIR"`
	mu          sync.RWMutex
}

func DefaultConfig() *Config {
	return &Config{
		Gateway: GatewayConfig{
			Host: "127.0.0.1",
			Port: 18890,
		},
		EventLog: EventLogConfig{
			Capacity: 4096,
		},
		Dispatch: DispatchConfig{
			Workers:        4,
			TimeoutSeconds: 120,
		},
		Schedules: map[string]ScheduleConfig{
			"midjourney": {
				Enabled:            false,
				MinIntervalSeconds: 1800,
				MaxIntervalSeconds: 3600,
				Prompt:             "imagine something new",
			},
		},
		Automations: map[string]AutomationConfig{
			"midjourney": {
				Endpoint:       "http://127.0.0.1:18891/invoke",
				Resource:       "browser",
				TimeoutSeconds: 90,
			},
		},
		RateLimits: RateLimitsConfig{
			MaxSubmitsPerMinute: 60,
		},
		Log: LogConfig{
			Level: "info",
		},
		DataDir: "~/.tinypirate",
	}
}

func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("invalid config %s: %w", path, err)
		}
	case os.IsNotExist(err):
		// Missing file is fine; defaults plus environment apply.
	default:
		return nil, err
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func SaveConfig(path string, cfg *Config) error {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// DispatchTimeout returns the bound applied to a single handler invocation.
func (c *Config) DispatchTimeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.Dispatch.TimeoutSeconds <= 0 {
		return 120 * time.Second
	}
	return time.Duration(c.Dispatch.TimeoutSeconds) * time.Second
}

func (c *Config) DataPath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return expandHome(c.DataDir)
}

// ArchivePath resolves the event archive location, defaulting under the
// data dir when unset.
func (c *Config) ArchivePath() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.EventLog.ArchivePath != "" {
		return expandHome(c.EventLog.ArchivePath)
	}
	return filepath.Join(expandHome(c.DataDir), "events.db")
}

func expandHome(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		home, _ := os.UserHomeDir()
		if len(path) > 1 && path[1] == '/' {
			return home + path[1:]
		}
		return home
	}
	return path
}
