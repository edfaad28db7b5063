package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Gateway.Port != 18890 {
		t.Errorf("default port = %d, want 18890", cfg.Gateway.Port)
	}
	if cfg.EventLog.Capacity != 4096 {
		t.Errorf("default capacity = %d, want 4096", cfg.EventLog.Capacity)
	}
	if cfg.DispatchTimeout() != 120*time.Second {
		t.Errorf("default dispatch timeout = %s, want 2m", cfg.DispatchTimeout())
	}

	sched, ok := cfg.Schedules["midjourney"]
	if !ok {
		t.Fatal("default midjourney schedule missing")
	}
	if sched.Enabled {
		t.Error("default schedule must start disabled")
	}
	if sched.MinIntervalSeconds >= sched.MaxIntervalSeconds {
		t.Errorf("default window [%d,%d] not a range", sched.MinIntervalSeconds, sched.MaxIntervalSeconds)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Gateway.Port != 18890 {
		t.Errorf("port = %d, want default", cfg.Gateway.Port)
	}
}

func TestSaveLoadRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Gateway.Port = 9999
	cfg.Schedules["midjourney"] = ScheduleConfig{
		Enabled:            true,
		MinIntervalSeconds: 60,
		MaxIntervalSeconds: 120,
		Prompt:             "imagine the deep",
	}

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded.Gateway.Port != 9999 {
		t.Errorf("port = %d, want 9999", loaded.Gateway.Port)
	}
	if !loaded.Schedules["midjourney"].Enabled {
		t.Error("schedule enablement lost")
	}
}

func TestEnvOverride(t *testing.T) {
	t.Setenv("TINYPIRATE_GATEWAY_PORT", "7777")
	t.Setenv("TINYPIRATE_LOG_LEVEL", "debug")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.json"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Gateway.Port != 7777 {
		t.Errorf("port = %d, want env override 7777", cfg.Gateway.Port)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("log level = %q, want env override", cfg.Log.Level)
	}
}

func TestArchivePathDefaultsUnderDataDir(t *testing.T) {
	cfg := DefaultConfig()
	cfg.DataDir = "/var/lib/tinypirate"

	if got := cfg.ArchivePath(); got != "/var/lib/tinypirate/events.db" {
		t.Errorf("ArchivePath() = %q", got)
	}

	cfg.EventLog.ArchivePath = "/tmp/other.db"
	if got := cfg.ArchivePath(); got != "/tmp/other.db" {
		t.Errorf("explicit ArchivePath() = %q", got)
	}
}
