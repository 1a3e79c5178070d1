package config_test

import (
	"testing"
	"time"

	"github.com/lululufr/Discord-CTFtime-event/internal/config"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("DISCORD_TOKEN", "token")
	t.Setenv("SERVER_ID", "1")
	t.Setenv("CHANNEL_ID", "2")
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.CheckInterval != 30*time.Second {
		t.Errorf("CheckInterval = %v, want 30s", cfg.CheckInterval)
	}
	if cfg.DeepEvent != 15 {
		t.Errorf("DeepEvent = %d, want 15", cfg.DeepEvent)
	}
	if cfg.DBPath != "data/events.db" {
		t.Errorf("DBPath = %q", cfg.DBPath)
	}
	if cfg.Location == nil || cfg.Location.String() != "Europe/Paris" {
		t.Errorf("Location = %v, want Europe/Paris", cfg.Location)
	}
	if cfg.OKEmoji == "" || cfg.MaybeEmoji == "" || cfg.NotEmoji == "" {
		t.Error("default emojis must be set")
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("CHECK_INTERVAL", "120")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("OK_EMOJI", "👍")

	cfg, err := config.FromEnv()
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}
	if cfg.CheckInterval != 2*time.Minute {
		t.Errorf("CheckInterval = %v, want 2m", cfg.CheckInterval)
	}
	if cfg.Location != time.UTC {
		t.Errorf("Location = %v, want UTC", cfg.Location)
	}
	if cfg.OKEmoji != "👍" {
		t.Errorf("OKEmoji = %q", cfg.OKEmoji)
	}
}

func TestFromEnvMissingToken(t *testing.T) {
	t.Setenv("DISCORD_TOKEN", "")
	t.Setenv("SERVER_ID", "1")
	t.Setenv("CHANNEL_ID", "2")

	if _, err := config.FromEnv(); err == nil {
		t.Error("FromEnv with empty token = nil error, want failure")
	}
}

func TestFromEnvBadTimezone(t *testing.T) {
	setRequired(t)
	t.Setenv("TIMEZONE", "Mars/Olympus_Mons")

	if _, err := config.FromEnv(); err == nil {
		t.Error("FromEnv with bad timezone = nil error, want failure")
	}
}
