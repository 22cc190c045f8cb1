package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadExpandsEnv(t *testing.T) {
	t.Setenv("YAKBOT_TEST_KEY", "lin_api_sekrit")

	path := filepath.Join(t.TempDir(), "yakbot.yaml")
	data := []byte("linear:\n  api_key: ${YAKBOT_TEST_KEY}\nlog_level: debug\n")
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Linear.APIKey != "lin_api_sekrit" {
		t.Errorf("Linear.APIKey = %q, want expanded env value", cfg.Linear.APIKey)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want %q", cfg.LogLevel, "debug")
	}
}

func TestLoadKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "yakbot.yaml")
	if err := os.WriteFile(path, []byte("listen:\n  port: 9999\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Listen.Port != 9999 {
		t.Errorf("Listen.Port = %d, want 9999", cfg.Listen.Port)
	}
	if cfg.Agent.MaxIterations != 8 {
		t.Errorf("Agent.MaxIterations = %d, want default 8", cfg.Agent.MaxIterations)
	}
	if cfg.Digest.StaleThreshold != 3 {
		t.Errorf("Digest.StaleThreshold = %d, want default 3", cfg.Digest.StaleThreshold)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for missing credentials")
	}

	cfg.Linear.APIKey = "lin_api_x"
	cfg.Anthropic.APIKey = "sk-ant-x"
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error: %v", err)
	}

	cfg.Digest.Hour = 24
	if err := cfg.Validate(); err == nil {
		t.Error("Validate() = nil, want error for digest.hour out of range")
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    slog.Level
		wantErr bool
	}{
		{"", slog.LevelInfo, false},
		{"info", slog.LevelInfo, false},
		{"TRACE", LevelTrace, false},
		{"debug", slog.LevelDebug, false},
		{" warn ", slog.LevelWarn, false},
		{"warning", slog.LevelWarn, false},
		{"error", slog.LevelError, false},
		{"loud", slog.LevelInfo, true},
	}

	for _, tt := range tests {
		got, err := ParseLogLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseLogLevel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseLogLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
