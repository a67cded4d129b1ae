package config

import (
	"testing"
	"time"
)

func TestDefaultsAreValid(t *testing.T) {
	GetEnv = func(string) string { return "" }
	cfg := NewConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if cfg.ServerURL != "http://localhost:8000" {
		t.Fatalf("unexpected default server url: %q", cfg.ServerURL)
	}
}

func TestEnvOverrides(t *testing.T) {
	GetEnv = func(key string) string {
		switch key {
		case "OMNIBOT_URL":
			return "http://example.com:9000"
		case "OMNICHAT_STORE":
			return "~/custom/threads.json"
		case "HOME":
			return "/home/maria"
		}
		return ""
	}
	defer func() { GetEnv = func(string) string { return "" } }()

	cfg := NewConfig()
	if cfg.ServerURL != "http://example.com:9000" {
		t.Fatalf("env server url not applied: %q", cfg.ServerURL)
	}
	if cfg.StorePath != "/home/maria/custom/threads.json" {
		t.Fatalf("store path not expanded: %q", cfg.StorePath)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	GetEnv = func(string) string { return "" }

	cfg := NewConfig()
	cfg.ServerURL = ""
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for empty server url")
	}

	cfg = NewConfig()
	cfg.StreamTimeout = 100 * time.Millisecond
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for sub-second stream timeout")
	}
}
