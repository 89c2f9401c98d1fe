package app

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":8004" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8004")
	}
	if cfg.WorkerLeftURL != "http://localhost:5678/webhook/worker/left/run" {
		t.Errorf("WorkerLeftURL = %q", cfg.WorkerLeftURL)
	}
	if cfg.WorkerRightURL != "http://localhost:5678/webhook/worker/right/run" {
		t.Errorf("WorkerRightURL = %q", cfg.WorkerRightURL)
	}
	if cfg.DispatchTimeout != 5*time.Second {
		t.Errorf("DispatchTimeout = %v, want 5s", cfg.DispatchTimeout)
	}
	if cfg.DefaultLanguage != "English" {
		t.Errorf("DefaultLanguage = %q, want English", cfg.DefaultLanguage)
	}
	if cfg.EventKeepalive != 30*time.Second {
		t.Errorf("EventKeepalive = %v, want 30s", cfg.EventKeepalive)
	}
	if cfg.SessionTTL != 2*time.Hour {
		t.Errorf("SessionTTL = %v, want 2h", cfg.SessionTTL)
	}
	if cfg.JanitorInterval != 10*time.Minute {
		t.Errorf("JanitorInterval = %v, want 10m", cfg.JanitorInterval)
	}
	if cfg.DatabaseURL != "" || cfg.SentryDSN != "" || cfg.DiscordWebhookURL != "" {
		t.Error("optional integrations should default to disabled")
	}
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9100")
	t.Setenv("WORKER_LEFT_URL", "http://workers.internal/left")
	t.Setenv("DISPATCH_TIMEOUT", "750ms")
	t.Setenv("DEFAULT_LANGUAGE", "Spanish")
	t.Setenv("SESSION_TTL", "45m")

	cfg := LoadConfigFromEnv()

	if cfg.HTTPAddr != ":9100" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":9100")
	}
	if cfg.WorkerLeftURL != "http://workers.internal/left" {
		t.Errorf("WorkerLeftURL = %q", cfg.WorkerLeftURL)
	}
	if cfg.DispatchTimeout != 750*time.Millisecond {
		t.Errorf("DispatchTimeout = %v, want 750ms", cfg.DispatchTimeout)
	}
	if cfg.DefaultLanguage != "Spanish" {
		t.Errorf("DefaultLanguage = %q, want Spanish", cfg.DefaultLanguage)
	}
	if cfg.SessionTTL != 45*time.Minute {
		t.Errorf("SessionTTL = %v, want 45m", cfg.SessionTTL)
	}
}

func TestGetenvDuration(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"unset", "", 5 * time.Second},
		{"valid", "2m", 2 * time.Minute},
		{"garbage", "soon", 5 * time.Second},
		{"negative", "-1s", 5 * time.Second},
		{"zero", "0s", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.value != "" {
				t.Setenv("TEST_DURATION", tt.value)
			}
			if got := getenvDuration("TEST_DURATION", 5*time.Second); got != tt.want {
				t.Errorf("getenvDuration(%q) = %v, want %v", tt.value, got, tt.want)
			}
		})
	}
}
