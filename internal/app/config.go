package app

import (
	"os"
	"time"
)

type Config struct {
	HTTPAddr      string
	PublicBaseURL string
	DatabaseURL   string // optional: enables the session_events audit trail
	SentryDSN     string
	LogLevel      string

	// Render worker channels, one per screen position
	WorkerLeftURL   string
	WorkerRightURL  string
	DispatchTimeout time.Duration

	// Session behavior
	DefaultLanguage string
	EventKeepalive  time.Duration
	SessionTTL      time.Duration
	JanitorInterval time.Duration

	// Notifications
	DiscordWebhookURL string
}

func LoadConfigFromEnv() Config {
	return Config{
		HTTPAddr:      getenv("HTTP_ADDR", ":8004"),
		PublicBaseURL: getenv("PUBLIC_BASE_URL", "http://localhost:8004"),
		DatabaseURL:   getenv("DATABASE_URL", ""),
		SentryDSN:     getenv("SENTRY_DSN", ""),
		LogLevel:      getenv("LOG_LEVEL", "info"),

		WorkerLeftURL:   getenv("WORKER_LEFT_URL", "http://localhost:5678/webhook/worker/left/run"),
		WorkerRightURL:  getenv("WORKER_RIGHT_URL", "http://localhost:5678/webhook/worker/right/run"),
		DispatchTimeout: getenvDuration("DISPATCH_TIMEOUT", 5*time.Second),

		DefaultLanguage: getenv("DEFAULT_LANGUAGE", "English"),
		EventKeepalive:  getenvDuration("EVENT_KEEPALIVE", 30*time.Second),
		SessionTTL:      getenvDuration("SESSION_TTL", 2*time.Hour),
		JanitorInterval: getenvDuration("JANITOR_INTERVAL", 10*time.Minute),

		DiscordWebhookURL: getenv("DISCORD_WEBHOOK_URL", ""),
	}
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
