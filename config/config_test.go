package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	for _, k := range []string{"PORT", "ENV", "REDIS_URL", "TWITCH_MAX_MESSAGE_AGE", "ALERT_FORWARD_TIMEOUT", "KAFKA_BROKERS", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(k, "")
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.Server.Port != "4000" {
		t.Errorf("Expected default port 4000, got %s", cfg.Server.Port)
	}
	if cfg.Redis.URL != "redis://localhost:6379" {
		t.Errorf("Unexpected redis url %s", cfg.Redis.URL)
	}
	if cfg.Webhooks.TwitchMaxAge != 10*time.Minute {
		t.Errorf("Expected 10m max age, got %s", cfg.Webhooks.TwitchMaxAge)
	}
	if cfg.Alerts.ForwardTimeout != 5*time.Second {
		t.Errorf("Expected 5s forward timeout, got %s", cfg.Alerts.ForwardTimeout)
	}
	if len(cfg.Sinks.KafkaBrokers) != 0 {
		t.Errorf("Expected no kafka brokers, got %v", cfg.Sinks.KafkaBrokers)
	}
	if len(cfg.CORS.AllowedOrigins) != 1 || cfg.CORS.AllowedOrigins[0] != "http://localhost:3000" {
		t.Errorf("Unexpected CORS origins %v", cfg.CORS.AllowedOrigins)
	}
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("INTERNAL_API_SECRET", "")
	t.Setenv("ADMIN_PASSWORD_HASH", "")

	if _, err := Load(); err == nil {
		t.Fatal("Expected error when production secrets are missing")
	}

	t.Setenv("INTERNAL_API_SECRET", "s")
	t.Setenv("ADMIN_PASSWORD_HASH", "$2a$10$abcdefghijklmnopqrstuv")
	if _, err := Load(); err != nil {
		t.Fatalf("Expected production config to load, got %v", err)
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("TWITCH_MAX_MESSAGE_AGE", "ten minutes")
	if _, err := Load(); err == nil {
		t.Fatal("Expected error for invalid duration")
	}
}

func TestSplitList(t *testing.T) {
	got := splitList(" a:9092, ,b:9092,")
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Errorf("Unexpected split result %v", got)
	}
}
