package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Redis    RedisConfig
	Webhooks WebhookConfig
	Alerts   AlertsConfig
	Auth     AuthConfig
	Database DatabaseConfig
	Sinks    SinkConfig
	API      APIConfig
	CORS     CORSConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type RedisConfig struct {
	URL string
}

type WebhookConfig struct {
	PolarSecret     string
	TwitchSecret    string
	TwitchMaxAge    time.Duration
	TwitchDedupeTTL time.Duration
	MaxBodyBytes    int64
}

type AlertsConfig struct {
	// ServiceURL is the remote alert gateway. Empty means forward in-process.
	ServiceURL     string
	ForwardTimeout time.Duration
}

type AuthConfig struct {
	InternalSecret    string
	ServiceTokenTTL   time.Duration
	AdminUsername     string
	AdminPasswordHash string
}

type DatabaseConfig struct {
	URL string
}

type SinkConfig struct {
	KafkaBrokers  []string
	KafkaTopic    string
	KinesisStream string
	AWSRegion     string
}

type APIConfig struct {
	RateLimitRequestsPerSec int
}

type CORSConfig struct {
	AllowedOrigins []string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	twitchMaxAge, err := time.ParseDuration(getEnv("TWITCH_MAX_MESSAGE_AGE", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid TWITCH_MAX_MESSAGE_AGE: %w", err)
	}

	forwardTimeout, err := time.ParseDuration(getEnv("ALERT_FORWARD_TIMEOUT", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid ALERT_FORWARD_TIMEOUT: %w", err)
	}

	tokenTTL, err := strconv.Atoi(getEnv("SERVICE_TOKEN_TTL_MINUTES", "5"))
	if err != nil {
		tokenTTL = 5
	}

	rateLimit, err := strconv.Atoi(getEnv("RATE_LIMIT_REQUESTS_PER_SECOND", "20"))
	if err != nil {
		rateLimit = 20
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("PORT", "4000"),
			Env:  getEnv("ENV", "development"),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", "redis://localhost:6379"),
		},
		Webhooks: WebhookConfig{
			PolarSecret:     os.Getenv("POLAR_WEBHOOK_SECRET"),
			TwitchSecret:    os.Getenv("TWITCH_WEBHOOK_SECRET"),
			TwitchMaxAge:    twitchMaxAge,
			TwitchDedupeTTL: 10 * time.Minute,
			MaxBodyBytes:    1 << 20,
		},
		Alerts: AlertsConfig{
			ServiceURL:     os.Getenv("ALERTS_SERVICE_URL"),
			ForwardTimeout: forwardTimeout,
		},
		Auth: AuthConfig{
			InternalSecret:    os.Getenv("INTERNAL_API_SECRET"),
			ServiceTokenTTL:   time.Duration(tokenTTL) * time.Minute,
			AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
			AdminPasswordHash: os.Getenv("ADMIN_PASSWORD_HASH"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Sinks: SinkConfig{
			KafkaBrokers:  splitList(os.Getenv("KAFKA_BROKERS")),
			KafkaTopic:    getEnv("KAFKA_TOPIC", "relay-events"),
			KinesisStream: os.Getenv("KINESIS_STREAM"),
			AWSRegion:     getEnv("AWS_REGION", "us-east-1"),
		},
		API: APIConfig{
			RateLimitRequestsPerSec: rateLimit,
		},
		CORS: CORSConfig{
			AllowedOrigins: splitList(getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000")),
		},
	}

	// Validate required fields
	if cfg.Server.Env == "production" {
		if cfg.Auth.InternalSecret == "" {
			return nil, fmt.Errorf("INTERNAL_API_SECRET must be set in production")
		}
		if cfg.Auth.AdminPasswordHash == "" {
			return nil, fmt.Errorf("ADMIN_PASSWORD_HASH must be set in production")
		}
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
