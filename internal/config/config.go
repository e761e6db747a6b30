package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	RedisURL           string
	CORSAllowedOrigins []string

	// Vision extraction.
	OpenAIAPIKey   string
	OpenAIBaseURL  string
	OpenAIModel    string
	ExtractTimeout time.Duration

	// Session lifecycle.
	SessionTTL     time.Duration
	LockTTL        time.Duration
	IdempotencyTTL time.Duration

	// Upload guardrails for the analyze endpoint.
	MaxImageBytes     int64
	AnalyzeRateWindow time.Duration
	AnalyzeRateMax    int

	// Global per-IP limit, in ulule/limiter format (e.g. "60-M").
	APIRateLimit string
}

// Load reads configuration from environment variables and optional .env files.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		RedisURL:           k.String("REDIS_URL"),
		CORSAllowedOrigins: splitAndTrim(k.String("CORS_ALLOWED_ORIGINS")),
		OpenAIAPIKey:       k.String("OPENAI_API_KEY"),
		OpenAIBaseURL:      valueOrDefault(k.String("OPENAI_BASE_URL"), "https://api.openai.com/v1"),
		OpenAIModel:        valueOrDefault(k.String("OPENAI_MODEL"), "gpt-4o"),
		ExtractTimeout:     parseDuration(k.String("EXTRACT_TIMEOUT"), "60s"),
		SessionTTL:         parseDuration(k.String("SESSION_TTL"), "1h"),
		LockTTL:            parseDuration(k.String("SESSION_LOCK_TTL"), "5s"),
		IdempotencyTTL:     parseDuration(k.String("IDEMPOTENCY_TTL"), "10m"),
		MaxImageBytes:      int64(k.Int("ANALYZE_MAX_IMAGE_BYTES")),
		AnalyzeRateWindow:  parseDuration(k.String("ANALYZE_RATE_WINDOW"), "1m"),
		AnalyzeRateMax:     k.Int("ANALYZE_RATE_MAX"),
		APIRateLimit:       valueOrDefault(k.String("API_RATE_LIMIT"), "120-M"),
	}

	if cfg.MaxImageBytes <= 0 {
		cfg.MaxImageBytes = 10 << 20
	}
	if cfg.AnalyzeRateMax <= 0 {
		cfg.AnalyzeRateMax = 10
	}

	if cfg.RedisURL == "" {
		return nil, errors.New("REDIS_URL is required")
	}
	if cfg.OpenAIAPIKey == "" {
		return nil, errors.New("OPENAI_API_KEY is required")
	}

	return cfg, nil
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseDuration(value, fallback string) time.Duration {
	base := strings.TrimSpace(value)
	if base == "" {
		base = fallback
	}
	d, err := time.ParseDuration(base)
	if err != nil {
		d, _ = time.ParseDuration(fallback)
	}
	return d
}

// LoadForTests allows tests to override environment variables without touching the real environment.
func LoadForTests(env map[string]string) (*Config, error) {
	original := make(map[string]string, len(env))
	for key := range env {
		original[key] = os.Getenv(key)
		if err := setEnvVar(key, env[key]); err != nil {
			return nil, err
		}
	}
	cfg, err := Load()
	restoreErr := restoreEnv(original)
	if err != nil {
		return nil, err
	}
	return cfg, restoreErr
}

func setEnvVar(key, value string) error {
	if value == "" {
		return os.Unsetenv(key)
	}
	return os.Setenv(key, value)
}

func restoreEnv(values map[string]string) error {
	var errs []string
	for key, value := range values {
		if err := setEnvVar(key, value); err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", key, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("restore env: %s", strings.Join(errs, "; "))
	}
	return nil
}
