package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds validated environment configuration for the coordinator.
type Config struct {
	// Required variables
	GeminiAPIKey string

	// Optional variables with defaults
	Port        string
	GoEnv       string
	LogLevel    string
	FrontendURL string

	TickInterval time.Duration

	// Rate limits (Defaults: M = Minute, H = Hour)
	RateLimitInputUpdate    string
	RateLimitApplauseUpdate string
}

// ValidateEnv validates all required environment variables and returns a Config.
// Returns an error if any required variable is missing or invalid.
func ValidateEnv() (*Config, error) {
	cfg := &Config{}
	var errs []string

	// Required: GEMINI_API_KEY — absence is fatal at startup per spec §6.
	cfg.GeminiAPIKey = os.Getenv("GEMINI_API_KEY")
	if cfg.GeminiAPIKey == "" {
		errs = append(errs, "GEMINI_API_KEY is required")
	}

	// Optional: PORT (defaults to 8080)
	cfg.Port = getEnvOrDefault("PORT", "8080")
	if port, err := strconv.Atoi(cfg.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("PORT must be a valid port number between 1 and 65535 (got '%s')", cfg.Port))
	}

	// Optional: FRONTEND_URL (defaults to "*")
	cfg.FrontendURL = getEnvOrDefault("FRONTEND_URL", "*")

	cfg.GoEnv = getEnvOrDefault("GO_ENV", "production")
	cfg.LogLevel = getEnvOrDefault("LOG_LEVEL", "info")

	tickMs, err := strconv.Atoi(getEnvOrDefault("TICK_INTERVAL_MS", "4000"))
	if err != nil || tickMs <= 0 {
		errs = append(errs, fmt.Sprintf("TICK_INTERVAL_MS must be a positive integer (got '%s')", os.Getenv("TICK_INTERVAL_MS")))
	} else {
		cfg.TickInterval = time.Duration(tickMs) * time.Millisecond
	}

	cfg.RateLimitInputUpdate = getEnvOrDefault("RATE_LIMIT_INPUT_UPDATE", "20-M")
	cfg.RateLimitApplauseUpdate = getEnvOrDefault("RATE_LIMIT_APPLAUSE_UPDATE", "60-M")

	if len(errs) > 0 {
		return nil, fmt.Errorf("environment validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}

	logValidatedConfig(cfg)

	return cfg, nil
}

// logValidatedConfig logs the validated configuration with secrets redacted.
func logValidatedConfig(cfg *Config) {
	slog.Info("environment configuration validated",
		"gemini_api_key", redactSecret(cfg.GeminiAPIKey),
		"port", cfg.Port,
		"frontend_url", cfg.FrontendURL,
		"go_env", cfg.GoEnv,
		"log_level", cfg.LogLevel,
		"tick_interval", cfg.TickInterval,
		"rate_limit_input_update", cfg.RateLimitInputUpdate,
		"rate_limit_applause_update", cfg.RateLimitApplauseUpdate,
	)
}

// getEnvOrDefault returns the value of the environment variable or a default.
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

// redactSecret redacts a secret, showing only the first 8 characters.
func redactSecret(secret string) string {
	if len(secret) <= 8 {
		return "***"
	}
	return secret[:8] + "***"
}
