package config

import (
	"os"
	"strings"
	"testing"
)

// setupTestEnv clears and restores environment variables for testing.
func setupTestEnv(t *testing.T) func() {
	keys := []string{"GEMINI_API_KEY", "PORT", "FRONTEND_URL", "GO_ENV", "LOG_LEVEL", "TICK_INTERVAL_MS"}
	orig := map[string]string{}
	for _, k := range keys {
		orig[k] = os.Getenv(k)
		os.Unsetenv(k)
	}

	return func() {
		for _, k := range keys {
			if v := orig[k]; v != "" {
				os.Setenv(k, v)
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

func TestValidateEnv_ValidConfiguration(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("GEMINI_API_KEY", "test-key-123")
	os.Setenv("PORT", "8080")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.GeminiAPIKey != "test-key-123" {
		t.Errorf("expected GEMINI_API_KEY to be set correctly")
	}
	if cfg.Port != "8080" {
		t.Errorf("expected PORT '8080', got '%s'", cfg.Port)
	}
	if cfg.FrontendURL != "*" {
		t.Errorf("expected FRONTEND_URL to default to '*', got '%s'", cfg.FrontendURL)
	}
	if cfg.GoEnv != "production" {
		t.Errorf("expected GO_ENV to default to 'production', got '%s'", cfg.GoEnv)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("expected LOG_LEVEL to default to 'info', got '%s'", cfg.LogLevel)
	}
	if cfg.TickInterval.Milliseconds() != 4000 {
		t.Errorf("expected TickInterval to default to 4000ms, got %v", cfg.TickInterval)
	}
}

func TestValidateEnv_MissingGeminiAPIKey(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("PORT", "8080")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("expected error for missing GEMINI_API_KEY, got nil")
	}
	if !strings.Contains(err.Error(), "GEMINI_API_KEY is required") {
		t.Errorf("expected error message about GEMINI_API_KEY, got: %v", err)
	}
}

func TestValidateEnv_InvalidPort(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("GEMINI_API_KEY", "test-key")
	os.Setenv("PORT", "99999")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("expected error for invalid PORT, got nil")
	}
	if !strings.Contains(err.Error(), "PORT must be a valid port number") {
		t.Errorf("expected error message about invalid PORT, got: %v", err)
	}
}

func TestValidateEnv_InvalidTickInterval(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("GEMINI_API_KEY", "test-key")
	os.Setenv("TICK_INTERVAL_MS", "-1")

	_, err := ValidateEnv()
	if err == nil {
		t.Fatal("expected error for invalid TICK_INTERVAL_MS, got nil")
	}
	if !strings.Contains(err.Error(), "TICK_INTERVAL_MS") {
		t.Errorf("expected error message about TICK_INTERVAL_MS, got: %v", err)
	}
}

func TestValidateEnv_OptionalDefaults(t *testing.T) {
	cleanup := setupTestEnv(t)
	defer cleanup()

	os.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := ValidateEnv()
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if cfg.RateLimitInputUpdate != "20-M" {
		t.Errorf("expected default input_update rate limit '20-M', got '%s'", cfg.RateLimitInputUpdate)
	}
	if cfg.RateLimitApplauseUpdate != "60-M" {
		t.Errorf("expected default applause_update rate limit '60-M', got '%s'", cfg.RateLimitApplauseUpdate)
	}
}

func TestRedactSecret(t *testing.T) {
	tests := []struct {
		name     string
		secret   string
		expected string
	}{
		{"Long secret", "this-is-a-very-long-secret-key", "this-is-***"},
		{"Short secret", "short", "***"},
		{"Exactly 8 chars", "12345678", "***"},
		{"9 chars", "123456789", "12345678***"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := redactSecret(tt.secret)
			if result != tt.expected {
				t.Errorf("expected '%s', got '%s'", tt.expected, result)
			}
		})
	}
}
