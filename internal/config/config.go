package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the gateway configuration, loaded once at startup and
// read-only afterwards.
type Config struct {
	Port        string
	Environment string

	// PublicBaseURL is the externally visible base URL (behind the load
	// balancer). Used by the dev inspection endpoint to report the webhook
	// URL Twilio should be pointed at.
	PublicBaseURL string

	// TwilioAuthToken is the shared secret for webhook signature
	// verification. Empty means verification is skipped outside production.
	TwilioAuthToken string

	// ElevenLabs conversational engine configuration.
	ElevenLabsAPIKey     string
	ElevenLabsBaseURL    string
	DefaultElevenAgentID string

	// MockMode short-circuits inbound calls with canned TwiML so the
	// webhook path can be exercised without any ElevenLabs traffic.
	MockMode bool

	// RegisterCallTimeout bounds the outbound register-call request.
	RegisterCallTimeout time.Duration
}

// LoadFromEnv loads the gateway configuration from environment variables.
func LoadFromEnv() *Config {
	return &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Environment: getEnvOrDefault("NODE_ENV", getEnvOrDefault("APP_ENV", "development")),

		PublicBaseURL: getEnvOrDefault("PUBLIC_BASE_URL", ""),

		TwilioAuthToken: getEnvOrDefault("TWILIO_AUTH_TOKEN", ""),

		ElevenLabsAPIKey:     getEnvOrDefault("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL:    getEnvOrDefault("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		DefaultElevenAgentID: getEnvOrDefault("ELEVENLABS_DEFAULT_AGENT_ID", ""),

		MockMode: getEnvAsBoolOrDefault("ELEVENLABS_MOCK_MODE", false),

		RegisterCallTimeout: time.Duration(getEnvAsIntOrDefault("REGISTER_CALL_TIMEOUT_SECONDS", 10)) * time.Second,
	}
}

// IsProduction reports whether the process runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Environment, "prod") || strings.EqualFold(c.Environment, "production")
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
