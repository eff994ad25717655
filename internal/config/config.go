package config

import (
	"os"
	"strconv"
	"time"
)

// RelayConfig holds the relay engine configuration. Platform clients are
// constructed once from this at process start and injected into every
// component; nothing reads the environment after startup.
type RelayConfig struct {
	Port   string
	LogEnv string

	// Gateway (WhatsApp-style) platform
	GatewayBaseURL       string
	GatewayWebhookSecret string

	// Help-desk platform
	HelpdeskBaseURL string

	// Webhook delivery dedupe window; zero disables dedupe.
	DedupeTTL time.Duration

	// Tenant channel-config cache TTL.
	TenantCacheTTL time.Duration

	// Redis channel for lead activity events.
	LeadActivityChannel string

	EnableCORS bool
}

// LoadRelayConfigFromEnv loads the relay configuration from environment
// variables. Note: the .env file is loaded in main for local development.
func LoadRelayConfigFromEnv() *RelayConfig {
	return &RelayConfig{
		Port:   GetEnvOrDefault("RELAY_PORT", "8080"),
		LogEnv: GetEnvOrDefault("LOG_ENV", "development"),

		GatewayBaseURL:       GetEnvOrDefault("GATEWAY_BASE_URL", "http://localhost:8084"),
		GatewayWebhookSecret: GetEnvOrDefault("GATEWAY_WEBHOOK_SECRET", ""),

		HelpdeskBaseURL: GetEnvOrDefault("HELPDESK_BASE_URL", "http://localhost:3000"),

		DedupeTTL:      time.Duration(GetEnvIntOrDefault("WEBHOOK_DEDUPE_TTL_SECONDS", 300)) * time.Second,
		TenantCacheTTL: time.Duration(GetEnvIntOrDefault("TENANT_CACHE_TTL_SECONDS", 60)) * time.Second,

		LeadActivityChannel: GetEnvOrDefault("LEAD_ACTIVITY_CHANNEL", "relay:lead-activity"),

		EnableCORS: GetEnvBoolOrDefault("RELAY_ENABLE_CORS", true),
	}
}

// GetEnvOrDefault gets environment variable or returns default value
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvIntOrDefault gets environment variable as int or returns default value
func GetEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvBoolOrDefault gets environment variable as bool or returns default value
func GetEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
