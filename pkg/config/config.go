package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string // text, json

	// Prometheus
	PrometheusURL       string
	UtilizationLookback time.Duration

	// Storage
	StorageEnabled bool
	DatabaseURL    string

	// Collectors
	Kubeconfig         string
	LibvirtURI         string
	ProxmoxURL         string
	ProxmoxTokenID     string
	ProxmoxTokenSecret string

	// Narrative summaries
	AIProvider      string
	AnthropicAPIKey string
	AnthropicModel  string

	// Metrics
	MetricsTextfile string

	// Estimation
	MonthlyHours float64
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	lookbackDays := getEnvInt("UTILIZATION_LOOKBACK_DAYS", 7)
	return &Config{
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "text"),
		PrometheusURL:       getEnv("PROMETHEUS_URL", ""),
		UtilizationLookback: time.Duration(lookbackDays) * 24 * time.Hour,
		StorageEnabled:      getEnvBool("STORAGE_ENABLED", false),
		DatabaseURL:         getEnv("DATABASE_URL", "host=localhost port=5432 user=costuser password=devpassword dbname=costoptimizer sslmode=disable"),
		Kubeconfig:          getEnv("KUBECONFIG", ""),
		LibvirtURI:          getEnv("LIBVIRT_URI", ""),
		ProxmoxURL:          getEnv("PROXMOX_URL", ""),
		ProxmoxTokenID:      getEnv("PROXMOX_TOKEN_ID", ""),
		ProxmoxTokenSecret:  getEnv("PROXMOX_TOKEN_SECRET", ""),
		AIProvider:          getEnv("AI_PROVIDER", "mock"),
		AnthropicAPIKey:     getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicModel:      getEnv("ANTHROPIC_MODEL", ""),
		MetricsTextfile:     getEnv("METRICS_TEXTFILE", ""),
		MonthlyHours:        getEnvFloat("MONTHLY_HOURS", 730),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.StorageEnabled && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is enabled")
	}
	if c.MonthlyHours <= 0 {
		return fmt.Errorf("monthly hours must be positive, got %.1f", c.MonthlyHours)
	}
	if c.UtilizationLookback < 1*time.Hour {
		return fmt.Errorf("utilization lookback must be at least 1 hour")
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
