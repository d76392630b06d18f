package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestNewConfigDefaults(t *testing.T) {
	os.Unsetenv("UTILIZATION_LOOKBACK_DAYS")
	os.Unsetenv("MONTHLY_HOURS")
	os.Unsetenv("PROMETHEUS_URL")
	os.Unsetenv("STORAGE_ENABLED")

	cfg := NewConfig()

	if cfg.MonthlyHours != 730 {
		t.Errorf("Expected default monthly hours 730, got %.1f", cfg.MonthlyHours)
	}
	if cfg.UtilizationLookback != 7*24*time.Hour {
		t.Errorf("Expected lookback 168h, got %v", cfg.UtilizationLookback)
	}
	if cfg.StorageEnabled {
		t.Error("Expected storage disabled by default")
	}
	if cfg.PrometheusURL != "" {
		t.Errorf("Expected empty Prometheus URL, got %s", cfg.PrometheusURL)
	}
}

func TestConfigFromEnvironment(t *testing.T) {
	t.Setenv("UTILIZATION_LOOKBACK_DAYS", "14")
	t.Setenv("MONTHLY_HOURS", "720")
	t.Setenv("STORAGE_ENABLED", "true")
	t.Setenv("PROMETHEUS_URL", "http://prometheus:9090")

	cfg := NewConfig()

	if cfg.UtilizationLookback != 14*24*time.Hour {
		t.Errorf("Expected lookback 336h from env, got %v", cfg.UtilizationLookback)
	}
	if cfg.MonthlyHours != 720 {
		t.Errorf("Expected monthly hours 720 from env, got %.1f", cfg.MonthlyHours)
	}
	if !cfg.StorageEnabled {
		t.Error("Expected storage enabled from env")
	}
	if cfg.PrometheusURL != "http://prometheus:9090" {
		t.Errorf("Expected custom Prometheus URL, got %s", cfg.PrometheusURL)
	}
}

func TestCollectorAndNarratorSettings(t *testing.T) {
	t.Setenv("AI_PROVIDER", "")
	t.Setenv("PROXMOX_URL", "https://pve.lan:8006")
	t.Setenv("PROXMOX_TOKEN_ID", "root@pam!optimizer")
	t.Setenv("LIBVIRT_URI", "qemu+tcp://hv1/system")

	cfg := NewConfig()

	if cfg.AIProvider != "mock" {
		t.Errorf("Expected mock AI provider by default, got %s", cfg.AIProvider)
	}
	if cfg.ProxmoxURL != "https://pve.lan:8006" || cfg.ProxmoxTokenID != "root@pam!optimizer" {
		t.Errorf("Expected Proxmox settings from env, got %s %s", cfg.ProxmoxURL, cfg.ProxmoxTokenID)
	}
	if cfg.LibvirtURI != "qemu+tcp://hv1/system" {
		t.Errorf("Expected libvirt URI from env, got %s", cfg.LibvirtURI)
	}
}

func TestValidation(t *testing.T) {
	tests := []struct {
		name          string
		setupConfig   func(*Config)
		expectError   bool
		errorContains string
	}{
		{
			name:        "valid default config",
			setupConfig: func(c *Config) {},
			expectError: false,
		},
		{
			name: "storage without database url",
			setupConfig: func(c *Config) {
				c.StorageEnabled = true
				c.DatabaseURL = ""
			},
			expectError:   true,
			errorContains: "DATABASE_URL",
		},
		{
			name:          "zero monthly hours",
			setupConfig:   func(c *Config) { c.MonthlyHours = 0 },
			expectError:   true,
			errorContains: "monthly hours",
		},
		{
			name:          "short lookback",
			setupConfig:   func(c *Config) { c.UtilizationLookback = time.Minute },
			expectError:   true,
			errorContains: "lookback",
		},
		{
			name:          "bad log format",
			setupConfig:   func(c *Config) { c.LogFormat = "xml" },
			expectError:   true,
			errorContains: "log format",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogFormat:           "text",
				DatabaseURL:         "postgres://localhost",
				MonthlyHours:        730,
				UtilizationLookback: 24 * time.Hour,
			}
			tt.setupConfig(cfg)

			err := cfg.Validate()
			if tt.expectError && err == nil {
				t.Error("Expected error, got nil")
			}
			if !tt.expectError && err != nil {
				t.Errorf("Unexpected error: %v", err)
			}
			if err != nil && tt.errorContains != "" && !strings.Contains(err.Error(), tt.errorContains) {
				t.Errorf("Expected error containing %q, got %q", tt.errorContains, err.Error())
			}
		})
	}
}

func TestParseOptimizerConfig(t *testing.T) {
	cfg, err := ParseOptimizerConfig([]byte(`
power_profiles:
  nuc:
    base_idle_watts: 12
    watts_per_cpu_core: 3
  tower: {}
scenarios:
  aggressive:
    cpu_threshold: 0.5
    ram_threshold: 0.5
    max_node_utilization: 0.9
  lazy: {}
reporting:
  enable_ai: true
`))
	if err != nil {
		t.Fatalf("ParseOptimizerConfig failed: %v", err)
	}

	nuc, err := cfg.PowerProfile("nuc")
	if err != nil {
		t.Fatalf("PowerProfile(nuc) failed: %v", err)
	}
	if nuc.BaseIdleWatts != 12 || nuc.WattsPerCPUCore != 3 || nuc.WattsPerGBRAM != 1 {
		t.Errorf("Unexpected nuc profile: %+v", nuc)
	}

	tower, _ := cfg.PowerProfile("tower")
	if tower.BaseIdleWatts != 50 || tower.WattsPerCPUCore != 10 {
		t.Errorf("Expected profile defaults 50/10, got %+v", tower)
	}

	lazy, err := cfg.Scenario("lazy")
	if err != nil {
		t.Fatalf("Scenario(lazy) failed: %v", err)
	}
	if lazy.CPUThreshold != 0.2 || lazy.RAMThreshold != 0.3 || lazy.MaxNodeUtilization != 0.75 {
		t.Errorf("Unexpected scenario defaults: %+v", lazy)
	}
	if lazy.CPUHeadroom != 0.1 || lazy.RAMHeadroom != 0.1 {
		t.Errorf("Unexpected headroom defaults: %+v", lazy)
	}

	if !cfg.Reporting.EnableAI {
		t.Error("Expected AI reporting enabled")
	}
	if cfg.Reporting.MarkdownTemplate != "default" {
		t.Errorf("Expected default markdown template, got %q", cfg.Reporting.MarkdownTemplate)
	}
}

func TestParseOptimizerConfigEmpty(t *testing.T) {
	cfg, err := ParseOptimizerConfig([]byte(""))
	if err != nil {
		t.Fatalf("ParseOptimizerConfig failed: %v", err)
	}

	p, err := cfg.PowerProfile("default")
	if err != nil {
		t.Fatalf("Expected built-in default profile: %v", err)
	}
	if p.BaseIdleWatts != 60 || p.WattsPerCPUCore != 12 || p.WattsPerGBRAM != 0.9 {
		t.Errorf("Unexpected built-in profile: %+v", p)
	}

	s, err := cfg.Scenario(DefaultScenarioName)
	if err != nil {
		t.Fatalf("Expected built-in scenario: %v", err)
	}
	if s.CPUThreshold != 0.25 || s.RAMThreshold != 0.3 || s.MaxNodeUtilization != 0.7 {
		t.Errorf("Unexpected built-in scenario: %+v", s)
	}
}

func TestUnknownNames(t *testing.T) {
	cfg, _ := ParseOptimizerConfig(nil)

	if _, err := cfg.Scenario("nope"); !errors.Is(err, ErrUnknownScenario) {
		t.Errorf("Expected ErrUnknownScenario, got %v", err)
	}
	if _, err := cfg.PowerProfile("nope"); !errors.Is(err, ErrUnknownProfile) {
		t.Errorf("Expected ErrUnknownProfile, got %v", err)
	}
}

func TestInvalidScenario(t *testing.T) {
	_, err := ParseOptimizerConfig([]byte(`
scenarios:
  broken:
    max_node_utilization: 0
`))
	if err == nil {
		t.Fatal("Expected error for zero max_node_utilization")
	}
}

func TestEffectivePrice(t *testing.T) {
	tests := []struct {
		name     string
		cfg      ElectricityConfig
		expected float64
	}{
		{"flat", ElectricityConfig{PricePerKWh: 0.10}, 0.10},
		{
			"periods ignore flat price",
			ElectricityConfig{PricePerKWh: 0.99, Periods: []ElectricityPeriod{{"day", 0.20}, {"night", 0.10}}},
			0.15,
		},
		{
			"unweighted mean",
			ElectricityConfig{Periods: []ElectricityPeriod{{"peak", 0.40}, {"off", 0.10}, {"shoulder", 0.10}}},
			0.20,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.EffectivePrice(); math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Expected %.4f, got %.4f", tt.expected, got)
			}
		})
	}
}

func TestLoadElectricityConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tariff.yaml")
	content := `
currency: EUR
price_per_kwh: 0.31
periods:
  - name: day
    price_per_kwh: 0.35
  - name: night
    price_per_kwh: 0.21
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadElectricityConfig(path)
	if err != nil {
		t.Fatalf("LoadElectricityConfig failed: %v", err)
	}
	if cfg.Currency != "EUR" {
		t.Errorf("Expected EUR, got %s", cfg.Currency)
	}
	if len(cfg.Periods) != 2 || cfg.Periods[1].Name != "night" {
		t.Errorf("Unexpected periods: %+v", cfg.Periods)
	}
}

func TestElectricityDefaultsAndMissingFields(t *testing.T) {
	cfg, err := ParseElectricityConfig([]byte("{}"))
	if err != nil {
		t.Fatalf("ParseElectricityConfig failed: %v", err)
	}
	if cfg.Currency != "USD" || cfg.PricePerKWh != 0.2 {
		t.Errorf("Unexpected defaults: %+v", cfg)
	}

	_, err = ParseElectricityConfig([]byte("periods:\n  - name: day\n"))
	if err == nil || !strings.Contains(err.Error(), "price_per_kwh") {
		t.Errorf("Expected missing price error, got %v", err)
	}
}
