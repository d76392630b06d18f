package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/opscart/node-cost-optimizer/pkg/models"
)

var (
	ErrUnknownScenario = errors.New("unknown scenario")
	ErrUnknownProfile  = errors.New("unknown power profile")
)

// Scenario is a consolidation policy
type Scenario struct {
	Name               string
	CPUThreshold       float64
	RAMThreshold       float64
	MaxNodeUtilization float64
	CPUHeadroom        float64
	RAMHeadroom        float64
}

// Validate rejects policies that cannot be evaluated. Thresholds of zero are
// allowed and simply select no candidates.
func (s Scenario) Validate() error {
	if s.CPUThreshold < 0 || s.RAMThreshold < 0 {
		return fmt.Errorf("scenario %q: thresholds must be >= 0", s.Name)
	}
	if s.MaxNodeUtilization <= 0 {
		return fmt.Errorf("scenario %q: max_node_utilization must be > 0", s.Name)
	}
	return nil
}

// ReportingConfig controls report rendering
type ReportingConfig struct {
	MarkdownTemplate string `yaml:"markdown_template"`
	EnableAI         bool   `yaml:"enable_ai"`
}

// OptimizerConfig holds the named power profiles and scenarios
type OptimizerConfig struct {
	PowerProfiles map[string]*models.PowerProfile
	Scenarios     map[string]Scenario
	Reporting     ReportingConfig
}

type profileFile struct {
	BaseIdleWatts   *float64 `yaml:"base_idle_watts"`
	WattsPerCPUCore *float64 `yaml:"watts_per_cpu_core"`
	WattsPerGBRAM   *float64 `yaml:"watts_per_gb_ram"`
}

type scenarioFile struct {
	CPUThreshold       *float64 `yaml:"cpu_threshold"`
	RAMThreshold       *float64 `yaml:"ram_threshold"`
	MaxNodeUtilization *float64 `yaml:"max_node_utilization"`
	CPUHeadroom        *float64 `yaml:"cpu_headroom"`
	RAMHeadroom        *float64 `yaml:"ram_headroom"`
}

type optimizerFile struct {
	PowerProfiles map[string]profileFile  `yaml:"power_profiles"`
	Scenarios     map[string]scenarioFile `yaml:"scenarios"`
	Reporting     *ReportingConfig        `yaml:"reporting"`
}

// DefaultScenarioName is the scenario registered when a config file defines none
const DefaultScenarioName = "consolidate-low-util"

// LoadOptimizerConfig reads an optimizer YAML file
func LoadOptimizerConfig(path string) (*OptimizerConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read optimizer config: %w", err)
	}
	return ParseOptimizerConfig(data)
}

// ParseOptimizerConfig decodes optimizer YAML, filling defaults for absent fields.
func ParseOptimizerConfig(data []byte) (*OptimizerConfig, error) {
	var raw optimizerFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse optimizer config: %w", err)
	}

	cfg := &OptimizerConfig{
		PowerProfiles: make(map[string]*models.PowerProfile),
		Scenarios:     make(map[string]Scenario),
		Reporting:     ReportingConfig{MarkdownTemplate: "default"},
	}

	for name, p := range raw.PowerProfiles {
		cfg.PowerProfiles[name] = &models.PowerProfile{
			Name:            name,
			BaseIdleWatts:   valueOr(p.BaseIdleWatts, 50),
			WattsPerCPUCore: valueOr(p.WattsPerCPUCore, 10),
			WattsPerGBRAM:   valueOr(p.WattsPerGBRAM, 1),
		}
	}
	if len(cfg.PowerProfiles) == 0 {
		cfg.PowerProfiles[models.DefaultProfileName] = &models.PowerProfile{
			Name:            models.DefaultProfileName,
			BaseIdleWatts:   60,
			WattsPerCPUCore: 12,
			WattsPerGBRAM:   0.9,
		}
	}

	for name, s := range raw.Scenarios {
		scenario := Scenario{
			Name:               name,
			CPUThreshold:       valueOr(s.CPUThreshold, 0.2),
			RAMThreshold:       valueOr(s.RAMThreshold, 0.3),
			MaxNodeUtilization: valueOr(s.MaxNodeUtilization, 0.75),
			CPUHeadroom:        valueOr(s.CPUHeadroom, 0.1),
			RAMHeadroom:        valueOr(s.RAMHeadroom, 0.1),
		}
		if err := scenario.Validate(); err != nil {
			return nil, err
		}
		cfg.Scenarios[name] = scenario
	}
	if len(cfg.Scenarios) == 0 {
		cfg.Scenarios[DefaultScenarioName] = Scenario{
			Name:               DefaultScenarioName,
			CPUThreshold:       0.25,
			RAMThreshold:       0.3,
			MaxNodeUtilization: 0.7,
			CPUHeadroom:        0.1,
			RAMHeadroom:        0.1,
		}
	}

	if raw.Reporting != nil {
		cfg.Reporting.EnableAI = raw.Reporting.EnableAI
		if raw.Reporting.MarkdownTemplate != "" {
			cfg.Reporting.MarkdownTemplate = raw.Reporting.MarkdownTemplate
		}
	}

	return cfg, nil
}

// PowerProfile returns the named profile
func (c *OptimizerConfig) PowerProfile(name string) (*models.PowerProfile, error) {
	p, ok := c.PowerProfiles[name]
	if !ok {
		return nil, fmt.Errorf("%w '%s'", ErrUnknownProfile, name)
	}
	return p, nil
}

// Scenario returns the named scenario
func (c *OptimizerConfig) Scenario(name string) (Scenario, error) {
	s, ok := c.Scenarios[name]
	if !ok {
		return Scenario{}, fmt.Errorf("%w '%s'", ErrUnknownScenario, name)
	}
	return s, nil
}

func valueOr(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
