package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ElectricityPeriod is a named tariff window, e.g. "peak" or "night"
type ElectricityPeriod struct {
	Name        string  `yaml:"name"`
	PricePerKWh float64 `yaml:"price_per_kwh"`
}

// ElectricityConfig describes the tariff used to price energy
type ElectricityConfig struct {
	Currency    string              `yaml:"currency"`
	PricePerKWh float64             `yaml:"price_per_kwh"`
	Periods     []ElectricityPeriod `yaml:"periods"`
}

// EffectivePrice returns the flat price, or the unweighted mean of the period
// prices when periods are defined. Period durations are not modeled.
func (c *ElectricityConfig) EffectivePrice() float64 {
	if len(c.Periods) == 0 {
		return c.PricePerKWh
	}
	sum := 0.0
	for _, p := range c.Periods {
		sum += p.PricePerKWh
	}
	return sum / float64(len(c.Periods))
}

type electricityFile struct {
	Currency    *string  `yaml:"currency"`
	PricePerKWh *float64 `yaml:"price_per_kwh"`
	Periods     []struct {
		Name        *string  `yaml:"name"`
		PricePerKWh *float64 `yaml:"price_per_kwh"`
	} `yaml:"periods"`
}

// LoadElectricityConfig reads a tariff YAML file
func LoadElectricityConfig(path string) (*ElectricityConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read electricity config: %w", err)
	}
	return ParseElectricityConfig(data)
}

// ParseElectricityConfig decodes tariff YAML. Currency defaults to USD and the flat
// price to 0.2; every period must name itself and its price.
func ParseElectricityConfig(data []byte) (*ElectricityConfig, error) {
	var raw electricityFile
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse electricity config: %w", err)
	}

	cfg := &ElectricityConfig{
		Currency:    "USD",
		PricePerKWh: valueOr(raw.PricePerKWh, 0.2),
	}
	if raw.Currency != nil && *raw.Currency != "" {
		cfg.Currency = *raw.Currency
	}

	for i, p := range raw.Periods {
		if p.Name == nil {
			return nil, fmt.Errorf("electricity period %d missing required field 'name'", i)
		}
		if p.PricePerKWh == nil {
			return nil, fmt.Errorf("electricity period '%s' missing required field 'price_per_kwh'", *p.Name)
		}
		cfg.Periods = append(cfg.Periods, ElectricityPeriod{Name: *p.Name, PricePerKWh: *p.PricePerKWh})
	}

	return cfg, nil
}
