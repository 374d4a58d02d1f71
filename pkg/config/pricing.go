package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// PlanPricing holds the price points for one plan, in whole USD.
type PlanPricing struct {
	Weekly  int `yaml:"weekly" json:"weekly"`
	Monthly int `yaml:"monthly" json:"monthly"`
}

// PricingTable maps plan names to their pricing. It is loaded once at startup
// and never mutated afterwards.
type PricingTable struct {
	Pro  PlanPricing `yaml:"pro" json:"pro"`
	Team PlanPricing `yaml:"team" json:"team"`
}

// DefaultPricingTable returns the built-in price points.
func DefaultPricingTable() PricingTable {
	return PricingTable{
		Pro:  PlanPricing{Weekly: 4, Monthly: 7},
		Team: PlanPricing{Weekly: 6, Monthly: 15},
	}
}

// loadPricingTable returns the default table, overridden from a YAML file
// when a path is configured.
func loadPricingTable(path string) (PricingTable, error) {
	table := DefaultPricingTable()
	if path == "" {
		return table, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return table, fmt.Errorf("failed to read pricing file: %w", err)
	}
	if err := yaml.Unmarshal(data, &table); err != nil {
		return table, fmt.Errorf("failed to parse pricing file: %w", err)
	}
	return table, nil
}

// Validate rejects non-positive price points.
func (t PricingTable) Validate() error {
	for name, p := range map[string]PlanPricing{"pro": t.Pro, "team": t.Team} {
		if p.Weekly <= 0 || p.Monthly <= 0 {
			return fmt.Errorf("pricing for plan %q must be positive", name)
		}
	}
	return nil
}
