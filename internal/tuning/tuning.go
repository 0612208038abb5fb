// Package tuning holds every numeric knob the simulation consults: demography
// curves, economy rates, tier caps. Values load from YAML with defaults
// applied for anything unset, and the active config rides inside the run
// state so a serialized run replays with the numbers it was created with.
package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the full tuning surface.
type Config struct {
	TurnYears int `yaml:"turn_years" json:"turn_years"`
	StartYear int `yaml:"start_year" json:"start_year"`

	// Economy.
	YieldPerFarmer       float64 `yaml:"yield_per_farmer" json:"yield_per_farmer"`
	BushelsPerPersonYear float64 `yaml:"bushels_per_person_year" json:"bushels_per_person_year"`
	BuilderFoodPremium   float64 `yaml:"builder_food_premium" json:"builder_food_premium"`
	SpoilageRate         float64 `yaml:"spoilage_rate" json:"spoilage_rate"`
	SpoilageRateGranary  float64 `yaml:"spoilage_rate_granary" json:"spoilage_rate_granary"`
	BuildPointsPerWorker int     `yaml:"build_points_per_worker" json:"build_points_per_worker"`
	MarketSellCap        int     `yaml:"market_sell_cap" json:"market_sell_cap"`
	UnrestDecay          int     `yaml:"unrest_decay" json:"unrest_decay"`

	// Demography.
	FertilityMultiplier float64 `yaml:"fertility_multiplier" json:"fertility_multiplier"`
	MortalityMultiplier float64 `yaml:"mortality_multiplier" json:"mortality_multiplier"`
	MarriageRate        float64 `yaml:"marriage_rate" json:"marriage_rate"`

	// Tier caps.
	Tier1HouseCap       int `yaml:"tier1_house_cap" json:"tier1_house_cap"`
	Tier1InstitutionCap int `yaml:"tier1_institution_cap" json:"tier1_institution_cap"`
}

// Defaults returns the reference configuration. The demography constants are
// compatibility-pinned: runs recorded against them replay only against them.
func Defaults() Config {
	return Config{
		TurnYears: 3,
		StartYear: 1150,

		YieldPerFarmer:       48,
		BushelsPerPersonYear: 12,
		BuilderFoodPremium:   1.5,
		SpoilageRate:         0.10,
		SpoilageRateGranary:  0.04,
		BuildPointsPerWorker: 4,
		MarketSellCap:        400,
		UnrestDecay:          5,

		FertilityMultiplier: 1.0,
		MortalityMultiplier: 1.0,
		MarriageRate:        0.25,

		Tier1HouseCap:       160,
		Tier1InstitutionCap: 18,
	}
}

// Tier1InstitutionHardMax bounds the institution cap regardless of overrides.
const Tier1InstitutionHardMax = 24

// Load reads YAML overrides from path on top of Defaults.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("tuning yaml: %w", err)
	}
	c.Clamp()
	return c, nil
}

// Clamp enforces hard bounds on override values.
func (c *Config) Clamp() {
	if c.TurnYears <= 0 {
		c.TurnYears = 3
	}
	if c.Tier1InstitutionCap > Tier1InstitutionHardMax {
		c.Tier1InstitutionCap = Tier1InstitutionHardMax
	}
	if c.Tier1InstitutionCap <= 0 {
		c.Tier1InstitutionCap = 18
	}
	if c.Tier1HouseCap <= 0 {
		c.Tier1HouseCap = 160
	}
}
