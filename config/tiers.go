package config

import (
	"fmt"

	"mentra/models"

	"github.com/spf13/viper"
)

// defaultTiers is the shipped commission table, lowest tier first. The
// lowest tier's thresholds are zero so it always qualifies as a fallback;
// the top tier requires both thresholds.
var defaultTiers = []models.CommissionTier{
	{Name: "starter", MinSessions: 0, MinEarnings: 0, Rate: 0.20},
	{Name: "growing", MinSessions: 10, MinEarnings: 500, Rate: 0.15},
	{Name: "established", MinSessions: 25, MinEarnings: 2000, Rate: 0.12},
	{Name: "elite", MinSessions: 50, MinEarnings: 5000, Rate: 0.10},
}

var commissionTiers []models.CommissionTier

// loadTiers reads the "commission_tiers" table from config, falling back to
// the shipped defaults, and validates it before exposing it.
func loadTiers() error {
	tiers := defaultTiers
	if viper.IsSet("commission_tiers") {
		var configured []models.CommissionTier
		if err := viper.UnmarshalKey("commission_tiers", &configured); err != nil {
			return fmt.Errorf("failed to parse commission_tiers: %w", err)
		}
		tiers = configured
	}
	if err := ValidateTiers(tiers); err != nil {
		return err
	}
	commissionTiers = tiers
	return nil
}

// CommissionTiers returns the active tier table, lowest tier first.
func CommissionTiers() []models.CommissionTier {
	if commissionTiers == nil {
		return defaultTiers
	}
	return commissionTiers
}

// ValidateTiers rejects malformed tier tables: the table must be non-empty,
// open with a zero-threshold tier, carry strictly descending rates within
// (0, 1], and have non-decreasing thresholds.
func ValidateTiers(tiers []models.CommissionTier) error {
	if len(tiers) == 0 {
		return fmt.Errorf("commission tier table is empty")
	}
	if tiers[0].MinSessions != 0 || tiers[0].MinEarnings != 0 {
		return fmt.Errorf("lowest tier %q must have zero thresholds", tiers[0].Name)
	}
	for i, t := range tiers {
		if t.Name == "" {
			return fmt.Errorf("tier at index %d has no name", i)
		}
		if t.Rate <= 0 || t.Rate > 1 {
			return fmt.Errorf("tier %q rate %.4f out of range (0, 1]", t.Name, t.Rate)
		}
		if t.MinSessions < 0 || t.MinEarnings < 0 {
			return fmt.Errorf("tier %q has negative thresholds", t.Name)
		}
		if i == 0 {
			continue
		}
		prev := tiers[i-1]
		if t.Rate >= prev.Rate {
			return fmt.Errorf("tier %q rate %.4f must be below %q rate %.4f", t.Name, t.Rate, prev.Name, prev.Rate)
		}
		if t.MinSessions < prev.MinSessions || t.MinEarnings < prev.MinEarnings {
			return fmt.Errorf("tier %q thresholds must not decrease from %q", t.Name, prev.Name)
		}
	}
	return nil
}
