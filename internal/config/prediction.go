package config

import "fmt"

// PredictionConfig tunes the confidence-staleness decay described in
// spec.md §9 Open Question (a)/(b). A rule whose updated_at is older than
// StalenessHorizonDays downgrades confidence; the multiplier decays
// linearly from 1.0 at the horizon to MinConfidenceMultiplier at
// StaleDecayMultiplier x the horizon.
type PredictionConfig struct {
	StalenessHorizonDays    int     `yaml:"staleness_horizon_days" json:"staleness_horizon_days"`
	StaleDecayMultiplier    float64 `yaml:"stale_decay_multiplier" json:"stale_decay_multiplier"`
	MinConfidenceMultiplier float64 `yaml:"min_confidence_multiplier" json:"min_confidence_multiplier"`
	// ColdStartIntervalRatio is the minimum (p99-p10)/p50 width ratio
	// enforced for cold-start predictions, keeping them visibly
	// conservative (spec.md §8 scenario 2).
	ColdStartIntervalRatio float64 `yaml:"cold_start_interval_ratio" json:"cold_start_interval_ratio"`
}

// DefaultPredictionConfig returns the documented defaults for the open
// staleness questions in spec.md §9.
func DefaultPredictionConfig() PredictionConfig {
	return PredictionConfig{
		StalenessHorizonDays:    90,
		StaleDecayMultiplier:    2.0,
		MinConfidenceMultiplier: 0.5,
		ColdStartIntervalRatio:  1.5,
	}
}

// Validate checks the prediction configuration.
func (p PredictionConfig) Validate() error {
	if p.StalenessHorizonDays <= 0 {
		return fmt.Errorf("staleness_horizon_days must be > 0")
	}
	if p.StaleDecayMultiplier <= 1.0 {
		return fmt.Errorf("stale_decay_multiplier must be > 1.0")
	}
	if p.MinConfidenceMultiplier <= 0 || p.MinConfidenceMultiplier > 1.0 {
		return fmt.Errorf("min_confidence_multiplier must be in (0, 1.0]")
	}
	return nil
}
