package prediction

import (
	"time"

	"costpilot/internal/config"
)

// StalenessMultiplier computes the confidence multiplier for a heuristic
// rule last updated at updatedAt, evaluated at now. It is 1.0 up to
// cfg.StalenessHorizonDays, decays linearly down to
// cfg.MinConfidenceMultiplier by cfg.StaleDecayMultiplier times the
// horizon, and stays flat at the floor beyond that (spec.md §9 Open
// Question (a), resolved in SPEC_FULL.md §9).
func StalenessMultiplier(updatedAt, now time.Time, cfg config.PredictionConfig) float64 {
	ageDays := now.Sub(updatedAt).Hours() / 24
	if ageDays <= float64(cfg.StalenessHorizonDays) {
		return 1.0
	}

	floorAgeDays := float64(cfg.StalenessHorizonDays) * cfg.StaleDecayMultiplier
	if ageDays >= floorAgeDays {
		return cfg.MinConfidenceMultiplier
	}

	span := floorAgeDays - float64(cfg.StalenessHorizonDays)
	progress := (ageDays - float64(cfg.StalenessHorizonDays)) / span
	return 1.0 - progress*(1.0-cfg.MinConfidenceMultiplier)
}
