package config

import "fmt"

// SandboxLimits enforces the envelope around any stage loaded from an
// externally supplied signed module (C4, spec.md §4.4). Every limit has a
// conservative default and is independently configurable per environment.
type SandboxLimits struct {
	MaxInputBytes  int64        `yaml:"max_input_bytes" json:"max_input_bytes"`
	MaxMemoryBytes int64        `yaml:"max_memory_bytes" json:"max_memory_bytes"`
	MaxWallclockMs int64        `yaml:"max_wallclock_ms" json:"max_wallclock_ms"`
	MaxCallDepth   int          `yaml:"max_call_depth" json:"max_call_depth"`
	StageBudgetsMs StageBudgets `yaml:"stage_budgets_ms" json:"stage_budgets_ms"`
}

// StageBudgets holds the per-stage wall-clock sub-budgets named in
// spec.md §4.4, each bounded by MaxWallclockMs overall.
type StageBudgets struct {
	Prediction int64 `yaml:"prediction" json:"prediction"`
	Detection  int64 `yaml:"detection" json:"detection"`
	Policy     int64 `yaml:"policy" json:"policy"`
	Mapping    int64 `yaml:"mapping" json:"mapping"`
	Grouping   int64 `yaml:"grouping" json:"grouping"`
	SLO        int64 `yaml:"slo" json:"slo"`
}

// DefaultSandboxLimits returns the conservative defaults from spec.md §4.4.
func DefaultSandboxLimits() SandboxLimits {
	return SandboxLimits{
		MaxInputBytes:  20 * 1024 * 1024,
		MaxMemoryBytes: 256 * 1024 * 1024,
		MaxWallclockMs: 2000,
		MaxCallDepth:   32,
		StageBudgetsMs: StageBudgets{
			Prediction: 300,
			Detection:  400,
			Policy:     200,
			Mapping:    500,
			Grouping:   400,
			SLO:        150,
		},
	}
}

// Validate checks that sandbox limits are within acceptable ranges and that
// every sub-budget fits inside the overall wall-clock ceiling.
func (s SandboxLimits) Validate() error {
	if s.MaxInputBytes <= 0 {
		return fmt.Errorf("max_input_bytes must be > 0")
	}
	if s.MaxMemoryBytes <= 0 {
		return fmt.Errorf("max_memory_bytes must be > 0")
	}
	if s.MaxWallclockMs <= 0 {
		return fmt.Errorf("max_wallclock_ms must be > 0")
	}
	if s.MaxCallDepth <= 0 {
		return fmt.Errorf("max_call_depth must be > 0")
	}
	for name, budget := range map[string]int64{
		"prediction": s.StageBudgetsMs.Prediction,
		"detection":  s.StageBudgetsMs.Detection,
		"policy":     s.StageBudgetsMs.Policy,
		"mapping":    s.StageBudgetsMs.Mapping,
		"grouping":   s.StageBudgetsMs.Grouping,
		"slo":        s.StageBudgetsMs.SLO,
	} {
		if budget <= 0 {
			return fmt.Errorf("stage_budgets_ms.%s must be > 0", name)
		}
		if budget > s.MaxWallclockMs {
			return fmt.Errorf("stage_budgets_ms.%s (%dms) exceeds max_wallclock_ms (%dms)", name, budget, s.MaxWallclockMs)
		}
	}
	return nil
}
