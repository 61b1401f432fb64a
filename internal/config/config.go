// Package config holds CostPilot's runtime configuration: file locations,
// sandbox envelope limits, prediction staleness constants, and baseline /
// regression thresholds. Configuration is loaded once per invocation and
// treated as immutable for the remainder of the pipeline run.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds all CostPilot configuration.
type Config struct {
	// Paths is the set of file locations the core consumes. Three of these
	// (Heuristics, PolicyDir, License) may be overridden by environment
	// variables per spec.md §6; the rest are config-file-only.
	Paths Paths `yaml:"paths"`

	// Sandbox bounds any pluggable, externally-supplied stage (C4).
	Sandbox SandboxLimits `yaml:"sandbox"`

	// Prediction tunes the confidence-staleness decay (C7).
	Prediction PredictionConfig `yaml:"prediction"`

	// Baseline tunes variance/regression severity thresholds (C10).
	Baseline BaselineConfig `yaml:"baseline"`

	// Audit configures the hash-chained ledger (C11).
	Audit AuditConfig `yaml:"audit"`

	// Logging configures the operator-facing debug log (distinct from the
	// audit ledger — see internal/logging).
	Logging LoggingConfig `yaml:"logging"`
}

// Paths groups every file location the core reads or writes.
type Paths struct {
	Heuristics   string `yaml:"heuristics" json:"heuristics"`
	PolicyDir    string `yaml:"policy_dir" json:"policy_dir"`
	Baseline     string `yaml:"baseline" json:"baseline"`
	License      string `yaml:"license" json:"license"`
	AuditLog     string `yaml:"audit_log" json:"audit_log"`
	SnapshotsDir string `yaml:"snapshots_dir" json:"snapshots_dir"`
	RateLimit    string `yaml:"rate_limit_state" json:"rate_limit_state"`
}

// Environment variable names honored per spec.md §6. Read once at startup;
// never consulted in the hot path.
const (
	EnvHeuristicsPath = "COSTPILOT_HEURISTICS_PATH"
	EnvPolicyDir      = "COSTPILOT_POLICY_DIR"
	EnvLicensePath    = "COSTPILOT_LICENSE_PATH"
)

// ApplyEnvOverrides applies the three documented environment overrides.
func (p *Paths) ApplyEnvOverrides() {
	if v := os.Getenv(EnvHeuristicsPath); v != "" {
		p.Heuristics = v
	}
	if v := os.Getenv(EnvPolicyDir); v != "" {
		p.PolicyDir = v
	}
	if v := os.Getenv(EnvLicensePath); v != "" {
		p.License = v
	}
}

// DefaultConfig returns production defaults.
func DefaultConfig() *Config {
	return &Config{
		Paths: Paths{
			Heuristics:   "costpilot/heuristics.json",
			PolicyDir:    "costpilot/policies",
			Baseline:     "costpilot/baseline.json",
			License:      "costpilot/license.json",
			AuditLog:     "costpilot/audit.log",
			SnapshotsDir: "costpilot/snapshots",
			RateLimit:    "costpilot/.license_rate_limit",
		},
		Sandbox:    DefaultSandboxLimits(),
		Prediction: DefaultPredictionConfig(),
		Baseline:   DefaultBaselineConfig(),
		Audit:      DefaultAuditConfig(),
		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
	}
}

// Load reads and parses a YAML config file, falling back to defaults for
// any field the file omits.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		cfg.Paths.ApplyEnvOverrides()
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.Paths.ApplyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %q: %w", path, err)
	}
	cfg.Paths.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that configuration values are internally consistent.
func (c *Config) Validate() error {
	if err := c.Sandbox.Validate(); err != nil {
		return fmt.Errorf("sandbox config: %w", err)
	}
	if c.Prediction.StalenessHorizonDays <= 0 {
		return fmt.Errorf("prediction.staleness_horizon_days must be > 0")
	}
	if err := c.Baseline.Validate(); err != nil {
		return fmt.Errorf("baseline config: %w", err)
	}
	return nil
}
