package config

// LoggingConfig configures the operator-facing debug log (internal/logging).
// This is distinct from the audit ledger (internal/audit): the audit log is
// tamper-evident evidence of state-mutating actions, while this log is
// free-form diagnostic output, off by default in production.
type LoggingConfig struct {
	Level      string          `yaml:"level" json:"level,omitempty"` // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode" json:"debug_mode,omitempty"`
	Categories map[string]bool `yaml:"categories" json:"categories,omitempty"`
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false (production mode).
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}
