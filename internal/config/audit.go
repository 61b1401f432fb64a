package config

// AuditConfig configures the append-only hash-chained audit log (C11).
type AuditConfig struct {
	// SecretEnvVar names the environment variable holding the HMAC signing
	// secret. If unset or empty at startup, GenesisSentinel is used as the
	// secret, matching spec.md §4.10's "configured secret or well-known
	// sentinel" requirement.
	SecretEnvVar string `yaml:"secret_env_var" json:"secret_env_var"`
}

// GenesisSentinel is the well-known fallback genesis value used to seed the
// audit chain and HMAC key when no secret is configured. It is not a
// secret in the security sense; it exists so that chains started without a
// configured secret are still internally self-consistent and verifiable.
const GenesisSentinel = "costpilot-audit-genesis-v1"

// DefaultAuditConfig returns the default audit configuration.
func DefaultAuditConfig() AuditConfig {
	return AuditConfig{SecretEnvVar: "COSTPILOT_AUDIT_SECRET"}
}
