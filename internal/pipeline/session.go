// Package pipeline wires the twelve core engines into one deterministic
// invocation: Detection -> Prediction -> Explain -> Policy -> Baseline ->
// Audit -> Canonicalize. A Session owns everything that is loaded once per
// invocation and reused across every resource change in that invocation
// (heuristics, policies, baseline table, prior snapshot, audit log,
// license edition) — the pattern mirrors campaign.Orchestrator in the
// wider corpus, which likewise loads its fact base once and then drives a
// fixed sequence of phases over it.
package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"costpilot/internal/audit"
	"costpilot/internal/baseline"
	"costpilot/internal/config"
	"costpilot/internal/domain"
	"costpilot/internal/heuristics"
	"costpilot/internal/license"
	"costpilot/internal/logging"
	"costpilot/internal/policy"
	"costpilot/internal/sandbox"
)

// Session owns every resource a pipeline invocation needs, loaded once
// and reused for the duration of one Run call.
type Session struct {
	Config     *config.Config
	Heuristics *heuristics.Store
	Policies   []policy.Rule
	Baseline   *baseline.Table
	Exemptions []domain.Exemption
	License    license.Verified
	Audit      *audit.Log
	Sandbox    *sandbox.Envelope
	Prior      *domain.Snapshot
}

// Open builds a Session from configuration: it loads the heuristic table,
// every policy file under Paths.PolicyDir, the baseline table (if
// present), and opens the audit log for append. Call ResolveLicense
// separately once a license public key set is available.
func Open(cfg *config.Config, heuristicsDigest, baselineDigest string) (*Session, error) {
	store, err := heuristics.Load(cfg.Paths.Heuristics, heuristicsDigest)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load heuristics: %w", err)
	}

	rules, err := policy.LoadDir(cfg.Paths.PolicyDir)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load policies: %w", err)
	}

	var baselineTable *baseline.Table
	if _, statErr := os.Stat(cfg.Paths.Baseline); statErr == nil {
		baselineTable, err = baseline.Load(cfg.Paths.Baseline, baselineDigest)
		if err != nil {
			return nil, fmt.Errorf("pipeline: load baseline: %w", err)
		}
	}

	secret := []byte(os.Getenv(cfg.Audit.SecretEnvVar))
	if len(secret) == 0 {
		secret = []byte(config.GenesisSentinel)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Paths.AuditLog), 0o755); err != nil {
		return nil, fmt.Errorf("pipeline: create audit log dir: %w", err)
	}
	auditLog, err := audit.Open(cfg.Paths.AuditLog, secret)
	if err != nil {
		return nil, fmt.Errorf("pipeline: open audit log: %w", err)
	}

	return &Session{
		Config:     cfg,
		Heuristics: store,
		Policies:   rules,
		Baseline:   baselineTable,
		Audit:      auditLog,
		Sandbox:    sandbox.New(cfg.Sandbox),
		License:    license.Verified{Edition: license.Free},
	}, nil
}

// ResolveLicense attaches the verified license edition to the session. It
// never fails the invocation: an invalid or expired license simply means
// Edition stays license.Free, with the underlying error logged for
// diagnostics rather than surfaced as a pipeline failure.
func (s *Session) ResolveLicense(keys license.TrustedKeys, rl *license.RateLimiter, now time.Time) {
	if rl != nil {
		if err := rl.CheckAndGuard(now); err != nil {
			logging.Get(logging.CategoryLicense).Warnw("license verification rate-limited", "error", err)
			return
		}
	}
	v, err := license.Resolve(keys, s.Config.Paths.License, now)
	if err != nil {
		logging.Get(logging.CategoryLicense).Debugw("license did not verify, running Free edition", "error", err)
		if rl != nil {
			_ = rl.RecordFailure(now)
		}
		return
	}
	s.License = v
}

// Close releases the session's open resources.
func (s *Session) Close() error {
	if s.Audit != nil {
		return s.Audit.Close()
	}
	return nil
}
