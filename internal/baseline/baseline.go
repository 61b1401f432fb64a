// Package baseline implements the baseline and regression engine (C10):
// variance against an operator-declared, scoped baseline table, and
// per-resource regression classification against a prior snapshot.
package baseline

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"costpilot/internal/canon"
	"costpilot/internal/config"
	"costpilot/internal/cperrors"
	"costpilot/internal/domain"
)

// File is the on-disk baseline document shape, loaded the same way
// internal/heuristics loads its table: a versioned file, content-hash
// verified, immutable for the invocation.
type File struct {
	Version   string                 `json:"version"`
	UpdatedAt time.Time              `json:"updated_at"`
	Entries   []domain.BaselineEntry `json:"entries"`
}

// Table is a loaded baseline, indexed by (scope, key) for lookup.
type Table struct {
	byScopeKey map[string]domain.BaselineEntry
}

func scopeKey(scope domain.BaselineScope, key string) string {
	return string(scope) + "/" + key
}

// Load reads and parses a baseline file, verifying it against an embedded
// content digest the same way internal/heuristics.Load does.
func Load(path, embeddedDigest string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, parseError(path, err)
	}
	return LoadBytes(raw, embeddedDigest)
}

// LoadBytes parses an in-memory baseline document.
func LoadBytes(raw []byte, embeddedDigest string) (*Table, error) {
	var file File
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("baseline: parse: %w", err)
	}
	digest := canon.HashBytes(Canonicalize(file.Entries))
	if embeddedDigest != "" && digest != embeddedDigest {
		return nil, fmt.Errorf("baseline: content hash mismatch: want %s, got %s", embeddedDigest, digest)
	}

	t := &Table{byScopeKey: make(map[string]domain.BaselineEntry, len(file.Entries))}
	for _, e := range file.Entries {
		t.byScopeKey[scopeKey(e.Scope, e.Key)] = e
	}
	return t, nil
}

// Canonicalize renders entries as canonical JSON for content-hash purposes.
func Canonicalize(entries []domain.BaselineEntry) []byte {
	out, err := canon.Marshal(entries)
	if err != nil {
		panic(fmt.Sprintf("baseline: canonicalize: %v", err))
	}
	return out
}

// Lookup finds the most specific baseline entry for an address: service
// scope first (keyed by resource type), then module scope (keyed by
// module path), then global. Absence returns (zero value, false).
func (t *Table) Lookup(moduleKey, serviceKey string) (domain.BaselineEntry, bool) {
	if e, ok := t.byScopeKey[scopeKey(domain.BaselineScopeService, serviceKey)]; ok {
		return e, true
	}
	if e, ok := t.byScopeKey[scopeKey(domain.BaselineScopeModule, moduleKey)]; ok {
		return e, true
	}
	if e, ok := t.byScopeKey[scopeKey(domain.BaselineScopeGlobal, "*")]; ok {
		return e, true
	}
	return domain.BaselineEntry{}, false
}

// Variance computes the variance verdict for an observed monthly cost
// against the best-matching baseline entry for moduleKey/serviceKey.
// Absence of any matching entry yields VarianceNoBaseline, not an error —
// an unbaselined resource is not itself a failure.
func Variance(actual float64, table *Table, moduleKey, serviceKey string, cfg config.BaselineConfig) domain.RegressionVerdict {
	entry, found := table.Lookup(moduleKey, serviceKey)
	if !found {
		return domain.RegressionVerdict{VarianceStatus: domain.VarianceNoBaseline}
	}

	if entry.ExpectedMonthlyCost == 0 {
		return domain.RegressionVerdict{VarianceStatus: domain.VarianceNoBaseline}
	}

	fraction := (actual - entry.ExpectedMonthlyCost) / entry.ExpectedMonthlyCost
	fraction = canon.NormalizeFloat(fraction)

	status := domain.VarianceWithin
	if fraction > entry.AcceptableVariance {
		status = domain.VarianceExceeded
	} else if fraction < -entry.AcceptableVariance {
		status = domain.VarianceBelow
	}

	var severity domain.Severity
	abs := fraction
	if abs < 0 {
		abs = -abs
	}
	switch {
	case status == domain.VarianceWithin:
		severity = ""
	case abs > cfg.Variance.Critical:
		severity = domain.SeverityCritical
	case abs > cfg.Variance.High:
		severity = domain.SeverityHigh
	case abs > cfg.Variance.Medium:
		severity = domain.SeverityMedium
	default:
		severity = domain.SeverityLow
	}

	return domain.RegressionVerdict{
		VarianceStatus:   status,
		VarianceFraction: fraction,
		RegressionFound:  status != domain.VarianceWithin,
		Severity:         severity,
	}
}

// parseError wraps an unreadable baseline file into the fixed structured
// error shape (spec.md §7).
func parseError(path string, err error) error {
	return cperrors.New(cperrors.KindParse, cperrors.CodeHeuristicFileCorrupt,
		fmt.Sprintf("baseline file %s is unreadable: %v", path, err), nil)
}
