// Package report implements the output canonicalizer (C12): wraps
// internal/canon to emit the fixed document envelope described in
// spec.md §6 — a leading schema_version field, alphabetically ordered
// keys, currency fields rendered as "$X.XX", LF line endings, and a
// trailing newline. Same data always yields byte-identical output.
package report

import (
	"fmt"
	"time"

	"costpilot/internal/baseline"
	"costpilot/internal/canon"
	"costpilot/internal/domain"
)

// SchemaVersion is the current output document schema's semver string.
const SchemaVersion = "1.0.0"

// Document is the top-level emitted report: every field an invocation
// produces, wrapped with the schema envelope.
type Document struct {
	SchemaVersion string           `json:"schema_version"`
	GeneratedAt   time.Time        `json:"generated_at"`
	Findings      []domain.Finding `json:"findings"`
	TotalMonthly  Money            `json:"total_monthly_cost"`
	ExitCode      int              `json:"exit_code"`
	Diagnostics   []string         `json:"diagnostics,omitempty"`
}

// Money renders a currency amount as the fixed "$X.XX" string form
// required for every currency field in the output schema.
type Money string

// NewMoney formats amount per the grammar contract.
func NewMoney(amount float64) Money {
	return Money(fmt.Sprintf("$%.2f", canon.NormalizeFloat(amount)))
}

// Build assembles the final report document from a pipeline invocation's
// findings, total predicted cost, and resolved exit code.
func Build(findings []domain.Finding, totalMonthly float64, exitCode int, diagnostics []string, now time.Time) Document {
	return Document{
		SchemaVersion: SchemaVersion,
		GeneratedAt:   now,
		Findings:      findings,
		TotalMonthly:  NewMoney(totalMonthly),
		ExitCode:      exitCode,
		Diagnostics:   diagnostics,
	}
}

// Marshal renders a Document as canonical JSON: sorted keys, 2-space
// indent, LF line endings, and a trailing newline.
func Marshal(doc Document) ([]byte, error) {
	out, err := canon.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("report: marshal: %w", err)
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// SnapshotDocument wraps a domain.Snapshot with the same schema envelope
// for persistence to the snapshots directory (spec.md §6 "Persisted
// state").
type SnapshotDocument struct {
	SchemaVersion string          `json:"schema_version"`
	Snapshot      domain.Snapshot `json:"snapshot"`
}

// MarshalSnapshot renders a snapshot as canonical JSON.
func MarshalSnapshot(snap domain.Snapshot) ([]byte, error) {
	doc := SnapshotDocument{SchemaVersion: SchemaVersion, Snapshot: snap}
	out, err := canon.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("report: marshal snapshot: %w", err)
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}

// RegressionDocument wraps baseline regression findings with the schema
// envelope for standalone rendering (e.g. a `costpilot snapshot diff`
// subcommand).
type RegressionDocument struct {
	SchemaVersion string             `json:"schema_version"`
	Regressions   []baseline.Finding `json:"regressions"`
}

// MarshalRegressions renders a regression finding set as canonical JSON.
func MarshalRegressions(findings []baseline.Finding) ([]byte, error) {
	doc := RegressionDocument{SchemaVersion: SchemaVersion, Regressions: findings}
	out, err := canon.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("report: marshal regressions: %w", err)
	}
	if len(out) == 0 || out[len(out)-1] != '\n' {
		out = append(out, '\n')
	}
	return out, nil
}
