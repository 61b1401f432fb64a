// Package provenance implements the provenance ledger (C2): a pure
// function from a heuristic rule (or a synthetic cold-start placeholder)
// to a provenance record, hashed over its canonical fields. It has no
// state of its own — every prediction the core emits is paired with a
// record this package produced.
package provenance

import (
	"fmt"
	"time"

	"costpilot/internal/canon"
	"costpilot/internal/domain"
)

// ColdStartVersion is the fixed version stamped on every synthetic
// cold-start placeholder rule.
const ColdStartVersion = "0.0.0"

// ColdStartID derives the stable id for a resource type's cold-start
// placeholder: "cold-start-<resource-type>".
func ColdStartID(resourceType string) string {
	return fmt.Sprintf("cold-start-%s", resourceType)
}

// HashRule computes a heuristic rule's provenance hash: SHA-256 over its
// canonical fields, sorted by key. The hash itself is excluded from the
// hashed payload — it would otherwise depend on itself.
func HashRule(rule domain.HeuristicRule) (string, error) {
	rule.ProvenanceHash = ""
	return canon.Hash(rule)
}

// ForRule builds the provenance record for a direct heuristic match.
func ForRule(rule domain.HeuristicRule) (domain.ProvenanceRecord, error) {
	hash, err := HashRule(rule)
	if err != nil {
		return domain.ProvenanceRecord{}, fmt.Errorf("provenance: hash rule %s: %w", rule.ID, err)
	}
	return domain.ProvenanceRecord{
		HeuristicID:        rule.ID,
		HeuristicVersion:   rule.Version,
		ConfidenceSource:   domain.ConfidenceSourceHeuristic,
		HeuristicUpdatedAt: rule.UpdatedAt,
		ProvenanceHash:     hash,
	}, nil
}

// ColdStart builds the provenance record for a resource type with no
// matching heuristic rule. Per spec.md §3, a ColdStart record must always
// carry a FallbackReason.
func ColdStart(resourceType string, reason domain.FallbackReason) (domain.ProvenanceRecord, error) {
	if reason == "" {
		return domain.ProvenanceRecord{}, fmt.Errorf("provenance: cold-start record requires a fallback reason")
	}
	placeholder := domain.HeuristicRule{
		ID:           ColdStartID(resourceType),
		Version:      ColdStartVersion,
		ResourceType: resourceType,
		UpdatedAt:    time.Time{},
	}
	hash, err := HashRule(placeholder)
	if err != nil {
		return domain.ProvenanceRecord{}, fmt.Errorf("provenance: hash cold-start placeholder: %w", err)
	}
	return domain.ProvenanceRecord{
		HeuristicID:        placeholder.ID,
		HeuristicVersion:   placeholder.Version,
		ConfidenceSource:   domain.ConfidenceSourceColdStart,
		FallbackReason:     reason,
		HeuristicUpdatedAt: placeholder.UpdatedAt,
		ProvenanceHash:     hash,
	}, nil
}

// FromBaseline builds the provenance record for a prediction whose
// confidence derives primarily from a matching baseline entry rather than
// a heuristic rule (e.g. a historical regression comparison).
func FromBaseline(rule domain.HeuristicRule) (domain.ProvenanceRecord, error) {
	record, err := ForRule(rule)
	if err != nil {
		return domain.ProvenanceRecord{}, err
	}
	record.ConfidenceSource = domain.ConfidenceSourceBaseline
	return record, nil
}

// Validate checks the C2 invariant: every record must be present, and a
// ColdStart record must carry a FallbackReason.
func Validate(record domain.ProvenanceRecord) error {
	if record.ProvenanceHash == "" {
		return fmt.Errorf("provenance: missing provenance hash")
	}
	if record.ConfidenceSource == domain.ConfidenceSourceColdStart && record.FallbackReason == "" {
		return fmt.Errorf("provenance: ColdStart record missing fallback reason")
	}
	return nil
}
