package provenance

import (
	"testing"
	"time"

	"costpilot/internal/domain"
)

func sampleRule() domain.HeuristicRule {
	return domain.HeuristicRule{
		ID:              "ec2-on-demand-v1",
		Version:         "1.0.0",
		ResourceType:    "aws_instance",
		ConfidenceClass: domain.ConfidenceHigh,
		UpdatedAt:       time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestForRuleProducesStableHash(t *testing.T) {
	r1, err := ForRule(sampleRule())
	if err != nil {
		t.Fatalf("ForRule() error = %v", err)
	}
	r2, err := ForRule(sampleRule())
	if err != nil {
		t.Fatalf("ForRule() error = %v", err)
	}
	if r1.ProvenanceHash != r2.ProvenanceHash {
		t.Fatalf("expected stable hash across calls: %s vs %s", r1.ProvenanceHash, r2.ProvenanceHash)
	}
	if r1.ConfidenceSource != domain.ConfidenceSourceHeuristic {
		t.Fatalf("expected Heuristic confidence source, got %s", r1.ConfidenceSource)
	}
}

func TestColdStartRequiresFallbackReason(t *testing.T) {
	if _, err := ColdStart("aws_instance", ""); err == nil {
		t.Fatal("expected error when fallback reason is empty")
	}
}

func TestColdStartProducesFixedID(t *testing.T) {
	record, err := ColdStart("aws_instance", domain.FallbackHeuristicMissing)
	if err != nil {
		t.Fatalf("ColdStart() error = %v", err)
	}
	if record.HeuristicID != "cold-start-aws_instance" {
		t.Errorf("unexpected cold-start id: %s", record.HeuristicID)
	}
	if record.HeuristicVersion != ColdStartVersion {
		t.Errorf("unexpected cold-start version: %s", record.HeuristicVersion)
	}
	if record.ConfidenceSource != domain.ConfidenceSourceColdStart {
		t.Errorf("expected ColdStart source, got %s", record.ConfidenceSource)
	}
}

func TestValidateRejectsMissingHash(t *testing.T) {
	record := domain.ProvenanceRecord{ConfidenceSource: domain.ConfidenceSourceHeuristic}
	if err := Validate(record); err == nil {
		t.Fatal("expected error for missing provenance hash")
	}
}

func TestValidateRejectsColdStartWithoutReason(t *testing.T) {
	record := domain.ProvenanceRecord{ProvenanceHash: "abc", ConfidenceSource: domain.ConfidenceSourceColdStart}
	if err := Validate(record); err == nil {
		t.Fatal("expected error for ColdStart record without fallback reason")
	}
}

func TestValidateAcceptsWellFormedRecord(t *testing.T) {
	record, err := ForRule(sampleRule())
	if err != nil {
		t.Fatalf("ForRule() error = %v", err)
	}
	if err := Validate(record); err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
}

func TestHashExcludesItselfFromPayload(t *testing.T) {
	rule := sampleRule()
	rule.ProvenanceHash = "stale-hash-from-a-previous-run"
	hash, err := HashRule(rule)
	if err != nil {
		t.Fatalf("HashRule() error = %v", err)
	}
	rule2 := sampleRule()
	rule2.ProvenanceHash = ""
	hash2, err := HashRule(rule2)
	if err != nil {
		t.Fatalf("HashRule() error = %v", err)
	}
	if hash != hash2 {
		t.Fatalf("expected hash to be independent of the existing ProvenanceHash field value")
	}
}
