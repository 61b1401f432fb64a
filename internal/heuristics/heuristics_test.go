package heuristics

import (
	"encoding/json"
	"testing"
	"time"

	"costpilot/internal/domain"
)

func sampleFile() File {
	return File{
		Version:   "1.0.0",
		Issuer:    "costpilot-core",
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Rules: []domain.HeuristicRule{
			{
				ID:           "ec2-general-v1",
				Version:      "1.0.0",
				ResourceType: "aws_instance",
				Formula:      domain.CostFormula{BaseMonthly: 0, UnitCost: 0.05, UnitName: "instance-hour"},
				ConfidenceClass: domain.ConfidenceMedium,
				UpdatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			},
			{
				ID:           "ec2-large-v1",
				Version:      "1.0.0",
				ResourceType: "aws_instance",
				Predicates:   []domain.AttributePredicate{{Attribute: "instance_type", Operator: "contains", Value: "xlarge"}},
				Formula:      domain.CostFormula{BaseMonthly: 0, UnitCost: 0.20, UnitName: "instance-hour"},
				ConfidenceClass: domain.ConfidenceHigh,
				UpdatedAt:    time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
			},
		},
	}
}

func TestLoadBytesVerifiesDigest(t *testing.T) {
	file := sampleFile()
	raw, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if _, err := LoadBytes(raw, "deadbeef"); err == nil {
		t.Fatal("expected digest mismatch error")
	}
	if _, err := LoadBytes(raw, ""); err != nil {
		t.Fatalf("LoadBytes() with no digest check should succeed: %v", err)
	}
}

func TestLoadBytesRejectsDuplicateIDVersion(t *testing.T) {
	file := sampleFile()
	file.Rules = append(file.Rules, file.Rules[0])
	raw, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	if _, err := LoadBytes(raw, ""); err == nil {
		t.Fatal("expected duplicate id+version error")
	}
}

func TestLookupReturnsMostSpecificMatch(t *testing.T) {
	raw, err := json.Marshal(sampleFile())
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	store, err := LoadBytes(raw, "")
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	rule, found := store.Lookup("aws_instance", map[string]interface{}{"instance_type": "m5.xlarge"})
	if !found {
		t.Fatal("expected a match")
	}
	if rule.ID != "ec2-large-v1" {
		t.Fatalf("expected the more specific rule to win, got %s", rule.ID)
	}
}

func TestLookupFallsBackToGeneralRule(t *testing.T) {
	raw, err := json.Marshal(sampleFile())
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	store, err := LoadBytes(raw, "")
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	rule, found := store.Lookup("aws_instance", map[string]interface{}{"instance_type": "t3.micro"})
	if !found {
		t.Fatal("expected a match")
	}
	if rule.ID != "ec2-general-v1" {
		t.Fatalf("expected the general rule, got %s", rule.ID)
	}
}

func TestLookupIsTotalAndNeverPanics(t *testing.T) {
	raw, err := json.Marshal(sampleFile())
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	store, err := LoadBytes(raw, "")
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}

	_, found := store.Lookup("aws_totally_unknown_resource", nil)
	if found {
		t.Fatal("expected no match for an unknown resource type")
	}
}

func TestCanonicalizeIsDeterministic(t *testing.T) {
	file := sampleFile()
	first := Canonicalize(file.Rules)
	second := Canonicalize(file.Rules)
	if string(first) != string(second) {
		t.Fatal("expected Canonicalize to be deterministic")
	}
}
