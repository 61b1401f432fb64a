package prediction

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"costpilot/internal/config"
	"costpilot/internal/domain"
	"costpilot/internal/heuristics"
)

func testStore(t *testing.T) *heuristics.Store {
	t.Helper()
	file := heuristics.File{
		Version:   "1.0.0",
		Issuer:    "costpilot-core",
		UpdatedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Rules: []domain.HeuristicRule{
			{
				ID:              "ec2-general-v1",
				Version:         "1.0.0",
				ResourceType:    "aws_instance",
				Formula:         domain.CostFormula{BaseMonthly: 0, UnitCost: 0.05, UnitName: "instance-hour"},
				ConfidenceClass: domain.ConfidenceHigh,
				UpdatedAt:       time.Now().Add(-24 * time.Hour),
			},
		},
	}
	raw, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	store, err := heuristics.LoadBytes(raw, "")
	if err != nil {
		t.Fatalf("LoadBytes() error = %v", err)
	}
	return store
}

func TestPredictMatchedRuleProducesOrderedInterval(t *testing.T) {
	store := testStore(t)
	changes := []domain.ResourceChange{
		{Address: "aws_instance.web", ResourceType: "aws_instance", Action: domain.ActionCreate, NewConfig: map[string]interface{}{}},
	}

	predictions, err := Predict(context.Background(), changes, store, config.DefaultPredictionConfig(), time.Now())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if len(predictions) != 1 {
		t.Fatalf("expected 1 prediction, got %d", len(predictions))
	}
	iv := predictions[0].Interval
	if !(iv.P10 <= iv.P50 && iv.P50 <= iv.P90 && iv.P90 <= iv.P99) {
		t.Fatalf("interval ordering invariant violated: %+v", iv)
	}
	if predictions[0].Provenance.HeuristicID != "ec2-general-v1" {
		t.Fatalf("unexpected provenance: %+v", predictions[0].Provenance)
	}
}

func TestPredictColdStartOnUnmatchedResource(t *testing.T) {
	store := testStore(t)
	changes := []domain.ResourceChange{
		{Address: "aws_lambda_function.fn", ResourceType: "aws_lambda_function", Action: domain.ActionCreate, NewConfig: map[string]interface{}{}},
	}

	predictions, err := Predict(context.Background(), changes, store, config.DefaultPredictionConfig(), time.Now())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if predictions[0].Provenance.ConfidenceSource != domain.ConfidenceSourceColdStart {
		t.Fatalf("expected ColdStart source, got %s", predictions[0].Provenance.ConfidenceSource)
	}
	if predictions[0].Provenance.FallbackReason != domain.FallbackHeuristicMissing {
		t.Fatalf("expected HeuristicMissing reason, got %s", predictions[0].Provenance.FallbackReason)
	}
}

func TestPredictDeletedResourceIsZeroCost(t *testing.T) {
	store := testStore(t)
	changes := []domain.ResourceChange{
		{Address: "aws_instance.old", ResourceType: "aws_instance", Action: domain.ActionDelete},
	}

	predictions, err := Predict(context.Background(), changes, store, config.DefaultPredictionConfig(), time.Now())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if predictions[0].Interval != (domain.PredictionInterval{}) {
		t.Fatalf("expected zero interval for deletion, got %+v", predictions[0].Interval)
	}
}

func TestPredictPreservesInputOrder(t *testing.T) {
	store := testStore(t)
	changes := []domain.ResourceChange{
		{Address: "z.last", ResourceType: "aws_instance", Action: domain.ActionCreate, NewConfig: map[string]interface{}{}},
		{Address: "a.first", ResourceType: "aws_instance", Action: domain.ActionCreate, NewConfig: map[string]interface{}{}},
	}

	predictions, err := Predict(context.Background(), changes, store, config.DefaultPredictionConfig(), time.Now())
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if predictions[0].Address != "z.last" || predictions[1].Address != "a.first" {
		t.Fatalf("expected input order preserved, got %v", predictions)
	}
}

func TestPredictIsDeterministic(t *testing.T) {
	store := testStore(t)
	changes := []domain.ResourceChange{
		{Address: "aws_instance.web", ResourceType: "aws_instance", Action: domain.ActionCreate, NewConfig: map[string]interface{}{}},
	}
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

	first, err := Predict(context.Background(), changes, store, config.DefaultPredictionConfig(), now)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	second, err := Predict(context.Background(), changes, store, config.DefaultPredictionConfig(), now)
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatal("expected Predict to be deterministic across runs")
	}
}

func TestStalenessMultiplierDecaysLinearly(t *testing.T) {
	cfg := config.DefaultPredictionConfig()
	updatedAt := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	fresh := StalenessMultiplier(updatedAt, updatedAt.Add(30*24*time.Hour), cfg)
	if fresh != 1.0 {
		t.Fatalf("expected multiplier 1.0 within horizon, got %f", fresh)
	}

	floor := StalenessMultiplier(updatedAt, updatedAt.Add(365*24*time.Hour), cfg)
	if floor != cfg.MinConfidenceMultiplier {
		t.Fatalf("expected floor multiplier beyond decay window, got %f", floor)
	}

	mid := StalenessMultiplier(updatedAt, updatedAt.Add(135*24*time.Hour), cfg)
	if !(mid > cfg.MinConfidenceMultiplier && mid < 1.0) {
		t.Fatalf("expected partial decay mid-window, got %f", mid)
	}
}
