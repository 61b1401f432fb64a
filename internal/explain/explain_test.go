package explain

import (
	"testing"

	"costpilot/internal/domain"
	"costpilot/internal/explain/antipattern"
)

func TestBuildMatchedRuleProducesLookupAndCostSteps(t *testing.T) {
	in := Input{
		Change: domain.ResourceChange{Address: "aws_instance.web", ResourceType: "aws_instance"},
		Prediction: domain.Prediction{
			Interval: domain.PredictionInterval{P10: 90, P50: 100, P90: 110, P99: 120},
		},
		Rule:        domain.HeuristicRule{ID: "ec2-general-v1", Version: "1.0.0", ResourceType: "aws_instance"},
		RuleMatched: true,
	}

	chain := Build(in)
	if len(chain.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(chain.Steps))
	}
	if chain.Steps[0].Type != domain.StepHeuristicLookup {
		t.Fatalf("expected first step to be HeuristicLookup, got %s", chain.Steps[0].Type)
	}
	if chain.Steps[1].Type != domain.StepBaseCostCalculation {
		t.Fatalf("expected second step to be BaseCostCalculation, got %s", chain.Steps[1].Type)
	}
}

func TestBuildUnmatchedRuleMentionsColdStart(t *testing.T) {
	in := Input{
		Change:      domain.ResourceChange{Address: "aws_lambda_function.fn", ResourceType: "aws_lambda_function"},
		RuleMatched: false,
	}

	chain := Build(in)
	if chain.Steps[0].Template == "" {
		t.Fatal("expected a non-empty cold-start template")
	}
}

func TestBuildIncludesStaleStepOnlyWhenApplied(t *testing.T) {
	in := Input{
		Change:      domain.ResourceChange{Address: "aws_instance.web"},
		Rule:        domain.HeuristicRule{ID: "ec2-general-v1"},
		RuleMatched: true,
	}

	withoutStale := Build(in)
	for _, s := range withoutStale.Steps {
		if s.Type == domain.StepConfidenceAdjustment {
			t.Fatal("did not expect a confidence adjustment step")
		}
	}

	in.StaleApplied = true
	withStale := Build(in)
	found := false
	for _, s := range withStale.Steps {
		if s.Type == domain.StepConfidenceAdjustment {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a confidence adjustment step when StaleApplied is true")
	}
}

func TestBuildIncludesConfidenceAdjustmentOnColdStart(t *testing.T) {
	in := Input{
		Change:           domain.ResourceChange{Address: "aws_lambda_function.fn", ResourceType: "aws_lambda_function"},
		RuleMatched:      false,
		ColdStartApplied: true,
		Prediction:       domain.Prediction{Confidence: 0.2},
	}

	chain := Build(in)
	found := false
	for _, s := range chain.Steps {
		if s.Type == domain.StepConfidenceAdjustment {
			found = true
		}
	}
	if !found {
		t.Fatal("expected a confidence adjustment step when ColdStartApplied is true")
	}
}

func TestBuildAppendsAntiPatternStepsSortedByCodeThenAddress(t *testing.T) {
	in := Input{
		Change:      domain.ResourceChange{Address: "aws_instance.web"},
		RuleMatched: true,
		Rule:        domain.HeuristicRule{ID: "x"},
		Findings: []antipattern.Finding{
			{Code: antipattern.S3NoLifecycle, Address: "b"},
			{Code: antipattern.OverprovisionedEC2, Address: "a"},
		},
	}

	chain := Build(in)
	tail := chain.Steps[len(chain.Steps)-2:]
	if tail[0].Type != domain.StepAntiPatternMatch || tail[1].Type != domain.StepAntiPatternMatch {
		t.Fatalf("expected trailing anti-pattern steps, got %+v", tail)
	}
}

func TestMoneyIsAlwaysTwoDecimals(t *testing.T) {
	if Money(1234.5) != "$1234.50" {
		t.Fatalf("unexpected rendering: %s", Money(1234.5))
	}
	if Money(0) != "$0.00" {
		t.Fatalf("unexpected rendering: %s", Money(0))
	}
}

func TestSeverityIsAlwaysUppercase(t *testing.T) {
	if Severity(domain.SeverityCritical) != "CRITICAL" {
		t.Fatalf("unexpected rendering: %s", Severity(domain.SeverityCritical))
	}
}

func TestBuildIsDeterministic(t *testing.T) {
	in := Input{
		Change:      domain.ResourceChange{Address: "aws_instance.web"},
		RuleMatched: true,
		Rule:        domain.HeuristicRule{ID: "ec2-general-v1"},
		Prediction:  domain.Prediction{Interval: domain.PredictionInterval{P10: 1, P50: 2, P90: 3, P99: 4}},
	}

	first := Build(in)
	second := Build(in)
	if len(first.Steps) != len(second.Steps) {
		t.Fatal("expected identical step count across runs")
	}
	for i := range first.Steps {
		if first.Steps[i].Template != second.Steps[i].Template {
			t.Fatalf("expected identical template at step %d", i)
		}
	}
}
