// Package explain implements the explain engine (C8): builds an ordered
// reasoning chain for every prediction, and renders any textual grammar
// derived from it. Rendering follows a fixed grammar contract (spec.md
// §4.7) — no hedging language, currency always "$X.XX", severity labels
// uppercase, fixed sentence templates — so rendering a chain built from
// identical input always produces byte-identical text. This package does
// not decide anti-pattern membership itself; internal/explain/antipattern
// does that with Google Mangle and Explain only turns its Findings into
// steps.
package explain

import (
	"fmt"

	"costpilot/internal/domain"
	"costpilot/internal/explain/antipattern"
)

// Input is everything one resource change's reasoning chain is built
// from: the change itself, its prediction, the heuristic rule that
// produced it (if any), and any anti-pattern findings already computed
// for its address.
type Input struct {
	Change           domain.ResourceChange
	Prediction       domain.Prediction
	Rule             domain.HeuristicRule
	RuleMatched      bool
	Findings         []antipattern.Finding
	StaleApplied     bool
	ColdStartApplied bool
}

// Build constructs one resource change's reasoning chain. Steps are
// appended in a fixed order — lookup, then quantity/cost derivation, then
// confidence adjustment, then anti-pattern matches — so the chain's
// Confidence() product is reproducible regardless of how the caller
// gathered its inputs (domain.ReasoningChain.Confidence requires exactly
// this: steps pre-sorted into a stable order before construction).
func Build(in Input) domain.ReasoningChain {
	var steps []domain.ReasoningStep

	steps = append(steps, lookupStep(in))
	steps = append(steps, costStep(in))

	if in.StaleApplied {
		steps = append(steps, staleStep(in))
	} else if in.ColdStartApplied {
		steps = append(steps, coldStartConfidenceStep(in))
	}

	for _, f := range sortedFindings(in.Findings) {
		steps = append(steps, antiPatternStep(f))
	}

	return domain.ReasoningChain{Address: in.Change.Address, Steps: steps}
}

func lookupStep(in Input) domain.ReasoningStep {
	if !in.RuleMatched {
		return domain.ReasoningStep{
			Type:            domain.StepHeuristicLookup,
			Template:        fmt.Sprintf("No heuristic rule matched resource type %s; using a conservative cold-start estimate.", in.Change.ResourceType),
			ConfidenceDelta: 1.0,
			ProvenanceRef:   in.Prediction.Provenance.ProvenanceHash,
		}
	}
	return domain.ReasoningStep{
		Type:            domain.StepHeuristicLookup,
		Template:        fmt.Sprintf("Matched heuristic rule %s (version %s) for resource type %s.", in.Rule.ID, in.Rule.Version, in.Rule.ResourceType),
		Evidence:        predicateEvidence(in.Rule),
		ConfidenceDelta: 1.0,
		ProvenanceRef:   in.Prediction.Provenance.ProvenanceHash,
	}
}

func predicateEvidence(rule domain.HeuristicRule) []string {
	evidence := make([]string, 0, len(rule.Predicates))
	for _, p := range rule.Predicates {
		evidence = append(evidence, fmt.Sprintf("%s %s %s", p.Attribute, p.Operator, p.Value))
	}
	return evidence
}

func costStep(in Input) domain.ReasoningStep {
	return domain.ReasoningStep{
		Type:            domain.StepBaseCostCalculation,
		Template:        fmt.Sprintf("Estimated monthly cost for %s: %s (range %s to %s).", in.Change.Address, Money(in.Prediction.Interval.P50), Money(in.Prediction.Interval.P10), Money(in.Prediction.Interval.P99)),
		ConfidenceDelta: 1.0,
	}
}

func staleStep(in Input) domain.ReasoningStep {
	return domain.ReasoningStep{
		Type:            domain.StepConfidenceAdjustment,
		Template:        fmt.Sprintf("Heuristic rule %s has not been updated within the staleness horizon; confidence was downgraded.", in.Rule.ID),
		ConfidenceDelta: in.Prediction.Confidence,
	}
}

func coldStartConfidenceStep(in Input) domain.ReasoningStep {
	return domain.ReasoningStep{
		Type:            domain.StepConfidenceAdjustment,
		Template:        fmt.Sprintf("No heuristic rule covers %s; confidence was held to the cold-start floor.", in.Change.ResourceType),
		ConfidenceDelta: in.Prediction.Confidence,
	}
}

func antiPatternStep(f antipattern.Finding) domain.ReasoningStep {
	return domain.ReasoningStep{
		Type:            domain.StepAntiPatternMatch,
		Template:        fmt.Sprintf("%s matches the %s anti-pattern.", f.Address, string(f.Code)),
		ConfidenceDelta: 1.0,
	}
}

// sortedFindings returns findings ordered by (Code, Address), matching
// internal/explain/antipattern.Detect's own deterministic ordering, so
// callers that pass an unsorted subset still get reproducible chains.
func sortedFindings(findings []antipattern.Finding) []antipattern.Finding {
	out := make([]antipattern.Finding, len(findings))
	copy(out, findings)
	for i := 1; i < len(out); i++ {
		for j := i; j > 0 && lessFinding(out[j], out[j-1]); j-- {
			out[j], out[j-1] = out[j-1], out[j]
		}
	}
	return out
}

func lessFinding(a, b antipattern.Finding) bool {
	if a.Code != b.Code {
		return a.Code < b.Code
	}
	return a.Address < b.Address
}

// Money renders a dollar amount per the fixed grammar contract: always
// two decimal places, always a leading "$", never a thousands separator.
func Money(amount float64) string {
	return fmt.Sprintf("$%.2f", amount)
}

// Severity renders a severity label per the fixed grammar contract:
// always uppercase.
func Severity(s domain.Severity) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		out[i] = c
	}
	return string(out)
}
