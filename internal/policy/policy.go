package policy

import (
	"sort"
	"time"

	"costpilot/internal/domain"
)

// Rule is one operator-authored policy: an id, severity, the parsed
// condition, the action to take when it fires, and the lifecycle state it
// must be in to be enforced.
type Rule struct {
	ID           string
	Severity     domain.Severity
	Condition    Node
	Action       domain.PolicyAction
	State        domain.LifecycleState
	ExemptionRef string
}

// Diagnostic records a non-firing, inconclusive evaluation — a rule whose
// condition evaluated to Undefined. It is reported alongside verdicts but
// never blocks the pipeline by itself.
type Diagnostic struct {
	PolicyID string
	Reason   string
}

// actionReason maps a firing rule's action to the verdict reason text
// describing what actually happened, since a fired rule is not always
// "Blocked" — only a Block-action rule is.
var actionReason = map[domain.PolicyAction]string{
	domain.PolicyActionBlock:           "Blocked",
	domain.PolicyActionRequireApproval: "ApprovalRequired",
	domain.PolicyActionWarn:            "Warned",
	domain.PolicyActionAdvisory:        "Advisory",
}

// Result is one invocation's full policy evaluation outcome.
type Result struct {
	Verdicts    []domain.PolicyVerdict
	Diagnostics []Diagnostic
	// CriticalBlockFired is true when any Critical-severity Block rule
	// fired without an exemption — the severity floor from spec.md §4.8:
	// this alone forces the pipeline to report failure even if every
	// other engine succeeds.
	CriticalBlockFired bool
}

// Evaluate runs every enforceable rule (state Active or Deprecated)
// against one resource change in lexicographic rule-id order, applying
// exemption suppression, and returns the accumulated verdicts and
// diagnostics. Rules outside {Active, Deprecated} are skipped entirely —
// Draft/Review/Approved policies are not yet enforceable.
func Evaluate(rules []Rule, ctx *EvalContext, exemptions []domain.Exemption, now time.Time) Result {
	ordered := make([]Rule, len(rules))
	copy(ordered, rules)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].ID < ordered[j].ID })

	var result Result
	for _, rule := range ordered {
		if !enforceable(rule.State) {
			continue
		}
		outcome := rule.Condition.Eval(ctx)
		if outcome.IsUndefined() {
			result.Diagnostics = append(result.Diagnostics, Diagnostic{
				PolicyID: rule.ID,
				Reason:   "condition referenced a field that was absent or type-incompatible",
			})
			continue
		}
		if outcome.Kind != KindBool || !outcome.Bool {
			continue
		}

		exemption, exempted := findExemption(exemptions, rule.ID, ctx.Change.Address, now)
		verdict := domain.PolicyVerdict{
			PolicyID: rule.ID,
			Severity: rule.Severity,
			Action:   rule.Action,
			Fired:    true,
			Exempted: exempted,
		}
		if exempted {
			verdict.Reason = "ExemptionApplied: " + exemption.ID
		} else {
			verdict.Reason = actionReason[rule.Action]
			if verdict.Reason == "" {
				verdict.Reason = string(rule.Action)
			}
			if rule.Severity == domain.SeverityCritical && rule.Action == domain.PolicyActionBlock {
				result.CriticalBlockFired = true
			}
		}
		result.Verdicts = append(result.Verdicts, verdict)
	}
	return result
}

func enforceable(state domain.LifecycleState) bool {
	return state == domain.LifecycleActive || state == domain.LifecycleDeprecated
}

// findExemption returns the first unexpired exemption matching policyID
// and address, in the order given — callers are expected to pass
// exemptions pre-sorted by id for deterministic selection when more than
// one could apply.
func findExemption(exemptions []domain.Exemption, policyID, address string, now time.Time) (domain.Exemption, bool) {
	for _, ex := range exemptions {
		if ex.PolicyID != policyID {
			continue
		}
		if ex.ResourceSelector != address && ex.ResourceSelector != "*" {
			continue
		}
		if now.After(ex.Expiry) {
			continue
		}
		return ex, true
	}
	return domain.Exemption{}, false
}
