package policy

import (
	"fmt"

	"costpilot/internal/domain"
)

// Transition is a single lifecycle state change, carrying everything the
// audit log (C11) needs to record it. The policy engine never appends to
// the audit log itself and has no import on internal/audit. Nothing in
// internal/pipeline or cmd/costpilot calls Apply, so no transition is
// written to the audit log.
type Transition struct {
	PolicyID  string
	From      domain.LifecycleState
	To        domain.LifecycleState
	Actor     string
	Approvals int
}

// validTransitions enumerates every allowed (from, to) pair. Draft,
// Review, and Approved may fall back to Draft; every other edge moves
// forward exactly one step; Archived has no outgoing edges.
var validTransitions = map[domain.LifecycleState]map[domain.LifecycleState]bool{
	domain.LifecycleDraft:      {domain.LifecycleReview: true},
	domain.LifecycleReview:     {domain.LifecycleApproved: true, domain.LifecycleDraft: true},
	domain.LifecycleApproved:   {domain.LifecycleActive: true, domain.LifecycleDraft: true},
	domain.LifecycleActive:     {domain.LifecycleDeprecated: true},
	domain.LifecycleDeprecated: {domain.LifecycleArchived: true},
	domain.LifecycleArchived:   {},
}

// MinApprovalsForActivation is the minimum recorded approval count an
// Approved→Active transition requires; spec.md §4.8 says this is
// "configured per policy", but every policy in this implementation
// shares the same floor until a per-policy override is introduced.
const MinApprovalsForActivation = 1

// Apply validates a requested transition against the state machine,
// returning an error naming the specific violated rule rather than
// silently no-opping. It never mutates rule.State itself and appends no
// audit entry; committing the new state and recording it is left to the
// caller.
func Apply(t Transition) error {
	if t.Actor == "" {
		return fmt.Errorf("policy: lifecycle transition for %s requires a recorded actor", t.PolicyID)
	}
	allowed, ok := validTransitions[t.From]
	if !ok || !allowed[t.To] {
		return fmt.Errorf("policy: %s cannot transition from %s to %s", t.PolicyID, t.From, t.To)
	}
	if t.From == domain.LifecycleApproved && t.To == domain.LifecycleActive && t.Approvals < MinApprovalsForActivation {
		return fmt.Errorf("policy: %s requires at least %d approval(s) to activate, has %d", t.PolicyID, MinApprovalsForActivation, t.Approvals)
	}
	return nil
}

// Editable reports whether a policy in the given state may have its
// condition, severity, or action edited.
func Editable(state domain.LifecycleState) bool {
	return state == domain.LifecycleDraft
}

// Enforceable reports whether a policy in the given state participates
// in Evaluate.
func Enforceable(state domain.LifecycleState) bool {
	return enforceable(state)
}
