package policy

import (
	"testing"

	"costpilot/internal/domain"
)

func TestApplyAllowsDraftToReview(t *testing.T) {
	err := Apply(Transition{PolicyID: "p1", From: domain.LifecycleDraft, To: domain.LifecycleReview, Actor: "alice"})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
}

func TestApplyRejectsSkippingStates(t *testing.T) {
	err := Apply(Transition{PolicyID: "p1", From: domain.LifecycleDraft, To: domain.LifecycleActive, Actor: "alice"})
	if err == nil {
		t.Fatal("expected an error for an illegal transition")
	}
}

func TestApplyRequiresActor(t *testing.T) {
	err := Apply(Transition{PolicyID: "p1", From: domain.LifecycleDraft, To: domain.LifecycleReview})
	if err == nil {
		t.Fatal("expected an error for a missing actor")
	}
}

func TestApplyRejectsActivationWithoutApproval(t *testing.T) {
	err := Apply(Transition{PolicyID: "p1", From: domain.LifecycleApproved, To: domain.LifecycleActive, Actor: "alice", Approvals: 0})
	if err == nil {
		t.Fatal("expected an error for activation without the minimum approval count")
	}
}

func TestApplyAllowsActivationWithApproval(t *testing.T) {
	err := Apply(Transition{PolicyID: "p1", From: domain.LifecycleApproved, To: domain.LifecycleActive, Actor: "alice", Approvals: 1})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
}

func TestApplyRejectsTransitionsOutOfArchived(t *testing.T) {
	err := Apply(Transition{PolicyID: "p1", From: domain.LifecycleArchived, To: domain.LifecycleDraft, Actor: "alice"})
	if err == nil {
		t.Fatal("expected Archived to be terminal")
	}
}

func TestEditableOnlyInDraft(t *testing.T) {
	if !Editable(domain.LifecycleDraft) {
		t.Fatal("expected Draft to be editable")
	}
	if Editable(domain.LifecycleActive) {
		t.Fatal("expected Active not to be editable")
	}
}

func TestEnforceableOnlyActiveOrDeprecated(t *testing.T) {
	if !Enforceable(domain.LifecycleActive) || !Enforceable(domain.LifecycleDeprecated) {
		t.Fatal("expected Active and Deprecated to be enforceable")
	}
	if Enforceable(domain.LifecycleApproved) {
		t.Fatal("expected Approved not to be enforceable")
	}
}
