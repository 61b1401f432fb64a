package cperrors

import "testing"

func TestSignatureIsStableAcrossContextConstructionOrder(t *testing.T) {
	e1 := New(KindParse, CodePlanFormatUnrecognized, "bad plan", map[string]string{"file": "plan.json", "line": "1"})
	e2 := New(KindParse, CodePlanFormatUnrecognized, "different message text", map[string]string{"line": "1", "file": "plan.json"})

	sig1, err := e1.Signature()
	if err != nil {
		t.Fatalf("Signature() error = %v", err)
	}
	sig2, err := e2.Signature()
	if err != nil {
		t.Fatalf("Signature() error = %v", err)
	}
	if sig1 != sig2 {
		t.Fatalf("expected equal signatures regardless of message text and context order: %s vs %s", sig1, sig2)
	}
}

func TestSignatureDiffersByContextValue(t *testing.T) {
	e1 := New(KindParse, CodePlanFormatUnrecognized, "bad plan", map[string]string{"file": "a.json"})
	e2 := New(KindParse, CodePlanFormatUnrecognized, "bad plan", map[string]string{"file": "b.json"})

	sig1, _ := e1.Signature()
	sig2, _ := e2.Signature()
	if sig1 == sig2 {
		t.Fatalf("expected different signatures for different context values")
	}
}

func TestHintIsFixedTemplateNotFreeForm(t *testing.T) {
	e := New(KindLicense, CodeLicenseExpired, "license expired at 2026-01-01", nil)
	if e.Hint == "" {
		t.Fatal("expected a non-empty fixed hint")
	}
	if e.Hint != hintTemplates[CodeLicenseExpired] {
		t.Fatalf("hint should come from the fixed template table, got: %s", e.Hint)
	}
}

func TestUnknownCodeFallsBackToGenericHint(t *testing.T) {
	e := New(KindInternal, Code("not_a_real_code"), "oops", nil)
	if e.Hint == "" {
		t.Fatal("expected non-empty fallback hint")
	}
}

func TestToSignalIncludesAllFields(t *testing.T) {
	e := New(KindValidation, CodePredictionIntervalInverted, "p10 > p50", map[string]string{"address": "aws_instance.web"})
	sig, err := e.ToSignal()
	if err != nil {
		t.Fatalf("ToSignal() error = %v", err)
	}
	if sig.Code != CodePredictionIntervalInverted || sig.Category != KindValidation {
		t.Fatalf("unexpected signal: %+v", sig)
	}
	if sig.SignatureHash == "" {
		t.Fatal("expected non-empty signature hash")
	}
}

func TestIsMatchesOnCodeOnly(t *testing.T) {
	e1 := New(KindLicense, CodeLicenseExpired, "expired now", map[string]string{"a": "1"})
	e2 := New(KindLicense, CodeLicenseExpired, "expired later", map[string]string{"a": "2"})
	if !e1.Is(e2) {
		t.Fatal("expected errors with the same code to match via Is")
	}
}
