package report

import (
	"strings"
	"testing"
	"time"

	"costpilot/internal/domain"
)

func TestBuildAndMarshalHasSchemaVersionFirst(t *testing.T) {
	doc := Build(nil, 1234.5, 0, nil, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
	out, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(out)
	if !strings.HasPrefix(s, "{\n  \"diagnostics\"") && !strings.Contains(s, `"schema_version": "1.0.0"`) {
		t.Fatalf("expected schema_version field present, got: %s", s)
	}
	if !strings.HasSuffix(s, "\n") {
		t.Fatal("expected a trailing newline")
	}
	if strings.Contains(s, "\r\n") {
		t.Fatal("expected LF line endings only")
	}
}

func TestNewMoneyFormatsTwoDecimals(t *testing.T) {
	if NewMoney(1234.5) != "$1234.50" {
		t.Fatalf("unexpected rendering: %s", NewMoney(1234.5))
	}
}

func TestMarshalKeysAreAlphabeticallyOrdered(t *testing.T) {
	doc := Build([]domain.Finding{{Address: "aws_instance.web"}}, 100, 2, []string{"note"}, time.Now())
	out, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	s := string(out)
	diagIdx := strings.Index(s, `"diagnostics"`)
	exitIdx := strings.Index(s, `"exit_code"`)
	findIdx := strings.Index(s, `"findings"`)
	genIdx := strings.Index(s, `"generated_at"`)
	schemaIdx := strings.Index(s, `"schema_version"`)
	if !(diagIdx < exitIdx && exitIdx < findIdx && findIdx < genIdx && genIdx < schemaIdx) {
		t.Fatalf("expected alphabetical key order, got: %s", s)
	}
}

func TestMarshalIsDeterministic(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	doc := Build([]domain.Finding{{Address: "a"}}, 100, 0, nil, now)
	first, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	second, err := Marshal(doc)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(first) != string(second) {
		t.Fatal("expected Marshal to be deterministic")
	}
}
