package license

import (
	"path/filepath"
	"testing"
	"time"
)

func TestRateLimiterAllowsUnderThreshold(t *testing.T) {
	dir := t.TempDir()
	r := NewRateLimiter(filepath.Join(dir, "rl.json"), []byte("secret"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxAttemptsPerWindow-1; i++ {
		if err := r.CheckAndGuard(now); err != nil {
			t.Fatalf("CheckAndGuard() unexpected error on attempt %d: %v", i, err)
		}
		if err := r.RecordFailure(now); err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
	}
}

func TestRateLimiterBlocksAtThreshold(t *testing.T) {
	dir := t.TempDir()
	r := NewRateLimiter(filepath.Join(dir, "rl.json"), []byte("secret"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxAttemptsPerWindow; i++ {
		if err := r.RecordFailure(now); err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
	}
	if err := r.CheckAndGuard(now); err == nil {
		t.Fatal("expected rate-limit error once threshold is reached")
	}
}

func TestRateLimiterResetsAfterWindowExpires(t *testing.T) {
	dir := t.TempDir()
	r := NewRateLimiter(filepath.Join(dir, "rl.json"), []byte("secret"))
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxAttemptsPerWindow; i++ {
		if err := r.RecordFailure(start); err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
	}
	later := start.Add(WindowDuration + time.Minute)
	if err := r.CheckAndGuard(later); err != nil {
		t.Fatalf("expected a fresh window to allow, got error: %v", err)
	}
}

func TestRateLimiterStateFileCannotBeHandEdited(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rl.json")
	r := NewRateLimiter(path, []byte("secret"))
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < MaxAttemptsPerWindow; i++ {
		if err := r.RecordFailure(now); err != nil {
			t.Fatalf("RecordFailure() error = %v", err)
		}
	}

	tampered := NewRateLimiter(path, []byte("a-different-secret"))
	if err := tampered.CheckAndGuard(now); err != nil {
		t.Fatalf("expected a forged/foreign state file to be ignored and reset, got error: %v", err)
	}
}
