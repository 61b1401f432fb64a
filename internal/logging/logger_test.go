package logging

import (
	"os"
	"path/filepath"
	"testing"
)

func TestInitializeProductionModeIsNoop(t *testing.T) {
	if err := Initialize("", false); err != nil {
		t.Fatalf("Initialize(debug=false) should not error: %v", err)
	}
	if IsDebugMode() {
		t.Fatalf("expected debug mode to be disabled")
	}
	Get(CategoryPipeline).Info("should not create any file")
}

func TestInitializeDebugModeCreatesLogFile(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true); err != nil {
		t.Fatalf("Initialize(debug=true): %v", err)
	}
	defer CloseAll()

	Emit(Event{Category: CategoryDetection, Action: "parse_plan", Success: true})

	path := filepath.Join(dir, ".costpilot", "logs", string(CategoryDetection)+".log")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected log file at %s: %v", path, err)
	}
}

func TestStageTimer(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, true); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	timer := StartStageTimer(CategoryPrediction, "predict_all")
	elapsed := timer.Stop(true)
	if elapsed < 0 {
		t.Fatalf("expected non-negative elapsed duration")
	}
}
