package logging

import "time"

// Event is a lightweight, structured diagnostic record emitted alongside
// zap log lines for events an operator may want to grep/filter on — stage
// entry/exit, sandbox terminations, license checks. It has no integrity
// guarantee and is not the evidence ledger (see internal/audit for that).
type Event struct {
	Timestamp  time.Time              `json:"ts"`
	Category   Category               `json:"category"`
	Action     string                 `json:"action"`
	Target     string                 `json:"target,omitempty"`
	Success    bool                   `json:"success"`
	DurationMs int64                  `json:"dur_ms,omitempty"`
	Fields     map[string]interface{} `json:"fields,omitempty"`
}

// Emit writes a diagnostic event to the category's logger at info (success)
// or warn (failure) level.
func Emit(e Event) {
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	l := Get(e.Category)
	fields := []interface{}{"action", e.Action, "success", e.Success}
	if e.Target != "" {
		fields = append(fields, "target", e.Target)
	}
	if e.DurationMs > 0 {
		fields = append(fields, "dur_ms", e.DurationMs)
	}
	for k, v := range e.Fields {
		fields = append(fields, k, v)
	}
	if e.Success {
		l.Infow("event", fields...)
	} else {
		l.Warnw("event", fields...)
	}
}

// StageTimer measures a pipeline stage's wall-clock duration for the debug
// log (separate from the sandbox envelope's enforced budgets).
type StageTimer struct {
	category Category
	action   string
	start    time.Time
}

// StartStageTimer begins timing a named stage.
func StartStageTimer(category Category, action string) *StageTimer {
	return &StageTimer{category: category, action: action, start: time.Now()}
}

// Stop ends the timer and emits a diagnostic event.
func (t *StageTimer) Stop(success bool) time.Duration {
	elapsed := time.Since(t.start)
	Emit(Event{Category: t.category, Action: t.action, Success: success, DurationMs: elapsed.Milliseconds()})
	return elapsed
}
