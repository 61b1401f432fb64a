// Package sandbox implements the sandbox envelope (C4): a wall-clock
// deadline, memory-growth watchdog, call-stack depth guard, and input-size
// check wrapped around any stage closure. internal/pipeline runs the
// detection stage and the Premium anti-pattern stage inside Run's
// wall-clock and memory budgets; prediction, policy, baseline and audit
// run outside it. No externally supplied signed module is executed in
// this repository: VerifyModule only checks a module's signature. The
// envelope is the only place a stage is permitted to be interrupted
// (spec.md §5 "Suspension points").
package sandbox

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"costpilot/internal/config"
	"costpilot/internal/cperrors"
)

// Output is whatever a sandboxed stage closure produces.
type Output interface{}

// StageFunc is a unit of work run inside the envelope. It must be
// synchronous and must not spawn goroutines that outlive it; the
// envelope's watchdog assumes the closure's own goroutine is the only
// one doing work.
type StageFunc func(ctx context.Context) (Output, error)

// Envelope bounds one stage's execution against a fixed resource budget.
type Envelope struct {
	limits config.SandboxLimits
}

// New builds an Envelope from the configured sandbox limits.
func New(limits config.SandboxLimits) *Envelope {
	return &Envelope{limits: limits}
}

// Run executes fn under the envelope's wall-clock and memory budgets for
// the named stage (one of config.StageBudgets' fields). It never lets a
// runaway stage block the pipeline past its sub-budget: on timeout it
// returns SandboxExceeded and the caller must discard any partial result
// (spec.md §5 "no partial findings").
func (e *Envelope) Run(ctx context.Context, stageBudgetMs int64, fn StageFunc) (Output, error) {
	budget := time.Duration(stageBudgetMs) * time.Millisecond
	if budget <= 0 {
		budget = time.Duration(e.limits.MaxWallclockMs) * time.Millisecond
	}

	stageCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	var startMem runtime.MemStats
	runtime.ReadMemStats(&startMem)

	type result struct {
		out Output
		err error
	}
	done := make(chan result, 1)

	go func() {
		out, err := fn(stageCtx)
		done <- result{out, err}
	}()

	watchdog := time.NewTicker(10 * time.Millisecond)
	defer watchdog.Stop()

	for {
		select {
		case r := <-done:
			return r.out, r.err

		case <-stageCtx.Done():
			return nil, cperrors.New(cperrors.KindSandboxExceeded, cperrors.CodeSandboxWallclockExceeded,
				fmt.Sprintf("stage exceeded its %v wall-clock budget", budget),
				map[string]string{"budget_ms": fmt.Sprintf("%d", budget.Milliseconds())})

		case <-watchdog.C:
			var cur runtime.MemStats
			runtime.ReadMemStats(&cur)
			if grew := int64(cur.Alloc) - int64(startMem.Alloc); grew > e.limits.MaxMemoryBytes {
				return nil, cperrors.New(cperrors.KindSandboxExceeded, cperrors.CodeSandboxMemoryExceeded,
					fmt.Sprintf("stage exceeded its %d byte memory budget", e.limits.MaxMemoryBytes),
					map[string]string{"budget_bytes": fmt.Sprintf("%d", e.limits.MaxMemoryBytes), "observed_bytes": fmt.Sprintf("%d", grew)})
			}
		}
	}
}

// CheckInputSize enforces the input-size budget before a stage even starts.
func (e *Envelope) CheckInputSize(n int) error {
	if int64(n) > e.limits.MaxInputBytes {
		return cperrors.New(cperrors.KindSandboxExceeded, cperrors.CodeSandboxInputSizeExceeded,
			fmt.Sprintf("input size %d exceeds budget %d", n, e.limits.MaxInputBytes),
			map[string]string{"input_bytes": fmt.Sprintf("%d", n), "budget_bytes": fmt.Sprintf("%d", e.limits.MaxInputBytes)})
	}
	return nil
}

// CheckCallDepth enforces the call-stack depth budget for a caller that
// threads a depth counter through its recursion. No stage in this
// repository calls it; policy condition evaluation and dependency-graph
// traversal do not track their depth.
func (e *Envelope) CheckCallDepth(depth int) error {
	if depth > e.limits.MaxCallDepth {
		return cperrors.New(cperrors.KindSandboxExceeded, cperrors.CodeSandboxStackExceeded,
			fmt.Sprintf("call depth %d exceeds budget %d", depth, e.limits.MaxCallDepth),
			map[string]string{"depth": fmt.Sprintf("%d", depth), "budget": fmt.Sprintf("%d", e.limits.MaxCallDepth)})
	}
	return nil
}
