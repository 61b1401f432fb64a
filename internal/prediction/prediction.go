// Package prediction implements the prediction engine (C7): for every
// resource change, looks up a heuristic rule (C1), derives a billable
// quantity, computes a point estimate and interval, attaches a provenance
// record (C2), and falls back to a conservative cold-start estimate when
// no rule matches. Predict is a pure function of (changes, heuristics,
// config, now): identical input always yields byte-identical output.
package prediction

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"costpilot/internal/canon"
	"costpilot/internal/config"
	"costpilot/internal/domain"
	"costpilot/internal/heuristics"
	"costpilot/internal/provenance"
)

// confidenceBase is the starting confidence assigned to a matched rule,
// before any staleness decay, keyed by the rule's declared confidence
// class.
var confidenceBase = map[domain.ConfidenceClass]float64{
	domain.ConfidenceHigh:   0.90,
	domain.ConfidenceMedium: 0.70,
	domain.ConfidenceLow:    0.50,
}

// intervalSpread is the fractional half-width applied around a point
// estimate to build (p10, p90), keyed by confidence class; p99 is always
// 1.5x the p90 spread. A High-confidence rule produces a narrow interval,
// a Low-confidence rule a wide one.
var intervalSpread = map[domain.ConfidenceClass]float64{
	domain.ConfidenceHigh:   0.10,
	domain.ConfidenceMedium: 0.25,
	domain.ConfidenceLow:    0.45,
}

// coldStartConfidence is the fixed, low confidence assigned to any
// resource change with no matching heuristic rule.
const coldStartConfidence = 0.20

// Predict computes one prediction per resource change, preserving input
// order. Each change is predicted independently, so the work is run with
// bounded parallelism and merged back by index rather than completion
// order, keeping output order deterministic regardless of goroutine
// scheduling.
func Predict(ctx context.Context, changes []domain.ResourceChange, store *heuristics.Store, cfg config.PredictionConfig, now time.Time) ([]domain.Prediction, error) {
	predictions := make([]domain.Prediction, len(changes))

	eg, egCtx := errgroup.WithContext(ctx)
	for i, change := range changes {
		i, change := i, change
		eg.Go(func() error {
			select {
			case <-egCtx.Done():
				return egCtx.Err()
			default:
			}
			p, err := predictOne(change, store, cfg, now)
			if err != nil {
				return fmt.Errorf("predicting %s: %w", change.Address, err)
			}
			predictions[i] = p
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return predictions, nil
}

func predictOne(change domain.ResourceChange, store *heuristics.Store, cfg config.PredictionConfig, now time.Time) (domain.Prediction, error) {
	if change.Action == domain.ActionDelete {
		return deletionPrediction(change), nil
	}

	rule, found := store.Lookup(change.ResourceType, change.NewConfig)
	if !found {
		return coldStartPrediction(change, cfg)
	}

	quantity := DeriveQuantity(rule.Formula.UnitName, change)
	point := rule.Formula.BaseMonthly + rule.Formula.UnitCost*quantity

	interval := buildInterval(point, intervalSpread[rule.ConfidenceClass])

	staleMult := StalenessMultiplier(rule.UpdatedAt, now, cfg)
	confidence := clamp01(confidenceBase[rule.ConfidenceClass] * staleMult)

	prov, err := provenance.ForRule(rule)
	if err != nil {
		return domain.Prediction{}, err
	}
	if staleMult < 1.0 {
		prov.FallbackReason = domain.FallbackHeuristicStale
	}

	return domain.Prediction{
		Address:    change.Address,
		Interval:   interval,
		Confidence: confidence,
		Provenance: prov,
	}, nil
}

// deletionPrediction assigns a removed resource a zero-cost, high-confidence
// prediction: there is nothing left to estimate a running cost for.
func deletionPrediction(change domain.ResourceChange) domain.Prediction {
	return domain.Prediction{
		Address:    change.Address,
		Interval:   domain.PredictionInterval{P10: 0, P50: 0, P90: 0, P99: 0},
		Confidence: 1.0,
		Provenance: domain.ProvenanceRecord{
			HeuristicID:      "n/a",
			HeuristicVersion: "n/a",
			ConfidenceSource: domain.ConfidenceSourceHeuristic,
			ProvenanceHash:   canon.ID("deletion", change.Address),
		},
	}
}

// coldStartPrediction builds a conservative, visibly wide interval for a
// resource change with no matching heuristic rule. The interval's width is
// driven by cfg.ColdStartIntervalRatio, the minimum (p99-p10)/p50 ratio
// cold-start estimates must exhibit: buildInterval's p10/p90/p99 formula
// makes that ratio 2.5x the fractional half-width, so the spread passed in
// is the configured ratio scaled back down by that factor.
func coldStartPrediction(change domain.ResourceChange, cfg config.PredictionConfig) (domain.Prediction, error) {
	// A cold-start point estimate of zero with a wide relative interval
	// would collapse to a degenerate (0,0,0,0) interval, so a small fixed
	// floor is used as the point estimate before widening.
	const coldStartPointFloor = 10.0
	spread := cfg.ColdStartIntervalRatio / 2.5
	interval := buildInterval(coldStartPointFloor, spread)

	prov, err := provenance.ColdStart(change.ResourceType, domain.FallbackHeuristicMissing)
	if err != nil {
		return domain.Prediction{}, err
	}

	return domain.Prediction{
		Address:    change.Address,
		Interval:   interval,
		Confidence: coldStartConfidence,
		Provenance: prov,
	}, nil
}

// buildInterval expands a point estimate into a (p10, p50, p90, p99)
// tuple at the given fractional half-width, then enforces the ordering,
// finiteness, and non-negativity invariant (spec.md §3).
func buildInterval(point, spread float64) domain.PredictionInterval {
	p10 := point * (1 - spread)
	p90 := point * (1 + spread)
	p99 := point * (1 + spread*1.5)

	interval := domain.PredictionInterval{
		P10: canon.NormalizeFloat(p10),
		P50: canon.NormalizeFloat(point),
		P90: canon.NormalizeFloat(p90),
		P99: canon.NormalizeFloat(p99),
	}
	return enforceOrdering(interval)
}

// enforceOrdering clamps negative bounds to zero and sorts the four
// values into non-decreasing order, guaranteeing the p10<=p50<=p90<=p99
// invariant holds regardless of how the caller derived them.
func enforceOrdering(interval domain.PredictionInterval) domain.PredictionInterval {
	vals := []float64{interval.P10, interval.P50, interval.P90, interval.P99}
	for i, v := range vals {
		if v < 0 {
			vals[i] = 0
		}
	}
	sort.Float64s(vals)
	return domain.PredictionInterval{P10: vals[0], P50: vals[1], P90: vals[2], P99: vals[3]}
}

func clamp01(f float64) float64 {
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}
