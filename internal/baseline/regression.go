package baseline

import (
	"costpilot/internal/canon"
	"costpilot/internal/config"
	"costpilot/internal/domain"
)

// RegressionKind classifies how one resource's predicted cost or presence
// changed between two snapshots.
type RegressionKind string

const (
	RegressionCostIncrease  RegressionKind = "CostIncrease"
	RegressionCostDecrease  RegressionKind = "CostDecrease"
	RegressionNewResource   RegressionKind = "NewResource"
	RegressionDeletedRes    RegressionKind = "DeletedResource"
	RegressionModifiedRes   RegressionKind = "ModifiedResource"
	RegressionDependencyChg RegressionKind = "DependencyChange"
)

// Finding is one resource's regression result against the prior snapshot.
type Finding struct {
	Address       string
	Kind          RegressionKind
	Delta         float64
	DeltaFraction float64
	Driver        string
	Severity      domain.Severity
	Dependency    DependencyContext
}

// DependencyContext summarizes a resource's position in the change graph,
// attached to every regression finding (spec.md §4.9).
type DependencyContext struct {
	DirectDependencies []string
	DownstreamCount    int
	InCycle            bool
}

// CompareSnapshots classifies every resource's regression between a prior
// snapshot and the current predictions, applying the fixed 5% reporting
// threshold (of the higher of the two costs) from cfg. Resources whose
// change falls below threshold are not reported at all. graph provides
// dependency context for each finding.
func CompareSnapshots(prior domain.Snapshot, current []domain.Prediction, graph *DependencyGraph, cfg config.BaselineConfig) []Finding {
	priorByAddr := make(map[string]domain.Prediction, len(prior.Predictions))
	for _, p := range prior.Predictions {
		priorByAddr[p.Address] = p
	}
	currentByAddr := make(map[string]domain.Prediction, len(current))
	var addresses []string
	for _, p := range current {
		currentByAddr[p.Address] = p
		addresses = append(addresses, p.Address)
	}
	for addr := range priorByAddr {
		if _, ok := currentByAddr[addr]; !ok {
			addresses = append(addresses, addr)
		}
	}
	sortStrings(addresses)

	var priorGraph *DependencyGraph
	if len(prior.Edges) > 0 {
		priorGraph = NewDependencyGraph(prior.Edges)
	}

	var findings []Finding
	for _, addr := range addresses {
		before, hadBefore := priorByAddr[addr]
		after, hasAfter := currentByAddr[addr]

		var f Finding
		switch {
		case !hadBefore && hasAfter:
			f = Finding{Address: addr, Kind: RegressionNewResource, Delta: after.Interval.P50, Driver: "resource created"}
		case hadBefore && !hasAfter:
			f = Finding{Address: addr, Kind: RegressionDeletedRes, Delta: -before.Interval.P50, Driver: "resource deleted"}
		default:
			// Presence on both sides with a real entry in current means
			// detection already classified this address as a non-no-op
			// change this run (no-op actions never reach prediction), so
			// every such address is one of CostIncrease/CostDecrease,
			// DependencyChange, or — failing both — ModifiedResource; none
			// are silently dropped.
			delta := after.Interval.P50 - before.Interval.P50
			higher := before.Interval.P50
			if after.Interval.P50 > higher {
				higher = after.Interval.P50
			}
			var fraction float64
			if higher != 0 {
				fraction = delta / higher
			}
			depChanged := dependencySetChanged(priorGraph, graph, addr)

			switch {
			case higher != 0 && abs(fraction) >= cfg.RegressionReportThreshold:
				kind := RegressionCostIncrease
				if delta < 0 {
					kind = RegressionCostDecrease
				}
				f = Finding{Address: addr, Kind: kind, Delta: delta, DeltaFraction: canon.NormalizeFloat(fraction), Driver: "predicted cost changed"}
			case depChanged:
				f = Finding{Address: addr, Kind: RegressionDependencyChg, Delta: delta, DeltaFraction: canon.NormalizeFloat(fraction), Driver: "dependency set changed"}
			default:
				f = Finding{Address: addr, Kind: RegressionModifiedRes, Delta: delta, DeltaFraction: canon.NormalizeFloat(fraction), Driver: "configuration changed with cost impact below the regression threshold"}
			}
		}

		f.Severity = regressionSeverity(f, cfg)
		if graph != nil {
			f.Dependency = graph.Context(addr)
		}
		findings = append(findings, f)
	}
	return findings
}

// dependencySetChanged reports whether addr's sorted direct-dependency
// list differs between the prior and current dependency graphs. Either
// graph being absent (no edges supplied that invocation) means there is
// nothing to compare, so it reports no change rather than a false positive.
func dependencySetChanged(priorGraph, currentGraph *DependencyGraph, addr string) bool {
	if priorGraph == nil || currentGraph == nil {
		return false
	}
	before := priorGraph.Context(addr).DirectDependencies
	after := currentGraph.Context(addr).DirectDependencies
	if len(before) != len(after) {
		return true
	}
	for i := range before {
		if before[i] != after[i] {
			return true
		}
	}
	return false
}

func regressionSeverity(f Finding, cfg config.BaselineConfig) domain.Severity {
	abs := f.DeltaFraction
	if abs < 0 {
		abs = -abs
	}
	switch {
	case abs > cfg.Regression.Critical:
		return domain.SeverityCritical
	case abs > cfg.Regression.High:
		return domain.SeverityHigh
	case abs > cfg.Regression.Medium:
		return domain.SeverityMedium
	default:
		return domain.SeverityLow
	}
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}
