package pipeline

import (
	"context"
	"fmt"
	"sort"
	"time"

	"costpilot/internal/audit"
	"costpilot/internal/baseline"
	"costpilot/internal/canon"
	"costpilot/internal/detection"
	"costpilot/internal/domain"
	"costpilot/internal/explain"
	"costpilot/internal/explain/antipattern"
	"costpilot/internal/license"
	"costpilot/internal/logging"
	"costpilot/internal/policy"
	"costpilot/internal/prediction"
	"costpilot/internal/report"
	"costpilot/internal/sandbox"
)

// Inputs is everything one invocation needs beyond the Session: the raw
// plan document, the actor performing the run (for audit attribution),
// the dependency edges used for regression blast-radius context, and the
// current wall-clock time (passed explicitly so Run stays deterministic
// under test).
type Inputs struct {
	RawPlan   []byte
	Actor     string
	Edges     map[string][]string
	Tags      map[string]string
	Now       time.Time
	GitCommit string
	GitBranch string
}

// Result is one invocation's complete output: the rendered report
// document, the exit code to return from the CLI, the snapshot to persist
// for the next invocation's regression comparison, and the snapshot-to-
// snapshot regression findings (populated only when a prior snapshot was
// supplied) for a standalone `snapshot diff`-style report.
type Result struct {
	Document    report.Document
	Snapshot    domain.Snapshot
	Regressions []baseline.Finding
	ExitCode    int
}

// Run executes one full pipeline invocation over in.RawPlan using the
// resources s already loaded. It never returns a partial Result on
// failure: a stage error aborts the whole invocation and is returned
// as-is, already classified as a *cperrors.Error.
func (s *Session) Run(ctx context.Context, in Inputs) (Result, error) {
	log := logging.Get(logging.CategoryPipeline)

	changes, err := s.runDetection(ctx, in.RawPlan)
	if err != nil {
		log.Errorw("detection failed", "error", err)
		return Result{}, err
	}
	log.Debugw("detection complete", "resource_changes", len(changes))

	predictions, err := s.runPrediction(ctx, changes, in.Now)
	if err != nil {
		log.Errorw("prediction failed", "error", err)
		return Result{}, err
	}
	log.Debugw("prediction complete", "predictions", len(predictions))

	findingsByAddr, err := s.runAntiPatterns(ctx, changes, predictions)
	if err != nil {
		log.Errorw("anti-pattern detection failed", "error", err)
		return Result{}, err
	}

	chains := s.buildReasoningChains(changes, predictions, findingsByAddr)

	verdictsByAddr, policyResult := s.runPolicy(changes, predictions, in.Tags, in.Now)

	graph := s.dependencyGraph(in.Edges)
	regressionByAddr := s.runBaseline(predictions, graph)

	findings := s.assembleFindings(changes, predictions, chains, verdictsByAddr, regressionByAddr)

	exitCode := ExitSuccess
	if policyResult.CriticalBlockFired {
		exitCode = ExitPolicyBlocked
	}

	if err := s.recordAudit(verdictsByAddr, in); err != nil {
		log.Errorw("audit append failed", "error", err)
		return Result{}, err
	}
	log.Infow("invocation complete", "exit_code", exitCode, "findings", len(findings))

	total := 0.0
	for _, p := range predictions {
		total += p.Interval.P50
	}

	var diagnostics []string
	for _, d := range policyResult.Diagnostics {
		diagnostics = append(diagnostics, fmt.Sprintf("%s: %s", d.PolicyID, d.Reason))
	}
	sort.Strings(diagnostics)

	doc := report.Build(findings, total, exitCode, diagnostics, in.Now)

	snap := domain.Snapshot{
		Timestamp:   in.Now,
		GitCommit:   in.GitCommit,
		Branch:      in.GitBranch,
		Edges:       in.Edges,
		Predictions: predictions,
	}
	var snapshotRegressions []baseline.Finding
	if s.Prior != nil {
		prevHash, hashErr := canon.Hash(*s.Prior)
		if hashErr == nil {
			snap.PreviousHash = prevHash
		}
		snapshotRegressions = baseline.CompareSnapshots(*s.Prior, predictions, graph, s.Config.Baseline)
	}

	return Result{Document: doc, Snapshot: snap, Regressions: snapshotRegressions, ExitCode: exitCode}, nil
}

func (s *Session) runDetection(ctx context.Context, raw []byte) ([]domain.ResourceChange, error) {
	out, err := s.Sandbox.Run(ctx, s.Config.Sandbox.StageBudgetsMs.Detection, func(ctx context.Context) (sandbox.Output, error) {
		return detection.Detect(raw)
	})
	if err != nil {
		return nil, err
	}
	changes, _ := out.([]domain.ResourceChange)
	return changes, nil
}

func (s *Session) runPrediction(ctx context.Context, changes []domain.ResourceChange, now time.Time) ([]domain.Prediction, error) {
	return prediction.Predict(ctx, changes, s.Heuristics, s.Config.Prediction, now)
}

// runAntiPatterns is the C8 anti-pattern surface, gated Premium per
// spec.md §4.13/§8 edition gating: with no valid license it is skipped
// entirely rather than producing partial or degraded output, keeping
// Free-tier invocations byte-identical whether or not this stage exists.
// When it does run, it is wrapped in the sandbox envelope under the
// Mapping stage budget (C4), the same wall-clock/memory boundary any
// future externally-supplied anti-pattern ruleset would run inside.
func (s *Session) runAntiPatterns(ctx context.Context, changes []domain.ResourceChange, predictions []domain.Prediction) (map[string][]antipattern.Finding, error) {
	if s.License.Edition != license.Premium {
		return map[string][]antipattern.Finding{}, nil
	}

	out, err := s.Sandbox.Run(ctx, s.Config.Sandbox.StageBudgetsMs.Mapping, func(ctx context.Context) (sandbox.Output, error) {
		resources := make([]antipattern.Resource, 0, len(changes))
		for _, c := range changes {
			resources = append(resources, antipatternResource(c))
		}
		detector := antipattern.New()
		findings, err := detector.Detect(ctx, resources)
		if err != nil {
			return nil, fmt.Errorf("pipeline: anti-pattern detection: %w", err)
		}
		return findings, nil
	})
	if err != nil {
		return nil, err
	}

	findings, _ := out.([]antipattern.Finding)
	byAddr := make(map[string][]antipattern.Finding)
	for _, f := range findings {
		byAddr[f.Address] = append(byAddr[f.Address], f)
	}
	return byAddr, nil
}

func (s *Session) buildReasoningChains(changes []domain.ResourceChange, predictions []domain.Prediction, findingsByAddr map[string][]antipattern.Finding) map[string]domain.ReasoningChain {
	predByAddr := make(map[string]domain.Prediction, len(predictions))
	for _, p := range predictions {
		predByAddr[p.Address] = p
	}
	chains := make(map[string]domain.ReasoningChain, len(changes))
	for _, c := range changes {
		pred := predByAddr[c.Address]
		rule, matched := s.Heuristics.Lookup(c.ResourceType, c.NewConfig)
		in := explain.Input{
			Change:           c,
			Prediction:       pred,
			Rule:             rule,
			RuleMatched:      matched,
			Findings:         findingsByAddr[c.Address],
			StaleApplied:     pred.Provenance.FallbackReason == domain.FallbackHeuristicStale,
			ColdStartApplied: pred.Provenance.FallbackReason == domain.FallbackHeuristicMissing,
		}
		chains[c.Address] = explain.Build(in)
	}
	return chains
}

// runPolicy evaluates every resource change against the session's policy
// rules. Verdicts are kept address-scoped since domain.PolicyVerdict
// itself carries no address — the association only exists at evaluation
// time, one EvalContext per resource.
func (s *Session) runPolicy(changes []domain.ResourceChange, predictions []domain.Prediction, tags map[string]string, now time.Time) (map[string][]domain.PolicyVerdict, policy.Result) {
	predByAddr := make(map[string]domain.Prediction, len(predictions))
	for _, p := range predictions {
		predByAddr[p.Address] = p
	}

	byAddr := make(map[string][]domain.PolicyVerdict, len(changes))
	merged := policy.Result{}
	for _, c := range changes {
		ectx := &policy.EvalContext{
			Change:     c,
			Prediction: predByAddr[c.Address],
			Tags:       tags,
			AllChanges: changes,
			AllPreds:   predByAddr,
		}
		r := policy.Evaluate(s.Policies, ectx, s.Exemptions, now)
		byAddr[c.Address] = r.Verdicts
		merged.Diagnostics = append(merged.Diagnostics, r.Diagnostics...)
		if r.CriticalBlockFired {
			merged.CriticalBlockFired = true
		}
	}
	return byAddr, merged
}

func (s *Session) dependencyGraph(edges map[string][]string) *baseline.DependencyGraph {
	if len(edges) == 0 {
		return nil
	}
	return baseline.NewDependencyGraph(edges)
}

func (s *Session) runBaseline(predictions []domain.Prediction, graph *baseline.DependencyGraph) map[string]domain.RegressionVerdict {
	out := make(map[string]domain.RegressionVerdict, len(predictions))
	if s.Baseline == nil {
		return out
	}
	for _, p := range predictions {
		moduleKey := moduleOfAddress(p.Address)
		out[p.Address] = baseline.Variance(p.Interval.P50, s.Baseline, moduleKey, p.Address, s.Config.Baseline)
	}
	return out
}

func moduleOfAddress(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == '.' {
			return address[:i]
		}
	}
	return address
}

func (s *Session) assembleFindings(changes []domain.ResourceChange, predictions []domain.Prediction, chains map[string]domain.ReasoningChain, verdictsByAddr map[string][]domain.PolicyVerdict, regressions map[string]domain.RegressionVerdict) []domain.Finding {
	predByAddr := make(map[string]domain.Prediction, len(predictions))
	for _, p := range predictions {
		predByAddr[p.Address] = p
	}

	findings := make([]domain.Finding, 0, len(changes))
	for _, c := range changes {
		pred := predByAddr[c.Address]
		verdicts := verdictsByAddr[c.Address]
		reg, hasReg := regressions[c.Address]
		var regPtr *domain.RegressionVerdict
		if hasReg && reg.VarianceStatus != domain.VarianceNoBaseline {
			regCopy := reg
			regPtr = &regCopy
		}
		findings = append(findings, domain.Finding{
			Address:        c.Address,
			Action:         c.Action,
			Interval:       pred.Interval,
			Confidence:     pred.Confidence,
			ReasoningChain: chains[c.Address],
			PolicyVerdicts: verdicts,
			Regression:     regPtr,
			Severity:       findingSeverity(verdicts, regPtr),
		})
	}
	sort.Slice(findings, func(i, j int) bool { return findings[i].Address < findings[j].Address })
	return findings
}

var severityRank = map[domain.Severity]int{
	domain.SeverityInfo:     0,
	domain.SeverityLow:      1,
	domain.SeverityMedium:   2,
	domain.SeverityHigh:     3,
	domain.SeverityCritical: 4,
}

func findingSeverity(verdicts []domain.PolicyVerdict, reg *domain.RegressionVerdict) domain.Severity {
	worst := domain.SeverityInfo
	for _, v := range verdicts {
		if v.Fired && !v.Exempted && severityRank[v.Severity] > severityRank[worst] {
			worst = v.Severity
		}
	}
	if reg != nil && reg.RegressionFound && severityRank[reg.Severity] > severityRank[worst] {
		worst = reg.Severity
	}
	return worst
}

func (s *Session) recordAudit(verdictsByAddr map[string][]domain.PolicyVerdict, in Inputs) error {
	addresses := make([]string, 0, len(verdictsByAddr))
	for addr := range verdictsByAddr {
		addresses = append(addresses, addr)
	}
	sort.Strings(addresses)

	for _, addr := range addresses {
		for _, v := range verdictsByAddr[addr] {
			if !v.Fired {
				continue
			}
			action := "policy.violation"
			if v.Exempted {
				action = "policy.exemption_applied"
			}
			if _, err := s.Audit.Append(audit.Event{
				Action: action,
				Actor:  in.Actor,
				Target: addr,
				Fields: map[string]interface{}{
					"policy_id": v.PolicyID,
					"severity":  string(v.Severity),
					"reason":    v.Reason,
				},
			}); err != nil {
				return fmt.Errorf("pipeline: audit append: %w", err)
			}
		}
	}
	return nil
}
