// Package domain holds the shared data model types described in spec.md
// §3, used across detection, prediction, explain, policy, baseline, audit,
// and report. Collecting them here breaks what would otherwise be an
// import cycle (prediction needs detection's ResourceChange, explain needs
// prediction's Prediction, policy needs both, report needs all of them).
package domain

import "time"

// Action classifies what a resource change does.
type Action string

const (
	ActionCreate  Action = "Create"
	ActionUpdate  Action = "Update"
	ActionReplace Action = "Replace"
	ActionDelete  Action = "Delete"
	ActionNoOp    Action = "NoOp"
)

// ResourceChange is one planned infrastructure change, normalized by
// internal/detection from either a Terraform plan or a CDK diff.
type ResourceChange struct {
	Address           string                 `json:"address"`
	ResourceType      string                 `json:"resource_type"`
	Action            Action                 `json:"action"`
	PriorConfig       map[string]interface{} `json:"prior_config,omitempty"`
	NewConfig         map[string]interface{} `json:"new_config,omitempty"`
	ChangedAttributes []string               `json:"changed_attributes"`
}

// ConfidenceClass buckets how reliable a heuristic rule's cost estimate is.
type ConfidenceClass string

const (
	ConfidenceHigh   ConfidenceClass = "High"
	ConfidenceMedium ConfidenceClass = "Medium"
	ConfidenceLow    ConfidenceClass = "Low"
)

// AttributePredicate is one condition a heuristic rule's selector tests
// against a resource change's attributes.
type AttributePredicate struct {
	Attribute string `json:"attribute"`
	Operator  string `json:"operator"` // eq, ne, gt, lt, ge, le, contains
	Value     string `json:"value"`
}

// CostFormula is a heuristic rule's monthly cost model: base + unit*quantity.
type CostFormula struct {
	BaseMonthly float64 `json:"base_monthly"`
	UnitCost    float64 `json:"unit_cost"`
	UnitName    string  `json:"unit_name"`
}

// HeuristicRule is one entry in the versioned heuristic table (C1).
type HeuristicRule struct {
	ID              string               `json:"id"`
	Version         string               `json:"version"`
	ResourceType    string               `json:"resource_type"`
	Predicates      []AttributePredicate `json:"predicates,omitempty"`
	Formula         CostFormula          `json:"formula"`
	ConfidenceClass ConfidenceClass      `json:"confidence_class"`
	UpdatedAt       time.Time            `json:"updated_at"`
	ProvenanceHash  string               `json:"provenance_hash"`
}

// PredictionInterval is a (p10, p50, p90, p99) tuple with invariant
// p10 <= p50 <= p90 <= p99, all finite and non-negative.
type PredictionInterval struct {
	P10 float64 `json:"p10"`
	P50 float64 `json:"p50"`
	P90 float64 `json:"p90"`
	P99 float64 `json:"p99"`
}

// ConfidenceSource names where a prediction's confidence originated.
type ConfidenceSource string

const (
	ConfidenceSourceHeuristic  ConfidenceSource = "Heuristic"
	ConfidenceSourceBaseline   ConfidenceSource = "Baseline"
	ConfidenceSourceColdStart  ConfidenceSource = "ColdStart"
	ConfidenceSourceHistorical ConfidenceSource = "Historical"
)

// FallbackReason explains why a prediction had to fall back from a direct
// heuristic match.
type FallbackReason string

const (
	FallbackHeuristicMissing     FallbackReason = "HeuristicMissing"
	FallbackHeuristicStale       FallbackReason = "HeuristicStale"
	FallbackRegionNotSupported   FallbackReason = "RegionNotSupported"
	FallbackInstanceTypeNotFound FallbackReason = "InstanceTypeNotFound"
	FallbackCustomResourceType   FallbackReason = "CustomResourceType"
)

// ProvenanceRecord is paired with every prediction (spec.md §3, §4.2).
type ProvenanceRecord struct {
	HeuristicID        string           `json:"heuristic_id"`
	HeuristicVersion   string           `json:"heuristic_version"`
	ConfidenceSource   ConfidenceSource `json:"confidence_source"`
	FallbackReason     FallbackReason   `json:"fallback_reason,omitempty"`
	HeuristicUpdatedAt time.Time        `json:"heuristic_updated_at"`
	ProvenanceHash     string           `json:"provenance_hash"`
}

// Prediction is one resource change's cost estimate.
type Prediction struct {
	Address    string             `json:"address"`
	Interval   PredictionInterval `json:"interval"`
	Confidence float64            `json:"confidence"`
	Provenance ProvenanceRecord   `json:"provenance"`
}

// StepType enumerates the kinds of reasoning a chain can record.
type StepType string

const (
	StepHeuristicLookup      StepType = "HeuristicLookup"
	StepBaseCostCalculation  StepType = "BaseCostCalculation"
	StepQuantityDerivation   StepType = "QuantityDerivation"
	StepUnitConversion       StepType = "UnitConversion"
	StepAttributeAdjustment  StepType = "AttributeAdjustment"
	StepConfidenceAdjustment StepType = "ConfidenceAdjustment"
	StepAntiPatternMatch     StepType = "AntiPatternMatch"
	StepPolicyCheck          StepType = "PolicyCheck"
)

// ReasoningStep is one entry in a reasoning chain (spec.md §3, §4.7).
type ReasoningStep struct {
	Type            StepType `json:"type"`
	Template        string   `json:"template"`
	Evidence        []string `json:"evidence,omitempty"`
	ConfidenceDelta float64  `json:"confidence_delta"`
	ProvenanceRef   string   `json:"provenance_ref,omitempty"`
}

// ReasoningChain is an ordered sequence of steps; its confidence is the
// clamped product of every step's confidence delta.
type ReasoningChain struct {
	Address string          `json:"address"`
	Steps   []ReasoningStep `json:"steps"`
}

// Confidence computes the chain's final confidence: the product of every
// step's delta, clamped to [0, 1]. Multiplication is left-to-right over
// Steps as stored — callers that build Steps from an unordered source
// must sort them (by StepType then insertion index) before constructing
// the chain, so the product is reproducible.
func (c ReasoningChain) Confidence() float64 {
	product := 1.0
	for _, step := range c.Steps {
		product *= step.ConfidenceDelta
	}
	if product < 0 {
		return 0
	}
	if product > 1 {
		return 1
	}
	return product
}

// Severity is shared by policy rules, exemption evaluation, and findings.
type Severity string

const (
	SeverityCritical Severity = "Critical"
	SeverityHigh     Severity = "High"
	SeverityMedium   Severity = "Medium"
	SeverityLow      Severity = "Low"
	SeverityInfo     Severity = "Info"
)

// PolicyAction is what a policy rule does when its condition fires.
type PolicyAction string

const (
	PolicyActionBlock           PolicyAction = "Block"
	PolicyActionRequireApproval PolicyAction = "RequireApproval"
	PolicyActionWarn            PolicyAction = "Warn"
	PolicyActionAdvisory        PolicyAction = "Advisory"
)

// LifecycleState is a policy's position in its approval state machine.
type LifecycleState string

const (
	LifecycleDraft      LifecycleState = "Draft"
	LifecycleReview     LifecycleState = "Review"
	LifecycleApproved   LifecycleState = "Approved"
	LifecycleActive     LifecycleState = "Active"
	LifecycleDeprecated LifecycleState = "Deprecated"
	LifecycleArchived   LifecycleState = "Archived"
)

// Exemption excuses a resource selector from one policy rule until expiry.
type Exemption struct {
	ID               string    `json:"id"`
	PolicyID         string    `json:"policy_id"`
	ResourceSelector string    `json:"resource_selector"`
	Justification    string    `json:"justification"`
	ApproverIdentity string    `json:"approver_identity"`
	Expiry           time.Time `json:"expiry"`
	ExternalTicket   string    `json:"external_ticket,omitempty"`
}

// PolicyVerdict is the result of evaluating one policy rule against one
// resource change / prediction.
type PolicyVerdict struct {
	PolicyID string       `json:"policy_id"`
	Severity Severity     `json:"severity"`
	Action   PolicyAction `json:"action"`
	Fired    bool         `json:"fired"`
	Exempted bool         `json:"exempted"`
	Reason   string       `json:"reason,omitempty"`
}

// BaselineScope names what a baseline entry applies to.
type BaselineScope string

const (
	BaselineScopeGlobal  BaselineScope = "global"
	BaselineScopeModule  BaselineScope = "module"
	BaselineScopeService BaselineScope = "service"
)

// BaselineEntry is one operator-declared expected-cost baseline.
type BaselineEntry struct {
	Scope               BaselineScope `json:"scope"`
	Key                 string        `json:"key"`
	ExpectedMonthlyCost float64       `json:"expected_monthly_cost"`
	AcceptableVariance  float64       `json:"acceptable_variance"`
	UpdatedAt           time.Time     `json:"updated_at"`
	Owner               string        `json:"owner"`
}

// VarianceStatus classifies an observed cost against its baseline.
type VarianceStatus string

const (
	VarianceWithin     VarianceStatus = "Within"
	VarianceExceeded   VarianceStatus = "Exceeded"
	VarianceBelow      VarianceStatus = "Below"
	VarianceNoBaseline VarianceStatus = "NoBaseline"
)

// RegressionVerdict is the outcome of comparing a prediction against both
// its baseline and the prior snapshot.
type RegressionVerdict struct {
	VarianceStatus   VarianceStatus `json:"variance_status"`
	VarianceFraction float64        `json:"variance_fraction"`
	RegressionFound  bool           `json:"regression_found"`
	Severity         Severity       `json:"severity,omitempty"`
}

// Snapshot is an immutable record of one invocation's predictions and
// regressions, chained to its predecessor by hash.
type Snapshot struct {
	Timestamp time.Time `json:"timestamp"`
	GitCommit string    `json:"git_commit,omitempty"`
	Branch    string    `json:"branch,omitempty"`
	// Edges are the direct-dependency edges this invocation was given
	// (address -> addresses it depends on), persisted so the next
	// invocation's regression comparison can detect a DependencyChange
	// even when the dependent resource's own cost did not move.
	Edges        map[string][]string `json:"edges,omitempty"`
	Predictions  []Prediction        `json:"predictions"`
	Regressions  []RegressionVerdict `json:"regressions"`
	PreviousHash string              `json:"previous_hash,omitempty"`
}

// Finding is the union output for one resource change (spec.md §3).
type Finding struct {
	Address        string             `json:"address"`
	Action         Action             `json:"action"`
	Interval       PredictionInterval `json:"interval"`
	Confidence     float64            `json:"confidence"`
	ReasoningChain ReasoningChain     `json:"reasoning_chain"`
	PolicyVerdicts []PolicyVerdict    `json:"policy_verdicts,omitempty"`
	Regression     *RegressionVerdict `json:"regression,omitempty"`
	Severity       Severity           `json:"severity"`
}
