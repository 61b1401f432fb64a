// Package antipattern detects a fixed set of cost anti-patterns in a plan's
// resource changes using Google Mangle, a closed-world, boolean Datalog
// engine (github.com/google/mangle). This is deliberately distinct from
// internal/policy's hand-rolled, three-valued condition AST: anti-pattern
// detection is a genuinely closed-world classification problem (a resource
// either matches the fixed rule set or it doesn't), while policy evaluation
// must support operator-authored conditions over possibly-missing fields,
// which Mangle's two-valued logic cannot express.
//
// A fresh engine is built per Detect call; facts are never persisted or
// shared across invocations.
package antipattern

import (
	"context"
	"fmt"
	"sort"

	"costpilot/internal/mangle"
)

// Resource is the minimal view of a planned resource change that
// anti-pattern detection needs. internal/pipeline builds these from
// internal/detection's parsed resource changes alone; predictions are not
// consulted.
type Resource struct {
	Address string
	Type    string

	// LargeInstanceClass is true when the instance type's size suffix falls
	// in the xlarge-or-larger tier of internal/pipeline's size-tier table.
	LargeInstanceClass bool
	// LowBaselineUtilization is inferred structurally by internal/pipeline:
	// true when an update or replace moves the instance type to a larger
	// size tier than before. No utilization data is read.
	LowBaselineUtilization bool

	// NATGateway fields: only meaningful when Type is aws_nat_gateway.
	VPCID            string
	AvailabilityZone string

	// NoReservedConcurrency: aws_lambda_function has no
	// reserved_concurrent_executions set.
	NoReservedConcurrency bool

	// BillingModeExplicit: aws_dynamodb_table sets billing_mode explicitly
	// (PROVISIONED or PAY_PER_REQUEST), rather than relying on the
	// provider default.
	BillingModeExplicit bool

	// HasLifecycleRule: aws_s3_bucket has at least one lifecycle_rule block.
	HasLifecycleRule bool
}

// Finding is one detected anti-pattern match.
type Finding struct {
	Code         Code
	Address      string
	ResourceType string
}

// Detector evaluates the fixed anti-pattern rule set against one
// invocation's resources.
type Detector struct {
	engineCfg mangle.Config
}

// New creates a Detector. Each Detect call builds and discards its own
// internal/mangle.Engine, so Detector itself holds no mutable state.
func New() *Detector {
	return &Detector{engineCfg: mangle.DefaultConfig()}
}

// Detect asserts facts for the given resources and returns every matched
// anti-pattern, sorted by (Code, Address) for determinism.
func (d *Detector) Detect(ctx context.Context, resources []Resource) ([]Finding, error) {
	engine := mangle.NewEngine(d.engineCfg)
	if err := engine.LoadSchemaString(schema); err != nil {
		return nil, fmt.Errorf("antipattern: load schema: %w", err)
	}

	facts := buildFacts(resources)
	if err := engine.AddFacts(facts); err != nil {
		return nil, fmt.Errorf("antipattern: assert facts: %w", err)
	}

	resourceTypeByAddress := make(map[string]string, len(resources))
	for _, r := range resources {
		resourceTypeByAddress[r.Address] = r.Type
	}

	findings := []Finding{}
	for _, q := range queries {
		result, err := engine.Query(ctx, q.query)
		if err != nil {
			return nil, fmt.Errorf("antipattern: query %s: %w", q.code, err)
		}
		for _, binding := range result.Bindings {
			addr, ok := binding["Address"].(string)
			if !ok {
				continue
			}
			findings = append(findings, Finding{
				Code:         q.code,
				Address:      addr,
				ResourceType: resourceTypeByAddress[addr],
			})
		}
	}

	sort.Slice(findings, func(i, j int) bool {
		if findings[i].Code != findings[j].Code {
			return findings[i].Code < findings[j].Code
		}
		return findings[i].Address < findings[j].Address
	})
	return findings, nil
}

// buildFacts translates resources into Mangle facts, precomputing the
// NAT-gateway redundancy grouping (same VPC + availability zone, more than
// one gateway) since Mangle's fixed schema has no arithmetic comparison.
func buildFacts(resources []Resource) []mangle.Fact {
	var facts []mangle.Fact
	natGroupCounts := make(map[[2]string]int)

	for _, r := range resources {
		facts = append(facts, mangle.Fact{Predicate: "resource", Args: []interface{}{r.Address, "/" + r.Type}})

		if r.LargeInstanceClass {
			facts = append(facts, mangle.Fact{Predicate: "flag", Args: []interface{}{r.Address, "/large_instance_class"}})
		}
		if r.LowBaselineUtilization {
			facts = append(facts, mangle.Fact{Predicate: "flag", Args: []interface{}{r.Address, "/low_baseline_utilization"}})
		}
		if r.NoReservedConcurrency {
			facts = append(facts, mangle.Fact{Predicate: "flag", Args: []interface{}{r.Address, "/no_reserved_concurrency"}})
		}
		if r.BillingModeExplicit {
			facts = append(facts, mangle.Fact{Predicate: "flag", Args: []interface{}{r.Address, "/billing_mode_explicit"}})
		}
		if r.HasLifecycleRule {
			facts = append(facts, mangle.Fact{Predicate: "flag", Args: []interface{}{r.Address, "/has_lifecycle_rule"}})
		}

		if r.Type == "aws_nat_gateway" && r.VPCID != "" {
			facts = append(facts, mangle.Fact{Predicate: "nat_gateway", Args: []interface{}{r.Address, r.VPCID, r.AvailabilityZone}})
			natGroupCounts[[2]string{r.VPCID, r.AvailabilityZone}]++
		}
	}

	groupKeys := make([][2]string, 0, len(natGroupCounts))
	for key := range natGroupCounts {
		groupKeys = append(groupKeys, key)
	}
	sort.Slice(groupKeys, func(i, j int) bool {
		if groupKeys[i][0] != groupKeys[j][0] {
			return groupKeys[i][0] < groupKeys[j][0]
		}
		return groupKeys[i][1] < groupKeys[j][1]
	})
	for _, key := range groupKeys {
		if natGroupCounts[key] > 1 {
			facts = append(facts, mangle.Fact{Predicate: "vpc_az_redundant", Args: []interface{}{key[0], key[1]}})
		}
	}

	return facts
}
