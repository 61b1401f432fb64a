package pipeline

import (
	"strings"

	"costpilot/internal/domain"
	"costpilot/internal/explain/antipattern"
)

// instanceSizeTier orders the common EC2 instance size suffixes from
// smallest to largest so a size change can be compared without a fixed
// family-specific cost table. Unknown suffixes (burstable-family "nano"
// variants notwithstanding) are simply not classified as large.
var instanceSizeTier = map[string]int{
	"nano": 0, "micro": 1, "small": 2, "medium": 3, "large": 4,
	"xlarge": 5, "2xlarge": 6, "3xlarge": 7, "4xlarge": 8, "6xlarge": 9,
	"8xlarge": 10, "9xlarge": 11, "10xlarge": 12, "12xlarge": 13,
	"16xlarge": 14, "18xlarge": 15, "24xlarge": 16, "32xlarge": 17, "metal": 18,
}

// largeInstanceTierFloor is the lowest tier classified as "large" for the
// OVERPROVISIONED_EC2 anti-pattern: xlarge and above.
const largeInstanceTierFloor = 5

// instanceTier extracts the size suffix after the last '.' in an EC2
// instance type (e.g. "t3.2xlarge" -> "2xlarge") and resolves its tier.
func instanceTier(instanceType string) (int, bool) {
	idx := strings.LastIndex(instanceType, ".")
	if idx < 0 || idx == len(instanceType)-1 {
		return 0, false
	}
	tier, ok := instanceSizeTier[instanceType[idx+1:]]
	return tier, ok
}

func configString(cfg map[string]interface{}, key string) string {
	v, _ := cfg[key].(string)
	return v
}

func configHasNonEmptyList(cfg map[string]interface{}, key string) bool {
	v, ok := cfg[key]
	if !ok || v == nil {
		return false
	}
	list, ok := v.([]interface{})
	return ok && len(list) > 0
}

func configHasValue(cfg map[string]interface{}, key string) bool {
	v, ok := cfg[key]
	return ok && v != nil
}

// antipatternResource derives internal/explain/antipattern.Resource's
// structural flags from a resource change's normalized config. Every flag
// is read directly from the plan's before/after snapshots — there is no
// external monitoring or utilization feed, so "low baseline utilization"
// is inferred structurally: an EC2 instance sized up into a large tier
// without any evidence it needed the added headroom.
func antipatternResource(c domain.ResourceChange) antipattern.Resource {
	r := antipattern.Resource{Address: c.Address, Type: c.ResourceType}

	switch c.ResourceType {
	case "aws_instance":
		newTier, newOk := instanceTier(configString(c.NewConfig, "instance_type"))
		r.LargeInstanceClass = newOk && newTier >= largeInstanceTierFloor
		if (c.Action == domain.ActionUpdate || c.Action == domain.ActionReplace) && newOk {
			if priorTier, priorOk := instanceTier(configString(c.PriorConfig, "instance_type")); priorOk && newTier > priorTier {
				r.LowBaselineUtilization = true
			}
		}
	case "aws_lambda_function":
		r.NoReservedConcurrency = !configHasValue(c.NewConfig, "reserved_concurrent_executions")
	case "aws_dynamodb_table":
		r.BillingModeExplicit = configString(c.NewConfig, "billing_mode") != ""
	case "aws_s3_bucket":
		r.HasLifecycleRule = configHasNonEmptyList(c.NewConfig, "lifecycle_rule")
	case "aws_nat_gateway":
		r.VPCID = configString(c.NewConfig, "vpc_id")
		r.AvailabilityZone = configString(c.NewConfig, "availability_zone")
	}

	return r
}
