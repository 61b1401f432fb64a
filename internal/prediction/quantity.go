package prediction

import "costpilot/internal/domain"

// InstanceHoursPerMonth is the fixed hours-per-month divisor used for any
// formula billed per instance-hour (spec.md §4.6).
const InstanceHoursPerMonth = 730.0

// defaultMonthlyRequestCount is the conservative default request volume
// assumed for any formula billed per request when the plan carries no
// explicit provisioned-throughput or request-rate attribute.
const defaultMonthlyRequestCount = 1_000_000.0

// DeriveQuantity computes the billable quantity a cost formula's unit_cost
// multiplies against, from the unit name and the resource's post-change
// configuration. It is a pure function: identical (unitName, config) input
// always yields the identical quantity.
func DeriveQuantity(unitName string, change domain.ResourceChange) float64 {
	switch unitName {
	case "instance-hour":
		return InstanceHoursPerMonth
	case "storage-gb-month":
		return attributeFloat(change.NewConfig, []string{"allocated_storage", "size_gb", "size"}, 1)
	case "request-count":
		return attributeFloat(change.NewConfig, []string{"provisioned_throughput", "requests_per_month"}, defaultMonthlyRequestCount)
	case "flat-monthly":
		return 1
	default:
		return 1
	}
}

// attributeFloat reads the first matching attribute from config as a
// float64, trying each candidate key in order, falling back to def when
// none are present or none parse as a number.
func attributeFloat(config map[string]interface{}, candidates []string, def float64) float64 {
	for _, key := range candidates {
		raw, ok := config[key]
		if !ok {
			continue
		}
		if f, ok := asFloat(raw); ok {
			return f
		}
	}
	return def
}

func asFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
