package cperrors

// Fixed error codes named across spec.md's component sections (§4.1, §4.5,
// §4.9, §6). Each has exactly one hint template below; hints never vary
// by instance.
const (
	CodeHeuristicFileCorrupt         Code = "heuristic_file_corrupt"
	CodeHeuristicVersionIncompatible Code = "heuristic_version_incompatible"
	CodePlanFormatUnrecognized       Code = "plan_format_unrecognized"
	CodePlanTruncated                Code = "plan_truncated"
	CodePlanSizeExceedsLimit         Code = "plan_size_exceeds_limit"
	CodeNestingDepthExceeded         Code = "nesting_depth_exceeded"
	CodePredictionIntervalInverted   Code = "prediction_interval_inverted"
	CodeAuditSequenceGap             Code = "audit_sequence_gap"
	CodeAuditChainBroken             Code = "audit_chain_broken"
	CodeLicenseMissing               Code = "license_missing"
	CodeLicenseMalformed             Code = "license_malformed"
	CodeLicenseExpired               Code = "license_expired"
	CodeLicenseSignatureMismatch     Code = "license_signature_mismatch"
	CodeLicenseRateLimited           Code = "license_rate_limited"
	CodeUnknownRuleID                Code = "unknown_rule_id"
	CodeUnresolvableReference        Code = "unresolvable_reference"
	CodeSandboxMemoryExceeded        Code = "sandbox_memory_exceeded"
	CodeSandboxWallclockExceeded     Code = "sandbox_wallclock_exceeded"
	CodeSandboxStackExceeded         Code = "sandbox_stack_exceeded"
	CodeSandboxInputSizeExceeded     Code = "sandbox_input_size_exceeded"
	CodeModuleSignatureInvalid      Code = "module_signature_invalid"
	CodePolicyConditionMalformed    Code = "policy_condition_malformed"
	CodePolicyBlockingRuleFired     Code = "policy_blocking_rule_fired"
)

// hintTemplates maps each fixed code to its fixed-template hint. A code
// with no entry falls back to a generic internal-error hint: that gap is
// itself a defect to fix, not a silent pass-through to free text.
var hintTemplates = map[Code]string{
	CodeHeuristicFileCorrupt:         "Verify the heuristics file's content hash matches its embedded digest; restore from a known-good copy.",
	CodeHeuristicVersionIncompatible: "Upgrade CostPilot or downgrade the heuristics file to a compatible schema version.",
	CodePlanFormatUnrecognized:       "Confirm the input is a Terraform plan JSON or CDK diff document; unrecognized top-level shape cannot be parsed.",
	CodePlanTruncated:                "Re-generate the plan; the input ended before a complete JSON document was read.",
	CodePlanSizeExceedsLimit:         "Split the plan or raise the configured size limit; CostPilot enforces a fixed input-size budget.",
	CodeNestingDepthExceeded:         "Flatten deeply nested module structures; the parser refuses documents beyond 32 levels of nesting.",
	CodePredictionIntervalInverted:   "This indicates an internal invariant violation in interval computation; report it with the signature hash.",
	CodeAuditSequenceGap:             "The audit log has a missing sequence number; restore from backup or investigate concurrent writers.",
	CodeAuditChainBroken:             "The audit log failed hash-chain verification; writes are refused until the chain is restored or re-seeded.",
	CodeLicenseMissing:               "No license file was found; CostPilot will run in the Free edition until one is configured.",
	CodeLicenseMalformed:             "The license file could not be parsed; check it matches the documented signed-record format.",
	CodeLicenseExpired:               "The license's expiry has passed; renew it to restore Premium features.",
	CodeLicenseSignatureMismatch:     "The license signature does not verify against the embedded issuer key; it may be corrupted or tampered with.",
	CodeLicenseRateLimited:           "Too many verification attempts against an invalid license; wait before retrying.",
	CodeUnknownRuleID:                "The referenced heuristic rule ID does not exist in the loaded table.",
	CodeUnresolvableReference:        "A configured reference (policy, baseline, or rule) could not be resolved; check the configured paths.",
	CodeSandboxMemoryExceeded:        "The stage exceeded its configured memory budget; reduce input size or raise the sandbox limit.",
	CodeSandboxWallclockExceeded:     "The stage exceeded its configured wall-clock budget; reduce input size or raise the sandbox limit.",
	CodeSandboxStackExceeded:         "The stage exceeded its configured call-stack depth budget.",
	CodeSandboxInputSizeExceeded:     "The input to this stage exceeded its configured size budget.",
	CodeModuleSignatureInvalid:       "The externally supplied module's Ed25519 signature does not verify; it was not executed.",
	CodePolicyConditionMalformed:     "The policy condition document does not parse as a valid condition AST; check its structure.",
	CodePolicyBlockingRuleFired:      "A blocking policy rule fired without an active exemption; this run's changes are rejected.",
}

func hintFor(code Code) string {
	if hint, ok := hintTemplates[code]; ok {
		return hint
	}
	return "An unexpected internal condition occurred; report it with the signature hash."
}
