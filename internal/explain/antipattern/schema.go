package antipattern

// schema is the fixed, embedded Datalog program for anti-pattern detection.
// It never changes at runtime: every invocation loads exactly this schema
// into a fresh internal/mangle.Engine, asserts the current invocation's
// resource and flag facts, evaluates, and queries. There is no
// user-supplied or persisted rule content here — see internal/heuristics
// for the operator-extensible cost-prediction rules.
const schema = `
Decl resource(Address, Type) descr [mode("-", "-")].
Decl flag(Address, FlagName) descr [mode("-", "-")].
Decl vpc_az_redundant(VpcID, AZ) descr [mode("-", "-")].
Decl nat_gateway(Address, VpcID, AZ) descr [mode("-", "-", "-")].

Decl overprovisioned_ec2(Address) descr [mode("-")].
overprovisioned_ec2(Address) :-
    resource(Address, /aws_instance),
    flag(Address, /large_instance_class),
    flag(Address, /low_baseline_utilization).

Decl redundant_nat_gateway(Address) descr [mode("-")].
redundant_nat_gateway(Address) :-
    nat_gateway(Address, VpcID, AZ),
    vpc_az_redundant(VpcID, AZ).

Decl unbounded_lambda_concurrency(Address) descr [mode("-")].
unbounded_lambda_concurrency(Address) :-
    resource(Address, /aws_lambda_function),
    flag(Address, /no_reserved_concurrency).

Decl dynamodb_default_on_demand(Address) descr [mode("-")].
dynamodb_default_on_demand(Address) :-
    resource(Address, /aws_dynamodb_table),
    !flag(Address, /billing_mode_explicit).

Decl s3_no_lifecycle(Address) descr [mode("-")].
s3_no_lifecycle(Address) :-
    resource(Address, /aws_s3_bucket),
    !flag(Address, /has_lifecycle_rule).
`

// Code identifies one of the five fixed anti-patterns. These names are
// part of the report's stable vocabulary and never change between runs.
type Code string

const (
	OverprovisionedEC2         Code = "OVERPROVISIONED_EC2"
	RedundantNATGateway        Code = "REDUNDANT_NAT_GATEWAY"
	UnboundedLambdaConcurrency Code = "UNBOUNDED_LAMBDA_CONCURRENCY"
	DynamoDBDefaultOnDemand    Code = "DYNAMODB_DEFAULT_ON_DEMAND"
	S3NoLifecycle              Code = "S3_NO_LIFECYCLE"
)

// queries pairs each fixed anti-pattern with the Mangle query atom that
// derives it. Order here fixes the evaluation/query order, but result
// ordering is always re-sorted by Detect before it is returned.
var queries = []struct {
	code  Code
	query string
}{
	{OverprovisionedEC2, "overprovisioned_ec2(Address)"},
	{RedundantNATGateway, "redundant_nat_gateway(Address)"},
	{UnboundedLambdaConcurrency, "unbounded_lambda_concurrency(Address)"},
	{DynamoDBDefaultOnDemand, "dynamodb_default_on_demand(Address)"},
	{S3NoLifecycle, "s3_no_lifecycle(Address)"},
}
