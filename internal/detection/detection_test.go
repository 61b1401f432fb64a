package detection

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"costpilot/internal/domain"
)

func TestDetectTerraformCreate(t *testing.T) {
	raw := []byte(`{
		"format_version": "1.2",
		"resource_changes": [
			{
				"address": "aws_instance.web",
				"type": "aws_instance",
				"name": "web",
				"change": {
					"actions": ["create"],
					"before": null,
					"after": {"instance_type": "t3.micro", "tags": {"env": "prod"}}
				}
			}
		]
	}`)

	changes, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(changes) != 1 {
		t.Fatalf("expected 1 change, got %d", len(changes))
	}
	if changes[0].Action != domain.ActionCreate {
		t.Fatalf("expected Create, got %s", changes[0].Action)
	}
	if changes[0].Address != "aws_instance.web" {
		t.Fatalf("unexpected address: %s", changes[0].Address)
	}
}

func TestDetectTerraformReplace(t *testing.T) {
	raw := []byte(`{
		"resource_changes": [
			{
				"address": "aws_instance.web",
				"type": "aws_instance",
				"change": {
					"actions": ["delete", "create"],
					"before": {"instance_type": "t3.micro"},
					"after": {"instance_type": "t3.large"}
				}
			}
		]
	}`)

	changes, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if changes[0].Action != domain.ActionReplace {
		t.Fatalf("expected Replace, got %s", changes[0].Action)
	}
	if len(changes[0].ChangedAttributes) != 1 || changes[0].ChangedAttributes[0] != "instance_type" {
		t.Fatalf("unexpected changed attributes: %v", changes[0].ChangedAttributes)
	}
}

func TestDetectTerraformNoOpOmitted(t *testing.T) {
	raw := []byte(`{
		"resource_changes": [
			{"address": "aws_instance.web", "type": "aws_instance", "change": {"actions": ["no-op"], "before": {}, "after": {}}}
		]
	}`)

	changes, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(changes) != 0 {
		t.Fatalf("expected no-op to be omitted, got %d changes", len(changes))
	}
}

func TestDetectCDKAddAndModify(t *testing.T) {
	raw := []byte(`{
		"stacks": [
			{
				"stackName": "NetworkStack",
				"resources": [
					{"logicalId": "VPC", "resourceType": "AWS::EC2::VPC", "action": "Add", "propertiesAfter": {"cidrBlock": "10.0.0.0/16"}},
					{"logicalId": "NatGw", "resourceType": "AWS::EC2::NatGateway", "action": "Modify", "propertiesBefore": {"az": "us-east-1a"}, "propertiesAfter": {"az": "us-east-1b"}}
				]
			}
		]
	}`)

	changes, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if len(changes) != 2 {
		t.Fatalf("expected 2 changes, got %d", len(changes))
	}
	if changes[0].Address != "NetworkStack.VPC" {
		t.Fatalf("unexpected address: %s", changes[0].Address)
	}
}

func TestDetectRejectsUnrecognizedSchema(t *testing.T) {
	raw := []byte(`{"unrelated_key": true}`)
	if _, err := Detect(raw); err == nil {
		t.Fatal("expected PlanFormatUnrecognized error")
	}
}

func TestDetectRejectsOversizedInput(t *testing.T) {
	var sb strings.Builder
	sb.WriteString(`{"resource_changes": [`)
	for i := 0; i < 1; i++ {
		sb.WriteString(`{"address": "a", "type": "t", "change": {"actions": ["create"], "after": {"pad": "`)
		sb.WriteString(strings.Repeat("x", MaxInputBytes+1))
		sb.WriteString(`"}}}`)
	}
	sb.WriteString(`]}`)

	if _, err := Detect([]byte(sb.String())); err == nil {
		t.Fatal("expected PlanSizeExceedsLimit error")
	}
}

func TestDetectRejectsExcessiveNesting(t *testing.T) {
	var buf bytes.Buffer
	depth := MaxNestingDepth + 5
	for i := 0; i < depth; i++ {
		buf.WriteString(`{"a":`)
	}
	buf.WriteString(`1`)
	for i := 0; i < depth; i++ {
		buf.WriteString(`}`)
	}

	if _, err := Detect(buf.Bytes()); err == nil {
		t.Fatal("expected nesting depth error")
	}
}

func TestDetectRejectsTruncatedDocument(t *testing.T) {
	raw := []byte(`{"resource_changes": [{"address": "a", "change": {`)
	if _, err := Detect(raw); err == nil {
		t.Fatal("expected truncated document error")
	}
}

func TestDetectSortsChangedAttributesLexicographically(t *testing.T) {
	raw := []byte(`{
		"resource_changes": [
			{
				"address": "aws_instance.web",
				"type": "aws_instance",
				"change": {
					"actions": ["update"],
					"before": {"zebra": 1, "apple": 1},
					"after": {"zebra": 2, "apple": 2, "mango": 1}
				}
			}
		]
	}`)

	changes, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	want := []string{"apple", "mango", "zebra"}
	got := changes[0].ChangedAttributes
	if len(got) != len(want) {
		t.Fatalf("unexpected changed attributes: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("expected sorted %v, got %v", want, got)
		}
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	raw := []byte(`{
		"resource_changes": [
			{"address": "aws_instance.web", "type": "aws_instance", "change": {"actions": ["create"], "after": {"a": 1}}}
		]
	}`)

	first, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	second, err := Detect(raw)
	if err != nil {
		t.Fatalf("Detect() error = %v", err)
	}

	firstJSON, _ := json.Marshal(first)
	secondJSON, _ := json.Marshal(second)
	if string(firstJSON) != string(secondJSON) {
		t.Fatal("expected Detect to be deterministic across runs")
	}
}
