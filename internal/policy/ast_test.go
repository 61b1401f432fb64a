package policy

import "testing"

func TestComparisonPropagatesUndefined(t *testing.T) {
	ctx := &EvalContext{}
	node := Comparison{Op: "gt", Left: FieldRef{Path: "monthly_cost"}, Right: Literal{Value: Number(10000)}}
	v := node.Eval(ctx)
	if v.IsUndefined() {
		t.Fatal("monthly_cost resolves from a zero-value Prediction, should not be Undefined")
	}

	missing := Comparison{Op: "eq", Left: FieldRef{Path: "tags.team"}, Right: Literal{Value: String("platform")}}
	if !missing.Eval(ctx).IsUndefined() {
		t.Fatal("expected Undefined for an absent tag field")
	}
}

func TestLogicalAndShortCircuitsOnFalse(t *testing.T) {
	ctx := &EvalContext{}
	node := Logical{Op: "and", Operands: []Node{
		Literal{Value: Boolean(false)},
		FieldRef{Path: "tags.missing"},
	}}
	v := node.Eval(ctx)
	if v.Kind != KindBool || v.Bool != false {
		t.Fatalf("expected false, got %v", v)
	}
}

func TestLogicalAndPropagatesUndefinedWithoutFalse(t *testing.T) {
	ctx := &EvalContext{}
	node := Logical{Op: "and", Operands: []Node{
		Literal{Value: Boolean(true)},
		FieldRef{Path: "tags.missing"},
	}}
	if !node.Eval(ctx).IsUndefined() {
		t.Fatal("expected Undefined when an operand is Undefined and none is false")
	}
}

func TestSetMembership(t *testing.T) {
	ctx := &EvalContext{}
	node := SetMembership{
		Value: FieldRef{Path: "resource_type"},
		Set:   []Node{Literal{Value: String("aws_instance")}, Literal{Value: String("aws_db_instance")}},
	}
	v := node.Eval(ctx)
	if v.Kind != KindBool || v.Bool {
		t.Fatalf("expected resource_type (empty string) not in set: %v", v)
	}
}

func TestArithmeticDivisionByZeroIsUndefined(t *testing.T) {
	ctx := &EvalContext{}
	node := Arithmetic{Op: "div", Left: Literal{Value: Number(10)}, Right: Literal{Value: Number(0)}}
	if !node.Eval(ctx).IsUndefined() {
		t.Fatal("expected division by zero to be Undefined")
	}
}
