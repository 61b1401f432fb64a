// Package policy implements the policy engine (C9): a hand-rolled,
// three-valued condition AST (deliberately not Google Mangle — policy
// conditions must evaluate over operator-authored expressions with
// possibly-missing fields, which a closed-world Datalog engine like
// Mangle cannot express; internal/explain/antipattern uses Mangle
// precisely because its problem IS closed-world), a small recursive-
// descent parser for the condition's serialized string form, total
// evaluation with Undefined-propagation, exemption suppression, and the
// policy lifecycle state machine.
package policy

import (
	"fmt"
	"sort"

	"costpilot/internal/domain"
)

// Kind tags a Value's three-valued evaluation outcome plus its payload type.
type Kind int

const (
	KindUndefined Kind = iota
	KindNumber
	KindString
	KindBool
	KindList
)

// Value is the tagged union every condition node evaluates to. Undefined
// is a first-class outcome, not an error: field access against a missing
// attribute yields Undefined rather than failing evaluation.
type Value struct {
	Kind Kind
	Num  float64
	Str  string
	Bool bool
	List []Value
}

var Undefined = Value{Kind: KindUndefined}

func Number(n float64) Value  { return Value{Kind: KindNumber, Num: n} }
func String(s string) Value   { return Value{Kind: KindString, Str: s} }
func Boolean(b bool) Value    { return Value{Kind: KindBool, Bool: b} }
func List(vs []Value) Value   { return Value{Kind: KindList, List: vs} }

func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }

// Node is one condition AST node. Eval is total: it never panics and
// never returns an error, propagating Undefined instead.
type Node interface {
	Eval(ctx *EvalContext) Value
}

// EvalContext carries one resource change's evaluation inputs, plus the
// full batch needed for aggregation functions (sum-by-module,
// count-by-type) and a tag index keyed by resource address.
type EvalContext struct {
	Change     domain.ResourceChange
	Prediction domain.Prediction
	Tags       map[string]string
	AllChanges []domain.ResourceChange
	AllPreds   map[string]domain.Prediction
}

// FieldRef resolves a dotted field path against the evaluation context,
// e.g. "monthly_cost", "resource_type", "confidence", "tags.team".
type FieldRef struct {
	Path string
}

func (f FieldRef) Eval(ctx *EvalContext) Value {
	return resolveField(ctx, f.Path)
}

// Literal wraps a fixed Value.
type Literal struct {
	Value Value
}

func (l Literal) Eval(ctx *EvalContext) Value { return l.Value }

// Comparison supports eq, ne, gt, lt, ge, le. Undefined on either side
// propagates.
type Comparison struct {
	Op    string
	Left  Node
	Right Node
}

func (c Comparison) Eval(ctx *EvalContext) Value {
	l := c.Left.Eval(ctx)
	r := c.Right.Eval(ctx)
	if l.IsUndefined() || r.IsUndefined() {
		return Undefined
	}
	switch c.Op {
	case "eq":
		return Boolean(valuesEqual(l, r))
	case "ne":
		return Boolean(!valuesEqual(l, r))
	case "gt", "lt", "ge", "le":
		if l.Kind != KindNumber || r.Kind != KindNumber {
			return Undefined
		}
		switch c.Op {
		case "gt":
			return Boolean(l.Num > r.Num)
		case "lt":
			return Boolean(l.Num < r.Num)
		case "ge":
			return Boolean(l.Num >= r.Num)
		default:
			return Boolean(l.Num <= r.Num)
		}
	default:
		return Undefined
	}
}

func valuesEqual(a, b Value) bool {
	if a.Kind != b.Kind {
		return false
	}
	switch a.Kind {
	case KindNumber:
		return a.Num == b.Num
	case KindString:
		return a.Str == b.Str
	case KindBool:
		return a.Bool == b.Bool
	default:
		return false
	}
}

// SetMembership implements "value in [a, b, c]".
type SetMembership struct {
	Value Node
	Set   []Node
}

func (m SetMembership) Eval(ctx *EvalContext) Value {
	v := m.Value.Eval(ctx)
	if v.IsUndefined() {
		return Undefined
	}
	for _, elemNode := range m.Set {
		elem := elemNode.Eval(ctx)
		if elem.IsUndefined() {
			continue
		}
		if valuesEqual(v, elem) {
			return Boolean(true)
		}
	}
	return Boolean(false)
}

// Arithmetic supports +, -, *, /. Division by zero yields Undefined.
type Arithmetic struct {
	Op    string
	Left  Node
	Right Node
}

func (a Arithmetic) Eval(ctx *EvalContext) Value {
	l := a.Left.Eval(ctx)
	r := a.Right.Eval(ctx)
	if l.IsUndefined() || r.IsUndefined() || l.Kind != KindNumber || r.Kind != KindNumber {
		return Undefined
	}
	switch a.Op {
	case "add":
		return Number(l.Num + r.Num)
	case "sub":
		return Number(l.Num - r.Num)
	case "mul":
		return Number(l.Num * r.Num)
	case "div":
		if r.Num == 0 {
			return Undefined
		}
		return Number(l.Num / r.Num)
	default:
		return Undefined
	}
}

// Logical supports and, or, not. Undefined propagates through and/or
// unless the outcome is already decided by a defined operand (and with a
// defined false short-circuits to false; or with a defined true
// short-circuits to true), matching standard three-valued logic.
type Logical struct {
	Op       string // and, or, not
	Operands []Node
}

func (lg Logical) Eval(ctx *EvalContext) Value {
	switch lg.Op {
	case "not":
		if len(lg.Operands) != 1 {
			return Undefined
		}
		v := lg.Operands[0].Eval(ctx)
		if v.IsUndefined() || v.Kind != KindBool {
			return Undefined
		}
		return Boolean(!v.Bool)
	case "and":
		sawUndefined := false
		for _, op := range lg.Operands {
			v := op.Eval(ctx)
			if v.IsUndefined() {
				sawUndefined = true
				continue
			}
			if v.Kind == KindBool && !v.Bool {
				return Boolean(false)
			}
		}
		if sawUndefined {
			return Undefined
		}
		return Boolean(true)
	case "or":
		sawUndefined := false
		for _, op := range lg.Operands {
			v := op.Eval(ctx)
			if v.IsUndefined() {
				sawUndefined = true
				continue
			}
			if v.Kind == KindBool && v.Bool {
				return Boolean(true)
			}
		}
		if sawUndefined {
			return Undefined
		}
		return Boolean(false)
	default:
		return Undefined
	}
}

// Aggregation supports sum_by_module and count_by_type, computed over
// AllChanges/AllPreds rather than the single change under evaluation.
type Aggregation struct {
	Func string // sum_by_module, count_by_type
	Key  string // module path or resource type to aggregate within
}

func (a Aggregation) Eval(ctx *EvalContext) Value {
	switch a.Func {
	case "sum_by_module":
		var total float64
		var keys []string
		sums := map[string]float64{}
		for _, change := range ctx.AllChanges {
			mod := moduleOf(change.Address)
			if mod != a.Key {
				continue
			}
			pred, ok := ctx.AllPreds[change.Address]
			if !ok {
				continue
			}
			if _, seen := sums[change.Address]; !seen {
				keys = append(keys, change.Address)
			}
			sums[change.Address] = pred.Interval.P50
		}
		sort.Strings(keys)
		for _, k := range keys {
			total += sums[k]
		}
		return Number(total)
	case "count_by_type":
		count := 0
		for _, change := range ctx.AllChanges {
			if change.ResourceType == a.Key {
				count++
			}
		}
		return Number(float64(count))
	default:
		return Undefined
	}
}

func moduleOf(address string) string {
	for i := len(address) - 1; i >= 0; i-- {
		if address[i] == '.' {
			return address[:i]
		}
	}
	return ""
}

func resolveField(ctx *EvalContext, path string) Value {
	switch path {
	case "monthly_cost":
		return Number(ctx.Prediction.Interval.P50)
	case "monthly_cost_p10":
		return Number(ctx.Prediction.Interval.P10)
	case "monthly_cost_p90":
		return Number(ctx.Prediction.Interval.P90)
	case "monthly_cost_p99":
		return Number(ctx.Prediction.Interval.P99)
	case "confidence":
		return Number(ctx.Prediction.Confidence)
	case "resource_type":
		return String(ctx.Change.ResourceType)
	case "address":
		return String(ctx.Change.Address)
	case "action":
		return String(string(ctx.Change.Action))
	default:
		if len(path) > 5 && path[:5] == "tags." {
			tagKey := path[5:]
			if ctx.Tags == nil {
				return Undefined
			}
			if v, ok := ctx.Tags[tagKey]; ok {
				return String(v)
			}
		}
		return Undefined
	}
}

// String renders a Value for diagnostic messages only (never used in
// rendered finding text, which goes through internal/explain's grammar).
func (v Value) String() string {
	switch v.Kind {
	case KindUndefined:
		return "Undefined"
	case KindNumber:
		return fmt.Sprintf("%v", v.Num)
	case KindString:
		return v.Str
	case KindBool:
		return fmt.Sprintf("%v", v.Bool)
	default:
		return "<list>"
	}
}
