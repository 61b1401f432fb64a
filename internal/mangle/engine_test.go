package mangle

import (
	"context"
	"testing"
	"time"
)

func TestNewEngine(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	if engine == nil {
		t.Fatal("NewEngine() returned nil")
	}
}

func TestEngineLoadSchemaString(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	schema := `Decl test_fact(X, Y) descr [mode("-", "-")].`
	if err := engine.LoadSchemaString(schema); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
}

func TestEngineAddFactsAndQuery(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	schema := `Decl person(Name, Age) descr [mode("-", "-")].`
	if err := engine.LoadSchemaString(schema); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}

	facts := []Fact{
		{Predicate: "person", Args: []interface{}{"Alice", int64(30)}},
		{Predicate: "person", Args: []interface{}{"Bob", int64(25)}},
	}
	if err := engine.AddFacts(facts); err != nil {
		t.Fatalf("AddFacts() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := engine.Query(ctx, "person(Name, Age)")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Bindings) != 2 {
		t.Fatalf("Query() returned %d bindings, want 2", len(result.Bindings))
	}
}

func TestEngineUndeclaredPredicateRejected(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	if err := engine.LoadSchemaString(`Decl item(ID) descr [mode("-")].`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	err := engine.AddFacts([]Fact{{Predicate: "unknown", Args: []interface{}{"x"}}})
	if err == nil {
		t.Fatal("AddFacts with undeclared predicate should fail")
	}
}

func TestEngineArityMismatchRejected(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	if err := engine.LoadSchemaString(`Decl pair(X, Y) descr [mode("-", "-")].`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	err := engine.AddFacts([]Fact{{Predicate: "pair", Args: []interface{}{"only_one"}}})
	if err == nil {
		t.Fatal("AddFacts with arity mismatch should fail")
	}
}

func TestEngineFactLimitEnforced(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FactLimit = 1
	cfg.AutoEval = false
	engine := NewEngine(cfg)
	if err := engine.LoadSchemaString(`Decl item(ID) descr [mode("-")].`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	if err := engine.AddFacts([]Fact{{Predicate: "item", Args: []interface{}{int64(1)}}}); err != nil {
		t.Fatalf("first AddFacts under limit should succeed: %v", err)
	}
	err := engine.AddFacts([]Fact{{Predicate: "item", Args: []interface{}{int64(2)}}})
	if err == nil {
		t.Fatal("AddFacts exceeding FactLimit should fail")
	}
}

func TestEngineClearResetsStore(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	if err := engine.LoadSchemaString(`Decl item(ID) descr [mode("-")].`); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	if err := engine.AddFacts([]Fact{{Predicate: "item", Args: []interface{}{"a"}}}); err != nil {
		t.Fatalf("AddFacts() error = %v", err)
	}
	engine.Clear()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := engine.Query(ctx, "item(ID)")
	if err != nil {
		t.Fatalf("Query() after Clear() error = %v", err)
	}
	if len(result.Bindings) != 0 {
		t.Fatalf("expected empty store after Clear(), got %d bindings", len(result.Bindings))
	}
}

func TestEngineDerivedRule(t *testing.T) {
	engine := NewEngine(DefaultConfig())
	schema := `
Decl edge(X, Y) descr [mode("-", "-")].
Decl reachable(X, Y) descr [mode("-", "-")].
reachable(X, Y) :- edge(X, Y).
reachable(X, Z) :- edge(X, Y), reachable(Y, Z).
`
	if err := engine.LoadSchemaString(schema); err != nil {
		t.Fatalf("LoadSchemaString() error = %v", err)
	}
	edges := []Fact{
		{Predicate: "edge", Args: []interface{}{"a", "b"}},
		{Predicate: "edge", Args: []interface{}{"b", "c"}},
	}
	if err := engine.AddFacts(edges); err != nil {
		t.Fatalf("AddFacts() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := engine.Query(ctx, "reachable(X, Y)")
	if err != nil {
		t.Fatalf("Query() error = %v", err)
	}
	if len(result.Bindings) != 3 {
		t.Fatalf("expected 3 reachable pairs (a-b, b-c, a-c), got %d", len(result.Bindings))
	}
}
