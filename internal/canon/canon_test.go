package canon

import (
	"math"
	"strings"
	"testing"
)

type sample struct {
	Zebra   string  `json:"zebra"`
	Alpha   float64 `json:"alpha"`
	Omitted string  `json:"omitted,omitempty"`
	hidden  string  //nolint:unused
}

func TestMarshalSortsKeysLexicographically(t *testing.T) {
	buf, err := Marshal(sample{Zebra: "z", Alpha: 1.5})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	out := string(buf)
	if strings.Index(out, "alpha") > strings.Index(out, "zebra") {
		t.Fatalf("expected alpha before zebra, got: %s", out)
	}
}

func TestMarshalOmitsEmptyOptedFields(t *testing.T) {
	buf, err := Marshal(sample{Zebra: "z", Alpha: 1})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(buf), "omitted") {
		t.Fatalf("expected omitempty field to be dropped, got: %s", buf)
	}
}

func TestMarshalUsesTwoSpaceIndentAndLF(t *testing.T) {
	buf, err := Marshal(map[string]interface{}{"a": 1.0})
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if strings.Contains(string(buf), "\r") {
		t.Fatalf("expected no CR in output")
	}
	if !strings.Contains(string(buf), "  \"a\"") {
		t.Fatalf("expected 2-space indent, got: %q", buf)
	}
}

func TestMarshalIsDeterministicAcrossMapIterationOrder(t *testing.T) {
	m := map[string]interface{}{"b": 1.0, "a": 2.0, "c": 3.0}
	first, err := Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(m)
		if err != nil {
			t.Fatalf("Marshal() error = %v", err)
		}
		if string(first) != string(again) {
			t.Fatalf("non-deterministic output across runs")
		}
	}
}

func TestNormalizeFloatHandlesNaNAndInf(t *testing.T) {
	if got := NormalizeFloat(math.NaN()); got != 0.0 {
		t.Errorf("NaN: got %v, want 0.0", got)
	}
	if got := NormalizeFloat(math.Inf(1)); got != FiniteMaxSentinel {
		t.Errorf("+Inf: got %v, want %v", got, FiniteMaxSentinel)
	}
	if got := NormalizeFloat(math.Inf(-1)); got != FiniteMinSentinel {
		t.Errorf("-Inf: got %v, want %v", got, FiniteMinSentinel)
	}
}

func TestNormalizeFloatRoundsToFourDecimals(t *testing.T) {
	got := NormalizeFloat(1.123456789)
	want := 1.1235
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestMarshalNormalizesNaNInsteadOfErroringLikeEncodingJSON(t *testing.T) {
	buf, err := Marshal(map[string]interface{}{"cost": math.NaN()})
	if err != nil {
		t.Fatalf("Marshal() with NaN should not error, got: %v", err)
	}
	if !strings.Contains(string(buf), "\"cost\": 0") {
		t.Fatalf("expected NaN normalized to 0, got: %s", buf)
	}
}

func TestIDIsStableAndContentDerived(t *testing.T) {
	a := ID("aws_instance.web", "t3.large")
	b := ID("aws_instance.web", "t3.large")
	if a != b {
		t.Fatalf("expected equal parts to produce equal IDs: %s vs %s", a, b)
	}
	c := ID("aws_instance.web", "t3.xlarge")
	if a == c {
		t.Fatalf("expected different parts to produce different IDs")
	}
}

func TestIDPartsDoNotCollideAcrossBoundaries(t *testing.T) {
	a := ID("ab", "c")
	b := ID("a", "bc")
	if a == b {
		t.Fatalf("expected part-boundary-sensitive hashing, got equal IDs")
	}
}

func TestHashIsOrderIndependentOfMapKeys(t *testing.T) {
	h1, err := Hash(map[string]interface{}{"a": 1.0, "b": 2.0})
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	h2, err := Hash(map[string]interface{}{"b": 2.0, "a": 1.0})
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if h1 != h2 {
		t.Fatalf("expected identical hash regardless of map construction order")
	}
}

func TestSortedSumIsOrderIndependent(t *testing.T) {
	values := []float64{10.5, 2.25, 7.0}
	keys := []string{"c", "a", "b"}
	sum := SortedSum(values, keys)

	reordered := []float64{2.25, 7.0, 10.5}
	reorderedKeys := []string{"a", "b", "c"}
	sum2 := SortedSum(reordered, reorderedKeys)

	if sum != sum2 {
		t.Fatalf("expected sums to match: %v vs %v", sum, sum2)
	}
	if math.Abs(sum-19.75) > 1e-9 {
		t.Fatalf("got %v, want 19.75", sum)
	}
}

func TestSortedSumPanicsOnLengthMismatch(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Fatal("expected panic on length mismatch")
		}
	}()
	SortedSum([]float64{1}, []string{"a", "b"})
}
