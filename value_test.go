package recdb

import (
	"math"
	"testing"
)

func TestCompare_TotalOrderAcrossKinds(t *testing.T) {
	// R3: null < bool < number < string < sequence < set < map.
	ordered := []Value{
		Null(),
		Bool(false),
		Bool(true),
		Int(-1),
		Int(0),
		Float(0.5),
		Int(1),
		String("a"),
		String("b"),
		Seq(Int(1)),
		Seq(Int(1), Int(2)),
		SetOf(Int(1), Int(2)),
		MapOf(map[string]Value{"a": Int(1)}),
	}
	for i := 0; i < len(ordered)-1; i++ {
		a, b := ordered[i], ordered[i+1]
		if Compare(a, b) >= 0 {
			t.Errorf("Compare(%v, %v) = %d, want < 0", a, b, Compare(a, b))
		}
		if Compare(b, a) <= 0 {
			t.Errorf("Compare(%v, %v) = %d, want > 0", b, a, Compare(b, a))
		}
	}
}

func TestCompare_IntAndFloatMixWithNumericOrder(t *testing.T) {
	if Compare(Int(1), Float(1.0)) != 0 {
		t.Errorf("Int(1) vs Float(1.0) should compare equal")
	}
	if Compare(Int(1), Float(1.5)) >= 0 {
		t.Errorf("Int(1) should sort below Float(1.5)")
	}
}

func TestCompare_NaNSortsAboveAllOtherNumbers(t *testing.T) {
	nan := Float(math.NaN())
	others := []Value{Int(math.MaxInt64), Float(math.Inf(1)), Float(-1e300)}
	for _, o := range others {
		if Compare(nan, o) <= 0 {
			t.Errorf("Compare(NaN, %v) = %d, want > 0", o, Compare(nan, o))
		}
	}
	if Compare(nan, Float(math.NaN())) != 0 {
		t.Errorf("two NaNs should compare equal under Compare")
	}
}

func TestSetOf_DeduplicatesAndSortsElements(t *testing.T) {
	s := SetOf(Int(3), Int(1), Int(1), Int(2))
	els := s.Elements()
	if len(els) != 3 {
		t.Fatalf("len(Elements()) = %d, want 3", len(els))
	}
	for i := 0; i < len(els)-1; i++ {
		if Compare(els[i], els[i+1]) >= 0 {
			t.Fatalf("set elements not sorted ascending: %v", els)
		}
	}
}

func TestHashValue_StructurallyEqualValuesHashEqual(t *testing.T) {
	a := MapOf(map[string]Value{"x": Int(1), "y": String("z")})
	b := MapOf(map[string]Value{"y": String("z"), "x": Int(1)})
	if HashValue(a) != HashValue(b) {
		t.Errorf("maps with same entries in different insertion order should hash equal")
	}

	seqA := SetOf(Int(1), Int(2))
	seqB := SetOf(Int(2), Int(1))
	if HashValue(seqA) != HashValue(seqB) {
		t.Errorf("sets with same elements in different construction order should hash equal")
	}

	if HashValue(Seq(Int(1), Int(2))) == HashValue(SetOf(Int(1), Int(2))) {
		t.Errorf("a sequence and a set with the same elements should not hash equal")
	}
}

func TestHashValue_NaNNormalizedConsistently(t *testing.T) {
	bits1 := math.Float64frombits(0x7FF8000000000001)
	bits2 := math.Float64frombits(0x7FF8000000000002)
	if HashValue(Float(bits1)) != HashValue(Float(bits2)) {
		t.Errorf("distinct NaN bit patterns should normalize to the same hash")
	}
}

func TestGetPath_MissingSegmentReturnsNotFound(t *testing.T) {
	root := MapOf(map[string]Value{
		"a": MapOf(map[string]Value{"b": Int(1)}),
	})
	if v, ok := getPath(root, []string{"a", "b"}); !ok || v.AsInt() != 1 {
		t.Fatalf("getPath(a.b) = (%v, %v), want (1, true)", v, ok)
	}
	if _, ok := getPath(root, []string{"a", "c"}); ok {
		t.Fatalf("getPath(a.c) = ok, want not found")
	}
	if _, ok := getPath(root, []string{"a", "b", "c"}); ok {
		t.Fatalf("getPath(a.b.c) should fail: b is not a map")
	}
}
