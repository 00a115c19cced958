package recdb

import "testing"

func TestOp_InvertIsSelfConsistent(t *testing.T) {
	pairs := map[Op]Op{
		OpEq: OpNe,
		OpNe: OpEq,
		OpLt: OpGe,
		OpLe: OpGt,
		OpGt: OpLe,
		OpGe: OpLt,
	}
	for op, want := range pairs {
		if got := op.invert(); got != want {
			t.Errorf("%v.invert() = %v, want %v", op, got, want)
		}
		if got := op.invert().invert(); got != op {
			t.Errorf("%v.invert().invert() = %v, want %v (involution)", op, got, op)
		}
	}
}

func TestValidatePredicate_RejectsEmptyPath(t *testing.T) {
	if err := validatePredicate(Eq(nil, Int(1))); err == nil {
		t.Fatalf("validatePredicate(Eq with empty path): want error, got nil")
	}
	if err := validatePredicate(OneOf(nil, []Value{Int(1)})); err == nil {
		t.Fatalf("validatePredicate(OneOf with empty path): want error, got nil")
	}
	if err := validatePredicate(Not(Eq(nil, Int(1)))); err == nil {
		t.Fatalf("validatePredicate(Not(Eq empty path)): want error, got nil")
	}
}

func TestValidatePredicate_AcceptsWellFormedTree(t *testing.T) {
	pred := And(Eq([]string{"a"}, Int(1)), Or(Lt([]string{"b"}, Int(2)), True_()))
	if err := validatePredicate(pred); err != nil {
		t.Fatalf("validatePredicate(well-formed): %v", err)
	}
}

func TestAndOr_IdentityOnEmptyAndSingleton(t *testing.T) {
	if _, ok := And().(truePred); !ok {
		t.Fatalf("And() should reduce to True_()")
	}
	if _, ok := Or().(falsePred); !ok {
		t.Fatalf("Or() should reduce to False_()")
	}
	single := Eq([]string{"a"}, Int(1))
	if And(single) != single {
		t.Fatalf("And(single) should return the same predicate unchanged")
	}
	if Or(single) != single {
		t.Fatalf("Or(single) should return the same predicate unchanged")
	}
}
