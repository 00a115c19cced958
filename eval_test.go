package recdb

import "testing"

func TestPlanRidSet_FallsBackToAllRidsForMultiSegmentPath(t *testing.T) {
	s := newTestStore()
	rid, _ := s.Create(RecordOf(map[string]Value{
		"dog": MapOf(map[string]Value{"age": Int(4)}),
	}))

	s.mu.RLock()
	lk := planLookup{indexFor: s.lookupIndexLocked, allRids: s.allRidsLocked}
	got := planRidSet(lk, Eq([]string{"dog", "age"}, Int(4)))
	s.mu.RUnlock()
	if !got.has(rid) {
		t.Fatalf("plan for nested path should fall back to allRids (superset), missing %v", rid)
	}
}

func TestPlanRidSet_NegatedMemberFallsBackToAllRids(t *testing.T) {
	s := newTestStore()
	rid, _ := s.Create(RecordOf(map[string]Value{"color": String("red")}))

	s.mu.RLock()
	lk := planLookup{indexFor: s.lookupIndexLocked, allRids: s.allRidsLocked}
	neg := &memberPred{path: []string{"color"}, set: []Value{String("blue")}, negate: true}
	got := planRidSet(lk, neg)
	s.mu.RUnlock()
	if !got.has(rid) {
		t.Fatalf("plan for negated member should fall back to allRids (superset), missing %v", rid)
	}
}

func TestEvalPredicate_IsTheCorrectnessOracleEvenOverASuperset(t *testing.T) {
	rec := RecordOf(map[string]Value{"color": String("red")})
	neg := &memberPred{path: []string{"color"}, set: []Value{String("blue")}, negate: true}
	if !evalPredicate(neg, rec) {
		t.Fatalf("evalPredicate(color not in {blue}) on color=red should be true")
	}

	notRed := &memberPred{path: []string{"color"}, set: []Value{String("red")}, negate: true}
	if evalPredicate(notRed, rec) {
		t.Fatalf("evalPredicate(color not in {red}) on color=red should be false")
	}
}

func TestResolvePath_StopsAtFirstMissingSegment(t *testing.T) {
	rec := RecordOf(map[string]Value{"a": Int(1)})
	if _, ok := resolvePath(rec, []string{"a", "b"}); ok {
		t.Fatalf("resolvePath should fail when a isn't a map")
	}
	if v, ok := resolvePath(rec, []string{"a"}); !ok || v.AsInt() != 1 {
		t.Fatalf("resolvePath(a) = %v, %v; want (1, true)", v, ok)
	}
	if _, ok := resolvePath(rec, []string{"missing"}); ok {
		t.Fatalf("resolvePath(missing) should fail")
	}
}
