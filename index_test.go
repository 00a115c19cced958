package recdb

import "testing"

func ridInt(i int64) Rid { return Rid{Kind: RidKindInt, Int: i} }

func TestIndex_InsertAndPoint(t *testing.T) {
	ix := newIndex("color")
	ix.insert(String("red"), ridInt(1))
	ix.insert(String("red"), ridInt(2))
	ix.insert(String("blue"), ridInt(3))

	got := ix.point(String("red"))
	if len(got) != 2 || !got.has(ridInt(1)) || !got.has(ridInt(2)) {
		t.Fatalf("point(red) = %v, want {1, 2}", got)
	}
	if ix.n != 3 {
		t.Fatalf("ix.n = %d, want 3", ix.n)
	}
}

func TestIndex_RemovePrunesEmptyBuckets(t *testing.T) {
	ix := newIndex("color")
	ix.insert(String("red"), ridInt(1))
	ix.remove(String("red"), ridInt(1))

	if !ix.empty() {
		t.Fatalf("index should be empty after removing its only entry")
	}
	if got := ix.point(String("red")); len(got) != 0 {
		t.Fatalf("point(red) after remove = %v, want empty", got)
	}
}

func TestIndex_RangeScanRespectsInclusivity(t *testing.T) {
	ix := newIndex("age")
	for i := int64(1); i <= 5; i++ {
		ix.insert(Int(i), ridInt(i))
	}

	three := Int(3)
	lt3 := ix.rangeScan(nil, &three, false, false)
	if len(lt3) != 2 || !lt3.has(ridInt(1)) || !lt3.has(ridInt(2)) {
		t.Fatalf("rangeScan(<3) = %v, want {1, 2}", lt3)
	}

	le3 := ix.rangeScan(nil, &three, false, true)
	if len(le3) != 3 {
		t.Fatalf("rangeScan(<=3) = %v, want 3 entries", le3)
	}

	ge3 := ix.rangeScan(&three, nil, true, false)
	if len(ge3) != 3 {
		t.Fatalf("rangeScan(>=3) = %v, want 3 entries", ge3)
	}

	gt3 := ix.rangeScan(&three, nil, false, false)
	if len(gt3) != 2 || !gt3.has(ridInt(4)) || !gt3.has(ridInt(5)) {
		t.Fatalf("rangeScan(>3) = %v, want {4, 5}", gt3)
	}
}

func TestIndex_MembershipUnionsRequestedKeys(t *testing.T) {
	ix := newIndex("color")
	ix.insert(String("red"), ridInt(1))
	ix.insert(String("green"), ridInt(2))
	ix.insert(String("blue"), ridInt(3))

	got := ix.membership([]Value{String("red"), String("blue")})
	if len(got) != 2 || !got.has(ridInt(1)) || !got.has(ridInt(3)) {
		t.Fatalf("membership(red, blue) = %v, want {1, 3}", got)
	}
}

func TestIndex_IterOrderedWalksInValueOrder(t *testing.T) {
	ix := newIndex("age")
	ix.insert(Int(3), ridInt(30))
	ix.insert(Int(1), ridInt(10))
	ix.insert(Int(2), ridInt(20))

	var seen []int64
	ix.iterOrdered(false, func(v Value, rid Rid) bool {
		seen = append(seen, v.AsInt())
		return true
	})
	want := []int64{1, 2, 3}
	for i, v := range want {
		if seen[i] != v {
			t.Fatalf("iterOrdered ascending = %v, want %v", seen, want)
		}
	}

	seen = nil
	ix.iterOrdered(true, func(v Value, rid Rid) bool {
		seen = append(seen, v.AsInt())
		return true
	})
	wantDesc := []int64{3, 2, 1}
	for i, v := range wantDesc {
		if seen[i] != v {
			t.Fatalf("iterOrdered descending = %v, want %v", seen, wantDesc)
		}
	}
}

func TestIndex_IterOrderedStopsEarly(t *testing.T) {
	ix := newIndex("age")
	ix.insert(Int(1), ridInt(10))
	ix.insert(Int(2), ridInt(20))
	ix.insert(Int(3), ridInt(30))

	count := 0
	ix.iterOrdered(false, func(v Value, rid Rid) bool {
		count++
		return count < 1
	})
	if count != 1 {
		t.Fatalf("iterOrdered should stop after yield returns false, got count=%d", count)
	}
}

func TestIntersectAndUnionInto(t *testing.T) {
	a := newRidSet()
	a.add(ridInt(1))
	a.add(ridInt(2))
	b := newRidSet()
	b.add(ridInt(2))
	b.add(ridInt(3))

	in := intersect(a, b)
	if len(in) != 1 || !in.has(ridInt(2)) {
		t.Fatalf("intersect = %v, want {2}", in)
	}

	u := unionInto(nil, a)
	u = unionInto(u, b)
	if len(u) != 3 {
		t.Fatalf("unionInto = %v, want 3 elements", u)
	}
}
