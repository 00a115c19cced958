package recdb

import "github.com/google/btree"

// ridSet is the per-value bucket an index maps to: the set of rids whose
// record holds that value for the indexed attribute.
type ridSet map[Rid]struct{}

func newRidSet() ridSet { return make(ridSet) }

func (s ridSet) add(r Rid)    { s[r] = struct{}{} }
func (s ridSet) remove(r Rid) { delete(s, r) }
func (s ridSet) has(r Rid) bool {
	_, ok := s[r]
	return ok
}

// unionInto merges src into dst, creating dst if nil, and returns it.
func unionInto(dst ridSet, src ridSet) ridSet {
	if dst == nil {
		dst = newRidSet()
	}
	for r := range src {
		dst.add(r)
	}
	return dst
}

// intersect returns the elements present in both a and b.
func intersect(a, b ridSet) ridSet {
	out := newRidSet()
	if len(a) > len(b) {
		a, b = b, a
	}
	for r := range a {
		if b.has(r) {
			out.add(r)
		}
	}
	return out
}

type indexEntry struct {
	key  Value
	rids ridSet
}

func indexEntryLess(a, b *indexEntry) bool {
	return Compare(a.key, b.key) < 0
}

// index is the ordered multi-index of component B: a sorted map from
// attribute value to rid-set, backed by a google/btree B-tree keyed by the
// canonical value order of R3. Entries whose rid-set empties out are pruned
// immediately, per invariant R2.
type index struct {
	attr string
	tree *btree.BTreeG[*indexEntry]
	n    int // total number of (value, rid) pairs currently indexed
}

const indexDegree = 32

func newIndex(attr string) *index {
	return &index{attr: attr, tree: btree.NewG(indexDegree, indexEntryLess)}
}

func (ix *index) insert(v Value, rid Rid) {
	probe := &indexEntry{key: v}
	if e, ok := ix.tree.Get(probe); ok {
		if !e.rids.has(rid) {
			e.rids.add(rid)
			ix.n++
		}
		return
	}
	e := &indexEntry{key: v, rids: newRidSet()}
	e.rids.add(rid)
	ix.tree.ReplaceOrInsert(e)
	ix.n++
}

func (ix *index) remove(v Value, rid Rid) {
	probe := &indexEntry{key: v}
	e, ok := ix.tree.Get(probe)
	if !ok || !e.rids.has(rid) {
		return
	}
	e.rids.remove(rid)
	ix.n--
	if len(e.rids) == 0 {
		ix.tree.Delete(probe)
	}
}

// point returns the rid-set stored at key v, or an empty set.
func (ix *index) point(v Value) ridSet {
	if e, ok := ix.tree.Get(&indexEntry{key: v}); ok {
		return e.rids
	}
	return nil
}

// all returns the union of every bucket in the index.
func (ix *index) all() ridSet {
	out := newRidSet()
	ix.tree.Ascend(func(e *indexEntry) bool {
		out = unionInto(out, e.rids)
		return true
	})
	return out
}

// membership returns the union of the buckets for each element of vs.
func (ix *index) membership(vs []Value) ridSet {
	out := newRidSet()
	for _, v := range vs {
		out = unionInto(out, ix.point(v))
	}
	return out
}

// rangeScan returns the union of buckets whose key falls in the interval
// bounded by lo/hi (nil meaning unbounded on that side), honoring the
// inclusive flags.
func (ix *index) rangeScan(lo, hi *Value, inclLo, inclHi bool) ridSet {
	out := newRidSet()
	visit := func(e *indexEntry) bool {
		if hi != nil {
			c := Compare(e.key, *hi)
			if c > 0 || (c == 0 && !inclHi) {
				return false
			}
		}
		if lo != nil {
			c := Compare(e.key, *lo)
			if c < 0 || (c == 0 && !inclLo) {
				return true
			}
		}
		out = unionInto(out, e.rids)
		return true
	}
	if lo != nil {
		ix.tree.AscendGreaterOrEqual(&indexEntry{key: *lo}, visit)
	} else {
		ix.tree.Ascend(visit)
	}
	return out
}

// iterOrdered walks the index in sort order (ascending, or descending when
// desc is true), yielding every (value, rid) pair; it stops early if yield
// returns false. Used by callers that want to ride the index's natural
// order instead of sorting candidates after the fact.
func (ix *index) iterOrdered(desc bool, yield func(v Value, rid Rid) bool) {
	visit := func(e *indexEntry) bool {
		for rid := range e.rids {
			if !yield(e.key, rid) {
				return false
			}
		}
		return true
	}
	if desc {
		ix.tree.Descend(visit)
	} else {
		ix.tree.Ascend(visit)
	}
}

func (ix *index) empty() bool { return ix.n == 0 }
