package recdb

// planLookup is the narrow slice of Store state the index planner needs:
// how to find the index for an attribute, and how to produce the full set
// of currently-live rids (used as the safe, conservative fallback whenever
// a leaf can't be answered purely from an index).
type planLookup struct {
	indexFor func(attr string) (*index, bool)
	allRids  func() ridSet
}

// planRidSet compiles a predicate into a candidate rid-set per §4.4 steps
// 1-4. It is always a superset of the exact match set: every leaf that
// isn't a single-level Compare/Member, and every leaf that a record lacking
// the attribute (evaluated as Null) would satisfy, falls back to allRids()
// rather than guessing, and Not(Compare) is the only negation form resolved directly
// (by inverting the operator) rather than falling back. Because execution
// always re-evaluates the full predicate against merged record state as a
// residual pass (see evalPredicate), returning a superset here is always
// safe: the plan only affects how much work residual filtering has to do,
// never correctness.
func planRidSet(lk planLookup, p Predicate) ridSet {
	switch n := p.(type) {
	case *comparePred:
		return planCompare(lk, n.path, n.op, n.lit)
	case *memberPred:
		if n.negate || len(n.path) != 1 || evalPredicate(n, NewRecord()) {
			return lk.allRids()
		}
		ix, ok := lk.indexFor(n.path[0])
		if !ok {
			return lk.allRids()
		}
		return ix.membership(n.set)
	case *andPred:
		return intersect(planRidSet(lk, n.l), planRidSet(lk, n.r))
	case *orPred:
		// Start from a fresh set: a leaf's result may be an index bucket.
		return unionInto(unionInto(nil, planRidSet(lk, n.l)), planRidSet(lk, n.r))
	case *notPred:
		if inner, ok := n.p.(*comparePred); ok {
			return planCompare(lk, inner.path, inner.op.invert(), inner.lit)
		}
		return lk.allRids()
	case truePred:
		return lk.allRids()
	case falsePred:
		return newRidSet()
	default:
		return lk.allRids()
	}
}

func planCompare(lk planLookup, path []string, op Op, lit Value) ridSet {
	if len(path) != 1 {
		return lk.allRids()
	}
	ix, ok := lk.indexFor(path[0])
	if !ok {
		return lk.allRids()
	}
	// A record lacking the attribute is in no bucket of ix but evaluates as
	// Null, so when Null satisfies the leaf the index alone misses it.
	if evalPredicate(&comparePred{path: path, op: op, lit: lit}, NewRecord()) {
		return lk.allRids()
	}
	switch op {
	case OpEq:
		return ix.point(lit)
	case OpNe:
		out := newRidSet()
		all := lk.allRids()
		matched := ix.point(lit)
		for r := range all {
			if !matched.has(r) {
				out.add(r)
			}
		}
		return out
	case OpLt:
		return ix.rangeScan(nil, &lit, false, false)
	case OpLe:
		return ix.rangeScan(nil, &lit, false, true)
	case OpGt:
		return ix.rangeScan(&lit, nil, false, false)
	case OpGe:
		return ix.rangeScan(&lit, nil, true, false)
	default:
		return lk.allRids()
	}
}

// resolvePath resolves a dotted attribute path against a record. A missing
// segment anywhere along the chain yields (Null, false), never an error:
// per §4.4's error modes, a missing attribute evaluates as null.
func resolvePath(rec *Record, path []string) (Value, bool) {
	if len(path) == 0 {
		return Value{}, false
	}
	v, ok := rec.Get(path[0])
	if !ok {
		return Value{}, false
	}
	if len(path) == 1 {
		return v, true
	}
	return getPath(v, path[1:])
}

// evalPredicate evaluates p against rec's full (merged) state. This is both
// the residual-filter pass of §4.4 and, since planRidSet only ever narrows
// to a superset, the sole source of truth for whether a candidate actually
// matches.
func evalPredicate(p Predicate, rec *Record) bool {
	switch n := p.(type) {
	case *comparePred:
		val, ok := resolvePath(rec, n.path)
		if !ok {
			val = Null()
		}
		c := Compare(val, n.lit)
		switch n.op {
		case OpEq:
			return c == 0
		case OpNe:
			return c != 0
		case OpLt:
			return c < 0
		case OpLe:
			return c <= 0
		case OpGt:
			return c > 0
		case OpGe:
			return c >= 0
		default:
			return false
		}
	case *memberPred:
		val, ok := resolvePath(rec, n.path)
		if !ok {
			val = Null()
		}
		found := false
		for _, sv := range n.set {
			if Equal(val, sv) {
				found = true
				break
			}
		}
		if n.negate {
			return !found
		}
		return found
	case *andPred:
		return evalPredicate(n.l, rec) && evalPredicate(n.r, rec)
	case *orPred:
		return evalPredicate(n.l, rec) || evalPredicate(n.r, rec)
	case *notPred:
		return !evalPredicate(n.p, rec)
	case truePred:
		return true
	case falsePred:
		return false
	default:
		return false
	}
}
