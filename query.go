package recdb

import (
	"sort"
	"strings"
)

// Query is the composable builder of component E: it binds a predicate,
// ordering, pagination and projection to a store or a transaction and
// produces result materializations. Every chaining method returns a new
// Query (the receiver is never mutated), so a partially-built query can be
// safely reused as the base of several branches.
type Query struct {
	store *Store
	tx    *Tx

	pred  Predicate
	order []OrderTerm

	limit, offset       int
	hasLimit, hasOffset bool

	// projection holds the requested dotted attribute paths; nil/empty
	// means "whole record".
	projection []string
}

func newQuery(s *Store, tx *Tx) *Query {
	return &Query{store: s, tx: tx, pred: True_()}
}

func (q *Query) clone() *Query {
	cp := *q
	cp.order = append([]OrderTerm(nil), q.order...)
	cp.projection = append([]string(nil), q.projection...)
	return &cp
}

// Where ANDs the given predicates onto the query's existing predicate.
func (q *Query) Where(preds ...Predicate) *Query {
	if len(preds) == 0 {
		return q
	}
	cp := q.clone()
	cp.pred = And(append([]Predicate{cp.pred}, preds...)...)
	return cp
}

// OrderBy appends ordering terms; ties are always broken by rid ascending.
func (q *Query) OrderBy(terms ...OrderTerm) *Query {
	cp := q.clone()
	cp.order = append(cp.order, terms...)
	return cp
}

func (q *Query) Limit(n int) *Query {
	cp := q.clone()
	cp.limit, cp.hasLimit = n, true
	return cp
}

func (q *Query) Offset(n int) *Query {
	cp := q.clone()
	cp.offset, cp.hasOffset = n, true
	return cp
}

// Select sets (replacing any previous call) the projection: dotted paths
// like "dog.age". An empty call clears the projection back to whole
// records.
func (q *Query) Select(paths ...string) *Query {
	cp := q.clone()
	cp.projection = append([]string(nil), paths...)
	return cp
}

// Result is one row of a query's materialization: either a live View (whole
// record, the default) or a Proj map (when a projection was requested).
type Result struct {
	Rid  Rid
	View *View
	Proj map[string]Value
}

func (q *Query) checkOrdering() error {
	if q.hasLimit && q.limit < 0 {
		return badOrderingf("limit must be >= 0, got %d", q.limit)
	}
	if q.hasOffset && q.offset < 0 {
		return badOrderingf("offset must be >= 0, got %d", q.offset)
	}
	return nil
}

// candidateRidsLocked computes the (superset) candidate rid-set per
// §4.4/§4.6: base-index plan, merged with the transaction overlay when
// bound to one. The caller must already hold q.store.mu (at least RLock);
// see match and matchingRidsLocked.
func (q *Query) candidateRidsLocked() ridSet {
	lk := planLookup{
		indexFor: q.store.lookupIndexLocked,
		allRids:  q.effectiveAllRidsLocked,
	}
	candidates := planRidSet(lk, q.pred)
	if q.tx != nil {
		q.tx.mergeCandidates(candidates)
	}
	return candidates
}

func (q *Query) effectiveAllRidsLocked() ridSet {
	all := q.store.allRidsLocked()
	if q.tx != nil {
		q.tx.mergeCandidates(all)
	}
	return all
}

// mergedRecordLocked returns rid's record as this query sees it. It assumes
// q.store.mu is already held and routes the transaction-overlay merge (if
// any) through Tx.mergedRecordLocked rather than Tx's self-locking
// mergedLocked, so it never re-enters q.store.mu.
func (q *Query) mergedRecordLocked(rid Rid) (*Record, bool) {
	if q.tx != nil {
		return q.tx.mergedRecordLocked(rid)
	}
	return q.store.recordLocked(rid)
}

// matchingRidsLocked holds q.store.mu.RLock() for the full candidate-set
// computation and residual filter pass, so the set of rids it returns is
// always a consistent snapshot: no Tx.Commit can interleave mid-pass and
// leave some rids evaluated against pre-commit state and others against
// post-commit state.
func (q *Query) matchingRidsLocked() (map[Rid]*Record, error) {
	q.store.mu.RLock()
	defer q.store.mu.RUnlock()

	candidates := q.candidateRidsLocked()
	recs := make(map[Rid]*Record, len(candidates))
	for rid := range candidates {
		rec, ok := q.mergedRecordLocked(rid)
		if !ok {
			continue
		}
		if evalPredicate(q.pred, rec) {
			recs[rid] = rec
		}
	}
	return recs, nil
}

// match runs plan + residual filter + sort + pagination, returning the
// surviving rids in final order.
func (q *Query) match() ([]Rid, map[Rid]*Record, error) {
	if err := validatePredicate(q.pred); err != nil {
		return nil, nil, err
	}
	if err := q.checkOrdering(); err != nil {
		return nil, nil, err
	}

	recs, err := q.matchingRidsLocked()
	if err != nil {
		return nil, nil, err
	}
	survivors := make([]Rid, 0, len(recs))
	for rid := range recs {
		survivors = append(survivors, rid)
	}

	if len(q.order) > 0 {
		sort.Slice(survivors, func(i, j int) bool {
			ri, rj := survivors[i], survivors[j]
			for _, term := range q.order {
				vi, _ := resolvePath(recs[ri], term.path)
				vj, _ := resolvePath(recs[rj], term.path)
				c := Compare(vi, vj)
				if term.desc {
					c = -c
				}
				if c != 0 {
					return c < 0
				}
			}
			return ri.Compare(rj) < 0
		})
	} else {
		sort.Slice(survivors, func(i, j int) bool {
			return survivors[i].Compare(survivors[j]) < 0
		})
	}

	if q.hasOffset {
		if q.offset >= len(survivors) {
			survivors = nil
		} else {
			survivors = survivors[q.offset:]
		}
	}
	if q.hasLimit {
		if q.limit < len(survivors) {
			survivors = survivors[:q.limit]
		}
	}
	return survivors, recs, nil
}

func (q *Query) project(rid Rid, rec *Record) Result {
	if len(q.projection) == 0 {
		return Result{Rid: rid, View: q.viewFor(rid)}
	}
	proj := make(map[string]Value, len(q.projection))
	for _, p := range q.projection {
		segs := strings.Split(p, ".")
		v, ok := resolvePath(rec, segs)
		if !ok {
			v = Null()
		}
		proj[p] = v
	}
	return Result{Rid: rid, Proj: proj}
}

func (q *Query) viewFor(rid Rid) *View {
	if q.tx != nil {
		return q.tx.viewFor(rid)
	}
	return q.store.getOrMakeView(rid)
}

// Map executes the query and returns a mapping from rid to result, the
// default (and tx-consistent-snapshot) materialization form.
func (q *Query) Map() (map[Rid]Result, error) {
	survivors, recs, err := q.match()
	if err != nil {
		return nil, err
	}
	out := make(map[Rid]Result, len(survivors))
	for _, rid := range survivors {
		out[rid] = q.project(rid, recs[rid])
	}
	return out, nil
}

// List executes the query and returns results as an ordered sequence,
// preserving the sort/pagination order computed by match.
func (q *Query) List() ([]Result, error) {
	survivors, recs, err := q.match()
	if err != nil {
		return nil, err
	}
	out := make([]Result, 0, len(survivors))
	for _, rid := range survivors {
		out = append(out, q.project(rid, recs[rid]))
	}
	return out, nil
}

// Delete deletes every record matching the query's predicate (ignoring any
// ordering/limit/offset, which only affect read materializations). Mutation
// goes through the store directly, or into the transaction overlay when the
// query is bound to one.
func (q *Query) Delete() error {
	if err := validatePredicate(q.pred); err != nil {
		return err
	}
	targets, err := q.matchingRidsLocked()
	if err != nil {
		return err
	}
	for rid := range targets {
		if q.tx != nil {
			if err := q.tx.deleteRid(rid); err != nil {
				return err
			}
		} else {
			if err := q.store.Delete(rid); err != nil {
				return err
			}
		}
	}
	return nil
}

// Update applies changes to every record matching the query's predicate.
func (q *Query) Update(changes map[string]Value) error {
	if err := validatePredicate(q.pred); err != nil {
		return err
	}
	targets, err := q.matchingRidsLocked()
	if err != nil {
		return err
	}
	for rid := range targets {
		if q.tx != nil {
			if err := q.tx.updateRid(rid, changes); err != nil {
				return err
			}
		} else {
			if err := q.store.Update(rid, changes); err != nil {
				return err
			}
		}
	}
	return nil
}
