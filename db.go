package recdb

import (
	"fmt"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"time"
	"weak"
)

// Options configures a Store. It mirrors the teacher's Options{Logf,
// Verbose, IsTesting, MmapSize} struct, trimmed to the concerns that still
// apply to a purely in-memory engine.
type Options struct {
	// Logf receives diagnostic lines (record creation/deletion, and index
	// creation/pruning when Verbose is set). Defaults to a log/slog-backed
	// logger when nil.
	Logf func(format string, args ...any)
	// Verbose enables the chattier subset of Logf calls.
	Verbose bool
	// StrictMode is stored on the Store, but no operation reads it: setting
	// it changes no behaviour.
	StrictMode bool
	// RidKind selects whether generated rids (no caller-supplied "id") are
	// monotonic integers (default) or UUID strings.
	RidKind RidKind
}

// Store is the record manager (C) plus the owning context for the index set
// (B) and the identity map. It is the root object of the package: callers
// open one Store, create/query/mutate records through it, and open
// Transactions scoped to it.
type Store struct {
	mu      sync.RWMutex
	logf    func(format string, args ...any)
	verbose bool
	strict  bool

	records map[Rid]*Record
	indices map[string]*index
	ridGen  *ridGenerator

	identMu  sync.Mutex
	identity map[Rid]weak.Pointer[View]

	readCount  atomic.Uint64
	writeCount atomic.Uint64
	txnCount   atomic.Uint64

	openTxnsMu sync.Mutex
	openTxns   map[*Tx]struct{}

	rowOnce sync.Once
	rowSym  *Symbol
}

// Open returns a new, empty Store.
func Open(opt Options) *Store {
	logf := opt.Logf
	if logf == nil {
		logf = slogLogf
	}
	return &Store{
		logf:     logf,
		verbose:  opt.Verbose,
		strict:   opt.StrictMode,
		records:  make(map[Rid]*Record),
		indices:  make(map[string]*index),
		ridGen:   newRidGenerator(opt.RidKind),
		identity: make(map[Rid]weak.Pointer[View]),
		openTxns: make(map[*Tx]struct{}),
	}
}

// Symbol returns a fresh, stateless symbol for building predicates.
func (s *Store) Symbol() *Symbol { return NewSymbol() }

// Row returns a process-stable symbol bound to this store, for callers who
// want to reuse the same Path objects across queries (mirrors the teacher's
// memoized store.entry/tx.row).
func (s *Store) Row() *Symbol {
	s.rowOnce.Do(func() { s.rowSym = NewSymbol() })
	return s.rowSym
}

// Select returns a new Query over this store with the given projection
// (empty = whole records).
func (s *Store) Select(paths ...string) *Query {
	return newQuery(s, nil).Select(paths...)
}

// Transaction opens a new write-buffering transaction scoped to this store.
func (s *Store) Transaction() *Tx {
	tx := newTx(s)
	s.openTxnsMu.Lock()
	s.openTxns[tx] = struct{}{}
	s.openTxnsMu.Unlock()
	s.txnCount.Add(1)
	return tx
}

func (s *Store) forgetTxn(tx *Tx) {
	s.openTxnsMu.Lock()
	delete(s.openTxns, tx)
	s.openTxnsMu.Unlock()
}

// WithTransaction is the scoped transaction form: it commits on a nil
// return from fn, rolls back and returns the error when fn fails, and rolls
// back and re-panics when fn panics.
func (s *Store) WithTransaction(fn func(*Tx) error) (err error) {
	tx := s.Transaction()
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()
	if err = fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// ---- record manager (C) public contract ----

// Create assigns a rid (from the "id" attribute if present, else a fresh
// one), inserts the record into every relevant index, and returns the rid.
func (s *Store) Create(rec *Record) (Rid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.createLocked(rec)
}

// CreateMany inserts every record atomically: a mid-batch failure rolls
// back every record created earlier in the same call before the error
// surfaces.
func (s *Store) CreateMany(recs []*Record) ([]Rid, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rids := make([]Rid, 0, len(recs))
	for _, rec := range recs {
		rid, err := s.createLocked(rec)
		if err != nil {
			for _, done := range rids {
				s.deleteLocked(done)
			}
			return nil, err
		}
		rids = append(rids, rid)
	}
	return rids, nil
}

func (s *Store) createLocked(rec *Record) (Rid, error) {
	var rid Rid
	if idv, ok := rec.Get("id"); ok {
		r, err := ridFromValue(idv)
		if err != nil {
			return Rid{}, err
		}
		rid = r
	} else {
		rid = s.ridGen.generate()
		rec.Set("id", rid.Value())
	}
	if _, exists := s.records[rid]; exists {
		return Rid{}, &DuplicateError{Rid: rid}
	}
	s.records[rid] = rec
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		s.ensureIndexLocked(k).insert(v, rid)
	}
	s.writeCount.Add(1)
	s.logf("recdb: created rid=%v attrs=%d", rid, rec.Len())
	return rid, nil
}

// Get returns the live view for rid, fabricating one if the identity map
// has nothing live for it.
func (s *Store) Get(rid Rid) (*View, error) {
	s.mu.RLock()
	_, ok := s.records[rid]
	s.mu.RUnlock()
	if !ok {
		return nil, &NotFoundError{Rid: rid}
	}
	s.readCount.Add(1)
	return s.getOrMakeView(rid), nil
}

// GetMany returns a view for every rid that's still live; missing rids are
// silently omitted.
func (s *Store) GetMany(rids []Rid) map[Rid]*View {
	out := make(map[Rid]*View, len(rids))
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rid := range rids {
		if _, ok := s.records[rid]; ok {
			out[rid] = s.getOrMakeView(rid)
			s.readCount.Add(1)
		}
	}
	return out
}

// Update writes every entry of patch onto rid's record and reindexes
// exactly those keys (§4.3's reindexing discipline: the caller names which
// keys changed, via the keys of patch).
func (s *Store) Update(rid Rid, patch map[string]Value) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[rid]
	if !ok {
		return &NotFoundError{Rid: rid}
	}
	for k, newVal := range patch {
		oldVal, hadOld := rec.Get(k)
		rec.Set(k, newVal)
		s.reindexAttrLocked(rid, k, oldVal, hadOld, newVal, true)
	}
	s.writeCount.Add(1)
	return nil
}

// DeleteAttrs removes each key from the record and from I_key.
func (s *Store) DeleteAttrs(rid Rid, keys []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[rid]
	if !ok {
		return &NotFoundError{Rid: rid}
	}
	for _, k := range keys {
		oldVal, hadOld := rec.Get(k)
		if !hadOld {
			continue
		}
		rec.Delete(k)
		s.reindexAttrLocked(rid, k, oldVal, true, Value{}, false)
	}
	s.writeCount.Add(1)
	return nil
}

// Delete removes rid from every index and forgets the record.
func (s *Store) Delete(rid Rid) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deleteLocked(rid)
}

func (s *Store) deleteLocked(rid Rid) error {
	rec, ok := s.records[rid]
	if !ok {
		return &NotFoundError{Rid: rid}
	}
	for _, k := range rec.Keys() {
		v, _ := rec.Get(k)
		s.reindexAttrLocked(rid, k, v, true, Value{}, false)
	}
	delete(s.records, rid)
	s.writeCount.Add(1)
	s.logf("recdb: deleted rid=%v", rid)
	return nil
}

// replaceLocked overwrites rid's entire record with newRec and reindexes
// every key (old keys removed, new keys inserted). Used by Tx.Commit, which
// already holds the merged final state and doesn't need the patch-shaped
// reindexing Update does.
func (s *Store) replaceLocked(rid Rid, newRec *Record) error {
	oldRec, ok := s.records[rid]
	if !ok {
		return &NotFoundError{Rid: rid}
	}
	for _, k := range oldRec.Keys() {
		oldVal, _ := oldRec.Get(k)
		s.reindexAttrLocked(rid, k, oldVal, true, Value{}, false)
	}
	s.records[rid] = newRec
	for _, k := range newRec.Keys() {
		v, _ := newRec.Get(k)
		s.reindexAttrLocked(rid, k, Value{}, false, v, true)
	}
	s.writeCount.Add(1)
	return nil
}

// ---- index bookkeeping ----

func (s *Store) ensureIndexLocked(attr string) *index {
	ix, ok := s.indices[attr]
	if !ok {
		ix = newIndex(attr)
		s.indices[attr] = ix
		if s.verbose {
			s.logf("recdb: created index on %q", attr)
		}
	}
	return ix
}

func (s *Store) reindexAttrLocked(rid Rid, attr string, oldVal Value, hadOld bool, newVal Value, hasNew bool) {
	if hadOld {
		if ix, ok := s.indices[attr]; ok {
			ix.remove(oldVal, rid)
			if ix.empty() {
				delete(s.indices, attr)
				if s.verbose {
					s.logf("recdb: dropped empty index on %q", attr)
				}
			}
		}
	}
	if hasNew {
		s.ensureIndexLocked(attr).insert(newVal, rid)
	}
}

// lookupIndexLocked, allRidsLocked and recordLocked are the unlocked
// counterparts of the index/record reads the planner and query executor
// need. The caller must already hold s.mu (at least RLock) for the entire
// logical read operation: a single independently-locked call per index
// lookup or per candidate record (the shape this package used to have)
// lets a concurrent Tx.Commit interleave partway through a query and hand
// back a torn mix of pre- and post-commit state, and lets an unlocked
// btree.BTreeG traversal race with reindexAttrLocked's mutations. Every
// caller of these three must itself be inside a held s.mu critical
// section; see Query.matchingRidsLocked.
func (s *Store) lookupIndexLocked(attr string) (*index, bool) {
	ix, ok := s.indices[attr]
	return ix, ok
}

func (s *Store) allRidsLocked() ridSet {
	out := newRidSet()
	for rid := range s.records {
		out.add(rid)
	}
	return out
}

func (s *Store) recordLocked(rid Rid) (*Record, bool) {
	rec, ok := s.records[rid]
	if !ok {
		return nil, false
	}
	return rec.Clone(), true
}

// recordSnapshot is the self-locking counterpart of recordLocked, for
// callers (Tx's standalone, non-Query operations) that aren't already
// inside a larger critical section.
func (s *Store) recordSnapshot(rid Rid) (*Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.recordLocked(rid)
}

// ---- identity map (weak references, Go 1.24 weak.Pointer + runtime.AddCleanup) ----

func (s *Store) getOrMakeView(rid Rid) *View {
	s.identMu.Lock()
	defer s.identMu.Unlock()
	if wp, ok := s.identity[rid]; ok {
		if v := wp.Value(); v != nil {
			return v
		}
	}
	v := newView(rid, s)
	s.identity[rid] = weak.Make(v)
	runtime.AddCleanup(v, func(r Rid) {
		s.identMu.Lock()
		defer s.identMu.Unlock()
		if wp, ok := s.identity[r]; ok && wp.Value() == nil {
			delete(s.identity, r)
		}
	}, rid)
	return v
}

// ReadSnapshot is the multi-record read counterpart to Tx: every Get/View
// call made through it inside a Store.Read callback observes one
// consistent state, never a mixture of pre- and post-commit values across
// calls. Modeled on the read-only transaction pattern embedded stores like
// bbolt expose as DB.View.
type ReadSnapshot struct {
	store *Store
}

// Get reads a single attribute from rid's record as of the snapshot.
func (rs *ReadSnapshot) Get(rid Rid, key string) (Value, bool, error) {
	rec, ok := rs.store.records[rid]
	if !ok {
		return Value{}, false, &NotFoundError{Rid: rid}
	}
	v, ok := rec.Get(key)
	return v, ok, nil
}

// View returns the live view for rid as of the snapshot. The view itself
// is always live (per the identity map's contract); what Read guarantees is
// that every attribute it's used to read during fn was present as of one
// consistent instant.
func (rs *ReadSnapshot) View(rid Rid) (*View, bool) {
	if _, ok := rs.store.records[rid]; !ok {
		return nil, false
	}
	return rs.store.getOrMakeView(rid), true
}

// Read holds s.mu.RLock() for fn's entire duration, giving callers that
// need to read several rids or attributes together the same
// single-critical-section guarantee Query.match and Tx.Commit already
// have: no Tx.Commit can interleave partway through fn.
func (s *Store) Read(fn func(*ReadSnapshot)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&ReadSnapshot{store: s})
}

// ---- recordOwner (View plumbing) ----

func (s *Store) viewGet(rid Rid, key string) (Value, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[rid]
	if !ok {
		return Value{}, false, &NotFoundError{Rid: rid}
	}
	v, ok := rec.Get(key)
	return v, ok, nil
}

func (s *Store) viewSet(rid Rid, key string, val Value) error {
	return s.Update(rid, map[string]Value{key: val})
}

func (s *Store) viewSetMany(rid Rid, vals map[string]Value) error {
	return s.Update(rid, vals)
}

func (s *Store) viewSetDefault(rid Rid, key string, def Value) (Value, error) {
	s.mu.Lock()
	rec, ok := s.records[rid]
	if !ok {
		s.mu.Unlock()
		return Value{}, &NotFoundError{Rid: rid}
	}
	if v, ok := rec.Get(key); ok {
		s.mu.Unlock()
		return v, nil
	}
	s.mu.Unlock()
	if err := s.Update(rid, map[string]Value{key: def}); err != nil {
		return Value{}, err
	}
	return def, nil
}

func (s *Store) viewDeleteAttr(rid Rid, key string) error {
	return s.DeleteAttrs(rid, []string{key})
}

func (s *Store) viewRemove(rid Rid) error {
	return s.Delete(rid)
}

func (s *Store) viewKeys(rid Rid) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[rid]
	if !ok {
		return nil, &NotFoundError{Rid: rid}
	}
	return rec.Keys(), nil
}

// ---- monitoring / debug (grounded on the teacher's monitoring.go/debug.go) ----

// Stats is a point-in-time snapshot of store activity counters.
type Stats struct {
	Records    int
	Indices    int
	ReadCount  uint64
	WriteCount uint64
	TxnCount   uint64
	OpenTxns   int
}

func (s *Store) Stats() Stats {
	s.mu.RLock()
	records, indices := len(s.records), len(s.indices)
	s.mu.RUnlock()

	s.openTxnsMu.Lock()
	open := len(s.openTxns)
	s.openTxnsMu.Unlock()

	return Stats{
		Records:    records,
		Indices:    indices,
		ReadCount:  s.readCount.Load(),
		WriteCount: s.writeCount.Load(),
		TxnCount:   s.txnCount.Load(),
		OpenTxns:   open,
	}
}

// DescribeOpenTransactions renders a human-readable summary of every
// transaction that hasn't committed or rolled back yet, grounded on the
// teacher's DB.DescribeOpenTxns.
func (s *Store) DescribeOpenTransactions() string {
	s.openTxnsMu.Lock()
	txns := make([]*Tx, 0, len(s.openTxns))
	for tx := range s.openTxns {
		txns = append(txns, tx)
	}
	s.openTxnsMu.Unlock()

	if len(txns) == 0 {
		return "NO OPEN TRANSACTIONS"
	}

	now := time.Now()
	var buf strings.Builder
	fmt.Fprintf(&buf, "%d OPEN TRANSACTIONS:\n", len(txns))
	for _, tx := range txns {
		fmt.Fprintf(&buf, "\n---\nopen for %s, %d pending change(s)\n",
			now.Sub(tx.startTime).Round(time.Millisecond), tx.pendingCount())
	}
	return buf.String()
}
