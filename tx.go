package recdb

import (
	"sync"
	"time"
)

// overlayEntry is one pending change in a transaction's overlay: either a
// full pending record state, or a tombstone marking the rid deleted.
type overlayEntry struct {
	tombstone bool
	rec       *Record // nil when tombstone
	created   bool    // true if this rid didn't exist in the base store when first touched
}

// Tx is the transaction manager of component F: a scoped write-buffering
// session over a Store. Reads merge the overlay over the base store;
// queries run against the base store's indices with the overlay folded in
// (§4.6). Nothing here duplicates the base store's indices.
type Tx struct {
	store *Store

	mu      sync.Mutex
	overlay map[Rid]*overlayEntry
	closed  bool

	identMu  sync.Mutex
	identity map[Rid]*View

	startTime time.Time
}

func newTx(s *Store) *Tx {
	return &Tx{
		store:     s,
		overlay:   make(map[Rid]*overlayEntry),
		identity:  make(map[Rid]*View),
		startTime: time.Now(),
	}
}

func (tx *Tx) checkOpen() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if tx.closed {
		return &TransactionClosedError{}
	}
	return nil
}

func (tx *Tx) pendingCount() int {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	return len(tx.overlay)
}

// existsLocked reports whether rid is currently visible through the
// overlay-over-base merge. Caller holds tx.mu.
func (tx *Tx) existsLocked(rid Rid) bool {
	if entry, ok := tx.overlay[rid]; ok {
		return !entry.tombstone
	}
	_, ok := tx.store.recordSnapshot(rid)
	return ok
}

// Select returns a new Query bound to this transaction.
func (tx *Tx) Select(paths ...string) *Query {
	return newQuery(tx.store, tx).Select(paths...)
}

// Create buffers a new record into the overlay.
func (tx *Tx) Create(rec *Record) (Rid, error) {
	if err := tx.checkOpen(); err != nil {
		return Rid{}, err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	var rid Rid
	if idv, ok := rec.Get("id"); ok {
		r, err := ridFromValue(idv)
		if err != nil {
			return Rid{}, err
		}
		rid = r
	} else {
		rid = tx.store.ridGen.generate()
		rec.Set("id", rid.Value())
	}
	if tx.existsLocked(rid) {
		return Rid{}, &DuplicateError{Rid: rid}
	}
	_, existedBefore := tx.store.recordSnapshot(rid)
	tx.overlay[rid] = &overlayEntry{rec: rec.Clone(), created: !existedBefore}
	return rid, nil
}

// CreateMany is atomic within the call: a mid-batch failure undoes every
// overlay entry added earlier in the same call.
func (tx *Tx) CreateMany(recs []*Record) ([]Rid, error) {
	if err := tx.checkOpen(); err != nil {
		return nil, err
	}
	rids := make([]Rid, 0, len(recs))
	for _, rec := range recs {
		rid, err := tx.Create(rec)
		if err != nil {
			tx.mu.Lock()
			for _, done := range rids {
				delete(tx.overlay, done)
			}
			tx.mu.Unlock()
			return nil, err
		}
		rids = append(rids, rid)
	}
	return rids, nil
}

// Get returns a transaction-scoped live view for rid.
func (tx *Tx) Get(rid Rid) (*View, error) {
	if err := tx.checkOpen(); err != nil {
		return nil, err
	}
	tx.mu.Lock()
	ok := tx.existsLocked(rid)
	tx.mu.Unlock()
	if !ok {
		return nil, &NotFoundError{Rid: rid}
	}
	return tx.viewFor(rid), nil
}

// GetMany returns a view for every rid currently visible through the
// overlay-over-base merge; missing rids are omitted.
func (tx *Tx) GetMany(rids []Rid) (map[Rid]*View, error) {
	if err := tx.checkOpen(); err != nil {
		return nil, err
	}
	out := make(map[Rid]*View, len(rids))
	tx.mu.Lock()
	for _, rid := range rids {
		if tx.existsLocked(rid) {
			out[rid] = tx.viewFor(rid)
		}
	}
	tx.mu.Unlock()
	return out, nil
}

// Update patches rid's merged record with the given keys and re-buffers it.
func (tx *Tx) Update(rid Rid, patch map[string]Value) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	rec, ok := tx.mergedLocked(rid)
	if !ok {
		return &NotFoundError{Rid: rid}
	}
	for k, v := range patch {
		rec.Set(k, v)
	}
	tx.storeOverlayLocked(rid, rec)
	return nil
}

// DeleteAttrs drops the given keys from rid's merged record.
func (tx *Tx) DeleteAttrs(rid Rid, keys []string) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()

	rec, ok := tx.mergedLocked(rid)
	if !ok {
		return &NotFoundError{Rid: rid}
	}
	for _, k := range keys {
		rec.Delete(k)
	}
	tx.storeOverlayLocked(rid, rec)
	return nil
}

// Delete tombstones rid in the overlay.
func (tx *Tx) Delete(rid Rid) error {
	if err := tx.checkOpen(); err != nil {
		return err
	}
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if !tx.existsLocked(rid) {
		return &NotFoundError{Rid: rid}
	}
	tx.overlay[rid] = &overlayEntry{tombstone: true}
	return nil
}

// deleteRid/updateRid are the entry points Query.Delete/Query.Update use
// when bound to a transaction (mutations land in the overlay, not the base
// store, per §4.6).
func (tx *Tx) deleteRid(rid Rid) error                         { return tx.Delete(rid) }
func (tx *Tx) updateRid(rid Rid, patch map[string]Value) error { return tx.Update(rid, patch) }

// mergedLocked returns a clone of rid's current overlay-over-base state.
// Caller holds tx.mu.
func (tx *Tx) mergedLocked(rid Rid) (*Record, bool) {
	if entry, ok := tx.overlay[rid]; ok {
		if entry.tombstone {
			return nil, false
		}
		return entry.rec.Clone(), true
	}
	rec, ok := tx.store.recordSnapshot(rid)
	if !ok {
		return nil, false
	}
	return rec, true
}

func (tx *Tx) storeOverlayLocked(rid Rid, rec *Record) {
	created := false
	if prior, ok := tx.overlay[rid]; ok {
		created = prior.created
	} else if _, existedBefore := tx.store.recordSnapshot(rid); !existedBefore {
		created = true
	}
	tx.overlay[rid] = &overlayEntry{rec: rec, created: created}
}

// mergedRecordLocked is the Query-facing counterpart of mergedLocked, for
// callers that are themselves already inside a held tx.store.mu critical
// section (Query.matchingRidsLocked): it locks only tx.mu (a distinct mutex
// from tx.store.mu, so no recursive read-lock) and resolves the base-store
// side of the merge through store.recordLocked rather than the self-locking
// recordSnapshot, so it never tries to re-acquire tx.store.mu.
func (tx *Tx) mergedRecordLocked(rid Rid) (*Record, bool) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	if entry, ok := tx.overlay[rid]; ok {
		if entry.tombstone {
			return nil, false
		}
		return entry.rec.Clone(), true
	}
	rec, ok := tx.store.recordLocked(rid)
	if !ok {
		return nil, false
	}
	return rec, true
}

// mergeCandidates folds the overlay into a candidate rid-set in place: every
// non-tombstoned overlay rid is added (it may be newly created, or updated
// in a way the base index scan couldn't have found), and every tombstoned
// rid is removed, per §4.6 steps 1-2.
func (tx *Tx) mergeCandidates(set ridSet) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	for rid, entry := range tx.overlay {
		if entry.tombstone {
			set.remove(rid)
		} else {
			set.add(rid)
		}
	}
}

func (tx *Tx) viewFor(rid Rid) *View {
	tx.identMu.Lock()
	defer tx.identMu.Unlock()
	if v, ok := tx.identity[rid]; ok {
		return v
	}
	v := newView(rid, tx)
	tx.identity[rid] = v
	return v
}

// ---- recordOwner, so Views fetched via Tx.Get route writes into the overlay ----

func (tx *Tx) viewGet(rid Rid, key string) (Value, bool, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	rec, ok := tx.mergedLocked(rid)
	if !ok {
		return Value{}, false, &NotFoundError{Rid: rid}
	}
	v, ok := rec.Get(key)
	return v, ok, nil
}

func (tx *Tx) viewSet(rid Rid, key string, val Value) error {
	return tx.Update(rid, map[string]Value{key: val})
}

func (tx *Tx) viewSetMany(rid Rid, vals map[string]Value) error {
	return tx.Update(rid, vals)
}

func (tx *Tx) viewSetDefault(rid Rid, key string, def Value) (Value, error) {
	tx.mu.Lock()
	rec, ok := tx.mergedLocked(rid)
	if !ok {
		tx.mu.Unlock()
		return Value{}, &NotFoundError{Rid: rid}
	}
	if v, ok := rec.Get(key); ok {
		tx.mu.Unlock()
		return v, nil
	}
	rec.Set(key, def)
	tx.storeOverlayLocked(rid, rec)
	tx.mu.Unlock()
	return def, nil
}

func (tx *Tx) viewDeleteAttr(rid Rid, key string) error {
	return tx.DeleteAttrs(rid, []string{key})
}

func (tx *Tx) viewRemove(rid Rid) error {
	return tx.Delete(rid)
}

func (tx *Tx) viewKeys(rid Rid) ([]string, error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()
	rec, ok := tx.mergedLocked(rid)
	if !ok {
		return nil, &NotFoundError{Rid: rid}
	}
	return rec.Keys(), nil
}

// ---- lifecycle ----

// Commit acquires the store's write lock and replays every overlay entry
// onto the record manager, then clears the overlay. All changes become
// visible together (§5's atomicity guarantee).
func (tx *Tx) Commit() error {
	tx.mu.Lock()
	if tx.closed {
		tx.mu.Unlock()
		return &TransactionClosedError{}
	}
	overlay := tx.overlay
	tx.overlay = nil
	tx.closed = true
	tx.mu.Unlock()

	tx.store.mu.Lock()
	for rid, entry := range overlay {
		if entry.tombstone {
			tx.store.deleteLocked(rid) // ignore NotFound: already gone is fine
			continue
		}
		if _, exists := tx.store.records[rid]; exists {
			tx.store.replaceLocked(rid, entry.rec.Clone())
		} else {
			tx.store.createLocked(entry.rec.Clone())
		}
	}
	tx.store.mu.Unlock()

	tx.store.forgetTxn(tx)
	return nil
}

// Rollback discards the overlay. No base state was ever touched.
func (tx *Tx) Rollback() error {
	tx.mu.Lock()
	if tx.closed {
		tx.mu.Unlock()
		return &TransactionClosedError{}
	}
	tx.overlay = nil
	tx.closed = true
	tx.mu.Unlock()
	tx.store.forgetTxn(tx)
	return nil
}
