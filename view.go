package recdb

// recordOwner is implemented by whatever a View is bound to: the Store
// itself for views returned outside a transaction, or a Tx for views
// returned from within one. Every write a View makes is routed back through
// this interface, the same "every mutation funnels into the owner" shape as
// the teacher's MutableMap/MutableRecord split in kvo/mutable.go, just
// without the tree-of-objects machinery: a View only ever owns one rid.
type recordOwner interface {
	viewGet(rid Rid, key string) (Value, bool, error)
	viewSet(rid Rid, key string, val Value) error
	viewSetMany(rid Rid, vals map[string]Value) error
	viewSetDefault(rid Rid, key string, def Value) (Value, error)
	viewDeleteAttr(rid Rid, key string) error
	viewRemove(rid Rid) error
	viewKeys(rid Rid) ([]string, error)
}

// View is the live record handle of component G: map-like read/write access
// to one rid, with every mutation intercepted and funneled into the owning
// Store (or Tx). A View never holds record state itself; every call round-
// trips to the owner so that all handles to the same rid always observe the
// same state (invariant R1).
type View struct {
	rid   Rid
	owner recordOwner
}

func newView(rid Rid, owner recordOwner) *View {
	return &View{rid: rid, owner: owner}
}

// Rid returns the view's stable record identifier.
func (v *View) Rid() Rid { return v.rid }

// Get reads an attribute. It fails with KeyMissingError if the attribute is
// absent, and NotFoundError if the record itself is gone.
func (v *View) Get(key string) (Value, error) {
	val, ok, err := v.owner.viewGet(v.rid, key)
	if err != nil {
		return Value{}, err
	}
	if !ok {
		return Value{}, &KeyMissingError{Rid: v.rid, Key: key}
	}
	return val, nil
}

// Has reports whether the attribute is currently present, without erroring
// when it's absent (unlike Get).
func (v *View) Has(key string) (bool, error) {
	_, ok, err := v.owner.viewGet(v.rid, key)
	return ok, err
}

// Set writes a single attribute and reindexes it.
func (v *View) Set(key string, val Value) error {
	return v.owner.viewSet(v.rid, key, val)
}

// SetMany writes every entry of vals, then reindexes exactly those keys.
func (v *View) SetMany(vals map[string]Value) error {
	return v.owner.viewSetMany(v.rid, vals)
}

// SetDefault returns the current value of key if present; otherwise it
// writes def and returns it.
func (v *View) SetDefault(key string, def Value) (Value, error) {
	return v.owner.viewSetDefault(v.rid, key, def)
}

// Delete removes a single attribute from the record and its index.
func (v *View) Delete(key string) error {
	return v.owner.viewDeleteAttr(v.rid, key)
}

// Remove deletes the entire record. Subsequent calls on this View (or any
// other View for the same rid) fail with NotFoundError.
func (v *View) Remove() error {
	return v.owner.viewRemove(v.rid)
}

// Keys returns the record's attribute names in insertion order.
func (v *View) Keys() ([]string, error) {
	return v.owner.viewKeys(v.rid)
}
