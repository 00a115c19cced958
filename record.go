package recdb

import (
	"fmt"
	"strconv"
	"sync"

	"github.com/google/uuid"
)

// RidKind distinguishes the representations a Rid can take: an integer
// (caller-supplied, or generated monotonically by default) or a string
// (caller-supplied, or a generated UUID when Options.RidKind is
// RidKindString).
type RidKind uint8

const (
	RidKindInt RidKind = iota
	RidKindString
)

// Rid is a stable, opaque record identifier. It is comparable, so it can be
// used directly as a Go map key in the identity map and in index rid-sets.
type Rid struct {
	Kind RidKind
	Int  int64
	Str  string
}

func (r Rid) String() string {
	if r.Kind == RidKindString {
		return r.Str
	}
	return strconv.FormatInt(r.Int, 10)
}

// Value converts the rid back to the Value domain, e.g. for projecting the
// "id" attribute back out of a record.
func (r Rid) Value() Value {
	if r.Kind == RidKindString {
		return String(r.Str)
	}
	return Int(r.Int)
}

// Compare orders rids the same way Value orders their underlying
// representation; used to break ties in ordered query results.
func (r Rid) Compare(o Rid) int {
	return Compare(r.Value(), o.Value())
}

func ridFromValue(v Value) (Rid, error) {
	switch v.Kind() {
	case KindInt:
		return Rid{Kind: RidKindInt, Int: v.AsInt()}, nil
	case KindString:
		return Rid{Kind: RidKindString, Str: v.AsString()}, nil
	default:
		return Rid{}, fmt.Errorf("recdb: id attribute must be an int or a string, got %v", v.Kind())
	}
}

// ridGenerator hands out fresh rids when a caller doesn't supply "id". It's
// shared between direct Store writes (under the store's write lock) and
// Tx.Create (which runs without that lock), so it carries its own mutex.
type ridGenerator struct {
	mu   sync.Mutex
	kind RidKind
	next int64
}

func newRidGenerator(kind RidKind) *ridGenerator {
	return &ridGenerator{kind: kind, next: 1}
}

func (g *ridGenerator) generate() Rid {
	if g.kind == RidKindString {
		return Rid{Kind: RidKindString, Str: uuid.New().String()}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	id := g.next
	g.next++
	return Rid{Kind: RidKindInt, Int: id}
}

// Record is an ordered mapping from attribute name to Value. Order reflects
// first-write order and is preserved across Clone and Keys, but never
// affects Compare/Equal (fields are unordered for comparison purposes).
type Record struct {
	order []string
	attrs map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{attrs: make(map[string]Value)}
}

// RecordOf builds a record from a plain Go map, in an unspecified field
// order (map iteration order).
func RecordOf(fields map[string]Value) *Record {
	rec := NewRecord()
	for k, v := range fields {
		rec.Set(k, v)
	}
	return rec
}

func (r *Record) Get(key string) (Value, bool) {
	v, ok := r.attrs[key]
	return v, ok
}

func (r *Record) Set(key string, v Value) {
	if _, exists := r.attrs[key]; !exists {
		r.order = append(r.order, key)
	}
	r.attrs[key] = v
}

func (r *Record) Delete(key string) {
	if _, exists := r.attrs[key]; !exists {
		return
	}
	delete(r.attrs, key)
	for i, k := range r.order {
		if k == key {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// Keys returns attribute names in insertion order.
func (r *Record) Keys() []string {
	return append([]string(nil), r.order...)
}

func (r *Record) Len() int { return len(r.order) }

func (r *Record) Clone() *Record {
	cp := &Record{
		order: append([]string(nil), r.order...),
		attrs: make(map[string]Value, len(r.attrs)),
	}
	for k, v := range r.attrs {
		cp.attrs[k] = v
	}
	return cp
}

// ToValue produces a map Value snapshot of the record, for use with
// predicate residual evaluation and deep-path projection.
func (r *Record) ToValue() Value {
	return MapOf(r.attrs)
}

// ToMap returns a shallow copy of the record's attributes as a plain map.
func (r *Record) ToMap() map[string]Value {
	cp := make(map[string]Value, len(r.attrs))
	for k, v := range r.attrs {
		cp[k] = v
	}
	return cp
}
