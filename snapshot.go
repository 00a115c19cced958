package recdb

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// wireValue is the msgpack-friendly shadow of Value: the teacher marshals
// its row structs with vmihailenco/msgpack/v5 (encoding.go); Snapshot reuses
// the same library for the same "serialize the row" role, applied to our
// generic map[string]Value record payloads instead of typed structs.
type wireValue struct {
	Kind int8                 `msgpack:"k"`
	B    bool                 `msgpack:"b,omitempty"`
	I    int64                `msgpack:"i,omitempty"`
	F    float64              `msgpack:"f,omitempty"`
	S    string               `msgpack:"s,omitempty"`
	Seq  []wireValue          `msgpack:"seq,omitempty"`
	M    map[string]wireValue `msgpack:"m,omitempty"`
}

func toWire(v Value) wireValue {
	w := wireValue{Kind: int8(v.Kind())}
	switch v.Kind() {
	case KindBool:
		w.B = v.AsBool()
	case KindInt:
		w.I = v.AsInt()
	case KindFloat:
		w.F = v.AsFloat()
	case KindString:
		w.S = v.AsString()
	case KindSequence, KindSet:
		w.Seq = make([]wireValue, len(v.Elements()))
		for i, el := range v.Elements() {
			w.Seq[i] = toWire(el)
		}
	case KindMap:
		w.M = make(map[string]wireValue, len(v.Fields()))
		for k, fv := range v.Fields() {
			w.M[k] = toWire(fv)
		}
	}
	return w
}

func fromWire(w wireValue) Value {
	switch Kind(w.Kind) {
	case KindNull:
		return Null()
	case KindBool:
		return Bool(w.B)
	case KindInt:
		return Int(w.I)
	case KindFloat:
		return Float(w.F)
	case KindString:
		return String(w.S)
	case KindSequence:
		els := make([]Value, len(w.Seq))
		for i, el := range w.Seq {
			els[i] = fromWire(el)
		}
		return Seq(els...)
	case KindSet:
		els := make([]Value, len(w.Seq))
		for i, el := range w.Seq {
			els[i] = fromWire(el)
		}
		return SetOf(els...)
	case KindMap:
		m := make(map[string]Value, len(w.M))
		for k, fv := range w.M {
			m[k] = fromWire(fv)
		}
		return MapOf(m)
	default:
		return Null()
	}
}

// Snapshot marshals every live record into a point-in-time msgpack blob,
// keyed by the rid's string form. It exists for test/debug equality
// assertions ("did this transaction actually change what I expect"), not as
// a persistence mechanism: LoadSnapshot re-creates records with fresh rids
// derived from the snapshotted "id" attribute, it does not restore index
// internals or store options.
func (s *Store) Snapshot() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	dump := make(map[string]map[string]wireValue, len(s.records))
	for rid, rec := range s.records {
		attrs := make(map[string]wireValue, rec.Len())
		for _, k := range rec.Keys() {
			v, _ := rec.Get(k)
			attrs[k] = toWire(v)
		}
		dump[rid.String()] = attrs
	}
	return msgpack.Marshal(dump)
}

// LoadSnapshot creates one record per entry in a blob produced by Snapshot,
// into an otherwise-empty destination store. It returns an error if any
// entry collides with an existing rid.
func (s *Store) LoadSnapshot(blob []byte) error {
	var dump map[string]map[string]wireValue
	if err := msgpack.Unmarshal(blob, &dump); err != nil {
		return fmt.Errorf("recdb: decoding snapshot: %w", err)
	}
	for _, attrs := range dump {
		rec := NewRecord()
		for k, wv := range attrs {
			rec.Set(k, fromWire(wv))
		}
		if _, err := s.Create(rec); err != nil {
			return err
		}
	}
	return nil
}
