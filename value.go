package recdb

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Kind identifies the shape of a Value. The zero Kind is Null.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindString
	KindSequence
	KindSet
	KindMap
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindSet:
		return "set"
	case KindMap:
		return "map"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a heterogeneous, totally ordered unit of data: one of null,
// bool, int, float, string, sequence, set or nested map. Values are
// immutable once constructed; compound values (Seq, SetOf, MapOf) copy or
// canonicalize their inputs.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
	seq  []Value
	m    map[string]Value
}

func Null() Value { return Value{kind: KindNull} }

func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

func Int(i int64) Value { return Value{kind: KindInt, i: i} }

func Float(f float64) Value {
	if math.IsNaN(f) {
		f = math.NaN() // normalize every NaN bit pattern to Go's canonical one
	}
	return Value{kind: KindFloat, f: f}
}

func String(s string) Value { return Value{kind: KindString, s: s} }

// Seq builds an ordered sequence value.
func Seq(vs ...Value) Value {
	cp := append([]Value(nil), vs...)
	return Value{kind: KindSequence, seq: cp}
}

// SetOf builds a set value: duplicates (by Equal) are collapsed and the
// elements are stored pre-sorted so set comparison can reuse sequence
// comparison (R3: "sets compared as sorted sequences of their elements").
func SetOf(vs ...Value) Value {
	cp := append([]Value(nil), vs...)
	sort.Slice(cp, func(i, j int) bool { return Compare(cp[i], cp[j]) < 0 })
	out := cp[:0]
	for i, v := range cp {
		if i == 0 || !Equal(out[len(out)-1], v) {
			out = append(out, v)
		}
	}
	return Value{kind: KindSet, seq: out}
}

// MapOf builds a nested map value from a shallow copy of m.
func MapOf(m map[string]Value) Value {
	cp := make(map[string]Value, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return Value{kind: KindMap, m: cp}
}

func (v Value) Kind() Kind      { return v.kind }
func (v Value) IsNull() bool    { return v.kind == KindNull }
func (v Value) AsBool() bool    { return v.b }
func (v Value) AsInt() int64    { return v.i }
func (v Value) AsFloat() float64 {
	if v.kind == KindInt {
		return float64(v.i)
	}
	return v.f
}
func (v Value) AsString() string    { return v.s }
func (v Value) Elements() []Value   { return v.seq }
func (v Value) Fields() map[string]Value { return v.m }

// Field returns the value of a key in a map Value, or (Null, false) if v is
// not a map or lacks the key.
func (v Value) Field(key string) (Value, bool) {
	if v.kind != KindMap {
		return Value{}, false
	}
	fv, ok := v.m[key]
	return fv, ok
}

func sortedKeys(m map[string]Value) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func rank(k Kind) int {
	switch k {
	case KindNull:
		return 0
	case KindBool:
		return 1
	case KindInt, KindFloat:
		return 2
	case KindString:
		return 3
	case KindSequence:
		return 4
	case KindSet:
		return 5
	case KindMap:
		return 6
	default:
		panic(fmt.Errorf("recdb: unknown kind %v", k))
	}
}

// Compare implements the total order of R3: nulls < booleans < numbers <
// strings < sequences < sets < mappings, with kind-appropriate ordering
// within each group. It never panics on mixed-kind input.
func Compare(a, b Value) int {
	ra, rb := rank(a.kind), rank(b.kind)
	if ra != rb {
		return cmpInt(ra, rb)
	}
	switch a.kind {
	case KindNull:
		return 0
	case KindBool:
		return cmpBool(a.b, b.b)
	case KindInt, KindFloat:
		return compareNumbers(a, b)
	case KindString:
		return strings.Compare(a.s, b.s)
	case KindSequence, KindSet:
		return compareSeqs(a.seq, b.seq)
	case KindMap:
		return compareMaps(a.m, b.m)
	default:
		panic(fmt.Errorf("recdb: unknown kind %v", a.kind))
	}
}

// Equal reports structural equality under the same normalization as Compare.
func Equal(a, b Value) bool { return Compare(a, b) == 0 }

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a && b:
		return -1
	default:
		return 1
	}
}

func numberAsFloat(v Value) (f float64, isNaN bool) {
	if v.kind == KindInt {
		return float64(v.i), false
	}
	return v.f, math.IsNaN(v.f)
}

func compareNumbers(a, b Value) int {
	if a.kind == KindInt && b.kind == KindInt {
		switch {
		case a.i < b.i:
			return -1
		case a.i > b.i:
			return 1
		default:
			return 0
		}
	}
	fa, aNaN := numberAsFloat(a)
	fb, bNaN := numberAsFloat(b)
	switch {
	case aNaN && bNaN:
		return 0
	case aNaN:
		return 1 // NaN sorts above every other number
	case bNaN:
		return -1
	case fa < fb:
		return -1
	case fa > fb:
		return 1
	default:
		return 0
	}
}

func compareSeqs(a, b []Value) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if c := Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return cmpInt(len(a), len(b))
}

func compareMaps(a, b map[string]Value) int {
	ak, bk := sortedKeys(a), sortedKeys(b)
	n := len(ak)
	if len(bk) < n {
		n = len(bk)
	}
	for i := 0; i < n; i++ {
		if c := strings.Compare(ak[i], bk[i]); c != 0 {
			return c
		}
		if c := Compare(a[ak[i]], b[bk[i]]); c != 0 {
			return c
		}
	}
	return cmpInt(len(ak), len(bk))
}

const (
	tagNull = iota
	tagBool
	tagNumber
	tagString
	tagSeq
	tagSet
	tagMap
)

// encodeCanonical appends a self-delimiting, order-agnostic encoding of v to
// buf. It exists solely to feed HashValue; Compare never consults it, so it
// need not be order-preserving.
func encodeCanonical(buf []byte, v Value) []byte {
	switch v.kind {
	case KindNull:
		return appendByte(buf, tagNull)
	case KindBool:
		buf = appendByte(buf, tagBool)
		if v.b {
			return appendByte(buf, 1)
		}
		return appendByte(buf, 0)
	case KindInt, KindFloat:
		// Every number is encoded as its float64 bit pattern, the same
		// conversion compareNumbers uses, so numbers that compare equal
		// (Int(1) and Float(1.0), -0.0 and 0.0) encode identically.
		buf = appendByte(buf, tagNumber)
		f, isNaN := numberAsFloat(v)
		if isNaN {
			f = math.NaN()
		} else if f == 0 {
			f = 0
		}
		return appendFixedUint64(buf, math.Float64bits(f))
	case KindString:
		buf = appendByte(buf, tagString)
		return appendVarbytes(buf, []byte(v.s))
	case KindSequence, KindSet:
		tag := byte(tagSeq)
		if v.kind == KindSet {
			tag = tagSet
		}
		buf = appendByte(buf, tag)
		buf = appendUvarint(buf, uint64(len(v.seq)))
		for _, el := range v.seq {
			buf = encodeCanonical(buf, el)
		}
		return buf
	case KindMap:
		buf = appendByte(buf, tagMap)
		keys := sortedKeys(v.m)
		buf = appendUvarint(buf, uint64(len(keys)))
		for _, k := range keys {
			buf = appendVarbytes(buf, []byte(k))
			buf = encodeCanonical(buf, v.m[k])
		}
		return buf
	default:
		panic(fmt.Errorf("recdb: unknown kind %v", v.kind))
	}
}

// HashValue hashes v via a canonical traversal (sorted keys for maps, sorted
// elements for sets), so structurally equal values always hash equally.
func HashValue(v Value) uint64 {
	buf := encodeCanonical(make([]byte, 0, 32), v)
	return xxhash.Sum64(buf)
}

// getPath resolves a dotted attribute path against a record-shaped Value
// (resolvePath handles the top-level Record), returning (Null, false) if any segment is
// missing or not a map.
func getPath(root Value, path []string) (Value, bool) {
	cur := root
	for _, seg := range path {
		fv, ok := cur.Field(seg)
		if !ok {
			return Value{}, false
		}
		cur = fv
	}
	return cur, true
}
