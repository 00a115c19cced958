package recdb

// Symbol is the Go stand-in for the Python surface's operator-overloaded
// "symbolic attribute" builder (§9, design note 1): Go has no operator
// overloading, so attribute access becomes an explicit Attr call and
// comparisons become methods on the resulting Path rather than `==`/`<`.
//
// A Symbol carries no state; it exists purely so callers have something to
// hang Attr calls off of, mirroring store.Symbol()/store.Row().
type Symbol struct{}

// NewSymbol returns a fresh, stateless symbol.
func NewSymbol() *Symbol { return &Symbol{} }

// Attr starts an attribute path (Path.Attr extends one).
func (*Symbol) Attr(name string) *Path { return &Path{segs: []string{name}} }

// Path is a chain of attribute names rooted at the record (e.g. "dog", "age"
// for a nested `dog.age` lookup). Comparisons on a Path produce Predicate
// leaves; Asc/Desc produce OrderTerms.
type Path struct{ segs []string }

// NewPath builds a path directly from segments, e.g. for "owner.dog.age".
func NewPath(segs ...string) *Path { return &Path{segs: append([]string(nil), segs...)} }

// Attr extends the path by one more nested attribute.
func (p *Path) Attr(name string) *Path {
	return &Path{segs: append(append([]string(nil), p.segs...), name)}
}

func (p *Path) Segments() []string { return append([]string(nil), p.segs...) }

func (p *Path) Eq(v Value) Predicate { return Eq(p.segs, v) }
func (p *Path) Ne(v Value) Predicate { return Ne(p.segs, v) }
func (p *Path) Lt(v Value) Predicate { return Lt(p.segs, v) }
func (p *Path) Le(v Value) Predicate { return Le(p.segs, v) }
func (p *Path) Gt(v Value) Predicate { return Gt(p.segs, v) }
func (p *Path) Ge(v Value) Predicate { return Ge(p.segs, v) }

// OneOf and In are synonyms (the Python surface offers both `.one_of` and
// `.in_`; Go can't use `in` as an identifier, so both map to the same leaf).
func (p *Path) OneOf(vs ...Value) Predicate { return OneOf(p.segs, vs) }
func (p *Path) In(vs ...Value) Predicate    { return OneOf(p.segs, vs) }

// Asc/Desc produce an OrderTerm for use with Query.OrderBy.
func (p *Path) Asc() OrderTerm  { return OrderTerm{path: p.segs, desc: false} }
func (p *Path) Desc() OrderTerm { return OrderTerm{path: p.segs, desc: true} }

// OrderTerm is one (attr_path, direction) pair of an ordering spec (§3).
type OrderTerm struct {
	path []string
	desc bool
}
