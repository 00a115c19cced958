package recdb

import "fmt"

// Op is the comparison operator of a Compare predicate leaf.
type Op int

const (
	OpEq Op = iota
	OpNe
	OpLt
	OpLe
	OpGt
	OpGe
)

func (op Op) String() string {
	switch op {
	case OpEq:
		return "="
	case OpNe:
		return "!="
	case OpLt:
		return "<"
	case OpLe:
		return "<="
	case OpGt:
		return ">"
	case OpGe:
		return ">="
	default:
		return fmt.Sprintf("op(%d)", int(op))
	}
}

func (op Op) invert() Op {
	switch op {
	case OpEq:
		return OpNe
	case OpNe:
		return OpEq
	case OpLt:
		return OpGe
	case OpLe:
		return OpGt
	case OpGt:
		return OpLe
	case OpGe:
		return OpLt
	default:
		panic(fmt.Errorf("recdb: unknown op %v", op))
	}
}

// Predicate is the tagged-sum AST of §3: Compare, Member, And, Or, Not, plus
// the True/False leaves. The concrete node types are unexported; callers
// build predicates with the package-level constructors (Eq, Lt, OneOf, And,
// ...) or through a Symbol/Path (see symbol.go).
type Predicate interface {
	predicateNode()
}

type comparePred struct {
	path []string
	op   Op
	lit  Value
}

type memberPred struct {
	path []string
	set  []Value
	negate bool // true represents Not(Member): "attr not in set"
}

type andPred struct{ l, r Predicate }
type orPred struct{ l, r Predicate }
type notPred struct{ p Predicate }
type truePred struct{}
type falsePred struct{}

func (*comparePred) predicateNode() {}
func (*memberPred) predicateNode()  {}
func (*andPred) predicateNode()     {}
func (*orPred) predicateNode()      {}
func (*notPred) predicateNode()     {}
func (truePred) predicateNode()     {}
func (falsePred) predicateNode()    {}

// Compare_ builds a Compare(attr_path, op, literal) leaf. path segments name
// a chain of nested attributes; a single segment is the common case and is
// the only form the index planner can use directly (deeper paths always
// fall back to residual filtering, per §4.4).
func Compare_(path []string, op Op, lit Value) Predicate {
	return &comparePred{path: path, op: op, lit: lit}
}

func Eq(path []string, lit Value) Predicate { return &comparePred{path, OpEq, lit} }
func Ne(path []string, lit Value) Predicate { return &comparePred{path, OpNe, lit} }
func Lt(path []string, lit Value) Predicate { return &comparePred{path, OpLt, lit} }
func Le(path []string, lit Value) Predicate { return &comparePred{path, OpLe, lit} }
func Gt(path []string, lit Value) Predicate { return &comparePred{path, OpGt, lit} }
func Ge(path []string, lit Value) Predicate { return &comparePred{path, OpGe, lit} }

// OneOf builds a Member(attr_path, value_set) leaf.
func OneOf(path []string, vs []Value) Predicate {
	return &memberPred{path: path, set: append([]Value(nil), vs...)}
}

func And(preds ...Predicate) Predicate {
	switch len(preds) {
	case 0:
		return True_()
	case 1:
		return preds[0]
	default:
		out := preds[0]
		for _, p := range preds[1:] {
			out = &andPred{l: out, r: p}
		}
		return out
	}
}

func Or(preds ...Predicate) Predicate {
	switch len(preds) {
	case 0:
		return False_()
	case 1:
		return preds[0]
	default:
		out := preds[0]
		for _, p := range preds[1:] {
			out = &orPred{l: out, r: p}
		}
		return out
	}
}

func Not(p Predicate) Predicate { return &notPred{p: p} }

func True_() Predicate  { return truePred{} }
func False_() Predicate { return falsePred{} }

// validatePredicate walks the predicate tree and returns a BadPredicateError for any
// leaf with an empty attribute path.
func validatePredicate(p Predicate) error {
	switch n := p.(type) {
	case *comparePred:
		if len(n.path) == 0 {
			return badPredicatef(nil, "compare leaf has an empty attribute path")
		}
	case *memberPred:
		if len(n.path) == 0 {
			return badPredicatef(nil, "member leaf has an empty attribute path")
		}
	case *andPred:
		if err := validatePredicate(n.l); err != nil {
			return err
		}
		return validatePredicate(n.r)
	case *orPred:
		if err := validatePredicate(n.l); err != nil {
			return err
		}
		return validatePredicate(n.r)
	case *notPred:
		return validatePredicate(n.p)
	}
	return nil
}
