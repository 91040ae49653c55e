// Package concolic implements concolic execution: each run follows one
// concrete path while recording the symbolic conditions that selected it,
// and a satisfiability solver searches for inputs that select a path not
// yet seen.
//
// Values are pairs of a concrete scalar and a symbolic term of the same
// sort, propagated in lock-step. Arrays live on the dispatcher's heap
// with concrete cells; their lengths additionally carry a symbolic term,
// which is how a symbolic parameter-array length enters path conditions.
package concolic

import (
	"github.com/dr8co/jive/object"
	"github.com/dr8co/jive/solver"
)

// CONCOLIC_OBJ is the value kind of a concolic pair.
//
//nolint:revive
const CONCOLIC_OBJ object.Type = "CONCOLIC"

// Pair is a concolic value: a concrete scalar plus its symbolic shadow.
// Exactly one of Sym (integer sort) and SymBool (boolean sort) is set,
// matching the sort of Concrete.
type Pair struct {
	Concrete object.Value
	Sym      *solver.Term
	SymBool  *solver.Pred
}

// Type returns the value kind.
func (p *Pair) Type() object.Type { return CONCOLIC_OBJ }

// Inspect renders the pair as "concrete (symbolic)".
func (p *Pair) Inspect() string {
	if p.SymBool != nil {
		return p.Concrete.Inspect() + " (" + p.SymBool.String() + ")"
	}
	return p.Concrete.Inspect() + " (" + p.Sym.String() + ")"
}

// intPair builds an integer pair from a concrete value and its term.
func intPair(n int32, t *solver.Term) *Pair {
	return &Pair{Concrete: &object.Int{Value: n}, Sym: t}
}

// constPair builds a pair whose symbolic side is the constant itself.
func constPair(n int32) *Pair {
	return intPair(n, solver.IntVal(n))
}

// boolPair builds a boolean pair.
func boolPair(b bool, p *solver.Pred) *Pair {
	return &Pair{Concrete: &object.Bool{Value: b}, SymBool: p}
}

// intOf returns the concrete integral content of a pair.
func (p *Pair) intOf() (int32, bool) {
	return object.AsInt(p.Concrete)
}

// term returns the integer-sort symbolic side, widening a boolean pair to
// its 0/1 integer form so it can take part in comparisons against zero.
func (p *Pair) term() *solver.Term {
	if p.Sym != nil {
		return p.Sym
	}
	if p.Concrete != nil {
		if n, ok := object.AsInt(p.Concrete); ok {
			return solver.IntVal(n)
		}
	}
	return solver.IntVal(0)
}
