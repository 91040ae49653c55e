package solver

import (
	"fmt"

	"github.com/crillab/gophersat/bf"
)

// width is the bit width of every integer term.
const width = 32

// bits is a little-endian vector of boolean formulas representing one
// integer term.
type bits []bf.Formula

func xor(a, b bf.Formula) bf.Formula {
	return bf.Or(bf.And(a, bf.Not(b)), bf.And(bf.Not(a), b))
}

func iff(a, b bf.Formula) bf.Formula {
	return bf.Or(bf.And(a, b), bf.And(bf.Not(a), bf.Not(b)))
}

func bitVar(name string, i int) bf.Formula {
	return bf.Var(fmt.Sprintf("%s#%d", name, i))
}

func constBits(n int32) bits {
	v := make(bits, width)
	for i := range width {
		if n&(1<<i) != 0 {
			v[i] = bf.True
		} else {
			v[i] = bf.False
		}
	}
	return v
}

func varBits(name string) bits {
	v := make(bits, width)
	for i := range width {
		v[i] = bitVar(name, i)
	}
	return v
}

// addBits is a ripple-carry adder with the given carry-in.
func addBits(a, b bits, carry bf.Formula) bits {
	sum := make(bits, width)
	for i := range width {
		axb := xor(a[i], b[i])
		sum[i] = xor(axb, carry)
		carry = bf.Or(bf.And(a[i], b[i]), bf.And(carry, axb))
	}
	return sum
}

// negBits is two's-complement negation.
func negBits(a bits) bits {
	inv := make(bits, width)
	for i := range width {
		inv[i] = bf.Not(a[i])
	}
	return addBits(inv, constBits(0), bf.True)
}

// mulBits is a shift-and-add multiplier; overflow wraps.
func mulBits(a, b bits) bits {
	acc := constBits(0)
	for i := range width {
		// Partial product: a << i, gated by bit i of b.
		partial := make(bits, width)
		for j := range width {
			if j < i {
				partial[j] = bf.False
			} else {
				partial[j] = bf.And(a[j-i], b[i])
			}
		}
		acc = addBits(acc, partial, bf.False)
	}
	return acc
}

// encodeTerm lowers a term to its bit vector.
func encodeTerm(t *Term) bits {
	switch t.Kind {
	case TConst:
		return constBits(t.Value)
	case TVar:
		return varBits(t.Name)
	case TAdd:
		return addBits(encodeTerm(t.A), encodeTerm(t.B), bf.False)
	case TSub:
		return addBits(encodeTerm(t.A), negBits(encodeTerm(t.B)), bf.False)
	case TMul:
		return mulBits(encodeTerm(t.A), encodeTerm(t.B))
	case TNeg:
		return negBits(encodeTerm(t.A))
	}
	panic("solver: unknown term kind")
}

// eqBits holds when the vectors are bit-for-bit equal.
func eqBits(a, b bits) bf.Formula {
	conj := make([]bf.Formula, width)
	for i := range width {
		conj[i] = iff(a[i], b[i])
	}
	return bf.And(conj...)
}

// ultBits holds when a < b as unsigned integers.
func ultBits(a, b bits) bf.Formula {
	lt := bf.False
	for i := range width {
		lt = bf.Or(bf.And(bf.Not(a[i]), b[i]), bf.And(iff(a[i], b[i]), lt))
	}
	return lt
}

// sltBits holds when a < b as signed integers: unsigned comparison with
// the sign bits flipped.
func sltBits(a, b bits) bf.Formula {
	fa := make(bits, width)
	fb := make(bits, width)
	copy(fa, a)
	copy(fb, b)
	fa[width-1] = bf.Not(a[width-1])
	fb[width-1] = bf.Not(b[width-1])
	return ultBits(fa, fb)
}

// encodePred lowers a predicate to a boolean formula.
func encodePred(p *Pred) bf.Formula {
	switch p.Kind {
	case PTrue:
		return bf.True
	case PFalse:
		return bf.False
	case PBoolVar:
		return bf.Var(p.Name)
	case PNot:
		return bf.Not(encodePred(p.Subs[0]))
	case PAnd:
		subs := make([]bf.Formula, len(p.Subs))
		for i, s := range p.Subs {
			subs[i] = encodePred(s)
		}
		return bf.And(subs...)
	case POr:
		subs := make([]bf.Formula, len(p.Subs))
		for i, s := range p.Subs {
			subs[i] = encodePred(s)
		}
		return bf.Or(subs...)
	case PCmp:
		a, b := encodeTerm(p.A), encodeTerm(p.B)
		switch p.Op {
		case Eq:
			return eqBits(a, b)
		case Ne:
			return bf.Not(eqBits(a, b))
		case Lt:
			return sltBits(a, b)
		case Le:
			return bf.Not(sltBits(b, a))
		case Gt:
			return sltBits(b, a)
		default:
			return bf.Not(sltBits(a, b))
		}
	}
	panic("solver: unknown predicate kind")
}

// Model is a satisfying assignment. Lookups complete missing variables
// with zero/false, the way a solver model completion would.
type Model struct {
	assignment map[string]bool
}

// Int reassembles the named integer variable from its bit assignment.
func (m Model) Int(name string) int32 {
	var n int32
	for i := range width {
		if m.assignment[fmt.Sprintf("%s#%d", name, i)] {
			n |= 1 << i
		}
	}
	return n
}

// Bool returns the named boolean variable.
func (m Model) Bool(name string) bool {
	return m.assignment[name]
}

// Solver accumulates asserted predicates and answers satisfiability of
// their conjunction. It is process-local to one analysis invocation.
type Solver struct {
	asserted []*Pred
}

// New creates an empty solver. With nothing asserted, Check is sat with
// the all-zero model.
func New() *Solver {
	return &Solver{}
}

// Assert conjoins a predicate onto the solver state.
func (s *Solver) Assert(p *Pred) {
	s.asserted = append(s.asserted, p)
}

// Check reports whether the asserted conjunction is satisfiable and, if
// so, returns a model.
func (s *Solver) Check() (Model, bool) {
	return Solve(And(s.asserted...))
}

// Solve answers satisfiability of a single predicate.
func Solve(p *Pred) (Model, bool) {
	if p.Kind == PTrue {
		return Model{assignment: map[string]bool{}}, true
	}
	assignment := bf.Solve(encodePred(p))
	if assignment == nil {
		return Model{}, false
	}
	return Model{assignment: assignment}, true
}
