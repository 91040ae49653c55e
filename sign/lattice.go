// Package sign implements the sign-lattice abstract interpretation.
//
// Each value is abstracted to a three-bit element recording which signs it
// may have. Arithmetic is the pointwise lift of the textbook sign
// abstraction, computed by enumerating the constituent sign cases and
// joining the results. Comparisons split the path: every admissible sign
// combination yields at most two successor states, one per branch
// outcome, with the operands refined to the signs of that case.
//
// The domain is deliberately coarse. It over-approximates reachable
// signs, so verdicts may include exceptions no concrete input reaches;
// the fixpoint over the dispatcher's seen-set guarantees termination.
package sign

import (
	"strconv"
	"strings"

	"github.com/dr8co/jive/object"
)

// SIGN_OBJ is the value kind of a sign element.
//
//nolint:revive
const SIGN_OBJ object.Type = "SIGN"

// Sgn is a sign-lattice element: one bit per sign the value may take.
// The zero Sgn is bottom (unreachable); all three bits set is top.
//
// Origin tracks the local slot the value was loaded from, if any, so a
// branch can refine the slot along each split path. It is provenance,
// not part of the lattice.
type Sgn struct {
	Neg, Zero, Pos bool
	Origin         int
}

// Lattice bounds.
var (
	Bot = Sgn{Origin: -1}
	Top = Sgn{Neg: true, Zero: true, Pos: true, Origin: -1}
)

// Of abstracts a concrete integer.
func Of(n int32) Sgn {
	switch {
	case n < 0:
		return Sgn{Neg: true, Origin: -1}
	case n > 0:
		return Sgn{Pos: true, Origin: -1}
	default:
		return Sgn{Zero: true, Origin: -1}
	}
}

// Join returns the least upper bound of two elements.
func (s Sgn) Join(o Sgn) Sgn {
	return Sgn{Neg: s.Neg || o.Neg, Zero: s.Zero || o.Zero, Pos: s.Pos || o.Pos, Origin: -1}
}

// Leq reports whether s is below o in the lattice order.
func (s Sgn) Leq(o Sgn) bool {
	return (!s.Neg || o.Neg) && (!s.Zero || o.Zero) && (!s.Pos || o.Pos)
}

// IsBot reports whether no sign is possible.
func (s Sgn) IsBot() bool { return !s.Neg && !s.Zero && !s.Pos }

// Type returns the value kind.
func (s Sgn) Type() object.Type { return SIGN_OBJ }

// Inspect renders the element, e.g. "{-0+}". A tracked origin slot is
// appended so that states differing only in provenance stay distinct in
// the dispatcher's seen-set.
func (s Sgn) Inspect() string {
	var b strings.Builder
	b.WriteByte('{')
	if s.Neg {
		b.WriteByte('-')
	}
	if s.Zero {
		b.WriteByte('0')
	}
	if s.Pos {
		b.WriteByte('+')
	}
	b.WriteByte('}')
	if s.Origin >= 0 {
		b.WriteByte('#')
		b.WriteString(strconv.Itoa(s.Origin))
	}
	return b.String()
}

// signs returns the single-sign cases present in the element, encoded as
// -1, 0, 1.
func (s Sgn) signs() []int {
	out := make([]int, 0, 3)
	if s.Neg {
		out = append(out, -1)
	}
	if s.Zero {
		out = append(out, 0)
	}
	if s.Pos {
		out = append(out, 1)
	}
	return out
}

// single abstracts one sign case back into an element.
func single(sign int) Sgn {
	switch {
	case sign < 0:
		return Sgn{Neg: true, Origin: -1}
	case sign > 0:
		return Sgn{Pos: true, Origin: -1}
	default:
		return Sgn{Zero: true, Origin: -1}
	}
}

// Negate flips the sign bits.
func (s Sgn) Negate() Sgn {
	return Sgn{Neg: s.Pos, Zero: s.Zero, Pos: s.Neg, Origin: -1}
}

// Add enumerates the nine sign cases of a + b and joins the results.
func Add(a, b Sgn) Sgn {
	res := Bot
	for _, sa := range a.signs() {
		for _, sb := range b.signs() {
			res = res.Join(addCase(sa, sb))
		}
	}
	return res
}

func addCase(sa, sb int) Sgn {
	switch {
	case sa == 0:
		return single(sb)
	case sb == 0:
		return single(sa)
	case sa == sb:
		return single(sa)
	default:
		// Opposite signs: any outcome.
		return Top
	}
}

// Sub is Add against the negated right operand.
func Sub(a, b Sgn) Sgn { return Add(a, b.Negate()) }

// Mul enumerates the sign cases of a * b and joins the results.
func Mul(a, b Sgn) Sgn {
	res := Bot
	for _, sa := range a.signs() {
		for _, sb := range b.signs() {
			if sa == 0 || sb == 0 {
				res = res.Join(single(0))
			} else {
				res = res.Join(single(sa * sb))
			}
		}
	}
	return res
}

// Div joins the sign cases of a / b over the non-zero divisor cases and
// reports whether the divisor may be zero. Division truncates toward
// zero, so two positives may still produce zero (1/2 = 0).
func Div(a, b Sgn) (res Sgn, mayDivZero bool) {
	res = Bot
	mayDivZero = b.Zero
	for _, sa := range a.signs() {
		for _, sb := range b.signs() {
			if sb == 0 {
				continue
			}
			switch {
			case sa == 0:
				res = res.Join(single(0))
			case sa == sb:
				res = res.Join(Sgn{Zero: true, Pos: true, Origin: -1})
			default:
				res = res.Join(Sgn{Neg: true, Zero: true, Origin: -1})
			}
		}
	}
	return res, mayDivZero
}

// rel returns which comparison outcomes are possible between two single
// sign cases: whether a < b, a == b, and a > b can each hold.
func rel(sa, sb int) (lt, eq, gt bool) {
	switch {
	case sa == sb && sa != 0:
		// Same open-ended range: any outcome.
		return true, true, true
	case sa == 0 && sb == 0:
		return false, true, false
	case sa < sb:
		return true, false, false
	default:
		return false, false, true
	}
}
