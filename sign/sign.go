package sign

import (
	"fmt"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/code"
	"github.com/dr8co/jive/object"
	"github.com/dr8co/jive/vm"
)

// Semantics is the sign-domain value semantics. Every stack slot and
// local holds a [Sgn]; comparisons produce Split effects and the
// dispatcher's worklist drives the exploration to a fixpoint.
type Semantics struct{}

// Literal abstracts an embedded constant. Non-numeric literals (strings,
// null) have no meaningful sign and map to top.
func (Semantics) Literal(lit *classfile.Literal) (object.Value, error) {
	if n, ok := lit.Int(); ok {
		return Of(n), nil
	}
	if b, ok := lit.Bool(); ok {
		if b {
			return Of(1), nil
		}
		return Of(0), nil
	}
	return Top, nil
}

// Param synthesizes an unknown parameter: top, whatever the declared sort.
func (Semantics) Param(int, *classfile.Type) (object.Value, error) {
	return Top, nil
}

func asSgn(v object.Value) (Sgn, error) {
	s, ok := v.(Sgn)
	if !ok {
		return Bot, fmt.Errorf("%w: expected a sign element, got %s", vm.ErrMalformedBytecode, v.Type())
	}
	return s, nil
}

func pop2(f *vm.Frame) (a, b Sgn, err error) {
	vb, err := f.Pop()
	if err != nil {
		return
	}
	va, err := f.Pop()
	if err != nil {
		return
	}
	if b, err = asSgn(vb); err != nil {
		return
	}
	a, err = asSgn(va)
	return
}

func cloneVals(vs []object.Value) []object.Value {
	out := make([]object.Value, len(vs))
	copy(out, vs)
	return out
}

// branch builds one successor state from the frame, refining the compared
// operands' origin slots to the signs of the current case.
func branch(f *vm.Frame, pc int, refine ...Sgn) vm.Branch {
	b := vm.Branch{PC: pc, Locals: cloneVals(f.Locals), Stack: cloneVals(f.Stack)}
	for _, s := range refine {
		if s.Origin >= 0 && s.Origin < len(b.Locals) {
			b.Locals[s.Origin] = s
		}
	}
	return b
}

// condMay reports whether the condition can hold and whether it can fail
// for one pair of single-sign cases.
func condMay(c code.Cond, sa, sb int) (canTrue, canFalse bool) {
	lt, eq, gt := rel(sa, sb)
	for cmp := -1; cmp <= 1; cmp++ {
		possible := (cmp == -1 && lt) || (cmp == 0 && eq) || (cmp == 1 && gt)
		if !possible {
			continue
		}
		if condHolds(c, cmp) {
			canTrue = true
		} else {
			canFalse = true
		}
	}
	return canTrue, canFalse
}

func condHolds(c code.Cond, cmp int) bool {
	switch c {
	case code.Eq:
		return cmp == 0
	case code.Ne:
		return cmp != 0
	case code.Lt:
		return cmp < 0
	case code.Le:
		return cmp <= 0
	case code.Gt:
		return cmp > 0
	default:
		return cmp >= 0
	}
}

// Step interprets one instruction in the sign domain.
func (s Semantics) Step(m *vm.Machine, f *vm.Frame, in *code.Instruction) (vm.Effect, error) {
	switch in.Op {
	case code.OpPush:
		v, err := s.Literal(in.Value)
		if err != nil {
			return nil, err
		}
		f.Push(v)

	case code.OpLoad:
		v, err := f.Local(in.Index)
		if err != nil {
			return nil, err
		}
		sg, err := asSgn(v)
		if err != nil {
			return nil, err
		}
		sg.Origin = in.Index
		f.Push(sg)

	case code.OpStore:
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		sg, err := asSgn(v)
		if err != nil {
			return nil, err
		}
		sg.Origin = -1
		f.SetLocal(in.Index, sg)

	case code.OpDup:
		v, err := f.Peek()
		if err != nil {
			return nil, err
		}
		f.Push(v)

	case code.OpPop:
		if _, err := f.Pop(); err != nil {
			return nil, err
		}

	case code.OpIncr:
		v, err := f.Local(in.Index)
		if err != nil {
			return nil, err
		}
		sg, err := asSgn(v)
		if err != nil {
			return nil, err
		}
		f.Locals[in.Index] = incr(sg, in.Amount)

	case code.OpBinary:
		a, b, err := pop2(f)
		if err != nil {
			return nil, err
		}
		var res Sgn
		switch in.Binary {
		case code.Add:
			res = Add(a, b)
		case code.Sub:
			res = Sub(a, b)
		case code.Mul:
			res = Mul(a, b)
		case code.Div:
			var mayZero bool
			res, mayZero = Div(a, b)
			if mayZero {
				m.Record(vm.ArithmeticException)
			}
			if res.IsBot() {
				// The divisor is exactly zero; no path continues.
				return vm.Raise{Kind: vm.ArithmeticException}, nil
			}
		}
		f.Push(res)

	case code.OpNegate:
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		sg, err := asSgn(v)
		if err != nil {
			return nil, err
		}
		f.Push(sg.Negate())

	case code.OpIf, code.OpIfZero:
		var a, b Sgn
		var err error
		if in.Op == code.OpIf {
			a, b, err = pop2(f)
		} else {
			var va object.Value
			va, err = f.Pop()
			if err == nil {
				a, err = asSgn(va)
				b = Of(0)
			}
		}
		if err != nil {
			return nil, err
		}
		var branches []vm.Branch
		for _, sa := range a.signs() {
			for _, sb := range b.signs() {
				canTrue, canFalse := condMay(in.Cond, sa, sb)
				ra, rb := single(sa), single(sb)
				ra.Origin, rb.Origin = a.Origin, b.Origin
				if canTrue {
					branches = append(branches, branch(f, in.Target, ra, rb))
				}
				if canFalse {
					branches = append(branches, branch(f, f.PC+1, ra, rb))
				}
			}
		}
		return vm.Split{Branches: branches}, nil

	case code.OpGoto:
		return vm.Jump{Target: in.Target}, nil

	case code.OpReturn:
		if in.TypeName == "" {
			return vm.Return{}, nil
		}
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		return vm.Return{Value: v}, nil

	case code.OpNew:
		// Allocating an exception class is how bytecode signals a thrown
		// exception; the sign domain has no heap, so the path ends here.
		return vm.Raise{Kind: vm.KindOf(in.Class)}, nil

	case code.OpNewArray:
		if _, err := f.Pop(); err != nil {
			return nil, err
		}
		f.Push(Top)

	case code.OpArrayLength:
		if _, err := f.Pop(); err != nil {
			return nil, err
		}
		f.Push(Sgn{Zero: true, Pos: true, Origin: -1})

	case code.OpArrayLoad:
		_, idx, err := pop2(f)
		if err != nil {
			return nil, err
		}
		if idx.Neg {
			m.Record(vm.IndexOutOfBounds)
		}
		// Cells are not tracked; a loaded cell may hold anything.
		f.Push(Top)

	case code.OpArrayStore:
		if _, err := f.Pop(); err != nil {
			return nil, err
		}
		_, idx, err := pop2(f)
		if err != nil {
			return nil, err
		}
		if idx.Neg {
			m.Record(vm.IndexOutOfBounds)
		}

	case code.OpGet:
		if in.Field.Name == vm.AssertionsDisabledField {
			f.Push(Of(0))
		} else {
			f.Push(Top)
		}

	case code.OpInvoke:
		// Intraprocedural: the callee is stubbed with an unknown result.
		n := len(in.Method.Args)
		if in.Virtual {
			n++
		}
		for range n {
			if _, err := f.Pop(); err != nil {
				return nil, err
			}
		}
		if in.Method.Returns != nil {
			f.Push(Top)
		}

	case code.OpThrow:
		if _, err := f.Pop(); err != nil {
			return nil, err
		}
		return vm.Raise{Kind: vm.UnsupportedOperationException}, nil

	case code.OpPrint:
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		m.Out.Append(v.Inspect())

	default:
		return nil, fmt.Errorf("%w: unhandled instruction %s", vm.ErrMalformedBytecode, in.Op)
	}
	return vm.Continue{}, nil
}

// incr shifts a sign element by a constant amount. Positive values are at
// least one, so a decrement by exactly one cannot pass below zero, and
// symmetrically for negative values and an increment by one.
func incr(s Sgn, amount int) Sgn {
	if amount == 0 {
		return s
	}
	res := Bot
	if s.Neg {
		switch {
		case amount < 0:
			res = res.Join(Sgn{Neg: true, Origin: -1})
		case amount == 1:
			res = res.Join(Sgn{Neg: true, Zero: true, Origin: -1})
		default:
			res = res.Join(Top)
		}
	}
	if s.Zero {
		res = res.Join(Of(int32(amount)))
	}
	if s.Pos {
		switch {
		case amount > 0:
			res = res.Join(Sgn{Pos: true, Origin: -1})
		case amount == -1:
			res = res.Join(Sgn{Zero: true, Pos: true, Origin: -1})
		default:
			res = res.Join(Top)
		}
	}
	return res
}

// Analyze runs the sign analysis on one method, synthesizing top values
// for its parameters, and returns the observed verdict set.
func Analyze(provider classfile.Provider, class, method string) (map[vm.Kind]bool, error) {
	m := vm.New(provider, Semantics{}, nil)
	out, err := m.Run(class, method, nil)
	if err != nil {
		return nil, err
	}
	return out.Kinds, nil
}
