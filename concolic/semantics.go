package concolic

import (
	"errors"
	"fmt"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/code"
	"github.com/dr8co/jive/object"
	"github.com/dr8co/jive/solver"
	"github.com/dr8co/jive/vm"
)

// maxSeedArrayLen bounds the concrete length of a synthesized parameter
// array. The engine asserts the same bound on the symbolic length, so the
// two sides stay consistent.
const maxSeedArrayLen = 255

// Semantics executes one concrete path and records its path condition.
// A fresh instance is used per run; the engine wires the run's machine in
// through attach so parameter synthesis can allocate arrays on its heap.
type Semantics struct {
	model   solver.Model
	machine *vm.Machine

	path    []*solver.Pred
	inputs  []int32
	lengths map[int]*Pair
	nfresh  int
}

// NewSemantics creates the semantics for one run, seeded with a solver
// model assigning every parameter variable.
func NewSemantics(model solver.Model) *Semantics {
	return &Semantics{model: model, lengths: make(map[int]*Pair)}
}

// attach wires the dispatcher in; called by the engine after vm.New.
func (s *Semantics) attach(m *vm.Machine) { s.machine = m }

// Path returns the recorded path condition, in execution order.
func (s *Semantics) Path() []*solver.Pred { return s.path }

// Inputs returns the concrete seed drawn for each parameter (array
// parameters contribute their length).
func (s *Semantics) Inputs() []int32 { return s.inputs }

func (s *Semantics) record(p *solver.Pred) {
	s.path = append(s.path, p)
}

func (s *Semantics) fresh(prefix string) *solver.Term {
	s.nfresh++
	return solver.IntVar(fmt.Sprintf("%s!%d", prefix, s.nfresh))
}

// IntParamName names the symbolic variable of an integer or boolean
// parameter.
func IntParamName(i int) string { return fmt.Sprintf("p%d", i) }

// LenParamName names the symbolic length of an array parameter.
func LenParamName(i int) string { return fmt.Sprintf("len%d", i) }

// Literal converts an embedded constant into a pair whose symbolic side
// is the constant itself.
func (s *Semantics) Literal(lit *classfile.Literal) (object.Value, error) {
	if n, ok := lit.Int(); ok {
		return constPair(n), nil
	}
	if b, ok := lit.Bool(); ok {
		if b {
			return boolPair(true, solver.True), nil
		}
		return boolPair(false, solver.False), nil
	}
	if str, ok := lit.Str(); ok {
		return &object.Str{Value: str}, nil
	}
	return &object.Null{}, nil
}

// Param synthesizes a fresh symbolic input of the parameter's declared
// sort, with the concrete seed drawn from the current model.
func (s *Semantics) Param(i int, t *classfile.Type) (object.Value, error) {
	switch {
	case t.IsInt():
		name := IntParamName(i)
		n := s.model.Int(name)
		s.inputs = append(s.inputs, n)
		return intPair(n, solver.IntVar(name)), nil
	case t.IsBool():
		name := IntParamName(i)
		b := s.model.Bool(name)
		s.inputs = append(s.inputs, b2i(b))
		return boolPair(b, solver.BoolVar(name)), nil
	case t.Kind == "array":
		name := LenParamName(i)
		n := s.model.Int(name)
		if n < 0 || n > maxSeedArrayLen {
			return nil, fmt.Errorf("model length %d for %s outside the asserted bounds", n, name)
		}
		s.inputs = append(s.inputs, n)
		ref, arr := s.machine.Heap.AllocArray(t.Elem.Base, n)
		for j := range arr.Cells {
			if t.Elem.IsBool() {
				arr.Cells[j] = boolPair(false, solver.False)
			} else {
				arr.Cells[j] = constPair(0)
			}
		}
		s.lengths[ref.ID] = intPair(n, solver.IntVar(name))
		return ref, nil
	}
	return nil, fmt.Errorf("unknown parameter sort %s", t)
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}

func asPair(v object.Value) (*Pair, error) {
	p, ok := v.(*Pair)
	if !ok {
		return nil, fmt.Errorf("%w: expected a concolic value, got %s", vm.ErrMalformedBytecode, v.Type())
	}
	return p, nil
}

func (s *Semantics) popPair(f *vm.Frame) (*Pair, error) {
	v, err := f.Pop()
	if err != nil {
		return nil, err
	}
	return asPair(v)
}

// condPred builds the symbolic form of "a cond b" on integer sorts.
func condPred(c code.Cond, a, b *solver.Term) *solver.Pred {
	var op solver.CmpOp
	switch c {
	case code.Eq:
		op = solver.Eq
	case code.Ne:
		op = solver.Ne
	case code.Lt:
		op = solver.Lt
	case code.Le:
		op = solver.Le
	case code.Gt:
		op = solver.Gt
	default:
		op = solver.Ge
	}
	return solver.Cmp(op, a, b)
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

// branch decides a comparison concretely and records the symbolic
// condition of the outcome actually taken.
func (s *Semantics) branch(in *code.Instruction, a, b *Pair) (vm.Effect, error) {
	x, okx := a.intOf()
	y, oky := b.intOf()
	if !okx || !oky {
		return nil, fmt.Errorf("%w: comparison on non-integral values", object.ErrTypeMismatch)
	}
	cmp := 0
	switch {
	case x < y:
		cmp = -1
	case x > y:
		cmp = 1
	}
	var sym *solver.Pred
	if a.SymBool != nil && in.Op == code.OpIfZero {
		// A boolean tested against zero: the condition is the predicate
		// itself (ne) or its negation (eq).
		switch in.Cond {
		case code.Ne:
			sym = a.SymBool
		case code.Eq:
			sym = solver.Not(a.SymBool)
		default:
			return nil, fmt.Errorf("%w: ordered comparison on a boolean", object.ErrTypeMismatch)
		}
		if condHolds(in.Cond, cmp) {
			s.record(sym)
			return vm.Jump{Target: in.Target}, nil
		}
		s.record(solver.Not(sym))
		return vm.Continue{}, nil
	}
	sym = condPred(in.Cond, a.term(), b.term())
	if condHolds(in.Cond, cmp) {
		s.record(sym)
		return vm.Jump{Target: in.Target}, nil
	}
	s.record(solver.Not(sym))
	return vm.Continue{}, nil
}

// index checks an array access and records the bounds conditions; it
// returns a Raise effect for the violated half, or nil when in range.
func (s *Semantics) index(idx, length *Pair) vm.Effect {
	i, _ := idx.intOf()
	n, _ := length.intOf()
	zero := solver.IntVal(0)
	if i < 0 {
		s.record(solver.Cmp(solver.Lt, idx.term(), zero))
		return vm.Raise{Kind: vm.IndexOutOfBounds}
	}
	if i >= n {
		s.record(solver.Cmp(solver.Ge, idx.term(), length.term()))
		return vm.Raise{Kind: vm.IndexOutOfBounds}
	}
	s.record(solver.Cmp(solver.Ge, idx.term(), zero))
	s.record(solver.Cmp(solver.Lt, idx.term(), length.term()))
	return nil
}

// Step executes one instruction concretely while recording the path
// condition.
func (s *Semantics) Step(m *vm.Machine, f *vm.Frame, in *code.Instruction) (vm.Effect, error) {
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
		f.Push(v)

	case code.OpStore:
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		f.SetLocal(in.Index, v)

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
		p, err := asPair(v)
		if err != nil {
			return nil, err
		}
		n, _ := p.intOf()
		f.Locals[in.Index] = intPair(n+int32(in.Amount),
			solver.Add(p.term(), solver.IntVal(int32(in.Amount))))

	case code.OpBinary:
		b, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		a, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		x, okx := a.intOf()
		y, oky := b.intOf()
		if !okx || !oky {
			return nil, fmt.Errorf("%w: arithmetic on non-integral values", object.ErrTypeMismatch)
		}
		zero := solver.IntVal(0)
		switch in.Binary {
		case code.Add:
			f.Push(intPair(x+y, solver.Add(a.term(), b.term())))
		case code.Sub:
			f.Push(intPair(x-y, solver.Sub(a.term(), b.term())))
		case code.Mul:
			f.Push(intPair(x*y, solver.Mul(a.term(), b.term())))
		case code.Div:
			if y == 0 {
				s.record(solver.Cmp(solver.Eq, b.term(), zero))
				return vm.Raise{Kind: vm.ArithmeticException}, nil
			}
			s.record(solver.Cmp(solver.Ne, b.term(), zero))
			// The quotient's symbolic side is a fresh unconstrained
			// variable; the concrete side stays exact.
			f.Push(intPair(x/y, s.fresh("quot")))
		}

	case code.OpNegate:
		p, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		n, _ := p.intOf()
		f.Push(intPair(-n, solver.Neg(p.term())))

	case code.OpIf:
		b, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		a, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		return s.branch(in, a, b)

	case code.OpIfZero:
		a, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		return s.branch(in, a, constPair(0))

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
		f.Push(m.Heap.AllocInstance(in.Class))

	case code.OpNewArray:
		p, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		n, _ := p.intOf()
		if n < 0 {
			s.record(solver.Cmp(solver.Lt, p.term(), solver.IntVal(0)))
			return vm.Raise{Kind: vm.IndexOutOfBounds}, nil
		}
		s.record(solver.Cmp(solver.Ge, p.term(), solver.IntVal(0)))
		ref, arr := m.Heap.AllocArray(in.TypeName, n)
		for j := range arr.Cells {
			arr.Cells[j] = constPair(0)
		}
		s.lengths[ref.ID] = p
		f.Push(ref)

	case code.OpArrayLength:
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		r, ok := ref.(*object.Ref)
		if !ok {
			return vm.Raise{Kind: vm.NullPointerException}, nil
		}
		f.Push(s.lengths[r.ID])

	case code.OpArrayLoad:
		idx, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		arr, err := m.Heap.Array(ref)
		if errors.Is(err, object.ErrNullReference) {
			return vm.Raise{Kind: vm.NullPointerException}, nil
		}
		if err != nil {
			return nil, err
		}
		r := ref.(*object.Ref)
		if eff := s.index(idx, s.lengths[r.ID]); eff != nil {
			return eff, nil
		}
		i, _ := idx.intOf()
		v, err := arr.At(i)
		if err != nil {
			return nil, err
		}
		f.Push(v)

	case code.OpArrayStore:
		val, err := f.Pop()
		if err != nil {
			return nil, err
		}
		idx, err := s.popPair(f)
		if err != nil {
			return nil, err
		}
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		arr, err := m.Heap.Array(ref)
		if errors.Is(err, object.ErrNullReference) {
			return vm.Raise{Kind: vm.NullPointerException}, nil
		}
		if err != nil {
			return nil, err
		}
		r := ref.(*object.Ref)
		if eff := s.index(idx, s.lengths[r.ID]); eff != nil {
			return eff, nil
		}
		i, _ := idx.intOf()
		if err := arr.Set(i, val); err != nil {
			return nil, err
		}

	case code.OpGet:
		if in.Field.Name == vm.AssertionsDisabledField {
			f.Push(boolPair(false, solver.False))
		} else {
			f.Push(constPair(0))
		}

	case code.OpInvoke:
		// Calls are stubbed: the symbolic state cannot follow them yet,
		// so the result is a neutral constant.
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
			f.Push(constPair(0))
		}

	case code.OpThrow:
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		inst, err := m.Heap.Instance(ref)
		if errors.Is(err, object.ErrNullReference) {
			return vm.Raise{Kind: vm.NullPointerException}, nil
		}
		if err != nil {
			return nil, err
		}
		return vm.Raise{Kind: vm.KindOf(inst.Class)}, nil

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
