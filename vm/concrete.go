package vm

import (
	"errors"
	"fmt"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/code"
	"github.com/dr8co/jive/object"
)

// AssertionsDisabledField is the sentinel static field the compiler reads
// before every assertion. Pushing false keeps assertion-guarded paths
// live.
const AssertionsDisabledField = "$assertionsDisabled"

// Concrete is the concrete value semantics: host-integer arithmetic,
// real heap objects, and direct branching decisions.
type Concrete struct{}

// Literal converts an embedded constant into a runtime value.
func (Concrete) Literal(lit *classfile.Literal) (object.Value, error) {
	switch lit.Type {
	case "integer", "int", "byte", "short", "char":
		n, ok := lit.Int()
		if !ok {
			return nil, fmt.Errorf("%w: %s literal holds %T", ErrMalformedBytecode, lit.Type, lit.Value)
		}
		switch lit.Type {
		case "byte":
			return &object.Byte{Value: n}, nil
		case "short":
			return &object.Short{Value: n}, nil
		default:
			return &object.Int{Value: n}, nil
		}
	case "boolean", "bool":
		b, ok := lit.Bool()
		if !ok {
			return nil, fmt.Errorf("%w: boolean literal holds %T", ErrMalformedBytecode, lit.Value)
		}
		return &object.Bool{Value: b}, nil
	case "string":
		s, ok := lit.Str()
		if !ok {
			return nil, fmt.Errorf("%w: string literal holds %T", ErrMalformedBytecode, lit.Value)
		}
		return &object.Str{Value: s}, nil
	case "null":
		return &object.Null{}, nil
	}
	return nil, fmt.Errorf("%w: unknown literal type %q", ErrMalformedBytecode, lit.Type)
}

// Param fails: concrete evaluation requires explicit arguments.
func (Concrete) Param(i int, t *classfile.Type) (object.Value, error) {
	return nil, fmt.Errorf("concrete evaluation needs an explicit value for parameter %d (%s)", i, t)
}

// holds reports whether the comparison outcome cmp (-1, 0, 1) satisfies
// the branch condition.
func holds(c code.Cond, cmp int) bool {
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

// Step executes one instruction concretely.
func (c Concrete) Step(m *Machine, f *Frame, in *code.Instruction) (Effect, error) {
	switch in.Op {
	case code.OpPush:
		v, err := c.Literal(in.Value)
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
		next, err := object.Add(v, &object.Int{Value: int32(in.Amount)})
		if err != nil {
			return nil, err
		}
		f.Locals[in.Index] = next

	case code.OpBinary:
		b, err := f.Pop()
		if err != nil {
			return nil, err
		}
		a, err := f.Pop()
		if err != nil {
			return nil, err
		}
		var res object.Value
		switch in.Binary {
		case code.Add:
			res, err = object.Add(a, b)
		case code.Sub:
			res, err = object.Sub(a, b)
		case code.Mul:
			res, err = object.Mul(a, b)
		case code.Div:
			res, err = object.Div(a, b)
			if errors.Is(err, object.ErrDivisionByZero) {
				return Raise{Kind: ArithmeticException}, nil
			}
		}
		if err != nil {
			return nil, err
		}
		f.Push(res)

	case code.OpNegate:
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		res, err := object.Neg(v)
		if err != nil {
			return nil, err
		}
		f.Push(res)

	case code.OpIf:
		b, err := f.Pop()
		if err != nil {
			return nil, err
		}
		a, err := f.Pop()
		if err != nil {
			return nil, err
		}
		cmp, err := object.Compare(a, b)
		if err != nil {
			return nil, err
		}
		if holds(in.Cond, cmp) {
			return Jump{Target: in.Target}, nil
		}

	case code.OpIfZero:
		a, err := f.Pop()
		if err != nil {
			return nil, err
		}
		cmp, err := object.Compare(a, &object.Int{Value: 0})
		if err != nil {
			return nil, err
		}
		if holds(in.Cond, cmp) {
			return Jump{Target: in.Target}, nil
		}

	case code.OpGoto:
		return Jump{Target: in.Target}, nil

	case code.OpReturn:
		if in.TypeName == "" {
			return Return{}, nil
		}
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		return Return{Value: v}, nil

	case code.OpNew:
		f.Push(m.Heap.AllocInstance(in.Class))

	case code.OpNewArray:
		n, err := f.Pop()
		if err != nil {
			return nil, err
		}
		size, ok := object.AsInt(n)
		if !ok {
			return nil, fmt.Errorf("%w: array length is %s", object.ErrTypeMismatch, n.Type())
		}
		if size < 0 {
			return Raise{Kind: IndexOutOfBounds}, nil
		}
		ref, _ := m.Heap.AllocArray(in.TypeName, size)
		f.Push(ref)

	case code.OpArrayLength:
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		arr, err := m.Heap.Array(ref)
		if errors.Is(err, object.ErrNullReference) {
			return Raise{Kind: NullPointerException}, nil
		}
		if err != nil {
			return nil, err
		}
		f.Push(&object.Int{Value: int32(arr.Len())})

	case code.OpArrayLoad:
		idx, err := f.Pop()
		if err != nil {
			return nil, err
		}
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		arr, err := m.Heap.Array(ref)
		if errors.Is(err, object.ErrNullReference) {
			return Raise{Kind: NullPointerException}, nil
		}
		if err != nil {
			return nil, err
		}
		i, ok := object.AsInt(idx)
		if !ok {
			return nil, fmt.Errorf("%w: array index is %s", object.ErrTypeMismatch, idx.Type())
		}
		v, err := arr.At(i)
		if err != nil {
			return Raise{Kind: IndexOutOfBounds}, nil
		}
		f.Push(v)

	case code.OpArrayStore:
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		idx, err := f.Pop()
		if err != nil {
			return nil, err
		}
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		arr, err := m.Heap.Array(ref)
		if errors.Is(err, object.ErrNullReference) {
			return Raise{Kind: NullPointerException}, nil
		}
		if err != nil {
			return nil, err
		}
		i, ok := object.AsInt(idx)
		if !ok {
			return nil, fmt.Errorf("%w: array index is %s", object.ErrTypeMismatch, idx.Type())
		}
		if err := arr.Set(i, v); err != nil {
			return Raise{Kind: IndexOutOfBounds}, nil
		}

	case code.OpGet:
		// Fields are modeled abstractly: a neutral zero, except for the
		// assertion sentinel which must stay false.
		if in.Field.Name == AssertionsDisabledField {
			f.Push(&object.Bool{Value: false})
		} else {
			f.Push(&object.Int{Value: 0})
		}

	case code.OpInvoke:
		n := len(in.Method.Args)
		if in.Virtual {
			n++
		}
		args := make([]object.Value, n)
		for i := n - 1; i >= 0; i-- {
			v, err := f.Pop()
			if err != nil {
				return nil, err
			}
			args[i] = v
		}
		return Call{
			Class:   in.Method.Ref.Name,
			Method:  in.Method.Name,
			Args:    args,
			Returns: in.Method.Returns != nil,
		}, nil

	case code.OpThrow:
		ref, err := f.Pop()
		if err != nil {
			return nil, err
		}
		inst, err := m.Heap.Instance(ref)
		if errors.Is(err, object.ErrNullReference) {
			return Raise{Kind: NullPointerException}, nil
		}
		if err != nil {
			return nil, err
		}
		return Raise{Kind: KindOf(inst.Class)}, nil

	case code.OpPrint:
		v, err := f.Pop()
		if err != nil {
			return nil, err
		}
		m.Out.Append(v.Inspect())

	default:
		return nil, fmt.Errorf("%w: unhandled instruction %s", ErrMalformedBytecode, in.Op)
	}
	return Continue{}, nil
}
