package object

import (
	"fmt"
	"strings"
)

// Array is a heap-allocated array with a fixed element type and length.
type Array struct {
	Elem  string
	Cells []Value
}

// Len returns the array length.
func (a *Array) Len() int { return len(a.Cells) }

// At returns the cell at index i, checking bounds.
func (a *Array) At(i int32) (Value, error) {
	if i < 0 || int(i) >= len(a.Cells) {
		return nil, fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, i, len(a.Cells))
	}
	return a.Cells[i], nil
}

// Set writes the cell at index i, checking bounds.
func (a *Array) Set(i int32, v Value) error {
	if i < 0 || int(i) >= len(a.Cells) {
		return fmt.Errorf("%w: index %d, length %d", ErrIndexOutOfBounds, i, len(a.Cells))
	}
	a.Cells[i] = v
	return nil
}

// Instance is a heap-allocated class instance. Fields are modeled
// abstractly; the class name is what throw inspects to pick a verdict.
type Instance struct {
	Class  string
	Fields map[string]Value
}

// Heap owns every object allocated during one analysis run. Ids are
// opaque, unique for the run, and never reclaimed; analysis runs are
// short-lived.
type Heap struct {
	objects []any
}

// NewHeap creates an empty heap.
func NewHeap() *Heap {
	return &Heap{}
}

func (h *Heap) alloc(obj any) *Ref {
	h.objects = append(h.objects, obj)
	return &Ref{ID: len(h.objects) - 1}
}

// AllocArray allocates an array of n cells, each initialized to the
// element type's default (false for bool, zero otherwise), and returns a
// reference to it.
func (h *Heap) AllocArray(elem string, n int32) (*Ref, *Array) {
	cells := make([]Value, n)
	for i := range cells {
		if elem == "bool" || elem == "boolean" {
			cells[i] = &Bool{Value: false}
		} else {
			cells[i] = &Int{Value: 0}
		}
	}
	arr := &Array{Elem: elem, Cells: cells}
	return h.alloc(arr), arr
}

// AllocInstance allocates an instance of the named class and returns a
// reference to it.
func (h *Heap) AllocInstance(class string) *Ref {
	return h.alloc(&Instance{Class: class, Fields: make(map[string]Value)})
}

func (h *Heap) object(v Value) (any, error) {
	switch v := v.(type) {
	case *Null:
		return nil, ErrNullReference
	case *Ref:
		if v.ID < 0 || v.ID >= len(h.objects) {
			return nil, fmt.Errorf("%w: dangling ref %d", ErrTypeMismatch, v.ID)
		}
		return h.objects[v.ID], nil
	}
	return nil, fmt.Errorf("%w: %s is not a reference", ErrTypeMismatch, v.Type())
}

// Array resolves a reference to an array object.
func (h *Heap) Array(v Value) (*Array, error) {
	obj, err := h.object(v)
	if err != nil {
		return nil, err
	}
	arr, ok := obj.(*Array)
	if !ok {
		return nil, fmt.Errorf("%w: ref does not hold an array", ErrTypeMismatch)
	}
	return arr, nil
}

// Instance resolves a reference to a class instance.
func (h *Heap) Instance(v Value) (*Instance, error) {
	obj, err := h.object(v)
	if err != nil {
		return nil, err
	}
	inst, ok := obj.(*Instance)
	if !ok {
		return nil, fmt.Errorf("%w: ref does not hold an instance", ErrTypeMismatch)
	}
	return inst, nil
}

// Buffer is the append-only output sink print instructions write to. The
// caller injects it and reads the accumulated text afterwards.
type Buffer struct {
	b strings.Builder
}

// Append adds text to the buffer.
func (b *Buffer) Append(s string) {
	b.b.WriteString(s)
}

// String returns everything appended so far.
func (b *Buffer) String() string {
	return b.b.String()
}

// Wrap promotes a sequence of ordinary Go values into runtime values:
// ints and bools become scalars, int slices are installed on the heap as
// arrays with a Ref taking their place, and existing Values pass through.
func Wrap(h *Heap, args []any) ([]Value, error) {
	out := make([]Value, 0, len(args))
	for _, a := range args {
		switch a := a.(type) {
		case int:
			out = append(out, &Int{Value: int32(a)})
		case int32:
			out = append(out, &Int{Value: a})
		case bool:
			out = append(out, &Bool{Value: a})
		case string:
			out = append(out, &Str{Value: a})
		case []int:
			ref, arr := h.AllocArray("int", int32(len(a)))
			for i, v := range a {
				arr.Cells[i] = &Int{Value: int32(v)}
			}
			out = append(out, ref)
		case []int32:
			ref, arr := h.AllocArray("int", int32(len(a)))
			for i, v := range a {
				arr.Cells[i] = &Int{Value: v}
			}
			out = append(out, ref)
		case nil:
			out = append(out, &Null{})
		case Value:
			out = append(out, a)
		default:
			return nil, fmt.Errorf("%w: cannot wrap %T", ErrTypeMismatch, a)
		}
	}
	return out, nil
}
