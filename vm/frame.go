package vm

import (
	"fmt"
	"strings"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/code"
	"github.com/dr8co/jive/object"
)

// Frame represents one method activation: the decoded instructions, the
// program counter, the local variable slots, and the operand stack.
type Frame struct {
	// Method is the descriptor this frame executes.
	Method *classfile.Method

	// Code is the decoded body of Method.
	Code code.Instructions

	// PC is the index of the instruction to execute next.
	PC int

	// Locals are the variable slots. Slot 0 holds parameter 0 (or the
	// receiver for non-static calls). The slice grows on store.
	Locals []object.Value

	// Stack is the operand stack, top at the end.
	Stack []object.Value

	// pushResult records whether the call site that created this frame
	// declared a return value and therefore expects one pushed.
	pushResult bool
}

// NewFrame creates a frame for a method with the given argument values
// installed in the leading local slots.
func NewFrame(m *classfile.Method, ins code.Instructions, args []object.Value) *Frame {
	n := len(args)
	if m.Code.MaxLocals > n {
		n = m.Code.MaxLocals
	}
	locals := make([]object.Value, len(args), n)
	copy(locals, args)
	return &Frame{Method: m, Code: ins, Locals: locals}
}

// Push adds a value on top of the operand stack.
func (f *Frame) Push(v object.Value) {
	f.Stack = append(f.Stack, v)
}

// Pop removes and returns the top of the operand stack.
func (f *Frame) Pop() (object.Value, error) {
	if len(f.Stack) == 0 {
		return nil, fmt.Errorf("%w: operand stack underflow at pc %d of %s",
			ErrMalformedBytecode, f.PC, f.Method.Name)
	}
	v := f.Stack[len(f.Stack)-1]
	f.Stack = f.Stack[:len(f.Stack)-1]
	return v, nil
}

// Peek returns the top of the operand stack without removing it.
func (f *Frame) Peek() (object.Value, error) {
	if len(f.Stack) == 0 {
		return nil, fmt.Errorf("%w: operand stack underflow at pc %d of %s",
			ErrMalformedBytecode, f.PC, f.Method.Name)
	}
	return f.Stack[len(f.Stack)-1], nil
}

// Local returns the value in slot i.
func (f *Frame) Local(i int) (object.Value, error) {
	if i < 0 || i >= len(f.Locals) || f.Locals[i] == nil {
		return nil, fmt.Errorf("%w: load from unset local %d at pc %d of %s",
			ErrMalformedBytecode, i, f.PC, f.Method.Name)
	}
	return f.Locals[i], nil
}

// SetLocal writes slot i, growing the slot array as needed.
func (f *Frame) SetLocal(i int, v object.Value) {
	for len(f.Locals) <= i {
		f.Locals = append(f.Locals, nil)
	}
	f.Locals[i] = v
}

// fork returns a copy of the frame resuming at the branch's continuation
// point with the branch's locals and stack.
func (f *Frame) fork(b Branch) *Frame {
	return &Frame{
		Method:     f.Method,
		Code:       f.Code,
		PC:         b.PC,
		Locals:     b.Locals,
		Stack:      b.Stack,
		pushResult: f.pushResult,
	}
}

// describe renders the frame's (pc, locals, opstack) as a canonical
// string. The dispatcher's seen-set is keyed by it, which is what makes
// the split-state exploration a fixpoint instead of a loop.
func (f *Frame) describe() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s@%d locals=(", f.Method.Name, f.PC)
	for _, v := range f.Locals {
		b.WriteByte(' ')
		if v == nil {
			b.WriteByte('_')
		} else {
			b.WriteString(v.Inspect())
		}
	}
	b.WriteString(" ) stack=(")
	for _, v := range f.Stack {
		b.WriteByte(' ')
		b.WriteString(v.Inspect())
	}
	b.WriteString(" )")
	return b.String()
}
