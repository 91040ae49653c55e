package vm

import (
	"github.com/dr8co/jive/object"
)

// Kind is the analyzer's conclusion about one execution path. No means the
// path finished without an exception; Maybe means a resource cap curtailed
// the analysis before it could decide; the remaining kinds name the
// runtime exception the path would raise.
type Kind byte

// Verdict kinds.
const (
	No Kind = iota
	Maybe
	AssertionError
	IndexOutOfBounds
	ArithmeticException
	NullPointerException
	UnsupportedOperationException
)

// String returns the verdict name.
func (k Kind) String() string {
	switch k {
	case No:
		return "No"
	case Maybe:
		return "Maybe"
	case AssertionError:
		return "AssertionError"
	case IndexOutOfBounds:
		return "IndexOutOfBounds"
	case ArithmeticException:
		return "ArithmeticException"
	case NullPointerException:
		return "NullPointerException"
	case UnsupportedOperationException:
		return "UnsupportedOperationException"
	}
	return "Kind(?)"
}

// IsException reports whether the kind names a runtime exception rather
// than a No/Maybe outcome.
func (k Kind) IsException() bool { return k > Maybe }

// KindOf maps an exception class name onto a verdict kind. Bytecode
// signals a domain exception by allocating one of these classes and
// throwing it; classes outside the taxonomy degrade to the unsupported-
// operation kind.
func KindOf(class string) Kind {
	switch class {
	case "java/lang/AssertionError":
		return AssertionError
	case "java/lang/IndexOutOfBoundsException",
		"java/lang/ArrayIndexOutOfBoundsException":
		return IndexOutOfBounds
	case "java/lang/ArithmeticException":
		return ArithmeticException
	case "java/lang/NullPointerException":
		return NullPointerException
	default:
		return UnsupportedOperationException
	}
}

// Effect is a control effect produced by executing one instruction. The
// dispatcher applies effects; semantics only describe them.
type Effect interface {
	effect()
}

// Continue advances to the next instruction.
type Continue struct{}

// Jump transfers control to the instruction at Target.
type Jump struct {
	Target int
}

// Call invokes another method. Args are in declaration order (receiver
// first for non-static targets); Returns reports whether the call site
// expects a result pushed on its operand stack.
type Call struct {
	Class   string
	Method  string
	Args    []object.Value
	Returns bool
}

// Return leaves the current method. Value is nil for a void return.
type Return struct {
	Value object.Value
}

// Raise terminates the current path with an exception verdict.
type Raise struct {
	Kind Kind
}

// Branch is one successor state of a split: a continuation point plus the
// refined locals and operand stack to resume with.
type Branch struct {
	PC     int
	Locals []object.Value
	Stack  []object.Value
}

// Split forks the current path into the given successor states. Only
// non-deterministic semantics produce it; the dispatcher feeds the
// branches through its worklist, discarding states it has already seen.
type Split struct {
	Branches []Branch
}

func (Continue) effect() {}
func (Jump) effect()     {}
func (Call) effect()     {}
func (Return) effect()   {}
func (Raise) effect()    {}
func (Split) effect()    {}
