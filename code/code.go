// Package code projects raw bytecode records into a typed instruction set.
//
// This package defines the bytecode instruction set shared by every
// interpreter in the module. The decoder consumes a method descriptor's
// raw operation records and yields a flat instruction slice; compound
// records with a secondary discriminator (a binary arithmetic record, a
// compare-and-branch record) are normalized here so the dispatcher sees a
// single tag plus an enum operand. Decoding is pure; unknown tags are
// hard errors.
//
// Branch targets in the decompiled format are indices into the method's
// instruction list, not byte offsets. The decoder validates every target.
// The source offset on each record is kept for labeling only.
package code

import (
	"fmt"
	"strings"

	"github.com/dr8co/jive/classfile"
)

// Op is a bytecode instruction tag.
type Op byte

// Instruction tags.
//
// Stack-effect notes use [..] for the operand stack, top on the right.
const (
	// OpPush pushes an embedded constant.
	//
	// Stack: [] -> [value]
	OpPush Op = iota

	// OpLoad pushes the local slot at Index.
	//
	// Stack: [] -> [locals[i]]
	OpLoad

	// OpStore pops into the local slot at Index.
	//
	// Stack: [value] -> []
	OpStore

	// OpDup duplicates the top of stack.
	//
	// Stack: [value] -> [value, value]
	OpDup

	// OpPop discards the top of stack.
	//
	// Stack: [value] -> []
	OpPop

	// OpIncr adds the signed constant Amount to the local slot at Index.
	// The operand stack is unaffected.
	OpIncr

	// OpBinary pops two operands and pushes the result of Binary.
	//
	// Stack: [a, b] -> [a op b]
	OpBinary

	// OpNegate arithmetically negates the top of stack.
	//
	// Stack: [value] -> [-value]
	OpNegate

	// OpIf pops two operands and branches to Target when Cond holds
	// between them.
	//
	// Stack: [a, b] -> []
	OpIf

	// OpIfZero pops one operand and branches to Target when Cond holds
	// against zero.
	//
	// Stack: [value] -> []
	OpIfZero

	// OpGoto branches unconditionally to Target.
	OpGoto

	// OpReturn leaves the current method. A non-void return pops the
	// result from the operand stack.
	//
	// Stack: [value?] -> []
	OpReturn

	// OpNew allocates an instance of Class and pushes a reference.
	//
	// Stack: [] -> [ref]
	OpNew

	// OpNewArray pops a length and pushes a reference to a fresh array
	// of TypeName elements.
	//
	// Stack: [length] -> [ref]
	OpNewArray

	// OpArrayLength pops an array reference and pushes its length.
	//
	// Stack: [ref] -> [length]
	OpArrayLength

	// OpArrayLoad pops an index and an array reference and pushes the cell.
	//
	// Stack: [ref, index] -> [value]
	OpArrayLoad

	// OpArrayStore pops a value, an index, and an array reference and
	// writes the cell.
	//
	// Stack: [ref, index, value] -> []
	OpArrayStore

	// OpGet reads the static field described by Field.
	//
	// Stack: [] -> [value]
	OpGet

	// OpInvoke calls the target described by Method. The declared
	// arguments are popped right-to-left; non-static targets pop one
	// extra value for the receiver. A declared non-void return pushes
	// the result.
	OpInvoke

	// OpThrow pops an exception reference and aborts the current path
	// with the exception kind of its class.
	//
	// Stack: [ref] -> []
	OpThrow

	// OpPrint pops a value and appends its textual form to the output
	// buffer.
	//
	// Stack: [value] -> []
	OpPrint
)

var opNames = map[Op]string{
	OpPush:        "push",
	OpLoad:        "load",
	OpStore:       "store",
	OpDup:         "dup",
	OpPop:         "pop",
	OpIncr:        "incr",
	OpBinary:      "binary",
	OpNegate:      "negate",
	OpIf:          "if",
	OpIfZero:      "ifz",
	OpGoto:        "goto",
	OpReturn:      "return",
	OpNew:         "new",
	OpNewArray:    "newarray",
	OpArrayLength: "arraylength",
	OpArrayLoad:   "array_load",
	OpArrayStore:  "array_store",
	OpGet:         "get",
	OpInvoke:      "invoke",
	OpThrow:       "throw",
	OpPrint:       "print",
}

// String returns the decompiler's tag name for the instruction.
func (op Op) String() string {
	if name, ok := opNames[op]; ok {
		return name
	}
	return fmt.Sprintf("op(%d)", byte(op))
}

// BinOp is the secondary discriminator on an OpBinary instruction.
type BinOp byte

// Binary arithmetic operators.
const (
	Add BinOp = iota
	Sub
	Mul
	Div
)

// String returns the decompiler's name for the operator.
func (b BinOp) String() string {
	switch b {
	case Add:
		return "add"
	case Sub:
		return "sub"
	case Mul:
		return "mul"
	case Div:
		return "div"
	}
	return fmt.Sprintf("binop(%d)", byte(b))
}

// Cond is the comparison discriminator on OpIf and OpIfZero instructions.
type Cond byte

// Branch conditions.
const (
	Eq Cond = iota
	Ne
	Lt
	Le
	Gt
	Ge
)

// String returns the decompiler's name for the condition.
func (c Cond) String() string {
	switch c {
	case Eq:
		return "eq"
	case Ne:
		return "ne"
	case Lt:
		return "lt"
	case Le:
		return "le"
	case Gt:
		return "gt"
	case Ge:
		return "ge"
	}
	return fmt.Sprintf("cond(%d)", byte(c))
}

// Negate returns the condition that holds exactly when c does not.
func (c Cond) Negate() Cond {
	switch c {
	case Eq:
		return Ne
	case Ne:
		return Eq
	case Lt:
		return Ge
	case Le:
		return Gt
	case Gt:
		return Le
	default:
		return Lt
	}
}

// Swap returns the condition with its operands exchanged, so that
// a c b holds exactly when b Swap(c) a holds.
func (c Cond) Swap() Cond {
	switch c {
	case Lt:
		return Gt
	case Le:
		return Ge
	case Gt:
		return Lt
	case Ge:
		return Le
	default:
		return c
	}
}

// Instruction is one decoded bytecode instruction. Op selects which of the
// remaining fields are meaningful; Offset is the source offset carried for
// labeling branch targets in listings.
type Instruction struct {
	Op     Op
	Offset int

	Value    *classfile.Literal   // OpPush
	Index    int                  // OpLoad, OpStore, OpIncr
	Amount   int                  // OpIncr
	Binary   BinOp                // OpBinary
	Cond     Cond                 // OpIf, OpIfZero
	Target   int                  // OpIf, OpIfZero, OpGoto
	TypeName string               // value kind on OpLoad/OpStore/OpBinary, element type on OpNewArray, return kind on OpReturn ("" = void)
	Class    string               // OpNew
	Field    *classfile.Field     // OpGet
	Method   *classfile.MethodRef // OpInvoke
	Virtual  bool                 // OpInvoke: pops a receiver in addition to the declared arguments
}

// Instructions is a decoded method body.
type Instructions []Instruction

var binOps = map[string]BinOp{"add": Add, "sub": Sub, "mul": Mul, "div": Div}

var conds = map[string]Cond{"eq": Eq, "ne": Ne, "lt": Lt, "le": Le, "gt": Gt, "ge": Ge}

// Decode projects a method descriptor's raw records into instructions.
// It normalizes compound records, resolves the secondary discriminators,
// and validates every branch target against the method length.
func Decode(m *classfile.Method) (Instructions, error) {
	ins := make(Instructions, 0, len(m.Code.Bytecode))
	for i := range m.Code.Bytecode {
		in, err := decodeOne(&m.Code.Bytecode[i])
		if err != nil {
			return nil, fmt.Errorf("%s: instruction %d: %w", m.Name, i, err)
		}
		ins = append(ins, in)
	}
	for i := range ins {
		switch ins[i].Op {
		case OpIf, OpIfZero, OpGoto:
			if t := ins[i].Target; t < 0 || t >= len(ins) {
				return nil, fmt.Errorf("%s: instruction %d: branch target %d outside method", m.Name, i, t)
			}
		}
	}
	return ins, nil
}

func decodeOne(op *classfile.Op) (Instruction, error) {
	in := Instruction{Offset: op.Offset, Index: op.Index, Amount: op.Amount}
	if op.Type != nil {
		in.TypeName = *op.Type
	}
	switch op.Opr {
	case "push":
		in.Op = OpPush
		if op.Value == nil {
			return in, fmt.Errorf("push without a value")
		}
		in.Value = op.Value
	case "load":
		in.Op = OpLoad
	case "store":
		in.Op = OpStore
	case "dup":
		in.Op = OpDup
	case "pop":
		in.Op = OpPop
	case "incr":
		in.Op = OpIncr
	case "binary":
		in.Op = OpBinary
		b, ok := binOps[op.Operant]
		if !ok {
			return in, fmt.Errorf("unknown binary operant %q", op.Operant)
		}
		in.Binary = b
	case "negate":
		in.Op = OpNegate
	case "if", "ifz":
		if op.Opr == "if" {
			in.Op = OpIf
		} else {
			in.Op = OpIfZero
		}
		c, ok := conds[op.Condition]
		if !ok {
			return in, fmt.Errorf("unknown condition %q", op.Condition)
		}
		in.Cond = c
		in.Target = op.Target
	case "goto":
		in.Op = OpGoto
		in.Target = op.Target
	case "return":
		in.Op = OpReturn
	case "new":
		in.Op = OpNew
		in.Class = op.Class
	case "newarray":
		in.Op = OpNewArray
	case "arraylength":
		in.Op = OpArrayLength
	case "array_load":
		in.Op = OpArrayLoad
	case "array_store":
		in.Op = OpArrayStore
	case "get":
		in.Op = OpGet
		if op.Field == nil {
			return in, fmt.Errorf("get without a field")
		}
		in.Field = op.Field
	case "invoke":
		in.Op = OpInvoke
		if op.Method == nil {
			return in, fmt.Errorf("invoke without a method")
		}
		in.Method = op.Method
		in.Virtual = op.Access != "" && op.Access != "static"
	case "throw":
		in.Op = OpThrow
	case "print":
		in.Op = OpPrint
	default:
		return in, fmt.Errorf("unknown opcode tag %q", op.Opr)
	}
	return in, nil
}

// String provides a human-readable listing of the instructions, one per
// line, labeled with the instruction index.
func (ins Instructions) String() string {
	var out strings.Builder
	for i := range ins {
		_, _ = fmt.Fprintf(&out, "%04d %s\n", i, ins[i].text())
	}
	return out.String()
}

func (in *Instruction) text() string {
	switch in.Op {
	case OpPush:
		return fmt.Sprintf("push %v", in.Value.Value)
	case OpLoad, OpStore:
		return fmt.Sprintf("%s %d", in.Op, in.Index)
	case OpIncr:
		return fmt.Sprintf("incr %d %+d", in.Index, in.Amount)
	case OpBinary:
		return fmt.Sprintf("binary %s", in.Binary)
	case OpIf, OpIfZero:
		return fmt.Sprintf("%s %s -> %04d", in.Op, in.Cond, in.Target)
	case OpGoto:
		return fmt.Sprintf("goto -> %04d", in.Target)
	case OpReturn:
		if in.TypeName == "" {
			return "return"
		}
		return "return " + in.TypeName
	case OpNew:
		return "new " + in.Class
	case OpNewArray:
		return "newarray " + in.TypeName
	case OpGet:
		return "get " + in.Field.Name
	case OpInvoke:
		return fmt.Sprintf("invoke %s.%s/%d", in.Method.Ref.Name, in.Method.Name, len(in.Method.Args))
	default:
		return in.Op.String()
	}
}
