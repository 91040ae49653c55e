package code

import (
	"strings"
	"testing"

	"github.com/dr8co/jive/classfile"
)

func loadMethod(t *testing.T, file, method string) *classfile.Method {
	t.Helper()
	c, err := classfile.Load("../testdata/decompiled/" + file)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	m := c.Method(method)
	if m == nil {
		t.Fatalf("method %s not found in %s", method, file)
	}
	return m
}

func TestDecodeFactorial(t *testing.T) {
	ins, err := Decode(loadMethod(t, "Simple.json", "factorial"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}

	tests := []struct {
		idx int
		op  Op
	}{
		{0, OpPush},
		{1, OpStore},
		{2, OpLoad},
		{4, OpIf},
		{7, OpBinary},
		{9, OpIncr},
		{10, OpGoto},
		{12, OpReturn},
	}
	for _, tt := range tests {
		if ins[tt.idx].Op != tt.op {
			t.Errorf("instruction %d is %s, want %s", tt.idx, ins[tt.idx].Op, tt.op)
		}
	}

	if ins[4].Cond != Le || ins[4].Target != 11 {
		t.Errorf("if at 4 decoded wrong: cond %s target %d", ins[4].Cond, ins[4].Target)
	}
	if ins[7].Binary != Mul {
		t.Errorf("binary at 7 decoded wrong: %s", ins[7].Binary)
	}
	if ins[9].Index != 0 || ins[9].Amount != -1 {
		t.Errorf("incr at 9 decoded wrong: index %d amount %d", ins[9].Index, ins[9].Amount)
	}
	if ins[12].TypeName != "int" {
		t.Errorf("return at 12 should carry the int kind, got %q", ins[12].TypeName)
	}
}

func TestDecodeInvoke(t *testing.T) {
	ins, err := Decode(loadMethod(t, "Calls.json", "helloWorld"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	invoke := ins[2]
	if invoke.Op != OpInvoke {
		t.Fatalf("instruction 2 is %s, want invoke", invoke.Op)
	}
	if !invoke.Virtual {
		t.Errorf("a virtual invoke should pop a receiver")
	}
	if invoke.Method.Ref.Name != "java/io/PrintStream" || invoke.Method.Name != "println" {
		t.Errorf("invoke target decoded wrong: %+v", invoke.Method)
	}

	ins, err = Decode(loadMethod(t, "Calls.json", "fib"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if ins[8].Op != OpInvoke || ins[8].Virtual {
		t.Errorf("a static invoke should not pop a receiver")
	}
}

func TestDecodeErrors(t *testing.T) {
	mk := func(ops ...classfile.Op) *classfile.Method {
		return &classfile.Method{Name: "bad", Code: classfile.Code{Bytecode: ops}}
	}
	tests := []struct {
		name   string
		method *classfile.Method
	}{
		{"unknown tag", mk(classfile.Op{Opr: "fnord"})},
		{"unknown operant", mk(classfile.Op{Opr: "binary", Operant: "xor"})},
		{"unknown condition", mk(classfile.Op{Opr: "if", Condition: "almost"})},
		{"push without value", mk(classfile.Op{Opr: "push"})},
		{"target past the end", mk(
			classfile.Op{Opr: "goto", Target: 7},
			classfile.Op{Opr: "return"},
		)},
		{"negative target", mk(
			classfile.Op{Opr: "goto", Target: -1},
			classfile.Op{Opr: "return"},
		)},
	}
	for _, tt := range tests {
		if _, err := Decode(tt.method); err == nil {
			t.Errorf("%s: expected a decode error", tt.name)
		}
	}
}

func TestCondNegateSwap(t *testing.T) {
	conds := []Cond{Eq, Ne, Lt, Le, Gt, Ge}
	for _, c := range conds {
		if c.Negate().Negate() != c {
			t.Errorf("double negation of %s is %s", c, c.Negate().Negate())
		}
		if c.Swap().Swap() != c {
			t.Errorf("double swap of %s is %s", c, c.Swap().Swap())
		}
	}
	if Lt.Negate() != Ge || Eq.Negate() != Ne {
		t.Errorf("negation table is wrong")
	}
	if Lt.Swap() != Gt || Eq.Swap() != Eq {
		t.Errorf("swap table is wrong")
	}
}

func TestString(t *testing.T) {
	ins, err := Decode(loadMethod(t, "Simple.json", "factorial"))
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	listing := ins.String()
	for _, want := range []string{
		"0000 push 1",
		"0004 if le -> 0011",
		"0007 binary mul",
		"0009 incr 0 -1",
		"0010 goto -> 0002",
		"0012 return int",
	} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing is missing %q:\n%s", want, listing)
		}
	}
}
