package classfile

import (
	"errors"
	"testing"
)

func TestLoadSimple(t *testing.T) {
	c, err := Load("../testdata/decompiled/Simple.json")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if c.Name != "dtu/compute/exec/Simple" {
		t.Errorf("wrong class name: %q", c.Name)
	}
	m := c.Method("factorial")
	if m == nil {
		t.Fatalf("factorial not found")
	}
	if len(m.Params) != 1 || !m.Params[0].Type.IsInt() {
		t.Errorf("factorial params decoded wrong: %+v", m.Params)
	}
	if m.Returns == nil || !m.Returns.IsInt() {
		t.Errorf("factorial return type decoded wrong: %+v", m.Returns)
	}
	if len(m.Code.Bytecode) != 13 {
		t.Errorf("factorial has %d instructions, want 13", len(m.Code.Bytecode))
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"missing name", `{"methods": []}`},
	}
	for _, tt := range tests {
		if _, err := Decode([]byte(tt.data)); err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestOpFields(t *testing.T) {
	c, err := Load("../testdata/decompiled/Array.json")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	m := c.Method("accessSafe")
	if m == nil {
		t.Fatalf("accessSafe not found")
	}
	get := m.Code.Bytecode[0]
	if get.Opr != "get" || get.Field == nil || get.Field.Name != "$assertionsDisabled" {
		t.Errorf("get record decoded wrong: %+v", get)
	}
	ifz := m.Code.Bytecode[1]
	if ifz.Condition != "ne" || ifz.Target != 12 {
		t.Errorf("ifz record decoded wrong: %+v", ifz)
	}
	ret := m.Code.Bytecode[len(m.Code.Bytecode)-1]
	if ret.Type == nil || *ret.Type != "int" {
		t.Errorf("return type decoded wrong: %+v", ret)
	}
	invoke := m.Code.Bytecode[10]
	if invoke.Method == nil || invoke.Method.Name != "<init>" || invoke.Access != "special" {
		t.Errorf("invoke record decoded wrong: %+v", invoke)
	}
	if invoke.Method.Returns != nil {
		t.Errorf("<init> should return void")
	}
}

func TestTableLookup(t *testing.T) {
	c, err := Load("../testdata/decompiled/Simple.json")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	table := NewTable(c)

	if _, err := table.Lookup(c.Name, "factorial"); err != nil {
		t.Errorf("lookup of a present method failed: %v", err)
	}
	if _, err := table.Lookup(c.Name, "missing"); !errors.Is(err, ErrUnresolvedMethod) {
		t.Errorf("expected ErrUnresolvedMethod, got %v", err)
	}
	if _, err := table.Lookup("nope/Nope", "factorial"); !errors.Is(err, ErrUnknownClass) {
		t.Errorf("expected ErrUnknownClass, got %v", err)
	}
}

func TestStubbedProvider(t *testing.T) {
	table := NewTable()
	provider := Stubbed(table)

	println, err := provider(PrintStreamClass, "println")
	if err != nil {
		t.Fatalf("println synthesis failed: %v", err)
	}
	if println.Code.Bytecode[1].Opr != "print" {
		t.Errorf("println body is not a print forwarder: %+v", println.Code.Bytecode)
	}

	stub, err := provider("some/Unknown", "whatever")
	if err != nil {
		t.Fatalf("stub synthesis failed: %v", err)
	}
	if stub.Returns == nil || !stub.Returns.IsInt() {
		t.Errorf("stub should declare an int return: %+v", stub.Returns)
	}
	if stub.Code.Bytecode[0].Opr != "push" {
		t.Errorf("stub body should push a constant: %+v", stub.Code.Bytecode)
	}
}

func TestTypeString(t *testing.T) {
	tests := []struct {
		typ  *Type
		want string
	}{
		{nil, "void"},
		{&Type{Base: "int"}, "int"},
		{&Type{Kind: "array", Elem: &Type{Base: "int"}}, "int[]"},
		{&Type{Kind: "class", Name: "java/lang/String"}, "java/lang/String"},
	}
	for _, tt := range tests {
		if got := tt.typ.String(); got != tt.want {
			t.Errorf("Type.String() = %q, want %q", got, tt.want)
		}
	}
}
