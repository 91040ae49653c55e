package repl

import (
	"reflect"
	"testing"

	"github.com/dr8co/jive/classfile"
)

func TestParseCall(t *testing.T) {
	tests := []struct {
		input  string
		class  string
		method string
		args   []any
	}{
		{"Simple.factorial(5)", "Simple", "factorial", []any{5}},
		{"Simple.noop()", "Simple", "noop", nil},
		{"Simple.noop", "Simple", "noop", nil},
		{"Simple.min(1, -1)", "Simple", "min", []any{1, -1}},
		{"Array.access(2, [0, 1, 3])", "Array", "access", []any{2, []int{0, 1, 3}}},
		{"Array.first([])", "Array", "first", []any{[]int{}}},
		{"Flags.check(true, false)", "Flags", "check", []any{true, false}},
		{"dtu/compute/exec/Simple.add(1, 2)", "dtu/compute/exec/Simple", "add", []any{1, 2}},
	}
	for _, tt := range tests {
		call, err := ParseCall(tt.input)
		if err != nil {
			t.Fatalf("%q: %v", tt.input, err)
		}
		if call.Class != tt.class || call.Method != tt.method {
			t.Errorf("%q parsed as %s.%s", tt.input, call.Class, call.Method)
		}
		if !reflect.DeepEqual(call.Args, tt.args) {
			t.Errorf("%q args = %#v, want %#v", tt.input, call.Args, tt.args)
		}
	}
}

func TestParseCallErrors(t *testing.T) {
	tests := []string{
		"factorial(5)",
		"Simple.factorial(5",
		"Simple.factorial(5,)",
		"Simple.factorial(x)",
		"Simple.factorial([1, 2)",
		".method(1)",
		"Class.(1)",
	}
	for _, input := range tests {
		if _, err := ParseCall(input); err == nil {
			t.Errorf("%q: expected a parse error", input)
		}
	}
}

func TestResolveClass(t *testing.T) {
	table := classfile.NewTable(
		&classfile.Class{Name: "dtu/compute/exec/Simple"},
		&classfile.Class{Name: "eu/bogoe/dtu/exceptional/Arithmetics"},
	)

	tests := []struct {
		name string
		want string
		ok   bool
	}{
		{"Simple", "dtu/compute/exec/Simple", true},
		{"dtu/compute/exec/Simple", "dtu/compute/exec/Simple", true},
		{"Arithmetics", "eu/bogoe/dtu/exceptional/Arithmetics", true},
		{"Missing", "", false},
	}
	for _, tt := range tests {
		got, ok := ResolveClass(table, tt.name)
		if ok != tt.ok || got != tt.want {
			t.Errorf("ResolveClass(%q) = %q, %v; want %q, %v", tt.name, got, ok, tt.want, tt.ok)
		}
	}
}

func TestModeString(t *testing.T) {
	tests := []struct {
		mode Mode
		want string
	}{
		{ModeConcrete, "concrete"},
		{ModeSign, "sign"},
		{ModeConcolic, "concolic"},
	}
	for _, tt := range tests {
		if got := tt.mode.String(); got != tt.want {
			t.Errorf("Mode(%d).String() = %q, want %q", tt.mode, got, tt.want)
		}
	}
}
