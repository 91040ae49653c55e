package classfile

// PrintStreamClass is the console stream class whose print methods are
// modeled by a synthetic implementation instead of real bytecode.
const PrintStreamClass = "java/io/PrintStream"

// Provider resolves an invocation target to a method descriptor. The
// dispatcher calls it for every invoke and for the analysis entry point.
type Provider func(class, method string) (*Method, error)

// Resolver returns a strict provider over the table: unknown targets fail
// with ErrUnknownClass or ErrUnresolvedMethod.
func (t *Table) Resolver() Provider {
	return t.Lookup
}

// Stubbed returns a provider that falls back to synthetic methods for
// targets outside the table. The console print methods get a body that
// forwards their argument to the output buffer; any other unknown target
// becomes a one-value stub so analysis can make progress without
// cross-project linking.
func Stubbed(t *Table) Provider {
	return func(class, method string) (*Method, error) {
		if m, err := t.Lookup(class, method); err == nil {
			return m, nil
		}
		if class == PrintStreamClass {
			switch method {
			case "println":
				return printlnMethod, nil
			case "print":
				return printMethod, nil
			}
		}
		return stubMethod(method), nil
	}
}

func strp(s string) *string { return &s }

// printlnMethod forwards local slot 1 (the argument; slot 0 holds the
// stream receiver) to the output buffer and appends a newline.
var printlnMethod = &Method{
	Name: "println",
	Code: Code{Bytecode: []Op{
		{Opr: "load", Offset: 0, Index: 1, Type: strp("ref")},
		{Opr: "print", Offset: 1},
		{Opr: "push", Offset: 2, Value: &Literal{Type: "string", Value: "\n"}},
		{Opr: "print", Offset: 3},
		{Opr: "return", Offset: 4},
	}},
}

// printMethod is println without the trailing newline.
var printMethod = &Method{
	Name: "print",
	Code: Code{Bytecode: []Op{
		{Opr: "load", Offset: 0, Index: 1, Type: strp("ref")},
		{Opr: "print", Offset: 1},
		{Opr: "return", Offset: 2},
	}},
}

// stubMethod models an unresolved target as returning the neutral integer.
// The caller only pushes the result when the invoke record declares a
// non-void return, so the stub works for void targets too.
func stubMethod(name string) *Method {
	intType := Type{Base: "int"}
	return &Method{
		Name:    name,
		Returns: &intType,
		Code: Code{Bytecode: []Op{
			{Opr: "push", Offset: 0, Value: &Literal{Type: "integer", Value: float64(0)}},
			{Opr: "return", Offset: 1, Type: strp("int")},
		}},
	}
}
