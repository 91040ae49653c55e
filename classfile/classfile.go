// Package classfile models decompiled class files as structured records.
//
// A decompiled class is a JSON document with a name and a list of method
// descriptors. Each method carries its typed parameter list, an optional
// return type, and a bytecode stream of tagged operation records. This
// package owns the record types, JSON decoding, and the class table that
// analyses resolve invocation targets against.
//
// The records here are raw: operation records keep the exact field names
// of the decompiled format (opr, offset, operant, condition, ...) and are
// not interpreted. The code package projects them into a typed
// instruction set; everything downstream works on that projection.
package classfile

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// Errors reported while resolving analysis targets.
var (
	// ErrUnknownClass is returned when a class name is not present in a Table.
	ErrUnknownClass = errors.New("unknown class")

	// ErrUnresolvedMethod is returned when a class exists but has no method
	// with the requested name.
	ErrUnresolvedMethod = errors.New("unresolved method")
)

// Type is a decompiled type reference. Exactly one representation is
// populated: Base for primitives ("int", "bool", ...), Kind "array" with
// Elem for arrays, or Kind "class" with Name for reference types.
type Type struct {
	Base string `json:"base,omitempty"`
	Kind string `json:"kind,omitempty"`
	Elem *Type  `json:"type,omitempty"`
	Name string `json:"name,omitempty"`
}

// IsInt reports whether the type is an integral primitive.
func (t *Type) IsInt() bool {
	switch t.Base {
	case "int", "integer", "byte", "short", "char":
		return true
	}
	return false
}

// IsBool reports whether the type is the boolean primitive.
func (t *Type) IsBool() bool { return t.Base == "boolean" || t.Base == "bool" }

// IsIntArray reports whether the type is a one-dimensional integral array.
func (t *Type) IsIntArray() bool {
	return t.Kind == "array" && t.Elem != nil && t.Elem.IsInt()
}

// String renders the type the way the decompiler names it.
func (t *Type) String() string {
	switch {
	case t == nil:
		return "void"
	case t.Kind == "array":
		return t.Elem.String() + "[]"
	case t.Kind == "class":
		return t.Name
	default:
		return t.Base
	}
}

// Literal is an embedded constant on a push record. The decompiler tags
// the constant with a type name; Value is the raw JSON scalar.
type Literal struct {
	Type  string `json:"type"`
	Value any    `json:"value"`
}

// Int returns the literal as an int32. JSON numbers arrive as float64.
func (l *Literal) Int() (int32, bool) {
	switch v := l.Value.(type) {
	case float64:
		return int32(v), true
	case int:
		return int32(v), true
	case int32:
		return v, true
	}
	return 0, false
}

// Bool returns the literal as a bool.
func (l *Literal) Bool() (bool, bool) {
	b, ok := l.Value.(bool)
	return b, ok
}

// Str returns the literal as a string.
func (l *Literal) Str() (string, bool) {
	s, ok := l.Value.(string)
	return s, ok
}

// Field identifies a field access target on a get record.
type Field struct {
	Name string `json:"name"`
	Type Type   `json:"type"`
}

// Ref is a reference to a declaring class.
type Ref struct {
	Name string `json:"name"`
}

// MethodRef identifies an invocation target on an invoke record.
type MethodRef struct {
	Ref     Ref     `json:"ref"`
	Name    string  `json:"name"`
	Args    []Type  `json:"args"`
	Returns *Type   `json:"returns"`
}

// Op is one raw bytecode operation record. Every record has an opr tag and
// a source offset; the remaining fields are populated per tag. The type
// field is a plain string in this format (element type on newarray, value
// kind on load/store/binary, return kind or null on return).
type Op struct {
	Opr       string     `json:"opr"`
	Offset    int        `json:"offset"`
	Value     *Literal   `json:"value,omitempty"`
	Index     int        `json:"index,omitempty"`
	Amount    int        `json:"amount,omitempty"`
	Operant   string     `json:"operant,omitempty"`
	Condition string     `json:"condition,omitempty"`
	Target    int        `json:"target,omitempty"`
	Type      *string    `json:"type,omitempty"`
	Class     string     `json:"class,omitempty"`
	Field     *Field     `json:"field,omitempty"`
	Method    *MethodRef `json:"method,omitempty"`
	Access    string     `json:"access,omitempty"`
}

// Param is one declared method parameter.
type Param struct {
	Type Type `json:"type"`
}

// Code is a method body.
type Code struct {
	MaxLocals int  `json:"max_locals,omitempty"`
	MaxStack  int  `json:"max_stack,omitempty"`
	Bytecode  []Op `json:"bytecode"`
}

// Method is one decompiled method descriptor.
type Method struct {
	Name    string  `json:"name"`
	Params  []Param `json:"params"`
	Returns *Type   `json:"returns"`
	Code    Code    `json:"code"`
}

// Class is one decompiled class: a name and its method table.
type Class struct {
	Name    string   `json:"name"`
	Methods []Method `json:"methods"`
}

// Method returns the named method, or nil if the class has none.
func (c *Class) Method(name string) *Method {
	for i := range c.Methods {
		if c.Methods[i].Name == name {
			return &c.Methods[i]
		}
	}
	return nil
}

// Decode parses one decompiled class document.
func Decode(data []byte) (*Class, error) {
	var c Class
	if err := json.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("decoding class record: %w", err)
	}
	if c.Name == "" {
		return nil, fmt.Errorf("decoding class record: missing class name")
	}
	return &c, nil
}

// Load reads and decodes a decompiled class file.
func Load(path string) (*Class, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Decode(data)
}

// Table is an immutable collection of classes keyed by name. All classes
// participating in one analysis run are owned by a single table and
// referenced by name, so mutual recursion across invokes needs no object
// cycles.
type Table struct {
	classes map[string]*Class
}

// NewTable builds a table from the given classes. Later duplicates win.
func NewTable(classes ...*Class) *Table {
	m := make(map[string]*Class, len(classes))
	for _, c := range classes {
		m[c.Name] = c
	}
	return &Table{classes: m}
}

// Class returns the named class, or nil if the table has no entry.
func (t *Table) Class(name string) *Class {
	return t.classes[name]
}

// Lookup resolves a class/method pair or reports which half is missing.
func (t *Table) Lookup(class, method string) (*Method, error) {
	c := t.Class(class)
	if c == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	m := c.Method(method)
	if m == nil {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnresolvedMethod, class, method)
	}
	return m, nil
}

// Names returns the class names in the table, in no particular order.
func (t *Table) Names() []string {
	names := make([]string, 0, len(t.classes))
	for name := range t.classes {
		names = append(names, name)
	}
	return names
}
