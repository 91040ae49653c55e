package object

import (
	"errors"
	"testing"
)

func TestArithmetic(t *testing.T) {
	tests := []struct {
		name string
		op   func(a, b Value) (Value, error)
		a, b int32
		want int32
	}{
		{"add", Add, 2, 3, 5},
		{"add negative", Add, -2, 3, 1},
		{"sub", Sub, 2, 3, -1},
		{"mul", Mul, -4, 3, -12},
		{"div", Div, 7, 2, 3},
		{"div negative", Div, -7, 2, -3},
	}
	for _, tt := range tests {
		got, err := tt.op(&Int{Value: tt.a}, &Int{Value: tt.b})
		if err != nil {
			t.Fatalf("%s: %v", tt.name, err)
		}
		n, ok := AsInt(got)
		if !ok || n != tt.want {
			t.Errorf("%s: got %v, want %d", tt.name, got, tt.want)
		}
	}
}

func TestDivByZero(t *testing.T) {
	_, err := Div(&Int{Value: 1}, &Int{Value: 0})
	if !errors.Is(err, ErrDivisionByZero) {
		t.Errorf("expected ErrDivisionByZero, got %v", err)
	}
}

func TestTypeMismatch(t *testing.T) {
	_, err := Add(&Int{Value: 1}, &Str{Value: "x"})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	_, err = Neg(&Null{})
	if !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	if _, err := Compare(&Int{Value: 1}, &Ref{ID: 0}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
}

func TestCompare(t *testing.T) {
	tests := []struct {
		a, b int32
		want int
	}{
		{1, 2, -1},
		{2, 2, 0},
		{3, 2, 1},
		{-1, 1, -1},
	}
	for _, tt := range tests {
		got, err := Compare(&Int{Value: tt.a}, &Int{Value: tt.b})
		if err != nil {
			t.Fatalf("compare(%d, %d): %v", tt.a, tt.b, err)
		}
		if got != tt.want {
			t.Errorf("compare(%d, %d) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestBoolWidening(t *testing.T) {
	cmp, err := Compare(&Bool{Value: true}, &Int{Value: 0})
	if err != nil {
		t.Fatalf("compare bool: %v", err)
	}
	if cmp != 1 {
		t.Errorf("true should compare above zero, got %d", cmp)
	}
}

func TestHeapArrays(t *testing.T) {
	h := NewHeap()
	ref, arr := h.AllocArray("int", 3)

	if arr.Len() != 3 {
		t.Fatalf("length is %d, want 3", arr.Len())
	}
	if err := arr.Set(2, &Int{Value: 9}); err != nil {
		t.Fatalf("in-range set failed: %v", err)
	}
	v, err := arr.At(2)
	if err != nil {
		t.Fatalf("in-range get failed: %v", err)
	}
	if n, _ := AsInt(v); n != 9 {
		t.Errorf("cell holds %v, want 9", v)
	}

	if _, err := arr.At(3); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected ErrIndexOutOfBounds, got %v", err)
	}
	if _, err := arr.At(-1); !errors.Is(err, ErrIndexOutOfBounds) {
		t.Errorf("expected ErrIndexOutOfBounds, got %v", err)
	}

	back, err := h.Array(ref)
	if err != nil {
		t.Fatalf("resolving the ref failed: %v", err)
	}
	if back != arr {
		t.Errorf("ref resolves to a different array")
	}
}

func TestHeapErrors(t *testing.T) {
	h := NewHeap()
	if _, err := h.Array(&Null{}); !errors.Is(err, ErrNullReference) {
		t.Errorf("expected ErrNullReference, got %v", err)
	}
	if _, err := h.Array(&Int{Value: 3}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch, got %v", err)
	}
	ref := h.AllocInstance("java/lang/AssertionError")
	if _, err := h.Array(ref); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("an instance ref should not resolve as an array")
	}
	inst, err := h.Instance(ref)
	if err != nil {
		t.Fatalf("resolving the instance failed: %v", err)
	}
	if inst.Class != "java/lang/AssertionError" {
		t.Errorf("instance class is %q", inst.Class)
	}
}

func TestWrap(t *testing.T) {
	h := NewHeap()
	vals, err := Wrap(h, []any{5, true, []int{1, 2, 3}, nil})
	if err != nil {
		t.Fatalf("wrap failed: %v", err)
	}
	if len(vals) != 4 {
		t.Fatalf("wrapped %d values, want 4", len(vals))
	}
	if n, _ := AsInt(vals[0]); n != 5 {
		t.Errorf("vals[0] = %v", vals[0])
	}
	if b, ok := vals[1].(*Bool); !ok || !b.Value {
		t.Errorf("vals[1] = %v", vals[1])
	}
	arr, err := h.Array(vals[2])
	if err != nil {
		t.Fatalf("wrapped slice is not an array ref: %v", err)
	}
	if arr.Len() != 3 {
		t.Errorf("wrapped array length %d", arr.Len())
	}
	if _, ok := vals[3].(*Null); !ok {
		t.Errorf("vals[3] = %v", vals[3])
	}

	if _, err := Wrap(h, []any{3.14}); !errors.Is(err, ErrTypeMismatch) {
		t.Errorf("expected ErrTypeMismatch for a float, got %v", err)
	}
}

func TestInspect(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{&Int{Value: -3}, "-3"},
		{&Bool{Value: false}, "false"},
		{&Str{Value: "hi"}, "hi"},
		{&Null{}, "null"},
		{&Ref{ID: 2}, "ref(2)"},
	}
	for _, tt := range tests {
		if got := tt.v.Inspect(); got != tt.want {
			t.Errorf("Inspect() = %q, want %q", got, tt.want)
		}
	}
}
