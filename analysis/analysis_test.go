package analysis

import (
	"errors"
	"testing"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/concolic"
	"github.com/dr8co/jive/object"
	"github.com/dr8co/jive/vm"
)

const (
	simpleClass = "dtu/compute/exec/Simple"
	arrayClass  = "dtu/compute/exec/Array"
	callsClass  = "dtu/compute/exec/Calls"
	arithClass  = "eu/bogoe/dtu/exceptional/Arithmetics"
)

func loadProvider(t *testing.T, files ...string) classfile.Provider {
	t.Helper()
	classes := make([]*classfile.Class, 0, len(files))
	for _, f := range files {
		c, err := classfile.Load("../testdata/decompiled/" + f)
		if err != nil {
			t.Fatalf("loading %s: %v", f, err)
		}
		classes = append(classes, c)
	}
	return classfile.Stubbed(classfile.NewTable(classes...))
}

func TestRunMethod(t *testing.T) {
	provider := loadProvider(t, "Simple.json")
	result, err := RunMethod(provider, simpleClass, "factorial", []any{5}, nil)
	if err != nil {
		t.Fatalf("factorial(5): %v", err)
	}
	if n, _ := object.AsInt(result); n != 120 {
		t.Errorf("factorial(5) = %v, want 120", result)
	}
}

func TestRunMethodException(t *testing.T) {
	provider := loadProvider(t, "Array.json")
	_, err := RunMethod(provider, arrayClass, "access", []any{-1, []int{0, 1, 3}}, nil)
	var exc *ExceptionError
	if !errors.As(err, &exc) {
		t.Fatalf("expected an ExceptionError, got %v", err)
	}
	if exc.Kind != vm.IndexOutOfBounds {
		t.Errorf("kind = %s, want IndexOutOfBounds", exc.Kind)
	}
}

func TestRunMethodOutputBuffer(t *testing.T) {
	provider := loadProvider(t, "Calls.json")
	var buf object.Buffer
	if _, err := RunMethod(provider, callsClass, "helloWorld", nil, &buf); err != nil {
		t.Fatalf("helloWorld: %v", err)
	}
	if buf.String() != "Hello, World!\n" {
		t.Errorf("buffer = %q", buf.String())
	}
}

func TestRunnerObservesMutation(t *testing.T) {
	provider := loadProvider(t, "Array.json")
	r := NewRunner(provider, nil)
	vals, err := r.Wrap([]any{[]int{3, 1, 2}})
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if _, err := r.Run(arrayClass, "bubbleSort", vals); err != nil {
		t.Fatalf("bubbleSort: %v", err)
	}
	arr, err := r.Heap().Array(vals[0])
	if err != nil {
		t.Fatalf("resolving the array: %v", err)
	}
	for i, want := range []int32{1, 2, 3} {
		if n, _ := object.AsInt(arr.Cells[i]); n != want {
			t.Errorf("cell %d = %d, want %d", i, n, want)
		}
	}
}

func TestRunMethodAnalysis(t *testing.T) {
	provider := loadProvider(t, "Arithmetics.json")
	kinds, err := RunMethodAnalysis(provider, arithClass, "alwaysThrows3")
	if err != nil {
		t.Fatalf("analysis: %v", err)
	}
	if !kinds[vm.ArithmeticException] {
		t.Errorf("verdicts = %v, want ArithmeticException present", kinds)
	}
}

func TestConcolicFacade(t *testing.T) {
	provider := loadProvider(t, "Arithmetics.json")

	res, err := Concolic(provider, arithClass, "alwaysThrows3", concolic.Options{})
	if err != nil {
		t.Fatalf("concolic: %v", err)
	}
	if res.Kind != vm.ArithmeticException || res.Witness[1] != 0 {
		t.Errorf("got %s witness=%v, want ArithmeticException with a zero divisor", res.Kind, res.Witness)
	}

	res, err = Concolic(provider, arithClass, "neverThrows5", concolic.Options{})
	if err != nil {
		t.Fatalf("concolic: %v", err)
	}
	if res.Kind != vm.No {
		t.Errorf("got %s, want No", res.Kind)
	}
}

// Soundness: every exception the concrete interpreter can reach shows up
// in the sign analyzer's verdict set.
func TestSignCoversConcreteExceptions(t *testing.T) {
	provider := loadProvider(t, "Array.json", "Arithmetics.json")

	tests := []struct {
		class, method string
		args          []any
		kind          vm.Kind
	}{
		{arithClass, "alwaysThrows1", nil, vm.ArithmeticException},
		{arithClass, "alwaysThrows3", []any{1, 0}, vm.ArithmeticException},
		{arrayClass, "accessSafe", []any{3, []int{0, 1, 3}}, vm.AssertionError},
	}
	for _, tt := range tests {
		_, err := RunMethod(provider, tt.class, tt.method, tt.args, nil)
		var exc *ExceptionError
		if !errors.As(err, &exc) || exc.Kind != tt.kind {
			t.Fatalf("%s.%s%v: expected concrete %s, got %v", tt.class, tt.method, tt.args, tt.kind, err)
		}
		kinds, err := RunMethodAnalysis(provider, tt.class, tt.method)
		if err != nil {
			t.Fatalf("%s.%s: sign analysis failed: %v", tt.class, tt.method, err)
		}
		if !kinds[tt.kind] {
			t.Errorf("%s.%s: sign verdicts %v miss the reachable %s", tt.class, tt.method, kinds, tt.kind)
		}
	}
}
