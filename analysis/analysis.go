// Package analysis is the façade over the three interpreters: concrete
// evaluation, sign-lattice abstract interpretation, and concolic input
// search. Each entry point constructs its own machine, heap, and (for
// concolic) solver, so invocations share no mutable state.
package analysis

import (
	"fmt"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/concolic"
	"github.com/dr8co/jive/object"
	"github.com/dr8co/jive/sign"
	"github.com/dr8co/jive/vm"
)

// ExceptionError is how an analysis-domain exception surfaces from
// concrete evaluation: a tagged error wrapping the verdict kind.
type ExceptionError struct {
	Kind vm.Kind
}

// Error returns the verdict name.
func (e *ExceptionError) Error() string { return e.Kind.String() }

// Runner evaluates methods concretely against one heap and one output
// buffer. Wrapping arguments through the runner keeps references into its
// heap valid across the call, so callers can observe array mutation.
type Runner struct {
	machine *vm.Machine
}

// NewRunner creates a concrete runner. A nil buffer allocates a private one.
func NewRunner(provider classfile.Provider, out *object.Buffer) *Runner {
	return &Runner{machine: vm.New(provider, vm.Concrete{}, out)}
}

// Wrap promotes ordinary Go values into runtime values on the runner's
// heap. Returned references stay valid for later inspection.
func (r *Runner) Wrap(args []any) ([]object.Value, error) {
	return object.Wrap(r.machine.Heap, args)
}

// Heap exposes the runner's heap for inspecting results.
func (r *Runner) Heap() *object.Heap { return r.machine.Heap }

// Output returns everything printed so far.
func (r *Runner) Output() string { return r.machine.Out.String() }

// Run evaluates one method with the given argument values. A raised
// exception surfaces as an ExceptionError; the returned value is nil for
// void methods.
func (r *Runner) Run(class, method string, args []object.Value) (object.Value, error) {
	out, err := r.machine.Run(class, method, args)
	if err != nil {
		return nil, err
	}
	if k, raised := out.Exception(); raised {
		return nil, &ExceptionError{Kind: k}
	}
	if out.Kinds[vm.Maybe] {
		return nil, fmt.Errorf("%s.%s: step cap exhausted", class, method)
	}
	return out.Result, nil
}

// RunMethod evaluates one method concretely: arguments are ordinary Go
// values (ints, bools, int slices), the result is a runtime value, and a
// raised exception surfaces as an ExceptionError. Output written by print
// instructions goes to out when non-nil.
func RunMethod(provider classfile.Provider, class, method string, args []any, out *object.Buffer) (object.Value, error) {
	r := NewRunner(provider, out)
	vals, err := r.Wrap(args)
	if err != nil {
		return nil, err
	}
	return r.Run(class, method, vals)
}

// RunMethodAnalysis runs the sign-lattice analysis on one method,
// synthesizing unknown values for its parameters, and returns the set of
// observed verdicts.
func RunMethodAnalysis(provider classfile.Provider, class, method string) (map[vm.Kind]bool, error) {
	return sign.Analyze(provider, class, method)
}

// Concolic runs the concolic input search on one method. The result
// carries the verdict, a witness assignment for exception verdicts, and
// the log of explored paths.
func Concolic(provider classfile.Provider, class, method string, opts concolic.Options) (*concolic.Result, error) {
	return concolic.Explore(provider, class, method, opts)
}
