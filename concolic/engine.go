package concolic

import (
	"fmt"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/solver"
	"github.com/dr8co/jive/vm"
)

// Default exploration caps.
const (
	// DefaultStepCap bounds instructions per path; a path exceeding it is
	// recorded as Maybe.
	DefaultStepCap = 1000

	// DefaultQueryCap bounds solver queries, and with them the number of
	// explored paths.
	DefaultQueryCap = 32
)

// Options configure one exploration.
type Options struct {
	StepCap  int
	QueryCap int
}

func (o Options) withDefaults() Options {
	if o.StepCap <= 0 {
		o.StepCap = DefaultStepCap
	}
	if o.QueryCap <= 0 {
		o.QueryCap = DefaultQueryCap
	}
	return o
}

// PathRun is the record of one completed path: the concrete inputs that
// selected it, the verdict it terminated with, and the conjunction of its
// path condition.
type PathRun struct {
	Inputs     []int32
	Kind       vm.Kind
	Constraint *solver.Pred
}

// Result is the outcome of an exploration. Kind is the verdict; Witness
// is the concrete parameter assignment that triggers it (array parameters
// are represented by their length), re-solved from the selected path; it
// is nil when Kind is No and set for exception and Maybe verdicts.
// Paths logs every completed run, in exploration order.
type Result struct {
	Kind    vm.Kind
	Witness []int32
	Paths   []PathRun
}

// Explore runs the concolic loop on one method: draw a model, execute
// the path it selects, assert the negated path condition, and repeat
// until the solver reports unsat or a cap is exhausted.
func Explore(provider classfile.Provider, class, method string, opts Options) (*Result, error) {
	opts = opts.withDefaults()
	target, err := provider(class, method)
	if err != nil {
		return nil, err
	}

	slv := solver.New()
	for i := range target.Params {
		t := &target.Params[i].Type
		if t.Kind == "array" {
			// Keep synthesized arrays allocatable: the symbolic length
			// carries the same bounds the seed allocation enforces.
			length := solver.IntVar(LenParamName(i))
			slv.Assert(solver.Cmp(solver.Ge, length, solver.IntVal(0)))
			slv.Assert(solver.Cmp(solver.Le, length, solver.IntVal(maxSeedArrayLen)))
		}
	}

	var paths []PathRun
	for q := 0; q < opts.QueryCap; q++ {
		model, sat := slv.Check()
		if !sat {
			break
		}
		sem := NewSemantics(model)
		m := vm.New(provider, sem, nil)
		m.StepCap = opts.StepCap
		sem.attach(m)
		out, err := m.Run(class, method, nil)
		if err != nil {
			return nil, err
		}
		kind := vm.No
		if k, raised := out.Exception(); raised {
			kind = k
		} else if out.Kinds[vm.Maybe] {
			kind = vm.Maybe
		}
		constraint := solver.And(sem.Path()...)
		paths = append(paths, PathRun{Inputs: sem.Inputs(), Kind: kind, Constraint: constraint})
		slv.Assert(solver.Not(constraint))
	}

	res := &Result{Kind: vm.No, Paths: paths}
	for _, p := range paths {
		if p.Kind == vm.No || p.Kind == vm.AssertionError {
			continue
		}
		witness, err := witnessOf(target, p.Constraint)
		if err != nil {
			return nil, err
		}
		res.Kind = p.Kind
		res.Witness = witness
		return res, nil
	}
	return res, nil
}

// witnessOf re-solves a recorded path constraint to produce the concrete
// parameter assignment reported with the verdict.
func witnessOf(target *classfile.Method, constraint *solver.Pred) ([]int32, error) {
	model, sat := solver.Solve(constraint)
	if !sat {
		return nil, fmt.Errorf("recorded path constraint became unsat: %s", constraint)
	}
	witness := make([]int32, 0, len(target.Params))
	for i := range target.Params {
		t := &target.Params[i].Type
		switch {
		case t.IsBool():
			witness = append(witness, b2i(model.Bool(IntParamName(i))))
		case t.Kind == "array":
			witness = append(witness, model.Int(LenParamName(i)))
		default:
			witness = append(witness, model.Int(IntParamName(i)))
		}
	}
	return witness, nil
}
