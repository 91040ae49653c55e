// Package vm implements the stack-frame bytecode dispatcher shared by the
// concrete, sign, and concolic analyses.
//
// The dispatcher is abstracted over a value semantics: it owns the call
// stack, the worklist of pending paths, the heap, and the output buffer,
// while the active [Semantics] decides what each instruction does to the
// values and reports the result as a control [Effect]. One step loop
// therefore serves three interpreters:
//
//   - the concrete semantics computes actual results,
//   - the sign semantics splits paths and relies on the worklist plus the
//     seen-set to reach a fixpoint,
//   - the concolic semantics runs one concrete path while recording
//     symbolic branch conditions on the side.
//
// Execution Model:
//
// A path is a call stack of frames. The machine pops a path from the
// worklist and steps its top frame until the path returns from its entry
// frame, raises an exception verdict, splits, or exceeds the step cap.
// Splits push their unseen successor states back onto the worklist (LIFO,
// so exploration is depth-first and reproducible). Exceptions never
// unwind through handlers; they terminate the path and are recorded on
// the outcome.
package vm

import (
	"errors"
	"fmt"

	"github.com/dr8co/jive/classfile"
	"github.com/dr8co/jive/code"
	"github.com/dr8co/jive/object"
)

// ErrMalformedBytecode is returned when execution runs off the end of a
// method, underflows the operand stack, or meets an instruction the
// active semantics cannot type.
var ErrMalformedBytecode = errors.New("malformed bytecode")

// DefaultStepCap bounds the number of instructions one path may execute.
const DefaultStepCap = 100_000

// Semantics is the capability set a value domain plugs into the
// dispatcher.
type Semantics interface {
	// Literal converts an embedded constant into a domain value.
	Literal(lit *classfile.Literal) (object.Value, error)

	// Param synthesizes the value of parameter i when the caller did not
	// supply arguments (abstract and symbolic modes).
	Param(i int, t *classfile.Type) (object.Value, error)

	// Step executes one instruction against the current frame and
	// reports the resulting control effect.
	Step(m *Machine, f *Frame, in *code.Instruction) (Effect, error)
}

// Outcome is what one Run observed: the set of path verdicts, and the
// value returned by the entry method on the most recent normally-ending
// path (meaningful for deterministic semantics, where there is exactly
// one).
type Outcome struct {
	Kinds  map[Kind]bool
	Result object.Value
}

func newOutcome() *Outcome {
	return &Outcome{Kinds: make(map[Kind]bool)}
}

func (o *Outcome) record(k Kind) { o.Kinds[k] = true }

// Exception returns the raised exception kind, if any path raised one.
// When several kinds were observed an arbitrary one is returned.
func (o *Outcome) Exception() (Kind, bool) {
	for k := range o.Kinds {
		if k.IsException() {
			return k, true
		}
	}
	return No, false
}

// Machine is the dispatcher: one per analysis invocation. It owns the
// heap, the output buffer, the worklist, and the seen-set; the semantics
// and class provider are injected.
type Machine struct {
	Provider classfile.Provider
	Sem      Semantics
	Heap     *object.Heap
	Out      *object.Buffer

	// StepCap bounds instructions per path; the run degrades to a Maybe
	// verdict when a path exhausts it.
	StepCap int

	work    []path
	seen    map[string]bool
	decoded map[*classfile.Method]code.Instructions
	outcome *Outcome
}

// path is a call stack; the last frame is executing.
type path []*Frame

// New creates a machine for one analysis invocation.
func New(provider classfile.Provider, sem Semantics, out *object.Buffer) *Machine {
	if out == nil {
		out = &object.Buffer{}
	}
	return &Machine{
		Provider: provider,
		Sem:      sem,
		Heap:     object.NewHeap(),
		Out:      out,
		StepCap:  DefaultStepCap,
		seen:     make(map[string]bool),
		decoded:  make(map[*classfile.Method]code.Instructions),
	}
}

// Record notes a verdict without terminating the current path. The sign
// domain uses it when an instruction both may raise and may continue
// (a divisor whose sign contains zero, an index that may be negative).
func (m *Machine) Record(k Kind) {
	m.outcome.record(k)
}

// instructions decodes a method body, caching per descriptor.
func (m *Machine) instructions(method *classfile.Method) (code.Instructions, error) {
	if ins, ok := m.decoded[method]; ok {
		return ins, nil
	}
	ins, err := code.Decode(method)
	if err != nil {
		return nil, err
	}
	m.decoded[method] = ins
	return ins, nil
}

// entryFrame resolves the entry method and builds its first frame. When
// args is nil the semantics synthesizes one value per declared parameter.
func (m *Machine) entryFrame(class, methodName string, args []object.Value) (*Frame, error) {
	method, err := m.Provider(class, methodName)
	if err != nil {
		return nil, err
	}
	ins, err := m.instructions(method)
	if err != nil {
		return nil, err
	}
	if args == nil {
		for i := range method.Params {
			v, err := m.Sem.Param(i, &method.Params[i].Type)
			if err != nil {
				return nil, err
			}
			args = append(args, v)
		}
	} else if len(args) != len(method.Params) {
		return nil, fmt.Errorf("%s.%s: got %d arguments, declared %d",
			class, methodName, len(args), len(method.Params))
	}
	return NewFrame(method, ins, args), nil
}

// Run analyzes one method. With explicit args it behaves like a single
// deterministic execution; with nil args the semantics synthesizes the
// parameters and may explore many paths.
func (m *Machine) Run(class, methodName string, args []object.Value) (*Outcome, error) {
	entry, err := m.entryFrame(class, methodName, args)
	if err != nil {
		return nil, err
	}
	m.outcome = newOutcome()
	m.work = []path{{entry}}
	for len(m.work) > 0 {
		p := m.work[len(m.work)-1]
		m.work = m.work[:len(m.work)-1]
		if err := m.runPath(p); err != nil {
			return nil, err
		}
	}
	if len(m.outcome.Kinds) == 0 {
		// Every pending state was pruned by the seen-set: the analysis
		// reached its fixpoint without any path terminating.
		m.outcome.record(Maybe)
	}
	return m.outcome, nil
}

// runPath steps one path to completion: a Return from the entry frame, a
// Raise, a Split (which reschedules through the worklist), or the step
// cap.
func (m *Machine) runPath(p path) error {
	for steps := 0; steps < m.StepCap; steps++ {
		f := p[len(p)-1]
		if f.PC < 0 || f.PC >= len(f.Code) {
			return fmt.Errorf("%w: pc %d outside %s (%d instructions)",
				ErrMalformedBytecode, f.PC, f.Method.Name, len(f.Code))
		}
		eff, err := m.Sem.Step(m, f, &f.Code[f.PC])
		if err != nil {
			return err
		}
		switch eff := eff.(type) {
		case Continue:
			f.PC++
		case Jump:
			f.PC = eff.Target
		case Call:
			callee, err := m.Provider(eff.Class, eff.Method)
			if err != nil {
				return err
			}
			ins, err := m.instructions(callee)
			if err != nil {
				return err
			}
			nf := NewFrame(callee, ins, eff.Args)
			nf.pushResult = eff.Returns
			p = append(p, nf)
		case Return:
			p = p[:len(p)-1]
			if len(p) == 0 {
				m.outcome.record(No)
				m.outcome.Result = eff.Value
				return nil
			}
			caller := p[len(p)-1]
			if f.pushResult && eff.Value != nil {
				caller.Push(eff.Value)
			}
			caller.PC++
		case Raise:
			m.outcome.record(eff.Kind)
			return nil
		case Split:
			for i := len(eff.Branches) - 1; i >= 0; i-- {
				nf := f.fork(eff.Branches[i])
				key := nf.describe()
				if m.seen[key] {
					continue
				}
				m.seen[key] = true
				np := make(path, len(p))
				copy(np, p)
				np[len(np)-1] = nf
				m.work = append(m.work, np)
			}
			return nil
		default:
			return fmt.Errorf("%w: unknown control effect %T", ErrMalformedBytecode, eff)
		}
	}
	m.outcome.record(Maybe)
	return nil
}
