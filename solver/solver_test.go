package solver

import (
	"math"
	"testing"
)

func TestSolveSimpleEquality(t *testing.T) {
	x := IntVar("x")
	model, sat := Solve(Cmp(Eq, Add(x, IntVal(3)), IntVal(10)))
	if !sat {
		t.Fatalf("x + 3 == 10 should be sat")
	}
	if got := model.Int("x"); got != 7 {
		t.Errorf("x = %d, want 7", got)
	}
}

func TestSolveUnsat(t *testing.T) {
	x := IntVar("x")
	p := And(
		Cmp(Gt, x, IntVal(0)),
		Cmp(Lt, x, IntVal(0)),
	)
	if _, sat := Solve(p); sat {
		t.Errorf("x > 0 && x < 0 should be unsat")
	}
}

func TestSolveOrdering(t *testing.T) {
	x, y := IntVar("x"), IntVar("y")
	model, sat := Solve(And(
		Cmp(Lt, x, y),
		Cmp(Lt, y, IntVal(-5)),
	))
	if !sat {
		t.Fatalf("x < y < -5 should be sat")
	}
	if !(model.Int("x") < model.Int("y") && model.Int("y") < -5) {
		t.Errorf("model violates the ordering: x=%d y=%d", model.Int("x"), model.Int("y"))
	}
}

func TestSolveMultiplication(t *testing.T) {
	x := IntVar("x")
	model, sat := Solve(Cmp(Eq, Mul(IntVal(3), x), IntVal(12)))
	if !sat {
		t.Fatalf("3x == 12 should be sat")
	}
	// 3 is odd, hence invertible modulo 2^32: the solution is unique.
	if got := model.Int("x"); got != 4 {
		t.Errorf("x = %d, want 4", got)
	}
}

func TestSolveSubtractionAndNegation(t *testing.T) {
	x := IntVar("x")
	model, sat := Solve(Cmp(Eq, Sub(IntVal(2), x), IntVal(9)))
	if !sat {
		t.Fatalf("2 - x == 9 should be sat")
	}
	if got := model.Int("x"); got != -7 {
		t.Errorf("x = %d, want -7", got)
	}

	model, sat = Solve(Cmp(Eq, Neg(x), IntVal(5)))
	if !sat {
		t.Fatalf("-x == 5 should be sat")
	}
	if got := model.Int("x"); got != -5 {
		t.Errorf("x = %d, want -5", got)
	}
}

func TestWrapAround(t *testing.T) {
	x := IntVar("x")
	model, sat := Solve(Cmp(Eq, Add(x, IntVal(1)), IntVal(math.MinInt32)))
	if !sat {
		t.Fatalf("x + 1 == MinInt32 should be sat")
	}
	if got := model.Int("x"); got != math.MaxInt32 {
		t.Errorf("x = %d, want MaxInt32", got)
	}
}

func TestBoolVars(t *testing.T) {
	p := And(BoolVar("a"), Not(BoolVar("b")))
	model, sat := Solve(p)
	if !sat {
		t.Fatalf("a && !b should be sat")
	}
	if !model.Bool("a") || model.Bool("b") {
		t.Errorf("model violates the formula: a=%v b=%v", model.Bool("a"), model.Bool("b"))
	}
}

func TestIncrementalNegation(t *testing.T) {
	// The concolic loop's shape: assert the negation of each model found
	// until the space is exhausted.
	x := IntVar("x")
	s := New()
	s.Assert(Cmp(Ge, x, IntVal(0)))
	s.Assert(Cmp(Lt, x, IntVal(3)))

	seen := map[int32]bool{}
	for range 4 {
		model, sat := s.Check()
		if !sat {
			break
		}
		v := model.Int("x")
		if v < 0 || v >= 3 {
			t.Fatalf("model %d outside the asserted range", v)
		}
		if seen[v] {
			t.Fatalf("model %d repeated despite its negation", v)
		}
		seen[v] = true
		s.Assert(Cmp(Ne, x, IntVal(v)))
	}
	if len(seen) != 3 {
		t.Errorf("enumerated %d models, want 3", len(seen))
	}
}

func TestEmptySolverIsSat(t *testing.T) {
	s := New()
	model, sat := s.Check()
	if !sat {
		t.Fatalf("an empty solver must be sat")
	}
	// Completion: unconstrained variables read as zero.
	if got := model.Int("anything"); got != 0 {
		t.Errorf("completion gave %d, want 0", got)
	}
}

func TestConstantFolding(t *testing.T) {
	if got := Add(IntVal(2), IntVal(3)); got.Kind != TConst || got.Value != 5 {
		t.Errorf("2 + 3 folded to %v", got)
	}
	if got := Mul(IntVal(4), IntVal(-2)); got.Kind != TConst || got.Value != -8 {
		t.Errorf("4 * -2 folded to %v", got)
	}
	if p := Cmp(Lt, IntVal(1), IntVal(2)); p != True {
		t.Errorf("1 < 2 folded to %v", p)
	}
	if p := Cmp(Eq, IntVal(1), IntVal(2)); p != False {
		t.Errorf("1 == 2 folded to %v", p)
	}
	if p := And(True, True); p != True {
		t.Errorf("And(True, True) = %v", p)
	}
	if p := And(True, False); p != False {
		t.Errorf("And(True, False) = %v", p)
	}
	if p := Not(Cmp(Eq, IntVar("x"), IntVal(0))); p.Op != Ne {
		t.Errorf("negating a comparison should flip the operator, got %v", p)
	}
}

func TestPredString(t *testing.T) {
	p := And(
		Cmp(Ne, IntVar("p1"), IntVal(0)),
		Cmp(Ge, IntVar("p0"), IntVar("p1")),
	)
	want := "((p1 != 0) && (p0 >= p1))"
	if got := p.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
