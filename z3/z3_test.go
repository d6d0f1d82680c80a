package z3_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/pathcond"
	"github.com/benbjohnson/pathcond/z3"
)

func TestSolver_Query(t *testing.T) {
	t.Run("Constant", func(t *testing.T) {
		t.Run("True", func(t *testing.T) {
			a := pathcond.NewArena()
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if v, err := s.Query(context.Background(), nil, a.True()); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeTrue {
				t.Fatalf("unexpected validity: %s", v)
			}
		})
		t.Run("False", func(t *testing.T) {
			a := pathcond.NewArena()
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if v, err := s.Query(context.Background(), nil, a.False()); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeFalse {
				t.Fatalf("unexpected validity: %s", v)
			}
		})
	})

	t.Run("MustBeTrue", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := a.Read("x", 32)
		constraints := []*pathcond.Expr{a.Ult(x, a.Const(5, 32))}
		if v, err := s.Query(context.Background(), constraints, a.Ult(x, a.Const(10, 32))); err != nil {
			t.Fatal(err)
		} else if v != pathcond.MustBeTrue {
			t.Fatalf("unexpected validity: %s", v)
		}
	})

	t.Run("MustBeFalse", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := a.Read("x", 32)
		constraints := []*pathcond.Expr{a.Ult(x, a.Const(5, 32))}
		if v, err := s.Query(context.Background(), constraints, a.Ugt(x, a.Const(7, 32))); err != nil {
			t.Fatal(err)
		} else if v != pathcond.MustBeFalse {
			t.Fatalf("unexpected validity: %s", v)
		}
	})

	t.Run("Unknown", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := a.Read("x", 32)
		constraints := []*pathcond.Expr{a.Ult(x, a.Const(5, 32))}
		if v, err := s.Query(context.Background(), constraints, a.Eq(x, a.Const(2, 32))); err != nil {
			t.Fatal(err)
		} else if v != pathcond.Unknown {
			t.Fatalf("unexpected validity: %s", v)
		}
	})

	t.Run("Contradiction", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := a.Read("x", 8)
		constraints := []*pathcond.Expr{
			a.Eq(a.Const(1, 8), x),
			a.Eq(a.Const(2, 8), x),
		}
		if v, err := s.Query(context.Background(), constraints, a.False()); err != nil {
			t.Fatal(err)
		} else if v != pathcond.MustBeTrue {
			t.Fatalf("unexpected validity: %s", v)
		}
	})

	t.Run("Extract", func(t *testing.T) {
		t.Run("Bool", func(t *testing.T) {
			a := pathcond.NewArena()
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			// Extract 1 bit
			if v, err := s.Query(context.Background(), nil, MustParseExpr(a, `(extract (const 4 64) 2 1)`)); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeTrue {
				t.Fatalf("unexpected validity: %s", v)
			}

			// Extract 0 bit.
			if v, err := s.Query(context.Background(), nil, MustParseExpr(a, `(extract (const 4 64) 6 1)`)); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeFalse {
				t.Fatalf("unexpected validity: %s", v)
			}
		})
		t.Run("Int", func(t *testing.T) {
			a := pathcond.NewArena()
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if v, err := s.Query(context.Background(), nil, MustParseExpr(a, `(eq (extract (const 43707 16) 8 8) (const 170 8))`)); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeTrue {
				t.Fatalf("unexpected validity: %s", v)
			}
		})
	})

	t.Run("Cast", func(t *testing.T) {
		t.Run("Signed", func(t *testing.T) {
			a := pathcond.NewArena()
			s := z3.NewSolver()
			defer MustCloseSolver(s)

			// -200 as 16 and 32 bits.
			if v, err := s.Query(context.Background(), nil, MustParseExpr(a, `(eq (sext (const 65336 16) 32) (const 4294967096 32))`)); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeTrue {
				t.Fatalf("unexpected validity: %s", v)
			}
		})
		t.Run("SignedBool", func(t *testing.T) {
			a := pathcond.NewArena()
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if v, err := s.Query(context.Background(), nil, MustParseExpr(a, `(eq (sext (const 1 1) 16) (const 65535 16))`)); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeTrue {
				t.Fatalf("unexpected validity: %s", v)
			}
		})
		t.Run("Unsigned", func(t *testing.T) {
			a := pathcond.NewArena()
			s := z3.NewSolver()
			defer MustCloseSolver(s)
			if v, err := s.Query(context.Background(), nil, MustParseExpr(a, `(eq (zext (const 200 16) 32) (const 200 32))`)); err != nil {
				t.Fatal(err)
			} else if v != pathcond.MustBeTrue {
				t.Fatalf("unexpected validity: %s", v)
			}
		})
	})

	t.Run("BoolArithmetic", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		// b + b is always false on a single bit.
		if v, err := s.Query(context.Background(), nil, MustParseExpr(a, `(add (read b 1) (read b 1))`)); err != nil {
			t.Fatal(err)
		} else if v != pathcond.MustBeFalse {
			t.Fatalf("unexpected validity: %s", v)
		}
	})

	t.Run("Select", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		expr := MustParseExpr(a, `(ule (select (read c 1) (const 3 8) (const 4 8)) (const 4 8))`)
		if v, err := s.Query(context.Background(), nil, expr); err != nil {
			t.Fatal(err)
		} else if v != pathcond.MustBeTrue {
			t.Fatalf("unexpected validity: %s", v)
		}
	})

	t.Run("Canceled", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := s.Query(ctx, nil, a.Read("b", 1)); !errors.Is(err, pathcond.ErrSolverCanceled) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	t.Run("Timeout", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
		defer cancel()
		if _, err := s.Query(ctx, nil, a.Read("b", 1)); !errors.Is(err, pathcond.ErrSolverTimeout) {
			t.Fatalf("unexpected error: %v", err)
		}
	})

	// Ensure a cancellation after a query does not interrupt the next one.
	t.Run("CancelAfterQuery", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		for i := 0; i < 100; i++ {
			ctx, cancel := context.WithCancel(context.Background())
			_, err := s.Query(ctx, nil, a.Read("b", 1))
			cancel()
			if err != nil {
				t.Fatalf("query %d: %v", i, err)
			}
		}
		if v, err := s.Query(context.Background(), nil, a.Read("b", 1)); err != nil {
			t.Fatal(err)
		} else if v != pathcond.Unknown {
			t.Fatalf("unexpected validity: %s", v)
		}
	})

	t.Run("Stats", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		if _, err := s.Query(context.Background(), nil, a.Read("b", 1)); err != nil {
			t.Fatal(err)
		} else if n := s.Stats().SolveN; n != 2 {
			t.Fatalf("unexpected solve count: %d", n)
		}
	})
}

func TestSolver_Value(t *testing.T) {
	t.Run("OK", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := a.Read("x", 32)
		constraints := []*pathcond.Expr{a.Eq(a.Const(12, 32), a.Add(a.Const(2, 32), x))}
		if v, err := s.Value(context.Background(), constraints, x); err != nil {
			t.Fatal(err)
		} else if v != 10 {
			t.Fatalf("unexpected value: %d", v)
		}
	})

	t.Run("Bool", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		b := a.Read("b", 1)
		if v, err := s.Value(context.Background(), []*pathcond.Expr{b}, b); err != nil {
			t.Fatal(err)
		} else if v != 1 {
			t.Fatalf("unexpected value: %d", v)
		}
	})

	t.Run("Wide", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := a.Read("x", 64)
		constraints := []*pathcond.Expr{a.Eq(a.Const(0xFFFFFFFF00000001, 64), x)}
		if v, err := s.Value(context.Background(), constraints, x); err != nil {
			t.Fatal(err)
		} else if v != 0xFFFFFFFF00000001 {
			t.Fatalf("unexpected value: %x", v)
		}
	})

	t.Run("ErrUnsatisfiable", func(t *testing.T) {
		a := pathcond.NewArena()
		s := z3.NewSolver()
		defer MustCloseSolver(s)

		x := a.Read("x", 8)
		if _, err := s.Value(context.Background(), []*pathcond.Expr{a.False()}, x); err != pathcond.ErrUnsatisfiable {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

// Ensure the solver can serve as the oracle for a constraint store.
func TestFeasible(t *testing.T) {
	a := pathcond.NewArena()
	s := z3.NewSolver()
	defer MustCloseSolver(s)

	x := a.Read("x", 32)
	m := pathcond.NewConstraints(a)
	m.AddConstraint(a.Ult(x, a.Const(10, 32)))
	if ok, err := pathcond.Feasible(context.Background(), s, m); err != nil {
		t.Fatal(err)
	} else if !ok {
		t.Fatal("expected feasible")
	}

	m.AddConstraint(a.Ugt(x, a.Const(20, 32)))
	if ok, err := pathcond.Feasible(context.Background(), s, m); err != nil {
		t.Fatal(err)
	} else if ok {
		t.Fatal("expected infeasible")
	}
}

func MustParseExpr(a *pathcond.Arena, s string) *pathcond.Expr {
	return pathcond.MustParseExpr(a, s)
}

func MustCloseSolver(s *z3.Solver) {
	if err := s.Close(); err != nil {
		panic(err)
	}
}
