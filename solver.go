package pathcond

import (
	"context"
	"fmt"
)

// Validity is the answer to whether an expression holds under a set of constraints.
type Validity int

const (
	// Unknown means the expression may be either true or false.
	Unknown Validity = iota
	// MustBeTrue means the expression holds in every model of the constraints.
	MustBeTrue
	// MustBeFalse means the expression holds in no model of the constraints.
	MustBeFalse
)

// String returns the string representation of the validity.
func (v Validity) String() string {
	switch v {
	case Unknown:
		return "unknown"
	case MustBeTrue:
		return "must-be-true"
	case MustBeFalse:
		return "must-be-false"
	default:
		return fmt.Sprintf("Validity<%d>", int(v))
	}
}

// Solver represents an external decision procedure over constraint sequences.
type Solver interface {
	// Query returns whether expr must be true, must be false or may be
	// either under constraints. Unsatisfiable constraints imply MustBeTrue.
	Query(ctx context.Context, constraints []*Expr, expr *Expr) (Validity, error)

	// Value returns a value expr may take under constraints.
	// Returns ErrUnsatisfiable if the constraints have no model.
	Value(ctx context.Context, constraints []*Expr, expr *Expr) (uint64, error)
}

// Query simplifies expr against c and asks s only if the result is not constant.
func Query(ctx context.Context, s Solver, c *Constraints, expr *Expr) (Validity, error) {
	assert(expr.width == WidthBool, "query: expected boolean, got width %d", expr.width)

	switch expr = c.Simplify(expr); {
	case expr.IsTrue():
		return MustBeTrue, nil
	case expr.IsFalse():
		return MustBeFalse, nil
	}
	return s.Query(ctx, c.exprs, expr)
}

// Value returns a concrete value of expr under c.
func Value(ctx context.Context, s Solver, c *Constraints, expr *Expr) (uint64, error) {
	if expr = c.Simplify(expr); expr.IsConstant() {
		return expr.value, nil
	}
	return s.Value(ctx, c.exprs, expr)
}

// Feasible returns true if the constraints in c have a model.
func Feasible(ctx context.Context, s Solver, c *Constraints) (bool, error) {
	for _, e := range c.exprs {
		if e.IsFalse() {
			return false, nil
		}
	}
	v, err := s.Query(ctx, c.exprs, c.arena.False())
	if err != nil {
		return false, err
	}
	return v != MustBeTrue, nil
}
