package pathcond

import "fmt"

// Evaluator evaluates expressions using concrete values for variables.
type Evaluator struct {
	arena *Arena
	m     map[string]uint64 // variable name to value
	memo  map[*Expr]*Expr
}

// NewEvaluator returns a new instance of Evaluator with the given name/value bindings.
func NewEvaluator(a *Arena, bindings map[string]uint64) *Evaluator {
	return &Evaluator{
		arena: a,
		m:     bindings,
		memo:  make(map[*Expr]*Expr),
	}
}

// Evaluate evaluates expr to a constant expression.
// Returns an error if an unbound variable or a division by zero is encountered.
func (ee *Evaluator) Evaluate(expr *Expr) (*Expr, error) {
	if v, ok := ee.memo[expr]; ok {
		return v, nil
	}

	var value *Expr
	switch expr.kind {
	case CONST:
		value = expr
	case READ:
		v, ok := ee.m[expr.name]
		if !ok {
			return nil, fmt.Errorf("variable not bound: %s", expr.name)
		}
		value = ee.arena.Const(v, expr.width)
	case SELECT:
		// Only the chosen arm is evaluated.
		cond, err := ee.Evaluate(expr.kids[0])
		if err != nil {
			return nil, err
		}
		arm := expr.kids[2]
		if cond.IsTrue() {
			arm = expr.kids[1]
		}
		if value, err = ee.Evaluate(arm); err != nil {
			return nil, err
		}
	default:
		kids := make([]*Expr, len(expr.kids))
		for i, kid := range expr.kids {
			v, err := ee.Evaluate(kid)
			if err != nil {
				return nil, err
			}
			kids[i] = v
		}
		if (expr.kind == UDIV || expr.kind == SDIV || expr.kind == UREM || expr.kind == SREM) && kids[1].value == 0 {
			return nil, fmt.Errorf("division by zero: %s", expr)
		}
		value = ee.arena.Rebuild(expr, kids)
	}

	assert(value.IsConstant(), "evaluate: did not fold: %s", value)
	ee.memo[expr] = value
	return value, nil
}

// Holds returns true if every boolean expression evaluates to true.
func (ee *Evaluator) Holds(exprs ...*Expr) (bool, error) {
	for _, e := range exprs {
		v, err := ee.Evaluate(e)
		if err != nil {
			return false, err
		} else if !v.IsTrue() {
			return false, nil
		}
	}
	return true, nil
}
