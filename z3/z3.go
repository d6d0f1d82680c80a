package z3

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"
	"unsafe"

	"github.com/benbjohnson/pathcond"
	"github.com/sirupsen/logrus"
)

/*
#cgo LDFLAGS: -lz3
#include <z3.h>
#include <stdlib.h>
#include <stdio.h>
*/
import "C"

// Ensure solver implements interface.
var _ pathcond.Solver = (*Solver)(nil)

// Solver represents a solver that uses an embedded Z3 solver.
// It is safe for concurrent use; queries are serialized.
type Solver struct {
	mu    sync.Mutex
	ctx   *Context
	stats Stats

	Logger logrus.FieldLogger
}

// NewSolver returns a new instance of Solver.
func NewSolver() *Solver {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	return &Solver{
		ctx:    NewContext(),
		Logger: logger,
	}
}

// Close deletes the underlying Z3 context.
func (s *Solver) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ctx.Close()
}

// Stats returns statistics for the solver.
func (s *Solver) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Query returns whether expr must be true, must be false or may be either
// under constraints.
func (s *Solver) Query(ctx context.Context, constraints []*pathcond.Expr, expr *pathcond.Expr) (v pathcond.Validity, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := time.Now()
	defer func() {
		s.Logger.WithFields(logrus.Fields{
			"constraints": len(constraints),
			"elapsed":     time.Since(t),
			"result":      v,
		}).WithError(err).Debug("z3 query")
	}()

	conv := s.ctx.newConverter()
	hyps, err := conv.toASTs(constraints)
	if err != nil {
		return pathcond.Unknown, err
	}
	z3Expr, err := conv.toAST(expr)
	if err != nil {
		return pathcond.Unknown, err
	}
	z3NotExpr := C.Z3_mk_not(s.ctx.raw, z3Expr)
	if err := s.ctx.err("Z3_mk_not"); err != nil {
		return pathcond.Unknown, err
	}

	// If no model violates expr then it must be true.
	n := len(hyps)
	if sat, err := s.solve(ctx, append(hyps[:n:n], z3NotExpr), nil); err != nil {
		return pathcond.Unknown, err
	} else if !sat {
		return pathcond.MustBeTrue, nil
	}

	// If no model satisfies expr then it must be false.
	if sat, err := s.solve(ctx, append(hyps[:n:n], z3Expr), nil); err != nil {
		return pathcond.Unknown, err
	} else if !sat {
		return pathcond.MustBeFalse, nil
	}
	return pathcond.Unknown, nil
}

// Value returns a value expr may take under constraints.
func (s *Solver) Value(ctx context.Context, constraints []*pathcond.Expr, expr *pathcond.Expr) (value uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t := time.Now()
	defer func() {
		s.Logger.WithFields(logrus.Fields{
			"constraints": len(constraints),
			"elapsed":     time.Since(t),
			"value":       value,
		}).WithError(err).Debug("z3 value")
	}()

	conv := s.ctx.newConverter()
	hyps, err := conv.toASTs(constraints)
	if err != nil {
		return 0, err
	}
	z3Expr, err := conv.toAST(expr)
	if err != nil {
		return 0, err
	}

	sat, err := s.solve(ctx, hyps, func(model C.Z3_model) (err error) {
		value, err = s.ctx.eval(model, z3Expr, expr.Width())
		return err
	})
	if err != nil {
		return 0, err
	} else if !sat {
		return 0, pathcond.ErrUnsatisfiable
	}
	return value, nil
}

// solve checks the conjunction of asts. If satisfiable and fn is not nil,
// fn is called with a model before the Z3 solver is released.
func (s *Solver) solve(ctx context.Context, asts []C.Z3_ast, fn func(C.Z3_model) error) (satisfiable bool, err error) {
	if ctx.Err() != nil {
		return false, contextErr(ctx)
	}

	t := time.Now()
	defer func() {
		s.stats.SolveN++
		s.stats.SolveTime += time.Since(t)
	}()

	solver := C.Z3_mk_solver(s.ctx.raw)
	if err := s.ctx.err("Z3_mk_solver"); err != nil {
		return false, err
	}
	C.Z3_solver_inc_ref(s.ctx.raw, solver)
	defer C.Z3_solver_dec_ref(s.ctx.raw, solver)

	// Assert constraints.
	for _, ast := range asts {
		C.Z3_solver_assert(s.ctx.raw, solver, ast)
		if err := s.ctx.err("Z3_solver_assert"); err != nil {
			return false, err
		}
	}

	// Interrupt the check if the caller gives up. The context is shared with
	// later queries so it must not be interrupted once the check returns.
	var (
		mu       sync.Mutex
		inflight = true
	)
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			mu.Lock()
			if inflight {
				C.Z3_interrupt(s.ctx.raw)
			}
			mu.Unlock()
		case <-done:
		}
	}()

	// Check equations with the solver.
	// Exit immediately if unsatisfiable or the solver encountered an error.
	ret := C.Z3_solver_check(s.ctx.raw, solver)
	mu.Lock()
	inflight = false
	mu.Unlock()
	close(done)

	if err := s.ctx.err("Z3_solver_check"); err != nil {
		return false, err
	} else if ret == C.Z3_L_FALSE {
		return false, nil
	} else if ret == C.Z3_L_UNDEF {
		if ctx.Err() != nil {
			return false, contextErr(ctx)
		}
		reason := C.GoString(C.Z3_solver_get_reason_unknown(s.ctx.raw, solver))
		switch {
		case strings.Contains(reason, "timeout"):
			return false, pathcond.ErrSolverTimeout
		case strings.Contains(reason, "canceled"):
			return false, pathcond.ErrSolverCanceled
		case strings.Contains(reason, "(resource limits reached)"):
			return false, pathcond.ErrSolverResourceLimit
		case strings.Contains(reason, "unknown"):
			return false, pathcond.ErrSolverUnknown
		default:
			return false, fmt.Errorf("z3: %s", reason)
		}
	} else if fn == nil {
		return true, nil
	}

	// Calculate a model for the given formula.
	model := C.Z3_solver_get_model(s.ctx.raw, solver)
	if err := s.ctx.err("Z3_solver_get_model"); err != nil {
		return true, err
	}
	C.Z3_model_inc_ref(s.ctx.raw, model)
	defer C.Z3_model_dec_ref(s.ctx.raw, model)

	return true, fn(model)
}

// contextErr maps the reason ctx is done to a solver error.
func contextErr(ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return pathcond.ErrSolverTimeout
	}
	return pathcond.ErrSolverCanceled
}

// Context represents a Z3 context object that is used for constructing expressions.
type Context struct {
	raw C.Z3_context
}

// NewContext returns a new instance of Context.
func NewContext() *Context {
	config := C.Z3_mk_config()
	defer C.Z3_del_config(config)

	raw := C.Z3_mk_context(config)
	C.Z3_set_error_handler(raw, nil)
	C.Z3_set_ast_print_mode(raw, C.Z3_PRINT_SMTLIB2_COMPLIANT)
	return &Context{raw: raw}
}

// Close deletes the underlying Z3 context.
func (ctx *Context) Close() error {
	C.Z3_del_context(ctx.raw)
	return nil
}

// err returns the error for the last API call. Returns nil if last call was successful.
func (ctx *Context) err(op string) error {
	if code := C.Z3_get_error_code(ctx.raw); code != C.Z3_OK {
		return &Error{Code: int(code), Op: op, Message: C.GoString(C.Z3_get_error_msg(ctx.raw, code))}
	}
	return nil
}

// eval evaluates ast in model and returns its value as an unsigned integer.
func (ctx *Context) eval(model C.Z3_model, ast C.Z3_ast, width uint) (uint64, error) {
	var z3Value C.Z3_ast
	if ok := C.Z3_model_eval(ctx.raw, model, ast, C.bool(true), &z3Value); !ok {
		return 0, fmt.Errorf("z3.Context.eval: model evaluation failed")
	} else if err := ctx.err("Z3_model_eval"); err != nil {
		return 0, err
	}

	// Booleans are evaluated to a truth value.
	if width == pathcond.WidthBool {
		ret := C.Z3_get_bool_value(ctx.raw, z3Value)
		if err := ctx.err("Z3_get_bool_value"); err != nil {
			return 0, err
		} else if ret == C.Z3_L_TRUE {
			return 1, nil
		}
		return 0, nil
	}

	var v C.uint64_t
	if ok := C.Z3_get_numeral_uint64(ctx.raw, z3Value, &v); !ok {
		return 0, fmt.Errorf("z3.Context.eval: not a numeral: %s", ctx.astToString(z3Value))
	} else if err := ctx.err("Z3_get_numeral_uint64"); err != nil {
		return 0, err
	}
	return uint64(v), nil
}

func (ctx *Context) makeTrue() (C.Z3_ast, error) {
	return C.Z3_mk_true(ctx.raw), ctx.err("Z3_mk_true")
}

func (ctx *Context) makeFalse() (C.Z3_ast, error) {
	return C.Z3_mk_false(ctx.raw), ctx.err("Z3_mk_false")
}

func (ctx *Context) makeBVSort(width uint) (C.Z3_sort, error) {
	return C.Z3_mk_bv_sort(ctx.raw, C.uint(width)), ctx.err("Z3_mk_bv_sort")
}

func (ctx *Context) makeUint64(width uint, value uint64) (C.Z3_ast, error) {
	t, err := ctx.makeBVSort(width)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_unsigned_int64(ctx.raw, C.uint64_t(value), t), ctx.err("Z3_mk_unsigned_int64")
}

// makeVar returns the constant for a symbolic variable.
func (ctx *Context) makeVar(name string, width uint) (C.Z3_ast, error) {
	cname := C.CString(fmt.Sprintf("%s:%d", name, width))
	defer C.free(unsafe.Pointer(cname))
	symbol := C.Z3_mk_string_symbol(ctx.raw, cname)

	var t C.Z3_sort
	if width == pathcond.WidthBool {
		t = C.Z3_mk_bool_sort(ctx.raw)
	} else {
		t = C.Z3_mk_bv_sort(ctx.raw, C.uint(width))
	}
	if err := ctx.err("Z3_mk_sort"); err != nil {
		return nil, err
	}
	return C.Z3_mk_const(ctx.raw, symbol, t), ctx.err("Z3_mk_const")
}

func (ctx *Context) astToString(ast C.Z3_ast) string {
	return C.GoString(C.Z3_ast_to_string(ctx.raw, ast))
}

// Error represents an error from the Z3 API.
type Error struct {
	Code    int
	Op      string
	Message string
}

// Error returns the error as a string.
func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s (%d)", e.Op, e.Message, e.Code)
}

// Possible error codes.
const (
	ErrorCodeOK = iota
	ErrorCodeSortError
	ErrorCodeIOB
	ErrorCodeInvalidArg
	ErrorCodeParserError
	ErrorCodeNoParser
	ErrorCodeInvalidPattern
	ErrorCodeMemoutFail
	ErrorCodeFileAccessError
	ErrorCodeInternalFatal
	ErrorCodeInvalidUsage
	ErrorCodeDecRefError
	ErrorCodeException
)

// Stats holds counters for a Solver.
type Stats struct {
	SolveN    int
	SolveTime time.Duration
}
