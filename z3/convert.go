package z3

import (
	"fmt"

	"github.com/benbjohnson/pathcond"
)

/*
#include <z3.h>
*/
import "C"

// converter translates expressions into Z3 ASTs. Booleans map to the Z3
// bool sort and everything wider to bit-vectors. Shared nodes are
// translated once.
type converter struct {
	ctx  *Context
	memo map[*pathcond.Expr]C.Z3_ast
}

func (ctx *Context) newConverter() *converter {
	return &converter{ctx: ctx, memo: make(map[*pathcond.Expr]C.Z3_ast)}
}

func (c *converter) toASTs(exprs []*pathcond.Expr) ([]C.Z3_ast, error) {
	a := make([]C.Z3_ast, 0, len(exprs))
	for _, e := range exprs {
		ast, err := c.toAST(e)
		if err != nil {
			return nil, err
		}
		a = append(a, ast)
	}
	return a, nil
}

// toAST returns the Z3 AST for expr.
func (c *converter) toAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	if ast, ok := c.memo[expr]; ok {
		return ast, nil
	}
	ast, err := c.convert(expr)
	if err != nil {
		return nil, err
	}
	c.memo[expr] = ast
	return ast, nil
}

// toBV returns expr as a bit-vector, converting booleans to a single bit.
func (c *converter) toBV(expr *pathcond.Expr) (C.Z3_ast, error) {
	ast, err := c.toAST(expr)
	if err != nil {
		return nil, err
	} else if expr.Width() != pathcond.WidthBool {
		return ast, nil
	}

	one, err := c.ctx.makeUint64(1, 1)
	if err != nil {
		return nil, err
	}
	zero, err := c.ctx.makeUint64(1, 0)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(c.ctx.raw, ast, one, zero), c.ctx.err("Z3_mk_ite")
}

// toBool converts a single bit bit-vector into a boolean.
func (c *converter) toBool(ast C.Z3_ast) (C.Z3_ast, error) {
	one, err := c.ctx.makeUint64(1, 1)
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_eq(c.ctx.raw, ast, one), c.ctx.err("Z3_mk_eq")
}

func (c *converter) convert(expr *pathcond.Expr) (C.Z3_ast, error) {
	switch kind := expr.Kind(); {
	case kind == pathcond.CONST:
		return c.toConstantAST(expr)
	case kind == pathcond.READ:
		return c.ctx.makeVar(expr.Name(), expr.Width())
	case kind == pathcond.SELECT:
		return c.toSelectAST(expr)
	case kind == pathcond.CONCAT:
		return c.toConcatAST(expr)
	case kind == pathcond.EXTRACT:
		return c.toExtractAST(expr)
	case kind == pathcond.ZEXT || kind == pathcond.SEXT:
		return c.toCastAST(expr)
	case kind == pathcond.NOT:
		return c.toNotAST(expr)
	case kind.IsBinary():
		return c.toBinaryAST(expr)
	default:
		return nil, fmt.Errorf("z3.converter.toAST: invalid expression kind: %s", kind)
	}
}

func (c *converter) toConstantAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	if expr.Width() == pathcond.WidthBool {
		if expr.IsTrue() {
			return c.ctx.makeTrue()
		}
		return c.ctx.makeFalse()
	}
	return c.ctx.makeUint64(expr.Width(), expr.Value())
}

func (c *converter) toSelectAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	cond, err := c.toAST(expr.Kid(0))
	if err != nil {
		return nil, err
	}
	t, err := c.toAST(expr.Kid(1))
	if err != nil {
		return nil, err
	}
	f, err := c.toAST(expr.Kid(2))
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_ite(c.ctx.raw, cond, t, f), c.ctx.err("Z3_mk_ite")
}

func (c *converter) toConcatAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	msb, err := c.toBV(expr.Kid(0))
	if err != nil {
		return nil, err
	}
	lsb, err := c.toBV(expr.Kid(1))
	if err != nil {
		return nil, err
	}
	return C.Z3_mk_concat(c.ctx.raw, msb, lsb), c.ctx.err("Z3_mk_concat")
}

func (c *converter) toExtractAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	src, err := c.toBV(expr.Kid(0))
	if err != nil {
		return nil, err
	}

	hi, lo := expr.Offset()+expr.Width()-1, expr.Offset()
	ast := C.Z3_mk_extract(c.ctx.raw, C.uint(hi), C.uint(lo), src)
	if err := c.ctx.err("Z3_mk_extract"); err != nil {
		return nil, err
	}

	// If extracting single bit, use EQ expression to convert to bool sort.
	if expr.Width() == pathcond.WidthBool {
		return c.toBool(ast)
	}
	return ast, nil
}

func (c *converter) toCastAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	src := expr.Kid(0)
	ast, err := c.toAST(src)
	if err != nil {
		return nil, err
	}
	signed := expr.Kind() == pathcond.SEXT

	// Convert boolean cast to if-then-else expression.
	if src.Width() == pathcond.WidthBool {
		var whenTrue C.Z3_ast
		if signed {
			whenTrue, err = c.ctx.makeUint64(expr.Width(), ^uint64(0)>>(64-expr.Width()))
		} else {
			whenTrue, err = c.ctx.makeUint64(expr.Width(), 1)
		}
		if err != nil {
			return nil, err
		}
		whenFalse, err := c.ctx.makeUint64(expr.Width(), 0)
		if err != nil {
			return nil, err
		}
		return C.Z3_mk_ite(c.ctx.raw, ast, whenTrue, whenFalse), c.ctx.err("Z3_mk_ite")
	}

	n := C.uint(expr.Width() - src.Width())
	if signed {
		return C.Z3_mk_sign_ext(c.ctx.raw, n, ast), c.ctx.err("Z3_mk_sign_ext")
	}
	return C.Z3_mk_zero_ext(c.ctx.raw, n, ast), c.ctx.err("Z3_mk_zero_ext")
}

func (c *converter) toNotAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	src, err := c.toAST(expr.Kid(0))
	if err != nil {
		return nil, err
	}

	// If boolean, use boolean NOT operation.
	if expr.Width() == pathcond.WidthBool {
		return C.Z3_mk_not(c.ctx.raw, src), c.ctx.err("Z3_mk_not")
	}
	return C.Z3_mk_bvnot(c.ctx.raw, src), c.ctx.err("Z3_mk_bvnot")
}

func (c *converter) toBinaryAST(expr *pathcond.Expr) (C.Z3_ast, error) {
	lhs, rhs := expr.Kid(0), expr.Kid(1)
	kind := expr.Kind()

	// Boolean operands use logical operators where Z3 has them.
	if lhs.Width() == pathcond.WidthBool {
		switch kind {
		case pathcond.AND, pathcond.OR, pathcond.XOR, pathcond.EQ:
			return c.toLogicalAST(kind, lhs, rhs)
		}
	}

	l, err := c.toBV(lhs)
	if err != nil {
		return nil, err
	}
	r, err := c.toBV(rhs)
	if err != nil {
		return nil, err
	}

	ast, err := c.ctx.bvBinary(kind, l, r)
	if err != nil {
		return nil, err
	} else if kind.IsArithmetic() && expr.Width() == pathcond.WidthBool {
		return c.toBool(ast)
	}
	return ast, nil
}

func (c *converter) toLogicalAST(kind pathcond.Kind, lhs, rhs *pathcond.Expr) (C.Z3_ast, error) {
	l, err := c.toAST(lhs)
	if err != nil {
		return nil, err
	}
	r, err := c.toAST(rhs)
	if err != nil {
		return nil, err
	}

	args := [2]C.Z3_ast{l, r}
	switch kind {
	case pathcond.AND:
		return C.Z3_mk_and(c.ctx.raw, 2, &args[0]), c.ctx.err("Z3_mk_and")
	case pathcond.OR:
		return C.Z3_mk_or(c.ctx.raw, 2, &args[0]), c.ctx.err("Z3_mk_or")
	case pathcond.XOR:
		return C.Z3_mk_xor(c.ctx.raw, l, r), c.ctx.err("Z3_mk_xor")
	default:
		return C.Z3_mk_eq(c.ctx.raw, l, r), c.ctx.err("Z3_mk_eq")
	}
}

// bvBinary applies a two-operand bit-vector operator.
func (ctx *Context) bvBinary(kind pathcond.Kind, l, r C.Z3_ast) (C.Z3_ast, error) {
	switch kind {
	case pathcond.ADD:
		return C.Z3_mk_bvadd(ctx.raw, l, r), ctx.err("Z3_mk_bvadd")
	case pathcond.SUB:
		return C.Z3_mk_bvsub(ctx.raw, l, r), ctx.err("Z3_mk_bvsub")
	case pathcond.MUL:
		return C.Z3_mk_bvmul(ctx.raw, l, r), ctx.err("Z3_mk_bvmul")
	case pathcond.UDIV:
		return C.Z3_mk_bvudiv(ctx.raw, l, r), ctx.err("Z3_mk_bvudiv")
	case pathcond.SDIV:
		return C.Z3_mk_bvsdiv(ctx.raw, l, r), ctx.err("Z3_mk_bvsdiv")
	case pathcond.UREM:
		return C.Z3_mk_bvurem(ctx.raw, l, r), ctx.err("Z3_mk_bvurem")
	case pathcond.SREM:
		return C.Z3_mk_bvsrem(ctx.raw, l, r), ctx.err("Z3_mk_bvsrem")
	case pathcond.AND:
		return C.Z3_mk_bvand(ctx.raw, l, r), ctx.err("Z3_mk_bvand")
	case pathcond.OR:
		return C.Z3_mk_bvor(ctx.raw, l, r), ctx.err("Z3_mk_bvor")
	case pathcond.XOR:
		return C.Z3_mk_bvxor(ctx.raw, l, r), ctx.err("Z3_mk_bvxor")
	case pathcond.SHL:
		return C.Z3_mk_bvshl(ctx.raw, l, r), ctx.err("Z3_mk_bvshl")
	case pathcond.LSHR:
		return C.Z3_mk_bvlshr(ctx.raw, l, r), ctx.err("Z3_mk_bvlshr")
	case pathcond.ASHR:
		return C.Z3_mk_bvashr(ctx.raw, l, r), ctx.err("Z3_mk_bvashr")
	case pathcond.EQ:
		return C.Z3_mk_eq(ctx.raw, l, r), ctx.err("Z3_mk_eq")
	case pathcond.ULT:
		return C.Z3_mk_bvult(ctx.raw, l, r), ctx.err("Z3_mk_bvult")
	case pathcond.ULE:
		return C.Z3_mk_bvule(ctx.raw, l, r), ctx.err("Z3_mk_bvule")
	case pathcond.SLT:
		return C.Z3_mk_bvslt(ctx.raw, l, r), ctx.err("Z3_mk_bvslt")
	case pathcond.SLE:
		return C.Z3_mk_bvsle(ctx.raw, l, r), ctx.err("Z3_mk_bvsle")
	default:
		return nil, fmt.Errorf("z3.Context.bvBinary: unexpected operation: %s", kind)
	}
}
