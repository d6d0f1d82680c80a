package pathcond

import "fmt"

// Binary returns the normalized expression for a two-operand operator.
func (a *Arena) Binary(kind Kind, lhs, rhs *Expr) *Expr {
	assert(lhs.width == rhs.width, "%s: width mismatch: %d != %d", kind, lhs.width, rhs.width)

	switch kind {
	case ADD:
		return a.Add(lhs, rhs)
	case SUB:
		return a.Sub(lhs, rhs)
	case MUL:
		return a.Mul(lhs, rhs)
	case UDIV, SDIV:
		return a.div(kind, lhs, rhs)
	case UREM, SREM:
		return a.rem(kind, lhs, rhs)
	case AND:
		return a.And(lhs, rhs)
	case OR:
		return a.Or(lhs, rhs)
	case XOR:
		return a.Xor(lhs, rhs)
	case SHL, LSHR, ASHR:
		return a.shift(kind, lhs, rhs)
	case EQ:
		return a.Eq(lhs, rhs)
	case ULT, ULE, SLT, SLE:
		return a.compare(kind, lhs, rhs)
	default:
		panic(fmt.Sprintf("binary: unexpected kind: %s", kind))
	}
}

// Rebuild returns the normalized expression with e's operator and immediate
// fields applied to new operands.
func (a *Arena) Rebuild(e *Expr, kids []*Expr) *Expr {
	switch {
	case e.kind == CONST || e.kind == READ:
		return e
	case e.kind.IsBinary():
		return a.Binary(e.kind, kids[0], kids[1])
	}

	switch e.kind {
	case NOT:
		return a.Not(kids[0])
	case SELECT:
		return a.Select(kids[0], kids[1], kids[2])
	case CONCAT:
		return a.Concat(kids[0], kids[1])
	case EXTRACT:
		return a.Extract(kids[0], e.offset, e.width)
	case ZEXT:
		return a.ZExt(kids[0], e.width)
	case SEXT:
		return a.SExt(kids[0], e.width)
	default:
		panic(fmt.Sprintf("rebuild: unexpected kind: %s", e.kind))
	}
}

// Normalize returns e rebuilt bottom-up through the folding constructors.
// It is used on nodes interned raw, such as parsed input.
func (a *Arena) Normalize(e *Expr) *Expr {
	return a.normalize(e, make(map[*Expr]*Expr))
}

func (a *Arena) normalize(e *Expr, memo map[*Expr]*Expr) *Expr {
	if other, ok := memo[e]; ok {
		return other
	}

	other := e
	if len(e.kids) > 0 {
		kids := make([]*Expr, len(e.kids))
		for i, kid := range e.kids {
			kids[i] = a.normalize(kid, memo)
		}
		other = a.Rebuild(e, kids)
	}
	memo[e] = other
	return other
}

// Add returns the expression representing the sum of lhs & rhs.
func (a *Arena) Add(lhs, rhs *Expr) *Expr {
	// Move constant expression to left hand side.
	if !lhs.IsConstant() && rhs.IsConstant() {
		lhs, rhs = rhs, lhs
	}

	// Addition on a single bit is XOR.
	if lhs.width == WidthBool {
		return a.Xor(lhs, rhs)
	}

	if lhs.IsConstant() {
		if lhs.value == 0 {
			return rhs
		} else if rhs.IsConstant() {
			return a.Const(lhs.value+rhs.value, lhs.width)
		}

		// X + (Y+z) == (X+Y) + z
		if rhs.kind == ADD && rhs.kids[0].IsConstant() {
			return a.Add(a.Add(lhs, rhs.kids[0]), rhs.kids[1])
		}
	}
	return a.Intern(ADD, lhs.width, lhs, rhs)
}

// Sub returns the expression representing the difference of lhs & rhs.
func (a *Arena) Sub(lhs, rhs *Expr) *Expr {
	if lhs == rhs {
		return a.Const(0, lhs.width)
	} else if lhs.IsConstant() && rhs.IsConstant() {
		return a.Const(lhs.value-rhs.value, lhs.width)
	} else if lhs.width == WidthBool {
		return a.Xor(lhs, rhs)
	}

	// x - Y == -Y + x
	if rhs.IsConstant() {
		return a.Add(a.Const(-rhs.value, rhs.width), lhs)
	}
	return a.Intern(SUB, lhs.width, lhs, rhs)
}

// Mul returns the expression representing the product of lhs & rhs.
func (a *Arena) Mul(lhs, rhs *Expr) *Expr {
	if !lhs.IsConstant() && rhs.IsConstant() {
		lhs, rhs = rhs, lhs
	}

	if lhs.width == WidthBool {
		return a.And(lhs, rhs)
	}

	if lhs.IsConstant() {
		if rhs.IsConstant() {
			return a.Const(lhs.value*rhs.value, lhs.width)
		} else if lhs.value == 1 {
			return rhs
		} else if lhs.value == 0 {
			return lhs
		}
	}
	return a.Intern(MUL, lhs.width, lhs, rhs)
}

// UDiv returns the unsigned quotient of lhs & rhs.
func (a *Arena) UDiv(lhs, rhs *Expr) *Expr { return a.div(UDIV, lhs, rhs) }

// SDiv returns the signed quotient of lhs & rhs.
func (a *Arena) SDiv(lhs, rhs *Expr) *Expr { return a.div(SDIV, lhs, rhs) }

// URem returns the unsigned remainder of lhs & rhs.
func (a *Arena) URem(lhs, rhs *Expr) *Expr { return a.rem(UREM, lhs, rhs) }

// SRem returns the signed remainder of lhs & rhs.
func (a *Arena) SRem(lhs, rhs *Expr) *Expr { return a.rem(SREM, lhs, rhs) }

// div folds constant division. Division by zero is left for the solver.
func (a *Arena) div(kind Kind, lhs, rhs *Expr) *Expr {
	if rhs.IsConstant() && rhs.value == 1 {
		return lhs
	}
	if lhs.IsConstant() && rhs.IsConstant() && rhs.value != 0 {
		if kind == UDIV {
			return a.Const(lhs.value/rhs.value, lhs.width)
		}
		return a.Const(uint64(lhs.SignedValue()/rhs.SignedValue()), lhs.width)
	}
	return a.Intern(kind, lhs.width, lhs, rhs)
}

func (a *Arena) rem(kind Kind, lhs, rhs *Expr) *Expr {
	if lhs.IsConstant() && rhs.IsConstant() && rhs.value != 0 {
		if kind == UREM {
			return a.Const(lhs.value%rhs.value, lhs.width)
		}
		return a.Const(uint64(lhs.SignedValue()%rhs.SignedValue()), lhs.width)
	}
	return a.Intern(kind, lhs.width, lhs, rhs)
}

// And returns the bitwise AND of lhs & rhs. On booleans this is conjunction.
func (a *Arena) And(lhs, rhs *Expr) *Expr {
	if !lhs.IsConstant() && rhs.IsConstant() {
		lhs, rhs = rhs, lhs
	}

	if lhs.IsConstant() {
		if rhs.IsConstant() {
			return a.Const(lhs.value&rhs.value, lhs.width)
		} else if lhs.IsAllOnes() {
			return rhs
		} else if lhs.value == 0 {
			return lhs
		}
	}
	if lhs == rhs {
		return lhs
	}
	return a.Intern(AND, lhs.width, lhs, rhs)
}

// Or returns the bitwise OR of lhs & rhs. On booleans this is disjunction.
func (a *Arena) Or(lhs, rhs *Expr) *Expr {
	if !lhs.IsConstant() && rhs.IsConstant() {
		lhs, rhs = rhs, lhs
	}

	if lhs.IsConstant() {
		if rhs.IsConstant() {
			return a.Const(lhs.value|rhs.value, lhs.width)
		} else if lhs.IsAllOnes() {
			return lhs
		} else if lhs.value == 0 {
			return rhs
		}
	}
	if lhs == rhs {
		return lhs
	}
	return a.Intern(OR, lhs.width, lhs, rhs)
}

// Xor returns the bitwise XOR of lhs & rhs.
func (a *Arena) Xor(lhs, rhs *Expr) *Expr {
	if !lhs.IsConstant() && rhs.IsConstant() {
		lhs, rhs = rhs, lhs
	}

	if lhs.IsConstant() {
		if rhs.IsConstant() {
			return a.Const(lhs.value^rhs.value, lhs.width)
		} else if lhs.value == 0 {
			return rhs
		}
	}
	if lhs == rhs {
		return a.Const(0, lhs.width)
	}
	return a.Intern(XOR, lhs.width, lhs, rhs)
}

// Shl returns lhs shifted left by rhs bits.
func (a *Arena) Shl(lhs, rhs *Expr) *Expr { return a.shift(SHL, lhs, rhs) }

// LShr returns lhs logically shifted right by rhs bits.
func (a *Arena) LShr(lhs, rhs *Expr) *Expr { return a.shift(LSHR, lhs, rhs) }

// AShr returns lhs arithmetically shifted right by rhs bits.
func (a *Arena) AShr(lhs, rhs *Expr) *Expr { return a.shift(ASHR, lhs, rhs) }

func (a *Arena) shift(kind Kind, lhs, rhs *Expr) *Expr {
	if rhs.IsConstant() && rhs.value == 0 {
		return lhs
	}
	if !lhs.IsConstant() || !rhs.IsConstant() {
		return a.Intern(kind, lhs.width, lhs, rhs)
	}

	w, n := lhs.width, rhs.value
	switch kind {
	case SHL:
		if n >= uint64(w) {
			return a.Const(0, w)
		}
		return a.Const(lhs.value<<n, w)
	case LSHR:
		if n >= uint64(w) {
			return a.Const(0, w)
		}
		return a.Const(lhs.value>>n, w)
	default:
		if n >= uint64(w) {
			n = uint64(w) - 1
		}
		return a.Const(uint64(lhs.SignedValue()>>n), w)
	}
}

// Eq returns the expression representing the equality of lhs and rhs.
func (a *Arena) Eq(lhs, rhs *Expr) *Expr {
	// If constant is on right side, swap to left side.
	if !lhs.IsConstant() && rhs.IsConstant() {
		lhs, rhs = rhs, lhs
	}

	if lhs == rhs {
		return a.True()
	}

	if lhs.IsConstant() {
		if rhs.IsConstant() {
			return a.Bool(lhs.value == rhs.value)
		}

		switch rhs.kind {
		case EQ:
			if lhs.IsTrue() {
				return rhs
			} else if lhs.IsFalse() && rhs.kids[0].IsFalse() {
				return rhs.kids[1] // 0 == (0 == A) => A
			}
		case ADD:
			if rhs.kids[0].IsConstant() { // X == Y + z => X - Y == z
				return a.Eq(a.Sub(lhs, rhs.kids[0]), rhs.kids[1])
			}
		case ZEXT, SEXT:
			// (ext(x) == c) == (x == trunc(c)) when c survives the round trip.
			src := rhs.kids[0]
			trunc := lhs.value & bitmask(src.width)
			ext := trunc
			if rhs.kind == SEXT {
				ext = uint64(signExtend(trunc, src.width)) & bitmask(lhs.width)
			}
			if ext != lhs.value {
				return a.False()
			}
			return a.Eq(a.Const(trunc, src.width), src)
		}

		if lhs.IsTrue() {
			return rhs
		}
	}
	return a.Intern(EQ, WidthBool, lhs, rhs)
}

// Ne returns the expression representing the inequality of lhs and rhs.
func (a *Arena) Ne(lhs, rhs *Expr) *Expr {
	return a.Eq(a.False(), a.Eq(lhs, rhs))
}

// IsZero returns an expression that checks the equality of e to zero.
// On booleans this is negation.
func (a *Arena) IsZero(e *Expr) *Expr {
	return a.Eq(a.Const(0, e.width), e)
}

// Ult returns lhs < rhs (unsigned).
func (a *Arena) Ult(lhs, rhs *Expr) *Expr { return a.compare(ULT, lhs, rhs) }

// Ule returns lhs <= rhs (unsigned).
func (a *Arena) Ule(lhs, rhs *Expr) *Expr { return a.compare(ULE, lhs, rhs) }

// Ugt returns lhs > rhs (unsigned).
func (a *Arena) Ugt(lhs, rhs *Expr) *Expr { return a.compare(ULT, rhs, lhs) } // reverse

// Uge returns lhs >= rhs (unsigned).
func (a *Arena) Uge(lhs, rhs *Expr) *Expr { return a.compare(ULE, rhs, lhs) } // reverse

// Slt returns lhs < rhs (signed).
func (a *Arena) Slt(lhs, rhs *Expr) *Expr { return a.compare(SLT, lhs, rhs) }

// Sle returns lhs <= rhs (signed).
func (a *Arena) Sle(lhs, rhs *Expr) *Expr { return a.compare(SLE, lhs, rhs) }

// Sgt returns lhs > rhs (signed).
func (a *Arena) Sgt(lhs, rhs *Expr) *Expr { return a.compare(SLT, rhs, lhs) } // reverse

// Sge returns lhs >= rhs (signed).
func (a *Arena) Sge(lhs, rhs *Expr) *Expr { return a.compare(SLE, rhs, lhs) } // reverse

func (a *Arena) compare(kind Kind, lhs, rhs *Expr) *Expr {
	if lhs == rhs {
		return a.Bool(kind == ULE || kind == SLE)
	}

	if lhs.IsConstant() && rhs.IsConstant() {
		switch kind {
		case ULT:
			return a.Bool(lhs.value < rhs.value)
		case ULE:
			return a.Bool(lhs.value <= rhs.value)
		case SLT:
			return a.Bool(lhs.SignedValue() < rhs.SignedValue())
		default:
			return a.Bool(lhs.SignedValue() <= rhs.SignedValue())
		}
	}

	// Nothing is below zero or above all ones.
	switch {
	case kind == ULT && rhs.IsConstant() && rhs.value == 0:
		return a.False()
	case kind == ULE && lhs.IsConstant() && lhs.value == 0:
		return a.True()
	case kind == ULE && rhs.IsAllOnes():
		return a.True()
	}
	return a.Intern(kind, WidthBool, lhs, rhs)
}

// Not returns the bitwise NOT of e. Booleans are negated by comparison with false.
func (a *Arena) Not(e *Expr) *Expr {
	if e.width == WidthBool {
		return a.IsZero(e)
	}

	if e.IsConstant() {
		return a.Const(^e.value, e.width)
	} else if e.kind == NOT {
		return e.kids[0]
	}
	return a.Intern(NOT, e.width, e)
}

// LogicalAnd returns the conjunction of boolean expressions.
func (a *Arena) LogicalAnd(exprs ...*Expr) *Expr {
	result := a.True()
	for _, e := range exprs {
		assert(e.width == WidthBool, "logical and: expected boolean, got width %d", e.width)
		result = a.And(result, e)
	}
	return result
}

// Select returns an if-then-else expression.
func (a *Arena) Select(cond, t, f *Expr) *Expr {
	assert(cond.width == WidthBool, "select: condition must be boolean, got width %d", cond.width)

	if cond.IsTrue() {
		return t
	} else if cond.IsFalse() {
		return f
	} else if t == f {
		return t
	}

	// Boolean branches on constants reduce to the condition itself.
	if t.width == WidthBool && t.IsConstant() && f.IsConstant() {
		if t.IsTrue() {
			return cond
		}
		return a.Not(cond)
	}
	return a.Intern(SELECT, t.width, cond, t, f)
}

// Concat returns the concatenation of msb and lsb.
func (a *Arena) Concat(msb, lsb *Expr) *Expr {
	assert(msb.width+lsb.width <= MaxWidth, "concat: width overflow: %d+%d", msb.width, lsb.width)

	if msb.IsConstant() && lsb.IsConstant() {
		return a.Const(msb.value<<lsb.width|lsb.value, msb.width+lsb.width)
	}

	// Combine extract expressions if they are contiguous.
	if msb.kind == EXTRACT && lsb.kind == EXTRACT {
		if msb.kids[0] == lsb.kids[0] && lsb.offset+lsb.width == msb.offset {
			return a.Extract(msb.kids[0], lsb.offset, msb.width+lsb.width)
		}
	}
	return a.Intern(CONCAT, msb.width+lsb.width, msb, lsb)
}

// Extract returns width number of bits of e starting at offset.
func (a *Arena) Extract(e *Expr, offset, width uint) *Expr {
	assert(width > 0, "extract width cannot be zero")
	assert(offset <= e.width && width <= e.width-offset, "extract out of bounds: %d+%d > %d", offset, width, e.width)

	if width == e.width {
		return e
	} else if e.IsConstant() {
		return a.Const(e.value>>offset, width)
	}

	if e.kind == CONCAT {
		msb, lsb := e.kids[0], e.kids[1]

		// Directly extract from MSB if we skip over LSB.
		if offset >= lsb.width {
			return a.Extract(msb, offset-lsb.width, width)
		}

		// Directly extract from LSB if we skip over MSB.
		if offset+width <= lsb.width {
			return a.Extract(lsb, offset, width)
		}

		// E(C(x,y)) = C(E(x), E(y))
		return a.Concat(
			a.Extract(msb, 0, offset+width-lsb.width),
			a.Extract(lsb, offset, lsb.width-offset),
		)
	}
	return a.InternExtract(e, offset, width)
}

// ZExt returns e zero-extended to width. Narrower widths truncate.
func (a *Arena) ZExt(e *Expr, width uint) *Expr {
	if width == e.width {
		return e
	} else if width < e.width {
		return a.Extract(e, 0, width)
	} else if e.IsConstant() {
		return a.Const(e.value, width)
	}
	return a.Intern(ZEXT, width, e)
}

// SExt returns e sign-extended to width. Narrower widths truncate.
func (a *Arena) SExt(e *Expr, width uint) *Expr {
	if width == e.width {
		return e
	} else if width < e.width {
		return a.Extract(e, 0, width)
	} else if e.IsConstant() {
		return a.Const(uint64(e.SignedValue()), width)
	}
	return a.Intern(SEXT, width, e)
}
