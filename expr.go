package pathcond

import (
	"fmt"
	"strings"
)

// Kind represents the operator of an expression node.
type Kind int

// Expression kinds.
const (
	invalid_kind = Kind(iota)

	CONST
	READ
	SELECT
	CONCAT
	EXTRACT
	ZEXT
	SEXT
	NOT

	arithmetic_op_begin
	ADD
	SUB
	MUL
	UDIV
	SDIV
	UREM
	SREM
	AND
	OR
	XOR
	SHL
	LSHR
	ASHR
	arithmetic_op_end

	compare_op_begin
	EQ
	ULT
	ULE
	SLT
	SLE
	compare_op_end
)

var kinds = [...]string{
	CONST:   "const",
	READ:    "read",
	SELECT:  "select",
	CONCAT:  "concat",
	EXTRACT: "extract",
	ZEXT:    "zext",
	SEXT:    "sext",
	NOT:     "not",
	ADD:     "add",
	SUB:     "sub",
	MUL:     "mul",
	UDIV:    "udiv",
	SDIV:    "sdiv",
	UREM:    "urem",
	SREM:    "srem",
	AND:     "and",
	OR:      "or",
	XOR:     "xor",
	SHL:     "shl",
	LSHR:    "lshr",
	ASHR:    "ashr",
	EQ:      "eq",
	ULT:     "ult",
	ULE:     "ule",
	SLT:     "slt",
	SLE:     "sle",
}

// String returns the string representation of the kind.
func (k Kind) String() string {
	if k >= 0 && k < Kind(len(kinds)) && kinds[k] != "" {
		return kinds[k]
	}
	return fmt.Sprintf("Kind<%d>", k)
}

// IsArithmetic returns true if k is a two-operand arithmetic or bitwise operator.
func (k Kind) IsArithmetic() bool {
	return k > arithmetic_op_begin && k < arithmetic_op_end
}

// IsCompare returns true if k is a comparison operator.
func (k Kind) IsCompare() bool {
	return k > compare_op_begin && k < compare_op_end
}

// IsBinary returns true if k takes exactly two operands of equal width.
func (k Kind) IsBinary() bool {
	return k.IsArithmetic() || k.IsCompare()
}

// kindByName returns the kind for a lowercase operator name.
func kindByName(name string) Kind {
	for k, s := range kinds {
		if s != "" && s == name {
			return Kind(k)
		}
	}
	return invalid_kind
}

// Expr represents an immutable, canonical expression node.
//
// Nodes are only created by an Arena. Two nodes with the same structure
// from the same arena are the same pointer, so == is structural equality.
type Expr struct {
	id     uint64
	hash   uint64
	kind   Kind
	width  uint
	value  uint64 // CONST
	name   string // READ
	offset uint   // EXTRACT
	kids   []*Expr
}

// ID returns the identifier assigned when the node was interned.
func (e *Expr) ID() uint64 { return e.id }

// Hash returns the cached structural hash.
func (e *Expr) Hash() uint64 { return e.hash }

// Kind returns the operator of the node.
func (e *Expr) Kind() Kind { return e.kind }

// Width returns the bit width of the node.
func (e *Expr) Width() uint { return e.width }

// Value returns the value of a constant node.
func (e *Expr) Value() uint64 { return e.value }

// Name returns the variable name of a read node.
func (e *Expr) Name() string { return e.name }

// Offset returns the starting bit of an extract node.
func (e *Expr) Offset() uint { return e.offset }

// NumKids returns the number of operands.
func (e *Expr) NumKids() int { return len(e.kids) }

// Kid returns the i-th operand.
func (e *Expr) Kid(i int) *Expr { return e.kids[i] }

// Kids returns a copy of the operands.
func (e *Expr) Kids() []*Expr {
	return append([]*Expr(nil), e.kids...)
}

// IsConstant returns true if e is a constant node.
func (e *Expr) IsConstant() bool { return e.kind == CONST }

// IsTrue returns true if e is the boolean constant true.
func (e *Expr) IsTrue() bool {
	return e.kind == CONST && e.width == WidthBool && e.value != 0
}

// IsFalse returns true if e is the boolean constant false.
func (e *Expr) IsFalse() bool {
	return e.kind == CONST && e.width == WidthBool && e.value == 0
}

// IsAllOnes returns true if e is a constant with every bit set.
func (e *Expr) IsAllOnes() bool {
	return e.kind == CONST && e.value == bitmask(e.width)
}

// SignedValue returns the value of a constant node sign-extended to 64 bits.
func (e *Expr) SignedValue() int64 {
	return signExtend(e.value, e.width)
}

// String returns the string representation of the expression.
func (e *Expr) String() string {
	var sb strings.Builder
	e.writeTo(&sb)
	return sb.String()
}

func (e *Expr) writeTo(sb *strings.Builder) {
	switch e.kind {
	case CONST:
		fmt.Fprintf(sb, "(const %d %d)", e.value, e.width)
		return
	case READ:
		fmt.Fprintf(sb, "(read %s %d)", e.name, e.width)
		return
	}

	sb.WriteByte('(')
	sb.WriteString(e.kind.String())
	for _, kid := range e.kids {
		sb.WriteByte(' ')
		kid.writeTo(sb)
	}
	switch e.kind {
	case EXTRACT:
		fmt.Fprintf(sb, " %d %d", e.offset, e.width)
	case ZEXT, SEXT:
		fmt.Fprintf(sb, " %d", e.width)
	}
	sb.WriteByte(')')
}

// shallowEqual returns true if e and other have the same operator, immediate
// fields and operand identities.
func (e *Expr) shallowEqual(other *Expr) bool {
	if e.kind != other.kind || e.width != other.width || e.value != other.value ||
		e.name != other.name || e.offset != other.offset || len(e.kids) != len(other.kids) {
		return false
	}
	for i := range e.kids {
		if e.kids[i] != other.kids[i] {
			return false
		}
	}
	return true
}

// checkWidths returns an error if the operands cannot form a node of the
// given kind and width.
func checkWidths(kind Kind, width uint, offset uint, kids []*Expr) error {
	if width == 0 || width > MaxWidth {
		return fmt.Errorf("%s: invalid width %d", kind, width)
	}
	for i, kid := range kids {
		if kid == nil {
			return fmt.Errorf("%s: operand %d is nil", kind, i)
		}
	}

	switch {
	case kind == CONST || kind == READ:
		if len(kids) != 0 {
			return fmt.Errorf("%s: unexpected operands", kind)
		}
	case kind == NOT:
		if len(kids) != 1 {
			return fmt.Errorf("not: expected 1 operand, got %d", len(kids))
		} else if kids[0].width != width {
			return fmt.Errorf("not: width mismatch: %d != %d", kids[0].width, width)
		}
	case kind == ZEXT || kind == SEXT:
		if len(kids) != 1 {
			return fmt.Errorf("%s: expected 1 operand, got %d", kind, len(kids))
		} else if kids[0].width > width {
			return fmt.Errorf("%s: cannot extend %d bits to %d", kind, kids[0].width, width)
		}
	case kind == EXTRACT:
		if len(kids) != 1 {
			return fmt.Errorf("extract: expected 1 operand, got %d", len(kids))
		} else if offset > kids[0].width || width > kids[0].width-offset {
			return fmt.Errorf("extract out of bounds: %d+%d > %d", offset, width, kids[0].width)
		}
	case kind == CONCAT:
		if len(kids) != 2 {
			return fmt.Errorf("concat: expected 2 operands, got %d", len(kids))
		} else if kids[0].width+kids[1].width != width {
			return fmt.Errorf("concat: width mismatch: %d+%d != %d", kids[0].width, kids[1].width, width)
		}
	case kind == SELECT:
		if len(kids) != 3 {
			return fmt.Errorf("select: expected 3 operands, got %d", len(kids))
		} else if kids[0].width != WidthBool {
			return fmt.Errorf("select: condition must be boolean, got width %d", kids[0].width)
		} else if kids[1].width != width || kids[2].width != width {
			return fmt.Errorf("select: width mismatch: %d/%d != %d", kids[1].width, kids[2].width, width)
		}
	case kind.IsBinary():
		if len(kids) != 2 {
			return fmt.Errorf("%s: expected 2 operands, got %d", kind, len(kids))
		} else if kids[0].width != kids[1].width {
			return fmt.Errorf("%s: width mismatch: %d != %d", kind, kids[0].width, kids[1].width)
		} else if kind.IsCompare() && width != WidthBool {
			return fmt.Errorf("%s: comparison must be boolean, got width %d", kind, width)
		} else if kind.IsArithmetic() && width != kids[0].width {
			return fmt.Errorf("%s: width mismatch: %d != %d", kind, kids[0].width, width)
		}
	default:
		return fmt.Errorf("invalid kind: %s", kind)
	}
	return nil
}

// signExtend interprets the low width bits of v as a two's complement integer.
func signExtend(v uint64, width uint) int64 {
	if width >= 64 {
		return int64(v)
	}
	shift := 64 - width
	return int64(v<<shift) >> shift
}
