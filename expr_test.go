package pathcond_test

import (
	"testing"

	"github.com/benbjohnson/pathcond"
)

func TestKind_String(t *testing.T) {
	if s := pathcond.ADD.String(); s != "add" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := pathcond.SLE.String(); s != "sle" {
		t.Fatalf("unexpected string: %s", s)
	} else if s := pathcond.Kind(1000).String(); s != "Kind<1000>" {
		t.Fatalf("unexpected string: %s", s)
	}
}

func TestKind_IsArithmetic(t *testing.T) {
	if !pathcond.ASHR.IsArithmetic() {
		t.Fatal("expected arithmetic")
	} else if pathcond.EQ.IsArithmetic() || pathcond.NOT.IsArithmetic() {
		t.Fatal("expected not arithmetic")
	}
}

func TestKind_IsCompare(t *testing.T) {
	if !pathcond.ULT.IsCompare() {
		t.Fatal("expected comparison")
	} else if pathcond.ADD.IsCompare() || pathcond.SELECT.IsCompare() {
		t.Fatal("expected not comparison")
	}
}

func TestExpr_String(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 32)

	for _, tt := range []struct {
		expr *pathcond.Expr
		want string
	}{
		{a.Const(5, 32), "(const 5 32)"},
		{x, "(read x 32)"},
		{a.Add(x, a.Const(1, 32)), "(add (const 1 32) (read x 32))"},
		{a.Extract(x, 8, 16), "(extract (read x 32) 8 16)"},
		{a.ZExt(a.Read("y", 8), 32), "(zext (read y 8) 32)"},
		{a.SExt(a.Read("y", 8), 16), "(sext (read y 8) 16)"},
		{a.Select(a.Read("c", 1), x, a.Const(0, 32)), "(select (read c 1) (read x 32) (const 0 32))"},
		{a.Not(x), "(not (read x 32))"},
	} {
		if s := tt.expr.String(); s != tt.want {
			t.Fatalf("unexpected string: %s, want %s", s, tt.want)
		}
	}
}

func TestExpr_SignedValue(t *testing.T) {
	a := pathcond.NewArena()
	if v := a.Const(0xFF, 8).SignedValue(); v != -1 {
		t.Fatalf("unexpected value: %d", v)
	} else if v := a.Const(0x7F, 8).SignedValue(); v != 127 {
		t.Fatalf("unexpected value: %d", v)
	} else if v := a.Const(1<<63, 64).SignedValue(); v != -1<<63 {
		t.Fatalf("unexpected value: %d", v)
	}
}

func TestArena_Add(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 32)

	t.Run("Constant", func(t *testing.T) {
		if e := a.Add(a.Const(1, 32), a.Const(2, 32)); e != a.Const(3, 32) {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Overflow", func(t *testing.T) {
		if e := a.Add(a.Const(0xFFFFFFFF, 32), a.Const(1, 32)); e != a.Const(0, 32) {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Zero", func(t *testing.T) {
		if e := a.Add(x, a.Const(0, 32)); e != x {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Commutative", func(t *testing.T) {
		if a.Add(x, a.Const(1, 32)) != a.Add(a.Const(1, 32), x) {
			t.Fatal("expected same node")
		}
	})
	t.Run("Bool", func(t *testing.T) {
		if s := a.Add(a.Read("b", 1), a.Read("c", 1)).String(); s != "(xor (read b 1) (read c 1))" {
			t.Fatalf("unexpected expr: %s", s)
		}
	})
	t.Run("MergeConstants", func(t *testing.T) {
		e := a.Add(a.Const(1, 32), a.Add(a.Const(2, 32), x))
		if s := e.String(); s != "(add (const 3 32) (read x 32))" {
			t.Fatalf("unexpected expr: %s", s)
		}
	})
}

func TestArena_Sub(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 32)

	if e := a.Sub(x, x); e != a.Const(0, 32) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Sub(a.Const(5, 8), a.Const(7, 8)); e != a.Const(254, 8) {
		t.Fatalf("unexpected expr: %s", e)
	} else if s := a.Sub(x, a.Const(1, 32)).String(); s != "(add (const 4294967295 32) (read x 32))" {
		t.Fatalf("unexpected expr: %s", s)
	} else if s := a.Sub(a.Const(1, 32), x).String(); s != "(sub (const 1 32) (read x 32))" {
		t.Fatalf("unexpected expr: %s", s)
	}
}

func TestArena_Mul(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 32)

	if e := a.Mul(a.Const(3, 32), a.Const(4, 32)); e != a.Const(12, 32) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Mul(x, a.Const(1, 32)); e != x {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Mul(x, a.Const(0, 32)); e != a.Const(0, 32) {
		t.Fatalf("unexpected expr: %s", e)
	} else if s := a.Mul(a.Read("b", 1), a.Read("c", 1)).String(); s != "(and (read b 1) (read c 1))" {
		t.Fatalf("unexpected expr: %s", s)
	}
}

func TestArena_Div(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 32)

	t.Run("Unsigned", func(t *testing.T) {
		if e := a.UDiv(a.Const(7, 32), a.Const(2, 32)); e != a.Const(3, 32) {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Signed", func(t *testing.T) {
		if e := a.SDiv(a.Const(0xF9, 8), a.Const(2, 8)); e != a.Const(0xFD, 8) { // -7/2 == -3
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("One", func(t *testing.T) {
		if e := a.SDiv(x, a.Const(1, 32)); e != x {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("ByZero", func(t *testing.T) {
		if s := a.UDiv(a.Const(1, 32), a.Const(0, 32)).String(); s != "(udiv (const 1 32) (const 0 32))" {
			t.Fatalf("unexpected expr: %s", s)
		}
	})
}

func TestArena_Rem(t *testing.T) {
	a := pathcond.NewArena()
	if e := a.URem(a.Const(7, 32), a.Const(2, 32)); e != a.Const(1, 32) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.SRem(a.Const(0xF9, 8), a.Const(2, 8)); e != a.Const(0xFF, 8) { // -7%2 == -1
		t.Fatalf("unexpected expr: %s", e)
	} else if s := a.SRem(a.Const(1, 8), a.Const(0, 8)).String(); s != "(srem (const 1 8) (const 0 8))" {
		t.Fatalf("unexpected expr: %s", s)
	}
}

func TestArena_Bitwise(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 8)

	t.Run("And", func(t *testing.T) {
		if e := a.And(a.Const(0xF0, 8), a.Const(0x3C, 8)); e != a.Const(0x30, 8) {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.And(x, a.Const(0xFF, 8)); e != x {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.And(x, a.Const(0, 8)); e != a.Const(0, 8) {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.And(x, x); e != x {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Or", func(t *testing.T) {
		if e := a.Or(x, a.Const(0, 8)); e != x {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.Or(x, a.Const(0xFF, 8)); e != a.Const(0xFF, 8) {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Xor", func(t *testing.T) {
		if e := a.Xor(x, x); e != a.Const(0, 8) {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.Xor(a.Const(0, 8), x); e != x {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Not", func(t *testing.T) {
		if e := a.Not(a.Const(0x0F, 8)); e != a.Const(0xF0, 8) {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.Not(a.Not(x)); e != x {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("NotBool", func(t *testing.T) {
		b := a.Read("b", 1)
		if s := a.Not(b).String(); s != "(eq (const 0 1) (read b 1))" {
			t.Fatalf("unexpected expr: %s", s)
		} else if e := a.Not(a.Not(b)); e != b {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
}

func TestArena_Shift(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 8)

	if e := a.Shl(a.Const(1, 8), a.Const(3, 8)); e != a.Const(8, 8) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Shl(a.Const(1, 8), a.Const(8, 8)); e != a.Const(0, 8) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.LShr(a.Const(0x80, 8), a.Const(7, 8)); e != a.Const(1, 8) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.AShr(a.Const(0x80, 8), a.Const(7, 8)); e != a.Const(0xFF, 8) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.AShr(a.Const(0x80, 8), a.Const(100, 8)); e != a.Const(0xFF, 8) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.LShr(x, a.Const(0, 8)); e != x {
		t.Fatalf("unexpected expr: %s", e)
	}
}

func TestArena_Eq(t *testing.T) {
	a := pathcond.NewArena()
	x, y := a.Read("x", 32), a.Read("y", 8)

	t.Run("ConstantLeft", func(t *testing.T) {
		if a.Eq(x, a.Const(5, 32)) != a.Eq(a.Const(5, 32), x) {
			t.Fatal("expected same node")
		} else if s := a.Eq(x, a.Const(5, 32)).String(); s != "(eq (const 5 32) (read x 32))" {
			t.Fatalf("unexpected expr: %s", s)
		}
	})
	t.Run("Constant", func(t *testing.T) {
		if e := a.Eq(a.Const(1, 32), a.Const(2, 32)); e != a.False() {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.Eq(x, x); e != a.True() {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("True", func(t *testing.T) {
		b := a.Read("b", 1)
		if e := a.Eq(a.True(), b); e != b {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Add", func(t *testing.T) {
		e := a.Eq(a.Const(12, 32), a.Add(a.Const(2, 32), x))
		if e != a.Eq(a.Const(10, 32), x) {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("ZExt", func(t *testing.T) {
		if e := a.Eq(a.Const(5, 32), a.ZExt(y, 32)); e != a.Eq(a.Const(5, 8), y) {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.Eq(a.Const(300, 32), a.ZExt(y, 32)); e != a.False() {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("SExt", func(t *testing.T) {
		if e := a.Eq(a.Const(0xFFFFFFFF, 32), a.SExt(y, 32)); e != a.Eq(a.Const(0xFF, 8), y) {
			t.Fatalf("unexpected expr: %s", e)
		} else if e := a.Eq(a.Const(0x80, 32), a.SExt(y, 32)); e != a.False() {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Ne", func(t *testing.T) {
		if s := a.Ne(x, a.Const(5, 32)).String(); s != "(eq (const 0 1) (eq (const 5 32) (read x 32)))" {
			t.Fatalf("unexpected expr: %s", s)
		} else if e := a.Ne(x, x); e != a.False() {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
}

func TestArena_Compare(t *testing.T) {
	a := pathcond.NewArena()
	x, y := a.Read("x", 32), a.Read("y", 32)

	if e := a.Ult(a.Const(5, 32), a.Const(10, 32)); e != a.True() {
		t.Fatalf("unexpected expr: %s", e)
	} else if s := a.Ugt(x, a.Const(0, 32)).String(); s != "(ult (const 0 32) (read x 32))" {
		t.Fatalf("unexpected expr: %s", s)
	} else if e := a.Ult(x, a.Const(0, 32)); e != a.False() {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Ule(a.Const(0, 32), x); e != a.True() {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Uge(x, x); e != a.True() {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Slt(a.Const(0xFF, 8), a.Const(0, 8)); e != a.True() {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Sgt(x, x); e != a.False() {
		t.Fatalf("unexpected expr: %s", e)
	} else if s := a.Sge(x, y).String(); s != "(sle (read y 32) (read x 32))" {
		t.Fatalf("unexpected expr: %s", s)
	}
}

func TestArena_Select(t *testing.T) {
	a := pathcond.NewArena()
	c, x, y := a.Read("c", 1), a.Read("x", 32), a.Read("y", 32)

	if e := a.Select(a.True(), x, y); e != x {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Select(a.False(), x, y); e != y {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Select(c, x, x); e != x {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Select(c, a.True(), a.False()); e != c {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Select(c, a.False(), a.True()); e != a.Not(c) {
		t.Fatalf("unexpected expr: %s", e)
	}
}

func TestArena_Concat(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 32)

	if e := a.Concat(a.Const(0xAA, 8), a.Const(0xBB, 8)); e != a.Const(0xAABB, 16) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.Concat(a.Extract(x, 16, 16), a.Extract(x, 0, 16)); e != x {
		t.Fatalf("unexpected expr: %s", e)
	} else if s := a.Concat(a.Read("y", 8), a.Read("z", 8)).String(); s != "(concat (read y 8) (read z 8))" {
		t.Fatalf("unexpected expr: %s", s)
	}
}

func TestArena_Extract(t *testing.T) {
	a := pathcond.NewArena()
	x, y := a.Read("x", 8), a.Read("y", 8)
	xy := a.Concat(x, y)

	t.Run("FullWidth", func(t *testing.T) {
		if e := a.Extract(x, 0, 8); e != x {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("Constant", func(t *testing.T) {
		if e := a.Extract(a.Const(0xAABB, 16), 8, 8); e != a.Const(0xAA, 8) {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("ConcatMSB", func(t *testing.T) {
		if e := a.Extract(xy, 8, 8); e != x {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("ConcatLSB", func(t *testing.T) {
		if e := a.Extract(xy, 0, 8); e != y {
			t.Fatalf("unexpected expr: %s", e)
		}
	})
	t.Run("ConcatSpan", func(t *testing.T) {
		if s := a.Extract(xy, 4, 8).String(); s != "(concat (extract (read x 8) 0 4) (extract (read y 8) 4 4))" {
			t.Fatalf("unexpected expr: %s", s)
		}
	})
	t.Run("OutOfBounds", func(t *testing.T) {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic")
			}
		}()
		a.Extract(x, 4, 8)
	})
}

func TestArena_Cast(t *testing.T) {
	a := pathcond.NewArena()
	x, y := a.Read("x", 8), a.Read("y", 32)

	if e := a.ZExt(x, 8); e != x {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.ZExt(a.Const(0xFF, 8), 16); e != a.Const(0xFF, 16) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.ZExt(y, 8); e != a.Extract(y, 0, 8) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.SExt(a.Const(0x80, 8), 16); e != a.Const(0xFF80, 16) {
		t.Fatalf("unexpected expr: %s", e)
	} else if e := a.SExt(a.Const(0x7F, 8), 64); e != a.Const(0x7F, 64) {
		t.Fatalf("unexpected expr: %s", e)
	}
}

func TestArena_Rebuild(t *testing.T) {
	a := pathcond.NewArena()
	x := a.Read("x", 32)

	e := a.Ult(x, a.Const(10, 32))
	if other := a.Rebuild(e, []*pathcond.Expr{a.Const(5, 32), a.Const(10, 32)}); other != a.True() {
		t.Fatalf("unexpected expr: %s", other)
	}

	ext := a.Extract(x, 8, 8)
	if other := a.Rebuild(ext, []*pathcond.Expr{a.Const(0x1234, 32)}); other != a.Const(0x12, 8) {
		t.Fatalf("unexpected expr: %s", other)
	}
}
