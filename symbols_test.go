package pathcond_test

import (
	"testing"

	"github.com/benbjohnson/pathcond"
	"github.com/google/go-cmp/cmp"
)

func TestSymbols_Fresh(t *testing.T) {
	t.Run("Unique", func(t *testing.T) {
		a := pathcond.NewArena()
		s := pathcond.NewSymbols(a)

		x0 := s.Fresh("x", 32)
		x1 := s.Fresh("x", 32)
		x2 := s.Fresh("x", 8)
		if x0.Name() != "x" || x1.Name() != "x_1" || x2.Name() != "x_2" {
			t.Fatalf("unexpected names: %s, %s, %s", x0.Name(), x1.Name(), x2.Name())
		} else if x2.Width() != 8 {
			t.Fatalf("unexpected width: %d", x2.Width())
		} else if x0 != a.Read("x", 32) {
			t.Fatal("expected canonical read")
		}

		if diff := cmp.Diff(s.Names(), []string{"x", "x_1", "x_2"}); diff != "" {
			t.Fatal(diff)
		}
	})

	// Ensure a generated suffix that is already taken is skipped.
	t.Run("SuffixTaken", func(t *testing.T) {
		s := pathcond.NewSymbols(pathcond.NewArena())
		s.Fresh("x_1", 32)
		s.Fresh("x", 32)
		if e := s.Fresh("x", 32); e.Name() != "x_2" {
			t.Fatalf("unexpected name: %s", e.Name())
		}
	})

	t.Run("ErrInvalidName", func(t *testing.T) {
		s := pathcond.NewSymbols(pathcond.NewArena())
		defer func() {
			if r := recover(); r == nil {
				t.Fatal("expected panic")
			}
		}()
		s.Fresh("a b", 32)
	})
}

func TestSymbols_Lookup(t *testing.T) {
	s := pathcond.NewSymbols(pathcond.NewArena())
	x := s.Fresh("x", 32)
	if s.Lookup("x") != x {
		t.Fatal("expected variable")
	} else if s.Lookup("y") != nil {
		t.Fatal("expected nil")
	}
}

// Ensure forks never observe each other's variables.
func TestSymbols_Clone(t *testing.T) {
	s0 := pathcond.NewSymbols(pathcond.NewArena())
	s0.Fresh("x", 32)

	s1 := s0.Clone()
	if e := s1.Fresh("x", 32); e.Name() != "x_1" {
		t.Fatalf("unexpected name: %s", e.Name())
	} else if s0.Len() != 1 || s1.Len() != 2 {
		t.Fatalf("unexpected lengths: %d, %d", s0.Len(), s1.Len())
	}

	if e := s0.Fresh("y", 8); e.Name() != "y" {
		t.Fatalf("unexpected name: %s", e.Name())
	} else if s1.Lookup("y") != nil {
		t.Fatal("expected clone unaffected")
	}
}
