package main

import (
	"os"
	"strings"

	"github.com/benbjohnson/pathcond"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Script describes the constraint steps taken along one path.
type Script struct {
	Name    string            `yaml:"name"`
	Symbols []Symbol          `yaml:"symbols"`
	Inputs  map[string]uint64 `yaml:"inputs,omitempty"`
	Steps   []Step            `yaml:"steps"`
}

// Symbol declares a symbolic variable.
type Symbol struct {
	Name  string `yaml:"name"`
	Width uint   `yaml:"width"`
}

// Step is a single operation on the path's constraints. Exactly one field is set.
type Step struct {
	Add       string `yaml:"add,omitempty"`
	Concolic  string `yaml:"concolic,omitempty"`
	Propagate string `yaml:"propagate,omitempty"`
	Check     string `yaml:"check,omitempty"`
	Pop       bool   `yaml:"pop,omitempty"`
	Erase     *int   `yaml:"erase,omitempty"`
}

// Op returns the name of the operation and its expression, if any.
func (s *Step) Op() (op, expr string, err error) {
	var n int
	for _, v := range []struct {
		op, expr string
		set      bool
	}{
		{"add", s.Add, s.Add != ""},
		{"concolic", s.Concolic, s.Concolic != ""},
		{"propagate", s.Propagate, s.Propagate != ""},
		{"check", s.Check, s.Check != ""},
		{"pop", "", s.Pop},
		{"erase", "", s.Erase != nil},
	} {
		if v.set {
			op, expr = v.op, v.expr
			n++
		}
	}

	switch n {
	case 0:
		return "", "", errors.New("empty step")
	case 1:
		return op, expr, nil
	default:
		return "", "", errors.New("step must have exactly one operation")
	}
}

// ReadScript reads a script from a YAML file.
func ReadScript(filename string) (*Script, error) {
	f, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var s Script
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, errors.Wrapf(err, "decode %s", filename)
	} else if s.Name == "" {
		return nil, errors.Errorf("%s: name required", filename)
	} else if strings.ContainsAny(s.Name, `/\`) || s.Name == "." || s.Name == ".." {
		return nil, errors.Errorf("%s: invalid name: %q", filename, s.Name)
	}
	return &s, nil
}

// declare registers the script's symbols in syms.
func (s *Script) declare(syms *pathcond.Symbols) error {
	for _, sym := range s.Symbols {
		if sym.Name == "" || strings.ContainsAny(sym.Name, "() \t\n") {
			return errors.Errorf("invalid symbol name: %q", sym.Name)
		} else if sym.Width == 0 || sym.Width > pathcond.MaxWidth {
			return errors.Errorf("symbol %s: invalid width %d", sym.Name, sym.Width)
		} else if e := syms.Fresh(sym.Name, sym.Width); e.Name() != sym.Name {
			return errors.Errorf("symbol %s: declared twice", sym.Name)
		}
	}
	return nil
}

// parseFact parses a boolean expression and checks that it only reads
// declared symbols.
func parseFact(a *pathcond.Arena, syms *pathcond.Symbols, s string) (*pathcond.Expr, error) {
	e, err := pathcond.ParseExpr(a, s)
	if err != nil {
		return nil, err
	} else if e.Width() != pathcond.WidthBool {
		return nil, errors.Errorf("expected boolean expression, got width %d", e.Width())
	}

	for _, r := range pathcond.FindReads(e) {
		if sym := syms.Lookup(r.Name()); sym == nil {
			return nil, errors.Errorf("undeclared symbol: %s", r.Name())
		} else if sym != r {
			return nil, errors.Errorf("symbol %s: width mismatch: %d != %d", r.Name(), r.Width(), sym.Width())
		}
	}
	return a.Normalize(e), nil
}
