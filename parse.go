package pathcond

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// ParseExpr parses the string form produced by Expr.String.
//
// Nodes are interned as written, without simplification, so printing and
// parsing an expression returns the identical node.
func ParseExpr(a *Arena, s string) (*Expr, error) {
	p := &parser{arena: a, s: s}
	e, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if tok, pos := p.next(); tok != "" {
		return nil, errors.Errorf("offset %d: unexpected %q after expression", pos, tok)
	}
	return e, nil
}

// MustParseExpr is like ParseExpr but panics on error.
func MustParseExpr(a *Arena, s string) *Expr {
	e, err := ParseExpr(a, s)
	if err != nil {
		panic(err)
	}
	return e
}

type parser struct {
	arena *Arena
	s     string
	pos   int
}

// next returns the next token and its offset. Returns an empty token at the end of input.
func (p *parser) next() (string, int) {
	for p.pos < len(p.s) && isSpace(p.s[p.pos]) {
		p.pos++
	}
	start := p.pos
	if p.pos >= len(p.s) {
		return "", start
	}

	if c := p.s[p.pos]; c == '(' || c == ')' {
		p.pos++
		return p.s[start:p.pos], start
	}
	for p.pos < len(p.s) && !isSpace(p.s[p.pos]) && p.s[p.pos] != '(' && p.s[p.pos] != ')' {
		p.pos++
	}
	return p.s[start:p.pos], start
}

func (p *parser) expect(want string) error {
	if tok, pos := p.next(); tok != want {
		return errors.Errorf("offset %d: expected %q, got %q", pos, want, tok)
	}
	return nil
}

func (p *parser) parseUint(what string) (uint64, error) {
	tok, pos := p.next()
	v, err := strconv.ParseUint(tok, 0, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "offset %d: invalid %s", pos, what)
	}
	return v, nil
}

func (p *parser) parseExpr() (*Expr, error) {
	start := p.pos
	if err := p.expect("("); err != nil {
		return nil, err
	}

	tok, pos := p.next()
	kind := kindByName(tok)
	if kind == invalid_kind {
		return nil, errors.Errorf("offset %d: unknown operator %q", pos, tok)
	}

	var (
		kids          []*Expr
		width, offset uint
	)
	switch kind {
	case CONST:
		value, err := p.parseUint("constant")
		if err != nil {
			return nil, err
		}
		w, err := p.parseUint("width")
		if err != nil {
			return nil, err
		} else if w == 0 || w > MaxWidth {
			return nil, errors.Errorf("offset %d: invalid width %d", start, w)
		} else if value&bitmask(uint(w)) != value {
			return nil, errors.Errorf("offset %d: constant %d does not fit in %d bits", start, value, w)
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return p.arena.Const(value, uint(w)), nil

	case READ:
		name, namePos := p.next()
		if name == "" || name == "(" || name == ")" {
			return nil, errors.Errorf("offset %d: expected variable name, got %q", namePos, name)
		}
		w, err := p.parseUint("width")
		if err != nil {
			return nil, err
		} else if w == 0 || w > MaxWidth {
			return nil, errors.Errorf("offset %d: invalid width %d", start, w)
		}
		if err := p.expect(")"); err != nil {
			return nil, err
		}
		return p.arena.Read(name, uint(w)), nil
	}

	// Parse operands.
	n := 1
	switch {
	case kind == SELECT:
		n = 3
	case kind == CONCAT || kind.IsBinary():
		n = 2
	}
	for i := 0; i < n; i++ {
		kid, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		kids = append(kids, kid)
	}

	// Parse trailing parameters and derive the width.
	switch {
	case kind == EXTRACT:
		off, err := p.parseUint("offset")
		if err != nil {
			return nil, err
		}
		w, err := p.parseUint("width")
		if err != nil {
			return nil, err
		} else if off > MaxWidth {
			return nil, errors.Errorf("offset %d: invalid offset %d", start, off)
		}
		offset, width = uint(off), uint(w)
	case kind == ZEXT || kind == SEXT:
		w, err := p.parseUint("width")
		if err != nil {
			return nil, err
		}
		width = uint(w)
	case kind == CONCAT:
		width = kids[0].width + kids[1].width
	case kind == SELECT:
		width = kids[1].width
	case kind.IsCompare():
		width = WidthBool
	default:
		width = kids[0].width
	}
	if err := p.expect(")"); err != nil {
		return nil, err
	}

	if err := checkWidths(kind, width, offset, kids); err != nil {
		return nil, errors.Wrapf(err, "offset %d", start)
	}
	if kind == EXTRACT {
		return p.arena.InternExtract(kids[0], offset, width), nil
	}
	return p.arena.Intern(kind, width, kids...), nil
}

func isSpace(c byte) bool {
	return strings.IndexByte(" \t\r\n", c) >= 0
}
