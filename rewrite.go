package pathcond

import "sort"

// Substitution maps expressions to their replacements.
type Substitution map[*Expr]*Expr

// Rewriter applies a substitution to expressions bottom-up.
//
// Results are memoized by original node, so every shared node is rewritten
// at most once per Rewriter. Nodes whose operands are unchanged keep their
// identity.
type Rewriter struct {
	arena *Arena
	rules Substitution
	memo  map[*Expr]*Expr
}

// NewRewriter returns a new instance of Rewriter.
func NewRewriter(a *Arena, rules Substitution) *Rewriter {
	return &Rewriter{
		arena: a,
		rules: rules,
		memo:  make(map[*Expr]*Expr),
	}
}

// Rewrite returns root with the substitution applied and whether it changed.
func (r *Rewriter) Rewrite(root *Expr) (*Expr, bool) {
	other := r.rewrite(root)
	return other, other != root
}

// Visited returns the number of distinct nodes rewritten so far.
func (r *Rewriter) Visited() int { return len(r.memo) }

func (r *Rewriter) rewrite(e *Expr) *Expr {
	if other, ok := r.memo[e]; ok {
		return other
	}
	other := r.visit(e)
	r.memo[e] = other
	return other
}

func (r *Rewriter) visit(e *Expr) *Expr {
	if other, ok := r.rules[e]; ok {
		return other
	}

	var kids []*Expr
	for i, kid := range e.kids {
		other := r.rewrite(kid)
		if other != kid && kids == nil {
			kids = append([]*Expr(nil), e.kids...)
		}
		if kids != nil {
			kids[i] = other
		}
	}
	if kids == nil {
		return e
	}

	// Match again once the rebuilt node has settled.
	other := r.arena.Rebuild(e, kids)
	if replacement, ok := r.rules[other]; ok {
		return replacement
	}
	return other
}

// Visitor represents a visitor that can be passed to Walk().
type Visitor interface {
	// Executed for every distinct node. Return nil to skip the operands.
	Visit(e *Expr) Visitor
}

// VisitorFunc adapts a function to the Visitor interface.
type VisitorFunc func(e *Expr) bool

// Visit calls fn and continues into the operands if it returns true.
func (fn VisitorFunc) Visit(e *Expr) Visitor {
	if fn(e) {
		return fn
	}
	return nil
}

// Walk traverses each distinct node reachable from roots once, in pre-order.
func Walk(v Visitor, roots ...*Expr) {
	seen := make(map[*Expr]struct{})
	for _, root := range roots {
		walk(v, root, seen)
	}
}

func walk(v Visitor, e *Expr, seen map[*Expr]struct{}) {
	if _, ok := seen[e]; ok {
		return
	}
	seen[e] = struct{}{}

	if v = v.Visit(e); v == nil {
		return
	}
	for _, kid := range e.kids {
		walk(v, kid, seen)
	}
}

// FindReads returns all symbolic variables in the expressions, sorted by name.
func FindReads(exprs ...*Expr) []*Expr {
	var a []*Expr
	Walk(VisitorFunc(func(e *Expr) bool {
		if e.kind == READ {
			a = append(a, e)
		}
		return true
	}), exprs...)

	sort.Slice(a, func(i, j int) bool {
		if a[i].name != a[j].name {
			return a[i].name < a[j].name
		}
		return a[i].width < a[j].width
	})
	return a
}

// Size returns the number of distinct nodes reachable from roots.
func Size(roots ...*Expr) int {
	var n int
	Walk(VisitorFunc(func(*Expr) bool { n++; return true }), roots...)
	return n
}
