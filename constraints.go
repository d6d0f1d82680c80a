package pathcond

import (
	"iter"
	"slices"
	"strings"
)

// Constraints represents the ordered set of boolean facts known to hold along
// one execution path. Their conjunction is the path condition.
//
// Facts are kept syntactically small: adding an equality with a constant
// substitutes it into the facts already stored, and facts that become true are
// dropped. A Constraints is not safe for concurrent use. Clone it when the
// owning path forks.
type Constraints struct {
	arena    *Arena
	exprs    []*Expr
	concolic int
}

// NewConstraints returns a new, empty instance of Constraints.
func NewConstraints(a *Arena) *Constraints {
	assert(a != nil, "constraints: arena required")
	return &Constraints{arena: a}
}

// NewConstraintsFrom returns an instance of Constraints holding exprs as-is.
// No simplification is performed.
func NewConstraintsFrom(a *Arena, exprs []*Expr) *Constraints {
	c := NewConstraints(a)
	for _, e := range exprs {
		assert(e.width == WidthBool, "constraints: expected boolean, got width %d: %s", e.width, e)
	}
	c.exprs = slices.Clone(exprs)
	return c
}

// Arena returns the arena the facts are built in.
func (c *Constraints) Arena() *Arena { return c.arena }

// Empty returns true if there are no facts.
func (c *Constraints) Empty() bool { return len(c.exprs) == 0 }

// Len returns the number of facts.
func (c *Constraints) Len() int { return len(c.exprs) }

// ConcolicSize returns how many facts were added by AddConcolicConstraint.
func (c *Constraints) ConcolicSize() int { return c.concolic }

// Back returns the last fact. Panics if empty.
func (c *Constraints) Back() *Expr {
	assert(len(c.exprs) > 0, "back: empty constraints")
	return c.exprs[len(c.exprs)-1]
}

// At returns the i-th fact.
func (c *Constraints) At(i int) *Expr { return c.exprs[i] }

// Exprs returns a copy of the facts in order.
func (c *Constraints) Exprs() []*Expr { return slices.Clone(c.exprs) }

// All returns an iterator over the facts in order.
func (c *Constraints) All() iter.Seq2[int, *Expr] {
	return func(yield func(int, *Expr) bool) {
		for i, e := range c.exprs {
			if !yield(i, e) {
				return
			}
		}
	}
}

// PopBack removes the last fact. Does nothing if empty.
func (c *Constraints) PopBack() {
	if len(c.exprs) == 0 {
		return
	}
	c.exprs[len(c.exprs)-1] = nil
	c.exprs = c.exprs[:len(c.exprs)-1]
	c.clampConcolic()
}

// ErasePrefix removes the first n facts, preserving the order of the rest.
func (c *Constraints) ErasePrefix(n int) {
	assert(n >= 0 && n <= len(c.exprs), "erase: out of range: %d (len=%d)", n, len(c.exprs))
	c.exprs = slices.Delete(c.exprs, 0, n)
	c.clampConcolic()
}

// Equal returns true if both hold the same facts in the same order.
func (c *Constraints) Equal(other *Constraints) bool {
	if c == nil || other == nil {
		return c == other
	}
	return slices.Equal(c.exprs, other.exprs)
}

// Clone returns an independent copy. Expressions are shared.
func (c *Constraints) Clone() *Constraints {
	return &Constraints{
		arena:    c.arena,
		exprs:    slices.Clone(c.exprs),
		concolic: c.concolic,
	}
}

// String returns one fact per line.
func (c *Constraints) String() string {
	var sb strings.Builder
	for _, e := range c.exprs {
		sb.WriteString(e.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// AddConstraint adds a fact that holds along the path.
//
// The fact is first simplified against the stored facts. An equality is
// propagated into the stored facts before it is appended. Facts that
// simplify to true are not stored. False is stored like any other fact.
func (c *Constraints) AddConstraint(fact *Expr) {
	c.addConstraint(fact)
}

// AddConcolicConstraint adds a fact derived from concrete values. It is
// counted by ConcolicSize.
func (c *Constraints) AddConcolicConstraint(fact *Expr) {
	c.concolic += c.addConstraint(fact)
	c.clampConcolic()
}

func (c *Constraints) addConstraint(fact *Expr) int {
	assert(fact != nil && fact.width == WidthBool, "add: expected boolean fact, got %v", fact)
	return c.add(c.Simplify(fact))
}

// add appends e and returns how many facts were appended for it.
func (c *Constraints) add(e *Expr) int {
	if e.IsTrue() {
		return 0
	}

	if e.kind == EQ {
		c.rewrite(NewRewriter(c.arena, c.rulesFor(e)))
	}

	c.exprs = append(c.exprs, e)
	return 1
}

// PropagateValidFact rewrites the stored facts assuming fact holds and
// returns true if any of them changed.
//
// An equality with a constant replaces the other side with the constant.
// Any other fact is replaced with true. Facts that become true are removed.
// The caller must ensure fact is valid. It is not checked.
func (c *Constraints) PropagateValidFact(fact *Expr) bool {
	assert(fact != nil && fact.width == WidthBool, "propagate: expected boolean fact, got %v", fact)
	return c.rewrite(NewRewriter(c.arena, c.rulesFor(fact)))
}

// rulesFor returns the substitution derived from a single valid fact.
func (c *Constraints) rulesFor(fact *Expr) Substitution {
	if isRule(fact) {
		return Substitution{fact.kids[1]: fact.kids[0]}
	}
	return Substitution{fact: c.arena.True()}
}

// rewrite applies r to every fact. Changed facts are added again so that
// further reductions cascade.
func (c *Constraints) rewrite(r *Rewriter) bool {
	old := c.exprs
	c.exprs = make([]*Expr, 0, len(old))

	var changed bool
	for _, e := range old {
		other, ok := r.Rewrite(e)
		if !ok {
			c.exprs = append(c.exprs, e)
			continue
		}
		changed = true
		c.add(other)
	}
	c.clampConcolic()
	return changed
}

// Simplify returns expr reduced by the stored facts. The store is not modified.
//
// Every stored fact is replaced with true and every stored equality with a
// constant replaces its other side with the constant.
func (c *Constraints) Simplify(expr *Expr) *Expr {
	if expr.IsConstant() || len(c.exprs) == 0 {
		return expr
	}

	rules := make(Substitution, len(c.exprs))
	for _, e := range c.exprs {
		if isRule(e) {
			rules[e.kids[1]] = e.kids[0]
		} else {
			rules[e] = c.arena.True()
		}
	}

	other, _ := NewRewriter(c.arena, rules).Rewrite(expr)
	return other
}

func (c *Constraints) clampConcolic() {
	c.concolic = min(c.concolic, len(c.exprs))
}

// isRule returns true if e equates a non-constant expression with a constant.
func isRule(e *Expr) bool {
	return e.kind == EQ && e.kids[0].IsConstant() && !e.kids[1].IsConstant()
}

// CommonPrefixLen returns the number of leading facts a and b share.
func CommonPrefixLen(a, b *Constraints) int {
	n := min(len(a.exprs), len(b.exprs))
	for i := 0; i < n; i++ {
		if a.exprs[i] != b.exprs[i] {
			return i
		}
	}
	return n
}
