package pathcond

import (
	"fmt"
	"strings"

	"github.com/benbjohnson/immutable"
)

// Symbols creates uniquely named symbolic variables for one execution path.
//
// The registry is persistent so Clone is cheap and forks never observe each
// other's later additions.
type Symbols struct {
	arena *Arena
	m     *immutable.SortedMap // name -> *Expr
}

// NewSymbols returns a new instance of Symbols.
func NewSymbols(a *Arena) *Symbols {
	return &Symbols{
		arena: a,
		m:     immutable.NewSortedMap(&stringComparer{}),
	}
}

// Fresh returns a new symbolic variable of the given width. The name is
// suffixed with a counter if it is already taken.
func (s *Symbols) Fresh(name string, width uint) *Expr {
	assert(name != "", "symbols: empty name")
	assert(!strings.ContainsAny(name, "() \t\n"), "symbols: invalid name: %q", name)

	unique := name
	for i := 1; ; i++ {
		if _, ok := s.m.Get(unique); !ok {
			break
		}
		unique = fmt.Sprintf("%s_%d", name, i)
	}

	e := s.arena.Read(unique, width)
	s.m = s.m.Set(unique, e)
	return e
}

// Lookup returns the variable with the given name, if any.
func (s *Symbols) Lookup(name string) *Expr {
	if v, ok := s.m.Get(name); ok {
		return v.(*Expr)
	}
	return nil
}

// Len returns the number of variables created.
func (s *Symbols) Len() int { return s.m.Len() }

// Names returns the variable names in sorted order.
func (s *Symbols) Names() []string {
	a := make([]string, 0, s.m.Len())
	itr := s.m.Iterator()
	for !itr.Done() {
		k, _ := itr.Next()
		a = append(a, k.(string))
	}
	return a
}

// Clone returns an independent copy of the registry.
func (s *Symbols) Clone() *Symbols {
	return &Symbols{arena: s.arena, m: s.m}
}

// stringComparer compares two strings. Implements immutable.Comparer.
type stringComparer struct{}

// Compare returns -1 if a is less than b, returns 1 if a is greater than b, and
// returns 0 if a is equal to b. Panic if a or b is not a string.
func (c *stringComparer) Compare(a, b interface{}) int {
	return strings.Compare(a.(string), b.(string))
}
