package pathcond

import (
	"encoding/binary"
	"runtime"
	"sync"
	"weak"

	"github.com/cespare/xxhash/v2"
)

// Arena hash-conses expression nodes so that structurally identical
// expressions share a single instance.
//
// The table only holds weak references. Once the last strong reference to a
// node is dropped the garbage collector reclaims it and its table entry is
// removed. An Arena is safe for concurrent use.
type Arena struct {
	mu      sync.Mutex
	buckets map[uint64][]arenaEntry
	nextID  uint64
	n       int
	stats   ArenaStats
}

type arenaEntry struct {
	id  uint64
	ptr weak.Pointer[Expr]
}

// arenaKey locates a table entry for eviction.
type arenaKey struct {
	hash uint64
	id   uint64
}

// ArenaStats holds counters for an Arena.
type ArenaStats struct {
	Lookups  uint64 // intern calls
	Hits     uint64 // intern calls answered by an existing node
	Interned uint64 // nodes created
	Evicted  uint64 // entries removed after their node was reclaimed
	Live     int    // entries currently in the table
}

// NewArena returns a new instance of Arena.
func NewArena() *Arena {
	return &Arena{
		buckets: make(map[uint64][]arenaEntry),
	}
}

// Len returns the number of entries in the table.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.n
}

// Stats returns a snapshot of the arena counters.
func (a *Arena) Stats() ArenaStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	stats := a.stats
	stats.Live = a.n
	return stats
}

// Width returns the bit width of e.
func (a *Arena) Width(e *Expr) uint { return e.width }

// Const returns the canonical constant of the given width. Bits above width are discarded.
func (a *Arena) Const(value uint64, width uint) *Expr {
	return a.intern(&Expr{kind: CONST, width: width, value: value & bitmask(width)})
}

// Bool returns the canonical boolean constant.
func (a *Arena) Bool(value bool) *Expr {
	if value {
		return a.Const(1, WidthBool)
	}
	return a.Const(0, WidthBool)
}

// True returns the boolean constant true.
func (a *Arena) True() *Expr { return a.Bool(true) }

// False returns the boolean constant false.
func (a *Arena) False() *Expr { return a.Bool(false) }

// Read returns the canonical symbolic variable with the given name and width.
func (a *Arena) Read(name string, width uint) *Expr {
	assert(name != "", "read: empty name")
	return a.intern(&Expr{kind: READ, width: width, name: name})
}

// Intern returns the canonical node for an operator applied to kids.
// No simplification is performed. Use the folding constructors such as Add
// or Eq to build normalized expressions.
//
// Panics if the operand widths do not fit the operator.
func (a *Arena) Intern(kind Kind, width uint, kids ...*Expr) *Expr {
	assert(kind != CONST && kind != READ && kind != EXTRACT, "intern: %s requires its own constructor", kind)
	err := checkWidths(kind, width, 0, kids)
	assert(err == nil, "intern: %v", err)
	return a.intern(&Expr{kind: kind, width: width, kids: append([]*Expr(nil), kids...)})
}

// InternExtract returns the canonical node for width bits of e starting at offset.
// No simplification is performed.
func (a *Arena) InternExtract(e *Expr, offset, width uint) *Expr {
	err := checkWidths(EXTRACT, width, offset, []*Expr{e})
	assert(err == nil, "intern: %v", err)
	return a.intern(&Expr{kind: EXTRACT, width: width, offset: offset, kids: []*Expr{e}})
}

// intern returns the existing node matching proto or registers proto as the
// canonical node.
func (a *Arena) intern(proto *Expr) *Expr {
	assert(proto.width > 0 && proto.width <= MaxWidth, "%s: invalid width %d", proto.kind, proto.width)
	h := structuralHash(proto)

	a.mu.Lock()
	defer a.mu.Unlock()
	a.stats.Lookups++

	bucket := a.buckets[h]
	for _, ent := range bucket {
		if e := ent.ptr.Value(); e != nil && e.shallowEqual(proto) {
			a.stats.Hits++
			return e
		}
	}

	a.nextID++
	proto.id, proto.hash = a.nextID, h
	a.buckets[h] = append(bucket, arenaEntry{id: proto.id, ptr: weak.Make(proto)})
	a.n++
	a.stats.Interned++
	runtime.AddCleanup(proto, a.evict, arenaKey{hash: h, id: proto.id})
	return proto
}

// evict removes the table entry of a reclaimed node.
func (a *Arena) evict(key arenaKey) {
	a.mu.Lock()
	defer a.mu.Unlock()

	bucket := a.buckets[key.hash]
	for i, ent := range bucket {
		if ent.id != key.id {
			continue
		}
		bucket[i] = bucket[len(bucket)-1]
		bucket[len(bucket)-1] = arenaEntry{}
		bucket = bucket[:len(bucket)-1]
		if len(bucket) == 0 {
			delete(a.buckets, key.hash)
		} else {
			a.buckets[key.hash] = bucket
		}
		a.n--
		a.stats.Evicted++
		return
	}
}

// structuralHash hashes the immediate fields of e and the identities of its operands.
func structuralHash(e *Expr) uint64 {
	h := xxhash.New()
	var buf [8]byte
	write := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		_, _ = h.Write(buf[:])
	}

	write(uint64(e.kind))
	write(uint64(e.width))
	write(e.value)
	write(uint64(e.offset))
	_, _ = h.WriteString(e.name)
	for _, kid := range e.kids {
		write(kid.id)
	}
	return h.Sum64()
}
