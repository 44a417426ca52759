package heap

import (
	"fmt"
	"unsafe"
)

// ---------------------------------------------------------------------------
// Arena: slot allocator with generation-checked cells
// ---------------------------------------------------------------------------

// Stats holds the arena's allocation counters.
type Stats struct {
	Live        int
	Peak        int
	Allocations uint64
	Frees       uint64
	LiveBytes   uintptr
}

type slot[T any] struct {
	gen  uint32
	live bool
	size uintptr
	val  T
}

// Arena is an Allocator that stores values of type T in numbered slots.
// Freed slots are kept on a free list and handed out again with a bumped
// generation. An Arena is not safe for concurrent use.
type Arena[T any] struct {
	slots    []slot[T]
	free     []uint32
	limit    int
	slotSize uintptr
	stats    Stats
}

// ArenaOption configures an Arena.
type ArenaOption func(*arenaConfig)

type arenaConfig struct {
	limit    int
	capacity int
}

// WithLimit caps the number of simultaneously live cells. Zero means no cap.
func WithLimit(n int) ArenaOption {
	return func(c *arenaConfig) { c.limit = n }
}

// WithCapacity preallocates room for n cells.
func WithCapacity(n int) ArenaOption {
	return func(c *arenaConfig) { c.capacity = n }
}

// NewArena creates an empty arena.
func NewArena[T any](opts ...ArenaOption) *Arena[T] {
	cfg := &arenaConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	var zero T
	a := &Arena[T]{
		limit:    cfg.limit,
		slotSize: unsafe.Sizeof(zero),
	}
	// Slot 0 is reserved so the zero Cell is never valid.
	a.slots = make([]slot[T], 1, cfg.capacity+1)
	return a
}

// SlotSize returns the number of bytes one cell holds.
func (a *Arena[T]) SlotSize() uintptr {
	return a.slotSize
}

// Allocate reserves a cell able to hold size bytes. The cell's contents are
// the zero T until WriteIn is called.
func (a *Arena[T]) Allocate(size uintptr) Cell {
	if size > a.slotSize {
		fault("allocate", Cell{}, fmt.Sprintf("size %d exceeds slot size %d", size, a.slotSize))
	}
	if a.limit > 0 && a.stats.Live >= a.limit {
		panic(&Fault{
			Op:     "allocate",
			Reason: fmt.Sprintf("%d cells live", a.stats.Live),
			Err:    ErrExhausted,
		})
	}

	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		a.slots = append(a.slots, slot[T]{})
		idx = uint32(len(a.slots) - 1)
	}

	s := &a.slots[idx]
	s.gen++
	s.live = true
	s.size = size

	a.stats.Live++
	a.stats.Allocations++
	a.stats.LiveBytes += size
	if a.stats.Live > a.stats.Peak {
		a.stats.Peak = a.stats.Live
	}
	return Cell{index: idx, gen: s.gen}
}

// Deallocate frees c. The slot's contents are cleared so that children held
// by the old value are not kept reachable through the arena.
func (a *Arena[T]) Deallocate(c Cell) {
	s := a.lookup("deallocate", c)
	var zero T
	s.val = zero
	s.live = false

	a.stats.Live--
	a.stats.Frees++
	a.stats.LiveBytes -= s.size
	s.size = 0
	a.free = append(a.free, c.index)
}

// ReadOut returns a copy of the value stored in c.
func (a *Arena[T]) ReadOut(c Cell) T {
	return a.lookup("read", c).val
}

// WriteIn overwrites the value stored in c.
func (a *Arena[T]) WriteIn(c Cell, v T) {
	a.lookup("write", c).val = v
}

// Valid reports whether c refers to a live cell of this arena.
func (a *Arena[T]) Valid(c Cell) bool {
	if c.IsNil() || int(c.index) >= len(a.slots) {
		return false
	}
	s := &a.slots[c.index]
	return s.live && s.gen == c.gen
}

// Live returns the number of live cells.
func (a *Arena[T]) Live() int {
	return a.stats.Live
}

// Stats returns a snapshot of the arena counters.
func (a *Arena[T]) Stats() Stats {
	return a.stats
}

// Reset frees every cell at once. Cells handed out before the reset become
// stale. Allocation and free totals are kept.
func (a *Arena[T]) Reset() {
	a.free = a.free[:0]
	for i := len(a.slots) - 1; i >= 1; i-- {
		s := &a.slots[i]
		if s.live {
			var zero T
			s.val = zero
			s.live = false
			s.size = 0
			a.stats.Frees++
		}
		a.free = append(a.free, uint32(i))
	}
	a.stats.Live = 0
	a.stats.LiveBytes = 0
}

func (a *Arena[T]) lookup(op string, c Cell) *slot[T] {
	if c.IsNil() {
		fault(op, c, "nil cell")
	}
	if int(c.index) >= len(a.slots) {
		fault(op, c, "index out of range")
	}
	s := &a.slots[c.index]
	if !s.live {
		fault(op, c, "cell is not live")
	}
	if s.gen != c.gen {
		fault(op, c, fmt.Sprintf("stale cell, slot is at generation %d", s.gen))
	}
	return s
}
