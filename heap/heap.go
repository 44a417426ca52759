// Package heap provides the manual memory boundary used by the term core.
//
// Cells are allocated, read, overwritten and freed explicitly. Nothing is
// reclaimed automatically: a cell stays live until Deallocate is called on it.
// Misuse (reading a freed cell, freeing twice) is a programming error and
// panics with a *Fault.
package heap

import (
	"errors"
	"fmt"
)

// Allocator is the capability the term core is written against.
//
// ReadOut returns a copy of the cell's current contents without changing or
// freeing the cell. WriteIn replaces the contents of a live cell.
type Allocator[T any] interface {
	Allocate(size uintptr) Cell
	Deallocate(c Cell)
	ReadOut(c Cell) T
	WriteIn(c Cell, v T)
}

// Cell addresses one slot of an arena. The generation distinguishes the
// current occupant of a slot from earlier, already freed occupants.
// The zero Cell is nil.
type Cell struct {
	index uint32
	gen   uint32
}

// IsNil reports whether c is the zero cell.
func (c Cell) IsNil() bool {
	return c.index == 0
}

// String formats the cell as index/generation.
func (c Cell) String() string {
	if c.IsNil() {
		return "cell(nil)"
	}
	return fmt.Sprintf("cell(%d/%d)", c.index, c.gen)
}

// ErrExhausted is wrapped by the Fault raised when an arena's cell limit is hit.
var ErrExhausted = errors.New("heap: cell limit exhausted")

// Fault describes a violated heap precondition. Arenas panic with *Fault
// values; only a supervisor that discards the whole arena should recover them.
type Fault struct {
	Op     string
	Cell   Cell
	Reason string
	Err    error
}

func (f *Fault) Error() string {
	if f.Cell.IsNil() {
		return fmt.Sprintf("heap: %s: %s", f.Op, f.Reason)
	}
	return fmt.Sprintf("heap: %s %s: %s", f.Op, f.Cell, f.Reason)
}

func (f *Fault) Unwrap() error {
	return f.Err
}

func fault(op string, c Cell, reason string) {
	panic(&Fault{Op: op, Cell: c, Reason: reason})
}
