// Package term implements untyped lambda terms in de Bruijn form, stored one
// node per heap cell, together with single-step beta reduction.
//
// Every live cell is owned by exactly one Ref. Operations that consume a Ref
// (Destroy, Step when it makes progress, Substitute) free or reuse its cells;
// the caller must not touch a consumed Ref again.
package term

import (
	"fmt"
	"unsafe"

	"github.com/chazu/redex/heap"
)

// Kind identifies which of the three node shapes a cell holds.
type Kind uint8

const (
	Abstraction Kind = iota + 1
	Variable
	Application
)

func (k Kind) String() string {
	switch k {
	case Abstraction:
		return "Abstraction"
	case Variable:
		return "Variable"
	case Application:
		return "Application"
	default:
		return fmt.Sprintf("Kind(%d)", uint8(k))
	}
}

// Ref is an owning reference to a term cell. Refs compare equal only when
// they denote the same cell; the zero Ref is nil.
type Ref struct {
	cell heap.Cell
}

// IsNil reports whether r is the zero Ref.
func (r Ref) IsNil() bool {
	return r.cell.IsNil()
}

func (r Ref) String() string {
	return r.cell.String()
}

// Node is the value stored in a term cell.
//
// Abstraction: Left is the body.
// Variable: Index is the de Bruijn index.
// Application: Left is the function, Right the argument.
type Node struct {
	Kind  Kind
	Index uint32
	Left  Ref
	Right Ref
}

// Abs builds an Abstraction node owning body.
func Abs(body Ref) Node {
	return Node{Kind: Abstraction, Left: body}
}

// Var builds a Variable node.
func Var(index uint32) Node {
	return Node{Kind: Variable, Index: index}
}

// App builds an Application node owning fn and arg.
func App(fn, arg Ref) Node {
	return Node{Kind: Application, Left: fn, Right: arg}
}

// MaxDepth bounds the height of terms read from text or snapshots. Every
// term operation recurses once per level, so readers refuse anything taller.
const MaxDepth = 10000

// nodeSize is the cell size for the largest variant; all variants share Node.
const nodeSize = unsafe.Sizeof(Node{})

// Store performs term operations against an allocator.
type Store struct {
	mem heap.Allocator[Node]
}

// NewStore returns a Store backed by mem.
func NewStore(mem heap.Allocator[Node]) *Store {
	return &Store{mem: mem}
}

// Construct allocates a cell holding n and returns its owning Ref.
// Ownership of n's children moves into the new cell.
func (s *Store) Construct(n Node) Ref {
	c := s.mem.Allocate(nodeSize)
	s.mem.WriteIn(c, n)
	return Ref{cell: c}
}

// Read returns a copy of the node stored at r. The cell is left untouched and
// still owns its children.
func (s *Store) Read(r Ref) Node {
	return s.mem.ReadOut(r.cell)
}

// Destroy frees r and everything it owns, children first.
func (s *Store) Destroy(r Ref) {
	n := s.mem.ReadOut(r.cell)
	switch n.Kind {
	case Abstraction:
		s.Destroy(n.Left)
	case Application:
		s.Destroy(n.Left)
		s.Destroy(n.Right)
	}
	s.mem.Deallocate(r.cell)
}

// Clone returns a deep copy of r in fresh cells. r is not consumed.
func (s *Store) Clone(r Ref) Ref {
	n := s.mem.ReadOut(r.cell)
	switch n.Kind {
	case Abstraction:
		return s.Construct(Abs(s.Clone(n.Left)))
	case Application:
		fn := s.Clone(n.Left)
		return s.Construct(App(fn, s.Clone(n.Right)))
	default:
		return s.Construct(n)
	}
}

// Size returns the number of nodes in r.
func (s *Store) Size(r Ref) int {
	n := s.mem.ReadOut(r.cell)
	switch n.Kind {
	case Abstraction:
		return 1 + s.Size(n.Left)
	case Application:
		return 1 + s.Size(n.Left) + s.Size(n.Right)
	default:
		return 1
	}
}

// OpenTermError reports a variable that refers past its outermost binder.
type OpenTermError struct {
	Index uint32
	Depth uint32
}

func (e *OpenTermError) Error() string {
	return fmt.Sprintf("term: variable %d is free (only %d enclosing binders)", e.Index, e.Depth)
}

// Check returns an *OpenTermError for the first free variable in r, or nil
// if r is closed. Reduction is only defined for closed terms.
func (s *Store) Check(r Ref) error {
	return s.check(r, 0)
}

func (s *Store) check(r Ref, depth uint32) error {
	n := s.mem.ReadOut(r.cell)
	switch n.Kind {
	case Variable:
		if n.Index >= depth {
			return &OpenTermError{Index: n.Index, Depth: depth}
		}
	case Abstraction:
		return s.check(n.Left, depth+1)
	case Application:
		if err := s.check(n.Left, depth); err != nil {
			return err
		}
		return s.check(n.Right, depth)
	}
	return nil
}

// HasHeadRedex reports whether Step would make progress on r.
func (s *Store) HasHeadRedex(r Ref) bool {
	n := s.mem.ReadOut(r.cell)
	if n.Kind != Application {
		return false
	}
	return s.mem.ReadOut(n.Left.cell).Kind == Abstraction
}
