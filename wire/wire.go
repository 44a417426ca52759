// Package wire encodes terms and service messages as canonical CBOR.
package wire

import (
	"errors"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/chazu/redex/term"
)

// SnapshotVersion is written into every snapshot. Decode refuses other versions.
const SnapshotVersion uint8 = 1

// ErrVersion is returned when a snapshot carries an unknown version.
var ErrVersion = errors.New("wire: unsupported snapshot version")

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("wire: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// Marshal encodes v as canonical CBOR.
func Marshal(v interface{}) ([]byte, error) {
	return cborEncMode.Marshal(v)
}

// Unmarshal decodes CBOR data into v.
func Unmarshal(data []byte, v interface{}) error {
	return cbor.Unmarshal(data, v)
}

// Node is one term node in a snapshot. Children follow their parent in
// pre-order, so Index is only meaningful for variables.
type Node struct {
	_     struct{} `cbor:",toarray"`
	Kind  uint8
	Index uint32
}

// Snapshot is a self-contained, heap-independent copy of a term.
type Snapshot struct {
	Version uint8  `cbor:"1,keyasint"`
	Nodes   []Node `cbor:"2,keyasint"`
}

// Flatten copies the term at r into a Snapshot. r is only read.
func Flatten(s *term.Store, r term.Ref) *Snapshot {
	snap := &Snapshot{Version: SnapshotVersion}
	var walk func(term.Ref)
	walk = func(r term.Ref) {
		n := s.Read(r)
		snap.Nodes = append(snap.Nodes, Node{Kind: uint8(n.Kind), Index: n.Index})
		switch n.Kind {
		case term.Abstraction:
			walk(n.Left)
		case term.Application:
			walk(n.Left)
			walk(n.Right)
		}
	}
	walk(r)
	return snap
}

// Build allocates the snapshot's term in s. Terms taller than term.MaxDepth
// are rejected. On error nothing stays allocated.
func (snap *Snapshot) Build(s *term.Store) (term.Ref, error) {
	if snap.Version != SnapshotVersion {
		return term.Ref{}, fmt.Errorf("%w: %d", ErrVersion, snap.Version)
	}
	b := &builder{store: s, nodes: snap.Nodes}
	r, err := b.build(1)
	if err != nil {
		return term.Ref{}, err
	}
	if b.pos != len(b.nodes) {
		s.Destroy(r)
		return term.Ref{}, fmt.Errorf("wire: %d trailing nodes after term", len(b.nodes)-b.pos)
	}
	return r, nil
}

type builder struct {
	store *term.Store
	nodes []Node
	pos   int
}

func (b *builder) build(depth int) (term.Ref, error) {
	if depth > term.MaxDepth {
		return term.Ref{}, fmt.Errorf("wire: term deeper than %d at node %d", term.MaxDepth, b.pos)
	}
	if b.pos >= len(b.nodes) {
		return term.Ref{}, fmt.Errorf("wire: snapshot truncated at node %d", b.pos)
	}
	n := b.nodes[b.pos]
	b.pos++

	switch term.Kind(n.Kind) {
	case term.Variable:
		return b.store.Construct(term.Var(n.Index)), nil

	case term.Abstraction:
		body, err := b.build(depth + 1)
		if err != nil {
			return term.Ref{}, err
		}
		return b.store.Construct(term.Abs(body)), nil

	case term.Application:
		fn, err := b.build(depth + 1)
		if err != nil {
			return term.Ref{}, err
		}
		arg, err := b.build(depth + 1)
		if err != nil {
			b.store.Destroy(fn)
			return term.Ref{}, err
		}
		return b.store.Construct(term.App(fn, arg)), nil

	default:
		return term.Ref{}, fmt.Errorf("wire: unknown node kind %d at node %d", n.Kind, b.pos-1)
	}
}

// Encode serializes the term at r to CBOR bytes.
func Encode(s *term.Store, r term.Ref) ([]byte, error) {
	return cborEncMode.Marshal(Flatten(s, r))
}

// Decode deserializes a term from CBOR bytes and allocates it in s.
func Decode(s *term.Store, data []byte) (term.Ref, error) {
	var snap Snapshot
	if err := cbor.Unmarshal(data, &snap); err != nil {
		return term.Ref{}, fmt.Errorf("wire: unmarshal snapshot: %w", err)
	}
	return snap.Build(s)
}
