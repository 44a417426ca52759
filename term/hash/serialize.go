package hash

import (
	"encoding/binary"

	"github.com/chazu/redex/term"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a term tree.
//
// Encoding conventions:
//   - First byte: HashVersion (0x01)
//   - Nodes in pre-order, one tag byte each
//   - Variable indices: uint32 big-endian after the tag
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of the term at r.
// The returned bytes are suitable for hashing with SHA-256. r is only read.
func Serialize(s *term.Store, r term.Ref) []byte {
	z := &serializer{store: s, buf: make([]byte, 0, 64)}
	z.writeByte(HashVersion)
	z.serializeNode(r)
	return z.buf
}

type serializer struct {
	store *term.Store
	buf   []byte
}

func (z *serializer) writeByte(b byte) {
	z.buf = append(z.buf, b)
}

func (z *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	z.buf = append(z.buf, b[:]...)
}

func (z *serializer) serializeNode(r term.Ref) {
	n := z.store.Read(r)
	z.writeByte(kindTags[n.Kind])
	switch n.Kind {
	case term.Abstraction:
		z.serializeNode(n.Left)
	case term.Variable:
		z.writeUint32(n.Index)
	case term.Application:
		z.serializeNode(n.Left)
		z.serializeNode(n.Right)
	}
}
