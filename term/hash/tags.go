package hash

import "github.com/chazu/redex/term"

// ---------------------------------------------------------------------------
// Frozen tag bytes for the term serialization format.
//
// IMPORTANT: These tags are FROZEN. Once assigned, a tag byte must never
// change meaning. Adding new tags is fine; changing existing ones breaks
// all previously computed content hashes.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
// Bumping this invalidates all existing content hashes.
const HashVersion byte = 1

// Node tags. Each tag uniquely identifies a node kind in the serialized
// byte stream.
const (
	TagReservedZero byte = 0x00 // version prefix / reserved

	TagAbstraction byte = 0x01
	TagVariable    byte = 0x02 // followed by a uint32 de Bruijn index
	TagApplication byte = 0x03

	// Reserved 0xFE-0xFF
)

// kindTags maps each node kind to its tag. Every term.Kind must appear here.
var kindTags = map[term.Kind]byte{
	term.Abstraction: TagAbstraction,
	term.Variable:    TagVariable,
	term.Application: TagApplication,
}
