package hash

import (
	"testing"

	"github.com/chazu/redex/term"
)

func TestKindTags_CoverEveryKind(t *testing.T) {
	for _, k := range []term.Kind{term.Abstraction, term.Variable, term.Application} {
		tag, ok := kindTags[k]
		if !ok {
			t.Errorf("%s has no tag", k)
			continue
		}
		if tag == TagReservedZero {
			t.Errorf("%s uses the reserved zero tag", k)
		}
		if tag >= 0xFE {
			t.Errorf("%s tag 0x%02X is in reserved range 0xFE-0xFF", k, tag)
		}
	}
}

func TestKindTags_Distinct(t *testing.T) {
	owner := make(map[byte]term.Kind, len(kindTags))
	for k, tag := range kindTags {
		if prev, dup := owner[tag]; dup {
			t.Errorf("tag 0x%02X shared by %s and %s", tag, prev, k)
		}
		owner[tag] = k
	}
}

// The first node byte after the version is the root's tag, and the tag bytes
// are frozen: changing one must fail here.
func TestSerialize_RootTagPerKind(t *testing.T) {
	s, _ := newStore()
	tests := []struct {
		kind term.Kind
		want byte
		root term.Ref
	}{
		{term.Abstraction, 0x01, s.Construct(term.Abs(s.Construct(term.Var(0))))},
		{term.Variable, 0x02, s.Construct(term.Var(9))},
		{term.Application, 0x03, s.Construct(term.App(s.Construct(term.Var(0)), s.Construct(term.Var(1))))},
	}
	for _, tt := range tests {
		data := Serialize(s, tt.root)
		if data[1] != tt.want {
			t.Errorf("%s: root tag 0x%02X, want 0x%02X", tt.kind, data[1], tt.want)
		}
		if kindTags[tt.kind] != tt.want {
			t.Errorf("%s: kindTags has 0x%02X, want 0x%02X", tt.kind, kindTags[tt.kind], tt.want)
		}
		s.Destroy(tt.root)
	}
}

func TestHashVersionNonZero(t *testing.T) {
	if HashVersion == TagReservedZero {
		t.Error("HashVersion must not collide with the reserved zero tag")
	}
}
