package wire

import (
	"bytes"
	"errors"
	"testing"

	"github.com/chazu/redex/heap"
	"github.com/chazu/redex/syntax"
	"github.com/chazu/redex/term"
	"github.com/chazu/redex/term/hash"
)

func newStore() (*term.Store, *heap.Arena[term.Node]) {
	a := heap.NewArena[term.Node]()
	return term.NewStore(a), a
}

func mustParse(t *testing.T, s *term.Store, src string) term.Ref {
	t.Helper()
	r, err := syntax.Parse(s, src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return r
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for _, src := range []string{
		"3",
		`(\ 0)`,
		`((\ (0 0)) (\ 0))`,
		`(\ (\ (\ ((2 0) (1 0)))))`,
	} {
		t.Run(src, func(t *testing.T) {
			s, a := newStore()
			r := mustParse(t, s, src)

			data, err := Encode(s, r)
			if err != nil {
				t.Fatalf("Encode: %v", err)
			}

			// Decode into a separate arena.
			s2, a2 := newStore()
			back, err := Decode(s2, data)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if got := s2.String(back); got != src {
				t.Errorf("decoded = %q, want %q", got, src)
			}
			if hash.Sum(s, r) != hash.Sum(s2, back) {
				t.Error("hash changed across encode/decode")
			}

			s.Destroy(r)
			s2.Destroy(back)
			if a.Live() != 0 || a2.Live() != 0 {
				t.Errorf("leaked cells: %d, %d", a.Live(), a2.Live())
			}
		})
	}
}

func TestEncode_Deterministic(t *testing.T) {
	s, _ := newStore()
	r1 := mustParse(t, s, `((\ 0) (\ (\ 1)))`)
	r2 := mustParse(t, s, `((\ 0) (\ (\ 1)))`)
	defer s.Destroy(r1)
	defer s.Destroy(r2)

	d1, err := Encode(s, r1)
	if err != nil {
		t.Fatal(err)
	}
	d2, err := Encode(s, r2)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(d1, d2) {
		t.Error("equal terms encode differently")
	}
}

func TestDecode_Rejects(t *testing.T) {
	app := uint8(term.Application)
	abs := uint8(term.Abstraction)
	vr := uint8(term.Variable)

	tests := []struct {
		name string
		snap Snapshot
	}{
		{"empty", Snapshot{Version: SnapshotVersion}},
		{"truncated application", Snapshot{Version: SnapshotVersion, Nodes: []Node{
			{Kind: app}, {Kind: abs}, {Kind: vr},
		}}},
		{"truncated abstraction", Snapshot{Version: SnapshotVersion, Nodes: []Node{
			{Kind: app}, {Kind: vr}, {Kind: abs},
		}}},
		{"trailing nodes", Snapshot{Version: SnapshotVersion, Nodes: []Node{
			{Kind: abs}, {Kind: vr}, {Kind: vr},
		}}},
		{"unknown kind", Snapshot{Version: SnapshotVersion, Nodes: []Node{
			{Kind: app}, {Kind: abs}, {Kind: vr}, {Kind: 42},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := Marshal(&tt.snap)
			if err != nil {
				t.Fatal(err)
			}
			s, a := newStore()
			if _, err := Decode(s, data); err == nil {
				t.Fatal("Decode succeeded")
			}
			if a.Live() != 0 {
				t.Errorf("failed decode left %d live cells", a.Live())
			}
		})
	}
}

func TestDecode_Version(t *testing.T) {
	data, err := Marshal(&Snapshot{Version: 9, Nodes: []Node{{Kind: uint8(term.Variable)}}})
	if err != nil {
		t.Fatal(err)
	}
	s, _ := newStore()
	_, err = Decode(s, data)
	if !errors.Is(err, ErrVersion) {
		t.Errorf("Decode error = %v, want ErrVersion", err)
	}
}

func TestDecode_Garbage(t *testing.T) {
	s, _ := newStore()
	if _, err := Decode(s, []byte{0xff, 0x00, 0x13}); err == nil {
		t.Error("Decode accepted garbage")
	}
}

func TestFlatten_PreOrder(t *testing.T) {
	s, _ := newStore()
	r := mustParse(t, s, `((\ 1) 7)`)
	defer s.Destroy(r)

	snap := Flatten(s, r)
	want := []Node{
		{Kind: uint8(term.Application)},
		{Kind: uint8(term.Abstraction)},
		{Kind: uint8(term.Variable), Index: 1},
		{Kind: uint8(term.Variable), Index: 7},
	}
	if len(snap.Nodes) != len(want) {
		t.Fatalf("nodes = %d, want %d", len(snap.Nodes), len(want))
	}
	for i := range want {
		if snap.Nodes[i].Kind != want[i].Kind || snap.Nodes[i].Index != want[i].Index {
			t.Errorf("node %d = %+v, want %+v", i, snap.Nodes[i], want[i])
		}
	}
}

// nested returns a snapshot of a variable under n abstractions.
func nested(n int) *Snapshot {
	snap := &Snapshot{Version: SnapshotVersion}
	for i := 0; i < n; i++ {
		snap.Nodes = append(snap.Nodes, Node{Kind: uint8(term.Abstraction)})
	}
	snap.Nodes = append(snap.Nodes, Node{Kind: uint8(term.Variable)})
	return snap
}

func TestBuild_DepthLimit(t *testing.T) {
	s, a := newStore()

	r, err := nested(term.MaxDepth - 1).Build(s)
	if err != nil {
		t.Fatalf("term of height %d rejected: %v", term.MaxDepth, err)
	}
	s.Destroy(r)

	data, err := Marshal(nested(4 * term.MaxDepth))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Decode(s, data); err == nil {
		t.Fatal("Decode accepted a term deeper than MaxDepth")
	}
	if a.Live() != 0 {
		t.Errorf("failed decode left %d live cells", a.Live())
	}
}
