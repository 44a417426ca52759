package reduce

import (
	"context"
	"errors"
	"testing"

	"github.com/chazu/redex/heap"
	"github.com/chazu/redex/syntax"
	"github.com/chazu/redex/term"
)

func setup(t *testing.T, src string) (*term.Store, *heap.Arena[term.Node], term.Ref) {
	t.Helper()
	a := heap.NewArena[term.Node]()
	s := term.NewStore(a)
	r, err := syntax.Parse(s, src)
	if err != nil {
		t.Fatalf("Parse(%q): %v", src, err)
	}
	return s, a, r
}

const omega = `((\ (0 0)) (\ (0 0)))`

func TestNormalize(t *testing.T) {
	tests := []struct {
		src   string
		want  string
		steps int
	}{
		{"((\\ 0) (\\ 0))", `(\ 0)`, 1},
		{"((\\ (0 0)) (\\ 0))", `(\ 0)`, 2},
		{"((\\ (\\ 0)) (\\ 0))", `(\ 0)`, 1},
		{`(\ ((\ 0) 0))`, `(\ ((\ 0) 0))`, 0},
		// The head is an application, not an abstraction: stuck.
		{`(((\ (\ 1)) (\ 0)) (\ (\ 0)))`, `(((\ (\ 1)) (\ 0)) (\ (\ 0)))`, 0},
		{`((\ ((\ (\ 1)) 0)) (\ 0))`, `(\ (\ 0))`, 2},
	}
	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			s, a, r := setup(t, tt.src)
			res, err := Normalize(context.Background(), s, r, Options{})
			if err != nil {
				t.Fatalf("Normalize: %v", err)
			}
			if !res.Normal {
				t.Error("result not marked normal")
			}
			if res.Steps != tt.steps {
				t.Errorf("steps = %d, want %d", res.Steps, tt.steps)
			}
			if got := s.String(res.Term); got != tt.want {
				t.Errorf("result = %q, want %q", got, tt.want)
			}
			s.Destroy(res.Term)
			if a.Live() != 0 {
				t.Errorf("leaked %d cells", a.Live())
			}
		})
	}
}

func TestNormalize_StepLimit(t *testing.T) {
	s, a, r := setup(t, omega)

	res, err := Normalize(context.Background(), s, r, Options{MaxSteps: 25})
	if !errors.Is(err, ErrStepLimit) {
		t.Fatalf("err = %v, want ErrStepLimit", err)
	}
	if res.Normal {
		t.Error("omega marked normal")
	}
	if res.Steps != 25 {
		t.Errorf("steps = %d, want 25", res.Steps)
	}
	if got := s.String(res.Term); got != omega {
		t.Errorf("omega reduced to %q", got)
	}
	// Each step frees exactly what it allocates.
	if a.Live() != 9 {
		t.Errorf("live = %d, want 9", a.Live())
	}
	s.Destroy(res.Term)
	if a.Live() != 0 {
		t.Errorf("leaked %d cells", a.Live())
	}
}

func TestNormalize_LimitOnLastStep(t *testing.T) {
	s, _, r := setup(t, "((\\ 0) (\\ 0))")
	res, err := Normalize(context.Background(), s, r, Options{MaxSteps: 1})
	if err != nil {
		t.Fatalf("Normalize: %v", err)
	}
	if !res.Normal || res.Steps != 1 {
		t.Errorf("result = %+v, want normal after 1 step", res)
	}
	s.Destroy(res.Term)
}

func TestNormalize_Cancelled(t *testing.T) {
	s, a, r := setup(t, omega)
	ctx, cancel := context.WithCancel(context.Background())

	res, err := Normalize(ctx, s, r, Options{
		MaxSteps: 1000,
		Trace: func(step int, _ *term.Store, _ term.Ref) {
			if step == 3 {
				cancel()
			}
		},
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if res.Steps != 3 {
		t.Errorf("steps = %d, want 3", res.Steps)
	}
	s.Destroy(res.Term)
	if a.Live() != 0 {
		t.Errorf("leaked %d cells", a.Live())
	}
}

func TestNormalize_OpenTermRejected(t *testing.T) {
	s, a, r := setup(t, "((\\ 0) 3)")
	before := a.Stats()

	res, err := Normalize(context.Background(), s, r, Options{})
	var ote *term.OpenTermError
	if !errors.As(err, &ote) {
		t.Fatalf("err = %v, want *term.OpenTermError", err)
	}
	if res.Term != r {
		t.Error("open term was not returned untouched")
	}
	if a.Stats() != before {
		t.Error("rejecting an open term touched the heap")
	}
	s.Destroy(r)
}

func TestNormalize_Trace(t *testing.T) {
	s, _, r := setup(t, "((\\ (0 0)) (\\ 0))")
	var seen []string
	res, err := Normalize(context.Background(), s, r, Options{
		Trace: func(step int, s *term.Store, r term.Ref) {
			seen = append(seen, s.String(r))
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{`((\ 0) (\ 0))`, `(\ 0)`}
	if len(seen) != len(want) {
		t.Fatalf("trace = %q, want %q", seen, want)
	}
	for i := range want {
		if seen[i] != want[i] {
			t.Errorf("trace[%d] = %q, want %q", i, seen[i], want[i])
		}
	}
	s.Destroy(res.Term)
}
