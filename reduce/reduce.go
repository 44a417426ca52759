// Package reduce drives term.Store.Step to a fixed point.
package reduce

import (
	"context"
	"errors"

	"github.com/tliron/commonlog"

	"github.com/chazu/redex/term"
)

// DefaultMaxSteps bounds Normalize when Options.MaxSteps is zero.
const DefaultMaxSteps = 10000

// ErrStepLimit is returned when a term is still reducible after the step limit.
var ErrStepLimit = errors.New("reduce: step limit reached")

var log = commonlog.GetLogger("redex.reduce")

// Options configures Normalize.
type Options struct {
	// MaxSteps bounds the number of successful steps. Zero means DefaultMaxSteps.
	MaxSteps int

	// Trace, if set, sees every intermediate term after a successful step.
	// The term is only lent to Trace and must not be consumed.
	Trace func(step int, s *term.Store, r term.Ref)
}

// Result is the outcome of Normalize. Term is owned by the caller whether or
// not Normalize returned an error.
type Result struct {
	Term   term.Ref
	Steps  int
	Normal bool // no head redex remains
}

// Normalize steps r until Step reports no progress.
//
// r must be closed; an open term is rejected with a *term.OpenTermError and
// returned untouched. When the step limit is reached or ctx is done, the
// partially reduced term is returned with ErrStepLimit or ctx.Err().
func Normalize(ctx context.Context, s *term.Store, r term.Ref, opts Options) (Result, error) {
	if err := s.Check(r); err != nil {
		return Result{Term: r}, err
	}

	limit := opts.MaxSteps
	if limit <= 0 {
		limit = DefaultMaxSteps
	}

	res := Result{Term: r}
	for {
		if err := ctx.Err(); err != nil {
			log.Infof("reduction cancelled after %d steps", res.Steps)
			return res, err
		}

		next := s.Step(res.Term)
		if next == res.Term {
			res.Normal = true
			log.Debugf("no head redex after %d steps", res.Steps)
			return res, nil
		}
		res.Term = next
		res.Steps++

		if opts.Trace != nil {
			opts.Trace(res.Steps, s, res.Term)
		}
		if res.Steps >= limit {
			if !s.HasHeadRedex(res.Term) {
				res.Normal = true
				return res, nil
			}
			log.Warningf("step limit %d reached", limit)
			return res, ErrStepLimit
		}
	}
}
