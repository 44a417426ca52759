package server

import (
	"context"
	"errors"
	"fmt"

	"connectrpc.com/connect"

	"github.com/chazu/redex/heap"
	"github.com/chazu/redex/reduce"
	"github.com/chazu/redex/syntax"
	"github.com/chazu/redex/term"
	"github.com/chazu/redex/term/hash"
	"github.com/chazu/redex/wire"
)

// ReductionService implements the Reduce and Inspect procedures.
type ReductionService struct {
	worker   *Worker
	maxSteps int
}

// NewReductionService creates a ReductionService. maxSteps caps every
// request; requests may ask for fewer steps but not more.
func NewReductionService(worker *Worker, maxSteps int) *ReductionService {
	if maxSteps <= 0 {
		maxSteps = reduce.DefaultMaxSteps
	}
	return &ReductionService{
		worker:   worker,
		maxSteps: maxSteps,
	}
}

// Reduce parses and normalizes a term.
func (s *ReductionService) Reduce(
	ctx context.Context,
	req *connect.Request[ReduceRequest],
) (*connect.Response[ReduceResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}
	limit := s.maxSteps
	if n := req.Msg.MaxSteps; n > 0 && n < limit {
		limit = n
	}

	result, err := s.worker.Do(ctx, func(st *term.Store) (interface{}, error) {
		return s.reduce(ctx, st, source, limit)
	})
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(result.(*ReduceResponse)), nil
}

func (s *ReductionService) reduce(ctx context.Context, st *term.Store, source string, limit int) (*ReduceResponse, error) {
	r, err := syntax.Parse(st, source)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}

	// Not deferred: after a heap fault res.Term may be stale.
	res, err := reduce.Normalize(ctx, st, r, reduce.Options{MaxSteps: limit})
	if err != nil && !errors.Is(err, reduce.ErrStepLimit) {
		st.Destroy(res.Term)
		return nil, err
	}

	snapshot, err := wire.Encode(st, res.Term)
	if err != nil {
		st.Destroy(res.Term)
		return nil, err
	}
	sum := hash.Sum(st, res.Term)
	resp := &ReduceResponse{
		Result:   st.String(res.Term),
		Steps:    res.Steps,
		Normal:   res.Normal,
		Hash:     sum[:],
		Snapshot: snapshot,
	}
	st.Destroy(res.Term)

	log.Debugf("reduced in %d steps (normal=%t)", res.Steps, res.Normal)
	return resp, nil
}

// Inspect parses a term and reports its size, closedness and hash.
func (s *ReductionService) Inspect(
	ctx context.Context,
	req *connect.Request[InspectRequest],
) (*connect.Response[InspectResponse], error) {
	source := req.Msg.Source
	if source == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, fmt.Errorf("source is required"))
	}

	result, err := s.worker.Do(ctx, func(st *term.Store) (interface{}, error) {
		r, err := syntax.Parse(st, source)
		if err != nil {
			return nil, connect.NewError(connect.CodeInvalidArgument, err)
		}
		defer st.Destroy(r)

		sum := hash.Sum(st, r)
		return &InspectResponse{
			Rendered:  st.String(r),
			Nodes:     st.Size(r),
			Closed:    st.Check(r) == nil,
			HeadRedex: st.HasHeadRedex(r),
			Hash:      sum[:],
		}, nil
	})
	if err != nil {
		return nil, connectError(err)
	}
	return connect.NewResponse(result.(*InspectResponse)), nil
}

// connectError maps reduction errors onto Connect codes.
func connectError(err error) error {
	var cerr *connect.Error
	var ote *term.OpenTermError
	switch {
	case errors.As(err, &cerr):
		return cerr
	case errors.As(err, &ote):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, heap.ErrExhausted):
		return connect.NewError(connect.CodeResourceExhausted, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
