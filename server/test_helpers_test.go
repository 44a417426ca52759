package server

import (
	"context"
	"net/http/httptest"
	"testing"

	"connectrpc.com/connect"
)

// ---------------------------------------------------------------------------
// Shared test infrastructure for server package tests.
// ---------------------------------------------------------------------------

func bg() context.Context {
	return context.Background()
}

func connectReq[T any](msg *T) *connect.Request[T] {
	return connect.NewRequest(msg)
}

// newTestService creates a ReductionService over a fresh worker.
func newTestService(t *testing.T, maxSteps, maxCells int) (*ReductionService, *Worker) {
	t.Helper()
	w := NewWorker(maxCells)
	t.Cleanup(w.Stop)
	return NewReductionService(w, maxSteps), w
}

// newTestServer starts an httptest server and returns a client for it.
func newTestServer(t *testing.T, opts ...ServerOption) (*Client, *ReductionServer) {
	t.Helper()
	srv := New(opts...)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(func() {
		ts.Close()
		srv.Stop()
	})
	return NewClient(ts.Client(), ts.URL), srv
}

// assertNoLiveCells checks the worker's arena returned to empty.
func assertNoLiveCells(t *testing.T, w *Worker) {
	t.Helper()
	st, err := w.Stats(bg())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.Live != 0 {
		t.Errorf("arena has %d live cells after request", st.Live)
	}
}
