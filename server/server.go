package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"connectrpc.com/connect"
	"github.com/tliron/commonlog"

	"github.com/chazu/redex/manifest"
)

var log = commonlog.GetLogger("redex.server")

var errWorkerStopped = errors.New("server: heap worker stopped")

// ReductionServer serves the reduction service over Connect, using a single
// heap worker for all requests.
type ReductionServer struct {
	worker *Worker
	mux    *http.ServeMux
	http   *http.Server
}

// ServerOption configures a ReductionServer.
type ServerOption func(*serverConfig)

type serverConfig struct {
	maxSteps        int
	maxCells        int
	maxRequestBytes int
}

// Defaults for limits left unset. The server never runs with an unbounded
// arena: term height is bounded by its cell count, and every term operation
// recurses once per level.
const (
	DefaultMaxCells        = 1 << 20
	DefaultMaxRequestBytes = 1 << 20
)

// WithMaxSteps caps the number of reduction steps per request.
func WithMaxSteps(n int) ServerOption {
	return func(c *serverConfig) { c.maxSteps = n }
}

// WithMaxCells caps the number of live cells in the worker's arena.
func WithMaxCells(n int) ServerOption {
	return func(c *serverConfig) { c.maxCells = n }
}

// WithMaxRequestBytes caps the size of an encoded request message.
func WithMaxRequestBytes(n int) ServerOption {
	return func(c *serverConfig) { c.maxRequestBytes = n }
}

// WithManifest applies the [reduce] and [heap] sections of a manifest.
func WithManifest(m *manifest.Manifest) ServerOption {
	return func(c *serverConfig) {
		c.maxSteps = m.Reduce.MaxSteps
		c.maxCells = m.Heap.MaxCells
	}
}

// New creates a ReductionServer and starts its heap worker.
func New(opts ...ServerOption) *ReductionServer {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.maxCells <= 0 {
		cfg.maxCells = DefaultMaxCells
	}
	if cfg.maxRequestBytes <= 0 {
		cfg.maxRequestBytes = DefaultMaxRequestBytes
	}

	worker := NewWorker(cfg.maxCells)
	mux := http.NewServeMux()
	s := &ReductionServer{
		worker: worker,
		mux:    mux,
		http: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	svc := NewReductionService(worker, cfg.maxSteps)
	handlerOpts := []connect.HandlerOption{
		connect.WithCodec(cborCodec{}),
		connect.WithReadMaxBytes(cfg.maxRequestBytes),
	}
	s.mux.Handle(ReduceProcedure, connect.NewUnaryHandler(ReduceProcedure, svc.Reduce, handlerOpts...))
	s.mux.Handle(InspectProcedure, connect.NewUnaryHandler(InspectProcedure, svc.Inspect, handlerOpts...))

	return s
}

// Handler returns the HTTP handler serving all procedures.
func (s *ReductionServer) Handler() http.Handler {
	return s.mux
}

// Worker returns the server's heap worker.
func (s *ReductionServer) Worker() *Worker {
	return s.worker
}

// ListenAndServe starts the HTTP server on the given address.
// The address should be in the form "host:port" or ":port".
// It returns nil once Stop has been called.
func (s *ReductionServer) ListenAndServe(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	log.Noticef("reduction server listening on %s", ln.Addr())
	log.Infof("  Connect (CBOR): http://%s%s", ln.Addr(), ReduceProcedure)
	err = s.http.Serve(ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts down the HTTP server and the heap worker. It is safe to call
// from another goroutine, before or during ListenAndServe.
func (s *ReductionServer) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.http.Shutdown(ctx); err != nil {
		log.Warningf("shutdown: %v", err)
	}
	s.worker.Stop()
}
