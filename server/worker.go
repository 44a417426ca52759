package server

import (
	"context"
	"fmt"
	"sync"

	"github.com/chazu/redex/heap"
	"github.com/chazu/redex/term"
)

// heapRequest represents a unit of work to be executed on the heap goroutine.
type heapRequest struct {
	fn   func(*term.Store) (interface{}, error)
	done chan heapResult
}

// heapResult holds the return value from a heap operation.
type heapResult struct {
	value interface{}
	err   error
}

// Worker serializes all access to one term arena through a single goroutine.
// Arenas are not safe for concurrent use; every handler goes through Do.
type Worker struct {
	arena    *heap.Arena[term.Node]
	store    *term.Store
	requests chan heapRequest
	quit     chan struct{}
	stopOnce sync.Once
}

// NewWorker creates a Worker over a fresh arena and starts its goroutine.
// maxCells of 0 leaves the arena unbounded.
func NewWorker(maxCells int) *Worker {
	var opts []heap.ArenaOption
	if maxCells > 0 {
		opts = append(opts, heap.WithLimit(maxCells))
	}
	arena := heap.NewArena[term.Node](opts...)
	w := &Worker{
		arena:    arena,
		store:    term.NewStore(arena),
		requests: make(chan heapRequest, 64),
		quit:     make(chan struct{}),
	}
	go w.loop()
	return w
}

// loop processes heap requests sequentially on a dedicated goroutine.
func (w *Worker) loop() {
	for {
		select {
		case req := <-w.requests:
			req.done <- w.execute(req.fn)
		case <-w.quit:
			return
		}
	}
}

// execute runs fn against the store. A panic means the arena can no longer
// be trusted, so it is reset. Cells still live after fn returns are leaks:
// every request must destroy what it builds.
func (w *Worker) execute(fn func(*term.Store) (interface{}, error)) heapResult {
	var result heapResult
	baseline := w.arena.Live()
	func() {
		defer func() {
			if r := recover(); r != nil {
				if f, ok := r.(*heap.Fault); ok {
					result.err = f
				} else {
					result.err = fmt.Errorf("%v", r)
				}
				log.Errorf("heap fault, resetting arena: %v", result.err)
				w.arena.Reset()
			}
		}()
		result.value, result.err = fn(w.store)
	}()

	if leaked := w.arena.Live() - baseline; leaked > 0 {
		log.Warning("request leaked cells, resetting arena", "cells", leaked)
		w.arena.Reset()
	}
	return result
}

// Do submits fn for execution on the heap goroutine and blocks until it
// completes. Returns fn's result, or an error for a recovered panic.
func (w *Worker) Do(ctx context.Context, fn func(*term.Store) (interface{}, error)) (interface{}, error) {
	select {
	case <-w.quit:
		return nil, errWorkerStopped
	default:
	}
	req := heapRequest{
		fn:   fn,
		done: make(chan heapResult, 1),
	}
	select {
	case w.requests <- req:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-w.quit:
		return nil, errWorkerStopped
	}
	select {
	case result := <-req.done:
		return result.value, result.err
	case <-w.quit:
		return nil, errWorkerStopped
	}
}

// Stats returns the arena counters, read on the heap goroutine.
func (w *Worker) Stats(ctx context.Context) (heap.Stats, error) {
	v, err := w.Do(ctx, func(*term.Store) (interface{}, error) {
		return w.arena.Stats(), nil
	})
	if err != nil {
		return heap.Stats{}, err
	}
	return v.(heap.Stats), nil
}

// Stop shuts down the worker goroutine. Safe to call more than once.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() { close(w.quit) })
}
