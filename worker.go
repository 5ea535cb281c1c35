// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package rpcproxy

import (
	"context"

	"gopkg.in/tomb.v2"
)

// worker runs every exchange of one client on a single goroutine, so the
// calling goroutine never performs socket I/O itself.
type worker struct {
	tomb tomb.Tomb
	jobs chan job
}

type job struct {
	ctx context.Context
	fn  func(context.Context) ([]byte, error)
	out chan<- result
}

type result struct {
	body []byte
	err  error
}

func newWorker() *worker {
	w := &worker{jobs: make(chan job)}
	w.tomb.Go(w.loop)
	return w
}

func (w *worker) loop() error {
	for {
		select {
		case <-w.tomb.Dying():
			return tomb.ErrDying
		case j := <-w.jobs:
			body, err := j.fn(j.ctx)
			j.out <- result{body: body, err: err}
		}
	}
}

// run hands fn to the worker and waits for its result or for ctx.
func (w *worker) run(ctx context.Context, fn func(context.Context) ([]byte, error)) ([]byte, error) {
	out := make(chan result, 1)
	select {
	case w.jobs <- job{ctx: ctx, fn: fn, out: out}:
	case <-w.tomb.Dying():
		return nil, ErrClientTerminated
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	select {
	case r := <-out:
		return r.body, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// stop kills the worker and waits for the goroutine to exit.
func (w *worker) stop() error {
	w.tomb.Kill(nil)
	return w.tomb.Wait()
}
