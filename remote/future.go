// Copyright 2026, Square, Inc.

package remote

import (
	"context"

	"github.com/square/vertigo/traversal"
)

// Future is the traversal.RemoteResult of a submitted traversal. The first
// call to Traversers blocks until the server answered; later calls return
// the same traversers or error.
type Future struct {
	done       chan struct{}
	traversers []*traversal.Traverser
	err        error
}

var _ traversal.RemoteResult = &Future{}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// resolve must be called exactly once.
func (f *Future) resolve(ts []*traversal.Traverser, err error) {
	f.traversers = ts
	f.err = err
	close(f.done)
}

// Traversers returns the result, waiting for it until ctx is done.
func (f *Future) Traversers(ctx context.Context) ([]*traversal.Traverser, error) {
	select {
	case <-f.done:
		return f.traversers, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Done is closed once the result is in.
func (f *Future) Done() <-chan struct{} {
	return f.done
}
