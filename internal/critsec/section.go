// Package critsec provides an interruptible critical section.
//
// Front ends hold a Locker rather than a sync.Mutex so lock waits can be
// abandoned when the caller's context ends.
package critsec

import (
	"context"
	"fmt"

	"ringlog/internal/ringbuf"
)

// Locker is the capability front ends use to serialize record store access.
type Locker interface {
	Enter(ctx context.Context) error
	Leave()
}

// Section is a mutex whose acquisition honours context cancellation.
type Section struct {
	sem chan struct{}
}

// New returns an unlocked section.
func New() *Section {
	return &Section{sem: make(chan struct{}, 1)}
}

// Enter blocks until the section is acquired or ctx ends. A context that ends
// first yields an error matching ringbuf.ErrInterrupted.
func (s *Section) Enter(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ringbuf.ErrInterrupted, context.Cause(ctx))
	}
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%w: %w", ringbuf.ErrInterrupted, context.Cause(ctx))
	}
}

// Leave releases the section. Calling Leave without a matching Enter panics.
func (s *Section) Leave() {
	select {
	case <-s.sem:
	default:
		panic("critsec: Leave without Enter")
	}
}
