// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package gate provides a counting gate that bounds how many rate-limited
// operations run at once. Each component that issues such operations owns
// its own Gate; there is no process-wide limit.
package gate

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Gate hands out a fixed number of permits.
type Gate struct {
	sem      *semaphore.Weighted
	capacity int
}

// New returns a Gate with the given capacity. A capacity below one is
// treated as one.
func New(capacity int) *Gate {
	if capacity < 1 {
		capacity = 1
	}
	return &Gate{sem: semaphore.NewWeighted(int64(capacity)), capacity: capacity}
}

// Capacity returns the number of permits.
func (g *Gate) Capacity() int {
	return g.capacity
}

// Acquire blocks until a permit is available or ctx is done. On success the
// caller must call the returned release function exactly once.
func (g *Gate) Acquire(ctx context.Context) (release func(), err error) {
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return func() { g.sem.Release(1) }, nil
}

// TryAcquire takes a permit without blocking. It reports false when the
// gate is full.
func (g *Gate) TryAcquire() (release func(), ok bool) {
	if !g.sem.TryAcquire(1) {
		return nil, false
	}
	return func() { g.sem.Release(1) }, true
}
