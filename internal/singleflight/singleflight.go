// Package singleflight coalesces concurrent identical requests onto one
// underlying computation (spec §4.7, §9). It is a small purpose-built
// group rather than golang.org/x/sync/singleflight because the spec
// requires that a departing waiter never cancels a shared computation:
// once started, a computation always runs to completion, even when every
// waiter has left. Shutdown does not abandon or interrupt a running
// computation.
package singleflight

import (
	"context"
	"sync"
)

// Result is the outcome shared by every waiter on a call.
type Result struct {
	Value any
	Err   error
}

// call is one in-flight (or just-settled) computation for a key.
type call struct {
	wg      sync.WaitGroup
	waiters int
	result  Result
}

// Group coalesces calls to Do by key.
type Group struct {
	mu       sync.Mutex
	calls    map[string]*call
	shutdown bool
}

// NewGroup constructs an empty Group.
func NewGroup() *Group {
	return &Group{calls: map[string]*call{}}
}

// Outcome is returned by Do.
type Outcome struct {
	Value      any
	Err        error
	Coalesced  bool // true if this caller joined an already-running call
}

// Do executes fn for key if no call is in flight; otherwise it waits for
// the in-flight call's result. If ctx is canceled while waiting, Do
// returns ctx.Err() without affecting the underlying computation, also
// when the canceled caller was the last waiter.
func (g *Group) Do(ctx context.Context, key string, fn func() (any, error)) (Outcome, error) {
	g.mu.Lock()
	if c, ok := g.calls[key]; ok {
		c.waiters++
		g.mu.Unlock()
		return g.wait(ctx, key, c, true)
	}

	c := &call{waiters: 1}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	go g.run(key, c, fn)

	return g.wait(ctx, key, c, false)
}

// run executes fn and publishes the result. The map entry is removed once
// the computation settles, independent of how waiters consumed it (spec
// §4.7). A running call always runs to completion; Shutdown neither
// aborts it nor stops later Do calls from starting or joining calls.
func (g *Group) run(key string, c *call, fn func() (any, error)) {
	value, err := fn()
	c.result = Result{Value: value, Err: err}
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
}

func (g *Group) wait(ctx context.Context, key string, c *call, coalesced bool) (Outcome, error) {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		g.mu.Lock()
		c.waiters--
		g.mu.Unlock()
		return Outcome{Value: c.result.Value, Err: c.result.Err, Coalesced: coalesced}, nil
	case <-ctx.Done():
		g.mu.Lock()
		c.waiters--
		g.mu.Unlock()
		return Outcome{}, ctx.Err()
	}
}

// Shutdown marks the group as shutting down, as reported by IsShutdown.
// It does not interrupt a running computation and Do does not consult it
// (see run's doc comment).
func (g *Group) Shutdown() {
	g.mu.Lock()
	g.shutdown = true
	g.mu.Unlock()
}

// InFlight reports whether key currently has a running computation and,
// if so, how many waiters remain attached to it.
func (g *Group) InFlight(key string) (waiters int, ok bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	c, ok := g.calls[key]
	if !ok {
		return 0, false
	}
	return c.waiters, true
}

// IsShutdown reports whether Shutdown has been called.
func (g *Group) IsShutdown() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.shutdown
}
