package upload

import (
	"context"
	"sync"
)

// pauseGate is a cooperative pause flag with a one-shot resume signal.
// Only the batch worker waits on it, so there is never more than one waiter.
type pauseGate struct {
	mu        sync.Mutex
	requested bool
	waiting   bool
	resume    chan struct{}
}

func (g *pauseGate) pause() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.requested {
		return
	}
	g.requested = true
	g.resume = make(chan struct{})
}

// release clears the flag and wakes the waiter. It reports false when no
// pause was in effect.
func (g *pauseGate) release() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.requested {
		return false
	}
	g.requested = false
	close(g.resume)
	g.resume = nil
	return true
}

// wait blocks while a pause is requested. It returns ctx's error if ctx ends
// first.
func (g *pauseGate) wait(ctx context.Context) error {
	g.mu.Lock()
	if !g.requested {
		g.mu.Unlock()
		return ctx.Err()
	}
	ch := g.resume
	g.waiting = true
	g.mu.Unlock()

	defer func() {
		g.mu.Lock()
		g.waiting = false
		g.mu.Unlock()
	}()

	select {
	case <-ch:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (g *pauseGate) state() (requested, waiting bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.requested, g.waiting
}
