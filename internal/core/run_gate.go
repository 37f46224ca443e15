package core

// run_gate.go keeps export and reconcile runs from overlapping.
//
// Both runs share the hand-off files, so the gate has a single slot. A run
// that finds the slot taken fails fast with ErrRunInProgress rather than
// queueing. WaitForDrain lets shutdown wait for an in-flight run.

import (
	"context"
	"sync"
	"time"
)

// runGate is a one-slot semaphore that remembers which run holds it.
type runGate struct {
	slot chan struct{}

	mu     sync.RWMutex
	active string
}

func newRunGate() *runGate {
	return &runGate{slot: make(chan struct{}, 1)}
}

// TryAcquire takes the slot for the named run without blocking.
func (g *runGate) TryAcquire(run string) bool {
	select {
	case g.slot <- struct{}{}:
		g.mu.Lock()
		g.active = run
		g.mu.Unlock()
		return true
	default:
		return false
	}
}

// Release frees the slot. Must be called exactly once per successful
// TryAcquire.
func (g *runGate) Release() {
	g.mu.Lock()
	g.active = ""
	g.mu.Unlock()

	<-g.slot
}

// Active returns the kind of the run holding the slot, or "".
func (g *runGate) Active() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.active
}

// WaitForDrain blocks until no run holds the slot or ctx is done.
func (g *runGate) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if g.Active() == "" {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
