package core

import (
	"context"
	"testing"
	"time"
)

func TestRunGate_SingleSlot(t *testing.T) {
	g := newRunGate()

	if got := g.Active(); got != "" {
		t.Errorf("initial Active = %q, want empty", got)
	}
	if !g.TryAcquire("export") {
		t.Fatal("first TryAcquire failed")
	}
	if got := g.Active(); got != "export" {
		t.Errorf("Active = %q, want %q", got, "export")
	}
	if g.TryAcquire("reconcile") {
		t.Fatal("second TryAcquire succeeded while slot held")
	}

	g.Release()

	if got := g.Active(); got != "" {
		t.Errorf("after Release, Active = %q, want empty", got)
	}
	if !g.TryAcquire("reconcile") {
		t.Fatal("TryAcquire after Release failed")
	}
	g.Release()
}

func TestRunGate_WaitForDrain(t *testing.T) {
	g := newRunGate()

	// Idle gate drains immediately
	if err := g.WaitForDrain(context.Background()); err != nil {
		t.Fatalf("WaitForDrain on idle gate: %v", err)
	}

	g.TryAcquire("export")
	go func() {
		time.Sleep(150 * time.Millisecond)
		g.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := g.WaitForDrain(ctx); err != nil {
		t.Errorf("WaitForDrain = %v, want nil", err)
	}
}

func TestRunGate_WaitForDrainTimeout(t *testing.T) {
	g := newRunGate()
	g.TryAcquire("reconcile")
	defer g.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := g.WaitForDrain(ctx); err != context.DeadlineExceeded {
		t.Errorf("WaitForDrain = %v, want %v", err, context.DeadlineExceeded)
	}
}
