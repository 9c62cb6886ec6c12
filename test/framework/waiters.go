package framework

import (
	"context"
	"fmt"
	"time"

	"github.com/cuemby/vibelab/pkg/types"
)

// Waiter provides utilities for waiting on conditions with timeouts
type Waiter struct {
	timeout  time.Duration
	interval time.Duration
}

// NewWaiter creates a new Waiter with the given timeout and polling interval
func NewWaiter(timeout, interval time.Duration) *Waiter {
	return &Waiter{
		timeout:  timeout,
		interval: interval,
	}
}

// DefaultWaiter returns a waiter with sensible defaults (10s timeout, 100ms interval)
func DefaultWaiter() *Waiter {
	return NewWaiter(10*time.Second, 100*time.Millisecond)
}

// WaitFor waits for a condition to become true
func (w *Waiter) WaitFor(ctx context.Context, condition func() bool, description string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	if condition() {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for: %s (timeout: %v)", description, w.timeout)
		case <-ticker.C:
			if condition() {
				return nil
			}
		}
	}
}

// WaitForWorkspaceState waits for a workspace to reach the given
// lifecycle state. Listing reconciles as a side effect, so the wait
// drives the control plane the way a polling UI would.
func (w *Waiter) WaitForWorkspaceState(ctx context.Context, env *Env, id string, state types.WorkspaceState) error {
	return w.WaitFor(ctx, func() bool {
		workspaces, err := env.Client.ListWorkspaces(ctx)
		if err != nil {
			return false
		}
		for _, ws := range workspaces {
			if ws.ID == id {
				return ws.State == state
			}
		}
		return false
	}, fmt.Sprintf("workspace %s to reach %s", id, state))
}

// WaitForEdgePublished waits for a workspace to carry a published IDE URL.
func (w *Waiter) WaitForEdgePublished(ctx context.Context, env *Env, id string) error {
	return w.WaitFor(ctx, func() bool {
		workspaces, err := env.Client.ListWorkspaces(ctx)
		if err != nil {
			return false
		}
		for _, ws := range workspaces {
			if ws.ID == id {
				return ws.VSCodeURL != ""
			}
		}
		return false
	}, fmt.Sprintf("workspace %s to publish an IDE URL", id))
}
