package reconciler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/orchestrator"
	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

func newTestReconciler(t *testing.T) (*Reconciler, *orchestrator.Orchestrator, *storage.Store, *cloud.Fake) {
	t.Helper()

	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	fake := cloud.NewFake()
	orch := orchestrator.New(store, fake, edge.New(fake, store))
	return NewReconciler(orch), orch, store, fake
}

func TestStartStop(t *testing.T) {
	r, _, _, _ := newTestReconciler(t)

	r.Start()
	r.Stop()
}

func TestCycleDrivesWorkspaceState(t *testing.T) {
	r, orch, store, fake := newTestReconciler(t)
	ctx := context.Background()

	result, err := orch.SpinUp(ctx, 1, types.FamilyContinue, false)
	require.NoError(t, err)
	ws := result.Instances[0]

	fake.SetTaskStatus(ws.TaskARN, "RUNNING")
	fake.SetPublicIP(ws.TaskARN, "203.0.113.9", "10.0.0.9")

	r.reconcile()

	got, err := store.GetWorkspace(ws.ID)
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateRunning, got.State)
	assert.Equal(t, "203.0.113.9", got.PublicIP)
}
