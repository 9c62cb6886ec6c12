package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

type fixture struct {
	store *storage.Store
	fake  *cloud.Fake
	orch  *Orchestrator
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	fake := cloud.NewFake()
	e := edge.New(fake, store)
	return &fixture{store: store, fake: fake, orch: New(store, fake, e)}
}

func (f *fixture) addParticipant(t *testing.T, id, name, email string) {
	t.Helper()
	require.NoError(t, f.store.CreateParticipant(&types.Participant{
		ID: id, Name: name, Email: email, AccessToken: strings.ToUpper(id),
	}))
}

// TestGenerateWorkspaceID verifies prefix and suffix shape
func TestGenerateWorkspaceID(t *testing.T) {
	for _, family := range types.Families() {
		id, err := GenerateWorkspaceID(family)
		require.NoError(t, err)
		assert.True(t, strings.HasPrefix(id, family.IDPrefix()), id)
		suffix := strings.TrimPrefix(id, family.IDPrefix())
		assert.Len(t, suffix, 5)
		for _, r := range suffix {
			assert.True(t, strings.ContainsRune(idAlphabet, r), id)
		}
	}
}

// TestSpinUpValidation covers count and family bounds
func TestSpinUpValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		count  int
		family types.ImageFamily
	}{
		{"zero count", 0, types.FamilyContinue},
		{"count over max", 101, types.FamilyContinue},
		{"unknown family", 1, types.ImageFamily("unknown")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.orch.SpinUp(ctx, tt.count, tt.family, false)
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

// TestSpinUpAutoAssign verifies the queue drains in insertion order
func TestSpinUpAutoAssign(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.addParticipant(t, "p1", "Alice", "alice@x")
	f.addParticipant(t, "p2", "Bob", "bob@x")

	result, err := f.orch.SpinUp(ctx, 2, types.FamilyContinue, true)
	require.NoError(t, err)
	assert.Len(t, result.Instances, 2)
	assert.Equal(t, 2, result.ParticipantsAssigned)
	assert.Empty(t, result.Errors)

	for _, w := range result.Instances {
		assert.True(t, strings.HasPrefix(w.ID, "vibe-ct-"))
		assert.NotEmpty(t, w.TaskARN)
	}

	// The returned instances carry the denormalized binding, not the
	// pre-assignment records.
	assert.Equal(t, "alice@x", result.Instances[0].ParticipantEmail)
	assert.Equal(t, "Alice", result.Instances[0].ParticipantName)
	assert.Equal(t, "bob@x", result.Instances[1].ParticipantEmail)

	// Insertion order: the first created workspace gets Alice.
	got, err := f.store.GetWorkspace(result.Instances[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "alice@x", got.ParticipantEmail)
	got, err = f.store.GetWorkspace(result.Instances[1].ID)
	require.NoError(t, err)
	assert.Equal(t, "bob@x", got.ParticipantEmail)
}

// TestSpinUpSurplus verifies surplus workspaces stay unbound
func TestSpinUpSurplus(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "p1", "Alice", "alice@x")

	result, err := f.orch.SpinUp(context.Background(), 3, types.FamilyVibe, true)
	require.NoError(t, err)
	assert.Equal(t, 1, result.ParticipantsAssigned)

	unbound := 0
	for _, w := range f.store.ListWorkspaces() {
		if w.ParticipantEmail == "" {
			unbound++
		}
	}
	assert.Equal(t, 2, unbound)
}

// TestSpinUpPartialFailure verifies per-ordinal errors and failed records
func TestSpinUpPartialFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// First spin-up succeeds, then make task starts fail.
	_, err := f.orch.SpinUp(ctx, 1, types.FamilyCline, false)
	require.NoError(t, err)

	f.fake.FailWith("RunTask", &cloud.Error{Kind: cloud.KindTransient, Op: "run task", Err: errors.New("throttled")})
	_, err = f.orch.SpinUp(ctx, 2, types.FamilyCline, false)
	assert.Error(t, err)

	failed := 0
	for _, w := range f.store.ListWorkspaces() {
		if w.State == types.WorkspaceStateFailed {
			failed++
			assert.Contains(t, w.Error, "throttled")
		}
	}
	assert.Equal(t, 2, failed)
}

// TestStopStartCycle verifies stop then start keeps the id, fresh handle
func TestStopStartCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.SpinUp(ctx, 1, types.FamilyContinue, false)
	require.NoError(t, err)
	id := result.Instances[0].ID
	firstARN := result.Instances[0].TaskARN

	w, err := f.orch.Stop(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateStopping, w.State)

	f.fake.SetTaskStatus(firstARN, "STOPPED")
	f.orch.ReconcileAll(ctx)
	w, err = f.store.GetWorkspace(id)
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateStopped, w.State)

	w, err = f.orch.Start(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, w.ID)
	assert.NotEqual(t, firstARN, w.TaskARN)
	assert.Empty(t, w.PublicIP)

	// Starting a live workspace is rejected.
	_, err = f.orch.Start(ctx, id)
	assert.ErrorIs(t, err, ErrInvalid)
}

// TestReconcilePublishesEdge verifies attach and URL publication
func TestReconcilePublishesEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := edge.New(f.fake, f.store)
	_, err := e.Ensure(ctx)
	require.NoError(t, err)

	result, err := f.orch.SpinUp(ctx, 1, types.FamilyContinue, false)
	require.NoError(t, err)
	id := result.Instances[0].ID
	arn := result.Instances[0].TaskARN

	f.fake.SetTaskStatus(arn, "RUNNING")
	f.fake.SetPublicIP(arn, "203.0.113.7", "10.0.0.7")

	changed := f.orch.ReconcileAll(ctx)
	assert.Equal(t, 1, changed)

	w, err := f.store.GetWorkspace(id)
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateRunning, w.State)
	assert.Equal(t, "203.0.113.7", w.PublicIP)
	assert.Equal(t, "/"+id, w.PathPrefix)
	assert.NotEmpty(t, w.TargetGroupARN)
	cfg := f.store.Config()
	assert.Equal(t, "https://"+cfg.CDNDomain+"/"+id+"/", w.VSCodeURL)
	assert.Equal(t, "http://203.0.113.7:3000", w.AppURL)

	// Nothing changed: the second pass must not patch.
	updatedAt := w.UpdatedAt
	assert.Equal(t, 0, f.orch.ReconcileAll(ctx))
	w, _ = f.store.GetWorkspace(id)
	assert.Equal(t, updatedAt, w.UpdatedAt)
}

// TestReconcileFallbackURLs verifies pre-edge IP publication
func TestReconcileFallbackURLs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.SpinUp(ctx, 1, types.FamilyVibe, false)
	require.NoError(t, err)
	arn := result.Instances[0].TaskARN
	f.fake.SetTaskStatus(arn, "RUNNING")
	f.fake.SetPublicIP(arn, "203.0.113.9", "")

	f.orch.ReconcileAll(ctx)
	w, err := f.store.GetWorkspace(result.Instances[0].ID)
	require.NoError(t, err)
	// No CDN configured: fallback URLs are published, never both null.
	assert.Equal(t, "http://203.0.113.9:8080", w.VSCodeURL)
	assert.Equal(t, "http://203.0.113.9:3000", w.AppURL)
}

// TestReconcileReapedTask verifies a vanished task marks the record stopped
func TestReconcileReapedTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.SpinUp(ctx, 1, types.FamilyContinue, false)
	require.NoError(t, err)
	id := result.Instances[0].ID

	f.fake.FailWith("DescribeTask", &cloud.Error{Kind: cloud.KindNotFound, Op: "describe task", Err: errors.New("task not found")})
	f.orch.ReconcileAll(ctx)

	w, err := f.store.GetWorkspace(id)
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateStopped, w.State)
	assert.Empty(t, w.PublicIP)
}

// TestOrphanScanImportTerminate walks the orphan workflow end to end
func TestOrphanScanImportTerminate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// One owned task, one started behind the orchestrator's back.
	_, err := f.orch.SpinUp(ctx, 1, types.FamilyContinue, false)
	require.NoError(t, err)
	orphanARN := f.fake.StartDirect(types.FamilyContinue)

	orphans, err := f.orch.ScanOrphans(ctx)
	require.NoError(t, err)
	require.Len(t, orphans, 1)
	assert.Equal(t, orphanARN, orphans[0].TaskARN)

	w, err := f.orch.ImportOrphan(ctx, orphanARN, "abc")
	require.NoError(t, err)
	assert.Equal(t, "imported-abc", w.ID)
	assert.Equal(t, orphanARN, w.TaskARN)

	orphans, err = f.orch.ScanOrphans(ctx)
	require.NoError(t, err)
	assert.Empty(t, orphans)

	// Terminate-all on a fresh orphan stops it without a store record.
	second := f.fake.StartDirect(types.FamilyVibe)
	terminated, reasons, err := f.orch.TerminateAllOrphans(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, terminated)
	assert.Empty(t, reasons)
	status, err := f.fake.DescribeTask(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, "STOPPED", status.Status)
}

// TestDeleteDetachesEdge verifies delete stops, detaches, and removes
func TestDeleteDetachesEdge(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.SpinUp(ctx, 1, types.FamilyContinue, false)
	require.NoError(t, err)
	id := result.Instances[0].ID
	arn := result.Instances[0].TaskARN
	f.fake.SetTaskStatus(arn, "RUNNING")
	f.fake.SetPublicIP(arn, "203.0.113.7", "10.0.0.7")
	f.orch.ReconcileAll(ctx)

	require.NoError(t, f.orch.Delete(ctx, id))
	_, err = f.store.GetWorkspace(id)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 1, f.fake.Calls("DetachWorkspace"))
	assert.Equal(t, 1, f.fake.Calls("StopTask"))
}

// TestStopAll verifies live workspaces stop and stopped ones are skipped
func TestStopAll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result, err := f.orch.SpinUp(ctx, 3, types.FamilyContinue, false)
	require.NoError(t, err)
	stoppedID := result.Instances[0].ID
	_, err = f.orch.Stop(ctx, stoppedID)
	require.NoError(t, err)
	f.fake.SetTaskStatus(result.Instances[0].TaskARN, "STOPPED")
	f.orch.ReconcileAll(ctx)
	stops := f.fake.Calls("StopTask")

	reasons := f.orch.StopAll(ctx)
	assert.Empty(t, reasons)
	assert.Equal(t, stops+2, f.fake.Calls("StopTask"))
}

// TestAutoAssignParticipants verifies pairing of free workspaces
func TestAutoAssignParticipants(t *testing.T) {
	f := newFixture(t)
	f.addParticipant(t, "p1", "Alice", "alice@x")
	f.addParticipant(t, "p2", "Bob", "bob@x")
	f.addParticipant(t, "p3", "Cara", "cara@x")

	_, err := f.orch.SpinUp(context.Background(), 2, types.FamilyContinue, false)
	require.NoError(t, err)

	assert.Equal(t, 2, f.orch.AutoAssignParticipants())
	// Third participant remains queued.
	p, err := f.store.GetParticipant("p3")
	require.NoError(t, err)
	assert.Empty(t, p.WorkspaceID)
	// Idempotent: nothing left to pair.
	assert.Equal(t, 0, f.orch.AutoAssignParticipants())
}
