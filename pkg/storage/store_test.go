package storage

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/cuemby/vibelab/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	return s
}

// TestOpenSeedsDefaults verifies first-start seeding of auth and config
func TestOpenSeedsDefaults(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	auth := s.Auth()
	require.NotNil(t, auth)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(auth.AdminPasswordHash), []byte(DefaultAdminPassword)))
	assert.Len(t, auth.SigningSecret, 32)

	cfg := s.Config()
	require.NotNil(t, cfg)
	assert.Equal(t, "us-east-1", cfg.Region)
	assert.Equal(t, "vibelab", cfg.Cluster)

	// Snapshot must exist on disk after seeding.
	_, err = os.Stat(filepath.Join(dir, snapshotFile))
	assert.NoError(t, err)
}

// TestOpenReloadsState verifies a reopened store sees persisted records
func TestOpenReloadsState(t *testing.T) {
	dir := t.TempDir()
	s1, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s1.CreateWorkspace(&types.Workspace{
		ID:     "vibe-ct-ABCDE",
		State:  types.WorkspaceStateRunning,
		Family: types.FamilyContinue,
	}))
	require.NoError(t, s1.CreateParticipant(&types.Participant{
		ID:          "p1",
		Name:        "Ada",
		Email:       "Ada@Example.com",
		AccessToken: "TOKEN",
	}))
	secret := s1.Auth().SigningSecret

	s2, err := Open(dir)
	require.NoError(t, err)

	w, err := s2.GetWorkspace("vibe-ct-ABCDE")
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateRunning, w.State)

	p, err := s2.GetParticipant("p1")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", p.Email)

	// Signing secret survives restarts, so issued tokens stay valid.
	assert.Equal(t, secret, s2.Auth().SigningSecret)
}

// TestOpenCorruptSnapshot verifies a malformed snapshot is fatal
func TestOpenCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotFile), []byte("{not json"), 0600))

	_, err := Open(dir)
	assert.Error(t, err)
}

// TestOpenForwardMigration verifies missing collections are created empty
func TestOpenForwardMigration(t *testing.T) {
	dir := t.TempDir()
	old := map[string]any{
		"workspaces": []map[string]any{{"id": "vibe-vb-AAAAA", "state": "stopped"}},
	}
	raw, err := json.Marshal(old)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, snapshotFile), raw, 0600))

	s, err := Open(dir)
	require.NoError(t, err)

	assert.Len(t, s.ListWorkspaces(), 1)
	assert.Empty(t, s.ListParticipants())
	assert.NotNil(t, s.Auth())
	assert.NotNil(t, s.Config())

	// Migrated snapshot is persisted with all collections present.
	raw, err = os.ReadFile(filepath.Join(dir, snapshotFile))
	require.NoError(t, err)
	var snap snapshot
	require.NoError(t, json.Unmarshal(raw, &snap))
	assert.NotNil(t, snap.Participants)
	assert.NotNil(t, snap.Auth)
	assert.NotNil(t, snap.Config)
}

// TestMutateRollback verifies a failed mutation leaves state untouched
func TestMutateRollback(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateWorkspace(&types.Workspace{ID: "vibe-ct-AAAAA"}))

	boom := errors.New("boom")
	err := s.mutate(func(snap *snapshot) error {
		snap.Workspaces = nil
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, s.ListWorkspaces(), 1)

	// A failed save must also roll back: point the store at an
	// unwritable path and confirm the in-memory state is unchanged.
	s.path = filepath.Join(t.TempDir(), "missing", "deep", snapshotFile)
	err = s.mutate(func(snap *snapshot) error {
		snap.Workspaces = append(snap.Workspaces, &types.Workspace{ID: "vibe-ct-BBBBB"})
		return nil
	})
	assert.Error(t, err)
	assert.Len(t, s.ListWorkspaces(), 1)
}

// TestWorkspaceCRUD exercises create, get, update, and delete
func TestWorkspaceCRUD(t *testing.T) {
	s := openTestStore(t)

	w := &types.Workspace{ID: "vibe-cl-AAAAA", State: types.WorkspaceStateProvisioning, Family: types.FamilyCline}
	require.NoError(t, s.CreateWorkspace(w))
	assert.ErrorIs(t, s.CreateWorkspace(w), ErrExists)

	got, err := s.GetWorkspace("vibe-cl-AAAAA")
	require.NoError(t, err)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)

	updated, err := s.UpdateWorkspace("vibe-cl-AAAAA", func(w *types.Workspace) {
		w.State = types.WorkspaceStateRunning
		w.PublicIP = "203.0.113.7"
	})
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateRunning, updated.State)
	assert.True(t, updated.UpdatedAt.After(updated.CreatedAt) || updated.UpdatedAt.Equal(updated.CreatedAt))

	_, err = s.UpdateWorkspace("vibe-cl-ZZZZZ", func(*types.Workspace) {})
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.DeleteWorkspace("vibe-cl-AAAAA"))
	_, err = s.GetWorkspace("vibe-cl-AAAAA")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, s.DeleteWorkspace("vibe-cl-AAAAA"), ErrNotFound)
}

// TestParticipantUniqueness verifies email and token collision handling
func TestParticipantUniqueness(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.CreateParticipant(&types.Participant{
		ID: "p1", Email: "ada@example.com", AccessToken: "AAAAA",
	}))

	tests := []struct {
		name string
		p    *types.Participant
	}{
		{"duplicate id", &types.Participant{ID: "p1", Email: "x@example.com", AccessToken: "BBBBB"}},
		{"duplicate email", &types.Participant{ID: "p2", Email: "ADA@example.com", AccessToken: "BBBBB"}},
		{"duplicate token", &types.Participant{ID: "p2", Email: "y@example.com", AccessToken: "AAAAA"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, s.CreateParticipant(tt.p), ErrExists)
		})
	}
}

// TestParticipantLookups covers email and access token lookups
func TestParticipantLookups(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateParticipant(&types.Participant{
		ID: "p1", Email: "Ada@Example.com", AccessToken: "XJ3KJ",
	}))

	p, err := s.GetParticipantByEmail("  ADA@EXAMPLE.COM ")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	p, err = s.GetParticipantByAccessToken(" xj3kj ")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.ID)

	_, err = s.GetParticipantByAccessToken("NOPE1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestAssignmentDenormalization verifies both directions of the link
func TestAssignmentDenormalization(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateWorkspace(&types.Workspace{ID: "vibe-vb-AAAAA"}))
	require.NoError(t, s.CreateWorkspace(&types.Workspace{ID: "vibe-vb-BBBBB"}))
	require.NoError(t, s.CreateParticipant(&types.Participant{
		ID: "p1", Name: "Ada", Email: "ada@example.com", AccessToken: "AAAAA", Notes: "team 3",
	}))

	require.NoError(t, s.Assign("p1", "vibe-vb-AAAAA"))

	p, _ := s.GetParticipant("p1")
	assert.Equal(t, "vibe-vb-AAAAA", p.WorkspaceID)
	w, _ := s.GetWorkspace("vibe-vb-AAAAA")
	assert.Equal(t, "Ada", w.ParticipantName)
	assert.Equal(t, "ada@example.com", w.ParticipantEmail)
	assert.Equal(t, "team 3", w.Notes)

	// Reassigning moves the link and clears the previous workspace.
	require.NoError(t, s.Assign("p1", "vibe-vb-BBBBB"))
	prev, _ := s.GetWorkspace("vibe-vb-AAAAA")
	assert.Empty(t, prev.ParticipantEmail)
	next, _ := s.GetWorkspace("vibe-vb-BBBBB")
	assert.Equal(t, "ada@example.com", next.ParticipantEmail)

	require.NoError(t, s.Unassign("p1"))
	p, _ = s.GetParticipant("p1")
	assert.Empty(t, p.WorkspaceID)
	next, _ = s.GetWorkspace("vibe-vb-BBBBB")
	assert.Empty(t, next.ParticipantEmail)
}

// TestDeleteCascades verifies deletes clear the other side of the link
func TestDeleteCascades(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateWorkspace(&types.Workspace{ID: "vibe-vp-AAAAA"}))
	require.NoError(t, s.CreateParticipant(&types.Participant{
		ID: "p1", Email: "ada@example.com", AccessToken: "AAAAA",
	}))
	require.NoError(t, s.Assign("p1", "vibe-vp-AAAAA"))

	require.NoError(t, s.DeleteWorkspace("vibe-vp-AAAAA"))
	p, _ := s.GetParticipant("p1")
	assert.Empty(t, p.WorkspaceID)

	require.NoError(t, s.CreateWorkspace(&types.Workspace{ID: "vibe-vp-BBBBB"}))
	require.NoError(t, s.Assign("p1", "vibe-vp-BBBBB"))
	require.NoError(t, s.DeleteParticipant("p1"))
	w, _ := s.GetWorkspace("vibe-vp-BBBBB")
	assert.Empty(t, w.ParticipantEmail)
	assert.Empty(t, w.ParticipantName)
}

// TestDeleteAllParticipants verifies the bulk path clears the same
// denormalized fields as a single delete
func TestDeleteAllParticipants(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateWorkspace(&types.Workspace{ID: "vibe-ct-AAAAA"}))
	require.NoError(t, s.CreateParticipant(&types.Participant{
		ID: "p1", Name: "Ada", Email: "ada@example.com", AccessToken: "AAAAA", Notes: "team 3",
	}))
	require.NoError(t, s.Assign("p1", "vibe-ct-AAAAA"))

	require.NoError(t, s.DeleteAllParticipants())

	assert.Empty(t, s.ListParticipants())
	w, err := s.GetWorkspace("vibe-ct-AAAAA")
	require.NoError(t, err)
	assert.Empty(t, w.ParticipantName)
	assert.Empty(t, w.ParticipantEmail)
	assert.Empty(t, w.Notes)
}

// TestDefensiveCopies verifies mutations of returned records do not leak in
func TestDefensiveCopies(t *testing.T) {
	s := openTestStore(t)
	require.NoError(t, s.CreateWorkspace(&types.Workspace{ID: "vibe-ct-AAAAA", State: types.WorkspaceStateStopped}))

	w, err := s.GetWorkspace("vibe-ct-AAAAA")
	require.NoError(t, err)
	w.State = types.WorkspaceStateFailed

	again, err := s.GetWorkspace("vibe-ct-AAAAA")
	require.NoError(t, err)
	assert.Equal(t, types.WorkspaceStateStopped, again.State)

	auth := s.Auth()
	auth.SigningSecret[0] ^= 0xff
	assert.NotEqual(t, auth.SigningSecret[0], s.Auth().SigningSecret[0])
}

// TestUpdateConfig verifies cluster config persistence
func TestUpdateConfig(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	require.NoError(t, err)

	require.NoError(t, s.UpdateConfig(func(c *types.ClusterConfig) {
		c.VPCID = "vpc-123"
		c.Subnets = []string{"subnet-a", "subnet-b"}
	}))

	s2, err := Open(dir)
	require.NoError(t, err)
	cfg := s2.Config()
	assert.Equal(t, "vpc-123", cfg.VPCID)
	assert.Equal(t, []string{"subnet-a", "subnet-b"}, cfg.Subnets)
}
