package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/orchestrator"
	"github.com/cuemby/vibelab/pkg/storage"
	"github.com/cuemby/vibelab/pkg/types"
)

type testAPI struct {
	store  *storage.Store
	fake   *cloud.Fake
	server *Server
	router http.Handler
	admin  string
}

func newTestAPI(t *testing.T) *testAPI {
	t.Helper()
	store, err := storage.Open(t.TempDir())
	require.NoError(t, err)
	fake := cloud.NewFake()
	e := edge.New(fake, store)
	orch := orchestrator.New(store, fake, e)
	server := NewServer(store, orch, e, fake, "test")

	a := &testAPI{store: store, fake: fake, server: server, router: server.Router()}
	a.admin = a.login(t, storage.DefaultAdminPassword)
	return a
}

func (a *testAPI) login(t *testing.T, password string) string {
	t.Helper()
	rec := a.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{"password": password})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp.Token
}

func (a *testAPI) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v), rec.Body.String())
	return v
}

// TestAdminLogin covers success, wrong password, and missing password
func TestAdminLogin(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{"password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/auth/admin/login", "", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// TestRoleEnforcement verifies 401 without a token and 403 across roles
func TestRoleEnforcement(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/workspaces", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodGet, "/workspaces", "garbage-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// An admin token cannot use the participant portal.
	rec = a.do(t, http.MethodGet, "/portal/my-instance", a.admin, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

// TestAdminChangePassword verifies the rotation requires the current one
func TestAdminChangePassword(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/auth/admin/change-password", a.admin,
		map[string]string{"currentPassword": "wrong", "newPassword": "next"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = a.do(t, http.MethodPost, "/auth/admin/change-password", a.admin,
		map[string]string{"currentPassword": storage.DefaultAdminPassword, "newPassword": "next"})
	assert.Equal(t, http.StatusOK, rec.Code)

	a.login(t, "next")
}

// TestSpinUpValidation covers the boundary counts and unknown families
func TestSpinUpValidation(t *testing.T) {
	a := newTestAPI(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"zero count", map[string]any{"count": 0, "extension": "continue"}},
		{"count 101", map[string]any{"count": 101, "extension": "continue"}},
		{"unknown extension", map[string]any{"count": 1, "extension": "unknown"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := a.do(t, http.MethodPost, "/workspaces/spin-up", a.admin, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.NotEmpty(t, body["error"])
		})
	}
}

// TestSpinUpAndList walks spawn, reconcile-on-list, and URL publication
func TestSpinUpAndList(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/setup/edge", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/workspaces/spin-up", a.admin,
		map[string]any{"count": 1, "extension": "continue"})
	require.Equal(t, http.StatusOK, rec.Code)
	spin := decode[struct {
		Success   bool               `json:"success"`
		Instances []*types.Workspace `json:"instances"`
	}](t, rec)
	require.True(t, spin.Success)
	require.Len(t, spin.Instances, 1)
	id := spin.Instances[0].ID

	a.fake.SetTaskStatus(spin.Instances[0].TaskARN, "RUNNING")
	a.fake.SetPublicIP(spin.Instances[0].TaskARN, "203.0.113.7", "10.0.0.7")

	// Listing reconciles as a side effect.
	rec = a.do(t, http.MethodGet, "/workspaces", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Workspaces []*types.Workspace `json:"workspaces"`
	}](t, rec)
	require.Len(t, list.Workspaces, 1)
	w := list.Workspaces[0]
	assert.Equal(t, types.WorkspaceStateRunning, w.State)
	cfg := a.store.Config()
	assert.Equal(t, fmt.Sprintf("https://%s/%s/", cfg.CDNDomain, id), w.VSCodeURL)
}

// TestWorkspaceLifecycleRoutes covers stop, start, patch, delete, 404s
func TestWorkspaceLifecycleRoutes(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/workspaces/spin-up", a.admin,
		map[string]any{"count": 1, "extension": "vibe"})
	require.Equal(t, http.StatusOK, rec.Code)
	spin := decode[struct {
		Instances []*types.Workspace `json:"instances"`
	}](t, rec)
	id := spin.Instances[0].ID

	rec = a.do(t, http.MethodPatch, "/workspaces/"+id, a.admin,
		map[string]string{"notes": "table 4"})
	require.Equal(t, http.StatusOK, rec.Code)
	patched := decode[types.Workspace](t, rec)
	assert.Equal(t, "table 4", patched.Notes)

	rec = a.do(t, http.MethodPost, "/workspaces/"+id+"/stop", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodPost, "/workspaces/does-not-exist/stop", a.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = a.do(t, http.MethodDelete, "/workspaces/"+id, a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodDelete, "/workspaces/"+id, a.admin, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// TestParticipantImportAndAssign covers the §8 spawn-and-assign scenario
func TestParticipantImportAndAssign(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/participants/import", a.admin, []map[string]string{
		{"name": "Alice", "email": "alice@x"},
		{"name": "Bob", "email": "bob@x"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	imported := decode[struct {
		Success  bool                  `json:"success"`
		Imported []importedParticipant `json:"imported"`
	}](t, rec)
	require.True(t, imported.Success)
	require.Len(t, imported.Imported, 2)
	assert.Len(t, imported.Imported[0].AccessToken, 5)
	assert.Len(t, imported.Imported[0].Password, 8)

	rec = a.do(t, http.MethodPost, "/workspaces/spin-up", a.admin,
		map[string]any{"count": 2, "extension": "continue", "autoAssignParticipants": true})
	require.Equal(t, http.StatusOK, rec.Code)
	spin := decode[struct {
		Instances            []*types.Workspace `json:"instances"`
		ParticipantsAssigned int                `json:"participantsAssigned"`
	}](t, rec)
	assert.Equal(t, 2, spin.ParticipantsAssigned)
	assert.Equal(t, "alice@x", spin.Instances[0].ParticipantEmail)
	assert.Equal(t, "bob@x", spin.Instances[1].ParticipantEmail)
}

// TestAccessTokenLogin covers unknown token, pending workspace, success
func TestAccessTokenLogin(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/participants/import", a.admin, []map[string]string{
		{"name": "Alice", "email": "alice@x"},
	})
	require.Equal(t, http.StatusOK, rec.Code)
	imported := decode[struct {
		Imported []importedParticipant `json:"imported"`
	}](t, rec)
	token := imported.Imported[0].AccessToken

	rec = a.do(t, http.MethodPost, "/auth/access-token/login", "", map[string]string{"accessToken": "ZZZZZ"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// No workspace assigned yet.
	rec = a.do(t, http.MethodPost, "/auth/access-token/login", "", map[string]string{"accessToken": token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = a.do(t, http.MethodPost, "/workspaces/spin-up", a.admin,
		map[string]any{"count": 1, "extension": "continue", "autoAssignParticipants": true})
	require.Equal(t, http.StatusOK, rec.Code)
	spin := decode[struct {
		Instances []*types.Workspace `json:"instances"`
	}](t, rec)

	// Workspace still provisioning: the landing code flow says wait.
	rec = a.do(t, http.MethodPost, "/auth/access-token/login", "", map[string]string{"accessToken": token})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["error"], "please wait")

	a.fake.SetTaskStatus(spin.Instances[0].TaskARN, "RUNNING")
	a.fake.SetPublicIP(spin.Instances[0].TaskARN, "203.0.113.7", "10.0.0.7")
	a.do(t, http.MethodGet, "/workspaces", a.admin, nil)

	// Case-insensitive token.
	rec = a.do(t, http.MethodPost, "/auth/access-token/login", "",
		map[string]string{"accessToken": " " + token + " "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	login := decode[struct {
		Token    string           `json:"token"`
		Instance *types.Workspace `json:"instance"`
	}](t, rec)
	assert.NotEmpty(t, login.Token)
	require.NotNil(t, login.Instance)
	assert.Equal(t, spin.Instances[0].ID, login.Instance.ID)

	// The issued token opens the portal.
	rec = a.do(t, http.MethodGet, "/portal/my-instance", login.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	portal := decode[struct {
		Participant *types.Participant `json:"participant"`
		Instance    *types.Workspace   `json:"instance"`
	}](t, rec)
	assert.Equal(t, "alice@x", portal.Participant.Email)
	assert.Empty(t, portal.Participant.PasswordHash)
	require.NotNil(t, portal.Instance)
}

// TestRegeneratePassword verifies the plaintext is returned once
func TestRegeneratePassword(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodPost, "/participants", a.admin,
		map[string]string{"name": "Alice", "email": "alice@x"})
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[struct {
		Participant *types.Participant `json:"participant"`
		Password    string             `json:"password"`
	}](t, rec)
	require.Len(t, created.Password, 8)

	rec = a.do(t, http.MethodPost, "/participants/"+created.Participant.ID+"/regenerate-password", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	regen := decode[map[string]string](t, rec)
	require.Len(t, regen["password"], 8)
	assert.NotEqual(t, created.Password, regen["password"])

	// The fresh password logs in.
	rec = a.do(t, http.MethodPost, "/auth/participant/login", "",
		map[string]string{"email": "ALICE@X", "password": regen["password"]})
	assert.Equal(t, http.StatusOK, rec.Code)

	// The old one does not, and the error stays generic.
	rec = a.do(t, http.MethodPost, "/auth/participant/login", "",
		map[string]string{"email": "alice@x", "password": created.Password})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Equal(t, "invalid credentials", body["error"])
}

// TestOrphanRoutes walks the §8 orphan reconciliation scenario
func TestOrphanRoutes(t *testing.T) {
	a := newTestAPI(t)

	arn := a.fake.StartDirect(types.FamilyContinue)

	rec := a.do(t, http.MethodGet, "/workspaces/orphaned/scan", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scan := decode[struct {
		Orphans []cloud.RunningTask `json:"orphans"`
	}](t, rec)
	require.Len(t, scan.Orphans, 1)

	rec = a.do(t, http.MethodPost, "/workspaces/orphaned/import", a.admin,
		map[string]string{"task_arn": arn, "task_id": "abc"})
	require.Equal(t, http.StatusOK, rec.Code)
	imported := decode[types.Workspace](t, rec)
	assert.Equal(t, "imported-abc", imported.ID)

	rec = a.do(t, http.MethodGet, "/workspaces/orphaned/scan", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	scan = decode[struct {
		Orphans []cloud.RunningTask `json:"orphans"`
	}](t, rec)
	assert.Empty(t, scan.Orphans)
}

// TestSetupRoutes covers status and registry bring-up
func TestSetupRoutes(t *testing.T) {
	a := newTestAPI(t)

	rec := a.do(t, http.MethodGet, "/setup/status", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[map[string]any](t, rec)
	assert.Equal(t, false, status["edge_ready"])
	assert.Equal(t, false, status["registry_ready"])

	rec = a.do(t, http.MethodPost, "/setup/edge", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = a.do(t, http.MethodPost, "/setup/registry", a.admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = a.do(t, http.MethodGet, "/setup/status", a.admin, nil)
	status = decode[map[string]any](t, rec)
	assert.Equal(t, true, status["edge_ready"])
	assert.Equal(t, true, status["registry_ready"])
}
