package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/types"
)

const requestTimeout = 30 * time.Second

// Client wraps the fleet REST API for easy CLI usage. All calls carry
// the admin bearer token obtained via Login.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// New creates a client against the given base URL, for example
// http://localhost:8090.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// NewWithToken creates a client carrying a previously issued token.
func NewWithToken(baseURL, token string) *Client {
	c := New(baseURL)
	c.token = token
	return c
}

// Token returns the bearer token in use, for persisting between runs.
func (c *Client) Token() string {
	return c.token
}

// apiError is the {"error": message} body every failing endpoint returns.
type apiError struct {
	Message string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		buf = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var e apiError
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Message != "" {
			return fmt.Errorf("%s %s: %s", method, path, e.Message)
		}
		return fmt.Errorf("%s %s: status %d", method, path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Login authenticates with the admin password and stores the issued
// token on the client.
func (c *Client) Login(ctx context.Context, password string) error {
	var resp struct {
		Token string `json:"token"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/admin/login",
		map[string]string{"password": password}, &resp); err != nil {
		return err
	}
	c.token = resp.Token
	return nil
}

// ChangeAdminPassword rotates the admin password.
func (c *Client) ChangeAdminPassword(ctx context.Context, current, next string) error {
	return c.do(ctx, http.MethodPost, "/auth/admin/change-password",
		map[string]string{"currentPassword": current, "newPassword": next}, nil)
}

// ListWorkspaces returns every workspace, reconciled against the cloud.
func (c *Client) ListWorkspaces(ctx context.Context) ([]*types.Workspace, error) {
	var resp struct {
		Workspaces []*types.Workspace `json:"workspaces"`
	}
	if err := c.do(ctx, http.MethodGet, "/workspaces", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Workspaces, nil
}

// SpinUpResult mirrors the spin-up response.
type SpinUpResult struct {
	Instances            []*types.Workspace `json:"instances"`
	ParticipantsAssigned int                `json:"participantsAssigned"`
	Errors               map[int]string     `json:"errors"`
}

// SpinUp launches count workspaces of the given family.
func (c *Client) SpinUp(ctx context.Context, count int, family string, autoAssign bool) (*SpinUpResult, error) {
	var resp SpinUpResult
	err := c.do(ctx, http.MethodPost, "/workspaces/spin-up", map[string]any{
		"count":                  count,
		"extension":              family,
		"autoAssignParticipants": autoAssign,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// StopWorkspace requests a graceful stop.
func (c *Client) StopWorkspace(ctx context.Context, id string) (*types.Workspace, error) {
	var w types.Workspace
	if err := c.do(ctx, http.MethodPost, "/workspaces/"+id+"/stop", nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// StartWorkspace relaunches a stopped workspace under its original id.
func (c *Client) StartWorkspace(ctx context.Context, id string) (*types.Workspace, error) {
	var w types.Workspace
	if err := c.do(ctx, http.MethodPost, "/workspaces/"+id+"/start", nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// WorkspacePatch carries the operator-editable workspace fields. Nil
// fields are left unchanged.
type WorkspacePatch struct {
	ParticipantName  *string `json:"participant_name,omitempty"`
	ParticipantEmail *string `json:"participant_email,omitempty"`
	Notes            *string `json:"notes,omitempty"`
}

// UpdateWorkspace patches the denormalized participant fields and notes.
func (c *Client) UpdateWorkspace(ctx context.Context, id string, patch WorkspacePatch) (*types.Workspace, error) {
	var w types.Workspace
	if err := c.do(ctx, http.MethodPatch, "/workspaces/"+id, patch, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// DeleteWorkspace stops, detaches, and removes a workspace.
func (c *Client) DeleteWorkspace(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workspaces/"+id, nil, nil)
}

// StopAll stops every live workspace. Returned reasons are per id.
func (c *Client) StopAll(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, "/workspaces/stop-all", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Errors, nil
}

// DeleteAll deletes every workspace record and its cloud task.
func (c *Client) DeleteAll(ctx context.Context) (map[string]string, error) {
	var resp struct {
		Errors map[string]string `json:"errors"`
	}
	if err := c.do(ctx, http.MethodDelete, "/workspaces/all", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Errors, nil
}

// ScanOrphans lists cloud tasks not tracked by any workspace record.
func (c *Client) ScanOrphans(ctx context.Context) ([]cloud.RunningTask, error) {
	var resp struct {
		Orphans []cloud.RunningTask `json:"orphans"`
	}
	if err := c.do(ctx, http.MethodGet, "/workspaces/orphaned/scan", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Orphans, nil
}

// ImportOrphan adopts an untracked task into the fleet.
func (c *Client) ImportOrphan(ctx context.Context, taskARN, taskID string) (*types.Workspace, error) {
	var w types.Workspace
	err := c.do(ctx, http.MethodPost, "/workspaces/orphaned/import",
		map[string]string{"task_arn": taskARN, "task_id": taskID}, &w)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// TerminateOrphan stops an untracked task without creating a record.
func (c *Client) TerminateOrphan(ctx context.Context, taskARN string) error {
	return c.do(ctx, http.MethodPost, "/workspaces/orphaned/terminate",
		map[string]string{"task_arn": taskARN}, nil)
}

// TerminateAllOrphans stops every untracked task.
func (c *Client) TerminateAllOrphans(ctx context.Context) (int, map[string]string, error) {
	var resp struct {
		Terminated int               `json:"terminated"`
		Errors     map[string]string `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, "/workspaces/orphaned/terminate-all", nil, &resp); err != nil {
		return 0, nil, err
	}
	return resp.Terminated, resp.Errors, nil
}

// ListParticipants returns every participant, password hashes omitted.
func (c *Client) ListParticipants(ctx context.Context) ([]*types.Participant, error) {
	var resp struct {
		Participants []*types.Participant `json:"participants"`
	}
	if err := c.do(ctx, http.MethodGet, "/participants", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Participants, nil
}

// ParticipantImport is one row of a bulk import request.
type ParticipantImport struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Notes string `json:"notes,omitempty"`
}

// ImportedParticipant carries the generated credentials for one-time
// display after import.
type ImportedParticipant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	Password    string `json:"password"`
}

// ImportParticipants bulk-creates participants with fresh credentials.
func (c *Client) ImportParticipants(ctx context.Context, entries []ParticipantImport) ([]ImportedParticipant, map[string]string, error) {
	var resp struct {
		Imported []ImportedParticipant `json:"imported"`
		Errors   map[string]string     `json:"errors"`
	}
	if err := c.do(ctx, http.MethodPost, "/participants/import", entries, &resp); err != nil {
		return nil, nil, err
	}
	return resp.Imported, resp.Errors, nil
}

// CreateParticipant creates one participant with fresh credentials and
// returns the record plus the one-time plaintext password.
func (c *Client) CreateParticipant(ctx context.Context, name, email, notes string) (*types.Participant, string, error) {
	var resp struct {
		Participant *types.Participant `json:"participant"`
		Password    string             `json:"password"`
	}
	err := c.do(ctx, http.MethodPost, "/participants",
		map[string]string{"name": name, "email": email, "notes": notes}, &resp)
	if err != nil {
		return nil, "", err
	}
	return resp.Participant, resp.Password, nil
}

// DeleteParticipant removes a participant and frees their workspace.
func (c *Client) DeleteParticipant(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/participants/"+id, nil, nil)
}

// RegeneratePassword issues a fresh participant password and returns the
// plaintext exactly once.
func (c *Client) RegeneratePassword(ctx context.Context, id string) (string, error) {
	var resp struct {
		Password string `json:"password"`
	}
	if err := c.do(ctx, http.MethodPost, "/participants/"+id+"/regenerate-password", nil, &resp); err != nil {
		return "", err
	}
	return resp.Password, nil
}

// AssignParticipant binds a participant to a workspace.
func (c *Client) AssignParticipant(ctx context.Context, participantID, workspaceID string) error {
	return c.do(ctx, http.MethodPost, "/participants/"+participantID+"/assign",
		map[string]string{"workspace_id": workspaceID}, nil)
}

// UnassignParticipant frees a participant's workspace.
func (c *Client) UnassignParticipant(ctx context.Context, participantID string) error {
	return c.do(ctx, http.MethodPost, "/participants/"+participantID+"/unassign", nil, nil)
}

// AutoAssign pairs unassigned participants with free workspaces.
func (c *Client) AutoAssign(ctx context.Context) (int, error) {
	var resp struct {
		Assigned int `json:"assigned"`
	}
	if err := c.do(ctx, http.MethodPost, "/participants/auto-assign", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Assigned, nil
}

// SetupStatus reports identity, persisted config, and bring-up state.
type SetupStatus struct {
	Config        *types.ClusterConfig `json:"config"`
	EdgeReady     bool                 `json:"edge_ready"`
	RegistryReady bool                 `json:"registry_ready"`
	Identity      *cloud.Caller        `json:"identity"`
	IdentityError string               `json:"identity_error"`
}

// GetSetupStatus fetches the setup status.
func (c *Client) GetSetupStatus(ctx context.Context) (*SetupStatus, error) {
	var resp SetupStatus
	if err := c.do(ctx, http.MethodGet, "/setup/status", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// SetupEdge brings up the shared router and CDN. Idempotent.
func (c *Client) SetupEdge(ctx context.Context) (*types.ClusterConfig, error) {
	var resp struct {
		Config *types.ClusterConfig `json:"config"`
	}
	if err := c.do(ctx, http.MethodPost, "/setup/edge", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Config, nil
}

// SetupRegistry ensures the image repository exists.
func (c *Client) SetupRegistry(ctx context.Context, name string) (string, error) {
	body := map[string]string{}
	if name != "" {
		body["name"] = name
	}
	var resp struct {
		RegistryURI string `json:"registry_uri"`
	}
	if err := c.do(ctx, http.MethodPost, "/setup/registry", body, &resp); err != nil {
		return "", err
	}
	return resp.RegistryURI, nil
}
