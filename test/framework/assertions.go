package framework

import (
	"context"
	"strings"

	"github.com/cuemby/vibelab/pkg/types"
)

const tokenAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// Assertions provides test assertion helpers
type Assertions struct {
	t TestingT
}

// NewAssertions creates a new Assertions instance
func NewAssertions(t TestingT) *Assertions {
	return &Assertions{t: t}
}

// WorkspaceState asserts a workspace's current lifecycle state.
func (a *Assertions) WorkspaceState(env *Env, id string, state types.WorkspaceState) {
	a.t.Helper()

	ws := a.getWorkspace(env, id)
	if ws.State != state {
		a.t.Fatalf("Workspace %s is %s, expected %s", id, ws.State, state)
	}
}

// ParticipantBound asserts the bidirectional participant link: the
// participant points at the workspace and the workspace mirrors the
// participant's identity.
func (a *Assertions) ParticipantBound(env *Env, participantEmail, workspaceID string) {
	a.t.Helper()

	p, err := env.Store.GetParticipantByEmail(participantEmail)
	if err != nil {
		a.t.Fatalf("Participant %s does not exist: %v", participantEmail, err)
	}
	if p.WorkspaceID != workspaceID {
		a.t.Fatalf("Participant %s is bound to %q, expected %q", participantEmail, p.WorkspaceID, workspaceID)
	}

	ws := a.getWorkspace(env, workspaceID)
	if ws.ParticipantEmail != p.Email {
		a.t.Fatalf("Workspace %s mirrors email %q, expected %q", workspaceID, ws.ParticipantEmail, p.Email)
	}
	if ws.ParticipantName != p.Name {
		a.t.Fatalf("Workspace %s mirrors name %q, expected %q", workspaceID, ws.ParticipantName, p.Name)
	}
}

// TokenShape asserts an access token is 5 characters from the
// unambiguous uppercase alphabet.
func (a *Assertions) TokenShape(token string) {
	a.t.Helper()

	if len(token) != 5 {
		a.t.Fatalf("Access token %q has length %d, expected 5", token, len(token))
	}
	for _, r := range token {
		if !strings.ContainsRune(tokenAlphabet, r) {
			a.t.Fatalf("Access token %q contains %q, not in the token alphabet", token, r)
		}
	}
}

func (a *Assertions) getWorkspace(env *Env, id string) *types.Workspace {
	a.t.Helper()

	workspaces, err := env.Client.ListWorkspaces(context.Background())
	if err != nil {
		a.t.Fatalf("Failed to list workspaces: %v", err)
	}
	for _, ws := range workspaces {
		if ws.ID == id {
			return ws
		}
	}
	a.t.Fatalf("Workspace %s does not exist", id)
	return nil
}
