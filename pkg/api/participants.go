package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/cuemby/vibelab/pkg/auth"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/types"
)

// participantView is a participant without the password hash.
type participantView struct {
	*types.Participant
	PasswordHash string `json:"password_hash,omitempty"`
}

func viewParticipant(p *types.Participant) participantView {
	return participantView{Participant: p}
}

func (s *Server) handleListParticipants(w http.ResponseWriter, r *http.Request) {
	participants := s.store.ListParticipants()
	views := make([]participantView, len(participants))
	for i, p := range participants {
		views[i] = viewParticipant(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{"participants": views})
}

// newParticipant builds a participant with fresh credentials. The
// plaintext password is returned alongside for one-time display.
func newParticipant(name, email, notes string) (*types.Participant, string, error) {
	token, err := auth.GenerateAccessToken()
	if err != nil {
		return nil, "", err
	}
	password, err := auth.GeneratePassword()
	if err != nil {
		return nil, "", err
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	return &types.Participant{
		ID:           uuid.NewString(),
		Name:         name,
		Email:        types.NormalizeEmail(email),
		Notes:        notes,
		AccessToken:  token,
		PasswordHash: hash,
	}, password, nil
}

func (s *Server) handleCreateParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Name == "" || req.Email == "" {
		writeError(w, http.StatusBadRequest, "name and email are required")
		return
	}

	p, password, err := s.createWithUniqueToken(req.Name, req.Email, req.Notes)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"participant": viewParticipant(p),
		"password":    password,
	})
}

// createWithUniqueToken retries creation on access token collisions. The
// token space is large so collisions are rare; a handful of retries
// covers them.
func (s *Server) createWithUniqueToken(name, email, notes string) (*types.Participant, string, error) {
	var lastErr error
	for attempt := 0; attempt < 5; attempt++ {
		p, password, err := newParticipant(name, email, notes)
		if err != nil {
			return nil, "", err
		}
		if err := s.store.CreateParticipant(p); err != nil {
			lastErr = err
			continue
		}
		return p, password, nil
	}
	return nil, "", lastErr
}

type importedParticipant struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccessToken string `json:"access_token"`
	Password    string `json:"password"`
}

// handleImportParticipants bulk-creates participants. Individual failures
// (duplicate emails, usually) are reported per entry without failing the
// batch.
func (s *Server) handleImportParticipants(w http.ResponseWriter, r *http.Request) {
	var req []struct {
		Name  string `json:"name"`
		Email string `json:"email"`
		Notes string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil || len(req) == 0 {
		writeError(w, http.StatusBadRequest, "a non-empty participant list is required")
		return
	}

	imported := make([]importedParticipant, 0, len(req))
	failures := make(map[string]string)
	for _, entry := range req {
		if entry.Name == "" || entry.Email == "" {
			failures[entry.Email] = "name and email are required"
			continue
		}
		p, password, err := s.createWithUniqueToken(entry.Name, entry.Email, entry.Notes)
		if err != nil {
			failures[entry.Email] = err.Error()
			continue
		}
		imported = append(imported, importedParticipant{
			ID:          p.ID,
			Name:        p.Name,
			Email:       p.Email,
			AccessToken: p.AccessToken,
			Password:    password,
		})
	}

	logger := log.WithComponent("api")
	logger.Info().
		Int("imported", len(imported)).
		Int("failed", len(failures)).
		Msg("Participant import")

	resp := map[string]any{"success": len(imported) > 0, "imported": imported}
	if len(failures) > 0 {
		resp["errors"] = failures
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteParticipant(w http.ResponseWriter, r *http.Request) {
	if err := s.store.DeleteParticipant(chi.URLParam(r, "id")); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleRegeneratePassword issues a fresh password and returns the
// plaintext exactly once.
func (s *Server) handleRegeneratePassword(w http.ResponseWriter, r *http.Request) {
	password, err := auth.GeneratePassword()
	if err != nil {
		writeMappedError(w, err)
		return
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		writeMappedError(w, err)
		return
	}

	if _, err := s.store.UpdateParticipant(chi.URLParam(r, "id"), func(p *types.Participant) {
		p.PasswordHash = hash
	}); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"password": password})
}

func (s *Server) handleAssignParticipant(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WorkspaceID string `json:"workspace_id"`
	}
	if err := decodeJSON(r, &req); err != nil || req.WorkspaceID == "" {
		writeError(w, http.StatusBadRequest, "workspace_id is required")
		return
	}

	if err := s.store.Assign(chi.URLParam(r, "id"), req.WorkspaceID); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleUnassignParticipant(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Unassign(chi.URLParam(r, "id")); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleAutoAssign(w http.ResponseWriter, r *http.Request) {
	assigned := s.orch.AutoAssignParticipants()
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "assigned": assigned})
}
