package api

import (
	"net/http"

	"github.com/cuemby/vibelab/pkg/auth"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/types"
)

type userInfo struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
}

type loginResponse struct {
	Token    string           `json:"token"`
	User     userInfo         `json:"user"`
	Instance *types.Workspace `json:"instance,omitempty"`
}

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Password == "" {
		writeError(w, http.StatusBadRequest, "password is required")
		return
	}

	cfg := s.store.Auth()
	if !auth.CheckPassword(cfg.AdminPasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.IssueAdminToken(cfg.SigningSecret)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{Token: token, User: userInfo{Type: "admin"}})
}

func (s *Server) handleAdminChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}

	cfg := s.store.Auth()
	if !auth.CheckPassword(cfg.AdminPasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if err := s.store.UpdateAuth(func(a *types.AuthConfig) {
		a.AdminPasswordHash = hash
	}); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleParticipantLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	// Never reveal which of email or password was wrong.
	p, err := s.store.GetParticipantByEmail(req.Email)
	if err != nil || !auth.CheckPassword(p.PasswordHash, req.Password) {
		writeError(w, http.StatusUnauthorized, "invalid credentials")
		return
	}

	token, err := auth.IssueParticipantToken(s.store.Auth().SigningSecret, p.ID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loginResponse{
		Token: token,
		User:  userInfo{Type: "participant", ID: p.ID, Name: p.Name, Email: p.Email},
	})
}

func (s *Server) handleAccessTokenLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AccessToken string `json:"accessToken"`
	}
	if err := decodeJSON(r, &req); err != nil || req.AccessToken == "" {
		writeError(w, http.StatusBadRequest, "accessToken is required")
		return
	}

	p, err := s.store.GetParticipantByAccessToken(req.AccessToken)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid access token")
		return
	}
	if p.WorkspaceID == "" {
		writeError(w, http.StatusBadRequest, "no workspace assigned yet")
		return
	}

	instance, err := s.store.GetWorkspace(p.WorkspaceID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if instance.State != types.WorkspaceStateRunning {
		writeError(w, http.StatusBadRequest, "your workspace is still starting, please wait")
		return
	}

	token, err := auth.IssueParticipantToken(s.store.Auth().SigningSecret, p.ID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	pLog := log.WithParticipantID(p.ID)
	pLog.Info().Msg("Access token login")
	writeJSON(w, http.StatusOK, loginResponse{
		Token:    token,
		User:     userInfo{Type: "participant", ID: p.ID, Name: p.Name, Email: p.Email},
		Instance: instance,
	})
}

func (s *Server) handleMyInstance(w http.ResponseWriter, r *http.Request) {
	claims := requestClaims(r)
	p, err := s.store.GetParticipant(claims.Subject)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	p.PasswordHash = ""

	resp := struct {
		Participant *types.Participant `json:"participant"`
		Instance    *types.Workspace   `json:"instance,omitempty"`
	}{Participant: p}

	if p.WorkspaceID != "" {
		if instance, err := s.store.GetWorkspace(p.WorkspaceID); err == nil {
			resp.Instance = instance
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handlePortalChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := decodeJSON(r, &req); err != nil || req.NewPassword == "" {
		writeError(w, http.StatusBadRequest, "currentPassword and newPassword are required")
		return
	}

	claims := requestClaims(r)
	p, err := s.store.GetParticipant(claims.Subject)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if !auth.CheckPassword(p.PasswordHash, req.CurrentPassword) {
		writeError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}

	hash, err := auth.HashPassword(req.NewPassword)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if _, err := s.store.UpdateParticipant(p.ID, func(p *types.Participant) {
		p.PasswordHash = hash
	}); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
