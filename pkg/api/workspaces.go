package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cuemby/vibelab/pkg/metrics"
	"github.com/cuemby/vibelab/pkg/types"
)

// handleListWorkspaces reconciles the fleet as a side effect so the list
// reflects the cloud's current view, then returns every record.
func (s *Server) handleListWorkspaces(w http.ResponseWriter, r *http.Request) {
	s.orch.ReconcileAll(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"workspaces": s.store.ListWorkspaces(),
	})
}

func (s *Server) handleSpinUp(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Count                  int    `json:"count"`
		Extension              string `json:"extension"`
		AutoAssignParticipants bool   `json:"autoAssignParticipants"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.orch.SpinUp(r.Context(), req.Count, types.ImageFamily(req.Extension), req.AutoAssignParticipants)
	if err != nil {
		metrics.SpawnsTotal.WithLabelValues("error").Inc()
		writeMappedError(w, err)
		return
	}
	metrics.SpawnsTotal.WithLabelValues("ok").Add(float64(len(result.Instances)))
	if len(result.Errors) > 0 {
		metrics.SpawnsTotal.WithLabelValues("error").Add(float64(len(result.Errors)))
	}

	resp := map[string]any{
		"success":              true,
		"instances":            result.Instances,
		"participantsAssigned": result.ParticipantsAssigned,
	}
	if len(result.Errors) > 0 {
		resp["errors"] = result.Errors
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStopWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.orch.Stop(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspace)
}

func (s *Server) handleStartWorkspace(w http.ResponseWriter, r *http.Request) {
	workspace, err := s.orch.Start(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspace)
}

func (s *Server) handleDeleteWorkspace(w http.ResponseWriter, r *http.Request) {
	if err := s.orch.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handlePatchWorkspace updates the operator-editable denormalized fields.
func (s *Server) handlePatchWorkspace(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ParticipantName  *string `json:"participant_name"`
		ParticipantEmail *string `json:"participant_email"`
		Notes            *string `json:"notes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workspace, err := s.store.UpdateWorkspace(chi.URLParam(r, "id"), func(ws *types.Workspace) {
		if req.ParticipantName != nil {
			ws.ParticipantName = *req.ParticipantName
		}
		if req.ParticipantEmail != nil {
			ws.ParticipantEmail = types.NormalizeEmail(*req.ParticipantEmail)
		}
		if req.Notes != nil {
			ws.Notes = *req.Notes
		}
	})
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspace)
}

func (s *Server) handleStopAll(w http.ResponseWriter, r *http.Request) {
	reasons := s.orch.StopAll(r.Context())
	resp := map[string]any{"success": len(reasons) == 0}
	if len(reasons) > 0 {
		resp["errors"] = reasons
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDeleteAll(w http.ResponseWriter, r *http.Request) {
	reasons := s.orch.DeleteAll(r.Context())
	resp := map[string]any{"success": len(reasons) == 0}
	if len(reasons) > 0 {
		resp["errors"] = reasons
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleOrphanScan(w http.ResponseWriter, r *http.Request) {
	orphans, err := s.orch.ScanOrphans(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orphans": orphans})
}

func (s *Server) handleOrphanImport(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskARN string `json:"task_arn"`
		TaskID  string `json:"task_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	workspace, err := s.orch.ImportOrphan(r.Context(), req.TaskARN, req.TaskID)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, workspace)
}

func (s *Server) handleOrphanTerminate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TaskARN string `json:"task_arn"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := s.orch.TerminateOrphan(r.Context(), req.TaskARN); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (s *Server) handleOrphanTerminateAll(w http.ResponseWriter, r *http.Request) {
	terminated, reasons, err := s.orch.TerminateAllOrphans(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	resp := map[string]any{"success": len(reasons) == 0, "terminated": terminated}
	if len(reasons) > 0 {
		resp["errors"] = reasons
	}
	writeJSON(w, http.StatusOK, resp)
}
