package api

import (
	"net/http"

	"github.com/cuemby/vibelab/pkg/types"
)

// handleSetupStatus reports identity, the persisted cluster config, and
// which one-shot bring-up steps have completed.
func (s *Server) handleSetupStatus(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Config()

	resp := map[string]any{
		"config":         cfg,
		"edge_ready":     cfg.ListenerARN != "" && cfg.CDNDomain != "",
		"registry_ready": cfg.RegistryURI != "",
	}
	if identity, err := s.cloud.Identity(r.Context()); err == nil {
		resp["identity"] = identity
	} else {
		resp["identity_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSetupEdge brings up the shared router and CDN and persists their
// handles. Idempotent.
func (s *Server) handleSetupEdge(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.edge.Ensure(r.Context())
	if err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "config": cfg})
}

// handleSetupRegistry ensures the image repository exists and persists
// its URI.
func (s *Server) handleSetupRegistry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	// The body is optional; the default repository name is used when absent.
	_ = decodeJSON(r, &req)
	if req.Name == "" {
		req.Name = "vibelab-workspace"
	}

	uri, err := s.cloud.EnsureRepository(r.Context(), req.Name)
	if err != nil {
		writeMappedError(w, err)
		return
	}
	if err := s.store.UpdateConfig(func(c *types.ClusterConfig) {
		c.RegistryURI = uri
	}); err != nil {
		writeMappedError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "registry_uri": uri})
}
