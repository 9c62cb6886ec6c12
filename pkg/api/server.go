package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/cuemby/vibelab/pkg/cloud"
	"github.com/cuemby/vibelab/pkg/edge"
	"github.com/cuemby/vibelab/pkg/log"
	"github.com/cuemby/vibelab/pkg/metrics"
	"github.com/cuemby/vibelab/pkg/orchestrator"
	"github.com/cuemby/vibelab/pkg/storage"
)

// Server is the fleet HTTP surface: admin and participant REST endpoints
// over the store, orchestrator, and cloud capability.
type Server struct {
	store   *storage.Store
	orch    *orchestrator.Orchestrator
	edge    *edge.Edge
	cloud   cloud.Capability
	version string

	httpServer *http.Server
}

// NewServer creates the API server.
func NewServer(store *storage.Store, orch *orchestrator.Orchestrator, e *edge.Edge, capability cloud.Capability, version string) *Server {
	return &Server{
		store:   store,
		orch:    orch,
		edge:    e,
		cloud:   capability,
		version: version,
	}
}

// Router builds the chi handler with all routes mounted.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(s.observe)

	// Unauthenticated surface
	r.Get("/healthz", metrics.HealthHandler())
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Post("/auth/admin/login", s.handleAdminLogin)
	r.Post("/auth/participant/login", s.handleParticipantLogin)
	r.Post("/auth/access-token/login", s.handleAccessTokenLogin)

	// Admin scope
	r.Group(func(r chi.Router) {
		r.Use(s.requireRole(roleAdmin))

		r.Post("/auth/admin/change-password", s.handleAdminChangePassword)

		r.Get("/workspaces", s.handleListWorkspaces)
		r.Post("/workspaces/spin-up", s.handleSpinUp)
		r.Post("/workspaces/stop-all", s.handleStopAll)
		r.Delete("/workspaces/all", s.handleDeleteAll)
		r.Get("/workspaces/orphaned/scan", s.handleOrphanScan)
		r.Post("/workspaces/orphaned/import", s.handleOrphanImport)
		r.Post("/workspaces/orphaned/terminate", s.handleOrphanTerminate)
		r.Post("/workspaces/orphaned/terminate-all", s.handleOrphanTerminateAll)
		r.Post("/workspaces/{id}/stop", s.handleStopWorkspace)
		r.Post("/workspaces/{id}/start", s.handleStartWorkspace)
		r.Patch("/workspaces/{id}", s.handlePatchWorkspace)
		r.Delete("/workspaces/{id}", s.handleDeleteWorkspace)

		r.Get("/participants", s.handleListParticipants)
		r.Post("/participants", s.handleCreateParticipant)
		r.Post("/participants/import", s.handleImportParticipants)
		r.Post("/participants/auto-assign", s.handleAutoAssign)
		r.Delete("/participants/{id}", s.handleDeleteParticipant)
		r.Post("/participants/{id}/regenerate-password", s.handleRegeneratePassword)
		r.Post("/participants/{id}/assign", s.handleAssignParticipant)
		r.Post("/participants/{id}/unassign", s.handleUnassignParticipant)

		r.Get("/setup/status", s.handleSetupStatus)
		r.Post("/setup/edge", s.handleSetupEdge)
		r.Post("/setup/registry", s.handleSetupRegistry)
	})

	// Participant scope
	r.Group(func(r chi.Router) {
		r.Use(s.requireRole(roleParticipant))

		r.Get("/portal/my-instance", s.handleMyInstance)
		r.Post("/portal/change-password", s.handlePortalChangePassword)
	})

	return r
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	metrics.RegisterComponent("api", true, "")
	logger := log.WithComponent("api")
	logger.Info().Str("addr", addr).Msg("API listening")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
