// Package api exposes the workflow engine over REST.
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ignite/campaign-engine/internal/workflow"
)

// Server holds the HTTP surface for the workflow engine.
type Server struct {
	engine *workflow.Engine
}

// NewServer creates the API server around an engine.
func NewServer(engine *workflow.Engine) *Server {
	return &Server{engine: engine}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/workflows", func(r chi.Router) {
			r.Post("/", s.handleInitializeWorkflow)

			r.Route("/{campaignID}", func(r chi.Router) {
				r.Get("/", s.handleGetWorkflow)
				r.Get("/history", s.handleGetHistory)
				r.Get("/approvals", s.handleGetApprovals)
				r.Post("/approvals", s.handleCreateApproval)
				r.Post("/transition", s.handleTransition)
				r.Post("/cancel", s.handleCancel)
			})
		})

		r.Post("/approvals/{approvalID}/decision", s.handleApprovalDecision)

		r.Route("/rules", func(r chi.Router) {
			r.Get("/", s.handleListRules)
			r.Post("/", s.handleCreateRule)
			r.Post("/{ruleID}/enable", s.handleEnableRule)
			r.Post("/{ruleID}/disable", s.handleDisableRule)
		})
	})

	return r
}
