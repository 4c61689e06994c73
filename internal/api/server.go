// Package api is the chi HTTP surface. Handlers stay thin: parsing,
// dispatch into store/pipeline, and JSON rendering; the domain rules live
// in the packages they guard.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/NiranjanVenkatesan/rag-application/internal/config"
	"github.com/NiranjanVenkatesan/rag-application/internal/pipeline"
	"github.com/NiranjanVenkatesan/rag-application/internal/store"
)

// Server is the HTTP API server.
type Server struct {
	router chi.Router
	store  *store.Store
	orch   *pipeline.Orchestrator
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(st *store.Store, orch *pipeline.Orchestrator, log *slog.Logger, cfg config.Config) *Server {
	s := &Server{
		store: st,
		orch:  orch,
		log:   log,
		cfg:   cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Route("/documents", func(r chi.Router) {
			r.Post("/", s.handleUpload)
			r.Get("/", s.handleListDocuments)

			r.Route("/{docID}", func(r chi.Router) {
				r.Get("/", s.handleGetDocument)
				r.Delete("/", s.handleDeleteDocument)

				r.Post("/process", s.handleProcess)
				r.Post("/retry", s.handleRetry)
				r.Post("/cancel", s.handleCancel)

				r.Get("/sections", s.handleDocumentSections)
				r.Get("/sections/tree", s.handleSectionTree)
				r.Get("/sections/roots", s.handleRootSections)
				r.Get("/sections/level/{level}", s.handleSectionsByLevel)
				r.Get("/sections/type/{type}", s.handleSectionsByType)
				r.Get("/sections/unindexed", s.handleUnindexedSections)
			})
		})

		r.Route("/sections/{sectionID}", func(r chi.Router) {
			r.Get("/", s.handleGetSection)
			r.Get("/children", s.handleSectionChildren)
			r.Put("/index-ref", s.handleSetIndexRef)
		})

		r.Get("/stats", s.handleStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
