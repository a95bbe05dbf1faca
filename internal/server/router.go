package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/sevigo/docwarden/internal/core"
	"github.com/sevigo/docwarden/internal/server/handler"
	"github.com/sevigo/docwarden/internal/submit"
)

// NewRouter creates and configures the HTTP router for the Job API (§6.1),
// mirroring the teacher's middleware stack and route grouping.
func NewRouter(store core.JobStore, submitter *submit.Submitter, logger *slog.Logger) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})

	jobsHandler := handler.NewJobsHandler(store, submitter, logger)

	r.Route("/v1/jobs", func(r chi.Router) {
		r.Post("/", jobsHandler.Create)
		r.Get("/", jobsHandler.List)
		r.Get("/{id}", jobsHandler.Get)
		r.Delete("/{id}", jobsHandler.Delete)
		r.Get("/{id}/artifact", jobsHandler.Artifact)
	})

	return r
}
