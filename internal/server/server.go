// Package server exposes the evaluation pipeline over HTTP for map
// front-ends: upload a GeoJSON document, get back ranked, color-tiered
// results.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sitescout/sitescout/internal/pipeline"
	"github.com/sitescout/sitescout/internal/store"
)

// Server holds the HTTP handler dependencies.
type Server struct {
	pipeline *pipeline.Pipeline
	store    store.Store
	origins  []string
}

// New creates a Server.
func New(p *pipeline.Pipeline, st store.Store, allowedOrigins []string) *Server {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{"*"}
	}
	return &Server{pipeline: p, store: st, origins: allowedOrigins}
}

// Router builds the chi router with middleware and routes.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/evaluations", s.handleCreateEvaluation)
		r.Get("/evaluations", s.handleListEvaluations)
		r.Get("/evaluations/{id}", s.handleGetEvaluation)
	})

	return r
}

// requestLogger logs each request with structured zap fields.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("elapsed", time.Since(start)),
		)
	})
}
