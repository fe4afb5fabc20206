package server

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/n0madic/go-ocigenai/internal/codec"
	"github.com/n0madic/go-ocigenai/internal/config"
	"github.com/n0madic/go-ocigenai/internal/engine"
)

// maxBodyBytes limits the size of incoming request bodies.
const maxBodyBytes = 10 * 1024 * 1024 // 10 MB

// Server is the HTTP surface over the translation engine.
type Server struct {
	Config     *config.Config
	Engine     *engine.Engine
	httpServer *http.Server
	handler    http.Handler
}

// New creates a server with all routes registered.
func New(cfg *config.Config, eng *engine.Engine) *Server {
	s := &Server{Config: cfg, Engine: eng}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleHealth)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /v1/models", s.handleListModels)
	mux.HandleFunc("GET /v1/models/{id}", s.handleGetModel)
	mux.HandleFunc("POST /v1/generate", s.handleGenerate)
	mux.HandleFunc("POST /v1/stream", s.handleStream)
	mux.HandleFunc("OPTIONS /", s.handleOptions)

	s.handler = corsMiddleware(authMiddleware(cfg, verboseMiddleware(cfg, debugMiddleware(cfg, mux))))
	s.httpServer = &http.Server{
		Addr:         cfg.Addr(),
		Handler:      s.handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 600 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// ListenAndServe starts the server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		codec.WriteError(w, http.StatusBadRequest, "validation", "Failed to read request body")
		return nil, false
	}
	return body, true
}
