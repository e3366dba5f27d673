package api

import (
	"context"
	"io"
	"iter"
	"log/slog"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"docqa/internal/domain"
	"docqa/internal/pages"
	"docqa/internal/service"
)

// Backend is the subset of the service the HTTP API needs.
type Backend interface {
	UploadDocument(ctx context.Context, r io.Reader, filename string, progress pages.ProgressFunc) (service.IngestReport, error)
	Respond(ctx context.Context, history []domain.Message, model string, useKnowledge bool) iter.Seq2[string, error]
	Status(ctx context.Context) (service.Status, error)
}

// Server is the HTTP API server for document Q&A.
type Server struct {
	router         chi.Router
	backend        Backend
	log            *slog.Logger
	maxUploadBytes int64

	// ingest serializes uploads; each one replaces the whole collection.
	ingest sync.Mutex
}

// NewServer creates and configures the HTTP server.
func NewServer(backend Backend, log *slog.Logger, maxUploadBytes int64) *Server {
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}
	s := &Server{
		backend:        backend,
		log:            log,
		maxUploadBytes: maxUploadBytes,
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
		r.Get("/collection", s.handleCollection)
		r.Post("/documents", s.handleUpload)
		r.Post("/chat", s.handleChat)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handleCollection(w http.ResponseWriter, r *http.Request) {
	st, err := s.backend.Status(r.Context())
	if err != nil {
		s.log.Error("collection status", "error", err)
		jsonError(w, "failed to read collection", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
