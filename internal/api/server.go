package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/engine"
	"github.com/MikeSquared-Agency/causeway/internal/query"
	"github.com/MikeSquared-Agency/causeway/internal/session"
)

// SnapshotReader serves the most recently persisted statistics table. Nil
// when snapshot persistence is not configured.
type SnapshotReader interface {
	LatestChainSnapshot(ctx context.Context) (map[string]chain.ExportedStat, error)
}

type Server struct {
	router    *chi.Mux
	port      int
	engine    *engine.Engine
	sessions  *session.Manager
	parser    query.Parser
	snapshots SnapshotReader
}

func NewServer(port int, apiToken string, eng *engine.Engine, sessions *session.Manager, parser query.Parser, snapshots SnapshotReader) *Server {
	router := chi.NewRouter()
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      port,
		engine:    eng,
		sessions:  sessions,
		parser:    parser,
		snapshots: snapshots,
	}

	router.Get("/health", s.health)
	router.Get("/api/v1/causeway/status", s.status)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(apiToken))
		r.Get("/explanations/{transcriptID}", s.explainTranscript)
		r.Get("/explanations/{transcriptID}/similar", s.similarTranscripts)
		r.Get("/chains", s.listChains)
		r.Get("/chains/export", s.exportChains)
		r.Get("/chains/snapshot", s.latestSnapshot)
		r.Post("/chains/lookup", s.lookupChain)
		r.Post("/query", s.handleQuery)
		r.Get("/sessions/{sessionID}", s.exportSession)
	})

	return s
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	slog.Info("API server starting", "addr", addr)
	return http.ListenAndServe(addr, s.router)
}

// BearerAuthMiddleware rejects requests without the configured bearer
// token. An empty token disables auth (local development).
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") || strings.TrimPrefix(auth, "Bearer ") != token {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	idx := s.engine.Corpus()
	writeJSON(w, http.StatusOK, map[string]any{
		"agent":       "causeway",
		"state":       s.engine.Stats().State().String(),
		"chains":      s.engine.Stats().Len(),
		"transcripts": idx.Len(),
		"outcomes":    idx.CountByOutcome(),
		"sessions":    len(s.sessions.List()),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
