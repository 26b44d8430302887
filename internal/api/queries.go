package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/causeway/internal/query"
	"github.com/MikeSquared-Agency/causeway/internal/session"
)

// queryRequest is the natural-language query payload. A missing or
// unrecognized session id implicitly creates a session.
type queryRequest struct {
	SessionID string   `json:"session_id,omitempty"`
	Question  string   `json:"question"`
	Signals   []string `json:"signals,omitempty"` // explicit chain for stats questions
}

// handleQuery handles POST /api/v1/query: parse the question, answer it,
// record the exchange in the session.
func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "question is required")
		return
	}

	sess := s.sessions.GetOrCreate(req.SessionID)
	parsed := s.parser.Parse(req.Question)

	// Follow-up questions without an explicit id fall back to the
	// session's current focus transcript.
	transcriptID := parsed.TranscriptID
	if transcriptID == "" {
		transcriptID = sess.CurrentTranscript()
	}

	kind, payload := s.answer(parsed.Intent, transcriptID, req.Signals)
	sess.Record(req.Question, kind, payload, transcriptID)

	writeJSON(w, http.StatusOK, map[string]any{
		"session_id": sess.ID,
		"kind":       kind,
		"answer":     payload,
	})
}

// answer resolves one parsed intent into a response kind and payload.
// Every intent produces a deterministic answer; parse failures report an
// unknown kind rather than an HTTP error.
func (s *Server) answer(intent query.Intent, transcriptID string, signals []string) (string, any) {
	switch intent {
	case query.IntentExplain:
		exp, ok := s.engine.Explain(transcriptID)
		if !ok {
			return "not_found", map[string]string{"transcript_id": transcriptID}
		}
		return session.ResponseKindExplanation, toExplanationResponse(exp)

	case query.IntentSimilar:
		similar, ok := s.engine.FindSimilar(transcriptID, 5)
		if !ok {
			return "not_found", map[string]string{"transcript_id": transcriptID}
		}
		if similar == nil {
			similar = []string{}
		}
		return "similar_cases", map[string]any{
			"reference_transcript": transcriptID,
			"similar_cases":        similar,
			"count":                len(similar),
		}

	case query.IntentChainStats:
		if len(signals) == 0 {
			return "unknown", map[string]string{"error": "chain stats questions need an explicit signals list"}
		}
		st, ok := s.engine.ChainLookup(signals)
		if !ok {
			return "not_found", map[string]any{"signals": signals}
		}
		return "chain_stats", toChainStatJSON(st)

	default:
		return "unknown", map[string]string{"error": "could not parse question"}
	}
}

// exportSession handles GET /api/v1/sessions/{sessionID}. Unknown ids get
// a fresh empty session rather than a rejection.
func (s *Server) exportSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "sessionID")
	sess := s.sessions.GetOrCreate(id)
	writeJSON(w, http.StatusOK, sess.Export())
}
