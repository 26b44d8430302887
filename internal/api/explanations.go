package api

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/explain"
)

// chainJSON is the wire form of a causal chain.
type chainJSON struct {
	Signals     []string `json:"signals"`
	Confidence  float64  `json:"confidence"`
	ChainString string   `json:"chain_string"`
}

// explanationResponse is the wire form of a causal explanation.
type explanationResponse struct {
	Type            string          `json:"type"`
	TranscriptID    string          `json:"transcript_id"`
	Outcome         string          `json:"outcome"`
	CausalChain     chainJSON       `json:"causal_chain"`
	PrimaryCause    string          `json:"primary_cause"`
	SecondaryCauses []string        `json:"secondary_causes"`
	Confidence      float64         `json:"confidence"`
	ExplanationText string          `json:"explanation_text"`
	Summary         string          `json:"summary"`
	Evidence        []explain.Quote `json:"evidence"`
	Alternatives    []chainJSON     `json:"alternatives"`
	Fallback        bool            `json:"fallback,omitempty"`
}

func toChainJSON(c chain.Chain) chainJSON {
	return chainJSON{Signals: c.Signals, Confidence: c.Confidence, ChainString: c.Label()}
}

func toExplanationResponse(e *explain.Explanation) explanationResponse {
	alternatives := make([]chainJSON, len(e.Alternatives))
	for i, alt := range e.Alternatives {
		alternatives[i] = toChainJSON(alt)
	}
	evidence := e.Quotes
	if evidence == nil {
		evidence = []explain.Quote{}
	}
	return explanationResponse{
		Type:            "explanation",
		TranscriptID:    e.TranscriptID,
		Outcome:         e.Outcome.String(),
		CausalChain:     toChainJSON(e.Chain),
		PrimaryCause:    e.PrimaryCause(),
		SecondaryCauses: e.SecondaryCauses(),
		Confidence:      e.Confidence,
		ExplanationText: e.Text(),
		Summary:         e.Summary(),
		Evidence:        evidence,
		Alternatives:    alternatives,
		Fallback:        e.Fallback,
	}
}

// chainStatJSON is the wire form of one chain's corpus statistics.
type chainStatJSON struct {
	Chain              string     `json:"chain"`
	Signals            []string   `json:"signals"`
	Occurrences        int        `json:"occurrences"`
	EscalatedCount     int        `json:"escalated_count"`
	ResolvedCount      int        `json:"resolved_count"`
	Confidence         float64    `json:"confidence"`
	ConfidenceInterval [2]float64 `json:"confidence_interval"`
	Examples           []string   `json:"examples"`
}

func toChainStatJSON(st *chain.Stat) chainStatJSON {
	return chainStatJSON{
		Chain:              chain.Chain{Signals: st.Signals}.Label(),
		Signals:            st.Signals,
		Occurrences:        st.Occurrences,
		EscalatedCount:     st.EscalatedCount,
		ResolvedCount:      st.ResolvedCount,
		Confidence:         st.Confidence,
		ConfidenceInterval: [2]float64{st.CILower, st.CIUpper},
		Examples:           st.Examples,
	}
}

// explainTranscript handles GET /api/v1/explanations/{transcriptID}.
func (s *Server) explainTranscript(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	exp, ok := s.engine.Explain(id)
	if !ok {
		writeError(w, http.StatusNotFound, "transcript not found: "+id)
		return
	}
	writeJSON(w, http.StatusOK, toExplanationResponse(exp))
}

// similarTranscripts handles GET /api/v1/explanations/{transcriptID}/similar.
func (s *Server) similarTranscripts(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "transcriptID")
	topK := 5
	if v := r.URL.Query().Get("top_k"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid top_k")
			return
		}
		topK = n
	}

	similar, ok := s.engine.FindSimilar(id, topK)
	if !ok {
		writeError(w, http.StatusNotFound, "transcript not found: "+id)
		return
	}
	if similar == nil {
		similar = []string{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"type":                 "similar_cases",
		"reference_transcript": id,
		"similar_cases":        similar,
		"count":                len(similar),
	})
}

// listChains handles GET /api/v1/chains?top=N&min_confidence=X.
func (s *Server) listChains(w http.ResponseWriter, r *http.Request) {
	top := 10
	if v := r.URL.Query().Get("top"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "invalid top")
			return
		}
		top = n
	}
	minConfidence := 0.0
	if v := r.URL.Query().Get("min_confidence"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 || f > 1 {
			writeError(w, http.StatusBadRequest, "invalid min_confidence")
			return
		}
		minConfidence = f
	}

	var chains []chainStatJSON
	for _, st := range s.engine.Stats().All() {
		if st.Confidence < minConfidence {
			continue
		}
		chains = append(chains, toChainStatJSON(st))
		if len(chains) >= top {
			break
		}
	}
	if chains == nil {
		chains = []chainStatJSON{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"chains": chains, "count": len(chains)})
}

// exportChains handles GET /api/v1/chains/export, the serialized table form.
func (s *Server) exportChains(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Stats().Export())
}

// latestSnapshot handles GET /api/v1/chains/snapshot: the most recently
// persisted statistics table, as opposed to the live export.
func (s *Server) latestSnapshot(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil {
		writeError(w, http.StatusNotFound, "snapshot persistence not configured")
		return
	}
	snap, err := s.snapshots.LatestChainSnapshot(r.Context())
	if err != nil {
		writeError(w, http.StatusNotFound, "no chain snapshot available")
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// lookupChain handles POST /api/v1/chains/lookup.
func (s *Server) lookupChain(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Signals []string `json:"signals"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Signals) == 0 {
		writeError(w, http.StatusBadRequest, "signals list is required")
		return
	}

	st, ok := s.engine.ChainLookup(req.Signals)
	if !ok {
		writeError(w, http.StatusNotFound, "chain not found")
		return
	}
	writeJSON(w, http.StatusOK, toChainStatJSON(st))
}
