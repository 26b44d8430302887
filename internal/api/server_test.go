package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/corpus"
	"github.com/MikeSquared-Agency/causeway/internal/engine"
	"github.com/MikeSquared-Agency/causeway/internal/query"
	"github.com/MikeSquared-Agency/causeway/internal/session"
)

// stubClassifier maps turn text directly to signal types.
type stubClassifier struct {
	signals map[string][]string
}

func (c stubClassifier) Signals(turn corpus.Turn) []string {
	return c.signals[turn.Text]
}

func (c stubClassifier) Confidence(turn corpus.Turn, signalType string) float64 {
	return 0.9
}

func testServer(t *testing.T, apiToken string) *Server {
	t.Helper()

	classifier := stubClassifier{signals: map[string][]string{
		"frustrated": {"customer_frustration"},
		"hold on":    {"agent_delay"},
	}}

	var transcripts []corpus.Transcript
	var turns []corpus.Turn
	for i := 0; i < 6; i++ {
		id := fmt.Sprintf("conv_%d", i)
		outcome := "escalated"
		if i >= 5 {
			outcome = "resolved"
		}
		transcripts = append(transcripts, corpus.Transcript{ID: id, Outcome: outcome})
		turns = append(turns,
			corpus.Turn{TranscriptID: id, TurnIndex: 1, Speaker: "customer", Text: "frustrated"},
			corpus.Turn{TranscriptID: id, TurnIndex: 2, Speaker: "agent", Text: "hold on"},
		)
	}

	eng := engine.New(corpus.NewIndex(transcripts, turns), classifier,
		engine.Options{MinEvidence: 5, MaxChainLength: 3}, nil)
	eng.Build()

	sessions := session.NewManager(10)
	parser := query.NewPatternParser(eng.KnownTranscript)
	return NewServer(8760, apiToken, eng, sessions, parser, nil)
}

func doJSON(t *testing.T, srv *Server, method, path, body string, headers map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	srv.router.ServeHTTP(w, req)

	var decoded map[string]any
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &decoded); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
	}
	return w, decoded
}

func TestHealthEndpoint(t *testing.T) {
	srv := testServer(t, "")
	w, body := doJSON(t, srv, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %v", body["status"])
	}
}

func TestStatusEndpoint(t *testing.T) {
	srv := testServer(t, "")
	w, body := doJSON(t, srv, "GET", "/api/v1/causeway/status", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	if body["agent"] != "causeway" {
		t.Errorf("expected agent causeway, got %v", body["agent"])
	}
	if body["state"] != "ready" {
		t.Errorf("expected ready state, got %v", body["state"])
	}
	if body["transcripts"].(float64) != 6 {
		t.Errorf("expected 6 transcripts, got %v", body["transcripts"])
	}
}

func TestBearerAuth(t *testing.T) {
	srv := testServer(t, "secret-token")

	w, _ := doJSON(t, srv, "GET", "/api/v1/explanations/conv_0", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 without token, got %d", w.Code)
	}

	w, _ = doJSON(t, srv, "GET", "/api/v1/explanations/conv_0", "",
		map[string]string{"Authorization": "Bearer wrong"})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("expected 401 with wrong token, got %d", w.Code)
	}

	w, _ = doJSON(t, srv, "GET", "/api/v1/explanations/conv_0", "",
		map[string]string{"Authorization": "Bearer secret-token"})
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 with valid token, got %d", w.Code)
	}

	// Health stays open.
	w, _ = doJSON(t, srv, "GET", "/health", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected open health endpoint, got %d", w.Code)
	}
}

func TestExplainEndpoint(t *testing.T) {
	srv := testServer(t, "")
	w, body := doJSON(t, srv, "GET", "/api/v1/explanations/conv_0", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["type"] != "explanation" || body["transcript_id"] != "conv_0" {
		t.Errorf("unexpected response header fields: %v", body)
	}
	if body["outcome"] != "escalated" {
		t.Errorf("expected escalated outcome, got %v", body["outcome"])
	}
	cc, ok := body["causal_chain"].(map[string]any)
	if !ok {
		t.Fatalf("missing causal_chain: %v", body)
	}
	if cc["chain_string"] == "" {
		t.Error("expected chain string")
	}
	if _, ok := body["evidence"].([]any); !ok {
		t.Errorf("expected evidence list, got %v", body["evidence"])
	}
}

func TestExplainEndpoint_NotFound(t *testing.T) {
	srv := testServer(t, "")
	w, body := doJSON(t, srv, "GET", "/api/v1/explanations/missing_id", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", w.Code)
	}
	if body["error"] == "" {
		t.Error("expected error message")
	}
}

func TestSimilarEndpoint_ExcludesSelf(t *testing.T) {
	srv := testServer(t, "")
	w, body := doJSON(t, srv, "GET", "/api/v1/explanations/conv_0/similar?top_k=10", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	cases, ok := body["similar_cases"].([]any)
	if !ok {
		t.Fatalf("missing similar_cases: %v", body)
	}
	for _, c := range cases {
		if c == "conv_0" {
			t.Error("reference transcript in its own similar cases")
		}
	}
}

func TestChainsEndpoints(t *testing.T) {
	srv := testServer(t, "")

	w, body := doJSON(t, srv, "GET", "/api/v1/chains?top=5", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["count"].(float64) == 0 {
		t.Error("expected retained chains")
	}

	w, body = doJSON(t, srv, "POST", "/api/v1/chains/lookup",
		`{"signals":["customer_frustration","agent_delay"]}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["occurrences"].(float64) != 6 {
		t.Errorf("expected 6 occurrences, got %v", body["occurrences"])
	}

	w, _ = doJSON(t, srv, "POST", "/api/v1/chains/lookup", `{"signals":["never_seen"]}`, nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown chain, got %d", w.Code)
	}

	w, _ = doJSON(t, srv, "POST", "/api/v1/chains/lookup", `{}`, nil)
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for empty signals, got %d", w.Code)
	}
}

// fakeSnapshotReader serves a canned persisted table.
type fakeSnapshotReader struct {
	snap map[string]chain.ExportedStat
	err  error
}

func (f fakeSnapshotReader) LatestChainSnapshot(ctx context.Context) (map[string]chain.ExportedStat, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.snap, nil
}

func TestSnapshotEndpoint(t *testing.T) {
	srv := testServer(t, "")

	// No snapshot persistence configured.
	w, _ := doJSON(t, srv, "GET", "/api/v1/chains/snapshot", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 without a snapshot reader, got %d", w.Code)
	}

	srv.snapshots = fakeSnapshotReader{snap: map[string]chain.ExportedStat{
		"customer_frustration → agent_delay": {
			Occurrences:    6,
			EscalatedCount: 5,
			ResolvedCount:  1,
			Confidence:     0.833,
			Valid:          true,
		},
	}}
	w, body := doJSON(t, srv, "GET", "/api/v1/chains/snapshot", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	entry, ok := body["customer_frustration → agent_delay"].(map[string]any)
	if !ok {
		t.Fatalf("missing snapshot entry: %v", body)
	}
	if entry["occurrences"].(float64) != 6 {
		t.Errorf("expected 6 occurrences, got %v", entry["occurrences"])
	}
	if entry["valid"] != true {
		t.Errorf("expected valid entry, got %v", entry["valid"])
	}

	srv.snapshots = fakeSnapshotReader{err: errors.New("no rows in result set")}
	w, _ = doJSON(t, srv, "GET", "/api/v1/chains/snapshot", "", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("expected 404 when no snapshot exists, got %d", w.Code)
	}
}

func TestQueryEndpoint_ExplainAndFollowUp(t *testing.T) {
	srv := testServer(t, "")

	w, body := doJSON(t, srv, "POST", "/api/v1/query",
		`{"question":"Why did conv_0 escalate?"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["kind"] != "explanation" {
		t.Errorf("expected explanation kind, got %v", body["kind"])
	}
	sessionID, _ := body["session_id"].(string)
	if sessionID == "" {
		t.Fatal("expected implicit session creation")
	}

	// Follow-up without an explicit id resolves against the session focus.
	w, body = doJSON(t, srv, "POST", "/api/v1/query",
		fmt.Sprintf(`{"session_id":%q,"question":"show me similar cases"}`, sessionID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if body["kind"] != "similar_cases" {
		t.Errorf("expected similar_cases kind, got %v", body["kind"])
	}
	answer := body["answer"].(map[string]any)
	if answer["reference_transcript"] != "conv_0" {
		t.Errorf("expected follow-up to reuse conv_0, got %v", answer["reference_transcript"])
	}
}

func TestQueryEndpoint_UnknownQuestion(t *testing.T) {
	srv := testServer(t, "")
	w, body := doJSON(t, srv, "POST", "/api/v1/query", `{"question":"hello there"}`, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("unparseable questions answer, not fail: got %d", w.Code)
	}
	if body["kind"] != "unknown" {
		t.Errorf("expected unknown kind, got %v", body["kind"])
	}
}

func TestSessionExportEndpoint(t *testing.T) {
	srv := testServer(t, "")

	doJSON(t, srv, "POST", "/api/v1/query",
		`{"session_id":"sess_1","question":"explain conv_1"}`, nil)

	w, body := doJSON(t, srv, "GET", "/api/v1/sessions/sess_1", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	queries, ok := body["queries"].([]any)
	if !ok || len(queries) != 1 {
		t.Fatalf("expected 1 recorded query, got %v", body["queries"])
	}
	if body["current_transcript"] != "conv_1" {
		t.Errorf("expected current transcript conv_1, got %v", body["current_transcript"])
	}

	// Unknown session ids are created, never rejected.
	w, _ = doJSON(t, srv, "GET", "/api/v1/sessions/brand_new", "", nil)
	if w.Code != http.StatusOK {
		t.Errorf("expected 200 for unknown session, got %d", w.Code)
	}
}
