// Package session holds bounded per-session query history and the current
// focus pointers that let follow-up queries reuse prior context.
package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultMaxHistory bounds the query records kept per session.
const DefaultMaxHistory = 10

// ResponseKindExplanation is the response kind that moves the session's
// current-focus pointers.
const ResponseKindExplanation = "explanation"

// Record is one query/response pair in a session's history.
type Record struct {
	ID           string    `json:"query_id"`
	Timestamp    time.Time `json:"timestamp"`
	Question     string    `json:"question"`
	ResponseKind string    `json:"response_kind"`
	Response     any       `json:"response,omitempty"`
	TranscriptID string    `json:"transcript_id,omitempty"`
}

// Session is per-conversation state. Its history is a fixed-capacity ring
// buffer with O(1) eviction of the oldest record. A session is not meant
// for concurrent mutation by multiple callers; the internal mutex
// serializes access in case the hosting server races requests on one id.
type Session struct {
	ID string

	mu       sync.Mutex
	buf      []Record
	head     int // index of the oldest record
	count    int
	capacity int

	currentTranscript  string
	currentExplanation any
}

func newSession(id string, maxHistory int) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	if maxHistory <= 0 {
		maxHistory = DefaultMaxHistory
	}
	return &Session{
		ID:       id,
		buf:      make([]Record, maxHistory),
		capacity: maxHistory,
	}
}

// Record appends a query entry, evicting the oldest on overflow. When the
// response kind is "explanation" and a transcript ref is present, the
// current transcript and explanation pointers move to it — the only state
// used to resolve follow-up queries.
func (s *Session) Record(question, responseKind string, response any, transcriptID string) Record {
	rec := Record{
		ID:           uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Question:     question,
		ResponseKind: responseKind,
		Response:     response,
		TranscriptID: transcriptID,
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count < s.capacity {
		s.buf[(s.head+s.count)%s.capacity] = rec
		s.count++
	} else {
		s.buf[s.head] = rec
		s.head = (s.head + 1) % s.capacity
	}

	if responseKind == ResponseKindExplanation && transcriptID != "" {
		s.currentTranscript = transcriptID
		s.currentExplanation = response
	}
	return rec
}

// History returns the retained records, oldest first.
func (s *Session) History() []Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Record, s.count)
	for i := 0; i < s.count; i++ {
		out[i] = s.buf[(s.head+i)%s.capacity]
	}
	return out
}

// CurrentTranscript returns the session's focus transcript, if any.
func (s *Session) CurrentTranscript() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentTranscript
}

// CurrentExplanation returns the most recent explanation payload, if any.
func (s *Session) CurrentExplanation() any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentExplanation
}

// Snapshot is the serializable export of a session.
type Snapshot struct {
	SessionID          string   `json:"session_id"`
	Queries            []Record `json:"queries"`
	CurrentTranscript  string   `json:"current_transcript,omitempty"`
	CurrentExplanation any      `json:"current_explanation,omitempty"`
}

// Export produces a snapshot of all recorded entries plus current pointers.
func (s *Session) Export() Snapshot {
	history := s.History()
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		SessionID:          s.ID,
		Queries:            history,
		CurrentTranscript:  s.currentTranscript,
		CurrentExplanation: s.currentExplanation,
	}
}
