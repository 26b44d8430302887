package signal

import (
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/causeway/internal/corpus"
)

// Outcome is the terminal classification of a transcript.
type Outcome int

const (
	OutcomeUnresolved Outcome = iota
	OutcomeEscalated
	OutcomeResolved
)

// String returns the wire label for the outcome.
func (o Outcome) String() string {
	switch o {
	case OutcomeEscalated:
		return "escalated"
	case OutcomeResolved:
		return "resolved"
	default:
		return "unresolved"
	}
}

// ParseOutcome maps a raw outcome label onto the closed outcome set.
// Unknown labels fall back to unresolved.
func ParseOutcome(s string) Outcome {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "escalated":
		return OutcomeEscalated
	case "resolved":
		return OutcomeResolved
	default:
		return OutcomeUnresolved
	}
}

// Signal is a single detected behavioral event within a turn.
type Signal struct {
	Type       string  `json:"type"`
	TurnIndex  int     `json:"turn_index"`
	Speaker    string  `json:"speaker"`
	Confidence float64 `json:"confidence"`
	SourceText string  `json:"source_text"`
}

// Timeline is the ordered signal sequence of one transcript.
// Signals are always sorted by turn index; an empty timeline is valid.
type Timeline struct {
	TranscriptID string
	Signals      []Signal
	Outcome      Outcome
}

// Types returns the signal-type sequence in timeline order.
func (tl Timeline) Types() []string {
	types := make([]string, len(tl.Signals))
	for i, s := range tl.Signals {
		types[i] = s.Type
	}
	return types
}

// Classifier detects behavioral signals in individual turns. The engine
// treats it as a deterministic black box; the default implementation lives
// in internal/classify.
type Classifier interface {
	// Signals returns zero or more signal types detected in the turn.
	Signals(turn corpus.Turn) []string
	// Confidence returns the detection confidence in [0,1] for a
	// (turn, signal type) pair.
	Confidence(turn corpus.Turn, signalType string) float64
}

// BuildTimeline wraps a transcript's detected signals with their temporal
// metadata and orders them by turn index. Turns within the same index keep
// their encounter order. A transcript with no detected signals yields an
// empty timeline with its known outcome.
func BuildTimeline(t corpus.Transcript, turns []corpus.Turn, c Classifier) Timeline {
	tl := Timeline{
		TranscriptID: t.ID,
		Outcome:      ParseOutcome(t.Outcome),
	}
	for _, turn := range turns {
		for _, sigType := range c.Signals(turn) {
			tl.Signals = append(tl.Signals, Signal{
				Type:       sigType,
				TurnIndex:  turn.TurnIndex,
				Speaker:    turn.Speaker,
				Confidence: c.Confidence(turn, sigType),
				SourceText: turn.Text,
			})
		}
	}
	sort.SliceStable(tl.Signals, func(i, j int) bool {
		return tl.Signals[i].TurnIndex < tl.Signals[j].TurnIndex
	})
	return tl
}
