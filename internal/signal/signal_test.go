package signal

import (
	"reflect"
	"testing"

	"github.com/MikeSquared-Agency/causeway/internal/corpus"
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

func TestParseOutcome(t *testing.T) {
	tests := []struct {
		in   string
		want Outcome
	}{
		{"escalated", OutcomeEscalated},
		{"Escalated", OutcomeEscalated},
		{" resolved ", OutcomeResolved},
		{"unresolved", OutcomeUnresolved},
		{"something else", OutcomeUnresolved},
		{"", OutcomeUnresolved},
	}
	for _, tt := range tests {
		if got := ParseOutcome(tt.in); got != tt.want {
			t.Errorf("ParseOutcome(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestOutcomeString(t *testing.T) {
	for _, o := range []Outcome{OutcomeEscalated, OutcomeResolved, OutcomeUnresolved} {
		if ParseOutcome(o.String()) != o {
			t.Errorf("outcome %v does not round-trip through its label", o)
		}
	}
}

func TestBuildTimeline_OrdersByTurnIndex(t *testing.T) {
	transcript := corpus.Transcript{ID: "conv_1", Outcome: "escalated"}
	// Turns intentionally out of order.
	turns := []corpus.Turn{
		{TranscriptID: "conv_1", TurnIndex: 5, Speaker: "agent", Text: "delay"},
		{TranscriptID: "conv_1", TurnIndex: 2, Speaker: "customer", Text: "frustrated"},
	}
	c := stubClassifier{signals: map[string][]string{
		"frustrated": {"customer_frustration"},
		"delay":      {"agent_delay"},
	}}

	tl := BuildTimeline(transcript, turns, c)
	if tl.TranscriptID != "conv_1" || tl.Outcome != OutcomeEscalated {
		t.Errorf("unexpected timeline header: %+v", tl)
	}
	if got := tl.Types(); !reflect.DeepEqual(got, []string{"customer_frustration", "agent_delay"}) {
		t.Errorf("expected sorted types, got %v", got)
	}
	if tl.Signals[0].Confidence != 0.9 {
		t.Errorf("expected classifier confidence carried, got %f", tl.Signals[0].Confidence)
	}
	if tl.Signals[0].SourceText != "frustrated" {
		t.Errorf("expected source text carried, got %q", tl.Signals[0].SourceText)
	}
}

func TestBuildTimeline_StableOnTies(t *testing.T) {
	transcript := corpus.Transcript{ID: "conv_1", Outcome: "resolved"}
	turns := []corpus.Turn{
		{TranscriptID: "conv_1", TurnIndex: 3, Speaker: "customer", Text: "both"},
	}
	// Two signals on the same turn keep their detection order.
	c := stubClassifier{signals: map[string][]string{
		"both": {"customer_frustration", "agent_delay"},
	}}

	tl := BuildTimeline(transcript, turns, c)
	if got := tl.Types(); !reflect.DeepEqual(got, []string{"customer_frustration", "agent_delay"}) {
		t.Errorf("tie order not preserved: %v", got)
	}
}

func TestBuildTimeline_NoSignalsIsValid(t *testing.T) {
	transcript := corpus.Transcript{ID: "conv_1", Outcome: "resolved"}
	turns := []corpus.Turn{
		{TranscriptID: "conv_1", TurnIndex: 1, Speaker: "customer", Text: "hello"},
	}
	c := stubClassifier{signals: map[string][]string{}}

	tl := BuildTimeline(transcript, turns, c)
	if len(tl.Signals) != 0 {
		t.Errorf("expected empty signal list, got %v", tl.Signals)
	}
	if tl.Outcome != OutcomeResolved {
		t.Errorf("expected known outcome on empty timeline, got %v", tl.Outcome)
	}
}
