package explain

import (
	"reflect"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/corpus"
	"github.com/MikeSquared-Agency/causeway/internal/signal"
)

type stubClassifier struct {
	signals map[string][]string
}

func (c stubClassifier) Signals(turn corpus.Turn) []string {
	return c.signals[turn.Text]
}

func (c stubClassifier) Confidence(turn corpus.Turn, signalType string) float64 {
	return 0.8
}

func TestCollectQuotes_FirstMatchWins(t *testing.T) {
	turns := []corpus.Turn{
		{TurnIndex: 1, Speaker: "customer", Text: "early frustration"},
		{TurnIndex: 4, Speaker: "customer", Text: "late frustration"},
		{TurnIndex: 6, Speaker: "agent", Text: "the delay"},
	}
	c := stubClassifier{signals: map[string][]string{
		"early frustration": {"customer_frustration"},
		"late frustration":  {"customer_frustration"},
		"the delay":         {"agent_delay"},
	}}

	quotes := CollectQuotes(turns, []string{"customer_frustration", "agent_delay"}, c)
	if len(quotes) != 2 {
		t.Fatalf("expected 2 quotes, got %d", len(quotes))
	}
	// First match wins even if a later turn contributed to extraction.
	if quotes[0].TurnIndex != 1 || quotes[0].Text != "early frustration" {
		t.Errorf("expected first matching turn, got %+v", quotes[0])
	}
	if quotes[1].SignalType != "agent_delay" || quotes[1].TurnIndex != 6 {
		t.Errorf("unexpected delay quote: %+v", quotes[1])
	}
}

func TestCollectQuotes_OnePerType(t *testing.T) {
	turns := []corpus.Turn{
		{TurnIndex: 1, Speaker: "customer", Text: "hit"},
		{TurnIndex: 2, Speaker: "customer", Text: "hit"},
	}
	c := stubClassifier{signals: map[string][]string{"hit": {"customer_frustration"}}}

	quotes := CollectQuotes(turns, []string{"customer_frustration"}, c)
	if len(quotes) != 1 {
		t.Errorf("expected exactly one quote per type, got %d", len(quotes))
	}
}

func TestCollectQuotes_MissingTypeSkipped(t *testing.T) {
	turns := []corpus.Turn{{TurnIndex: 1, Speaker: "agent", Text: "nothing"}}
	c := stubClassifier{signals: map[string][]string{}}

	quotes := CollectQuotes(turns, []string{"agent_denial"}, c)
	if len(quotes) != 0 {
		t.Errorf("expected no quotes, got %v", quotes)
	}
}

func TestPrimaryAndSecondaryCauses(t *testing.T) {
	e := &Explanation{Chain: chain.Chain{Signals: []string{"a", "b", "c"}}}
	if e.PrimaryCause() != "a" {
		t.Errorf("expected primary a, got %q", e.PrimaryCause())
	}
	if got := e.SecondaryCauses(); !reflect.DeepEqual(got, []string{"b", "c"}) {
		t.Errorf("expected secondary [b c], got %v", got)
	}

	single := &Explanation{Chain: chain.Chain{Signals: []string{"a"}}}
	if got := single.SecondaryCauses(); got != nil {
		t.Errorf("expected no secondary causes, got %v", got)
	}

	empty := &Explanation{}
	if empty.PrimaryCause() != "unknown" {
		t.Errorf("expected unknown primary for empty chain, got %q", empty.PrimaryCause())
	}
}

func TestConfidencePhrase_Buckets(t *testing.T) {
	tests := []struct {
		confidence float64
		contains   string
	}{
		{0.9, "common pattern"},
		{0.7, "common pattern"},
		{0.69, "about half"},
		{0.5, "about half"},
		{0.49, "some similar cases"},
		{0.3, "some similar cases"},
		{0.29, "less common"},
		{0.1, "less common"},
	}
	for _, tt := range tests {
		got := ConfidencePhrase(tt.confidence)
		if !strings.Contains(got, tt.contains) {
			t.Errorf("confidence %.2f: expected phrase containing %q, got %q", tt.confidence, tt.contains, got)
		}
	}
}

func TestSummary(t *testing.T) {
	e := &Explanation{
		Outcome:    signal.OutcomeEscalated,
		Chain:      chain.Chain{Signals: []string{"customer_frustration", "agent_delay"}},
		Confidence: 0.78,
	}
	want := "Customer Frustration + Agent Delay → Escalated (78% confidence)"
	if got := e.Summary(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestText_IncludesEvidenceAndAlternatives(t *testing.T) {
	e := &Explanation{
		TranscriptID: "conv_1",
		Outcome:      signal.OutcomeEscalated,
		Chain:        chain.Chain{Signals: []string{"customer_frustration", "agent_delay"}},
		Confidence:   0.78,
		Quotes: []Quote{
			{TurnIndex: 2, Speaker: "customer", Text: "I'm really frustrated", SignalType: "customer_frustration"},
		},
		Alternatives: []chain.Chain{{Signals: []string{"agent_delay"}}},
	}
	text := e.Text()
	for _, want := range []string{
		"Primary cause: Customer Frustration",
		"Contributing factors: Agent Delay",
		"customer_frustration → agent_delay",
		"common pattern",
		"turn 2 (customer)",
		"Alternative explanations",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("expected text to contain %q, got:\n%s", want, text)
		}
	}
}
