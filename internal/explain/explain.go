// Package explain assembles ranked chains, evidence quotes and alternative
// hypotheses into a structured explanation for one transcript.
package explain

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/corpus"
	"github.com/MikeSquared-Agency/causeway/internal/signal"
)

// Quote is a transcript turn substantiating one signal type in the chain.
type Quote struct {
	TurnIndex  int     `json:"turn"`
	Speaker    string  `json:"speaker"`
	Text       string  `json:"text"`
	SignalType string  `json:"signal"`
	Confidence float64 `json:"confidence"`
}

// Explanation answers "why did this transcript end this way?".
type Explanation struct {
	TranscriptID string
	Outcome      signal.Outcome
	Chain        chain.Chain
	Confidence   float64
	Quotes       []Quote
	Alternatives []chain.Chain
	Fallback     bool
}

// PrimaryCause is the first signal type in the chain.
func (e *Explanation) PrimaryCause() string {
	if len(e.Chain.Signals) == 0 {
		return "unknown"
	}
	return e.Chain.Signals[0]
}

// SecondaryCauses are the remaining signal types.
func (e *Explanation) SecondaryCauses() []string {
	if len(e.Chain.Signals) < 2 {
		return nil
	}
	return e.Chain.Signals[1:]
}

// Assemble builds the explanation for a timeline from its ranking. For each
// signal type in the primary chain it attaches the first turn whose detected
// signals include that type — first match wins even when a later turn was
// the one that contributed to extraction.
func Assemble(tl signal.Timeline, ranking chain.Ranking, turns []corpus.Turn, c signal.Classifier) *Explanation {
	return &Explanation{
		TranscriptID: tl.TranscriptID,
		Outcome:      tl.Outcome,
		Chain:        ranking.Primary,
		Confidence:   ranking.Score,
		Quotes:       CollectQuotes(turns, ranking.Primary.Signals, c),
		Alternatives: ranking.Alternatives,
		Fallback:     ranking.Fallback,
	}
}

// CollectQuotes scans turns in order and picks, per signal type, the first
// turn where the classifier detects that type. At most one quote per type.
func CollectQuotes(turns []corpus.Turn, signalTypes []string, c signal.Classifier) []Quote {
	var quotes []Quote
	for _, sigType := range signalTypes {
		for _, turn := range turns {
			if !detects(c, turn, sigType) {
				continue
			}
			quotes = append(quotes, Quote{
				TurnIndex:  turn.TurnIndex,
				Speaker:    turn.Speaker,
				Text:       turn.Text,
				SignalType: sigType,
				Confidence: c.Confidence(turn, sigType),
			})
			break
		}
	}
	return quotes
}

func detects(c signal.Classifier, turn corpus.Turn, sigType string) bool {
	for _, s := range c.Signals(turn) {
		if s == sigType {
			return true
		}
	}
	return false
}

// ConfidencePhrase buckets a confidence for prose only — ranking never
// uses these buckets.
func ConfidencePhrase(confidence float64) string {
	switch {
	case confidence >= 0.7:
		return "This is a common pattern in the corpus."
	case confidence >= 0.5:
		return "This pattern appears in about half of similar cases."
	case confidence >= 0.3:
		return "This pattern appears in some similar cases."
	default:
		return "This pattern is less common, but fits this case."
	}
}

// Summary renders a one-line form, e.g.
// "Customer Frustration + Agent Delay → Escalated (78% confidence)".
func (e *Explanation) Summary() string {
	names := make([]string, len(e.Chain.Signals))
	for i, s := range e.Chain.Signals {
		names[i] = titleCase(s)
	}
	return fmt.Sprintf("%s → %s (%.0f%% confidence)",
		strings.Join(names, " + "), titleCase(e.Outcome.String()), e.Confidence*100)
}

// Text renders the full prose explanation with evidence and alternatives.
func (e *Explanation) Text() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Primary cause: %s.", titleCase(e.PrimaryCause()))
	if secondary := e.SecondaryCauses(); len(secondary) > 0 {
		names := make([]string, len(secondary))
		for i, s := range secondary {
			names[i] = titleCase(s)
		}
		fmt.Fprintf(&b, " Contributing factors: %s.", strings.Join(names, ", "))
	}
	fmt.Fprintf(&b, "\nPattern: %s.", e.Chain.Label())
	fmt.Fprintf(&b, "\n%s", ConfidencePhrase(e.Confidence))

	if len(e.Quotes) > 0 {
		b.WriteString("\nSupporting evidence:")
		for _, q := range e.Quotes {
			fmt.Fprintf(&b, "\n  turn %d (%s): %q", q.TurnIndex, q.Speaker, snippet(q.Text, 80))
		}
	}
	if len(e.Alternatives) > 0 {
		b.WriteString("\nAlternative explanations:")
		for _, alt := range e.Alternatives {
			fmt.Fprintf(&b, "\n  - %s", alt.Label())
		}
	}
	return b.String()
}

func snippet(text string, max int) string {
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}

func titleCase(s string) string {
	words := strings.Split(strings.ReplaceAll(s, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
