// Package query turns natural-language questions into structured intents
// via a small pattern table. The Parser interface is a swappable strategy:
// a better parser can replace the pattern table without touching ranking
// or statistics.
package query

import "strings"

// Intent classifies what the asker wants.
type Intent int

const (
	IntentUnknown Intent = iota
	IntentExplain
	IntentSimilar
	IntentChainStats
)

func (i Intent) String() string {
	switch i {
	case IntentExplain:
		return "explain"
	case IntentSimilar:
		return "similar"
	case IntentChainStats:
		return "chain_stats"
	default:
		return "unknown"
	}
}

// Parsed is the structured form of a question.
type Parsed struct {
	Intent       Intent
	TranscriptID string
}

// Parser maps a free-form question onto an intent and extracted ids.
type Parser interface {
	Parse(question string) Parsed
}

// pattern maps trigger phrases to an intent. First match wins.
type pattern struct {
	triggers []string
	intent   Intent
}

var patternTable = []pattern{
	{triggers: []string{"similar"}, intent: IntentSimilar},
	{triggers: []string{"why", "explain", "what caused"}, intent: IntentExplain},
	{triggers: []string{"stats", "pattern", "chain"}, intent: IntentChainStats},
}

// PatternParser is the default table-driven parser. It resolves transcript
// ids against a known-id predicate so arbitrary words are not mistaken
// for ids.
type PatternParser struct {
	knownID func(string) bool
}

// NewPatternParser creates a parser. knownID may be nil, in which case any
// plausible token is accepted as a transcript id.
func NewPatternParser(knownID func(string) bool) *PatternParser {
	return &PatternParser{knownID: knownID}
}

// Parse matches the question against the pattern table and extracts a
// transcript id when one is present.
func (p *PatternParser) Parse(question string) Parsed {
	lower := strings.ToLower(question)
	parsed := Parsed{TranscriptID: p.extractTranscriptID(question)}
	for _, pat := range patternTable {
		for _, trigger := range pat.triggers {
			if strings.Contains(lower, trigger) {
				parsed.Intent = pat.intent
				return parsed
			}
		}
	}
	return parsed
}

// extractTranscriptID scans the question's tokens for a known transcript
// id. Without a known-id predicate it falls back to the first token that
// looks like an id (length > 4 and carrying at least one digit).
func (p *PatternParser) extractTranscriptID(question string) string {
	for _, word := range strings.Fields(question) {
		word = strings.Trim(word, ".,?!\"'")
		if word == "" {
			continue
		}
		if p.knownID != nil {
			if p.knownID(word) {
				return word
			}
			continue
		}
		if len(word) > 4 && strings.ContainsAny(word, "0123456789") {
			return word
		}
	}
	return ""
}
