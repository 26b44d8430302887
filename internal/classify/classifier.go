// Package classify provides the default keyword-based signal classifier.
// It is one implementation of signal.Classifier; the analysis core never
// depends on this concrete type.
package classify

import (
	"strings"

	"github.com/MikeSquared-Agency/causeway/internal/corpus"
)

// Signal types emitted by the keyword classifier.
const (
	CustomerFrustration = "customer_frustration"
	AgentDelay          = "agent_delay"
	AgentDenial         = "agent_denial"
)

// rule describes how one signal type is detected.
type rule struct {
	speaker      string // required speaker, lowercase
	keywords     []string
	mustContain  []string // every entry must appear in the text
	minWordCount int
}

var defaultRules = map[string]rule{
	CustomerFrustration: {
		speaker: "customer",
		keywords: []string{
			"frustrated", "frustrating", "annoyed", "ridiculous", "unacceptable",
			"angry", "upset", "terrible", "worst", "fed up", "sick of",
		},
	},
	AgentDelay: {
		speaker: "agent",
		keywords: []string{
			"please hold", "one moment", "bear with me", "let me check",
			"checking on that", "give me a minute", "still looking",
		},
	},
	AgentDenial: {
		speaker: "agent",
		keywords: []string{
			"unable to", "cannot", "can't do that", "not possible",
			"against policy", "not authorized", "have to decline",
		},
		mustContain:  []string{"sorry"},
		minWordCount: 6,
	},
}

// Classifier detects signals by speaker-gated keyword matching.
type Classifier struct {
	rules map[string]rule
}

// New returns a classifier with the default rule set.
func New() *Classifier {
	return &Classifier{rules: defaultRules}
}

// Types lists the signal types this classifier can emit.
func (c *Classifier) Types() []string {
	return []string{CustomerFrustration, AgentDelay, AgentDenial}
}

// Signals returns the signal types detected in the turn, in the fixed
// order of Types so repeated runs are deterministic.
func (c *Classifier) Signals(turn corpus.Turn) []string {
	text := strings.ToLower(turn.Text)
	speaker := strings.ToLower(turn.Speaker)

	var detected []string
	for _, sigType := range c.Types() {
		r := c.rules[sigType]
		if r.speaker != "" && speaker != r.speaker {
			continue
		}
		if !containsAny(text, r.keywords) {
			continue
		}
		if !containsAll(text, r.mustContain) {
			continue
		}
		if r.minWordCount > 0 && len(strings.Fields(text)) < r.minWordCount {
			continue
		}
		detected = append(detected, sigType)
	}
	return detected
}

// Confidence scores a (turn, signal type) pair by the fraction of the
// rule's keywords present in the text, clamped to [0,1].
func (c *Classifier) Confidence(turn corpus.Turn, signalType string) float64 {
	r, ok := c.rules[signalType]
	if !ok || len(r.keywords) == 0 {
		return 0.0
	}
	text := strings.ToLower(turn.Text)
	matches := 0
	for _, kw := range r.keywords {
		if strings.Contains(text, kw) {
			matches++
		}
	}
	conf := float64(matches) / float64(len(r.keywords))
	if conf > 1.0 {
		conf = 1.0
	}
	return conf
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func containsAll(text string, keywords []string) bool {
	for _, kw := range keywords {
		if !strings.Contains(text, kw) {
			return false
		}
	}
	return true
}
