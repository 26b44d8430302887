// Package chain implements causal chain extraction, corpus-wide chain
// statistics and per-transcript chain ranking.
package chain

import (
	"strings"

	"github.com/MikeSquared-Agency/causeway/internal/signal"
)

// keySep joins signal types into a map key. It never appears in signal
// type names, which are snake_case identifiers.
const keySep = "\x1f"

// Key identifies a chain by its ordered signal types.
type Key string

// MakeKey builds a Key from an ordered signal-type list.
func MakeKey(types []string) Key {
	return Key(strings.Join(types, keySep))
}

// Types splits the key back into its ordered signal types.
func (k Key) Types() []string {
	if k == "" {
		return nil
	}
	return strings.Split(string(k), keySep)
}

// Chain is an ordered contiguous sequence of signal types hypothesized to
// precede an outcome.
type Chain struct {
	Signals       []string
	Outcome       signal.Outcome
	Confidence    float64
	EvidenceCount int
}

// Key returns the lookup key for this chain.
func (c Chain) Key() Key {
	return MakeKey(c.Signals)
}

// Label renders the chain in its human-readable arrow form.
func (c Chain) Label() string {
	return strings.Join(c.Signals, " → ")
}

// Windows enumerates every contiguous window of types with length 1..maxLen,
// ordered by increasing start index, then increasing length. Only contiguous
// windows qualify: arbitrary subsets would lose temporal coherence and blow
// up the candidate count. An empty sequence yields no windows.
func Windows(types []string, maxLen int) [][]string {
	if maxLen < 1 {
		return nil
	}
	var windows [][]string
	for start := 0; start < len(types); start++ {
		end := start + maxLen
		if end > len(types) {
			end = len(types)
		}
		for stop := start + 1; stop <= end; stop++ {
			w := make([]string, stop-start)
			copy(w, types[start:stop])
			windows = append(windows, w)
		}
	}
	return windows
}

// Extract enumerates the candidate chains of a timeline, each carrying the
// timeline's outcome. Ordering follows Windows.
func Extract(tl signal.Timeline, maxLen int) []Chain {
	windows := Windows(tl.Types(), maxLen)
	chains := make([]Chain, len(windows))
	for i, w := range windows {
		chains[i] = Chain{
			Signals:       w,
			Outcome:       tl.Outcome,
			EvidenceCount: 1,
		}
	}
	return chains
}
