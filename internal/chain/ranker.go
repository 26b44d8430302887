package chain

import (
	"sort"

	"github.com/MikeSquared-Agency/causeway/internal/signal"
)

// FloorScore is assigned to candidate chains with no corpus statistics:
// an uncorroborated pattern still outranks nothing, but loses to any
// corroborated one.
const FloorScore = 0.1

// FallbackConfidence is used for the synthetic single-signal chain
// returned when a timeline has no candidates at all.
const FallbackConfidence = 0.5

// Ranked pairs a candidate chain with its match score.
type Ranked struct {
	Chain Chain
	Score float64
}

// Ranking is the outcome of ranking one timeline's candidate chains.
type Ranking struct {
	Primary      Chain
	Score        float64
	Alternatives []Chain
	Fallback     bool
}

// Rank scores every candidate chain of the timeline against the statistics
// store and returns them sorted by score descending. The sort is stable, so
// ties keep extraction order: earlier start index, then shorter window.
// Identical inputs always produce identical output order.
func Rank(tl signal.Timeline, stats *Stats) []Ranked {
	candidates := Extract(tl, stats.MaxChainLength())
	ranked := make([]Ranked, len(candidates))
	for i, c := range candidates {
		score := FloorScore
		if stat, ok := stats.Lookup(c.Key()); ok {
			score = stat.Confidence
			c.Confidence = stat.Confidence
			c.EvidenceCount = stat.Occurrences
		}
		ranked[i] = Ranked{Chain: c, Score: score}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// TopChains ranks a timeline and selects the primary chain plus up to
// maxAlternatives alternatives whose signal lists differ from the primary.
// A timeline with no signals yields a synthetic single-signal fallback at
// confidence 0.5, so every query gets an answer.
func TopChains(tl signal.Timeline, stats *Stats, maxAlternatives int) Ranking {
	ranked := Rank(tl, stats)
	if len(ranked) == 0 {
		return Ranking{
			Primary:  FallbackChain(tl),
			Score:    FallbackConfidence,
			Fallback: true,
		}
	}

	primary := ranked[0].Chain
	primary.Confidence = ranked[0].Score

	var alternatives []Chain
	primaryKey := primary.Key()
	for _, r := range ranked[1:] {
		if len(alternatives) >= maxAlternatives {
			break
		}
		if r.Chain.Key() == primaryKey {
			continue // same signal list as the primary
		}
		alt := r.Chain
		alt.Confidence = r.Score
		alternatives = append(alternatives, alt)
	}

	return Ranking{Primary: primary, Score: ranked[0].Score, Alternatives: alternatives}
}

// FallbackChain synthesizes a single-signal chain for a timeline that
// produced no candidates: the first signal type present anywhere in the
// transcript, or "unknown" if none exists.
func FallbackChain(tl signal.Timeline) Chain {
	sigType := "unknown"
	if len(tl.Signals) > 0 {
		sigType = tl.Signals[0].Type
	}
	return Chain{
		Signals:       []string{sigType},
		Outcome:       tl.Outcome,
		Confidence:    FallbackConfidence,
		EvidenceCount: 1,
	}
}
