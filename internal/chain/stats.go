package chain

import (
	"log/slog"
	"math"
	"sort"
	"sync/atomic"

	"github.com/MikeSquared-Agency/causeway/internal/signal"
)

// Defaults for the statistics store.
const (
	DefaultMinEvidence    = 5
	DefaultMaxChainLength = 3

	// maxExamples caps the example transcript ids stored per chain.
	// First-seen order, never replaced once full; a deliberate memory
	// bound that keeps exports reproducible.
	maxExamples = 10
)

// State is the lifecycle of the statistics store.
type State int32

const (
	StateEmpty State = iota
	StateBuilding
	StateReady
)

func (s State) String() string {
	switch s {
	case StateBuilding:
		return "building"
	case StateReady:
		return "ready"
	default:
		return "empty"
	}
}

// Stat holds the corpus-wide statistics for one chain key.
type Stat struct {
	Signals        []string
	Occurrences    int
	EscalatedCount int
	ResolvedCount  int
	Confidence     float64 // escalated / occurrences
	CILower        float64 // Wilson 95% lower bound
	CIUpper        float64 // Wilson 95% upper bound
	Examples       []string
}

type table map[Key]*Stat

// Stats aggregates chains across the corpus and serves lookups.
//
// Single-writer, many-reader: Build runs synchronously and swaps the table
// in atomically, so readers never lock and never observe a partial table.
// In-flight readers of an old table keep a valid snapshot across rebuilds.
type Stats struct {
	minEvidence int
	maxLen      int
	logger      *slog.Logger

	state atomic.Int32
	table atomic.Pointer[table]
}

// NewStats creates an empty statistics store. Non-positive parameters fall
// back to the defaults.
func NewStats(minEvidence, maxChainLength int, logger *slog.Logger) *Stats {
	if minEvidence <= 0 {
		minEvidence = DefaultMinEvidence
	}
	if maxChainLength <= 0 {
		maxChainLength = DefaultMaxChainLength
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Stats{minEvidence: minEvidence, maxLen: maxChainLength, logger: logger}
}

// MaxChainLength returns the configured window cap.
func (s *Stats) MaxChainLength() int {
	return s.maxLen
}

// State reports the store lifecycle state.
func (s *Stats) State() State {
	return State(s.state.Load())
}

// Len returns the number of retained chain keys, 0 before the first build.
func (s *Stats) Len() int {
	if t := s.table.Load(); t != nil {
		return len(*t)
	}
	return 0
}

// tracker accumulates counts during a build pass.
type tracker struct {
	occurrences int
	escalated   int
	resolved    int
	examples    []string
}

// Build aggregates all candidate chains across the given timelines in a
// single synchronous pass, prunes keys below the evidence floor, computes
// Wilson intervals and atomically publishes the new table. A rebuild
// re-enters the building state but keeps serving the previous table until
// the swap.
func (s *Stats) Build(timelines []signal.Timeline) {
	s.state.Store(int32(StateBuilding))

	tracked := make(map[Key]*tracker)
	for _, tl := range timelines {
		for _, c := range Extract(tl, s.maxLen) {
			key := c.Key()
			tr := tracked[key]
			if tr == nil {
				tr = &tracker{}
				tracked[key] = tr
			}
			tr.occurrences++
			if tl.Outcome == signal.OutcomeEscalated {
				tr.escalated++
			} else {
				tr.resolved++
			}
			if len(tr.examples) < maxExamples {
				tr.examples = append(tr.examples, tl.TranscriptID)
			}
		}
	}

	next := make(table)
	for key, tr := range tracked {
		if tr.occurrences < s.minEvidence {
			continue // one-off sequences carry no statistical weight
		}
		confidence := float64(tr.escalated) / float64(tr.occurrences)
		lower, upper := WilsonInterval(tr.escalated, tr.occurrences)
		next[key] = &Stat{
			Signals:        key.Types(),
			Occurrences:    tr.occurrences,
			EscalatedCount: tr.escalated,
			ResolvedCount:  tr.resolved,
			Confidence:     confidence,
			CILower:        lower,
			CIUpper:        upper,
			Examples:       tr.examples,
		}
	}

	s.table.Store(&next)
	s.state.Store(int32(StateReady))
	s.logger.Info("chain statistics built",
		"timelines", len(timelines),
		"candidate_keys", len(tracked),
		"retained_keys", len(next),
		"min_evidence", s.minEvidence,
	)
}

// Lookup returns the statistics for a chain key, or false while the store
// is empty or the key was never retained.
func (s *Stats) Lookup(key Key) (*Stat, bool) {
	t := s.table.Load()
	if t == nil {
		return nil, false
	}
	stat, ok := (*t)[key]
	return stat, ok
}

// All returns the retained statistics sorted by confidence descending,
// then occurrences descending, then label for a stable listing.
func (s *Stats) All() []*Stat {
	t := s.table.Load()
	if t == nil {
		return nil
	}
	out := make([]*Stat, 0, len(*t))
	for _, stat := range *t {
		out = append(out, stat)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Confidence != out[j].Confidence {
			return out[i].Confidence > out[j].Confidence
		}
		if out[i].Occurrences != out[j].Occurrences {
			return out[i].Occurrences > out[j].Occurrences
		}
		return MakeKey(out[i].Signals) < MakeKey(out[j].Signals)
	})
	return out
}

// WilsonInterval computes the Wilson score 95% confidence interval for a
// binomial proportion. Unlike the normal approximation it stays well-behaved
// at proportions near 0 or 1 and at small totals. A zero total returns the
// vacuous interval (0, 1).
func WilsonInterval(successes, total int) (lower, upper float64) {
	if total == 0 {
		return 0.0, 1.0
	}

	const z = 1.96
	n := float64(total)
	p := float64(successes) / n

	denom := 1 + z*z/n
	center := (p + z*z/(2*n)) / denom
	margin := z * math.Sqrt(p*(1-p)/n+z*z/(4*n*n)) / denom

	lower = math.Max(0.0, center-margin)
	upper = math.Min(1.0, center+margin)
	return lower, upper
}
