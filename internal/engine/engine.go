// Package engine wires the corpus index, signal classifier, chain
// statistics and explanation assembly into one query surface. An Engine is
// an explicit context object: independent instances carry no shared state.
package engine

import (
	"log/slog"
	"sync/atomic"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/corpus"
	"github.com/MikeSquared-Agency/causeway/internal/explain"
	"github.com/MikeSquared-Agency/causeway/internal/signal"
)

// DefaultTopK is the ranking depth: one primary plus up to two alternatives.
const DefaultTopK = 3

// Options tune chain extraction and ranking.
type Options struct {
	MinEvidence    int // chains seen fewer times are discarded (default 5)
	MaxChainLength int // longest contiguous window (default 3)
	TopK           int // ranking depth (default 3)
}

// Engine answers point queries over a built statistics table.
type Engine struct {
	index      atomic.Pointer[corpus.Index]
	classifier signal.Classifier
	stats      *chain.Stats
	topK       int
	logger     *slog.Logger
}

// New creates an engine over the given corpus. Call Build before querying;
// queries against an unbuilt engine still answer, scoring every candidate
// at the floor.
func New(idx *corpus.Index, classifier signal.Classifier, opts Options, logger *slog.Logger) *Engine {
	if opts.TopK <= 0 {
		opts.TopK = DefaultTopK
	}
	if logger == nil {
		logger = slog.Default()
	}
	e := &Engine{
		classifier: classifier,
		stats:      chain.NewStats(opts.MinEvidence, opts.MaxChainLength, logger),
		topK:       opts.TopK,
		logger:     logger,
	}
	e.index.Store(idx)
	return e
}

// Build runs the one-time aggregation pass: a timeline per transcript, all
// candidate chains, corpus-wide counts. Synchronous; readers of a previous
// table stay valid throughout.
func (e *Engine) Build() {
	idx := e.index.Load()
	timelines := make([]signal.Timeline, 0, idx.Len())
	for _, id := range idx.IDs() {
		t, _ := idx.Transcript(id)
		timelines = append(timelines, signal.BuildTimeline(t, idx.Turns(id), e.classifier))
	}
	e.stats.Build(timelines)
}

// Rebuild swaps in a new corpus and rebuilds the statistics table.
func (e *Engine) Rebuild(idx *corpus.Index) {
	e.index.Store(idx)
	e.Build()
}

// Corpus returns the current corpus index.
func (e *Engine) Corpus() *corpus.Index {
	return e.index.Load()
}

// Stats exposes the statistics store for lookups and export.
func (e *Engine) Stats() *chain.Stats {
	return e.stats
}

// Timeline rebuilds the signal timeline for one transcript. Timelines are
// derived and short-lived; they are recomputed per query rather than cached.
func (e *Engine) Timeline(transcriptID string) (signal.Timeline, bool) {
	idx := e.index.Load()
	t, ok := idx.Transcript(transcriptID)
	if !ok {
		return signal.Timeline{}, false
	}
	return signal.BuildTimeline(t, idx.Turns(transcriptID), e.classifier), true
}

// Explain answers "why did this transcript end this way?". Unknown ids
// report not-found; a transcript with zero detected signals gets the
// synthetic fallback explanation rather than an error.
func (e *Engine) Explain(transcriptID string) (*explain.Explanation, bool) {
	tl, ok := e.Timeline(transcriptID)
	if !ok {
		return nil, false
	}
	ranking := chain.TopChains(tl, e.stats, e.topK-1)
	return explain.Assemble(tl, ranking, e.index.Load().Turns(transcriptID), e.classifier), true
}

// FindSimilar returns up to topK transcripts sharing the reference's
// primary chain, in the statistics table's first-seen example order. The
// reference id is always excluded from its own results. The explanation is
// recomputed from scratch per call, matching the build-path behavior.
func (e *Engine) FindSimilar(transcriptID string, topK int) ([]string, bool) {
	exp, ok := e.Explain(transcriptID)
	if !ok {
		return nil, false
	}
	stat, ok := e.stats.Lookup(exp.Chain.Key())
	if !ok {
		return nil, true // known transcript, no corroborated chain
	}
	var similar []string
	for _, id := range stat.Examples {
		if id == transcriptID {
			continue
		}
		similar = append(similar, id)
		if topK > 0 && len(similar) >= topK {
			break
		}
	}
	return similar, true
}

// ChainLookup returns corpus statistics for an explicit ordered signal-type
// list, or false if the chain was never retained.
func (e *Engine) ChainLookup(signalTypes []string) (*chain.Stat, bool) {
	return e.stats.Lookup(chain.MakeKey(signalTypes))
}

// KnownTranscript reports whether an id exists in the corpus.
func (e *Engine) KnownTranscript(id string) bool {
	_, ok := e.index.Load().Transcript(id)
	return ok
}
