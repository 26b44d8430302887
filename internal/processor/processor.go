// Package processor orchestrates statistics rebuilds: it reacts to
// transcript-stored events on the swarm bus, reloads the corpus, rebuilds
// the chain table and announces the result.
package processor

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/corpus"
	"github.com/MikeSquared-Agency/causeway/internal/engine"
	"github.com/MikeSquared-Agency/causeway/internal/hermes"
)

// CorpusSource reloads the full corpus; a rebuild is always a full pass,
// there is no incremental update path.
type CorpusSource interface {
	Load(ctx context.Context) (*corpus.Index, error)
}

// Publisher emits swarm bus events.
type Publisher interface {
	Publish(subject string, data any) error
}

// SnapshotWriter persists an exported statistics table.
type SnapshotWriter interface {
	SaveChainSnapshot(ctx context.Context, export map[string]chain.ExportedStat) (uuid.UUID, error)
}

// Processor serializes rebuilds: at most one runs at a time, and events
// arriving mid-rebuild coalesce into a single follow-up pass.
type Processor struct {
	engine    *engine.Engine
	source    CorpusSource
	bus       Publisher      // nil when running without NATS
	snapshots SnapshotWriter // nil when running without Postgres
	logger    *slog.Logger

	mu         sync.Mutex
	rebuilding bool
	pending    bool
}

func New(eng *engine.Engine, source CorpusSource, bus Publisher, snapshots SnapshotWriter, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		engine:    eng,
		source:    source,
		bus:       bus,
		snapshots: snapshots,
		logger:    logger,
	}
}

// HandleTranscriptStored is the NATS handler for transcript-stored events.
func (p *Processor) HandleTranscriptStored(subject string, data []byte) {
	var evt hermes.TranscriptStoredEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Warn("failed to parse transcript event", "error", err)
		return
	}
	p.logger.Info("transcript stored, scheduling rebuild", "transcript_id", evt.TranscriptID)
	p.TriggerRebuild(context.Background())
}

// TriggerRebuild runs a full rebuild, coalescing triggers that arrive
// while one is in flight.
func (p *Processor) TriggerRebuild(ctx context.Context) {
	p.mu.Lock()
	if p.rebuilding {
		p.pending = true
		p.mu.Unlock()
		return
	}
	p.rebuilding = true
	p.mu.Unlock()

	for {
		p.rebuild(ctx)

		p.mu.Lock()
		if !p.pending {
			p.rebuilding = false
			p.mu.Unlock()
			return
		}
		p.pending = false
		p.mu.Unlock()
	}
}

func (p *Processor) rebuild(ctx context.Context) {
	start := time.Now()

	idx, err := p.source.Load(ctx)
	if err != nil {
		p.logger.Error("corpus reload failed", "error", err)
		return
	}
	p.engine.Rebuild(idx)

	chainCount := p.engine.Stats().Len()
	p.logger.Info("statistics rebuilt",
		"transcripts", idx.Len(),
		"chains", chainCount,
		"elapsed", time.Since(start),
	)

	if p.snapshots != nil {
		if _, err := p.snapshots.SaveChainSnapshot(ctx, p.engine.Stats().Export()); err != nil {
			p.logger.Warn("failed to persist chain snapshot", "error", err)
		}
	}
	if p.bus != nil {
		evt := hermes.StatsRebuiltEvent{
			ChainCount:      chainCount,
			TranscriptCount: idx.Len(),
			RebuiltAt:       time.Now().UTC(),
		}
		if err := p.bus.Publish(hermes.SubjectStatsRebuilt, evt); err != nil {
			p.logger.Warn("failed to publish rebuilt event", "error", err)
		}
	}
}
