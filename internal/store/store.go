// Package store is the Postgres corpus source: labeled transcripts and
// their turns, plus persisted chain-statistics snapshots.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MikeSquared-Agency/causeway/internal/chain"
	"github.com/MikeSquared-Agency/causeway/internal/corpus"
)

type Store struct {
	pool *pgxpool.Pool
}

func New(ctx context.Context, databaseURL string) (*Store, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to database: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

func (s *Store) Close() {
	s.pool.Close()
}

// LoadTranscripts fetches all labeled transcripts in insertion order.
func (s *Store) LoadTranscripts(ctx context.Context) ([]corpus.Transcript, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transcript_id, domain, intent, outcome
		FROM transcripts
		ORDER BY created_at, transcript_id`)
	if err != nil {
		return nil, fmt.Errorf("query transcripts: %w", err)
	}
	defer rows.Close()

	var transcripts []corpus.Transcript
	for rows.Next() {
		var t corpus.Transcript
		if err := rows.Scan(&t.ID, &t.Domain, &t.Intent, &t.Outcome); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		transcripts = append(transcripts, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transcripts: %w", err)
	}
	return transcripts, nil
}

// LoadTurns fetches every turn, ordered within each transcript.
func (s *Store) LoadTurns(ctx context.Context) ([]corpus.Turn, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT transcript_id, turn_index, speaker, text
		FROM transcript_turns
		ORDER BY transcript_id, turn_index`)
	if err != nil {
		return nil, fmt.Errorf("query turns: %w", err)
	}
	defer rows.Close()

	var turns []corpus.Turn
	for rows.Next() {
		var t corpus.Turn
		if err := rows.Scan(&t.TranscriptID, &t.TurnIndex, &t.Speaker, &t.Text); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate turns: %w", err)
	}
	return turns, nil
}

// Load reads transcripts and turns into a fresh index.
func (s *Store) Load(ctx context.Context) (*corpus.Index, error) {
	transcripts, err := s.LoadTranscripts(ctx)
	if err != nil {
		return nil, err
	}
	turns, err := s.LoadTurns(ctx)
	if err != nil {
		return nil, err
	}
	return corpus.NewIndex(transcripts, turns), nil
}

// SaveChainSnapshot persists an exported statistics table as JSONB so a
// build can be inspected after the fact.
func (s *Store) SaveChainSnapshot(ctx context.Context, export map[string]chain.ExportedStat) (uuid.UUID, error) {
	payload, err := json.Marshal(export)
	if err != nil {
		return uuid.Nil, fmt.Errorf("marshal snapshot: %w", err)
	}

	id := uuid.New()
	_, err = s.pool.Exec(ctx, `
		INSERT INTO chain_snapshots (id, created_at, chain_count, stats)
		VALUES ($1, $2, $3, $4)`,
		id, time.Now().UTC(), len(export), payload,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("insert chain snapshot: %w", err)
	}
	return id, nil
}

// LatestChainSnapshot fetches the most recent persisted table, if any.
func (s *Store) LatestChainSnapshot(ctx context.Context) (map[string]chain.ExportedStat, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT stats FROM chain_snapshots
		ORDER BY created_at DESC LIMIT 1`)

	var payload []byte
	if err := row.Scan(&payload); err != nil {
		return nil, fmt.Errorf("scan chain snapshot: %w", err)
	}
	var export map[string]chain.ExportedStat
	if err := json.Unmarshal(payload, &export); err != nil {
		return nil, fmt.Errorf("parse chain snapshot: %w", err)
	}
	return export, nil
}
