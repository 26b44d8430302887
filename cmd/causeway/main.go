package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/causeway/internal/api"
	"github.com/MikeSquared-Agency/causeway/internal/classify"
	"github.com/MikeSquared-Agency/causeway/internal/config"
	"github.com/MikeSquared-Agency/causeway/internal/corpus"
	"github.com/MikeSquared-Agency/causeway/internal/engine"
	"github.com/MikeSquared-Agency/causeway/internal/hermes"
	"github.com/MikeSquared-Agency/causeway/internal/processor"
	"github.com/MikeSquared-Agency/causeway/internal/query"
	"github.com/MikeSquared-Agency/causeway/internal/session"
	"github.com/MikeSquared-Agency/causeway/internal/store"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("causeway starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Corpus source — Postgres or a directory of JSONL dumps.
	var (
		source processor.CorpusSource
		db     *store.Store
	)
	switch {
	case cfg.DatabaseURL != "":
		var err error
		db, err = store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer db.Close()
		source = db
		slog.Info("database connected")
	case cfg.CorpusDir != "":
		source = corpus.DirSource{Dir: cfg.CorpusDir}
		slog.Info("loading corpus from directory", "dir", cfg.CorpusDir)
	default:
		slog.Error("either DATABASE_URL or CORPUS_DIR is required")
		os.Exit(1)
	}

	idx, err := source.Load(ctx)
	if err != nil {
		slog.Error("failed to load corpus", "error", err)
		os.Exit(1)
	}
	slog.Info("corpus loaded", "transcripts", idx.Len())

	// Engine — one-time aggregation pass over the corpus.
	eng := engine.New(idx, classify.New(), engine.Options{
		MinEvidence:    cfg.MinEvidence,
		MaxChainLength: cfg.MaxChainLength,
		TopK:           cfg.TopK,
	}, slog.Default())
	eng.Build()
	slog.Info("chain statistics ready", "chains", eng.Stats().Len())

	// NATS/Hermes (optional — causeway answers HTTP queries without it,
	// just no event-driven rebuilds).
	var hermesClient *hermes.Client
	if cfg.NatsEnabled() {
		hermesClient, err = hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer hermesClient.Close()
		slog.Info("NATS connected", "url", cfg.NatsURL)
	} else {
		slog.Warn("NATS disabled — running without rebuild events")
	}

	// Rebuild orchestrator.
	var bus processor.Publisher
	var snapshots processor.SnapshotWriter
	if hermesClient != nil {
		bus = hermesClient
	}
	if db != nil {
		snapshots = db
	}
	proc := processor.New(eng, source, bus, snapshots, slog.Default())

	if hermesClient != nil {
		if err := hermesClient.Subscribe(hermes.SubjectTranscriptStored, proc.HandleTranscriptStored); err != nil {
			slog.Error("failed to subscribe to transcript events", "error", err)
			os.Exit(1)
		}
	}

	// Sessions and query parsing.
	sessions := session.NewManager(cfg.SessionHistory)
	parser := query.NewPatternParser(eng.KnownTranscript)

	// HTTP API.
	var snapshotReader api.SnapshotReader
	if db != nil {
		snapshotReader = db
	}
	srv := api.NewServer(cfg.Port, cfg.APIToken, eng, sessions, parser, snapshotReader)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	// Announce registration.
	if hermesClient != nil {
		if err := hermesClient.Publish(hermes.SubjectRegistered, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"port":      cfg.Port,
			"chains":    eng.Stats().Len(),
		}); err != nil {
			slog.Warn("failed to publish registration", "error", err)
		}
	}

	slog.Info("causeway ready", "port", cfg.Port, "transcripts", idx.Len(), "chains", eng.Stats().Len())

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh
	slog.Info("shutting down")
	cancel()
	slog.Info("causeway stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
