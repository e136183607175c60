package main

import (
	"context"
	"fmt"

	"github.com/oscillatelabsllc/recall/internal/config"
	"github.com/oscillatelabsllc/recall/internal/db"
	"github.com/oscillatelabsllc/recall/internal/embedding"
	"github.com/oscillatelabsllc/recall/internal/llm"
	"github.com/oscillatelabsllc/recall/internal/logging"
	"github.com/oscillatelabsllc/recall/internal/pipeline"
	"github.com/oscillatelabsllc/recall/internal/search"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"
)

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	logger   zerolog.Logger
	store    db.Store
	cache    *embedding.Cached
	registry *prometheus.Registry
	pipeline *pipeline.Pipeline
}

func newApp(ctx context.Context) (*app, error) {
	var envFiles []string
	if envFile != "" {
		envFiles = append(envFiles, envFile)
	}

	cfg, err := config.Load(envFiles...)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	store, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s memory store: %w", cfg.MemoryBackend, err)
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		store:    store,
		registry: prometheus.NewRegistry(),
	}
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	var embedder pipeline.Embedder = embedding.NewClient(cfg.OllamaURL, cfg.EmbeddingModel, cfg.EmbeddingDimensions)
	if cfg.EmbeddingCacheSize > 0 {
		cached, err := embedding.NewCached(embedder, cfg.EmbeddingCacheSize)
		if err != nil {
			store.Close()
			return nil, err
		}
		a.cache = cached
		embedder = cached
	}

	client := llm.NewClient(cfg.MistralAPIKey, cfg.LLMBaseURL, cfg.LLMModel, cfg.LLMTimeout, logger)

	a.pipeline = pipeline.New(pipeline.Dependencies{
		Embedder:  embedder,
		Store:     store,
		Planner:   llm.NewPlanner(client),
		Responder: llm.NewResponder(client),
		Searcher:  search.NewSerpAPI(cfg.SerpAPIURL, cfg.SerpAPIKey, cfg.SerpAPIEngine),
		Metrics:   pipeline.NewMetrics(a.registry),
		Logger:    logger,
	})

	return a, nil
}

// Close releases the store and the embedding cache
func (a *app) Close() {
	if a.cache != nil {
		a.cache.Close()
	}
	if err := a.store.Close(); err != nil {
		a.logger.Error().Err(err).Msg("failed to close memory store")
	}
}
