package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jonathan/taskmatch/internal/assignment"
	"github.com/jonathan/taskmatch/internal/config"
	"github.com/jonathan/taskmatch/internal/duplicates"
	"github.com/jonathan/taskmatch/internal/embedding"
	"github.com/jonathan/taskmatch/internal/escalation"
	"github.com/jonathan/taskmatch/internal/llm"
	"github.com/jonathan/taskmatch/internal/pipeline"
	"github.com/jonathan/taskmatch/internal/profile"
	"github.com/jonathan/taskmatch/internal/ranking"
	"github.com/jonathan/taskmatch/internal/skills"
	"github.com/jonathan/taskmatch/internal/store"
)

// memoryCacheEntries bounds the in-process embedding cache.
const memoryCacheEntries = 10000

// openStore is replaced in tests to share one in-memory store across commands.
var openStore = store.Open

// app holds everything a command needs.
type app struct {
	store        store.Store
	oracle       llm.Client
	cache        *embedding.RedisCache
	issues       *pipeline.IssuePipeline
	commits      *pipeline.CommitPipeline
	requisitions *pipeline.Requisitions
}

// newApp connects the backends named by cfg and builds both pipelines. Without
// an API key the oracle is left out and every component uses its fallback.
func newApp(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*app, error) {
	s, err := openStore(ctx, store.Options{
		Backend:       cfg.Store.Backend,
		DatabaseURL:   cfg.Store.DatabaseURL,
		MongoURI:      cfg.Store.MongoURI,
		MongoDatabase: cfg.Store.MongoDatabase,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	a := &app{store: s}

	var cache embedding.Cache = embedding.NewMemoryCache(memoryCacheEntries)
	if cfg.Cache.RedisURL != "" {
		client, err := embedding.DialRedis(ctx, cfg.Cache.RedisURL)
		if err != nil {
			_ = a.Close(ctx)
			return nil, err
		}
		a.cache = embedding.NewRedisCache(client, "taskmatch:emb:", time.Duration(cfg.Cache.TTLSeconds)*time.Second)
		cache = a.cache
	}
	embedder := embedding.NewCached(embedding.NewHashEmbedder(), cache, logger)

	if cfg.Oracle.APIKey != "" {
		a.oracle, err = llm.NewClient(ctx, oracleConfig(cfg.Oracle), cfg.Oracle.APIKey)
		if err != nil {
			_ = a.Close(ctx)
			return nil, fmt.Errorf("failed to create oracle client: %w", err)
		}
	} else {
		logger.Warn("no oracle API key configured, using fallbacks only",
			zap.String("provider", cfg.Oracle.Provider))
	}

	extractor := skills.NewExtractor(a.oracle, logger)
	ranker := ranking.NewRanker(embedder, ranking.Options{
		Mode:          ranking.Mode(cfg.Ranking.Mode),
		TopN:          cfg.Ranking.TopN,
		MinSimilarity: cfg.Ranking.MinSimilarity,
	})

	a.issues = pipeline.NewIssuePipeline(pipeline.IssueDeps{
		Store:     s,
		Embedder:  embedder,
		Extractor: extractor,
		Detector: duplicates.NewDetector(a.oracle, logger, duplicates.Options{
			MinSimilarity: cfg.Duplicates.MinSimilarity,
			TopK:          cfg.Duplicates.TopK,
		}),
		Engine:     assignment.NewEngine(ranker, a.oracle, logger),
		Escalation: escalation.NewGenerator(a.oracle, logger),
		Logger:     logger,
	})
	a.commits = pipeline.NewCommitPipeline(pipeline.CommitDeps{
		Store:             s,
		Embedder:          embedder,
		Extractor:         extractor,
		Updater:           profile.NewUpdater(a.oracle, logger),
		Logger:            logger,
		MinTaskSimilarity: cfg.Commits.MinSimilarity,
	})
	a.requisitions = pipeline.NewRequisitions(s)
	return a, nil
}

// oracleConfig maps the file config onto a provider configuration.
func oracleConfig(c config.OracleConfig) *llm.Config {
	oc := llm.GeminiConfig(c.Model)
	if llm.Provider(c.Provider) == llm.ProviderOpenAI {
		oc = llm.OpenAIConfig(c.BaseURL, c.Model)
	}
	if c.TimeoutSeconds > 0 {
		oc.Timeout = time.Duration(c.TimeoutSeconds) * time.Second
	}
	return oc
}

// Close releases every backend the app opened.
func (a *app) Close(ctx context.Context) error {
	var errs []error
	if a.oracle != nil {
		errs = append(errs, a.oracle.Close())
	}
	if a.cache != nil {
		errs = append(errs, a.cache.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close(ctx))
	}
	return errors.Join(errs...)
}
