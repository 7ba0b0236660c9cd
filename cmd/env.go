package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/pipeline"
	"github.com/sitescout/sitescout/internal/provider"
	"github.com/sitescout/sitescout/internal/ranker"
	"github.com/sitescout/sitescout/internal/scorer"
	"github.com/sitescout/sitescout/internal/store"
	"github.com/sitescout/sitescout/pkg/anthropic"
)

// initStore opens the configured store backend.
func initStore(ctx context.Context, cfg *config.Config) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite", "":
		return store.NewSQLite(cfg.Store.DatabaseURL)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, &store.PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		})
	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// initPipeline assembles the evaluation pipeline. scoring overrides the
// configured weights when non-nil (profile flag); st may be nil for
// unpersisted runs.
func initPipeline(cfg *config.Config, scoring *config.ScoringConfig, st store.Store) (*pipeline.Pipeline, error) {
	sc := cfg.Scoring
	if scoring != nil {
		sc = *scoring
	}

	engine, err := scorer.New(sc)
	if err != nil {
		return nil, err
	}

	var rk *ranker.Ranker
	if cfg.Anthropic.Key != "" {
		rk = ranker.New(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic, cfg.Ranker)
	}

	return pipeline.New(provider.New(cfg.Provider), engine, rk, st, cfg.Pipeline), nil
}
