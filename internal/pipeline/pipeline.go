// Package pipeline orchestrates one evaluation pass: attributes, scoring,
// optional LLM refinement, persistence. Each parcel flows through exactly
// once; a parcel failing validation is skipped while the rest proceed.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/geo"
	"github.com/sitescout/sitescout/internal/model"
	"github.com/sitescout/sitescout/internal/provider"
	"github.com/sitescout/sitescout/internal/ranker"
	"github.com/sitescout/sitescout/internal/scorer"
	"github.com/sitescout/sitescout/internal/store"
)

// Pipeline wires the provider, scoring engine, optional ranker, and store.
type Pipeline struct {
	provider      provider.Provider
	engine        *scorer.Engine
	ranker        *ranker.Ranker // nil disables the LLM pass
	store         store.Store    // nil disables persistence
	maxConcurrent int
}

// New creates a Pipeline with all dependencies.
func New(prov provider.Provider, engine *scorer.Engine, rk *ranker.Ranker, st store.Store, cfg config.PipelineConfig) *Pipeline {
	maxConcurrent := cfg.MaxConcurrentParcels
	if maxConcurrent <= 0 {
		maxConcurrent = 8
	}
	return &Pipeline{
		provider:      prov,
		engine:        engine,
		ranker:        rk,
		store:         st,
		maxConcurrent: maxConcurrent,
	}
}

// Evaluate scores a batch of parcels and returns the ranked evaluation.
// ingestSkipped carries parcels already dropped during ingestion so the
// evaluation reports them alongside scoring-time skips.
func (p *Pipeline) Evaluate(ctx context.Context, source string, parcels []model.Parcel, ingestSkipped []model.SkippedParcel) (*model.Evaluation, error) {
	start := time.Now()
	log := zap.L().With(zap.String("source", source))
	log.Info("pipeline: starting evaluation", zap.Int("parcels", len(parcels)))

	eval := &model.Evaluation{
		ID:        uuid.New().String(),
		Source:    source,
		Skipped:   append([]model.SkippedParcel(nil), ingestSkipped...),
		BBox:      geo.EmptyBBox(),
		CreatedAt: time.Now().UTC(),
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.maxConcurrent)

	for i := range parcels {
		parcel := parcels[i]
		g.Go(func() error {
			attrs, err := p.provider.Attributes(gctx, &parcel)
			if err == nil {
				var result *model.ScoreResult
				result, err = p.engine.Score(&parcel, attrs)
				if err == nil {
					mu.Lock()
					eval.Results = append(eval.Results, *result)
					eval.BBox.Extend(parcel.BBox)
					mu.Unlock()
					return nil
				}
			}

			if model.IsValidation(err) {
				log.Warn("pipeline: parcel skipped",
					zap.String("parcel", parcel.Name),
					zap.Error(err),
				)
				mu.Lock()
				eval.Skipped = append(eval.Skipped, model.SkippedParcel{
					Name:   parcel.Name,
					Reason: err.Error(),
				})
				mu.Unlock()
				return nil
			}
			return eris.Wrapf(err, "pipeline: evaluate parcel %s", parcel.Name)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	scorer.SortResults(eval.Results)
	eval.ResultCount = len(eval.Results)

	if p.ranker != nil && len(eval.Results) > 0 {
		eval.Results = p.ranker.Refine(ctx, eval.Results)
	}

	if p.store != nil {
		if err := p.store.CreateEvaluation(ctx, eval); err != nil {
			return nil, eris.Wrap(err, "pipeline: persist evaluation")
		}
	}

	log.Info("pipeline: evaluation complete",
		zap.String("evaluation_id", eval.ID),
		zap.Int("scored", len(eval.Results)),
		zap.Int("skipped", len(eval.Skipped)),
		zap.Duration("elapsed", time.Since(start)),
	)

	return eval, nil
}
