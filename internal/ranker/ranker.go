// Package ranker refines score justifications through the Anthropic API.
// Scores themselves stay deterministic: the engine's numbers are never
// overwritten, and any API or parse failure falls back to the engine's
// templated justifications.
package ranker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sitescout/sitescout/internal/config"
	"github.com/sitescout/sitescout/internal/model"
	"github.com/sitescout/sitescout/pkg/anthropic"
)

const systemPrompt = "You are a data-center site selection expert. " +
	"Respond ONLY with a valid JSON array. No text outside the array."

// Ranker asks Claude for one-sentence justifications over a ranked batch.
type Ranker struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	maxSites  int
	limiter   *rate.Limiter
}

// New creates a Ranker. A nil client yields a nil Ranker, which Refine
// treats as a no-op.
func New(client anthropic.Client, anthCfg config.AnthropicConfig, cfg config.RankerConfig) *Ranker {
	if client == nil {
		return nil
	}
	rpm := cfg.RequestsPerMinute
	if rpm <= 0 {
		rpm = 20
	}
	maxSites := cfg.MaxSites
	if maxSites <= 0 {
		maxSites = 5
	}
	return &Ranker{
		client:    client,
		model:     anthCfg.Model,
		maxTokens: anthCfg.MaxTokens,
		maxSites:  maxSites,
		limiter:   rate.NewLimiter(rate.Limit(rpm/60), 1),
	}
}

// siteSummary is the compact per-site payload sent to the model.
type siteSummary struct {
	ParcelID   string  `json:"parcel_id"`
	Name       string  `json:"name"`
	Score      int     `json:"score"`
	ElevationM float64 `json:"elevation_m"`
	FloodRisk  float64 `json:"flood_risk"`
	PowerKM    float64 `json:"power_km"`
}

// rankedItem is what we expect back per site.
type rankedItem struct {
	ParcelID      string `json:"parcel_id"`
	Justification string `json:"justification"`
}

// Refine replaces justifications on the top results with model-written
// sentences. Results are returned unchanged on any failure.
func (r *Ranker) Refine(ctx context.Context, results []model.ScoreResult) []model.ScoreResult {
	if r == nil || len(results) == 0 {
		return results
	}

	n := len(results)
	if n > r.maxSites {
		n = r.maxSites
	}
	summaries := make([]siteSummary, n)
	for i, res := range results[:n] {
		summaries[i] = siteSummary{
			ParcelID:   res.ParcelID,
			Name:       res.Name,
			Score:      res.Score,
			ElevationM: res.Attributes.ElevationM,
			FloodRisk:  res.Attributes.FloodRisk,
			PowerKM:    res.Attributes.PowerKM,
		}
	}

	payload, err := json.Marshal(summaries)
	if err != nil {
		zap.L().Warn("ranker: marshal summaries", zap.Error(err))
		return results
	}

	if err := r.limiter.Wait(ctx); err != nil {
		zap.L().Warn("ranker: rate limiter", zap.Error(err))
		return results
	}

	temp := 0.3
	resp, err := r.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       r.model,
		MaxTokens:   r.maxTokens,
		System:      systemPrompt,
		Temperature: &temp,
		Messages: []anthropic.Message{{
			Role: "user",
			Content: fmt.Sprintf(
				"These data-center sites are already scored (power, flood, latency, cost):\n%s\n\n"+
					"Return ONLY:\n[{\"parcel_id\": \"...\", \"justification\": \"1 sentence\"}]",
				payload),
		}},
	})
	if err != nil {
		zap.L().Warn("ranker: api call failed, keeping engine justifications", zap.Error(err))
		return results
	}
	resp.Usage.LogCost(r.model, "rank")

	items, err := parseRanked(resp.Text())
	if err != nil {
		zap.L().Warn("ranker: unusable model reply, keeping engine justifications", zap.Error(err))
		return results
	}

	byID := make(map[string]string, len(items))
	for _, it := range items {
		if it.ParcelID != "" && strings.TrimSpace(it.Justification) != "" {
			byID[it.ParcelID] = strings.TrimSpace(it.Justification)
		}
	}

	out := make([]model.ScoreResult, len(results))
	copy(out, results)
	refined := 0
	for i := range out {
		if j, ok := byID[out[i].ParcelID]; ok {
			out[i].Justification = j
			refined++
		}
	}

	zap.L().Info("ranker: justifications refined",
		zap.Int("sites_sent", n),
		zap.Int("refined", refined),
	)
	return out
}

// parseRanked extracts and decodes the first JSON array in the reply,
// tolerating prose before or after it.
func parseRanked(text string) ([]rankedItem, error) {
	raw := extractJSONArray([]byte(text))
	if raw == nil {
		return nil, fmt.Errorf("no JSON array in reply")
	}
	var items []rankedItem
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("decode reply: %w", err)
	}
	if len(items) == 0 {
		return nil, fmt.Errorf("empty reply array")
	}
	return items, nil
}

// extractJSONArray returns the span from the first '[' to the last ']',
// or nil when no such span exists.
func extractJSONArray(text []byte) []byte {
	start := bytes.IndexByte(text, '[')
	end := bytes.LastIndexByte(text, ']')
	if start == -1 || end <= start {
		return nil
	}
	return text[start : end+1]
}
