package signals

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/store"
)

// Pipeline runs the ingest-extract-aggregate chain for one personality:
// fetch a fresh signal per source, persist it, compute its features against
// the previous observation, and fold all sources into one feature vector.
type Pipeline struct {
	store    store.Store
	fetchers []Fetcher
}

// NewPipeline creates a signal pipeline over the given fetchers.
func NewPipeline(st store.Store, fetchers ...Fetcher) *Pipeline {
	return &Pipeline{store: st, fetchers: fetchers}
}

// Run ingests one signal per source for the personality and returns the
// aggregated feature vector. A personality with no usable sources gets the
// neutral vector rather than an error.
func (pl *Pipeline) Run(ctx context.Context, p *model.Personality) (Features, error) {
	var collected []Features

	for _, f := range pl.fetchers {
		sig, err := f.Fetch(ctx, p)
		if err != nil {
			return Features{}, fmt.Errorf("fetch %s signal: %w", f.Source(), err)
		}

		// The previous observation must be read before the new one lands,
		// or the delta would compare the signal against itself.
		var prev *model.RawSignal
		if recent, err := pl.store.GetRecentSignals(ctx, p.ID, f.Source(), 1); err == nil && len(recent) > 0 {
			prev = &recent[0]
		}

		if err := pl.store.InsertRawSignal(ctx, sig); err != nil {
			return Features{}, fmt.Errorf("insert %s signal: %w", f.Source(), err)
		}

		feats, err := Extract(sig, prev)
		if err != nil {
			return Features{}, fmt.Errorf("extract %s features: %w", f.Source(), err)
		}

		sig.SentimentScore = &feats.SentimentScore
		sig.EngagementDelta = &feats.EngagementDelta
		sig.VolumeVelocity = &feats.VolumeVelocity
		if err := pl.store.UpdateSignalFeatures(ctx, sig); err != nil {
			return Features{}, fmt.Errorf("update %s features: %w", f.Source(), err)
		}

		collected = append(collected, feats)
	}

	agg := Aggregate(collected)
	slog.Debug("signals aggregated",
		"personality", p.ID,
		"sources", len(collected),
		"sentiment", agg.SentimentScore.String(),
		"engagement_delta", agg.EngagementDelta.String(),
		"volume_velocity", agg.VolumeVelocity.String(),
	)
	return agg, nil
}
