package momentum

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/metrics"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/pricing"
	"github.com/aurapoints/aura-engine/internal/signals"
	"github.com/aurapoints/aura-engine/internal/store"
)

var (
	scoreFloor     = decimal.RequireFromString("1.0")
	momentumFactor = decimal.RequireFromString("0.1")
)

// NextScore applies a momentum score to the current aura score:
//
//	next = current * (1 + momentum * 0.1)
//
// floored at 1.0 so a personality can never decay to zero and lock its
// price at the floor forever.
func NextScore(current, momentum decimal.Decimal) decimal.Decimal {
	next := pricing.RoundScore(current.Mul(one.Add(momentum.Mul(momentumFactor))))
	if next.LessThan(scoreFloor) {
		return scoreFloor
	}
	return next
}

// Updater runs the scheduled scoring cycle: ingest signals, predict
// momentum, and write the resulting score for every active personality.
type Updater struct {
	store    store.Store
	ledger   *ledger.Ledger
	pipeline *signals.Pipeline
	scorer   Scorer
	interval time.Duration
	workers  int
}

// NewUpdater creates a momentum updater. interval is the cycle period;
// workers bounds how many personalities are scored concurrently.
func NewUpdater(st store.Store, lg *ledger.Ledger, pl *signals.Pipeline, sc Scorer, interval time.Duration, workers int) *Updater {
	if workers < 1 {
		workers = 1
	}
	return &Updater{
		store:    st,
		ledger:   lg,
		pipeline: pl,
		scorer:   sc,
		interval: interval,
		workers:  workers,
	}
}

// Run executes cycles on the configured interval until the context is
// cancelled. The first cycle runs immediately.
func (u *Updater) Run(ctx context.Context) {
	slog.Info("momentum updater started",
		"interval", u.interval.String(),
		"workers", u.workers,
	)

	u.RunCycle(ctx)

	ticker := time.NewTicker(u.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("momentum updater stopped")
			return
		case <-ticker.C:
			u.RunCycle(ctx)
		}
	}
}

// RunCycle scores every active personality once. A failure on one
// personality is logged and counted but never aborts the rest of the batch.
func (u *Updater) RunCycle(ctx context.Context) {
	start := time.Now()

	personalities, err := u.store.ListActivePersonalities(ctx)
	if err != nil {
		metrics.UpdateCycleFailures.Inc()
		slog.Error("update cycle: list personalities failed", "err", err)
		return
	}

	sem := make(chan struct{}, u.workers)
	var wg sync.WaitGroup
	var mu sync.Mutex
	updated, failed := 0, 0

	for i := range personalities {
		p := &personalities[i]
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()
			if err := u.updateOne(ctx, p); err != nil {
				metrics.UpdateCycleFailures.Inc()
				slog.Error("update cycle: personality failed",
					"personality", p.ID,
					"slug", p.Slug,
					"err", err,
				)
				mu.Lock()
				failed++
				mu.Unlock()
				return
			}
			mu.Lock()
			updated++
			mu.Unlock()
		}()
	}
	wg.Wait()

	metrics.UpdateCycleDuration.Observe(time.Since(start).Seconds())
	slog.Info("update cycle finished",
		"updated", updated,
		"failed", failed,
		"took", time.Since(start).String(),
	)
}

func (u *Updater) updateOne(ctx context.Context, p *model.Personality) error {
	feats, err := u.pipeline.Run(ctx, p)
	if err != nil {
		return err
	}

	m, err := u.scorer.Predict(ctx, feats)
	if err != nil {
		return err
	}
	m = Clamp(m)

	current, err := u.ledger.GetOrCreate(ctx, p.ID)
	if err != nil {
		return err
	}

	next := NextScore(current.CurrentScore, m)
	if _, err := u.ledger.Update(ctx, p.ID, next, &m); err != nil {
		return err
	}

	metrics.ScoreUpdatesTotal.Inc()
	return nil
}
