// Package ledger owns the per-personality aura score record and its
// append-only history. Every score mutation goes through here: the score is
// overwritten, the price recomputed from it, and a history snapshot appended
// in the same atomic unit.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/locks"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/pricing"
	"github.com/aurapoints/aura-engine/internal/store"
)

// Ledger manages aura score records. Mutations of the same personality are
// serialized through the shared per-key lock; the store guarantees that the
// score row and its dependent history row commit together.
type Ledger struct {
	store store.Store
	locks *locks.PerKey
}

// New creates a score ledger. The PerKey lock set must be the same instance
// handed to the trade engine.
func New(st store.Store, lk *locks.PerKey) *Ledger {
	return &Ledger{store: st, locks: lk}
}

// GetOrCreate returns the personality's aura score, creating it seeded at
// the base score on first access. At most one row ever exists per
// personality, even under concurrent first-time callers: the store's
// uniqueness constraint makes the first writer win and everyone else read
// the winner back.
func (l *Ledger) GetOrCreate(ctx context.Context, personalityID string) (*model.AuraScore, error) {
	sc, err := l.store.GetAuraScore(ctx, personalityID)
	if err == nil {
		return sc, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("get aura score: %w", err)
	}

	seed := &model.AuraScore{
		PersonalityID: personalityID,
		CurrentScore:  pricing.BaseScore,
		PricePerShare: pricing.Quote(pricing.BaseScore),
		TotalShares:   decimal.Zero,
		Volume24h:     decimal.Zero,
		UpdatedAt:     time.Now().UTC(),
	}

	sc, err = l.store.CreateAuraScore(ctx, seed)
	if err != nil {
		return nil, fmt.Errorf("get or create aura score: %w", err)
	}
	return sc, nil
}

// Update overwrites the personality's current score and momentum, recomputes
// the price per share, and appends one history snapshot capturing the new
// score/price/momentum and the current traded volume. Score and snapshot
// commit as a single atomic unit; on failure neither is applied.
//
// The score's sign is not validated: negative scores are accepted and feed
// the quote function's base-price branch, matching the trading semantics the
// rest of the system is built on.
func (l *Ledger) Update(ctx context.Context, personalityID string, newScore decimal.Decimal, momentum *decimal.Decimal) (*model.AuraScore, error) {
	l.locks.Lock(personalityID)
	defer l.locks.Unlock(personalityID)

	sc, err := l.GetOrCreate(ctx, personalityID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	sc.CurrentScore = pricing.RoundScore(newScore)
	sc.MomentumScore = momentum
	sc.PricePerShare = pricing.Quote(sc.CurrentScore)
	sc.UpdatedAt = now

	snap := &model.ScoreSnapshot{
		ID:            uuid.New().String(),
		PersonalityID: personalityID,
		Score:         sc.CurrentScore,
		MomentumScore: momentum,
		PricePerShare: sc.PricePerShare,
		Volume24h:     sc.Volume24h,
		Timestamp:     now,
	}

	if err := l.store.ApplyScoreUpdate(ctx, sc, snap); err != nil {
		return nil, fmt.Errorf("apply score update: %w", err)
	}
	return sc, nil
}

// History returns the personality's score snapshots newer than since, most
// recent first.
func (l *Ledger) History(ctx context.Context, personalityID string, since time.Time, limit int) ([]model.ScoreSnapshot, error) {
	return l.store.ListScoreSnapshots(ctx, personalityID, since, limit)
}
