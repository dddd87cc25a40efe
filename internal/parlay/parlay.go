// Package parlay implements multi-leg speculative bundles with exponential
// payout scaling in the number of legs.
package parlay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/metrics"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/pricing"
	"github.com/aurapoints/aura-engine/internal/store"
)

var (
	// ErrTooFewLegs is returned when a parlay has fewer than two legs.
	ErrTooFewLegs = errors.New("parlay: at least 2 legs required")

	// ErrInvalidStake is returned when the total stake is not positive.
	ErrInvalidStake = errors.New("parlay: total stake must be positive")

	// ErrInvalidThreshold is returned when a leg's threshold is not positive.
	ErrInvalidThreshold = errors.New("parlay: leg threshold must be positive")

	// ErrInvalidDirection is returned when a leg's direction is not up/down.
	ErrInvalidDirection = errors.New("parlay: leg direction must be up or down")

	// ErrMissingUser is returned when no user ID is supplied.
	ErrMissingUser = errors.New("parlay: user_id is required")
)

var two = decimal.NewFromInt(2)

// PotentialPayout computes the payout for a winning parlay:
//
//	payout = stake * 2^legs
//
// Exponential scaling by leg count: more legs, more risk, higher payout.
func PotentialPayout(stake decimal.Decimal, legs int) decimal.Decimal {
	return pricing.RoundMoney(stake.Mul(two.Pow(decimal.NewFromInt(int64(legs)))))
}

// Engine validates and creates parlays. Resolution is handled by an external
// settlement process; this engine never populates the resolution fields.
type Engine struct {
	store store.Store
}

// NewEngine creates a parlay engine.
func NewEngine(st store.Store) *Engine {
	return &Engine{store: st}
}

// Create validates the leg structure and persists a new parlay. All
// validation happens before any write; a rejected parlay leaves no state
// behind. Status starts active when a settlement reference is supplied at
// creation, pending otherwise.
func (e *Engine) Create(ctx context.Context, userID, name, description string, legs []model.ParlayLeg, totalStake decimal.Decimal, settlementRef string) (*model.Parlay, error) {
	if userID == "" {
		return nil, ErrMissingUser
	}
	if len(legs) < 2 {
		return nil, ErrTooFewLegs
	}
	if totalStake.LessThanOrEqual(decimal.Zero) {
		return nil, ErrInvalidStake
	}

	for i, leg := range legs {
		if leg.Direction != model.DirectionUp && leg.Direction != model.DirectionDown {
			return nil, fmt.Errorf("leg %d: %w", i, ErrInvalidDirection)
		}
		if leg.Threshold.LessThanOrEqual(decimal.Zero) {
			return nil, fmt.Errorf("leg %d: %w", i, ErrInvalidThreshold)
		}
		// Legs must reference personalities that exist.
		if _, err := e.store.GetPersonality(ctx, leg.PersonalityID); err != nil {
			return nil, fmt.Errorf("leg %d personality %s: %w", i, leg.PersonalityID, err)
		}
	}

	status := model.ParlayStatusPending
	if settlementRef != "" {
		status = model.ParlayStatusActive
	}

	p := &model.Parlay{
		ID:              uuid.New().String(),
		UserID:          userID,
		Name:            name,
		Description:     description,
		Legs:            legs,
		TotalStake:      pricing.RoundMoney(totalStake),
		PotentialPayout: PotentialPayout(totalStake, len(legs)),
		Status:          status,
		SettlementRef:   settlementRef,
		CreatedAt:       time.Now().UTC(),
	}

	if err := e.store.InsertParlay(ctx, p); err != nil {
		return nil, fmt.Errorf("insert parlay: %w", err)
	}

	metrics.ParlaysTotal.WithLabelValues(status).Inc()

	slog.Info("parlay created",
		"parlay_id", p.ID,
		"user", userID,
		"legs", len(legs),
		"stake", p.TotalStake.String(),
		"payout", p.PotentialPayout.String(),
		"status", status,
	)

	return p, nil
}

// Get returns a parlay by ID.
func (e *Engine) Get(ctx context.Context, id string) (*model.Parlay, error) {
	return e.store.GetParlay(ctx, id)
}

// ListByUser returns a user's parlays, most recent first.
func (e *Engine) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.Parlay, error) {
	return e.store.GetParlaysByUser(ctx, userID, limit, offset)
}
