// Package store defines the persistence interface for the aura engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"
	"time"

	"github.com/aurapoints/aura-engine/internal/model"
)

// ErrNotFound is returned when a requested entity does not exist.
// Implementations wrap it with entity context.
var ErrNotFound = errors.New("store: not found")

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer.
//
// ApplyScoreUpdate and ApplyTrade are atomic units: the mutated aura score
// and its dependent row (history snapshot or trade record) commit together
// or not at all. Callers are responsible for serializing mutations of the
// same personality's score row.
type Store interface {
	// --- Personalities ---

	// CreatePersonality persists a new personality.
	CreatePersonality(ctx context.Context, p *model.Personality) error

	// GetPersonality retrieves a personality by ID.
	GetPersonality(ctx context.Context, id string) (*model.Personality, error)

	// GetPersonalityBySlug retrieves a personality by its unique slug.
	GetPersonalityBySlug(ctx context.Context, slug string) (*model.Personality, error)

	// ListActivePersonalities returns all active personalities.
	ListActivePersonalities(ctx context.Context) ([]model.Personality, error)

	// --- Aura scores ---

	// GetAuraScore retrieves the aura score for a personality.
	GetAuraScore(ctx context.Context, personalityID string) (*model.AuraScore, error)

	// CreateAuraScore inserts the score row if none exists yet and returns
	// the row that won. Idempotent under concurrent first-time callers: at
	// most one row ever exists per personality.
	CreateAuraScore(ctx context.Context, score *model.AuraScore) (*model.AuraScore, error)

	// ApplyScoreUpdate writes the mutated score and appends the history
	// snapshot as a single atomic unit.
	ApplyScoreUpdate(ctx context.Context, score *model.AuraScore, snap *model.ScoreSnapshot) error

	// ApplyTrade writes the mutated score aggregates and inserts the trade
	// record as a single atomic unit.
	ApplyTrade(ctx context.Context, score *model.AuraScore, trade *model.Trade) error

	// ListScoreSnapshots returns history rows for a personality newer than
	// since, most recent first. limit <= 0 means no limit.
	ListScoreSnapshots(ctx context.Context, personalityID string, since time.Time, limit int) ([]model.ScoreSnapshot, error)

	// ListByMomentum returns leaderboard entries for active personalities
	// with a momentum score, ordered descending when desc is true.
	ListByMomentum(ctx context.Context, desc bool, limit int) ([]model.MomentumEntry, error)

	// --- Trades ---

	// GetTradesByUser returns a user's trades, most recent first.
	GetTradesByUser(ctx context.Context, userID string, limit, offset int) ([]model.Trade, error)

	// GetTradesByPersonality returns a personality's trades, most recent first.
	GetTradesByPersonality(ctx context.Context, personalityID string, limit, offset int) ([]model.Trade, error)

	// --- Parlays ---

	// InsertParlay appends an immutable parlay record.
	InsertParlay(ctx context.Context, p *model.Parlay) error

	// GetParlay retrieves a parlay by ID.
	GetParlay(ctx context.Context, id string) (*model.Parlay, error)

	// GetParlaysByUser returns a user's parlays, most recent first.
	GetParlaysByUser(ctx context.Context, userID string, limit, offset int) ([]model.Parlay, error)

	// --- Raw signals ---

	// InsertRawSignal appends an ingested social signal.
	InsertRawSignal(ctx context.Context, s *model.RawSignal) error

	// UpdateSignalFeatures writes the extracted feature columns of a signal.
	UpdateSignalFeatures(ctx context.Context, s *model.RawSignal) error

	// GetRecentSignals returns the most recent signals for a personality and
	// source, newest first.
	GetRecentSignals(ctx context.Context, personalityID, source string, limit int) ([]model.RawSignal, error)
}
