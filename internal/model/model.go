// Package model defines the core domain types shared across the aura engine.
// All monetary and score values use shopspring/decimal — never float64 for money.
package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Trade types.
const (
	TradeTypeBuy  = "buy"
	TradeTypeSell = "sell"
)

// Trade statuses. A trade is confirmed at creation when a settlement
// reference is supplied; otherwise it stays pending until an external
// settlement worker finalizes it.
const (
	TradeStatusPending   = "pending"
	TradeStatusConfirmed = "confirmed"
	TradeStatusFailed    = "failed"
)

// Parlay statuses.
const (
	ParlayStatusPending   = "pending"
	ParlayStatusActive    = "active"
	ParlayStatusWon       = "won"
	ParlayStatusLost      = "lost"
	ParlayStatusCancelled = "cancelled"
)

// Parlay leg directions.
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Signal sources.
const (
	SourceTwitter = "twitter"
	SourceYouTube = "youtube"
)

// Personality is a tracked real-world figure whose aura shares can be traded.
// Identity fields are immutable after creation.
type Personality struct {
	ID               string    `json:"id" db:"id"`
	Name             string    `json:"name" db:"name"`
	Slug             string    `json:"slug" db:"slug"`
	Description      string    `json:"description,omitempty" db:"description"`
	TwitterHandle    string    `json:"twitter_handle,omitempty" db:"twitter_handle"`
	YouTubeChannelID string    `json:"youtube_channel_id,omitempty" db:"youtube_channel_id"`
	ImageURL         string    `json:"image_url,omitempty" db:"image_url"`
	IsActive         bool      `json:"is_active" db:"is_active"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time `json:"updated_at" db:"updated_at"`
}

// AuraScore is the single mutable aggregate per personality. Exactly one row
// exists per personality, created lazily on first access. PricePerShare is
// always derived from CurrentScore via pricing.Quote — never set independently.
//
// Volume24h is a monotonically accumulated notional; despite the name it is
// never decayed or windowed.
type AuraScore struct {
	PersonalityID string           `json:"personality_id" db:"personality_id"`
	CurrentScore  decimal.Decimal  `json:"current_score" db:"current_score"`
	MomentumScore *decimal.Decimal `json:"momentum_score,omitempty" db:"momentum_score"`
	PricePerShare decimal.Decimal  `json:"price_per_share" db:"price_per_share"`
	TotalShares   decimal.Decimal  `json:"total_shares" db:"total_shares"`
	Volume24h     decimal.Decimal  `json:"volume_24h" db:"volume_24h"`
	UpdatedAt     time.Time        `json:"updated_at" db:"updated_at"`
}

// ScoreSnapshot is an immutable history record appended on every scoring-path
// update of an AuraScore. Once created, these are never modified or deleted.
// Ordering key: (personality_id, timestamp).
type ScoreSnapshot struct {
	ID            string           `json:"id" db:"id"`
	PersonalityID string           `json:"personality_id" db:"personality_id"`
	Score         decimal.Decimal  `json:"score" db:"score"`
	MomentumScore *decimal.Decimal `json:"momentum_score,omitempty" db:"momentum_score"`
	PricePerShare decimal.Decimal  `json:"price_per_share" db:"price_per_share"`
	Volume24h     decimal.Decimal  `json:"volume_24h" db:"volume_24h"`
	Timestamp     time.Time        `json:"timestamp" db:"timestamp"`
}

// Trade is an immutable record of one buy or sell execution.
// PricePerShare is the price visible at the instant of mutation.
type Trade struct {
	ID            string          `json:"id" db:"id"`
	UserID        string          `json:"user_id" db:"user_id"`
	PersonalityID string          `json:"personality_id" db:"personality_id"`
	TradeType     string          `json:"trade_type" db:"trade_type"`
	Shares        decimal.Decimal `json:"shares" db:"shares"`
	PricePerShare decimal.Decimal `json:"price_per_share" db:"price_per_share"`
	TotalCost     decimal.Decimal `json:"total_cost" db:"total_cost"`
	SettlementRef string          `json:"settlement_ref,omitempty" db:"settlement_ref"`
	Status        string          `json:"status" db:"status"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// ParlayLeg is one leg of a multi-leg parlay: a directional call on a
// personality's score crossing a threshold.
type ParlayLeg struct {
	PersonalityID string          `json:"personality_id"`
	Direction     string          `json:"direction"`
	Threshold     decimal.Decimal `json:"threshold"`
}

// Parlay is a bundled multi-leg speculative position. Payout scales
// exponentially with leg count: stake * 2^len(legs). Resolution fields exist
// but are populated by an external settlement process, never by this engine.
type Parlay struct {
	ID              string          `json:"id" db:"id"`
	UserID          string          `json:"user_id" db:"user_id"`
	Name            string          `json:"name" db:"name"`
	Description     string          `json:"description,omitempty" db:"description"`
	Legs            []ParlayLeg     `json:"legs" db:"legs"`
	TotalStake      decimal.Decimal `json:"total_stake" db:"total_stake"`
	PotentialPayout decimal.Decimal `json:"potential_payout" db:"potential_payout"`
	Status          string          `json:"status" db:"status"`
	SettlementRef   string          `json:"settlement_ref,omitempty" db:"settlement_ref"`
	ResolutionData  json.RawMessage `json:"resolution_data,omitempty" db:"resolution_data"`
	CreatedAt       time.Time       `json:"created_at" db:"created_at"`
	ResolvedAt      *time.Time      `json:"resolved_at,omitempty" db:"resolved_at"`
}

// RawSignal is one ingested social-media observation for a personality.
// Payload holds the raw fetcher response; the three feature columns are
// filled in by feature extraction.
type RawSignal struct {
	ID              string           `json:"id" db:"id"`
	PersonalityID   string           `json:"personality_id" db:"personality_id"`
	Source          string           `json:"source" db:"source"`
	Payload         json.RawMessage  `json:"payload" db:"payload"`
	SentimentScore  *decimal.Decimal `json:"sentiment_score,omitempty" db:"sentiment_score"`
	EngagementDelta *decimal.Decimal `json:"engagement_delta,omitempty" db:"engagement_delta"`
	VolumeVelocity  *decimal.Decimal `json:"volume_velocity,omitempty" db:"volume_velocity"`
	Timestamp       time.Time        `json:"timestamp" db:"timestamp"`
}

// MomentumEntry is a read-model row for the momentum leaderboards.
type MomentumEntry struct {
	PersonalityID   string          `json:"personality_id"`
	PersonalityName string          `json:"personality_name"`
	MomentumScore   decimal.Decimal `json:"momentum_score"`
	CurrentScore    decimal.Decimal `json:"current_score"`
	PricePerShare   decimal.Decimal `json:"price_per_share"`
	UpdatedAt       time.Time       `json:"updated_at"`
}
