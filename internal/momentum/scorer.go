// Package momentum turns social-signal features into momentum scores and
// applies them to the score ledger on a schedule.
package momentum

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/pricing"
	"github.com/aurapoints/aura-engine/internal/signals"
)

// Scorer predicts a momentum score in [-1, 1] from a feature vector.
// Implementations must clamp their output to that range.
type Scorer interface {
	Predict(ctx context.Context, feats signals.Features) (decimal.Decimal, error)
}

var (
	negOne = decimal.NewFromInt(-1)
	one    = decimal.NewFromInt(1)

	sentimentWeight  = decimal.RequireFromString("0.4")
	engagementWeight = decimal.RequireFromString("0.4")
	velocityWeight   = decimal.RequireFromString("0.2")

	// Posting volume is unbounded above; divide it down to the same order
	// of magnitude as the other two inputs before weighting.
	velocityNorm = decimal.RequireFromString("50")
)

// Clamp bounds a momentum score to [-1, 1].
func Clamp(m decimal.Decimal) decimal.Decimal {
	if m.LessThan(negOne) {
		return negOne
	}
	if m.GreaterThan(one) {
		return one
	}
	return m
}

// LinearScorer is the default deterministic scorer: a weighted sum of
// sentiment, engagement delta, and normalized posting velocity. It stands
// in for a trained model behind the same interface.
type LinearScorer struct{}

// NewLinearScorer creates the default weighted-linear scorer.
func NewLinearScorer() *LinearScorer {
	return &LinearScorer{}
}

// Predict computes the weighted sum and clamps it to [-1, 1].
func (s *LinearScorer) Predict(_ context.Context, feats signals.Features) (decimal.Decimal, error) {
	velocity := feats.VolumeVelocity.Div(velocityNorm)
	m := feats.SentimentScore.Mul(sentimentWeight).
		Add(feats.EngagementDelta.Mul(engagementWeight)).
		Add(velocity.Mul(velocityWeight))
	return pricing.RoundScore(Clamp(m)), nil
}
