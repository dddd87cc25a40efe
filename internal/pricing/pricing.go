// Package pricing implements the deterministic price-from-score function for
// aura shares.
//
// The model is a linear sensitivity curve anchored at a base score:
//
//	price = BasePrice * (1 + Sensitivity * (score/BaseScore - 1))
//
// with a hard floor so shares never become worthless. A personality at the
// base score trades at exactly the base price; scores above it scale the
// price up at half the rate of the score ratio, scores below scale it down.
//
// All values use shopspring/decimal — never float64 for money. Scores are
// rounded to 4 fractional digits, prices and share quantities to 8.
package pricing

import (
	"github.com/shopspring/decimal"
)

var (
	// BaseScore is the score every personality starts at.
	BaseScore = decimal.RequireFromString("100.0")

	// BasePrice is the price per share at the base score.
	BasePrice = decimal.RequireFromString("1.0")

	// Sensitivity scales how strongly price responds to score changes.
	Sensitivity = decimal.RequireFromString("0.5")

	// PriceFloor is the minimum price per share. Prevents degenerate
	// markets where shares become worthless.
	PriceFloor = decimal.RequireFromString("0.01")
)

// Decimal places for rounding.
const (
	// PriceScale is the number of fractional digits for prices and shares.
	PriceScale int32 = 8

	// ScoreScale is the number of fractional digits for scores.
	ScoreScale int32 = 4
)

var one = decimal.NewFromInt(1)

// Quote returns the price per share for the given aura score.
// Pure function: no side effects, no failure modes.
//
// Non-positive scores collapse to the base price rather than a negative
// price; the result is always >= PriceFloor.
func Quote(score decimal.Decimal) decimal.Decimal {
	if score.LessThanOrEqual(decimal.Zero) {
		return BasePrice.Round(PriceScale)
	}

	ratio := score.Div(BaseScore)
	price := BasePrice.Mul(one.Add(Sensitivity.Mul(ratio.Sub(one))))
	price = price.Round(PriceScale)

	if price.LessThan(PriceFloor) {
		return PriceFloor
	}
	return price
}

// RoundScore normalizes a score to the canonical score precision.
func RoundScore(score decimal.Decimal) decimal.Decimal {
	return score.Round(ScoreScale)
}

// RoundMoney normalizes a price or notional to the canonical money precision.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(PriceScale)
}
