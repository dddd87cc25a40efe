// Package limits enforces trade guardrails on the global share aggregates.
//
// The engine tracks one outstanding-share counter per personality, not
// per-user balances, so the guards operate on what exists: the size of a
// single order and the personality's total float after the order.
package limits

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrOrderTooLarge is returned when one order exceeds the per-trade
	// share cap.
	ErrOrderTooLarge = errors.New("limits: order exceeds per-trade share cap")

	// ErrFloatCapExceeded is returned when a buy would push a personality's
	// outstanding shares beyond the float cap.
	ErrFloatCapExceeded = errors.New("limits: personality float cap exceeded")
)

// TradeLimiter bounds order size and per-personality float.
type TradeLimiter struct {
	// MaxSharesPerTrade is the largest single order accepted.
	MaxSharesPerTrade decimal.Decimal

	// MaxOutstandingShares is the largest total float allowed for any one
	// personality after a buy.
	MaxOutstandingShares decimal.Decimal
}

// NewTradeLimiter creates a limiter with the given per-trade and float caps.
func NewTradeLimiter(maxPerTrade, maxOutstanding decimal.Decimal) *TradeLimiter {
	return &TradeLimiter{
		MaxSharesPerTrade:    maxPerTrade,
		MaxOutstandingShares: maxOutstanding,
	}
}

// CheckBuy validates a buy of shares against a personality currently holding
// outstanding shares. Returns nil if the order is within limits.
func (l *TradeLimiter) CheckBuy(shares, outstanding decimal.Decimal) error {
	if shares.GreaterThan(l.MaxSharesPerTrade) {
		return ErrOrderTooLarge
	}
	if outstanding.Add(shares).GreaterThan(l.MaxOutstandingShares) {
		return ErrFloatCapExceeded
	}
	return nil
}

// CheckSell validates a sell order's size. Sells shrink the float, so only
// the per-trade cap applies.
func (l *TradeLimiter) CheckSell(shares decimal.Decimal) error {
	if shares.GreaterThan(l.MaxSharesPerTrade) {
		return ErrOrderTooLarge
	}
	return nil
}
