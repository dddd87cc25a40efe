// Package trade provides the HTTP handlers and business logic for buying and
// selling aura shares.
//
// All monetary values use shopspring/decimal — never float64 for money.
//
// A trade executes at the price visible at the instant of mutation: there is
// no slippage model and no partial fills. The engine tracks one global
// outstanding-share counter per personality rather than per-user balances;
// sell validation runs against that global float.
package trade

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/httpjson"
	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/limits"
	"github.com/aurapoints/aura-engine/internal/locks"
	"github.com/aurapoints/aura-engine/internal/metrics"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/pricing"
	"github.com/aurapoints/aura-engine/internal/store"
)

var (
	// ErrInvalidShares is returned when the order quantity is not positive.
	ErrInvalidShares = errors.New("trade: shares must be positive")

	// ErrInsufficientShares is returned when a sell exceeds the
	// personality's outstanding shares.
	ErrInsufficientShares = errors.New("trade: insufficient shares available")

	// ErrMissingUser is returned when no user ID is supplied.
	ErrMissingUser = errors.New("trade: user_id is required")
)

// Engine executes buys and sells against a personality's aura score.
// Mutations of the same personality are serialized through the shared
// per-key lock, so two concurrent buys can never read the same share count
// and independently add to it.
type Engine struct {
	store   store.Store
	ledger  *ledger.Ledger
	locks   *locks.PerKey
	limiter *limits.TradeLimiter
	wsHub   *WSHub // optional WebSocket hub for real-time broadcasts
}

// NewEngine creates a trade engine. The PerKey lock set must be the same
// instance handed to the ledger. Pass nil for hub if WebSocket broadcasting
// is not needed.
func NewEngine(st store.Store, lg *ledger.Ledger, lk *locks.PerKey, limiter *limits.TradeLimiter, hub *WSHub) *Engine {
	return &Engine{
		store:   st,
		ledger:  lg,
		locks:   lk,
		limiter: limiter,
		wsHub:   hub,
	}
}

// Buy purchases shares of a personality at the current price. The share and
// volume aggregates and the trade record commit as one atomic unit.
func (e *Engine) Buy(ctx context.Context, userID, personalityID string, shares decimal.Decimal, settlementRef string) (*model.Trade, *model.AuraScore, error) {
	return e.execute(ctx, userID, personalityID, model.TradeTypeBuy, shares, settlementRef)
}

// Sell disposes shares of a personality at the current price. Fails with
// ErrInsufficientShares when the order exceeds the outstanding float, with
// no state touched.
func (e *Engine) Sell(ctx context.Context, userID, personalityID string, shares decimal.Decimal, settlementRef string) (*model.Trade, *model.AuraScore, error) {
	return e.execute(ctx, userID, personalityID, model.TradeTypeSell, shares, settlementRef)
}

func (e *Engine) execute(ctx context.Context, userID, personalityID, tradeType string, shares decimal.Decimal, settlementRef string) (*model.Trade, *model.AuraScore, error) {
	start := time.Now()

	// Validation first: no side effects on rejection.
	if userID == "" {
		return nil, nil, ErrMissingUser
	}
	if shares.LessThanOrEqual(decimal.Zero) {
		metrics.TradeRejections.WithLabelValues("invalid_shares").Inc()
		return nil, nil, ErrInvalidShares
	}
	shares = pricing.RoundMoney(shares)

	p, err := e.store.GetPersonality(ctx, personalityID)
	if err != nil {
		return nil, nil, fmt.Errorf("personality %s: %w", personalityID, err)
	}
	if !p.IsActive {
		metrics.TradeRejections.WithLabelValues("inactive").Inc()
		return nil, nil, fmt.Errorf("personality %s is inactive: %w", personalityID, store.ErrNotFound)
	}

	// Serialize against other trades and score updates for this personality.
	e.locks.Lock(personalityID)
	defer e.locks.Unlock(personalityID)

	sc, err := e.ledger.GetOrCreate(ctx, personalityID)
	if err != nil {
		return nil, nil, err
	}

	if tradeType == model.TradeTypeSell {
		if err := e.limiter.CheckSell(shares); err != nil {
			metrics.TradeRejections.WithLabelValues("limit").Inc()
			return nil, nil, err
		}
		if shares.GreaterThan(sc.TotalShares) {
			metrics.TradeRejections.WithLabelValues("insufficient").Inc()
			return nil, nil, ErrInsufficientShares
		}
	} else {
		if err := e.limiter.CheckBuy(shares, sc.TotalShares); err != nil {
			metrics.TradeRejections.WithLabelValues("limit").Inc()
			return nil, nil, err
		}
	}

	// Execution price is the price visible at the instant of mutation.
	totalCost := pricing.RoundMoney(shares.Mul(sc.PricePerShare))
	now := time.Now().UTC()

	if tradeType == model.TradeTypeBuy {
		sc.TotalShares = sc.TotalShares.Add(shares)
	} else {
		sc.TotalShares = sc.TotalShares.Sub(shares)
	}
	// Selling still counts as traded volume.
	sc.Volume24h = sc.Volume24h.Add(totalCost)
	sc.UpdatedAt = now

	status := model.TradeStatusPending
	if settlementRef != "" {
		status = model.TradeStatusConfirmed
	}

	t := &model.Trade{
		ID:            uuid.New().String(),
		UserID:        userID,
		PersonalityID: personalityID,
		TradeType:     tradeType,
		Shares:        shares,
		PricePerShare: sc.PricePerShare,
		TotalCost:     totalCost,
		SettlementRef: settlementRef,
		Status:        status,
		CreatedAt:     now,
	}

	if err := e.store.ApplyTrade(ctx, sc, t); err != nil {
		return nil, nil, fmt.Errorf("apply trade: %w", err)
	}

	metrics.TradesTotal.WithLabelValues(tradeType).Inc()
	metrics.TradeLatency.WithLabelValues(tradeType).Observe(time.Since(start).Seconds())

	slog.Info("trade executed",
		"trade_id", t.ID,
		"user", userID,
		"personality", personalityID,
		"type", tradeType,
		"shares", shares.String(),
		"cost", totalCost.String(),
		"price", t.PricePerShare.String(),
		"status", status,
	)

	if e.wsHub != nil {
		e.wsHub.Broadcast(WSMessage{
			Type:          "trade_executed",
			PersonalityID: personalityID,
			TradeType:     tradeType,
			Shares:        shares.String(),
			PricePerShare: sc.PricePerShare.String(),
			TotalShares:   sc.TotalShares.String(),
			Volume24h:     sc.Volume24h.String(),
		})
	}

	return t, sc, nil
}

// --- Request/Response types ---

// TradeRequest is the JSON body for POST /trades/buy and /trades/sell.
type TradeRequest struct {
	UserID        string          `json:"user_id"`
	PersonalityID string          `json:"personality_id"`
	TradeType     string          `json:"trade_type"`
	Shares        decimal.Decimal `json:"shares"`
	SettlementRef string          `json:"settlement_ref,omitempty"`
}

// TradeResponse is the JSON body returned from trade endpoints.
type TradeResponse struct {
	Trade *model.Trade     `json:"trade"`
	Score *model.AuraScore `json:"score"`
}

// --- HTTP handlers ---

// BuyShares handles POST /api/v1/trades/buy
func (e *Engine) BuyShares(w http.ResponseWriter, r *http.Request) {
	e.handleTrade(w, r, model.TradeTypeBuy)
}

// SellShares handles POST /api/v1/trades/sell
func (e *Engine) SellShares(w http.ResponseWriter, r *http.Request) {
	e.handleTrade(w, r, model.TradeTypeSell)
}

func (e *Engine) handleTrade(w http.ResponseWriter, r *http.Request, tradeType string) {
	var req TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	if req.TradeType != "" && req.TradeType != tradeType {
		httpjson.Error(w, "trade_type does not match endpoint", http.StatusBadRequest)
		return
	}

	var t *model.Trade
	var sc *model.AuraScore
	var err error
	if tradeType == model.TradeTypeBuy {
		t, sc, err = e.Buy(r.Context(), req.UserID, req.PersonalityID, req.Shares, req.SettlementRef)
	} else {
		t, sc, err = e.Sell(r.Context(), req.UserID, req.PersonalityID, req.Shares, req.SettlementRef)
	}
	if err != nil {
		httpjson.Error(w, err.Error(), tradeStatusCode(err))
		return
	}

	httpjson.Write(w, http.StatusCreated, TradeResponse{Trade: t, Score: sc})
}

// UserTrades handles GET /api/v1/trades/user/{userID}
func (e *Engine) UserTrades(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	limit, offset := pagination(r)

	trades, err := e.store.GetTradesByUser(r.Context(), userID, limit, offset)
	if err != nil {
		httpjson.Error(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	httpjson.Write(w, http.StatusOK, trades)
}

// PersonalityTrades handles GET /api/v1/personalities/{personalityID}/trades
func (e *Engine) PersonalityTrades(w http.ResponseWriter, r *http.Request) {
	personalityID := chi.URLParam(r, "personalityID")
	limit, offset := pagination(r)

	trades, err := e.store.GetTradesByPersonality(r.Context(), personalityID, limit, offset)
	if err != nil {
		httpjson.Error(w, "failed to list trades", http.StatusInternalServerError)
		return
	}
	if trades == nil {
		trades = []model.Trade{}
	}
	httpjson.Write(w, http.StatusOK, trades)
}

// tradeStatusCode maps engine errors to HTTP status codes.
func tradeStatusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidShares), errors.Is(err, ErrMissingUser),
		errors.Is(err, ErrInsufficientShares):
		return http.StatusBadRequest
	case errors.Is(err, limits.ErrOrderTooLarge), errors.Is(err, limits.ErrFloatCapExceeded):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func pagination(r *http.Request) (limit, offset int) {
	limit = 100
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}
	return limit, offset
}
