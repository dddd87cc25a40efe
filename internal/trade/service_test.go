package trade_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/limits"
	"github.com/aurapoints/aura-engine/internal/locks"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/store"
	"github.com/aurapoints/aura-engine/internal/trade"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// newTestEnv creates a test Engine with in-memory store and chi router.
func newTestEnv(t *testing.T) (*trade.Engine, *ledger.Ledger, *store.MemoryStore, chi.Router) {
	t.Helper()
	ms := store.NewMemoryStore()
	lk := locks.NewPerKey()
	lg := ledger.New(ms, lk)
	limiter := limits.NewTradeLimiter(d(1000), d(100000))
	eng := trade.NewEngine(ms, lg, lk, limiter, nil)

	r := chi.NewRouter()
	r.Post("/api/v1/trades/buy", eng.BuyShares)
	r.Post("/api/v1/trades/sell", eng.SellShares)
	r.Get("/api/v1/trades/user/{userID}", eng.UserTrades)
	r.Get("/api/v1/personalities/{personalityID}/trades", eng.PersonalityTrades)

	return eng, lg, ms, r
}

// seedPersonality creates a test personality directly in the store.
func seedPersonality(t *testing.T, ms *store.MemoryStore, id string) *model.Personality {
	t.Helper()
	p := &model.Personality{
		ID:        id,
		Name:      "Test Personality " + id,
		Slug:      "test-" + id,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := ms.CreatePersonality(context.Background(), p); err != nil {
		t.Fatalf("failed to seed personality: %v", err)
	}
	return p
}

func doTrade(t *testing.T, router chi.Router, path string, req trade.TradeRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, _ := json.Marshal(req)
	httpReq := httptest.NewRequest("POST", path, bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httpReq)
	return w
}

// --- Trade execution tests ---

func TestBuy_AtBaseScore(t *testing.T) {
	eng, _, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	tr, sc, err := eng.Buy(context.Background(), "user1", "p1", d(10), "")
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	// Base score 100 prices at exactly 1.0 per share.
	if !tr.PricePerShare.Equal(d(1.0)) {
		t.Errorf("price = %s, want 1.0", tr.PricePerShare)
	}
	if !tr.TotalCost.Equal(d(10)) {
		t.Errorf("cost = %s, want 10", tr.TotalCost)
	}
	if !sc.TotalShares.Equal(d(10)) {
		t.Errorf("total shares = %s, want 10", sc.TotalShares)
	}
	if !sc.Volume24h.Equal(d(10)) {
		t.Errorf("volume = %s, want 10", sc.Volume24h)
	}
	if tr.Status != model.TradeStatusPending {
		t.Errorf("status = %s, want pending without settlement ref", tr.Status)
	}
}

func TestBuy_SettlementRefConfirms(t *testing.T) {
	eng, _, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	tr, _, err := eng.Buy(context.Background(), "user1", "p1", d(5), "chain-tx-123")
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if tr.Status != model.TradeStatusConfirmed {
		t.Errorf("status = %s, want confirmed with settlement ref", tr.Status)
	}
	if tr.SettlementRef != "chain-tx-123" {
		t.Errorf("settlement ref = %s", tr.SettlementRef)
	}
}

func TestBuy_PriceFollowsScore(t *testing.T) {
	eng, lg, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	// Score 150 prices at 1.25.
	if _, err := lg.Update(context.Background(), "p1", d(150), nil); err != nil {
		t.Fatalf("score update failed: %v", err)
	}

	tr, _, err := eng.Buy(context.Background(), "user1", "p1", d(4), "")
	if err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if !tr.PricePerShare.Equal(d(1.25)) {
		t.Errorf("price = %s, want 1.25", tr.PricePerShare)
	}
	if !tr.TotalCost.Equal(d(5)) {
		t.Errorf("cost = %s, want 5", tr.TotalCost)
	}
}

func TestSell_InsufficientSharesLeavesStateUntouched(t *testing.T) {
	eng, lg, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(10), ""); err != nil {
		t.Fatalf("buy failed: %v", err)
	}

	_, _, err := eng.Sell(context.Background(), "user1", "p1", d(11), "")
	if err == nil {
		t.Fatal("expected sell to fail")
	}

	sc, err := lg.GetOrCreate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if !sc.TotalShares.Equal(d(10)) {
		t.Errorf("total shares = %s, want 10 (unchanged)", sc.TotalShares)
	}
	if !sc.Volume24h.Equal(d(10)) {
		t.Errorf("volume = %s, want 10 (unchanged)", sc.Volume24h)
	}
}

func TestSell_AddsToVolume(t *testing.T) {
	eng, lg, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(10), ""); err != nil {
		t.Fatalf("buy failed: %v", err)
	}
	if _, _, err := eng.Sell(context.Background(), "user1", "p1", d(4), ""); err != nil {
		t.Fatalf("sell failed: %v", err)
	}

	sc, err := lg.GetOrCreate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if !sc.TotalShares.Equal(d(6)) {
		t.Errorf("total shares = %s, want 6", sc.TotalShares)
	}
	// Volume accumulates on both sides: 10 bought + 4 sold at price 1.0.
	if !sc.Volume24h.Equal(d(14)) {
		t.Errorf("volume = %s, want 14", sc.Volume24h)
	}
}

func TestBuy_RejectsInvalidInput(t *testing.T) {
	eng, _, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	if _, _, err := eng.Buy(context.Background(), "", "p1", d(1), ""); err == nil {
		t.Error("expected missing user to fail")
	}
	if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(0), ""); err == nil {
		t.Error("expected zero shares to fail")
	}
	if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(-5), ""); err == nil {
		t.Error("expected negative shares to fail")
	}
	if _, _, err := eng.Buy(context.Background(), "user1", "missing", d(1), ""); err == nil {
		t.Error("expected unknown personality to fail")
	}
}

func TestBuy_RejectsInactivePersonality(t *testing.T) {
	eng, _, ms, _ := newTestEnv(t)
	p := &model.Personality{
		ID:        "p1",
		Name:      "Retired",
		Slug:      "retired",
		IsActive:  false,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := ms.CreatePersonality(context.Background(), p); err != nil {
		t.Fatalf("failed to seed personality: %v", err)
	}

	if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(1), ""); err == nil {
		t.Error("expected inactive personality to fail")
	}
}

func TestBuy_FloatCap(t *testing.T) {
	eng, _, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	// Float cap is 100000; per-trade cap 1000.
	if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(1001), ""); err == nil {
		t.Error("expected per-trade cap to reject")
	}
	for i := 0; i < 100; i++ {
		if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(1000), ""); err != nil {
			t.Fatalf("buy %d failed: %v", i, err)
		}
	}
	if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(1), ""); err == nil {
		t.Error("expected float cap to reject")
	}
}

func TestBuy_ConcurrentBuysSum(t *testing.T) {
	eng, lg, ms, _ := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	const n = 50
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(2), ""); err != nil {
				t.Errorf("concurrent buy failed: %v", err)
			}
		}()
	}
	wg.Wait()

	sc, err := lg.GetOrCreate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if !sc.TotalShares.Equal(d(2 * n)) {
		t.Errorf("total shares = %s, want %d", sc.TotalShares, 2*n)
	}
	if !sc.Volume24h.Equal(d(2 * n)) {
		t.Errorf("volume = %s, want %d", sc.Volume24h, 2*n)
	}

	trades, err := ms.GetTradesByUser(context.Background(), "user1", 500, 0)
	if err != nil {
		t.Fatalf("list trades: %v", err)
	}
	if len(trades) != n {
		t.Errorf("trade count = %d, want %d", len(trades), n)
	}
}

// --- HTTP handler tests ---

func TestBuySharesHandler(t *testing.T) {
	_, _, ms, router := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	w := doTrade(t, router, "/api/v1/trades/buy", trade.TradeRequest{
		UserID:        "user1",
		PersonalityID: "p1",
		Shares:        d(3),
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var resp trade.TradeResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Trade.TradeType != model.TradeTypeBuy {
		t.Errorf("trade type = %s", resp.Trade.TradeType)
	}
	if !resp.Score.TotalShares.Equal(d(3)) {
		t.Errorf("total shares = %s, want 3", resp.Score.TotalShares)
	}
}

func TestTradeHandler_TypeMismatch(t *testing.T) {
	_, _, ms, router := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	w := doTrade(t, router, "/api/v1/trades/buy", trade.TradeRequest{
		UserID:        "user1",
		PersonalityID: "p1",
		TradeType:     model.TradeTypeSell,
		Shares:        d(3),
	})
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", w.Code)
	}
}

func TestTradeHandler_StatusCodes(t *testing.T) {
	_, _, ms, router := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	cases := []struct {
		name string
		req  trade.TradeRequest
		want int
	}{
		{"unknown personality", trade.TradeRequest{UserID: "u", PersonalityID: "nope", Shares: d(1)}, http.StatusNotFound},
		{"zero shares", trade.TradeRequest{UserID: "u", PersonalityID: "p1", Shares: d(0)}, http.StatusBadRequest},
		{"missing user", trade.TradeRequest{PersonalityID: "p1", Shares: d(1)}, http.StatusBadRequest},
		{"order too large", trade.TradeRequest{UserID: "u", PersonalityID: "p1", Shares: d(5000)}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := doTrade(t, router, "/api/v1/trades/buy", tc.req)
			if w.Code != tc.want {
				t.Errorf("status = %d, want %d", w.Code, tc.want)
			}
		})
	}
}

func TestUserTradesHandler(t *testing.T) {
	eng, _, ms, router := newTestEnv(t)
	seedPersonality(t, ms, "p1")

	for i := 0; i < 3; i++ {
		if _, _, err := eng.Buy(context.Background(), "user1", "p1", d(1), ""); err != nil {
			t.Fatalf("buy failed: %v", err)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/trades/user/user1", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	var trades []model.Trade
	if err := json.Unmarshal(w.Body.Bytes(), &trades); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(trades) != 3 {
		t.Errorf("trade count = %d, want 3", len(trades))
	}
}

func TestUserTradesHandler_EmptyIsArray(t *testing.T) {
	_, _, _, router := newTestEnv(t)

	req := httptest.NewRequest("GET", "/api/v1/trades/user/nobody", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if body := w.Body.String(); body[0] != '[' {
		t.Errorf("expected JSON array, got %s", body)
	}
}
