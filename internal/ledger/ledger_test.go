package ledger_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/locks"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/pricing"
	"github.com/aurapoints/aura-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func newLedger() (*ledger.Ledger, *store.MemoryStore) {
	ms := store.NewMemoryStore()
	return ledger.New(ms, locks.NewPerKey()), ms
}

func TestGetOrCreate_SeedsAtBase(t *testing.T) {
	lg, _ := newLedger()

	sc, err := lg.GetOrCreate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get or create failed: %v", err)
	}
	if !sc.CurrentScore.Equal(d(100)) {
		t.Errorf("score = %s, want 100", sc.CurrentScore)
	}
	if !sc.PricePerShare.Equal(d(1.0)) {
		t.Errorf("price = %s, want 1.0", sc.PricePerShare)
	}
	if !sc.TotalShares.IsZero() || !sc.Volume24h.IsZero() {
		t.Errorf("aggregates not zero: shares=%s volume=%s", sc.TotalShares, sc.Volume24h)
	}
	if sc.MomentumScore != nil {
		t.Errorf("momentum = %s, want nil on seed", sc.MomentumScore)
	}
}

func TestGetOrCreate_Idempotent(t *testing.T) {
	lg, _ := newLedger()
	ctx := context.Background()

	first, err := lg.GetOrCreate(ctx, "p1")
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}

	if _, err := lg.Update(ctx, "p1", d(200), nil); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	second, err := lg.GetOrCreate(ctx, "p1")
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if second.CurrentScore.Equal(first.CurrentScore) {
		t.Error("expected second read to see the updated score, not a reseed")
	}
	if !second.CurrentScore.Equal(d(200)) {
		t.Errorf("score = %s, want 200", second.CurrentScore)
	}
}

func TestGetOrCreate_ConcurrentSingleRow(t *testing.T) {
	lg, _ := newLedger()

	const n = 50
	var wg sync.WaitGroup
	results := make([]*model.AuraScore, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sc, err := lg.GetOrCreate(context.Background(), "p1")
			if err != nil {
				t.Errorf("get or create failed: %v", err)
				return
			}
			results[i] = sc
		}(i)
	}
	wg.Wait()

	for i, sc := range results {
		if sc == nil {
			t.Fatalf("result %d is nil", i)
		}
		if !sc.CurrentScore.Equal(d(100)) {
			t.Errorf("result %d score = %s, want 100", i, sc.CurrentScore)
		}
	}
}

func TestUpdate_PriceTracksScore(t *testing.T) {
	lg, _ := newLedger()
	ctx := context.Background()

	for _, score := range []float64{150, 80, 0.5, 300} {
		sc, err := lg.Update(ctx, "p1", d(score), nil)
		if err != nil {
			t.Fatalf("update to %v failed: %v", score, err)
		}
		want := pricing.Quote(sc.CurrentScore)
		if !sc.PricePerShare.Equal(want) {
			t.Errorf("score %v: price = %s, want %s", score, sc.PricePerShare, want)
		}
	}
}

func TestUpdate_NegativeScoreQuotesBase(t *testing.T) {
	lg, _ := newLedger()

	sc, err := lg.Update(context.Background(), "p1", d(-40), nil)
	if err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if !sc.CurrentScore.Equal(d(-40)) {
		t.Errorf("score = %s, want -40 stored as-is", sc.CurrentScore)
	}
	if !sc.PricePerShare.Equal(d(1.0)) {
		t.Errorf("price = %s, want base price for non-positive score", sc.PricePerShare)
	}
}

func TestUpdate_AppendsOneSnapshot(t *testing.T) {
	lg, _ := newLedger()
	ctx := context.Background()

	m := d(0.5)
	if _, err := lg.Update(ctx, "p1", d(120), &m); err != nil {
		t.Fatalf("update failed: %v", err)
	}
	if _, err := lg.Update(ctx, "p1", d(130), nil); err != nil {
		t.Fatalf("second update failed: %v", err)
	}

	snaps, err := lg.History(ctx, "p1", time.Now().Add(-time.Hour), 100)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(snaps) != 2 {
		t.Fatalf("snapshot count = %d, want 2", len(snaps))
	}

	// Most recent first.
	if !snaps[0].Score.Equal(d(130)) {
		t.Errorf("latest snapshot score = %s, want 130", snaps[0].Score)
	}
	if snaps[1].MomentumScore == nil || !snaps[1].MomentumScore.Equal(m) {
		t.Errorf("first snapshot momentum = %v, want 0.5", snaps[1].MomentumScore)
	}
	if !snaps[0].PricePerShare.Equal(pricing.Quote(d(130))) {
		t.Errorf("snapshot price = %s, want quote of 130", snaps[0].PricePerShare)
	}
}

func TestHistory_SinceFilter(t *testing.T) {
	lg, _ := newLedger()
	ctx := context.Background()

	if _, err := lg.Update(ctx, "p1", d(110), nil); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	snaps, err := lg.History(ctx, "p1", time.Now().Add(time.Hour), 100)
	if err != nil {
		t.Fatalf("history failed: %v", err)
	}
	if len(snaps) != 0 {
		t.Errorf("snapshot count = %d, want 0 for future since", len(snaps))
	}
}

// failingStore wraps a Store and fails every score update.
type failingStore struct {
	store.Store
}

var errBoom = errors.New("boom")

func (f *failingStore) ApplyScoreUpdate(_ context.Context, _ *model.AuraScore, _ *model.ScoreSnapshot) error {
	return errBoom
}

func TestUpdate_FailureLeavesScoreUnchanged(t *testing.T) {
	ms := store.NewMemoryStore()
	lg := ledger.New(&failingStore{Store: ms}, locks.NewPerKey())
	ctx := context.Background()

	if _, err := lg.GetOrCreate(ctx, "p1"); err != nil {
		t.Fatalf("seed failed: %v", err)
	}

	if _, err := lg.Update(ctx, "p1", d(500), nil); !errors.Is(err, errBoom) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}

	sc, err := ms.GetAuraScore(ctx, "p1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if !sc.CurrentScore.Equal(d(100)) {
		t.Errorf("score = %s, want 100 after failed update", sc.CurrentScore)
	}
}
