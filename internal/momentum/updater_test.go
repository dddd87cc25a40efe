package momentum_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/locks"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/momentum"
	"github.com/aurapoints/aura-engine/internal/signals"
	"github.com/aurapoints/aura-engine/internal/store"
)

func d(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

func seedPersonality(t *testing.T, ms store.Store, id string) *model.Personality {
	t.Helper()
	p := &model.Personality{
		ID:        id,
		Name:      "Personality " + id,
		Slug:      "personality-" + id,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	if err := ms.CreatePersonality(context.Background(), p); err != nil {
		t.Fatalf("failed to seed personality %s: %v", id, err)
	}
	return p
}

func TestNextScore(t *testing.T) {
	cases := []struct {
		current  float64
		momentum float64
		want     float64
	}{
		{100, 0.5, 105},   // 100 * 1.05
		{100, -0.5, 95},   // 100 * 0.95
		{100, 0, 100},     // neutral momentum holds
		{200, 1, 220},     // full positive momentum
		{1, -1, 1},        // 0.9 floored at 1.0
		{10, -1, 9},       // 10 * 0.9
		{5, -1, 4.5},      // stays above floor
		{1.05, -1, 1},     // 0.945 floored
	}
	for _, tc := range cases {
		got := momentum.NextScore(d(tc.current), d(tc.momentum))
		if !got.Equal(d(tc.want)) {
			t.Errorf("NextScore(%v, %v) = %s, want %v", tc.current, tc.momentum, got, tc.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := momentum.Clamp(d(2.5)); !got.Equal(d(1)) {
		t.Errorf("Clamp(2.5) = %s, want 1", got)
	}
	if got := momentum.Clamp(d(-3)); !got.Equal(d(-1)) {
		t.Errorf("Clamp(-3) = %s, want -1", got)
	}
	if got := momentum.Clamp(d(0.3)); !got.Equal(d(0.3)) {
		t.Errorf("Clamp(0.3) = %s, want 0.3", got)
	}
}

func TestLinearScorer_Deterministic(t *testing.T) {
	s := momentum.NewLinearScorer()
	feats := signals.Features{
		SentimentScore:  d(0.5),
		EngagementDelta: d(0.25),
		VolumeVelocity:  d(25),
	}

	// 0.5*0.4 + 0.25*0.4 + (25/50)*0.2 = 0.2 + 0.1 + 0.1 = 0.4
	first, err := s.Predict(context.Background(), feats)
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if !first.Equal(d(0.4)) {
		t.Errorf("prediction = %s, want 0.4", first)
	}

	second, _ := s.Predict(context.Background(), feats)
	if !second.Equal(first) {
		t.Error("same features must yield the same prediction")
	}
}

func TestLinearScorer_ClampsExtremes(t *testing.T) {
	s := momentum.NewLinearScorer()

	high, err := s.Predict(context.Background(), signals.Features{
		SentimentScore:  d(1),
		EngagementDelta: d(50),
		VolumeVelocity:  d(10000),
	})
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if !high.Equal(d(1)) {
		t.Errorf("prediction = %s, want clamped to 1", high)
	}
}

// stubScorer returns a fixed momentum score.
type stubScorer struct {
	m decimal.Decimal
}

func (s *stubScorer) Predict(_ context.Context, _ signals.Features) (decimal.Decimal, error) {
	return s.m, nil
}

func newUpdater(ms store.Store, sc momentum.Scorer) (*momentum.Updater, *ledger.Ledger) {
	lg := ledger.New(ms, locks.NewPerKey())
	pl := signals.NewPipeline(ms, signals.NewMockTwitterFetcher(1))
	return momentum.NewUpdater(ms, lg, pl, sc, time.Minute, 2), lg
}

func TestRunCycle_AppliesMomentum(t *testing.T) {
	ms := store.NewMemoryStore()
	seedPersonality(t, ms, "p1")
	up, lg := newUpdater(ms, &stubScorer{m: d(0.5)})

	up.RunCycle(context.Background())

	sc, err := lg.GetOrCreate(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	// 100 * (1 + 0.5*0.1) = 105
	if !sc.CurrentScore.Equal(d(105)) {
		t.Errorf("score = %s, want 105", sc.CurrentScore)
	}
	if sc.MomentumScore == nil || !sc.MomentumScore.Equal(d(0.5)) {
		t.Errorf("momentum = %v, want 0.5", sc.MomentumScore)
	}
}

// failingSignalStore fails signal inserts for one personality.
type failingSignalStore struct {
	store.Store
	failFor string
}

func (f *failingSignalStore) InsertRawSignal(ctx context.Context, sig *model.RawSignal) error {
	if sig.PersonalityID == f.failFor {
		return errors.New("ingestion unavailable")
	}
	return f.Store.InsertRawSignal(ctx, sig)
}

func TestRunCycle_FailureIsolation(t *testing.T) {
	ms := store.NewMemoryStore()
	seedPersonality(t, ms, "broken")
	seedPersonality(t, ms, "healthy")

	st := &failingSignalStore{Store: ms, failFor: "broken"}
	up, lg := newUpdater(st, &stubScorer{m: d(1)})

	up.RunCycle(context.Background())

	healthy, err := lg.GetOrCreate(context.Background(), "healthy")
	if err != nil {
		t.Fatalf("get healthy score: %v", err)
	}
	// 100 * 1.1 = 110: the broken personality must not block this one.
	if !healthy.CurrentScore.Equal(d(110)) {
		t.Errorf("healthy score = %s, want 110", healthy.CurrentScore)
	}

	// The broken personality keeps whatever it had (nothing yet).
	if _, err := ms.GetAuraScore(context.Background(), "broken"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("broken personality score err = %v, want not found", err)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	ms := store.NewMemoryStore()
	up, _ := newUpdater(ms, &stubScorer{m: d(0)})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		up.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("updater did not stop after context cancellation")
	}
}

func TestLeaderboardHandlers(t *testing.T) {
	ms := store.NewMemoryStore()
	seedPersonality(t, ms, "riser")
	seedPersonality(t, ms, "faller")

	lg := ledger.New(ms, locks.NewPerKey())
	mUp, mDown := d(0.8), d(-0.6)
	if _, err := lg.Update(context.Background(), "riser", d(120), &mUp); err != nil {
		t.Fatalf("update riser: %v", err)
	}
	if _, err := lg.Update(context.Background(), "faller", d(90), &mDown); err != nil {
		t.Fatalf("update faller: %v", err)
	}

	pl := signals.NewPipeline(ms, signals.NewMockTwitterFetcher(1))
	up := momentum.NewUpdater(ms, lg, pl, momentum.NewLinearScorer(), time.Minute, 1)

	r := chi.NewRouter()
	r.Get("/api/v1/leaderboard/gainers", up.TopGainers)
	r.Get("/api/v1/leaderboard/losers", up.TopLosers)

	check := func(path, wantFirst string) {
		t.Helper()
		req := httptest.NewRequest("GET", path, nil)
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, w.Code)
		}
		var entries []model.MomentumEntry
		if err := json.Unmarshal(w.Body.Bytes(), &entries); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if len(entries) != 2 {
			t.Fatalf("%s entry count = %d, want 2", path, len(entries))
		}
		if entries[0].PersonalityID != wantFirst {
			t.Errorf("%s first entry = %s, want %s", path, entries[0].PersonalityID, wantFirst)
		}
	}

	check("/api/v1/leaderboard/gainers", "riser")
	check("/api/v1/leaderboard/losers", "faller")
}
