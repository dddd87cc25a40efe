package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aurapoints/aura-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu            sync.RWMutex
	personalities map[string]*model.Personality
	scores        map[string]*model.AuraScore // keyed by personality ID
	snapshots     []model.ScoreSnapshot
	trades        []model.Trade
	parlays       map[string]*model.Parlay
	parlayOrder   []string
	signals       []model.RawSignal
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		personalities: make(map[string]*model.Personality),
		scores:        make(map[string]*model.AuraScore),
		parlays:       make(map[string]*model.Parlay),
	}
}

// --- Personalities ---

func (s *MemoryStore) CreatePersonality(_ context.Context, p *model.Personality) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.personalities {
		if existing.Slug == p.Slug {
			return fmt.Errorf("personality with slug %s already exists", p.Slug)
		}
	}

	// Store a copy to avoid external mutation.
	cp := *p
	s.personalities[p.ID] = &cp
	return nil
}

func (s *MemoryStore) GetPersonality(_ context.Context, id string) (*model.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.personalities[id]
	if !ok {
		return nil, fmt.Errorf("personality %s: %w", id, ErrNotFound)
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) GetPersonalityBySlug(_ context.Context, slug string) (*model.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, p := range s.personalities {
		if p.Slug == slug {
			cp := *p
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("personality slug %s: %w", slug, ErrNotFound)
}

func (s *MemoryStore) ListActivePersonalities(_ context.Context) ([]model.Personality, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Personality
	for _, p := range s.personalities {
		if p.IsActive {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// --- Aura scores ---

func (s *MemoryStore) GetAuraScore(_ context.Context, personalityID string) (*model.AuraScore, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sc, ok := s.scores[personalityID]
	if !ok {
		return nil, fmt.Errorf("aura score for %s: %w", personalityID, ErrNotFound)
	}
	cp := *sc
	return &cp, nil
}

// CreateAuraScore inserts the row only if absent; the first writer wins and
// later callers get the existing row back.
func (s *MemoryStore) CreateAuraScore(_ context.Context, score *model.AuraScore) (*model.AuraScore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.scores[score.PersonalityID]; ok {
		cp := *existing
		return &cp, nil
	}

	cp := *score
	s.scores[score.PersonalityID] = &cp
	out := cp
	return &out, nil
}

func (s *MemoryStore) ApplyScoreUpdate(_ context.Context, score *model.AuraScore, snap *model.ScoreSnapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scores[score.PersonalityID]; !ok {
		return fmt.Errorf("aura score for %s: %w", score.PersonalityID, ErrNotFound)
	}

	// Both writes happen under one lock: atomic by construction.
	cp := *score
	s.scores[score.PersonalityID] = &cp
	s.snapshots = append(s.snapshots, *snap)
	return nil
}

func (s *MemoryStore) ApplyTrade(_ context.Context, score *model.AuraScore, trade *model.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.scores[score.PersonalityID]; !ok {
		return fmt.Errorf("aura score for %s: %w", score.PersonalityID, ErrNotFound)
	}

	cp := *score
	s.scores[score.PersonalityID] = &cp
	s.trades = append(s.trades, *trade)
	return nil
}

func (s *MemoryStore) ListScoreSnapshots(_ context.Context, personalityID string, since time.Time, limit int) ([]model.ScoreSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.ScoreSnapshot
	for _, snap := range s.snapshots {
		if snap.PersonalityID == personalityID && !snap.Timestamp.Before(since) {
			out = append(out, snap)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) ListByMomentum(_ context.Context, desc bool, limit int) ([]model.MomentumEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.MomentumEntry
	for id, sc := range s.scores {
		p, ok := s.personalities[id]
		if !ok || !p.IsActive || sc.MomentumScore == nil {
			continue
		}
		out = append(out, model.MomentumEntry{
			PersonalityID:   id,
			PersonalityName: p.Name,
			MomentumScore:   *sc.MomentumScore,
			CurrentScore:    sc.CurrentScore,
			PricePerShare:   sc.PricePerShare,
			UpdatedAt:       sc.UpdatedAt,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if desc {
			return out[i].MomentumScore.GreaterThan(out[j].MomentumScore)
		}
		return out[i].MomentumScore.LessThan(out[j].MomentumScore)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Trades ---

func (s *MemoryStore) GetTradesByUser(_ context.Context, userID string, limit, offset int) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Trade
	for _, t := range s.trades {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return pageTrades(out, limit, offset), nil
}

func (s *MemoryStore) GetTradesByPersonality(_ context.Context, personalityID string, limit, offset int) ([]model.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Trade
	for _, t := range s.trades {
		if t.PersonalityID == personalityID {
			out = append(out, t)
		}
	}
	return pageTrades(out, limit, offset), nil
}

func pageTrades(trades []model.Trade, limit, offset int) []model.Trade {
	sort.Slice(trades, func(i, j int) bool { return trades[i].CreatedAt.After(trades[j].CreatedAt) })
	if offset >= len(trades) {
		return nil
	}
	trades = trades[offset:]
	if limit > 0 && len(trades) > limit {
		trades = trades[:limit]
	}
	return trades
}

// --- Parlays ---

func (s *MemoryStore) InsertParlay(_ context.Context, p *model.Parlay) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.parlays[p.ID]; ok {
		return fmt.Errorf("parlay %s already exists", p.ID)
	}
	cp := *p
	cp.Legs = append([]model.ParlayLeg(nil), p.Legs...)
	s.parlays[p.ID] = &cp
	s.parlayOrder = append(s.parlayOrder, p.ID)
	return nil
}

func (s *MemoryStore) GetParlay(_ context.Context, id string) (*model.Parlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.parlays[id]
	if !ok {
		return nil, fmt.Errorf("parlay %s: %w", id, ErrNotFound)
	}
	cp := *p
	cp.Legs = append([]model.ParlayLeg(nil), p.Legs...)
	return &cp, nil
}

func (s *MemoryStore) GetParlaysByUser(_ context.Context, userID string, limit, offset int) ([]model.Parlay, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Parlay
	// Walk insertion order backwards: most recent first.
	for i := len(s.parlayOrder) - 1; i >= 0; i-- {
		p := s.parlays[s.parlayOrder[i]]
		if p.UserID == userID {
			cp := *p
			cp.Legs = append([]model.ParlayLeg(nil), p.Legs...)
			out = append(out, cp)
		}
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- Raw signals ---

func (s *MemoryStore) InsertRawSignal(_ context.Context, sig *model.RawSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.signals = append(s.signals, *sig)
	return nil
}

func (s *MemoryStore) UpdateSignalFeatures(_ context.Context, sig *model.RawSignal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.signals {
		if s.signals[i].ID == sig.ID {
			s.signals[i].SentimentScore = sig.SentimentScore
			s.signals[i].EngagementDelta = sig.EngagementDelta
			s.signals[i].VolumeVelocity = sig.VolumeVelocity
			return nil
		}
	}
	return fmt.Errorf("signal %s: %w", sig.ID, ErrNotFound)
}

func (s *MemoryStore) GetRecentSignals(_ context.Context, personalityID, source string, limit int) ([]model.RawSignal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.RawSignal
	for i := len(s.signals) - 1; i >= 0; i-- {
		sig := s.signals[i]
		if sig.PersonalityID == personalityID && sig.Source == source {
			out = append(out, sig)
			if limit > 0 && len(out) == limit {
				break
			}
		}
	}
	return out, nil
}
