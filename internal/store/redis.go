package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/aurapoints/aura-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for the hot read paths: aura scores and personality lookups. Writes
// go to the primary store and invalidate the cache; reads check Redis first
// then fall back to the primary.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write paths (write to primary, invalidate cache) ---

func (s *CachedStore) CreatePersonality(ctx context.Context, p *model.Personality) error {
	if err := s.primary.CreatePersonality(ctx, p); err != nil {
		return err
	}
	s.cachePersonality(ctx, p)
	return nil
}

func (s *CachedStore) CreateAuraScore(ctx context.Context, score *model.AuraScore) (*model.AuraScore, error) {
	winner, err := s.primary.CreateAuraScore(ctx, score)
	if err != nil {
		return nil, err
	}
	s.cacheScore(ctx, winner)
	return winner, nil
}

func (s *CachedStore) ApplyScoreUpdate(ctx context.Context, score *model.AuraScore, snap *model.ScoreSnapshot) error {
	if err := s.primary.ApplyScoreUpdate(ctx, score, snap); err != nil {
		return err
	}
	// Invalidate; next read re-populates.
	s.rdb.Del(ctx, scoreKey(score.PersonalityID))
	return nil
}

func (s *CachedStore) ApplyTrade(ctx context.Context, score *model.AuraScore, trade *model.Trade) error {
	if err := s.primary.ApplyTrade(ctx, score, trade); err != nil {
		return err
	}
	s.rdb.Del(ctx, scoreKey(score.PersonalityID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetAuraScore(ctx context.Context, personalityID string) (*model.AuraScore, error) {
	data, err := s.rdb.Get(ctx, scoreKey(personalityID)).Bytes()
	if err == nil {
		var sc model.AuraScore
		if json.Unmarshal(data, &sc) == nil {
			return &sc, nil
		}
	}

	sc, err := s.primary.GetAuraScore(ctx, personalityID)
	if err != nil {
		return nil, err
	}
	s.cacheScore(ctx, sc)
	return sc, nil
}

func (s *CachedStore) GetPersonality(ctx context.Context, id string) (*model.Personality, error) {
	data, err := s.rdb.Get(ctx, personalityKey(id)).Bytes()
	if err == nil {
		var p model.Personality
		if json.Unmarshal(data, &p) == nil {
			return &p, nil
		}
	}

	p, err := s.primary.GetPersonality(ctx, id)
	if err != nil {
		return nil, err
	}
	s.cachePersonality(ctx, p)
	return p, nil
}

func (s *CachedStore) GetPersonalityBySlug(ctx context.Context, slug string) (*model.Personality, error) {
	// Try cache via slug→ID mapping.
	id, err := s.rdb.Get(ctx, slugKey(slug)).Result()
	if err == nil {
		return s.GetPersonality(ctx, id)
	}

	p, err := s.primary.GetPersonalityBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	s.cachePersonality(ctx, p)
	return p, nil
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListActivePersonalities(ctx context.Context) ([]model.Personality, error) {
	return s.primary.ListActivePersonalities(ctx)
}

func (s *CachedStore) ListScoreSnapshots(ctx context.Context, personalityID string, since time.Time, limit int) ([]model.ScoreSnapshot, error) {
	return s.primary.ListScoreSnapshots(ctx, personalityID, since, limit)
}

func (s *CachedStore) ListByMomentum(ctx context.Context, desc bool, limit int) ([]model.MomentumEntry, error) {
	return s.primary.ListByMomentum(ctx, desc, limit)
}

func (s *CachedStore) GetTradesByUser(ctx context.Context, userID string, limit, offset int) ([]model.Trade, error) {
	return s.primary.GetTradesByUser(ctx, userID, limit, offset)
}

func (s *CachedStore) GetTradesByPersonality(ctx context.Context, personalityID string, limit, offset int) ([]model.Trade, error) {
	return s.primary.GetTradesByPersonality(ctx, personalityID, limit, offset)
}

func (s *CachedStore) InsertParlay(ctx context.Context, p *model.Parlay) error {
	return s.primary.InsertParlay(ctx, p)
}

func (s *CachedStore) GetParlay(ctx context.Context, id string) (*model.Parlay, error) {
	return s.primary.GetParlay(ctx, id)
}

func (s *CachedStore) GetParlaysByUser(ctx context.Context, userID string, limit, offset int) ([]model.Parlay, error) {
	return s.primary.GetParlaysByUser(ctx, userID, limit, offset)
}

func (s *CachedStore) InsertRawSignal(ctx context.Context, sig *model.RawSignal) error {
	return s.primary.InsertRawSignal(ctx, sig)
}

func (s *CachedStore) UpdateSignalFeatures(ctx context.Context, sig *model.RawSignal) error {
	return s.primary.UpdateSignalFeatures(ctx, sig)
}

func (s *CachedStore) GetRecentSignals(ctx context.Context, personalityID, source string, limit int) ([]model.RawSignal, error) {
	return s.primary.GetRecentSignals(ctx, personalityID, source, limit)
}

// --- Cache helpers ---

func (s *CachedStore) cacheScore(ctx context.Context, sc *model.AuraScore) {
	if data, err := json.Marshal(sc); err == nil {
		s.rdb.Set(ctx, scoreKey(sc.PersonalityID), data, s.ttl)
	}
}

func (s *CachedStore) cachePersonality(ctx context.Context, p *model.Personality) {
	if data, err := json.Marshal(p); err == nil {
		s.rdb.Set(ctx, personalityKey(p.ID), data, s.ttl)
		s.rdb.Set(ctx, slugKey(p.Slug), p.ID, s.ttl)
	}
}

func scoreKey(id string) string       { return fmt.Sprintf("aura:score:%s", id) }
func personalityKey(id string) string { return fmt.Sprintf("aura:personality:%s", id) }
func slugKey(slug string) string      { return fmt.Sprintf("aura:slug:%s", slug) }
