package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision.
//
// Expected schema:
//
//	personalities(id TEXT PK, name TEXT, slug TEXT UNIQUE, description TEXT,
//	              twitter_handle TEXT, youtube_channel_id TEXT, image_url TEXT,
//	              is_active BOOL, created_at TIMESTAMPTZ, updated_at TIMESTAMPTZ)
//	aura_scores(personality_id TEXT PK REFERENCES personalities,
//	            current_score NUMERIC(20,8), momentum_score NUMERIC(10,4),
//	            price_per_share NUMERIC(20,8), total_shares NUMERIC(20,8),
//	            volume_24h NUMERIC(20,8), updated_at TIMESTAMPTZ)
//	score_snapshots(id TEXT PK, personality_id TEXT, score NUMERIC(20,8),
//	                momentum_score NUMERIC(10,4), price_per_share NUMERIC(20,8),
//	                volume_24h NUMERIC(20,8), timestamp TIMESTAMPTZ,
//	                INDEX (personality_id, timestamp DESC))
//	trades(id TEXT PK, user_id TEXT, personality_id TEXT, trade_type TEXT,
//	       shares NUMERIC(20,8), price_per_share NUMERIC(20,8),
//	       total_cost NUMERIC(20,8), settlement_ref TEXT, status TEXT,
//	       created_at TIMESTAMPTZ, INDEX (user_id), INDEX (personality_id))
//	parlays(id TEXT PK, user_id TEXT, name TEXT, description TEXT, legs JSONB,
//	        total_stake NUMERIC(20,8), potential_payout NUMERIC(20,8),
//	        status TEXT, settlement_ref TEXT, resolution_data JSONB,
//	        created_at TIMESTAMPTZ, resolved_at TIMESTAMPTZ, INDEX (user_id))
//	raw_signals(id TEXT PK, personality_id TEXT, source TEXT, payload JSONB,
//	            sentiment_score NUMERIC(5,4), engagement_delta NUMERIC(20,8),
//	            volume_velocity NUMERIC(20,8), timestamp TIMESTAMPTZ,
//	            INDEX (personality_id, source, timestamp DESC))
//
// The primary key on aura_scores.personality_id is what closes the
// get-or-create race: concurrent first-time callers hit ON CONFLICT DO
// NOTHING and re-read the winner.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// --- Personalities ---

func (s *PostgresStore) CreatePersonality(ctx context.Context, p *model.Personality) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO personalities (id, name, slug, description, twitter_handle, youtube_channel_id, image_url, is_active, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		p.ID, p.Name, p.Slug, p.Description, p.TwitterHandle, p.YouTubeChannelID,
		p.ImageURL, p.IsActive, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

const personalityColumns = `id, name, slug, description, twitter_handle, youtube_channel_id, image_url, is_active, created_at, updated_at`

func (s *PostgresStore) scanPersonality(row pgx.Row) (*model.Personality, error) {
	var p model.Personality
	err := row.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.TwitterHandle,
		&p.YouTubeChannelID, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (s *PostgresStore) GetPersonality(ctx context.Context, id string) (*model.Personality, error) {
	p, err := s.scanPersonality(s.pool.QueryRow(ctx,
		`SELECT `+personalityColumns+` FROM personalities WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get personality %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) GetPersonalityBySlug(ctx context.Context, slug string) (*model.Personality, error) {
	p, err := s.scanPersonality(s.pool.QueryRow(ctx,
		`SELECT `+personalityColumns+` FROM personalities WHERE slug = $1`, slug))
	if err != nil {
		return nil, fmt.Errorf("get personality by slug %s: %w", slug, err)
	}
	return p, nil
}

func (s *PostgresStore) ListActivePersonalities(ctx context.Context) ([]model.Personality, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT `+personalityColumns+` FROM personalities WHERE is_active ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Personality
	for rows.Next() {
		var p model.Personality
		if err := rows.Scan(&p.ID, &p.Name, &p.Slug, &p.Description, &p.TwitterHandle,
			&p.YouTubeChannelID, &p.ImageURL, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// --- Aura scores ---

func scanAuraScore(row pgx.Row) (*model.AuraScore, error) {
	var sc model.AuraScore
	var current, price, shares, volume string
	var momentum *string

	err := row.Scan(&sc.PersonalityID, &current, &momentum, &price, &shares, &volume, &sc.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	sc.CurrentScore, _ = decimal.NewFromString(current)
	sc.PricePerShare, _ = decimal.NewFromString(price)
	sc.TotalShares, _ = decimal.NewFromString(shares)
	sc.Volume24h, _ = decimal.NewFromString(volume)
	if momentum != nil {
		m, _ := decimal.NewFromString(*momentum)
		sc.MomentumScore = &m
	}
	return &sc, nil
}

const auraScoreSelect = `SELECT personality_id, current_score::TEXT, momentum_score::TEXT,
	       price_per_share::TEXT, total_shares::TEXT, volume_24h::TEXT, updated_at
	FROM aura_scores`

func (s *PostgresStore) GetAuraScore(ctx context.Context, personalityID string) (*model.AuraScore, error) {
	sc, err := scanAuraScore(s.pool.QueryRow(ctx,
		auraScoreSelect+` WHERE personality_id = $1`, personalityID))
	if err != nil {
		return nil, fmt.Errorf("get aura score %s: %w", personalityID, err)
	}
	return sc, nil
}

func (s *PostgresStore) CreateAuraScore(ctx context.Context, score *model.AuraScore) (*model.AuraScore, error) {
	// First writer wins; concurrent callers fall through to the re-read.
	_, err := s.pool.Exec(ctx,
		`INSERT INTO aura_scores (personality_id, current_score, momentum_score, price_per_share, total_shares, volume_24h, updated_at)
		 VALUES ($1, $2::NUMERIC, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)
		 ON CONFLICT (personality_id) DO NOTHING`,
		score.PersonalityID, score.CurrentScore.String(), momentumArg(score.MomentumScore),
		score.PricePerShare.String(), score.TotalShares.String(), score.Volume24h.String(),
		score.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("create aura score %s: %w", score.PersonalityID, err)
	}
	return s.GetAuraScore(ctx, score.PersonalityID)
}

func (s *PostgresStore) ApplyScoreUpdate(ctx context.Context, score *model.AuraScore, snap *model.ScoreSnapshot) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE aura_scores
			 SET current_score = $2::NUMERIC, momentum_score = $3::NUMERIC,
			     price_per_share = $4::NUMERIC, updated_at = $5
			 WHERE personality_id = $1`,
			score.PersonalityID, score.CurrentScore.String(), momentumArg(score.MomentumScore),
			score.PricePerShare.String(), score.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update aura score %s: %w", score.PersonalityID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("aura score %s: %w", score.PersonalityID, ErrNotFound)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO score_snapshots (id, personality_id, score, momentum_score, price_per_share, volume_24h, timestamp)
			 VALUES ($1, $2, $3::NUMERIC, $4::NUMERIC, $5::NUMERIC, $6::NUMERIC, $7)`,
			snap.ID, snap.PersonalityID, snap.Score.String(), momentumArg(snap.MomentumScore),
			snap.PricePerShare.String(), snap.Volume24h.String(), snap.Timestamp,
		)
		if err != nil {
			return fmt.Errorf("insert score snapshot %s: %w", snap.PersonalityID, err)
		}
		return nil
	})
}

func (s *PostgresStore) ApplyTrade(ctx context.Context, score *model.AuraScore, trade *model.Trade) error {
	return pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		tag, err := tx.Exec(ctx,
			`UPDATE aura_scores
			 SET total_shares = $2::NUMERIC, volume_24h = $3::NUMERIC, updated_at = $4
			 WHERE personality_id = $1`,
			score.PersonalityID, score.TotalShares.String(), score.Volume24h.String(), score.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("update aura score %s: %w", score.PersonalityID, err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("aura score %s: %w", score.PersonalityID, ErrNotFound)
		}

		_, err = tx.Exec(ctx,
			`INSERT INTO trades (id, user_id, personality_id, trade_type, shares, price_per_share, total_cost, settlement_ref, status, created_at)
			 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8, $9, $10)`,
			trade.ID, trade.UserID, trade.PersonalityID, trade.TradeType,
			trade.Shares.String(), trade.PricePerShare.String(), trade.TotalCost.String(),
			trade.SettlementRef, trade.Status, trade.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert trade %s: %w", trade.ID, err)
		}
		return nil
	})
}

func (s *PostgresStore) ListScoreSnapshots(ctx context.Context, personalityID string, since time.Time, limit int) ([]model.ScoreSnapshot, error) {
	q := `SELECT id, personality_id, score::TEXT, momentum_score::TEXT,
	             price_per_share::TEXT, volume_24h::TEXT, timestamp
	      FROM score_snapshots
	      WHERE personality_id = $1 AND timestamp >= $2
	      ORDER BY timestamp DESC`
	args := []any{personalityID, since}
	if limit > 0 {
		q += ` LIMIT $3`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.ScoreSnapshot
	for rows.Next() {
		var snap model.ScoreSnapshot
		var score, price, volume string
		var momentum *string
		if err := rows.Scan(&snap.ID, &snap.PersonalityID, &score, &momentum,
			&price, &volume, &snap.Timestamp); err != nil {
			return nil, err
		}
		snap.Score, _ = decimal.NewFromString(score)
		snap.PricePerShare, _ = decimal.NewFromString(price)
		snap.Volume24h, _ = decimal.NewFromString(volume)
		if momentum != nil {
			m, _ := decimal.NewFromString(*momentum)
			snap.MomentumScore = &m
		}
		out = append(out, snap)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByMomentum(ctx context.Context, desc bool, limit int) ([]model.MomentumEntry, error) {
	order := "ASC"
	if desc {
		order = "DESC"
	}
	rows, err := s.pool.Query(ctx,
		`SELECT a.personality_id, p.name,
		        a.momentum_score::TEXT, a.current_score::TEXT, a.price_per_share::TEXT, a.updated_at
		 FROM aura_scores a
		 JOIN personalities p ON p.id = a.personality_id
		 WHERE p.is_active AND a.momentum_score IS NOT NULL
		 ORDER BY a.momentum_score `+order+`
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.MomentumEntry
	for rows.Next() {
		var e model.MomentumEntry
		var momentum, score, price string
		if err := rows.Scan(&e.PersonalityID, &e.PersonalityName, &momentum, &score, &price, &e.UpdatedAt); err != nil {
			return nil, err
		}
		e.MomentumScore, _ = decimal.NewFromString(momentum)
		e.CurrentScore, _ = decimal.NewFromString(score)
		e.PricePerShare, _ = decimal.NewFromString(price)
		out = append(out, e)
	}
	return out, rows.Err()
}

// --- Trades ---

const tradeSelect = `SELECT id, user_id, personality_id, trade_type,
	       shares::TEXT, price_per_share::TEXT, total_cost::TEXT,
	       settlement_ref, status, created_at
	FROM trades`

func (s *PostgresStore) GetTradesByUser(ctx context.Context, userID string, limit, offset int) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		tradeSelect+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func (s *PostgresStore) GetTradesByPersonality(ctx context.Context, personalityID string, limit, offset int) ([]model.Trade, error) {
	rows, err := s.pool.Query(ctx,
		tradeSelect+` WHERE personality_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		personalityID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanTrades(rows)
}

func scanTrades(rows pgx.Rows) ([]model.Trade, error) {
	var out []model.Trade
	for rows.Next() {
		var t model.Trade
		var shares, price, cost string
		if err := rows.Scan(&t.ID, &t.UserID, &t.PersonalityID, &t.TradeType,
			&shares, &price, &cost, &t.SettlementRef, &t.Status, &t.CreatedAt); err != nil {
			return nil, err
		}
		t.Shares, _ = decimal.NewFromString(shares)
		t.PricePerShare, _ = decimal.NewFromString(price)
		t.TotalCost, _ = decimal.NewFromString(cost)
		out = append(out, t)
	}
	return out, rows.Err()
}

// --- Parlays ---

func (s *PostgresStore) InsertParlay(ctx context.Context, p *model.Parlay) error {
	legs, err := json.Marshal(p.Legs)
	if err != nil {
		return fmt.Errorf("marshal parlay legs: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO parlays (id, user_id, name, description, legs, total_stake, potential_payout, status, settlement_ref, resolution_data, created_at, resolved_at)
		 VALUES ($1, $2, $3, $4, $5, $6::NUMERIC, $7::NUMERIC, $8, $9, $10, $11, $12)`,
		p.ID, p.UserID, p.Name, p.Description, legs,
		p.TotalStake.String(), p.PotentialPayout.String(),
		p.Status, p.SettlementRef, p.ResolutionData, p.CreatedAt, p.ResolvedAt,
	)
	return err
}

const parlaySelect = `SELECT id, user_id, name, description, legs,
	       total_stake::TEXT, potential_payout::TEXT,
	       status, settlement_ref, resolution_data, created_at, resolved_at
	FROM parlays`

func scanParlay(row pgx.Row) (*model.Parlay, error) {
	var p model.Parlay
	var legs []byte
	var stake, payout string

	err := row.Scan(&p.ID, &p.UserID, &p.Name, &p.Description, &legs,
		&stake, &payout, &p.Status, &p.SettlementRef, &p.ResolutionData,
		&p.CreatedAt, &p.ResolvedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(legs, &p.Legs); err != nil {
		return nil, fmt.Errorf("unmarshal parlay legs: %w", err)
	}
	p.TotalStake, _ = decimal.NewFromString(stake)
	p.PotentialPayout, _ = decimal.NewFromString(payout)
	return &p, nil
}

func (s *PostgresStore) GetParlay(ctx context.Context, id string) (*model.Parlay, error) {
	p, err := scanParlay(s.pool.QueryRow(ctx, parlaySelect+` WHERE id = $1`, id))
	if err != nil {
		return nil, fmt.Errorf("get parlay %s: %w", id, err)
	}
	return p, nil
}

func (s *PostgresStore) GetParlaysByUser(ctx context.Context, userID string, limit, offset int) ([]model.Parlay, error) {
	rows, err := s.pool.Query(ctx,
		parlaySelect+` WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Parlay
	for rows.Next() {
		p, err := scanParlay(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// --- Raw signals ---

func (s *PostgresStore) InsertRawSignal(ctx context.Context, sig *model.RawSignal) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO raw_signals (id, personality_id, source, payload, sentiment_score, engagement_delta, volume_velocity, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6::NUMERIC, $7::NUMERIC, $8)`,
		sig.ID, sig.PersonalityID, sig.Source, sig.Payload,
		momentumArg(sig.SentimentScore), momentumArg(sig.EngagementDelta),
		momentumArg(sig.VolumeVelocity), sig.Timestamp,
	)
	return err
}

func (s *PostgresStore) UpdateSignalFeatures(ctx context.Context, sig *model.RawSignal) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE raw_signals
		 SET sentiment_score = $2::NUMERIC, engagement_delta = $3::NUMERIC, volume_velocity = $4::NUMERIC
		 WHERE id = $1`,
		sig.ID, momentumArg(sig.SentimentScore), momentumArg(sig.EngagementDelta),
		momentumArg(sig.VolumeVelocity),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("signal %s: %w", sig.ID, ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) GetRecentSignals(ctx context.Context, personalityID, source string, limit int) ([]model.RawSignal, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, personality_id, source, payload,
		        sentiment_score::TEXT, engagement_delta::TEXT, volume_velocity::TEXT, timestamp
		 FROM raw_signals
		 WHERE personality_id = $1 AND source = $2
		 ORDER BY timestamp DESC LIMIT $3`,
		personalityID, source, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.RawSignal
	for rows.Next() {
		var sig model.RawSignal
		var sentiment, engagement, velocity *string
		if err := rows.Scan(&sig.ID, &sig.PersonalityID, &sig.Source, &sig.Payload,
			&sentiment, &engagement, &velocity, &sig.Timestamp); err != nil {
			return nil, err
		}
		sig.SentimentScore = parseOptDecimal(sentiment)
		sig.EngagementDelta = parseOptDecimal(engagement)
		sig.VolumeVelocity = parseOptDecimal(velocity)
		out = append(out, sig)
	}
	return out, rows.Err()
}

// momentumArg renders an optional decimal as a nullable SQL argument.
func momentumArg(v *decimal.Decimal) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}

func parseOptDecimal(s *string) *decimal.Decimal {
	if s == nil {
		return nil
	}
	v, _ := decimal.NewFromString(*s)
	return &v
}
