// Package signals ingests social-media observations for personalities and
// turns them into the numeric features the momentum scorer consumes.
//
// The fetchers here are mocks that generate plausible randomized payloads.
// Real Twitter/YouTube API clients would satisfy the same Fetcher interface.
package signals

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aurapoints/aura-engine/internal/model"
)

// Fetcher retrieves one raw signal for a personality from a single source.
type Fetcher interface {
	Source() string
	Fetch(ctx context.Context, p *model.Personality) (*model.RawSignal, error)
}

// TwitterPayload mirrors the fields a Twitter metrics poll would return.
type TwitterPayload struct {
	Handle        string  `json:"handle"`
	Followers     int64   `json:"followers"`
	TweetsLast24h int64   `json:"tweets_last_24h"`
	Likes         int64   `json:"likes"`
	Retweets      int64   `json:"retweets"`
	Mentions      int64   `json:"mentions"`
	SentimentRaw  float64 `json:"sentiment_raw"`
}

// YouTubePayload mirrors the fields a YouTube metrics poll would return.
type YouTubePayload struct {
	ChannelID     string  `json:"channel_id"`
	Subscribers   int64   `json:"subscribers"`
	VideosLast24h int64   `json:"videos_last_24h"`
	Views         int64   `json:"views"`
	Likes         int64   `json:"likes"`
	Comments      int64   `json:"comments"`
	SentimentRaw  float64 `json:"sentiment_raw"`
}

// rng wraps a seeded rand.Rand for concurrent use by the mock fetchers.
type rng struct {
	mu sync.Mutex
	r  *rand.Rand
}

func newRNG(seed int64) *rng {
	return &rng{r: rand.New(rand.NewSource(seed))}
}

func (g *rng) int64n(lo, hi int64) int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.r.Int63n(hi-lo+1)
}

func (g *rng) float(lo, hi float64) float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return lo + g.r.Float64()*(hi-lo)
}

// MockTwitterFetcher generates randomized Twitter metric payloads.
type MockTwitterFetcher struct {
	rng *rng
}

// NewMockTwitterFetcher creates a mock Twitter fetcher. Pass 0 for a
// time-based seed.
func NewMockTwitterFetcher(seed int64) *MockTwitterFetcher {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockTwitterFetcher{rng: newRNG(seed)}
}

func (f *MockTwitterFetcher) Source() string { return model.SourceTwitter }

func (f *MockTwitterFetcher) Fetch(_ context.Context, p *model.Personality) (*model.RawSignal, error) {
	payload := TwitterPayload{
		Handle:        p.TwitterHandle,
		Followers:     f.rng.int64n(10_000, 50_000_000),
		TweetsLast24h: f.rng.int64n(0, 50),
		Likes:         f.rng.int64n(100, 500_000),
		Retweets:      f.rng.int64n(10, 100_000),
		Mentions:      f.rng.int64n(0, 10_000),
		SentimentRaw:  f.rng.float(-1, 1),
	}
	return wrapSignal(p.ID, model.SourceTwitter, payload)
}

// MockYouTubeFetcher generates randomized YouTube metric payloads.
type MockYouTubeFetcher struct {
	rng *rng
}

// NewMockYouTubeFetcher creates a mock YouTube fetcher. Pass 0 for a
// time-based seed.
func NewMockYouTubeFetcher(seed int64) *MockYouTubeFetcher {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &MockYouTubeFetcher{rng: newRNG(seed)}
}

func (f *MockYouTubeFetcher) Source() string { return model.SourceYouTube }

func (f *MockYouTubeFetcher) Fetch(_ context.Context, p *model.Personality) (*model.RawSignal, error) {
	payload := YouTubePayload{
		ChannelID:     p.YouTubeChannelID,
		Subscribers:   f.rng.int64n(50_000, 200_000_000),
		VideosLast24h: f.rng.int64n(0, 5),
		Views:         f.rng.int64n(1_000, 10_000_000),
		Likes:         f.rng.int64n(100, 500_000),
		Comments:      f.rng.int64n(10, 50_000),
		SentimentRaw:  f.rng.float(-1, 1),
	}
	return wrapSignal(p.ID, model.SourceYouTube, payload)
}

func wrapSignal(personalityID, source string, payload any) (*model.RawSignal, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", source, err)
	}
	return &model.RawSignal{
		ID:            uuid.New().String(),
		PersonalityID: personalityID,
		Source:        source,
		Payload:       raw,
		Timestamp:     time.Now().UTC(),
	}, nil
}
