package signals

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/pricing"
)

// Features is the numeric summary of recent social activity that feeds the
// momentum scorer. All values are rounded to score precision.
type Features struct {
	SentimentScore  decimal.Decimal `json:"sentiment_score"`
	EngagementDelta decimal.Decimal `json:"engagement_delta"`
	VolumeVelocity  decimal.Decimal `json:"volume_velocity"`
}

// ZeroFeatures is the neutral feature vector used when no signals exist yet.
func ZeroFeatures() Features {
	return Features{
		SentimentScore:  decimal.Zero,
		EngagementDelta: decimal.Zero,
		VolumeVelocity:  decimal.Zero,
	}
}

var (
	twoD   = decimal.NewFromInt(2)
	threeD = decimal.NewFromInt(3)
	tenD   = decimal.NewFromInt(10)
)

// engagement collapses a payload's interaction counts into one weighted
// number. Retweets weigh double on Twitter; on YouTube likes weigh double
// and comments triple, since each represents a stronger action than a view.
func engagement(source string, payload json.RawMessage) (decimal.Decimal, error) {
	switch source {
	case model.SourceTwitter:
		var p TwitterPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return decimal.Zero, fmt.Errorf("decode twitter payload: %w", err)
		}
		likes := decimal.NewFromInt(p.Likes)
		retweets := decimal.NewFromInt(p.Retweets)
		mentions := decimal.NewFromInt(p.Mentions)
		return likes.Add(retweets.Mul(twoD)).Add(mentions), nil
	case model.SourceYouTube:
		var p YouTubePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return decimal.Zero, fmt.Errorf("decode youtube payload: %w", err)
		}
		views := decimal.NewFromInt(p.Views)
		likes := decimal.NewFromInt(p.Likes)
		comments := decimal.NewFromInt(p.Comments)
		return views.Add(likes.Mul(twoD)).Add(comments.Mul(threeD)), nil
	default:
		return decimal.Zero, fmt.Errorf("unknown signal source %q", source)
	}
}

// sentimentAndVolume pulls the raw sentiment and posting-volume numbers out
// of a payload. Volume velocity is posts in the last 24h, with YouTube
// uploads scaled by 10 since a video takes far more effort than a tweet.
func sentimentAndVolume(source string, payload json.RawMessage) (sentiment, volume decimal.Decimal, err error) {
	switch source {
	case model.SourceTwitter:
		var p TwitterPayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("decode twitter payload: %w", err)
		}
		return decimal.NewFromFloat(p.SentimentRaw), decimal.NewFromInt(p.TweetsLast24h), nil
	case model.SourceYouTube:
		var p YouTubePayload
		if err := json.Unmarshal(payload, &p); err != nil {
			return decimal.Zero, decimal.Zero, fmt.Errorf("decode youtube payload: %w", err)
		}
		return decimal.NewFromFloat(p.SentimentRaw), decimal.NewFromInt(p.VideosLast24h).Mul(tenD), nil
	default:
		return decimal.Zero, decimal.Zero, fmt.Errorf("unknown signal source %q", source)
	}
}

// Extract computes the feature vector for a signal. The engagement delta is
// the relative change against the previous signal from the same source;
// without a previous observation it is zero, never undefined.
func Extract(sig *model.RawSignal, prev *model.RawSignal) (Features, error) {
	sentiment, volume, err := sentimentAndVolume(sig.Source, sig.Payload)
	if err != nil {
		return Features{}, err
	}

	delta := decimal.Zero
	if prev != nil {
		curEng, err := engagement(sig.Source, sig.Payload)
		if err != nil {
			return Features{}, err
		}
		prevEng, err := engagement(prev.Source, prev.Payload)
		if err != nil {
			return Features{}, err
		}
		if prevEng.IsPositive() {
			delta = curEng.Sub(prevEng).Div(prevEng)
		}
	}

	return Features{
		SentimentScore:  pricing.RoundScore(sentiment),
		EngagementDelta: pricing.RoundScore(delta),
		VolumeVelocity:  pricing.RoundScore(volume),
	}, nil
}

// Aggregate averages feature vectors across sources. An empty slice yields
// the neutral vector.
func Aggregate(feats []Features) Features {
	if len(feats) == 0 {
		return ZeroFeatures()
	}
	sum := ZeroFeatures()
	for _, f := range feats {
		sum.SentimentScore = sum.SentimentScore.Add(f.SentimentScore)
		sum.EngagementDelta = sum.EngagementDelta.Add(f.EngagementDelta)
		sum.VolumeVelocity = sum.VolumeVelocity.Add(f.VolumeVelocity)
	}
	n := decimal.NewFromInt(int64(len(feats)))
	return Features{
		SentimentScore:  pricing.RoundScore(sum.SentimentScore.Div(n)),
		EngagementDelta: pricing.RoundScore(sum.EngagementDelta.Div(n)),
		VolumeVelocity:  pricing.RoundScore(sum.VolumeVelocity.Div(n)),
	}
}
