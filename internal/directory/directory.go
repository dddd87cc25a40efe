// Package directory manages the catalog of tracked personalities: creation,
// slug and handle validation, and lookups used by the trading and scoring
// paths.
package directory

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/store"
)

var (
	// ErrMissingName is returned when a personality has no name.
	ErrMissingName = errors.New("directory: name is required")

	// ErrInvalidSlug is returned when a slug has characters outside
	// [a-z0-9-] or is empty.
	ErrInvalidSlug = errors.New("directory: invalid slug")

	// ErrInvalidHandle is returned when a twitter handle fails validation.
	ErrInvalidHandle = errors.New("directory: invalid twitter handle")
)

// slugRegex matches lowercase kebab-case identifiers: taylor-swift, mrbeast.
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(-[a-z0-9]+)*$`)

// handleRegex matches twitter handles after the optional @ is stripped.
var handleRegex = regexp.MustCompile(`^[A-Za-z0-9_]{1,15}$`)

// Slugify derives a slug from a display name: lowercase, spaces to hyphens,
// everything else dropped.
func Slugify(name string) string {
	var b strings.Builder
	lastHyphen := true // suppress leading hyphen
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastHyphen = false
		case (r == ' ' || r == '-' || r == '_') && !lastHyphen:
			b.WriteRune('-')
			lastHyphen = true
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// NormalizeHandle strips a leading @ and validates the remainder.
func NormalizeHandle(handle string) (string, error) {
	if handle == "" {
		return "", nil
	}
	handle = strings.TrimPrefix(handle, "@")
	if !handleRegex.MatchString(handle) {
		return "", fmt.Errorf("%w: %s", ErrInvalidHandle, handle)
	}
	return handle, nil
}

// Service is the personality directory: the authority on which
// personalities exist and which are active.
type Service struct {
	store store.Store
}

// NewService creates a personality directory backed by the given store.
func NewService(st store.Store) *Service {
	return &Service{store: st}
}

// Create registers a new personality. The slug defaults to a slugified
// name when empty; twitter handles are normalized before storage.
func (s *Service) Create(ctx context.Context, name, slug, description, twitterHandle, youtubeChannelID, imageURL string) (*model.Personality, error) {
	if strings.TrimSpace(name) == "" {
		return nil, ErrMissingName
	}
	if slug == "" {
		slug = Slugify(name)
	}
	if !slugRegex.MatchString(slug) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSlug, slug)
	}

	handle, err := NormalizeHandle(twitterHandle)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	p := &model.Personality{
		ID:               uuid.New().String(),
		Name:             name,
		Slug:             slug,
		Description:      description,
		TwitterHandle:    handle,
		YouTubeChannelID: youtubeChannelID,
		ImageURL:         imageURL,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := s.store.CreatePersonality(ctx, p); err != nil {
		return nil, fmt.Errorf("create personality: %w", err)
	}
	return p, nil
}

// Get returns a personality by ID.
func (s *Service) Get(ctx context.Context, id string) (*model.Personality, error) {
	return s.store.GetPersonality(ctx, id)
}

// GetBySlug returns a personality by slug.
func (s *Service) GetBySlug(ctx context.Context, slug string) (*model.Personality, error) {
	return s.store.GetPersonalityBySlug(ctx, slug)
}

// ListActive returns all active personalities.
func (s *Service) ListActive(ctx context.Context) ([]model.Personality, error) {
	return s.store.ListActivePersonalities(ctx)
}
