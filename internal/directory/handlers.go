package directory

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aurapoints/aura-engine/internal/httpjson"
	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/store"
)

// Handlers exposes the personality catalog and score history over HTTP.
type Handlers struct {
	svc    *Service
	ledger *ledger.Ledger
}

// NewHandlers wires the directory service and score ledger into HTTP handlers.
func NewHandlers(svc *Service, lg *ledger.Ledger) *Handlers {
	return &Handlers{svc: svc, ledger: lg}
}

// CreateRequest is the JSON body for POST /api/v1/personalities.
type CreateRequest struct {
	Name             string `json:"name"`
	Slug             string `json:"slug,omitempty"`
	Description      string `json:"description,omitempty"`
	TwitterHandle    string `json:"twitter_handle,omitempty"`
	YouTubeChannelID string `json:"youtube_channel_id,omitempty"`
	ImageURL         string `json:"image_url,omitempty"`
}

// CreatePersonality handles POST /api/v1/personalities
func (h *Handlers) CreatePersonality(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := h.svc.Create(r.Context(), req.Name, req.Slug, req.Description,
		req.TwitterHandle, req.YouTubeChannelID, req.ImageURL)
	if err != nil {
		httpjson.Error(w, err.Error(), createStatusCode(err))
		return
	}

	// Seed the score row eagerly so a new personality is tradeable and
	// quotable immediately.
	if _, err := h.ledger.GetOrCreate(r.Context(), p.ID); err != nil {
		httpjson.Error(w, "failed to seed score", http.StatusInternalServerError)
		return
	}

	httpjson.Write(w, http.StatusCreated, p)
}

// ListPersonalities handles GET /api/v1/personalities
func (h *Handlers) ListPersonalities(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.ListActive(r.Context())
	if err != nil {
		httpjson.Error(w, "failed to list personalities", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []model.Personality{}
	}
	httpjson.Write(w, http.StatusOK, list)
}

// GetPersonality handles GET /api/v1/personalities/{personalityID}.
// The path segment may be a UUID or a slug.
func (h *Handlers) GetPersonality(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "personalityID")

	p, err := h.svc.Get(r.Context(), key)
	if errors.Is(err, store.ErrNotFound) {
		p, err = h.svc.GetBySlug(r.Context(), key)
	}
	if err != nil {
		httpjson.Error(w, "personality not found", http.StatusNotFound)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// GetScore handles GET /api/v1/personalities/{personalityID}/score.
// Reading a score creates it at the base value when missing.
func (h *Handlers) GetScore(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personalityID")

	if _, err := h.svc.Get(r.Context(), id); err != nil {
		httpjson.Error(w, "personality not found", http.StatusNotFound)
		return
	}

	sc, err := h.ledger.GetOrCreate(r.Context(), id)
	if err != nil {
		httpjson.Error(w, "failed to load score", http.StatusInternalServerError)
		return
	}
	httpjson.Write(w, http.StatusOK, sc)
}

// GetHistory handles GET /api/v1/personalities/{personalityID}/history.
// Query params: hours (default 24, max 720) and limit (default 500).
func (h *Handlers) GetHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "personalityID")

	hours := 24
	if v := r.URL.Query().Get("hours"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 720 {
			hours = n
		}
	}
	limit := 500
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 5000 {
			limit = n
		}
	}

	since := time.Now().UTC().Add(-time.Duration(hours) * time.Hour)
	snaps, err := h.ledger.History(r.Context(), id, since, limit)
	if err != nil {
		httpjson.Error(w, "failed to load history", http.StatusInternalServerError)
		return
	}
	if snaps == nil {
		snaps = []model.ScoreSnapshot{}
	}
	httpjson.Write(w, http.StatusOK, snaps)
}

func createStatusCode(err error) int {
	switch {
	case errors.Is(err, ErrMissingName), errors.Is(err, ErrInvalidSlug),
		errors.Is(err, ErrInvalidHandle):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
