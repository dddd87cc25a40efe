package parlay

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/httpjson"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/store"
)

// CreateRequest is the JSON body for POST /api/v1/parlays.
type CreateRequest struct {
	UserID        string            `json:"user_id"`
	Name          string            `json:"name"`
	Description   string            `json:"description,omitempty"`
	Legs          []model.ParlayLeg `json:"legs"`
	TotalStake    decimal.Decimal   `json:"total_stake"`
	SettlementRef string            `json:"settlement_ref,omitempty"`
}

// CreateParlay handles POST /api/v1/parlays
func (e *Engine) CreateParlay(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpjson.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	p, err := e.Create(r.Context(), req.UserID, req.Name, req.Description,
		req.Legs, req.TotalStake, req.SettlementRef)
	if err != nil {
		httpjson.Error(w, err.Error(), statusCode(err))
		return
	}

	httpjson.Write(w, http.StatusCreated, p)
}

// GetParlay handles GET /api/v1/parlays/{parlayID}
func (e *Engine) GetParlay(w http.ResponseWriter, r *http.Request) {
	p, err := e.Get(r.Context(), chi.URLParam(r, "parlayID"))
	if err != nil {
		httpjson.Error(w, "parlay not found", http.StatusNotFound)
		return
	}
	httpjson.Write(w, http.StatusOK, p)
}

// UserParlays handles GET /api/v1/parlays/user/{userID}
func (e *Engine) UserParlays(w http.ResponseWriter, r *http.Request) {
	limit, offset := 100, 0
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	parlays, err := e.ListByUser(r.Context(), chi.URLParam(r, "userID"), limit, offset)
	if err != nil {
		httpjson.Error(w, "failed to list parlays", http.StatusInternalServerError)
		return
	}
	if parlays == nil {
		parlays = []model.Parlay{}
	}
	httpjson.Write(w, http.StatusOK, parlays)
}

func statusCode(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrTooFewLegs), errors.Is(err, ErrInvalidStake),
		errors.Is(err, ErrInvalidThreshold), errors.Is(err, ErrInvalidDirection),
		errors.Is(err, ErrMissingUser):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
