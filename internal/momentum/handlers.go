package momentum

import (
	"context"
	"net/http"
	"strconv"

	"github.com/aurapoints/aura-engine/internal/httpjson"
	"github.com/aurapoints/aura-engine/internal/model"
)

// TopGainers handles GET /api/v1/leaderboard/gainers: personalities ranked
// by momentum score, highest first.
func (u *Updater) TopGainers(w http.ResponseWriter, r *http.Request) {
	u.leaderboard(w, r, true)
}

// TopLosers handles GET /api/v1/leaderboard/losers: personalities ranked by
// momentum score, lowest first.
func (u *Updater) TopLosers(w http.ResponseWriter, r *http.Request) {
	u.leaderboard(w, r, false)
}

func (u *Updater) leaderboard(w http.ResponseWriter, r *http.Request, desc bool) {
	limit := 10
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 && n <= 100 {
			limit = n
		}
	}

	entries, err := u.store.ListByMomentum(r.Context(), desc, limit)
	if err != nil {
		httpjson.Error(w, "failed to load leaderboard", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []model.MomentumEntry{}
	}
	httpjson.Write(w, http.StatusOK, entries)
}

// TriggerRefresh handles POST /api/v1/admin/refresh-scores: kicks off one
// scoring cycle out of band and returns immediately.
func (u *Updater) TriggerRefresh(w http.ResponseWriter, _ *http.Request) {
	go u.RunCycle(context.Background())
	httpjson.Write(w, http.StatusAccepted, map[string]string{"status": "refresh started"})
}
