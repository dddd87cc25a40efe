package directory_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/go-chi/chi/v5"

	"github.com/aurapoints/aura-engine/internal/directory"
	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/locks"
	"github.com/aurapoints/aura-engine/internal/model"
	"github.com/aurapoints/aura-engine/internal/store"
)

func newTestEnv() (*directory.Service, *ledger.Ledger, chi.Router) {
	ms := store.NewMemoryStore()
	lg := ledger.New(ms, locks.NewPerKey())
	svc := directory.NewService(ms)
	h := directory.NewHandlers(svc, lg)

	r := chi.NewRouter()
	r.Post("/api/v1/personalities", h.CreatePersonality)
	r.Get("/api/v1/personalities", h.ListPersonalities)
	r.Get("/api/v1/personalities/{personalityID}", h.GetPersonality)
	r.Get("/api/v1/personalities/{personalityID}/score", h.GetScore)
	r.Get("/api/v1/personalities/{personalityID}/history", h.GetHistory)

	return svc, lg, r
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Taylor Swift":    "taylor-swift",
		"MrBeast":         "mrbeast",
		"  Elon  Musk  ":  "elon-musk",
		"DJ_Khaled":       "dj-khaled",
		"100 Thieves!!!":  "100-thieves",
		"Ünïcode Person":  "ncode-person",
	}
	for in, want := range cases {
		if got := directory.Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNormalizeHandle(t *testing.T) {
	got, err := directory.NormalizeHandle("@taylorswift13")
	if err != nil {
		t.Fatalf("normalize failed: %v", err)
	}
	if got != "taylorswift13" {
		t.Errorf("handle = %q, want @ stripped", got)
	}

	if _, err := directory.NormalizeHandle("has spaces"); !errors.Is(err, directory.ErrInvalidHandle) {
		t.Errorf("err = %v, want invalid handle", err)
	}
	if _, err := directory.NormalizeHandle("@way_too_long_for_twitter"); !errors.Is(err, directory.ErrInvalidHandle) {
		t.Errorf("err = %v, want invalid handle for >15 chars", err)
	}

	// Empty handle is allowed: not every personality is on Twitter.
	if got, err := directory.NormalizeHandle(""); err != nil || got != "" {
		t.Errorf("empty handle: got %q, %v", got, err)
	}
}

func TestCreate_DefaultsSlugFromName(t *testing.T) {
	svc, _, _ := newTestEnv()

	p, err := svc.Create(context.Background(), "Taylor Swift", "", "", "@taylorswift13", "", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if p.Slug != "taylor-swift" {
		t.Errorf("slug = %q, want taylor-swift", p.Slug)
	}
	if p.TwitterHandle != "taylorswift13" {
		t.Errorf("handle = %q, want normalized", p.TwitterHandle)
	}
	if !p.IsActive {
		t.Error("new personality should be active")
	}
}

func TestCreate_Validation(t *testing.T) {
	svc, _, _ := newTestEnv()
	ctx := context.Background()

	if _, err := svc.Create(ctx, "  ", "", "", "", "", ""); !errors.Is(err, directory.ErrMissingName) {
		t.Errorf("err = %v, want missing name", err)
	}
	if _, err := svc.Create(ctx, "X", "Bad Slug", "", "", "", ""); !errors.Is(err, directory.ErrInvalidSlug) {
		t.Errorf("err = %v, want invalid slug", err)
	}
	if _, err := svc.Create(ctx, "X", "x", "", "bad handle", "", ""); !errors.Is(err, directory.ErrInvalidHandle) {
		t.Errorf("err = %v, want invalid handle", err)
	}
}

func TestCreateHandler_SeedsScore(t *testing.T) {
	_, lg, router := newTestEnv()

	body, _ := json.Marshal(directory.CreateRequest{Name: "MrBeast"})
	req := httptest.NewRequest("POST", "/api/v1/personalities", bytes.NewReader(body))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", w.Code, w.Body.String())
	}

	var p model.Personality
	if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	sc, err := lg.GetOrCreate(context.Background(), p.ID)
	if err != nil {
		t.Fatalf("get score: %v", err)
	}
	if !sc.CurrentScore.Equal(decimal.NewFromInt(100)) {
		t.Errorf("seeded score = %s, want 100", sc.CurrentScore)
	}
}

func TestGetHandler_FallsBackToSlug(t *testing.T) {
	svc, _, router := newTestEnv()

	created, err := svc.Create(context.Background(), "MrBeast", "", "", "", "", "")
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	for _, key := range []string{created.ID, "mrbeast"} {
		req := httptest.NewRequest("GET", "/api/v1/personalities/"+key, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		if w.Code != http.StatusOK {
			t.Errorf("lookup by %q: status = %d", key, w.Code)
			continue
		}
		var p model.Personality
		if err := json.Unmarshal(w.Body.Bytes(), &p); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if p.ID != created.ID {
			t.Errorf("lookup by %q returned %s", key, p.ID)
		}
	}

	req := httptest.NewRequest("GET", "/api/v1/personalities/nope", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown key: status = %d, want 404", w.Code)
	}
}
