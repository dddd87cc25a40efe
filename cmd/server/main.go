package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/aurapoints/aura-engine/internal/directory"
	"github.com/aurapoints/aura-engine/internal/ledger"
	"github.com/aurapoints/aura-engine/internal/limits"
	"github.com/aurapoints/aura-engine/internal/locks"
	"github.com/aurapoints/aura-engine/internal/metrics"
	"github.com/aurapoints/aura-engine/internal/momentum"
	"github.com/aurapoints/aura-engine/internal/parlay"
	"github.com/aurapoints/aura-engine/internal/signals"
	"github.com/aurapoints/aura-engine/internal/store"
	"github.com/aurapoints/aura-engine/internal/trade"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	updateInterval := 5 * time.Minute
	if v := os.Getenv("UPDATE_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Error("invalid UPDATE_INTERVAL", "err", err)
			os.Exit(1)
		}
		updateInterval = d
	}

	updateWorkers := 4
	if v := os.Getenv("UPDATE_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			slog.Error("invalid UPDATE_WORKERS", "value", v)
			os.Exit(1)
		}
		updateWorkers = n
	}

	// --- Initialize store ---
	var st store.Store
	var cleanup []func()

	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		pool, err := pgxpool.New(context.Background(), dbURL)
		if err != nil {
			slog.Error("database connection failed", "err", err)
			os.Exit(1)
		}
		cleanup = append(cleanup, pool.Close)
		st = store.NewPostgresStore(pool)
		slog.Info("connected to PostgreSQL")

		// Wrap with Redis read-through cache if configured.
		if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
			opt, err := redis.ParseURL(redisURL)
			if err != nil {
				slog.Error("invalid REDIS_URL", "err", err)
				os.Exit(1)
			}
			rdb := redis.NewClient(opt)
			cleanup = append(cleanup, func() { rdb.Close() })
			st = store.NewCachedStore(st, rdb, 30*time.Second)
			slog.Info("Redis cache enabled")
		}
	} else {
		slog.Warn("DATABASE_URL not set, using in-memory store (data will not persist)")
		st = store.NewMemoryStore()
	}

	defer func() {
		for _, fn := range cleanup {
			fn()
		}
	}()

	// One lock set shared by everything that mutates a personality's score
	// row; the ledger and the trade engine must serialize against each other.
	lockSet := locks.NewPerKey()
	scoreLedger := ledger.New(st, lockSet)

	// --- Trade guardrails ---
	limiter := limits.NewTradeLimiter(
		decimal.NewFromInt(10_000),    // max shares per order
		decimal.NewFromInt(1_000_000), // max outstanding shares per personality
	)

	// --- WebSocket hub ---
	wsHub := trade.NewWSHub()
	go wsHub.Run()

	// --- Services ---
	tradeEngine := trade.NewEngine(st, scoreLedger, lockSet, limiter, wsHub)
	parlayEngine := parlay.NewEngine(st)
	dirSvc := directory.NewService(st)
	dirHandlers := directory.NewHandlers(dirSvc, scoreLedger)

	// --- Momentum updater ---
	pipeline := signals.NewPipeline(st,
		signals.NewMockTwitterFetcher(0),
		signals.NewMockYouTubeFetcher(0),
	)
	updater := momentum.NewUpdater(st, scoreLedger, pipeline,
		momentum.NewLinearScorer(), updateInterval, updateWorkers)

	updaterCtx, stopUpdater := context.WithCancel(context.Background())
	defer stopUpdater()
	go updater.Run(updaterCtx)

	// --- HTTP router ---
	r := chi.NewRouter()
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(metrics.Middleware)

	// CORS middleware for frontend cross-origin requests.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == "OPTIONS" {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","service":"aura-engine"}`))
	})

	// Prometheus metrics endpoint.
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		// WebSocket endpoint for real-time price and score updates.
		r.Get("/ws", wsHub.HandleWS)

		// Personality catalog.
		r.Get("/personalities", dirHandlers.ListPersonalities)
		r.Post("/personalities", dirHandlers.CreatePersonality)
		r.Get("/personalities/{personalityID}", dirHandlers.GetPersonality)
		r.Get("/personalities/{personalityID}/score", dirHandlers.GetScore)
		r.Get("/personalities/{personalityID}/history", dirHandlers.GetHistory)
		r.Get("/personalities/{personalityID}/trades", tradeEngine.PersonalityTrades)

		// Trade execution.
		r.Post("/trades/buy", tradeEngine.BuyShares)
		r.Post("/trades/sell", tradeEngine.SellShares)
		r.Get("/trades/user/{userID}", tradeEngine.UserTrades)

		// Parlays.
		r.Post("/parlays", parlayEngine.CreateParlay)
		r.Get("/parlays/{parlayID}", parlayEngine.GetParlay)
		r.Get("/parlays/user/{userID}", parlayEngine.UserParlays)

		// Momentum leaderboards and the manual refresh trigger.
		r.Get("/leaderboard/gainers", updater.TopGainers)
		r.Get("/leaderboard/losers", updater.TopLosers)
		r.Post("/admin/refresh-scores", updater.TriggerRefresh)
	})

	// --- Server ---
	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("aura-engine listening", "port", port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "err", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	stopUpdater()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	slog.Info("shutting down aura-engine...")
	if err := srv.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "err", err)
	}
	fmt.Println("aura-engine stopped")
}
