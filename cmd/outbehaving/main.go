package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/outbehaving/outbehaving-api/internal/config"
	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/handler"
	"github.com/outbehaving/outbehaving-api/internal/infra/cache"
	"github.com/outbehaving/outbehaving-api/internal/infra/observability"
	"github.com/outbehaving/outbehaving-api/internal/infra/resilience"
	"github.com/outbehaving/outbehaving-api/internal/infra/supabase"
	"github.com/outbehaving/outbehaving-api/internal/service"
	"github.com/outbehaving/outbehaving-api/internal/state"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	_ = godotenv.Load()

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel, cfg.AppName, cfg.AppEnv)
	defer logger.Sync()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("cache_ttl", cfg.CacheTTL),
	)

	// The API cannot run without its backend.
	if cfg.SupabaseURL == "" || cfg.SupabaseAnonKey == "" {
		logger.Fatal("SUPABASE_URL and SUPABASE_ANON_KEY must be set")
	}

	// --- Tracing ---
	shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, cfg.AppName)
	if err != nil {
		logger.Fatal("failed to init tracer", zap.Error(err))
	}
	defer shutdown(context.Background())

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Caches (shared catalogue data) ---
	articleCache := cache.New[[]domain.Article](cfg.CacheTTL)
	rewardCache := cache.New[[]domain.Reward](cfg.CacheTTL)

	// --- Backend client ---
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}
	cb := resilience.NewCircuitBreaker("supabase")
	backend := supabase.NewClient(
		httpClient,
		cfg.SupabaseURL,
		cfg.SupabaseAnonKey,
		cfg.SupabaseServiceKey,
		cb,
		logger,
	)

	// --- Tier ladder ---
	ladder := domain.NewTierLadder([]domain.TierThreshold{
		{Tier: domain.TierBronze, MinPoints: 0},
		{Tier: domain.TierSilver, MinPoints: cfg.TierSilverMin},
		{Tier: domain.TierGold, MinPoints: cfg.TierGoldMin},
		{Tier: domain.TierPlatinum, MinPoints: cfg.TierPlatinumMin},
	})

	// --- Per-user state containers ---
	goalStates := state.NewRegistry(state.NewGoalsState)
	newsStates := state.NewRegistry(state.NewNewsState)
	userStates := state.NewRegistry(state.NewUserState)
	ownershipStates := state.NewRegistry(func() *state.OwnershipState {
		return state.NewOwnershipState(ladder)
	})

	// --- Services ---
	authSvc := service.NewAuthService(backend, cfg.JWTSecret, logger)
	usersSvc := service.NewUsersService(backend, backend, backend, userStates, logger)
	goalsSvc := service.NewGoalsService(backend, backend, backend, goalStates, metrics, logger, cfg.PointsGoalCompleted)
	newsSvc := service.NewNewsService(backend, backend, articleCache, newsStates, metrics, logger, cfg.PointsArticleRead)
	ownershipSvc := service.NewOwnershipService(backend, rewardCache, ownershipStates, metrics, logger)

	// Tear down per-user containers on sign-out so the next session
	// starts clean.
	authSvc.OnAuthStateChange(func(event, userID string) {
		if event == domain.AuthEventSignedOut {
			goalStates.Drop(userID)
			newsStates.Drop(userID)
			userStates.Drop(userID)
			ownershipStates.Drop(userID)
		}
	})

	// --- Router ---
	router := handler.NewRouter(
		authSvc, usersSvc, goalsSvc, newsSvc, ownershipSvc,
		handler.RouterConfig{
			WebhookVerifyToken: cfg.WebhookVerifyToken,
			EngagementPoints: handler.EngagementPoints(
				cfg.PointsArticleRead,
				cfg.PointsGoalCompleted,
				cfg.PointsReferral,
				cfg.PointsDayActive,
			),
		},
		metrics,
		logger,
	)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}

	logger.Info("server stopped")
}
