package handler

import (
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/infra/observability"
	"github.com/outbehaving/outbehaving-api/internal/service"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var tracer = otel.Tracer("handler")

// RouterConfig carries everything the router needs beyond the services.
type RouterConfig struct {
	WebhookVerifyToken string
	EngagementPoints   map[string]engagementActivity
}

// EngagementPoints builds the activity table from configured point values.
func EngagementPoints(articleRead, goalCompleted, referral, dayActive int) map[string]engagementActivity {
	return map[string]engagementActivity{
		"article_read":   {Points: articleRead, Counter: "articles_read_count"},
		"goal_completed": {Points: goalCompleted},
		"referral":       {Points: referral, Counter: "referrals_count"},
		"day_active":     {Points: dayActive, Counter: "days_active_count"},
	}
}

// NewRouter creates the HTTP router with all routes and middleware.
func NewRouter(
	authSvc *service.AuthService,
	usersSvc *service.UsersService,
	goalsSvc *service.GoalsService,
	newsSvc *service.NewsService,
	ownershipSvc *service.OwnershipService,
	cfg RouterConfig,
	metrics *observability.Metrics,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- Middleware ---
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(observability.ZapLoggerMiddleware(logger))
	r.Use(observability.TracingMiddleware)
	r.Use(MetricsMiddleware(metrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://*", "http://*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// --- Operational endpoints ---
	r.Get("/healthz", healthzHandler())
	r.Get("/readyz", readyzHandler())
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))

	// --- Chat platform webhook (token-verified, not JWT) ---
	r.HandleFunc("/webhook", webhookHandler(cfg.WebhookVerifyToken, metrics, logger))

	// --- API v1 ---
	r.Route("/v1", func(r chi.Router) {
		r.Get("/metrics/app", appMetricsHandler(metrics))

		// Auth
		r.Route("/auth", func(r chi.Router) {
			if authSvc == nil {
				r.Handle("/*", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					writeError(w, http.StatusServiceUnavailable, "auth service unavailable: backend not configured")
				}))
				return
			}
			r.Post("/signup", authSignUpHandler(authSvc, logger))
			r.Post("/signin", authSignInHandler(authSvc, logger))
			r.Post("/refresh", authRefreshHandler(authSvc, logger))

			r.Group(func(r chi.Router) {
				r.Use(JWTAuthMiddleware(authSvc, logger))
				r.Post("/signout", authSignOutHandler(authSvc, logger))
				r.Get("/me", authMeHandler(authSvc, logger))
			})
		})

		// User-scoped routes. Every route checks the path user against the
		// token subject; users only ever see their own data.
		if authSvc == nil {
			return
		}
		r.Route("/users/{userId}", func(r chi.Router) {
			r.Use(JWTAuthMiddleware(authSvc, logger))
			r.Use(RequireSelf)

			if usersSvc != nil {
				r.Get("/profile", getProfileHandler(usersSvc, logger))
				r.Patch("/profile", updateProfileHandler(usersSvc, logger))
				r.Get("/accounts", listAccountsHandler(usersSvc, logger))
				r.Post("/accounts", linkAccountHandler(usersSvc, logger))
				r.Put("/interests", setInterestsHandler(usersSvc, logger))
				r.Put("/champions", setChampionsHandler(usersSvc, logger))
				r.Post("/avatar", uploadAvatarHandler(usersSvc, logger))
				r.Delete("/avatar", deleteAvatarHandler(usersSvc, logger))
			}

			if goalsSvc != nil {
				r.Get("/goals", listGoalsHandler(goalsSvc, logger))
				r.Post("/goals", createGoalHandler(goalsSvc, logger))
				r.Get("/goals/{goalId}", getGoalHandler(goalsSvc, logger))
				r.Patch("/goals/{goalId}", updateGoalHandler(goalsSvc, logger))
				r.Delete("/goals/{goalId}", deleteGoalHandler(goalsSvc, logger))
				r.Post("/goals/{goalId}/payments", goalPaymentHandler(goalsSvc, logger))
			}

			if newsSvc != nil {
				r.Get("/articles", listArticlesHandler(newsSvc, logger))
				r.Post("/articles/{articleId}/favourite", toggleFavouriteHandler(newsSvc, logger))
				r.Post("/articles/{articleId}/reads", markArticleReadHandler(newsSvc, logger))
			}

			if ownershipSvc != nil {
				r.Get("/ownership", ownershipStatusHandler(ownershipSvc, logger))
				r.Get("/rewards", listRewardsHandler(ownershipSvc, logger))
				r.Post("/rewards/{rewardId}/redemptions", redeemRewardHandler(ownershipSvc, logger))
				r.Post("/engagement/events", engagementEventHandler(ownershipSvc, cfg.EngagementPoints, logger))
			}
		})
	})

	return r
}

// ============================================================
// Operational handlers
// ============================================================

func healthzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, domain.HealthStatus{
			Status:  "healthy",
			Backend: "supabase",
		})
	}
}

func readyzHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func appMetricsHandler(metrics *observability.Metrics) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, metrics.Snapshot())
	}
}
