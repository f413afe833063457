package integration_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
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

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

const testJWTSecret = "integration-test-secret"

// newBackendStub serves canned PostgREST responses for the tables the
// flow touches.
func newBackendStub(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case strings.HasPrefix(r.URL.Path, "/rest/v1/goals"):
			json.NewEncoder(w).Encode([]domain.Goal{
				{
					ID: "goal-1", UserID: "user-1", Name: "Holiday fund",
					TargetAmount: 2000, SavedAmount: 500, Frequency: "monthly",
				},
				{
					ID: "goal-2", UserID: "user-1", Name: "Emergency fund",
					TargetAmount: 1000, SavedAmount: 1000,
				},
			})
		case strings.HasPrefix(r.URL.Path, "/rest/v1/user_engagement"):
			json.NewEncoder(w).Encode([]domain.EngagementMetrics{
				{UserID: "user-1", TotalPoints: 1200, ArticlesReadCount: 12},
			})
		case strings.HasPrefix(r.URL.Path, "/rest/v1/rewards"):
			json.NewEncoder(w).Encode([]domain.Reward{
				{ID: "reward-1", Name: "Free coffee", PointsRequired: 500},
			})
		case strings.HasPrefix(r.URL.Path, "/rest/v1/user_rewards"):
			json.NewEncoder(w).Encode([]domain.UserReward{})
		default:
			json.NewEncoder(w).Encode([]any{})
		}
	}))
}

func newTestServer(t *testing.T, backendURL string) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	metrics := observability.NewMetrics()
	cb := resilience.NewCircuitBreaker("test")
	httpClient := &http.Client{Timeout: 5 * time.Second}
	backend := supabase.NewClient(httpClient, backendURL, "anon-key", "service-key", cb, logger)

	cfg := config.Load()
	ladder := domain.NewTierLadder([]domain.TierThreshold{
		{Tier: domain.TierBronze, MinPoints: 0},
		{Tier: domain.TierSilver, MinPoints: cfg.TierSilverMin},
		{Tier: domain.TierGold, MinPoints: cfg.TierGoldMin},
		{Tier: domain.TierPlatinum, MinPoints: cfg.TierPlatinumMin},
	})

	authSvc := service.NewAuthService(backend, testJWTSecret, logger)
	usersSvc := service.NewUsersService(backend, backend, backend, state.NewRegistry(state.NewUserState), logger)
	goalsSvc := service.NewGoalsService(backend, backend, backend, state.NewRegistry(state.NewGoalsState), metrics, logger, cfg.PointsGoalCompleted)
	newsSvc := service.NewNewsService(backend, backend, cache.New[[]domain.Article](time.Minute), state.NewRegistry(state.NewNewsState), metrics, logger, cfg.PointsArticleRead)
	ownershipSvc := service.NewOwnershipService(backend, cache.New[[]domain.Reward](time.Minute), state.NewRegistry(func() *state.OwnershipState {
		return state.NewOwnershipState(ladder)
	}), metrics, logger)

	return handler.NewRouter(
		authSvc, usersSvc, goalsSvc, newsSvc, ownershipSvc,
		handler.RouterConfig{
			WebhookVerifyToken: cfg.WebhookVerifyToken,
			EngagementPoints: handler.EngagementPoints(
				cfg.PointsArticleRead, cfg.PointsGoalCompleted,
				cfg.PointsReferral, cfg.PointsDayActive,
			),
		},
		metrics, logger,
	)
}

func mintToken(t *testing.T, subject string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testJWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestIntegration_GoalsCarryDerivedProgress(t *testing.T) {
	backend := newBackendStub(t)
	defer backend.Close()
	router := newTestServer(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/goals", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Goals []struct {
			ID                 string  `json:"id"`
			ProgressPercentage float64 `json:"progress_percentage"`
			IsComplete         bool    `json:"is_complete"`
			Display            struct {
				SavedAmount string `json:"saved_amount"`
				Progress    string `json:"progress"`
			} `json:"display"`
		} `json:"goals"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Goals) != 2 {
		t.Fatalf("expected 2 goals, got %d", len(resp.Goals))
	}

	byID := map[string]float64{}
	complete := map[string]bool{}
	for _, g := range resp.Goals {
		byID[g.ID] = g.ProgressPercentage
		complete[g.ID] = g.IsComplete
	}
	if byID["goal-1"] != 25 {
		t.Errorf("expected 25%% for goal-1, got %.2f", byID["goal-1"])
	}
	if !complete["goal-2"] {
		t.Error("expected goal-2 to be complete at 1000/1000")
	}

	for _, g := range resp.Goals {
		if g.ID == "goal-1" && g.Display.SavedAmount != "£500.00" {
			t.Errorf("expected formatted saved amount, got %q", g.Display.SavedAmount)
		}
	}
}

func TestIntegration_OwnershipStatus(t *testing.T) {
	backend := newBackendStub(t)
	defer backend.Close()
	router := newTestServer(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/ownership", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user-1"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var status domain.OwnershipStatus
	if err := json.Unmarshal(rec.Body.Bytes(), &status); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if status.Membership.Tier != domain.TierSilver {
		t.Errorf("expected silver at 1200 points, got %s", status.Membership.Tier)
	}
	if len(status.Rewards) != 1 || !status.Rewards[0].CanRedeem {
		t.Errorf("expected one redeemable reward, got %+v", status.Rewards)
	}
}

func TestIntegration_TokenSubjectMustMatchPath(t *testing.T) {
	backend := newBackendStub(t)
	defer backend.Close()
	router := newTestServer(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/goals", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "user-2"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for mismatched subject, got %d", rec.Code)
	}
}

func TestIntegration_MissingTokenRejected(t *testing.T) {
	backend := newBackendStub(t)
	defer backend.Close()
	router := newTestServer(t, backend.URL)

	req := httptest.NewRequest(http.MethodGet, "/v1/users/user-1/goals", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestIntegration_WebhookHandshakeThroughRouter(t *testing.T) {
	backend := newBackendStub(t)
	defer backend.Close()
	router := newTestServer(t, backend.URL)

	url := fmt.Sprintf("/webhook?hub.mode=subscribe&hub.verify_token=%s&hub.challenge=xyz", "proffyn-secret")
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "xyz" {
		t.Errorf("expected challenge echoed, got %q", rec.Body.String())
	}

	event := bytes.NewReader([]byte(`{"object":"page"}`))
	post := httptest.NewRequest(http.MethodPost, "/webhook", event)
	postRec := httptest.NewRecorder()
	router.ServeHTTP(postRec, post)

	if postRec.Body.String() != "EVENT_RECEIVED" {
		t.Errorf("expected EVENT_RECEIVED, got %q", postRec.Body.String())
	}
}
