package handler

import (
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Ownership — /v1/users/{userId}/ownership, rewards, engagement
// ============================================================

func ownershipStatusHandler(svc *service.OwnershipService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/ownership")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		span.SetAttributes(attribute.String("user.id", userID))

		status, err := svc.Status(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

func listRewardsHandler(svc *service.OwnershipService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/rewards")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		status, err := svc.Status(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"rewards": status.Rewards})
	}
}

func redeemRewardHandler(svc *service.OwnershipService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/rewards/{rewardId}/redemptions")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		rewardID := chi.URLParam(r, "rewardId")
		span.SetAttributes(attribute.String("reward.id", rewardID))

		ur, err := svc.Redeem(ctx, userID, rewardID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, ur)
	}
}

// engagementEventHandler awards points for a named activity. Activity
// point values come from configuration; clients name the activity only.
func engagementEventHandler(svc *service.OwnershipService, points map[string]engagementActivity, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/engagement/events")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		req, err := decodeAndValidate[struct {
			Activity string `json:"activity" validate:"required"`
		}](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		activity, ok := points[req.Activity]
		if !ok {
			writeError(w, http.StatusBadRequest, msgValidation)
			return
		}
		span.SetAttributes(attribute.String("engagement.activity", req.Activity))

		status, err := svc.Award(ctx, userID, activity.Points, req.Activity, activity.Counter)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// engagementActivity binds an activity name to its point value and the
// engagement counter column it bumps.
type engagementActivity struct {
	Points  int
	Counter string
}
