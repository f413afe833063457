package handler

import (
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/format"
	"github.com/outbehaving/outbehaving-api/internal/service"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

// ============================================================
// Goals — /v1/users/{userId}/goals
// ============================================================

// goalResponse decorates a goal with display strings so clients render
// consistent en-GB currency and dates.
type goalResponse struct {
	domain.GoalWithProgress
	Display goalDisplay `json:"display"`
}

type goalDisplay struct {
	TargetAmount string `json:"target_amount"`
	SavedAmount  string `json:"saved_amount"`
	Progress     string `json:"progress"`
	DueDate      string `json:"due_date,omitempty"`
}

func decorateGoal(g domain.GoalWithProgress) goalResponse {
	d := goalDisplay{
		TargetAmount: format.Currency(g.TargetAmount),
		SavedAmount:  format.Currency(g.SavedAmount),
		Progress:     format.Percentage(g.ProgressPercentage),
	}
	if g.DueDate != "" {
		d.DueDate = format.DateISO(g.DueDate)
	}
	return goalResponse{GoalWithProgress: g, Display: d}
}

func decorateGoals(goals []domain.GoalWithProgress) []goalResponse {
	out := make([]goalResponse, 0, len(goals))
	for _, g := range goals {
		out = append(out, decorateGoal(g))
	}
	return out
}

func listGoalsHandler(svc *service.GoalsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/goals")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		span.SetAttributes(attribute.String("user.id", userID))

		goals, err := svc.List(ctx, userID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"goals": decorateGoals(goals)})
	}
}

func getGoalHandler(svc *service.GoalsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "GET /v1/users/{userId}/goals/{goalId}")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		goalID := chi.URLParam(r, "goalId")

		goal, err := svc.Get(ctx, userID, goalID)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, decorateGoal(*goal))
	}
}

func createGoalHandler(svc *service.GoalsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/goals")
		defer span.End()

		userID := chi.URLParam(r, "userId")

		req, err := decodeAndValidate[struct {
			Name            string   `json:"name" validate:"required"`
			Description     string   `json:"description"`
			TargetAmount    float64  `json:"target_amount" validate:"gte=0"`
			Frequency       string   `json:"frequency"`
			DueDate         string   `json:"due_date"`
			RegularAmount   *float64 `json:"regular_amount"`
			LinkedAccountID string   `json:"linked_account_id"`
		}](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		goal, err := svc.Create(ctx, userID, domain.GoalInput{
			Name:            req.Name,
			Description:     req.Description,
			TargetAmount:    req.TargetAmount,
			Frequency:       req.Frequency,
			DueDate:         req.DueDate,
			RegularAmount:   req.RegularAmount,
			LinkedAccountID: req.LinkedAccountID,
		})
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, decorateGoal(*goal))
	}
}

func updateGoalHandler(svc *service.GoalsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "PATCH /v1/users/{userId}/goals/{goalId}")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		goalID := chi.URLParam(r, "goalId")

		upd, err := decodeAndValidate[domain.GoalUpdate](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		goal, err := svc.Update(ctx, userID, goalID, *upd)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusOK, decorateGoal(*goal))
	}
}

func deleteGoalHandler(svc *service.GoalsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "DELETE /v1/users/{userId}/goals/{goalId}")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		goalID := chi.URLParam(r, "goalId")

		if err := svc.Delete(ctx, userID, goalID); err != nil {
			handleServiceError(w, err, logger)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func goalPaymentHandler(svc *service.GoalsService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, span := tracer.Start(r.Context(), "POST /v1/users/{userId}/goals/{goalId}/payments")
		defer span.End()

		userID := chi.URLParam(r, "userId")
		goalID := chi.URLParam(r, "goalId")
		span.SetAttributes(attribute.String("goal.id", goalID))

		req, err := decodeAndValidate[struct {
			Amount float64 `json:"amount" validate:"required,gt=0"`
		}](r)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}

		goal, err := svc.MakePayment(ctx, userID, goalID, req.Amount)
		if err != nil {
			handleServiceError(w, err, logger)
			return
		}
		writeJSON(w, http.StatusCreated, decorateGoal(*goal))
	}
}
