package service

import (
	"context"
	"fmt"
	"time"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/infra/observability"
	"github.com/outbehaving/outbehaving-api/internal/port"
	"github.com/outbehaving/outbehaving-api/internal/state"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

var goalsTracer = otel.Tracer("service/goals")

// GoalsService orchestrates savings goal operations: CRUD, derived
// progress and payments from linked accounts.
type GoalsService struct {
	store    port.GoalStore
	accounts port.AccountStore
	points   port.EngagementWriter
	states   *state.Registry[state.GoalsState]
	metrics  *observability.Metrics
	logger   *zap.Logger

	pointsGoalCompleted int
}

// NewGoalsService creates a new goals service.
func NewGoalsService(
	store port.GoalStore,
	accounts port.AccountStore,
	points port.EngagementWriter,
	states *state.Registry[state.GoalsState],
	metrics *observability.Metrics,
	logger *zap.Logger,
	pointsGoalCompleted int,
) *GoalsService {
	return &GoalsService{
		store:               store,
		accounts:            accounts,
		points:              points,
		states:              states,
		metrics:             metrics,
		logger:              logger,
		pointsGoalCompleted: pointsGoalCompleted,
	}
}

// ============================================================
// List — GET /v1/users/{userId}/goals
// ============================================================

func (s *GoalsService) List(ctx context.Context, userID string) ([]domain.GoalWithProgress, error) {
	ctx, span := goalsTracer.Start(ctx, "GoalsService.List")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	st := s.states.For(userID)
	st.SetLoading(true)
	defer st.SetLoading(false)

	goals, err := s.store.ListGoals(ctx, userID)
	if err != nil {
		st.SetError(err.Error())
		return nil, fmt.Errorf("list goals: %w", err)
	}

	st.SetError("")
	st.SetGoals(goals)
	return st.Goals(), nil
}

// ============================================================
// Get — GET /v1/users/{userId}/goals/{goalId}
// ============================================================

func (s *GoalsService) Get(ctx context.Context, userID, goalID string) (*domain.GoalWithProgress, error) {
	ctx, span := goalsTracer.Start(ctx, "GoalsService.Get")
	defer span.End()

	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if goal.UserID != userID {
		return nil, &domain.ErrForbidden{Action: "access this goal"}
	}

	gp := domain.ComputeGoalProgress(*goal, time.Now())
	return &gp, nil
}

// ============================================================
// Create — POST /v1/users/{userId}/goals
// ============================================================

func (s *GoalsService) Create(ctx context.Context, userID string, input domain.GoalInput) (*domain.GoalWithProgress, error) {
	ctx, span := goalsTracer.Start(ctx, "GoalsService.Create")
	defer span.End()

	if input.TargetAmount < 0 {
		return nil, &domain.ErrValidation{Field: "target_amount", Message: "target amount cannot be negative"}
	}
	if input.Frequency != "" && !domain.ValidFrequency(input.Frequency) {
		return nil, &domain.ErrValidation{Field: "frequency", Message: "unknown saving frequency"}
	}

	goal, err := s.store.CreateGoal(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("create goal: %w", err)
	}

	gp := s.states.For(userID).Add(*goal)
	s.logger.Info("goal created",
		zap.String("user_id", userID),
		zap.String("goal_id", goal.ID),
	)
	return &gp, nil
}

// ============================================================
// Update — PATCH /v1/users/{userId}/goals/{goalId}
// ============================================================

func (s *GoalsService) Update(ctx context.Context, userID, goalID string, upd domain.GoalUpdate) (*domain.GoalWithProgress, error) {
	ctx, span := goalsTracer.Start(ctx, "GoalsService.Update")
	defer span.End()

	if upd.Frequency != nil && !domain.ValidFrequency(*upd.Frequency) {
		return nil, &domain.ErrValidation{Field: "frequency", Message: "unknown saving frequency"}
	}

	current, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if current.UserID != userID {
		return nil, &domain.ErrForbidden{Action: "modify this goal"}
	}

	goal, err := s.store.UpdateGoal(ctx, goalID, upd)
	if err != nil {
		return nil, fmt.Errorf("update goal: %w", err)
	}

	gp := s.states.For(userID).Replace(*goal)
	return &gp, nil
}

// ============================================================
// Delete — DELETE /v1/users/{userId}/goals/{goalId}
// ============================================================

func (s *GoalsService) Delete(ctx context.Context, userID, goalID string) error {
	ctx, span := goalsTracer.Start(ctx, "GoalsService.Delete")
	defer span.End()

	current, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return fmt.Errorf("get goal: %w", err)
	}
	if current.UserID != userID {
		return &domain.ErrForbidden{Action: "delete this goal"}
	}

	if err := s.store.DeleteGoal(ctx, goalID); err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}

	s.states.For(userID).Remove(goalID)
	s.logger.Info("goal deleted",
		zap.String("user_id", userID),
		zap.String("goal_id", goalID),
	)
	return nil
}

// ============================================================
// MakePayment — POST /v1/users/{userId}/goals/{goalId}/payments
// ============================================================

// MakePayment moves money from the goal's linked account into the goal.
// The debit and the credit are two separate backend writes; if the credit
// fails the debit is compensated by restoring the previous balance.
func (s *GoalsService) MakePayment(ctx context.Context, userID, goalID string, amount float64) (*domain.GoalWithProgress, error) {
	ctx, span := goalsTracer.Start(ctx, "GoalsService.MakePayment")
	defer span.End()
	span.SetAttributes(
		attribute.String("goal.id", goalID),
		attribute.Float64("payment.amount", amount),
	)

	if amount <= 0 {
		return nil, &domain.ErrValidation{Field: "amount", Message: "payment amount must be positive"}
	}

	goal, err := s.store.GetGoal(ctx, goalID)
	if err != nil {
		return nil, fmt.Errorf("get goal: %w", err)
	}
	if goal.UserID != userID {
		return nil, &domain.ErrForbidden{Action: "pay into this goal"}
	}
	if goal.LinkedAccountID == "" {
		return nil, &domain.ErrValidation{Field: "linked_account_id", Message: "goal has no linked account"}
	}

	acct, err := s.accounts.GetAccount(ctx, goal.LinkedAccountID)
	if err != nil {
		return nil, fmt.Errorf("get linked account: %w", err)
	}
	if acct.UserID != userID {
		return nil, &domain.ErrForbidden{Action: "debit this account"}
	}

	// Exact decimal arithmetic for money; float comparison would let
	// rounding noise slip a payment past the balance check.
	balance := decimal.NewFromFloat(acct.Balance)
	pay := decimal.NewFromFloat(amount)
	if balance.LessThan(pay) {
		return nil, &domain.ErrInsufficientFunds{Available: acct.Balance, Required: amount}
	}

	wasComplete := domain.ComputeGoalProgress(*goal, time.Now()).IsComplete

	newBalance, _ := balance.Sub(pay).Float64()
	if _, err := s.accounts.SetAccountBalance(ctx, acct.ID, newBalance); err != nil {
		return nil, fmt.Errorf("debit account: %w", err)
	}

	newSaved, _ := decimal.NewFromFloat(goal.SavedAmount).Add(pay).Float64()
	updated, err := s.store.UpdateGoal(ctx, goalID, domain.GoalUpdate{SavedAmount: &newSaved})
	if err != nil {
		// Compensate the debit. If this also fails the account is left
		// short and needs manual reconciliation, so log loudly.
		if _, cerr := s.accounts.SetAccountBalance(ctx, acct.ID, acct.Balance); cerr != nil {
			s.logger.Error("payment compensation failed, account balance inconsistent",
				zap.String("account_id", acct.ID),
				zap.Float64("expected_balance", acct.Balance),
				zap.Error(cerr),
			)
		}
		return nil, fmt.Errorf("credit goal: %w", err)
	}

	gp := s.states.For(userID).Replace(*updated)

	if !wasComplete && gp.IsComplete {
		if _, err := s.points.IncrementEngagement(ctx, userID, s.pointsGoalCompleted, ""); err != nil {
			// Points are a perk, not part of the payment; the payment
			// itself succeeded.
			s.logger.Warn("failed to award goal completion points",
				zap.String("user_id", userID),
				zap.String("goal_id", goalID),
				zap.Error(err),
			)
		} else {
			s.metrics.RecordPointsAwarded("goal_completed", s.pointsGoalCompleted)
		}
	}

	s.logger.Info("goal payment applied",
		zap.String("user_id", userID),
		zap.String("goal_id", goalID),
		zap.Float64("amount", amount),
		zap.Float64("saved_amount", updated.SavedAmount),
	)
	return &gp, nil
}
