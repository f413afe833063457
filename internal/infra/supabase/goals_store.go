package supabase

import (
	"context"

	"github.com/outbehaving/outbehaving-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Goals — CRUD via the generic PostgREST primitives
// ============================================================

// validGoal is the boundary check applied to every goal row before it
// may enter a state container.
func validGoal(g domain.Goal) bool {
	return g.ID != "" &&
		g.UserID != "" &&
		g.TargetAmount >= 0 &&
		g.SavedAmount >= 0 &&
		(g.Frequency == "" || domain.ValidFrequency(g.Frequency))
}

func (c *Client) ListGoals(ctx context.Context, userID string) ([]domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListGoals")
	defer span.End()

	body, err := c.Select(ctx, "goals", Query{
		Filters: map[string]string{"user_id": userID},
		Order:   "created_at",
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[domain.Goal](body, "goals")
	if err != nil {
		return nil, err
	}

	goals := make([]domain.Goal, 0, len(rows))
	for _, g := range rows {
		if !validGoal(g) {
			c.logger.Warn("supabase: quarantined malformed goal row",
				zap.String("goal_id", g.ID),
				zap.String("user_id", userID),
			)
			continue
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func (c *Client) GetGoal(ctx context.Context, goalID string) (*domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetGoal")
	defer span.End()

	body, err := c.Select(ctx, "goals", Query{
		Filters: map[string]string{"id": goalID},
		Limit:   1,
	})
	if err != nil {
		return nil, err
	}

	goal, err := decodeSingle[domain.Goal](body, "goals")
	if err != nil {
		return nil, err
	}
	if goal == nil || !validGoal(*goal) {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: goalID}
	}
	return goal, nil
}

func (c *Client) CreateGoal(ctx context.Context, userID string, input domain.GoalInput) (*domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.CreateGoal")
	defer span.End()

	record := map[string]any{
		"user_id":       userID,
		"name":          input.Name,
		"target_amount": input.TargetAmount,
		"saved_amount":  0,
	}
	if input.Description != "" {
		record["description"] = input.Description
	}
	if input.Frequency != "" {
		record["frequency"] = input.Frequency
	}
	if input.DueDate != "" {
		record["due_date"] = input.DueDate
	}
	if input.RegularAmount != nil {
		record["regular_amount"] = *input.RegularAmount
	}
	if input.LinkedAccountID != "" {
		record["linked_account_id"] = input.LinkedAccountID
	}

	body, err := c.Insert(ctx, "goals", record)
	if err != nil {
		return nil, err
	}

	goal, err := decodeSingle[domain.Goal](body, "goals")
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, &domain.ErrExternalService{Service: "supabase/goals", Err: errEmptyWrite}
	}
	return goal, nil
}

func (c *Client) UpdateGoal(ctx context.Context, goalID string, upd domain.GoalUpdate) (*domain.Goal, error) {
	ctx, span := tracer.Start(ctx, "Supabase.UpdateGoal")
	defer span.End()

	body, err := c.UpdateRow(ctx, "goals", goalID, upd)
	if err != nil {
		return nil, err
	}

	goal, err := decodeSingle[domain.Goal](body, "goals")
	if err != nil {
		return nil, err
	}
	if goal == nil {
		return nil, &domain.ErrNotFound{Resource: "goal", ID: goalID}
	}
	return goal, nil
}

func (c *Client) DeleteGoal(ctx context.Context, goalID string) error {
	ctx, span := tracer.Start(ctx, "Supabase.DeleteGoal")
	defer span.End()

	return c.DeleteRow(ctx, "goals", goalID)
}
