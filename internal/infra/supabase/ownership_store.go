package supabase

import (
	"context"
	"time"

	"github.com/outbehaving/outbehaving-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Engagement, rewards and redemptions
// ============================================================

// getEngagementRow fetches the raw engagement row, reporting whether it
// exists at all.
func (c *Client) getEngagementRow(ctx context.Context, userID string) (*domain.EngagementMetrics, bool, error) {
	body, err := c.Select(ctx, "user_engagement", Query{
		Filters: map[string]string{"user_id": userID},
		Limit:   1,
	})
	if err != nil {
		return nil, false, err
	}

	metrics, err := decodeSingle[domain.EngagementMetrics](body, "user_engagement")
	if err != nil {
		return nil, false, err
	}
	if metrics == nil {
		return nil, false, nil
	}
	return metrics, true, nil
}

// GetEngagement returns the user's engagement row. A user with no row
// yet simply has zero engagement — that is not an error.
func (c *Client) GetEngagement(ctx context.Context, userID string) (*domain.EngagementMetrics, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetEngagement")
	defer span.End()

	metrics, found, err := c.getEngagementRow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &domain.EngagementMetrics{UserID: userID}, nil
	}
	return metrics, nil
}

// IncrementEngagement adds points to the user's total and bumps the
// named counter column (one of referrals_count, articles_read_count,
// days_active_count; "" bumps no counter). The row is created on first
// use.
func (c *Client) IncrementEngagement(ctx context.Context, userID string, points int, counter string) (*domain.EngagementMetrics, error) {
	ctx, span := tracer.Start(ctx, "Supabase.IncrementEngagement")
	defer span.End()

	current, found, err := c.getEngagementRow(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !found {
		current = &domain.EngagementMetrics{UserID: userID}
	}

	updated := *current
	updated.TotalPoints += points
	switch counter {
	case "referrals_count":
		updated.ReferralsCount++
	case "articles_read_count":
		updated.ArticlesReadCount++
	case "days_active_count":
		updated.DaysActiveCount++
	}

	record := map[string]any{
		"total_points":        updated.TotalPoints,
		"referrals_count":     updated.ReferralsCount,
		"articles_read_count": updated.ArticlesReadCount,
		"days_active_count":   updated.DaysActiveCount,
	}

	if found {
		_, err = c.UpdateWhere(ctx, "user_engagement", Query{
			Filters: map[string]string{"user_id": userID},
		}, record)
	} else {
		record["user_id"] = userID
		_, err = c.Insert(ctx, "user_engagement", record)
	}
	if err != nil {
		return nil, err
	}

	c.logger.Info("supabase: engagement updated",
		zap.String("user_id", userID),
		zap.Int("points_added", points),
		zap.Int("total_points", updated.TotalPoints),
	)
	return &updated, nil
}

func (c *Client) ListRewards(ctx context.Context) ([]domain.Reward, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListRewards")
	defer span.End()

	body, err := c.Select(ctx, "rewards", Query{
		Order:     "points_required",
		Ascending: true,
	})
	if err != nil {
		return nil, err
	}

	rows, err := decodeRows[domain.Reward](body, "rewards")
	if err != nil {
		return nil, err
	}

	rewards := make([]domain.Reward, 0, len(rows))
	for _, r := range rows {
		if r.ID == "" || r.PointsRequired < 0 {
			c.logger.Warn("supabase: quarantined malformed reward row",
				zap.String("reward_id", r.ID),
			)
			continue
		}
		rewards = append(rewards, r)
	}
	return rewards, nil
}

func (c *Client) ListUserRewards(ctx context.Context, userID string) ([]domain.UserReward, error) {
	ctx, span := tracer.Start(ctx, "Supabase.ListUserRewards")
	defer span.End()

	body, err := c.Select(ctx, "user_rewards", Query{
		Filters: map[string]string{"user_id": userID},
	})
	if err != nil {
		return nil, err
	}

	return decodeRows[domain.UserReward](body, "user_rewards")
}

// InsertUserReward records a redemption. Points are never deducted here;
// totals are engagement-driven.
func (c *Client) InsertUserReward(ctx context.Context, userID, rewardID string) (*domain.UserReward, error) {
	ctx, span := tracer.Start(ctx, "Supabase.InsertUserReward")
	defer span.End()

	body, err := c.Insert(ctx, "user_rewards", map[string]any{
		"user_id":     userID,
		"reward_id":   rewardID,
		"redeemed":    true,
		"redeemed_at": time.Now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, err
	}

	ur, err := decodeSingle[domain.UserReward](body, "user_rewards")
	if err != nil {
		return nil, err
	}
	if ur == nil {
		return nil, &domain.ErrExternalService{Service: "supabase/user_rewards", Err: errEmptyWrite}
	}
	return ur, nil
}
