package service

import (
	"context"
	"fmt"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/infra/observability"
	"github.com/outbehaving/outbehaving-api/internal/port"
	"github.com/outbehaving/outbehaving-api/internal/state"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var ownershipTracer = otel.Tracer("service/ownership")

const rewardsCacheKey = "rewards:all"

// OwnershipService orchestrates engagement, membership tiers and reward
// redemption.
type OwnershipService struct {
	store   port.OwnershipStore
	cache   port.Cache[[]domain.Reward]
	states  *state.Registry[state.OwnershipState]
	metrics *observability.Metrics
	logger  *zap.Logger
}

// NewOwnershipService creates a new ownership service.
func NewOwnershipService(
	store port.OwnershipStore,
	cache port.Cache[[]domain.Reward],
	states *state.Registry[state.OwnershipState],
	metrics *observability.Metrics,
	logger *zap.Logger,
) *OwnershipService {
	return &OwnershipService{
		store:   store,
		cache:   cache,
		states:  states,
		metrics: metrics,
		logger:  logger,
	}
}

// ============================================================
// Status — GET /v1/users/{userId}/ownership
// ============================================================

// Status loads engagement, the reward catalogue and the user's redemption
// records in parallel, then returns the derived membership view.
func (s *OwnershipService) Status(ctx context.Context, userID string) (*domain.OwnershipStatus, error) {
	ctx, span := ownershipTracer.Start(ctx, "OwnershipService.Status")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	st := s.states.For(userID)
	st.SetLoading(true)
	defer st.SetLoading(false)

	var (
		engagement  *domain.EngagementMetrics
		rewards     []domain.Reward
		userRewards []domain.UserReward
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		engagement, err = s.store.GetEngagement(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		rewards, err = s.rewardCatalogue(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		userRewards, err = s.store.ListUserRewards(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		st.SetError(err.Error())
		return nil, fmt.Errorf("load ownership: %w", err)
	}

	st.SetError("")
	st.SetRewards(rewards, userRewards)
	st.SetEngagement(*engagement)

	status := st.Status()
	return &status, nil
}

// ============================================================
// Redeem — POST /v1/users/{userId}/rewards/{rewardId}/redemptions
// ============================================================

// Redeem records a redemption. Points are never deducted; a reward can
// be redeemed once and eligibility is point-threshold based.
func (s *OwnershipService) Redeem(ctx context.Context, userID, rewardID string) (*domain.UserReward, error) {
	ctx, span := ownershipTracer.Start(ctx, "OwnershipService.Redeem")
	defer span.End()
	span.SetAttributes(attribute.String("reward.id", rewardID))

	rewards, err := s.rewardCatalogue(ctx)
	if err != nil {
		return nil, fmt.Errorf("load rewards: %w", err)
	}

	var reward *domain.Reward
	for i := range rewards {
		if rewards[i].ID == rewardID {
			reward = &rewards[i]
			break
		}
	}
	if reward == nil {
		return nil, &domain.ErrNotFound{Resource: "reward", ID: rewardID}
	}

	userRewards, err := s.store.ListUserRewards(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list redemptions: %w", err)
	}
	for _, ur := range userRewards {
		if ur.RewardID == rewardID {
			return nil, &domain.ErrAlreadyRedeemed{RewardID: rewardID}
		}
	}

	engagement, err := s.store.GetEngagement(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get engagement: %w", err)
	}
	if engagement.TotalPoints < reward.PointsRequired {
		return nil, &domain.ErrInsufficientPoints{
			Available: engagement.TotalPoints,
			Required:  reward.PointsRequired,
		}
	}

	ur, err := s.store.InsertUserReward(ctx, userID, rewardID)
	if err != nil {
		return nil, fmt.Errorf("insert redemption: %w", err)
	}

	s.states.For(userID).MarkRedeemed(*ur)
	s.metrics.IncrRewardClaimed()
	s.logger.Info("reward redeemed",
		zap.String("user_id", userID),
		zap.String("reward_id", rewardID),
		zap.Int("points_required", reward.PointsRequired),
	)
	return ur, nil
}

// ============================================================
// Award — POST /v1/users/{userId}/engagement/events
// ============================================================

// Award adds engagement points for a named activity and returns the
// refreshed membership view.
func (s *OwnershipService) Award(ctx context.Context, userID string, points int, reason, counter string) (*domain.OwnershipStatus, error) {
	ctx, span := ownershipTracer.Start(ctx, "OwnershipService.Award")
	defer span.End()

	engagement, err := s.store.IncrementEngagement(ctx, userID, points, counter)
	if err != nil {
		return nil, fmt.Errorf("increment engagement: %w", err)
	}
	s.metrics.RecordPointsAwarded(reason, points)

	st := s.states.For(userID)
	st.SetEngagement(*engagement)
	status := st.Status()
	return &status, nil
}

// rewardCatalogue returns the reward catalogue, serving from the shared
// cache when possible. The catalogue is identical for every user.
func (s *OwnershipService) rewardCatalogue(ctx context.Context) ([]domain.Reward, error) {
	if rewards, ok := s.cache.Get(rewardsCacheKey); ok {
		s.metrics.IncrCacheHit("rewards")
		return rewards, nil
	}
	s.metrics.IncrCacheMiss("rewards")

	rewards, err := s.store.ListRewards(ctx)
	if err != nil {
		return nil, err
	}
	s.cache.Set(rewardsCacheKey, rewards)
	return rewards, nil
}
