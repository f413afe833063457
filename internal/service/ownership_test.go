package service

import (
	"context"
	"errors"
	"testing"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/infra/observability"
	"github.com/outbehaving/outbehaving-api/internal/state"

	"go.uber.org/zap"
)

// ============================================================
// Mocks
// ============================================================

type fakeOwnershipStore struct {
	engagement  domain.EngagementMetrics
	rewards     []domain.Reward
	userRewards []domain.UserReward
	listCalls   int
	inserted    []string
}

func (f *fakeOwnershipStore) GetEngagement(_ context.Context, userID string) (*domain.EngagementMetrics, error) {
	m := f.engagement
	m.UserID = userID
	return &m, nil
}

func (f *fakeOwnershipStore) IncrementEngagement(_ context.Context, userID string, points int, _ string) (*domain.EngagementMetrics, error) {
	f.engagement.TotalPoints += points
	m := f.engagement
	m.UserID = userID
	return &m, nil
}

func (f *fakeOwnershipStore) ListRewards(_ context.Context) ([]domain.Reward, error) {
	f.listCalls++
	return f.rewards, nil
}

func (f *fakeOwnershipStore) ListUserRewards(_ context.Context, _ string) ([]domain.UserReward, error) {
	return f.userRewards, nil
}

func (f *fakeOwnershipStore) InsertUserReward(_ context.Context, userID, rewardID string) (*domain.UserReward, error) {
	f.inserted = append(f.inserted, rewardID)
	ur := domain.UserReward{ID: "ur-new", UserID: userID, RewardID: rewardID, Redeemed: true}
	f.userRewards = append(f.userRewards, ur)
	return &ur, nil
}

type fakeCache[T any] struct {
	items map[string]T
}

func newFakeCache[T any]() *fakeCache[T] {
	return &fakeCache[T]{items: map[string]T{}}
}

func (c *fakeCache[T]) Get(key string) (T, bool) {
	v, ok := c.items[key]
	return v, ok
}

func (c *fakeCache[T]) Set(key string, value T) { c.items[key] = value }
func (c *fakeCache[T]) Delete(key string)       { delete(c.items, key) }

func testLadder() domain.TierLadder {
	return domain.NewTierLadder([]domain.TierThreshold{
		{Tier: domain.TierBronze, MinPoints: 0},
		{Tier: domain.TierSilver, MinPoints: 1000},
		{Tier: domain.TierGold, MinPoints: 5000},
		{Tier: domain.TierPlatinum, MinPoints: 20000},
	})
}

func newOwnershipFixture(store *fakeOwnershipStore) (*OwnershipService, *fakeCache[[]domain.Reward]) {
	cache := newFakeCache[[]domain.Reward]()
	ladder := testLadder()
	svc := NewOwnershipService(
		store, cache,
		state.NewRegistry(func() *state.OwnershipState { return state.NewOwnershipState(ladder) }),
		observability.NewMetrics(),
		zap.NewNop(),
	)
	return svc, cache
}

// ============================================================
// Status
// ============================================================

func TestStatus_DerivesMembershipAndEligibility(t *testing.T) {
	store := &fakeOwnershipStore{
		engagement: domain.EngagementMetrics{TotalPoints: 1200},
		rewards: []domain.Reward{
			{ID: "r1", Name: "Coffee", PointsRequired: 500},
			{ID: "r2", Name: "Hamper", PointsRequired: 5000},
		},
	}
	svc, _ := newOwnershipFixture(store)

	status, err := svc.Status(context.Background(), "u1")
	if err != nil {
		t.Fatalf("expected status to load, got %v", err)
	}

	if status.Membership.Tier != domain.TierSilver {
		t.Errorf("expected silver tier at 1200 points, got %s", status.Membership.Tier)
	}
	if status.Membership.NextTier == nil || *status.Membership.NextTier != domain.TierGold {
		t.Errorf("expected next tier gold, got %v", status.Membership.NextTier)
	}
	if len(status.Rewards) != 2 {
		t.Fatalf("expected 2 rewards, got %d", len(status.Rewards))
	}
	if !status.Rewards[0].CanRedeem {
		t.Error("expected 500 point reward to be redeemable at 1200 points")
	}
	if status.Rewards[1].CanRedeem {
		t.Error("expected 5000 point reward to be out of reach at 1200 points")
	}
}

func TestStatus_ServesRewardCatalogueFromCache(t *testing.T) {
	store := &fakeOwnershipStore{
		rewards: []domain.Reward{{ID: "r1", Name: "Coffee", PointsRequired: 500}},
	}
	svc, _ := newOwnershipFixture(store)

	for i := 0; i < 3; i++ {
		if _, err := svc.Status(context.Background(), "u1"); err != nil {
			t.Fatalf("status load %d failed: %v", i, err)
		}
	}
	if store.listCalls != 1 {
		t.Errorf("expected a single catalogue fetch, got %d", store.listCalls)
	}
}

// ============================================================
// Redeem
// ============================================================

func TestRedeem_RecordsRedemptionWithoutDeductingPoints(t *testing.T) {
	store := &fakeOwnershipStore{
		engagement: domain.EngagementMetrics{TotalPoints: 900},
		rewards:    []domain.Reward{{ID: "r1", Name: "Coffee", PointsRequired: 500}},
	}
	svc, _ := newOwnershipFixture(store)

	ur, err := svc.Redeem(context.Background(), "u1", "r1")
	if err != nil {
		t.Fatalf("expected redemption to succeed, got %v", err)
	}
	if !ur.Redeemed {
		t.Error("expected redemption record to be marked redeemed")
	}
	if store.engagement.TotalPoints != 900 {
		t.Errorf("expected points untouched at 900, got %d", store.engagement.TotalPoints)
	}
}

func TestRedeem_UnknownReward(t *testing.T) {
	store := &fakeOwnershipStore{
		engagement: domain.EngagementMetrics{TotalPoints: 9000},
	}
	svc, _ := newOwnershipFixture(store)

	_, err := svc.Redeem(context.Background(), "u1", "ghost")

	var notFound *domain.ErrNotFound
	if !errors.As(err, &notFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRedeem_AlreadyRedeemed(t *testing.T) {
	store := &fakeOwnershipStore{
		engagement:  domain.EngagementMetrics{TotalPoints: 9000},
		rewards:     []domain.Reward{{ID: "r1", PointsRequired: 500}},
		userRewards: []domain.UserReward{{RewardID: "r1", Redeemed: true}},
	}
	svc, _ := newOwnershipFixture(store)

	_, err := svc.Redeem(context.Background(), "u1", "r1")

	var already *domain.ErrAlreadyRedeemed
	if !errors.As(err, &already) {
		t.Fatalf("expected ErrAlreadyRedeemed, got %v", err)
	}
	if len(store.inserted) != 0 {
		t.Errorf("expected no insert, got %v", store.inserted)
	}
}

func TestRedeem_InsufficientPoints(t *testing.T) {
	store := &fakeOwnershipStore{
		engagement: domain.EngagementMetrics{TotalPoints: 100},
		rewards:    []domain.Reward{{ID: "r1", PointsRequired: 500}},
	}
	svc, _ := newOwnershipFixture(store)

	_, err := svc.Redeem(context.Background(), "u1", "r1")

	var insufficient *domain.ErrInsufficientPoints
	if !errors.As(err, &insufficient) {
		t.Fatalf("expected ErrInsufficientPoints, got %v", err)
	}
	if insufficient.Available != 100 || insufficient.Required != 500 {
		t.Errorf("expected 100/500 in error, got %d/%d", insufficient.Available, insufficient.Required)
	}
}

// ============================================================
// Award
// ============================================================

func TestAward_MovesTierAtThreshold(t *testing.T) {
	store := &fakeOwnershipStore{
		engagement: domain.EngagementMetrics{TotalPoints: 950},
	}
	svc, _ := newOwnershipFixture(store)

	status, err := svc.Award(context.Background(), "u1", 100, "referral", "referrals_count")
	if err != nil {
		t.Fatalf("expected award to succeed, got %v", err)
	}
	if status.Membership.Tier != domain.TierSilver {
		t.Errorf("expected silver after crossing 1000 points, got %s", status.Membership.Tier)
	}
	if status.Membership.Points != 1050 {
		t.Errorf("expected 1050 points, got %d", status.Membership.Points)
	}
}
