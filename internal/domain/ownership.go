package domain

import (
	"math"
	"sort"
	"time"
)

// Tier is a membership band keyed by a cumulative point total.
type Tier string

const (
	TierBronze   Tier = "bronze"
	TierSilver   Tier = "silver"
	TierGold     Tier = "gold"
	TierPlatinum Tier = "platinum"
)

// TierThreshold binds a tier to its minimum point total.
type TierThreshold struct {
	Tier      Tier `json:"tier"`
	MinPoints int  `json:"min_points"`
}

// TierLadder is the ordered set of tier thresholds. Boundaries are
// configuration, not constants baked into the algorithm.
type TierLadder []TierThreshold

// NewTierLadder builds a ladder sorted by ascending minimum points.
func NewTierLadder(thresholds []TierThreshold) TierLadder {
	ladder := make(TierLadder, len(thresholds))
	copy(ladder, thresholds)
	sort.Slice(ladder, func(i, j int) bool {
		return ladder[i].MinPoints < ladder[j].MinPoints
	})
	return ladder
}

// MembershipStatus is the derived view of a point total on a ladder.
type MembershipStatus struct {
	Tier           Tier    `json:"tier"`
	Points         int     `json:"points"`
	NextTier       *Tier   `json:"next_tier,omitempty"`
	ProgressToNext float64 `json:"progress_to_next"`
}

// Status returns the tier whose minimum is the highest one not exceeding
// points, and the progress toward the next tier's minimum, clamped to
// [0,100]. The top tier always reports 100%. Negative totals are treated
// as zero so assignment stays monotonic.
func (l TierLadder) Status(points int) MembershipStatus {
	if points < 0 {
		points = 0
	}
	if len(l) == 0 {
		return MembershipStatus{Points: points, ProgressToNext: 100}
	}

	idx := 0
	for i, t := range l {
		if points >= t.MinPoints {
			idx = i
		}
	}

	status := MembershipStatus{
		Tier:   l[idx].Tier,
		Points: points,
	}

	if idx == len(l)-1 {
		status.ProgressToNext = 100
		return status
	}

	next := l[idx+1]
	status.NextTier = &next.Tier
	span := float64(next.MinPoints - l[idx].MinPoints)
	progress := float64(points-l[idx].MinPoints) / span * 100
	status.ProgressToNext = math.Max(0, math.Min(100, progress))
	return status
}

// EngagementMetrics is a user's engagement row (table: user_engagement).
// The counts roll up into the point total that drives tier assignment.
type EngagementMetrics struct {
	UserID            string `json:"user_id"`
	ReferralsCount    int    `json:"referrals_count"`
	ArticlesReadCount int    `json:"articles_read_count"`
	DaysActiveCount   int    `json:"days_active_count"`
	TotalPoints       int    `json:"total_points"`
}

// Reward is a redeemable reward row (table: rewards).
type Reward struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Description    string     `json:"description"`
	PointsRequired int        `json:"points_required"`
	ImageURL       string     `json:"image_url,omitempty"`
	CreatedAt      *time.Time `json:"created_at,omitempty"`
}

// UserReward is a redemption record (table: user_rewards).
type UserReward struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	RewardID   string     `json:"reward_id"`
	Redeemed   bool       `json:"redeemed"`
	RedeemedAt *time.Time `json:"redeemed_at,omitempty"`
}

// RewardStatus is a reward annotated with the user's eligibility.
type RewardStatus struct {
	Reward
	IsRedeemed bool `json:"is_redeemed"`
	CanRedeem  bool `json:"can_redeem"`
}

// AnnotateRewards derives per-reward eligibility: is_redeemed when a
// redemption record with redeemed=true exists, can_redeem when no record
// exists at all and the point balance covers the requirement. Redeeming
// never deducts points; totals are engagement-driven.
func AnnotateRewards(rewards []Reward, userRewards []UserReward, points int) []RewardStatus {
	redeemed := make(map[string]bool, len(userRewards))
	recorded := make(map[string]bool, len(userRewards))
	for _, ur := range userRewards {
		recorded[ur.RewardID] = true
		if ur.Redeemed {
			redeemed[ur.RewardID] = true
		}
	}

	out := make([]RewardStatus, 0, len(rewards))
	for _, r := range rewards {
		out = append(out, RewardStatus{
			Reward:     r,
			IsRedeemed: redeemed[r.ID],
			CanRedeem:  !recorded[r.ID] && points >= r.PointsRequired,
		})
	}
	return out
}

// OwnershipStatus aggregates everything the ownership screen needs.
type OwnershipStatus struct {
	Membership MembershipStatus  `json:"membership"`
	Metrics    EngagementMetrics `json:"metrics"`
	Rewards    []RewardStatus    `json:"rewards"`
}
