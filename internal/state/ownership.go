package state

import (
	"sync"
	"time"

	"github.com/outbehaving/outbehaving-api/internal/domain"
)

// OwnershipState holds a user's engagement metrics, membership status and
// annotated rewards. Membership and reward eligibility are derived fields;
// every mutation recomputes them against the tier ladder.
type OwnershipState struct {
	mu          sync.RWMutex
	ladder      domain.TierLadder
	metrics     domain.EngagementMetrics
	membership  domain.MembershipStatus
	rewards     []domain.Reward
	userRewards []domain.UserReward
	annotated   []domain.RewardStatus
	loading     bool
	err         string
}

// NewOwnershipState creates an empty container bound to a tier ladder.
func NewOwnershipState(ladder domain.TierLadder) *OwnershipState {
	return &OwnershipState{
		ladder:     ladder,
		membership: ladder.Status(0),
	}
}

// SetEngagement replaces the engagement metrics and recomputes the
// membership status and reward annotations from the new point total.
func (s *OwnershipState) SetEngagement(m domain.EngagementMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = m
	s.recompute()
}

// SetRewards replaces the reward catalogue and redemption records, then
// recomputes annotations.
func (s *OwnershipState) SetRewards(rewards []domain.Reward, userRewards []domain.UserReward) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rewards = make([]domain.Reward, len(rewards))
	copy(s.rewards, rewards)
	s.userRewards = make([]domain.UserReward, len(userRewards))
	copy(s.userRewards, userRewards)
	s.recompute()
}

// MarkRedeemed records a redemption locally after the backend insert
// succeeded, flipping the reward's annotations.
func (s *OwnershipState) MarkRedeemed(ur domain.UserReward) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.userRewards {
		if s.userRewards[i].RewardID == ur.RewardID {
			s.userRewards[i] = ur
			s.recompute()
			return
		}
	}
	s.userRewards = append(s.userRewards, ur)
	s.recompute()
}

// Status returns the full derived ownership view.
func (s *OwnershipState) Status() domain.OwnershipStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rewards := make([]domain.RewardStatus, len(s.annotated))
	copy(rewards, s.annotated)
	return domain.OwnershipStatus{
		Membership: s.membership,
		Metrics:    s.metrics,
		Rewards:    rewards,
	}
}

// Rewards returns the annotated reward list.
func (s *OwnershipState) Rewards() []domain.RewardStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.RewardStatus, len(s.annotated))
	copy(out, s.annotated)
	return out
}

// SetLoading flags an in-flight load.
func (s *OwnershipState) SetLoading(v bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = v
}

// SetError records the last load error ("" clears it).
func (s *OwnershipState) SetError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = msg
}

// Reset restores the initial empty state.
func (s *OwnershipState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.metrics = domain.EngagementMetrics{}
	s.rewards = nil
	s.userRewards = nil
	s.annotated = nil
	s.membership = s.ladder.Status(0)
	s.loading = false
	s.err = ""
}

// recompute re-derives membership and reward annotations. Caller must
// hold the lock.
func (s *OwnershipState) recompute() {
	s.membership = s.ladder.Status(s.metrics.TotalPoints)
	s.annotated = domain.AnnotateRewards(s.rewards, s.userRewards, s.metrics.TotalPoints)
}

// UserState holds the signed-in user's profile, accounts and onboarding
// preferences.
type UserState struct {
	mu        sync.RWMutex
	profile   *domain.Profile
	accounts  []domain.Account
	interests []string
	champions []string
	loadedAt  time.Time
}

// NewUserState creates an empty user container.
func NewUserState() *UserState {
	return &UserState{}
}

// SetProfile replaces the stored profile.
func (s *UserState) SetProfile(p *domain.Profile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.profile = p
	s.loadedAt = time.Now()
}

// SetAccounts replaces the account collection.
func (s *UserState) SetAccounts(accounts []domain.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts = make([]domain.Account, len(accounts))
	copy(s.accounts, accounts)
}

// SetPreferences replaces interests and champions.
func (s *UserState) SetPreferences(interests, champions []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.interests = append([]string(nil), interests...)
	s.champions = append([]string(nil), champions...)
}

// Snapshot returns the stored profile, accounts and preferences.
func (s *UserState) Snapshot() (*domain.Profile, []domain.Account, []string, []string) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	accounts := make([]domain.Account, len(s.accounts))
	copy(accounts, s.accounts)
	return s.profile, accounts,
		append([]string(nil), s.interests...),
		append([]string(nil), s.champions...)
}

// Reset restores the initial empty state.
func (s *UserState) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.profile = nil
	s.accounts = nil
	s.interests = nil
	s.champions = nil
	s.loadedAt = time.Time{}
}
