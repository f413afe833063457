// Package port defines the interfaces (ports) for external dependencies.
// Following hexagonal architecture, these ports decouple the domain/service
// layer from concrete implementations.
package port

import (
	"context"

	"github.com/outbehaving/outbehaving-api/internal/domain"
)

// GoalStore defines the data operations for savings goals.
// Implemented by the Supabase adapter (or any other persistence layer).
type GoalStore interface {
	ListGoals(ctx context.Context, userID string) ([]domain.Goal, error)
	GetGoal(ctx context.Context, goalID string) (*domain.Goal, error)
	CreateGoal(ctx context.Context, userID string, input domain.GoalInput) (*domain.Goal, error)
	UpdateGoal(ctx context.Context, goalID string, upd domain.GoalUpdate) (*domain.Goal, error)
	DeleteGoal(ctx context.Context, goalID string) error
}

// AccountStore defines the data operations for bank accounts.
type AccountStore interface {
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	GetAccount(ctx context.Context, accountID string) (*domain.Account, error)
	CreateAccount(ctx context.Context, userID string, input domain.AccountInput) (*domain.Account, error)
	SetAccountBalance(ctx context.Context, accountID string, balance float64) (*domain.Account, error)
}

// ProfileStore defines the data operations for user profiles and
// onboarding preferences.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*domain.Profile, error)
	UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error)
	ListInterests(ctx context.Context, userID string) ([]string, error)
	ReplaceInterests(ctx context.Context, userID string, interests []string) error
	ListChampions(ctx context.Context, userID string) ([]string, error)
	ReplaceChampions(ctx context.Context, userID string, champions []string) error
}

// OwnershipStore defines the data operations for engagement, rewards and
// redemptions.
type OwnershipStore interface {
	GetEngagement(ctx context.Context, userID string) (*domain.EngagementMetrics, error)
	IncrementEngagement(ctx context.Context, userID string, points int, counter string) (*domain.EngagementMetrics, error)
	ListRewards(ctx context.Context) ([]domain.Reward, error)
	ListUserRewards(ctx context.Context, userID string) ([]domain.UserReward, error)
	InsertUserReward(ctx context.Context, userID, rewardID string) (*domain.UserReward, error)
}

// EngagementWriter is the subset of OwnershipStore needed by services
// that award points.
type EngagementWriter interface {
	IncrementEngagement(ctx context.Context, userID string, points int, counter string) (*domain.EngagementMetrics, error)
}

// NewsStore defines the data operations for articles and read tracking.
type NewsStore interface {
	ListArticles(ctx context.Context, limit int) ([]domain.Article, error)
	HasRead(ctx context.Context, userID, articleID string) (bool, error)
	InsertArticleRead(ctx context.Context, userID, articleID string) error
}

// AuthGateway defines the authentication operations against the managed
// auth backend.
type AuthGateway interface {
	SignUp(ctx context.Context, email, password, name string) (*domain.Session, error)
	SignIn(ctx context.Context, email, password string) (*domain.Session, error)
	SignOut(ctx context.Context, accessToken string) error
	GetUser(ctx context.Context, accessToken string) (*domain.AuthUser, error)
	RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error)
}

// FileStore defines the file storage operations (buckets addressed by path).
type FileStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte, contentType string) error
	Download(ctx context.Context, bucket, path string) ([]byte, error)
	Remove(ctx context.Context, bucket, path string) error
	PublicURL(bucket, path string) string
	List(ctx context.Context, bucket, prefix string) ([]string, error)
}

// Cache provides generic caching with TTL.
type Cache[T any] interface {
	Get(key string) (T, bool)
	Set(key string, value T)
	Delete(key string)
}
