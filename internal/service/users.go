package service

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/port"
	"github.com/outbehaving/outbehaving-api/internal/state"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var usersTracer = otel.Tracer("service/users")

const avatarsBucket = "avatars"

// ProfileOverview aggregates everything the profile screen needs.
type ProfileOverview struct {
	Profile   *domain.Profile  `json:"profile"`
	Accounts  []domain.Account `json:"accounts"`
	Interests []string         `json:"interests"`
	Champions []string         `json:"champions"`
}

// UsersService orchestrates profiles, accounts, onboarding preferences
// and avatar storage.
type UsersService struct {
	store    port.ProfileStore
	accounts port.AccountStore
	files    port.FileStore
	states   *state.Registry[state.UserState]
	logger   *zap.Logger
}

// NewUsersService creates a new users service.
func NewUsersService(
	store port.ProfileStore,
	accounts port.AccountStore,
	files port.FileStore,
	states *state.Registry[state.UserState],
	logger *zap.Logger,
) *UsersService {
	return &UsersService{
		store:    store,
		accounts: accounts,
		files:    files,
		states:   states,
		logger:   logger,
	}
}

// ============================================================
// Overview — GET /v1/users/{userId}/profile
// ============================================================

// Overview loads the profile, accounts and onboarding preferences in
// parallel.
func (s *UsersService) Overview(ctx context.Context, userID string) (*ProfileOverview, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.Overview")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	var (
		profile   *domain.Profile
		accounts  []domain.Account
		interests []string
		champions []string
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		profile, err = s.store.GetProfile(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		accounts, err = s.accounts.ListAccounts(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		interests, err = s.store.ListInterests(gctx, userID)
		return err
	})
	g.Go(func() error {
		var err error
		champions, err = s.store.ListChampions(gctx, userID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load profile overview: %w", err)
	}

	st := s.states.For(userID)
	st.SetProfile(profile)
	st.SetAccounts(accounts)
	st.SetPreferences(interests, champions)

	return &ProfileOverview{
		Profile:   profile,
		Accounts:  accounts,
		Interests: interests,
		Champions: champions,
	}, nil
}

// ============================================================
// UpdateProfile — PATCH /v1/users/{userId}/profile
// ============================================================

func (s *UsersService) UpdateProfile(ctx context.Context, userID string, upd domain.ProfileUpdate) (*domain.Profile, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.UpdateProfile")
	defer span.End()

	if upd == (domain.ProfileUpdate{}) {
		return nil, &domain.ErrValidation{Field: "body", Message: "no fields to update"}
	}

	profile, err := s.store.UpdateProfile(ctx, userID, upd)
	if err != nil {
		return nil, fmt.Errorf("update profile: %w", err)
	}

	s.states.For(userID).SetProfile(profile)
	return profile, nil
}

// ============================================================
// Accounts
// ============================================================

func (s *UsersService) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.ListAccounts")
	defer span.End()

	accounts, err := s.accounts.ListAccounts(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	s.states.For(userID).SetAccounts(accounts)
	return accounts, nil
}

func (s *UsersService) LinkAccount(ctx context.Context, userID string, input domain.AccountInput) (*domain.Account, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.LinkAccount")
	defer span.End()

	if input.BankName == "" {
		return nil, &domain.ErrValidation{Field: "bank_name", Message: "bank name is required"}
	}
	if input.Balance < 0 {
		return nil, &domain.ErrValidation{Field: "balance", Message: "balance cannot be negative"}
	}

	acct, err := s.accounts.CreateAccount(ctx, userID, input)
	if err != nil {
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.logger.Info("account linked",
		zap.String("user_id", userID),
		zap.String("account_id", acct.ID),
		zap.String("bank_name", acct.BankName),
	)
	return acct, nil
}

// ============================================================
// Onboarding preferences
// ============================================================

func (s *UsersService) SetInterests(ctx context.Context, userID string, interests []string) error {
	ctx, span := usersTracer.Start(ctx, "UsersService.SetInterests")
	defer span.End()

	if err := s.store.ReplaceInterests(ctx, userID, interests); err != nil {
		return fmt.Errorf("replace interests: %w", err)
	}
	return nil
}

func (s *UsersService) SetChampions(ctx context.Context, userID string, champions []string) error {
	ctx, span := usersTracer.Start(ctx, "UsersService.SetChampions")
	defer span.End()

	if err := s.store.ReplaceChampions(ctx, userID, champions); err != nil {
		return fmt.Errorf("replace champions: %w", err)
	}
	return nil
}

// ============================================================
// Avatar — POST /v1/users/{userId}/avatar
// ============================================================

// UploadAvatar stores the image under {userID}/{uuid}.{ext}, makes it
// public and writes the URL back to the profile.
func (s *UsersService) UploadAvatar(ctx context.Context, userID, filename, contentType string, data []byte) (*domain.Profile, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.UploadAvatar")
	defer span.End()

	if len(data) == 0 {
		return nil, &domain.ErrValidation{Field: "file", Message: "file is empty"}
	}
	ext := strings.ToLower(path.Ext(filename))
	switch ext {
	case ".png", ".jpg", ".jpeg", ".webp":
	default:
		return nil, &domain.ErrValidation{Field: "file", Message: "unsupported image type"}
	}

	objectPath := fmt.Sprintf("%s/%s%s", userID, uuid.New().String(), ext)
	if err := s.files.Upload(ctx, avatarsBucket, objectPath, data, contentType); err != nil {
		return nil, fmt.Errorf("upload avatar: %w", err)
	}

	url := s.files.PublicURL(avatarsBucket, objectPath)
	profile, err := s.store.UpdateProfile(ctx, userID, domain.ProfileUpdate{AvatarURL: &url})
	if err != nil {
		return nil, fmt.Errorf("save avatar url: %w", err)
	}

	s.states.For(userID).SetProfile(profile)
	s.logger.Info("avatar uploaded",
		zap.String("user_id", userID),
		zap.String("path", objectPath),
	)
	return profile, nil
}

// DeleteAvatar removes the stored object and clears the profile URL.
func (s *UsersService) DeleteAvatar(ctx context.Context, userID string) (*domain.Profile, error) {
	ctx, span := usersTracer.Start(ctx, "UsersService.DeleteAvatar")
	defer span.End()

	profile, err := s.store.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if profile.AvatarURL == "" {
		return profile, nil
	}

	// The public URL ends with {bucket}/{userID}/{file}.
	if idx := strings.Index(profile.AvatarURL, avatarsBucket+"/"); idx >= 0 {
		objectPath := profile.AvatarURL[idx+len(avatarsBucket)+1:]
		if err := s.files.Remove(ctx, avatarsBucket, objectPath); err != nil {
			s.logger.Warn("failed to remove avatar object",
				zap.String("user_id", userID),
				zap.String("path", objectPath),
				zap.Error(err),
			)
		}
	}

	empty := ""
	profile, err = s.store.UpdateProfile(ctx, userID, domain.ProfileUpdate{AvatarURL: &empty})
	if err != nil {
		return nil, fmt.Errorf("clear avatar url: %w", err)
	}
	s.states.For(userID).SetProfile(profile)
	return profile, nil
}
