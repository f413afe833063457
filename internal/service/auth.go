// Package service provides the business logic layer (use cases).
// AuthService wraps the managed auth backend and publishes auth state
// changes so per-user containers can be set up and torn down.
package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/outbehaving/outbehaving-api/internal/domain"
	"github.com/outbehaving/outbehaving-api/internal/port"

	"github.com/golang-jwt/jwt/v5"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

var authTracer = otel.Tracer("service/auth")

// AuthListener receives auth state change notifications.
type AuthListener func(event string, userID string)

// AuthService orchestrates authentication flows against the managed
// auth backend. Passwords are never hashed or stored here.
type AuthService struct {
	gw        port.AuthGateway
	jwtSecret []byte
	logger    *zap.Logger

	mu        sync.Mutex
	listeners []AuthListener
}

// NewAuthService creates a new auth service.
func NewAuthService(gw port.AuthGateway, jwtSecret string, logger *zap.Logger) *AuthService {
	return &AuthService{
		gw:        gw,
		jwtSecret: []byte(jwtSecret),
		logger:    logger,
	}
}

// OnAuthStateChange registers a listener for sign-in/sign-out events.
// Listeners are called synchronously after the backend call succeeds.
func (s *AuthService) OnAuthStateChange(fn AuthListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

func (s *AuthService) notify(event, userID string) {
	s.mu.Lock()
	listeners := make([]AuthListener, len(s.listeners))
	copy(listeners, s.listeners)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(event, userID)
	}
}

// ============================================================
// SignUp — POST /v1/auth/signup
// ============================================================

func (s *AuthService) SignUp(ctx context.Context, email, password, name string) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignUp")
	defer span.End()

	if password == "" {
		return nil, &domain.ErrValidation{Field: "password", Message: "password is required"}
	}

	sess, err := s.gw.SignUp(ctx, email, password, name)
	if err != nil {
		return nil, fmt.Errorf("sign up: %w", err)
	}

	s.logger.Info("user signed up", zap.String("user_id", sess.User.ID))
	if sess.AccessToken != "" {
		s.notify(domain.AuthEventSignedIn, sess.User.ID)
	}
	return sess, nil
}

// ============================================================
// SignIn — POST /v1/auth/signin
// ============================================================

func (s *AuthService) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.SignIn")
	defer span.End()

	sess, err := s.gw.SignIn(ctx, email, password)
	if err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	s.logger.Info("user signed in", zap.String("user_id", sess.User.ID))
	s.notify(domain.AuthEventSignedIn, sess.User.ID)
	return sess, nil
}

// ============================================================
// SignOut — POST /v1/auth/signout
// ============================================================

func (s *AuthService) SignOut(ctx context.Context, accessToken, userID string) error {
	ctx, span := authTracer.Start(ctx, "AuthService.SignOut")
	defer span.End()

	if err := s.gw.SignOut(ctx, accessToken); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}

	s.logger.Info("user signed out", zap.String("user_id", userID))
	s.notify(domain.AuthEventSignedOut, userID)
	return nil
}

// ============================================================
// CurrentUser / Refresh
// ============================================================

func (s *AuthService) CurrentUser(ctx context.Context, accessToken string) (*domain.AuthUser, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.CurrentUser")
	defer span.End()

	return s.gw.GetUser(ctx, accessToken)
}

func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*domain.Session, error) {
	ctx, span := authTracer.Start(ctx, "AuthService.Refresh")
	defer span.End()

	sess, err := s.gw.RefreshSession(ctx, refreshToken)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	return sess, nil
}

// ============================================================
// ValidateAccessToken — used by middleware
// ============================================================

// Claims represents the claims carried by access tokens issued by the
// auth backend.
type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

func (s *AuthService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, &domain.ErrUnauthorized{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, &domain.ErrUnauthorized{Message: "invalid token"}
	}
	if claims.Subject == "" {
		return nil, &domain.ErrUnauthorized{Message: "token has no subject"}
	}

	return claims, nil
}
