package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/outbehaving/outbehaving-api/internal/domain"

	"go.uber.org/zap"
)

// ============================================================
// Auth (GoTrue) — sign up / sign in / sign out / session
// ============================================================

// authUserRow mirrors the GoTrue user object.
type authUserRow struct {
	ID           string         `json:"id"`
	Email        string         `json:"email"`
	CreatedAt    string         `json:"created_at"`
	UserMetadata map[string]any `json:"user_metadata"`
}

func (u authUserRow) toDomain() domain.AuthUser {
	user := domain.AuthUser{
		ID:        u.ID,
		Email:     u.Email,
		CreatedAt: u.CreatedAt,
	}
	if name, ok := u.UserMetadata["name"].(string); ok {
		user.Name = name
	}
	return user
}

// authSessionRow mirrors the GoTrue token response.
type authSessionRow struct {
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
	TokenType    string      `json:"token_type"`
	ExpiresIn    int         `json:"expires_in"`
	User         authUserRow `json:"user"`
}

func (s authSessionRow) toDomain() *domain.Session {
	return &domain.Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		User:         s.User.toDomain(),
	}
}

// SignUp registers a new user with the auth backend.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignUp")
	defer span.End()

	payload := map[string]any{
		"email":    email,
		"password": password,
	}
	if name != "" {
		payload["data"] = map[string]any{"name": name}
	}

	body, err := c.doAuth(ctx, http.MethodPost, "signup", payload, "")
	if err != nil {
		return nil, err
	}

	var row authSessionRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	if row.AccessToken != "" {
		return row.toDomain(), nil
	}

	// Email confirmation flows return a bare user, no session yet.
	var user authUserRow
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("decode signup response: %w", err)
	}
	return &domain.Session{User: user.toDomain()}, nil
}

// SignIn exchanges credentials for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.SignIn")
	defer span.End()

	body, err := c.doAuth(ctx, http.MethodPost, "token?grant_type=password", map[string]any{
		"email":    email,
		"password": password,
	}, "")
	if err != nil {
		return nil, err
	}

	var row authSessionRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return row.toDomain(), nil
}

// SignOut revokes the session behind the access token.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	ctx, span := tracer.Start(ctx, "Supabase.SignOut")
	defer span.End()

	_, err := c.doAuth(ctx, http.MethodPost, "logout", nil, accessToken)
	return err
}

// GetUser resolves the access token to its user record.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*domain.AuthUser, error) {
	ctx, span := tracer.Start(ctx, "Supabase.GetUser")
	defer span.End()

	body, err := c.doAuth(ctx, http.MethodGet, "user", nil, accessToken)
	if err != nil {
		return nil, err
	}

	var row authUserRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("decode user response: %w", err)
	}
	if row.ID == "" {
		return nil, &domain.ErrUnauthorized{Message: "session no longer valid"}
	}
	user := row.toDomain()
	return &user, nil
}

// RefreshSession rotates a refresh token into a fresh session.
func (c *Client) RefreshSession(ctx context.Context, refreshToken string) (*domain.Session, error) {
	ctx, span := tracer.Start(ctx, "Supabase.RefreshSession")
	defer span.End()

	body, err := c.doAuth(ctx, http.MethodPost, "token?grant_type=refresh_token", map[string]any{
		"refresh_token": refreshToken,
	}, "")
	if err != nil {
		return nil, err
	}

	var row authSessionRow
	if err := json.Unmarshal(body, &row); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	return row.toDomain(), nil
}

// doAuth executes a request against the GoTrue API. When bearer is empty
// the anon key authenticates the call.
func (c *Client) doAuth(ctx context.Context, method, path string, payload any, bearer string) ([]byte, error) {
	u := fmt.Sprintf("%s/auth/v1/%s", c.baseURL, path)

	var reqBody io.Reader
	if payload != nil {
		jsonBody, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reqBody)
	if err != nil {
		return nil, err
	}
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", bearer))
	req.Header.Set("Content-Type", "application/json")

	status, body, err := c.execute(req)
	if err != nil {
		c.logger.Error("supabase: auth request failed",
			zap.String("path", path),
			zap.Error(err),
		)
		return nil, c.classify(ctx, "auth", err)
	}

	if status < 200 || status >= 300 {
		c.logger.Warn("supabase: auth non-2xx",
			zap.String("path", path),
			zap.Int("status", status),
		)
		return nil, classifyAuthStatus(status)
	}
	return body, nil
}

// classifyAuthStatus maps GoTrue failures onto the domain taxonomy.
// Bodies are deliberately not surfaced; credential errors all collapse
// into the same category.
func classifyAuthStatus(status int) error {
	switch status {
	case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
		return &domain.ErrUnauthorized{Message: "invalid credentials or session"}
	case http.StatusUnprocessableEntity, http.StatusConflict:
		return &domain.ErrConflict{Message: "account already registered"}
	default:
		return &domain.ErrExternalService{
			Service: "supabase/auth",
			Err:     fmt.Errorf("status %d", status),
		}
	}
}
