package backendapi

// Package backendapi is the HTTP client for the console backend's auth
// endpoints. The backend is the trust boundary: profiles it returns are
// authoritative, and all token verification happens on its side.

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// Client calls the backend auth endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the backend API client.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client // Optional, defaults to a 30s-timeout client
}

// NewClient creates a backend API client.
func NewClient(cfg Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("base URL is required")
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: httpClient,
	}, nil
}

var _ ports.ProfileClient = (*Client)(nil)

// envelope is the backend's uniform response shape.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
	Message string          `json:"message"`
}

// SessionGrant is the payload of a successful password or magic-link sign-in:
// an opaque session token plus the authoritative profile.
type SessionGrant struct {
	SessionToken string             `json:"sessionToken"`
	ExpiresAt    time.Time          `json:"expiresAt"`
	Profile      domainauth.Profile `json:"profile"`
}

// FetchProfile calls GET /auth/me with the given bearer token.
func (c *Client) FetchProfile(ctx context.Context, bearer string) (domainauth.Profile, error) {
	if bearer == "" {
		return domainauth.Profile{}, apperrors.Validation("bearer token is required")
	}

	var profile domainauth.Profile
	if err := c.do(ctx, http.MethodGet, "/auth/me", bearer, nil, &profile); err != nil {
		return domainauth.Profile{}, err
	}
	return profile, nil
}

type signInRequest struct {
	Provider string `json:"provider"`
	Email    string `json:"email,omitempty"`
	Password string `json:"password,omitempty"`
	Token    string `json:"token,omitempty"`
}

// PasswordSignIn calls POST /auth/sign-in with email/password credentials.
func (c *Client) PasswordSignIn(ctx context.Context, email, password string) (SessionGrant, error) {
	if email == "" || password == "" {
		return SessionGrant{}, apperrors.Validation("email and password are required")
	}

	req := signInRequest{Provider: string(domainauth.ProviderPassword), Email: email, Password: password}
	var grant SessionGrant
	if err := c.do(ctx, http.MethodPost, "/auth/sign-in", "", req, &grant); err != nil {
		return SessionGrant{}, err
	}
	return grant, nil
}

// RequestMagicLink calls POST /auth/magic-link to mail a one-time link.
func (c *Client) RequestMagicLink(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.Validation("email is required")
	}
	req := signInRequest{Provider: string(domainauth.ProviderMagicLink), Email: email}
	return c.do(ctx, http.MethodPost, "/auth/magic-link", "", req, nil)
}

// RedeemMagicLink calls POST /auth/sign-in with a one-time link token.
func (c *Client) RedeemMagicLink(ctx context.Context, linkToken string) (SessionGrant, error) {
	if linkToken == "" {
		return SessionGrant{}, apperrors.Validation("link token is required")
	}

	req := signInRequest{Provider: string(domainauth.ProviderMagicLink), Token: linkToken}
	var grant SessionGrant
	if err := c.do(ctx, http.MethodPost, "/auth/sign-in", "", req, &grant); err != nil {
		return SessionGrant{}, err
	}
	return grant, nil
}

type signUpRequest struct {
	Provider         string `json:"provider"`
	Token            string `json:"token,omitempty"`
	Email            string `json:"email,omitempty"`
	Password         string `json:"password,omitempty"`
	DisplayName      string `json:"displayName,omitempty"`
	OrganizationName string `json:"organizationName,omitempty"`
}

// SignUp calls POST /auth/sign-up to register a new account.
func (c *Client) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Profile, error) {
	if !in.Provider.Valid() {
		return domainauth.Profile{}, apperrors.Validation("provider is required")
	}

	req := signUpRequest{
		Provider:         string(in.Provider),
		Token:            in.Token,
		Email:            in.Email,
		Password:         in.Password,
		DisplayName:      in.DisplayName,
		OrganizationName: in.OrganizationName,
	}
	var profile domainauth.Profile
	if err := c.do(ctx, http.MethodPost, "/auth/sign-up", "", req, &profile); err != nil {
		return domainauth.Profile{}, err
	}
	return profile, nil
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword calls POST /auth/change-password with the active bearer.
func (c *Client) ChangePassword(ctx context.Context, bearer, oldPassword, newPassword string) error {
	if bearer == "" {
		return apperrors.Validation("bearer token is required")
	}
	if oldPassword == "" || newPassword == "" {
		return apperrors.Validation("old and new passwords are required")
	}
	req := changePasswordRequest{OldPassword: oldPassword, NewPassword: newPassword}
	return c.do(ctx, http.MethodPost, "/auth/change-password", bearer, req, nil)
}

// InvalidateSession calls POST /auth/sign-out to revoke an opaque session
// token remotely. Callers treat failures as best-effort.
func (c *Client) InvalidateSession(ctx context.Context, bearer string) error {
	if bearer == "" {
		return nil
	}
	return c.do(ctx, http.MethodPost, "/auth/sign-out", bearer, nil, nil)
}

// do issues one request and decodes the response envelope into out.
func (c *Client) do(ctx context.Context, method, path, bearer string, body, out any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeNetwork, "%s %s", method, path)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeNetwork, "read %s response", path)
	}

	var env envelope
	if len(data) > 0 {
		// Tolerate an empty or non-JSON error body; status mapping below
		// still classifies the failure.
		_ = json.Unmarshal(data, &env)
	}

	if resp.StatusCode >= 400 {
		return c.statusError(resp.StatusCode, path, env)
	}

	if out == nil {
		return nil
	}
	if len(env.Data) == 0 {
		return apperrors.Newf(apperrors.ErrCodeInternal, "empty response data from %s", path)
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return apperrors.Wrapf(err, apperrors.ErrCodeInternal, "decode %s response", path)
	}
	return nil
}

// statusError maps an HTTP failure to the auth error taxonomy.
func (c *Client) statusError(status int, path string, env envelope) error {
	msg := env.Message
	if msg == "" {
		msg = fmt.Sprintf("%s returned status %d", path, status)
	}

	switch {
	case status == http.StatusNotFound, env.Error == "not_registered":
		// Expected control flow: the principal has no account yet.
		return apperrors.NotRegistered(msg)
	case status == http.StatusUnauthorized:
		return apperrors.InvalidCredentials(msg)
	case status == http.StatusServiceUnavailable, status == http.StatusBadGateway:
		return apperrors.ProviderUnavailable(msg)
	case status >= 500:
		return apperrors.ProfileFetch(msg)
	default:
		return apperrors.Validation(msg)
	}
}
