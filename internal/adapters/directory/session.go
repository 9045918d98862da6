package directory

// Package directory implements the enterprise-directory provider session on
// top of OIDC. The directory issues claim-bearing tokens; silent acquisition
// via the refresh-token grant is always tried before an interactive prompt.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
	"github.com/brightline/console-auth/internal/token"
)

// RefreshWindow is how close to expiry a directory credential gets before the
// bootstrapper schedules a silent refresh.
const RefreshWindow = 5 * time.Minute

// Session implements the enterprise-directory provider session.
type Session struct {
	config     *oauth2.Config
	logoutURL  string
	httpClient *http.Client

	oidcProvider *gooidc.Provider
	verifier     *gooidc.IDTokenVerifier

	// refresh tokens by account hint, fed by SignIn/Refresh, consumed by
	// AcquireSilently
	mu            sync.Mutex
	refreshTokens map[string]string
}

// Config holds configuration for the directory session.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	LogoutURL    string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewSession creates a directory session from Config. A single discovery
// fetch initializes the endpoints and the (unused-for-trust) verifier.
func NewSession(cfg Config) (*Session, error) {
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, errors.New("client secret is required")
	}
	if cfg.RedirectURL == "" {
		return nil, errors.New("redirect URL is required")
	}
	if cfg.DiscoveryURL == "" {
		return nil, errors.New("discovery URL is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	s := &Session{
		logoutURL:     cfg.LogoutURL,
		httpClient:    httpClient,
		refreshTokens: make(map[string]string),
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}
	s.oidcProvider = op
	s.verifier = op.Verifier(&gooidc.Config{ClientID: cfg.ClientID})

	s.config = &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		RedirectURL:  cfg.RedirectURL,
		Scopes:       strings.Fields(cfg.Scope),
		Endpoint:     op.Endpoint(),
	}

	return s, nil
}

var (
	_ ports.ProviderSession     = (*Session)(nil)
	_ ports.SilentAcquirer      = (*Session)(nil)
	_ ports.InteractiveBeginner = (*Session)(nil)
)

// Kind returns the enterprise provider discriminant.
func (s *Session) Kind() domainauth.ProviderKind { return domainauth.ProviderEnterprise }

// Begin starts the interactive flow and returns the directory auth URL with
// cryptographically secure state and nonce.
func (s *Session) Begin(_ context.Context, redirectURL string) (string, string, string, error) {
	if redirectURL == "" {
		return "", "", "", errors.New("redirect URL is required")
	}

	state, err := randomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate state: %w", err)
	}
	nonce, err := randomString(32)
	if err != nil {
		return "", "", "", fmt.Errorf("generate nonce: %w", err)
	}

	authURL := s.config.AuthCodeURL(state,
		oauth2.SetAuthURLParam("nonce", nonce),
		oauth2.SetAuthURLParam("response_type", "code"),
		oauth2.SetAuthURLParam("prompt", "select_account"),
	)
	return authURL, state, nonce, nil
}

// SignIn completes the interactive flow by exchanging the authorization code
// for a directory credential.
func (s *Session) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Credential, error) {
	if in.Code == "" {
		return nil, apperrors.Validation("authorization code is required")
	}

	tok, err := s.config.Exchange(s.clientContext(ctx), in.Code)
	if err != nil {
		return nil, mapOAuthError(err, "exchange authorization code")
	}
	return s.credentialFromToken(tok)
}

// Refresh exchanges the existing credential's refresh token for a fresh one.
// Without a refresh token, or when the directory rejects it, the caller must
// fall back to an interactive sign-in.
func (s *Session) Refresh(ctx context.Context, existing domainauth.Credential) (domainauth.Credential, error) {
	cred, ok := existing.(domainauth.EnterpriseCredential)
	if !ok {
		return nil, apperrors.Validation("credential is not an enterprise credential")
	}
	if cred.RefreshToken == "" {
		return nil, apperrors.InteractionRequired("no refresh token for directory credential")
	}

	src := s.config.TokenSource(s.clientContext(ctx), &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		// Force the refresh grant by presenting an expired access token
		Expiry: time.Now().Add(-time.Minute),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, mapOAuthError(err, "refresh directory credential")
	}
	return s.credentialFromToken(tok)
}

// AcquireSilently acquires a credential for a known directory account without
// user interaction, using a refresh token remembered from a prior sign-in.
func (s *Session) AcquireSilently(ctx context.Context, account string) (domainauth.Credential, error) {
	if account == "" {
		return nil, apperrors.Validation("account is required")
	}

	s.mu.Lock()
	refreshToken := s.refreshTokens[account]
	s.mu.Unlock()
	if refreshToken == "" {
		return nil, apperrors.InteractionRequired("no cached grant for account")
	}

	return s.Refresh(ctx, domainauth.EnterpriseCredential{
		RefreshToken: refreshToken,
		AccountHint:  account,
	})
}

// SignOut best-effort notifies the directory's end-session endpoint. Local
// credential state is cleared by the caller regardless of the outcome.
func (s *Session) SignOut(ctx context.Context, existing domainauth.Credential) error {
	cred, ok := existing.(domainauth.EnterpriseCredential)
	if ok && cred.AccountHint != "" {
		s.mu.Lock()
		delete(s.refreshTokens, cred.AccountHint)
		s.mu.Unlock()
	}
	if s.logoutURL == "" {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.logoutURL, nil)
	if err != nil {
		return fmt.Errorf("build logout request: %w", err)
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeNetwork, "directory logout")
	}
	_ = resp.Body.Close()
	return nil
}

// NeedsRefresh reports whether a credential is inside the near-expiry window.
func NeedsRefresh(cred domainauth.Credential, now time.Time) bool {
	expiry := cred.Expiry()
	if expiry.IsZero() {
		return false
	}
	return now.After(expiry.Add(-RefreshWindow))
}

// credentialFromToken builds the enterprise credential from a token response.
// The raw ID token is the bearer: it carries the directory claims the token
// inspector decodes downstream.
func (s *Session) credentialFromToken(tok *oauth2.Token) (domainauth.Credential, error) {
	rawID, _ := tok.Extra("id_token").(string)
	if rawID == "" {
		return nil, apperrors.ProviderUnavailable("missing id_token in directory response")
	}

	claims, err := token.Decode(rawID)
	if err != nil {
		return nil, fmt.Errorf("inspect id_token: %w", err)
	}

	account := claims.Email
	if account == "" {
		account = claims.SubjectID
	}
	if account != "" && tok.RefreshToken != "" {
		s.mu.Lock()
		s.refreshTokens[account] = tok.RefreshToken
		s.mu.Unlock()
	}

	expiresAt := time.Now().Add(time.Hour)
	if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry
	}

	return domainauth.EnterpriseCredential{
		RawToken:     rawID,
		RefreshToken: tok.RefreshToken,
		AccountHint:  account,
		ExpiresAt:    expiresAt,
	}, nil
}

func (s *Session) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// mapOAuthError classifies oauth2 failures into the auth taxonomy.
func mapOAuthError(err error, msg string) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		switch retrieveErr.ErrorCode {
		case "invalid_grant", "interaction_required", "login_required", "consent_required":
			return apperrors.Wrap(err, apperrors.ErrCodeInteractionRequired, msg)
		case "invalid_client", "unauthorized_client":
			return apperrors.Wrap(err, apperrors.ErrCodeInvalidCredentials, msg)
		}
		if retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 500 {
			return apperrors.Wrap(err, apperrors.ErrCodeProviderUnavailable, msg)
		}
		return apperrors.Wrap(err, apperrors.ErrCodeInvalidCredentials, msg)
	}
	return apperrors.Wrap(err, apperrors.ErrCodeNetwork, msg)
}

// randomString generates a cryptographically secure URL-safe random string of
// exact length.
func randomString(length int) (string, error) {
	if length <= 0 {
		return "", nil
	}
	nBytes := (length*3 + 3) / 4
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	s := base64.RawURLEncoding.EncodeToString(b)
	for len(s) < length {
		extra := make([]byte, 1)
		if _, err := rand.Read(extra); err != nil {
			return "", err
		}
		s += base64.RawURLEncoding.EncodeToString(extra)
	}
	return s[:length], nil
}
