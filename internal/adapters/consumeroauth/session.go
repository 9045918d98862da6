package consumeroauth

// Package consumeroauth implements the consumer OAuth provider session.
// Unlike the enterprise directory, the consumer provider issues plain access
// tokens with no directory claims; identity comes from the backend profile.

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// Session implements the consumer OAuth provider session.
type Session struct {
	config     *oauth2.Config
	httpClient *http.Client
}

// Config holds configuration for the consumer OAuth session.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scope        string
	DiscoveryURL string
	HTTPClient   *http.Client // Optional, defaults to a 30s-timeout client
}

// NewSession creates a consumer OAuth session from Config.
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

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, httpClient)
	issuer := strings.TrimSuffix(cfg.DiscoveryURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	return &Session{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       strings.Fields(cfg.Scope),
			Endpoint:     op.Endpoint(),
		},
		httpClient: httpClient,
	}, nil
}

var (
	_ ports.ProviderSession     = (*Session)(nil)
	_ ports.InteractiveBeginner = (*Session)(nil)
)

// Kind returns the oauth provider discriminant.
func (s *Session) Kind() domainauth.ProviderKind { return domainauth.ProviderOAuth }

// Begin starts the consumer OAuth redirect flow.
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

	authURL := s.config.AuthCodeURL(state, oauth2.SetAuthURLParam("nonce", nonce))
	return authURL, state, nonce, nil
}

// SignIn exchanges the authorization code for an OAuth credential.
func (s *Session) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Credential, error) {
	if in.Code == "" {
		return nil, apperrors.Validation("authorization code is required")
	}

	tok, err := s.config.Exchange(s.clientContext(ctx), in.Code)
	if err != nil {
		return nil, mapOAuthError(err, "exchange authorization code")
	}
	return credentialFromToken(tok), nil
}

// Refresh exchanges the credential's refresh token for a fresh access token.
func (s *Session) Refresh(ctx context.Context, existing domainauth.Credential) (domainauth.Credential, error) {
	cred, ok := existing.(domainauth.OAuthCredential)
	if !ok {
		return nil, apperrors.Validation("credential is not an oauth credential")
	}
	if cred.RefreshToken == "" {
		return nil, apperrors.InteractionRequired("no refresh token for oauth credential")
	}

	src := s.config.TokenSource(s.clientContext(ctx), &oauth2.Token{
		RefreshToken: cred.RefreshToken,
		Expiry:       time.Now().Add(-time.Minute),
	})
	tok, err := src.Token()
	if err != nil {
		return nil, mapOAuthError(err, "refresh oauth credential")
	}
	return credentialFromToken(tok), nil
}

// SignOut is a local no-op: the consumer provider offers no revocation
// endpoint we can call with confidence, and local state is cleared by the
// caller either way.
func (s *Session) SignOut(context.Context, domainauth.Credential) error {
	return nil
}

func credentialFromToken(tok *oauth2.Token) domainauth.Credential {
	expiresAt := time.Now().Add(time.Hour)
	if !tok.Expiry.IsZero() {
		expiresAt = tok.Expiry
	}
	return domainauth.OAuthCredential{
		RawToken:     tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    expiresAt,
	}
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
