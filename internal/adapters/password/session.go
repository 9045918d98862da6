package password

// Package password implements the password provider session against the
// backend sign-in endpoint. Its credential is an opaque session token with no
// directory claims.

import (
	"context"
	"time"

	"github.com/brightline/console-auth/internal/adapters/backendapi"
	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// Backend is the slice of the backend API the password session needs.
type Backend interface {
	PasswordSignIn(ctx context.Context, email, password string) (backendapi.SessionGrant, error)
	InvalidateSession(ctx context.Context, bearer string) error
}

// Session implements the password provider session.
type Session struct {
	backend Backend
}

// NewSession creates a password session backed by the given backend client.
func NewSession(backend Backend) *Session {
	return &Session{backend: backend}
}

var _ ports.ProviderSession = (*Session)(nil)

// Kind returns the password provider discriminant.
func (s *Session) Kind() domainauth.ProviderKind { return domainauth.ProviderPassword }

// SignIn exchanges email/password for an opaque backend session token.
func (s *Session) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Credential, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperrors.Validation("email and password are required")
	}

	grant, err := s.backend.PasswordSignIn(ctx, in.Email, in.Password)
	if err != nil {
		return nil, err
	}
	return domainauth.PasswordCredential{
		SessionToken: grant.SessionToken,
		ExpiresAt:    grant.ExpiresAt,
	}, nil
}

// Refresh validates the session token locally. Opaque session tokens cannot
// be silently renewed: a live one is returned unchanged and an expired one
// requires the user to sign in again.
func (s *Session) Refresh(_ context.Context, existing domainauth.Credential) (domainauth.Credential, error) {
	cred, ok := existing.(domainauth.PasswordCredential)
	if !ok {
		return nil, apperrors.Validation("credential is not a password credential")
	}
	if expiry := cred.Expiry(); !expiry.IsZero() && time.Now().After(expiry) {
		return nil, apperrors.InteractionRequired("password session expired")
	}
	return cred, nil
}

// SignOut best-effort revokes the session token remotely.
func (s *Session) SignOut(ctx context.Context, existing domainauth.Credential) error {
	if existing == nil {
		return nil
	}
	return s.backend.InvalidateSession(ctx, existing.Bearer())
}
