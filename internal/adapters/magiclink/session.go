package magiclink

// Package magiclink implements the magic-link provider session: a mailed
// one-time token is redeemed for an opaque backend session token.

import (
	"context"
	"time"

	"github.com/brightline/console-auth/internal/adapters/backendapi"
	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// Backend is the slice of the backend API the magic-link session needs.
type Backend interface {
	RequestMagicLink(ctx context.Context, email string) error
	RedeemMagicLink(ctx context.Context, linkToken string) (backendapi.SessionGrant, error)
	InvalidateSession(ctx context.Context, bearer string) error
}

// Session implements the magic-link provider session.
type Session struct {
	backend Backend
}

// NewSession creates a magic-link session backed by the given backend client.
func NewSession(backend Backend) *Session {
	return &Session{backend: backend}
}

var _ ports.ProviderSession = (*Session)(nil)

// Kind returns the magic-link provider discriminant.
func (s *Session) Kind() domainauth.ProviderKind { return domainauth.ProviderMagicLink }

// Request mails a one-time sign-in link to the given address.
func (s *Session) Request(ctx context.Context, email string) error {
	if email == "" {
		return apperrors.Validation("email is required")
	}
	return s.backend.RequestMagicLink(ctx, email)
}

// SignIn redeems a one-time link token for an opaque session token. A token
// that was already redeemed surfaces as invalid_credentials from the backend.
func (s *Session) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Credential, error) {
	if in.LinkToken == "" {
		return nil, apperrors.Validation("link token is required")
	}

	grant, err := s.backend.RedeemMagicLink(ctx, in.LinkToken)
	if err != nil {
		return nil, err
	}
	return domainauth.MagicLinkCredential{
		SessionToken: grant.SessionToken,
		ExpiresAt:    grant.ExpiresAt,
	}, nil
}

// Refresh validates the session token locally. A redeemed link cannot be
// replayed, so an expired session always requires a fresh link.
func (s *Session) Refresh(_ context.Context, existing domainauth.Credential) (domainauth.Credential, error) {
	cred, ok := existing.(domainauth.MagicLinkCredential)
	if !ok {
		return nil, apperrors.Validation("credential is not a magic-link credential")
	}
	if expiry := cred.Expiry(); !expiry.IsZero() && time.Now().After(expiry) {
		return nil, apperrors.InteractionRequired("magic-link session expired")
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
