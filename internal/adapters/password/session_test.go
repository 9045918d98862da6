package password

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline/console-auth/internal/adapters/backendapi"
	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

type fakeBackend struct {
	signInFunc     func(ctx context.Context, email, password string) (backendapi.SessionGrant, error)
	invalidateFunc func(ctx context.Context, bearer string) error
	invalidated    []string
}

func (f *fakeBackend) PasswordSignIn(ctx context.Context, email, password string) (backendapi.SessionGrant, error) {
	if f.signInFunc != nil {
		return f.signInFunc(ctx, email, password)
	}
	return backendapi.SessionGrant{SessionToken: "sess-1", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeBackend) InvalidateSession(ctx context.Context, bearer string) error {
	f.invalidated = append(f.invalidated, bearer)
	if f.invalidateFunc != nil {
		return f.invalidateFunc(ctx, bearer)
	}
	return nil
}

func TestSession_SignIn(t *testing.T) {
	sess := NewSession(&fakeBackend{})

	cred, err := sess.SignIn(context.Background(), ports.SignInInput{
		Email: "jane@acme.example", Password: "hunter2",
	})
	require.NoError(t, err)
	assert.Equal(t, domainauth.ProviderPassword, cred.Kind())
	assert.Equal(t, "sess-1", cred.Bearer())
}

func TestSession_SignIn_MissingFields(t *testing.T) {
	sess := NewSession(&fakeBackend{})

	_, err := sess.SignIn(context.Background(), ports.SignInInput{Email: "jane@acme.example"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSession_SignIn_BackendError(t *testing.T) {
	sess := NewSession(&fakeBackend{
		signInFunc: func(context.Context, string, string) (backendapi.SessionGrant, error) {
			return backendapi.SessionGrant{}, apperrors.InvalidCredentials("wrong password")
		},
	})

	_, err := sess.SignIn(context.Background(), ports.SignInInput{Email: "a@b.c", Password: "x"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
}

func TestSession_Refresh_LiveCredentialUnchanged(t *testing.T) {
	sess := NewSession(&fakeBackend{})
	cred := domainauth.PasswordCredential{
		SessionToken: "sess-1",
		ExpiresAt:    time.Now().Add(time.Hour),
	}

	got, err := sess.Refresh(context.Background(), cred)
	require.NoError(t, err)
	assert.Equal(t, cred, got)
}

func TestSession_Refresh_Expired(t *testing.T) {
	sess := NewSession(&fakeBackend{})
	cred := domainauth.PasswordCredential{
		SessionToken: "sess-1",
		ExpiresAt:    time.Now().Add(-time.Minute),
	}

	_, err := sess.Refresh(context.Background(), cred)
	require.Error(t, err)
	assert.True(t, apperrors.IsInteractionRequired(err))
}

func TestSession_Refresh_WrongVariant(t *testing.T) {
	sess := NewSession(&fakeBackend{})

	_, err := sess.Refresh(context.Background(), domainauth.OAuthCredential{RawToken: "t"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSession_SignOut_BestEffort(t *testing.T) {
	backend := &fakeBackend{
		invalidateFunc: func(context.Context, string) error {
			return errors.New("network unreachable")
		},
	}
	sess := NewSession(backend)

	err := sess.SignOut(context.Background(), domainauth.PasswordCredential{SessionToken: "sess-1"})
	// The remote failure surfaces, but callers clear local state regardless.
	require.Error(t, err)
	assert.Equal(t, []string{"sess-1"}, backend.invalidated)
}
