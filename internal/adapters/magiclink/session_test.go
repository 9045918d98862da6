package magiclink

import (
	"context"
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
	requested []string
	redeemed  []string
}

func (f *fakeBackend) RequestMagicLink(_ context.Context, email string) error {
	f.requested = append(f.requested, email)
	return nil
}

func (f *fakeBackend) RedeemMagicLink(_ context.Context, linkToken string) (backendapi.SessionGrant, error) {
	if linkToken == "already-used" {
		return backendapi.SessionGrant{}, apperrors.InvalidCredentials("link already redeemed")
	}
	f.redeemed = append(f.redeemed, linkToken)
	return backendapi.SessionGrant{SessionToken: "sess-magic", ExpiresAt: time.Now().Add(time.Hour)}, nil
}

func (f *fakeBackend) InvalidateSession(context.Context, string) error { return nil }

func TestSession_Request(t *testing.T) {
	backend := &fakeBackend{}
	sess := NewSession(backend)

	require.NoError(t, sess.Request(context.Background(), "jane@acme.example"))
	assert.Equal(t, []string{"jane@acme.example"}, backend.requested)

	err := sess.Request(context.Background(), "")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSession_SignIn_RedeemsLink(t *testing.T) {
	backend := &fakeBackend{}
	sess := NewSession(backend)

	cred, err := sess.SignIn(context.Background(), ports.SignInInput{LinkToken: "one-time"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.ProviderMagicLink, cred.Kind())
	assert.Equal(t, "sess-magic", cred.Bearer())
	assert.Equal(t, []string{"one-time"}, backend.redeemed)
}

func TestSession_SignIn_ReplayedLink(t *testing.T) {
	sess := NewSession(&fakeBackend{})

	_, err := sess.SignIn(context.Background(), ports.SignInInput{LinkToken: "already-used"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInvalidCredentials(err))
}

func TestSession_Refresh(t *testing.T) {
	sess := NewSession(&fakeBackend{})

	live := domainauth.MagicLinkCredential{SessionToken: "s", ExpiresAt: time.Now().Add(time.Hour)}
	got, err := sess.Refresh(context.Background(), live)
	require.NoError(t, err)
	assert.Equal(t, live, got)

	expired := domainauth.MagicLinkCredential{SessionToken: "s", ExpiresAt: time.Now().Add(-time.Minute)}
	_, err = sess.Refresh(context.Background(), expired)
	assert.True(t, apperrors.IsInteractionRequired(err))
}
