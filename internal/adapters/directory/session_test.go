package directory

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
)

func TestNeedsRefresh(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name string
		cred domainauth.Credential
		want bool
	}{
		{
			name: "well before window",
			cred: domainauth.EnterpriseCredential{ExpiresAt: now.Add(time.Hour)},
			want: false,
		},
		{
			name: "inside window",
			cred: domainauth.EnterpriseCredential{ExpiresAt: now.Add(2 * time.Minute)},
			want: true,
		},
		{
			name: "already expired",
			cred: domainauth.EnterpriseCredential{ExpiresAt: now.Add(-time.Minute)},
			want: true,
		},
		{
			name: "no expiry communicated",
			cred: domainauth.MagicLinkCredential{SessionToken: "s"},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NeedsRefresh(tt.cred, now))
		})
	}
}

func TestMapOAuthError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
	}{
		{
			name:  "invalid_grant requires interaction",
			err:   &oauth2.RetrieveError{ErrorCode: "invalid_grant"},
			check: apperrors.IsInteractionRequired,
		},
		{
			name:  "login_required requires interaction",
			err:   &oauth2.RetrieveError{ErrorCode: "login_required"},
			check: apperrors.IsInteractionRequired,
		},
		{
			name:  "unauthorized_client is invalid credentials",
			err:   &oauth2.RetrieveError{ErrorCode: "unauthorized_client"},
			check: apperrors.IsInvalidCredentials,
		},
		{
			name: "5xx is provider unavailable",
			err: &oauth2.RetrieveError{
				Response: &http.Response{StatusCode: http.StatusBadGateway},
			},
			check: apperrors.IsProviderUnavailable,
		},
		{
			name:  "transport failure is network",
			err:   errors.New("dial tcp: connection refused"),
			check: apperrors.IsNetwork,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapOAuthError(tt.err, "refresh directory credential")
			assert.True(t, tt.check(mapped), "got %v", mapped)
		})
	}
}

func TestSession_Refresh_NoRefreshToken(t *testing.T) {
	s := &Session{refreshTokens: make(map[string]string)}

	_, err := s.Refresh(context.Background(), domainauth.EnterpriseCredential{RawToken: "tok"})
	require.Error(t, err)
	assert.True(t, apperrors.IsInteractionRequired(err))
}

func TestSession_Refresh_WrongVariant(t *testing.T) {
	s := &Session{refreshTokens: make(map[string]string)}

	_, err := s.Refresh(context.Background(), domainauth.PasswordCredential{SessionToken: "s"})
	require.Error(t, err)
	assert.True(t, apperrors.IsValidation(err))
}

func TestSession_AcquireSilently_NoCachedGrant(t *testing.T) {
	s := &Session{refreshTokens: make(map[string]string)}

	_, err := s.AcquireSilently(context.Background(), "jdoe@corp.example")
	require.Error(t, err)
	assert.True(t, apperrors.IsInteractionRequired(err), "must fall back to interactive, got %v", err)
}

func TestRandomString(t *testing.T) {
	s1, err := randomString(32)
	require.NoError(t, err)
	s2, err := randomString(32)
	require.NoError(t, err)

	assert.Len(t, s1, 32)
	assert.NotEqual(t, s1, s2)

	empty, err := randomString(0)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
