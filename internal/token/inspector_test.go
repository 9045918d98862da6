package token

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
)

// encodeClaims builds a signed token around the given claims. The signature is
// irrelevant to Decode; it only guarantees the three-segment shape.
func encodeClaims(t *testing.T, claims domainauth.TokenClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   claims.SubjectID,
		"tid":   claims.TenantID,
		"email": claims.Email,
		"name":  claims.DisplayName,
		"roles": claims.Roles,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	signed, err := tok.SignedString([]byte("unit-test-key"))
	require.NoError(t, err)
	return signed
}

func TestDecode_RoundTrip(t *testing.T) {
	want := domainauth.TokenClaims{
		SubjectID:   "user-42",
		TenantID:    "tenant-7",
		Email:       "jane@corp.example",
		DisplayName: "Jane Doe",
		Roles:       []string{"ClientAdmin", "UserAdmin"},
	}

	got, err := Decode(encodeClaims(t, want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestDecode_PrefersEmailOverUPN(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                "u1",
		"email":              "primary@corp.example",
		"preferred_username": "fallback@corp.example",
	})
	signed, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)

	got, err := Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "primary@corp.example", got.Email)
}

func TestDecode_FallsBackToUPN(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":                "u1",
		"preferred_username": "jane@corp.example",
	})
	signed, err := tok.SignedString([]byte("k"))
	require.NoError(t, err)

	got, err := Decode(signed)
	require.NoError(t, err)
	assert.Equal(t, "jane@corp.example", got.Email)
}

func TestDecode_Malformed(t *testing.T) {
	malformed := []string{
		"",
		"not-a-token",
		"one.two",
		"a.b.c.d",
		"!!!.???.###",
		"header.bm90LWpzb24.sig", // payload decodes but is not JSON
		"....",
	}

	for _, s := range malformed {
		claims, err := Decode(s)
		require.Error(t, err, s)
		assert.True(t, apperrors.IsDecode(err), "want decode error for %q, got %v", s, err)
		assert.True(t, claims.Empty())
	}
}

func TestDecode_OpaqueSessionTokensAreNotClaims(t *testing.T) {
	// Password and magic-link session tokens are opaque strings; they must
	// surface as absent claims, never as a panic or a fatal failure.
	_, err := Decode("sess-0b9f2a4c1d")
	require.Error(t, err)
	assert.True(t, apperrors.IsDecode(err))
}
