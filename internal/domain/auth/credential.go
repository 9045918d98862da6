package auth

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProviderKind discriminates the four identity providers the console supports.
type ProviderKind string

const (
	ProviderEnterprise ProviderKind = "enterprise"
	ProviderOAuth      ProviderKind = "oauth"
	ProviderPassword   ProviderKind = "password"
	ProviderMagicLink  ProviderKind = "magiclink"
)

// ProviderPrecedence lists all provider kinds in restore-precedence order.
// When storage holds more than one credential (a storage bug), the earliest
// kind in this list wins.
var ProviderPrecedence = []ProviderKind{
	ProviderEnterprise,
	ProviderOAuth,
	ProviderPassword,
	ProviderMagicLink,
}

// Valid reports whether k is one of the four known provider kinds.
func (k ProviderKind) Valid() bool {
	switch k {
	case ProviderEnterprise, ProviderOAuth, ProviderPassword, ProviderMagicLink:
		return true
	}
	return false
}

// Credential is the opaque provider-issued token used to authenticate backend
// calls. Each variant is owned exclusively by its provider session and is
// never parsed for trust, only decoded for advisory claims.
type Credential interface {
	// Kind returns the provider discriminant.
	Kind() ProviderKind
	// Bearer returns the opaque token presented to the backend.
	Bearer() string
	// Expiry returns the credential's absolute expiry, or the zero time when
	// the provider does not communicate one.
	Expiry() time.Time
}

// EnterpriseCredential is issued by the enterprise directory.
// AccountHint identifies the directory account for silent re-acquisition.
type EnterpriseCredential struct {
	RawToken     string    `json:"raw_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	AccountHint  string    `json:"account_hint,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (c EnterpriseCredential) Kind() ProviderKind { return ProviderEnterprise }
func (c EnterpriseCredential) Bearer() string     { return c.RawToken }
func (c EnterpriseCredential) Expiry() time.Time  { return c.ExpiresAt }

// OAuthCredential is issued by the consumer OAuth provider.
type OAuthCredential struct {
	RawToken     string    `json:"raw_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

func (c OAuthCredential) Kind() ProviderKind { return ProviderOAuth }
func (c OAuthCredential) Bearer() string     { return c.RawToken }
func (c OAuthCredential) Expiry() time.Time  { return c.ExpiresAt }

// PasswordCredential is an opaque backend session token from a password sign-in.
type PasswordCredential struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

func (c PasswordCredential) Kind() ProviderKind { return ProviderPassword }
func (c PasswordCredential) Bearer() string     { return c.SessionToken }
func (c PasswordCredential) Expiry() time.Time  { return c.ExpiresAt }

// MagicLinkCredential is an opaque backend session token from a redeemed
// one-time magic link.
type MagicLinkCredential struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at,omitzero"`
}

func (c MagicLinkCredential) Kind() ProviderKind { return ProviderMagicLink }
func (c MagicLinkCredential) Bearer() string     { return c.SessionToken }
func (c MagicLinkCredential) Expiry() time.Time  { return c.ExpiresAt }

// credentialEnvelope is the persisted JSON form of a Credential: the kind
// discriminant plus the variant payload.
type credentialEnvelope struct {
	Kind    ProviderKind    `json:"kind"`
	Payload json.RawMessage `json:"payload"`
}

// EncodeCredential serializes a credential into its persisted envelope form.
func EncodeCredential(cred Credential) ([]byte, error) {
	if cred == nil {
		return nil, fmt.Errorf("nil credential")
	}
	payload, err := json.Marshal(cred)
	if err != nil {
		return nil, fmt.Errorf("marshal credential payload: %w", err)
	}
	return json.Marshal(credentialEnvelope{Kind: cred.Kind(), Payload: payload})
}

// DecodeCredential deserializes a persisted envelope back into its concrete
// credential variant, dispatching on the kind discriminant.
func DecodeCredential(data []byte) (Credential, error) {
	var env credentialEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("unmarshal credential envelope: %w", err)
	}
	switch env.Kind {
	case ProviderEnterprise:
		var c EnterpriseCredential
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, fmt.Errorf("unmarshal enterprise credential: %w", err)
		}
		return c, nil
	case ProviderOAuth:
		var c OAuthCredential
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, fmt.Errorf("unmarshal oauth credential: %w", err)
		}
		return c, nil
	case ProviderPassword:
		var c PasswordCredential
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, fmt.Errorf("unmarshal password credential: %w", err)
		}
		return c, nil
	case ProviderMagicLink:
		var c MagicLinkCredential
		if err := json.Unmarshal(env.Payload, &c); err != nil {
			return nil, fmt.Errorf("unmarshal magic link credential: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown credential kind %q", env.Kind)
	}
}

// TruncateToken shortens an opaque token for display and debug logging.
// Tokens are never logged whole.
func TruncateToken(token string) string {
	const keep = 8
	if len(token) <= keep {
		return token
	}
	return token[:keep] + "..."
}
