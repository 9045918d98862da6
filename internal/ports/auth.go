package ports

// Package ports defines interfaces (hexagonal ports) for the session core.
// Implementations live in internal/adapters; orchestration in internal/service.

import (
	"context"

	domainauth "github.com/brightline/console-auth/internal/domain/auth"
)

// Scope describes how long a persisted credential outlives the process.
type Scope string

const (
	// ScopeTab is cleared when the owning process ends.
	ScopeTab Scope = "tab"
	// ScopeDurable survives restarts and is visible to companion processes
	// (e.g. handoff to the desktop client).
	ScopeDurable Scope = "durable"
)

// CredentialStore persists provider credentials. It is a process-wide
// singleton with last-write-wins semantics; only one provider is active at a
// time, so no transactional merge is needed.
type CredentialStore interface {
	// Save persists a credential under its provider kind in the given scope.
	Save(ctx context.Context, cred domainauth.Credential, scope Scope) error

	// Load returns the persisted credential for a kind, or ErrNoCredential
	// when none exists in any scope.
	Load(ctx context.Context, kind domainauth.ProviderKind) (domainauth.Credential, error)

	// Clear removes the credential for one kind from every scope.
	Clear(ctx context.Context, kind domainauth.ProviderKind) error

	// ClearAll removes every credential kind from every scope. Partial
	// clears on logout resurrect stale sessions and are a correctness bug.
	ClearAll(ctx context.Context) error
}

// SignInInput carries provider-specific sign-in material. Exactly the fields
// relevant to the target provider are set.
type SignInInput struct {
	// Email and Password drive the password provider.
	Email    string
	Password string
	// Code and State complete an authorization-code exchange for the
	// enterprise and consumer OAuth providers.
	Code  string
	State string
	// LinkToken redeems a one-time magic link.
	LinkToken string
}

// ProviderSession acquires, refreshes, and invalidates the credential of a
// single identity provider. Each credential is owned exclusively by its
// session and never shared across providers.
type ProviderSession interface {
	// Kind returns the provider discriminant.
	Kind() domainauth.ProviderKind

	// SignIn performs an interactive sign-in and returns a fresh credential.
	SignIn(ctx context.Context, in SignInInput) (domainauth.Credential, error)

	// Refresh exchanges an existing credential for a fresh one. It fails
	// with an expired or interaction_required AppError; on
	// interaction_required the caller must fall back to an interactive
	// sign-in, never loop silently.
	Refresh(ctx context.Context, existing domainauth.Credential) (domainauth.Credential, error)

	// SignOut best-effort invalidates the credential remotely. Local
	// credential state is always cleared by the caller regardless of the
	// returned error.
	SignOut(ctx context.Context, existing domainauth.Credential) error
}

// InteractiveBeginner is implemented by the OAuth-style sessions that start a
// redirect flow. Begin returns the provider auth URL plus an opaque state and
// nonce the caller must carry through the callback.
type InteractiveBeginner interface {
	Begin(ctx context.Context, redirectURL string) (authURL, state, nonce string, err error)
}

// SilentAcquirer is implemented by the enterprise-directory session, which can
// acquire a credential for a known account without user interaction. It is
// tried before any interactive prompt.
type SilentAcquirer interface {
	AcquireSilently(ctx context.Context, account string) (domainauth.Credential, error)
}

// SignUpInput carries the fields forwarded to the backend sign-up endpoint.
type SignUpInput struct {
	Provider         domainauth.ProviderKind
	Token            string
	Email            string
	Password         string
	DisplayName      string
	OrganizationName string
}

// ProfileClient talks to the backend auth endpoints. The backend is the trust
// boundary; everything it returns is authoritative.
type ProfileClient interface {
	// FetchProfile calls the "who am I" endpoint with the given bearer.
	// A not_registered AppError means the principal has no account: the
	// caller clears the credential and routes to sign-up, it does not retry.
	FetchProfile(ctx context.Context, bearer string) (domainauth.Profile, error)

	// SignUp registers a new account.
	SignUp(ctx context.Context, in SignUpInput) (domainauth.Profile, error)

	// ChangePassword rotates the password for the authenticated principal.
	ChangePassword(ctx context.Context, bearer, oldPassword, newPassword string) error
}

// ErrNoCredential is returned by credential stores when a kind has no
// persisted credential in any scope.
type noCredentialError struct{}

func (noCredentialError) Error() string { return "no credential" }

var ErrNoCredential error = noCredentialError{}
