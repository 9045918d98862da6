package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// persistScope maps each provider kind to its storage scope. Directory and
// consumer OAuth credentials are durable (restart survival and desktop-client
// handoff); opaque backend sessions stay tab-scoped.
func persistScope(kind domainauth.ProviderKind) ports.Scope {
	switch kind {
	case domainauth.ProviderEnterprise, domainauth.ProviderOAuth:
		return ports.ScopeDurable
	default:
		return ports.ScopeTab
	}
}

// SessionManager owns the active provider session and enforces the invariant
// that at most one provider is active at a time. All credential writes go
// through it.
type SessionManager struct {
	providers map[domainauth.ProviderKind]ports.ProviderSession
	store     ports.CredentialStore
	logger    *slog.Logger

	refreshFlight singleflight.Group

	mu     sync.Mutex
	active domainauth.Credential
}

// SessionManagerOptions groups dependencies for NewSessionManager.
type SessionManagerOptions struct {
	Providers []ports.ProviderSession
	Store     ports.CredentialStore
	Logger    *slog.Logger
}

// NewSessionManager constructs a session manager over the given providers.
func NewSessionManager(opts SessionManagerOptions) *SessionManager {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	providers := make(map[domainauth.ProviderKind]ports.ProviderSession, len(opts.Providers))
	for _, p := range opts.Providers {
		providers[p.Kind()] = p
	}
	return &SessionManager{
		providers: providers,
		store:     opts.Store,
		logger:    logger,
	}
}

// Provider returns the session for a kind, when configured.
func (m *SessionManager) Provider(kind domainauth.ProviderKind) (ports.ProviderSession, bool) {
	p, ok := m.providers[kind]
	return p, ok
}

// Active returns the active credential, or false when unauthenticated.
func (m *SessionManager) Active() (domainauth.Credential, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.active == nil {
		return nil, false
	}
	return m.active, true
}

// BearerToken returns the bearer of the active credential. It fails when no
// provider is active.
func (m *SessionManager) BearerToken() (string, error) {
	cred, ok := m.Active()
	if !ok {
		return "", apperrors.Validation("no active provider")
	}
	return cred.Bearer(), nil
}

// SignIn signs in against one provider. Every other provider's credential is
// fully cleared before the new one is activated, so exactly one credential
// exists afterwards.
func (m *SessionManager) SignIn(ctx context.Context, kind domainauth.ProviderKind, in ports.SignInInput) (domainauth.Credential, error) {
	provider, ok := m.providers[kind]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeValidation, "provider %q is not configured", kind)
	}

	cred, err := provider.SignIn(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("sign in with %s: %w", kind, err)
	}

	m.activate(ctx, cred)
	return cred, nil
}

// SignInSilently acquires a credential for a known account without user
// interaction. Only providers that cache a prior grant support this; it fails
// with interaction_required when no grant is available, and the caller falls
// back to the interactive flow.
func (m *SessionManager) SignInSilently(ctx context.Context, kind domainauth.ProviderKind, account string) (domainauth.Credential, error) {
	provider, ok := m.providers[kind]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeValidation, "provider %q is not configured", kind)
	}
	acquirer, ok := provider.(ports.SilentAcquirer)
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeInteractionRequired, "provider %q has no silent flow", kind)
	}

	cred, err := acquirer.AcquireSilently(ctx, account)
	if err != nil {
		return nil, fmt.Errorf("silent sign-in with %s: %w", kind, err)
	}

	m.activate(ctx, cred)
	return cred, nil
}

// activate makes cred the single active credential: every prior credential is
// fully cleared before the new one is persisted and published.
func (m *SessionManager) activate(ctx context.Context, cred domainauth.Credential) {
	kind := cred.Kind()
	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Warn("clearing prior credentials failed", "error", err)
	}
	if err := m.store.Save(ctx, cred, persistScope(kind)); err != nil {
		// Persistence trouble must not block sign-in; the in-memory
		// credential still authenticates this session.
		m.logger.Warn("persist credential failed", "kind", kind, "error", err)
	}

	m.mu.Lock()
	m.active = cred
	m.mu.Unlock()

	m.logger.Info("signed in", "provider", kind,
		"token", domainauth.TruncateToken(cred.Bearer()))
}

// SignOut signs out of the active provider. Remote invalidation is
// fire-and-forget; local credential state is always cleared, so sign-out
// never fails from the caller's perspective.
func (m *SessionManager) SignOut(ctx context.Context) {
	m.mu.Lock()
	cred := m.active
	m.active = nil
	m.mu.Unlock()

	if cred != nil {
		if provider, ok := m.providers[cred.Kind()]; ok {
			if err := provider.SignOut(ctx, cred); err != nil {
				m.logger.Warn("remote sign-out failed, local state cleared anyway",
					"provider", cred.Kind(), "error", err)
			}
		}
	}

	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Warn("clearing credential store on sign-out failed", "error", err)
	}
}

// Restore loads a persisted credential, if any, and makes it active. When
// multiple credentials survive in storage (a storage bug), provider
// precedence picks the winner and the stragglers are cleared.
func (m *SessionManager) Restore(ctx context.Context) (domainauth.Credential, bool) {
	var restored domainauth.Credential
	for _, kind := range domainauth.ProviderPrecedence {
		cred, err := m.store.Load(ctx, kind)
		if err != nil {
			continue
		}
		if restored == nil {
			restored = cred
			continue
		}
		m.logger.Warn("multiple persisted credentials found, clearing lower-precedence entry",
			"kept", restored.Kind(), "cleared", kind)
		if err := m.store.Clear(ctx, kind); err != nil {
			m.logger.Warn("clear straggler credential failed", "kind", kind, "error", err)
		}
	}

	if restored == nil {
		return nil, false
	}

	m.mu.Lock()
	m.active = restored
	m.mu.Unlock()
	return restored, true
}

// Refresh silently refreshes the active credential, deduplicated per provider
// kind: concurrent callers share one refresh outcome. A failed refresh leaves
// the last-known-good credential in place until it hard-expires.
func (m *SessionManager) Refresh(ctx context.Context) (domainauth.Credential, error) {
	m.mu.Lock()
	cred := m.active
	m.mu.Unlock()
	if cred == nil {
		return nil, apperrors.Validation("no active provider")
	}

	kind := cred.Kind()
	provider, ok := m.providers[kind]
	if !ok {
		return nil, apperrors.Newf(apperrors.ErrCodeValidation, "provider %q is not configured", kind)
	}

	result, err, _ := m.refreshFlight.Do(string(kind), func() (any, error) {
		fresh, refreshErr := provider.Refresh(ctx, cred)
		if refreshErr != nil {
			return nil, refreshErr
		}
		if saveErr := m.store.Save(ctx, fresh, persistScope(kind)); saveErr != nil {
			m.logger.Warn("persist refreshed credential failed", "kind", kind, "error", saveErr)
		}
		m.mu.Lock()
		m.active = fresh
		m.mu.Unlock()
		return fresh, nil
	})
	if err != nil {
		return nil, fmt.Errorf("refresh %s credential: %w", kind, err)
	}
	return result.(domainauth.Credential), nil
}

// ClearActive drops the active credential locally without remote
// invalidation. Used when the backend reports the principal has no account.
func (m *SessionManager) ClearActive(ctx context.Context) {
	m.mu.Lock()
	m.active = nil
	m.mu.Unlock()
	if err := m.store.ClearAll(ctx); err != nil {
		m.logger.Warn("clearing credential store failed", "error", err)
	}
}
