package credstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"

	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// backingStore is the per-scope storage contract shared by MemoryStore and
// RedisStore.
type backingStore interface {
	Put(ctx context.Context, cred domainauth.Credential) error
	Get(ctx context.Context, kind domainauth.ProviderKind) (domainauth.Credential, error)
	Del(ctx context.Context, kind domainauth.ProviderKind) error
}

// Compile-time conformance of the scope backings and the composite.
var (
	_ backingStore          = (*MemoryStore)(nil)
	_ backingStore          = (*RedisStore)(nil)
	_ ports.CredentialStore = (*ScopedStore)(nil)
)

// ScopedStore routes credential persistence by scope: tab-scoped credentials
// live in memory for the process lifetime, durable ones in the cross-process
// backend. When the durable backend fails (quota, privacy mode, outage) the
// store degrades to memory-only for the rest of the session rather than
// blocking sign-in.
type ScopedStore struct {
	tab      backingStore
	durable  backingStore
	fallback backingStore
	logger   *slog.Logger

	degraded atomic.Bool
}

// ScopedStoreOptions bundles dependencies for NewScopedStore.
type ScopedStoreOptions struct {
	// Tab backs ScopeTab; defaults to a fresh MemoryStore.
	Tab backingStore
	// Durable backs ScopeDurable; when nil the store starts degraded.
	Durable backingStore
	Logger  *slog.Logger
}

// NewScopedStore creates the scope-routing credential store.
func NewScopedStore(opts ScopedStoreOptions) *ScopedStore {
	tab := opts.Tab
	if tab == nil {
		tab = NewMemoryStore()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &ScopedStore{
		tab:      tab,
		durable:  opts.Durable,
		fallback: NewMemoryStore(),
		logger:   logger,
	}
	if opts.Durable == nil {
		s.degraded.Store(true)
	}
	return s
}

// Degraded reports whether durable persistence has been replaced by the
// in-memory fallback for this session.
func (s *ScopedStore) Degraded() bool { return s.degraded.Load() }

// Save persists a credential in the requested scope. The same kind is removed
// from the other scope so at most one copy exists across scopes.
func (s *ScopedStore) Save(ctx context.Context, cred domainauth.Credential, scope ports.Scope) error {
	if cred == nil {
		return errors.New("credential is required")
	}

	switch scope {
	case ports.ScopeTab:
		if err := s.tab.Put(ctx, cred); err != nil {
			return fmt.Errorf("save tab credential: %w", err)
		}
		s.durableDel(ctx, cred.Kind())
		return nil

	case ports.ScopeDurable:
		if err := s.tab.Del(ctx, cred.Kind()); err != nil {
			return fmt.Errorf("clear tab credential: %w", err)
		}
		s.durablePut(ctx, cred)
		return nil

	default:
		return fmt.Errorf("unknown scope %q", scope)
	}
}

// Load returns the persisted credential for a kind, preferring the tab scope.
func (s *ScopedStore) Load(ctx context.Context, kind domainauth.ProviderKind) (domainauth.Credential, error) {
	cred, err := s.tab.Get(ctx, kind)
	if err == nil {
		return cred, nil
	}
	if !errors.Is(err, ports.ErrNoCredential) {
		return nil, fmt.Errorf("load tab credential: %w", err)
	}
	return s.durableGet(ctx, kind)
}

// Clear removes the credential for one kind from every scope.
func (s *ScopedStore) Clear(ctx context.Context, kind domainauth.ProviderKind) error {
	if err := s.tab.Del(ctx, kind); err != nil {
		return fmt.Errorf("clear tab credential: %w", err)
	}
	s.durableDel(ctx, kind)
	return nil
}

// ClearAll removes every credential kind from every scope. Sign-out depends
// on this being exhaustive; a partial clear resurrects a stale session on the
// next restore.
func (s *ScopedStore) ClearAll(ctx context.Context) error {
	var errs []error
	for _, kind := range domainauth.ProviderPrecedence {
		if err := s.Clear(ctx, kind); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// durablePut writes through to the durable backend, degrading to the memory
// fallback on failure so sign-in is never blocked by storage trouble.
func (s *ScopedStore) durablePut(ctx context.Context, cred domainauth.Credential) {
	if !s.degraded.Load() {
		err := s.durable.Put(ctx, cred)
		if err == nil {
			return
		}
		s.degrade("save", err)
	}
	if err := s.fallback.Put(ctx, cred); err != nil {
		s.logger.Warn("fallback credential save failed", "kind", cred.Kind(), "error", err)
	}
}

func (s *ScopedStore) durableGet(ctx context.Context, kind domainauth.ProviderKind) (domainauth.Credential, error) {
	if !s.degraded.Load() {
		cred, err := s.durable.Get(ctx, kind)
		if err == nil || errors.Is(err, ports.ErrNoCredential) {
			return cred, err
		}
		s.degrade("load", err)
	}
	return s.fallback.Get(ctx, kind)
}

func (s *ScopedStore) durableDel(ctx context.Context, kind domainauth.ProviderKind) {
	if !s.degraded.Load() {
		if err := s.durable.Del(ctx, kind); err != nil {
			s.degrade("clear", err)
		}
	}
	if err := s.fallback.Del(ctx, kind); err != nil {
		s.logger.Warn("fallback credential clear failed", "kind", kind, "error", err)
	}
}

func (s *ScopedStore) degrade(op string, err error) {
	if s.degraded.CompareAndSwap(false, true) {
		s.logger.Warn("durable credential storage unavailable, continuing in-memory",
			"op", op, "error", err)
	}
}
