package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
)

// Phase is the bootstrapper's position in its startup sequence.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseRestoring  Phase = "restoring"
	PhaseRefreshing Phase = "refreshing"
	PhaseResolving  Phase = "resolving"
	PhaseReady      Phase = "ready"
)

// defaultRefreshWindow triggers a proactive refresh when a restored
// credential expires within it.
const defaultRefreshWindow = 5 * time.Minute

// Bootstrapper drives the startup sequence exactly once per process:
// restore a persisted credential, refresh it when near expiry, resolve the
// identity and role, then go Ready and stay there. Every failure path still
// terminates in Ready; failure shows up as an unauthenticated snapshot, never
// as a stuck loading screen.
type Bootstrapper struct {
	sessions      *SessionManager
	resolver      *Resolver
	adminDomains  []string
	refreshWindow time.Duration
	logger        *slog.Logger

	mu          sync.Mutex
	phase       Phase
	started     bool
	state       domainauth.ResolutionState
	subscribers []chan domainauth.ResolutionState
}

// BootstrapperOptions groups dependencies for NewBootstrapper.
type BootstrapperOptions struct {
	Sessions *SessionManager
	Resolver *Resolver
	// AdminDomains is the trusted email-domain allowlist for role resolution.
	AdminDomains []string
	// RefreshWindow overrides how close to expiry a restored credential is
	// refreshed. Zero means the default of five minutes.
	RefreshWindow time.Duration
	Logger        *slog.Logger
}

// NewBootstrapper constructs a bootstrapper in the Idle phase with a loading
// snapshot, so subscribers that attach before Run never observe a settled
// state that later flips.
func NewBootstrapper(opts BootstrapperOptions) *Bootstrapper {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := opts.RefreshWindow
	if window <= 0 {
		window = defaultRefreshWindow
	}
	return &Bootstrapper{
		sessions:      opts.Sessions,
		resolver:      opts.Resolver,
		adminDomains:  opts.AdminDomains,
		refreshWindow: window,
		logger:        logger,
		phase:         PhaseIdle,
		state: domainauth.ResolutionState{
			Role:    domainauth.RoleClientAdmin,
			Loading: true,
		},
	}
}

// Phase returns the current phase.
func (b *Bootstrapper) Phase() Phase {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.phase
}

// Snapshot returns the latest published resolution state.
func (b *Bootstrapper) Snapshot() domainauth.ResolutionState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Subscribe registers for state updates. The current state is delivered
// immediately, then every subsequent publication. The channel is buffered and
// slow consumers drop intermediate snapshots rather than block publication.
// The returned func removes the subscription.
func (b *Bootstrapper) Subscribe() (<-chan domainauth.ResolutionState, func()) {
	ch := make(chan domainauth.ResolutionState, 8)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	ch <- b.state
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, sub := range b.subscribers {
			if sub == ch {
				b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
				return
			}
		}
	}
	return ch, cancel
}

// Run executes the startup sequence. It runs at most once per process;
// subsequent calls return immediately. Later auth transitions re-enter at the
// Resolving step via Reresolve, never through Run.
func (b *Bootstrapper) Run(ctx context.Context) {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return
	}
	b.started = true
	b.phase = PhaseRestoring
	b.mu.Unlock()

	cred, ok := b.sessions.Restore(ctx)
	if !ok {
		b.logger.Info("no persisted credential, starting unauthenticated")
		b.settleUnauthenticated(false)
		return
	}
	b.logger.Info("restored credential", "provider", cred.Kind())

	b.setPhase(PhaseRefreshing)
	cred = b.refresh(ctx, cred)
	if cred == nil {
		b.settleUnauthenticated(false)
		return
	}

	b.setPhase(PhaseResolving)
	b.resolveAndPublish(ctx, cred)
}

// Reresolve re-runs identity resolution for the active credential and
// publishes the outcome. Called after sign-in, sign-up, and provider
// switches; the restore and refresh steps never run again.
func (b *Bootstrapper) Reresolve(ctx context.Context) {
	cred, ok := b.sessions.Active()
	if !ok {
		b.settleUnauthenticated(false)
		return
	}
	b.setPhase(PhaseResolving)
	b.resolveAndPublish(ctx, cred)
}

// SignOut clears the session and publishes the unauthenticated snapshot.
func (b *Bootstrapper) SignOut(ctx context.Context) {
	b.sessions.SignOut(ctx)
	b.resolver.Invalidate()
	b.settleUnauthenticated(false)
}

// refresh returns a usable credential, refreshing when it is near expiry.
// A nil return means the session is over and the caller settles
// unauthenticated.
func (b *Bootstrapper) refresh(ctx context.Context, cred domainauth.Credential) domainauth.Credential {
	expiry := cred.Expiry()
	if expiry.IsZero() || time.Until(expiry) > b.refreshWindow {
		return cred
	}

	fresh, err := b.sessions.Refresh(ctx)
	if err == nil {
		return fresh
	}

	if apperrors.IsInteractionRequired(err) || apperrors.IsExpired(err) || apperrors.IsInvalidCredentials(err) {
		b.logger.Info("silent refresh needs interaction, clearing session", "error", err)
		b.sessions.ClearActive(ctx)
		return nil
	}

	// Transient trouble: keep the last-known-good credential while it is
	// still valid.
	if exp := cred.Expiry(); exp.IsZero() || time.Now().Before(exp) {
		b.logger.Warn("refresh failed, continuing with last-known-good credential", "error", err)
		return cred
	}
	b.logger.Warn("refresh failed and credential is expired, clearing session", "error", err)
	b.sessions.ClearActive(ctx)
	return nil
}

func (b *Bootstrapper) resolveAndPublish(ctx context.Context, cred domainauth.Credential) {
	res, err := b.resolver.Resolve(ctx, cred)
	switch {
	case err == nil:
		decision := ComputeRole(res.Claims, res.Profile, b.adminDomains)
		identity := res.Identity
		identity.Role = decision.Role
		b.publishReady(domainauth.ResolutionState{
			Identity:     &identity,
			Role:         decision.Role,
			RoleReliable: decision.Reliable,
			Loading:      domainauth.ComputeLoading(decision.Reliable, true, true, true),
		})

	case errors.Is(err, ErrStaleResolution):
		// Another resolution owns the outcome; publish nothing.
		return

	case apperrors.IsNotRegistered(err):
		b.logger.Info("principal has no account, routing to sign-up")
		b.sessions.ClearActive(ctx)
		b.resolver.Invalidate()
		b.settleUnauthenticated(true)

	default:
		// Profile fetch failed retryably. Fall back to claims-only role
		// rules; the session stays authenticated.
		b.logger.Warn("profile fetch failed, falling back to claims-only role", "error", err)
		decision := ComputeRole(res.Claims, nil, b.adminDomains)
		state := domainauth.ResolutionState{
			Role:         decision.Role,
			RoleReliable: decision.Reliable,
		}
		hasIdentity := res.Claims.SubjectID != "" || res.Claims.Email != ""
		if hasIdentity {
			state.Identity = &domainauth.UserIdentity{
				SubjectID:   res.Claims.SubjectID,
				Email:       res.Claims.Email,
				DisplayName: res.Claims.DisplayName,
				Role:        decision.Role,
			}
		}
		state.Loading = domainauth.ComputeLoading(decision.Reliable, true, hasIdentity, true)
		b.publishReady(state)
	}
}

func (b *Bootstrapper) settleUnauthenticated(needsSignUp bool) {
	b.publishReady(domainauth.ResolutionState{
		Role:        domainauth.RoleClientAdmin,
		Loading:     domainauth.ComputeLoading(false, true, false, false),
		NeedsSignUp: needsSignUp,
	})
}

func (b *Bootstrapper) setPhase(phase Phase) {
	b.mu.Lock()
	b.phase = phase
	b.mu.Unlock()
}

func (b *Bootstrapper) publishReady(state domainauth.ResolutionState) {
	b.mu.Lock()
	b.phase = PhaseReady
	b.state = state
	subs := make([]chan domainauth.ResolutionState, len(b.subscribers))
	copy(subs, b.subscribers)
	b.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- state:
		default:
		}
	}
}
