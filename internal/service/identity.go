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
	"github.com/brightline/console-auth/internal/token"
)

// ErrStaleResolution is returned when a profile response arrives after the
// subject changed mid-flight (e.g. a rapid provider switch). The caller
// discards the result; the resolution for the new subject is authoritative.
type staleResolutionError struct{}

func (staleResolutionError) Error() string { return "stale resolution discarded" }

var ErrStaleResolution error = staleResolutionError{}

// Resolution bundles everything identity resolution produced for one subject.
// Role assignment happens downstream via ComputeRole.
type Resolution struct {
	Identity domainauth.UserIdentity
	Claims   domainauth.TokenClaims
	// Profile is nil when the fetch failed retryably; role resolution then
	// falls back to token-claims-only rules until a retry succeeds.
	Profile *domainauth.Profile
}

// Resolver merges the active credential's advisory claims with the backend
// profile into one canonical identity. Profile fetches are deduplicated and
// cached per subject: at most one in-flight request per subject key, and no
// refetch for an unchanged subject unless the previous attempt failed or the
// cache was invalidated.
type Resolver struct {
	profiles ports.ProfileClient
	logger   *slog.Logger

	flight singleflight.Group

	mu            sync.Mutex
	currentKey    string
	cachedKey     string
	cachedProfile *domainauth.Profile
}

// ResolverOptions groups dependencies for NewResolver.
type ResolverOptions struct {
	Profiles ports.ProfileClient
	Logger   *slog.Logger
}

// NewResolver constructs a new identity resolver.
func NewResolver(opts ResolverOptions) *Resolver {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		profiles: opts.Profiles,
		logger:   logger,
	}
}

// Claims decodes the advisory claims of a credential. Opaque session tokens
// (password, magic link) carry no directory claims and decode to the empty
// claims value; decode failures are treated as absent claims, never fatal.
func (r *Resolver) Claims(cred domainauth.Credential) domainauth.TokenClaims {
	if cred == nil {
		return domainauth.TokenClaims{}
	}
	claims, err := token.Decode(cred.Bearer())
	if err != nil {
		return domainauth.TokenClaims{}
	}
	return claims
}

// Resolve produces the canonical identity for the active credential.
//
// A not_registered error propagates untouched: the caller clears the
// credential and routes to sign-up. A retryable fetch failure returns the
// claims alongside the error so the caller can fall back to claims-only role
// rules.
func (r *Resolver) Resolve(ctx context.Context, cred domainauth.Credential) (Resolution, error) {
	if cred == nil {
		return Resolution{}, apperrors.Validation("credential is required")
	}

	claims := r.Claims(cred)
	key := subjectKey(cred, claims)

	r.mu.Lock()
	r.currentKey = key
	if r.cachedKey == key && r.cachedProfile != nil {
		profile := r.cachedProfile
		r.mu.Unlock()
		return Resolution{
			Identity: mergeIdentity(cred, claims, *profile),
			Claims:   claims,
			Profile:  profile,
		}, nil
	}
	r.mu.Unlock()

	// One in-flight fetch per subject key; concurrent callers share the outcome.
	result, err, _ := r.flight.Do(key, func() (any, error) {
		profile, fetchErr := r.profiles.FetchProfile(ctx, cred.Bearer())
		if fetchErr != nil {
			return nil, fmt.Errorf("fetch profile: %w", fetchErr)
		}
		return profile, nil
	})

	r.mu.Lock()
	stale := r.currentKey != key
	if !stale && err == nil {
		profile := result.(domainauth.Profile)
		r.cachedKey = key
		r.cachedProfile = &profile
	}
	r.mu.Unlock()

	if stale {
		// The subject changed while this fetch was in flight; whatever
		// arrived belongs to the previous subject and must not be applied.
		r.logger.Debug("discarding stale profile response", "key", key)
		return Resolution{Claims: claims}, ErrStaleResolution
	}
	if err != nil {
		return Resolution{Claims: claims}, err
	}

	profile := result.(domainauth.Profile)
	return Resolution{
		Identity: mergeIdentity(cred, claims, profile),
		Claims:   claims,
		Profile:  &profile,
	}, nil
}

// Invalidate drops the cached profile so the next Resolve refetches. Called
// on sign-out and provider switches.
func (r *Resolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentKey = ""
	r.cachedKey = ""
	r.cachedProfile = nil
}

// subjectKey identifies the logical subject a profile fetch belongs to.
// Claim-bearing credentials key by subject ID; opaque session tokens key by
// the token itself, which changes whenever the session does.
func subjectKey(cred domainauth.Credential, claims domainauth.TokenClaims) string {
	if claims.SubjectID != "" {
		return "subject:" + claims.SubjectID
	}
	return "opaque:" + string(cred.Kind()) + ":" + cred.Bearer()
}

// mergeIdentity merges advisory claims with the authoritative profile.
// The profile wins for email, display name and organization; the claims
// subject wins on the enterprise provider, where the backend guarantees
// Profile.User.ID equals the directory subject.
func mergeIdentity(cred domainauth.Credential, claims domainauth.TokenClaims, profile domainauth.Profile) domainauth.UserIdentity {
	subjectID := profile.User.ID
	if cred.Kind() == domainauth.ProviderEnterprise && claims.SubjectID != "" {
		subjectID = claims.SubjectID
	}

	email := profile.User.Email
	if email == "" {
		email = claims.Email
	}
	displayName := profile.User.DisplayName
	if displayName == "" {
		displayName = claims.DisplayName
	}

	var orgName *string
	if profile.Organization != nil {
		name := profile.Organization.Name
		orgName = &name
	}

	return domainauth.UserIdentity{
		SubjectID:        subjectID,
		Email:            email,
		DisplayName:      displayName,
		OrganizationName: orgName,
	}
}
