package auth

// ResolutionState is the immutable snapshot published to the console shell.
// External collaborators read a snapshot and never mutate it.
type ResolutionState struct {
	// Identity is the merged canonical identity, nil until resolution
	// produced one (or permanently nil when unauthenticated).
	Identity *UserIdentity `json:"identity"`
	// Role is the single active authorization level. Defaults to
	// ClientAdmin until a reliable source proves otherwise.
	Role Role `json:"role"`
	// RoleReliable distinguishes roles derived from a trustworthy source
	// (token claims or backend profile) from the provisional default.
	// Role-gated navigation must not render until this is true or loading
	// has settled.
	RoleReliable bool `json:"roleIsReliable"`
	// Loading stays true until the role is reliable, or the auth layer
	// settled with no identity, or a profile fetch attempt completed.
	Loading bool `json:"isLoading"`
	// NeedsSignUp is set when the backend reported the principal has no
	// account; the shell routes to sign-up instead of retrying.
	NeedsSignUp bool `json:"needsSignUp"`
}

// ComputeLoading evaluates the loading flag from its three release
// conditions. Loading stays true until one of:
//  1. the role is reliable;
//  2. the underlying auth layer settled and no identity exists;
//  3. the auth layer settled and a profile fetch attempt completed, even
//     when it produced only the default role.
//
// Anything weaker reintroduces the flash of wrong navigation.
func ComputeLoading(roleReliable, authSettled, hasIdentity, profileAttempted bool) bool {
	if roleReliable {
		return false
	}
	if authSettled && !hasIdentity {
		return false
	}
	if authSettled && profileAttempted {
		return false
	}
	return true
}
