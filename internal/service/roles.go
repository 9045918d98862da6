package service

import (
	"strings"

	domainauth "github.com/brightline/console-auth/internal/domain/auth"
)

// RoleDecision is the outcome of role resolution: the single active role and
// whether it came from a trustworthy source.
type RoleDecision struct {
	Role domainauth.Role
	// Reliable is true when the role was derived from token claims, the
	// backend profile, or the admin-domain allowlist; false for the
	// provisional default. Role-gated navigation must respect this flag.
	Reliable bool
}

// ComputeRole deterministically resolves the authorization role from its
// three sources, first match wins:
//
//  1. recognized role names in the token claims;
//  2. the backend profile role, whenever a profile fetch completed;
//  3. the trusted admin email-domain allowlist (grants SuperAdmin);
//  4. default: provisional ClientAdmin.
//
// The default presumes every non-directory sign-up is an organization owner
// until the backend proves otherwise. That is a product decision inherited
// from the console, not an inference; see DESIGN.md.
//
// Pure and side-effect free: the same (claims, profile, allowlist) triple
// always yields the same decision.
func ComputeRole(claims domainauth.TokenClaims, profile *domainauth.Profile, adminDomains []string) RoleDecision {
	// 1. Token roles win outright, even over the backend profile.
	for _, name := range claims.Roles {
		if role, ok := domainauth.RoleFromTokenName(name); ok {
			return RoleDecision{Role: role, Reliable: true}
		}
	}

	// 2. A completed profile fetch is authoritative, even when the backend
	// answered with an empty or unknown role field.
	if profile != nil {
		if role, ok := domainauth.RoleFromProfileValue(profile.User.Role); ok {
			return RoleDecision{Role: role, Reliable: true}
		}
		return RoleDecision{Role: domainauth.RoleClientAdmin, Reliable: true}
	}

	// 3. A trusted admin domain grants SuperAdmin before the profile lands.
	// Only the claims email can reach this step: a present profile already
	// returned above.
	if emailDomainAllowed(claims.Email, adminDomains) {
		return RoleDecision{Role: domainauth.RoleSuperAdmin, Reliable: true}
	}

	// 4. Provisional default.
	return RoleDecision{Role: domainauth.RoleClientAdmin, Reliable: false}
}

// emailDomainAllowed reports whether the email's domain is on the allowlist.
// Matching is case-insensitive on the full domain.
func emailDomainAllowed(email string, adminDomains []string) bool {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return false
	}
	domain := strings.ToLower(email[at+1:])
	for _, allowed := range adminDomains {
		if domain == strings.ToLower(strings.TrimSpace(allowed)) {
			return true
		}
	}
	return false
}
