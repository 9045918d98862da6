package auth

// TokenClaims are the structured fields decoded from a credential without
// cryptographic verification. They are advisory only: a UX optimization to
// pre-render role-gated navigation before the backend round-trip completes,
// never an authorization decision on their own. Recomputed whenever the
// active credential changes; never mutated in place.
type TokenClaims struct {
	SubjectID   string   `json:"subject_id"`
	TenantID    string   `json:"tenant_id"`
	Email       string   `json:"email"`
	DisplayName string   `json:"display_name"`
	Roles       []string `json:"roles"`
}

// Empty reports whether the claims carry no identity at all.
// Password and magic-link credentials are opaque and decode to empty claims.
func (c TokenClaims) Empty() bool {
	return c.SubjectID == "" && c.Email == "" && len(c.Roles) == 0
}

// ProfileUser is the backend-authoritative user record.
type ProfileUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	DisplayName   string `json:"displayName"`
	Role          string `json:"role"`
	EmailVerified bool   `json:"emailVerified"`
	Status        string `json:"status"`
}

// ProfileOrganization is the backend-authoritative organization record.
type ProfileOrganization struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Profile is the backend's record of a user and their organization, fetched
// via the authenticated "who am I" endpoint. Owned by the identity resolver;
// fetched at most once per subject change unless explicitly invalidated.
type Profile struct {
	User         ProfileUser          `json:"user"`
	Organization *ProfileOrganization `json:"organization"`
}

// UserIdentity is the canonical merged identity the console renders.
// The profile is authoritative for role, organization, display name and
// verification status; token claims are authoritative for the subject ID when
// the enterprise directory is the active provider (the backend guarantees
// Profile.User.ID equals that subject).
type UserIdentity struct {
	SubjectID        string  `json:"subjectId"`
	Email            string  `json:"email"`
	DisplayName      string  `json:"displayName"`
	OrganizationName *string `json:"organizationName"`
	Role             Role    `json:"role"`
}
