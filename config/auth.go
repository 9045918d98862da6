package config

import "strings"

// OAuthConfig contains OAuth/OIDC configuration for one redirect-based
// identity provider.
type OAuthConfig struct {
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	Scope        string `env:"SCOPE"         envDefault:"openid profile email"`
	DiscoveryURL string `env:"DISCOVERY_URL"`
	LogoutURL    string `env:"LOGOUT_URL"`
}

// Enabled reports whether this provider is configured at all.
func (o OAuthConfig) Enabled() bool {
	return o.ClientID != "" && o.DiscoveryURL != ""
}

// AuthConfig groups all authentication-related configuration.
type AuthConfig struct {
	// Enterprise is the corporate directory provider (OIDC).
	Enterprise OAuthConfig `envPrefix:"AUTH_ENTERPRISE_"`

	// Consumer is the consumer OAuth provider.
	Consumer OAuthConfig `envPrefix:"AUTH_CONSUMER_"`

	// AdminDomains is the trusted email-domain allowlist. Principals whose
	// email domain matches are granted the highest role before their profile
	// loads.
	AdminDomains []string `env:"AUTH_ADMIN_DOMAINS" envDefault:"" envSeparator:","`

	// RefreshWindow is how close to expiry a restored credential is
	// silently refreshed during bootstrap, e.g. "5m".
	RefreshWindow string `env:"AUTH_REFRESH_WINDOW" envDefault:"5m"`
}

// Sanitize normalizes the admin domain allowlist: lowercase, trimmed, empties
// dropped.
func (a *AuthConfig) Sanitize() {
	cleaned := a.AdminDomains[:0]
	for _, d := range a.AdminDomains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" {
			cleaned = append(cleaned, d)
		}
	}
	a.AdminDomains = cleaned
}
