package httpx

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// SessionStarter is the slice of the session manager the handlers need.
type SessionStarter interface {
	SignIn(ctx context.Context, kind domainauth.ProviderKind, in ports.SignInInput) (domainauth.Credential, error)
	SignInSilently(ctx context.Context, kind domainauth.ProviderKind, account string) (domainauth.Credential, error)
	BearerToken() (string, error)
	Provider(kind domainauth.ProviderKind) (ports.ProviderSession, bool)
}

// AuthFlow is the slice of the bootstrapper the handlers need: the published
// resolution snapshot plus the transitions that change it.
type AuthFlow interface {
	Snapshot() domainauth.ResolutionState
	Reresolve(ctx context.Context)
	SignOut(ctx context.Context)
}

// MagicLinkRequester requests a one-time sign-in link for an email address.
type MagicLinkRequester interface {
	Request(ctx context.Context, email string) error
}

// AuthHandlers provides HTTP handlers for the session core.
type AuthHandlers struct {
	Sessions  SessionStarter
	Flow      AuthFlow
	Profiles  ports.ProfileClient
	MagicLink MagicLinkRequester
	Logger    *slog.Logger
}

func (h *AuthHandlers) logger() *slog.Logger {
	if h != nil && h.Logger != nil {
		return h.Logger
	}
	return slog.Default()
}

type signInRequest struct {
	Provider  string `json:"provider"`
	Email     string `json:"email,omitzero"`
	Password  string `json:"password,omitzero"`
	Code      string `json:"code,omitzero"`
	State     string `json:"state,omitzero"`
	LinkToken string `json:"linkToken,omitzero"`
}

// SignIn handles the direct sign-in endpoint.
// POST /auth/sign-in with provider-specific material in the body.
func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	kind := domainauth.ProviderKind(req.Provider)
	if !kind.Valid() {
		RenderError(w, apperrors.Newf(apperrors.ErrCodeValidation, "unknown provider %q", req.Provider))
		return
	}

	_, err := h.Sessions.SignIn(r.Context(), kind, ports.SignInInput{
		Email:     req.Email,
		Password:  req.Password,
		Code:      req.Code,
		State:     req.State,
		LinkToken: req.LinkToken,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "sign-in failed", "provider", kind, "error", err)
		RenderError(w, err)
		return
	}

	h.Flow.Reresolve(r.Context())
	WriteJSON(w, http.StatusOK, h.Flow.Snapshot())
}

// Login initiates a redirect-based OAuth sign-in.
// GET /auth/login?provider=<kind>&redirect_uri=<optional_redirect>&account=<hint>.
// An account hint triggers a silent acquisition attempt first; the redirect
// flow only starts when no cached grant exists for that account.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	kind := domainauth.ProviderKind(r.URL.Query().Get("provider"))
	if kind == "" {
		kind = domainauth.ProviderEnterprise
	}
	provider, ok := h.Sessions.Provider(kind)
	if !ok {
		RenderError(w, apperrors.Newf(apperrors.ErrCodeValidation, "provider %q is not configured", kind))
		return
	}
	beginner, ok := provider.(ports.InteractiveBeginner)
	if !ok {
		RenderError(w, apperrors.Newf(apperrors.ErrCodeValidation, "provider %q has no redirect flow", kind))
		return
	}

	redirectURI := safeRedirectPath(r.URL.Query().Get("redirect_uri"))

	if account := r.URL.Query().Get("account"); account != "" {
		if _, err := h.Sessions.SignInSilently(r.Context(), kind, account); err == nil {
			h.Flow.Reresolve(r.Context())
			http.Redirect(w, r, redirectURI, http.StatusFound)
			return
		} else if !apperrors.IsInteractionRequired(err) {
			h.logger().WarnContext(r.Context(), "silent sign-in failed", "provider", kind, "error", err)
		}
	}

	callbackURL := callbackURLFor(r)
	authURL, state, nonce, err := beginner.Begin(r.Context(), callbackURL)
	if err != nil {
		h.logger().ErrorContext(r.Context(), "begin login failed", "provider", kind, "error", err)
		RenderError(w, err)
		return
	}

	h.setOAuthCookies(w, r, oauthCookieParams{
		Provider:    string(kind),
		State:       state,
		Nonce:       nonce,
		RedirectURI: redirectURI,
	})
	http.Redirect(w, r, authURL, http.StatusFound)
}

// Callback completes a redirect-based OAuth sign-in.
// GET /auth/callback?code=<code>&state=<state>.
func (h *AuthHandlers) Callback(w http.ResponseWriter, r *http.Request) {
	code := r.URL.Query().Get("code")
	state := r.URL.Query().Get("state")
	if code == "" || state == "" {
		RenderError(w, apperrors.Validation("code and state are required"))
		return
	}

	stateCookie, err := r.Cookie("oauth_state")
	if err != nil || stateCookie.Value != state {
		RenderError(w, apperrors.Validation("invalid or missing state parameter"))
		return
	}

	kind := domainauth.ProviderEnterprise
	if providerCookie, cerr := r.Cookie("oauth_provider"); cerr == nil {
		if candidate := domainauth.ProviderKind(providerCookie.Value); candidate.Valid() {
			kind = candidate
		}
	}

	_, err = h.Sessions.SignIn(r.Context(), kind, ports.SignInInput{Code: code, State: state})
	if err != nil {
		h.logger().WarnContext(r.Context(), "callback sign-in failed", "provider", kind, "error", err)
		RenderError(w, err)
		return
	}

	h.clearCookie(w, r, "oauth_state")
	h.clearCookie(w, r, "oauth_nonce")
	h.clearCookie(w, r, "oauth_provider")

	h.Flow.Reresolve(r.Context())

	redirectURI := h.getPostLoginRedirect(w, r)
	http.Redirect(w, r, redirectURI, http.StatusFound)
}

// SignOut handles the sign-out endpoint. It always succeeds: remote
// invalidation is best-effort and local state is cleared regardless.
// POST /auth/sign-out.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Flow.SignOut(r.Context())
	WriteJSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}

// Session returns the current resolution snapshot.
// GET /auth/session.
func (h *AuthHandlers) Session(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.Flow.Snapshot())
}

type magicLinkRequest struct {
	Email string `json:"email"`
}

// RequestMagicLink asks the backend to email a one-time sign-in link.
// POST /auth/magic-link.
func (h *AuthHandlers) RequestMagicLink(w http.ResponseWriter, r *http.Request) {
	if h.MagicLink == nil {
		RenderError(w, apperrors.Validation("magic link provider is not configured"))
		return
	}
	var req magicLinkRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" {
		RenderError(w, apperrors.Validation("email is required"))
		return
	}
	if err := h.MagicLink.Request(r.Context(), req.Email); err != nil {
		h.logger().WarnContext(r.Context(), "magic link request failed", "error", err)
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, map[string]string{"status": "link_sent"})
}

type signUpRequest struct {
	Provider         string `json:"provider"`
	Email            string `json:"email,omitzero"`
	Password         string `json:"password,omitzero"`
	DisplayName      string `json:"displayName,omitzero"`
	OrganizationName string `json:"organizationName,omitzero"`
}

// SignUp registers a new account, then re-resolves so the fresh profile
// replaces the needsSignUp snapshot.
// POST /auth/sign-up.
func (h *AuthHandlers) SignUp(w http.ResponseWriter, r *http.Request) {
	var req signUpRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	kind := domainauth.ProviderKind(req.Provider)
	if !kind.Valid() {
		RenderError(w, apperrors.Newf(apperrors.ErrCodeValidation, "unknown provider %q", req.Provider))
		return
	}

	// A token-bearing sign-up (enterprise, oauth) registers the already
	// signed-in principal; the bearer proves possession.
	var bearer string
	if token, err := h.Sessions.BearerToken(); err == nil {
		bearer = token
	}

	_, err := h.Profiles.SignUp(r.Context(), ports.SignUpInput{
		Provider:         kind,
		Token:            bearer,
		Email:            req.Email,
		Password:         req.Password,
		DisplayName:      req.DisplayName,
		OrganizationName: req.OrganizationName,
	})
	if err != nil {
		h.logger().WarnContext(r.Context(), "sign-up failed", "provider", kind, "error", err)
		RenderError(w, err)
		return
	}

	h.Flow.Reresolve(r.Context())
	WriteJSON(w, http.StatusCreated, h.Flow.Snapshot())
}

type changePasswordRequest struct {
	OldPassword string `json:"oldPassword"`
	NewPassword string `json:"newPassword"`
}

// ChangePassword rotates the password for the authenticated principal.
// POST /auth/change-password.
func (h *AuthHandlers) ChangePassword(w http.ResponseWriter, r *http.Request) {
	bearer, err := h.Sessions.BearerToken()
	if err != nil {
		WriteError(w, ErrorParams{
			Code:    http.StatusUnauthorized,
			ErrCode: "authentication_required",
			Err:     errors.New("authentication required"),
		})
		return
	}

	var req changePasswordRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	if req.OldPassword == "" || req.NewPassword == "" {
		RenderError(w, apperrors.Validation("oldPassword and newPassword are required"))
		return
	}

	if err := h.Profiles.ChangePassword(r.Context(), bearer, req.OldPassword, req.NewPassword); err != nil {
		h.logger().WarnContext(r.Context(), "change password failed", "error", err)
		RenderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"status": "password_changed"})
}

// clearCookie clears a cookie by setting it to expire immediately.
func (h *AuthHandlers) clearCookie(w http.ResponseWriter, r *http.Request, name string) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   isSecure,
		MaxAge:   -1,
		SameSite: http.SameSiteLaxMode,
	})
}

// oauthCookieParams groups values needed to set the OAuth flow cookies.
type oauthCookieParams struct {
	Provider    string
	State       string
	Nonce       string
	RedirectURI string
}

// setOAuthCookies stores provider, state, nonce, and the post-login redirect
// in secure cookies for the callback to verify.
func (h *AuthHandlers) setOAuthCookies(w http.ResponseWriter, r *http.Request, p oauthCookieParams) {
	isSecure := r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
	const flowTTL = 600 // 10 minutes

	for name, value := range map[string]string{
		"oauth_provider":      p.Provider,
		"oauth_state":         p.State,
		"oauth_nonce":         p.Nonce,
		"post_login_redirect": p.RedirectURI,
	} {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			HttpOnly: true,
			Secure:   isSecure,
			SameSite: http.SameSiteLaxMode,
			MaxAge:   flowTTL,
		})
	}
}

// getPostLoginRedirect returns the post-login redirect URL and clears the cookie.
func (h *AuthHandlers) getPostLoginRedirect(w http.ResponseWriter, r *http.Request) string {
	redirectURI := "/"
	if redirectCookie, err := r.Cookie("post_login_redirect"); err == nil {
		redirectURI = safeRedirectPath(redirectCookie.Value)
		h.clearCookie(w, r, "post_login_redirect")
	}
	return redirectURI
}

// callbackURLFor reconstructs the absolute callback URL for this deployment.
func callbackURLFor(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + "/auth/callback"
}

// safeRedirectPath ensures the provided redirect is a same-origin relative path
// starting with "/" and not an absolute URL. Returns "/" when invalid.
func safeRedirectPath(candidate string) string {
	if candidate == "" {
		return "/"
	}
	u, err := url.Parse(candidate)
	if err != nil || u.IsAbs() || u.Host != "" || !strings.HasPrefix(u.Path, "/") {
		return "/"
	}
	return candidate
}
