package httpx

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/brightline/console-auth/internal/apperrors"
	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

type fakeSessions struct {
	signInKind    domainauth.ProviderKind
	signInInput   ports.SignInInput
	signInErr     error
	silentAccount string
	silentErr     error
	bearer        string
	bearerErr     error
	providers     map[domainauth.ProviderKind]ports.ProviderSession
}

func (f *fakeSessions) SignIn(_ context.Context, kind domainauth.ProviderKind, in ports.SignInInput) (domainauth.Credential, error) {
	f.signInKind = kind
	f.signInInput = in
	if f.signInErr != nil {
		return nil, f.signInErr
	}
	return domainauth.PasswordCredential{SessionToken: "sess-1"}, nil
}

func (f *fakeSessions) SignInSilently(_ context.Context, kind domainauth.ProviderKind, account string) (domainauth.Credential, error) {
	f.signInKind = kind
	f.silentAccount = account
	if f.silentErr != nil {
		return nil, f.silentErr
	}
	return domainauth.EnterpriseCredential{RawToken: "id-token"}, nil
}

func (f *fakeSessions) BearerToken() (string, error) {
	if f.bearerErr != nil {
		return "", f.bearerErr
	}
	return f.bearer, nil
}

func (f *fakeSessions) Provider(kind domainauth.ProviderKind) (ports.ProviderSession, bool) {
	p, ok := f.providers[kind]
	return p, ok
}

type fakeFlow struct {
	snapshot   domainauth.ResolutionState
	reresolves int
	signOuts   int
}

func (f *fakeFlow) Snapshot() domainauth.ResolutionState { return f.snapshot }
func (f *fakeFlow) Reresolve(context.Context)            { f.reresolves++ }
func (f *fakeFlow) SignOut(context.Context)              { f.signOuts++ }

type fakeProfiles struct {
	signUpIn        ports.SignUpInput
	signUpErr       error
	changeOld       string
	changeNew       string
	changeBearer    string
	changePwErr     error
	changePwCalled  bool
	signUpCalled    bool
	signUpReturnsID string
}

func (f *fakeProfiles) FetchProfile(context.Context, string) (domainauth.Profile, error) {
	return domainauth.Profile{}, nil
}

func (f *fakeProfiles) SignUp(_ context.Context, in ports.SignUpInput) (domainauth.Profile, error) {
	f.signUpCalled = true
	f.signUpIn = in
	if f.signUpErr != nil {
		return domainauth.Profile{}, f.signUpErr
	}
	return domainauth.Profile{User: domainauth.ProfileUser{ID: f.signUpReturnsID}}, nil
}

func (f *fakeProfiles) ChangePassword(_ context.Context, bearer, oldPw, newPw string) error {
	f.changePwCalled = true
	f.changeBearer = bearer
	f.changeOld = oldPw
	f.changeNew = newPw
	return f.changePwErr
}

type fakeMagicLink struct {
	email string
	err   error
}

func (f *fakeMagicLink) Request(_ context.Context, email string) error {
	f.email = email
	return f.err
}

func testHandlers(sessions *fakeSessions, flow *fakeFlow, profiles *fakeProfiles, links *fakeMagicLink) *AuthHandlers {
	var requester MagicLinkRequester
	if links != nil {
		requester = links
	}
	return &AuthHandlers{
		Sessions:  sessions,
		Flow:      flow,
		Profiles:  profiles,
		MagicLink: requester,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func TestSignIn_Password(t *testing.T) {
	sessions := &fakeSessions{}
	flow := &fakeFlow{snapshot: domainauth.ResolutionState{Role: domainauth.RoleClientAdmin, RoleReliable: true}}
	h := testHandlers(sessions, flow, &fakeProfiles{}, nil)

	body := `{"provider":"password","email":"jane@acme.example","password":"s3cret"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, domainauth.ProviderPassword, sessions.signInKind)
	assert.Equal(t, "jane@acme.example", sessions.signInInput.Email)
	assert.Equal(t, 1, flow.reresolves)

	var state domainauth.ResolutionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.True(t, state.RoleReliable)
}

func TestSignIn_UnknownProvider(t *testing.T) {
	h := testHandlers(&fakeSessions{}, &fakeFlow{}, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{"provider":"ldap"}`))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignIn_InvalidCredentials(t *testing.T) {
	sessions := &fakeSessions{signInErr: apperrors.InvalidCredentials("wrong password")}
	flow := &fakeFlow{}
	h := testHandlers(sessions, flow, &fakeProfiles{}, nil)

	body := `{"provider":"password","email":"jane@acme.example","password":"nope"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Zero(t, flow.reresolves, "failed sign-in must not re-resolve")

	var envelope map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	assert.Equal(t, "invalid_credentials", envelope["error"])
}

func TestSignIn_MalformedBody(t *testing.T) {
	h := testHandlers(&fakeSessions{}, &fakeFlow{}, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-in", strings.NewReader(`{`))
	rec := httptest.NewRecorder()
	h.SignIn(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignOut_AlwaysSucceeds(t *testing.T) {
	flow := &fakeFlow{}
	h := testHandlers(&fakeSessions{}, flow, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/sign-out", nil)
	rec := httptest.NewRecorder()
	h.SignOut(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, flow.signOuts)
}

func TestSession_ReturnsSnapshot(t *testing.T) {
	identity := domainauth.UserIdentity{SubjectID: "user-1", Email: "jane@acme.example"}
	flow := &fakeFlow{snapshot: domainauth.ResolutionState{
		Identity:     &identity,
		Role:         domainauth.RoleSuperAdmin,
		RoleReliable: true,
	}}
	h := testHandlers(&fakeSessions{}, flow, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/session", nil)
	rec := httptest.NewRecorder()
	h.Session(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var state domainauth.ResolutionState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	require.NotNil(t, state.Identity)
	assert.Equal(t, "user-1", state.Identity.SubjectID)
	assert.Equal(t, domainauth.RoleSuperAdmin, state.Role)
}

func TestRequestMagicLink(t *testing.T) {
	links := &fakeMagicLink{}
	h := testHandlers(&fakeSessions{}, &fakeFlow{}, &fakeProfiles{}, links)

	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(`{"email":"jane@acme.example"}`))
	rec := httptest.NewRecorder()
	h.RequestMagicLink(rec, req)

	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "jane@acme.example", links.email)
}

func TestRequestMagicLink_MissingEmail(t *testing.T) {
	h := testHandlers(&fakeSessions{}, &fakeFlow{}, &fakeProfiles{}, &fakeMagicLink{})

	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.RequestMagicLink(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRequestMagicLink_NotConfigured(t *testing.T) {
	h := testHandlers(&fakeSessions{}, &fakeFlow{}, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodPost, "/auth/magic-link", strings.NewReader(`{"email":"a@b.c"}`))
	rec := httptest.NewRecorder()
	h.RequestMagicLink(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSignUp_ForwardsBearer(t *testing.T) {
	sessions := &fakeSessions{bearer: "id-token"}
	flow := &fakeFlow{}
	profiles := &fakeProfiles{signUpReturnsID: "user-1"}
	h := testHandlers(sessions, flow, profiles, nil)

	body := `{"provider":"enterprise","organizationName":"Acme"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/sign-up", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.SignUp(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, profiles.signUpCalled)
	assert.Equal(t, "id-token", profiles.signUpIn.Token)
	assert.Equal(t, "Acme", profiles.signUpIn.OrganizationName)
	assert.Equal(t, 1, flow.reresolves)
}

func TestChangePassword(t *testing.T) {
	sessions := &fakeSessions{bearer: "sess-1"}
	profiles := &fakeProfiles{}
	h := testHandlers(sessions, &fakeFlow{}, profiles, nil)

	body := `{"oldPassword":"old","newPassword":"new"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/change-password", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, profiles.changePwCalled)
	assert.Equal(t, "sess-1", profiles.changeBearer)
	assert.Equal(t, "old", profiles.changeOld)
	assert.Equal(t, "new", profiles.changeNew)
}

func TestChangePassword_Unauthenticated(t *testing.T) {
	sessions := &fakeSessions{bearerErr: apperrors.Validation("no active provider")}
	profiles := &fakeProfiles{}
	h := testHandlers(sessions, &fakeFlow{}, profiles, nil)

	body := `{"oldPassword":"old","newPassword":"new"}`
	req := httptest.NewRequest(http.MethodPost, "/auth/change-password", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ChangePassword(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.False(t, profiles.changePwCalled)
}

type fakeBeginner struct {
	kind   domainauth.ProviderKind
	begins int
}

func (f *fakeBeginner) Kind() domainauth.ProviderKind { return f.kind }

func (f *fakeBeginner) SignIn(context.Context, ports.SignInInput) (domainauth.Credential, error) {
	return domainauth.EnterpriseCredential{RawToken: "id-token"}, nil
}

func (f *fakeBeginner) Refresh(_ context.Context, existing domainauth.Credential) (domainauth.Credential, error) {
	return existing, nil
}

func (f *fakeBeginner) SignOut(context.Context, domainauth.Credential) error { return nil }

func (f *fakeBeginner) Begin(context.Context, string) (string, string, string, error) {
	f.begins++
	return "https://idp.example/authorize", "state-1", "nonce-1", nil
}

func TestLogin_RedirectsToProvider(t *testing.T) {
	beginner := &fakeBeginner{kind: domainauth.ProviderEnterprise}
	sessions := &fakeSessions{providers: map[domainauth.ProviderKind]ports.ProviderSession{
		domainauth.ProviderEnterprise: beginner,
	}}
	h := testHandlers(sessions, &fakeFlow{}, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/login?redirect_uri=/dashboard", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://idp.example/authorize", rec.Header().Get("Location"))
	assert.Equal(t, 1, beginner.begins)

	cookies := map[string]string{}
	for _, c := range rec.Result().Cookies() {
		cookies[c.Name] = c.Value
	}
	assert.Equal(t, "state-1", cookies["oauth_state"])
	assert.Equal(t, "enterprise", cookies["oauth_provider"])
	assert.Equal(t, "/dashboard", cookies["post_login_redirect"])
}

func TestLogin_SilentAcquisitionSkipsRedirect(t *testing.T) {
	beginner := &fakeBeginner{kind: domainauth.ProviderEnterprise}
	sessions := &fakeSessions{providers: map[domainauth.ProviderKind]ports.ProviderSession{
		domainauth.ProviderEnterprise: beginner,
	}}
	flow := &fakeFlow{}
	h := testHandlers(sessions, flow, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/login?account=jane@corp.example&redirect_uri=/dashboard", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
	assert.Equal(t, "jane@corp.example", sessions.silentAccount)
	assert.Equal(t, 1, flow.reresolves)
	assert.Zero(t, beginner.begins, "silent success must not start the redirect flow")
}

func TestLogin_SilentFailureFallsBackToRedirect(t *testing.T) {
	beginner := &fakeBeginner{kind: domainauth.ProviderEnterprise}
	sessions := &fakeSessions{
		silentErr: apperrors.InteractionRequired("no cached grant"),
		providers: map[domainauth.ProviderKind]ports.ProviderSession{
			domainauth.ProviderEnterprise: beginner,
		},
	}
	h := testHandlers(sessions, &fakeFlow{}, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/login?account=jane@corp.example", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "https://idp.example/authorize", rec.Header().Get("Location"))
	assert.Equal(t, 1, beginner.begins)
}

func TestLogin_UnconfiguredProvider(t *testing.T) {
	h := testHandlers(&fakeSessions{}, &fakeFlow{}, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/login?provider=oauth", nil)
	rec := httptest.NewRecorder()
	h.Login(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_StateMismatch(t *testing.T) {
	h := testHandlers(&fakeSessions{}, &fakeFlow{}, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=evil", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "expected"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCallback_CompletesSignIn(t *testing.T) {
	sessions := &fakeSessions{}
	flow := &fakeFlow{}
	h := testHandlers(sessions, flow, &fakeProfiles{}, nil)

	req := httptest.NewRequest(http.MethodGet, "/auth/callback?code=abc&state=st", nil)
	req.AddCookie(&http.Cookie{Name: "oauth_state", Value: "st"})
	req.AddCookie(&http.Cookie{Name: "oauth_provider", Value: "oauth"})
	req.AddCookie(&http.Cookie{Name: "post_login_redirect", Value: "/dashboard"})
	rec := httptest.NewRecorder()
	h.Callback(rec, req)

	require.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, domainauth.ProviderOAuth, sessions.signInKind)
	assert.Equal(t, "abc", sessions.signInInput.Code)
	assert.Equal(t, 1, flow.reresolves)
	assert.Equal(t, "/dashboard", rec.Header().Get("Location"))
}

func TestSafeRedirectPath(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "/"},
		{"/dashboard", "/dashboard"},
		{"https://evil.example/", "/"},
		{"//evil.example/", "/"},
		{"relative", "/"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, safeRedirectPath(tt.in), tt.in)
	}
}

func TestRouter_Health(t *testing.T) {
	router := NewRouter(RouterServices{
		Sessions: &fakeSessions{},
		Flow:     &fakeFlow{},
		Profiles: &fakeProfiles{},
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{apperrors.Validation("bad input"), http.StatusBadRequest},
		{apperrors.InvalidCredentials("nope"), http.StatusUnauthorized},
		{apperrors.Expired("expired"), http.StatusUnauthorized},
		{apperrors.InteractionRequired("sign in again"), http.StatusUnauthorized},
		{apperrors.NotRegistered("no account"), http.StatusNotFound},
		{apperrors.ProviderUnavailable("idp down"), http.StatusBadGateway},
		{apperrors.Network("unreachable"), http.StatusServiceUnavailable},
		{apperrors.Internal("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, statusForError(tt.err), "%v", tt.err)
	}
}
