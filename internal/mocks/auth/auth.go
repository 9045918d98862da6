package auth

// Package auth contains simple hand-written test doubles for auth ports.
// These are lightweight and suitable for unit tests without codegen.

import (
	"context"
	"fmt"
	"sync"
	"time"

	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// Ensure compile-time conformance to ports.
var (
	_ ports.ProviderSession = (*MockProviderSession)(nil)
	_ ports.CredentialStore = (*MemoryCredentialStore)(nil)
	_ ports.ProfileClient   = (*MockProfileClient)(nil)
)

// MockProviderSession simulates an identity provider session for tests.
// Set the Func fields to override behavior per test; the defaults produce a
// deterministic password credential.
type MockProviderSession struct {
	ProviderKind domainauth.ProviderKind

	SignInFunc  func(ctx context.Context, in ports.SignInInput) (domainauth.Credential, error)
	RefreshFunc func(ctx context.Context, existing domainauth.Credential) (domainauth.Credential, error)
	SignOutFunc func(ctx context.Context, existing domainauth.Credential) error

	mu          sync.Mutex
	signIns     int
	refreshes   int
	signOuts    int
	lastSignIn  ports.SignInInput
	lastRefresh domainauth.Credential
}

// NewMockProviderSession creates a MockProviderSession for the given kind.
func NewMockProviderSession(kind domainauth.ProviderKind) *MockProviderSession {
	return &MockProviderSession{ProviderKind: kind}
}

func (m *MockProviderSession) Kind() domainauth.ProviderKind { return m.ProviderKind }

func (m *MockProviderSession) SignIn(ctx context.Context, in ports.SignInInput) (domainauth.Credential, error) {
	m.mu.Lock()
	m.signIns++
	m.lastSignIn = in
	n := m.signIns
	m.mu.Unlock()

	if m.SignInFunc != nil {
		return m.SignInFunc(ctx, in)
	}
	return domainauth.PasswordCredential{
		SessionToken: fmt.Sprintf("mock-session-%d", n),
		ExpiresAt:    time.Now().Add(time.Hour),
	}, nil
}

func (m *MockProviderSession) Refresh(ctx context.Context, existing domainauth.Credential) (domainauth.Credential, error) {
	m.mu.Lock()
	m.refreshes++
	m.lastRefresh = existing
	m.mu.Unlock()

	if m.RefreshFunc != nil {
		return m.RefreshFunc(ctx, existing)
	}
	return existing, nil
}

func (m *MockProviderSession) SignOut(ctx context.Context, existing domainauth.Credential) error {
	m.mu.Lock()
	m.signOuts++
	m.mu.Unlock()

	if m.SignOutFunc != nil {
		return m.SignOutFunc(ctx, existing)
	}
	return nil
}

// SignIns returns how many times SignIn was called.
func (m *MockProviderSession) SignIns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signIns
}

// Refreshes returns how many times Refresh was called.
func (m *MockProviderSession) Refreshes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshes
}

// SignOuts returns how many times SignOut was called.
func (m *MockProviderSession) SignOuts() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.signOuts
}

// LastSignIn returns the input of the most recent SignIn call.
func (m *MockProviderSession) LastSignIn() ports.SignInInput {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSignIn
}

// MemoryCredentialStore is an in-memory ports.CredentialStore that also
// records which scope each credential was saved under, for assertions.
type MemoryCredentialStore struct {
	mu     sync.Mutex
	creds  map[domainauth.ProviderKind]domainauth.Credential
	scopes map[domainauth.ProviderKind]ports.Scope

	// SaveErr, when set, fails every Save.
	SaveErr error
}

// NewMemoryCredentialStore creates an empty store.
func NewMemoryCredentialStore() *MemoryCredentialStore {
	return &MemoryCredentialStore{
		creds:  make(map[domainauth.ProviderKind]domainauth.Credential),
		scopes: make(map[domainauth.ProviderKind]ports.Scope),
	}
}

func (s *MemoryCredentialStore) Save(_ context.Context, cred domainauth.Credential, scope ports.Scope) error {
	if s.SaveErr != nil {
		return s.SaveErr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Kind()] = cred
	s.scopes[cred.Kind()] = scope
	return nil
}

func (s *MemoryCredentialStore) Load(_ context.Context, kind domainauth.ProviderKind) (domainauth.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cred, ok := s.creds[kind]
	if !ok {
		return nil, ports.ErrNoCredential
	}
	return cred, nil
}

func (s *MemoryCredentialStore) Clear(_ context.Context, kind domainauth.ProviderKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, kind)
	delete(s.scopes, kind)
	return nil
}

func (s *MemoryCredentialStore) ClearAll(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.creds)
	clear(s.scopes)
	return nil
}

// ScopeOf returns the scope the kind was last saved under.
func (s *MemoryCredentialStore) ScopeOf(kind domainauth.ProviderKind) (ports.Scope, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	scope, ok := s.scopes[kind]
	return scope, ok
}

// Len returns how many credentials the store holds.
func (s *MemoryCredentialStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.creds)
}

// MockProfileClient simulates the backend auth endpoints.
type MockProfileClient struct {
	FetchProfileFunc   func(ctx context.Context, bearer string) (domainauth.Profile, error)
	SignUpFunc         func(ctx context.Context, in ports.SignUpInput) (domainauth.Profile, error)
	ChangePasswordFunc func(ctx context.Context, bearer, oldPassword, newPassword string) error

	// DefaultProfile is returned by FetchProfile and SignUp when no Func is set.
	DefaultProfile domainauth.Profile

	mu      sync.Mutex
	fetches int
}

// NewMockProfileClient creates a MockProfileClient with a minimal profile.
func NewMockProfileClient() *MockProfileClient {
	return &MockProfileClient{
		DefaultProfile: domainauth.Profile{
			User: domainauth.ProfileUser{
				ID:    "mock-user-1",
				Email: "mock.user@example.com",
				Role:  "clientAdmin",
			},
		},
	}
}

func (m *MockProfileClient) FetchProfile(ctx context.Context, bearer string) (domainauth.Profile, error) {
	m.mu.Lock()
	m.fetches++
	m.mu.Unlock()

	if m.FetchProfileFunc != nil {
		return m.FetchProfileFunc(ctx, bearer)
	}
	return m.DefaultProfile, nil
}

func (m *MockProfileClient) SignUp(ctx context.Context, in ports.SignUpInput) (domainauth.Profile, error) {
	if m.SignUpFunc != nil {
		return m.SignUpFunc(ctx, in)
	}
	return m.DefaultProfile, nil
}

func (m *MockProfileClient) ChangePassword(ctx context.Context, bearer, oldPassword, newPassword string) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, bearer, oldPassword, newPassword)
	}
	return nil
}

// Fetches returns how many times FetchProfile was called.
func (m *MockProfileClient) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.fetches
}
