// Package mocks provides mock implementations for testing the session core.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the auth ports. mockgen is pinned via the tool directive in go.mod; the
// mocks are generated with go:generate directives and provide a fluent API
// for setting up test expectations.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	store := mocks.NewMockCredentialStore(ctrl)
//	store.EXPECT().Load(gomock.Any(), gomock.Any()).Return(nil, ports.ErrNoCredential)
package mocks

// Generate mock for CredentialStore interface from internal/ports.
// This creates MockCredentialStore with Save, Load, Clear, ClearAll.
//go:generate go tool mockgen -package=mocks -destination=credential_store_mock.go github.com/brightline/console-auth/internal/ports CredentialStore

// Generate mock for ProviderSession interface from internal/ports.
// This creates MockProviderSession with Kind, SignIn, Refresh, SignOut.
//go:generate go tool mockgen -package=mocks -destination=provider_session_mock.go github.com/brightline/console-auth/internal/ports ProviderSession

// Generate mock for ProfileClient interface from internal/ports.
// This creates MockProfileClient with FetchProfile, SignUp, ChangePassword.
//go:generate go tool mockgen -package=mocks -destination=profile_client_mock.go github.com/brightline/console-auth/internal/ports ProfileClient
