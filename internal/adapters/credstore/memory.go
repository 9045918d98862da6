package credstore

// Package credstore provides credential persistence adapters for the session
// core: a process-lifetime memory store (tab scope), a Redis-backed durable
// store (cross-process scope), and a scope-routing composite.

import (
	"context"
	"sync"

	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// MemoryStore holds credentials for the lifetime of the process. It backs the
// tab scope and doubles as the degraded fallback when the durable backend is
// unavailable.
type MemoryStore struct {
	mu    sync.RWMutex
	creds map[domainauth.ProviderKind]domainauth.Credential
}

// NewMemoryStore creates an empty in-memory credential store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		creds: make(map[domainauth.ProviderKind]domainauth.Credential),
	}
}

// Put stores a credential under its kind, replacing any previous value.
func (s *MemoryStore) Put(_ context.Context, cred domainauth.Credential) error {
	if cred == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds[cred.Kind()] = cred
	return nil
}

// Get returns the credential for a kind, or ports.ErrNoCredential.
func (s *MemoryStore) Get(_ context.Context, kind domainauth.ProviderKind) (domainauth.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cred, ok := s.creds[kind]
	if !ok {
		return nil, ports.ErrNoCredential
	}
	return cred, nil
}

// Del removes the credential for a kind. Absent kinds are a no-op.
func (s *MemoryStore) Del(_ context.Context, kind domainauth.ProviderKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.creds, kind)
	return nil
}
