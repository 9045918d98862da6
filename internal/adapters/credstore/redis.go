package credstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	domainauth "github.com/brightline/console-auth/internal/domain/auth"
	"github.com/brightline/console-auth/internal/ports"
)

// defaultCredentialTTL bounds how long a credential without a provider expiry
// may sit in the durable store.
const defaultCredentialTTL = 30 * 24 * time.Hour

// RedisStore is the durable credential store. It survives restarts and is
// readable by companion processes (the desktop-client handoff). TTL follows
// the credential expiry when the provider communicates one.
type RedisStore struct {
	client redis.UniversalClient
	prefix string
}

// NewRedisStore creates a Redis-backed credential store.
func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client, prefix: "credential:"}
}

// NewRedisStoreWithPrefix creates a Redis credential store with a custom key prefix.
func NewRedisStoreWithPrefix(client redis.UniversalClient, prefix string) *RedisStore {
	return &RedisStore{client: client, prefix: prefix}
}

// Put stores a credential under its kind, replacing any previous value.
func (s *RedisStore) Put(ctx context.Context, cred domainauth.Credential) error {
	if cred == nil {
		return nil
	}

	data, err := domainauth.EncodeCredential(cred)
	if err != nil {
		return fmt.Errorf("encode credential: %w", err)
	}

	ttl := defaultCredentialTTL
	if expiry := cred.Expiry(); !expiry.IsZero() {
		ttl = time.Until(expiry)
		if ttl <= 0 {
			// Expired on arrival: nothing worth persisting, but replace
			// semantics still drop any previous value. Not a backend
			// failure; the store stays healthy.
			return s.Del(ctx, cred.Kind())
		}
	}

	return s.client.Set(ctx, s.key(cred.Kind()), data, ttl).Err()
}

// Get returns the credential for a kind, or ports.ErrNoCredential.
func (s *RedisStore) Get(ctx context.Context, kind domainauth.ProviderKind) (domainauth.Credential, error) {
	data, err := s.client.Get(ctx, s.key(kind)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ports.ErrNoCredential
		}
		return nil, fmt.Errorf("redis get: %w", err)
	}

	cred, err := domainauth.DecodeCredential([]byte(data))
	if err != nil {
		return nil, fmt.Errorf("decode credential: %w", err)
	}

	// Double-check expiry (Redis TTL should handle this, but be defensive)
	if expiry := cred.Expiry(); !expiry.IsZero() && time.Now().After(expiry) {
		if deleteErr := s.Del(ctx, kind); deleteErr != nil {
			return nil, fmt.Errorf("cleanup expired credential: %w", deleteErr)
		}
		return nil, ports.ErrNoCredential
	}

	return cred, nil
}

// Del removes the credential for a kind. Absent kinds are a no-op.
func (s *RedisStore) Del(ctx context.Context, kind domainauth.ProviderKind) error {
	return s.client.Del(ctx, s.key(kind)).Err()
}

func (s *RedisStore) key(kind domainauth.ProviderKind) string {
	return s.prefix + string(kind)
}
