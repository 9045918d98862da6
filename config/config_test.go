package config

import (
	"testing"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppConfig_Defaults(t *testing.T) {
	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, ":8080", cfg.HTTP.Addr)
	assert.Equal(t, "http://localhost:3000", cfg.Backend.BaseURL)
	assert.False(t, cfg.Redis.Enabled())
	assert.False(t, cfg.Auth.Enterprise.Enabled())
	assert.Equal(t, "5m", cfg.Auth.RefreshWindow)
	assert.Empty(t, cfg.Auth.AdminDomains)
}

func TestAppConfig_EnvOverrides(t *testing.T) {
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("REDIS_ADDR", "redis.internal:6379")
	t.Setenv("AUTH_ENTERPRISE_CLIENT_ID", "console")
	t.Setenv("AUTH_ENTERPRISE_DISCOVERY_URL", "https://idp.corp.example/.well-known/openid-configuration")
	t.Setenv("AUTH_ADMIN_DOMAINS", "Corp.example, partner.example ,")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.True(t, cfg.Redis.Enabled())
	assert.True(t, cfg.Auth.Enterprise.Enabled())
	assert.Equal(t, []string{"corp.example", "partner.example"}, cfg.Auth.AdminDomains)
}

func TestAppConfig_DevModeFromNodeEnv(t *testing.T) {
	t.Setenv("NODE_ENV", "development")

	var cfg AppConfig
	require.NoError(t, env.Parse(&cfg))
	cfg.Sanitize()

	assert.True(t, cfg.IsDev)
}

func TestOAuthConfig_Enabled(t *testing.T) {
	assert.False(t, OAuthConfig{}.Enabled())
	assert.False(t, OAuthConfig{ClientID: "x"}.Enabled())
	assert.True(t, OAuthConfig{ClientID: "x", DiscoveryURL: "https://idp.example"}.Enabled())
}
