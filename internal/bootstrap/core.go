package bootstrap

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/brightline/console-auth/config"
	"github.com/brightline/console-auth/internal/adapters/backendapi"
	"github.com/brightline/console-auth/internal/adapters/consumeroauth"
	"github.com/brightline/console-auth/internal/adapters/credstore"
	"github.com/brightline/console-auth/internal/adapters/directory"
	"github.com/brightline/console-auth/internal/adapters/magiclink"
	"github.com/brightline/console-auth/internal/adapters/password"
	"github.com/brightline/console-auth/internal/ports"
	"github.com/brightline/console-auth/internal/service"
)

// SessionCore bundles the wired session-core collaborators.
type SessionCore struct {
	Backend      *backendapi.Client
	Store        *credstore.ScopedStore
	Sessions     *service.SessionManager
	Resolver     *service.Resolver
	Bootstrapper *service.Bootstrapper
	MagicLink    *magiclink.Session
}

// CoreConfig contains dependencies for BuildSessionCore.
type CoreConfig struct {
	Config config.AppConfig
	Logger *slog.Logger
}

// BuildSessionCore wires the credential store, provider sessions, resolver,
// and bootstrapper from configuration. The password and magic-link providers
// are always available; the OAuth providers join only when configured.
func BuildSessionCore(cfg CoreConfig) (*SessionCore, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	backend, err := backendapi.NewClient(backendapi.Config{BaseURL: cfg.Config.Backend.BaseURL})
	if err != nil {
		return nil, fmt.Errorf("build backend client: %w", err)
	}

	store := buildCredentialStore(cfg.Config.Redis, logger)

	providers, links, err := buildProviders(cfg.Config, backend, logger)
	if err != nil {
		return nil, err
	}

	sessions := service.NewSessionManager(service.SessionManagerOptions{
		Providers: providers,
		Store:     store,
		Logger:    logger,
	})
	resolver := service.NewResolver(service.ResolverOptions{
		Profiles: backend,
		Logger:   logger,
	})
	boot := service.NewBootstrapper(service.BootstrapperOptions{
		Sessions:      sessions,
		Resolver:      resolver,
		AdminDomains:  cfg.Config.Auth.AdminDomains,
		RefreshWindow: parseRefreshWindow(cfg.Config.Auth.RefreshWindow, logger),
		Logger:        logger,
	})

	return &SessionCore{
		Backend:      backend,
		Store:        store,
		Sessions:     sessions,
		Resolver:     resolver,
		Bootstrapper: boot,
		MagicLink:    links,
	}, nil
}

func buildCredentialStore(cfg config.RedisConfig, logger *slog.Logger) *credstore.ScopedStore {
	opts := credstore.ScopedStoreOptions{
		Tab:    credstore.NewMemoryStore(),
		Logger: logger,
	}
	if cfg.Enabled() {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
			DB:       cfg.DB,
		})
		opts.Durable = credstore.NewRedisStore(client)
	} else {
		logger.Warn("redis not configured, durable credentials will not survive restarts")
	}

	return credstore.NewScopedStore(opts)
}

func buildProviders(cfg config.AppConfig, backend *backendapi.Client, logger *slog.Logger) ([]ports.ProviderSession, *magiclink.Session, error) {
	links := magiclink.NewSession(backend)
	providers := []ports.ProviderSession{
		password.NewSession(backend),
		links,
	}

	callbackURL := cfg.HTTP.BaseURL + "/auth/callback"

	if cfg.Auth.Enterprise.Enabled() {
		session, err := directory.NewSession(directory.Config{
			ClientID:     cfg.Auth.Enterprise.ClientID,
			ClientSecret: cfg.Auth.Enterprise.ClientSecret,
			RedirectURL:  callbackURL,
			Scope:        cfg.Auth.Enterprise.Scope,
			DiscoveryURL: cfg.Auth.Enterprise.DiscoveryURL,
			LogoutURL:    cfg.Auth.Enterprise.LogoutURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build enterprise directory session: %w", err)
		}
		providers = append(providers, session)
	} else {
		logger.Info("enterprise directory provider not configured")
	}

	if cfg.Auth.Consumer.Enabled() {
		session, err := consumeroauth.NewSession(consumeroauth.Config{
			ClientID:     cfg.Auth.Consumer.ClientID,
			ClientSecret: cfg.Auth.Consumer.ClientSecret,
			RedirectURL:  callbackURL,
			Scope:        cfg.Auth.Consumer.Scope,
			DiscoveryURL: cfg.Auth.Consumer.DiscoveryURL,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("build consumer oauth session: %w", err)
		}
		providers = append(providers, session)
	} else {
		logger.Info("consumer oauth provider not configured")
	}

	return providers, links, nil
}

func parseRefreshWindow(raw string, logger *slog.Logger) time.Duration {
	if raw == "" {
		return 0
	}
	window, err := time.ParseDuration(raw)
	if err != nil {
		logger.Warn("invalid refresh window, using default", "value", raw, "error", err)
		return 0
	}
	return window
}
