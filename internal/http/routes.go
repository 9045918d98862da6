package httpx

import (
	"log/slog"
	"net/http"

	"github.com/brightline/console-auth/internal/ports"
)

// RouterServices holds everything the HTTP router needs.
type RouterServices struct {
	Sessions  SessionStarter
	Flow      AuthFlow
	Profiles  ports.ProfileClient
	MagicLink MagicLinkRequester
	Logger    *slog.Logger
}

// NewRouter creates and configures the session-core HTTP router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()

	authHandlers := &AuthHandlers{
		Sessions:  services.Sessions,
		Flow:      services.Flow,
		Profiles:  services.Profiles,
		MagicLink: services.MagicLink,
		Logger:    services.Logger,
	}
	registerAuthRoutes(mux, authHandlers)

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))

	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return Recover(logger)(Logging(logger)(mux))
}

func registerAuthRoutes(mux *http.ServeMux, h *AuthHandlers) {
	mux.Handle("POST /auth/sign-in", http.HandlerFunc(h.SignIn))
	mux.Handle("GET /auth/login", http.HandlerFunc(h.Login))
	mux.Handle("GET /auth/callback", http.HandlerFunc(h.Callback))
	mux.Handle("POST /auth/sign-out", http.HandlerFunc(h.SignOut))
	mux.Handle("GET /auth/session", http.HandlerFunc(h.Session))
	mux.Handle("POST /auth/magic-link", http.HandlerFunc(h.RequestMagicLink))
	mux.Handle("POST /auth/sign-up", http.HandlerFunc(h.SignUp))
	mux.Handle("POST /auth/change-password", http.HandlerFunc(h.ChangePassword))
}
