package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://console.example.com").
	// Used for generating absolute OAuth callback URLs.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`
}

// BackendConfig points at the admin backend API.
type BackendConfig struct {
	// BaseURL is the backend API root, e.g. "https://api.example.com".
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:3000"`
}
