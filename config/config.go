package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	// CoLocated is the BACKEND_URL value for deployments where the backend is
	// served from the same origin as the frontend.
	CoLocated = "same-origin"

	defaultBackendURL    = "http://localhost:8000"
	defaultChatTimeout   = 30 * time.Second
	defaultHealthTimeout = 5 * time.Second
	defaultPort          = "8080"

	// defaultCoLocatedPrefix keeps a co-located backend off the /chat and
	// /health routes the proxy itself serves.
	defaultCoLocatedPrefix = "/backend"
)

// selfRoutedPrefixes are the path prefixes the proxy's own endpoints live
// under. A co-located backend there would route back into the proxy.
var selfRoutedPrefixes = []string{"", "/api"}

type Config struct {
	// BackendURL is the backend base URL without a trailing slash, or CoLocated.
	BackendURL string
	// BackendPathPrefix is appended to the derived base URL in co-located mode.
	BackendPathPrefix  string
	BackendURLSecretID string

	ChatTimeout   time.Duration
	HealthTimeout time.Duration

	Port         string
	AllowOrigins []string

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the environment, after merging in a .env
// file if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		BackendURL:         backendURL(),
		BackendPathPrefix:  strings.TrimSuffix(os.Getenv("BACKEND_PATH_PREFIX"), "/"),
		BackendURLSecretID: os.Getenv("BACKEND_URL_SECRET_ID"),
		Port:               getEnvOrDefault("PORT", defaultPort),
		AllowOrigins:       splitList(os.Getenv("CORS_ALLOW_ORIGINS")),
		LogFormat:          strings.ToLower(getEnvOrDefault("LOG_FORMAT", "text")),
	}

	if err := cfg.checkCoLocatedPrefix(); err != nil {
		return nil, err
	}
	if err := checkOrigins(cfg.AllowOrigins); err != nil {
		return nil, err
	}

	var err error
	if cfg.ChatTimeout, err = getDurationOrDefault("CHAT_TIMEOUT", defaultChatTimeout); err != nil {
		return nil, err
	}
	if cfg.HealthTimeout, err = getDurationOrDefault("HEALTH_TIMEOUT", defaultHealthTimeout); err != nil {
		return nil, err
	}
	if err = cfg.LogLevel.UnmarshalText([]byte(getEnvOrDefault("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("invalid LOG_FORMAT %q: expected text or json", cfg.LogFormat)
	}

	return cfg, nil
}

// checkCoLocatedPrefix applies the default co-located prefix and rejects
// prefixes that would send the proxy's requests back to itself.
func (c *Config) checkCoLocatedPrefix() error {
	if !c.IsCoLocated() {
		return nil
	}
	if os.Getenv("BACKEND_PATH_PREFIX") == "" {
		c.BackendPathPrefix = defaultCoLocatedPrefix
		return nil
	}
	for _, prefix := range selfRoutedPrefixes {
		if strings.EqualFold(c.BackendPathPrefix, prefix) {
			return fmt.Errorf("invalid BACKEND_PATH_PREFIX %q: co-located backend would be served by the proxy itself", os.Getenv("BACKEND_PATH_PREFIX"))
		}
	}
	return nil
}

// checkOrigins applies the same rule gin-contrib/cors enforces, so a bad
// CORS_ALLOW_ORIGINS is reported here instead of panicking at router setup.
func checkOrigins(origins []string) error {
	for _, origin := range origins {
		if !strings.HasPrefix(origin, "http://") && !strings.HasPrefix(origin, "https://") {
			return fmt.Errorf("invalid CORS_ALLOW_ORIGINS entry %q: must start with http:// or https://", origin)
		}
	}
	return nil
}

// IsCoLocated reports whether the backend URL has to be derived from each
// inbound request.
func (c *Config) IsCoLocated() bool {
	return c.BackendURL == CoLocated
}

// SetBackendURL replaces the backend URL, normalising it the same way Load does.
func (c *Config) SetBackendURL(raw string) {
	c.BackendURL = normaliseURL(raw)
}

// Logger builds a slog logger writing to stderr.
func (c *Config) Logger() *slog.Logger {
	return c.newLogger(os.Stderr)
}

func (c *Config) newLogger(w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

func backendURL() string {
	raw := os.Getenv("BACKEND_URL")
	if raw == "" {
		raw = os.Getenv("BACKEND_API_URL")
	}
	if raw == "" {
		return defaultBackendURL
	}
	return normaliseURL(raw)
}

func normaliseURL(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.EqualFold(raw, CoLocated) {
		return CoLocated
	}
	return strings.TrimRight(raw, "/")
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return d, nil
}

func splitList(value string) []string {
	var items []string
	for _, item := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
