package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is read once from the environment at startup and treated as immutable.
type Config struct {
	Logging   LoggingConfig
	REST      RESTConfig
	OIDC      OIDCConfig
	Server    ServerConfig
	Security  SecurityConfig
	Kafka     KafkaConfig
	Websocket WebsocketConfig
}

type LoggingConfig struct {
	Level     string
	Format    string
	Directory string
}

// RESTConfig configures the gateway client.
type RESTConfig struct {
	BaseURL string
	Timeout time.Duration
	// PageSize is the fixed search page size used by the pagination coordinator.
	PageSize int
	// WithCredentials attaches a cookie jar so the HTTP-only credential cookie travels
	// alongside the bearer header.
	WithCredentials bool
}

// OIDCConfig describes the identity provider the client signs in against.
type OIDCConfig struct {
	Authority   string
	ClientID    string
	RedirectURL string
	SessionFile string
}

type ServerConfig struct {
	Port string
	// RateLimit is the sustained requests per second allowed per client IP; zero disables it.
	RateLimit float64
	// PhotoDir holds uploaded photo files.
	PhotoDir string
}

type SecurityConfig struct {
	JWTSecret  string
	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
	// Users holds the development identity provider accounts as username -> password.
	Users map[string]string
}

type KafkaConfig struct {
	Brokers []string
	Topic   string
	GroupID string
}

type WebsocketConfig struct {
	AllowedActions []string
}

// Load reads the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Logging: LoggingConfig{
			Level:     envOr("LOG_LEVEL", "info"),
			Format:    envOr("LOG_FORMAT", "text"),
			Directory: envOr("LOG_DIR", "./logs"),
		},
		REST: RESTConfig{
			BaseURL: strings.TrimRight(envOr("API_BASE_URL", "http://localhost:8080/api"), "/"),
		},
		OIDC: OIDCConfig{
			ClientID:    envOr("OIDC_CLIENT_ID", "restaurant-review-app"),
			RedirectURL: envOr("OIDC_REDIRECT_URL", "http://localhost:3000"),
			SessionFile: envOr("SESSION_FILE", defaultSessionFile()),
		},
		Server: ServerConfig{
			Port:     envOr("PORT", "8080"),
			PhotoDir: envOr("PHOTO_DIR", "./uploads"),
		},
		Security: SecurityConfig{
			JWTSecret: strings.TrimSpace(os.Getenv("JWT_SECRET")),
		},
		Kafka: KafkaConfig{
			Brokers: splitList(firstEnv("KAFKA_BROKERS", "KAFKA_BROKER")),
			Topic:   envOr("KAFKA_TOPIC", "restaurant-review.events"),
			GroupID: envOr("KAFKA_GROUP_ID", "restaurant-review-realtime"),
		},
		Websocket: WebsocketConfig{
			AllowedActions: splitList(envOr("WS_ALLOWED_ACTIONS", "created,updated,deleted")),
		},
	}

	var problems []string

	var err error
	if cfg.REST.Timeout, err = durationEnv("API_TIMEOUT", 10*time.Second); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.REST.PageSize, err = intEnv("SEARCH_PAGE_SIZE", 8); err != nil {
		problems = append(problems, err.Error())
	} else if cfg.REST.PageSize <= 0 {
		problems = append(problems, "SEARCH_PAGE_SIZE must be positive")
	}
	if cfg.REST.WithCredentials, err = boolEnv("REST_WITH_CREDENTIALS", true); err != nil {
		problems = append(problems, err.Error())
	}
	if _, parseErr := url.ParseRequestURI(cfg.REST.BaseURL); parseErr != nil {
		problems = append(problems, fmt.Sprintf("API_BASE_URL invalid: %v", parseErr))
	}

	cfg.OIDC.Authority = oidcAuthority()

	if cfg.Server.RateLimit, err = floatEnv("RATE_LIMIT", 20); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Security.AccessTTL, err = durationEnv("ACCESS_TOKEN_TTL", 5*time.Minute); err != nil {
		problems = append(problems, err.Error())
	}
	if cfg.Security.RefreshTTL, err = durationEnv("REFRESH_TOKEN_TTL", 30*time.Minute); err != nil {
		problems = append(problems, err.Error())
	}
	cfg.Security.Issuer = envOr("JWT_ISSUER", cfg.OIDC.Authority)
	if cfg.Security.Users, err = parseUsers(envOr("DEV_USERS", "reviewer:reviewer")); err != nil {
		problems = append(problems, err.Error())
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return cfg, nil
}

// RequireServerSecret reports an error when the dev server cannot sign tokens.
func (c *Config) RequireServerSecret() error {
	if strings.TrimSpace(c.Security.JWTSecret) == "" {
		return fmt.Errorf("JWT_SECRET is required to run the server")
	}
	return nil
}

// Realm is the realm segment of a Keycloak-style authority, or "" when it has none.
func (c OIDCConfig) Realm() string {
	_, realm, ok := strings.Cut(c.Authority, "/realms/")
	if !ok {
		return ""
	}
	realm, _, _ = strings.Cut(realm, "/")
	return strings.TrimSpace(realm)
}

// oidcAuthority builds the Keycloak-style realm URL from KEYCLOAK_URL and KEYCLOAK_REALM,
// unless OIDC_AUTHORITY overrides it.
func oidcAuthority() string {
	if explicit := strings.TrimSpace(os.Getenv("OIDC_AUTHORITY")); explicit != "" {
		return strings.TrimRight(explicit, "/")
	}
	base := strings.TrimRight(envOr("KEYCLOAK_URL", "http://localhost:8080"), "/")
	realm := envOr("KEYCLOAK_REALM", "restaurant-review")
	return base + "/realms/" + realm
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		dir = "."
	}
	return filepath.Join(dir, "restaurant-review", "session.json")
}

func envOr(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if value := strings.TrimSpace(os.Getenv(key)); value != "" {
			return value
		}
	}
	return ""
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return value, nil
}

func intEnv(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return value, nil
}

func floatEnv(key string, fallback float64) (float64, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %v", key, err)
	}
	return value, nil
}

func boolEnv(key string, fallback bool) (bool, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s: %v", key, err)
	}
	return value, nil
}

// parseUsers reads "alice:pw1,bob:pw2".
func parseUsers(raw string) (map[string]string, error) {
	users := make(map[string]string)
	for _, entry := range splitList(raw) {
		name, password, ok := strings.Cut(entry, ":")
		name = strings.TrimSpace(name)
		if !ok || name == "" || password == "" {
			return nil, fmt.Errorf("DEV_USERS entry %q must be user:password", entry)
		}
		users[name] = password
	}
	return users, nil
}
