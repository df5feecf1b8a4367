// Package config handles application configuration and environment loading.
package config

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// AuthConfig holds identity provider configuration. With neither an issuer
// nor a shared secret configured, all callers are anonymous and only open
// datasets are reachable.
type AuthConfig struct {
	IssuerURL string // OIDC issuer URL for JWKS-verified tokens
	Audience  string // required audience claim when IssuerURL is set
	JWTSecret string // HS256 shared secret for local/dev tokens
}

// OIDCEnabled reports whether an external identity provider is configured.
func (a *AuthConfig) OIDCEnabled() bool {
	return a.IssuerURL != ""
}

// Validate checks that the auth configuration is internally consistent.
func (a *AuthConfig) Validate() error {
	if a.IssuerURL != "" && a.Audience == "" {
		return fmt.Errorf("AUTH_AUDIENCE is required when AUTH_ISSUER_URL is set")
	}
	return nil
}

// PolicyConfig selects the policy oracle. With no URL the built-in rule
// oracle decides from dataset access levels.
type PolicyConfig struct {
	URL     string        // policy service base URL, e.g. http://localhost:8181
	Path    string        // decision document path, e.g. datagate/query/decision
	Timeout time.Duration // per-decision timeout (default 3s)
}

// Config holds the gateway configuration.
type Config struct {
	ListenAddr  string // HTTP listen address (default ":8080")
	MetaDBPath  string // path to the SQLite metastore file
	WarehouseDB string // path to the DuckDB database ("" for in-memory)
	LogLevel    string // debug, info, warn, error (default "info")
	Env         string // "development" (default) or "production"

	// Query bounds.
	DefaultLimit int
	MaxLimit     int
	MaxOffset    int
	QueryTimeout time.Duration

	// Reconciler.
	DatasetsFile    string // desired-state document applied on demand
	SweepSchedule   string // cron spec for the cleanup sweep ("" disables)
	ReflectParallel int    // concurrent schema reflections per run

	// Rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	CORSAllowedOrigins []string

	Auth   AuthConfig
	Policy PolicyConfig

	// Warnings collects non-fatal findings from loading; the caller logs
	// them once the logger exists.
	Warnings []string
}

// SlogLevel maps the LogLevel string to an slog.Level.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// LoadFromEnv loads configuration from environment variables and applies
// defaults. Production mode turns insecure defaults into errors.
func LoadFromEnv() (*Config, error) {
	cfg := &Config{
		ListenAddr:    os.Getenv("LISTEN_ADDR"),
		MetaDBPath:    os.Getenv("META_DB_PATH"),
		WarehouseDB:   os.Getenv("WAREHOUSE_DB_PATH"),
		LogLevel:      os.Getenv("LOG_LEVEL"),
		Env:           os.Getenv("ENV"),
		DatasetsFile:  os.Getenv("DATASETS_FILE"),
		SweepSchedule: os.Getenv("SWEEP_SCHEDULE"),
	}

	cfg.DefaultLimit = parseIntEnv("QUERY_DEFAULT_LIMIT", 100)
	cfg.MaxLimit = parseIntEnv("QUERY_MAX_LIMIT", 10000)
	cfg.MaxOffset = parseIntEnv("QUERY_MAX_OFFSET", 100000)
	cfg.ReflectParallel = parseIntEnv("RECONCILE_PARALLEL", 4)

	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("QUERY_TIMEOUT: %w", err)
		}
		cfg.QueryTimeout = d
	}

	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.RateLimitRPS = f
		}
	}
	cfg.RateLimitBurst = parseIntEnv("RATE_LIMIT_BURST", 0)

	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		origins := strings.Split(v, ",")
		for i := range origins {
			origins[i] = strings.TrimSpace(origins[i])
		}
		cfg.CORSAllowedOrigins = origins
	}

	cfg.Auth = AuthConfig{
		IssuerURL: os.Getenv("AUTH_ISSUER_URL"),
		Audience:  os.Getenv("AUTH_AUDIENCE"),
		JWTSecret: os.Getenv("JWT_SECRET"),
	}
	if err := cfg.Auth.Validate(); err != nil {
		return nil, err
	}

	cfg.Policy = PolicyConfig{
		URL:  os.Getenv("POLICY_URL"),
		Path: os.Getenv("POLICY_PATH"),
	}
	if v := os.Getenv("POLICY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Policy.Timeout = d
		}
	}

	// Defaults.
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = ":8080"
	}
	if cfg.MetaDBPath == "" {
		cfg.MetaDBPath = "datagate_meta.sqlite"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.QueryTimeout == 0 {
		cfg.QueryTimeout = 30 * time.Second
	}
	if cfg.Policy.Path == "" {
		cfg.Policy.Path = "datagate/query/decision"
	}
	if cfg.Policy.Timeout == 0 {
		cfg.Policy.Timeout = 3 * time.Second
	}
	if cfg.RateLimitRPS == 0 {
		cfg.RateLimitRPS = 100
	}
	if cfg.RateLimitBurst == 0 {
		cfg.RateLimitBurst = 200
	}
	if len(cfg.CORSAllowedOrigins) == 0 {
		cfg.CORSAllowedOrigins = []string{"*"}
	}

	if !cfg.Auth.OIDCEnabled() && cfg.Auth.JWTSecret == "" {
		cfg.Warnings = append(cfg.Warnings,
			"no identity provider configured; all callers are anonymous")
	}
	if cfg.Policy.URL == "" {
		cfg.Warnings = append(cfg.Warnings,
			"POLICY_URL not set; using built-in access level rules")
	}

	// Production mode: insecure defaults are fatal errors.
	if cfg.IsProduction() {
		if !cfg.Auth.OIDCEnabled() {
			return nil, fmt.Errorf("AUTH_ISSUER_URL must be set in production (ENV=production)")
		}
		if len(cfg.CORSAllowedOrigins) == 1 && cfg.CORSAllowedOrigins[0] == "*" {
			return nil, fmt.Errorf("CORS wildcard (*) is not allowed in production (ENV=production)")
		}
	}

	return cfg, nil
}

func parseIntEnv(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// LoadDotEnv reads a .env file and sets any variables not already present in
// the environment. Comments (#) and blank lines are skipped; a missing file
// is not an error.
func LoadDotEnv(path string) error {
	f, err := os.Open(path) //nolint:gosec // path is caller-controlled
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close() //nolint:errcheck

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = stripQuotes(strings.TrimSpace(value))
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("setenv %s: %w", key, err)
			}
		}
	}
	return scanner.Err()
}

func stripQuotes(s string) string {
	if len(s) >= 2 {
		if (s[0] == '"' && s[len(s)-1] == '"') || (s[0] == '\'' && s[len(s)-1] == '\'') {
			return s[1 : len(s)-1]
		}
	}
	return s
}
