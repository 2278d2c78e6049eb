package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"skillswap/internal/wizard"
)

const (
	defaultHTTPAddr             = ":8080"
	defaultDatabaseURL          = "file:skillswap.db?_pragma=foreign_keys(1)"
	defaultJWTSecret            = "change-me-jwt-secret"
	defaultJWTTTL               = "24h"
	defaultBackendTimeout       = "15s"
	defaultRedisDB              = "0"
	defaultAvailabilityCacheTTL = "5m"
	defaultWizardIdleTTL        = "30m"
	defaultWizardTimezone       = "Local"
	defaultRateLimitPerMin      = "120"
	defaultSignupTokens         = "100"
	defaultCORSAllowedOrigins   = "http://localhost:3000,http://localhost:5173"
)

type Config struct {
	AppEnv      string
	HTTPAddr    string
	DatabaseURL string

	JWTSecret string
	JWTTTL    time.Duration

	// BackendBaseURL empty means the embedded backend serves availability and sessions.
	BackendBaseURL string
	BackendTimeout time.Duration

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	AvailabilityCacheTTL time.Duration

	WizardIdleTTL      time.Duration
	WizardFetchPolicy  wizard.FetchFailurePolicy
	WizardLocation     *time.Location
	RateLimitPerMinute int
	CORSAllowedOrigins []string

	// SignupTokens is credited to every account registered with the embedded backend.
	SignupTokens int64
}

// Load reads .env when present, then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}
	appEnv := strings.TrimSpace(os.Getenv("APP_ENV"))
	if appEnv == "" {
		appEnv = strings.TrimSpace(os.Getenv("ENV"))
	}
	if appEnv == "" {
		appEnv = "dev"
	}
	cfg.AppEnv = strings.ToLower(appEnv)

	cfg.HTTPAddr = strings.TrimSpace(getEnv("HTTP_ADDR", defaultHTTPAddr))
	cfg.DatabaseURL = strings.TrimSpace(getEnv("DATABASE_URL", defaultDatabaseURL))
	cfg.JWTSecret = strings.TrimSpace(getEnv("JWT_SECRET", defaultJWTSecret))
	cfg.BackendBaseURL = strings.TrimSpace(os.Getenv("BACKEND_BASE_URL"))
	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")

	var err error
	if cfg.JWTTTL, err = parseDurationEnv("JWT_TTL", defaultJWTTTL); err != nil {
		return nil, err
	}
	if cfg.BackendTimeout, err = parseDurationEnv("BACKEND_TIMEOUT", defaultBackendTimeout); err != nil {
		return nil, err
	}
	if cfg.AvailabilityCacheTTL, err = parseDurationEnv("AVAILABILITY_CACHE_TTL", defaultAvailabilityCacheTTL); err != nil {
		return nil, err
	}
	if cfg.WizardIdleTTL, err = parseDurationEnv("WIZARD_IDLE_TTL", defaultWizardIdleTTL); err != nil {
		return nil, err
	}
	if cfg.RedisDB, err = parseIntEnv("REDIS_DB", defaultRedisDB); err != nil {
		return nil, err
	}
	if cfg.RateLimitPerMinute, err = parseIntEnv("RATE_LIMIT_PER_MIN", defaultRateLimitPerMin); err != nil {
		return nil, err
	}
	signup, err := parseIntEnv("SIGNUP_TOKENS", defaultSignupTokens)
	if err != nil {
		return nil, err
	}
	cfg.SignupTokens = int64(signup)

	cfg.WizardFetchPolicy, err = wizard.ParseFetchFailurePolicy(strings.TrimSpace(os.Getenv("WIZARD_FETCH_FAILURE_POLICY")))
	if err != nil {
		return nil, fmt.Errorf("invalid WIZARD_FETCH_FAILURE_POLICY: %w", err)
	}

	tz := strings.TrimSpace(getEnv("WIZARD_TIMEZONE", defaultWizardTimezone))
	cfg.WizardLocation, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid WIZARD_TIMEZONE value %q: %w", tz, err)
	}

	cfg.CORSAllowedOrigins = splitList(getEnv("CORS_ALLOWED_ORIGINS", defaultCORSAllowedOrigins))

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// EmbeddedBackend reports whether this process serves the availability and
// session endpoints itself.
func (c *Config) EmbeddedBackend() bool {
	return c.BackendBaseURL == ""
}

func (c *Config) IsProdLike() bool {
	return isProdLike(c.AppEnv)
}

func validateConfig(cfg *Config) error {
	if cfg.HTTPAddr == "" {
		return fmt.Errorf("HTTP_ADDR must not be empty")
	}
	if cfg.JWTTTL <= 0 {
		return fmt.Errorf("JWT_TTL must be > 0")
	}
	if cfg.BackendTimeout <= 0 {
		return fmt.Errorf("BACKEND_TIMEOUT must be > 0")
	}
	if cfg.AvailabilityCacheTTL < 0 {
		return fmt.Errorf("AVAILABILITY_CACHE_TTL must be >= 0")
	}
	if cfg.WizardIdleTTL <= 0 {
		return fmt.Errorf("WIZARD_IDLE_TTL must be > 0")
	}
	if cfg.RateLimitPerMinute < 0 {
		return fmt.Errorf("RATE_LIMIT_PER_MIN must be >= 0")
	}
	if cfg.SignupTokens < 0 {
		return fmt.Errorf("SIGNUP_TOKENS must be >= 0")
	}
	if cfg.BackendBaseURL != "" &&
		!strings.HasPrefix(cfg.BackendBaseURL, "http://") &&
		!strings.HasPrefix(cfg.BackendBaseURL, "https://") {
		return fmt.Errorf("BACKEND_BASE_URL must be an http(s) URL")
	}

	if isProdLike(cfg.AppEnv) {
		if isEmptyOrDefault(cfg.JWTSecret, defaultJWTSecret) {
			return fmt.Errorf("in prod/release JWT_SECRET must be set and not default")
		}
		if cfg.EmbeddedBackend() && !strings.HasPrefix(cfg.DatabaseURL, "postgres") {
			return fmt.Errorf("in prod/release the embedded backend requires a postgres DATABASE_URL")
		}
	}
	return nil
}

func isProdLike(env string) bool {
	env = strings.ToLower(strings.TrimSpace(env))
	return env == "prod" || env == "production" || env == "release"
}

func isEmptyOrDefault(v, def string) bool {
	trimmed := strings.TrimSpace(v)
	return trimmed == "" || trimmed == def
}

func parseDurationEnv(name, fallback string) (time.Duration, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return d, nil
}

func parseIntEnv(name, fallback string) (int, error) {
	value := strings.TrimSpace(getEnv(name, fallback))
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s value %q: %w", name, value, err)
	}
	return n, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
