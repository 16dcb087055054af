package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
)

type Config struct {
	Database  DatabaseConfig
	Server    ServerConfig
	Admin     AdminConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
}

type DatabaseConfig struct {
	Host              string
	Port              int
	User              string
	Password          string
	Name              string
	SSLMode           string
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
	// Bounds on a single attempt-store query and on waiting for a row lock
	StatementTimeout time.Duration
	LockTimeout      time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	LogFile        string // empty logs to stdout only
	AllowedOrigins []string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

// AdminConfig holds the reference credentials of the single admin account.
// Missing values are not a Load error; see Configured.
type AdminConfig struct {
	Username     string
	Password     string
	PasswordHash string
	TOTPSecret   string
	TOTPIssuer   string
}

type SessionConfig struct {
	Secret       string
	Duration     time.Duration
	CookieDomain string
	SameSite     string
}

type RateLimitConfig struct {
	MaxAttempts            int
	Window                 time.Duration
	Lockout                time.Duration
	MaxIdentities          int
	LoginRequestsPerMinute int
	FailureDelay           time.Duration
	FailureJitter          time.Duration
	Store                  string // memory or postgres
	CleanupInterval        time.Duration
}

// Configured reports whether admin credentials are present
func (a AdminConfig) Configured() bool {
	return a.Username != "" && (a.Password != "" || a.PasswordHash != "")
}

// IsProduction reports whether the server runs with production hardening
func (s ServerConfig) IsProduction() bool {
	return s.Env == "production"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", "development")

	sessionSecret := getEnv("SESSION_SECRET", "")
	if sessionSecret == "" {
		return nil, fmt.Errorf("SESSION_SECRET is required")
	}
	if err := validateSessionSecret(sessionSecret, env); err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: loadDatabase(),
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFile:        getEnv("LOG_FILE", ""),
			AllowedOrigins: parseAllowedOrigins(env),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Admin: AdminConfig{
			Username:     getEnv("ADMIN_USERNAME", ""),
			Password:     getEnv("ADMIN_PASSWORD", ""),
			PasswordHash: getEnv("ADMIN_PASSWORD_HASH", ""),
			TOTPSecret:   getEnv("ADMIN_TOTP_SECRET", ""),
			TOTPIssuer:   getEnv("ADMIN_TOTP_ISSUER", "Admin Panel"),
		},
		Session: SessionConfig{
			Secret:       sessionSecret,
			Duration:     getEnvAsDuration("SESSION_DURATION", 7*24*time.Hour),
			CookieDomain: getEnv("SESSION_COOKIE_DOMAIN", ""),
			SameSite:     getEnv("SESSION_COOKIE_SAMESITE", "Lax"),
		},
		RateLimit: RateLimitConfig{
			MaxAttempts:            getEnvAsInt("RATE_LIMIT_MAX_ATTEMPTS", 5),
			Window:                 getEnvAsDuration("RATE_LIMIT_WINDOW", 15*time.Minute),
			Lockout:                getEnvAsDuration("RATE_LIMIT_LOCKOUT", 15*time.Minute),
			MaxIdentities:          getEnvAsInt("RATE_LIMIT_MAX_IDENTITIES", 10000),
			LoginRequestsPerMinute: getEnvAsInt("LOGIN_REQUESTS_PER_MINUTE", 20),
			FailureDelay:           time.Duration(getEnvAsInt("AUTH_FAILURE_DELAY_MS", 250)) * time.Millisecond,
			FailureJitter:          time.Duration(getEnvAsInt("AUTH_FAILURE_JITTER_MS", 250)) * time.Millisecond,
			Store:                  strings.ToLower(getEnv("ATTEMPT_STORE", StoreMemory)),
			CleanupInterval:        getEnvAsDuration("ATTEMPT_CLEANUP_INTERVAL", 5*time.Minute),
		},
	}

	switch cfg.RateLimit.Store {
	case StoreMemory:
	case StorePostgres:
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("DB_PASSWORD is required when ATTEMPT_STORE=postgres")
		}
	default:
		return nil, fmt.Errorf("ATTEMPT_STORE must be %q or %q (got %q)", StoreMemory, StorePostgres, cfg.RateLimit.Store)
	}

	if cfg.Session.Duration <= 0 {
		return nil, fmt.Errorf("SESSION_DURATION must be positive")
	}
	if cfg.RateLimit.MaxAttempts <= 0 {
		return nil, fmt.Errorf("RATE_LIMIT_MAX_ATTEMPTS must be positive")
	}

	return cfg, nil
}

// LoadDatabase loads only the database settings, for commands that do not
// serve traffic
func LoadDatabase() (*DatabaseConfig, error) {
	_ = godotenv.Load()

	cfg := loadDatabase()
	if cfg.Password == "" {
		return nil, fmt.Errorf("DB_PASSWORD is required")
	}
	return &cfg, nil
}

func loadDatabase() DatabaseConfig {
	return DatabaseConfig{
		Host:              getEnv("DB_HOST", "localhost"),
		Port:              getEnvAsInt("DB_PORT", 5432),
		User:              getEnv("DB_USER", "postgres"),
		Password:          getEnv("DB_PASSWORD", ""),
		Name:              getEnv("DB_NAME", "adminauth"),
		SSLMode:           getEnv("DB_SSLMODE", "disable"),
		MaxConns:          int32(getEnvAsInt("DB_MAX_CONNS", 10)),
		MinConns:          int32(getEnvAsInt("DB_MIN_CONNS", 1)),
		MaxConnLifetime:   getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
		MaxConnIdleTime:   getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		HealthCheckPeriod: getEnvAsDuration("DB_HEALTH_CHECK_PERIOD", 1*time.Minute),
		StatementTimeout:  getEnvAsDuration("DB_STATEMENT_TIMEOUT", 5*time.Second),
		LockTimeout:       getEnvAsDuration("DB_LOCK_TIMEOUT", 2*time.Second),
	}
}

// validateSessionSecret enforces minimum security standards for the cookie signing key
func validateSessionSecret(secret, env string) error {
	minLength := 16
	if env == "production" {
		minLength = 32 // 256 bits for HS256
	}

	if len(secret) < minLength {
		return fmt.Errorf("SESSION_SECRET must be at least %d characters in %s environment (got %d)",
			minLength, env, len(secret))
	}

	weakSecrets := []string{
		"secret", "test", "password", "12345", "changeme",
		"admin", "root", "default", "example",
	}

	secretLower := strings.ToLower(secret)
	for _, weak := range weakSecrets {
		if secretLower == weak || strings.Repeat(weak, len(secretLower)/len(weak)) == secretLower {
			return fmt.Errorf("SESSION_SECRET cannot be a common weak value")
		}
	}

	return nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

func getEnv(key, defaultVal string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultVal
}

func getEnvAsInt(key string, defaultVal int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultVal
}

// getEnvAsDuration accepts Go durations plus a whole-day suffix such as "7d"
func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultVal
	}

	if days, ok := strings.CutSuffix(value, "d"); ok {
		if n, err := strconv.Atoi(days); err == nil {
			return time.Duration(n) * 24 * time.Hour
		}
		return defaultVal
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}
	return defaultVal
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func parseAllowedOrigins(env string) []string {
	if origins := getEnvAsList("ALLOWED_ORIGINS"); origins != nil {
		return origins
	}
	if env == "production" {
		return []string{} // Default to no origins in production
	}

	// Development: allow localhost variants
	return []string{
		"http://localhost:3000",
		"http://localhost:4321", // Astro default
		"http://localhost:5173", // Vite default
		"http://127.0.0.1:3000",
		"http://127.0.0.1:4321",
		"http://127.0.0.1:5173",
	}
}
