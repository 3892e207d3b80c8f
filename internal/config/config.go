package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DefaultPassphrase is the shared table passphrase used when none is configured.
const DefaultPassphrase = "dndforever"

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	RateLimitScopeGlobal = "global"
	RateLimitScopeIP     = "ip"
)

type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Auth     AuthConfig
	Alert    AlertConfig
}

type DatabaseConfig struct {
	Driver          string
	SQLitePath      string
	Host            string
	Port            int
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxConns        int
	MinConns        int
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
}

type ServerConfig struct {
	Port           string
	Env            string
	LogLevel       string
	FrontendURL    string
	TrustedProxies []string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
}

type AuthConfig struct {
	Passphrase          string
	PassphraseHash      string
	MaxFailedAttempts   int
	FailureWindow       time.Duration
	BlockDuration       time.Duration
	RateLimitRequests   int
	RateLimitWindow     time.Duration
	RateLimitScope      string
	TokenTTL            time.Duration
	CookieMaxAge        int
	CleanupInterval     time.Duration
	TimingDelayBaseMs   int
	TimingDelayRandomMs int
}

type AlertConfig struct {
	EmailTo   string
	EmailFrom string
	AWSRegion string
	// GeoIPDBPath points at a MaxMind country database; empty disables lookups
	GeoIPDBPath string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	env := getEnv("ENV", getEnv("NODE_ENV", "development"))

	cfg := &Config{
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", DriverSQLite)),
			SQLitePath:      getEnv("SQLITE_PATH", "auth.sqlite"),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvAsInt("DB_PORT", 5432),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", ""),
			Name:            getEnv("DB_NAME", "tavern_gate"),
			SSLMode:         getEnv("DB_SSLMODE", "disable"),
			MaxConns:        getEnvAsInt("DB_MAX_CONNS", 10),
			MinConns:        getEnvAsInt("DB_MIN_CONNS", 2),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 5*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 1*time.Minute),
		},
		Server: ServerConfig{
			Port:           getEnv("PORT", "3002"),
			Env:            env,
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			FrontendURL:    getEnv("FRONTEND_URL", "http://localhost:3000"),
			TrustedProxies: getEnvAsList("TRUSTED_PROXIES"),
			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:    getEnvAsDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Auth: AuthConfig{
			Passphrase:          getEnv("LOGIN_PASSPHRASE", DefaultPassphrase),
			PassphraseHash:      getEnv("LOGIN_PASSPHRASE_HASH", ""),
			MaxFailedAttempts:   getEnvAsInt("MAX_FAILED_ATTEMPTS", 5),
			FailureWindow:       getEnvAsDuration("FAILURE_WINDOW", 1*time.Hour),
			BlockDuration:       getEnvAsDuration("BLOCK_DURATION", 7*24*time.Hour),
			RateLimitRequests:   getEnvAsInt("RATE_LIMIT_REQUESTS", 5),
			RateLimitWindow:     getEnvAsDuration("RATE_LIMIT_WINDOW", 10*time.Second),
			RateLimitScope:      strings.ToLower(getEnv("RATE_LIMIT_SCOPE", RateLimitScopeGlobal)),
			TokenTTL:            getEnvAsDuration("TOKEN_TTL", 0),
			CookieMaxAge:        getEnvAsInt("COOKIE_MAX_AGE", 10*365*24*60*60),
			CleanupInterval:     getEnvAsDuration("CLEANUP_INTERVAL", 1*time.Hour),
			TimingDelayBaseMs:   getEnvAsInt("TIMING_DELAY_BASE_MS", 200),
			TimingDelayRandomMs: getEnvAsInt("TIMING_DELAY_RANDOM_MS", 100),
		},
		Alert: AlertConfig{
			EmailTo:     getEnv("ALERT_EMAIL_TO", ""),
			EmailFrom:   getEnv("ALERT_EMAIL_FROM", ""),
			AWSRegion:   getEnv("AWS_REGION", "us-east-1"),
			GeoIPDBPath: getEnv("GEOIP_DB_PATH", ""),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Database.Driver {
	case DriverSQLite:
		if c.Database.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite driver")
		}
	case DriverPostgres:
		if c.Database.Password == "" {
			return fmt.Errorf("DB_PASSWORD is required for the postgres driver")
		}
	default:
		return fmt.Errorf("DB_DRIVER must be %q or %q (got %q)", DriverSQLite, DriverPostgres, c.Database.Driver)
	}

	switch c.Auth.RateLimitScope {
	case RateLimitScopeGlobal, RateLimitScopeIP:
	default:
		return fmt.Errorf("RATE_LIMIT_SCOPE must be %q or %q (got %q)", RateLimitScopeGlobal, RateLimitScopeIP, c.Auth.RateLimitScope)
	}

	if c.Auth.MaxFailedAttempts < 1 {
		return fmt.Errorf("MAX_FAILED_ATTEMPTS must be at least 1")
	}
	if c.Auth.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}

	if c.Auth.PassphraseHash == "" && c.Auth.Passphrase == "" {
		return fmt.Errorf("LOGIN_PASSPHRASE or LOGIN_PASSPHRASE_HASH is required")
	}

	// Refuse to ship the well-known default to production unless asked to
	if c.IsProduction() && c.Auth.PassphraseHash == "" && c.Auth.Passphrase == DefaultPassphrase &&
		getEnv("ALLOW_DEFAULT_PASSPHRASE", "") != "true" {
		return fmt.Errorf("LOGIN_PASSPHRASE must be changed from the default in production (or set ALLOW_DEFAULT_PASSPHRASE=true)")
	}

	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Server.Env == "production"
}

// AlertsEnabled reports whether block alerts should be emailed.
func (c *Config) AlertsEnabled() bool {
	return c.Alert.EmailTo != "" && c.Alert.EmailFrom != ""
}

func (c *DatabaseConfig) DSN() string {
	if c.Driver == DriverSQLite {
		return "file:" + c.SQLitePath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
	}
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

func getEnvAsDuration(key string, defaultVal time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
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
