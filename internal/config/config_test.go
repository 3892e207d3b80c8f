package config

import (
	"os"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	os.Clearenv()
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.Port != "3002" {
		t.Errorf("Port: got %q, want %q", cfg.Server.Port, "3002")
	}
	if cfg.Server.FrontendURL != "http://localhost:3000" {
		t.Errorf("FrontendURL: got %q", cfg.Server.FrontendURL)
	}
	if cfg.Database.Driver != DriverSQLite {
		t.Errorf("Driver: got %q, want %q", cfg.Database.Driver, DriverSQLite)
	}
	if cfg.Auth.RateLimitScope != RateLimitScopeGlobal {
		t.Errorf("RateLimitScope: got %q, want %q", cfg.Auth.RateLimitScope, RateLimitScopeGlobal)
	}
	if cfg.Auth.CookieMaxAge != 315360000 {
		t.Errorf("CookieMaxAge: got %d, want 315360000", cfg.Auth.CookieMaxAge)
	}
	if cfg.IsProduction() {
		t.Error("IsProduction: got true for default env")
	}
	if cfg.Alert.GeoIPDBPath != "" {
		t.Errorf("GeoIPDBPath: got %q, want empty", cfg.Alert.GeoIPDBPath)
	}

	tests := []struct {
		name     string
		actual   time.Duration
		expected time.Duration
	}{
		{"FailureWindow", cfg.Auth.FailureWindow, time.Hour},
		{"BlockDuration", cfg.Auth.BlockDuration, 7 * 24 * time.Hour},
		{"RateLimitWindow", cfg.Auth.RateLimitWindow, 10 * time.Second},
		{"TokenTTL", cfg.Auth.TokenTTL, 0},
		{"ReadTimeout", cfg.Server.ReadTimeout, 15 * time.Second},
		{"WriteTimeout", cfg.Server.WriteTimeout, 15 * time.Second},
		{"IdleTimeout", cfg.Server.IdleTimeout, 60 * time.Second},
	}

	for _, tt := range tests {
		if tt.actual != tt.expected {
			t.Errorf("%s: got %v, want %v", tt.name, tt.actual, tt.expected)
		}
	}
}

func TestLoad_CustomValues(t *testing.T) {
	os.Clearenv()
	os.Setenv("PORT", "4000")
	os.Setenv("FRONTEND_URL", "https://tavern.example.com")
	os.Setenv("RATE_LIMIT_SCOPE", "IP")
	os.Setenv("MAX_FAILED_ATTEMPTS", "3")
	os.Setenv("BLOCK_DURATION", "24h")
	os.Setenv("TRUSTED_PROXIES", "10.0.0.0/8, 127.0.0.1/32,")
	os.Setenv("GEOIP_DB_PATH", "/data/GeoLite2-Country.mmdb")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}

	if cfg.Server.Port != "4000" {
		t.Errorf("Port: got %q", cfg.Server.Port)
	}
	if cfg.Auth.RateLimitScope != RateLimitScopeIP {
		t.Errorf("RateLimitScope: got %q", cfg.Auth.RateLimitScope)
	}
	if cfg.Auth.MaxFailedAttempts != 3 {
		t.Errorf("MaxFailedAttempts: got %d", cfg.Auth.MaxFailedAttempts)
	}
	if cfg.Auth.BlockDuration != 24*time.Hour {
		t.Errorf("BlockDuration: got %v", cfg.Auth.BlockDuration)
	}
	if cfg.Alert.GeoIPDBPath != "/data/GeoLite2-Country.mmdb" {
		t.Errorf("GeoIPDBPath: got %q", cfg.Alert.GeoIPDBPath)
	}
	if len(cfg.Server.TrustedProxies) != 2 || cfg.Server.TrustedProxies[1] != "127.0.0.1/32" {
		t.Errorf("TrustedProxies: got %v", cfg.Server.TrustedProxies)
	}
}

func TestLoad_InvalidDurationFallsBack(t *testing.T) {
	os.Clearenv()
	os.Setenv("FAILURE_WINDOW", "not-a-duration")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if cfg.Auth.FailureWindow != time.Hour {
		t.Errorf("FailureWindow: got %v, want fallback 1h", cfg.Auth.FailureWindow)
	}
}

func TestLoad_NodeEnvSelectsProduction(t *testing.T) {
	os.Clearenv()
	os.Setenv("NODE_ENV", "production")
	os.Setenv("LOGIN_PASSPHRASE", "a-much-better-passphrase")
	defer os.Clearenv()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
	if !cfg.IsProduction() {
		t.Error("expected NODE_ENV=production to select production mode")
	}
}

func TestLoad_RejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unknown driver", map[string]string{"DB_DRIVER": "mysql"}},
		{"postgres without password", map[string]string{"DB_DRIVER": "postgres"}},
		{"unknown rate limit scope", map[string]string{"RATE_LIMIT_SCOPE": "user"}},
		{"zero failure threshold", map[string]string{"MAX_FAILED_ATTEMPTS": "0"}},
		{"default passphrase in production", map[string]string{"ENV": "production"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			os.Clearenv()
			for k, v := range tt.env {
				os.Setenv(k, v)
			}
			defer os.Clearenv()

			if _, err := Load(); err == nil {
				t.Fatal("Load() = nil, want error")
			}
		})
	}
}

func TestLoad_DefaultPassphraseAllowedInProductionWhenOptedIn(t *testing.T) {
	os.Clearenv()
	os.Setenv("ENV", "production")
	os.Setenv("ALLOW_DEFAULT_PASSPHRASE", "true")
	defer os.Clearenv()

	if _, err := Load(); err != nil {
		t.Fatalf("Load() = %v, want nil", err)
	}
}

func TestDatabaseConfig_DSN(t *testing.T) {
	sqlite := DatabaseConfig{Driver: DriverSQLite, SQLitePath: "/data/auth.sqlite"}
	if got := sqlite.DSN(); got != "file:/data/auth.sqlite?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)" {
		t.Errorf("sqlite DSN: got %q", got)
	}

	pg := DatabaseConfig{Driver: DriverPostgres, Host: "db", Port: 5432, User: "u", Password: "p", Name: "n", SSLMode: "disable"}
	if got := pg.DSN(); got != "host=db port=5432 user=u password=p dbname=n sslmode=disable" {
		t.Errorf("postgres DSN: got %q", got)
	}
}
