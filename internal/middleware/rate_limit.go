package middleware

import (
	"net/http"
	"time"

	"github.com/BradenHooton/tavern-gate/internal/config"
	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
	pkglogger "github.com/BradenHooton/tavern-gate/pkg/logger"
	"github.com/go-chi/httprate"
)

// RateLimitMessage is the 429 body for the login endpoint
const RateLimitMessage = "Too many login attempts. Please wait."

// globalKey is the single bucket shared by every caller in global scope
const globalKey = "login"

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
	Scope    string // config.RateLimitScopeGlobal or config.RateLimitScopeIP
	IPConfig *pkghttp.IPConfig
}

// DefaultLoginRateLimit returns 5 requests per 10 seconds shared by all callers
func DefaultLoginRateLimit() RateLimitConfig {
	return RateLimitConfig{
		Requests: 5,
		Window:   10 * time.Second,
		Scope:    config.RateLimitScopeGlobal,
	}
}

// LoginRateLimit creates a middleware that rejects excess login requests
// before they reach the gatekeeper, so a limited request changes no state.
// At most cfg.Requests requests are admitted in any rolling cfg.Window.
func LoginRateLimit(cfg RateLimitConfig, auditLogger *pkglogger.AuditLogger) func(next http.Handler) http.Handler {
	return loginRateLimit(cfg, auditLogger, newSlidingLog(cfg.Window))
}

func loginRateLimit(cfg RateLimitConfig, auditLogger *pkglogger.AuditLogger, counter *slidingLog) func(next http.Handler) http.Handler {
	keyFunc := func(r *http.Request) (string, error) {
		return globalKey, nil
	}
	if cfg.Scope == config.RateLimitScopeIP {
		keyFunc = func(r *http.Request) (string, error) {
			return pkghttp.ExtractClientIP(r, cfg.IPConfig), nil
		}
	}

	return httprate.Limit(
		cfg.Requests,
		cfg.Window,
		httprate.WithKeyFuncs(keyFunc),
		httprate.WithLimitCounter(counter),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if auditLogger != nil {
				auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
					EventType:     pkglogger.EventRateLimited,
					IPAddress:     pkghttp.ExtractClientIP(r, cfg.IPConfig),
					UserAgent:     r.UserAgent(),
					FailureReason: "rate_limited",
				})
			}
			pkghttp.WriteTooManyRequests(w, RateLimitMessage)
		}),
	)
}
