package logger

import (
	"context"
	"log/slog"
	"time"
)

// Login audit event types
const (
	EventLoginSuccess  = "login_success"
	EventLoginFailed   = "login_failed"
	EventLoginHoneypot = "login_honeypot"
	EventLoginBlocked  = "login_blocked"
	EventIPBlocked     = "ip_blocked"
	EventRateLimited   = "login_rate_limited"
)

// AuditEvent represents a security audit event
type AuditEvent struct {
	EventType     string
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger provides audit logging functionality
type AuditLogger struct {
	logger *slog.Logger
	env    string
}

// NewAuditLogger creates a new audit logger. env controls redaction of
// attacker-supplied values (see RedactedAttr).
func NewAuditLogger(logger *slog.Logger, env string) *AuditLogger {
	return &AuditLogger{
		logger: logger,
		env:    env,
	}
}

// LogAuthAttempt logs authentication attempts
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("audit_type", "auth"),
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}
	if event.FailureReason != "" {
		attrs = append(attrs, slog.String("failure_reason", event.FailureReason))
	}
	for key, val := range event.Metadata {
		attrs = append(attrs, slog.String(key, val))
	}

	if event.Success {
		al.logger.LogAttrs(context.Background(), slog.LevelInfo, "audit", attrs...)
	} else {
		al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
	}
}

// LogHoneypot logs a submission that filled the hidden username field
func (al *AuditLogger) LogHoneypot(ipAddress, userAgent, username string) {
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit",
		slog.String("audit_type", "auth"),
		slog.String("event_type", EventLoginHoneypot),
		slog.Bool("success", false),
		slog.String("ip_address", ipAddress),
		slog.String("user_agent", userAgent),
		RedactedAttr("username", username, al.env),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	)
}

// LogAddressBlocked logs a block written after too many failures
func (al *AuditLogger) LogAddressBlocked(ipAddress, country string, failures int, until time.Time) {
	attrs := []slog.Attr{
		slog.String("audit_type", "block"),
		slog.String("event_type", EventIPBlocked),
		slog.String("ip_address", ipAddress),
		slog.Int("failed_attempts", failures),
		slog.String("blocked_until", until.UTC().Format(time.RFC3339)),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}
	if country != "" {
		attrs = append(attrs, slog.String("country", country))
	}
	al.logger.LogAttrs(context.Background(), slog.LevelWarn, "audit", attrs...)
}
