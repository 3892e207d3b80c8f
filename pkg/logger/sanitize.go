package logger

import (
	"log/slog"
	"strconv"
	"strings"
)

// MaskedToken shortens a bearer token for logging (e.g., "3fa9c1…(64)")
func MaskedToken(token string) string {
	if token == "" {
		return "[empty]"
	}
	if len(token) <= 8 {
		return strings.Repeat("*", len(token))
	}
	return token[:6] + "…(" + strconv.Itoa(len(token)) + ")"
}

// RedactedAttr returns a redacted slog attribute for sensitive values
// In production, returns "[REDACTED]"; in development, returns the actual value
func RedactedAttr(key, value, env string) slog.Attr {
	if env == "production" {
		return slog.String(key, "[REDACTED]")
	}
	return slog.String(key, value)
}

// SanitizeQueryString checks if query string contains sensitive parameters
// and returns true if the entire query string should be redacted
func SanitizeQueryString(rawQuery string) bool {
	sensitiveParams := []string{
		"password",
		"passphrase",
		"token",
		"secret",
		"auth",
		"username",
	}

	query := strings.ToLower(rawQuery)
	for _, param := range sensitiveParams {
		if strings.Contains(query, param) {
			return true
		}
	}
	return false
}
