package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestSecureLogger_RedactsSensitiveQuery(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	handler := SecureLogger(logger, nil)(okHandler())

	req := httptest.NewRequest("GET", "/api/auth/validate?token=abcdef", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	out := buf.String()
	if strings.Contains(out, "abcdef") {
		t.Errorf("token leaked into log: %s", out)
	}
	if !strings.Contains(out, `"path":"/api/auth/validate?[REDACTED]"`) {
		t.Errorf("expected redacted path: %s", out)
	}
}

func TestSecureLogger_LogsStatus(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})

	SecureLogger(logger, nil)(next).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/health", nil))

	out := buf.String()
	if !strings.Contains(out, `"status":500`) || !strings.Contains(out, `"level":"ERROR"`) {
		t.Errorf("unexpected log line: %s", out)
	}
}
