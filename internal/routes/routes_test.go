package routes_test

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/tavern-gate/internal/auth"
	"github.com/BradenHooton/tavern-gate/internal/config"
	"github.com/BradenHooton/tavern-gate/internal/database"
	"github.com/BradenHooton/tavern-gate/internal/handlers"
	"github.com/BradenHooton/tavern-gate/internal/middleware"
	"github.com/BradenHooton/tavern-gate/internal/repositories"
	"github.com/BradenHooton/tavern-gate/internal/routes"
	"github.com/BradenHooton/tavern-gate/internal/services"
	pkgauth "github.com/BradenHooton/tavern-gate/pkg/auth"
	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
	pkglogger "github.com/BradenHooton/tavern-gate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const frontendURL = "http://localhost:3000"

func newTestServer(t *testing.T, rateLimit middleware.RateLimitConfig) *httptest.Server {
	t.Helper()

	db := database.NewTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger, "test")
	ipConfig, _ := pkghttp.NewIPConfig(nil)
	rateLimit.IPConfig = ipConfig

	gatekeeper := services.NewGatekeeperService(
		db,
		repositories.NewLoginAttemptRepository(db),
		repositories.NewBlockRepository(db),
		repositories.NewAuthTokenRepository(db),
		pkgauth.NewStaticPassphrase(config.DefaultPassphrase),
		auth.NoDelay(),
		nil,
		services.DefaultGatekeeperConfig(),
		logger,
		auditLogger,
	)

	router := routes.NewRouter(routes.RouterConfig{
		AuthHandler: handlers.NewAuthHandler(gatekeeper, ipConfig, auth.DefaultCookieConfig(false), frontendURL),
		Health:      db,
		Logger:      logger,
		AuditLogger: auditLogger,
		IPConfig:    ipConfig,
		RateLimit:   rateLimit,
		CORS:        middleware.DefaultCORSConfig(frontendURL),
		Env:         "test",
	})

	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func unlimited() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{Requests: 1000, Window: 10 * time.Second, Scope: config.RateLimitScopeGlobal}
}

func postLogin(t *testing.T, srv *httptest.Server, username, password string) *http.Response {
	t.Helper()
	body, err := json.Marshal(map[string]string{"username": username, "password": password})
	require.NoError(t, err)

	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", strings.NewReader(string(body)))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func authCookie(resp *http.Response) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == auth.AuthTokenCookieName {
			return c
		}
	}
	return nil
}

func validate(t *testing.T, srv *httptest.Server, token string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, srv.URL+"/api/auth/validate", nil)
	require.NoError(t, err)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: auth.AuthTokenCookieName, Value: token})
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestScenario_LoginThenValidate(t *testing.T) {
	srv := newTestServer(t, unlimited())

	resp := postLogin(t, srv, "", config.DefaultPassphrase)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, frontendURL, body["frontendUrl"])

	cookie := authCookie(resp)
	require.NotNil(t, cookie)
	assert.Len(t, cookie.Value, 64)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)

	v := validate(t, srv, cookie.Value)
	assert.Equal(t, http.StatusOK, v.StatusCode)
	assert.Equal(t, map[string]any{"valid": true}, decode(t, v))

	v = validate(t, srv, "not-a-token")
	assert.Equal(t, http.StatusUnauthorized, v.StatusCode)
	assert.Equal(t, map[string]any{"valid": false}, decode(t, v))

	v = validate(t, srv, "")
	assert.Equal(t, http.StatusUnauthorized, v.StatusCode)
}

func TestScenario_FiveFailuresBlockForAWeek(t *testing.T) {
	srv := newTestServer(t, unlimited())

	for i := 0; i < 4; i++ {
		resp := postLogin(t, srv, "", "wrong")
		require.Equal(t, http.StatusUnauthorized, resp.StatusCode, "attempt %d", i+1)
		assert.Equal(t, "Invalid credentials", decode(t, resp)["error"])
	}

	resp := postLogin(t, srv, "", "wrong")
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	body := decode(t, resp)
	assert.Equal(t, "Too many failed attempts. IP blocked for 1 week.", body["error"])

	resp = postLogin(t, srv, "", config.DefaultPassphrase)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Nil(t, authCookie(resp))
	body = decode(t, resp)
	assert.Equal(t, "IP is blocked", body["error"])

	until, err := time.Parse(time.RFC3339, body["blockedUntil"].(string))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), until, time.Minute)
	assert.True(t, strings.HasSuffix(body["blockedUntil"].(string), "Z"))
}

func TestScenario_HoneypotNeverIssuesCookie(t *testing.T) {
	srv := newTestServer(t, unlimited())

	resp := postLogin(t, srv, "robot", config.DefaultPassphrase)

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "Invalid credentials", decode(t, resp)["error"])
	assert.Nil(t, authCookie(resp))
}

func TestScenario_RapidFireIsRateLimited(t *testing.T) {
	srv := newTestServer(t, middleware.DefaultLoginRateLimit())

	limited := 0
	for i := 0; i < 6; i++ {
		resp := postLogin(t, srv, "", "wrong")
		if resp.StatusCode == http.StatusTooManyRequests {
			limited++
			assert.Equal(t, "Too many login attempts. Please wait.", decode(t, resp)["error"])
		}
	}
	assert.GreaterOrEqual(t, limited, 1)
}

func TestValidateIsNotRateLimited(t *testing.T) {
	srv := newTestServer(t, middleware.DefaultLoginRateLimit())

	for i := 0; i < 10; i++ {
		assert.Equal(t, http.StatusUnauthorized, validate(t, srv, "unknown").StatusCode)
	}
}

func TestMissingFieldsRejected(t *testing.T) {
	srv := newTestServer(t, unlimited())

	resp, err := http.Post(srv.URL+"/api/auth/login", "application/json", strings.NewReader(`{"password":"dndforever"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestHealthAndUnknownRoutes(t *testing.T) {
	srv := newTestServer(t, unlimited())

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp2, err := http.Get(srv.URL + "/nope")
	require.NoError(t, err)
	defer resp2.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp2.StatusCode)
}
