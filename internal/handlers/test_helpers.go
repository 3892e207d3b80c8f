package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/tavern-gate/internal/services"
	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) *pkghttp.ErrorResponse {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error message mismatch")
	return &resp
}

// MockGatekeeperService implements GatekeeperServiceInterface for testing
type MockGatekeeperService struct {
	LoginFunc         func(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	ValidateTokenFunc func(ctx context.Context, token string) (bool, error)

	LastLogin *services.LoginInput
}

func (m *MockGatekeeperService) Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error) {
	m.LastLogin = &in
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, in)
	}
	return &services.LoginResult{Token: "mock-token"}, nil
}

func (m *MockGatekeeperService) ValidateToken(ctx context.Context, token string) (bool, error) {
	if m.ValidateTokenFunc != nil {
		return m.ValidateTokenFunc(ctx, token)
	}
	return false, nil
}

// MockHealthChecker implements HealthChecker for testing
type MockHealthChecker struct {
	Err       error
	PoolStats sql.DBStats
}

func (m *MockHealthChecker) HealthCheck(ctx context.Context) error {
	return m.Err
}

func (m *MockHealthChecker) Stats() sql.DBStats {
	return m.PoolStats
}
