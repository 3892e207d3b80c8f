package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/BradenHooton/tavern-gate/internal/auth"
	"github.com/BradenHooton/tavern-gate/internal/models"
	"github.com/BradenHooton/tavern-gate/internal/services"
	pkghttp "github.com/BradenHooton/tavern-gate/pkg/http"
)

// Client-facing messages
const (
	msgInvalidCredentials = "Invalid credentials"
	msgActiveBlock        = "IP is blocked"
	msgThresholdBlock     = "Too many failed attempts. IP blocked for 1 week."
	msgInternalError      = "Internal server error"
)

// maxLoginBodyBytes caps the login body; a passphrase is far smaller
const maxLoginBodyBytes = 16 << 10

// GatekeeperServiceInterface defines the interface for login decisions
type GatekeeperServiceInterface interface {
	Login(ctx context.Context, in services.LoginInput) (*services.LoginResult, error)
	ValidateToken(ctx context.Context, token string) (bool, error)
}

// AuthHandler handles the login and validate endpoints
type AuthHandler struct {
	service      GatekeeperServiceInterface
	ipConfig     *pkghttp.IPConfig
	cookieConfig auth.CookieConfig
	frontendURL  string
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service GatekeeperServiceInterface, ipConfig *pkghttp.IPConfig, cookieConfig auth.CookieConfig, frontendURL string) *AuthHandler {
	return &AuthHandler{
		service:      service,
		ipConfig:     ipConfig,
		cookieConfig: cookieConfig,
		frontendURL:  frontendURL,
	}
}

// LoginRequest represents the request body for login. Both keys must be
// present; username is the hidden honeypot field and is normally empty.
type LoginRequest struct {
	Username *string `json:"username" validate:"required"`
	Password *string `json:"password" validate:"required,max=1024"`
}

// LoginResponse is the body of a successful login
type LoginResponse struct {
	Success     bool   `json:"success"`
	FrontendURL string `json:"frontendUrl"`
}

// ValidateResponse is the body of a validate reply
type ValidateResponse struct {
	Valid bool `json:"valid"`
}

// Login handles a passphrase submission
// @Summary Shared passphrase login
// @Accept json
// @Param request body LoginRequest true "Login request"
// @Produce json
// @Success 200 {object} LoginResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxLoginBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return
	}

	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return
	}

	in := services.LoginInput{
		IPAddress: pkghttp.ExtractClientIP(r, h.ipConfig),
		Username:  *req.Username,
		Password:  *req.Password,
		UserAgent: r.UserAgent(),
	}

	result, err := h.service.Login(r.Context(), in)
	if err != nil {
		var blocked *models.BlockedError
		switch {
		case errors.As(err, &blocked):
			msg := msgActiveBlock
			if blocked.Reason == models.BlockReasonThreshold {
				msg = msgThresholdBlock
			}
			pkghttp.WriteBlocked(w, msg, blocked.Until)
		case errors.Is(err, models.ErrInvalidCredentials):
			pkghttp.WriteUnauthorized(w, msgInvalidCredentials)
		default:
			pkghttp.WriteInternalError(w, msgInternalError)
		}
		return
	}

	auth.SetAuthTokenCookie(w, result.Token, h.cookieConfig)
	pkghttp.WriteJSON(w, http.StatusOK, LoginResponse{
		Success:     true,
		FrontendURL: h.frontendURL,
	})
}

// Validate reports whether the request's auth_token cookie names an issued token
// @Summary Validate session cookie
// @Produce json
// @Success 200 {object} ValidateResponse
// @Failure 401 {object} ValidateResponse
// @Failure 500 {object} pkghttp.ErrorResponse
// @Router /api/auth/validate [get]
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	token, err := auth.GetAuthTokenCookie(r)
	if err != nil {
		pkghttp.WriteJSON(w, http.StatusUnauthorized, ValidateResponse{Valid: false})
		return
	}

	ok, err := h.service.ValidateToken(r.Context(), token)
	if err != nil {
		pkghttp.WriteInternalError(w, msgInternalError)
		return
	}
	if !ok {
		pkghttp.WriteJSON(w, http.StatusUnauthorized, ValidateResponse{Valid: false})
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, ValidateResponse{Valid: true})
}
