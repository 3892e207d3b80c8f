package auth

import (
	"net/http"
	"time"
)

// AuthTokenCookieName is the cookie carrying the bearer token
const AuthTokenCookieName = "auth_token"

// CookieConfig holds cookie configuration settings
type CookieConfig struct {
	Domain   string // Empty string = current host only
	Secure   bool   // HTTPS only
	SameSite string // "strict", "lax", or "none"
	MaxAge   int    // Seconds
}

// DefaultCookieConfig returns the host-only, strict, ten-year cookie the frontend expects
func DefaultCookieConfig(production bool) CookieConfig {
	return CookieConfig{
		Secure:   production,
		SameSite: "strict",
		MaxAge:   10 * 365 * 24 * 60 * 60,
	}
}

// SetAuthTokenCookie sets the auth token in an httpOnly cookie
func SetAuthTokenCookie(w http.ResponseWriter, token string, config CookieConfig) {
	cookie := &http.Cookie{
		Name:     AuthTokenCookieName,
		Value:    token,
		Path:     "/",
		Domain:   config.Domain,
		Expires:  time.Now().Add(time.Duration(config.MaxAge) * time.Second),
		MaxAge:   config.MaxAge,
		HttpOnly: true,
		Secure:   config.Secure,
		SameSite: parseSameSite(config.SameSite),
	}
	http.SetCookie(w, cookie)
}

// GetAuthTokenCookie retrieves the auth token from cookies.
// A present but empty cookie is reported as missing.
func GetAuthTokenCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(AuthTokenCookieName)
	if err != nil {
		return "", err
	}
	if cookie.Value == "" {
		return "", http.ErrNoCookie
	}
	return cookie.Value, nil
}

// parseSameSite converts string to http.SameSite constant
func parseSameSite(sameSite string) http.SameSite {
	switch sameSite {
	case "strict":
		return http.SameSiteStrictMode
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	default:
		return http.SameSiteDefaultMode
	}
}
