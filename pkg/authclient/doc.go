// Package authclient lets another service gate its routes on the login
// gatekeeper. It forwards the caller's auth_token cookie to
// GET /api/auth/validate and admits the request only on {"valid": true}.
package authclient
