package models

// AuthToken is an opaque bearer credential issued after a successful login.
// Validity is row existence; CreatedAt is unix seconds.
type AuthToken struct {
	Token     string `db:"token"`
	CreatedAt int64  `db:"created_at"`
}
