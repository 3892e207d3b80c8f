package models

// LoginAttempt is one row of the append-only attempt log.
// Timestamp is seconds since the Unix epoch.
type LoginAttempt struct {
	ID        int64  `db:"id"`
	IPAddress string `db:"ip_address"`
	Username  string `db:"username"`
	Password  string `db:"password"`
	Timestamp int64  `db:"attempted_at"`
	Success   bool   `db:"success"`
}
