package models

import "time"

// Block denies service to a source address until BlockedUntil (unix seconds).
type Block struct {
	IPAddress    string `db:"ip_address"`
	BlockedUntil int64  `db:"blocked_until"`
}

// Active reports whether the block is still in force at now.
func (b *Block) Active(now time.Time) bool {
	return b.BlockedUntil > now.Unix()
}

// Until returns the expiry as a time.Time.
func (b *Block) Until() time.Time {
	return time.Unix(b.BlockedUntil, 0).UTC()
}
