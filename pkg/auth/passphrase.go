package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// BcryptCost is the default cost for operator-generated passphrase hashes
	BcryptCost = 12

	// MaxPassphraseLen bounds submitted secrets; bcrypt ignores bytes past 72
	MaxPassphraseLen = 1024
)

// PassphraseVerifier checks a submitted secret against the shared table passphrase
type PassphraseVerifier interface {
	Verify(secret string) bool
}

// StaticPassphrase compares against a plaintext passphrase held in memory.
// Both sides are hashed first so the comparison time does not depend on length.
type StaticPassphrase struct {
	digest [sha256.Size]byte
}

// NewStaticPassphrase creates a verifier for a plaintext passphrase
func NewStaticPassphrase(passphrase string) *StaticPassphrase {
	return &StaticPassphrase{digest: sha256.Sum256([]byte(passphrase))}
}

func (p *StaticPassphrase) Verify(secret string) bool {
	candidate := sha256.Sum256([]byte(secret))
	return subtle.ConstantTimeCompare(p.digest[:], candidate[:]) == 1
}

// BcryptPassphrase compares against a bcrypt hash
type BcryptPassphrase struct {
	hash []byte
}

// NewBcryptPassphrase creates a verifier from a bcrypt hash produced by HashPassphrase
func NewBcryptPassphrase(hash string) (*BcryptPassphrase, error) {
	hash = strings.TrimSpace(hash)
	if _, err := bcrypt.Cost([]byte(hash)); err != nil {
		return nil, fmt.Errorf("invalid bcrypt passphrase hash: %w", err)
	}
	return &BcryptPassphrase{hash: []byte(hash)}, nil
}

func (p *BcryptPassphrase) Verify(secret string) bool {
	if len(secret) > MaxPassphraseLen {
		return false
	}
	return bcrypt.CompareHashAndPassword(p.hash, []byte(secret)) == nil
}

// NewPassphraseVerifier prefers a bcrypt hash when one is configured
func NewPassphraseVerifier(passphrase, hash string) (PassphraseVerifier, error) {
	if hash != "" {
		return NewBcryptPassphrase(hash)
	}
	if passphrase == "" {
		return nil, fmt.Errorf("passphrase cannot be empty")
	}
	return NewStaticPassphrase(passphrase), nil
}

// HashPassphrase produces a bcrypt hash suitable for LOGIN_PASSPHRASE_HASH
func HashPassphrase(passphrase string, cost int) (string, error) {
	if passphrase == "" {
		return "", fmt.Errorf("passphrase cannot be empty")
	}
	if len(passphrase) > 72 {
		return "", fmt.Errorf("passphrase must be at most 72 bytes for bcrypt")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(passphrase), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash passphrase: %w", err)
	}
	return string(hashed), nil
}
