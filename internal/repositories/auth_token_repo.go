package repositories

import (
	"context"

	"github.com/BradenHooton/tavern-gate/internal/database"
	"github.com/BradenHooton/tavern-gate/internal/models"
)

type AuthTokenRepository struct {
	db *database.DB
}

func NewAuthTokenRepository(db *database.DB) *AuthTokenRepository {
	return &AuthTokenRepository{db: db}
}

// Create persists a newly issued token
func (r *AuthTokenRepository) Create(ctx context.Context, token *models.AuthToken) error {
	query := `INSERT INTO auth_tokens (token, created_at) VALUES (?, ?)`

	_, err := r.db.Exec(ctx, query, token.Token, token.CreatedAt)
	return database.MapError(err)
}

// Exists reports whether the token was issued at or after notBefore.
// Pass 0 to accept any issue time.
func (r *AuthTokenRepository) Exists(ctx context.Context, token string, notBefore int64) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM auth_tokens WHERE token = ? AND created_at >= ?)`

	var exists bool
	err := r.db.QueryRow(ctx, query, token, notBefore).Scan(&exists)
	if err != nil {
		return false, database.MapError(err)
	}

	return exists, nil
}

// DeleteCreatedBefore removes tokens issued before cutoff (call periodically when tokens expire)
func (r *AuthTokenRepository) DeleteCreatedBefore(ctx context.Context, cutoff int64) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM auth_tokens WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, database.MapError(err)
	}

	return result.RowsAffected()
}
