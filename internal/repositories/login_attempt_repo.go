package repositories

import (
	"context"

	"github.com/BradenHooton/tavern-gate/internal/database"
	"github.com/BradenHooton/tavern-gate/internal/models"
)

// LoginAttemptRepository handles database operations for login attempts
type LoginAttemptRepository struct {
	db *database.DB
}

// NewLoginAttemptRepository creates a new LoginAttemptRepository
func NewLoginAttemptRepository(db *database.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

// RecordAttempt appends a failed attempt and returns its id. Attempts start
// out failed; MarkSucceeded flips the one that authenticated.
func (r *LoginAttemptRepository) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) (int64, error) {
	query := `
		INSERT INTO login_attempts (ip_address, username, password, attempted_at, success)
		VALUES (?, ?, ?, ?, FALSE)
		RETURNING id
	`

	var id int64
	err := r.db.QueryRow(ctx, query,
		attempt.IPAddress,
		attempt.Username,
		attempt.Password,
		attempt.Timestamp,
	).Scan(&id)
	if err != nil {
		return 0, database.MapError(err)
	}

	attempt.ID = id
	return id, nil
}

// CountFailedSince returns the number of failed attempts from an address strictly after since
func (r *LoginAttemptRepository) CountFailedSince(ctx context.Context, ipAddress string, since int64) (int, error) {
	query := `
		SELECT COUNT(*) FROM login_attempts
		WHERE ip_address = ? AND success = FALSE AND attempted_at > ?
	`

	var count int
	err := r.db.QueryRow(ctx, query, ipAddress, since).Scan(&count)
	return count, database.MapError(err)
}

// MarkSucceeded flips a recorded attempt to success
func (r *LoginAttemptRepository) MarkSucceeded(ctx context.Context, id int64) error {
	query := `UPDATE login_attempts SET success = TRUE WHERE id = ?`

	result, err := r.db.Exec(ctx, query, id)
	if err != nil {
		return database.MapError(err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return models.ErrNotFound
	}
	return nil
}

// ListByIP returns the attempts from an address, newest first
func (r *LoginAttemptRepository) ListByIP(ctx context.Context, ipAddress string, limit int) ([]*models.LoginAttempt, error) {
	query := `
		SELECT id, ip_address, username, password, attempted_at, success
		FROM login_attempts
		WHERE ip_address = ?
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := r.db.Query(ctx, query, ipAddress, limit)
	if err != nil {
		return nil, database.MapError(err)
	}
	defer rows.Close()

	var attempts []*models.LoginAttempt
	for rows.Next() {
		a := &models.LoginAttempt{}
		if err := rows.Scan(&a.ID, &a.IPAddress, &a.Username, &a.Password, &a.Timestamp, &a.Success); err != nil {
			return nil, err
		}
		attempts = append(attempts, a)
	}

	return attempts, rows.Err()
}
