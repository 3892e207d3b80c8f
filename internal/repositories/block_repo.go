package repositories

import (
	"context"

	"github.com/BradenHooton/tavern-gate/internal/database"
	"github.com/BradenHooton/tavern-gate/internal/models"
)

// BlockRepository handles database operations for blocked source addresses
type BlockRepository struct {
	db *database.DB
}

// NewBlockRepository creates a new BlockRepository
func NewBlockRepository(db *database.DB) *BlockRepository {
	return &BlockRepository{db: db}
}

// GetByIP returns the block record for an address, or models.ErrNotFound
func (r *BlockRepository) GetByIP(ctx context.Context, ipAddress string) (*models.Block, error) {
	query := `SELECT ip_address, blocked_until FROM blocked_ips WHERE ip_address = ?`

	block := &models.Block{}
	err := r.db.QueryRow(ctx, query, ipAddress).Scan(&block.IPAddress, &block.BlockedUntil)
	if err != nil {
		return nil, database.MapError(err)
	}

	return block, nil
}

// Upsert writes the block, replacing any existing record for the address
func (r *BlockRepository) Upsert(ctx context.Context, block *models.Block) error {
	query := `
		INSERT INTO blocked_ips (ip_address, blocked_until)
		VALUES (?, ?)
		ON CONFLICT (ip_address) DO UPDATE SET blocked_until = excluded.blocked_until
	`

	_, err := r.db.Exec(ctx, query, block.IPAddress, block.BlockedUntil)
	return database.MapError(err)
}

// Delete removes the block for an address. Deleting a missing block is not an error.
func (r *BlockRepository) Delete(ctx context.Context, ipAddress string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM blocked_ips WHERE ip_address = ?`, ipAddress)
	return database.MapError(err)
}

// DeleteExpired removes blocks whose expiry is at or before now
func (r *BlockRepository) DeleteExpired(ctx context.Context, now int64) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM blocked_ips WHERE blocked_until <= ?`, now)
	if err != nil {
		return 0, database.MapError(err)
	}

	return result.RowsAffected()
}
