package background

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// ExpiredBlockDeleter removes blocks whose expiry has passed
type ExpiredBlockDeleter interface {
	DeleteExpired(ctx context.Context, now int64) (int64, error)
}

// StaleTokenDeleter removes tokens issued before a cutoff
type StaleTokenDeleter interface {
	DeleteCreatedBefore(ctx context.Context, cutoff int64) (int64, error)
}

// CleanupManager periodically sweeps expired blocks and, when tokens have a
// TTL, stale tokens. Login attempts are never deleted.
type CleanupManager struct {
	blocks   ExpiredBlockDeleter
	tokens   StaleTokenDeleter
	tokenTTL time.Duration
	logger   *slog.Logger
	interval time.Duration
	now      func() time.Time
	stopCh   chan struct{}
	stopOnce sync.Once
}

// NewCleanupManager creates a new cleanup manager. tokens may be nil when
// tokenTTL is zero.
func NewCleanupManager(
	blocks ExpiredBlockDeleter,
	tokens StaleTokenDeleter,
	tokenTTL time.Duration,
	logger *slog.Logger,
	interval time.Duration,
) *CleanupManager {
	return &CleanupManager{
		blocks:   blocks,
		tokens:   tokens,
		tokenTTL: tokenTTL,
		logger:   logger,
		interval: interval,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic cleanup task
func (cm *CleanupManager) Start(ctx context.Context) {
	ticker := time.NewTicker(cm.interval)
	defer ticker.Stop()

	// Run immediately on startup
	cm.runCleanup(ctx)

	for {
		select {
		case <-ticker.C:
			cm.runCleanup(ctx)
		case <-cm.stopCh:
			cm.logger.Info("cleanup manager stopped")
			return
		case <-ctx.Done():
			cm.logger.Info("cleanup manager context cancelled")
			return
		}
	}
}

// runCleanup runs one sweep
func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	now := cm.now()

	rowsDeleted, err := cm.blocks.DeleteExpired(cleanupCtx, now.Unix())
	if err != nil {
		cm.logger.Error("failed to cleanup expired blocks", slog.Any("error", err))
	} else if rowsDeleted > 0 {
		cm.logger.Info("expired block cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}

	if cm.tokenTTL <= 0 || cm.tokens == nil {
		return
	}

	rowsDeleted, err = cm.tokens.DeleteCreatedBefore(cleanupCtx, now.Add(-cm.tokenTTL).Unix())
	if err != nil {
		cm.logger.Error("failed to cleanup stale tokens", slog.Any("error", err))
		return
	}
	if rowsDeleted > 0 {
		cm.logger.Info("stale token cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
