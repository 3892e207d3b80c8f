package services_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/BradenHooton/tavern-gate/internal/auth"
	"github.com/BradenHooton/tavern-gate/internal/database"
	"github.com/BradenHooton/tavern-gate/internal/models"
	"github.com/BradenHooton/tavern-gate/internal/repositories"
	"github.com/BradenHooton/tavern-gate/internal/services"
	pkgauth "github.com/BradenHooton/tavern-gate/pkg/auth"
	pkglogger "github.com/BradenHooton/tavern-gate/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSQLiteGatekeeper(t *testing.T) (*services.GatekeeperService, *repositories.LoginAttemptRepository) {
	t.Helper()
	db := database.NewTestDB(t)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	attempts := repositories.NewLoginAttemptRepository(db)

	svc := services.NewGatekeeperService(
		db,
		attempts,
		repositories.NewBlockRepository(db),
		repositories.NewAuthTokenRepository(db),
		pkgauth.NewStaticPassphrase("dndforever"),
		auth.NoDelay(),
		nil,
		services.DefaultGatekeeperConfig(),
		logger,
		pkglogger.NewAuditLogger(logger, "test"),
	)
	return svc, attempts
}

func TestGatekeeper_SQLiteRoundTrip(t *testing.T) {
	svc, attempts := newSQLiteGatekeeper(t)
	ctx := context.Background()

	_, err := svc.Login(ctx, services.LoginInput{IPAddress: "203.0.113.10", Password: "wrong"})
	require.ErrorIs(t, err, models.ErrInvalidCredentials)

	result, err := svc.Login(ctx, services.LoginInput{IPAddress: "203.0.113.10", Password: "dndforever"})
	require.NoError(t, err)

	ok, err := svc.ValidateToken(ctx, result.Token)
	require.NoError(t, err)
	assert.True(t, ok)

	history, err := attempts.ListByIP(ctx, "203.0.113.10", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Success)
	assert.False(t, history[1].Success)
}

func TestGatekeeper_ConcurrentFailuresWriteOneBlock(t *testing.T) {
	svc, attempts := newSQLiteGatekeeper(t)
	ctx := context.Background()

	const workers = 10
	var (
		wg                          sync.WaitGroup
		mu                          sync.Mutex
		invalid, threshold, blocked int
	)

	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Login(ctx, services.LoginInput{IPAddress: "203.0.113.10", Password: "wrong"})

			mu.Lock()
			defer mu.Unlock()
			var be *models.BlockedError
			switch {
			case errors.Is(err, models.ErrInvalidCredentials):
				invalid++
			case errors.As(err, &be) && be.Reason == models.BlockReasonThreshold:
				threshold++
			case errors.As(err, &be):
				blocked++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 4, invalid)
	assert.Equal(t, 1, threshold)
	assert.Equal(t, workers-5, blocked)

	history, err := attempts.ListByIP(ctx, "203.0.113.10", 100)
	require.NoError(t, err)
	assert.Len(t, history, 5)
}
