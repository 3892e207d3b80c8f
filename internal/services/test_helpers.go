package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"github.com/BradenHooton/tavern-gate/internal/models"
	pkglogger "github.com/BradenHooton/tavern-gate/pkg/logger"
)

var errStorage = errors.New("storage unavailable")

// memStore is an in-memory Transactor and repository set. A transaction
// snapshots the state and restores it when fn fails.
type memStore struct {
	mu       sync.Mutex
	attempts []*models.LoginAttempt
	blocks   map[string]int64
	tokens   map[string]int64

	// failOn names a method that returns errStorage
	failOn string
	// reads counts repository calls, writes counts mutations
	reads, writes int
	commits       int
	rollbacks     int
}

func newMemStore() *memStore {
	return &memStore{
		blocks: make(map[string]int64),
		tokens: make(map[string]int64),
	}
}

func (m *memStore) fail(method string) error {
	if m.failOn == method {
		return errStorage
	}
	return nil
}

func (m *memStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	attempts := make([]*models.LoginAttempt, len(m.attempts))
	for i, a := range m.attempts {
		cp := *a
		attempts[i] = &cp
	}
	blocks := maps.Clone(m.blocks)
	tokens := maps.Clone(m.tokens)
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.attempts, m.blocks, m.tokens = attempts, blocks, tokens
		m.rollbacks++
		m.mu.Unlock()
		return err
	}
	m.mu.Lock()
	m.commits++
	m.mu.Unlock()
	return nil
}

func (m *memStore) RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("RecordAttempt"); err != nil {
		return 0, err
	}
	m.writes++
	cp := *attempt
	cp.ID = int64(len(m.attempts) + 1)
	cp.Success = false
	m.attempts = append(m.attempts, &cp)
	attempt.ID = cp.ID
	return cp.ID, nil
}

func (m *memStore) CountFailedSince(ctx context.Context, ipAddress string, since int64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("CountFailedSince"); err != nil {
		return 0, err
	}
	m.reads++
	n := 0
	for _, a := range m.attempts {
		if a.IPAddress == ipAddress && !a.Success && a.Timestamp > since {
			n++
		}
	}
	return n, nil
}

func (m *memStore) MarkSucceeded(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("MarkSucceeded"); err != nil {
		return err
	}
	m.writes++
	for _, a := range m.attempts {
		if a.ID == id {
			a.Success = true
			return nil
		}
	}
	return models.ErrNotFound
}

func (m *memStore) GetByIP(ctx context.Context, ipAddress string) (*models.Block, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("GetByIP"); err != nil {
		return nil, err
	}
	m.reads++
	until, ok := m.blocks[ipAddress]
	if !ok {
		return nil, models.ErrNotFound
	}
	return &models.Block{IPAddress: ipAddress, BlockedUntil: until}, nil
}

func (m *memStore) Upsert(ctx context.Context, block *models.Block) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Upsert"); err != nil {
		return err
	}
	m.writes++
	m.blocks[block.IPAddress] = block.BlockedUntil
	return nil
}

func (m *memStore) Delete(ctx context.Context, ipAddress string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Delete"); err != nil {
		return err
	}
	m.writes++
	delete(m.blocks, ipAddress)
	return nil
}

func (m *memStore) Create(ctx context.Context, token *models.AuthToken) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Create"); err != nil {
		return err
	}
	m.writes++
	if _, exists := m.tokens[token.Token]; exists {
		return models.ErrConflict
	}
	m.tokens[token.Token] = token.CreatedAt
	return nil
}

func (m *memStore) Exists(ctx context.Context, token string, notBefore int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.fail("Exists"); err != nil {
		return false, err
	}
	m.reads++
	createdAt, ok := m.tokens[token]
	return ok && createdAt >= notBefore, nil
}

func (m *memStore) attemptsFor(ip string) []*models.LoginAttempt {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.DeleteFunc(slices.Clone(m.attempts), func(a *models.LoginAttempt) bool {
		return a.IPAddress != ip
	})
}

func (m *memStore) tokenCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.tokens)
}

// MockBlockNotifier implements BlockNotifier for testing
type MockBlockNotifier struct {
	NotifyBlockedFunc func(ctx context.Context, alert BlockAlert) error
	Calls             []string
	Alerts            []BlockAlert
	mu                sync.Mutex
}

func (m *MockBlockNotifier) NotifyBlocked(ctx context.Context, alert BlockAlert) error {
	m.mu.Lock()
	m.Calls = append(m.Calls, alert.IPAddress)
	m.Alerts = append(m.Alerts, alert)
	m.mu.Unlock()
	if m.NotifyBlockedFunc != nil {
		return m.NotifyBlockedFunc(ctx, alert)
	}
	return nil
}

// staticLocator resolves every address to one country
type staticLocator string

func (l staticLocator) CountryCode(string) string { return string(l) }

// staticVerifier accepts exactly one secret
type staticVerifier string

func (v staticVerifier) Verify(secret string) bool { return secret == string(v) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func discardAuditLogger() *pkglogger.AuditLogger {
	return pkglogger.NewAuditLogger(discardLogger(), "test")
}
