package services

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"
	"time"

	"github.com/BradenHooton/tavern-gate/internal/auth"
	"github.com/BradenHooton/tavern-gate/internal/models"
	pkgauth "github.com/BradenHooton/tavern-gate/pkg/auth"
	"github.com/BradenHooton/tavern-gate/pkg/geoip"
	pkglogger "github.com/BradenHooton/tavern-gate/pkg/logger"
)

// Transactor runs fn inside one storage transaction bound to the context
type Transactor interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// LoginAttemptRepository defines the interface for the attempt log
type LoginAttemptRepository interface {
	RecordAttempt(ctx context.Context, attempt *models.LoginAttempt) (int64, error)
	CountFailedSince(ctx context.Context, ipAddress string, since int64) (int, error)
	MarkSucceeded(ctx context.Context, id int64) error
}

// BlockRepository defines the interface for block records
type BlockRepository interface {
	GetByIP(ctx context.Context, ipAddress string) (*models.Block, error)
	Upsert(ctx context.Context, block *models.Block) error
	Delete(ctx context.Context, ipAddress string) error
}

// TokenRepository defines the interface for issued tokens
type TokenRepository interface {
	Create(ctx context.Context, token *models.AuthToken) error
	Exists(ctx context.Context, token string, notBefore int64) (bool, error)
}

// GatekeeperConfig holds the login policy
type GatekeeperConfig struct {
	MaxFailedAttempts int
	FailureWindow     time.Duration
	BlockDuration     time.Duration
	TokenTTL          time.Duration // 0 = tokens never expire
}

// DefaultGatekeeperConfig returns five failures per hour and a one week block
func DefaultGatekeeperConfig() GatekeeperConfig {
	return GatekeeperConfig{
		MaxFailedAttempts: 5,
		FailureWindow:     time.Hour,
		BlockDuration:     7 * 24 * time.Hour,
	}
}

// LoginInput is one submission of the login form
type LoginInput struct {
	IPAddress string
	Username  string // hidden honeypot field; humans leave it empty
	Password  string
	UserAgent string
}

// LoginResult is returned on a successful login
type LoginResult struct {
	Token string
}

// GatekeeperService decides login outcomes and validates issued tokens
type GatekeeperService struct {
	tx          Transactor
	attempts    LoginAttemptRepository
	blocks      BlockRepository
	tokens      TokenRepository
	verifier    pkgauth.PassphraseVerifier
	timing      *auth.TimingDelay
	notifier    BlockNotifier
	locator     geoip.Locator
	cfg         GatekeeperConfig
	logger      *slog.Logger
	auditLogger *pkglogger.AuditLogger
	now         func() time.Time
	newToken    func() (string, error)

	alerts       sync.WaitGroup
	alertTimeout time.Duration
}

// defaultAlertTimeout bounds one block alert delivery
const defaultAlertTimeout = 10 * time.Second

// NewGatekeeperService creates a new GatekeeperService
func NewGatekeeperService(
	tx Transactor,
	attempts LoginAttemptRepository,
	blocks BlockRepository,
	tokens TokenRepository,
	verifier pkgauth.PassphraseVerifier,
	timing *auth.TimingDelay,
	notifier BlockNotifier,
	cfg GatekeeperConfig,
	logger *slog.Logger,
	auditLogger *pkglogger.AuditLogger,
) *GatekeeperService {
	if timing == nil {
		timing = auth.NoDelay()
	}
	if notifier == nil {
		notifier = NoopBlockNotifier{}
	}
	return &GatekeeperService{
		tx:           tx,
		attempts:     attempts,
		blocks:       blocks,
		tokens:       tokens,
		verifier:     verifier,
		timing:       timing,
		notifier:     notifier,
		locator:      geoip.NoopLocator{},
		cfg:          cfg,
		logger:       logger,
		auditLogger:  auditLogger,
		now:          time.Now,
		newToken:     auth.GenerateToken,
		alertTimeout: defaultAlertTimeout,
	}
}

// SetClock replaces the time source
func (s *GatekeeperService) SetClock(now func() time.Time) {
	s.now = now
}

// SetLocator enables country lookups for block alerts
func (s *GatekeeperService) SetLocator(locator geoip.Locator) {
	if locator == nil {
		locator = geoip.NoopLocator{}
	}
	s.locator = locator
}

// loginOutcome is what one evaluation decided, before it is reported
type loginOutcome struct {
	result   *LoginResult
	err      error // ErrInvalidCredentials or *BlockedError
	honeypot bool
	failures int
}

// Login evaluates one submission. Every read and write for the request happens
// in a single transaction; a storage error rolls it back and is reported as
// models.ErrInternalServer. Rejections are padded by the timing delay.
func (s *GatekeeperService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	start := time.Now()
	now := s.now()

	var out loginOutcome
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		out, err = s.evaluate(ctx, in, now)
		return err
	})
	if err != nil {
		s.logger.Error("login evaluation failed",
			slog.String("ip_address", in.IPAddress),
			slog.Any("error", err))
		s.timing.WaitFrom(start, false)
		return nil, models.ErrInternalServer
	}

	s.report(ctx, in, out)

	if out.err != nil {
		s.timing.WaitFrom(start, false)
		return nil, out.err
	}
	s.timing.WaitFrom(start, true)
	return out.result, nil
}

func (s *GatekeeperService) evaluate(ctx context.Context, in LoginInput, now time.Time) (loginOutcome, error) {
	// Block gate
	block, err := s.blocks.GetByIP(ctx, in.IPAddress)
	switch {
	case err == nil && block.Active(now):
		return loginOutcome{err: &models.BlockedError{Until: block.Until(), Reason: models.BlockReasonActive}}, nil
	case err == nil:
		if err := s.blocks.Delete(ctx, in.IPAddress); err != nil {
			return loginOutcome{}, err
		}
	case !errors.Is(err, models.ErrNotFound):
		return loginOutcome{}, err
	}

	attempt := &models.LoginAttempt{
		IPAddress: in.IPAddress,
		Username:  in.Username,
		Password:  in.Password,
		Timestamp: now.Unix(),
	}

	// Honeypot gate: logged as a failure, threshold left for later requests
	if in.Username != "" {
		if _, err := s.attempts.RecordAttempt(ctx, attempt); err != nil {
			return loginOutcome{}, err
		}
		return loginOutcome{err: models.ErrInvalidCredentials, honeypot: true}, nil
	}

	attemptID, err := s.attempts.RecordAttempt(ctx, attempt)
	if err != nil {
		return loginOutcome{}, err
	}

	since := now.Add(-s.cfg.FailureWindow).Unix()
	failures, err := s.attempts.CountFailedSince(ctx, in.IPAddress, since)
	if err != nil {
		return loginOutcome{}, err
	}

	if failures >= s.cfg.MaxFailedAttempts {
		until := now.Add(s.cfg.BlockDuration)
		if err := s.blocks.Upsert(ctx, &models.Block{IPAddress: in.IPAddress, BlockedUntil: until.Unix()}); err != nil {
			return loginOutcome{}, err
		}
		return loginOutcome{
			err:      &models.BlockedError{Until: time.Unix(until.Unix(), 0).UTC(), Reason: models.BlockReasonThreshold},
			failures: failures,
		}, nil
	}

	if !s.verifier.Verify(in.Password) {
		return loginOutcome{err: models.ErrInvalidCredentials, failures: failures}, nil
	}

	token, err := s.newToken()
	if err != nil {
		return loginOutcome{}, err
	}
	if err := s.tokens.Create(ctx, &models.AuthToken{Token: token, CreatedAt: now.Unix()}); err != nil {
		return loginOutcome{}, err
	}
	if err := s.attempts.MarkSucceeded(ctx, attemptID); err != nil {
		return loginOutcome{}, err
	}

	return loginOutcome{result: &LoginResult{Token: token}}, nil
}

// report writes the audit trail and block alerts for a committed outcome
func (s *GatekeeperService) report(ctx context.Context, in LoginInput, out loginOutcome) {
	if out.honeypot {
		s.auditLogger.LogHoneypot(in.IPAddress, in.UserAgent, in.Username)
		return
	}

	var blocked *models.BlockedError
	switch {
	case out.err == nil:
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType: pkglogger.EventLoginSuccess,
			IPAddress: in.IPAddress,
			UserAgent: in.UserAgent,
			Success:   true,
		})
		s.logger.Debug("token issued", slog.String("token", pkglogger.MaskedToken(out.result.Token)))

	case errors.As(out.err, &blocked):
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginBlocked,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: blocked.Reason.String(),
		})
		if blocked.Reason != models.BlockReasonThreshold {
			return
		}
		alert := BlockAlert{
			IPAddress: in.IPAddress,
			Country:   s.locator.CountryCode(in.IPAddress),
			Failures:  out.failures,
			Until:     blocked.Until,
		}
		s.auditLogger.LogAddressBlocked(alert.IPAddress, alert.Country, alert.Failures, alert.Until)
		s.sendAlert(ctx, alert)

	default:
		s.auditLogger.LogAuthAttempt(pkglogger.AuditEvent{
			EventType:     pkglogger.EventLoginFailed,
			IPAddress:     in.IPAddress,
			UserAgent:     in.UserAgent,
			FailureReason: "invalid_passphrase",
			Metadata:      map[string]string{"failed_attempts": strconv.Itoa(out.failures)},
		})
	}
}

// sendAlert delivers alert off the request path. The alert outlives the
// request context but not alertTimeout.
func (s *GatekeeperService) sendAlert(ctx context.Context, alert BlockAlert) {
	s.alerts.Add(1)
	go func() {
		defer s.alerts.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.alertTimeout)
		defer cancel()

		if err := s.notifier.NotifyBlocked(ctx, alert); err != nil {
			s.logger.Error("failed to send block alert",
				slog.String("ip_address", alert.IPAddress),
				slog.Any("error", err))
		}
	}()
}

// WaitForAlerts blocks until every pending block alert has been sent or
// has failed
func (s *GatekeeperService) WaitForAlerts() {
	s.alerts.Wait()
}

// ValidateToken reports whether token was issued (and, with a TTL, is still
// fresh). It never writes.
func (s *GatekeeperService) ValidateToken(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}

	var notBefore int64
	if s.cfg.TokenTTL > 0 {
		notBefore = s.now().Add(-s.cfg.TokenTTL).Unix()
	}

	ok, err := s.tokens.Exists(ctx, token, notBefore)
	if err != nil {
		s.logger.Error("failed to look up token",
			slog.String("token", pkglogger.MaskedToken(token)),
			slog.Any("error", err))
		return false, models.ErrInternalServer
	}
	return ok, nil
}
