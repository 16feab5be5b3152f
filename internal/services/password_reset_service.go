package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/warden/internal/auth"
	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	"github.com/BradenHooton/warden/pkg/errutil"
	"github.com/BradenHooton/warden/pkg/logger"
)

// PasswordResetRepository stores reset tickets by id. Redeem writes the new
// hash and drops the user's tickets atomically, returning nil when the
// credential is gone.
type PasswordResetRepository interface {
	Create(ctx context.Context, req *models.PasswordResetRequest) error
	GetByID(ctx context.Context, id string) (*models.PasswordResetRequest, error)
	Redeem(ctx context.Context, userID int64, hash string) (*models.Credential, error)
}

// ResetMailer delivers a reset ticket to its owner.
type ResetMailer interface {
	SendPasswordReset(ctx context.Context, ticket *models.ResetTicket, expiresAt time.Time) error
}

// mailTimeout bounds one delivery attempt, which outlives the request.
const mailTimeout = 30 * time.Second

// PasswordResetService issues one-time reset tickets and redeems them.
type PasswordResetService struct {
	mailWG  sync.WaitGroup
	resets  PasswordResetRepository
	creds   CredentialRepository
	hasher  PasswordHasher
	mailer  ResetMailer
	timing  *auth.TimingDelay
	period  time.Duration
	now     func() time.Time
	logger  *slog.Logger
	audit   *logger.AuditLogger
	metrics *metrics.Metrics
}

// PasswordResetConfig holds the reset window and response padding.
type PasswordResetConfig struct {
	TimePeriod      time.Duration
	MinResponseTime time.Duration
}

// NewPasswordResetService creates a new PasswordResetService. mailer may be nil.
func NewPasswordResetService(
	resets PasswordResetRepository,
	creds CredentialRepository,
	hasher PasswordHasher,
	mailer ResetMailer,
	cfg PasswordResetConfig,
	logger *slog.Logger,
	audit *logger.AuditLogger,
	m *metrics.Metrics,
) *PasswordResetService {
	var timing *auth.TimingDelay
	if cfg.MinResponseTime > 0 {
		timing = auth.NewTimingDelay(cfg.MinResponseTime, cfg.MinResponseTime/5)
	}

	return &PasswordResetService{
		resets:  resets,
		creds:   creds,
		hasher:  hasher,
		mailer:  mailer,
		timing:  timing,
		period:  cfg.TimePeriod,
		now:     time.Now,
		logger:  logger,
		audit:   audit,
		metrics: m,
	}
}

// Generate issues a reset ticket for the credential holding email and returns
// it. The plaintext token exists only in the returned ticket and the mail;
// the store keeps its hash. An unknown email yields nil, nil after the same
// padded delay, so callers cannot tell the cases apart by timing.
func (s *PasswordResetService) Generate(ctx context.Context, email string) (*models.ResetTicket, error) {
	start := time.Now()
	defer s.timing.WaitFrom(ctx, start)

	cred, err := s.creds.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		// same hashing work as the found path
		if _, err := s.hasher.Hash(ctx, email); err != nil {
			return nil, err
		}
		s.metrics.Outcome(OpResetRequest, models.OutcomeNotFound.String())
		s.audit.Log(ctx, logger.AuditEvent{
			EventType: logger.EventResetRequested,
			Email:     email,
			Outcome:   models.OutcomeNotFound.String(),
		})
		return nil, nil
	}

	id, err := pkgauth.GenerateToken()
	if err != nil {
		return nil, err
	}
	token, err := pkgauth.GenerateToken()
	if err != nil {
		return nil, err
	}

	tokenHash, err := s.hasher.Hash(ctx, token)
	if err != nil {
		return nil, err
	}

	req := &models.PasswordResetRequest{
		ID:        id,
		UserID:    cred.ID,
		TokenHash: tokenHash,
		Name:      cred.Name,
		Email:     cred.Email,
		CreatedAt: s.now(),
	}
	if err := s.resets.Create(ctx, req); err != nil {
		return nil, err
	}

	ticket := &models.ResetTicket{ID: id, Token: token, Name: cred.Name, Email: cred.Email}

	if s.mailer != nil {
		s.deliver(ctx, ticket, req.CreatedAt.Add(s.period))
	}

	s.metrics.Outcome(OpResetRequest, models.OutcomeSuccess.String())
	s.audit.Log(ctx, logger.AuditEvent{
		EventType: logger.EventResetRequested,
		UserID:    cred.ID,
		Email:     cred.Email,
		Outcome:   models.OutcomeSuccess.String(),
		Success:   true,
	})

	return ticket, nil
}

// deliver sends the ticket off the request path. Failures are logged only.
func (s *PasswordResetService) deliver(ctx context.Context, ticket *models.ResetTicket, expiresAt time.Time) {
	s.mailWG.Add(1)
	go func() {
		defer s.mailWG.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()

		if err := s.mailer.SendPasswordReset(ctx, ticket, expiresAt); err != nil {
			errutil.LogError(s.logger, "failed to deliver password reset", err)
		}
	}()
}

// Wait blocks until every mail handed off by Generate has been attempted.
func (s *PasswordResetService) Wait() {
	s.mailWG.Wait()
}

// GetByID looks up a stored reset request.
func (s *PasswordResetService) GetByID(ctx context.Context, id string) (*models.PasswordResetRequest, error) {
	return s.resets.GetByID(ctx, id)
}

// Reset redeems a ticket. Checks run in a fixed order: NotFound, Expired,
// WeakPassword, InvalidToken. Only then is the new hash written. A redeemed
// ticket, and any other ticket of the same user, is removed.
func (s *PasswordResetService) Reset(ctx context.Context, confirm models.ResetConfirmation) (models.ResetResult, error) {
	req, err := s.resets.GetByID(ctx, confirm.ID)
	if err != nil {
		return models.ResetResult{}, err
	}
	if req == nil {
		return s.resetOutcome(ctx, nil, models.ResetResult{Outcome: models.OutcomeNotFound}), nil
	}

	elapsed, err := elapsedSince(s.now(), req.CreatedAt, "password_reset_expiry")
	if err != nil {
		return models.ResetResult{}, err
	}
	if elapsed > s.period {
		return s.resetOutcome(ctx, req, models.ResetResult{Outcome: models.OutcomeExpired}), nil
	}

	strength := pkgauth.EvaluateStrength(req.Name, req.Email, confirm.Password)
	if strength.Weak() {
		return s.resetOutcome(ctx, req, models.ResetResult{Outcome: models.OutcomeWeakPassword, Issues: strength.Issues}), nil
	}

	ok, err := s.hasher.Verify(ctx, confirm.Token, req.TokenHash)
	if err != nil {
		return models.ResetResult{}, err
	}
	if !ok {
		return s.resetOutcome(ctx, req, models.ResetResult{Outcome: models.OutcomeInvalidToken}), nil
	}

	hash, err := s.hasher.Hash(ctx, confirm.Password)
	if err != nil {
		return models.ResetResult{}, err
	}

	cred, err := s.resets.Redeem(ctx, req.UserID, hash)
	if err != nil {
		return models.ResetResult{}, err
	}
	if cred == nil {
		return s.resetOutcome(ctx, req, models.ResetResult{Outcome: models.OutcomeNotFound}), nil
	}

	return s.resetOutcome(ctx, req, models.ResetResult{Outcome: models.OutcomeSuccess, Credential: cred}), nil
}

func (s *PasswordResetService) resetOutcome(ctx context.Context, req *models.PasswordResetRequest, result models.ResetResult) models.ResetResult {
	event := logger.AuditEvent{
		EventType: logger.EventResetCompleted,
		Outcome:   result.Outcome.String(),
		Success:   result.Outcome == models.OutcomeSuccess,
	}
	if req != nil {
		event.UserID = req.UserID
		event.Email = req.Email
	}

	s.metrics.Outcome(OpResetConfirm, result.Outcome.String())
	s.audit.Log(ctx, event)
	return result
}
