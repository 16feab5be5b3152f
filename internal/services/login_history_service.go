package services

import (
	"context"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/internal/repositories"
	"github.com/BradenHooton/warden/pkg/logger"
)

// LoginHistoryRepository persists failure streaks and runs the lockout
// transition inside a single transaction.
type LoginHistoryRepository interface {
	Log(ctx context.Context, userID int64, at time.Time) (*models.FailedLogin, error)
	WithinTransaction(ctx context.Context, fn func(repositories.FailedLoginWriter) error) error
}

// LockoutPolicy holds the lockout thresholds.
type LockoutPolicy struct {
	AllowedFailedAttempts int
	LockDuration          time.Duration
}

// LoginHistoryService tracks failed logins per credential and locks the
// credential when a streak exceeds the allowed attempts inside the lock window.
//
// Clean -> Flagged(n) -> Suspended. A lock lapses on its own once
// LockDuration has passed; there is no unlock operation.
type LoginHistoryService struct {
	repo    LoginHistoryRepository
	policy  LockoutPolicy
	now     func() time.Time
	logger  *slog.Logger
	audit   *logger.AuditLogger
	metrics *metrics.Metrics
}

// NewLoginHistoryService creates a new LoginHistoryService
func NewLoginHistoryService(
	repo LoginHistoryRepository,
	policy LockoutPolicy,
	logger *slog.Logger,
	audit *logger.AuditLogger,
	m *metrics.Metrics,
) *LoginHistoryService {
	return &LoginHistoryService{
		repo:    repo,
		policy:  policy,
		now:     time.Now,
		logger:  logger,
		audit:   audit,
		metrics: m,
	}
}

// Log records one failure for userID outside any lockout decision.
func (s *LoginHistoryService) Log(ctx context.Context, userID int64) (*models.FailedLogin, error) {
	return s.repo.Log(ctx, userID, s.now())
}

// ExceededLimit reports whether the streak is past the allowed attempts.
func (s *LoginHistoryService) ExceededLimit(record *models.FailedLogin) bool {
	return record.Attempts > s.policy.AllowedFailedAttempts
}

// Expired reports whether the streak started longer than LockDuration ago.
func (s *LoginHistoryService) Expired(record *models.FailedLogin) (bool, error) {
	return s.expiredAt(record, s.now())
}

func (s *LoginHistoryService) expiredAt(record *models.FailedLogin, now time.Time) (bool, error) {
	elapsed, err := elapsedSince(now, record.CreatedAt, "failed_login_expiry")
	if err != nil {
		return false, err
	}
	return elapsed > s.policy.LockDuration, nil
}

// Suspend counts a failure for userID and applies the lockout transition.
// The count, the counter reset and the lock commit together. Running it
// concurrently for the same user is safe.
func (s *LoginHistoryService) Suspend(ctx context.Context, userID int64) (models.SuspendResult, error) {
	now := s.now()

	var (
		result   models.SuspendResult
		attempts int
	)

	err := s.repo.WithinTransaction(ctx, func(w repositories.FailedLoginWriter) error {
		record, err := w.Log(ctx, userID, now)
		if err != nil {
			return err
		}
		attempts = record.Attempts

		if !s.ExceededLimit(record) {
			result = models.SuspendFlagged
			return nil
		}

		expired, err := s.expiredAt(record, now)
		if err != nil {
			return err
		}

		if err := w.Clear(ctx, userID); err != nil {
			return err
		}

		if expired {
			result = models.SuspendCleared
			return nil
		}

		if err := w.Lock(ctx, userID, now); err != nil {
			return err
		}
		result = models.SuspendLocked
		return nil
	})
	if err != nil {
		return models.SuspendFlagged, err
	}

	s.metrics.Lockout(result.String())
	if result != models.SuspendFlagged {
		s.logger.Warn("failed login limit exceeded",
			slog.Int64("user_id", userID),
			slog.Int("attempts", attempts),
			slog.String("result", result.String()),
		)
		s.audit.LogLockout(ctx, userID, result.String(), attempts)
	}

	return result, nil
}

// Suspended reports whether cred is inside an active lock window.
func (s *LoginHistoryService) Suspended(cred *models.Credential) (bool, error) {
	if cred.LockedAt == nil {
		return false, nil
	}

	elapsed, err := elapsedSince(s.now(), *cred.LockedAt, "credential_suspended")
	if err != nil {
		return false, err
	}
	return elapsed < s.policy.LockDuration, nil
}

// elapsedSince returns now - then, failing with a clock error when now is
// earlier than then.
func elapsedSince(now, then time.Time, operation string) (time.Duration, error) {
	if now.Before(then) {
		return 0, oops.Code(models.CodeClockSkew).
			With("operation", operation).
			With("now", now).
			With("stored", then).
			Wrap(models.ErrClock)
	}
	return now.Sub(then), nil
}
