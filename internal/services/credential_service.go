package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/BradenHooton/warden/internal/metrics"
	"github.com/BradenHooton/warden/internal/models"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
	"github.com/BradenHooton/warden/pkg/logger"
)

// CredentialRepository is the persistence contract for credential records.
// Lookups return nil, nil when no live record matches.
type CredentialRepository interface {
	GetByName(ctx context.Context, name string) (*models.Credential, error)
	GetByEmail(ctx context.Context, email string) (*models.Credential, error)
	GetStatus(ctx context.Context, name, email string) (models.CredentialStatus, error)
	Create(ctx context.Context, name, email, hash string) (*models.Credential, error)
	Update(ctx context.Context, cred *models.Credential) (*models.Credential, error)
	MarkDeletedByEmail(ctx context.Context, email string) (int64, error)
}

// PasswordHasher hashes and verifies passwords off the request goroutine.
type PasswordHasher interface {
	Hash(ctx context.Context, password string) (string, error)
	Verify(ctx context.Context, password, encoded string) (bool, error)
}

// Lockout is the part of the login history the coordinator drives.
type Lockout interface {
	Suspend(ctx context.Context, userID int64) (models.SuspendResult, error)
	Suspended(cred *models.Credential) (bool, error)
}

// TokenIssuer signs bearer tokens for authenticated credentials.
type TokenIssuer interface {
	Issue(cred *models.Credential) (string, error)
}

// Operation labels used in metrics and audit events.
const (
	OpCreate       = "create"
	OpUpdate       = "update"
	OpDelete       = "delete"
	OpAuthenticate = "authenticate"
	OpResetRequest = "reset_request"
	OpResetConfirm = "reset_confirm"
)

// CredentialService coordinates credential creation, update, deletion and
// authentication. Every failed password check feeds the lockout.
type CredentialService struct {
	creds   CredentialRepository
	hasher  PasswordHasher
	lockout Lockout
	tokens  TokenIssuer
	logger  *slog.Logger
	audit   *logger.AuditLogger
	metrics *metrics.Metrics
}

// NewCredentialService creates a new CredentialService
func NewCredentialService(
	creds CredentialRepository,
	hasher PasswordHasher,
	lockout Lockout,
	tokens TokenIssuer,
	logger *slog.Logger,
	audit *logger.AuditLogger,
	m *metrics.Metrics,
) *CredentialService {
	return &CredentialService{
		creds:   creds,
		hasher:  hasher,
		lockout: lockout,
		tokens:  tokens,
		logger:  logger,
		audit:   audit,
		metrics: m,
	}
}

// Create registers a new credential. Weak passwords and names or emails held
// by any record, deleted ones included, are refused.
func (s *CredentialService) Create(ctx context.Context, req models.CreateRequest) (models.CreateResult, error) {
	strength := pkgauth.EvaluateStrength(req.Name, req.Email, req.Password)
	if strength.Weak() {
		s.record(ctx, OpCreate, logger.EventCredentialCreate, 0, req.Email, models.OutcomeWeakPassword)
		return models.CreateResult{Outcome: models.OutcomeWeakPassword, Issues: strength.Issues}, nil
	}

	status, err := s.creds.GetStatus(ctx, req.Name, req.Email)
	if err != nil {
		return models.CreateResult{}, err
	}
	if status != models.StatusNone {
		s.logger.Info("registration refused, credential already present",
			slog.String("status", status.String()),
			slog.String("email", logger.MaskEmail(req.Email)),
		)
		s.record(ctx, OpCreate, logger.EventCredentialCreate, 0, req.Email, models.OutcomeConflict)
		return models.CreateResult{Outcome: models.OutcomeConflict}, nil
	}

	hash, err := s.hasher.Hash(ctx, req.Password)
	if err != nil {
		return models.CreateResult{}, err
	}

	cred, err := s.creds.Create(ctx, req.Name, req.Email, hash)
	if err != nil {
		// lost a race with a concurrent registration
		if errors.Is(err, models.ErrConflict) {
			s.record(ctx, OpCreate, logger.EventCredentialCreate, 0, req.Email, models.OutcomeConflict)
			return models.CreateResult{Outcome: models.OutcomeConflict}, nil
		}
		return models.CreateResult{}, err
	}

	s.record(ctx, OpCreate, logger.EventCredentialCreate, cred.ID, cred.Email, models.OutcomeSuccess)
	return models.CreateResult{Outcome: models.OutcomeSuccess, Credential: cred}, nil
}

// Update authenticates req.Auth and applies the non-nil fields of req.Changes.
// A changed password is strength-checked and re-hashed. On success a fresh
// bearer token is issued for the updated record.
func (s *CredentialService) Update(ctx context.Context, req models.UpdateRequest) (models.UpdateResult, error) {
	cred, outcome, err := s.authenticate(ctx, OpUpdate, logger.EventCredentialUpdate, req.Auth)
	if err != nil {
		return models.UpdateResult{}, err
	}
	if outcome != models.OutcomeSuccess {
		return models.UpdateResult{Outcome: outcome}, nil
	}

	updated := *cred
	if req.Changes.Name != nil {
		updated.Name = *req.Changes.Name
	}
	if req.Changes.Email != nil {
		updated.Email = *req.Changes.Email
	}

	// a changed identity must not be held by any record, deleted ones included
	var newName, newEmail string
	if updated.Name != cred.Name {
		newName = updated.Name
	}
	if updated.Email != cred.Email {
		newEmail = updated.Email
	}
	if newName != "" || newEmail != "" {
		status, err := s.creds.GetStatus(ctx, newName, newEmail)
		if err != nil {
			return models.UpdateResult{}, err
		}
		if status != models.StatusNone {
			s.record(ctx, OpUpdate, logger.EventCredentialUpdate, cred.ID, cred.Email, models.OutcomeConflict)
			return models.UpdateResult{Outcome: models.OutcomeConflict}, nil
		}
	}

	if req.Changes.Password != nil {
		strength := pkgauth.EvaluateStrength(updated.Name, updated.Email, *req.Changes.Password)
		if strength.Weak() {
			s.record(ctx, OpUpdate, logger.EventCredentialUpdate, cred.ID, cred.Email, models.OutcomeWeakPassword)
			return models.UpdateResult{Outcome: models.OutcomeWeakPassword, Issues: strength.Issues}, nil
		}

		hash, err := s.hasher.Hash(ctx, *req.Changes.Password)
		if err != nil {
			return models.UpdateResult{}, err
		}
		updated.Hash = hash
	}

	saved, err := s.creds.Update(ctx, &updated)
	if err != nil {
		if errors.Is(err, models.ErrConflict) {
			s.record(ctx, OpUpdate, logger.EventCredentialUpdate, cred.ID, cred.Email, models.OutcomeConflict)
			return models.UpdateResult{Outcome: models.OutcomeConflict}, nil
		}
		return models.UpdateResult{}, err
	}
	if saved == nil {
		// deleted between lookup and write
		s.record(ctx, OpUpdate, logger.EventCredentialUpdate, cred.ID, cred.Email, models.OutcomeNotFound)
		return models.UpdateResult{Outcome: models.OutcomeNotFound}, nil
	}

	token, err := s.tokens.Issue(saved)
	if err != nil {
		return models.UpdateResult{}, err
	}

	s.record(ctx, OpUpdate, logger.EventCredentialUpdate, saved.ID, saved.Email, models.OutcomeSuccess)
	return models.UpdateResult{Outcome: models.OutcomeSuccess, Credential: saved, Token: token}, nil
}

// Delete authenticates and soft-deletes the credential.
func (s *CredentialService) Delete(ctx context.Context, auth models.EmailAuth) (models.DeleteResult, error) {
	cred, outcome, err := s.authenticate(ctx, OpDelete, logger.EventCredentialDelete, auth)
	if err != nil {
		return models.DeleteResult{}, err
	}
	if outcome != models.OutcomeSuccess {
		return models.DeleteResult{Outcome: outcome}, nil
	}

	affected, err := s.creds.MarkDeletedByEmail(ctx, cred.Email)
	if err != nil {
		return models.DeleteResult{}, err
	}
	if affected == 0 {
		s.record(ctx, OpDelete, logger.EventCredentialDelete, cred.ID, cred.Email, models.OutcomeNotFound)
		return models.DeleteResult{Outcome: models.OutcomeNotFound}, nil
	}

	s.record(ctx, OpDelete, logger.EventCredentialDelete, cred.ID, cred.Email, models.OutcomeSuccess)
	return models.DeleteResult{Outcome: models.OutcomeSuccess}, nil
}

// Authenticate verifies auth and issues a bearer token.
func (s *CredentialService) Authenticate(ctx context.Context, auth models.EmailAuth) (models.AuthResult, error) {
	cred, outcome, err := s.authenticate(ctx, OpAuthenticate, logger.EventAuthenticate, auth)
	if err != nil {
		return models.AuthResult{}, err
	}
	if outcome != models.OutcomeSuccess {
		return models.AuthResult{Outcome: outcome}, nil
	}

	token, err := s.tokens.Issue(cred)
	if err != nil {
		return models.AuthResult{}, err
	}

	s.record(ctx, OpAuthenticate, logger.EventAuthenticate, cred.ID, cred.Email, models.OutcomeSuccess)
	return models.AuthResult{Outcome: models.OutcomeSuccess, Credential: cred, Token: token}, nil
}

// authenticate resolves auth to a live, unlocked credential whose password
// matches. Order: NotFound, Suspended, Unauthorized. A mismatch is counted
// against the lockout. Only failures are recorded here.
func (s *CredentialService) authenticate(ctx context.Context, op, event string, auth models.EmailAuth) (*models.Credential, models.Outcome, error) {
	cred, err := s.creds.GetByEmail(ctx, auth.Email)
	if err != nil {
		return nil, 0, err
	}
	if cred == nil {
		s.record(ctx, op, event, 0, auth.Email, models.OutcomeNotFound)
		return nil, models.OutcomeNotFound, nil
	}

	suspended, err := s.lockout.Suspended(cred)
	if err != nil {
		return nil, 0, err
	}
	if suspended {
		s.record(ctx, op, event, cred.ID, cred.Email, models.OutcomeSuspended)
		return nil, models.OutcomeSuspended, nil
	}

	ok, err := s.hasher.Verify(ctx, auth.Password, cred.Hash)
	if err != nil {
		return nil, 0, err
	}
	if !ok {
		if _, err := s.lockout.Suspend(ctx, cred.ID); err != nil {
			return nil, 0, err
		}
		s.record(ctx, op, event, cred.ID, cred.Email, models.OutcomeUnauthorized)
		return nil, models.OutcomeUnauthorized, nil
	}

	return cred, models.OutcomeSuccess, nil
}

func (s *CredentialService) record(ctx context.Context, op, event string, userID int64, email string, outcome models.Outcome) {
	s.metrics.Outcome(op, outcome.String())
	s.audit.Log(ctx, logger.AuditEvent{
		EventType: event,
		UserID:    userID,
		Email:     email,
		Outcome:   outcome.String(),
		Success:   outcome == models.OutcomeSuccess,
	})
}
