package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
)

// FailedLoginWriter is the set of writes the lockout transition performs.
// Clear and Lock are safe to repeat.
type FailedLoginWriter interface {
	Log(ctx context.Context, userID int64, at time.Time) (*models.FailedLogin, error)
	Clear(ctx context.Context, userID int64) error
	Lock(ctx context.Context, userID int64, at time.Time) error
}

// failedLoginQueries runs against either the pool or an open transaction.
type failedLoginQueries struct {
	q database.DBTX
}

// Log opens or extends the failure streak for userID and returns it.
func (f failedLoginQueries) Log(ctx context.Context, userID int64, at time.Time) (*models.FailedLogin, error) {
	query := `
		INSERT INTO failed_logins (user_id, attempts, created_at, updated_at)
		VALUES ($1, 1, $2, $2)
		ON CONFLICT (user_id) DO UPDATE
		SET attempts = failed_logins.attempts + 1, updated_at = EXCLUDED.updated_at
		RETURNING user_id, attempts, created_at, updated_at
	`

	var fl models.FailedLogin
	err := f.q.QueryRow(ctx, query, userID, at).Scan(&fl.UserID, &fl.Attempts, &fl.CreatedAt, &fl.UpdatedAt)
	if err != nil {
		return nil, storeError("failed_login_log", err)
	}
	return &fl, nil
}

func (f failedLoginQueries) Clear(ctx context.Context, userID int64) error {
	query := `DELETE FROM failed_logins WHERE user_id = $1`

	if _, err := f.q.Exec(ctx, query, userID); err != nil {
		return storeError("failed_login_clear", err)
	}
	return nil
}

func (f failedLoginQueries) Lock(ctx context.Context, userID int64, at time.Time) error {
	query := `UPDATE credentials SET locked_at = $2 WHERE id = $1`

	if _, err := f.q.Exec(ctx, query, userID, at); err != nil {
		return storeError("credential_lock", err)
	}
	return nil
}

type LoginHistoryRepository struct {
	failedLoginQueries
	db database.TxBeginner
}

func NewLoginHistoryRepository(db database.TxBeginner) *LoginHistoryRepository {
	return &LoginHistoryRepository{
		failedLoginQueries: failedLoginQueries{q: db},
		db:                 db,
	}
}

// WithinTransaction runs fn with writes bound to one transaction. Every write
// commits together or none does.
func (r *LoginHistoryRepository) WithinTransaction(ctx context.Context, fn func(FailedLoginWriter) error) error {
	var fnErr error
	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		fnErr = fn(failedLoginQueries{q: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storeError("failed_login_transaction", err)
	}
	return nil
}

// DeleteStale removes failure streaks that started before cutoff.
func (r *LoginHistoryRepository) DeleteStale(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM failed_logins WHERE created_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, storeError("failed_login_delete_stale", err)
	}
	return tag.RowsAffected(), nil
}
