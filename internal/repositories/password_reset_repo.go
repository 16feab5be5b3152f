package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
)

type PasswordResetRepository struct {
	db  database.TxBeginner
	now func() time.Time
}

func NewPasswordResetRepository(db database.TxBeginner) *PasswordResetRepository {
	return &PasswordResetRepository{db: db, now: time.Now}
}

func (r *PasswordResetRepository) Create(ctx context.Context, req *models.PasswordResetRequest) error {
	query := `
		INSERT INTO password_resets (id, user_id, token_hash, name, email, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Exec(ctx, query, req.ID, req.UserID, req.TokenHash, req.Name, req.Email, req.CreatedAt)
	if err != nil {
		return storeError("password_reset_create", err)
	}
	return nil
}

// GetByID returns nil, nil when no request has the id.
func (r *PasswordResetRepository) GetByID(ctx context.Context, id string) (*models.PasswordResetRequest, error) {
	query := `
		SELECT id, user_id, token_hash, name, email, created_at
		FROM password_resets WHERE id = $1
	`

	var req models.PasswordResetRequest
	err := r.db.QueryRow(ctx, query, id).Scan(
		&req.ID, &req.UserID, &req.TokenHash, &req.Name, &req.Email, &req.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, storeError("password_reset_by_id", err)
	}
	return &req, nil
}

// Redeem writes hash for userID and removes every request of that user in
// one transaction. It returns nil, nil and writes nothing when no live
// credential has the id.
func (r *PasswordResetRepository) Redeem(ctx context.Context, userID int64, hash string) (*models.Credential, error) {
	var (
		cred  *models.Credential
		fnErr error
	)
	err := database.WithTransaction(ctx, r.db, func(tx pgx.Tx) error {
		creds := NewCredentialRepository(tx)
		creds.now = r.now

		cred, fnErr = creds.UpdatePasswordHash(ctx, userID, hash)
		if fnErr != nil || cred == nil {
			return fnErr
		}

		if _, err := tx.Exec(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID); err != nil {
			fnErr = storeError("password_reset_delete_by_user", err)
		}
		return fnErr
	})
	if fnErr != nil {
		return nil, fnErr
	}
	if err != nil {
		return nil, storeError("password_reset_redeem", err)
	}
	return cred, nil
}

// DeleteExpired removes requests created before cutoff.
func (r *PasswordResetRepository) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM password_resets WHERE created_at < $1`

	tag, err := r.db.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, storeError("password_reset_delete_expired", err)
	}
	return tag.RowsAffected(), nil
}
