package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/samber/oops"

	"github.com/BradenHooton/warden/internal/database"
	"github.com/BradenHooton/warden/internal/models"
)

const credentialColumns = `id, name, email, hash, created_at, updated_at, deleted_at, locked_at`

type CredentialRepository struct {
	db  database.DBTX
	now func() time.Time
}

func NewCredentialRepository(db database.DBTX) *CredentialRepository {
	return &CredentialRepository{db: db, now: time.Now}
}

// rowScanner interface for scanning rows (supports both single row and multiple rows)
type rowScanner interface {
	Scan(dest ...interface{}) error
}

// storeError tags a driver failure as a store outage, keeping conflicts recognisable.
func storeError(operation string, err error) error {
	mapped := database.MapPostgresError(err)
	if errors.Is(mapped, models.ErrConflict) {
		return models.ErrConflict
	}
	return oops.Code(models.CodeStoreUnavailable).With("operation", operation).Wrap(err)
}

// scanCredential returns nil, nil when the row does not exist.
func scanCredential(scanner rowScanner) (*models.Credential, error) {
	var c models.Credential

	err := scanner.Scan(
		&c.ID, &c.Name, &c.Email, &c.Hash,
		&c.CreatedAt, &c.UpdatedAt, &c.DeletedAt, &c.LockedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return &c, nil
}

func (r *CredentialRepository) GetByName(ctx context.Context, name string) (*models.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials WHERE name = $1 AND deleted_at IS NULL
	`

	c, err := scanCredential(r.db.QueryRow(ctx, query, name))
	if err != nil {
		return nil, storeError("credential_by_name", err)
	}
	return c, nil
}

func (r *CredentialRepository) GetByEmail(ctx context.Context, email string) (*models.Credential, error) {
	query := `
		SELECT ` + credentialColumns + `
		FROM credentials WHERE email = $1 AND deleted_at IS NULL
	`

	c, err := scanCredential(r.db.QueryRow(ctx, query, email))
	if err != nil {
		return nil, storeError("credential_by_email", err)
	}
	return c, nil
}

// GetStatus reports whether name or email is held by a live record (Exists),
// only by soft-deleted records (Deleted), or by nothing (None).
func (r *CredentialRepository) GetStatus(ctx context.Context, name, email string) (models.CredentialStatus, error) {
	query := `
		SELECT COUNT(*), COALESCE(BOOL_OR(deleted_at IS NULL), false)
		FROM credentials WHERE name = $1 OR email = $2
	`

	var (
		matches int64
		live    bool
	)
	if err := r.db.QueryRow(ctx, query, name, email).Scan(&matches, &live); err != nil {
		return models.StatusNone, storeError("credential_status", err)
	}

	switch {
	case live:
		return models.StatusExists, nil
	case matches > 0:
		return models.StatusDeleted, nil
	default:
		return models.StatusNone, nil
	}
}

func (r *CredentialRepository) Create(ctx context.Context, name, email, hash string) (*models.Credential, error) {
	query := `
		INSERT INTO credentials (name, email, hash, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
		RETURNING ` + credentialColumns

	c, err := scanCredential(r.db.QueryRow(ctx, query, name, email, hash, r.now()))
	if err != nil {
		return nil, storeError("credential_create", err)
	}
	return c, nil
}

// Update persists name, email and hash of an existing live credential.
func (r *CredentialRepository) Update(ctx context.Context, cred *models.Credential) (*models.Credential, error) {
	query := `
		UPDATE credentials
		SET name = $2, email = $3, hash = $4, updated_at = $5
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + credentialColumns

	c, err := scanCredential(r.db.QueryRow(ctx, query, cred.ID, cred.Name, cred.Email, cred.Hash, r.now()))
	if err != nil {
		return nil, storeError("credential_update", err)
	}
	return c, nil
}

func (r *CredentialRepository) UpdatePasswordHash(ctx context.Context, userID int64, hash string) (*models.Credential, error) {
	query := `
		UPDATE credentials
		SET hash = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING ` + credentialColumns

	c, err := scanCredential(r.db.QueryRow(ctx, query, userID, hash, r.now()))
	if err != nil {
		return nil, storeError("credential_update_hash", err)
	}
	return c, nil
}

// MarkDeletedByEmail soft-deletes the live credential holding email and
// returns the number of rows affected.
func (r *CredentialRepository) MarkDeletedByEmail(ctx context.Context, email string) (int64, error) {
	query := `
		UPDATE credentials
		SET deleted_at = $2, updated_at = $2
		WHERE email = $1 AND deleted_at IS NULL
	`

	tag, err := r.db.Exec(ctx, query, email, r.now())
	if err != nil {
		return 0, storeError("credential_mark_deleted", err)
	}
	return tag.RowsAffected(), nil
}
