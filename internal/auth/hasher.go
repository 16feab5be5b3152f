package auth

import (
	"context"

	"github.com/BradenHooton/warden/internal/worker"
	pkgauth "github.com/BradenHooton/warden/pkg/auth"
)

// Hasher runs password hashing and verification on a dedicated worker pool
// with the configured secret and cost parameters.
type Hasher struct {
	pool   *worker.Pool
	secret []byte
	params pkgauth.HashParams
}

// NewHasher creates a Hasher that schedules work on pool.
func NewHasher(pool *worker.Pool, secret string, params pkgauth.HashParams) *Hasher {
	return &Hasher{
		pool:   pool,
		secret: []byte(secret),
		params: params,
	}
}

// Hash derives the stored form of password.
func (h *Hasher) Hash(ctx context.Context, password string) (string, error) {
	var (
		encoded string
		hashErr error
	)
	if err := h.pool.Submit(ctx, func() {
		encoded, hashErr = pkgauth.HashPassword(password, h.secret, h.params)
	}); err != nil {
		return "", err
	}
	return encoded, hashErr
}

// Verify reports whether password matches encoded. A malformed hash is a mismatch.
func (h *Hasher) Verify(ctx context.Context, password, encoded string) (bool, error) {
	var (
		ok        bool
		verifyErr error
	)
	if err := h.pool.Submit(ctx, func() {
		ok, verifyErr = pkgauth.VerifyPassword(password, encoded, h.secret)
	}); err != nil {
		return false, err
	}
	return ok, verifyErr
}
