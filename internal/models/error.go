package models

import "errors"

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// ErrClock means the wall clock reads earlier than a stored timestamp.
	// Surfaced rather than treated as expired or unexpired.
	ErrClock = errors.New("clock is behind stored timestamp")
)

// Error codes carried by oops errors raised below the service layer.
const (
	CodeStoreUnavailable = "STORE_UNAVAILABLE"
	CodeClockSkew        = "CLOCK_SKEW"
	CodeTokenSign        = "TOKEN_SIGN_FAILED"
	CodeHashPoolClosed   = "HASH_POOL_CLOSED"
	CodeMailDelivery     = "MAIL_DELIVERY_FAILED"
)
