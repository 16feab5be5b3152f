package models

import "time"

// FailedLogin is the open failure streak for one credential.
// CreatedAt is the first failure in the streak.
type FailedLogin struct {
	UserID    int64
	Attempts  int
	CreatedAt time.Time
	UpdatedAt time.Time
}

// SuspendResult reports which lockout transition a failure caused.
type SuspendResult int

const (
	// SuspendFlagged means the failure was counted and the limit is not exceeded.
	SuspendFlagged SuspendResult = iota
	// SuspendCleared means the limit was exceeded by a stale streak, which was reset.
	SuspendCleared
	// SuspendLocked means the limit was exceeded and the credential is now locked.
	SuspendLocked
)

func (r SuspendResult) String() string {
	switch r {
	case SuspendCleared:
		return "cleared"
	case SuspendLocked:
		return "locked"
	default:
		return "flagged"
	}
}
