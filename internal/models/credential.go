package models

import "time"

// Credential is the identity record authenticated against.
// DeletedAt marks a soft delete; LockedAt marks the start of a lockout.
type Credential struct {
	ID        int64      `json:"id"`
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Hash      string     `json:"-"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"-"`
	LockedAt  *time.Time `json:"-"`
}

// CredentialStatus is the registration-time view of a name/email pair.
type CredentialStatus int

const (
	StatusNone CredentialStatus = iota
	StatusExists
	StatusDeleted
)

func (s CredentialStatus) String() string {
	switch s {
	case StatusExists:
		return "exists"
	case StatusDeleted:
		return "deleted"
	default:
		return "none"
	}
}

// CredentialChanges holds an optional partial update. Nil fields are left as is.
type CredentialChanges struct {
	Name     *string
	Email    *string
	Password *string
}

func (c CredentialChanges) Empty() bool {
	return c.Name == nil && c.Email == nil && c.Password == nil
}
