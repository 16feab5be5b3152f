package models

import "github.com/BradenHooton/warden/pkg/auth"

// Outcome is the closed set of domain results. None of them is an error.
type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeWeakPassword
	OutcomeConflict
	OutcomeNotFound
	OutcomeSuspended
	OutcomeUnauthorized
	OutcomeInvalidToken
	OutcomeExpired
)

var outcomeNames = map[Outcome]string{
	OutcomeSuccess:      "success",
	OutcomeWeakPassword: "weak_password",
	OutcomeConflict:     "conflict",
	OutcomeNotFound:     "not_found",
	OutcomeSuspended:    "suspended",
	OutcomeUnauthorized: "unauthorized",
	OutcomeInvalidToken: "invalid_token",
	OutcomeExpired:      "expired",
}

func (o Outcome) String() string {
	if name, ok := outcomeNames[o]; ok {
		return name
	}
	return "unknown"
}

// CreateResult: Success, WeakPassword or Conflict.
type CreateResult struct {
	Outcome    Outcome
	Credential *Credential
	Issues     *auth.StrengthIssues
}

// UpdateResult: Success, NotFound, Suspended, Unauthorized, WeakPassword or Conflict.
// Token is a freshly issued bearer token on success.
type UpdateResult struct {
	Outcome    Outcome
	Credential *Credential
	Token      string
	Issues     *auth.StrengthIssues
}

// DeleteResult: Success, NotFound, Suspended or Unauthorized.
type DeleteResult struct {
	Outcome Outcome
}

// AuthResult: Success, NotFound, Suspended or Unauthorized.
type AuthResult struct {
	Outcome    Outcome
	Credential *Credential
	Token      string
}

// ResetResult: Success, WeakPassword, InvalidToken, NotFound or Expired.
type ResetResult struct {
	Outcome    Outcome
	Credential *Credential
	Issues     *auth.StrengthIssues
}
