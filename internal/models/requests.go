package models

// EmailAuth is the email+password pair presented for authentication.
type EmailAuth struct {
	Email    string
	Password string
}

// CreateRequest carries the full set of fields for a new credential.
type CreateRequest struct {
	Name     string
	Email    string
	Password string
}

// UpdateRequest authenticates with Auth and applies Changes.
type UpdateRequest struct {
	Auth    EmailAuth
	Changes CredentialChanges
}

// ResetConfirmation completes a password reset.
type ResetConfirmation struct {
	ID       string
	Token    string
	Password string
}
