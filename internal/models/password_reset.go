package models

import "time"

// PasswordResetRequest is a stored reset ticket. Only the hash of the token is kept.
type PasswordResetRequest struct {
	ID        string
	UserID    int64
	TokenHash string
	Name      string
	Email     string
	CreatedAt time.Time
}

// ResetTicket is the plaintext id/token pair handed to the requester once.
type ResetTicket struct {
	ID    string
	Token string
	Name  string
	Email string
}
