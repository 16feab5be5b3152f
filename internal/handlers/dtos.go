package handlers

import (
	"strings"
	"time"

	"github.com/BradenHooton/warden/internal/models"
)

// Request DTOs

// CreateCredentialRequest represents the request body for registration
type CreateCredentialRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// EmailAuthRequest is an email and password pair
type EmailAuthRequest struct {
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,max=128"`
}

// CredentialChangesRequest carries the optional fields of an update
type CredentialChangesRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=255"`
	Email    *string `json:"email,omitempty" validate:"omitempty,email,max=255"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=1,max=128"`
}

// UpdateCredentialRequest represents the request body for an update
type UpdateCredentialRequest struct {
	Auth        EmailAuthRequest         `json:"auth"`
	Credentials CredentialChangesRequest `json:"credentials"`
}

// ResetRequest represents the request body for starting a password reset
type ResetRequest struct {
	Email string `json:"email" validate:"required,email,max=255"`
}

// ResetConfirmRequest represents the request body for completing a password reset
type ResetConfirmRequest struct {
	ID       string `json:"id" validate:"required,max=64"`
	Token    string `json:"token" validate:"required,max=64"`
	Password string `json:"password" validate:"required,max=128"`
}

// Response DTOs

// CredentialResponse represents a credential in the HTTP response
type CredentialResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// TokenResponse carries a freshly issued bearer token
type TokenResponse struct {
	Token string `json:"token"`
}

// MessageResponse is a plain acknowledgement
type MessageResponse struct {
	Message string `json:"message"`
}

func credentialToResponse(cred *models.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:        cred.ID,
		Name:      cred.Name,
		Email:     cred.Email,
		CreatedAt: cred.CreatedAt.Format(time.RFC3339),
		UpdatedAt: cred.UpdatedAt.Format(time.RFC3339),
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// normalizer is implemented by request DTOs whose fields are cleaned up
// before validation.
type normalizer interface {
	normalize()
}

func (r *CreateCredentialRequest) normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = normalizeEmail(r.Email)
}

func (r *EmailAuthRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *CredentialChangesRequest) normalize() {
	if r.Name != nil {
		name := strings.TrimSpace(*r.Name)
		r.Name = &name
	}
	if r.Email != nil {
		email := normalizeEmail(*r.Email)
		r.Email = &email
	}
}

func (r *UpdateCredentialRequest) normalize() {
	r.Auth.normalize()
	r.Credentials.normalize()
}

func (r *ResetRequest) normalize() {
	r.Email = normalizeEmail(r.Email)
}

func (r *ResetConfirmRequest) normalize() {
	r.ID = strings.TrimSpace(r.ID)
	r.Token = strings.TrimSpace(r.Token)
}

func (r EmailAuthRequest) toModel() models.EmailAuth {
	return models.EmailAuth{Email: r.Email, Password: r.Password}
}

func (r CredentialChangesRequest) toModel() models.CredentialChanges {
	return models.CredentialChanges{Name: r.Name, Email: r.Email, Password: r.Password}
}
