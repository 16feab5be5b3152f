package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/pkg/errutil"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// CredentialService defines the credential operations exposed over HTTP
type CredentialService interface {
	Create(ctx context.Context, req models.CreateRequest) (models.CreateResult, error)
	Update(ctx context.Context, req models.UpdateRequest) (models.UpdateResult, error)
	Delete(ctx context.Context, auth models.EmailAuth) (models.DeleteResult, error)
	Authenticate(ctx context.Context, auth models.EmailAuth) (models.AuthResult, error)
}

// CredentialHandler handles credential and verification requests
type CredentialHandler struct {
	service CredentialService
	logger  *slog.Logger
}

// NewCredentialHandler creates a new CredentialHandler
func NewCredentialHandler(service CredentialService, logger *slog.Logger) *CredentialHandler {
	return &CredentialHandler{
		service: service,
		logger:  logger,
	}
}

// Create handles registration
// @Summary Register a credential
// @Accept json
// @Param request body CreateCredentialRequest true "Create request"
// @Produce json
// @Success 201 {object} CredentialResponse
// @Failure 400 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /credentials [post]
func (h *CredentialHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateCredentialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Create(r.Context(), models.CreateRequest{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		h.internalError(w, "failed to create credential", err)
		return
	}

	switch result.Outcome {
	case models.OutcomeSuccess:
		pkghttp.WriteJSON(w, http.StatusCreated, credentialToResponse(result.Credential))
	case models.OutcomeWeakPassword:
		pkghttp.WriteWeakPassword(w, "Password is not strong enough", result.Issues)
	default:
		writeFailure(w, result.Outcome)
	}
}

// Update handles authenticated credential changes
// @Summary Update a credential
// @Accept json
// @Param request body UpdateCredentialRequest true "Update request"
// @Produce json
// @Success 200 {object} CredentialResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 409 {object} pkghttp.ErrorResponse
// @Router /credentials [put]
func (h *CredentialHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateCredentialRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	changes := req.Credentials.toModel()
	if changes.Empty() {
		pkghttp.WriteBadRequest(w, "No changes supplied")
		return
	}

	result, err := h.service.Update(r.Context(), models.UpdateRequest{
		Auth:    req.Auth.toModel(),
		Changes: changes,
	})
	if err != nil {
		h.internalError(w, "failed to update credential", err)
		return
	}

	switch result.Outcome {
	case models.OutcomeSuccess:
		pkghttp.WriteBearer(w, result.Token)
		pkghttp.WriteJSON(w, http.StatusOK, credentialToResponse(result.Credential))
	case models.OutcomeWeakPassword:
		pkghttp.WriteWeakPassword(w, "Password is not strong enough", result.Issues)
	default:
		writeFailure(w, result.Outcome)
	}
}

// Delete handles authenticated credential removal
// @Summary Delete a credential
// @Accept json
// @Param request body EmailAuthRequest true "Credentials"
// @Produce json
// @Success 202 {object} MessageResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /credentials [delete]
func (h *CredentialHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req EmailAuthRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Delete(r.Context(), req.toModel())
	if err != nil {
		h.internalError(w, "failed to delete credential", err)
		return
	}

	if result.Outcome != models.OutcomeSuccess {
		writeFailure(w, result.Outcome)
		return
	}
	pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{Message: "Credential deleted"})
}

// Verify authenticates an email and password and issues a bearer token
// @Summary Verify credentials
// @Accept json
// @Param request body EmailAuthRequest true "Credentials"
// @Produce json
// @Success 200 {object} TokenResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Router /verify [post]
func (h *CredentialHandler) Verify(w http.ResponseWriter, r *http.Request) {
	var req EmailAuthRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Authenticate(r.Context(), req.toModel())
	if err != nil {
		h.internalError(w, "failed to authenticate", err)
		return
	}

	if result.Outcome != models.OutcomeSuccess {
		writeFailure(w, result.Outcome)
		return
	}
	pkghttp.WriteBearer(w, result.Token)
	pkghttp.WriteJSON(w, http.StatusOK, TokenResponse{Token: result.Token})
}

func (h *CredentialHandler) internalError(w http.ResponseWriter, msg string, err error) {
	errutil.LogError(h.logger, msg, err)
	pkghttp.WriteInternalError(w, "Internal server error")
}

// decodeAndValidate decodes, normalizes and validates the body into dst,
// answering 400 itself on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := pkghttp.DecodeJSON(w, r, dst); err != nil {
		pkghttp.WriteBadRequest(w, "Invalid request body")
		return false
	}
	if n, ok := dst.(normalizer); ok {
		n.normalize()
	}
	if err := ValidateRequest(dst); err != nil {
		pkghttp.WriteBadRequest(w, err.Error())
		return false
	}
	return true
}

// writeFailure maps the non-success outcomes shared by every endpoint.
// Suspended and Unauthorized are indistinguishable to the caller.
func writeFailure(w http.ResponseWriter, outcome models.Outcome) {
	switch outcome {
	case models.OutcomeNotFound:
		pkghttp.WriteNotFound(w, "Credential not found")
	case models.OutcomeSuspended, models.OutcomeUnauthorized:
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case models.OutcomeConflict:
		pkghttp.WriteConflict(w, "Name or email already registered")
	case models.OutcomeInvalidToken:
		pkghttp.WriteUnauthorized(w, "Invalid reset token")
	case models.OutcomeExpired:
		pkghttp.WriteGone(w, "Reset request has expired")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
