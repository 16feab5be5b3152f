package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/BradenHooton/warden/internal/models"
	"github.com/BradenHooton/warden/pkg/errutil"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// PasswordResetService defines the reset operations exposed over HTTP
type PasswordResetService interface {
	Generate(ctx context.Context, email string) (*models.ResetTicket, error)
	Reset(ctx context.Context, confirm models.ResetConfirmation) (models.ResetResult, error)
}

// ResetHandler handles password reset requests
type ResetHandler struct {
	service PasswordResetService
	logger  *slog.Logger
}

// NewResetHandler creates a new ResetHandler
func NewResetHandler(service PasswordResetService, logger *slog.Logger) *ResetHandler {
	return &ResetHandler{
		service: service,
		logger:  logger,
	}
}

const resetAcceptedMessage = "If the email is registered, reset instructions have been sent."

// Request starts a reset. The answer is 202 whether or not the email is
// registered, and the ticket is never returned in the body.
// @Summary Request a password reset
// @Accept json
// @Param request body ResetRequest true "Reset request"
// @Produce json
// @Success 202 {object} MessageResponse
// @Router /reset [post]
func (h *ResetHandler) Request(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	if _, err := h.service.Generate(r.Context(), req.Email); err != nil {
		errutil.LogError(h.logger, "failed to generate password reset", err)
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, MessageResponse{Message: resetAcceptedMessage})
}

// Confirm redeems a reset ticket
// @Summary Complete a password reset
// @Accept json
// @Param request body ResetConfirmRequest true "Reset confirmation"
// @Produce json
// @Success 200 {object} MessageResponse
// @Failure 401 {object} pkghttp.ErrorResponse
// @Failure 403 {object} pkghttp.ErrorResponse
// @Failure 404 {object} pkghttp.ErrorResponse
// @Failure 410 {object} pkghttp.ErrorResponse
// @Router /reset [put]
func (h *ResetHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	result, err := h.service.Reset(r.Context(), models.ResetConfirmation{
		ID:       req.ID,
		Token:    req.Token,
		Password: req.Password,
	})
	if err != nil {
		errutil.LogError(h.logger, "failed to reset password", err)
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	switch result.Outcome {
	case models.OutcomeSuccess:
		pkghttp.WriteJSON(w, http.StatusOK, MessageResponse{Message: "Password has been reset"})
	case models.OutcomeWeakPassword:
		pkghttp.WriteWeakPassword(w, "Password is not strong enough", result.Issues)
	case models.OutcomeNotFound:
		pkghttp.WriteNotFound(w, "Reset request not found")
	default:
		writeFailure(w, result.Outcome)
	}
}
