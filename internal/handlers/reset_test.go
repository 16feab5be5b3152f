package handlers_test

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/BradenHooton/warden/internal/handlers"
	"github.com/BradenHooton/warden/internal/models"
)

func TestResetRequest_AlwaysAccepted(t *testing.T) {
	tests := []struct {
		name   string
		ticket *models.ResetTicket
		err    error
	}{
		{"registered", &models.ResetTicket{ID: "id-1", Token: "secret-token"}, nil},
		{"unknown", nil, nil},
		{"store failure", nil, errors.New("store down")},
	}

	var bodies []string
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotEmail string
			svc := &handlers.MockPasswordResetService{
				GenerateFunc: func(ctx context.Context, email string) (*models.ResetTicket, error) {
					gotEmail = email
					return tt.ticket, tt.err
				},
			}
			h := handlers.NewResetHandler(svc, handlers.DiscardLogger())

			w := httptest.NewRecorder()
			h.Request(w, handlers.NewTestRequest(t, "POST", "/reset", handlers.ResetRequest{Email: " A@x.com"}))

			var resp handlers.MessageResponse
			handlers.AssertJSONResponse(t, w, 202, &resp)
			assert.Equal(t, "a@x.com", gotEmail)
			assert.NotContains(t, w.Body.String(), "secret-token")
			bodies = append(bodies, w.Body.String())
		})
	}

	for _, b := range bodies[1:] {
		assert.Equal(t, bodies[0], b)
	}
}

func TestResetRequest_InvalidEmail(t *testing.T) {
	h := handlers.NewResetHandler(&handlers.MockPasswordResetService{}, handlers.DiscardLogger())

	w := httptest.NewRecorder()
	h.Request(w, handlers.NewTestRequest(t, "POST", "/reset", handlers.ResetRequest{Email: "nope"}))

	handlers.AssertErrorResponse(t, w, 400, "bad_request")
}

func TestResetConfirm_Outcomes(t *testing.T) {
	tests := []struct {
		outcome models.Outcome
		status  int
		code    string
	}{
		{models.OutcomeNotFound, 404, "not_found"},
		{models.OutcomeExpired, 410, "expired"},
		{models.OutcomeWeakPassword, 403, "weak_password"},
		{models.OutcomeInvalidToken, 401, "unauthorized"},
	}

	for _, tt := range tests {
		t.Run(tt.outcome.String(), func(t *testing.T) {
			svc := &handlers.MockPasswordResetService{
				ResetFunc: func(ctx context.Context, confirm models.ResetConfirmation) (models.ResetResult, error) {
					return models.ResetResult{Outcome: tt.outcome}, nil
				},
			}
			h := handlers.NewResetHandler(svc, handlers.DiscardLogger())

			w := httptest.NewRecorder()
			h.Confirm(w, handlers.NewTestRequest(t, "PUT", "/reset", handlers.ResetConfirmRequest{
				ID: "id-1", Token: "tok", Password: "pw",
			}))

			handlers.AssertErrorResponse(t, w, tt.status, tt.code)
		})
	}
}

func TestResetConfirm_Success(t *testing.T) {
	var got models.ResetConfirmation
	svc := &handlers.MockPasswordResetService{
		ResetFunc: func(ctx context.Context, confirm models.ResetConfirmation) (models.ResetResult, error) {
			got = confirm
			return models.ResetResult{Outcome: models.OutcomeSuccess}, nil
		},
	}
	h := handlers.NewResetHandler(svc, handlers.DiscardLogger())

	w := httptest.NewRecorder()
	h.Confirm(w, handlers.NewTestRequest(t, "PUT", "/reset", handlers.ResetConfirmRequest{
		ID: "id-1", Token: "tok", Password: "new-password",
	}))

	handlers.AssertJSONResponse(t, w, 200, nil)
	assert.Equal(t, models.ResetConfirmation{ID: "id-1", Token: "tok", Password: "new-password"}, got)
}

func TestResetConfirm_InternalError(t *testing.T) {
	svc := &handlers.MockPasswordResetService{
		ResetFunc: func(ctx context.Context, confirm models.ResetConfirmation) (models.ResetResult, error) {
			return models.ResetResult{}, models.ErrClock
		},
	}
	h := handlers.NewResetHandler(svc, handlers.DiscardLogger())

	w := httptest.NewRecorder()
	h.Confirm(w, handlers.NewTestRequest(t, "PUT", "/reset", handlers.ResetConfirmRequest{ID: "a", Token: "b", Password: "c"}))

	handlers.AssertErrorResponse(t, w, 500, "internal_error")
}
