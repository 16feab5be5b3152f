package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BradenHooton/warden/internal/models"
	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

// DiscardLogger returns a logger that drops everything
func DiscardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body any) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target any) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	if target != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), target), "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockCredentialService implements CredentialService for testing
type MockCredentialService struct {
	CreateFunc       func(ctx context.Context, req models.CreateRequest) (models.CreateResult, error)
	UpdateFunc       func(ctx context.Context, req models.UpdateRequest) (models.UpdateResult, error)
	DeleteFunc       func(ctx context.Context, auth models.EmailAuth) (models.DeleteResult, error)
	AuthenticateFunc func(ctx context.Context, auth models.EmailAuth) (models.AuthResult, error)
}

func (m *MockCredentialService) Create(ctx context.Context, req models.CreateRequest) (models.CreateResult, error) {
	if m.CreateFunc == nil {
		return models.CreateResult{Outcome: models.OutcomeConflict}, nil
	}
	return m.CreateFunc(ctx, req)
}

func (m *MockCredentialService) Update(ctx context.Context, req models.UpdateRequest) (models.UpdateResult, error) {
	if m.UpdateFunc == nil {
		return models.UpdateResult{Outcome: models.OutcomeUnauthorized}, nil
	}
	return m.UpdateFunc(ctx, req)
}

func (m *MockCredentialService) Delete(ctx context.Context, auth models.EmailAuth) (models.DeleteResult, error) {
	if m.DeleteFunc == nil {
		return models.DeleteResult{Outcome: models.OutcomeUnauthorized}, nil
	}
	return m.DeleteFunc(ctx, auth)
}

func (m *MockCredentialService) Authenticate(ctx context.Context, auth models.EmailAuth) (models.AuthResult, error) {
	if m.AuthenticateFunc == nil {
		return models.AuthResult{Outcome: models.OutcomeUnauthorized}, nil
	}
	return m.AuthenticateFunc(ctx, auth)
}

// MockPasswordResetService implements PasswordResetService for testing
type MockPasswordResetService struct {
	GenerateFunc func(ctx context.Context, email string) (*models.ResetTicket, error)
	ResetFunc    func(ctx context.Context, confirm models.ResetConfirmation) (models.ResetResult, error)
}

func (m *MockPasswordResetService) Generate(ctx context.Context, email string) (*models.ResetTicket, error) {
	if m.GenerateFunc == nil {
		return nil, nil
	}
	return m.GenerateFunc(ctx, email)
}

func (m *MockPasswordResetService) Reset(ctx context.Context, confirm models.ResetConfirmation) (models.ResetResult, error) {
	if m.ResetFunc == nil {
		return models.ResetResult{Outcome: models.OutcomeNotFound}, nil
	}
	return m.ResetFunc(ctx, confirm)
}

// MockPinger implements Pinger for testing
type MockPinger struct {
	Err error
}

func (m *MockPinger) HealthCheck(ctx context.Context) error {
	return m.Err
}
