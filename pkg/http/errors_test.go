package http_test

import (
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkghttp "github.com/BradenHooton/warden/pkg/http"
)

func decodeError(t *testing.T, w *httptest.ResponseRecorder) pkghttp.ErrorResponse {
	t.Helper()
	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestWriteError(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteError(w, 400, "test_error", "Test message")

	assert.Equal(t, 400, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	resp := decodeError(t, w)
	assert.Equal(t, "test_error", resp.Error)
	assert.Equal(t, "Test message", resp.Message)
	assert.Nil(t, resp.Details)
	assert.NotContains(t, w.Body.String(), "details")
}

func TestWriteErrorHelpers(t *testing.T) {
	tests := []struct {
		name   string
		write  func(w *httptest.ResponseRecorder)
		status int
		code   string
	}{
		{"bad request", func(w *httptest.ResponseRecorder) { pkghttp.WriteBadRequest(w, "m") }, 400, "bad_request"},
		{"unauthorized", func(w *httptest.ResponseRecorder) { pkghttp.WriteUnauthorized(w, "m") }, 401, "unauthorized"},
		{"not found", func(w *httptest.ResponseRecorder) { pkghttp.WriteNotFound(w, "m") }, 404, "not_found"},
		{"conflict", func(w *httptest.ResponseRecorder) { pkghttp.WriteConflict(w, "m") }, 409, "conflict"},
		{"gone", func(w *httptest.ResponseRecorder) { pkghttp.WriteGone(w, "m") }, 410, "expired"},
		{"internal", func(w *httptest.ResponseRecorder) { pkghttp.WriteInternalError(w, "m") }, 500, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			tt.write(w)

			assert.Equal(t, tt.status, w.Code)
			resp := decodeError(t, w)
			assert.Equal(t, tt.code, resp.Error)
			assert.Equal(t, "m", resp.Message)
		})
	}
}

func TestWriteWeakPassword(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteWeakPassword(w, "Password is not strong enough", map[string]any{
		"suggestions": []string{"Use a longer password"},
	})

	assert.Equal(t, 403, w.Code)

	var resp struct {
		Error   string `json:"error"`
		Details struct {
			Suggestions []string `json:"suggestions"`
		} `json:"details"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "weak_password", resp.Error)
	assert.Equal(t, []string{"Use a longer password"}, resp.Details.Suggestions)
}

func TestWriteJSONAndBearer(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteBearer(w, "abc.def.ghi")
	pkghttp.WriteJSON(w, 200, map[string]string{"token": "abc.def.ghi"})

	assert.Equal(t, 200, w.Code)
	assert.Equal(t, "Bearer abc.def.ghi", w.Header().Get("Authorization"))
	assert.JSONEq(t, `{"token":"abc.def.ghi"}`, w.Body.String())
}

func TestWriteJSON_NilBody(t *testing.T) {
	w := httptest.NewRecorder()

	pkghttp.WriteJSON(w, 202, nil)

	assert.Equal(t, 202, w.Code)
	assert.Empty(t, w.Body.String())
}
