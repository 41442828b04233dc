package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *ErrorHandler {
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHandleError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"api not found", NotFoundError("fund 42"), http.StatusNotFound, TypeNotFound},
		{"wrapped api error", fmt.Errorf("lookup: %w", ErrOperationRunning), http.StatusConflict, TypeOperationRunning},
		{"invalid parameter", InvalidParameter("from", assert.AnError), http.StatusBadRequest, TypeValidation},
		{"app not found", NewNotFoundError("fund 7"), http.StatusNotFound, TypeFundNotFound},
		{"app conflict", NewConflictError("busy"), http.StatusConflict, TypeConflict},
		{"app parsing", NewParsingError("bad report", assert.AnError), http.StatusUnprocessableEntity, TypeDataCorrupted},
		{"app storage", NewStorageError("disk", assert.AnError), http.StatusInternalServerError, TypeInternal},
		{"deadline", context.DeadlineExceeded, http.StatusGatewayTimeout, TypeTimeout},
		{"unknown", assert.AnError, http.StatusInternalServerError, TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/funds/42", nil)

			newTestHandler().HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, body["type"])
			assert.Equal(t, float64(tt.wantStatus), body["status"])
			assert.Equal(t, "/api/funds/42", body["instance"])
		})
	}
}

func TestProblemDetailsExtensions(t *testing.T) {
	p := NewProblemDetails(http.StatusBadRequest, TypeValidation, "Bad", "", "").
		WithExtension("field", "from").
		WithExtension("status", 999)

	data, err := json.Marshal(p)
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(data, &body))
	assert.Equal(t, "from", body["field"])
	assert.Equal(t, float64(http.StatusBadRequest), body["status"], "standard members win over extensions")
	assert.NotContains(t, body, "detail")
}

func TestAppErrorUnwrap(t *testing.T) {
	err := NewStorageError("write failed", assert.AnError).WithContext("code", 5)
	assert.ErrorIs(t, err, assert.AnError)
	assert.Equal(t, "[STORAGE] write failed: "+assert.AnError.Error(), err.Error())
	assert.Equal(t, 5, err.Context["code"])
}

func TestRecoverer(t *testing.T) {
	h := newTestHandler()
	panicking := h.Recoverer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	panicking.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, TypeInternal, decodeProblem(t, rec)["type"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler()

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/api/funds", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Contains(t, decodeProblem(t, rec)["detail"], "DELETE")
}
