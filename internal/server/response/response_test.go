package response

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/errors"
)

func decode(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestOK(t *testing.T) {
	w := httptest.NewRecorder()
	OK(w, map[string]string{"status": "healthy"})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	resp := decode(t, w)
	assert.Nil(t, resp.Error)
	assert.Equal(t, map[string]any{"status": "healthy"}, resp.Data)
}

func TestFail(t *testing.T) {
	resp := Fail("TEST_ERROR", "message", "details")
	assert.Nil(t, resp.Data)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "TEST_ERROR", resp.Error.Code)
	assert.Equal(t, "details", resp.Error.Details)
}

func TestErrorFromType(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"lock held", errors.NewLockError("agency", nil), http.StatusConflict, "CONFLICT"},
		{"not found", errors.NewNotFoundError("source", "nope"), http.StatusNotFound, "NOT_FOUND"},
		{"validation", errors.NewValidationError("Concurrency", 0, "bad"), http.StatusBadRequest, "BAD_REQUEST"},
		{"config", errors.NewConfigError("source", "bad yaml", nil), http.StatusBadRequest, "BAD_REQUEST"},
		{"fetch", errors.NewFetchError("agency", "http://x", 500, "boom", nil), http.StatusBadGateway, "BAD_GATEWAY"},
		{"wrapped lock", fmt.Errorf("run: %w", errors.NewLockError("agency", nil)), http.StatusConflict, "CONFLICT"},
		{"unknown", stderrors.New("boom"), http.StatusInternalServerError, "INTERNAL_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			ErrorFromType(w, tt.err)

			assert.Equal(t, tt.status, w.Code)
			resp := decode(t, w)
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.code, resp.Error.Code)
		})
	}
}

func TestInternalErrorHidesDetails(t *testing.T) {
	w := httptest.NewRecorder()
	InternalError(w, stderrors.New("dsn=secret"))

	assert.NotContains(t, w.Body.String(), "secret")
}
