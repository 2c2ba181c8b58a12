package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/harvester/pkg/logging"
)

func TestAuth(t *testing.T) {
	ok := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	})

	tests := []struct {
		name    string
		key     string
		headers map[string]string
		status  int
	}{
		{"header key", "secret", map[string]string{"X-API-Key": "secret"}, http.StatusAccepted},
		{"bearer key", "secret", map[string]string{"Authorization": "Bearer secret"}, http.StatusAccepted},
		{"wrong key", "secret", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"missing key", "secret", nil, http.StatusUnauthorized},
		{"unconfigured key", "", map[string]string{"X-API-Key": ""}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultAuthConfig()
			cfg.APIKey = tt.key
			h := Auth(cfg, logging.NewNopLogger())(ok)

			req := httptest.NewRequest(http.MethodPost, "/harvest", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.Contains(t, w.Body.String(), "UNAUTHORIZED")
			}
		})
	}
}
