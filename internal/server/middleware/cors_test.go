package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	t.Run("wildcard", func(t *testing.T) {
		w := httptest.NewRecorder()
		CORS(DefaultCORSConfig())(next).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/data.json", nil))

		assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("listed origin", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowedOrigins = []string{"https://data.gov"}

		req := httptest.NewRequest(http.MethodGet, "/data.json", nil)
		req.Header.Set("Origin", "https://data.gov")
		w := httptest.NewRecorder()
		CORS(cfg)(next).ServeHTTP(w, req)

		assert.Equal(t, "https://data.gov", w.Header().Get("Access-Control-Allow-Origin"))
		assert.Equal(t, "Origin", w.Header().Get("Vary"))
	})

	t.Run("unlisted origin", func(t *testing.T) {
		cfg := DefaultCORSConfig()
		cfg.AllowedOrigins = []string{"https://data.gov"}

		req := httptest.NewRequest(http.MethodGet, "/data.json", nil)
		req.Header.Set("Origin", "https://evil.example")
		w := httptest.NewRecorder()
		CORS(cfg)(next).ServeHTTP(w, req)

		assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
	})

	t.Run("preflight short-circuits", func(t *testing.T) {
		called := false
		h := CORS(DefaultCORSConfig())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			called = true
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/data.json", nil))

		assert.False(t, called)
		assert.Equal(t, http.StatusNoContent, w.Code)
	})
}
