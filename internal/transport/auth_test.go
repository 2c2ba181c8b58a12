package transport

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/agentstation/harvester/pkg/errors"
)

func newRequest(t *testing.T) *http.Request {
	t.Helper()
	u, err := url.Parse("https://agency.gov/data.json?page=1")
	if err != nil {
		t.Fatal(err)
	}
	return &http.Request{URL: u, Header: make(http.Header)}
}

func TestAuthenticators(t *testing.T) {
	tests := []struct {
		name   string
		auth   *Auth
		header string
		value  string
		query  string
	}{
		{"nil", nil, "Authorization", "", ""},
		{"bearer", &Auth{Scheme: SchemeBearer}, "Authorization", "Bearer k", ""},
		{"basic", &Auth{Scheme: SchemeBasic}, "Authorization", "Basic k", ""},
		{"header", &Auth{Scheme: SchemeHeader, Header: "X-Api-Key"}, "X-Api-Key", "k", ""},
		{"query", &Auth{Scheme: SchemeQuery, Param: "api_key"}, "Authorization", "", "k"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t)
			tt.auth.Authenticator().Apply(req, "k")
			assert.Equal(t, tt.value, req.Header.Get(tt.header))
			assert.Equal(t, tt.query, req.URL.Query().Get("api_key"))
			assert.Equal(t, "1", req.URL.Query().Get("page"))
		})
	}
}

func TestQueryAuthWithoutURL(t *testing.T) {
	req := &http.Request{Header: make(http.Header)}
	(&QueryAuth{Param: "k"}).Apply(req, "v")
	assert.Nil(t, req.URL)
}

func TestAuthValidate(t *testing.T) {
	tests := []struct {
		name string
		auth *Auth
		ok   bool
	}{
		{"nil", nil, true},
		{"none", &Auth{}, true},
		{"bearer", &Auth{Scheme: SchemeBearer, KeyEnv: "TOKEN"}, true},
		{"bearer without env", &Auth{Scheme: SchemeBearer}, false},
		{"header without name", &Auth{Scheme: SchemeHeader, KeyEnv: "TOKEN"}, false},
		{"query without param", &Auth{Scheme: SchemeQuery, KeyEnv: "TOKEN"}, false},
		{"unknown", &Auth{Scheme: "digest", KeyEnv: "TOKEN"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.auth.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.True(t, errors.IsValidationError(err))
		})
	}
}

func TestAuthKey(t *testing.T) {
	auth := &Auth{Scheme: SchemeBearer, KeyEnv: "HARVESTER_TEST_TOKEN"}

	t.Setenv("HARVESTER_TEST_TOKEN", "")
	_, err := auth.Key()
	assert.True(t, errors.IsConfig(err))

	t.Setenv("HARVESTER_TEST_TOKEN", "s3cret")
	key, err := auth.Key()
	assert.NoError(t, err)
	assert.Equal(t, "s3cret", key)

	var none *Auth
	key, err = none.Key()
	assert.NoError(t, err)
	assert.Empty(t, key)
}
