package transport

import (
	"net/http"
	"os"

	"github.com/agentstation/harvester/pkg/errors"
)

// Scheme names how a credential is presented to a catalog endpoint.
type Scheme string

// Supported authentication schemes.
const (
	SchemeNone   Scheme = ""
	SchemeBearer Scheme = "bearer"
	SchemeBasic  Scheme = "basic"
	SchemeHeader Scheme = "header"
	SchemeQuery  Scheme = "query"
)

// Auth configures the credential sent with catalog requests. The secret is
// never stored in the sources file, only the environment variable holding it.
type Auth struct {
	Scheme Scheme `yaml:"scheme" json:"scheme"`
	Header string `yaml:"header" json:"header,omitempty"`
	Param  string `yaml:"param" json:"param,omitempty"`
	KeyEnv string `yaml:"key_env" json:"key_env,omitempty"`
}

// Validate checks that the scheme is known and has what it needs.
func (a *Auth) Validate() error {
	if a == nil {
		return nil
	}
	switch a.Scheme {
	case SchemeNone:
		return nil
	case SchemeBearer, SchemeBasic:
	case SchemeHeader:
		if a.Header == "" {
			return errors.NewValidationError("auth.header", a.Header, "header scheme needs a header name")
		}
	case SchemeQuery:
		if a.Param == "" {
			return errors.NewValidationError("auth.param", a.Param, "query scheme needs a parameter name")
		}
	default:
		return errors.NewValidationError("auth.scheme", a.Scheme, "unknown authentication scheme")
	}
	if a.KeyEnv == "" {
		return errors.NewValidationError("auth.key_env", a.KeyEnv, "key_env is required")
	}
	return nil
}

// Key reads the credential from the environment.
func (a *Auth) Key() (string, error) {
	if a == nil || a.Scheme == SchemeNone {
		return "", nil
	}
	key := os.Getenv(a.KeyEnv)
	if key == "" {
		return "", errors.NewConfigError("auth", "environment variable "+a.KeyEnv+" is not set", nil)
	}
	return key, nil
}

// Authenticator returns the authenticator for the configured scheme.
func (a *Auth) Authenticator() Authenticator {
	if a == nil {
		return &NoAuth{}
	}
	switch a.Scheme {
	case SchemeBearer:
		return &BearerAuth{}
	case SchemeBasic:
		return &BasicAuth{}
	case SchemeHeader:
		return &HeaderAuth{Header: a.Header}
	case SchemeQuery:
		return &QueryAuth{Param: a.Param}
	default:
		return &NoAuth{}
	}
}

// Authenticator applies authentication to HTTP requests.
type Authenticator interface {
	Apply(req *http.Request, key string)
}

// NoAuth implements no authentication.
type NoAuth struct{}

// Apply implements the Authenticator interface for NoAuth.
func (a *NoAuth) Apply(_ *http.Request, _ string) {}

// BearerAuth implements Bearer token authentication.
type BearerAuth struct{}

// Apply implements the Authenticator interface for BearerAuth.
func (a *BearerAuth) Apply(req *http.Request, key string) {
	req.Header.Set("Authorization", "Bearer "+key)
}

// BasicAuth sends the key as a preencoded Basic credential.
type BasicAuth struct{}

// Apply implements the Authenticator interface for BasicAuth.
func (a *BasicAuth) Apply(req *http.Request, key string) {
	req.Header.Set("Authorization", "Basic "+key)
}

// HeaderAuth implements custom header authentication.
type HeaderAuth struct {
	Header string
}

// Apply implements the Authenticator interface for HeaderAuth.
func (a *HeaderAuth) Apply(req *http.Request, key string) {
	req.Header.Set(a.Header, key)
}

// QueryAuth implements API key as query parameter authentication.
type QueryAuth struct {
	Param string
}

// Apply implements the Authenticator interface for QueryAuth.
func (a *QueryAuth) Apply(req *http.Request, key string) {
	if req.URL == nil {
		return
	}
	query := req.URL.Query()
	query.Set(a.Param, key)
	req.URL.RawQuery = query.Encode()
}
