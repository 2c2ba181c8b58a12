// Package transport provides the HTTP client used to download remote
// catalogs, with optional per-source authentication.
package transport

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
)

// ErrTooLarge is returned by ReadLimited when the body exceeds the limit.
var ErrTooLarge = errors.New("response body too large")

// Client performs catalog requests.
type Client struct {
	http      *http.Client
	userAgent string
}

// New creates a client with the given timeout and User-Agent.
func New(timeout time.Duration, userAgent string) *Client {
	if timeout <= 0 {
		timeout = constants.DefaultHTTPTimeout
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// NewWithHTTPClient wraps an existing http.Client.
func NewWithHTTPClient(c *http.Client, userAgent string) *Client {
	return &Client{http: c, userAgent: userAgent}
}

// Get performs a JSON GET request, applying auth when configured.
func (c *Client) Get(ctx context.Context, url string, auth *Auth) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	key, err := auth.Key()
	if err != nil {
		return nil, err
	}
	if key != "" {
		auth.Authenticator().Apply(req, key)
	}

	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}
	return c.http.Do(req)
}

// ReadLimited reads at most limit bytes of the body and closes it.
func ReadLimited(resp *http.Response, limit int64) ([]byte, error) {
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, err
	}
	if int64(len(body)) > limit {
		return nil, ErrTooLarge
	}
	return body, nil
}
