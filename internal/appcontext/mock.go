package appcontext

import (
	"bytes"
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester"
	"github.com/agentstation/harvester/internal/publish"
	"github.com/agentstation/harvester/pkg/metrics"
	"github.com/agentstation/harvester/pkg/schema"
)

var _ Interface = (*Mock)(nil)

// Mock provides an Interface for command tests. Zero fields fall back to
// defaults: the default validator, a no-op logger and an in-memory output.
type Mock struct {
	Client        harvester.Client
	ClientErr     error
	MetricsValue  *metrics.Metrics
	S3            publish.S3Config
	Key           string
	Format        string
	Buffer        bytes.Buffer
	LoggerFunc    func() *zerolog.Logger
	ValidatorFunc func() (*schema.Validator, error)
}

// Harvester returns the configured client.
func (m *Mock) Harvester(context.Context) (harvester.Client, error) {
	return m.Client, m.ClientErr
}

// Validator returns the validator from ValidatorFunc or the default one.
func (m *Mock) Validator() (*schema.Validator, error) {
	if m.ValidatorFunc != nil {
		return m.ValidatorFunc()
	}
	return schema.Default()
}

// Metrics returns the configured metrics, creating them on first use.
func (m *Mock) Metrics() *metrics.Metrics {
	if m.MetricsValue == nil {
		m.MetricsValue = metrics.New(nil)
	}
	return m.MetricsValue
}

// S3Config returns the configured object storage settings.
func (m *Mock) S3Config() publish.S3Config {
	return m.S3
}

// APIKey returns the configured key.
func (m *Mock) APIKey() string {
	return m.Key
}

// Logger returns a logger using the mock function or a no-op logger.
func (m *Mock) Logger() *zerolog.Logger {
	if m.LoggerFunc != nil {
		return m.LoggerFunc()
	}
	logger := zerolog.Nop()
	return &logger
}

// OutputFormat returns the configured format, json by default.
func (m *Mock) OutputFormat() string {
	if m.Format == "" {
		return "json"
	}
	return m.Format
}

// Out returns the in-memory buffer.
func (m *Mock) Out() io.Writer {
	return &m.Buffer
}

// Version returns "dev".
func (m *Mock) Version() string {
	return "dev"
}
