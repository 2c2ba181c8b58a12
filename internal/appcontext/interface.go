// Package appcontext provides the application context interface shared by
// all commands, so command packages depend on an interface rather than on
// the concrete App.
package appcontext

import (
	"context"
	"io"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester"
	"github.com/agentstation/harvester/internal/publish"
	"github.com/agentstation/harvester/pkg/metrics"
	"github.com/agentstation/harvester/pkg/schema"
)

// Interface defines what commands need from the application.
type Interface interface {
	// Harvester returns the harvester client, opening its store and lock
	// on first use.
	Harvester(ctx context.Context) (harvester.Client, error)

	// Validator returns the schema validator.
	Validator() (*schema.Validator, error)

	// Metrics returns the metrics shared by the client and the server.
	Metrics() *metrics.Metrics

	// S3Config returns the object storage settings used by export.
	S3Config() publish.S3Config

	// APIKey returns the key guarding the server's admin routes.
	APIKey() string

	// Logger returns the configured logger instance.
	Logger() *zerolog.Logger

	// OutputFormat returns the configured output format (table, json, yaml).
	OutputFormat() string

	// Out is where command results are written.
	Out() io.Writer

	// Version returns the application version string.
	Version() string
}
