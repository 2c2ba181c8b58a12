package reconciler

import (
	"github.com/rs/zerolog"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/logging"
	"github.com/agentstation/harvester/pkg/records"
)

// options configures a reconciler.
type options struct {
	version string
	newID   func() string
	logger  *zerolog.Logger
}

func defaultOptions() *options {
	return &options{
		version: constants.HarvesterVersion,
		newID:   records.NewID,
		logger:  logging.Default(),
	}
}

// Option is a function that configures a Reconciler.
type Option func(*options) error

func (options *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if err := opt(options); err != nil {
			return nil, err
		}
	}
	return options, nil
}

// newOptions returns reconciler options with default values.
func newOptions(opts ...Option) (*options, error) {
	return defaultOptions().apply(opts...)
}

// WithHasherVersion sets the pipeline version folded into content hashes.
// Changing it forces every known record to update on the next run.
func WithHasherVersion(version string) Option {
	return func(o *options) error {
		if version == "" {
			return &errors.ValidationError{
				Field:   "version",
				Message: "cannot be empty",
			}
		}
		o.version = version
		return nil
	}
}

// WithIDGenerator sets the generator for identity tokens of new records.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) error {
		if fn == nil {
			return &errors.ValidationError{
				Field:   "id generator",
				Message: "cannot be nil",
			}
		}
		o.newID = fn
		return nil
	}
}

// WithLogger sets the reconciler logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		if logger != nil {
			o.logger = logger
		}
		return nil
	}
}
