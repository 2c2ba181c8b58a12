// Package sync provides the per-run options and the result of a harvest run.
package sync

import (
	"time"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/sources"
)

// Options controls one call to Harvest.
type Options struct {
	DryRun      bool          // Reconcile and transform without writing
	Timeout     time.Duration // Timeout for the whole run, 0 for none
	Concurrency int           // Records materialized in parallel

	// Sources restricts HarvestAll to these sources (empty means all).
	Sources []sources.ID

	// RunID tags traces and logs of the run. Generated when empty.
	RunID string
}

// Apply applies the given options to the run options.
func (o *Options) Apply(opts ...Option) *Options {
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Defaults returns the default run options.
func Defaults() *Options {
	return &Options{
		DryRun:      false,
		Timeout:     constants.HarvestTimeout,
		Concurrency: constants.DefaultConcurrency,
	}
}

// NewOptions returns the defaults with opts applied.
func NewOptions(opts ...Option) *Options {
	return Defaults().Apply(opts...)
}

// Option is a function that configures run Options.
type Option func(*Options)

// Validate checks the run options.
func (o *Options) Validate() error {
	if o.Timeout < 0 {
		return &errors.ValidationError{
			Field:   "Timeout",
			Value:   o.Timeout,
			Message: "timeout must be non-negative",
		}
	}
	if o.Concurrency < 1 || o.Concurrency > constants.MaxConcurrency {
		return &errors.ValidationError{
			Field:   "Concurrency",
			Value:   o.Concurrency,
			Message: "concurrency must be between 1 and 64",
		}
	}
	return nil
}

// Includes reports whether id is selected by the Sources filter.
func (o *Options) Includes(id sources.ID) bool {
	if len(o.Sources) == 0 {
		return true
	}
	for _, s := range o.Sources {
		if s == id {
			return true
		}
	}
	return false
}

// WithDryRun configures dry run mode.
func WithDryRun(dryRun bool) Option {
	return func(opts *Options) {
		opts.DryRun = dryRun
	}
}

// WithTimeout configures the run timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

// WithConcurrency configures materialize parallelism.
func WithConcurrency(n int) Option {
	return func(opts *Options) {
		opts.Concurrency = n
	}
}

// WithSources restricts a multi-source run to the given sources.
func WithSources(ids ...sources.ID) Option {
	return func(opts *Options) {
		opts.Sources = ids
	}
}

// WithRunID sets the run ID.
func WithRunID(id string) Option {
	return func(opts *Options) {
		opts.RunID = id
	}
}
