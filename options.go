package harvester

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/lock"
	"github.com/agentstation/harvester/pkg/metrics"
	"github.com/agentstation/harvester/pkg/schema"
	"github.com/agentstation/harvester/pkg/sources"
)

// options holds the configuration of a Client.
type options struct {
	fetcher     sources.Fetcher
	locker      lock.Locker
	validator   *schema.Validator
	metrics     *metrics.Metrics
	logger      *zerolog.Logger
	version     string
	newID       func() string
	suffix      func() string
	strict      bool
	concurrency int
	variant     dialect.Variant
	sources     *sources.Sources

	autoHarvestEnabled  bool
	autoHarvestInterval time.Duration
}

func defaults() *options {
	return &options{
		fetcher:             sources.NewFetcher(),
		locker:              lock.NewLocal(),
		version:             constants.HarvesterVersion,
		concurrency:         constants.DefaultConcurrency,
		variant:             dialect.Federal,
		sources:             sources.NewSources(),
		autoHarvestInterval: time.Hour,
	}
}

func (o *options) apply(opts ...Option) (*options, error) {
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		if err := opt(o); err != nil {
			return nil, err
		}
	}
	return o, nil
}

// Option is a function that configures a Client.
type Option func(*options) error

// WithFetcher replaces the remote catalog fetcher.
func WithFetcher(f sources.Fetcher) Option {
	return func(o *options) error {
		if f == nil {
			return errors.NewValidationError("fetcher", nil, "fetcher cannot be nil")
		}
		o.fetcher = f
		return nil
	}
}

// WithLocker replaces the per-source run lock.
func WithLocker(l lock.Locker) Option {
	return func(o *options) error {
		if l == nil {
			return errors.NewValidationError("locker", nil, "locker cannot be nil")
		}
		o.locker = l
		return nil
	}
}

// WithValidator replaces the schema validator.
func WithValidator(v *schema.Validator) Option {
	return func(o *options) error {
		o.validator = v
		return nil
	}
}

// WithMetrics records run metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) error {
		o.metrics = m
		return nil
	}
}

// WithLogger sets the logger used when the context carries none.
func WithLogger(logger *zerolog.Logger) Option {
	return func(o *options) error {
		o.logger = logger
		return nil
	}
}

// WithHarvesterVersion overrides the pipeline version mixed into hashes.
func WithHarvesterVersion(version string) Option {
	return func(o *options) error {
		if version == "" {
			return errors.NewValidationError("version", version, "version cannot be empty")
		}
		o.version = version
		return nil
	}
}

// WithIDGenerator replaces the record and resource ID generator.
func WithIDGenerator(fn func() string) Option {
	return func(o *options) error {
		if fn == nil {
			return errors.NewValidationError("newID", nil, "generator cannot be nil")
		}
		o.newID = fn
		return nil
	}
}

// WithSlugSuffixGenerator replaces the slug collision suffix generator.
func WithSlugSuffixGenerator(fn func() string) Option {
	return func(o *options) error {
		o.suffix = fn
		return nil
	}
}

// WithStrictFormats rejects resources whose format cannot be classified.
func WithStrictFormats(strict bool) Option {
	return func(o *options) error {
		o.strict = strict
		return nil
	}
}

// WithConcurrency sets the default materialize parallelism.
func WithConcurrency(n int) Option {
	return func(o *options) error {
		if n < 1 || n > constants.MaxConcurrency {
			return errors.NewValidationError("concurrency", n, "concurrency must be between 1 and 64")
		}
		o.concurrency = n
		return nil
	}
}

// WithExportVariant sets the dialect used for records whose source is unknown.
func WithExportVariant(v dialect.Variant) Option {
	return func(o *options) error {
		o.variant = v
		return nil
	}
}

// WithSources registers the harvest sources used by HarvestAll, auto
// harvests and the export dialect lookup.
func WithSources(set *sources.Sources) Option {
	return func(o *options) error {
		if set == nil {
			return errors.NewValidationError("sources", nil, "sources cannot be nil")
		}
		o.sources = set
		return nil
	}
}

// WithAutoHarvest configures whether periodic harvests start with the client.
func WithAutoHarvest(enabled bool) Option {
	return func(o *options) error {
		o.autoHarvestEnabled = enabled
		return nil
	}
}

// WithAutoHarvestInterval configures how often every source is harvested.
func WithAutoHarvestInterval(interval time.Duration) Option {
	return func(o *options) error {
		o.autoHarvestInterval = interval
		return nil
	}
}
