// Package app provides the application context and dependency management
// for the harvester CLI: configuration, logging, and the lazily opened
// harvester client with its store and lock.
package app

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester"
	"github.com/agentstation/harvester/internal/appcontext"
	"github.com/agentstation/harvester/internal/publish"
	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/lock"
	"github.com/agentstation/harvester/pkg/metrics"
	"github.com/agentstation/harvester/pkg/schema"
	"github.com/agentstation/harvester/pkg/sources"
	"github.com/agentstation/harvester/pkg/store"
)

var _ appcontext.Interface = (*App)(nil)

// App represents the harvester application with all its dependencies.
type App struct {
	version string
	commit  string
	date    string
	builtBy string

	config *Config
	logger *zerolog.Logger
	out    io.Writer

	metrics *metrics.Metrics

	// Lazily opened on first use
	mu      sync.Mutex
	client  harvester.Client
	store   store.Store
	closers []func() error
}

// New creates a new App with the given version information.
func New(version, commit, date, builtBy string, opts ...Option) (*App, error) {
	app := &App{
		version: version,
		commit:  commit,
		date:    date,
		builtBy: builtBy,
		out:     os.Stdout,
		metrics: metrics.New(nil),
	}

	config, err := LoadConfig(os.Getenv(EnvPrefix + "_CONFIG"))
	if err != nil {
		return nil, err
	}
	app.config = config

	logger := NewLogger(config)
	app.logger = &logger

	for _, opt := range opts {
		if err := opt(app); err != nil {
			return nil, err
		}
	}
	return app, nil
}

// Version returns the version information.
func (a *App) Version() string {
	return a.version
}

// Config returns the application configuration.
func (a *App) Config() *Config {
	return a.config
}

// Logger returns the application logger.
func (a *App) Logger() *zerolog.Logger {
	return a.logger
}

// OutputFormat returns the configured output format.
func (a *App) OutputFormat() string {
	return a.config.Format
}

// Out returns where command results are written.
func (a *App) Out() io.Writer {
	return a.out
}

// Metrics returns the metrics shared by the client and the server.
func (a *App) Metrics() *metrics.Metrics {
	return a.metrics
}

// S3Config returns the object storage settings.
func (a *App) S3Config() publish.S3Config {
	return a.config.S3
}

// APIKey returns the key guarding the server's admin routes.
func (a *App) APIKey() string {
	return a.config.APIKey
}

// Validator returns the default schema validator.
func (a *App) Validator() (*schema.Validator, error) {
	return schema.Default()
}

// Harvester returns the harvester client, creating it on first use.
func (a *App) Harvester(ctx context.Context) (harvester.Client, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		return a.client, nil
	}

	set, err := a.loadSources()
	if err != nil {
		return nil, err
	}

	st, err := store.Open(ctx, a.config.StoreURL)
	if err != nil {
		return nil, err
	}
	a.store = st
	a.closers = append(a.closers, st.Close)

	var locker lock.Locker = lock.NewLocal()
	if a.config.RedisURL != "" {
		redisLock, err := lock.DialRedis(ctx, a.config.RedisURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, redisLock.Close)
		locker = redisLock
	}

	client, err := harvester.New(st,
		harvester.WithSources(set),
		harvester.WithLocker(locker),
		harvester.WithMetrics(a.metrics),
		harvester.WithLogger(a.logger),
		harvester.WithConcurrency(a.config.Concurrency),
		harvester.WithExportVariant(dialect.ParseVariant(a.config.ExportVariant)),
		harvester.WithStrictFormats(a.config.StrictFormats),
		harvester.WithAutoHarvestInterval(a.config.AutoHarvestInterval),
	)
	if err != nil {
		return nil, err
	}

	a.logger.Debug().
		Str("store", redactURL(a.config.StoreURL)).
		Int("sources", set.Len()).
		Bool("redis_lock", a.config.RedisURL != "").
		Msg("Harvester ready")

	a.client = client
	return client, nil
}

// loadSources reads the sources file. A missing default file yields an
// empty set; a missing explicitly configured file is an error.
func (a *App) loadSources() (*sources.Sources, error) {
	path := a.config.SourcesFile
	if path == "" {
		return sources.NewSources(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		a.logger.Warn().Str("path", path).Msg("Sources file not found, no sources configured")
		return sources.NewSources(), nil
	}
	set, err := sources.LoadSources(path)
	if err != nil {
		return nil, err
	}
	return set, nil
}

// Shutdown stops auto-harvest and releases the store and the lock client.
func (a *App) Shutdown(_ context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.client != nil {
		if err := a.client.AutoHarvestOff(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to stop auto-harvest during shutdown")
		}
	}

	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// redactURL hides credentials in a store URL for logging.
func redactURL(url string) string {
	scheme, rest, ok := strings.Cut(url, "://")
	if !ok {
		return url
	}
	if at := strings.LastIndex(rest, "@"); at >= 0 {
		return scheme + "://***" + rest[at:]
	}
	return url
}

// Option is a functional option for configuring the App.
type Option func(*App) error

// WithConfig sets a custom configuration.
func WithConfig(config *Config) Option {
	return func(a *App) error {
		a.config = config
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(a *App) error {
		a.logger = logger
		return nil
	}
}

// WithOutput sets where command results are written.
func WithOutput(w io.Writer) Option {
	return func(a *App) error {
		a.out = w
		return nil
	}
}

// WithHarvester sets a prebuilt client (useful for testing).
func WithHarvester(client harvester.Client) Option {
	return func(a *App) error {
		a.client = client
		return nil
	}
}
