package harvester

import (
	"context"
	"sync"
	"time"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/differ"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/export"
	"github.com/agentstation/harvester/pkg/identity"
	"github.com/agentstation/harvester/pkg/reconciler"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/schema"
	"github.com/agentstation/harvester/pkg/sources"
	"github.com/agentstation/harvester/pkg/store"
	pkgsync "github.com/agentstation/harvester/pkg/sync"
	"github.com/agentstation/harvester/pkg/transform"
)

// Compile-time interface checks to ensure proper implementation.
var (
	_ Client    = (*client)(nil)
	_ Harvester = (*client)(nil)
	_ Exporter  = (*client)(nil)
)

// Harvester runs harvests.
type Harvester interface {
	// Harvest synchronizes the local catalog with one source.
	Harvest(ctx context.Context, src sources.Source, opts ...pkgsync.Option) (*pkgsync.Result, error)

	// HarvestAll harvests every registered source in ID order.
	HarvestAll(ctx context.Context, opts ...pkgsync.Option) ([]*pkgsync.Result, error)
}

// Exporter builds the exchange document of the local catalog.
type Exporter interface {
	// Export returns the catalog of every active record that passes export
	// validation, plus the faults of the records left out.
	Export(ctx context.Context) (*export.Catalog, []error)
}

// Client manages harvests of a local catalog with periodic runs and event
// hooks.
type Client interface {

	// Harvester runs harvests
	Harvester

	// Exporter builds the exchange document
	Exporter

	// AutoHarvester provides access to periodic harvest controls
	AutoHarvester

	// Hooks provides access to event callback registration
	Hooks

	// Sources returns the registered harvest sources
	Sources() *sources.Sources
}

// client is the internal implementation of the Client interface.
type client struct {

	// options are the configured options for the client
	options *options

	// collaborators
	store       store.Store
	reconciler  reconciler.Reconciler
	transformer *transform.Transformer
	resolver    *identity.Resolver
	exporter    *export.Exporter
	differ      *differ.Differ

	// auto harvest state
	mu          sync.Mutex
	ticker      *time.Ticker       // ticker triggering periodic harvests
	stopCh      chan struct{}      // closed to stop periodic harvests
	harvestStop context.CancelFunc // cancels the periodic harvest goroutine
	hooks       *hooks             // event hooks for record changes
}

// New creates a new Client over st.
func New(st store.Store, opts ...Option) (Client, error) {
	if st == nil {
		return nil, errors.NewValidationError("store", nil, "store cannot be nil")
	}

	o, err := defaults().apply(opts...)
	if err != nil {
		return nil, err
	}
	if o.validator == nil {
		if o.validator, err = schema.Default(); err != nil {
			return nil, err
		}
	}

	c := &client{
		options: o,
		store:   st,
		differ:  differ.New(),
		stopCh:  make(chan struct{}),
		hooks:   newHooks(),
	}

	reconcilerOpts := []reconciler.Option{
		reconciler.WithHasherVersion(o.version),
		reconciler.WithLogger(o.logger),
	}
	transformOpts := []transform.Option{
		transform.WithStrictFormats(o.strict),
		transform.WithLogger(o.logger),
	}
	if o.newID != nil {
		reconcilerOpts = append(reconcilerOpts, reconciler.WithIDGenerator(o.newID))
		transformOpts = append(transformOpts, transform.WithIDGenerator(o.newID))
	}

	if c.reconciler, err = reconciler.New(reconcilerOpts...); err != nil {
		return nil, err
	}
	c.resolver = identity.New(st,
		identity.WithSuffixGenerator(o.suffix),
		identity.WithLogger(o.logger),
	)
	c.transformer = transform.New(o.validator, c.resolver, transformOpts...)
	c.exporter = export.New(o.validator,
		export.WithVariantResolver(c.variantOf),
		export.WithLogger(o.logger),
	)

	if o.autoHarvestEnabled {
		if err := c.AutoHarvestOn(); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// Sources returns the registered harvest sources.
func (c *client) Sources() *sources.Sources {
	return c.options.sources
}

// variantOf picks the export dialect of a record from its source.
func (c *client) variantOf(rec *records.Record) dialect.Variant {
	if src, ok := c.options.sources.Get(sources.ID(rec.SourceID)); ok {
		return src.ParseConfig().Variant
	}
	return c.options.variant
}

// Export implements Exporter.
func (c *client) Export(ctx context.Context) (*export.Catalog, []error) {
	recs, err := c.store.ListActive(ctx)
	if err != nil {
		return &export.Catalog{}, []error{err}
	}
	catalog, errs := c.exporter.Catalog(ctx, recs)
	c.options.metrics.ObserveExport(len(catalog.Datasets), len(errs))
	return catalog, errs
}
