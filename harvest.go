package harvester

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/agentstation/harvester/pkg/differ"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/hasher"
	"github.com/agentstation/harvester/pkg/logging"
	"github.com/agentstation/harvester/pkg/reconciler"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/sources"
	pkgsync "github.com/agentstation/harvester/pkg/sync"
	"github.com/agentstation/harvester/pkg/transform"
)

// run is the state shared by the units of one harvest run.
type run struct {
	src     sources.Source
	cfg     sources.Config
	opts    *pkgsync.Options
	logger  *zerolog.Logger
	mu      sync.Mutex
	result  *pkgsync.Result
	changes *differ.Changeset
}

func (r *run) fail(identifier string, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.result.Fail(identifier, err)
}

func (r *run) added(rec *records.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes.Added = append(r.changes.Added, rec)
}

func (r *run) updated(u differ.RecordUpdate) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes.Updated = append(r.changes.Updated, u)
}

func (r *run) removed(rec *records.Record) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes.Removed = append(r.changes.Removed, rec)
}

// Harvest implements Harvester.
func (c *client) Harvest(ctx context.Context, src sources.Source, opts ...pkgsync.Option) (*pkgsync.Result, error) {
	// Step 0: Set context
	if ctx == nil {
		ctx = context.Background()
	}

	// Step 1: Parse and validate options
	options := pkgsync.Defaults()
	options.Concurrency = c.options.concurrency
	options.Apply(opts...)
	if err := options.Validate(); err != nil {
		return nil, err
	}
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if options.RunID == "" {
		options.RunID = records.NewID()
	}

	// Step 2: Setup context with timeout and logger
	var cancel context.CancelFunc
	if options.Timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, options.Timeout)
	} else {
		cancel = func() {}
	}
	defer cancel()
	if c.options.logger != nil {
		ctx = logging.WithLogger(ctx, c.options.logger)
	}
	ctx = logging.WithSourceID(logging.WithRunID(ctx, options.RunID), src.ID.String())
	logger := logging.FromContext(ctx)
	start := time.Now()

	// Step 3: Serialize runs per source
	if !options.DryRun {
		release, err := c.options.locker.Acquire(ctx, src.ID.String())
		if err != nil {
			logger.Warn().Err(err).Msg("source is locked, skipping run")
			c.options.metrics.ObserveRun(src.ID.String(), "locked", start)
			return nil, err
		}
		defer func() {
			if err := release(context.Background()); err != nil {
				logger.Warn().Err(err).Msg("could not release source lock")
			}
		}()
	}

	// Step 4: Parse the source configuration
	cfg, cfgErr := sources.ParseConfig(src.Config)
	if cfgErr != nil {
		logger.Warn().Err(cfgErr).Msg("source configuration partly ignored")
	}

	r := &run{
		src:    src,
		cfg:    cfg,
		opts:   options,
		logger: logger,
		result: pkgsync.NewResult(src.ID, options.RunID, options.DryRun),
	}
	r.changes = r.result.Changeset

	// Step 5: Discover
	decisions, err := c.discover(ctx, r)
	if err != nil {
		c.options.metrics.ObserveRun(src.ID.String(), "failed", start)
		return nil, err
	}

	// Step 6: Snapshot
	traces := c.snapshot(ctx, r, decisions.Pending())

	// Step 7: Materialize
	if err := c.materializeAll(ctx, r, decisions.Pending(), traces); err != nil {
		r.result.Finalize()
		c.options.metrics.ObserveRun(src.ID.String(), "canceled", start)
		return r.result, err
	}

	// Step 8: Withdraw
	if err := c.withdrawAll(ctx, r, decisions.Filter(reconciler.ActionWithdraw)); err != nil {
		r.result.Finalize()
		c.options.metrics.ObserveRun(src.ID.String(), "canceled", start)
		return r.result, err
	}

	r.result.Finalize()
	outcome := "success"
	if !r.result.IsSuccess() {
		outcome = "partial"
	}
	c.options.metrics.ObserveRun(src.ID.String(), outcome, start)

	// Step 9: Log change summary
	if r.result.HasChanges() {
		logger.Info().
			Int("created", r.result.Metadata.Stats.Created).
			Int("updated", r.result.Metadata.Stats.Updated).
			Int("withdrawn", r.result.Metadata.Stats.Withdrawn).
			Int("failed", r.result.Metadata.Stats.Failed).
			Bool("dry_run", options.DryRun).
			Msg("Changes detected")
	} else {
		logger.Info().Int("failed", r.result.Metadata.Stats.Failed).Msg("No changes detected")
	}

	if !options.DryRun {
		c.hooks.completed(r.result)
	}
	return r.result, nil
}

// HarvestAll implements Harvester. A locked or failing source does not stop
// the others; their errors are joined.
func (c *client) HarvestAll(ctx context.Context, opts ...pkgsync.Option) ([]*pkgsync.Result, error) {
	options := pkgsync.NewOptions(opts...)
	var results []*pkgsync.Result
	var errs []error
	for _, src := range c.options.sources.List() {
		if !options.Includes(src.ID) {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		result, err := c.Harvest(ctx, src, opts...)
		if result != nil {
			results = append(results, result)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}

// discover fetches the remote catalog and reconciles it against the
// current traces of the source. Nothing is written.
func (c *client) discover(ctx context.Context, r *run) (*reconciler.Result, error) {
	r.logger.Debug().Str("url", r.src.URL).Msg("Fetching")
	snapshot, err := c.options.fetcher.Fetch(ctx, r.src)
	if err != nil {
		r.logger.Error().Err(err).Msg("fetch failed, local catalog left untouched")
		return nil, err
	}

	index, err := c.index(ctx, r)
	if err != nil {
		return nil, err
	}

	decisions, err := c.reconciler.Reconcile(ctx, snapshot, index, r.cfg)
	if err != nil {
		return nil, err
	}
	for i := range decisions.Errors {
		var dup *errors.DuplicateIdentifierError
		if errors.As(decisions.Errors[i], &dup) && dup.Source == "" {
			dup.Source = r.src.ID.String()
		}
	}
	for _, d := range decisions.Decisions {
		c.options.metrics.ObserveDecision(r.src.ID.String(), string(d.Action))
	}
	r.result.Reconcile = decisions
	r.logger.Debug().Msg(decisions.Summary())
	return decisions, nil
}

// index builds the reconciler index from the current traces of the source.
func (c *client) index(ctx context.Context, r *run) (reconciler.Index, error) {
	traces, err := c.store.CurrentTraces(ctx, r.src.ID.String())
	if err != nil {
		return nil, err
	}
	index := make(reconciler.Index, len(traces))
	for _, t := range traces {
		rec, err := c.store.Get(ctx, t.RecordID)
		if errors.IsNotFound(err) {
			r.logger.Warn().Str("identifier", t.Identifier).Str("record_id", t.RecordID).Msg("current trace without record")
			continue
		}
		if err != nil {
			return nil, err
		}
		index[t.Identifier] = reconciler.IndexEntry{Record: rec, Hash: t.Hash, State: rec.State}
	}
	return index, nil
}

// snapshot stores one non-current trace per pending decision. A unit whose
// trace cannot be stored fails here and is not materialized.
func (c *client) snapshot(ctx context.Context, r *run, pending []reconciler.Decision) map[string]*records.Trace {
	traces := make(map[string]*records.Trace, len(pending))
	for _, d := range pending {
		content, err := hasher.Canonical(d.Remote)
		if err != nil {
			r.fail(d.Identifier, err)
			continue
		}
		trace := &records.Trace{
			SourceID:   r.src.ID.String(),
			RunID:      r.opts.RunID,
			Identifier: d.Identifier,
			RecordID:   d.RecordID,
			Hash:       d.Hash,
			Content:    string(content),
		}
		if !r.opts.DryRun {
			if err := c.store.SaveTrace(ctx, trace); err != nil {
				r.logger.Warn().Err(err).Str("identifier", d.Identifier).Msg("could not store trace")
				r.fail(d.Identifier, err)
				continue
			}
		}
		traces[d.Identifier] = trace
	}
	return traces
}

// materializeAll runs every pending unit with bounded parallelism. Unit
// faults are recorded on the result; only cancellation is returned.
func (c *client) materializeAll(ctx context.Context, r *run, pending []reconciler.Decision, traces map[string]*records.Trace) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.Concurrency)
	for _, d := range pending {
		trace, ok := traces[d.Identifier]
		if !ok {
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := c.materialize(gctx, r, d, trace); err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				r.logger.Warn().Err(err).Str("identifier", d.Identifier).Msg("record not materialized")
				c.options.metrics.ObserveFailure(r.src.ID.String(), failureKind(err))
				r.fail(d.Identifier, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// materialize transforms one remote record, writes it and marks its trace
// current.
func (c *client) materialize(ctx context.Context, r *run, d reconciler.Decision, trace *records.Trace) error {
	rec, err := c.transformer.Transform(ctx, d.Remote, transform.Input{
		Variant:  r.cfg.Variant,
		Defaults: r.cfg.Defaults,
		ID:       d.RecordID,
		Existing: d.Existing,
		OwnerOrg: r.src.OwnerOrg,
		SourceID: r.src.ID.String(),
		Hash:     d.Hash,
	})
	if err != nil {
		return err
	}

	if !r.opts.DryRun {
		if err := c.write(ctx, d.Action, rec); err != nil {
			return err
		}
		if err := c.store.MarkCurrent(ctx, trace.ID); err != nil {
			return err
		}
	}

	switch d.Action {
	case reconciler.ActionCreate:
		r.logger.Info().Str("identifier", d.Identifier).Str("name", rec.Name).Msg("created record")
		r.added(rec)
		if !r.opts.DryRun {
			c.hooks.created(rec)
		}
	case reconciler.ActionUpdate:
		update := c.differ.Update(d.Existing, rec)
		r.logger.Info().
			Str("identifier", d.Identifier).
			Str("name", rec.Name).
			Int("changes", len(update.Changes)).
			Msg("updated record")
		r.updated(update)
		if !r.opts.DryRun {
			c.hooks.updated(d.Existing, rec, update.Changes)
		}
	}
	return nil
}

// write stores rec. When a parallel unit took the same name between slug
// resolution and the write, the slug is resolved again once.
func (c *client) write(ctx context.Context, action reconciler.Action, rec *records.Record) error {
	err := c.put(ctx, action, rec)
	if err == nil || !errors.IsPersist(err) {
		return err
	}
	owner, taken, lookupErr := c.store.NameOwner(ctx, rec.Name)
	if lookupErr != nil || !taken || owner == rec.ID {
		return err
	}
	name, slugErr := c.resolver.Slug(ctx, rec.Title, rec.ID, false)
	if slugErr != nil {
		return slugErr
	}
	rec.Name = name
	return c.put(ctx, action, rec)
}

func (c *client) put(ctx context.Context, action reconciler.Action, rec *records.Record) error {
	if action == reconciler.ActionCreate {
		return c.store.Create(ctx, rec)
	}
	return c.store.Update(ctx, rec)
}

// withdrawAll tombstones every record the snapshot no longer carries.
func (c *client) withdrawAll(ctx context.Context, r *run, withdrawals []reconciler.Decision) error {
	for _, d := range withdrawals {
		if err := ctx.Err(); err != nil {
			return err
		}
		if d.Existing == nil {
			continue
		}
		name, err := c.resolver.Slug(ctx, d.Existing.Title, d.RecordID, true)
		if err != nil {
			r.fail(d.Identifier, err)
			c.options.metrics.ObserveFailure(r.src.ID.String(), failureKind(err))
			continue
		}

		gone := d.Existing.Clone()
		gone.Name = name
		gone.State = records.StateDeleted
		if !r.opts.DryRun {
			if err := c.store.Tombstone(ctx, d.RecordID, name); err != nil {
				r.logger.Warn().Err(err).Str("identifier", d.Identifier).Msg("record not withdrawn")
				r.fail(d.Identifier, err)
				c.options.metrics.ObserveFailure(r.src.ID.String(), failureKind(err))
				continue
			}
		}
		r.logger.Info().Str("identifier", d.Identifier).Str("name", name).Msg("withdrew record")
		r.removed(gone)
		if !r.opts.DryRun {
			c.hooks.withdrawn(gone)
		}
	}
	return nil
}

// failureKind labels a unit fault for metrics.
func failureKind(err error) string {
	switch {
	case errors.IsSchemaViolation(err):
		return "schema"
	case errors.Is(err, errors.ErrIdentity):
		return "identity"
	case errors.Is(err, errors.ErrUnclassifiable):
		return "format"
	case errors.IsPersist(err):
		return "persist"
	default:
		return "other"
	}
}
