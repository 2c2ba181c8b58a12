// Package transform converts remote exchange records into canonical records.
//
// A transform runs six steps in order: dialect normalization, field mapping,
// resource synthesis, per-source defaults, extension overflow and resource
// identity preservation. The remote record is validated against the import
// schema of its dialect before any mapping happens.
package transform

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/identity"
	"github.com/agentstation/harvester/pkg/logging"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/schema"
)

// Input carries the per-record context of a transform.
type Input struct {
	// Variant is the dialect of the remote record.
	Variant dialect.Variant
	// Defaults holds per-source values keyed by remote field name.
	Defaults map[string]any
	// ID is the record ID decided by the reconciler.
	ID string
	// Existing is the stored record on update, nil on create.
	Existing *records.Record
	// OwnerOrg is the organization owning the harvest source.
	OwnerOrg string
	// SourceID is the harvest source the record came from.
	SourceID string
	// Hash is the content hash of the remote record.
	Hash string
}

// Transformer maps remote records to canonical records.
type Transformer struct {
	validator *schema.Validator
	resolver  *identity.Resolver
	newID     func() string
	strict    bool
	logger    *zerolog.Logger
}

// Option configures a Transformer.
type Option func(*Transformer)

// WithIDGenerator sets the generator for new resource IDs.
func WithIDGenerator(fn func() string) Option {
	return func(t *Transformer) {
		if fn != nil {
			t.newID = fn
		}
	}
}

// WithStrictFormats makes format normalization reject unknown media types.
// Rejected formats are left blank on the resource.
func WithStrictFormats(strict bool) Option {
	return func(t *Transformer) {
		t.strict = strict
	}
}

// WithLogger sets the transformer logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(t *Transformer) {
		if logger != nil {
			t.logger = logger
		}
	}
}

// New creates a Transformer. A nil validator skips import validation.
func New(validator *schema.Validator, resolver *identity.Resolver, opts ...Option) *Transformer {
	t := &Transformer{
		validator: validator,
		resolver:  resolver,
		newID:     records.NewID,
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Transform produces the canonical record for remote.
func (t *Transformer) Transform(ctx context.Context, remote records.Remote, in Input) (*records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	normalized := dialect.Normalize(remote, in.Variant)

	if t.validator != nil {
		if err := t.validator.Check(normalized, in.Variant, schema.Import); err != nil {
			return nil, err
		}
	}

	rec := &records.Record{
		ID:       in.ID,
		OwnerOrg: in.OwnerOrg,
		SourceID: in.SourceID,
		State:    records.StateActive,
		Extras:   records.NewExtras(),
	}
	if in.Existing != nil {
		rec.CreatedAt = in.Existing.CreatedAt
		if rec.OwnerOrg == "" {
			rec.OwnerOrg = in.Existing.OwnerOrg
		}
	}

	consumed := mapFields(rec, normalized, in.Defaults)
	rec.Resources = t.synthesizeResources(rec, normalized)
	rec.Extras = overflow(normalized, consumed)
	rec.Metadata.SourceHash = in.Hash
	t.preserveResourceIDs(rec, in.Existing)

	if t.resolver != nil {
		name, err := t.resolver.Slug(ctx, rec.Title, in.ID, false)
		if err != nil {
			return nil, err
		}
		rec.Name = name
	} else if in.Existing != nil && in.Existing.Name != "" && !records.IsTombstoneName(in.Existing.Name) {
		rec.Name = in.Existing.Name
	} else {
		rec.Name = identity.Munge(rec.Title, false)
	}

	t.logger.Debug().
		Str("identifier", rec.Metadata.Identifier).
		Str("name", rec.Name).
		Int("resources", len(rec.Resources)).
		Int("extras", rec.Extras.Len()).
		Msg("transformed record")
	return rec, nil
}

// overflow places every remote field no mapping consumed into the
// extension bag.
func overflow(remote records.Remote, consumed map[string]bool) *records.Extras {
	unmapped := make(map[string]any)
	for key, value := range remote {
		if consumed[key] {
			continue
		}
		unmapped[key] = value
	}
	return records.ExtrasFromMap(unmapped)
}

func (t *Transformer) preserveResourceIDs(rec *records.Record, existing *records.Record) {
	for i := range rec.Resources {
		if existing != nil {
			if prev, ok := existing.ResourceByURL(rec.Resources[i].URL); ok && prev.ID != "" {
				rec.Resources[i].ID = prev.ID
				continue
			}
		}
		rec.Resources[i].ID = t.newID()
	}
}
