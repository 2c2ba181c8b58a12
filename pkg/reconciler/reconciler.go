// Package reconciler compares a remote snapshot against the local index of
// previously harvested records and decides, per identifier, whether to
// create, update, skip or withdraw. It never writes to storage.
package reconciler

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/hasher"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/sources"
)

// IndexEntry is what the local catalog remembers about one identifier.
type IndexEntry struct {
	Record *records.Record
	Hash   string
	State  records.State
}

// Index maps a remote identifier to its local entry for one source.
type Index map[string]IndexEntry

// Reconciler is the main interface for reconciling a snapshot.
type Reconciler interface {
	// Reconcile classifies every snapshot entry and every indexed identifier.
	Reconcile(ctx context.Context, snapshot []records.Remote, index Index, cfg sources.Config) (*Result, error)
}

// reconciler is the default implementation of Reconciler.
type reconciler struct {
	hasher *hasher.Hasher
	newID  func() string
	logger *zerolog.Logger
}

// New creates a new Reconciler with options.
func New(opts ...Option) (Reconciler, error) {
	options, err := newOptions(opts...)
	if err != nil {
		return nil, err
	}
	return &reconciler{
		hasher: hasher.New(options.version),
		newID:  options.newID,
		logger: options.logger,
	}, nil
}

// Reconcile walks the snapshot in order, then withdraws indexed identifiers
// the snapshot no longer carries. Filters and identifiers are read from the
// dialect-normalized view of each entry; the hash covers the entry as received. Per-entry faults are collected in
// Result.Errors; only cancellation aborts the walk.
func (r *reconciler) Reconcile(ctx context.Context, snapshot []records.Remote, index Index, cfg sources.Config) (*Result, error) {
	result := NewResult()
	result.Metadata.Version = r.hasher.Version()
	defer result.Finalize()

	if len(snapshot) == 0 {
		result.Warnings = append(result.Warnings, "empty snapshot, nothing reconciled")
		r.logger.Warn().Int("indexed", len(index)).Msg("empty snapshot, skipping withdrawals")
		return result, nil
	}

	f := newFilter(cfg)
	seen := make(map[string]int, len(snapshot))

	for pos, remote := range snapshot {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		result.Metadata.Stats.Seen++

		view := dialect.Normalize(remote, cfg.Variant)
		if !f.allows(view) {
			result.Metadata.Stats.Filtered++
			continue
		}

		id := view.Identifier()
		if id == "" {
			result.Metadata.Stats.Invalid++
			result.Errors = append(result.Errors,
				errors.NewValidationError("identifier", pos, "snapshot entry has no identifier"))
			continue
		}

		if first, dup := seen[id]; dup {
			result.Metadata.Stats.Duplicates++
			result.Errors = append(result.Errors, errors.NewDuplicateIdentifierError("", id, pos))
			r.logger.Warn().
				Str("identifier", id).
				Int("position", pos).
				Int("first", first).
				Msg("duplicate identifier in snapshot")
			continue
		}
		seen[id] = pos

		hash, err := r.hasher.Hash(remote, cfg.Raw)
		if err != nil {
			result.Metadata.Stats.Invalid++
			result.Errors = append(result.Errors, errors.WrapValidation(id, err))
			continue
		}

		result.add(r.classify(id, pos, remote, hash, index))
	}

	r.withdrawals(result, seen, index)

	r.logger.Debug().
		Int("seen", result.Metadata.Stats.Seen).
		Int("create", result.Metadata.Stats.Created).
		Int("update", result.Metadata.Stats.Updated).
		Int("skip", result.Metadata.Stats.Skipped).
		Int("withdraw", result.Metadata.Stats.Withdrawn).
		Msg("reconciled snapshot")
	return result, nil
}

func (r *reconciler) classify(id string, pos int, remote records.Remote, hash string, index Index) Decision {
	d := Decision{Identifier: id, Remote: remote, Hash: hash, Position: pos}

	entry, known := index[id]
	if !known || entry.Record == nil || entry.Record.ID == "" {
		d.Action = ActionCreate
		d.RecordID = r.newID()
		return d
	}

	d.RecordID = entry.Record.ID
	d.Existing = entry.Record
	if entry.state() == records.StateActive && entry.Hash == hash {
		d.Action = ActionSkip
	} else {
		d.Action = ActionUpdate
	}
	return d
}

func (r *reconciler) withdrawals(result *Result, seen map[string]int, index Index) {
	var gone []string
	for id, entry := range index {
		if _, ok := seen[id]; ok {
			continue
		}
		if entry.Record == nil || entry.state() == records.StateDeleted {
			continue
		}
		gone = append(gone, id)
	}
	sort.Strings(gone)
	for _, id := range gone {
		entry := index[id]
		result.add(Decision{
			Action:     ActionWithdraw,
			Identifier: id,
			RecordID:   entry.Record.ID,
			Existing:   entry.Record,
			Position:   -1,
		})
	}
}

// state prefers the explicit entry state and falls back to the record.
func (e IndexEntry) state() records.State {
	if e.State != "" {
		return e.State
	}
	if e.Record != nil && e.Record.State != "" {
		return e.Record.State
	}
	return records.StateActive
}
