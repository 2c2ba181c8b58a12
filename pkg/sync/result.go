package sync

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/agentstation/harvester/pkg/differ"
	"github.com/agentstation/harvester/pkg/reconciler"
	"github.com/agentstation/harvester/pkg/sources"
)

// Result represents the complete result of one harvest run for one source.
type Result struct {
	SourceID sources.ID
	RunID    string
	DryRun   bool

	// Reconcile holds the decisions of the discover phase.
	Reconcile *reconciler.Result

	// Changeset holds what was written (or would have been, on a dry run).
	Changeset *differ.Changeset

	// Failures maps an identifier to the fault that stopped its unit.
	Failures map[string]error

	Metadata Metadata
}

// Metadata contains timing and statistics of a run.
type Metadata struct {
	StartTime time.Time
	EndTime   time.Time
	Duration  time.Duration
	Stats     Statistics
}

// Statistics counts the outcome of every unit of a run.
type Statistics struct {
	Seen       int
	Created    int
	Updated    int
	Skipped    int
	Withdrawn  int
	Failed     int
	Filtered   int
	Duplicates int
	Invalid    int
}

// NewResult creates an empty result for a source run.
func NewResult(sourceID sources.ID, runID string, dryRun bool) *Result {
	return &Result{
		SourceID:  sourceID,
		RunID:     runID,
		DryRun:    dryRun,
		Changeset: differ.NewChangeset(),
		Failures:  make(map[string]error),
		Metadata: Metadata{
			StartTime: time.Now(),
		},
	}
}

// Fail records the fault of one unit.
func (r *Result) Fail(identifier string, err error) {
	r.Failures[identifier] = err
	r.Metadata.Stats.Failed++
}

// Finalize copies the reconcile counters, derives the written counters from
// the changeset and stamps the duration.
func (r *Result) Finalize() {
	if r.Reconcile != nil {
		rs := r.Reconcile.Metadata.Stats
		r.Metadata.Stats.Seen = rs.Seen
		r.Metadata.Stats.Skipped = rs.Skipped
		r.Metadata.Stats.Filtered = rs.Filtered
		r.Metadata.Stats.Duplicates = rs.Duplicates
		r.Metadata.Stats.Invalid = rs.Invalid
	}
	r.Metadata.Stats.Created = len(r.Changeset.Added)
	r.Metadata.Stats.Updated = len(r.Changeset.Updated)
	r.Metadata.Stats.Withdrawn = len(r.Changeset.Removed)
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}

// HasChanges returns true if the run wrote (or would write) anything.
func (r *Result) HasChanges() bool {
	return r.Changeset.HasChanges()
}

// IsSuccess returns true if no unit failed.
func (r *Result) IsSuccess() bool {
	return len(r.Failures) == 0
}

// Errors returns the unit faults followed by the reconcile diagnostics,
// faults ordered by identifier.
func (r *Result) Errors() []error {
	ids := make([]string, 0, len(r.Failures))
	for id := range r.Failures {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]error, 0, len(ids))
	for _, id := range ids {
		out = append(out, fmt.Errorf("%s: %w", id, r.Failures[id]))
	}
	if r.Reconcile != nil {
		out = append(out, r.Reconcile.Errors...)
	}
	return out
}

// Summary returns a human-readable summary of the run.
func (r *Result) Summary() string {
	s := r.Metadata.Stats
	summary := fmt.Sprintf("%s: %d created, %d updated, %d unchanged, %d withdrawn, %d failed",
		r.SourceID, s.Created, s.Updated, s.Skipped, s.Withdrawn, s.Failed)

	var notes []string
	if s.Filtered > 0 {
		notes = append(notes, fmt.Sprintf("%d filtered", s.Filtered))
	}
	if s.Duplicates > 0 {
		notes = append(notes, fmt.Sprintf("%d duplicates", s.Duplicates))
	}
	if s.Invalid > 0 {
		notes = append(notes, fmt.Sprintf("%d invalid", s.Invalid))
	}
	if r.DryRun {
		notes = append(notes, "dry run")
	}
	if len(notes) > 0 {
		summary += " (" + strings.Join(notes, ", ") + ")"
	}
	return summary
}
