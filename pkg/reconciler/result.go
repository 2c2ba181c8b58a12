package reconciler

import (
	"fmt"
	"time"

	"github.com/agentstation/harvester/pkg/records"
)

// Action is the decision taken for one identifier.
type Action string

const (
	// ActionCreate materializes a record for an unseen identifier.
	ActionCreate Action = "create"
	// ActionUpdate re-materializes a known record whose content changed.
	ActionUpdate Action = "update"
	// ActionSkip leaves an unchanged active record alone.
	ActionSkip Action = "skip"
	// ActionWithdraw tombstones a record absent from the snapshot.
	ActionWithdraw Action = "withdraw"
)

// Decision is the reconciler verdict for one identifier.
type Decision struct {
	Action     Action
	Identifier string
	// RecordID is the existing record ID, or a fresh token on create.
	RecordID string
	// Remote is the snapshot entry; nil on withdraw.
	Remote records.Remote
	// Hash is the content hash of Remote; empty on withdraw.
	Hash string
	// Existing is the indexed record on update, skip and withdraw.
	Existing *records.Record
	// Position is the index of Remote in the snapshot, -1 on withdraw.
	Position int
}

// Result represents the outcome of a reconciliation.
type Result struct {
	Decisions []Decision

	// Metadata
	Metadata ResultMetadata

	// Issues
	Errors   []error
	Warnings []string
}

// ResultMetadata contains metadata about the reconciliation process.
type ResultMetadata struct {
	// StartTime when reconciliation started
	StartTime time.Time

	// EndTime when reconciliation completed
	EndTime time.Time

	// Duration of the reconciliation
	Duration time.Duration

	// Version folded into every content hash
	Version string

	// Statistics about the reconciliation
	Stats ResultStatistics
}

// ResultStatistics contains statistics about the reconciliation.
type ResultStatistics struct {
	Seen       int
	Created    int
	Updated    int
	Skipped    int
	Withdrawn  int
	Filtered   int
	Duplicates int
	Invalid    int
}

// NewResult creates a new result with defaults.
func NewResult() *Result {
	return &Result{
		Decisions: []Decision{},
		Errors:    []error{},
		Warnings:  []string{},
		Metadata: ResultMetadata{
			StartTime: time.Now(),
		},
	}
}

func (r *Result) add(d Decision) {
	r.Decisions = append(r.Decisions, d)
	switch d.Action {
	case ActionCreate:
		r.Metadata.Stats.Created++
	case ActionUpdate:
		r.Metadata.Stats.Updated++
	case ActionSkip:
		r.Metadata.Stats.Skipped++
	case ActionWithdraw:
		r.Metadata.Stats.Withdrawn++
	}
}

// Finalize calculates duration and marks completion.
func (r *Result) Finalize() {
	r.Metadata.EndTime = time.Now()
	r.Metadata.Duration = r.Metadata.EndTime.Sub(r.Metadata.StartTime)
}

// Filter returns the decisions with the given action, in result order.
func (r *Result) Filter(action Action) []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Action == action {
			out = append(out, d)
		}
	}
	return out
}

// Pending returns the create and update decisions, the units the
// materialize phase works on.
func (r *Result) Pending() []Decision {
	var out []Decision
	for _, d := range r.Decisions {
		if d.Action == ActionCreate || d.Action == ActionUpdate {
			out = append(out, d)
		}
	}
	return out
}

// IsSuccess returns true if no diagnostics were recorded.
func (r *Result) IsSuccess() bool {
	return len(r.Errors) == 0
}

// HasChanges returns true if any record would be written.
func (r *Result) HasChanges() bool {
	s := r.Metadata.Stats
	return s.Created+s.Updated+s.Withdrawn > 0
}

// Summary returns a human-readable summary of the result.
func (r *Result) Summary() string {
	s := r.Metadata.Stats
	summary := fmt.Sprintf("%d seen: %d to create, %d to update, %d unchanged, %d to withdraw, %d filtered",
		s.Seen, s.Created, s.Updated, s.Skipped, s.Withdrawn, s.Filtered)
	if !r.IsSuccess() {
		summary += fmt.Sprintf(" (%d diagnostics)", len(r.Errors))
	}
	return summary
}
