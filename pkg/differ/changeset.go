// Package differ computes field-level changes between canonical records.
package differ

import (
	"fmt"
	"strings"

	"github.com/agentstation/harvester/pkg/records"
)

// ChangeType represents the type of change.
type ChangeType string

const (
	// ChangeTypeAdd indicates an item was added.
	ChangeTypeAdd ChangeType = "add"
	// ChangeTypeUpdate indicates an item was updated.
	ChangeTypeUpdate ChangeType = "update"
	// ChangeTypeRemove indicates an item was removed.
	ChangeTypeRemove ChangeType = "remove"
)

// FieldChange represents a change to a specific field.
type FieldChange struct {
	Path     string     // Field path (e.g., "Metadata.BureauCode[0]")
	OldValue string     // Previous value (string representation)
	NewValue string     // New value (string representation)
	Type     ChangeType // Type of change
}

// String renders the change on one line.
func (c FieldChange) String() string {
	switch c.Type {
	case ChangeTypeAdd:
		return fmt.Sprintf("+ %s: %s", c.Path, c.NewValue)
	case ChangeTypeRemove:
		return fmt.Sprintf("- %s: %s", c.Path, c.OldValue)
	default:
		return fmt.Sprintf("~ %s: %s -> %s", c.Path, c.OldValue, c.NewValue)
	}
}

// RecordUpdate represents an update to an existing record.
type RecordUpdate struct {
	ID       string          // ID of the record being updated
	Existing *records.Record // Stored record
	New      *records.Record // Incoming record
	Changes  []FieldChange   // Detailed list of field changes
}

// Changeset represents the record changes of one harvest run.
type Changeset struct {
	Added   []*records.Record
	Updated []RecordUpdate
	Removed []*records.Record
}

// NewChangeset returns an empty changeset.
func NewChangeset() *Changeset {
	return &Changeset{
		Added:   []*records.Record{},
		Updated: []RecordUpdate{},
		Removed: []*records.Record{},
	}
}

// HasChanges returns true if the changeset is not empty.
func (c *Changeset) HasChanges() bool {
	return c != nil && len(c.Added)+len(c.Updated)+len(c.Removed) > 0
}

// String returns a human-readable summary of the changeset.
func (c *Changeset) String() string {
	if !c.HasChanges() {
		return "no changes"
	}
	var parts []string
	if n := len(c.Added); n > 0 {
		parts = append(parts, fmt.Sprintf("%d added", n))
	}
	if n := len(c.Updated); n > 0 {
		parts = append(parts, fmt.Sprintf("%d updated", n))
	}
	if n := len(c.Removed); n > 0 {
		parts = append(parts, fmt.Sprintf("%d removed", n))
	}
	return strings.Join(parts, ", ")
}

// Details lists every field change of every update.
func (c *Changeset) Details() string {
	var b strings.Builder
	for _, u := range c.Updated {
		fmt.Fprintf(&b, "%s (%s)\n", u.New.Name, u.ID)
		for _, fc := range u.Changes {
			fmt.Fprintf(&b, "  %s\n", fc)
		}
	}
	return b.String()
}
