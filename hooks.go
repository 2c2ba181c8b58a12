package harvester

import (
	"sync"

	"github.com/agentstation/harvester/pkg/differ"
	"github.com/agentstation/harvester/pkg/records"
	pkgsync "github.com/agentstation/harvester/pkg/sync"
)

// Compile-time interface check to ensure proper implementation.
var _ Hooks = (*client)(nil)

// Hook function types for record events. Record hooks run on the
// materialize workers and may be called concurrently.
type (
	// RecordCreatedHook is called when a record is created.
	RecordCreatedHook func(rec *records.Record)

	// RecordUpdatedHook is called when a record is updated.
	RecordUpdatedHook func(old, new *records.Record, changes []differ.FieldChange)

	// RecordWithdrawnHook is called when a record is tombstoned.
	RecordWithdrawnHook func(rec *records.Record)

	// HarvestCompletedHook is called after every non-dry run.
	HarvestCompletedHook func(result *pkgsync.Result)
)

// Hooks provides event callback registration.
type Hooks interface {
	OnRecordCreated(RecordCreatedHook)
	OnRecordUpdated(RecordUpdatedHook)
	OnRecordWithdrawn(RecordWithdrawnHook)
	OnHarvestCompleted(HarvestCompletedHook)
}

// hooks manages event callbacks for record changes.
type hooks struct {
	mu                 sync.RWMutex
	onRecordCreated    []RecordCreatedHook
	onRecordUpdated    []RecordUpdatedHook
	onRecordWithdrawn  []RecordWithdrawnHook
	onHarvestCompleted []HarvestCompletedHook
}

func newHooks() *hooks {
	return &hooks{}
}

// OnRecordCreated registers a callback for created records.
func (c *client) OnRecordCreated(fn RecordCreatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordCreated = append(c.hooks.onRecordCreated, fn)
}

// OnRecordUpdated registers a callback for updated records.
func (c *client) OnRecordUpdated(fn RecordUpdatedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordUpdated = append(c.hooks.onRecordUpdated, fn)
}

// OnRecordWithdrawn registers a callback for withdrawn records.
func (c *client) OnRecordWithdrawn(fn RecordWithdrawnHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onRecordWithdrawn = append(c.hooks.onRecordWithdrawn, fn)
}

// OnHarvestCompleted registers a callback for finished runs.
func (c *client) OnHarvestCompleted(fn HarvestCompletedHook) {
	c.hooks.mu.Lock()
	defer c.hooks.mu.Unlock()
	c.hooks.onHarvestCompleted = append(c.hooks.onHarvestCompleted, fn)
}

func (h *hooks) created(rec *records.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRecordCreated {
		fn(rec)
	}
}

func (h *hooks) updated(old, new *records.Record, changes []differ.FieldChange) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRecordUpdated {
		fn(old, new, changes)
	}
}

func (h *hooks) withdrawn(rec *records.Record) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onRecordWithdrawn {
		fn(rec)
	}
}

func (h *hooks) completed(result *pkgsync.Result) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, fn := range h.onHarvestCompleted {
		fn(result)
	}
}
