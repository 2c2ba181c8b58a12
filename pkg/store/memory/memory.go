// Package memory is a process-local Store used by tests, dry runs and
// single-shot CLI invocations.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/records"
)

// Store keeps records and traces in maps guarded by one mutex. Every value
// crossing the boundary is deep-copied.
type Store struct {
	mu      sync.RWMutex
	records map[string]*records.Record
	names   map[string]string // name -> record id
	traces  map[string]records.Trace
	order   []string // trace ids in insertion order
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		records: make(map[string]*records.Record),
		names:   make(map[string]string),
		traces:  make(map[string]records.Trace),
		now:     time.Now,
	}
}

// CurrentTraces implements store.Store.
func (s *Store) CurrentTraces(ctx context.Context, sourceID string) ([]records.Trace, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []records.Trace
	for _, id := range s.order {
		t := s.traces[id]
		if t.Current && t.SourceID == sourceID {
			out = append(out, t)
		}
	}
	return out, nil
}

// Traces returns every trace of recordID in insertion order.
func (s *Store) Traces(recordID string) []records.Trace {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []records.Trace
	for _, id := range s.order {
		if t := s.traces[id]; t.RecordID == recordID {
			out = append(out, t)
		}
	}
	return out
}

// Get implements store.Store.
func (s *Store) Get(ctx context.Context, id string) (*records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, errors.NewNotFoundError("record", id)
	}
	return rec.Clone(), nil
}

// Create implements store.Store.
func (s *Store) Create(ctx context.Context, rec *records.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[rec.ID]; ok {
		return errors.NewPersistError("create", "record", rec.ID, errors.ErrAlreadyExists)
	}
	if owner, ok := s.names[rec.Name]; ok {
		return errors.NewPersistError("create", "record", rec.ID,
			&errors.ValidationError{Field: "name", Value: rec.Name, Message: "already used by " + owner})
	}
	now := s.now()
	stored := rec.Clone()
	if stored.CreatedAt.IsZero() {
		stored.CreatedAt = now
	}
	stored.UpdatedAt = now
	s.records[stored.ID] = stored
	s.names[stored.Name] = stored.ID
	rec.CreatedAt, rec.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

// Update implements store.Store.
func (s *Store) Update(ctx context.Context, rec *records.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	prev, ok := s.records[rec.ID]
	if !ok {
		return errors.NewPersistError("update", "record", rec.ID, errors.NewNotFoundError("record", rec.ID))
	}
	if owner, ok := s.names[rec.Name]; ok && owner != rec.ID {
		return errors.NewPersistError("update", "record", rec.ID,
			&errors.ValidationError{Field: "name", Value: rec.Name, Message: "already used by " + owner})
	}
	stored := rec.Clone()
	stored.CreatedAt = prev.CreatedAt
	stored.UpdatedAt = s.now()
	delete(s.names, prev.Name)
	s.records[stored.ID] = stored
	s.names[stored.Name] = stored.ID
	rec.CreatedAt, rec.UpdatedAt = stored.CreatedAt, stored.UpdatedAt
	return nil
}

// Tombstone implements store.Store.
func (s *Store) Tombstone(ctx context.Context, id, name string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return errors.NewPersistError("tombstone", "record", id, errors.NewNotFoundError("record", id))
	}
	delete(s.names, rec.Name)
	rec.State = records.StateDeleted
	rec.Name = name
	rec.UpdatedAt = s.now()
	s.names[name] = id
	return nil
}

// SaveTrace implements store.Store.
func (s *Store) SaveTrace(ctx context.Context, trace *records.Trace) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if trace.ID == "" {
		trace.ID = records.NewID()
	}
	if _, ok := s.traces[trace.ID]; ok {
		return errors.NewPersistError("save", "trace", trace.ID, errors.ErrAlreadyExists)
	}
	if trace.CreatedAt.IsZero() {
		trace.CreatedAt = s.now()
	}
	stored := *trace
	stored.Current = false
	s.traces[trace.ID] = stored
	s.order = append(s.order, trace.ID)
	return nil
}

// MarkCurrent implements store.Store.
func (s *Store) MarkCurrent(ctx context.Context, traceID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.traces[traceID]
	if !ok {
		return errors.NewPersistError("mark current", "trace", traceID, errors.NewNotFoundError("trace", traceID))
	}
	for id, t := range s.traces {
		if t.RecordID == target.RecordID && t.Current {
			t.Current = false
			s.traces[id] = t
		}
	}
	target.Current = true
	s.traces[traceID] = target
	return nil
}

// NameOwner implements store.Store.
func (s *Store) NameOwner(ctx context.Context, name string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.names[name]
	return id, ok, nil
}

// NameOf implements store.Store.
func (s *Store) NameOf(ctx context.Context, id string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return "", false, nil
	}
	return rec.Name, true, nil
}

// ListActive implements store.Store.
func (s *Store) ListActive(ctx context.Context) ([]*records.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*records.Record, 0, len(s.records))
	for _, rec := range s.records {
		if rec.IsActive() {
			out = append(out, rec.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Close implements store.Store.
func (s *Store) Close() error {
	return nil
}
