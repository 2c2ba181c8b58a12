package records

import "time"

// Trace records one sighting of a remote identifier during a harvest run.
// Exactly one trace per (source, record) is current.
type Trace struct {
	ID         string    `json:"id"`
	SourceID   string    `json:"source_id"`
	RunID      string    `json:"run_id"`
	Identifier string    `json:"identifier"`
	RecordID   string    `json:"record_id"`
	Hash       string    `json:"hash"`
	Content    string    `json:"content"`
	Current    bool      `json:"current"`
	CreatedAt  time.Time `json:"created_at"`
}
