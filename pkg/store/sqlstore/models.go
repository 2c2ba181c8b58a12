package sqlstore

import (
	"time"

	"github.com/agentstation/harvester/pkg/records"
)

// recordRow is the relational shape of a canonical record. Nested values
// are stored as JSON columns.
type recordRow struct {
	ID        string             `gorm:"column:id;primaryKey;size:32"`
	Name      string             `gorm:"column:name;size:100;uniqueIndex"`
	Title     string             `gorm:"column:title"`
	Notes     string             `gorm:"column:notes;type:text"`
	Tags      []string           `gorm:"column:tags;type:text;serializer:json"`
	LicenseID string             `gorm:"column:license_id;size:64"`
	OwnerOrg  string             `gorm:"column:owner_org;size:64"`
	SourceID  string             `gorm:"column:source_id;size:64;index"`
	State     string             `gorm:"column:state;size:16;index"`
	Resources []records.Resource `gorm:"column:resources;type:text;serializer:json"`
	Metadata  records.Metadata   `gorm:"column:metadata;type:text;serializer:json"`
	Extras    *records.Extras    `gorm:"column:extras;type:text"`
	CreatedAt time.Time          `gorm:"column:created_at"`
	UpdatedAt time.Time          `gorm:"column:updated_at"`
}

// TableName overrides the table name.
func (recordRow) TableName() string {
	return "records"
}

func toRow(rec *records.Record) *recordRow {
	extras := rec.Extras
	if extras == nil {
		extras = records.NewExtras()
	}
	return &recordRow{
		ID:        rec.ID,
		Name:      rec.Name,
		Title:     rec.Title,
		Notes:     rec.Notes,
		Tags:      rec.Tags,
		LicenseID: rec.LicenseID,
		OwnerOrg:  rec.OwnerOrg,
		SourceID:  rec.SourceID,
		State:     string(rec.State),
		Resources: rec.Resources,
		Metadata:  rec.Metadata,
		Extras:    extras,
		CreatedAt: rec.CreatedAt,
		UpdatedAt: rec.UpdatedAt,
	}
}

func (r *recordRow) toRecord() *records.Record {
	return &records.Record{
		ID:        r.ID,
		Name:      r.Name,
		Title:     r.Title,
		Notes:     r.Notes,
		Tags:      r.Tags,
		LicenseID: r.LicenseID,
		OwnerOrg:  r.OwnerOrg,
		SourceID:  r.SourceID,
		State:     records.State(r.State),
		Resources: r.Resources,
		Metadata:  r.Metadata,
		Extras:    r.Extras,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

// traceRow is the relational shape of a harvest trace.
type traceRow struct {
	ID         string    `gorm:"column:id;primaryKey;size:32"`
	SourceID   string    `gorm:"column:source_id;size:64;index:idx_traces_source_current"`
	RunID      string    `gorm:"column:run_id;size:32"`
	Identifier string    `gorm:"column:identifier"`
	RecordID   string    `gorm:"column:record_id;size:32;index"`
	Hash       string    `gorm:"column:hash;size:40"`
	Content    string    `gorm:"column:content;type:text"`
	Current    bool      `gorm:"column:current;index:idx_traces_source_current"`
	CreatedAt  time.Time `gorm:"column:created_at"`
}

// TableName overrides the table name.
func (traceRow) TableName() string {
	return "harvest_traces"
}

func traceToRow(t *records.Trace) *traceRow {
	return &traceRow{
		ID:         t.ID,
		SourceID:   t.SourceID,
		RunID:      t.RunID,
		Identifier: t.Identifier,
		RecordID:   t.RecordID,
		Hash:       t.Hash,
		Content:    t.Content,
		Current:    t.Current,
		CreatedAt:  t.CreatedAt,
	}
}

func (r *traceRow) toTrace() records.Trace {
	return records.Trace{
		ID:         r.ID,
		SourceID:   r.SourceID,
		RunID:      r.RunID,
		Identifier: r.Identifier,
		RecordID:   r.RecordID,
		Hash:       r.Hash,
		Content:    r.Content,
		Current:    r.Current,
		CreatedAt:  r.CreatedAt,
	}
}
