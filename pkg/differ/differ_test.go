package differ_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/differ"
	"github.com/agentstation/harvester/pkg/records"
)

func base() *records.Record {
	extras := records.NewExtras()
	extras.Set("custom", "1")
	return &records.Record{
		ID:    "rec-1",
		Name:  "air-quality",
		Title: "Air Quality",
		Tags:  []string{"air"},
		Metadata: records.Metadata{
			Identifier: "abc",
			BureauCode: []string{"015:11"},
			SourceHash: "h1",
		},
		Resources: []records.Resource{{ID: "r1", URL: "http://x/a.csv", Format: "CSV"}},
		Extras:    extras,
		CreatedAt: time.Now(),
	}
}

func paths(changes []differ.FieldChange) map[string]differ.FieldChange {
	out := make(map[string]differ.FieldChange)
	for _, c := range changes {
		out[c.Path] = c
	}
	return out
}

func TestRecordsNoChanges(t *testing.T) {
	a, b := base(), base()
	b.UpdatedAt = time.Now().Add(time.Hour)
	assert.Empty(t, differ.New().Records(a, b))
}

func TestRecordsFieldChanges(t *testing.T) {
	a, b := base(), base()
	b.Title = "Air Quality Index"
	b.Metadata.BureauCode = []string{"015:12"}
	b.Metadata.Modified = "2024-01-01"
	b.Resources[0].Format = "ZIP"
	b.Extras.Set("custom", "2")
	b.Extras.Set("added", "x")

	got := paths(differ.New().Records(a, b))

	require.Contains(t, got, "Title")
	assert.Equal(t, "Air Quality", got["Title"].OldValue)
	assert.Equal(t, "Air Quality Index", got["Title"].NewValue)
	assert.Equal(t, differ.ChangeTypeUpdate, got["Title"].Type)

	assert.Contains(t, got, "Metadata.BureauCode[0]")
	assert.Equal(t, differ.ChangeTypeAdd, got["Metadata.Modified"].Type)
	assert.Contains(t, got, "Resources[0].Format")
	assert.Contains(t, got, "Extras[custom]")
	assert.Equal(t, differ.ChangeTypeAdd, got["Extras[added]"].Type)
}

func TestRecordsIgnoredFields(t *testing.T) {
	a, b := base(), base()
	b.Metadata.SourceHash = "h2"
	assert.NotEmpty(t, differ.New().Records(a, b))
	assert.Empty(t, differ.New(differ.WithIgnoredFields("Metadata.SourceHash")).Records(a, b))
}

func TestRecordsNil(t *testing.T) {
	assert.Nil(t, differ.New().Records(nil, base()))
}

func TestChangeset(t *testing.T) {
	cs := differ.NewChangeset()
	assert.False(t, cs.HasChanges())
	assert.Equal(t, "no changes", cs.String())

	a, b := base(), base()
	b.Title = "New"
	cs.Added = append(cs.Added, base())
	cs.Updated = append(cs.Updated, differ.New().Update(a, b))
	assert.True(t, cs.HasChanges())
	assert.Equal(t, "1 added, 1 updated", cs.String())
	assert.Contains(t, cs.Details(), "~ Title: Air Quality -> New")
}
