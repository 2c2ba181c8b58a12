package export_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/export"
	"github.com/agentstation/harvester/pkg/identity"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/schema"
	"github.com/agentstation/harvester/pkg/transform"
)

func validator(t *testing.T) *schema.Validator {
	t.Helper()
	v, err := schema.Default()
	require.NoError(t, err)
	return v
}

func complete() *records.Record {
	return &records.Record{
		ID:    "rec-1",
		Name:  "air-quality",
		Title: "Air Quality",
		Notes: "Hourly readings",
		Tags:  []string{"air", "quality"},
		State: records.StateActive,
		Metadata: records.Metadata{
			Identifier:         "abc123",
			Modified:           "2024-01-01",
			AccessLevel:        "public",
			AccrualPeriodicity: " Weekly ",
			DataQuality:        "on",
			BureauCode:         []string{"015:11,015:12"},
			ProgramCode:        []string{"015:001"},
			Publishers:         []string{"Agency", "Office of Air"},
			ContactName:        "Jane Doe",
			ContactEmail:       "jane@agency.gov",
		},
		Resources: []records.Resource{
			{ID: "r1", URL: "http://x/data.csv", Format: "CSV", MediaType: "text/csv", FormatReadable: "csv", Name: "Data"},
			{ID: "r2", URL: "http://x/api", ResourceType: records.ResourceTypeAPI, Format: "API"},
			{ID: "r3", URL: "  "},
		},
	}
}

func TestEntryFieldOrder(t *testing.T) {
	obj, err := export.New(nil).Entry(complete())
	require.NoError(t, err)
	assert.Equal(t, []string{
		"@type", "title", "accessLevel", "accrualPeriodicity", "contactPoint", "dataQuality",
		"description", "identifier", "keyword", "modified", "publisher", "distribution",
		"bureauCode", "programCode",
	}, obj.Keys())

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	assert.Contains(t, string(data), `{"@type":"dcat:Dataset","title":"Air Quality","accessLevel":"public","accrualPeriodicity":"R/P1W"`)
}

func TestEntryValues(t *testing.T) {
	obj, err := export.New(nil).Entry(complete())
	require.NoError(t, err)

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))

	assert.Equal(t, true, doc["dataQuality"])
	assert.Equal(t, []any{"015:11", "015:12"}, doc["bureauCode"])
	assert.Equal(t, map[string]any{
		"@type": "vcard:Contact", "fn": "Jane Doe", "hasEmail": "mailto:jane@agency.gov",
	}, doc["contactPoint"])
	assert.Equal(t, map[string]any{
		"@type": "org:Organization",
		"name":  "Office of Air",
		"subOrganizationOf": map[string]any{
			"@type": "org:Organization",
			"name":  "Agency",
		},
	}, doc["publisher"])

	dist := doc["distribution"].([]any)
	require.Len(t, dist, 2)
	assert.Equal(t, map[string]any{
		"@type": "dcat:Distribution", "downloadURL": "http://x/data.csv",
		"mediaType": "text/csv", "format": "csv", "title": "Data",
	}, dist[0])
	assert.Equal(t, map[string]any{"@type": "dcat:Distribution", "accessURL": "http://x/api"}, dist[1])
}

func TestEntryOmitsUndeclaredMediaType(t *testing.T) {
	rec := complete()
	rec.Resources = []records.Resource{{URL: "http://x/a.xls", Format: "XLS"}}
	obj, err := export.New(nil).Entry(rec)
	require.NoError(t, err)
	dist, _ := obj.Get("distribution")
	_, ok := dist.([]*export.Object)[0].Get("mediaType")
	assert.False(t, ok)
}

func TestEntryRejectsBadContactPoint(t *testing.T) {
	for name, mutate := range map[string]func(*records.Record){
		"missing email": func(r *records.Record) { r.Metadata.ContactEmail = "" },
		"email without at": func(r *records.Record) {
			r.Metadata.ContactEmail = "jane.agency.gov"
		},
		"missing name": func(r *records.Record) { r.Metadata.ContactName = "  " },
	} {
		t.Run(name, func(t *testing.T) {
			rec := complete()
			mutate(rec)
			_, err := export.New(nil).Entry(rec)
			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrContactPoint)
		})
	}
}

func TestCatalogEnvelope(t *testing.T) {
	catalog, errs := export.New(validator(t)).Catalog(context.Background(), []*records.Record{complete()})
	require.Empty(t, errs)
	require.Len(t, catalog.Datasets, 1)

	data, err := json.Marshal(catalog)
	require.NoError(t, err)
	assert.Regexp(t, `^\{"conformsTo":"https://project-open-data.cio.gov/v1.1/schema","describedBy":"https://project-open-data.cio.gov/v1.1/schema/catalog.json","@context":"https://project-open-data.cio.gov/v1.1/schema/catalog.jsonld","@type":"dcat:Catalog","dataset":\[`, string(data))

	empty, _ := json.Marshal(&export.Catalog{})
	assert.Contains(t, string(empty), `"dataset":[]`)
}

func TestCatalogDropsInvalidEntries(t *testing.T) {
	noCodes := complete()
	noCodes.ID = "rec-2"
	noCodes.Metadata.BureauCode = nil
	noCodes.Metadata.ProgramCode = nil

	noContact := complete()
	noContact.ID = "rec-3"
	noContact.Metadata.ContactEmail = ""

	tombstoned := complete()
	tombstoned.State = records.StateDeleted

	recs := []*records.Record{complete(), noCodes, noContact, tombstoned, nil}

	federal, errs := export.New(validator(t)).Catalog(context.Background(), recs)
	assert.Len(t, federal.Datasets, 1)
	require.Len(t, errs, 2)
	assert.True(t, errors.IsSchemaViolation(errs[0]))
	assert.ErrorIs(t, errs[1], errors.ErrContactPoint)

	nonFederal, errs := export.New(validator(t), export.WithVariant(dialect.NonFederal)).Catalog(context.Background(), recs)
	assert.Len(t, nonFederal.Datasets, 2)
	assert.Len(t, errs, 1)
}

func TestCatalogVariantResolver(t *testing.T) {
	rec := complete()
	rec.SourceID = "state"
	rec.Metadata.BureauCode = nil
	rec.Metadata.ProgramCode = nil

	e := export.New(validator(t), export.WithVariantResolver(func(r *records.Record) dialect.Variant {
		if r.SourceID == "state" {
			return dialect.NonFederal
		}
		return dialect.Federal
	}))
	catalog, errs := e.Catalog(context.Background(), []*records.Record{rec})
	assert.Empty(t, errs)
	assert.Len(t, catalog.Datasets, 1)
}

func TestCatalogCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	catalog, errs := export.New(nil).Catalog(ctx, []*records.Record{complete()})
	assert.Empty(t, catalog.Datasets)
	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], context.Canceled)
}

type noNames struct{}

func (noNames) NameOwner(context.Context, string) (string, bool, error) { return "", false, nil }
func (noNames) NameOf(context.Context, string) (string, bool, error)    { return "", false, nil }

func TestAirQualityRoundTrip(t *testing.T) {
	v := validator(t)
	tr := transform.New(v, identity.New(noNames{}))
	remote := records.Remote{
		"identifier":   "abc123",
		"title":        "Air Quality",
		"contactPoint": map[string]any{"name": "Jane Doe", "email": "jane@agency.gov"},
		"distribution": []any{map[string]any{"downloadURL": "http://x/data.csv", "mediaType": "text/csv"}},
	}
	rec, err := tr.Transform(context.Background(), remote, transform.Input{Variant: dialect.Federal, ID: "rec-1"})
	require.NoError(t, err)

	obj, err := export.New(v).Entry(rec)
	require.NoError(t, err)
	dist, ok := obj.Get("distribution")
	require.True(t, ok)
	first := dist.([]*export.Object)[0]
	_, hasDownload := first.Get("downloadURL")
	_, hasMedia := first.Get("mediaType")
	_, hasAccess := first.Get("accessURL")
	assert.True(t, hasDownload)
	assert.True(t, hasMedia)
	assert.False(t, hasAccess)

	// the entry lacks the federal export fields, so the catalog drops it
	catalog, errs := export.New(v).Catalog(context.Background(), []*records.Record{rec})
	assert.Empty(t, catalog.Datasets)
	assert.Len(t, errs, 1)
}

func TestExportedRecordsReimport(t *testing.T) {
	v := validator(t)
	obj, err := export.New(v).Entry(complete())
	require.NoError(t, err)
	require.Empty(t, v.Validate(obj, dialect.Federal, schema.Export))

	data, err := json.Marshal(obj)
	require.NoError(t, err)
	var remote records.Remote
	require.NoError(t, json.Unmarshal(data, &remote))

	tr := transform.New(v, identity.New(noNames{}))
	rec, err := tr.Transform(context.Background(), remote, transform.Input{Variant: dialect.Federal, ID: "rec-9"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", rec.Metadata.Identifier)
	assert.Equal(t, []string{"Agency", "Office of Air"}, rec.Metadata.Publishers)
	assert.Equal(t, "jane@agency.gov", rec.Metadata.ContactEmail)
	assert.Equal(t, []string{"015:11", "015:12"}, rec.Metadata.BureauCode)
	require.Len(t, rec.Resources, 2)
	assert.Equal(t, "CSV", rec.Resources[0].Format)
}
