package formats_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/formats"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"text/plain", "Text"},
		{"TEXT/PLAIN; charset=utf-8", "Text"},
		{"text/csv; charset=utf-8", "CSV"},
		{"application/zip;charset=binary", "ZIP"},
		{"application/zip", "ZIP"},
		{"application/vnd.ms-excel", "XLS"},
		{"application/x-msaccess", "Access"},
		{"text/csv", "CSV"},
		{"application/json", "JSON"},
		{"text/xml", "XML"},
		{"application/octet-stream", "Other"},
		{"text", "Text"},
		{"csv", "CSV"},
		{"Shapefile", "SHAPEFILE"},
		{"what?", "WHAT?"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, err := formats.Normalize(tt.label, false)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalizeStrict(t *testing.T) {
	_, err := formats.Normalize("application/octet-stream", true)
	require.Error(t, err)
	assert.True(t, errors.Is(err, pkgerrors.ErrUnclassifiable))

	_, err = formats.Normalize("csv?", true)
	require.Error(t, err)

	got, err := formats.Normalize("text/plain", true)
	require.NoError(t, err)
	assert.Equal(t, "Text", got)

	got, err = formats.Normalize("xlsx", true)
	require.NoError(t, err)
	assert.Equal(t, "XLSX", got)
}

func TestParseMediaType(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"text/csv", "text/csv", true},
		{"Text/CSV; charset=utf-8", "text/csv", true},
		{"application/vnd.ms-excel;charset=binary", "application/vnd.ms-excel", true},
		{" application/rdf+xml ", "application/rdf+xml", true},
		{"CSV", "", false},
		{"text/", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := formats.ParseMediaType(tt.in)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPeriodicity(t *testing.T) {
	assert.Equal(t, "R/P1Y", formats.Periodicity("Annual"))
	assert.Equal(t, "R/P1W", formats.Periodicity("  weekly "))
	assert.Equal(t, "irregular", formats.Periodicity("Completely Irregular"))
	assert.Equal(t, "R/PT1S", formats.Periodicity("continuously updated"))
	assert.Equal(t, "R/P1D", formats.Periodicity("R/P1D"))
	assert.Equal(t, "fortnightly-ish", formats.Periodicity("fortnightly-ish"))
}

func TestLicenseID(t *testing.T) {
	id, ok := formats.LicenseID("Creative Commons Attribution")
	assert.True(t, ok)
	assert.Equal(t, "cc-by", id)

	id, ok = formats.LicenseID("")
	assert.True(t, ok)
	assert.Equal(t, formats.LicenseNotSpecified, id)

	_, ok = formats.LicenseID("https://creativecommons.org/publicdomain/zero/1.0/")
	assert.False(t, ok)
}

func TestDataQuality(t *testing.T) {
	for _, v := range []any{"on", "true", "True", true} {
		q, ok := formats.DataQuality(v)
		assert.True(t, ok)
		assert.True(t, q)
	}
	for _, v := range []any{"false", "False", false} {
		q, ok := formats.DataQuality(v)
		assert.True(t, ok)
		assert.False(t, q)
	}
	_, ok := formats.DataQuality("maybe")
	assert.False(t, ok)
	_, ok = formats.DataQuality(nil)
	assert.False(t, ok)
}
