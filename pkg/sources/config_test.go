package sources_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/sources"
)

func TestParseConfig(t *testing.T) {
	raw := `
filters:
  accessLevel: [public, restricted public]
  bureauCode: "015:11"
defaults:
  accessLevel: public
  publisher: Agency
validator_schema: non-federal
`
	cfg, err := sources.ParseConfig(raw)
	require.NoError(t, err)

	assert.Equal(t, dialect.NonFederal, cfg.Variant)
	assert.Equal(t, []any{"public", "restricted public"}, cfg.Filters["accessLevel"])
	assert.Equal(t, []any{"015:11"}, cfg.Filters["bureauCode"])
	v, ok := cfg.Default("publisher")
	assert.True(t, ok)
	assert.Equal(t, "Agency", v)
	assert.Equal(t, raw, cfg.Raw)
}

func TestParseConfigFallsBack(t *testing.T) {
	t.Run("empty", func(t *testing.T) {
		cfg, err := sources.ParseConfig("")
		require.NoError(t, err)
		assert.Equal(t, dialect.Federal, cfg.Variant)
		assert.Empty(t, cfg.Filters)
		assert.Empty(t, cfg.Defaults)
	})

	t.Run("malformed document", func(t *testing.T) {
		cfg, err := sources.ParseConfig("- just\n- a list")
		assert.Error(t, err)
		assert.Equal(t, dialect.Federal, cfg.Variant)
		assert.Empty(t, cfg.Filters)
	})

	t.Run("malformed section", func(t *testing.T) {
		cfg, err := sources.ParseConfig("filters: nope\ndefaults:\n  title: Untitled\n")
		assert.Error(t, err)
		assert.Empty(t, cfg.Filters)
		assert.Equal(t, "Untitled", cfg.Defaults["title"])
	})

	t.Run("source helper ignores errors", func(t *testing.T) {
		src := sources.Source{ID: "a", URL: "x", Config: "filters: nope"}
		assert.Equal(t, dialect.Federal, src.ParseConfig().Variant)
	})
}

func TestAllows(t *testing.T) {
	cfg, err := sources.ParseConfig("filters:\n  accessLevel: [public]\n")
	require.NoError(t, err)

	assert.True(t, cfg.Allows(records.Remote{"accessLevel": "public"}))
	assert.False(t, cfg.Allows(records.Remote{"accessLevel": "non-public"}))
	assert.False(t, cfg.Allows(records.Remote{}))
	assert.True(t, sources.DefaultConfig().Allows(records.Remote{}))
}

func TestParseSources(t *testing.T) {
	set, err := sources.ParseSources([]byte(`
sources:
  - id: agency
    url: https://agency.gov/data.json
    owner_org: agency-org
    config: |
      validator_schema: federal
  - id: city
    url: ./testdata/city.json
`))
	require.NoError(t, err)
	assert.Equal(t, 2, set.Len())

	list := set.List()
	assert.Equal(t, sources.ID("agency"), list[0].ID)
	assert.Equal(t, "agency-org", list[0].OwnerOrg)
	assert.Contains(t, list[0].Config, "validator_schema")

	_, err = sources.ParseSources([]byte("sources:\n  - id: nourl\n"))
	assert.Error(t, err)
}
