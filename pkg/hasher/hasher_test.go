package hasher_test

import (
	"encoding/json"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/hasher"
	"github.com/agentstation/harvester/pkg/records"
)

func decode(t *testing.T, doc string) records.Remote {
	t.Helper()
	var r records.Remote
	require.NoError(t, json.Unmarshal([]byte(doc), &r))
	return r
}

func TestHashIsKeyOrderIndependent(t *testing.T) {
	h := hasher.New("")
	a := decode(t, `{"identifier":"abc","title":"Air","contactPoint":{"fn":"Jane","hasEmail":"mailto:j@x.gov"}}`)
	b := decode(t, `{"contactPoint":{"hasEmail":"mailto:j@x.gov","fn":"Jane"},"title":"Air","identifier":"abc"}`)

	ha, err := h.Hash(a, "filters: {}")
	require.NoError(t, err)
	hb, err := h.Hash(b, "filters: {}")
	require.NoError(t, err)
	assert.Equal(t, ha, hb)
	assert.Len(t, ha, 40)
}

func TestHashDependsOnConfigAndVersion(t *testing.T) {
	r := records.Remote{"identifier": "abc", "title": "Air"}

	base, err := hasher.New("1.0").Hash(r, "")
	require.NoError(t, err)

	withConfig, err := hasher.New("1.0").Hash(r, "defaults: {accessLevel: public}")
	require.NoError(t, err)
	assert.NotEqual(t, base, withConfig)

	newVersion, err := hasher.New("2.0").Hash(r, "")
	require.NoError(t, err)
	assert.NotEqual(t, base, newVersion)

	changed, err := hasher.New("1.0").Hash(records.Remote{"identifier": "abc", "title": "Air!"}, "")
	require.NoError(t, err)
	assert.NotEqual(t, base, changed)
}

func TestDefaultVersion(t *testing.T) {
	assert.Equal(t, constants.HarvesterVersion, hasher.New("").Version())
}

func TestCanonicalSortsKeys(t *testing.T) {
	out, err := hasher.Canonical(records.Remote{"b": 1.0, "a": []any{"x", map[string]any{"z": true, "y": nil}}})
	require.NoError(t, err)
	assert.Equal(t, `{"a":["x",{"y":null,"z":true}],"b":1}`, string(out))

	empty, err := hasher.Canonical(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestHashOrderIndependenceProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)
	h := hasher.New("test")

	properties.Property("reversed insertion order hashes identically", prop.ForAll(
		func(keys []string, values []string) bool {
			forward := records.Remote{}
			backward := records.Remote{}
			n := len(keys)
			if len(values) < n {
				n = len(values)
			}
			for i := 0; i < n; i++ {
				forward[keys[i]] = values[i]
			}
			for i := n - 1; i >= 0; i-- {
				if _, seen := backward[keys[i]]; !seen {
					backward[keys[i]] = forward[keys[i]]
				}
			}
			hf, err1 := h.Hash(forward, "cfg")
			hb, err2 := h.Hash(backward, "cfg")
			return err1 == nil && err2 == nil && hf == hb
		},
		gen.SliceOf(gen.AlphaString()),
		gen.SliceOf(gen.AnyString()),
	))

	properties.TestingRun(t)
}
