// Package dialect resolves the two exchange-format conventions into one
// canonical key shape. The federal dialect is case-sensitive and passes through
// untouched; the non-federal dialect folds every known key to its canonical
// spelling through an alias table built once per process.
package dialect

import (
	"strings"
	"sync"

	"github.com/agentstation/harvester/pkg/records"
)

// Variant selects a dialect.
type Variant string

const (
	// Federal is the case-sensitive dialect.
	Federal Variant = "federal"
	// NonFederal is the case-insensitive dialect.
	NonFederal Variant = "non-federal"
)

// String implements fmt.Stringer.
func (v Variant) String() string {
	if v == "" {
		return string(Federal)
	}
	return string(v)
}

// CaseSensitive reports whether keys must match their canonical spelling.
func (v Variant) CaseSensitive() bool {
	return v != NonFederal
}

// ParseVariant maps a configuration value to a Variant. Unknown or empty
// values select Federal.
func ParseVariant(s string) Variant {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "non-federal", "non_federal", "nonfederal", "non-federal-v1.1":
		return NonFederal
	default:
		return Federal
	}
}

// Canonical top-level dataset keys.
var datasetKeys = []string{
	"@type", "accessLevel", "accessLevelComment", "accessURL", "accrualPeriodicity",
	"bureauCode", "conformsTo", "contactPoint", "dataDictionary", "dataQuality",
	"describedBy", "describedByType", "description", "distribution", "format",
	"identifier", "isPartOf", "issued", "keyword", "landingPage", "language",
	"license", "mbox", "modified", "primaryITInvestmentUII", "programCode",
	"publisher", "references", "rights", "spatial", "systemOfRecords", "temporal",
	"theme", "title", "webService",
}

// Canonical keys of a distribution entry.
var distributionKeys = []string{
	"@type", "accessURL", "conformsTo", "describedBy", "describedByType",
	"description", "downloadURL", "format", "mediaType", "title",
}

// Canonical keys of nested contactPoint and publisher objects.
var nestedKeys = []string{
	"@type", "fn", "hasEmail", "name", "subOrganizationOf",
}

type aliasTable map[string]string

var (
	tablesOnce   sync.Once
	datasetAlias aliasTable
	distAlias    aliasTable
	nestedAlias  aliasTable
)

func buildTables() {
	datasetAlias = newAliasTable(datasetKeys)
	distAlias = newAliasTable(distributionKeys)
	nestedAlias = newAliasTable(nestedKeys)
}

func newAliasTable(keys []string) aliasTable {
	t := make(aliasTable, len(keys))
	for _, k := range keys {
		t[strings.ToLower(k)] = k
	}
	return t
}

func (t aliasTable) canonical(key string) string {
	if c, ok := t[strings.ToLower(key)]; ok {
		return c
	}
	return key
}

// Normalize returns a copy of remote with keys in canonical case for the given
// variant. Federal documents are copied unchanged. Unknown keys are kept as is.
// When two spellings of the same key occur, the canonical spelling wins.
func Normalize(remote records.Remote, v Variant) records.Remote {
	out := remote.Clone()
	if v.CaseSensitive() || out == nil {
		return out
	}
	tablesOnce.Do(buildTables)

	folded := foldKeys(out, datasetAlias)
	if dist, ok := folded["distribution"]; ok {
		folded["distribution"] = foldDistribution(dist)
	}
	for _, key := range []string{"contactPoint", "publisher"} {
		if nested, ok := folded[key].(map[string]any); ok {
			folded[key] = foldNested(nested)
		}
	}
	return records.Remote(folded)
}

func foldKeys(m map[string]any, table aliasTable) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		c := table.canonical(k)
		if _, taken := out[c]; taken && c != k {
			continue
		}
		out[c] = v
	}
	return out
}

func foldDistribution(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return foldKeys(t, distAlias)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			if m, ok := e.(map[string]any); ok {
				out[i] = foldKeys(m, distAlias)
			} else {
				out[i] = e
			}
		}
		return out
	default:
		return v
	}
}

func foldNested(m map[string]any) map[string]any {
	out := foldKeys(m, nestedAlias)
	if parent, ok := out["subOrganizationOf"].(map[string]any); ok {
		out["subOrganizationOf"] = foldNested(parent)
	}
	return out
}
