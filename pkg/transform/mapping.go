package transform

import (
	"sort"
	"strings"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/formats"
	"github.com/agentstation/harvester/pkg/identity"
	"github.com/agentstation/harvester/pkg/records"
)

type setter func(rec *records.Record, value any)

func metaString(field func(*records.Metadata) *string) setter {
	return func(rec *records.Record, value any) {
		*field(&rec.Metadata) = strings.TrimSpace(records.Stringify(value))
	}
}

func metaList(field func(*records.Metadata) *[]string) setter {
	return func(rec *records.Record, value any) {
		*field(&rec.Metadata) = records.StringList(value)
	}
}

// fieldMap routes remote fields to canonical attributes and metadata slots.
var fieldMap = map[string]setter{
	"title":       func(rec *records.Record, v any) { rec.Title = strings.TrimSpace(records.Stringify(v)) },
	"description": func(rec *records.Record, v any) { rec.Notes = records.Stringify(v) },
	"keyword":     func(rec *records.Record, v any) { rec.Tags = tags(v) },
	"publisher":   func(rec *records.Record, v any) { rec.Metadata.Publishers = publisherChain(v) },
	"contactPoint": func(rec *records.Record, v any) {
		name, email := contact(v)
		rec.Metadata.ContactName = name
		if email != "" {
			rec.Metadata.ContactEmail = email
		}
	},
	"mbox": func(rec *records.Record, v any) {
		if rec.Metadata.ContactEmail == "" {
			rec.Metadata.ContactEmail = stripMailto(records.Stringify(v))
		}
	},
	"dataQuality": func(rec *records.Record, v any) {
		if q, ok := formats.DataQuality(v); ok {
			rec.Metadata.DataQuality = records.Stringify(q)
			return
		}
		rec.Metadata.DataQuality = strings.TrimSpace(records.Stringify(v))
	},
	"license": func(rec *records.Record, v any) {
		rec.Metadata.License = strings.TrimSpace(records.Stringify(v))
	},

	"identifier":             metaString(func(m *records.Metadata) *string { return &m.Identifier }),
	"modified":               metaString(func(m *records.Metadata) *string { return &m.Modified }),
	"issued":                 metaString(func(m *records.Metadata) *string { return &m.Issued }),
	"accessLevel":            metaString(func(m *records.Metadata) *string { return &m.AccessLevel }),
	"accessLevelComment":     metaString(func(m *records.Metadata) *string { return &m.AccessLevelComment }),
	"rights":                 metaString(func(m *records.Metadata) *string { return &m.Rights }),
	"spatial":                metaString(func(m *records.Metadata) *string { return &m.Spatial }),
	"temporal":               metaString(func(m *records.Metadata) *string { return &m.Temporal }),
	"accrualPeriodicity":     metaString(func(m *records.Metadata) *string { return &m.AccrualPeriodicity }),
	"conformsTo":             metaString(func(m *records.Metadata) *string { return &m.ConformsTo }),
	"describedBy":            metaString(func(m *records.Metadata) *string { return &m.DescribedBy }),
	"describedByType":        metaString(func(m *records.Metadata) *string { return &m.DescribedByType }),
	"isPartOf":               metaString(func(m *records.Metadata) *string { return &m.IsPartOf }),
	"landingPage":            metaString(func(m *records.Metadata) *string { return &m.LandingPage }),
	"primaryITInvestmentUII": metaString(func(m *records.Metadata) *string { return &m.PrimaryITInvestmentUII }),
	"systemOfRecords":        metaString(func(m *records.Metadata) *string { return &m.SystemOfRecords }),
	"dataDictionary":         metaString(func(m *records.Metadata) *string { return &m.DataDictionary }),

	"bureauCode":  metaList(func(m *records.Metadata) *[]string { return &m.BureauCode }),
	"programCode": metaList(func(m *records.Metadata) *[]string { return &m.ProgramCode }),
	"language":    metaList(func(m *records.Metadata) *[]string { return &m.Language }),
	"references":  metaList(func(m *records.Metadata) *[]string { return &m.References }),
	"theme":       metaList(func(m *records.Metadata) *[]string { return &m.Theme }),
}

// resourceFields feed resource synthesis and never reach the extension bag.
var resourceFields = []string{"accessURL", "webService", "format", "distribution"}

// ignoredFields are dropped; the exporter writes its own type marker.
var ignoredFields = []string{"@type"}

var mappedKeys = func() []string {
	keys := make([]string, 0, len(fieldMap))
	for k := range fieldMap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}()

// mapFields applies the field table and per-source defaults to rec and
// returns the set of remote keys it consumed.
func mapFields(rec *records.Record, remote records.Remote, defaults map[string]any) map[string]bool {
	consumed := make(map[string]bool, len(fieldMap)+len(resourceFields)+len(ignoredFields))
	for _, key := range mappedKeys {
		consumed[key] = true
		value, present := remote[key]
		if key == "dataQuality" && present {
			if _, ok := value.(bool); ok {
				fieldMap[key](rec, value)
				continue
			}
		}
		if records.IsBlank(value) {
			d, ok := defaults[key]
			if !ok || records.IsBlank(d) {
				continue
			}
			value = d
		}
		fieldMap[key](rec, value)
	}
	for _, key := range resourceFields {
		consumed[key] = true
	}
	for _, key := range ignoredFields {
		consumed[key] = true
	}

	if id, ok := formats.LicenseID(rec.Metadata.License); ok {
		rec.LicenseID = id
	}
	return consumed
}

func tags(v any) []string {
	seen := make(map[string]bool)
	var out []string
	for _, kw := range records.StringList(v) {
		tag := identity.MungeTag(kw)
		if tag == "" || seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// contact extracts the name and email of a contact point. Both the current
// (fn, hasEmail) and the legacy (name, email) spellings are accepted; a bare
// string is taken as the name.
func contact(v any) (name, email string) {
	switch c := v.(type) {
	case string:
		return strings.TrimSpace(c), ""
	case map[string]any:
		name = firstString(c, "fn", "name")
		email = stripMailto(firstString(c, "hasEmail", "email"))
	}
	return name, email
}

func stripMailto(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= len("mailto:") && strings.EqualFold(s[:len("mailto:")], "mailto:") {
		s = s[len("mailto:"):]
	}
	return strings.TrimSpace(s)
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && strings.TrimSpace(s) != "" {
			return strings.TrimSpace(s)
		}
	}
	return ""
}

// publisherChain flattens a publisher into names running from the least
// specific organization to the most specific. A nested object is walked
// through subOrganizationOf; a list is taken in order. At most
// constants.MaxPublishers names are kept, dropping the least specific first.
func publisherChain(v any) []string {
	var chain []string
	switch p := v.(type) {
	case string:
		if s := strings.TrimSpace(p); s != "" {
			chain = append(chain, s)
		}
	case map[string]any:
		var specificFirst []string
		for node, depth := p, 0; node != nil && depth < 32; depth++ {
			if name := firstString(node, "name"); name != "" {
				specificFirst = append(specificFirst, name)
			}
			node, _ = node["subOrganizationOf"].(map[string]any)
		}
		for i := len(specificFirst) - 1; i >= 0; i-- {
			chain = append(chain, specificFirst[i])
		}
	case []any:
		for _, e := range p {
			switch n := e.(type) {
			case string:
				if s := strings.TrimSpace(n); s != "" {
					chain = append(chain, s)
				}
			case map[string]any:
				if name := firstString(n, "name"); name != "" {
					chain = append(chain, name)
				}
			}
		}
	}
	if len(chain) > constants.MaxPublishers {
		chain = chain[len(chain)-constants.MaxPublishers:]
	}
	return chain
}
