package transform

import (
	"strings"

	"github.com/agentstation/harvester/pkg/formats"
	"github.com/agentstation/harvester/pkg/records"
)

// distributions coerces the distribution field: a single object becomes a
// one-element list and any other shape becomes empty.
func distributions(v any) []map[string]any {
	switch d := v.(type) {
	case map[string]any:
		return []map[string]any{d}
	case []any:
		out := make([]map[string]any, 0, len(d))
		for _, e := range d {
			if m, ok := e.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	case []map[string]any:
		return d
	}
	return nil
}

func (t *Transformer) synthesizeResources(rec *records.Record, remote records.Remote) []records.Resource {
	dist := distributions(remote["distribution"])
	if len(dist) == 0 {
		var out []records.Resource
		for _, key := range []string{"accessURL", "webService"} {
			url := strings.TrimSpace(remote.String(key))
			if url == "" {
				continue
			}
			kind := records.ResourceTypeAccessURL
			if key == "webService" {
				kind = records.ResourceTypeAPI
				rec.Metadata.WebService = url
			}
			res := records.Resource{URL: url, ResourceType: kind}
			t.applyFormat(&res, remote.String("format"), "")
			out = append(out, res)
		}
		return out
	}

	out := make([]records.Resource, 0, len(dist))
	for _, d := range dist {
		res, ok := t.distributionResource(d)
		if !ok {
			continue
		}
		out = append(out, res)
	}
	return out
}

func (t *Transformer) distributionResource(d map[string]any) (records.Resource, bool) {
	res := records.Resource{}
	switch {
	case str(d, "downloadURL") != "":
		res.URL, res.ResourceType = str(d, "downloadURL"), records.ResourceTypeFile
	case str(d, "accessURL") != "":
		res.URL, res.ResourceType = str(d, "accessURL"), records.ResourceTypeAccessURL
	case str(d, "webService") != "":
		res.URL, res.ResourceType = str(d, "webService"), records.ResourceTypeAPI
	default:
		return res, false
	}
	res.Name = str(d, "title")
	res.Description = str(d, "description")
	res.ConformsTo = str(d, "conformsTo")
	res.DescribedBy = str(d, "describedBy")
	res.DescribedByType = str(d, "describedByType")
	t.applyFormat(&res, str(d, "format"), str(d, "mediaType"))
	return res, true
}

// applyFormat fills Format, FormatReadable and MediaType from the format
// label and the declared media type. MediaType is stored bare, without
// parameters.
func (t *Transformer) applyFormat(res *records.Resource, label, mediaType string) {
	label = strings.TrimSpace(label)
	mediaType = strings.TrimSpace(mediaType)
	res.FormatReadable = label

	source := mediaType
	if source == "" {
		source = label
	}
	code, err := formats.Normalize(source, t.strict)
	if err != nil {
		t.logger.Debug().Err(err).Str("url", res.URL).Msg("format not classified")
	}
	if (code == formats.Other || code == "") && label != "" && source != label {
		if alt, err := formats.Normalize(label, t.strict); err == nil && alt != "" {
			code = alt
		}
	}
	res.Format = code

	// only a declared media type is kept; a format label that is itself a
	// media type counts as declared
	for _, candidate := range []string{mediaType, label} {
		if mt, ok := formats.ParseMediaType(candidate); ok {
			res.MediaType = mt
			return
		}
	}
	if mediaType != "" {
		t.logger.Debug().Str("url", res.URL).Str("media_type", mediaType).Msg("declared media type not recognized")
	}
}

func str(m map[string]any, key string) string {
	if s, ok := m[key].(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
