// Package export builds the exchange document of the local catalog.
//
// Entries are built in a fixed key order. Catalog validates each entry
// against the export schema of its dialect and drops the invalid ones, so a
// catalog export always completes.
package export

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rs/zerolog"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/formats"
	"github.com/agentstation/harvester/pkg/logging"
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/schema"
)

// Envelope values of the catalog document.
const (
	ConformsTo  = "https://project-open-data.cio.gov/v1.1/schema"
	DescribedBy = "https://project-open-data.cio.gov/v1.1/schema/catalog.json"
	Context     = "https://project-open-data.cio.gov/v1.1/schema/catalog.jsonld"
)

// Catalog is the exported catalog document.
type Catalog struct {
	Datasets []*Object
}

// MarshalJSON writes the envelope keys in their contract order.
func (c *Catalog) MarshalJSON() ([]byte, error) {
	datasets := c.Datasets
	if datasets == nil {
		datasets = []*Object{}
	}
	return json.Marshal(NewObject().
		Set("conformsTo", ConformsTo).
		Set("describedBy", DescribedBy).
		Set("@context", Context).
		Set("@type", "dcat:Catalog").
		Set("dataset", datasets))
}

// Exporter turns canonical records into exchange records.
type Exporter struct {
	validator *schema.Validator
	variant   func(*records.Record) dialect.Variant
	logger    *zerolog.Logger
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithVariant validates every record in the given dialect.
func WithVariant(v dialect.Variant) Option {
	return func(e *Exporter) {
		e.variant = func(*records.Record) dialect.Variant { return v }
	}
}

// WithVariantResolver picks the dialect per record, typically from the
// configuration of the source the record was harvested from.
func WithVariantResolver(fn func(*records.Record) dialect.Variant) Option {
	return func(e *Exporter) {
		if fn != nil {
			e.variant = fn
		}
	}
}

// WithLogger sets the exporter logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(e *Exporter) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// New creates an Exporter. A nil validator exports entries unvalidated.
func New(validator *schema.Validator, opts ...Option) *Exporter {
	e := &Exporter{
		validator: validator,
		variant:   func(*records.Record) dialect.Variant { return dialect.Federal },
		logger:    logging.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog exports every active record. Records that cannot be built or fail
// export validation are logged, reported in the returned errors and left
// out of the catalog.
func (e *Exporter) Catalog(ctx context.Context, recs []*records.Record) (*Catalog, []error) {
	catalog := &Catalog{Datasets: make([]*Object, 0, len(recs))}
	var errs []error
	for _, rec := range recs {
		if err := ctx.Err(); err != nil {
			return catalog, append(errs, err)
		}
		if rec == nil || !rec.IsActive() {
			continue
		}

		entry, err := e.Entry(rec)
		if err != nil {
			e.logger.Warn().Err(err).Str("record_id", rec.ID).Str("title", rec.Title).Msg("record not exported")
			errs = append(errs, err)
			continue
		}

		if e.validator != nil {
			if err := e.validator.Check(entry, e.variant(rec), schema.Export); err != nil {
				e.logger.Warn().Err(err).Str("record_id", rec.ID).Msg("exported record failed validation")
				errs = append(errs, err)
				continue
			}
		}
		catalog.Datasets = append(catalog.Datasets, entry)
	}

	e.logger.Debug().
		Int("records", len(recs)).
		Int("exported", len(catalog.Datasets)).
		Int("rejected", len(errs)).
		Msg("built catalog")
	return catalog, errs
}

// Entry builds the exchange record for rec without schema validation.
// A record without a usable contact point is rejected.
func (e *Exporter) Entry(rec *records.Record) (*Object, error) {
	m := rec.Metadata

	contact, err := contactPoint(rec)
	if err != nil {
		return nil, err
	}

	identifier := strip(m.Identifier)
	if identifier == "" {
		identifier = rec.ID
	}
	rights := strip(m.Rights)
	if rights == "" {
		rights = strip(m.AccessLevelComment)
	}
	describedBy := strip(m.DescribedBy)
	if describedBy == "" {
		describedBy = strip(m.DataDictionary)
	}

	obj := NewObject().Set("@type", "dcat:Dataset")
	obj.SetNonEmpty("title", strip(rec.Title))
	obj.SetNonEmpty("accessLevel", strip(m.AccessLevel))
	if p := strip(m.AccrualPeriodicity); p != "" {
		obj.Set("accrualPeriodicity", formats.Periodicity(p))
	}
	obj.SetNonEmpty("conformsTo", strip(m.ConformsTo))
	obj.Set("contactPoint", contact)
	if q := strip(m.DataQuality); q != "" {
		if b, ok := formats.DataQuality(q); ok {
			obj.Set("dataQuality", b)
		} else {
			obj.Set("dataQuality", q)
		}
	}
	obj.SetNonEmpty("describedBy", describedBy)
	obj.SetNonEmpty("describedByType", strip(m.DescribedByType))
	obj.SetNonEmpty("description", strip(rec.Notes))
	obj.SetNonEmpty("identifier", identifier)
	obj.SetNonEmpty("isPartOf", strip(m.IsPartOf))
	obj.SetNonEmpty("issued", strip(m.Issued))
	obj.SetNonEmpty("keyword", splitEntries(rec.Tags))
	obj.SetNonEmpty("landingPage", strip(m.LandingPage))
	obj.SetNonEmpty("license", strip(m.License))
	obj.SetNonEmpty("modified", strip(m.Modified))
	obj.SetNonEmpty("primaryITInvestmentUII", strip(m.PrimaryITInvestmentUII))
	obj.SetNonEmpty("publisher", publisherTree(m.Publishers))
	obj.SetNonEmpty("rights", rights)
	obj.SetNonEmpty("spatial", strip(m.Spatial))
	obj.SetNonEmpty("systemOfRecords", strip(m.SystemOfRecords))
	obj.SetNonEmpty("temporal", strip(m.Temporal))
	obj.SetNonEmpty("distribution", e.distribution(rec))
	obj.SetNonEmpty("bureauCode", splitEntries(m.BureauCode))
	obj.SetNonEmpty("language", splitEntries(m.Language))
	obj.SetNonEmpty("programCode", splitEntries(m.ProgramCode))
	obj.SetNonEmpty("references", splitEntries(m.References))
	obj.SetNonEmpty("theme", splitEntries(m.Theme))
	return obj, nil
}

func contactPoint(rec *records.Record) (*Object, error) {
	name := strip(rec.Metadata.ContactName)
	email := strip(rec.Metadata.ContactEmail)
	if name == "" || !strings.Contains(email, "@") {
		return nil, errors.NewContactPointError(rec.Metadata.Identifier, name, email)
	}
	return NewObject().
		Set("@type", "vcard:Contact").
		Set("fn", name).
		Set("hasEmail", "mailto:"+email), nil
}

// publisherTree nests the chain so each node is a sub-organization of the
// node before it, returning the most specific organization.
func publisherTree(chain []string) *Object {
	var tree *Object
	for _, name := range chain {
		name = strip(name)
		if name == "" {
			continue
		}
		node := NewObject().
			Set("@type", "org:Organization").
			Set("name", name)
		if tree != nil {
			node.Set("subOrganizationOf", tree)
		}
		tree = node
	}
	return tree
}

func (e *Exporter) distribution(rec *records.Record) []*Object {
	out := make([]*Object, 0, len(rec.Resources))
	for _, res := range rec.Resources {
		url := strip(res.URL)
		if url == "" {
			e.logger.Warn().Str("record_id", rec.ID).Str("resource_id", res.ID).Msg("resource has no url, omitted")
			continue
		}
		d := NewObject().Set("@type", "dcat:Distribution")
		switch res.ResourceType {
		case records.ResourceTypeAPI, records.ResourceTypeAccessURL:
			d.Set("accessURL", url)
		default:
			d.Set("downloadURL", url)
			mediaType := strip(res.MediaType)
			if mediaType == "" {
				e.logger.Warn().Str("record_id", rec.ID).Str("url", url).Msg("resource has no media type")
			}
			d.SetNonEmpty("mediaType", mediaType)
		}
		d.SetNonEmpty("format", strip(res.FormatReadable))
		d.SetNonEmpty("title", strip(res.Name))
		d.SetNonEmpty("description", strip(res.Description))
		d.SetNonEmpty("conformsTo", strip(res.ConformsTo))
		d.SetNonEmpty("describedBy", strip(res.DescribedBy))
		d.SetNonEmpty("describedByType", strip(res.DescribedByType))
		out = append(out, d)
	}
	return out
}

// splitEntries flattens values that were stored comma-joined.
func splitEntries(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

func strip(s string) string {
	return strings.TrimSpace(s)
}
