package records

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/agentstation/harvester/pkg/constants"
)

// State is the lifecycle state of a canonical record.
type State string

const (
	// StateActive is a record present in the latest snapshot of its source.
	StateActive State = "active"
	// StateDeleted is a tombstoned record withdrawn upstream.
	StateDeleted State = "deleted"
)

// Resource types used to pick accessURL or downloadURL on export.
const (
	ResourceTypeFile      = "file"
	ResourceTypeAccessURL = "accessurl"
	ResourceTypeAPI       = "api"
)

// Record is the canonical, storage-agnostic representation of one dataset.
type Record struct {
	ID        string     `json:"id"`
	Name      string     `json:"name"`
	Title     string     `json:"title"`
	Notes     string     `json:"notes,omitempty"`
	Tags      []string   `json:"tags,omitempty"`
	LicenseID string     `json:"license_id,omitempty"`
	OwnerOrg  string     `json:"owner_org,omitempty"`
	SourceID  string     `json:"source_id,omitempty"`
	State     State      `json:"state"`
	Resources []Resource `json:"resources,omitempty"`
	Metadata  Metadata   `json:"metadata"`
	Extras    *Extras    `json:"extras"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Metadata holds the well-known exchange fields that have no first-class
// column on the record.
type Metadata struct {
	Identifier             string   `json:"identifier,omitempty"`
	Modified               string   `json:"modified,omitempty"`
	Issued                 string   `json:"issued,omitempty"`
	AccessLevel            string   `json:"accessLevel,omitempty"`
	AccessLevelComment     string   `json:"accessLevelComment,omitempty"`
	Rights                 string   `json:"rights,omitempty"`
	License                string   `json:"license,omitempty"`
	Spatial                string   `json:"spatial,omitempty"`
	Temporal               string   `json:"temporal,omitempty"`
	AccrualPeriodicity     string   `json:"accrualPeriodicity,omitempty"`
	ConformsTo             string   `json:"conformsTo,omitempty"`
	DescribedBy            string   `json:"describedBy,omitempty"`
	DescribedByType        string   `json:"describedByType,omitempty"`
	IsPartOf               string   `json:"isPartOf,omitempty"`
	LandingPage            string   `json:"landingPage,omitempty"`
	PrimaryITInvestmentUII string   `json:"primaryITInvestmentUII,omitempty"`
	SystemOfRecords        string   `json:"systemOfRecords,omitempty"`
	WebService             string   `json:"webService,omitempty"`
	DataDictionary         string   `json:"dataDictionary,omitempty"`
	DataQuality            string   `json:"dataQuality,omitempty"`
	BureauCode             []string `json:"bureauCode,omitempty"`
	ProgramCode            []string `json:"programCode,omitempty"`
	Language               []string `json:"language,omitempty"`
	References             []string `json:"references,omitempty"`
	Theme                  []string `json:"theme,omitempty"`
	// Publishers runs from the primary (least specific) organization to the
	// most specific one.
	Publishers   []string `json:"publishers,omitempty"`
	ContactName  string   `json:"contactName,omitempty"`
	ContactEmail string   `json:"contactEmail,omitempty"`
	SourceHash   string   `json:"sourceHash,omitempty"`
}

// Resource is one downloadable or queryable artifact of a record.
type Resource struct {
	ID              string `json:"id"`
	URL             string `json:"url"`
	Format          string `json:"format,omitempty"`
	MediaType       string `json:"mediaType,omitempty"`
	FormatReadable  string `json:"formatReadable,omitempty"`
	Name            string `json:"name,omitempty"`
	Description     string `json:"description,omitempty"`
	ResourceType    string `json:"resourceType,omitempty"`
	ConformsTo      string `json:"conformsTo,omitempty"`
	DescribedBy     string `json:"describedBy,omitempty"`
	DescribedByType string `json:"describedByType,omitempty"`
}

// IsActive reports whether the record is in the active state.
func (r *Record) IsActive() bool {
	return r != nil && r.State == StateActive
}

// IsTombstoned reports whether the record was withdrawn.
func (r *Record) IsTombstoned() bool {
	return r != nil && r.State == StateDeleted
}

// IsTombstoneName reports whether name carries the tombstone prefix.
func IsTombstoneName(name string) bool {
	return strings.HasPrefix(name, constants.TombstonePrefix)
}

// Clone returns a deep copy of the record.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}
	c := *r
	c.Tags = append([]string(nil), r.Tags...)
	c.Resources = append([]Resource(nil), r.Resources...)
	c.Metadata = r.Metadata.Clone()
	c.Extras = r.Extras.Clone()
	return &c
}

// Clone returns a deep copy of the metadata.
func (m Metadata) Clone() Metadata {
	c := m
	c.BureauCode = append([]string(nil), m.BureauCode...)
	c.ProgramCode = append([]string(nil), m.ProgramCode...)
	c.Language = append([]string(nil), m.Language...)
	c.References = append([]string(nil), m.References...)
	c.Theme = append([]string(nil), m.Theme...)
	c.Publishers = append([]string(nil), m.Publishers...)
	return c
}

// ResourceByURL returns the resource with the given URL.
func (r *Record) ResourceByURL(url string) (Resource, bool) {
	if r == nil {
		return Resource{}, false
	}
	for _, res := range r.Resources {
		if res.URL == url {
			return res, true
		}
	}
	return Resource{}, false
}

// NewID returns a fresh opaque identity token: a random UUID as 32 hex
// characters.
func NewID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
