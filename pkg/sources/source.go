// Package sources defines harvest sources, their per-source configuration and
// the fetchers that retrieve a remote catalog for a source.
//
// Example usage:
//
//	src := sources.Source{ID: "agency", URL: "https://agency.gov/data.json"}
//	cfg := src.ParseConfig()
//	datasets, err := sources.NewFetcher().Fetch(ctx, src)
//	if err != nil {
//	    return err // *errors.FetchError
//	}
package sources

import (
	"os"
	"sort"
	"sync"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/harvester/internal/transport"
	"github.com/agentstation/harvester/pkg/errors"
)

// ID represents the identifier of a harvest source.
type ID string

// String returns the string representation of a source ID.
func (id ID) String() string {
	return string(id)
}

// Source is one remote catalog the harvester synchronizes from.
type Source struct {
	ID       ID     `yaml:"id" json:"id"`
	URL      string `yaml:"url" json:"url"`
	Title    string `yaml:"title" json:"title,omitempty"`
	OwnerOrg string `yaml:"owner_org" json:"owner_org,omitempty"`
	// Config is the raw YAML configuration. It is hashed verbatim, so any
	// edit to it forces re-materialization of every record of the source.
	Config string `yaml:"config" json:"config,omitempty"`
	// Auth holds optional credentials for the catalog endpoint.
	Auth *transport.Auth `yaml:"auth,omitempty" json:"auth,omitempty"`
}

// ParseConfig parses the raw configuration, tolerating malformed input.
func (s Source) ParseConfig() Config {
	cfg, _ := ParseConfig(s.Config)
	return cfg
}

// Validate checks the fields required to harvest the source.
func (s Source) Validate() error {
	if s.ID == "" {
		return errors.NewValidationError("id", s.ID, "source id is required")
	}
	if s.URL == "" {
		return errors.NewValidationError("url", s.URL, "source url is required")
	}
	return s.Auth.Validate()
}

// Sources is a thread-safe container for managing multiple harvest sources.
type Sources struct {
	mu      sync.RWMutex
	sources map[ID]Source
}

// NewSources creates a new Sources instance.
func NewSources() *Sources {
	return &Sources{
		sources: make(map[ID]Source),
	}
}

// Get returns a source by ID.
func (s *Sources) Get(id ID) (Source, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	src, found := s.sources[id]
	return src, found
}

// Set sets a source by ID.
func (s *Sources) Set(src Source) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sources[src.ID] = src
}

// Delete deletes a source by ID.
func (s *Sources) Delete(id ID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sources, id)
}

// Len returns the number of sources.
func (s *Sources) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sources)
}

// List returns all sources sorted by ID.
func (s *Sources) List() []Source {
	s.mu.RLock()
	defer s.mu.RUnlock()
	list := make([]Source, 0, len(s.sources))
	for _, src := range s.sources {
		list = append(list, src)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list
}

// sourcesFile is the on-disk shape of a sources file.
type sourcesFile struct {
	Sources []Source `yaml:"sources"`
}

// ParseSources decodes a YAML sources document.
func ParseSources(data []byte) (*Sources, error) {
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, errors.WrapParse("yaml", "", err)
	}
	set := NewSources()
	for _, src := range file.Sources {
		if err := src.Validate(); err != nil {
			return nil, err
		}
		set.Set(src)
	}
	return set, nil
}

// LoadSources reads a YAML sources file.
func LoadSources(path string) (*Sources, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapIO("read", path, err)
	}
	set, err := ParseSources(data)
	if err != nil {
		var pe *errors.ParseError
		if errors.As(err, &pe) {
			pe.File = path
		}
		return nil, err
	}
	return set, nil
}
