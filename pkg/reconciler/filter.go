package reconciler

import (
	"github.com/agentstation/harvester/pkg/records"
	"github.com/agentstation/harvester/pkg/sources"
)

// filter applies the source configuration filters to snapshot entries.
type filter struct {
	cfg sources.Config
}

// newFilter creates a new filter
func newFilter(cfg sources.Config) *filter {
	return &filter{cfg: cfg}
}

// isEnabled returns true if any filter is configured
func (f *filter) isEnabled() bool {
	return len(f.cfg.Filters) > 0
}

// allows reports whether remote passes every configured filter.
func (f *filter) allows(remote records.Remote) bool {
	if !f.isEnabled() {
		return true
	}
	return f.cfg.Allows(remote)
}
