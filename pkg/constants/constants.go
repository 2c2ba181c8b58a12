// Package constants provides shared constants used throughout the harvester.
// This includes the pipeline version mixed into content hashes, record and slug
// limits, timeouts and file permissions.
package constants

import "time"

// HarvesterVersion is mixed into every content hash. Bumping it forces every
// record of every source to be re-materialized on the next run.
const HarvesterVersion = "1.1.0"

// Record limits
const (
	// MaxExtras is the capacity of a record's extension bag
	MaxExtras = 100

	// MaxPublishers is the depth of the publisher chain (one primary, five secondary)
	MaxPublishers = 6

	// SlugMaxLength is the overall length limit of a record name
	SlugMaxLength = 100

	// SlugBaseLength is the length the munged title is truncated to, leaving
	// room for a disambiguation suffix
	SlugBaseLength = 90

	// SlugSuffixLength is the number of random characters appended on collision
	SlugSuffixLength = 5

	// TombstonePrefix marks the name of a withdrawn record
	TombstonePrefix = "deleted-"

	// DefaultSlug is used when a title munges to nothing
	DefaultSlug = "dataset"
)

// Timeout constants
const (
	// DefaultHTTPTimeout is the timeout for fetching a remote catalog
	DefaultHTTPTimeout = 60 * time.Second

	// HarvestTimeout bounds a full harvest run for one source
	HarvestTimeout = 30 * time.Minute

	// LockTTL is how long a source run lock is held before it expires
	LockTTL = 35 * time.Minute

	// ShutdownTimeout is the grace period for the HTTP server
	ShutdownTimeout = 10 * time.Second
)

// Concurrency constants
const (
	// DefaultConcurrency is the number of records materialized in parallel
	DefaultConcurrency = 4

	// MaxConcurrency caps the configurable parallelism
	MaxConcurrency = 64
)

// Cache constants
const (
	// CacheTTL is the default time-to-live of the served export document
	CacheTTL = 15 * time.Minute

	// CacheCleanupInterval is how often to clean expired cache entries
	CacheCleanupInterval = 5 * time.Minute
)

// File permission constants define standard Unix file permissions
const (
	// DirPermissions is the default permission for created directories (rwxr-xr-x)
	DirPermissions = 0755

	// FilePermissions is the default permission for created files (rw-r--r--)
	FilePermissions = 0644
)

// Size limits
const (
	// MaxCatalogBytes bounds the size of a fetched remote catalog
	MaxCatalogBytes = 256 << 20
)
