// Package identity assigns URL-safe, collision-free names to records.
//
// A name is derived from the record title when the record is created. Once
// assigned it stays stable across updates, title changes included, unless
// another record has taken it.
package identity

import (
	"context"
	"regexp"
	"strings"
	"unicode"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/agentstation/harvester/pkg/constants"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/logging"
	"github.com/agentstation/harvester/pkg/records"
)

// NameIndex answers name ownership questions against the local catalog.
type NameIndex interface {
	// NameOwner returns the ID of the record currently holding name.
	NameOwner(ctx context.Context, name string) (id string, ok bool, err error)
	// NameOf returns the stored name of the record with the given ID.
	NameOf(ctx context.Context, id string) (name string, ok bool, err error)
}

// Resolver derives names and resolves collisions against a NameIndex.
type Resolver struct {
	index  NameIndex
	suffix func() string
	logger *zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithSuffixGenerator replaces the random collision suffix source.
func WithSuffixGenerator(fn func() string) Option {
	return func(r *Resolver) {
		if fn != nil {
			r.suffix = fn
		}
	}
}

// WithLogger sets the resolver logger.
func WithLogger(logger *zerolog.Logger) Option {
	return func(r *Resolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New returns a Resolver backed by index.
func New(index NameIndex, opts ...Option) *Resolver {
	r := &Resolver{
		index:  index,
		suffix: randomSuffix,
		logger: logging.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func randomSuffix() string {
	return uuid.NewString()[:constants.SlugSuffixLength]
}

// Slug returns the name for a record titled title. existingID is the ID of
// the record being updated, or empty for a new record. forTombstone prefixes
// the name for a withdrawn record.
//
// An updated record keeps its stored name whatever its title now says. Only
// a record without a usable stored name (new, or revived from a tombstone)
// gets a name derived from the title.
func (r *Resolver) Slug(ctx context.Context, title, existingID string, forTombstone bool) (string, error) {
	if existingID != "" && !forTombstone {
		stored, ok, err := r.keep(ctx, existingID)
		if err != nil {
			return "", errors.NewIdentityError(title, existingID, err)
		}
		if ok {
			return stored, nil
		}
	}

	name := Munge(title, forTombstone)

	owner, taken, err := r.index.NameOwner(ctx, name)
	if err != nil {
		return "", errors.NewIdentityError(title, existingID, err)
	}
	if !taken || (existingID != "" && owner == existingID) {
		return name, nil
	}

	suffixed := name + "-" + r.suffix()
	if len(suffixed) > constants.SlugMaxLength {
		suffixed = suffixed[:constants.SlugMaxLength]
	}
	r.logger.Debug().
		Str("name", name).
		Str("owner", owner).
		Str("assigned", suffixed).
		Msg("name collision, appending suffix")
	return suffixed, nil
}

// keep reports the stored name of record id when it is still usable: set,
// not a tombstone name, and held by no other record.
func (r *Resolver) keep(ctx context.Context, id string) (string, bool, error) {
	stored, ok, err := r.index.NameOf(ctx, id)
	if err != nil || !ok || stored == "" || records.IsTombstoneName(stored) {
		return "", false, err
	}
	owner, taken, err := r.index.NameOwner(ctx, stored)
	if err != nil {
		return "", false, err
	}
	if taken && owner != id {
		r.logger.Debug().
			Str("stored", stored).
			Str("owner", owner).
			Str("record_id", id).
			Msg("stored name held by another record, deriving a new one")
		return "", false, nil
	}
	return stored, true, nil
}

var (
	invalidRun = regexp.MustCompile(`[^a-z0-9_-]+`)
	doubleDash = regexp.MustCompile(`-{2,}`)
)

// Munge turns a title into a name candidate without consulting any index.
func Munge(title string, forTombstone bool) string {
	name := strings.ToLower(strings.TrimSpace(title))
	name = stripAccents(name)
	name = invalidRun.ReplaceAllString(name, "-")
	name = strings.ReplaceAll(name, "_", "-")
	name = strings.Trim(doubleDash.ReplaceAllString(name, "-"), "-")
	if name == "" {
		name = constants.DefaultSlug
	}
	if forTombstone {
		name = constants.TombstonePrefix + name
	}
	if len(name) > constants.SlugBaseLength {
		name = strings.TrimRight(name[:constants.SlugBaseLength], "-")
	}
	return name
}

// MungeTag normalizes a keyword the way names are normalized, keeping
// spaces out of tags. Blank input stays blank.
func MungeTag(tag string) string {
	tag = strings.ToLower(strings.TrimSpace(tag))
	if tag == "" {
		return ""
	}
	tag = stripAccents(tag)
	tag = invalidRun.ReplaceAllString(tag, "-")
	tag = strings.Trim(doubleDash.ReplaceAllString(tag, "-"), "-")
	return tag
}

func stripAccents(s string) string {
	t := transform.Chain(norm.NFKD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
