package sources

import (
	"reflect"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
	"github.com/agentstation/harvester/pkg/records"
)

// Config is the parsed per-source configuration.
type Config struct {
	// Filters maps a remote field name to the values it may take. A record
	// whose value is not among them is excluded without error.
	Filters map[string][]any
	// Defaults maps a remote field name to the value used when the record
	// omits it.
	Defaults map[string]any
	// Variant selects the exchange dialect and its schema documents.
	Variant dialect.Variant
	// Raw is the configuration text as supplied, used for hashing.
	Raw string
}

// DefaultConfig returns an empty federal configuration.
func DefaultConfig() Config {
	return Config{
		Filters:  map[string][]any{},
		Defaults: map[string]any{},
		Variant:  dialect.Federal,
	}
}

// ParseConfig parses raw YAML. Absent or malformed sections fall back to
// empty filters, empty defaults and the federal dialect; the returned error
// reports what was ignored but the Config is always usable.
func ParseConfig(raw string) (Config, error) {
	cfg := DefaultConfig()
	cfg.Raw = raw
	if strings.TrimSpace(raw) == "" {
		return cfg, nil
	}

	var doc map[string]any
	if err := yaml.Unmarshal([]byte(raw), &doc); err != nil {
		return cfg, errors.NewConfigError("source", "configuration is not a YAML mapping", err)
	}

	var problems []error
	if v, ok := doc["filters"]; ok && v != nil {
		filters, ok := v.(map[string]any)
		if !ok {
			problems = append(problems, errors.NewConfigError("filters", "expected a mapping", nil))
		}
		for field, allowed := range filters {
			switch list := allowed.(type) {
			case []any:
				cfg.Filters[field] = list
			case nil:
			default:
				cfg.Filters[field] = []any{list}
			}
		}
	}
	if v, ok := doc["defaults"]; ok && v != nil {
		defaults, ok := v.(map[string]any)
		if !ok {
			problems = append(problems, errors.NewConfigError("defaults", "expected a mapping", nil))
		}
		for field, value := range defaults {
			cfg.Defaults[field] = value
		}
	}
	if v, ok := doc["validator_schema"].(string); ok {
		cfg.Variant = dialect.ParseVariant(v)
	}

	return cfg, errors.Join(problems...)
}

// Allows reports whether remote passes every configured filter.
func (c Config) Allows(remote records.Remote) bool {
	for field, allowed := range c.Filters {
		if !containsValue(allowed, remote[field]) {
			return false
		}
	}
	return true
}

// Default returns the configured default for a remote field.
func (c Config) Default(field string) (any, bool) {
	v, ok := c.Defaults[field]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

func containsValue(allowed []any, value any) bool {
	for _, a := range allowed {
		if reflect.DeepEqual(a, value) {
			return true
		}
		if value != nil && a != nil && records.Stringify(a) == records.Stringify(value) {
			return true
		}
	}
	return false
}
