package records

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/agentstation/harvester/pkg/constants"
)

// Extra is one entry of the extension bag.
type Extra struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Extras is the bounded extension bag of a record. Entries are kept sorted by
// key and never exceed the capacity; when a new key would overflow the bag the
// lexicographically last entry is evicted, so the bag always holds the first
// keys in sort order regardless of insertion order.
type Extras struct {
	capacity int
	entries  []Extra
}

// NewExtras creates an empty bag with the default capacity.
func NewExtras() *Extras {
	return NewExtrasWithCapacity(constants.MaxExtras)
}

// NewExtrasWithCapacity creates an empty bag with the given capacity.
// A capacity <= 0 selects the default. The zero Extras is also usable and
// takes the default capacity on first write.
func NewExtrasWithCapacity(capacity int) *Extras {
	if capacity <= 0 {
		capacity = constants.MaxExtras
	}
	return &Extras{capacity: capacity}
}

// ExtrasFromMap builds a bag from remote values. Keys are ranked in sort
// order and cut at the bag capacity before nil values are skipped, so a nil
// value still takes its slot. Non-string values are JSON encoded.
func ExtrasFromMap(values map[string]any) *Extras {
	e := NewExtras()
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) > e.capacity {
		keys = keys[:e.capacity]
	}
	for _, k := range keys {
		if values[k] == nil {
			continue
		}
		e.Set(k, Stringify(values[k]))
	}
	return e
}

// Set inserts or replaces key. It reports whether key is present afterwards.
func (e *Extras) Set(key, value string) bool {
	if e.capacity == 0 {
		e.capacity = constants.MaxExtras
	}
	i := sort.Search(len(e.entries), func(i int) bool { return e.entries[i].Key >= key })
	if i < len(e.entries) && e.entries[i].Key == key {
		e.entries[i].Value = value
		return true
	}
	if i >= e.capacity {
		return false
	}
	e.entries = append(e.entries, Extra{})
	copy(e.entries[i+1:], e.entries[i:])
	e.entries[i] = Extra{Key: key, Value: value}
	if len(e.entries) > e.capacity {
		e.entries = e.entries[:e.capacity]
	}
	return true
}

// Get returns the value for key.
func (e *Extras) Get(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	i := sort.Search(len(e.entries), func(i int) bool { return e.entries[i].Key >= key })
	if i < len(e.entries) && e.entries[i].Key == key {
		return e.entries[i].Value, true
	}
	return "", false
}

// Delete removes key from the bag.
func (e *Extras) Delete(key string) {
	if e == nil {
		return
	}
	i := sort.Search(len(e.entries), func(i int) bool { return e.entries[i].Key >= key })
	if i < len(e.entries) && e.entries[i].Key == key {
		e.entries = append(e.entries[:i], e.entries[i+1:]...)
	}
}

// Len returns the number of entries.
func (e *Extras) Len() int {
	if e == nil {
		return 0
	}
	return len(e.entries)
}

// Cap returns the capacity of the bag.
func (e *Extras) Cap() int {
	if e == nil {
		return 0
	}
	return e.capacity
}

// Keys returns the keys in order.
func (e *Extras) Keys() []string {
	if e == nil {
		return nil
	}
	keys := make([]string, len(e.entries))
	for i, entry := range e.entries {
		keys[i] = entry.Key
	}
	return keys
}

// Entries returns a copy of the entries in order.
func (e *Extras) Entries() []Extra {
	if e == nil {
		return nil
	}
	return append([]Extra(nil), e.entries...)
}

// Clone returns a deep copy.
func (e *Extras) Clone() *Extras {
	if e == nil {
		return nil
	}
	return &Extras{capacity: e.capacity, entries: e.Entries()}
}

// MarshalJSON encodes the bag as an ordered list of key/value pairs.
func (e *Extras) MarshalJSON() ([]byte, error) {
	entries := e.Entries()
	if entries == nil {
		entries = []Extra{}
	}
	return json.Marshal(entries)
}

// UnmarshalJSON decodes an ordered key/value list, re-applying the capacity.
func (e *Extras) UnmarshalJSON(data []byte) error {
	var entries []Extra
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	if e.capacity == 0 {
		e.capacity = constants.MaxExtras
	}
	e.entries = nil
	for _, entry := range entries {
		e.Set(entry.Key, entry.Value)
	}
	return nil
}

// Value implements driver.Valuer for JSON columns.
func (e *Extras) Value() (driver.Value, error) {
	b, err := e.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner for JSON columns.
func (e *Extras) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*e = *NewExtras()
		return nil
	case []byte:
		return e.UnmarshalJSON(v)
	case string:
		return e.UnmarshalJSON([]byte(v))
	default:
		return fmt.Errorf("extras: cannot scan %T", src)
	}
}
