package differ

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/agentstation/harvester/pkg/records"
)

// Differ compares canonical records.
type Differ struct {
	ignoreFields map[string]bool
}

// New creates a Differ. Timestamps are never compared and nil collections
// equal empty ones.
func New(opts ...Option) *Differ {
	d := &Differ{
		ignoreFields: map[string]bool{
			"CreatedAt": true,
			"UpdatedAt": true,
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Records returns the field changes turning existing into updated.
// A nil existing record reports nothing.
func (d *Differ) Records(existing, updated *records.Record) []FieldChange {
	if existing == nil || updated == nil {
		return nil
	}
	r := &reporter{}
	cmp.Equal(existing, updated,
		cmp.Transformer("Extras", extrasMap),
		cmpopts.EquateEmpty(),
		cmp.FilterPath(func(p cmp.Path) bool { return d.ignoreFields[pathString(p)] }, cmp.Ignore()),
		cmp.Reporter(r),
	)
	return r.changes
}

// Update wraps Records into a RecordUpdate.
func (d *Differ) Update(existing, updated *records.Record) RecordUpdate {
	return RecordUpdate{
		ID:       updated.ID,
		Existing: existing,
		New:      updated,
		Changes:  d.Records(existing, updated),
	}
}

func extrasMap(e *records.Extras) map[string]string {
	if e == nil {
		return nil
	}
	out := make(map[string]string, e.Len())
	for _, kv := range e.Entries() {
		out[kv.Key] = kv.Value
	}
	return out
}

// reporter collects leaf differences as FieldChanges.
type reporter struct {
	path    cmp.Path
	changes []FieldChange
}

func (r *reporter) PushStep(ps cmp.PathStep) {
	r.path = append(r.path, ps)
}

func (r *reporter) Report(rs cmp.Result) {
	if rs.Equal() {
		return
	}
	vx, vy := r.path.Last().Values()
	change := FieldChange{
		Path:     pathString(r.path),
		OldValue: render(vx),
		NewValue: render(vy),
		Type:     ChangeTypeUpdate,
	}
	switch {
	case !vx.IsValid() || isZero(vx):
		change.Type = ChangeTypeAdd
	case !vy.IsValid() || isZero(vy):
		change.Type = ChangeTypeRemove
	}
	r.changes = append(r.changes, change)
}

func (r *reporter) PopStep() {
	r.path = r.path[:len(r.path)-1]
}

// pathString renders a cmp path as "Field.Sub[index]".
func pathString(p cmp.Path) string {
	var b strings.Builder
	for _, step := range p {
		switch s := step.(type) {
		case cmp.StructField:
			if b.Len() > 0 {
				b.WriteByte('.')
			}
			b.WriteString(s.Name())
		case cmp.SliceIndex:
			fmt.Fprintf(&b, "[%d]", sliceKey(s))
		case cmp.MapIndex:
			fmt.Fprintf(&b, "[%v]", s.Key())
		}
	}
	return b.String()
}

func sliceKey(s cmp.SliceIndex) int {
	if k := s.Key(); k >= 0 {
		return k
	}
	x, y := s.SplitKeys()
	if y >= 0 {
		return y
	}
	return x
}

func isZero(v reflect.Value) bool {
	return v.IsValid() && v.IsZero()
}

func render(v reflect.Value) string {
	if !v.IsValid() || !v.CanInterface() {
		return ""
	}
	if v.Kind() == reflect.Pointer {
		if v.IsNil() {
			return ""
		}
		v = v.Elem()
	}
	return fmt.Sprint(v.Interface())
}
