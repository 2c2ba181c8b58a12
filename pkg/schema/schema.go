// Package schema validates exchange documents against the JSON Schema
// documents of each dialect and direction.
//
// Validation never fails fast: every leaf violation is collected so one
// diagnostic names every offending field. The import and export documents of
// a dialect deliberately differ in their required fields; a contact point,
// for instance, is only required when exporting.
package schema

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/agentstation/harvester/pkg/dialect"
	"github.com/agentstation/harvester/pkg/errors"
)

//go:embed schemas/*.json
var embedded embed.FS

// Direction selects the import or export schema document of a dialect.
type Direction string

const (
	// Import validates remote records before they are transformed.
	Import Direction = "import"
	// Export validates built exchange records before they are published.
	Export Direction = "export"
)

// baseURL matches the $id of every embedded document so that local
// references resolve without network access.
const baseURL = "https://harvester.agentstation.dev/schemas/"

// Key addresses one schema document.
type Key struct {
	Variant   dialect.Variant
	Direction Direction
}

// String returns the document name, e.g. "federal-import".
func (k Key) String() string {
	return fmt.Sprintf("%s-%s", k.Variant.String(), k.Direction)
}

func (k Key) url() string {
	return baseURL + k.String() + ".json"
}

// Validator executes compiled schema documents.
type Validator struct {
	schemas map[Key]*jsonschema.Schema
}

// Option configures a Validator.
type Option func(*options) error

type options struct {
	documents map[Key][]byte
}

// WithDocument replaces the embedded document for a dialect and direction.
func WithDocument(variant dialect.Variant, dir Direction, doc []byte) Option {
	return func(o *options) error {
		if len(bytes.TrimSpace(doc)) == 0 {
			return errors.NewValidationError("document", nil, "schema document is empty")
		}
		o.documents[Key{Variant: variant, Direction: dir}] = doc
		return nil
	}
}

// Keys lists every dialect/direction pair the validator serves.
func Keys() []Key {
	return []Key{
		{dialect.Federal, Import},
		{dialect.Federal, Export},
		{dialect.NonFederal, Import},
		{dialect.NonFederal, Export},
	}
}

// New compiles the embedded documents, applying any overrides.
func New(opts ...Option) (*Validator, error) {
	o := &options{documents: make(map[Key][]byte)}
	for _, key := range Keys() {
		data, err := embedded.ReadFile("schemas/" + key.String() + ".json")
		if err != nil {
			return nil, errors.WrapIO("read", key.String(), err)
		}
		o.documents[key] = data
	}
	for _, opt := range opts {
		if err := opt(o); err != nil {
			return nil, err
		}
	}

	v := &Validator{schemas: make(map[Key]*jsonschema.Schema, len(o.documents))}
	for key, doc := range o.documents {
		compiled, err := compile(key, doc)
		if err != nil {
			return nil, err
		}
		v.schemas[key] = compiled
	}
	return v, nil
}

func compile(key Key, doc []byte) (*jsonschema.Schema, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020
	if err := c.AddResource(key.url(), bytes.NewReader(doc)); err != nil {
		return nil, errors.NewParseError("json-schema", key.String(), "cannot load schema", err)
	}
	compiled, err := c.Compile(key.url())
	if err != nil {
		return nil, errors.NewParseError("json-schema", key.String(), "cannot compile schema", err)
	}
	return compiled, nil
}

var (
	defaultOnce      sync.Once
	defaultValidator *Validator
	defaultErr       error
)

// Default returns a process-wide validator over the embedded documents.
func Default() (*Validator, error) {
	defaultOnce.Do(func() {
		defaultValidator, defaultErr = New()
	})
	return defaultValidator, defaultErr
}

// Validate returns every violation of doc against the document for variant
// and dir. An empty result means valid. doc may be any JSON-encodable value.
func (v *Validator) Validate(doc any, variant dialect.Variant, dir Direction) []errors.Violation {
	key := Key{Variant: dialect.ParseVariant(variant.String()), Direction: dir}
	compiled, ok := v.schemas[key]
	if !ok {
		return []errors.Violation{{Message: fmt.Sprintf("no schema document for %s", key)}}
	}

	instance, err := toInstance(doc)
	if err != nil {
		return []errors.Violation{{Message: "document is not JSON encodable: " + err.Error()}}
	}

	err = compiled.Validate(instance)
	if err == nil {
		return nil
	}
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		return []errors.Violation{{Message: err.Error()}}
	}
	return flatten(ve)
}

// Check validates doc and wraps any violations into a SchemaViolationError
// carrying the document's identifier and title.
func (v *Validator) Check(doc any, variant dialect.Variant, dir Direction) error {
	violations := v.Validate(doc, variant, dir)
	if len(violations) == 0 {
		return nil
	}
	identifier, title := describe(doc)
	key := Key{Variant: dialect.ParseVariant(variant.String()), Direction: dir}
	return errors.NewSchemaViolationError(key.String(), identifier, title, violations)
}

// toInstance converts doc to the plain decoded-JSON shape the compiled
// schemas operate on.
func toInstance(doc any) (any, error) {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var instance any
	if err := dec.Decode(&instance); err != nil {
		return nil, err
	}
	return instance, nil
}

func flatten(root *jsonschema.ValidationError) []errors.Violation {
	seen := make(map[errors.Violation]bool)
	var out []errors.Violation
	var walk func(*jsonschema.ValidationError)
	walk = func(ve *jsonschema.ValidationError) {
		if len(ve.Causes) == 0 {
			violation := errors.Violation{Path: ve.InstanceLocation, Message: ve.Message}
			if !seen[violation] {
				seen[violation] = true
				out = append(out, violation)
			}
			return
		}
		for _, cause := range ve.Causes {
			walk(cause)
		}
	}
	walk(root)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func describe(doc any) (identifier, title string) {
	instance, err := toInstance(doc)
	if err != nil {
		return "Unknown", "Unknown"
	}
	identifier, title = "Unknown", "Unknown"
	if m, ok := instance.(map[string]any); ok {
		if s, ok := m["identifier"].(string); ok && s != "" {
			identifier = s
		}
		if s, ok := m["title"].(string); ok && s != "" {
			title = s
		}
	}
	return identifier, title
}
