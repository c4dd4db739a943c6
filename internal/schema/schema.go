// Package schema describes the structured output expected from a model.
//
// A Schema is reflected from a Go type (or parsed from raw JSON Schema),
// exposes a backend-neutral wire form, and validates decoded JSON values.
package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"regexp"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// metaKeys are stripped from the wire form; backends reject or ignore them.
var metaKeys = []string{"$schema", "$id", "$defs", "definitions"}

var unsafeName = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Schema is a compiled JSON Schema plus its wire representation.
type Schema struct {
	name     string
	wire     map[string]any
	compiled *jsonschema.Schema
}

// For reflects a Schema from T. Fields without omitempty are required and
// unknown properties are rejected.
func For[T any]() (*Schema, error) {
	var zero T
	typ := reflect.TypeOf(zero)
	name := "output"
	if typ != nil && typ.Name() != "" {
		name = typ.Name()
	}

	r := &invopop.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
		Anonymous:      true,
	}
	data, err := json.Marshal(r.Reflect(&zero))
	if err != nil {
		return nil, fmt.Errorf("marshaling reflected schema for %s: %w", name, err)
	}
	return FromJSON(name, data)
}

// MustFor is For that panics; for package-level schema variables.
func MustFor[T any]() *Schema {
	s, err := For[T]()
	if err != nil {
		panic(err)
	}
	return s
}

// FromJSON compiles a raw JSON Schema document.
func FromJSON(name string, data []byte) (*Schema, error) {
	name = unsafeName.ReplaceAllString(name, "_")
	if name == "" {
		name = "output"
	}

	var wire map[string]any
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("schema %s is not a JSON object: %w", name, err)
	}
	for _, k := range metaKeys {
		delete(wire, k)
	}

	stripped, err := json.Marshal(wire)
	if err != nil {
		return nil, fmt.Errorf("marshaling schema %s: %w", name, err)
	}
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(stripped))
	if err != nil {
		return nil, fmt.Errorf("decoding schema %s: %w", name, err)
	}

	url := "https://prreview.local/schemas/" + name + ".json"
	c := jsonschema.NewCompiler()
	if err := c.AddResource(url, doc); err != nil {
		return nil, fmt.Errorf("adding schema %s: %w", name, err)
	}
	compiled, err := c.Compile(url)
	if err != nil {
		return nil, fmt.Errorf("compiling schema %s: %w", name, err)
	}

	return &Schema{name: name, wire: wire, compiled: compiled}, nil
}

// Name is a backend-safe identifier for the schema.
func (s *Schema) Name() string { return s.name }

// Wire returns a fresh copy of the JSON Schema map sent to backends.
func (s *Schema) Wire() map[string]any {
	return deepCopy(s.wire).(map[string]any)
}

// Validate checks a decoded JSON value. Use Decode to obtain one.
func (s *Schema) Validate(v any) error {
	return s.compiled.Validate(v)
}

// Decode parses raw JSON into the value representation Validate expects.
func Decode(raw []byte) (any, error) {
	return jsonschema.UnmarshalJSON(bytes.NewReader(raw))
}

func deepCopy(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = deepCopy(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = deepCopy(val)
		}
		return out
	default:
		return v
	}
}
