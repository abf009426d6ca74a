// Package schema declares tool argument schemas and validates call arguments
// against them.
package schema

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/jsonschema-go/jsonschema"
)

// Kind is the JSON type a property accepts.
type Kind string

const (
	String  Kind = "string"
	Integer Kind = "integer"
	Boolean Kind = "boolean"
)

// Property describes one named argument.
type Property struct {
	Name        string
	Kind        Kind
	Description string
	Required    bool
	// Minimum applies to Integer properties only.
	Minimum *int64
	// Default is advertised to clients; handlers apply it themselves.
	Default any
}

// Object is an argument schema. Properties are checked in declaration order.
type Object struct {
	Properties []Property
}

// Min returns a pointer for Property.Minimum.
func Min(v int64) *int64 { return &v }

// JSONSchema renders the object as a JSON Schema document for tool listings.
func (o Object) JSONSchema() *jsonschema.Schema {
	out := &jsonschema.Schema{
		Type:       "object",
		Properties: make(map[string]*jsonschema.Schema, len(o.Properties)),
	}
	for _, p := range o.Properties {
		prop := &jsonschema.Schema{
			Type:        string(p.Kind),
			Description: p.Description,
		}
		if p.Minimum != nil {
			minimum := float64(*p.Minimum)
			prop.Minimum = &minimum
		}
		if p.Default != nil {
			if raw, err := json.Marshal(p.Default); err == nil {
				prop.Default = raw
			}
		}
		out.Properties[p.Name] = prop
		if p.Required {
			out.Required = append(out.Required, p.Name)
		}
	}
	return out
}

// Arguments holds decoded call arguments. Numbers are kept as json.Number.
type Arguments map[string]any

// ErrNotObject is returned when the arguments payload is not a JSON object.
var ErrNotObject = errors.New("arguments must be a JSON object")

// DecodeArguments decodes a tools/call arguments payload. An absent or null
// payload yields empty arguments.
func DecodeArguments(raw json.RawMessage) (Arguments, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return Arguments{}, nil
	}
	if trimmed[0] != '{' {
		return nil, ErrNotObject
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	args := Arguments{}
	if err := dec.Decode(&args); err != nil {
		return nil, fmt.Errorf("decode arguments: %w", err)
	}
	if dec.More() {
		return nil, ErrNotObject
	}
	return args, nil
}

// Int returns an integer argument, or def when it is absent or null.
// Validate must have accepted args first.
func (a Arguments) Int(name string, def int64) int64 {
	n, ok := a[name].(json.Number)
	if !ok {
		return def
	}
	v, err := n.Int64()
	if err != nil {
		return def
	}
	return v
}

// String returns a string argument, or "" when it is absent.
func (a Arguments) String(name string) string {
	s, _ := a[name].(string)
	return s
}

// Bool returns a boolean argument, or def when it is absent.
func (a Arguments) Bool(name string, def bool) bool {
	b, ok := a[name].(bool)
	if !ok {
		return def
	}
	return b
}

// ValidationError reports the first argument that does not satisfy a schema.
type ValidationError struct {
	Field    string
	Expected string
	Missing  bool
}

func (e *ValidationError) Error() string {
	if e.Missing {
		return fmt.Sprintf("missing required argument %q (%s)", e.Field, e.Expected)
	}
	return fmt.Sprintf("argument %q must be %s", e.Field, e.Expected)
}

// Validate checks args against obj. Keys not declared in obj are ignored.
func Validate(obj Object, args Arguments) error {
	for _, p := range obj.Properties {
		value, present := args[p.Name]
		if !present || value == nil {
			if p.Required {
				return &ValidationError{Field: p.Name, Expected: string(p.Kind), Missing: true}
			}
			continue
		}
		if err := checkKind(p, value); err != nil {
			return err
		}
	}
	return nil
}

func checkKind(p Property, value any) error {
	switch p.Kind {
	case String:
		if _, ok := value.(string); !ok {
			return &ValidationError{Field: p.Name, Expected: "string"}
		}
	case Boolean:
		if _, ok := value.(bool); !ok {
			return &ValidationError{Field: p.Name, Expected: "boolean"}
		}
	case Integer:
		n, ok := value.(json.Number)
		if !ok {
			return &ValidationError{Field: p.Name, Expected: "integer"}
		}
		v, err := n.Int64()
		if err != nil {
			return &ValidationError{Field: p.Name, Expected: "integer"}
		}
		if p.Minimum != nil && v < *p.Minimum {
			return &ValidationError{Field: p.Name, Expected: "integer >= " + strconv.FormatInt(*p.Minimum, 10)}
		}
	default:
		return fmt.Errorf("property %q has unsupported kind %q", p.Name, p.Kind)
	}
	return nil
}
