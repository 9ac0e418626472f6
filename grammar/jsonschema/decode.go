// Package jsonschema decodes the subset of JSON Schema the grammar
// compiler consumes: types, ordered object properties, tuple and list
// items, and enums. Keywords outside that subset are ignored.
package jsonschema

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Schema is one node of a JSON schema document.
type Schema struct {
	// Name is the property name this node was reached through; "root"
	// for the document itself.
	Name string `json:"-"`

	// Type is the declared type, if any. See EffectiveType.
	Type string

	// PrefixItems is a list of schemas for each item in a tuple. By
	// default, the tuple is "closed" unless Items is set to true or a
	// valid Schema.
	PrefixItems []*Schema

	// Items is the schema for each item in a list.
	//
	// If it is missing, or its JSON value is "null" or "false", it is nil.
	// If the JSON value is "true", it is set to the empty Schema. If the
	// JSON value is an object, it will be decoded as a Schema.
	Items *Schema

	// Properties is the schema for each property of an object, in
	// declaration order.
	Properties []*Schema

	// Minimum and Maximum bound numeric properties. They are decoded so
	// documents carrying them stay readable, but a grammar constrains the
	// byte shape of a value, not its arithmetic range, so the compiler
	// does not act on them.
	Minimum float64
	Maximum float64

	// Enum is a list of valid values for the property.
	Enum []json.RawMessage
}

func (s *Schema) UnmarshalJSON(data []byte) error {
	type S Schema
	w := struct {
		Properties props
		Items      items
		*S
	}{
		S: (*S)(s),
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if w.Items.set {
		s.Items = &w.Items.Schema
	}
	s.Properties = w.Properties
	return nil
}

type items struct {
	Schema
	set bool
}

func (s *items) UnmarshalJSON(data []byte) error {
	switch b := data[0]; b {
	case 't':
		*s = items{set: true}
	case '{':
		type I items
		if err := json.Unmarshal(data, (*I)(s)); err != nil {
			return err
		}
		s.set = true
	case 'n', 'f':
	default:
		return errors.New("invalid Items")
	}
	return nil
}

// EffectiveType returns Type when declared; otherwise it is inferred:
// Properties imply "object", PrefixItems or Items imply "array", and a
// bare schema is "value" (any JSON value). The returned string is never
// empty.
func (s *Schema) EffectiveType() string {
	if s.Type == "" {
		if len(s.Properties) > 0 {
			return "object"
		}
		if len(s.PrefixItems) > 0 || s.Items != nil {
			return "array"
		}
		return "value"
	}
	return s.Type
}

// props is an ordered list of properties. The order of the properties
// is the order in which they were defined in the schema.
type props []*Schema

var _ json.Unmarshaler = (*props)(nil)

func (v *props) UnmarshalJSON(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	if data[0] != '{' {
		return errors.New("expected object")
	}

	d := json.NewDecoder(bytes.NewReader(data))

	// Unknown sibling keywords ("additionalProperties", "required", ...)
	// are skipped rather than rejected, the same lenience llama.cpp's
	// schema converter applies.

	t, err := d.Token()
	if err != nil {
		return err
	}
	if t != json.Delim('{') {
		return errors.New("expected object")
	}
	for d.More() {
		// Use the first token (map key) as the property name, then
		// decode the rest of the object fields into a Schema and
		// append.
		t, err := d.Token()
		if err != nil {
			return err
		}
		if t == json.Delim('}') {
			return nil
		}
		s := &Schema{
			Name: t.(string),
		}
		if err := d.Decode(s); err != nil {
			return err
		}
		*v = append(*v, s)
	}
	return nil
}
