package llm

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/xeipuuv/gojsonschema"
)

// ResponseSchema describes the JSON document a model response must conform to.
type ResponseSchema struct {
	Name        string
	Description string
	Schema      *jsonschema.Schema

	compiled *gojsonschema.Schema
}

// SchemaFor derives a response schema from T. Every field without omitempty is required and
// additional properties are rejected.
func SchemaFor[T any](name, description string) (*ResponseSchema, error) {
	s, err := jsonschema.For[T](nil)
	if err != nil {
		return nil, fmt.Errorf("failed to derive schema %s: %w", name, err)
	}
	// The draft marker is not understood by every validator or provider.
	s.Schema = ""
	rs := &ResponseSchema{Name: name, Description: description, Schema: s}
	if err := rs.compile(); err != nil {
		return nil, err
	}
	return rs, nil
}

// MustSchemaFor is like SchemaFor but panics on error. For package-level schemas.
func MustSchemaFor[T any](name, description string) *ResponseSchema {
	rs, err := SchemaFor[T](name, description)
	if err != nil {
		panic(err)
	}
	return rs
}

// WithEnum restricts a top-level string property to the given values.
func (s *ResponseSchema) WithEnum(property string, values ...string) *ResponseSchema {
	prop, ok := s.Schema.Properties[property]
	if !ok {
		panic(fmt.Sprintf("schema %s has no property %q", s.Name, property))
	}
	prop.Enum = make([]any, len(values))
	for i, v := range values {
		prop.Enum[i] = v
	}
	if err := s.compile(); err != nil {
		panic(err)
	}
	return s
}

// JSON returns the schema document.
func (s *ResponseSchema) JSON() (json.RawMessage, error) {
	b, err := json.Marshal(s.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema %s: %w", s.Name, err)
	}
	return b, nil
}

// Properties returns the top-level properties as generic JSON values.
func (s *ResponseSchema) Properties() map[string]any {
	b, err := s.JSON()
	if err != nil {
		return nil
	}
	var doc struct {
		Properties map[string]any `json:"properties"`
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil
	}
	return doc.Properties
}

// Required returns the required top-level property names.
func (s *ResponseSchema) Required() []string {
	return s.Schema.Required
}

// Validate checks a JSON document against the schema and reports every violation.
func (s *ResponseSchema) Validate(doc []byte) error {
	if s.compiled == nil {
		if err := s.compile(); err != nil {
			return err
		}
	}
	res, err := s.compiled.Validate(gojsonschema.NewBytesLoader(doc))
	if err != nil {
		return fmt.Errorf("invalid JSON document: %w", err)
	}
	if res.Valid() {
		return nil
	}
	msgs := make([]string, 0, len(res.Errors()))
	for _, e := range res.Errors() {
		msgs = append(msgs, e.String())
	}
	return errors.New(strings.Join(msgs, "; "))
}

func (s *ResponseSchema) compile() error {
	b, err := s.JSON()
	if err != nil {
		return err
	}
	compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(b))
	if err != nil {
		return fmt.Errorf("failed to compile schema %s: %w", s.Name, err)
	}
	s.compiled = compiled
	return nil
}
