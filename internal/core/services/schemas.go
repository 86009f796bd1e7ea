package services

import (
	"bytes"
	"encoding/json"
	"fmt"

	jsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// SchemaRegistry holds the compiled JSON Schema of every stream and
// validates records against them.
type SchemaRegistry struct {
	compiled map[string]*jsonschema.Schema
}

// NewSchemaRegistry compiles the schema of each stream.
func NewSchemaRegistry(streams []*domain.Stream) (*SchemaRegistry, error) {
	r := &SchemaRegistry{compiled: make(map[string]*jsonschema.Schema, len(streams))}
	c := jsonschema.NewCompiler()
	for _, s := range streams {
		doc, err := roundTrip(s.Schema.JSON())
		if err != nil {
			return nil, fmt.Errorf("encode schema %s: %w", s.Name, err)
		}
		url := "mem://streams/" + s.Name + ".json"
		if err := c.AddResource(url, doc); err != nil {
			return nil, fmt.Errorf("add schema %s: %w", s.Name, err)
		}
		compiled, err := c.Compile(url)
		if err != nil {
			return nil, fmt.Errorf("compile schema %s: %w", s.Name, err)
		}
		r.compiled[s.Name] = compiled
	}
	return r, nil
}

// Validate checks a record against its stream schema.
// Streams without a compiled schema accept every record.
func (r *SchemaRegistry) Validate(stream string, rec domain.Record) error {
	sch, ok := r.compiled[stream]
	if !ok {
		return nil
	}
	inst, err := roundTrip(rec)
	if err != nil {
		return fmt.Errorf("%w: stream %s: encode record: %w", domain.ErrMalformedResponse, stream, err)
	}
	if err := sch.Validate(inst); err != nil {
		return fmt.Errorf("%w: stream %s: %w", domain.ErrMalformedResponse, stream, err)
	}
	return nil
}

// roundTrip converts v into the generic form the validator expects.
func roundTrip(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return jsonschema.UnmarshalJSON(bytes.NewReader(b))
}
