package domain

// Type is a JSON Schema type declaration. Every declared type is nullable,
// because the API returns null for most optional fields.
type Type struct {
	kind       string
	format     string
	items      *Type
	properties []Property
}

// Property is a named field of an object type.
type Property struct {
	Name string
	Type Type
}

// StringType declares a string.
func StringType() Type { return Type{kind: "string"} }

// IntegerType declares an integer.
func IntegerType() Type { return Type{kind: "integer"} }

// NumberType declares a number.
func NumberType() Type { return Type{kind: "number"} }

// BooleanType declares a boolean.
func BooleanType() Type { return Type{kind: "boolean"} }

// DateTimeType declares an RFC 3339 timestamp string.
func DateTimeType() Type { return Type{kind: "string", format: "date-time"} }

// ArrayType declares an array of items.
func ArrayType(items Type) Type { return Type{kind: "array", items: &items} }

// ObjectType declares an object with the given properties.
func ObjectType(props ...Property) Type { return Type{kind: "object", properties: props} }

// Prop declares a property.
func Prop(name string, t Type) Property { return Property{Name: name, Type: t} }

// JSON renders the type as a JSON Schema fragment.
func (t Type) JSON() map[string]any {
	out := map[string]any{"type": []any{t.kind, "null"}}
	if t.format != "" {
		out["format"] = t.format
	}
	if t.items != nil {
		out["items"] = t.items.JSON()
	}
	if t.kind == "object" {
		props := make(map[string]any, len(t.properties))
		for _, p := range t.properties {
			props[p.Name] = p.Type.JSON()
		}
		out["properties"] = props
	}
	return out
}

// Schema is the declared shape of a stream's records.
type Schema struct {
	properties []Property
	index      map[string]int
}

// NewSchema builds a schema from its top-level properties. A property
// declared twice keeps its last declaration.
func NewSchema(props ...Property) *Schema {
	s := &Schema{index: make(map[string]int, len(props))}
	for _, p := range props {
		if i, ok := s.index[p.Name]; ok {
			s.properties[i] = p
			continue
		}
		s.index[p.Name] = len(s.properties)
		s.properties = append(s.properties, p)
	}
	return s
}

// Has reports whether the schema declares a top-level property.
func (s *Schema) Has(name string) bool {
	if s == nil {
		return false
	}
	_, ok := s.index[name]
	return ok
}

// Names returns the top-level property names in declaration order.
func (s *Schema) Names() []string {
	if s == nil {
		return nil
	}
	names := make([]string, len(s.properties))
	for i, p := range s.properties {
		names[i] = p.Name
	}
	return names
}

// JSON renders the schema as a JSON Schema document.
func (s *Schema) JSON() map[string]any {
	props := make(map[string]any)
	if s != nil {
		for _, p := range s.properties {
			props[p.Name] = p.Type.JSON()
		}
	}
	return map[string]any{
		"type":       "object",
		"properties": props,
	}
}
