package domain

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Context identifies one partition of a stream: the values that resolve its
// path template and distinguish its bookmark from its siblings.
//
// A Context is immutable. With returns a new Context and never touches the
// receiver, so contexts handed to sibling partitions cannot alias each other.
// The zero value is the null context used by unpartitioned streams.
type Context struct {
	fields map[string]any
}

// NewContext creates a context holding a copy of fields.
func NewContext(fields map[string]any) Context {
	if len(fields) == 0 {
		return Context{}
	}
	cp := make(map[string]any, len(fields))
	for k, v := range fields {
		cp[k] = v
	}
	return Context{fields: cp}
}

// With returns a copy of the context extended with fields.
// Fields already present are overridden.
func (c Context) With(fields map[string]any) Context {
	cp := make(map[string]any, len(c.fields)+len(fields))
	for k, v := range c.fields {
		cp[k] = v
	}
	for k, v := range fields {
		cp[k] = v
	}
	if len(cp) == 0 {
		return Context{}
	}
	return Context{fields: cp}
}

// IsNull reports whether this is the null context.
func (c Context) IsNull() bool {
	return len(c.fields) == 0
}

// Len returns the number of fields.
func (c Context) Len() int {
	return len(c.fields)
}

// Get returns the value of a field.
func (c Context) Get(key string) (any, bool) {
	v, ok := c.fields[key]
	return v, ok
}

// Has reports whether the field is present.
func (c Context) Has(key string) bool {
	_, ok := c.fields[key]
	return ok
}

// GetString returns the field formatted as a string, or "" when absent.
func (c Context) GetString(key string) string {
	v, ok := c.fields[key]
	if !ok || v == nil {
		return ""
	}
	return FormatValue(v)
}

// Keys returns the field names in sorted order.
func (c Context) Keys() []string {
	keys := make([]string, 0, len(c.fields))
	for k := range c.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns a copy of the fields.
func (c Context) Map() map[string]any {
	cp := make(map[string]any, len(c.fields))
	for k, v := range c.fields {
		cp[k] = v
	}
	return cp
}

// PartitionKey builds the bookmark key of this context for the given
// partitioning keys. Every key must be present in the context.
func (c Context) PartitionKey(keys []string) (PartitionKey, error) {
	if len(keys) == 0 {
		return PartitionKey{}, nil
	}
	parts := make([]PartitionPart, 0, len(keys))
	for _, k := range keys {
		v, ok := c.fields[k]
		if !ok {
			return PartitionKey{}, fmt.Errorf("%w: context %s has no partitioning key %q", ErrConfiguration, c.Describe(), k)
		}
		parts = append(parts, PartitionPart{Name: k, Value: FormatValue(v)})
	}
	return PartitionKey{Parts: parts}, nil
}

// Describe renders the context as {k=v, ...} in key order for logs.
func (c Context) Describe() string {
	if c.IsNull() {
		return "{}"
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range c.Keys() {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(FormatValue(c.fields[k]))
	}
	b.WriteByte('}')
	return b.String()
}

// PartitionPart is one named value of a partition key.
type PartitionPart struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// PartitionKey is the ordered list of partitioning values that identifies a
// partition's bookmark within a stream. The zero value identifies the single
// partition of an unpartitioned stream.
type PartitionKey struct {
	Parts []PartitionPart
}

// String encodes the key as name=value pairs joined by "&", e.g. "repo=tap&org=acme".
// The encoding is stable and used as the storage key.
func (k PartitionKey) String() string {
	if len(k.Parts) == 0 {
		return ""
	}
	pairs := make([]string, len(k.Parts))
	for i, p := range k.Parts {
		pairs[i] = p.Name + "=" + p.Value
	}
	return strings.Join(pairs, "&")
}

// FormatValue renders a scalar context or record value as a string.
// Whole floats are printed without a fractional part so that identifiers
// decoded as float64 still produce clean path segments.
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		if x == float64(int64(x)) {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
