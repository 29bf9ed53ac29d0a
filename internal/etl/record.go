package etl

import "fmt"

// Record is one typed row. Values are positional per the owning Descriptor:
// string, int32, int64, float32, float64, bool, or nil for null.
type Record struct {
	schema *Descriptor
	values []interface{}
}

// NewRecord checks values against schema and wraps them in a Record.
func NewRecord(schema *Descriptor, values []interface{}) (Record, error) {
	if len(values) != schema.Len() {
		return Record{}, fmt.Errorf("record has %d values, schema %q has %d fields",
			len(values), schema.RecordName(), schema.Len())
	}
	for i, v := range values {
		f := schema.Field(i)
		if v == nil {
			if !f.Nullable {
				return Record{}, fmt.Errorf("field %q is not nullable", f.Name)
			}
			continue
		}
		if !conforms(f.Type, v) {
			return Record{}, fmt.Errorf("field %q expects %s, got %T", f.Name, f.Type, v)
		}
	}
	return Record{schema: schema, values: values}, nil
}

func conforms(t FieldType, v interface{}) bool {
	switch v.(type) {
	case string:
		return t == String || t == DateString
	case int32:
		return t == Int32
	case int64:
		return t == Int64
	case float32:
		return t == Float32
	case float64:
		return t == Float64
	case bool:
		return t == Boolean
	}
	return false
}

func (r Record) Schema() *Descriptor { return r.schema }

func (r Record) Len() int { return len(r.values) }

func (r Record) Value(i int) interface{} { return r.values[i] }
