package etl

import (
	"github.com/BartekS5/sqlexport/pkg/utils"
)

// Transformer decodes raw driver rows into Records of one schema. Each value
// is coerced to the type of the field at the same position.
type Transformer struct {
	schema   *Descriptor
	dateOnly []bool
}

func NewTransformer(schema *Descriptor) *Transformer {
	t := &Transformer{schema: schema, dateOnly: make([]bool, schema.Len())}
	for i, f := range schema.fields {
		t.dateOnly[i] = f.Type == DateString && isDateOnly(f.SourceType)
	}
	return t
}

// Decode converts one scanned row. row is the 1-based ordinal used in errors.
func (t *Transformer) Decode(raw []interface{}, row int64) (Record, error) {
	values := make([]interface{}, len(raw))
	for i, val := range raw {
		f := t.schema.fields[i]
		if val == nil {
			values[i] = nil
			continue
		}
		v, err := t.decodeValue(i, f.Type, val)
		if err != nil {
			return Record{}, &RowDecodeError{Table: t.schema.table, Column: f.Name, Row: row, Err: err}
		}
		values[i] = v
	}
	return Record{schema: t.schema, values: values}, nil
}

func (t *Transformer) decodeValue(i int, ft FieldType, val interface{}) (interface{}, error) {
	switch ft {
	case Int32:
		return utils.ToInt32(val)
	case Int64:
		return utils.ToInt64(val)
	case Float32:
		return utils.ToFloat32(val)
	case Float64:
		return utils.ToFloat64(val)
	case Boolean:
		return utils.ToBool(val)
	case DateString:
		return utils.FormatDate(val, t.dateOnly[i])
	default:
		return utils.ToString(val), nil
	}
}
