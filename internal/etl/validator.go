package etl

import (
	"fmt"
	"strings"
)

// ValidateColumns checks that a query returns exactly the schema's fields in
// schema order. Values are decoded by position, so any drift is fatal.
func ValidateColumns(schema *Descriptor, columns []string) error {
	if len(columns) != schema.Len() {
		return &SchemaError{Table: schema.Table(), Err: fmt.Errorf(
			"query returns %d columns, schema has %d fields", len(columns), schema.Len())}
	}
	for i, col := range columns {
		if want := schema.Field(i).Name; !strings.EqualFold(col, want) {
			return &SchemaError{Table: schema.Table(), Err: fmt.Errorf(
				"query column %d is %q, schema expects %q", i+1, col, want)}
		}
	}
	return nil
}
