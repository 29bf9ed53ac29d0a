package etl

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/BartekS5/sqlexport/pkg/models"
)

// Field is one column of a Descriptor.
type Field struct {
	Name     string
	Type     FieldType
	Nullable bool
	// SourceType and SourceNullable are the catalog's own view of the column.
	SourceType     string
	SourceNullable bool
}

// Descriptor is the immutable, ordered record schema of one table. The
// reader emits values and the writers consume them by field position.
type Descriptor struct {
	recordName string
	table      string
	fields     []Field
}

// BuildSchema derives a Descriptor from catalog columns, keeping their order.
// Every field is nullable regardless of what the catalog reports.
func BuildSchema(table string, columns []models.ColumnMetadata) (*Descriptor, error) {
	if len(columns) == 0 {
		return nil, &SchemaError{Table: table, Err: errors.New("table has no columns")}
	}
	d := &Descriptor{
		recordName: recordName(table),
		table:      table,
		fields:     make([]Field, 0, len(columns)),
	}
	seen := make(map[string]bool, len(columns))
	for i, col := range columns {
		if col.Name == "" {
			return nil, &SchemaError{Table: table, Err: fmt.Errorf("column %d has no name", i+1)}
		}
		key := strings.ToLower(col.Name)
		if seen[key] {
			return nil, &SchemaError{Table: table, Err: fmt.Errorf("duplicate column %q", col.Name)}
		}
		seen[key] = true
		d.fields = append(d.fields, Field{
			Name:           col.Name,
			Type:           MapType(col.SourceType),
			Nullable:       true,
			SourceType:     col.SourceType,
			SourceNullable: col.Nullable,
		})
	}
	return d, nil
}

func (d *Descriptor) RecordName() string { return d.recordName }

func (d *Descriptor) Table() string { return d.table }

func (d *Descriptor) Len() int { return len(d.fields) }

func (d *Descriptor) Field(i int) Field { return d.fields[i] }

// recordName turns a table name such as "dbo.order-lines" into a valid
// Avro/Parquet record name ("dbo_order_lines").
func recordName(table string) string {
	var b strings.Builder
	for i, r := range table {
		switch {
		case r == '_' || (r < unicode.MaxASCII && unicode.IsLetter(r)):
			b.WriteRune(r)
		case r >= '0' && r <= '9':
			if i == 0 {
				b.WriteByte('_')
			}
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "TableRecord"
	}
	return b.String()
}

var avroTypes = map[FieldType]string{
	String:     "string",
	Int32:      "int",
	Int64:      "long",
	Float32:    "float",
	Float64:    "double",
	Boolean:    "boolean",
	DateString: "string",
}

type avroField struct {
	Name    string           `json:"name"`
	Type    interface{}      `json:"type"`
	Default *json.RawMessage `json:"default,omitempty"`
	Doc     string           `json:"doc,omitempty"`
}

var avroNull = json.RawMessage("null")

type avroRecord struct {
	Type   string      `json:"type"`
	Name   string      `json:"name"`
	Fields []avroField `json:"fields"`
}

// AvroSchema renders the descriptor as an Avro record schema. Nullable fields
// become ["null", type] unions defaulting to null.
func (d *Descriptor) AvroSchema() ([]byte, error) {
	rec := avroRecord{Type: "record", Name: d.recordName, Fields: make([]avroField, 0, len(d.fields))}
	for _, f := range d.fields {
		af := avroField{Name: f.Name, Doc: f.SourceType}
		if f.Nullable {
			af.Type = []string{"null", avroTypes[f.Type]}
			af.Default = &avroNull
		} else {
			af.Type = avroTypes[f.Type]
		}
		rec.Fields = append(rec.Fields, af)
	}
	return json.MarshalIndent(rec, "", "  ")
}
