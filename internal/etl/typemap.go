package etl

import (
	"regexp"
	"strings"
)

// FieldType is the target type of an exported field.
type FieldType int

const (
	String FieldType = iota
	Int32
	Int64
	Float32
	Float64
	Boolean
	DateString
)

var fieldTypeNames = [...]string{"String", "Int32", "Int64", "Float32", "Float64", "Boolean", "DateString"}

func (t FieldType) String() string {
	if int(t) < 0 || int(t) >= len(fieldTypeNames) {
		return "Unknown"
	}
	return fieldTypeNames[t]
}

func (t FieldType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

var typeClasses = map[string]FieldType{
	"VARCHAR": String,
	"CHAR":    String,
	"TEXT":    String,

	"INT":     Int32,
	"INTEGER": Int32,
	"INT4":    Int32,

	"BIGINT": Int64,
	"INT8":   Int64,

	"FLOAT":  Float32,
	"REAL":   Float32,
	"FLOAT4": Float32,

	"DOUBLE":           Float64,
	"DOUBLE PRECISION": Float64,
	"FLOAT8":           Float64,

	"NUMERIC": String,
	"DECIMAL": String,

	"BIT":     Boolean,
	"BOOLEAN": Boolean,
	"BOOL":    Boolean,

	"DATE":          DateString,
	"TIMESTAMP":     DateString,
	"TIMESTAMPTZ":   DateString,
	"DATETIME":      DateString,
	"DATETIME2":     DateString,
	"SMALLDATETIME": DateString,
}

var (
	typeParams = regexp.MustCompile(`\s*\(.*?\)`)
	timeZone   = regexp.MustCompile(`\s+WITH(OUT)?\s+TIME\s+ZONE$`)
	spaces     = regexp.MustCompile(`\s+`)
)

// normalizeSourceType upper-cases a catalog type name and strips
// precision/scale and zone qualifiers: "decimal(10, 2)" -> "DECIMAL".
func normalizeSourceType(sourceType string) string {
	t := strings.ToUpper(strings.TrimSpace(sourceType))
	t = typeParams.ReplaceAllString(t, "")
	t = spaces.ReplaceAllString(t, " ")
	return timeZone.ReplaceAllString(t, "")
}

// MapType maps a catalog type name to its export FieldType.
// Unrecognised types map to String.
func MapType(sourceType string) FieldType {
	if ft, ok := typeClasses[normalizeSourceType(sourceType)]; ok {
		return ft
	}
	return String
}

// isDateOnly reports whether a DateString field carries no time of day.
func isDateOnly(sourceType string) bool {
	return normalizeSourceType(sourceType) == "DATE"
}
