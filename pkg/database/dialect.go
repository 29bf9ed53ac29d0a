package database

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Dialect holds what differs between supported source databases: the
// database/sql driver name, bind markers and the catalog query.
type Dialect struct {
	Name   string
	Driver string

	placeholder func(n int) string
	// columnsQuery takes (schema, table) unless tableOnly is set. An empty
	// schema means the connection's current schema.
	columnsQuery string
	tableOnly    bool
}

func (d Dialect) Placeholder(n int) string { return d.placeholder(n) }

func (d Dialect) catalogArgs(name string) []any {
	schema, table := SplitTableName(name)
	if d.tableOnly {
		return []any{table}
	}
	return []any{schema, table}
}

func ordinal(prefix string) func(int) string {
	return func(n int) string { return prefix + strconv.Itoa(n) }
}

func question(int) string { return "?" }

// Dialects are keyed by the SQL_DRIVER values they answer to.
var Dialects = map[string]Dialect{
	"sqlserver": {
		Name:        "sqlserver",
		Driver:      "sqlserver",
		placeholder: ordinal("@p"),
		columnsQuery: `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(@p1, ''), SCHEMA_NAME()) AND TABLE_NAME = @p2
ORDER BY ORDINAL_POSITION`,
	},
	"postgres": {
		Name:        "postgres",
		Driver:      "postgres",
		placeholder: ordinal("$"),
		columnsQuery: `SELECT column_name, data_type, is_nullable
FROM information_schema.columns
WHERE table_schema = COALESCE(NULLIF($1, ''), current_schema()) AND table_name = $2
ORDER BY ordinal_position`,
	},
	"mysql": {
		Name:        "mysql",
		Driver:      "mysql",
		placeholder: question,
		columnsQuery: `SELECT COLUMN_NAME, DATA_TYPE, IS_NULLABLE
FROM INFORMATION_SCHEMA.COLUMNS
WHERE TABLE_SCHEMA = COALESCE(NULLIF(?, ''), DATABASE()) AND TABLE_NAME = ?
ORDER BY ORDINAL_POSITION`,
	},
	"sqlite": {
		Name:        "sqlite",
		Driver:      "sqlite",
		placeholder: question,
		columnsQuery: `SELECT name, type, CASE WHEN "notnull" = 0 THEN 'YES' ELSE 'NO' END
FROM pragma_table_info(?)
ORDER BY cid`,
		tableOnly: true,
	},
}

var dialectAliases = map[string]string{
	"mssql":      "sqlserver",
	"postgresql": "postgres",
	"pgx":        "postgres",
	"sqlite3":    "sqlite",
}

// LookupDialect resolves a driver name, case-insensitively and with common aliases.
func LookupDialect(name string) (Dialect, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if alias, ok := dialectAliases[key]; ok {
		key = alias
	}
	d, ok := Dialects[key]
	if !ok {
		names := make([]string, 0, len(Dialects))
		for n := range Dialects {
			names = append(names, n)
		}
		sort.Strings(names)
		return Dialect{}, fmt.Errorf("unsupported SQL driver %q, expected one of %s", name, strings.Join(names, ", "))
	}
	return d, nil
}

// SplitTableName splits "schema.table" and strips identifier quoting.
// A bare name has an empty schema.
func SplitTableName(name string) (schema, table string) {
	unquote := func(s string) string {
		s = strings.TrimSpace(s)
		s = strings.TrimPrefix(strings.TrimSuffix(s, "]"), "[")
		return strings.Trim(s, "\"`")
	}
	if i := strings.LastIndex(name, "."); i >= 0 {
		return unquote(name[:i]), unquote(name[i+1:])
	}
	return "", unquote(name)
}
