package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/BartekS5/sqlexport/pkg/models"
)

// Source is a relational database that exports read from.
type Source struct {
	DB      *sql.DB
	Dialect Dialect
}

func NewSource(db *sql.DB, dialect Dialect) *Source {
	return &Source{DB: db, Dialect: dialect}
}

// Columns reads table's columns from the catalog in ordinal order. An
// unknown table yields no columns and no error.
func (s *Source) Columns(ctx context.Context, table string) ([]models.ColumnMetadata, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.columnsQuery, s.Dialect.catalogArgs(table)...)
	if err != nil {
		return nil, fmt.Errorf("catalog query for %s: %w", table, err)
	}
	defer rows.Close()

	var cols []models.ColumnMetadata
	for rows.Next() {
		var (
			name, dataType sql.NullString
			nullable       sql.NullString
		)
		if err := rows.Scan(&name, &dataType, &nullable); err != nil {
			return nil, fmt.Errorf("catalog row for %s: %w", table, err)
		}
		cols = append(cols, models.ColumnMetadata{
			Name:       name.String,
			SourceType: dataType.String,
			Nullable:   !strings.EqualFold(nullable.String, "NO"),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog query for %s: %w", table, err)
	}
	return cols, nil
}

func (s *Source) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return s.DB.QueryContext(ctx, query, args...)
}

func (s *Source) Placeholder(n int) string { return s.Dialect.Placeholder(n) }

func (s *Source) PingContext(ctx context.Context) error { return s.DB.PingContext(ctx) }

func (s *Source) Close() error { return s.DB.Close() }
