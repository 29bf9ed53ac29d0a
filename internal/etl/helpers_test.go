package etl

import (
	"context"
	"database/sql"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/sqlexport/pkg/models"
)

// fakeSource serves catalog columns from a map and queries from db, which is
// usually a sqlmock connection.
type fakeSource struct {
	db          *sql.DB
	columns     map[string][]models.ColumnMetadata
	columnsErr  error
	queryErr    error
	pingErr     error
	columnCalls atomic.Int32
}

func (s *fakeSource) Columns(ctx context.Context, table string) ([]models.ColumnMetadata, error) {
	s.columnCalls.Add(1)
	if s.columnsErr != nil {
		return nil, s.columnsErr
	}
	return s.columns[table], nil
}

func (s *fakeSource) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	if s.queryErr != nil {
		return nil, s.queryErr
	}
	return s.db.QueryContext(ctx, query, args...)
}

func (s *fakeSource) Placeholder(n int) string { return "?" }

func (s *fakeSource) PingContext(ctx context.Context) error { return s.pingErr }

func newMockSource(t *testing.T) (*fakeSource, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &fakeSource{db: db, columns: map[string][]models.ColumnMetadata{}}, mock
}

func ordersColumns() []models.ColumnMetadata {
	return []models.ColumnMetadata{
		{Name: "id", SourceType: "INT", Nullable: false},
		{Name: "total", SourceType: "DECIMAL(10,2)", Nullable: true},
		{Name: "created", SourceType: "TIMESTAMP", Nullable: true},
	}
}

func ordersSchema(t *testing.T) *Descriptor {
	t.Helper()
	d, err := BuildSchema("orders", ordersColumns())
	require.NoError(t, err)
	return d
}

func mustRecord(t *testing.T, d *Descriptor, values ...interface{}) Record {
	t.Helper()
	rec, err := NewRecord(d, values)
	require.NoError(t, err)
	return rec
}
