package etl

import (
	"context"
	"database/sql"

	"github.com/BartekS5/sqlexport/pkg/models"
)

// Source is the relational side of an export.
type Source interface {
	// Columns returns the columns of table in catalog order.
	Columns(ctx context.Context, table string) ([]models.ColumnMetadata, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	// Placeholder returns the driver's bind marker for the n-th (1-based) parameter.
	Placeholder(n int) string
	PingContext(ctx context.Context) error
}

// ChunkReader yields the records of one unit a chunk at a time and io.EOF
// once exhausted.
type ChunkReader interface {
	Next(ctx context.Context) ([]Record, error)
	Close() error
}

// Writer receives the records of one unit. Nothing is visible at the final
// path until Finalize succeeds; Abort removes everything written so far.
type Writer interface {
	Append(rec Record) error
	Finalize() error
	Abort() error
	Path() string
}

// Format creates Writers for one output container format.
type Format interface {
	Extension() string
	Create(schema *Descriptor, path string) (Writer, error)
}
