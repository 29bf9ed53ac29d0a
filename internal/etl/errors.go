package etl

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// ErrorKind classifies why an export unit failed.
type ErrorKind string

const (
	KindSchema           ErrorKind = "SchemaError"
	KindSourceConnection ErrorKind = "SourceConnectionError"
	KindSourceQuery      ErrorKind = "SourceQueryError"
	KindRowDecode        ErrorKind = "RowDecodeError"
	KindDestinationWrite ErrorKind = "DestinationWriteError"
	KindCancelled        ErrorKind = "Cancelled"
	KindUnknown          ErrorKind = "UnknownError"
)

var ErrCancelled = errors.New("export cancelled")

// SchemaError means a table's schema could not be built or does not match
// its query. It fails every unit of that table.
type SchemaError struct {
	Table string
	Err   error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema of table %q: %v", e.Table, e.Err)
}

func (e *SchemaError) Unwrap() error { return e.Err }

// SourceConnectionError means the source is unreachable. Once seen, units
// that have not started yet fail without touching the source.
type SourceConnectionError struct {
	Err error
}

func (e *SourceConnectionError) Error() string {
	return fmt.Sprintf("source connection: %v", e.Err)
}

func (e *SourceConnectionError) Unwrap() error { return e.Err }

// SourceQueryError is a failed query or cursor that is not a connection problem.
type SourceQueryError struct {
	Table string
	Err   error
}

func (e *SourceQueryError) Error() string {
	return fmt.Sprintf("query of table %q: %v", e.Table, e.Err)
}

func (e *SourceQueryError) Unwrap() error { return e.Err }

// RowDecodeError carries the column and 1-based row ordinal of a value that
// could not be coerced to its field type.
type RowDecodeError struct {
	Table  string
	Column string
	Row    int64
	Err    error
}

func (e *RowDecodeError) Error() string {
	return fmt.Sprintf("table %q row %d column %q: %v", e.Table, e.Row, e.Column, e.Err)
}

func (e *RowDecodeError) Unwrap() error { return e.Err }

type DestinationWriteError struct {
	Path string
	Op   string
	Err  error
}

func (e *DestinationWriteError) Error() string {
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *DestinationWriteError) Unwrap() error { return e.Err }

// KindOf classifies err. Cancellation wins over any wrapping error.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	if errors.Is(err, ErrCancelled) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	var (
		schemaErr *SchemaError
		connErr   *SourceConnectionError
		queryErr  *SourceQueryError
		decodeErr *RowDecodeError
		destErr   *DestinationWriteError
	)
	switch {
	case errors.As(err, &schemaErr):
		return KindSchema
	case errors.As(err, &connErr):
		return KindSourceConnection
	case errors.As(err, &decodeErr):
		return KindRowDecode
	case errors.As(err, &destErr):
		return KindDestinationWrite
	case errors.As(err, &queryErr):
		return KindSourceQuery
	}
	return KindUnknown
}

func isConnectionError(err error) bool {
	if errors.Is(err, driver.ErrBadConn) || errors.Is(err, sql.ErrConnDone) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}

// sourceError wraps a failure returned by the source for table.
func sourceError(table string, err error) error {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return err
	case isConnectionError(err):
		return &SourceConnectionError{Err: err}
	default:
		return &SourceQueryError{Table: table, Err: err}
	}
}
