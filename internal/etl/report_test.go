package etl

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportSummary(t *testing.T) {
	r := &Report{Outcomes: []Outcome{
		{Table: "a", PartitionKey: "1", Status: StatusSucceeded, Rows: 10},
		{Table: "a", PartitionKey: "2", Status: StatusSucceeded, Rows: 5},
		{Table: "b", PartitionKey: "1", Status: StatusFailed, Rows: 3, ErrorKind: KindRowDecode},
		{Table: "b", PartitionKey: "2", Status: StatusCancelled},
	}}
	assert.Equal(t, 2, r.Count(StatusSucceeded))
	assert.Equal(t, int64(15), r.Rows(), "failed units contribute no rows")
	require.Len(t, r.Failed(), 1)
	assert.Equal(t, Unit{Table: "b", Key: "1"}, r.Failed()[0].Unit())
	assert.ErrorContains(t, r.Err(), "1 of 4 export units failed (1 cancelled)")

	r.Outcomes = r.Outcomes[:2]
	assert.NoError(t, r.Err())

	r.Outcomes = append(r.Outcomes, Outcome{Status: StatusCancelled})
	assert.ErrorIs(t, r.Err(), ErrCancelled)
}

type timeoutErr struct{}

func (timeoutErr) Error() string   { return "i/o timeout" }
func (timeoutErr) Timeout() bool   { return true }
func (timeoutErr) Temporary() bool { return true }

var _ net.Error = timeoutErr{}

func TestKindOf(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, ""},
		{&SchemaError{Table: "t", Err: io.ErrUnexpectedEOF}, KindSchema},
		{&SourceConnectionError{Err: io.EOF}, KindSourceConnection},
		{&SourceQueryError{Table: "t", Err: io.EOF}, KindSourceQuery},
		{&RowDecodeError{Table: "t", Column: "c", Row: 1, Err: io.EOF}, KindRowDecode},
		{&DestinationWriteError{Path: "p", Op: "write", Err: io.EOF}, KindDestinationWrite},
		{fmt.Errorf("unit: %w", &RowDecodeError{Err: io.EOF}), KindRowDecode},
		{ErrCancelled, KindCancelled},
		{&SourceQueryError{Err: context.Canceled}, KindCancelled},
		{context.DeadlineExceeded, KindCancelled},
		{errors.New("mystery"), KindUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, KindOf(tt.err), "%v", tt.err)
	}
}

func TestSourceErrorClassification(t *testing.T) {
	assert.Equal(t, KindSourceConnection, KindOf(sourceError("t", sql.ErrConnDone)))
	assert.Equal(t, KindSourceConnection, KindOf(sourceError("t", &net.OpError{Op: "dial", Err: timeoutErr{}})))
	assert.Equal(t, KindSourceQuery, KindOf(sourceError("t", errors.New("invalid object name"))))
	assert.ErrorIs(t, sourceError("t", context.Canceled), context.Canceled)
}

func TestErrorMessages(t *testing.T) {
	err := &RowDecodeError{Table: "orders", Column: "id", Row: 7, Err: errors.New("bad")}
	assert.Equal(t, `table "orders" row 7 column "id": bad`, err.Error())
	dw := &DestinationWriteError{Path: "/out/a", Op: "rename", Err: os.ErrPermission}
	assert.ErrorIs(t, dw, os.ErrPermission)
}

func TestMetrics(t *testing.T) {
	m := NewMetrics()
	m.observe(Outcome{Table: "orders", Status: StatusSucceeded, Rows: 12, Duration: time.Second})
	m.observe(Outcome{Table: "orders", Status: StatusSucceeded, Rows: 3, Duration: time.Second})
	m.observe(Outcome{Table: "orders", Status: StatusFailed, Rows: 99, Duration: time.Second})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.units.WithLabelValues("orders", "Succeeded")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.units.WithLabelValues("orders", "Failed")))
	assert.Equal(t, 15.0, testutil.ToFloat64(m.rows.WithLabelValues("orders")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.duration))

	path := filepath.Join(t.TempDir(), "sqlexport.prom")
	require.NoError(t, m.WriteTextfile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `sqlexport_rows_exported_total{table="orders"} 15`)

	var nilMetrics *Metrics
	assert.NotPanics(t, func() { nilMetrics.observe(Outcome{}) })
}
