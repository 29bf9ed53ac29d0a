package etl

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/file"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BartekS5/sqlexport/pkg/models"
)

func TestOutputName(t *testing.T) {
	runDate := time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC)
	assert.Equal(t, "orders_2023-12-31_20240102.parquet", OutputName("orders", "2023-12-31", runDate, "parquet"))
	assert.Equal(t, filepath.Join("/out", ".orders_k_20240102.dat.tmp"), tempPath("/out/orders_k_20240102.dat"))
}

func TestValidateTableName(t *testing.T) {
	assert.NoError(t, ValidateTableName("orders"))
	assert.NoError(t, ValidateTableName("dbo.order_lines"))
	for _, name := range []string{"", "  ", "../../etc/orders", "a/b", `dbo\orders`, "a..b"} {
		assert.Error(t, ValidateTableName(name), name)
	}
}

func listFiles(t *testing.T, fs afero.Fs, dir string) []string {
	t.Helper()
	var names []string
	require.NoError(t, afero.Walk(fs, dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() {
			names = append(names, filepath.Base(path))
		}
		return nil
	}))
	return names
}

func TestDelimitedWriter(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := ordersSchema(t)
	format := &DelimitedFormat{Fs: fs, Header: true, NullString: `\N`, FlushEvery: 2}
	assert.Equal(t, "dat", format.Extension())

	w, err := format.Create(d, "/out/orders_2023-12-31_20240102.dat")
	require.NoError(t, err)
	assert.Equal(t, "/out/orders_2023-12-31_20240102.dat", w.Path())

	require.NoError(t, w.Append(mustRecord(t, d, int32(1), "10.50", "2023-12-31T10:00:00")))
	require.NoError(t, w.Append(mustRecord(t, d, int32(2), nil, nil)))
	require.NoError(t, w.Append(mustRecord(t, d, int32(3), "a|b", "2023-12-31T11:00:00")))

	exists, err := afero.Exists(fs, w.Path())
	require.NoError(t, err)
	assert.False(t, exists, "nothing is visible before Finalize")

	require.NoError(t, w.Finalize())
	data, err := afero.ReadFile(fs, w.Path())
	require.NoError(t, err)
	assert.Equal(t, "id|total|created\n"+
		"1|10.50|2023-12-31T10:00:00\n"+
		`2|\N|\N`+"\n"+
		`3|"a|b"|2023-12-31T11:00:00`+"\n", string(data))
	assert.Equal(t, []string{"orders_2023-12-31_20240102.dat"}, listFiles(t, fs, "/out"))
}

func TestDelimitedExtension(t *testing.T) {
	assert.Equal(t, "csv", (&DelimitedFormat{Delimiter: ','}).Extension())
	assert.Equal(t, "dat", (&DelimitedFormat{Delimiter: '\t'}).Extension())
	assert.Equal(t, "txt", (&DelimitedFormat{Delimiter: ',', Ext: "txt"}).Extension())
}

func TestDelimitedWriterAbort(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := ordersSchema(t)
	format := &DelimitedFormat{Fs: fs, FlushEvery: 1}

	w, err := format.Create(d, "/out/orders_k_20240102.dat")
	require.NoError(t, err)
	require.NoError(t, w.Append(mustRecord(t, d, int32(1), nil, nil)))
	require.NoError(t, w.Abort())

	assert.Empty(t, listFiles(t, fs, "/out"), "abort leaves neither the final nor the temporary file")
}

func TestAbortKeepsPreviousArtifact(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := ordersSchema(t)
	format := &DelimitedFormat{Fs: fs}
	path := "/out/orders_k_20240102.dat"

	w, err := format.Create(d, path)
	require.NoError(t, err)
	require.NoError(t, w.Append(mustRecord(t, d, int32(1), nil, nil)))
	require.NoError(t, w.Finalize())

	w, err = format.Create(d, path)
	require.NoError(t, err)
	require.NoError(t, w.Append(mustRecord(t, d, int32(2), nil, nil)))
	require.NoError(t, w.Abort())

	data, err := afero.ReadFile(fs, path)
	require.NoError(t, err)
	assert.Equal(t, "1||\n", string(data))
}

func TestWriterRejectsForeignRecords(t *testing.T) {
	fs := afero.NewMemMapFs()
	d := ordersSchema(t)
	other, err := BuildSchema("other", []models.ColumnMetadata{{Name: "x", SourceType: "INT"}})
	require.NoError(t, err)

	w, err := (&DelimitedFormat{Fs: fs}).Create(d, "/out/a.dat")
	require.NoError(t, err)
	err = w.Append(mustRecord(t, other, int32(1)))
	assert.Equal(t, KindDestinationWrite, KindOf(err))
	require.NoError(t, w.Abort())
}

func TestCreateFailsOnReadOnlyFs(t *testing.T) {
	fs := afero.NewReadOnlyFs(afero.NewMemMapFs())
	_, err := (&DelimitedFormat{Fs: fs}).Create(ordersSchema(t), "/out/a.dat")
	assert.Equal(t, KindDestinationWrite, KindOf(err))
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("SNAPPY")
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Snappy, c)
	c, err = ParseCompression("none")
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Uncompressed, c)
	c, err = ParseCompression("lz4")
	require.NoError(t, err)
	assert.Equal(t, compress.Codecs.Lz4, c)
	_, err = ParseCompression("rar")
	assert.Error(t, err)
}

func TestArrowSchema(t *testing.T) {
	sch := ArrowSchema(ordersSchema(t))
	require.Equal(t, 3, sch.NumFields())
	assert.Equal(t, arrow.PrimitiveTypes.Int32, sch.Field(0).Type)
	assert.Equal(t, arrow.BinaryTypes.String, sch.Field(1).Type)
	assert.True(t, sch.Field(2).Nullable)
	md := sch.Metadata()
	i := md.FindKey("record_name")
	require.GreaterOrEqual(t, i, 0)
	assert.Equal(t, "orders", md.Values()[i])
}

func readParquet(t *testing.T, path string) arrow.Table {
	t.Helper()
	rdr, err := file.OpenParquetFile(path, false)
	require.NoError(t, err)
	t.Cleanup(func() { rdr.Close() })

	fr, err := pqarrow.NewFileReader(rdr, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	require.NoError(t, err)
	tbl, err := fr.ReadTable(context.Background())
	require.NoError(t, err)
	t.Cleanup(tbl.Release)
	return tbl
}

func TestParquetWriterRoundTrip(t *testing.T) {
	dir := t.TempDir()
	d := ordersSchema(t)
	format := &ParquetFormat{Fs: afero.NewOsFs(), Compression: compress.Codecs.Snappy, FlushEvery: 2}
	path := filepath.Join(dir, OutputName("orders", "2023-12-31", time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), format.Extension()))

	w, err := format.Create(d, path)
	require.NoError(t, err)
	for i := 1; i <= 5; i++ {
		var total interface{} = "9.99"
		if i == 3 {
			total = nil
		}
		require.NoError(t, w.Append(mustRecord(t, d, int32(i), total, "2023-12-31T10:00:00")))
	}
	require.NoError(t, w.Finalize())
	assert.Equal(t, []string{"orders_2023-12-31_20240102.parquet"}, listFiles(t, afero.NewOsFs(), dir))

	tbl := readParquet(t, path)
	assert.Equal(t, int64(5), tbl.NumRows())
	require.Equal(t, int64(3), tbl.NumCols())
	for i, name := range []string{"id", "total", "created"} {
		assert.Equal(t, name, tbl.Schema().Field(i).Name)
	}

	var ids []int32
	for _, chunk := range tbl.Column(0).Data().Chunks() {
		ids = append(ids, chunk.(*array.Int32).Int32Values()...)
	}
	assert.Equal(t, []int32{1, 2, 3, 4, 5}, ids)

	nulls := 0
	for _, chunk := range tbl.Column(1).Data().Chunks() {
		nulls += chunk.NullN()
	}
	assert.Equal(t, 1, nulls)
}

func TestParquetWriterAllTypes(t *testing.T) {
	dir := t.TempDir()
	d, err := BuildSchema("types", []models.ColumnMetadata{
		{Name: "s", SourceType: "TEXT"},
		{Name: "i", SourceType: "INT"},
		{Name: "l", SourceType: "BIGINT"},
		{Name: "f", SourceType: "REAL"},
		{Name: "g", SourceType: "DOUBLE"},
		{Name: "b", SourceType: "BIT"},
		{Name: "d", SourceType: "DATE"},
	})
	require.NoError(t, err)

	format := &ParquetFormat{Fs: afero.NewOsFs(), Compression: compress.Codecs.Uncompressed}
	w, err := format.Create(d, filepath.Join(dir, "types.parquet"))
	require.NoError(t, err)
	require.NoError(t, w.Append(mustRecord(t, d, "x", int32(1), int64(2), float32(3.5), 4.25, true, "2024-01-01")))
	require.NoError(t, w.Append(mustRecord(t, d, nil, nil, nil, nil, nil, nil, nil)))
	require.NoError(t, w.Finalize())

	tbl := readParquet(t, filepath.Join(dir, "types.parquet"))
	assert.Equal(t, int64(2), tbl.NumRows())
	b := tbl.Column(5).Data().Chunk(0).(*array.Boolean)
	assert.True(t, b.Value(0))
	assert.True(t, b.IsNull(1))
	g := tbl.Column(4).Data().Chunk(0).(*array.Float64)
	assert.Equal(t, 4.25, g.Value(0))
}

func TestParquetWriterAbort(t *testing.T) {
	dir := t.TempDir()
	d := ordersSchema(t)
	format := &ParquetFormat{Fs: afero.NewOsFs(), Compression: compress.Codecs.Snappy, FlushEvery: 1}

	w, err := format.Create(d, filepath.Join(dir, "orders.parquet"))
	require.NoError(t, err)
	require.NoError(t, w.Append(mustRecord(t, d, int32(1), nil, nil)))
	require.NoError(t, w.Abort())
	assert.Empty(t, listFiles(t, afero.NewOsFs(), dir))
}

func TestParquetWriterIdempotentRewrite(t *testing.T) {
	dir := t.TempDir()
	d := ordersSchema(t)
	format := &ParquetFormat{Fs: afero.NewOsFs(), Compression: compress.Codecs.Snappy}
	path := filepath.Join(dir, "orders.parquet")

	for run := 0; run < 2; run++ {
		w, err := format.Create(d, path)
		require.NoError(t, err)
		require.NoError(t, w.Append(mustRecord(t, d, int32(run), nil, nil)))
		require.NoError(t, w.Finalize())
	}
	assert.Equal(t, []string{"orders.parquet"}, listFiles(t, afero.NewOsFs(), dir))
	assert.Equal(t, int64(1), readParquet(t, path).NumRows())
}
