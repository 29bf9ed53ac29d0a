package etl

import (
	"fmt"
	"io"
	"strings"

	"github.com/apache/arrow/go/v17/arrow"
	"github.com/apache/arrow/go/v17/arrow/array"
	"github.com/apache/arrow/go/v17/arrow/memory"
	"github.com/apache/arrow/go/v17/parquet"
	"github.com/apache/arrow/go/v17/parquet/compress"
	"github.com/apache/arrow/go/v17/parquet/pqarrow"
	"github.com/spf13/afero"
)

var arrowTypes = map[FieldType]arrow.DataType{
	String:     arrow.BinaryTypes.String,
	Int32:      arrow.PrimitiveTypes.Int32,
	Int64:      arrow.PrimitiveTypes.Int64,
	Float32:    arrow.PrimitiveTypes.Float32,
	Float64:    arrow.PrimitiveTypes.Float64,
	Boolean:    arrow.FixedWidthTypes.Boolean,
	DateString: arrow.BinaryTypes.String,
}

// ArrowSchema converts a Descriptor into the Arrow schema its Parquet files use.
func ArrowSchema(d *Descriptor) *arrow.Schema {
	fields := make([]arrow.Field, d.Len())
	for i, f := range d.fields {
		fields[i] = arrow.Field{
			Name:     f.Name,
			Type:     arrowTypes[f.Type],
			Nullable: f.Nullable,
			Metadata: arrow.NewMetadata([]string{"source_type"}, []string{f.SourceType}),
		}
	}
	md := arrow.NewMetadata([]string{"record_name", "table"}, []string{d.recordName, d.table})
	return arrow.NewSchema(fields, &md)
}

var codecs = map[string]compress.Compression{
	"none":         compress.Codecs.Uncompressed,
	"uncompressed": compress.Codecs.Uncompressed,
	"snappy":       compress.Codecs.Snappy,
	"gzip":         compress.Codecs.Gzip,
	"zstd":         compress.Codecs.Zstd,
	"brotli":       compress.Codecs.Brotli,
	"lz4":          compress.Codecs.Lz4,
}

// ParseCompression resolves a codec name such as "snappy" or "none".
func ParseCompression(name string) (compress.Compression, error) {
	c, ok := codecs[strings.ToLower(name)]
	if !ok {
		return compress.Codecs.Uncompressed, fmt.Errorf("unknown parquet compression %q", name)
	}
	return c, nil
}

// ParquetFormat writes one row group per flushed chunk.
type ParquetFormat struct {
	Fs          afero.Fs
	Compression compress.Compression
	FlushEvery  int
	Allocator   memory.Allocator
}

func (f *ParquetFormat) Extension() string { return "parquet" }

// writerOnly hides Close so the parquet writer cannot close the artifact file.
type writerOnly struct{ io.Writer }

func (f *ParquetFormat) Create(schema *Descriptor, path string) (Writer, error) {
	art, err := createArtifact(f.Fs, path)
	if err != nil {
		return nil, err
	}
	mem := f.Allocator
	if mem == nil {
		mem = memory.DefaultAllocator
	}
	sch := ArrowSchema(schema)
	props := parquet.NewWriterProperties(
		parquet.WithCompression(f.Compression),
		parquet.WithCreatedBy("sqlexport"),
	)
	fw, err := pqarrow.NewFileWriter(sch, writerOnly{art}, props, pqarrow.DefaultWriterProps())
	if err != nil {
		art.discard()
		return nil, &DestinationWriteError{Path: art.tmp, Op: "open parquet writer", Err: err}
	}
	w := &parquetWriter{
		art:        art,
		fw:         fw,
		builder:    array.NewRecordBuilder(mem, sch),
		schema:     schema,
		flushEvery: f.FlushEvery,
	}
	if w.flushEvery <= 0 {
		w.flushEvery = DefaultChunkSize
	}
	return w, nil
}

type parquetWriter struct {
	art        *artifact
	fw         *pqarrow.FileWriter
	builder    *array.RecordBuilder
	schema     *Descriptor
	flushEvery int
	pending    int
	closed     bool
}

func (w *parquetWriter) Path() string { return w.art.final }

func (w *parquetWriter) Append(rec Record) error {
	if err := checkSchema(w.schema, rec); err != nil {
		return &DestinationWriteError{Path: w.art.final, Op: "append", Err: err}
	}
	for i := 0; i < rec.Len(); i++ {
		if err := appendValue(w.builder.Field(i), rec.Value(i)); err != nil {
			return &DestinationWriteError{Path: w.art.final, Op: "append",
				Err: fmt.Errorf("field %q: %w", w.schema.Field(i).Name, err)}
		}
	}
	w.pending++
	if w.pending >= w.flushEvery {
		return w.flush()
	}
	return nil
}

func appendValue(b array.Builder, v interface{}) error {
	if v == nil {
		b.AppendNull()
		return nil
	}
	ok := false
	switch b := b.(type) {
	case *array.StringBuilder:
		var s string
		if s, ok = v.(string); ok {
			b.Append(s)
		}
	case *array.Int32Builder:
		var n int32
		if n, ok = v.(int32); ok {
			b.Append(n)
		}
	case *array.Int64Builder:
		var n int64
		if n, ok = v.(int64); ok {
			b.Append(n)
		}
	case *array.Float32Builder:
		var f float32
		if f, ok = v.(float32); ok {
			b.Append(f)
		}
	case *array.Float64Builder:
		var f float64
		if f, ok = v.(float64); ok {
			b.Append(f)
		}
	case *array.BooleanBuilder:
		var t bool
		if t, ok = v.(bool); ok {
			b.Append(t)
		}
	}
	if !ok {
		return fmt.Errorf("unexpected %T for %T", v, b)
	}
	return nil
}

func (w *parquetWriter) flush() error {
	if w.pending == 0 {
		return nil
	}
	rec := w.builder.NewRecord()
	defer rec.Release()
	w.pending = 0
	if err := w.fw.Write(rec); err != nil {
		return &DestinationWriteError{Path: w.art.tmp, Op: "write row group", Err: err}
	}
	return nil
}

func (w *parquetWriter) close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.builder.Release()
	return w.fw.Close()
}

func (w *parquetWriter) Finalize() error {
	if err := w.flush(); err != nil {
		return err
	}
	if err := w.close(); err != nil {
		return &DestinationWriteError{Path: w.art.tmp, Op: "close parquet writer", Err: err}
	}
	return w.art.commit()
}

func (w *parquetWriter) Abort() error {
	w.close()
	return w.art.discard()
}
