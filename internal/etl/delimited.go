package etl

import (
	"encoding/csv"

	"github.com/spf13/afero"

	"github.com/BartekS5/sqlexport/pkg/utils"
)

// DelimitedFormat writes one line per record with fields joined by Delimiter.
// Nulls are written as NullString.
type DelimitedFormat struct {
	Fs         afero.Fs
	Delimiter  rune
	Header     bool
	NullString string
	// Ext overrides the extension: "csv" for commas, "dat" otherwise.
	Ext        string
	FlushEvery int
}

func (f *DelimitedFormat) Extension() string {
	switch {
	case f.Ext != "":
		return f.Ext
	case f.delimiter() == ',':
		return "csv"
	default:
		return "dat"
	}
}

func (f *DelimitedFormat) delimiter() rune {
	if f.Delimiter == 0 {
		return '|'
	}
	return f.Delimiter
}

func (f *DelimitedFormat) Create(schema *Descriptor, path string) (Writer, error) {
	art, err := createArtifact(f.Fs, path)
	if err != nil {
		return nil, err
	}
	cw := csv.NewWriter(art)
	cw.Comma = f.delimiter()
	w := &delimitedWriter{
		art:        art,
		cw:         cw,
		schema:     schema,
		nullString: f.NullString,
		flushEvery: f.FlushEvery,
	}
	if w.flushEvery <= 0 {
		w.flushEvery = DefaultChunkSize
	}
	if f.Header {
		header := make([]string, schema.Len())
		for i := range header {
			header[i] = schema.Field(i).Name
		}
		w.pending = append(w.pending, header)
	}
	return w, nil
}

type delimitedWriter struct {
	art        *artifact
	cw         *csv.Writer
	schema     *Descriptor
	nullString string
	flushEvery int
	pending    [][]string
}

func (w *delimitedWriter) Path() string { return w.art.final }

func (w *delimitedWriter) Append(rec Record) error {
	if err := checkSchema(w.schema, rec); err != nil {
		return &DestinationWriteError{Path: w.art.final, Op: "append", Err: err}
	}
	line := make([]string, rec.Len())
	for i := range line {
		if v := rec.Value(i); v == nil {
			line[i] = w.nullString
		} else {
			line[i] = utils.ToString(v)
		}
	}
	w.pending = append(w.pending, line)
	if len(w.pending) >= w.flushEvery {
		return w.flush()
	}
	return nil
}

func (w *delimitedWriter) flush() error {
	for _, line := range w.pending {
		if err := w.cw.Write(line); err != nil {
			return &DestinationWriteError{Path: w.art.tmp, Op: "write", Err: err}
		}
	}
	w.pending = w.pending[:0]
	w.cw.Flush()
	if err := w.cw.Error(); err != nil {
		return &DestinationWriteError{Path: w.art.tmp, Op: "flush", Err: err}
	}
	return nil
}

func (w *delimitedWriter) Finalize() error {
	if err := w.flush(); err != nil {
		return err
	}
	return w.art.commit()
}

func (w *delimitedWriter) Abort() error {
	w.pending = nil
	return w.art.discard()
}
