package etl

import (
	"context"
	"database/sql"
	"io"
)

const DefaultChunkSize = 100

// Reader streams the rows of one unit from a forward-only cursor, at most
// chunkSize records per Next call. It cannot be restarted.
type Reader struct {
	schema      *Descriptor
	rows        *sql.Rows
	transformer *Transformer
	chunkSize   int
	row         int64
	done        bool
}

// OpenReader executes tmpl for key and checks the result columns against schema.
func OpenReader(ctx context.Context, src Source, schema *Descriptor, tmpl QueryTemplate, key PartitionKey, chunkSize int) (*Reader, error) {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	query, args := tmpl.Bind(src.Placeholder, key)
	rows, err := src.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, sourceError(schema.Table(), err)
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, sourceError(schema.Table(), err)
	}
	if err := ValidateColumns(schema, cols); err != nil {
		rows.Close()
		return nil, err
	}
	return &Reader{
		schema:      schema,
		rows:        rows,
		transformer: NewTransformer(schema),
		chunkSize:   chunkSize,
	}, nil
}

// Next returns the next chunk, or io.EOF when the cursor is exhausted. After
// any error the cursor is released and the reader stays finished.
func (r *Reader) Next(ctx context.Context) ([]Record, error) {
	if r.done {
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		r.finish()
		return nil, err
	}

	raw := make([]interface{}, r.schema.Len())
	ptrs := make([]interface{}, len(raw))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	chunk := make([]Record, 0, r.chunkSize)
	for len(chunk) < r.chunkSize {
		if !r.rows.Next() {
			err := r.rows.Err()
			r.finish()
			if err != nil {
				return nil, sourceError(r.schema.Table(), err)
			}
			break
		}
		if err := r.rows.Scan(ptrs...); err != nil {
			r.finish()
			return nil, sourceError(r.schema.Table(), err)
		}
		r.row++
		rec, err := r.transformer.Decode(raw, r.row)
		if err != nil {
			r.finish()
			return nil, err
		}
		chunk = append(chunk, rec)
	}
	if len(chunk) == 0 {
		return nil, io.EOF
	}
	return chunk, nil
}

func (r *Reader) Close() error {
	r.done = true
	return r.rows.Close()
}

func (r *Reader) finish() {
	r.done = true
	r.rows.Close()
}
