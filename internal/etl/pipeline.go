package etl

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/BartekS5/sqlexport/pkg/logger"
)

// Pipeline streams one export unit from a ChunkReader into a Writer, one
// chunk at a time. The writer is finalized on success and aborted otherwise.
type Pipeline struct {
	Unit   Unit
	Reader ChunkReader
	Writer Writer
}

func NewPipeline(unit Unit, reader ChunkReader, writer Writer) *Pipeline {
	return &Pipeline{Unit: unit, Reader: reader, Writer: writer}
}

// Run returns the number of records written.
func (p *Pipeline) Run(ctx context.Context) (int64, error) {
	defer p.Reader.Close()

	var total int64
	startTime := time.Now()
	for {
		chunk, err := p.Reader.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return total, p.abort(err)
		}
		for _, rec := range chunk {
			if err := p.Writer.Append(rec); err != nil {
				return total, p.abort(err)
			}
		}
		total += int64(len(chunk))

		rate := 0.0
		if d := time.Since(startTime).Seconds(); d > 0 {
			rate = float64(total) / d
		}
		logger.Debugf("%s: chunk of %d done. Total: %d. Rate: %.2f rows/sec", p.Unit, len(chunk), total, rate)
	}

	if err := ctx.Err(); err != nil {
		return total, p.abort(err)
	}
	if err := p.Writer.Finalize(); err != nil {
		return total, p.abort(err)
	}
	return total, nil
}

func (p *Pipeline) abort(cause error) error {
	if err := p.Writer.Abort(); err != nil {
		logger.Errorf("%s: abort %s: %v", p.Unit, p.Writer.Path(), err)
	}
	return cause
}
