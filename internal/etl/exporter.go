package etl

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sourcegraph/conc/pool"

	"github.com/BartekS5/sqlexport/pkg/logger"
	"github.com/BartekS5/sqlexport/pkg/models"
)

// Unit is one (table, partition key) job.
type Unit struct {
	Table string
	Key   PartitionKey
}

func (u Unit) String() string { return u.Table + "/" + string(u.Key) }

type Options struct {
	OutputRoot string
	RunDate    time.Time
	ChunkSize  int
	Workers    int
}

type tableSpec struct {
	cfg      models.TableConfig
	template QueryTemplate
}

// Exporter runs export units on a bounded worker pool. Units share nothing
// but the per-run schema cache; one unit failing never stops another.
type Exporter struct {
	source  Source
	format  Format
	tables  map[string]tableSpec
	names   []string
	opts    Options
	schemas *SchemaCache
	metrics *Metrics

	// set once a unit sees the source go away; later units fail fast
	sourceDown atomic.Pointer[SourceConnectionError]
}

func NewExporter(src Source, format Format, tables []models.TableConfig, opts Options) (*Exporter, error) {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.RunDate.IsZero() {
		opts.RunDate = time.Now()
	}
	e := &Exporter{
		source:  src,
		format:  format,
		tables:  make(map[string]tableSpec, len(tables)),
		opts:    opts,
		schemas: NewSchemaCache(),
	}
	for _, t := range tables {
		if _, dup := e.tables[t.Name]; dup {
			return nil, fmt.Errorf("table %q configured twice", t.Name)
		}
		if err := ValidateTableName(t.Name); err != nil {
			return nil, err
		}
		tmpl, err := ParseQueryTemplate(t.QueryText, t.Partitioned)
		if err != nil {
			return nil, fmt.Errorf("table %q: %w", t.Name, err)
		}
		e.tables[t.Name] = tableSpec{cfg: t, template: tmpl}
		e.names = append(e.names, t.Name)
	}
	return e, nil
}

func (e *Exporter) WithMetrics(m *Metrics) *Exporter {
	e.metrics = m
	return e
}

// OutputPath is where a unit's artifact is finalized.
func (e *Exporter) OutputPath(u Unit) string {
	return filepath.Join(e.opts.OutputRoot, OutputName(u.Table, u.Key, e.opts.RunDate, e.format.Extension()))
}

// Plan pairs tables with partition keys, skipping configured exclusions. A
// nil tables slice means every configured table.
func (e *Exporter) Plan(tables []string, keys []PartitionKey) ([]Unit, error) {
	if tables == nil {
		tables = e.names
	}
	if unknown := lo.Filter(tables, func(t string, _ int) bool { _, ok := e.tables[t]; return !ok }); len(unknown) > 0 {
		return nil, fmt.Errorf("unknown tables %v, configured tables are %v", unknown, e.names)
	}
	var units []Unit
	for _, t := range lo.Uniq(tables) {
		spec := e.tables[t]
		for _, k := range keys {
			if spec.cfg.Excludes(string(k)) {
				logger.Infof("skipping excluded unit %s/%s", t, k)
				continue
			}
			units = append(units, Unit{Table: t, Key: k})
		}
	}
	return units, nil
}

// Schema returns the descriptor of a configured table, building it from the
// source catalog on first use in a run.
func (e *Exporter) Schema(ctx context.Context, table string) (*Descriptor, error) {
	spec, ok := e.tables[table]
	if !ok {
		return nil, &SchemaError{Table: table, Err: fmt.Errorf("table is not configured")}
	}
	return e.schemas.Get(ctx, table, func(ctx context.Context) (*Descriptor, error) {
		cols, err := e.source.Columns(ctx, spec.cfg.CatalogName())
		if err != nil {
			return nil, sourceError(table, err)
		}
		d, err := BuildSchema(table, cols)
		if err != nil {
			return nil, err
		}
		logger.Infof("schema of %s: %d fields", table, d.Len())
		return d, nil
	})
}

// Run exports every (table, key) pair and reports each outcome.
func (e *Exporter) Run(ctx context.Context, tables []string, keys []PartitionKey) (*Report, error) {
	units, err := e.Plan(tables, keys)
	if err != nil {
		return nil, err
	}
	return e.RunUnits(ctx, units), nil
}

// RunUnits exports units on the worker pool. Outcomes keep the order of units.
func (e *Exporter) RunUnits(ctx context.Context, units []Unit) *Report {
	report := &Report{
		RunID:     uuid.NewString(),
		RunDate:   e.opts.RunDate.Format(RunDateLayout),
		StartedAt: time.Now(),
		Outcomes:  make([]Outcome, len(units)),
	}
	e.schemas.Reset()
	e.sourceDown.Store(nil)

	logger.Infof("Starting export run %s: %d units, %d workers, chunk size %d",
		report.RunID, len(units), e.opts.Workers, e.opts.ChunkSize)

	if err := e.source.PingContext(ctx); err != nil && ctx.Err() == nil {
		logger.Errorf("source unreachable: %v", err)
		e.sourceDown.Store(&SourceConnectionError{Err: err})
	}

	p := pool.New().WithMaxGoroutines(e.opts.Workers)
	for i, u := range units {
		i, u := i, u
		p.Go(func() {
			report.Outcomes[i] = e.runUnit(ctx, u)
		})
	}
	p.Wait()

	report.FinishedAt = time.Now()
	logger.Infof("Export run %s finished in %s: %d succeeded, %d failed, %d cancelled, %d rows",
		report.RunID, report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond),
		report.Count(StatusSucceeded), report.Count(StatusFailed), report.Count(StatusCancelled), report.Rows())
	return report
}

func (e *Exporter) runUnit(ctx context.Context, u Unit) Outcome {
	start := time.Now()
	out := Outcome{Table: u.Table, PartitionKey: u.Key, Path: e.OutputPath(u)}

	rows, err := e.exportUnit(ctx, u, out.Path)
	out.Duration = time.Since(start)
	out.Rows = rows

	switch kind := KindOf(err); kind {
	case "":
		out.Status = StatusSucceeded
		logger.Infof("%s: wrote %d rows to %s in %s", u, rows, out.Path, out.Duration.Round(time.Millisecond))
	case KindCancelled:
		out.Status = StatusCancelled
		out.ErrorKind = kind
		logger.Warnf("%s: cancelled after %d rows", u, rows)
	default:
		out.Status = StatusFailed
		out.ErrorKind = kind
		out.Message = err.Error()
		var ce *SourceConnectionError
		if errors.As(err, &ce) {
			e.sourceDown.CompareAndSwap(nil, ce)
		}
		logger.WithFields(map[string]interface{}{"table": u.Table, "key": string(u.Key), "kind": string(kind)}).
			Errorf("%s failed: %v", u, err)
	}
	e.metrics.observe(out)
	return out
}

func (e *Exporter) exportUnit(ctx context.Context, u Unit, path string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, ErrCancelled
	}
	if down := e.sourceDown.Load(); down != nil {
		return 0, down
	}
	spec, ok := e.tables[u.Table]
	if !ok {
		return 0, &SchemaError{Table: u.Table, Err: fmt.Errorf("table is not configured")}
	}
	schema, err := e.Schema(ctx, u.Table)
	if err != nil {
		return 0, err
	}
	reader, err := OpenReader(ctx, e.source, schema, spec.template, u.Key, e.opts.ChunkSize)
	if err != nil {
		return 0, err
	}
	writer, err := e.format.Create(schema, path)
	if err != nil {
		reader.Close()
		return 0, err
	}
	logger.Debugf("%s: streaming into %s", u, path)
	return NewPipeline(u, reader, writer).Run(ctx)
}
