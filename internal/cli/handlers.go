package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/BartekS5/sqlexport/internal/config"
	"github.com/BartekS5/sqlexport/internal/etl"
	"github.com/BartekS5/sqlexport/internal/report"
	"github.com/BartekS5/sqlexport/pkg/database"
	"github.com/BartekS5/sqlexport/pkg/logger"
	"github.com/BartekS5/sqlexport/pkg/models"
)

func runExport(cmd *cobra.Command, opts *ExportOptions) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	env, err := config.LoadConfig()
	if err != nil {
		return err
	}
	exportCfg, err := config.LoadExportConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	if err := applyOverrides(exportCfg, opts); err != nil {
		return err
	}
	runDate, err := parseRunDate(opts.RunDate, time.Now())
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	format, err := newFormat(fs, exportCfg.Output, exportCfg.ChunkSize)
	if err != nil {
		return err
	}

	src, err := database.OpenSource(env.SQLDriver, env.SQLConnString, exportCfg.MaxConnections)
	if err != nil {
		return err
	}
	defer src.Close()

	exporter, err := etl.NewExporter(src, format, exportCfg.TableList(), etl.Options{
		OutputRoot: exportCfg.Output.Root,
		RunDate:    runDate,
		ChunkSize:  exportCfg.ChunkSize,
		Workers:    exportCfg.Workers,
	})
	if err != nil {
		return err
	}

	keys, err := etl.ResolvePartitions(ctx, src, exportCfg.Partitions)
	if err != nil {
		return fmt.Errorf("resolve partitions: %w", err)
	}
	units, err := exporter.Plan(opts.Tables, keys)
	if err != nil {
		return err
	}

	if opts.DryRun {
		return printPlan(ctx, cmd.OutOrStdout(), exporter, units)
	}

	metrics := etl.NewMetrics()
	exporter.WithMetrics(metrics)
	result := exporter.RunUnits(ctx, units)

	if path, err := report.WriteJSON(fs, exportCfg.Output.Root, opts.ReportFile, result); err != nil {
		logger.Errorf("report not written: %v", err)
	} else {
		logger.Infof("report written to %s", path)
	}
	if env.MongoConnString != "" {
		recordMongo(env, result)
	}
	if opts.MetricsFile != "" {
		if err := metrics.WriteTextfile(opts.MetricsFile); err != nil {
			logger.Errorf("metrics not written: %v", err)
		}
	}

	printSummary(cmd.OutOrStdout(), result)
	return result.Err()
}

func recordMongo(env *config.Config, result *etl.Report) {
	// the run context may already be cancelled; recording still happens
	ctx := context.Background()
	client, err := database.ConnectMongo(ctx, env.MongoConnString)
	if err != nil {
		logger.Errorf("run not recorded in MongoDB: %v", err)
		return
	}
	defer client.Disconnect(ctx)

	if err := report.NewMongoRecorder(client, env.MongoDatabase).Record(ctx, result); err != nil {
		logger.Errorf("run not recorded in MongoDB: %v", err)
	}
}

func runSchema(cmd *cobra.Command, opts *SchemaOptions) error {
	env, err := config.LoadConfig()
	if err != nil {
		return err
	}
	exportCfg, err := config.LoadExportConfig(opts.ConfigFile)
	if err != nil {
		return err
	}
	fs := afero.NewOsFs()
	format, err := newFormat(fs, exportCfg.Output, exportCfg.ChunkSize)
	if err != nil {
		return err
	}

	src, err := database.OpenSource(env.SQLDriver, env.SQLConnString, 1)
	if err != nil {
		return err
	}
	defer src.Close()

	exporter, err := etl.NewExporter(src, format, exportCfg.TableList(), etl.Options{})
	if err != nil {
		return err
	}
	return writeSchema(cmd.Context(), fs, cmd.OutOrStdout(), exporter, opts.Table, opts.OutputFile)
}

func writeSchema(ctx context.Context, fs afero.Fs, stdout io.Writer, exporter *etl.Exporter, table, path string) error {
	schema, err := exporter.Schema(ctx, table)
	if err != nil {
		return err
	}
	avsc, err := schema.AvroSchema()
	if err != nil {
		return err
	}
	if path == "-" {
		_, err := fmt.Fprintf(stdout, "%s\n", avsc)
		return err
	}
	if err := afero.WriteFile(fs, path, append(avsc, '\n'), 0o644); err != nil {
		return fmt.Errorf("write schema: %w", err)
	}
	logger.Infof("schema of %s (%d fields) written to %s", table, schema.Len(), path)
	return nil
}

// applyOverrides merges command-line flags into the loaded export config.
// Any partition flag replaces the configured partition sources.
func applyOverrides(cfg *models.ExportConfig, opts *ExportOptions) error {
	if len(opts.Partitions) > 0 || opts.From != "" || opts.To != "" {
		cfg.Partitions = models.PartitionConfig{Keys: opts.Partitions, From: opts.From, To: opts.To}
	}
	if opts.Output != "" {
		cfg.Output.Root = opts.Output
	}
	if opts.Format != "" {
		cfg.Output.Format = opts.Format
	}
	if opts.Workers > 0 {
		cfg.Workers = opts.Workers
	}
	if opts.ChunkSize > 0 {
		cfg.ChunkSize = opts.ChunkSize
	}
	config.ApplyDefaults(cfg)
	return config.Validate(cfg)
}

// parseRunDate reads a YYYYMMDD run date, defaulting to now's local date.
func parseRunDate(s string, now time.Time) (time.Time, error) {
	if s == "" {
		return now, nil
	}
	t, err := time.ParseInLocation(etl.RunDateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid run date %q, expected YYYYMMDD", s)
	}
	return t, nil
}

func newFormat(fs afero.Fs, out models.OutputConfig, chunkSize int) (etl.Format, error) {
	switch out.Format {
	case config.FormatParquet:
		codec, err := etl.ParseCompression(out.Compression)
		if err != nil {
			return nil, err
		}
		return &etl.ParquetFormat{Fs: fs, Compression: codec, FlushEvery: chunkSize}, nil
	case config.FormatDelimited:
		return &etl.DelimitedFormat{
			Fs:         fs,
			Delimiter:  []rune(out.Delimiter)[0],
			Header:     out.HeaderEnabled(),
			NullString: out.NullString,
			Ext:        out.Extension,
			FlushEvery: chunkSize,
		}, nil
	}
	return nil, fmt.Errorf("unknown output format %q", out.Format)
}

// printPlan lists units with their paths. Schemas are resolved so catalog
// problems show up before a real run.
func printPlan(ctx context.Context, w io.Writer, exporter *etl.Exporter, units []etl.Unit) error {
	failed := 0
	for _, u := range units {
		schema, err := exporter.Schema(ctx, u.Table)
		if err != nil {
			failed++
			fmt.Fprintf(w, "%-40s %s: %v\n", u, etl.KindOf(err), err)
			continue
		}
		fmt.Fprintf(w, "%-40s %s (%d fields)\n", u, exporter.OutputPath(u), schema.Len())
	}
	fmt.Fprintf(w, "%d units planned\n", len(units))
	if failed > 0 {
		return fmt.Errorf("%d of %d units cannot be exported", failed, len(units))
	}
	return nil
}

func printSummary(w io.Writer, r *etl.Report) {
	fmt.Fprintf(w, "Run %s (%s): %d succeeded, %d failed, %d cancelled, %s rows exported\n",
		r.RunID, r.RunDate, r.Count(etl.StatusSucceeded), r.Count(etl.StatusFailed),
		r.Count(etl.StatusCancelled), humanize.Comma(r.Rows()))
	for _, o := range r.Failed() {
		fmt.Fprintf(w, "  FAILED %s: %s: %s\n", o.Unit(), o.ErrorKind, o.Message)
	}
}
