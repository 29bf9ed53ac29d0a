package cli

import (
	"github.com/spf13/cobra"
)

type ExportOptions struct {
	ConfigFile  string
	Tables      []string
	Partitions  []string
	From        string
	To          string
	RunDate     string
	Workers     int
	ChunkSize   int
	Output      string
	Format      string
	ReportFile  string
	MetricsFile string
	DryRun      bool
}

func addSelectionFlags(cmd *cobra.Command, opts *ExportOptions) {
	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "export.yaml", "Path to the export config file")
	cmd.Flags().StringSliceVarP(&opts.Tables, "table", "t", nil, "Table to export (repeatable, default all configured tables)")
	cmd.Flags().StringSliceVarP(&opts.Partitions, "partition", "p", nil, "Partition key (repeatable, replaces configured partitions)")
	cmd.Flags().StringVar(&opts.From, "from", "", "First partition date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.To, "to", "", "Last partition date, YYYY-MM-DD (inclusive)")
	cmd.Flags().StringVar(&opts.RunDate, "run-date", "", "Run date stamped into output names, YYYYMMDD (default today)")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "Output root directory")
	cmd.Flags().StringVar(&opts.Format, "format", "", "Output format: parquet or delimited")
}

func NewExportCmd() *cobra.Command {
	opts := &ExportOptions{}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export every configured (table, partition) pair",
		RunE: func(c *cobra.Command, args []string) error {
			return runExport(c, opts)
		},
	}

	addSelectionFlags(cmd, opts)
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Units exported in parallel")
	cmd.Flags().IntVar(&opts.ChunkSize, "chunk-size", 0, "Rows fetched and written per chunk")
	cmd.Flags().StringVar(&opts.ReportFile, "report-file", "", "Report path (default <output>/_report_<run-date>.json)")
	cmd.Flags().StringVar(&opts.MetricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Resolve schemas and list units without exporting")

	return cmd
}

func NewPlanCmd() *cobra.Command {
	opts := &ExportOptions{DryRun: true}

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List the export units and their output paths",
		RunE: func(c *cobra.Command, args []string) error {
			return runExport(c, opts)
		},
	}

	addSelectionFlags(cmd, opts)
	return cmd
}

type SchemaOptions struct {
	ConfigFile string
	Table      string
	OutputFile string
}

func NewSchemaCmd() *cobra.Command {
	opts := &SchemaOptions{}

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Write the inferred Avro schema of a table",
		RunE: func(c *cobra.Command, args []string) error {
			return runSchema(c, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.ConfigFile, "config", "c", "export.yaml", "Path to the export config file")
	cmd.Flags().StringVarP(&opts.Table, "table", "t", "", "Configured table name")
	cmd.Flags().StringVarP(&opts.OutputFile, "output", "o", "schema.avsc", "Schema file, - for stdout")
	cmd.MarkFlagRequired("table")

	return cmd
}
