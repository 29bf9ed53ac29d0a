// Package cli handles the command-line interface logic
// using the Cobra library.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/BartekS5/sqlexport/pkg/logger"
)

func NewRootCmd() *cobra.Command {
	var logDir, logLevel string

	rootCmd := &cobra.Command{
		Use:   "sqlexport",
		Short: "sqlexport - metadata-driven partitioned table export",
		Long: `sqlexport exports relational tables into partitioned Parquet or delimited files.
Each table's schema is inferred from the database catalog, and every
(table, partition key) pair is written to its own file atomically.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return logger.InitLogger(logDir, logLevel)
		},
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Directory for the rotated log file (stderr only when empty)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "Log level: debug, info, warn, error")

	rootCmd.AddCommand(NewExportCmd(), NewPlanCmd(), NewSchemaCmd())

	return rootCmd
}
