package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/BartekS5/sqlexport/internal/cli"
	"github.com/BartekS5/sqlexport/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using system environment variables")
	}

	rootCmd := cli.NewRootCmd()
	err := rootCmd.Execute()
	logger.Close()
	if err != nil {
		os.Exit(1)
	}
}
