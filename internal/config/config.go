// Package config loads the environment settings and the export file
// that together drive an export run.
package config

import (
	"errors"
	"os"
)

const (
	DefaultSQLDriver     = "sqlserver"
	DefaultMongoDatabase = "sqlexport"
)

// Config holds all configuration for the application,
// typically loaded from environment variables.
type Config struct {
	SQLConnString string
	SQLDriver     string
	// MongoConnString is optional; when set, run outcomes are recorded in MongoDB.
	MongoConnString string
	MongoDatabase   string
}

// LoadConfig loads application settings from environment variables
// (which should be populated by the .env file in main.go).
func LoadConfig() (*Config, error) {
	sqlConn := os.Getenv("SQL_CONNECTION_STRING")
	if sqlConn == "" {
		return nil, errors.New("SQL_CONNECTION_STRING environment variable not set")
	}

	return &Config{
		SQLConnString:   sqlConn,
		SQLDriver:       envOr("SQL_DRIVER", DefaultSQLDriver),
		MongoConnString: os.Getenv("MONGO_CONNECTION_STRING"),
		MongoDatabase:   envOr("MONGO_DATABASE", DefaultMongoDatabase),
	}, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
