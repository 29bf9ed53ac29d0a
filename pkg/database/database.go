package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/microsoft/go-mssqldb"
	_ "modernc.org/sqlite"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/BartekS5/sqlexport/pkg/logger"
)

// ConnectSQL opens a pool of at most maxConns connections (0 means
// unlimited) and pings it.
func ConnectSQL(dialect Dialect, connString string, maxConns int) (*sql.DB, error) {
	db, err := sql.Open(dialect.Driver, connString)
	if err != nil {
		return nil, fmt.Errorf("error opening %s database: %w", dialect.Name, err)
	}
	if maxConns > 0 {
		db.SetMaxOpenConns(maxConns)
		db.SetMaxIdleConns(maxConns)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err = db.PingContext(ctx)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error connecting to %s database (ping failed): %w", dialect.Name, err)
	}

	logger.Infof("Successfully connected to %s database.", dialect.Name)
	return db, nil
}

// OpenSource resolves driverName to a dialect and connects to it.
func OpenSource(driverName, connString string, maxConns int) (*Source, error) {
	dialect, err := LookupDialect(driverName)
	if err != nil {
		return nil, err
	}
	db, err := ConnectSQL(dialect, connString, maxConns)
	if err != nil {
		return nil, err
	}
	return NewSource(db, dialect), nil
}

// ConnectMongo connects and pings the primary. The client is disconnected
// again when the ping fails.
func ConnectMongo(ctx context.Context, connString string) (*mongo.Client, error) {
	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(connString))
	if err != nil {
		return nil, fmt.Errorf("error creating MongoDB client: %w", err)
	}

	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		disconnectCtx, disconnectCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer disconnectCancel()
		_ = client.Disconnect(disconnectCtx)
		return nil, fmt.Errorf("error connecting to MongoDB (ping failed): %w", err)
	}

	logger.Info("Successfully connected to MongoDB.")
	return client, nil
}
