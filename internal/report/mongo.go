package report

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/BartekS5/sqlexport/internal/etl"
)

const (
	runsCollection     = "export_runs"
	outcomesCollection = "export_outcomes"
)

// MongoRecorder stores run summaries and unit outcomes for run tracking.
type MongoRecorder struct {
	Client   *mongo.Client
	Database string
}

func NewMongoRecorder(client *mongo.Client, database string) *MongoRecorder {
	return &MongoRecorder{Client: client, Database: database}
}

// Record inserts one run document and one document per outcome.
func (m *MongoRecorder) Record(ctx context.Context, r *etl.Report) error {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	db := m.Client.Database(m.Database)
	if _, err := db.Collection(runsCollection).InsertOne(ctx, runDocument(r)); err != nil {
		return fmt.Errorf("record run %s: %w", r.RunID, err)
	}
	docs := outcomeDocuments(r)
	if len(docs) == 0 {
		return nil
	}
	if _, err := db.Collection(outcomesCollection).InsertMany(ctx, docs); err != nil {
		return fmt.Errorf("record outcomes of run %s: %w", r.RunID, err)
	}
	return nil
}

func runDocument(r *etl.Report) bson.M {
	return bson.M{
		"_id":        r.RunID,
		"runDate":    r.RunDate,
		"startedAt":  r.StartedAt,
		"finishedAt": r.FinishedAt,
		"units":      len(r.Outcomes),
		"succeeded":  r.Count(etl.StatusSucceeded),
		"failed":     r.Count(etl.StatusFailed),
		"cancelled":  r.Count(etl.StatusCancelled),
		"rows":       r.Rows(),
	}
}

func outcomeDocuments(r *etl.Report) []interface{} {
	docs := make([]interface{}, 0, len(r.Outcomes))
	for _, o := range r.Outcomes {
		docs = append(docs, bson.M{
			"runId":        r.RunID,
			"runDate":      r.RunDate,
			"table":        o.Table,
			"partitionKey": string(o.PartitionKey),
			"status":       string(o.Status),
			"rows":         o.Rows,
			"errorKind":    string(o.ErrorKind),
			"message":      o.Message,
			"path":         o.Path,
			"durationMs":   o.Duration.Milliseconds(),
		})
	}
	return docs
}
