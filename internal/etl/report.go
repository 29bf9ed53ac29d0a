package etl

import (
	"fmt"
	"time"

	"github.com/samber/lo"
)

type Status string

const (
	StatusSucceeded Status = "Succeeded"
	StatusFailed    Status = "Failed"
	StatusCancelled Status = "Cancelled"
)

// Outcome is the result of one export unit.
type Outcome struct {
	Table        string        `json:"table" bson:"table"`
	PartitionKey PartitionKey  `json:"partitionKey" bson:"partitionKey"`
	Status       Status        `json:"status" bson:"status"`
	Rows         int64         `json:"rows" bson:"rows"`
	ErrorKind    ErrorKind     `json:"errorKind,omitempty" bson:"errorKind,omitempty"`
	Message      string        `json:"message,omitempty" bson:"message,omitempty"`
	Path         string        `json:"path,omitempty" bson:"path,omitempty"`
	Duration     time.Duration `json:"durationNs" bson:"durationNs"`
}

func (o Outcome) Unit() Unit { return Unit{Table: o.Table, Key: o.PartitionKey} }

// Report collects the outcomes of one run, in unit order.
type Report struct {
	RunID      string    `json:"runId"`
	RunDate    string    `json:"runDate"`
	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
	Outcomes   []Outcome `json:"outcomes"`
}

func (r *Report) Count(s Status) int {
	return lo.CountBy(r.Outcomes, func(o Outcome) bool { return o.Status == s })
}

func (r *Report) Rows() int64 {
	return lo.SumBy(r.Outcomes, func(o Outcome) int64 {
		if o.Status != StatusSucceeded {
			return 0
		}
		return o.Rows
	})
}

func (r *Report) Failed() []Outcome {
	return lo.Filter(r.Outcomes, func(o Outcome, _ int) bool { return o.Status == StatusFailed })
}

// Err summarises the run: nil when every unit succeeded.
func (r *Report) Err() error {
	failed, cancelled := r.Count(StatusFailed), r.Count(StatusCancelled)
	switch {
	case failed > 0:
		return fmt.Errorf("%d of %d export units failed (%d cancelled)", failed, len(r.Outcomes), cancelled)
	case cancelled > 0:
		return fmt.Errorf("%d of %d export units cancelled: %w", cancelled, len(r.Outcomes), ErrCancelled)
	}
	return nil
}
