package jobs

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
)

// ErrInvalidPayload marks payloads the worker could never process.
var ErrInvalidPayload = errors.New("invalid job payload")

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeBatchExport regenerates documents for a range of sales.
	TaskTypeBatchExport = "docgen:batch_export"
)

// BatchExportPayload selects the sales whose documents are regenerated.
// Dates are inclusive ISO days matched against the client payment date.
// An empty range means the previous day, which is what the nightly cron
// registration enqueues.
type BatchExportPayload struct {
	From     string   `json:"from"`
	To       string   `json:"to"`
	DocTypes []string `json:"doc_types,omitempty"`
}

// Validate rejects payloads the worker could never process.
func (p BatchExportPayload) Validate() error {
	if p.From == "" && p.To == "" {
		return nil
	}
	if _, err := time.Parse("2006-01-02", p.From); err != nil {
		return fmt.Errorf("%w: from %q", ErrInvalidPayload, p.From)
	}
	if _, err := time.Parse("2006-01-02", p.To); err != nil {
		return fmt.Errorf("%w: to %q", ErrInvalidPayload, p.To)
	}
	return nil
}

// Range resolves the inclusive date window, defaulting to yesterday.
func (p BatchExportPayload) Range(now time.Time) (from, to string) {
	if p.From == "" && p.To == "" {
		day := now.AddDate(0, 0, -1).Format("2006-01-02")
		return day, day
	}
	return p.From, p.To
}

// NewBatchExportTask constructs an Asynq task.
func NewBatchExportTask(payload BatchExportPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeBatchExport, data), nil
}
