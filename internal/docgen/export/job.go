package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"

	"github.com/dealerdesk/dealerdesk/internal/docgen"
	"github.com/dealerdesk/dealerdesk/internal/observability"
	"github.com/dealerdesk/dealerdesk/internal/sales"
	"github.com/dealerdesk/dealerdesk/jobs"
)

// JobConfig wires dependencies required by the batch export worker job.
type JobConfig struct {
	Sales      *sales.Service
	Exporter   *Exporter
	StorageDir string
	Logger     *slog.Logger
	Metrics    *observability.JobMetrics
}

// Job regenerates the document set for completed sales in a date range.
// Re-running the same payload overwrites the same files, so the task is
// idempotent.
type Job struct {
	sales      *sales.Service
	exporter   *Exporter
	storageDir string
	logger     *slog.Logger
	metrics    *observability.JobMetrics
}

// NewJob constructs a Job handler.
func NewJob(cfg JobConfig) *Job {
	return &Job{sales: cfg.Sales, exporter: cfg.Exporter, storageDir: cfg.StorageDir, logger: cfg.Logger, metrics: cfg.Metrics}
}

const jobPageSize = 100

// Handle fulfils the asynq.HandlerFunc contract.
func (j *Job) Handle(ctx context.Context, task *asynq.Task) error {
	if j == nil || j.sales == nil || j.exporter == nil {
		return fmt.Errorf("batch export job not configured")
	}
	tracker := j.metrics.Track(jobs.TaskTypeBatchExport)
	return tracker.End(j.run(ctx, task))
}

func (j *Job) run(ctx context.Context, task *asynq.Task) error {
	var payload jobs.BatchExportPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if err := payload.Validate(); err != nil {
		return asynq.SkipRetry
	}

	docTypes, err := resolveDocTypes(payload.DocTypes)
	if err != nil {
		return asynq.SkipRetry
	}
	from, to := payload.Range(time.Now())

	status := sales.StatusCompleted
	var exported, skipped, failed int
	for page := 0; ; page++ {
		records, _, err := j.sales.List(ctx, sales.ListSalesRequest{Status: &status, Page: page, Limit: jobPageSize})
		if err != nil {
			return err
		}
		if len(records) == 0 {
			break
		}
		for _, record := range records {
			if !paidWithin(record, from, to) {
				continue
			}
			e, s, f := j.exportSale(ctx, record, docTypes)
			exported, skipped, failed = exported+e, skipped+s, failed+f
		}
		if len(records) < jobPageSize {
			break
		}
	}

	j.logger.Info("batch export finished",
		slog.String("from", from), slog.String("to", to),
		slog.Int("exported", exported), slog.Int("skipped", skipped), slog.Int("failed", failed))
	if failed > 0 {
		return fmt.Errorf("batch export: %d document(s) failed", failed)
	}
	return nil
}

// exportSale renders each requested document for one sale. Validation
// failures are expected for incomplete records and only counted as
// skipped.
func (j *Job) exportSale(ctx context.Context, record sales.SaleRecord, docTypes []sales.DocumentType) (exported, skipped, failed int) {
	for _, docType := range docTypes {
		artifact, err := j.exporter.Export(ctx, record, docgen.RenderOptions{DocType: docType, ShowStamp: true})
		if err != nil {
			var verr *docgen.ValidationError
			if errors.As(err, &verr) {
				j.logger.Debug("batch export skipped incomplete sale",
					slog.String("sale_id", record.ID.String()), slog.String("doc_type", string(docType)),
					slog.Any("missing", verr.Missing))
				skipped++
				continue
			}
			j.logger.Warn("batch export document failed",
				slog.String("sale_id", record.ID.String()), slog.String("doc_type", string(docType)),
				slog.Any("error", err))
			failed++
			continue
		}
		if err := j.save(record, artifact); err != nil {
			j.logger.Warn("batch export save failed", slog.String("sale_id", record.ID.String()), slog.Any("error", err))
			failed++
			continue
		}
		exported++
	}
	return exported, skipped, failed
}

func (j *Job) save(record sales.SaleRecord, artifact docgen.Artifact) error {
	dir := j.storageDir
	if dir == "" {
		dir = filepath.Join(os.TempDir(), "dealerdesk-exports")
	}
	dir = filepath.Join(dir, record.ID.String())
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, artifact.Filename), artifact.Bytes, 0o644)
}

func resolveDocTypes(raw []string) ([]sales.DocumentType, error) {
	if len(raw) == 0 {
		return sales.AllDocumentTypes, nil
	}
	out := make([]sales.DocumentType, 0, len(raw))
	for _, r := range raw {
		docType := sales.DocumentType(r)
		if !docType.Valid() {
			return nil, fmt.Errorf("unknown document type %q", r)
		}
		out = append(out, docType)
	}
	return out, nil
}

// paidWithin checks the client payment date against the inclusive range.
// Sales without a parseable payment date are excluded.
func paidWithin(record sales.SaleRecord, from, to string) bool {
	if record.ClientPaymentDate == nil {
		return false
	}
	paid, err := time.Parse("2006-01-02", *record.ClientPaymentDate)
	if err != nil {
		if t, rfcErr := time.Parse(time.RFC3339, *record.ClientPaymentDate); rfcErr == nil {
			paid = t
		} else {
			return false
		}
	}
	start, _ := time.Parse("2006-01-02", from)
	end, _ := time.Parse("2006-01-02", to)
	// Compare by the stamp's own civil date. Truncating to 24h would
	// shift offset timestamps near midnight onto the neighboring day.
	day := time.Date(paid.Year(), paid.Month(), paid.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(start) && !day.After(end)
}
