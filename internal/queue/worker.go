package queue

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sizemo/ocreceipt/internal/extract"
	"github.com/sizemo/ocreceipt/internal/models"
)

// JobStore is the slice of the relational store the worker needs.
type JobStore interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.UploadJob, error)
	MarkJobProcessing(ctx context.Context, id uuid.UUID) error
	MarkJobFailed(ctx context.Context, id uuid.UUID, errMsg string) error
	ListIncompleteJobIDs(ctx context.Context) ([]uuid.UUID, error)
	CompleteJob(ctx context.Context, jobID uuid.UUID, receipt *models.Receipt, image *models.ReceiptImage) error
}

// BlobStore is the staged/final file storage the worker reads and writes.
type BlobStore interface {
	Put(ctx context.Context, name string, data []byte, contentType string) error
	Get(ctx context.Context, name string) ([]byte, error)
	Delete(ctx context.Context, name string) error
}

// RunFunc executes the OCR and extraction pipeline on one upload.
type RunFunc func(ctx context.Context, data []byte, contentType string) (extract.Fields, error)

// Worker drives one job through the pipeline and persists the outcome.
type Worker struct {
	store  JobStore
	blobs  BlobStore
	run    RunFunc
	logger *slog.Logger
}

func NewWorker(store JobStore, blobs BlobStore, run RunFunc, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Worker{store: store, blobs: blobs, run: run, logger: logger}
}

// Process runs one job to completion or failure. A job not in queued or
// processing state is skipped; reprocessing a completed job would create
// a duplicate receipt. Errors are recorded on the job, never returned,
// so one bad upload cannot stop the consuming loop.
func (w *Worker) Process(ctx context.Context, jobID uuid.UUID) {
	job, err := w.store.GetJob(ctx, jobID)
	if err != nil {
		w.logger.Error("job lookup failed", "job_id", jobID, "error", err)
		return
	}
	if job.Status != models.JobQueued && job.Status != models.JobProcessing {
		w.logger.Warn("skipping job in unexpected state", "job_id", jobID, "status", job.Status)
		return
	}

	if err := w.store.MarkJobProcessing(ctx, jobID); err != nil {
		w.logger.Error("failed to mark job processing", "job_id", jobID, "error", err)
		return
	}

	// The staged blob is removed exactly once, whatever the outcome.
	defer func() {
		if err := w.blobs.Delete(ctx, job.StoredFilename); err != nil {
			w.logger.Warn("failed to delete staged upload", "name", job.StoredFilename, "error", err)
		}
	}()

	data, err := w.blobs.Get(ctx, job.StoredFilename)
	if err != nil {
		w.fail(ctx, jobID, "uploaded file is missing")
		return
	}

	fields, err := w.run(ctx, data, job.ContentType)
	if err != nil {
		w.fail(ctx, jobID, err.Error())
		return
	}

	receipt := buildReceipt(fields)
	finalName := finalImageName(receipt.ID, job.StoredFilename)
	if err := w.blobs.Put(ctx, finalName, data, job.ContentType); err != nil {
		w.fail(ctx, jobID, fmt.Sprintf("failed to store receipt image: %v", err))
		return
	}

	image := &models.ReceiptImage{
		ReceiptID:      receipt.ID,
		StoredFilename: finalName,
		ContentType:    job.ContentType,
	}
	if err := w.store.CompleteJob(ctx, jobID, receipt, image); err != nil {
		w.fail(ctx, jobID, fmt.Sprintf("failed to persist receipt: %v", err))
		return
	}

	w.logger.Info("job completed", "job_id", jobID, "receipt_id", receipt.ID,
		"confidence", receipt.ExtractionConfidence, "needs_review", receipt.NeedsReview)
}

func (w *Worker) fail(ctx context.Context, jobID uuid.UUID, msg string) {
	w.logger.Error("job failed", "job_id", jobID, "error", msg)
	if err := w.store.MarkJobFailed(ctx, jobID, msg); err != nil {
		w.logger.Error("failed to mark job failed", "job_id", jobID, "error", err)
	}
}

func buildReceipt(f extract.Fields) *models.Receipt {
	var merchant *string
	if f.Merchant != nil {
		if trimmed := strings.TrimSpace(*f.Merchant); trimmed != "" {
			merchant = &trimmed
		}
	}
	return &models.Receipt{
		ID:                   uuid.New(),
		Merchant:             merchant,
		PurchaseDate:         f.PurchaseDate,
		TotalAmount:          f.Total,
		SalesTaxAmount:       f.SalesTax,
		ExtractionConfidence: decimal.NewFromFloat(f.Confidence).Round(2),
		NeedsReview:          f.NeedsReview,
		RawOCRText:           f.RawText,
	}
}

// finalImageName keeps the upload's extension so previews are served with
// a sensible type.
func finalImageName(receiptID uuid.UUID, stagedName string) string {
	return "receipts/" + receiptID.String() + strings.ToLower(path.Ext(stagedName))
}
