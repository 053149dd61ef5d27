package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sizemo/ocreceipt/internal/models"
)

const jobColumns = `id, status, original_filename, stored_filename, content_type,
	created_by_user_id, receipt_id, error_message, created_at, started_at, completed_at, updated_at`

func scanJob(row pgx.Row) (*models.UploadJob, error) {
	var job models.UploadJob
	err := row.Scan(
		&job.ID, &job.Status, &job.OriginalFilename, &job.StoredFilename, &job.ContentType,
		&job.CreatedByUserID, &job.ReceiptID, &job.ErrorMessage,
		&job.CreatedAt, &job.StartedAt, &job.CompletedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// CreateJob inserts a new queued upload job.
func (s *Store) CreateJob(ctx context.Context, job *models.UploadJob) error {
	query := `
		INSERT INTO upload_jobs (id, status, original_filename, stored_filename, content_type, created_by_user_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at
	`
	return s.pool.QueryRow(ctx, query,
		job.ID, job.Status, job.OriginalFilename, job.StoredFilename, job.ContentType, job.CreatedByUserID,
	).Scan(&job.CreatedAt, &job.UpdatedAt)
}

// GetJob returns one job by id.
func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*models.UploadJob, error) {
	query := fmt.Sprintf(`SELECT %s FROM upload_jobs WHERE id = $1`, jobColumns)
	return scanJob(s.pool.QueryRow(ctx, query, id))
}

// MarkJobProcessing moves a job into the processing state and stamps the
// start time, clearing any error from a previous attempt.
func (s *Store) MarkJobProcessing(ctx context.Context, id uuid.UUID) error {
	query := `
		UPDATE upload_jobs
		SET status = $2, started_at = $3, error_message = NULL, updated_at = now()
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, query, id, models.JobProcessing, time.Now().UTC())
	return err
}

// MarkJobFailed records a terminal failure with a truncated message.
func (s *Store) MarkJobFailed(ctx context.Context, id uuid.UUID, errMsg string) error {
	query := `
		UPDATE upload_jobs
		SET status = $2, error_message = $3, completed_at = $4, updated_at = now()
		WHERE id = $1
	`
	_, err := s.pool.Exec(ctx, query, id, models.JobFailed, models.TruncateError(errMsg), time.Now().UTC())
	return err
}

// ListIncompleteJobIDs returns ids of jobs left in queued or processing,
// in stored creation order. Used for the startup requeue scan.
func (s *Store) ListIncompleteJobIDs(ctx context.Context) ([]uuid.UUID, error) {
	query := `
		SELECT id FROM upload_jobs
		WHERE status = $1 OR status = $2
		ORDER BY created_at
	`
	rows, err := s.pool.Query(ctx, query, models.JobQueued, models.JobProcessing)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// CompleteJob persists a finished extraction in one transaction: the
// receipt, its image reference, the merchant upsert and the completed job
// all commit together or not at all.
func (s *Store) CompleteJob(ctx context.Context, jobID uuid.UUID, receipt *models.Receipt, image *models.ReceiptImage) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	receiptQuery := `
		INSERT INTO receipts (id, merchant, purchase_date, total_amount, sales_tax_amount,
			extraction_confidence, needs_review, raw_ocr_text)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`
	err = tx.QueryRow(ctx, receiptQuery,
		receipt.ID, receipt.Merchant, receipt.PurchaseDate, receipt.TotalAmount, receipt.SalesTaxAmount,
		receipt.ExtractionConfidence, receipt.NeedsReview, receipt.RawOCRText,
	).Scan(&receipt.CreatedAt)
	if err != nil {
		return err
	}

	imageQuery := `
		INSERT INTO receipt_images (receipt_id, stored_filename, content_type)
		VALUES ($1, $2, $3)
	`
	if _, err := tx.Exec(ctx, imageQuery, image.ReceiptID, image.StoredFilename, image.ContentType); err != nil {
		return err
	}

	if receipt.Merchant != nil {
		if err := upsertMerchant(ctx, tx, *receipt.Merchant); err != nil {
			return err
		}
	}

	jobQuery := `
		UPDATE upload_jobs
		SET status = $2, receipt_id = $3, completed_at = $4, error_message = NULL, updated_at = now()
		WHERE id = $1
	`
	if _, err := tx.Exec(ctx, jobQuery, jobID, models.JobCompleted, receipt.ID, time.Now().UTC()); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func upsertMerchant(ctx context.Context, tx pgx.Tx, name string) error {
	query := `
		INSERT INTO merchants (id, name)
		SELECT $1, $2
		WHERE NOT EXISTS (SELECT 1 FROM merchants WHERE lower(name) = lower($2))
	`
	_, err := tx.Exec(ctx, query, uuid.New(), name)
	return err
}
