package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// JobStatus is the lifecycle state of an upload job.
// Transitions are one-directional: queued -> processing -> completed|failed.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether no further transitions are allowed.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// MaxErrorMessageLen caps the failure detail stored on a job.
const MaxErrorMessageLen = 2000

// UploadJob tracks one submitted file from upload through processing.
// Only the queue worker mutates a job after creation.
type UploadJob struct {
	ID               uuid.UUID  `json:"id"`
	Status           JobStatus  `json:"status"`
	OriginalFilename string     `json:"original_filename"`
	StoredFilename   string     `json:"stored_filename"`
	ContentType      string     `json:"content_type"`
	CreatedByUserID  uuid.UUID  `json:"created_by_user_id"`
	ReceiptID        *uuid.UUID `json:"receipt_id,omitempty"`
	ErrorMessage     *string    `json:"error_message,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	StartedAt        *time.Time `json:"started_at,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Receipt is the structured extraction result for one processed upload.
// Immutable once created, except for manual correction via the API, which
// also clears NeedsReview.
type Receipt struct {
	ID                   uuid.UUID        `json:"id"`
	Merchant             *string          `json:"merchant"`
	PurchaseDate         *time.Time       `json:"purchase_date"`
	TotalAmount          *decimal.Decimal `json:"total_amount"`
	SalesTaxAmount       *decimal.Decimal `json:"sales_tax_amount"`
	ExtractionConfidence decimal.Decimal  `json:"extraction_confidence"`
	NeedsReview          bool             `json:"needs_review"`
	RawOCRText           string           `json:"raw_ocr_text"`
	CreatedAt            time.Time        `json:"created_at"`
}

// ReceiptImage links a receipt to its stored image blob.
type ReceiptImage struct {
	ReceiptID      uuid.UUID `json:"receipt_id"`
	StoredFilename string    `json:"stored_filename"`
	ContentType    string    `json:"content_type"`
	CreatedAt      time.Time `json:"created_at"`
}

// User is an account allowed to submit and review receipts.
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordSalt string    `json:"-"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
}

// TruncateError trims a failure message to what fits in a job record.
func TruncateError(msg string) string {
	if msg == "" {
		msg = "processing failed"
	}
	if len(msg) > MaxErrorMessageLen {
		return msg[:MaxErrorMessageLen]
	}
	return msg
}
