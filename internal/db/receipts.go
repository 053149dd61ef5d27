package db

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/sizemo/ocreceipt/internal/models"
)

const receiptColumns = `id, merchant, purchase_date, total_amount, sales_tax_amount,
	extraction_confidence, needs_review, raw_ocr_text, created_at`

func scanReceipt(row pgx.Row) (*models.Receipt, error) {
	var r models.Receipt
	err := row.Scan(
		&r.ID, &r.Merchant, &r.PurchaseDate, &r.TotalAmount, &r.SalesTaxAmount,
		&r.ExtractionConfidence, &r.NeedsReview, &r.RawOCRText, &r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// GetReceipt returns one receipt by id.
func (s *Store) GetReceipt(ctx context.Context, id uuid.UUID) (*models.Receipt, error) {
	query := fmt.Sprintf(`SELECT %s FROM receipts WHERE id = $1`, receiptColumns)
	return scanReceipt(s.pool.QueryRow(ctx, query, id))
}

// ReceiptFilter narrows ListReceipts results. Zero values mean no filter.
type ReceiptFilter struct {
	Merchant    string
	DateFrom    *time.Time
	DateTo      *time.Time
	NeedsReview *bool
	Limit       int
}

// ListReceipts returns receipts newest first, optionally filtered.
func (s *Store) ListReceipts(ctx context.Context, filter ReceiptFilter) ([]models.Receipt, error) {
	var (
		conditions []string
		args       []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Merchant != "" {
		conditions = append(conditions, fmt.Sprintf("merchant ILIKE %s", arg("%"+filter.Merchant+"%")))
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("purchase_date >= %s", arg(*filter.DateFrom)))
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("purchase_date <= %s", arg(*filter.DateTo)))
	}
	if filter.NeedsReview != nil {
		conditions = append(conditions, fmt.Sprintf("needs_review = %s", arg(*filter.NeedsReview)))
	}

	query := fmt.Sprintf(`SELECT %s FROM receipts`, receiptColumns)
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	query += fmt.Sprintf(" LIMIT %s", arg(limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var receipts []models.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		receipts = append(receipts, *r)
	}
	return receipts, rows.Err()
}

// ReceiptUpdate is a manual correction applied by a reviewer. Nil fields
// are left untouched.
type ReceiptUpdate struct {
	Merchant       *string
	PurchaseDate   *time.Time
	TotalAmount    *decimal.Decimal
	SalesTaxAmount *decimal.Decimal
}

// UpdateReceipt applies a manual correction and clears the review flag;
// a corrected receipt has by definition been reviewed.
func (s *Store) UpdateReceipt(ctx context.Context, id uuid.UUID, upd ReceiptUpdate) (*models.Receipt, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	query := `
		UPDATE receipts
		SET merchant = COALESCE($2, merchant),
		    purchase_date = COALESCE($3, purchase_date),
		    total_amount = COALESCE($4, total_amount),
		    sales_tax_amount = COALESCE($5, sales_tax_amount),
		    needs_review = FALSE
		WHERE id = $1
	` + fmt.Sprintf(" RETURNING %s", receiptColumns)

	var merchant *string
	if upd.Merchant != nil {
		trimmed := strings.TrimSpace(*upd.Merchant)
		if trimmed != "" {
			merchant = &trimmed
		}
	}

	receipt, err := scanReceipt(tx.QueryRow(ctx, query, id, merchant, upd.PurchaseDate, upd.TotalAmount, upd.SalesTaxAmount))
	if err != nil {
		return nil, err
	}

	if receipt.Merchant != nil {
		if err := upsertMerchant(ctx, tx, *receipt.Merchant); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return receipt, nil
}

// SetReceiptReview sets the review flag directly.
func (s *Store) SetReceiptReview(ctx context.Context, id uuid.UUID, needsReview bool) (*models.Receipt, error) {
	query := fmt.Sprintf(`
		UPDATE receipts SET needs_review = $2 WHERE id = $1
		RETURNING %s
	`, receiptColumns)
	return scanReceipt(s.pool.QueryRow(ctx, query, id, needsReview))
}

// DeleteReceipt removes a receipt; the image row cascades.
func (s *Store) DeleteReceipt(ctx context.Context, id uuid.UUID) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	return err
}

// GetReceiptImage returns the stored image reference for a receipt.
func (s *Store) GetReceiptImage(ctx context.Context, receiptID uuid.UUID) (*models.ReceiptImage, error) {
	query := `
		SELECT receipt_id, stored_filename, content_type, created_at
		FROM receipt_images
		WHERE receipt_id = $1
	`
	var img models.ReceiptImage
	err := s.pool.QueryRow(ctx, query, receiptID).Scan(
		&img.ReceiptID, &img.StoredFilename, &img.ContentType, &img.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &img, nil
}
