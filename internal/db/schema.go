package db

import "context"

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id UUID PRIMARY KEY,
		username TEXT NOT NULL UNIQUE,
		password_salt TEXT NOT NULL,
		password_hash TEXT NOT NULL,
		role TEXT NOT NULL DEFAULT 'view',
		is_active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS receipts (
		id UUID PRIMARY KEY,
		merchant TEXT,
		purchase_date DATE,
		total_amount NUMERIC(10,2),
		sales_tax_amount NUMERIC(10,2),
		extraction_confidence NUMERIC(5,2),
		needs_review BOOLEAN NOT NULL DEFAULT FALSE,
		raw_ocr_text TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS receipt_images (
		receipt_id UUID NOT NULL UNIQUE REFERENCES receipts(id) ON DELETE CASCADE,
		stored_filename TEXT NOT NULL,
		content_type TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS merchants (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS upload_jobs (
		id UUID PRIMARY KEY,
		status TEXT NOT NULL DEFAULT 'queued',
		original_filename TEXT NOT NULL,
		stored_filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		created_by_user_id UUID NOT NULL,
		receipt_id UUID REFERENCES receipts(id) ON DELETE SET NULL,
		error_message TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		started_at TIMESTAMPTZ,
		completed_at TIMESTAMPTZ,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_upload_jobs_status ON upload_jobs (status)`,
	`CREATE INDEX IF NOT EXISTS idx_receipts_purchase_date ON receipts (purchase_date)`,
}

// EnsureSchema creates the tables the service needs if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
