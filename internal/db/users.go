package db

import (
	"context"
	"strings"

	"github.com/sizemo/ocreceipt/internal/models"
)

// GetUserByUsername looks up an account, case-insensitively.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `
		SELECT id, username, password_salt, password_hash, role, is_active, created_at
		FROM users
		WHERE lower(username) = $1
	`
	var u models.User
	err := s.pool.QueryRow(ctx, query, strings.ToLower(strings.TrimSpace(username))).Scan(
		&u.ID, &u.Username, &u.PasswordSalt, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser inserts a new account.
func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	query := `
		INSERT INTO users (id, username, password_salt, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`
	return s.pool.QueryRow(ctx, query,
		u.ID, strings.ToLower(strings.TrimSpace(u.Username)), u.PasswordSalt, u.PasswordHash, u.Role, u.IsActive,
	).Scan(&u.CreatedAt)
}

// HasAdmin reports whether any admin account exists. Used by the
// bootstrap path on startup.
func (s *Store) HasAdmin(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE role = 'admin')`).Scan(&exists)
	return exists, err
}
