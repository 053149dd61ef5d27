package db

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
)

// ListMerchants returns accumulated merchant names ordered
// case-insensitively, optionally narrowed to a name prefix.
func (s *Store) ListMerchants(ctx context.Context, prefix string, limit int) ([]string, error) {
	if limit <= 0 || limit > 500 {
		limit = 200
	}

	var (
		rows pgx.Rows
		err  error
	)
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if prefix != "" {
		query := `
			SELECT name FROM merchants
			WHERE lower(name) LIKE $1
			ORDER BY lower(name)
			LIMIT $2
		`
		rows, err = s.pool.Query(ctx, query, prefix+"%", limit)
	} else {
		query := `SELECT name FROM merchants ORDER BY lower(name) LIMIT $1`
		rows, err = s.pool.Query(ctx, query, limit)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
