package db

import (
	"context"
	"fmt"
	"strings"

	"github.com/mschirtzinger/todos/internal/search"
	"github.com/mschirtzinger/todos/internal/store/schema"
)

// SearchTodos returns the todos whose search vector matches every term of q,
// optionally restricted to one list. Pending and empty queries return an
// empty slice without touching the database.
func (db *DB) SearchTodos(ctx context.Context, q search.Query, listID *int64) ([]schema.Todo, error) {
	if !q.Searchable() {
		return []schema.Todo{}, nil
	}

	var (
		clauses []string
		args    []any
	)
	for _, pattern := range q.LikePatterns() {
		clauses = append(clauses, `(' ' || COALESCE(search_vector, '')) LIKE ? ESCAPE '\'`)
		args = append(args, pattern)
	}
	if listID != nil {
		clauses = append(clauses, `list_id = ?`)
		args = append(args, *listID)
	}

	query := `SELECT ` + todoColumns + ` FROM todos WHERE ` +
		strings.Join(clauses, " AND ") + ` ORDER BY id DESC`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to search todos for %q: %w", q.String(), err)
	}
	defer rows.Close()
	return scanTodos(rows)
}
