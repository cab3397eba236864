package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

// CreateList inserts a list. An empty or blank name is ignored and returns
// (nil, nil). An empty avatar falls back to the configured default, then to
// schema.DefaultAvatar.
func (db *DB) CreateList(ctx context.Context, name, avatar string) (*schema.List, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	avatar = strings.TrimSpace(avatar)
	if avatar == "" {
		avatar = db.defaultAvatar
	}

	var row *sql.Row
	if avatar == "" {
		row = db.conn.QueryRowContext(ctx,
			`INSERT INTO lists (name) VALUES (?) RETURNING id, name, avatar`, name)
	} else {
		row = db.conn.QueryRowContext(ctx,
			`INSERT INTO lists (name, avatar) VALUES (?, ?) RETURNING id, name, avatar`, name, avatar)
	}

	var l schema.List
	if err := row.Scan(&l.ID, &l.Name, &l.Avatar); err != nil {
		return nil, fmt.Errorf("failed to create list: %w", err)
	}

	db.notify(ctx, "lists")
	return &l, nil
}

// UpdateList renames a list and optionally replaces its avatar. An empty
// name makes this a no-op; an empty avatar keeps the current one.
func (db *DB) UpdateList(ctx context.Context, id int64, name, avatar string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE lists SET name = ?, avatar = COALESCE(NULLIF(?, ''), avatar) WHERE id = ?`,
		name, strings.TrimSpace(avatar), id)
	if err != nil {
		return fmt.Errorf("failed to update list %d: %w", id, err)
	}
	if err := requireRow(res, "list", id); err != nil {
		return err
	}

	db.notify(ctx, "lists")
	return nil
}

// DeleteList removes a list and, by cascade, every todo in it.
func (db *DB) DeleteList(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM lists WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete list %d: %w", id, err)
	}
	if err := requireRow(res, "list", id); err != nil {
		return err
	}

	db.notify(ctx, "lists", "todos")
	return nil
}

// ListLists returns every list ordered by id.
func (db *DB) ListLists(ctx context.Context) ([]schema.List, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT id, name, avatar FROM lists ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query lists: %w", err)
	}
	defer rows.Close()

	lists := []schema.List{}
	for rows.Next() {
		var l schema.List
		if err := rows.Scan(&l.ID, &l.Name, &l.Avatar); err != nil {
			return nil, fmt.Errorf("failed to scan list: %w", err)
		}
		lists = append(lists, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating lists: %w", err)
	}
	return lists, nil
}

// GetList returns the list with the given id, or ErrNotFound.
func (db *DB) GetList(ctx context.Context, id int64) (*schema.List, error) {
	var l schema.List
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, name, avatar FROM lists WHERE id = ?`, id,
	).Scan(&l.ID, &l.Name, &l.Avatar)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("list %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get list %d: %w", id, err)
	}
	return &l, nil
}

// requireRow turns a zero-row write into ErrNotFound.
func requireRow(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
