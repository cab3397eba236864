package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

const todoColumns = `id, text, status, list_id, search_vector`

// CreateTodo inserts a todo with status todo, optionally in a list. Blank
// text is ignored and returns (nil, nil). A listID naming no list fails with
// ErrUnknownList.
func (db *DB) CreateTodo(ctx context.Context, text string, listID *int64) (*schema.Todo, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil
	}

	// search_vector is filled by an AFTER INSERT trigger, which RETURNING
	// would not see, so the row is read back.
	res, err := db.conn.ExecContext(ctx,
		`INSERT INTO todos (text, list_id) VALUES (?, ?)`, text, nullID(listID))
	if err != nil {
		return nil, fmt.Errorf("failed to create todo: %w", mapWriteError(err))
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to read todo id: %w", err)
	}

	db.notify(ctx, "todos")
	return db.GetTodo(ctx, id)
}

// UpdateTodo replaces a todo's text and, when listID is non-nil, its list.
// A listID pointing at 0 detaches the todo from any list. Blank text makes
// this a no-op.
func (db *DB) UpdateTodo(ctx context.Context, id int64, text string, listID *int64) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	var (
		res sql.Result
		err error
	)
	if listID == nil {
		res, err = db.conn.ExecContext(ctx,
			`UPDATE todos SET text = ? WHERE id = ?`, text, id)
	} else {
		res, err = db.conn.ExecContext(ctx,
			`UPDATE todos SET text = ?, list_id = ? WHERE id = ?`, text, nullID(listID), id)
	}
	if err != nil {
		return fmt.Errorf("failed to update todo %d: %w", id, mapWriteError(err))
	}
	if err := requireRow(res, "todo", id); err != nil {
		return err
	}

	db.notify(ctx, "todos")
	return nil
}

// SetTodoStatus sets a todo's status. An invalid status is ignored.
func (db *DB) SetTodoStatus(ctx context.Context, id int64, status schema.Status) error {
	if !status.Valid() {
		return nil
	}

	res, err := db.conn.ExecContext(ctx,
		`UPDATE todos SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("failed to set status of todo %d: %w", id, err)
	}
	if err := requireRow(res, "todo", id); err != nil {
		return err
	}

	db.notify(ctx, "todos")
	return nil
}

// ToggleTodo flips a todo between todo and done and returns the new status.
func (db *DB) ToggleTodo(ctx context.Context, id int64) (schema.Status, error) {
	var status string
	err := db.conn.QueryRowContext(ctx, `
	UPDATE todos
	SET status = CASE status WHEN 'done' THEN 'todo' ELSE 'done' END
	WHERE id = ?
	RETURNING status`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to toggle todo %d: %w", id, err)
	}

	db.notify(ctx, "todos")
	return schema.Status(status), nil
}

// DeleteTodo removes a todo.
func (db *DB) DeleteTodo(ctx context.Context, id int64) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete todo %d: %w", id, err)
	}
	if err := requireRow(res, "todo", id); err != nil {
		return err
	}

	db.notify(ctx, "todos")
	return nil
}

// ListTodos returns every todo, or only those in the given list.
// Rows come back in id order; presentation order is the view's concern.
func (db *DB) ListTodos(ctx context.Context, listID *int64) ([]schema.Todo, error) {
	query := `SELECT ` + todoColumns + ` FROM todos`
	var args []any
	if listID != nil {
		query += ` WHERE list_id = ?`
		args = append(args, *listID)
	}
	query += ` ORDER BY id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query todos: %w", err)
	}
	defer rows.Close()
	return scanTodos(rows)
}

// GetTodo returns the todo with the given id, or ErrNotFound.
func (db *DB) GetTodo(ctx context.Context, id int64) (*schema.Todo, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+todoColumns+` FROM todos WHERE id = ?`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get todo %d: %w", id, err)
	}
	defer rows.Close()

	todos, err := scanTodos(rows)
	if err != nil {
		return nil, err
	}
	if len(todos) == 0 {
		return nil, fmt.Errorf("todo %d: %w", id, ErrNotFound)
	}
	return &todos[0], nil
}

// scanTodos converts query rows into todos.
func scanTodos(rows *sql.Rows) ([]schema.Todo, error) {
	todos := []schema.Todo{}

	for rows.Next() {
		var (
			t            schema.Todo
			status       string
			listID       sql.NullInt64
			searchVector sql.NullString
		)
		if err := rows.Scan(&t.ID, &t.Text, &status, &listID, &searchVector); err != nil {
			return nil, fmt.Errorf("failed to scan todo: %w", err)
		}
		t.Status = schema.Status(status)
		if listID.Valid {
			id := listID.Int64
			t.ListID = &id
		}
		t.SearchVector = searchVector.String
		todos = append(todos, t)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating todos: %w", err)
	}
	return todos, nil
}

// nullID maps a nil or non-positive list id to SQL NULL.
func nullID(id *int64) sql.NullInt64 {
	if id == nil || *id <= 0 {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}
