package db

import (
	"context"
	"fmt"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

// initStep is one idempotent stage of schema initialization.
type initStep struct {
	name string
	run  func(ctx context.Context) error
}

// InitSchema creates the database schema if it doesn't exist.
//
// This creates the lists table, the status enumeration, the todos table and
// the search-vector triggers. This is idempotent - safe to call multiple
// times.
func (db *DB) InitSchema() error {
	return db.InitSchemaContext(context.Background())
}

// InitSchemaContext creates the database schema with context support.
//
// Steps run in order and the first failure aborts initialization. The
// returned error names the failing step.
func (db *DB) InitSchemaContext(ctx context.Context) error {
	steps := []initStep{
		{"lists table", db.createListsTable},
		{"status type", db.createStatusType},
		{"todos table", db.createTodosTable},
		{"search triggers", db.createSearchTriggers},
	}

	for _, step := range steps {
		if err := step.run(ctx); err != nil {
			return fmt.Errorf("failed to initialize schema (%s): %w", step.name, err)
		}
	}
	return nil
}

func (db *DB) createListsTable(ctx context.Context) error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS lists (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		avatar TEXT NOT NULL DEFAULT '%s'
	)`, schema.DefaultAvatar)

	_, err := db.conn.ExecContext(ctx, query)
	return err
}

// createStatusType creates the status enumeration. SQLite has no enum
// types, so the allowed values live in a lookup table that todos.status
// references. It is only created (and seeded) when absent.
func (db *DB) createStatusType(ctx context.Context) error {
	var count int
	err := db.conn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = 'todo_statuses'`,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check for status type: %w", err)
	}
	if count > 0 {
		return nil
	}

	if _, err := db.conn.ExecContext(ctx,
		`CREATE TABLE todo_statuses (name TEXT PRIMARY KEY)`); err != nil {
		return err
	}
	if _, err := db.conn.ExecContext(ctx,
		`INSERT INTO todo_statuses (name) VALUES (?), (?)`,
		string(schema.StatusTodo), string(schema.StatusDone)); err != nil {
		return fmt.Errorf("failed to seed status type: %w", err)
	}
	return nil
}

func (db *DB) createTodosTable(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS todos (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		text TEXT NOT NULL,
		list_id INTEGER REFERENCES lists(id) ON DELETE CASCADE,
		status TEXT NOT NULL DEFAULT 'todo' REFERENCES todo_statuses(name),
		search_vector TEXT
	)`
	if _, err := db.conn.ExecContext(ctx, query); err != nil {
		return err
	}

	_, err := db.conn.ExecContext(ctx,
		`CREATE INDEX IF NOT EXISTS idx_todos_list ON todos(list_id)`)
	return err
}

// createSearchTriggers (re)creates the triggers that keep search_vector in
// step with text. Dropping first lets a changed trigger body replace an
// older one.
func (db *DB) createSearchTriggers(ctx context.Context) error {
	statements := []string{
		`DROP TRIGGER IF EXISTS todos_search_vector_insert`,
		`CREATE TRIGGER todos_search_vector_insert
		AFTER INSERT ON todos
		BEGIN
			UPDATE todos SET search_vector = todo_search_vector(NEW.text) WHERE id = NEW.id;
		END`,
		`DROP TRIGGER IF EXISTS todos_search_vector_update`,
		`CREATE TRIGGER todos_search_vector_update
		AFTER UPDATE OF text ON todos
		BEGIN
			UPDATE todos SET search_vector = todo_search_vector(NEW.text) WHERE id = NEW.id;
		END`,
	}

	for _, stmt := range statements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
