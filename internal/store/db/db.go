// Package db provides the embedded SQLite store for lists and todos.
//
// The database is a single local file opened through the ncruces/go-sqlite3
// driver (SQLite compiled to wasm, no cgo) in WAL mode, so a live view and a
// CLI invocation can read while the other writes.
//
// Architecture:
//   - Database file: todos.db (location from configuration)
//   - Tables: lists, todos, todo_statuses (status enumeration)
//   - Triggers: keep todos.search_vector consistent with todos.text
//   - SQL function todo_search_vector: the Go search.Vector function,
//     registered on every pooled connection
//
// Every successful write notifies the registered change listeners with the
// tables it touched, before the write method returns. The live query hub
// registers itself as a listener, which is what keeps open views current.
package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ncruces/go-sqlite3"
	"github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/mschirtzinger/todos/internal/search"
)

var (
	// ErrNotFound is returned when a write targets a row that does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnknownList is returned when a todo would reference a list that
	// does not exist.
	ErrUnknownList = errors.New("unknown list")
)

// ChangeListener is called after a successful write with the tables the
// write touched.
type ChangeListener func(ctx context.Context, tables ...string)

// DB wraps the SQLite connection pool with the todo store operations.
type DB struct {
	conn          *sql.DB
	path          string
	logger        *log.Logger
	defaultAvatar string

	listenersMu sync.RWMutex
	listeners   []ChangeListener
}

// Option configures a DB.
type Option func(*DB)

// WithLogger sets the logger used for store activity.
func WithLogger(logger *log.Logger) Option {
	return func(db *DB) {
		if logger != nil {
			db.logger = logger
		}
	}
}

// WithDefaultAvatar sets the avatar given to lists created without one.
// Empty leaves the column default (schema.DefaultAvatar) in charge.
func WithDefaultAvatar(avatar string) Option {
	return func(db *DB) {
		db.defaultAvatar = avatar
	}
}

// Open opens (creating if needed) the database at path.
//
// Each pooled connection gets foreign keys enabled, a busy timeout, and the
// todo_search_vector function. The schema is not touched; call
// InitSchemaContext before issuing queries.
//
// The caller MUST call Close() when done.
//
// Example:
//
//	database, err := db.Open("todos.db")
//	if err != nil {
//	    return err
//	}
//	defer database.Close()
//	if err := database.InitSchema(); err != nil {
//	    return err
//	}
func Open(path string, opts ...Option) (*DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := driver.Open(fmt.Sprintf("file:%s", path), initConn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	conn.SetMaxOpenConns(8)
	conn.SetMaxIdleConns(4)
	conn.SetConnMaxLifetime(5 * time.Minute)

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	db := New(conn, opts...)
	db.path = path
	return db, nil
}

// New wraps an existing connection pool. The pool must already have the
// todo_search_vector function available if the schema triggers will fire.
func New(conn *sql.DB, opts ...Option) *DB {
	db := &DB{
		conn:   conn,
		logger: log.New(os.Stderr, "[db] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// initConn prepares every new pooled connection.
func initConn(c *sqlite3.Conn) error {
	if err := c.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}
	if err := c.Exec("PRAGMA busy_timeout=5000"); err != nil {
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}
	return c.CreateFunction("todo_search_vector", 1, sqlite3.DETERMINISTIC|sqlite3.INNOCUOUS,
		func(ctx sqlite3.Context, arg ...sqlite3.Value) {
			if arg[0].Type() == sqlite3.NULL {
				ctx.ResultNull()
				return
			}
			ctx.ResultText(search.Vector(arg[0].Text()))
		})
}

// RawDB returns the underlying sql.DB connection.
// The live query hub reads through it.
func (db *DB) RawDB() *sql.DB {
	return db.conn
}

// Path returns the database file path, or "" for wrapped connections.
func (db *DB) Path() string {
	return db.path
}

// Ping verifies the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// Close closes the database connection.
// Performs a WAL checkpoint to ensure all changes are persisted.
func (db *DB) Close() error {
	if db.conn == nil {
		return nil
	}

	if db.path != "" {
		if _, err := db.conn.Exec("PRAGMA wal_checkpoint(TRUNCATE)"); err != nil {
			db.logger.Printf("Warning: failed to checkpoint WAL: %v", err)
		}
	}

	if err := db.conn.Close(); err != nil {
		return fmt.Errorf("failed to close database: %w", err)
	}

	db.conn = nil
	return nil
}

// OnChange registers fn to be called after every successful write.
func (db *DB) OnChange(fn ChangeListener) {
	db.listenersMu.Lock()
	defer db.listenersMu.Unlock()
	db.listeners = append(db.listeners, fn)
}

// notify runs the change listeners synchronously so that, by the time a
// write method returns, every live view has seen the write.
func (db *DB) notify(ctx context.Context, tables ...string) {
	db.listenersMu.RLock()
	listeners := make([]ChangeListener, len(db.listeners))
	copy(listeners, db.listeners)
	db.listenersMu.RUnlock()

	for _, fn := range listeners {
		fn(ctx, tables...)
	}
}

// mapWriteError translates constraint failures into package errors.
func mapWriteError(err error) error {
	if errors.Is(err, sqlite3.CONSTRAINT_FOREIGNKEY) {
		return fmt.Errorf("%w: %v", ErrUnknownList, err)
	}
	return err
}
