package db

import (
	"context"
	"errors"
	"io"
	"log"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

// mockDB wraps a sqlmock connection for failure-path tests
func mockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	return New(conn, WithLogger(log.New(io.Discard, "", 0))), mock
}

// TestInitSchema_FirstStepFails tests that a failing step aborts initialization
func TestInitSchema_FirstStepFails(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lists").
		WillReturnError(errors.New("disk I/O error"))

	err := db.InitSchema()
	if err == nil {
		t.Fatal("InitSchema() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "lists table") {
		t.Errorf("error %q does not name the failing step", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestInitSchema_StatusTypeSkippedWhenPresent tests the existence check
func TestInitSchema_StatusTypeSkippedWhenPresent(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lists").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sqlite_master`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS todos").
		WillReturnError(errors.New("table locked"))

	err := db.InitSchema()
	if err == nil {
		t.Fatal("InitSchema() succeeded, want error")
	}
	if !strings.Contains(err.Error(), "todos table") {
		t.Errorf("error %q does not name the failing step", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestInitSchema_SeedsStatusType tests creation and seeding of the status type
func TestInitSchema_SeedsStatusType(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS lists").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM sqlite_master`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec("CREATE TABLE todo_statuses").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO todo_statuses").
		WithArgs("todo", "done").
		WillReturnError(errors.New("readonly database"))

	err := db.InitSchema()
	if err == nil || !strings.Contains(err.Error(), "status type") {
		t.Errorf("InitSchema() error = %v, want status type failure", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestCreateList_WriteFailure tests that write errors surface and skip notification
func TestCreateList_WriteFailure(t *testing.T) {
	db, mock := mockDB(t)

	notified := false
	db.OnChange(func(context.Context, ...string) { notified = true })

	mock.ExpectQuery("INSERT INTO lists").
		WithArgs("Groceries").
		WillReturnError(errors.New("readonly database"))

	list, err := db.CreateList(context.Background(), "Groceries", "")
	if err == nil {
		t.Fatal("CreateList() succeeded, want error")
	}
	if list != nil {
		t.Errorf("CreateList() = %+v, want nil", list)
	}
	if notified {
		t.Error("listeners notified after failed write")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

// TestDeleteTodo_WriteFailure tests that delete errors are wrapped
func TestDeleteTodo_WriteFailure(t *testing.T) {
	db, mock := mockDB(t)

	mock.ExpectExec("DELETE FROM todos").
		WithArgs(int64(7)).
		WillReturnError(errors.New("database is locked"))

	err := db.DeleteTodo(context.Background(), 7)
	if err == nil || !strings.Contains(err.Error(), "failed to delete todo 7") {
		t.Errorf("DeleteTodo() error = %v, want wrapped failure", err)
	}
}
