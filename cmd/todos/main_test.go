package main

import (
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/store/schema"
)

// run executes the root command against dbPath with stdout discarded
func run(t *testing.T, dbPath string, args ...string) {
	t.Helper()

	stdout := os.Stdout
	devNull, err := os.OpenFile(os.DevNull, os.O_WRONLY, 0)
	if err != nil {
		t.Fatalf("failed to open %s: %v", os.DevNull, err)
	}
	os.Stdout = devNull
	defer func() {
		os.Stdout = stdout
		devNull.Close()
	}()

	defer resetFlags(rootCmd)

	rootCmd.SetArgs(append([]string{"--db", dbPath, "--quiet", "--no-color"}, args...))
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("todos %v failed: %v", args, err)
	}
}

// resetFlags restores every flag to its default, since cobra keeps parsed
// values between Execute calls.
func resetFlags(cmd *cobra.Command) {
	reset := func(f *pflag.Flag) {
		_ = f.Value.Set(f.DefValue)
		f.Changed = false
	}
	cmd.Flags().VisitAll(reset)
	cmd.PersistentFlags().VisitAll(reset)
	for _, sub := range cmd.Commands() {
		resetFlags(sub)
	}
}

func TestCLI_ListsAndTodos(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dbPath := filepath.Join(t.TempDir(), "todos.db")

	run(t, dbPath, "init")
	run(t, dbPath, "list", "add", "Home")
	run(t, dbPath, "add", "--list", "1", "Clean", "kitchen")
	run(t, dbPath, "add", "Buy", "milk")
	run(t, dbPath, "done", "1")
	run(t, dbPath, "edit", "2", "Buy", "oat", "milk")
	run(t, dbPath, "ls", "--search", "oat")

	store, err := db.Open(dbPath, db.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	todos, err := store.ListTodos(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTodos() failed: %v", err)
	}

	type row struct {
		Text   string
		Status schema.Status
	}
	var got []row
	for _, td := range todos {
		got = append(got, row{td.Text, td.Status})
	}
	want := []row{
		{"Clean kitchen", schema.StatusDone},
		{"Buy oat milk", schema.StatusTodo},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("todos mismatch (-want +got):\n%s", diff)
	}

	run(t, dbPath, "list", "rm", "--yes", "1")
	todos, err = store.ListTodos(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTodos() failed: %v", err)
	}
	if len(todos) != 1 || todos[0].Text != "Buy oat milk" {
		t.Errorf("after list rm: %+v, want only Buy oat milk", todos)
	}
}

func TestCLI_ExportImport(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	dir := t.TempDir()
	src := filepath.Join(dir, "src.db")
	dst := filepath.Join(dir, "dst.db")
	file := filepath.Join(dir, "todos.yaml")

	run(t, src, "list", "add", "Work")
	run(t, src, "add", "--list", "1", "Write", "report")
	run(t, src, "export", file)
	run(t, dst, "import", file)

	store, err := db.Open(dst, db.WithLogger(log.New(io.Discard, "", 0)))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer store.Close()

	lists, err := store.ListLists(context.Background())
	if err != nil {
		t.Fatalf("ListLists() failed: %v", err)
	}
	if len(lists) != 1 || lists[0].Name != "Work" {
		t.Fatalf("imported lists = %+v, want [Work]", lists)
	}
	todos, err := store.ListTodos(context.Background(), &lists[0].ID)
	if err != nil {
		t.Fatalf("ListTodos() failed: %v", err)
	}
	if len(todos) != 1 || todos[0].Text != "Write report" {
		t.Errorf("imported todos = %+v, want [Write report]", todos)
	}
}
