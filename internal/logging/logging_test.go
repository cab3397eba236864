package logging

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// TestFactory_File tests that component logs land in the configured file
func TestFactory_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "todos.log")
	f := NewFactory(Options{File: path, MaxSizeMB: 1})

	f.Logger("db").Printf("opened %s", "todos.db")
	f.Logger("live").Println("refreshed")
	if err := f.Close(); err != nil {
		t.Fatalf("Close() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	for _, want := range []string{"[db] ", "opened todos.db", "[live] ", "refreshed"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("log file missing %q:\n%s", want, data)
		}
	}
}

// TestFactory_Quiet tests that quiet mode discards everything
func TestFactory_Quiet(t *testing.T) {
	f := NewFactory(Options{Quiet: true, File: filepath.Join(t.TempDir(), "unused.log")})
	if f.Writer() != io.Discard {
		t.Error("quiet factory does not discard")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() failed: %v", err)
	}
}

// TestFactory_DefaultStderr tests the default destination
func TestFactory_DefaultStderr(t *testing.T) {
	f := NewFactory(Options{})
	if f.Writer() != os.Stderr {
		t.Error("default factory does not write to stderr")
	}
}
