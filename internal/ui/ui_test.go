package ui

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/mschirtzinger/todos/internal/store/schema"
	"github.com/mschirtzinger/todos/internal/view"
)

func TestMain(m *testing.M) {
	lipgloss.SetColorProfile(termenv.Ascii)
	os.Exit(m.Run())
}

func listID(v int64) *int64 {
	return &v
}

// TestTodoLine tests checkbox, id and list badge rendering
func TestTodoLine(t *testing.T) {
	lists := []schema.List{{ID: 1, Name: "Groceries"}}

	got := TodoLine(schema.Todo{ID: 3, Text: "Buy milk", Status: schema.StatusTodo, ListID: listID(1)}, lists)
	if got != "[ ] #3 Buy milk @Groceries" {
		t.Errorf("TodoLine() = %q", got)
	}

	got = TodoLine(schema.Todo{ID: 4, Text: "Walk dog", Status: schema.StatusDone}, lists)
	if !strings.HasPrefix(got, "[x] #4") || !strings.Contains(got, "Walk dog") {
		t.Errorf("TodoLine(done) = %q", got)
	}
}

// TestWriteTodos_EmptyState tests the empty list message
func TestWriteTodos_EmptyState(t *testing.T) {
	var buf bytes.Buffer
	WriteTodos(&buf, view.AllTodosHeading, nil, nil)

	out := buf.String()
	if !strings.Contains(out, "All Todos (0)") || !strings.Contains(out, EmptyState) {
		t.Errorf("WriteTodos() = %q", out)
	}
}

// TestWriteLists tests per-list counts
func TestWriteLists(t *testing.T) {
	lists := []schema.List{{ID: 1, Name: "Home"}, {ID: 2, Name: "Work"}}
	todos := []schema.Todo{{ID: 1, ListID: listID(1)}, {ID: 2, ListID: listID(1)}, {ID: 3}}

	var buf bytes.Buffer
	WriteLists(&buf, lists, todos)

	want := "#1 Home (2)\n#2 Work (0)\n"
	if buf.String() != want {
		t.Errorf("WriteLists() = %q, want %q", buf.String(), want)
	}
}

// TestWriteSnapshot tests search status and totals
func TestWriteSnapshot(t *testing.T) {
	snap := view.Snapshot{
		Heading: "Home",
		Search:  "buy ",
		Pending: true,
		Todos:   []schema.Todo{},
		Total:   5,
	}

	var buf bytes.Buffer
	WriteSnapshot(&buf, snap)

	out := buf.String()
	for _, want := range []string{`Search: "buy " (searching...)`, "Home (0)", "0 shown, 5 total"} {
		if !strings.Contains(out, want) {
			t.Errorf("WriteSnapshot() missing %q:\n%s", want, out)
		}
	}
}
