package schema

import (
	"fmt"
	"strconv"
	"strings"
)

// DefaultAvatar is the placeholder image used for lists created without one.
const DefaultAvatar = "https://cdn-icons-png.flaticon.com/512/8161/8161879.png"

// Status is the completion state of a todo.
type Status string

const (
	// StatusTodo marks an incomplete todo. New todos start here.
	StatusTodo Status = "todo"
	// StatusDone marks a completed todo.
	StatusDone Status = "done"
)

// Statuses lists every valid status in display order.
var Statuses = []Status{StatusTodo, StatusDone}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	return s == StatusTodo || s == StatusDone
}

// Toggle returns the opposite status.
func (s Status) Toggle() Status {
	if s == StatusDone {
		return StatusTodo
	}
	return StatusDone
}

// ParseStatus parses a status name, case-insensitively.
func ParseStatus(s string) (Status, error) {
	status := Status(strings.ToLower(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("invalid status %q (want todo or done)", s)
	}
	return status, nil
}

// List is a named group of todos.
type List struct {
	ID     int64  `json:"id" yaml:"id"`
	Name   string `json:"name" yaml:"name"`
	Avatar string `json:"avatar" yaml:"avatar"`
}

// Todo is a single todo item.
type Todo struct {
	ID           int64  `json:"id" yaml:"id"`
	Text         string `json:"text" yaml:"text"`
	Status       Status `json:"status" yaml:"status"`
	ListID       *int64 `json:"list_id" yaml:"list_id,omitempty"`
	SearchVector string `json:"search_vector,omitempty" yaml:"-"`
}

// Done reports whether the todo is complete.
func (t Todo) Done() bool {
	return t.Status == StatusDone
}

// InList reports whether the todo belongs to the list with the given id.
func (t Todo) InList(id int64) bool {
	return t.ListID != nil && *t.ListID == id
}

// ListByID returns the list with the given id, or nil.
func ListByID(lists []List, id int64) *List {
	for i := range lists {
		if lists[i].ID == id {
			return &lists[i]
		}
	}
	return nil
}

// ListsFromRows maps untyped rows (as delivered by a live query) to lists.
func ListsFromRows(columns []string, rows [][]any) ([]List, error) {
	idx := columnIndex(columns)
	lists := make([]List, 0, len(rows))
	for n, row := range rows {
		var l List
		var err error
		if l.ID, err = int64At(row, idx, "id"); err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		l.Name = stringAt(row, idx, "name")
		l.Avatar = stringAt(row, idx, "avatar")
		lists = append(lists, l)
	}
	return lists, nil
}

// TodosFromRows maps untyped rows (as delivered by a live query) to todos.
func TodosFromRows(columns []string, rows [][]any) ([]Todo, error) {
	idx := columnIndex(columns)
	todos := make([]Todo, 0, len(rows))
	for n, row := range rows {
		var t Todo
		var err error
		if t.ID, err = int64At(row, idx, "id"); err != nil {
			return nil, fmt.Errorf("row %d: %w", n, err)
		}
		t.Text = stringAt(row, idx, "text")
		t.Status = Status(stringAt(row, idx, "status"))
		if t.Status == "" {
			t.Status = StatusTodo
		}
		t.SearchVector = stringAt(row, idx, "search_vector")

		if i, ok := idx["list_id"]; ok && i < len(row) && row[i] != nil {
			id, err := toInt64(row[i])
			if err != nil {
				return nil, fmt.Errorf("row %d: list_id: %w", n, err)
			}
			t.ListID = &id
		}
		todos = append(todos, t)
	}
	return todos, nil
}

func columnIndex(columns []string) map[string]int {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		idx[strings.ToLower(c)] = i
	}
	return idx
}

func int64At(row []any, idx map[string]int, col string) (int64, error) {
	i, ok := idx[col]
	if !ok || i >= len(row) {
		return 0, fmt.Errorf("missing column %q", col)
	}
	v, err := toInt64(row[i])
	if err != nil {
		return 0, fmt.Errorf("%s: %w", col, err)
	}
	return v, nil
}

func stringAt(row []any, idx map[string]int, col string) string {
	i, ok := idx[col]
	if !ok || i >= len(row) || row[i] == nil {
		return ""
	}
	switch v := row[i].(type) {
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case string:
		return strconv.ParseInt(n, 10, 64)
	case []byte:
		return strconv.ParseInt(string(n), 10, 64)
	default:
		return 0, fmt.Errorf("unexpected type %T", v)
	}
}
