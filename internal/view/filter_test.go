package view

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

func ids(todos []schema.Todo) []int64 {
	out := make([]int64, len(todos))
	for i, t := range todos {
		out[i] = t.ID
	}
	return out
}

func ptr(v int64) *int64 {
	return &v
}

// TestSort_StatusThenNewest tests the display order
func TestSort_StatusThenNewest(t *testing.T) {
	todos := []schema.Todo{
		{ID: 1, Status: schema.StatusDone},
		{ID: 2, Status: schema.StatusTodo},
		{ID: 3, Status: schema.StatusTodo},
	}

	got := Sort(todos)
	if diff := cmp.Diff([]int64{3, 2, 1}, ids(got)); diff != "" {
		t.Errorf("Sort() mismatch (-want +got):\n%s", diff)
	}

	// Input untouched.
	if diff := cmp.Diff([]int64{1, 2, 3}, ids(todos)); diff != "" {
		t.Errorf("Sort() modified its input (-want +got):\n%s", diff)
	}

	// Stable under repeated evaluation.
	if diff := cmp.Diff(got, Sort(got)); diff != "" {
		t.Errorf("Sort() not idempotent (-first +second):\n%s", diff)
	}
}

// TestSort_Empty tests that empty input yields an empty, non-nil slice
func TestSort_Empty(t *testing.T) {
	got := Sort(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("Sort(nil) = %#v, want empty slice", got)
	}
}

// TestVisible tests the three visibility paths
func TestVisible(t *testing.T) {
	all := []schema.Todo{
		{ID: 1, Status: schema.StatusTodo, ListID: ptr(10)},
		{ID: 2, Status: schema.StatusDone, ListID: ptr(10)},
		{ID: 3, Status: schema.StatusTodo, ListID: ptr(20)},
		{ID: 4, Status: schema.StatusTodo},
	}
	results := []schema.Todo{all[1], all[0]}

	tests := []struct {
		name      string
		listID    *int64
		results   []schema.Todo
		searching bool
		want      []int64
	}{
		{"all", nil, nil, false, []int64{4, 3, 1, 2}},
		{"list filter", ptr(10), nil, false, []int64{1, 2}},
		{"unknown list", ptr(99), nil, false, []int64{}},
		{"search results", ptr(10), results, true, []int64{1, 2}},
		{"search with no results", nil, []schema.Todo{}, true, []int64{}},
		{"stale results ignored when idle", nil, results, false, []int64{4, 3, 1, 2}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Visible(all, tt.listID, tt.results, tt.searching)
			if diff := cmp.Diff(tt.want, ids(got)); diff != "" {
				t.Errorf("Visible() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

// TestHeading tests the list heading and its fallback
func TestHeading(t *testing.T) {
	lists := []schema.List{{ID: 1, Name: "Home"}}

	if got := Heading(lists, nil); got != AllTodosHeading {
		t.Errorf("Heading(nil) = %q, want %q", got, AllTodosHeading)
	}
	if got := Heading(lists, ptr(1)); got != "Home" {
		t.Errorf("Heading(1) = %q, want Home", got)
	}
	if got := Heading(lists, ptr(2)); got != AllTodosHeading {
		t.Errorf("Heading(2) = %q, want %q", got, AllTodosHeading)
	}
}

// TestParseListParam tests the listId navigation parameter
func TestParseListParam(t *testing.T) {
	tests := []struct {
		in   string
		want *int64
	}{
		{"", nil},
		{"3", ptr(3)},
		{" 42 ", ptr(42)},
		{"0", nil},
		{"-1", nil},
		{"abc", nil},
	}
	for _, tt := range tests {
		if diff := cmp.Diff(tt.want, ParseListParam(tt.in)); diff != "" {
			t.Errorf("ParseListParam(%q) mismatch (-want +got):\n%s", tt.in, diff)
		}
	}
}
