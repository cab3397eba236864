// Package view computes what a viewer sees: the visible, ordered todo set
// for the selected list and search, and the per-session state behind it.
package view

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

// AllTodosHeading is shown when no list is selected.
const AllTodosHeading = "All Todos"

// Sort returns a copy of todos ordered for display: todo before done, then
// newest (highest id) first.
func Sort(todos []schema.Todo) []schema.Todo {
	out := slices.Clone(todos)
	if out == nil {
		out = []schema.Todo{}
	}
	slices.SortFunc(out, compareTodos)
	return out
}

func compareTodos(a, b schema.Todo) int {
	if c := cmp.Compare(statusRank(a.Status), statusRank(b.Status)); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}

func statusRank(s schema.Status) int {
	if s == schema.StatusDone {
		return 1
	}
	return 0
}

// Filter returns the todos in the given list, or all of them when listID is
// nil. The input is not modified.
func Filter(todos []schema.Todo, listID *int64) []schema.Todo {
	if listID == nil {
		return slices.Clone(todos)
	}
	out := make([]schema.Todo, 0, len(todos))
	for _, t := range todos {
		if t.InList(*listID) {
			out = append(out, t)
		}
	}
	return out
}

// Visible returns the ordered todo set to display.
//
// While searching, the search results are shown as they are (the store
// already scoped them to the list). Otherwise the full set is narrowed to
// the selected list, if any.
func Visible(all []schema.Todo, listID *int64, results []schema.Todo, searching bool) []schema.Todo {
	if searching {
		return Sort(results)
	}
	return Sort(Filter(all, listID))
}

// Heading returns the selected list's name, or AllTodosHeading.
func Heading(lists []schema.List, listID *int64) string {
	if listID == nil {
		return AllTodosHeading
	}
	if l := schema.ListByID(lists, *listID); l != nil {
		return l.Name
	}
	return AllTodosHeading
}

// ParseListParam parses the listId navigation parameter. Absent, malformed
// or non-positive values select no list.
func ParseListParam(s string) *int64 {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return nil
	}
	return &id
}
