package view

import (
	"context"
	"fmt"

	"github.com/mschirtzinger/todos/internal/search"
	"github.com/mschirtzinger/todos/internal/store/schema"
)

// Source is the read side of the store a one-shot view is loaded from.
type Source interface {
	Searcher
	ListLists(ctx context.Context) ([]schema.List, error)
	ListTodos(ctx context.Context, listID *int64) ([]schema.Todo, error)
}

// Load computes a single snapshot for the given list and settled search
// input, without a session. It is what a session would publish once its
// debounce period had passed.
func Load(ctx context.Context, src Source, listID *int64, raw string) (Snapshot, error) {
	lists, err := src.ListLists(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load lists: %w", err)
	}
	all, err := src.ListTodos(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("failed to load todos: %w", err)
	}

	q := search.Parse(raw)
	var results []schema.Todo
	if raw != "" {
		results, err = src.SearchTodos(ctx, q, listID)
		if err != nil {
			return Snapshot{}, fmt.Errorf("failed to search todos: %w", err)
		}
	}

	return Snapshot{
		Heading: Heading(lists, listID),
		ListID:  listID,
		Search:  raw,
		Pending: raw != "" && q.Pending,
		Lists:   lists,
		Todos:   Visible(all, listID, results, raw != ""),
		Total:   len(all),
	}, nil
}
