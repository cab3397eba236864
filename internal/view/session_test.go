package view

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/mschirtzinger/todos/internal/search"
	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/store/live"
	"github.com/mschirtzinger/todos/internal/store/schema"
)

// testEnv wires a store to a live hub the way the application does
func testEnv(t *testing.T) (*db.DB, *live.Hub) {
	t.Helper()

	quiet := log.New(io.Discard, "", 0)
	store, err := db.Open(filepath.Join(t.TempDir(), "todos.db"), db.WithLogger(quiet))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.InitSchema(); err != nil {
		t.Fatalf("InitSchema() failed: %v", err)
	}

	hub := live.NewHub(store.RawDB(), quiet)
	t.Cleanup(hub.Close)
	store.OnChange(hub.HandleChange)
	return store, hub
}

// startSession runs a session until the test ends
func startSession(t *testing.T, store *db.DB, hub *live.Hub, listID *int64) *Session {
	t.Helper()

	sess := NewSession(hub, store, listID, Config{
		Debounce: 20 * time.Millisecond,
		Logger:   log.New(io.Discard, "", 0),
	})

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- sess.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		if err := <-errc; err != nil {
			t.Errorf("Run() returned %v", err)
		}
	})
	return sess
}

// waitSnapshot reads snapshots until cond holds
func waitSnapshot(t *testing.T, sess *Session, cond func(Snapshot) bool) Snapshot {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case snap := <-sess.Snapshots():
			if cond(snap) {
				return snap
			}
		case <-timeout:
			t.Fatalf("no matching snapshot; last = %+v", sess.Current())
			return Snapshot{}
		}
	}
}

// countingSearcher records every query that reaches the store
type countingSearcher struct {
	Searcher

	mu   sync.Mutex
	seen []string
}

func (c *countingSearcher) SearchTodos(ctx context.Context, q search.Query, listID *int64) ([]schema.Todo, error) {
	c.mu.Lock()
	c.seen = append(c.seen, q.String())
	c.mu.Unlock()
	return c.Searcher.SearchTodos(ctx, q, listID)
}

func (c *countingSearcher) queries() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.seen...)
}

func texts(todos []schema.Todo) []string {
	out := make([]string, len(todos))
	for i, t := range todos {
		out[i] = t.Text
	}
	return out
}

// TestSession_ListScenario tests list filtering, ordering and cascade through live updates
func TestSession_ListScenario(t *testing.T) {
	store, hub := testEnv(t)
	ctx := context.Background()

	home, err := store.CreateList(ctx, "Home", "")
	if err != nil {
		t.Fatalf("CreateList() failed: %v", err)
	}
	if home.Avatar != schema.DefaultAvatar {
		t.Errorf("Avatar = %q, want placeholder", home.Avatar)
	}
	clean, err := store.CreateTodo(ctx, "Clean", &home.ID)
	if err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}

	filtered := startSession(t, store, hub, &home.ID)
	all := startSession(t, store, hub, nil)

	waitSnapshot(t, filtered, func(s Snapshot) bool {
		return s.Heading == "Home" && cmp.Equal(texts(s.Todos), []string{"Clean"})
	})
	waitSnapshot(t, all, func(s Snapshot) bool {
		return s.Heading == AllTodosHeading && cmp.Equal(texts(s.Todos), []string{"Clean"})
	})

	if err := store.SetTodoStatus(ctx, clean.ID, schema.StatusDone); err != nil {
		t.Fatalf("SetTodoStatus() failed: %v", err)
	}
	if _, err := store.CreateTodo(ctx, "Dust", &home.ID); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}
	waitSnapshot(t, filtered, func(s Snapshot) bool {
		return cmp.Equal(texts(s.Todos), []string{"Dust", "Clean"})
	})

	if err := store.DeleteList(ctx, home.ID); err != nil {
		t.Fatalf("DeleteList() failed: %v", err)
	}
	snap := waitSnapshot(t, all, func(s Snapshot) bool { return s.Total == 0 })
	if len(snap.Todos) != 0 || len(snap.Lists) != 0 {
		t.Errorf("after delete: %d todos, %d lists, want none", len(snap.Todos), len(snap.Lists))
	}
	waitSnapshot(t, filtered, func(s Snapshot) bool {
		return s.Heading == AllTodosHeading && len(s.Todos) == 0
	})
}

// TestSession_Search tests debounced search, pending input and clearing
func TestSession_Search(t *testing.T) {
	store, hub := testEnv(t)
	ctx := context.Background()

	if _, err := store.CreateTodo(ctx, "Buy milk", nil); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}
	if _, err := store.CreateTodo(ctx, "Walk dog", nil); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}

	sess := startSession(t, store, hub, nil)
	waitSnapshot(t, sess, func(s Snapshot) bool { return len(s.Todos) == 2 })

	sess.SetSearch("buy")
	snap := waitSnapshot(t, sess, func(s Snapshot) bool { return !s.Pending && len(s.Todos) == 1 })
	if diff := cmp.Diff([]string{"Buy milk"}, texts(snap.Todos)); diff != "" {
		t.Errorf("search results mismatch (-want +got):\n%s", diff)
	}
	if snap.Total != 2 {
		t.Errorf("Total = %d, want 2", snap.Total)
	}

	// A new matching todo shows up in the running search.
	if _, err := store.CreateTodo(ctx, "Buy bread", nil); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}
	waitSnapshot(t, sess, func(s Snapshot) bool {
		return cmp.Equal(texts(s.Todos), []string{"Buy bread", "Buy milk"})
	})

	// Trailing space: nothing until the next word arrives.
	sess.SetSearch("buy ")
	snap = waitSnapshot(t, sess, func(s Snapshot) bool { return s.Search == "buy " && len(s.Todos) == 0 })
	if !snap.Pending {
		t.Error("Pending = false for trailing-space search")
	}

	sess.SetSearch("")
	waitSnapshot(t, sess, func(s Snapshot) bool { return !s.Pending && len(s.Todos) == 3 })
}

// TestSession_SearchScopedToList tests that search and list filter compose
func TestSession_SearchScopedToList(t *testing.T) {
	store, hub := testEnv(t)
	ctx := context.Background()

	groceries, _ := store.CreateList(ctx, "Groceries", "")
	if _, err := store.CreateTodo(ctx, "Buy milk", &groceries.ID); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}
	if _, err := store.CreateTodo(ctx, "Buy stamps", nil); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}

	sess := startSession(t, store, hub, nil)
	sess.SetSearch("buy")
	waitSnapshot(t, sess, func(s Snapshot) bool { return !s.Pending && len(s.Todos) == 2 })

	sess.SelectList(&groceries.ID)
	snap := waitSnapshot(t, sess, func(s Snapshot) bool { return s.ListID != nil && len(s.Todos) == 1 })
	if diff := cmp.Diff([]string{"Buy milk"}, texts(snap.Todos)); diff != "" {
		t.Errorf("scoped search mismatch (-want +got):\n%s", diff)
	}
	if snap.Search != "buy" {
		t.Errorf("Search = %q after selecting a list, want it kept", snap.Search)
	}

	sess.SelectList(nil)
	waitSnapshot(t, sess, func(s Snapshot) bool { return s.ListID == nil && len(s.Todos) == 2 })
}

// TestSession_DebounceSupersedes tests that only the last keystroke is searched
func TestSession_DebounceSupersedes(t *testing.T) {
	store, hub := testEnv(t)
	ctx := context.Background()

	if _, err := store.CreateTodo(ctx, "Buy milk", nil); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}
	if _, err := store.CreateTodo(ctx, "Walk dog", nil); err != nil {
		t.Fatalf("CreateTodo() failed: %v", err)
	}

	searches := &countingSearcher{Searcher: store}
	sess := NewSession(hub, searches, nil, Config{
		Debounce: 50 * time.Millisecond,
		Logger:   log.New(io.Discard, "", 0),
	})
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go sess.Run(runCtx)

	waitSnapshot(t, sess, func(s Snapshot) bool { return len(s.Todos) == 2 })
	for _, raw := range []string{"w", "wa", "wal", "walk"} {
		sess.SetSearch(raw)
	}
	snap := waitSnapshot(t, sess, func(s Snapshot) bool { return !s.Pending && len(s.Todos) == 1 })
	if diff := cmp.Diff([]string{"Walk dog"}, texts(snap.Todos)); diff != "" {
		t.Errorf("search results mismatch (-want +got):\n%s", diff)
	}
	if got := searches.queries(); !cmp.Equal(got, []string{"walk:*"}) {
		t.Errorf("store searched for %v, want only [walk:*]", got)
	}
}
