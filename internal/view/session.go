package view

import (
	"context"
	"errors"
	"log"
	"os"
	"sync"
	"time"

	"github.com/mschirtzinger/todos/internal/search"
	"github.com/mschirtzinger/todos/internal/store/live"
	"github.com/mschirtzinger/todos/internal/store/schema"
)

// Live queries held by every session.
const (
	ListsQuery = "SELECT * FROM lists"
	TodosQuery = "SELECT * FROM todos"
)

// ErrSubscriptionClosed is returned by Run when a live query ends while the
// session is still running.
var ErrSubscriptionClosed = errors.New("live query closed")

// Searcher runs a parsed search, scoped to a list when listID is non-nil.
type Searcher interface {
	SearchTodos(ctx context.Context, q search.Query, listID *int64) ([]schema.Todo, error)
}

// Snapshot is everything a viewer renders at one moment.
type Snapshot struct {
	Heading string        `json:"heading"`
	ListID  *int64        `json:"list_id"`
	Search  string        `json:"search"`
	Pending bool          `json:"pending"`
	Lists   []schema.List `json:"lists"`
	Todos   []schema.Todo `json:"todos"`
	Total   int           `json:"total"`
	Error   string        `json:"error,omitempty"`
}

// Config holds session configuration.
type Config struct {
	// Debounce is the quiet period before typed search input takes effect.
	Debounce time.Duration

	// Logger for session messages.
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults for a session.
func DefaultConfig() Config {
	return Config{
		Debounce: search.DefaultDebounce,
		Logger:   log.New(os.Stderr, "[session] ", log.LstdFlags),
	}
}

// Session owns one viewer's ephemeral state: the selected list and the
// search. All state changes happen on the goroutine running Run; SetSearch
// and SelectList hand their work to it.
type Session struct {
	obs      live.Observable
	searcher Searcher
	config   Config

	debouncer *search.Debouncer
	cmds      chan func(ctx context.Context)
	done      chan struct{}
	snapshots chan Snapshot

	mu      sync.Mutex
	current Snapshot

	// Owned by the Run goroutine.
	listID    *int64
	raw       string
	effective string
	results   []schema.Todo
	lists     []schema.List
	todos     []schema.Todo
	lastErr   string
}

// NewSession creates a session showing the given list (nil for all todos).
// Nothing happens until Run is called.
func NewSession(obs live.Observable, searcher Searcher, listID *int64, config Config) *Session {
	if config.Logger == nil {
		config.Logger = DefaultConfig().Logger
	}
	return &Session{
		obs:       obs,
		searcher:  searcher,
		config:    config,
		debouncer: search.NewDebouncer(config.Debounce),
		cmds:      make(chan func(ctx context.Context)),
		done:      make(chan struct{}),
		snapshots: make(chan Snapshot, 1),
		listID:    listID,
		lists:     []schema.List{},
		todos:     []schema.Todo{},
	}
}

// Run subscribes to the live lists and todos and processes events until ctx
// is cancelled. It must be called exactly once.
func (s *Session) Run(ctx context.Context) error {
	defer close(s.done)
	defer s.debouncer.Stop()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	listsSub, err := s.obs.Subscribe(ctx, ListsQuery)
	if err != nil {
		return err
	}
	defer listsSub.Close()

	todosSub, err := s.obs.Subscribe(ctx, TodosQuery)
	if err != nil {
		return err
	}
	defer todosSub.Close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case rs, ok := <-listsSub.Updates():
			if !ok {
				return s.closedErr(ctx)
			}
			lists, err := schema.ListsFromRows(rs.Columns, rs.Rows)
			if err != nil {
				s.config.Logger.Printf("Failed to decode lists: %v", err)
				continue
			}
			s.lists = lists

		case rs, ok := <-todosSub.Updates():
			if !ok {
				return s.closedErr(ctx)
			}
			todos, err := schema.TodosFromRows(rs.Columns, rs.Rows)
			if err != nil {
				s.config.Logger.Printf("Failed to decode todos: %v", err)
				continue
			}
			s.todos = todos
			// Search results are a separate query; keep them in step.
			s.runSearch(ctx)

		case raw := <-s.debouncer.C():
			s.effective = raw
			s.runSearch(ctx)

		case fn := <-s.cmds:
			fn(ctx)
		}

		s.publish()
	}
}

func (s *Session) closedErr(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	return ErrSubscriptionClosed
}

// SetSearch records the raw search input. The input shows up in the next
// snapshot at once; the search itself runs after the debounce period.
func (s *Session) SetSearch(raw string) {
	s.do(func(context.Context) {
		s.raw = raw
		s.debouncer.Push(raw)
	})
}

// SelectList changes the list filter. A nil id shows all todos. An active
// search stays active and is re-run against the new list.
func (s *Session) SelectList(listID *int64) {
	s.do(func(ctx context.Context) {
		s.listID = listID
		s.runSearch(ctx)
	})
}

// do runs fn on the session goroutine. It returns without running fn if the
// session has stopped.
func (s *Session) do(fn func(ctx context.Context)) {
	select {
	case s.cmds <- fn:
	case <-s.done:
	}
}

// Snapshots returns the channel of snapshots. Delivery is latest-wins.
func (s *Session) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Current returns the most recent snapshot.
func (s *Session) Current() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Done is closed when Run returns.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

func (s *Session) searching() bool {
	return s.effective != ""
}

// runSearch re-runs the effective search, if any.
func (s *Session) runSearch(ctx context.Context) {
	s.lastErr = ""
	if !s.searching() {
		s.results = nil
		return
	}

	q := search.Parse(s.effective)
	results, err := s.searcher.SearchTodos(ctx, q, s.listID)
	if err != nil {
		s.config.Logger.Printf("Search %q failed: %v", s.effective, err)
		s.lastErr = err.Error()
		return
	}
	s.results = results
}

func (s *Session) publish() {
	snap := Snapshot{
		Heading: Heading(s.lists, s.listID),
		ListID:  s.listID,
		Search:  s.raw,
		Pending: s.debouncer.Pending() || (s.searching() && search.Parse(s.effective).Pending),
		Lists:   s.lists,
		Todos:   Visible(s.todos, s.listID, s.results, s.searching()),
		Total:   len(s.todos),
		Error:   s.lastErr,
	}

	s.mu.Lock()
	s.current = snap
	s.mu.Unlock()

	select {
	case <-s.snapshots:
	default:
	}
	s.snapshots <- snap
}
