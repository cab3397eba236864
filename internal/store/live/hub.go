// Package live provides observable queries over the todo store.
//
// A Hub runs SQL queries on behalf of subscribers and re-delivers a query's
// result set whenever a table it reads from changes. Writers report changes
// through Notify (or HandleChange, which matches the store's change-listener
// signature); callers never refresh anything by hand.
//
// Architecture:
//   - Subscribe runs the query once and returns a Subscription
//   - Notify re-runs every subscription that reads a touched table
//   - Refresh does the same and counts the subscriptions whose set moved
//   - Result sets are fingerprinted; unchanged sets are not re-delivered
//   - Delivery is latest-wins, so a slow reader never sees a stale set
package live

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"regexp"
	"strings"
	"sync"
)

// Querier runs a read query. *sql.DB satisfies it.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Observable is the capability the view layer depends on: a query whose
// result set keeps arriving as the data changes.
type Observable interface {
	Subscribe(ctx context.Context, query string, args ...any) (*Subscription, error)
}

// ErrClosed is returned when subscribing to a closed hub.
var ErrClosed = errors.New("live: hub closed")

// Hub tracks live subscriptions and refreshes them on change.
type Hub struct {
	q      Querier
	logger *log.Logger

	mu     sync.Mutex
	subs   map[uint64]*Subscription
	nextID uint64
	closed bool

	// refreshMu serializes refresh passes so two concurrent writes cannot
	// deliver result sets out of order.
	refreshMu sync.Mutex
}

// NewHub creates a hub that runs queries through q.
// If logger is nil, a default logger writing to stderr is used.
func NewHub(q Querier, logger *log.Logger) *Hub {
	if logger == nil {
		logger = log.New(os.Stderr, "[live] ", log.LstdFlags)
	}
	return &Hub{
		q:      q,
		logger: logger,
		subs:   make(map[uint64]*Subscription),
	}
}

// Subscribe runs query with args and returns a subscription that is kept
// current until ctx is cancelled or Close is called.
//
// Example:
//
//	sub, err := hub.Subscribe(ctx, "SELECT * FROM todos")
//	if err != nil {
//	    return err
//	}
//	for rs := range sub.Updates() {
//	    render(rs)
//	}
func (h *Hub) Subscribe(ctx context.Context, query string, args ...any) (*Subscription, error) {
	// Holding refreshMu keeps a concurrent Notify from slipping between the
	// initial run and registration.
	h.refreshMu.Lock()
	rs, err := h.run(ctx, query, args)
	if err != nil {
		h.refreshMu.Unlock()
		return nil, fmt.Errorf("failed to run live query: %w", err)
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		h.refreshMu.Unlock()
		return nil, ErrClosed
	}
	h.nextID++
	sub := newSubscription(h, h.nextID, query, args, TablesOf(query))
	h.subs[sub.id] = sub
	h.mu.Unlock()

	sub.deliver(rs)
	h.refreshMu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			sub.Close()
		case <-sub.done:
		}
	}()

	return sub, nil
}

// Notify re-runs every subscription that reads from one of tables. With no
// tables, every subscription is refreshed. Notify returns after all affected
// subscriptions hold the new result set.
func (h *Hub) Notify(ctx context.Context, tables ...string) error {
	_, err := h.Refresh(ctx, tables...)
	return err
}

// Refresh is Notify that also reports how many subscriptions received a
// different result set. Zero means the database already matched what every
// subscriber holds.
func (h *Hub) Refresh(ctx context.Context, tables ...string) (int, error) {
	h.refreshMu.Lock()
	defer h.refreshMu.Unlock()

	var errs []error
	changed := 0
	for _, sub := range h.affected(tables) {
		rs, err := h.run(ctx, sub.query, sub.args)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to refresh %q: %w", sub.query, err))
			continue
		}
		if sub.deliver(rs) {
			changed++
		}
	}
	return changed, errors.Join(errs...)
}

// RefreshAll re-runs every subscription.
func (h *Hub) RefreshAll(ctx context.Context) error {
	return h.Notify(ctx)
}

// HandleChange is a change listener suitable for db.OnChange. Refresh
// failures are logged; the write that triggered them already succeeded.
func (h *Hub) HandleChange(ctx context.Context, tables ...string) {
	if err := h.Notify(ctx, tables...); err != nil {
		h.logger.Printf("Refresh after change to %v failed: %v", tables, err)
	}
}

// Len returns the number of active subscriptions.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

// Close closes every subscription. Later Subscribe calls fail with ErrClosed.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		subs = append(subs, sub)
	}
	h.mu.Unlock()

	for _, sub := range subs {
		sub.Close()
	}
}

func (h *Hub) affected(tables []string) []*Subscription {
	h.mu.Lock()
	defer h.mu.Unlock()

	subs := make([]*Subscription, 0, len(h.subs))
	for _, sub := range h.subs {
		if sub.dependsOn(tables) {
			subs = append(subs, sub)
		}
	}
	return subs
}

func (h *Hub) remove(id uint64) {
	h.mu.Lock()
	delete(h.subs, id)
	h.mu.Unlock()
}

func (h *Hub) run(ctx context.Context, query string, args []any) (ResultSet, error) {
	rows, err := h.q.QueryContext(ctx, query, args...)
	if err != nil {
		return ResultSet{}, err
	}
	defer rows.Close()
	return Collect(rows)
}

var tableRef = regexp.MustCompile("(?i)\\b(?:from|join)\\s+[\"`]?([a-z_][a-z0-9_]*)")

// TablesOf returns the lower-cased table names a query reads from, as named
// in its FROM and JOIN clauses.
func TablesOf(query string) []string {
	var tables []string
	seen := make(map[string]bool)
	for _, m := range tableRef.FindAllStringSubmatch(query, -1) {
		name := strings.ToLower(m[1])
		if !seen[name] {
			seen[name] = true
			tables = append(tables, name)
		}
	}
	return tables
}
