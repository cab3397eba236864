package live

import (
	"sync"

	"github.com/mitchellh/hashstructure/v2"
)

// Subscription is one live query. Its Updates channel receives the result
// set once on subscribe and again every time the set changes.
type Subscription struct {
	id     uint64
	hub    *Hub
	query  string
	args   []any
	tables map[string]bool

	mu       sync.Mutex
	current  ResultSet
	hash     uint64
	hashed   bool
	closed   bool
	updates  chan ResultSet
	done     chan struct{}
	closeOne sync.Once
}

func newSubscription(h *Hub, id uint64, query string, args []any, tables []string) *Subscription {
	deps := make(map[string]bool, len(tables))
	for _, t := range tables {
		deps[t] = true
	}
	return &Subscription{
		id:      id,
		hub:     h,
		query:   query,
		args:    args,
		tables:  deps,
		updates: make(chan ResultSet, 1),
		done:    make(chan struct{}),
	}
}

// Query returns the SQL text of the subscription.
func (s *Subscription) Query() string {
	return s.query
}

// Updates returns the channel of result sets. It is closed when the
// subscription is closed.
func (s *Subscription) Updates() <-chan ResultSet {
	return s.updates
}

// Current returns the newest result set, whether or not it has been read
// from Updates.
func (s *Subscription) Current() ResultSet {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Close stops the subscription and closes its Updates channel.
// It is safe to call more than once.
func (s *Subscription) Close() {
	s.closeOne.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.updates)
		close(s.done)
		s.mu.Unlock()

		s.hub.remove(s.id)
	})
}

// dependsOn reports whether a change to any of tables affects this query.
// Queries whose tables could not be determined depend on everything.
func (s *Subscription) dependsOn(tables []string) bool {
	if len(tables) == 0 || len(s.tables) == 0 {
		return true
	}
	for _, t := range tables {
		if s.tables[t] {
			return true
		}
	}
	return false
}

// deliver stores rs and publishes it unless it is identical to the last
// delivered set. It reports whether rs was published.
func (s *Subscription) deliver(rs ResultSet) bool {
	hash, err := hashstructure.Hash(rs, hashstructure.FormatV2, nil)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	if err == nil && s.hashed && hash == s.hash {
		return false
	}
	s.current = rs
	s.hash = hash
	s.hashed = err == nil

	// Latest wins: drop an unread set in favour of the new one.
	select {
	case <-s.updates:
	default:
	}
	s.updates <- rs
	return true
}
