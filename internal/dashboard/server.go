// Package dashboard serves the todo store over localhost HTTP and WebSocket.
//
// The REST routes read and write lists and todos. The /ws endpoint gives each
// connection its own live view session: the server pushes a snapshot message
// whenever the visible set changes, and the client steers the session with
// search and select_list messages.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/mschirtzinger/todos/internal/search"
	"github.com/mschirtzinger/todos/internal/store/live"
	"github.com/mschirtzinger/todos/internal/store/schema"
	"github.com/mschirtzinger/todos/internal/view"
)

// Store is the todo store the dashboard serves.
type Store interface {
	view.Searcher

	Ping(ctx context.Context) error

	ListLists(ctx context.Context) ([]schema.List, error)
	CreateList(ctx context.Context, name, avatar string) (*schema.List, error)
	UpdateList(ctx context.Context, id int64, name, avatar string) error
	DeleteList(ctx context.Context, id int64) error

	ListTodos(ctx context.Context, listID *int64) ([]schema.Todo, error)
	CreateTodo(ctx context.Context, text string, listID *int64) (*schema.Todo, error)
	UpdateTodo(ctx context.Context, id int64, text string, listID *int64) error
	SetTodoStatus(ctx context.Context, id int64, status schema.Status) error
	ToggleTodo(ctx context.Context, id int64) (schema.Status, error)
	DeleteTodo(ctx context.Context, id int64) error
}

// Server manages the HTTP API and WebSocket sessions.
type Server struct {
	addr     string
	listener net.Listener
	server   *http.Server
	router   http.Handler

	store  Store
	hub    live.Observable
	config *Config

	// WebSocket client management
	clients   map[*client]bool
	clientsMu sync.RWMutex

	// Message broadcasting
	broadcast chan Message

	// Lifecycle management
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *log.Logger
}

// Config holds server configuration
type Config struct {
	// Port to listen on (default: 8080). 0 picks a free port.
	Port int

	// Host to bind (default: 127.0.0.1)
	Host string

	// SearchDebounce is the quiet period for WebSocket search input.
	SearchDebounce time.Duration

	// OriginPatterns are the browser origins allowed to open WebSockets
	// and make CORS requests.
	OriginPatterns []string

	// Logger for server activity (default: stderr logger)
	Logger *log.Logger
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		Host:           "127.0.0.1",
		SearchDebounce: search.DefaultDebounce,
		OriginPatterns: []string{"localhost:*", "127.0.0.1:*"},
		Logger:         log.New(os.Stderr, "[dashboard] ", log.LstdFlags),
	}
}

// NewServer creates a dashboard server over store, with live views fed by hub.
func NewServer(store Store, hub live.Observable, config *Config) *Server {
	defaults := DefaultConfig()
	if config == nil {
		config = defaults
	}
	if config.Logger == nil {
		config.Logger = defaults.Logger
	}
	if config.Host == "" {
		config.Host = defaults.Host
	}
	if len(config.OriginPatterns) == 0 {
		config.OriginPatterns = defaults.OriginPatterns
	}

	ctx, cancel := context.WithCancel(context.Background())

	s := &Server{
		addr:      net.JoinHostPort(config.Host, fmt.Sprint(config.Port)),
		store:     store,
		hub:       hub,
		config:    config,
		clients:   make(map[*client]bool),
		broadcast: make(chan Message, 100),
		ctx:       ctx,
		cancel:    cancel,
		logger:    config.Logger,
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler serving every route.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start begins the HTTP server and the broadcast loop.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:     s.router,
		ReadTimeout: 10 * time.Second,
	}

	s.wg.Add(1)
	go s.broadcastLoop()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.logger.Printf("Dashboard server listening on %s", ln.Addr())
		if err := s.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.Printf("Server error: %v", err)
		}
	}()

	return nil
}

// Stop gracefully shuts down the server
func (s *Server) Stop() error {
	s.logger.Println("Stopping dashboard server")

	// Ends every WebSocket session and the broadcast loop.
	s.cancel()

	s.clientsMu.Lock()
	for c := range s.clients {
		_ = c.conn.Close(websocket.StatusGoingAway, "Server shutting down")
		delete(s.clients, c)
	}
	s.clientsMu.Unlock()

	if s.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
	}

	s.wg.Wait()

	s.logger.Println("Dashboard server stopped")
	return nil
}

// Broadcast sends a message to all connected clients
func (s *Server) Broadcast(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.ctx.Done():
		return
	default:
		s.logger.Println("Warning: broadcast channel full, dropping message")
	}
}

// Refresher re-runs live queries and reports how many result sets moved.
// *live.Hub satisfies it.
type Refresher interface {
	Refresh(ctx context.Context, tables ...string) (int, error)
}

// ExternalRefresh returns a refresh function for a database file watcher.
// It re-runs every live query through r and broadcasts an external_change
// message only when some view received a new result set. Writes made
// through this server have already reached every view, so they produce no
// message.
func (s *Server) ExternalRefresh(r Refresher) func(context.Context) error {
	return func(ctx context.Context) error {
		changed, err := r.Refresh(ctx)
		if changed > 0 {
			msg, merr := NewExternalChangeMessage()
			if merr != nil {
				return errors.Join(err, merr)
			}
			s.Broadcast(msg)
		}
		return err
	}
}

// broadcastLoop handles message broadcasting to all clients
func (s *Server) broadcastLoop() {
	defer s.wg.Done()

	for {
		select {
		case <-s.ctx.Done():
			return

		case msg := <-s.broadcast:
			s.clientsMu.RLock()
			clients := make([]*client, 0, len(s.clients))
			for c := range s.clients {
				clients = append(clients, c)
			}
			s.clientsMu.RUnlock()

			for _, c := range clients {
				c.send(msg)
			}
		}
	}
}

// handleHealth returns store and server health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.Printf("Health check failed: %v", err)
		status, code = "down", http.StatusServiceUnavailable
	}

	respondWithJSON(w, code, map[string]interface{}{
		"status":  status,
		"clients": s.ClientCount(),
	})
}

// handleRoot returns basic server information
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = fmt.Fprintf(w, `<!DOCTYPE html>
<html>
<head>
    <title>Todos</title>
</head>
<body>
    <h1>Todos</h1>
    <p>Live view: <code>ws://%s/ws?listId=N</code></p>
    <p>Lists: <a href="/lists">/lists</a>, todos: <a href="/todos">/todos</a></p>
    <p>Health check: <a href="/health">/health</a></p>
</body>
</html>`, r.Host)
}

// GetAddr returns the server's listening address
func (s *Server) GetAddr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}

// ClientCount returns the current number of connected clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload interface{}) {
	response, err := json.Marshal(payload)
	if err != nil {
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(response)
}
