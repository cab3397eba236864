package dashboard

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/coder/websocket"

	"github.com/mschirtzinger/todos/internal/view"
)

// client is one WebSocket connection and its live view session.
type client struct {
	conn    *websocket.Conn
	session *view.Session
	out     chan Message
	ctx     context.Context
}

// send queues msg for the client. A client too slow to drain its queue
// loses the message; snapshots are unaffected since they are latest-wins.
func (c *client) send(msg Message) {
	select {
	case c.out <- msg:
	case <-c.ctx.Done():
	default:
	}
}

// handleWebSocket upgrades the connection and runs a live view session for
// it until either side closes.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	listID := view.ParseListParam(r.URL.Query().Get("listId"))

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: s.config.OriginPatterns,
	})
	if err != nil {
		s.logger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	c := &client{
		conn: conn,
		session: view.NewSession(s.hub, s.store, listID, view.Config{
			Debounce: s.config.SearchDebounce,
			Logger:   s.logger,
		}),
		out: make(chan Message, 16),
		ctx: ctx,
	}

	s.wg.Add(1)
	defer s.wg.Done()

	s.clientsMu.Lock()
	s.clients[c] = true
	clientCount := len(s.clients)
	s.clientsMu.Unlock()
	s.logger.Printf("Client connected (total: %d)", clientCount)
	defer s.removeClient(c)

	go func() {
		if err := c.session.Run(ctx); err != nil {
			s.logger.Printf("Session ended: %v", err)
		}
		cancel()
	}()
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		s.readLoop(ctx, c)
		cancel()
	}()

	s.writeLoop(ctx, c)

	// Stop must not return while the session or a client write still uses
	// the store.
	cancel()
	<-c.session.Done()
	<-readDone
}

// writeLoop pushes snapshots and queued messages to the client.
func (s *Server) writeLoop(ctx context.Context, c *client) {
	for {
		var msg Message
		select {
		case <-ctx.Done():
			return
		case snap := <-c.session.Snapshots():
			m, err := newMessage(MessageTypeSnapshot, snap)
			if err != nil {
				s.logger.Printf("Failed to marshal snapshot: %v", err)
				continue
			}
			msg = m
		case msg = <-c.out:
		}

		data, err := json.Marshal(msg)
		if err != nil {
			s.logger.Printf("Failed to marshal message: %v", err)
			continue
		}

		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err = c.conn.Write(writeCtx, websocket.MessageText, data)
		cancel()
		if err != nil {
			s.logger.Printf("Failed to send to client: %v", err)
			return
		}
	}
}

// readLoop applies client messages until the connection closes.
func (s *Server) readLoop(ctx context.Context, c *client) {
	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.sendError(c, "", fmt.Errorf("invalid message: %w", err))
			continue
		}
		if err := s.apply(ctx, c, msg); err != nil {
			s.sendError(c, string(msg.Type), err)
		}
	}
}

// apply performs one client request. View requests steer the session;
// write requests go to the store, whose change notification then reaches
// every session through the live hub.
func (s *Server) apply(ctx context.Context, c *client, msg ClientMessage) error {
	switch msg.Type {
	case ClientSearch:
		c.session.SetSearch(msg.Query)
		return nil
	case ClientSelectList:
		c.session.SelectList(positive(msg.ListID))
		return nil
	case ClientCreateList:
		_, err := s.store.CreateList(ctx, msg.Name, msg.Avatar)
		return err
	case ClientUpdateList:
		return s.store.UpdateList(ctx, msg.ID, msg.Name, msg.Avatar)
	case ClientDeleteList:
		return s.store.DeleteList(ctx, msg.ID)
	case ClientCreateTodo:
		_, err := s.store.CreateTodo(ctx, msg.Text, positive(msg.ListID))
		return err
	case ClientUpdateTodo:
		return s.store.UpdateTodo(ctx, msg.ID, msg.Text, msg.ListID)
	case ClientSetStatus:
		return s.store.SetTodoStatus(ctx, msg.ID, msg.Status)
	case ClientToggleTodo:
		_, err := s.store.ToggleTodo(ctx, msg.ID)
		return err
	case ClientDeleteTodo:
		return s.store.DeleteTodo(ctx, msg.ID)
	default:
		return fmt.Errorf("unknown message type %q", msg.Type)
	}
}

func (s *Server) sendError(c *client, request string, err error) {
	msg, merr := newMessage(MessageTypeError, ErrorData{Request: request, Error: err.Error()})
	if merr != nil {
		s.logger.Printf("Failed to marshal error: %v", merr)
		return
	}
	c.send(msg)
}

// removeClient safely removes a client connection
func (s *Server) removeClient(c *client) {
	s.clientsMu.Lock()
	if _, exists := s.clients[c]; exists {
		delete(s.clients, c)
		clientCount := len(s.clients)
		s.clientsMu.Unlock()

		_ = c.conn.Close(websocket.StatusNormalClosure, "")
		s.logger.Printf("Client disconnected (total: %d)", clientCount)
	} else {
		s.clientsMu.Unlock()
	}
}

// positive maps nil and non-positive ids to nil.
func positive(id *int64) *int64 {
	if id == nil || *id <= 0 {
		return nil
	}
	return id
}
