package dashboard

import (
	"encoding/json"
	"time"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

// MessageType defines the type of a server-to-client message
type MessageType string

const (
	// MessageTypeSnapshot carries the session's current view.Snapshot
	MessageTypeSnapshot MessageType = "snapshot"

	// MessageTypeError reports a failed client request to that client only
	MessageTypeError MessageType = "error"

	// MessageTypeExternalChange announces that another process wrote to
	// the database
	MessageTypeExternalChange MessageType = "external_change"
)

// Message is a server-to-client WebSocket message
type Message struct {
	Type      MessageType     `json:"type"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
}

// ErrorData is the payload of an error message
type ErrorData struct {
	Request string `json:"request"`
	Error   string `json:"error"`
}

// ClientMessageType defines the type of a client-to-server message
type ClientMessageType string

const (
	ClientSearch     ClientMessageType = "search"
	ClientSelectList ClientMessageType = "select_list"
	ClientCreateList ClientMessageType = "create_list"
	ClientUpdateList ClientMessageType = "update_list"
	ClientDeleteList ClientMessageType = "delete_list"
	ClientCreateTodo ClientMessageType = "create_todo"
	ClientUpdateTodo ClientMessageType = "update_todo"
	ClientSetStatus  ClientMessageType = "set_status"
	ClientToggleTodo ClientMessageType = "toggle_todo"
	ClientDeleteTodo ClientMessageType = "delete_todo"
)

// ClientMessage is a client-to-server WebSocket message. Which fields are
// read depends on Type.
type ClientMessage struct {
	Type   ClientMessageType `json:"type"`
	Query  string            `json:"query,omitempty"`
	ID     int64             `json:"id,omitempty"`
	ListID *int64            `json:"list_id,omitempty"`
	Name   string            `json:"name,omitempty"`
	Avatar string            `json:"avatar,omitempty"`
	Text   string            `json:"text,omitempty"`
	Status schema.Status     `json:"status,omitempty"`
}

// newMessage builds a timestamped message with data marshalled as JSON.
func newMessage(typ MessageType, data interface{}) (Message, error) {
	msg := Message{Type: typ, Timestamp: time.Now()}
	if data == nil {
		return msg, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return msg, err
	}
	msg.Data = raw
	return msg, nil
}

// NewExternalChangeMessage builds the message broadcast after another process
// has written to the database.
func NewExternalChangeMessage() (Message, error) {
	return newMessage(MessageTypeExternalChange, nil)
}
