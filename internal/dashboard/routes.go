package dashboard

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/store/schema"
	"github.com/mschirtzinger/todos/internal/view"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.logger, NoColor: true}))
	r.Use(middleware.Recoverer)

	origins := make([]string, 0, 2*len(s.config.OriginPatterns))
	for _, p := range s.config.OriginPatterns {
		origins = append(origins, "http://"+p, "https://"+p)
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/lists", func(r chi.Router) {
		r.Get("/", s.listListsHandler)
		r.Post("/", s.createListHandler)
		r.Put("/{id}", s.updateListHandler)
		r.Delete("/{id}", s.deleteListHandler)
	})

	r.Route("/todos", func(r chi.Router) {
		r.Get("/", s.visibleTodosHandler)
		r.Post("/", s.createTodoHandler)
		r.Put("/{id}", s.updateTodoHandler)
		r.Put("/{id}/status", s.setStatusHandler)
		r.Post("/{id}/toggle", s.toggleTodoHandler)
		r.Delete("/{id}", s.deleteTodoHandler)
	})

	return r
}

type listRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

// todoRequest carries a todo's text and list. An absent or null list_id
// leaves the list unchanged on update; 0 detaches the todo.
type todoRequest struct {
	Text   string `json:"text"`
	ListID *int64 `json:"list_id"`
}

type statusRequest struct {
	Status schema.Status `json:"status"`
}

func (s *Server) listListsHandler(w http.ResponseWriter, r *http.Request) {
	lists, err := s.store.ListLists(r.Context())
	if err != nil {
		s.respondWithStoreError(w, "list lists", err)
		return
	}
	respondWithJSON(w, http.StatusOK, lists)
}

func (s *Server) createListHandler(w http.ResponseWriter, r *http.Request) {
	var req listRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	list, err := s.store.CreateList(r.Context(), req.Name, req.Avatar)
	if err != nil {
		s.respondWithStoreError(w, "create list", err)
		return
	}
	if list == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusCreated, list)
}

func (s *Server) updateListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req listRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.store.UpdateList(r.Context(), id, req.Name, req.Avatar); err != nil {
		s.respondWithStoreError(w, "update list", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) deleteListHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteList(r.Context(), id); err != nil {
		s.respondWithStoreError(w, "delete list", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// visibleTodosHandler answers GET /todos?listId=&q= with the same snapshot a
// live session would show for that list and settled search.
func (s *Server) visibleTodosHandler(w http.ResponseWriter, r *http.Request) {
	listID := view.ParseListParam(r.URL.Query().Get("listId"))

	snap, err := view.Load(r.Context(), s.store, listID, r.URL.Query().Get("q"))
	if err != nil {
		s.respondWithStoreError(w, "load todos", err)
		return
	}
	respondWithJSON(w, http.StatusOK, snap)
}

func (s *Server) createTodoHandler(w http.ResponseWriter, r *http.Request) {
	var req todoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	todo, err := s.store.CreateTodo(r.Context(), req.Text, positive(req.ListID))
	if err != nil {
		s.respondWithStoreError(w, "create todo", err)
		return
	}
	if todo == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	respondWithJSON(w, http.StatusCreated, todo)
}

func (s *Server) updateTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req todoRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.store.UpdateTodo(r.Context(), id, req.Text, req.ListID); err != nil {
		s.respondWithStoreError(w, "update todo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) setStatusHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if err := s.store.SetTodoStatus(r.Context(), id, req.Status); err != nil {
		s.respondWithStoreError(w, "set status", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) toggleTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	status, err := s.store.ToggleTodo(r.Context(), id)
	if err != nil {
		s.respondWithStoreError(w, "toggle todo", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"id": id, "status": status})
}

func (s *Server) deleteTodoHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteTodo(r.Context(), id); err != nil {
		s.respondWithStoreError(w, "delete todo", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// respondWithStoreError maps store errors to status codes.
func (s *Server) respondWithStoreError(w http.ResponseWriter, action string, err error) {
	switch {
	case errors.Is(err, db.ErrUnknownList):
		respondWithError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, db.ErrNotFound):
		respondWithError(w, http.StatusNotFound, err.Error())
	default:
		s.logger.Printf("Failed to %s: %v", action, err)
		respondWithError(w, http.StatusInternalServerError, "Failed to "+action)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondWithError(w, http.StatusBadRequest, "Invalid ID provided")
		return 0, false
	}
	return id, true
}

// decodeJSON decodes the request body into dst, answering 400 on failure.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()

	err := decoder.Decode(dst)
	if err == nil {
		return true
	}

	var syntaxError *json.SyntaxError
	var unmarshalTypeError *json.UnmarshalTypeError
	switch {
	case errors.As(err, &syntaxError):
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Request body contains badly-formed JSON (at position %d)", syntaxError.Offset))
	case errors.Is(err, io.ErrUnexpectedEOF):
		respondWithError(w, http.StatusBadRequest, "Request body contains badly-formed JSON")
	case errors.As(err, &unmarshalTypeError):
		respondWithError(w, http.StatusBadRequest,
			fmt.Sprintf("Request body contains an invalid value for the %q field", unmarshalTypeError.Field))
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		respondWithError(w, http.StatusBadRequest,
			"Request body contains unknown field "+strings.TrimPrefix(err.Error(), "json: unknown field "))
	case errors.Is(err, io.EOF):
		respondWithError(w, http.StatusBadRequest, "Request body must not be empty")
	default:
		respondWithError(w, http.StatusBadRequest, "Invalid request body")
	}
	return false
}
