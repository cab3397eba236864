// Package migrate exports and imports lists and todos.
//
// Two formats are supported:
//   - JSONL: one record per line, lists first, each tagged with "kind"
//   - YAML: a single document with "lists" and "todos" sequences
//
// Ids are not preserved on import. Lists receive fresh ids and todos are
// re-pointed at the new list ids.
package migrate

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/mschirtzinger/todos/internal/store/schema"
)

// Format is an export/import encoding.
type Format string

const (
	// FormatJSONL writes one JSON record per line.
	FormatJSONL Format = "jsonl"
	// FormatYAML writes one YAML document.
	FormatYAML Format = "yaml"
)

// ParseFormat parses a format name.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jsonl", "json":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unknown format %q (want jsonl or yaml)", s)
	}
}

// FormatFromPath guesses the format from a file extension, defaulting to JSONL.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSONL
	}
}

// Store is the subset of the todo store used by export and import.
type Store interface {
	ListLists(ctx context.Context) ([]schema.List, error)
	ListTodos(ctx context.Context, listID *int64) ([]schema.Todo, error)
	CreateList(ctx context.Context, name, avatar string) (*schema.List, error)
	CreateTodo(ctx context.Context, text string, listID *int64) (*schema.Todo, error)
	SetTodoStatus(ctx context.Context, id int64, status schema.Status) error
	DeleteList(ctx context.Context, id int64) error
	DeleteTodo(ctx context.Context, id int64) error
}

// Result contains statistics about an export or import.
type Result struct {
	Lists   int
	Todos   int
	Skipped int
	Errors  []string
}

// record is one JSONL line.
type record struct {
	Kind   string        `json:"kind"`
	ID     int64         `json:"id"`
	Name   string        `json:"name,omitempty"`
	Avatar string        `json:"avatar,omitempty"`
	Text   string        `json:"text,omitempty"`
	Status schema.Status `json:"status,omitempty"`
	ListID *int64        `json:"list_id,omitempty"`
}

const (
	kindList = "list"
	kindTodo = "todo"
)

// document is the YAML layout.
type document struct {
	Lists []schema.List `yaml:"lists"`
	Todos []schema.Todo `yaml:"todos"`
}

// Export writes every list and todo to w.
func Export(ctx context.Context, store Store, w io.Writer, format Format) (*Result, error) {
	lists, err := store.ListLists(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read lists: %w", err)
	}
	todos, err := store.ListTodos(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read todos: %w", err)
	}

	switch format {
	case FormatJSONL:
		err = writeJSONL(w, lists, todos)
	case FormatYAML:
		err = writeYAML(w, lists, todos)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	return &Result{Lists: len(lists), Todos: len(todos)}, nil
}

func writeJSONL(w io.Writer, lists []schema.List, todos []schema.Todo) error {
	enc := json.NewEncoder(w)
	for _, l := range lists {
		if err := enc.Encode(record{Kind: kindList, ID: l.ID, Name: l.Name, Avatar: l.Avatar}); err != nil {
			return fmt.Errorf("failed to write list %d: %w", l.ID, err)
		}
	}
	for _, t := range todos {
		rec := record{Kind: kindTodo, ID: t.ID, Text: t.Text, Status: t.Status, ListID: t.ListID}
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("failed to write todo %d: %w", t.ID, err)
		}
	}
	return nil
}

func writeYAML(w io.Writer, lists []schema.List, todos []schema.Todo) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(document{Lists: lists, Todos: todos}); err != nil {
		return fmt.Errorf("failed to write YAML: %w", err)
	}
	return enc.Close()
}

// Import reads lists and todos from r and creates them in store.
//
// Rows with blank names or text are skipped and counted. Todos that point at
// a list missing from the input are skipped and reported in Result.Errors.
//
// If a write fails, the lists and todos already created are deleted again
// before the error is returned. Other clients may briefly see the partial
// import in between.
func Import(ctx context.Context, store Store, r io.Reader, format Format) (*Result, error) {
	var (
		doc document
		err error
	)
	switch format {
	case FormatJSONL:
		doc, err = readJSONL(r)
	case FormatYAML:
		doc, err = readYAML(r)
	default:
		err = fmt.Errorf("unknown format %q", format)
	}
	if err != nil {
		return nil, err
	}

	imp := &importer{store: store, result: &Result{}}
	if err := imp.run(ctx, doc); err != nil {
		if uerr := imp.undo(context.WithoutCancel(ctx)); uerr != nil {
			err = errors.Join(err, fmt.Errorf("failed to undo partial import: %w", uerr))
		}
		return nil, err
	}
	return imp.result, nil
}

// importer remembers every row it creates so a failed import can be undone.
type importer struct {
	store  Store
	result *Result
	lists  []int64
	todos  []int64
}

func (imp *importer) run(ctx context.Context, doc document) error {
	result := imp.result
	listIDs := make(map[int64]int64, len(doc.Lists))

	for _, l := range doc.Lists {
		created, err := imp.store.CreateList(ctx, l.Name, l.Avatar)
		if err != nil {
			return fmt.Errorf("failed to import list %q: %w", l.Name, err)
		}
		if created == nil {
			result.Skipped++
			continue
		}
		imp.lists = append(imp.lists, created.ID)
		listIDs[l.ID] = created.ID
		result.Lists++
	}

	for _, t := range doc.Todos {
		var listID *int64
		if t.ListID != nil {
			id, ok := listIDs[*t.ListID]
			if !ok {
				result.Skipped++
				result.Errors = append(result.Errors,
					fmt.Sprintf("todo %d: list %d not in import", t.ID, *t.ListID))
				continue
			}
			listID = &id
		}

		created, err := imp.store.CreateTodo(ctx, t.Text, listID)
		if err != nil {
			return fmt.Errorf("failed to import todo %d: %w", t.ID, err)
		}
		if created == nil {
			result.Skipped++
			continue
		}
		imp.todos = append(imp.todos, created.ID)
		if t.Status == schema.StatusDone {
			if err := imp.store.SetTodoStatus(ctx, created.ID, schema.StatusDone); err != nil {
				return fmt.Errorf("failed to set status of todo %d: %w", t.ID, err)
			}
		}
		result.Todos++
	}

	return nil
}

// undo deletes the created todos, then the created lists.
func (imp *importer) undo(ctx context.Context) error {
	var errs []error
	for _, id := range imp.todos {
		if err := imp.store.DeleteTodo(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	for _, id := range imp.lists {
		if err := imp.store.DeleteList(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func readJSONL(r io.Reader) (document, error) {
	var doc document

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var rec record
		if err := json.Unmarshal([]byte(line), &rec); err != nil {
			return doc, fmt.Errorf("invalid JSON at line %d: %w", lineNum, err)
		}

		switch rec.Kind {
		case kindList:
			doc.Lists = append(doc.Lists, schema.List{ID: rec.ID, Name: rec.Name, Avatar: rec.Avatar})
		case kindTodo:
			doc.Todos = append(doc.Todos, schema.Todo{ID: rec.ID, Text: rec.Text, Status: rec.Status, ListID: rec.ListID})
		default:
			return doc, fmt.Errorf("unknown record kind %q at line %d", rec.Kind, lineNum)
		}
	}
	if err := scanner.Err(); err != nil {
		return doc, fmt.Errorf("failed to read JSONL: %w", err)
	}
	return doc, nil
}

func readYAML(r io.Reader) (document, error) {
	var doc document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return doc, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return doc, nil
}
