// Package ui renders lists, todos and live view snapshots for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/mschirtzinger/todos/internal/store/schema"
	"github.com/mschirtzinger/todos/internal/view"
)

// EmptyState is shown when no todos are visible.
const EmptyState = "No todos. Add a todo to get started."

var (
	accentStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("39")).Bold(true)
	passStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	failStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	doneStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Strikethrough(true)
	badgeStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("183"))
	headingStyle = lipgloss.NewStyle().Bold(true).Underline(true)
)

// Init picks the colour profile. Colour is dropped when disabled in
// configuration or when stdout is not a terminal.
func Init(color bool) {
	if !color || !term.IsTerminal(int(os.Stdout.Fd())) {
		lipgloss.SetColorProfile(termenv.Ascii)
	}
}

// RenderAccent renders s in the accent style.
func RenderAccent(s string) string { return accentStyle.Render(s) }

// RenderPass renders s as a success marker.
func RenderPass(s string) string { return passStyle.Render(s) }

// RenderWarn renders s as a warning marker.
func RenderWarn(s string) string { return warnStyle.Render(s) }

// RenderFail renders s as a failure marker.
func RenderFail(s string) string { return failStyle.Render(s) }

// RenderMuted renders s de-emphasized.
func RenderMuted(s string) string { return mutedStyle.Render(s) }

// TodoLine renders one todo with its checkbox, id and list badge.
func TodoLine(t schema.Todo, lists []schema.List) string {
	box, text := "[ ]", t.Text
	if t.Done() {
		box, text = RenderPass("[x]"), doneStyle.Render(t.Text)
	}

	line := fmt.Sprintf("%s %s %s", box, RenderMuted(fmt.Sprintf("#%d", t.ID)), text)
	if t.ListID != nil {
		if l := schema.ListByID(lists, *t.ListID); l != nil {
			line += " " + badgeStyle.Render("@"+l.Name)
		}
	}
	return line
}

// ListLine renders one list with its todo count.
func ListLine(l schema.List, count int) string {
	return fmt.Sprintf("%s %s %s", RenderMuted(fmt.Sprintf("#%d", l.ID)), RenderAccent(l.Name),
		RenderMuted(fmt.Sprintf("(%d)", count)))
}

// WriteTodos writes a heading and the todos, or the empty state.
func WriteTodos(w io.Writer, heading string, todos []schema.Todo, lists []schema.List) {
	fmt.Fprintf(w, "%s %s\n", headingStyle.Render(heading), RenderMuted(fmt.Sprintf("(%d)", len(todos))))
	if len(todos) == 0 {
		fmt.Fprintln(w, RenderMuted(EmptyState))
		return
	}
	for _, t := range todos {
		fmt.Fprintln(w, "  "+TodoLine(t, lists))
	}
}

// WriteLists writes every list with the number of todos in it.
func WriteLists(w io.Writer, lists []schema.List, todos []schema.Todo) {
	if len(lists) == 0 {
		fmt.Fprintln(w, RenderMuted("No lists."))
		return
	}
	for _, l := range lists {
		fmt.Fprintln(w, ListLine(l, len(view.Filter(todos, &l.ID))))
	}
}

// WriteSnapshot renders a full live view frame.
func WriteSnapshot(w io.Writer, snap view.Snapshot) {
	var b strings.Builder

	if snap.Search != "" {
		status := ""
		if snap.Pending {
			status = " " + RenderMuted("(searching...)")
		}
		fmt.Fprintf(&b, "%s %q%s\n", RenderAccent("Search:"), snap.Search, status)
	}
	if snap.Error != "" {
		fmt.Fprintf(&b, "%s %s\n", RenderFail("Error:"), snap.Error)
	}

	WriteTodos(&b, snap.Heading, snap.Todos, snap.Lists)
	fmt.Fprintf(&b, "%s\n", RenderMuted(fmt.Sprintf("%d shown, %d total", len(snap.Todos), snap.Total)))

	_, _ = io.WriteString(w, b.String())
}
