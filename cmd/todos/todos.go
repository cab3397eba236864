package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/store/schema"
	"github.com/mschirtzinger/todos/internal/ui"
	"github.com/mschirtzinger/todos/internal/view"
)

var addCmd = &cobra.Command{
	Use:     "add TEXT...",
	GroupID: "todos",
	Short:   "Add a todo",
	Long: `Add a todo, optionally to a list.

Examples:
  todos add Buy milk
  todos add --list 2 Clean the kitchen`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		todo, err := store.CreateTodo(context.Background(), joinArgs(args), listFlag(cmd, false))
		if errors.Is(err, db.ErrUnknownList) {
			fatalf("no list with that id (see 'todos list ls')")
		}
		if err != nil {
			fatalf("%v", err)
		}
		if todo == nil {
			fmt.Printf("%s Nothing added: todo text is empty\n", ui.RenderWarn("⚠"))
			return
		}
		fmt.Printf("%s Added %s\n", ui.RenderPass("✓"), ui.RenderAccent(fmt.Sprintf("#%d", todo.ID)))
	},
}

var editCmd = &cobra.Command{
	Use:     "edit ID [TEXT...]",
	GroupID: "todos",
	Short:   "Change a todo's text or list",
	Long: `Change a todo's text, its list, or both.

Without TEXT the current text is kept. --list 0 removes the todo from its list.

Examples:
  todos edit 3 Buy oat milk
  todos edit 3 --list 2
  todos edit 3 --list 0`,
	Args: cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID("todo", args[0])
		listID := listFlag(cmd, true)
		if len(args) == 1 && listID == nil {
			fatalf("nothing to change: give new text or --list")
		}

		store := openStore()
		defer store.Close()
		ctx := context.Background()

		text := joinArgs(args[1:])
		if text == "" {
			todo, err := store.GetTodo(ctx, id)
			if err != nil {
				fatalf("%v", err)
			}
			text = todo.Text
		}

		err := store.UpdateTodo(ctx, id, text, listID)
		if errors.Is(err, db.ErrUnknownList) {
			fatalf("no list with that id (see 'todos list ls')")
		}
		if err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Updated #%d\n", ui.RenderPass("✓"), id)
	},
}

var doneCmd = &cobra.Command{
	Use:     "done ID...",
	GroupID: "todos",
	Short:   "Mark todos done",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setStatus(args, schema.StatusDone)
	},
}

var undoCmd = &cobra.Command{
	Use:     "undo ID...",
	GroupID: "todos",
	Short:   "Mark todos not done",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setStatus(args, schema.StatusTodo)
	},
}

func setStatus(args []string, status schema.Status) {
	store := openStore()
	defer store.Close()

	for _, arg := range args {
		id := parseID("todo", arg)
		if err := store.SetTodoStatus(context.Background(), id, status); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s #%d is %s\n", ui.RenderPass("✓"), id, status)
	}
}

var toggleCmd = &cobra.Command{
	Use:     "toggle ID...",
	GroupID: "todos",
	Short:   "Flip todos between todo and done",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		for _, arg := range args {
			id := parseID("todo", arg)
			status, err := store.ToggleTodo(context.Background(), id)
			if err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("%s #%d is %s\n", ui.RenderPass("✓"), id, status)
		}
	},
}

var rmCmd = &cobra.Command{
	Use:     "rm ID...",
	GroupID: "todos",
	Short:   "Delete todos",
	Args:    cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		for _, arg := range args {
			id := parseID("todo", arg)
			if err := store.DeleteTodo(context.Background(), id); err != nil {
				fatalf("%v", err)
			}
			fmt.Printf("%s Deleted #%d\n", ui.RenderPass("✓"), id)
		}
	},
}

var lsCmd = &cobra.Command{
	Use:     "ls",
	GroupID: "todos",
	Short:   "Show todos",
	Long: `Show todos, open ones first and newest first within each status.

--list narrows to one list. --search matches words by prefix, in any order;
a trailing space means the last word is still being typed, so nothing is
matched yet.

Examples:
  todos ls
  todos ls --list 2
  todos ls --search "buy mi"`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listID := listFlag(cmd, false)
		query, _ := cmd.Flags().GetString("search")

		store := openStore()
		defer store.Close()

		snap, err := view.Load(context.Background(), store, listID, query)
		if err != nil {
			fatalf("%v", err)
		}
		if listID != nil && schema.ListByID(snap.Lists, *listID) == nil {
			fatalf("no list with id %d", *listID)
		}
		ui.WriteSnapshot(os.Stdout, snap)
	},
}

func init() {
	addCmd.Flags().Int64P("list", "l", 0, "List to add the todo to")
	editCmd.Flags().Int64P("list", "l", 0, "Move the todo to this list (0 removes it from its list)")
	lsCmd.Flags().Int64P("list", "l", 0, "Only show this list")
	lsCmd.Flags().StringP("search", "s", "", "Only show todos matching these words")

	rootCmd.AddCommand(addCmd, editCmd, doneCmd, undoCmd, toggleCmd, rmCmd, lsCmd)
}
