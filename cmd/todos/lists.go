package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mschirtzinger/todos/internal/ui"
)

var listCmd = &cobra.Command{
	Use:     "list",
	GroupID: "lists",
	Short:   "Manage lists",
	Long: `Create, rename, delete and show lists.

Deleting a list deletes every todo in it.`,
}

var listAddCmd = &cobra.Command{
	Use:   "add NAME...",
	Short: "Create a list",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		avatar, _ := cmd.Flags().GetString("avatar")

		store := openStore()
		defer store.Close()

		list, err := store.CreateList(context.Background(), joinArgs(args), avatar)
		if err != nil {
			fatalf("%v", err)
		}
		if list == nil {
			fmt.Printf("%s Nothing added: list name is empty\n", ui.RenderWarn("⚠"))
			return
		}
		fmt.Printf("%s Created list %s %s\n", ui.RenderPass("✓"),
			ui.RenderAccent(list.Name), ui.RenderMuted(fmt.Sprintf("#%d", list.ID)))
	},
}

var listRenameCmd = &cobra.Command{
	Use:   "rename ID NAME...",
	Short: "Rename a list or change its avatar",
	Args:  cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID("list", args[0])
		avatar, _ := cmd.Flags().GetString("avatar")

		store := openStore()
		defer store.Close()

		if err := store.UpdateList(context.Background(), id, joinArgs(args[1:]), avatar); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Updated list #%d\n", ui.RenderPass("✓"), id)
	},
}

var listRmCmd = &cobra.Command{
	Use:   "rm ID",
	Short: "Delete a list and all of its todos",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID("list", args[0])
		yes, _ := cmd.Flags().GetBool("yes")

		store := openStore()
		defer store.Close()
		ctx := context.Background()

		list, err := store.GetList(ctx, id)
		if err != nil {
			fatalf("%v", err)
		}
		todos, err := store.ListTodos(ctx, &id)
		if err != nil {
			fatalf("%v", err)
		}

		if !yes && len(todos) > 0 {
			if !term.IsTerminal(int(os.Stdin.Fd())) {
				fatalf("list %q has %d todos; pass --yes to delete it", list.Name, len(todos))
			}
			confirmed, err := confirm(fmt.Sprintf("Delete %q and its %d todos?", list.Name, len(todos)))
			if err != nil {
				fatalf("%v", err)
			}
			if !confirmed {
				fmt.Println("Cancelled")
				return
			}
		}

		if err := store.DeleteList(ctx, id); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Deleted list %s and %d todos\n", ui.RenderPass("✓"), ui.RenderAccent(list.Name), len(todos))
	},
}

var listLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "Show lists with their todo counts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()
		ctx := context.Background()

		lists, err := store.ListLists(ctx)
		if err != nil {
			fatalf("%v", err)
		}
		todos, err := store.ListTodos(ctx, nil)
		if err != nil {
			fatalf("%v", err)
		}
		ui.WriteLists(os.Stdout, lists, todos)
	},
}

// confirm asks a yes/no question on the terminal.
func confirm(title string) (bool, error) {
	var ok bool
	err := huh.NewForm(huh.NewGroup(
		huh.NewConfirm().
			Title(title).
			Affirmative("Delete").
			Negative("Keep").
			Value(&ok),
	)).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return false, nil
	}
	return ok, err
}

func init() {
	listAddCmd.Flags().String("avatar", "", "Avatar image URL (default: lists.default_avatar)")
	listRenameCmd.Flags().String("avatar", "", "New avatar image URL")
	listRmCmd.Flags().BoolP("yes", "y", false, "Delete without asking")

	listCmd.AddCommand(listAddCmd, listRenameCmd, listRmCmd, listLsCmd)
	rootCmd.AddCommand(listCmd)
}
