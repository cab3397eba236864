package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/store/live"
	"github.com/mschirtzinger/todos/internal/store/watch"
	"github.com/mschirtzinger/todos/internal/ui"
	"github.com/mschirtzinger/todos/internal/view"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	GroupID: "live",
	Short:   "Show todos and redraw on every change",
	Long: `Show the todo view and redraw it whenever a list or todo changes,
including changes made by other todos commands.

Type a line and press Enter to search; an empty line clears the search.
A line of the form ':N' switches to list N and ':' shows all todos.

Examples:
  todos watch
  todos watch --list 2 --search milk`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		listID := listFlag(cmd, false)
		query, _ := cmd.Flags().GetString("search")

		store := openStore()
		defer store.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		hub, watcher := startLive(ctx, store)
		defer hub.Close()
		defer watcher.Stop()

		session := view.NewSession(hub, store, listID, view.Config{
			Debounce: cfg.SearchDebounce,
			Logger:   logs.Logger("session"),
		})
		errc := make(chan error, 1)
		go func() { errc <- session.Run(ctx) }()

		if query != "" {
			session.SetSearch(query)
		}
		if term.IsTerminal(int(os.Stdin.Fd())) {
			go readCommands(session)
		}

		redraw := term.IsTerminal(int(os.Stdout.Fd()))
		for {
			select {
			case snap := <-session.Snapshots():
				if redraw {
					fmt.Print("\033[H\033[2J")
				}
				ui.WriteSnapshot(os.Stdout, snap)
				if redraw {
					fmt.Println(ui.RenderMuted("Type to search, ':N' for list N, Ctrl+C to quit"))
				}
			case err := <-errc:
				if err != nil {
					fatalf("%v", err)
				}
				return
			}
		}
	},
}

// startLive wires the store's change notifications and the database file
// watcher into a new live hub.
func startLive(ctx context.Context, store *db.DB) (*live.Hub, *watch.Watcher) {
	hub := live.NewHub(store.RawDB(), logs.Logger("live"))
	store.OnChange(hub.HandleChange)

	watcher, err := watch.New(store.Path(), hub.RefreshAll, watch.Config{
		DebounceInterval: cfg.WatchDebounce,
		Logger:           logs.Logger("watch"),
	})
	if err != nil {
		fatalf("%v", err)
	}
	if err := watcher.Start(ctx); err != nil {
		fatalf("failed to watch database: %v", err)
	}
	return hub, watcher
}

// readCommands feeds terminal input lines to the session until stdin closes.
func readCommands(session *view.Session) {
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if rest, ok := strings.CutPrefix(line, ":"); ok {
			session.SelectList(view.ParseListParam(rest))
			continue
		}
		session.SetSearch(line)
	}
}

func init() {
	watchCmd.Flags().Int64P("list", "l", 0, "Show this list")
	watchCmd.Flags().StringP("search", "s", "", "Initial search")

	rootCmd.AddCommand(watchCmd)
}
