package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todos/internal/config"
	"github.com/mschirtzinger/todos/internal/dashboard"
	"github.com/mschirtzinger/todos/internal/store/live"
	"github.com/mschirtzinger/todos/internal/store/watch"
)

var serveCmd = &cobra.Command{
	Use:     "serve",
	GroupID: "live",
	Short:   "Serve the todo API and live WebSocket views on localhost",
	Long: `Start an HTTP server on localhost with a REST API for lists and todos
and a WebSocket endpoint that pushes live view snapshots.

Endpoints:
  GET    /health
  GET    /lists                POST /lists
  PUT    /lists/{id}           DELETE /lists/{id}
  GET    /todos?listId=&q=     POST /todos
  PUT    /todos/{id}           PUT /todos/{id}/status
  POST   /todos/{id}/toggle    DELETE /todos/{id}
  GET    /ws?listId=           live view; send {"type":"search","query":"..."}

Changes made by other todos commands are picked up from the database file
and pushed to every connected view.

Examples:
  todos serve                   # Start on the configured port (default 8080)
  todos serve --port 9000       # Start on a custom port`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		hub := live.NewHub(store.RawDB(), logs.Logger("live"))
		defer hub.Close()
		store.OnChange(hub.HandleChange)

		server := dashboard.NewServer(store, hub, &dashboard.Config{
			Port:           cfg.ServerPort,
			SearchDebounce: cfg.SearchDebounce,
			Logger:         logs.Logger("dashboard"),
		})

		watcher, err := watch.New(store.Path(), server.ExternalRefresh(hub), watch.Config{
			DebounceInterval: cfg.WatchDebounce,
			Logger:           logs.Logger("watch"),
		})
		if err != nil {
			fatalf("%v", err)
		}

		if err := server.Start(); err != nil {
			fatalf("failed to start server: %v", err)
		}
		if err := watcher.Start(ctx); err != nil {
			_ = server.Stop()
			fatalf("failed to watch database: %v", err)
		}

		addr := server.GetAddr()
		fmt.Printf("Todos server started on http://%s\n", addr)
		fmt.Printf("WebSocket endpoint: ws://%s/ws\n", addr)
		fmt.Printf("Health check: http://%s/health\n", addr)
		fmt.Println("\nPress Ctrl+C to stop...")

		<-ctx.Done()

		fmt.Println("\nShutting down server...")
		if err := watcher.Stop(); err != nil {
			fmt.Fprintf(os.Stderr, "Error stopping watcher: %v\n", err)
		}
		if err := server.Stop(); err != nil {
			fatalf("during shutdown: %v", err)
		}
		fmt.Println("Server stopped")
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on")
	_ = v.BindPFlag(config.KeyServerPort, serveCmd.Flags().Lookup("port"))

	rootCmd.AddCommand(serveCmd)
}
