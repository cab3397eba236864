package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mschirtzinger/todos/internal/config"
	"github.com/mschirtzinger/todos/internal/logging"
	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/ui"
)

var (
	v    *viper.Viper = config.New()
	cfg  *config.Config
	logs *logging.Factory = logging.NewFactory(logging.Options{Quiet: true})
)

var rootCmd = &cobra.Command{
	Use:   "todos",
	Short: "Local-first todo lists with live views",
	Long: `todos keeps lists and todos in a local SQLite database.

Every view follows the database: 'todos watch' redraws in the terminal and
'todos serve' pushes snapshots to browsers over WebSocket whenever a list or
todo changes, including changes made by another todos process.

Configuration is read from todos.toml ($XDG_CONFIG_HOME/todos,
~/.config/todos or the working directory), TODOS_* environment variables
(a .env file in the working directory is loaded first) and flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configFile, _ := cmd.Flags().GetString("config")
		loaded, err := config.Load(v, configFile)
		if err != nil {
			return err
		}
		cfg = loaded

		if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
			cfg.Color = false
		}
		ui.Init(cfg.Color)

		quiet, _ := cmd.Flags().GetBool("quiet")
		logs = logging.NewFactory(logging.Options{
			File:      cfg.LogFile,
			MaxSizeMB: cfg.LogMaxSizeMB,
			Quiet:     quiet,
		})
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logs.Close()
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "todos", Title: "Todos:"},
		&cobra.Group{ID: "lists", Title: "Lists:"},
		&cobra.Group{ID: "live", Title: "Live views:"},
		&cobra.Group{ID: "setup", Title: "Setup and data:"},
	)

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default: first todos.toml on the search path)")
	flags.String("db", "", "Database file (default: $XDG_DATA_HOME/todos/todos.db)")
	flags.BoolP("quiet", "q", false, "Discard component logs")
	flags.Bool("no-color", false, "Disable colored output")

	_ = v.BindPFlag(config.KeyDBPath, flags.Lookup("db"))
}

// openStore opens the configured database and makes sure the schema exists.
func openStore() *db.DB {
	store, err := db.Open(cfg.DBPath,
		db.WithLogger(logs.Logger("db")),
		db.WithDefaultAvatar(cfg.DefaultAvatar),
	)
	if err != nil {
		fatalf("failed to open database: %v", err)
	}
	if err := store.InitSchema(); err != nil {
		_ = store.Close()
		fatalf("%v", err)
	}
	return store
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	os.Exit(1)
}

// parseID parses a positive list or todo id argument.
func parseID(kind, arg string) int64 {
	id, err := strconv.ParseInt(strings.TrimPrefix(arg, "#"), 10, 64)
	if err != nil || id <= 0 {
		fatalf("invalid %s id %q", kind, arg)
	}
	return id
}

// listFlag returns the --list flag as a list id, or nil when it was not
// given. With detach set, --list 0 yields a pointer to 0.
func listFlag(cmd *cobra.Command, detach bool) *int64 {
	if !cmd.Flags().Changed("list") {
		return nil
	}
	id, _ := cmd.Flags().GetInt64("list")
	if id < 0 || (id == 0 && !detach) {
		fatalf("invalid list id %d", id)
	}
	return &id
}

func joinArgs(args []string) string {
	return strings.Join(args, " ")
}
