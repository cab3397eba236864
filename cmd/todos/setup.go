package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todos/internal/config"
	"github.com/mschirtzinger/todos/internal/store/migrate"
	"github.com/mschirtzinger/todos/internal/ui"
)

var initCmd = &cobra.Command{
	Use:     "init",
	GroupID: "setup",
	Short:   "Create the database and its schema",
	Long: `Create the database file and its tables. Running it again is safe:
existing lists and todos are kept.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore()
		defer store.Close()

		fmt.Printf("%s Database ready at %s\n", ui.RenderPass("✓"), store.Path())
	},
}

var exportCmd = &cobra.Command{
	Use:     "export [FILE]",
	GroupID: "setup",
	Short:   "Write all lists and todos as JSONL or YAML",
	Long: `Write every list and todo to FILE, or to stdout when FILE is omitted
or '-'. The format follows the file extension (.yaml/.yml for YAML,
anything else for JSONL) unless --format is given.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := fileArg(args)
		format := formatFlag(cmd, path)

		store := openStore()
		defer store.Close()

		var w io.Writer = os.Stdout
		if path != "" {
			f, err := os.Create(path)
			if err != nil {
				fatalf("failed to create %s: %v", path, err)
			}
			defer f.Close()
			w = f
		}

		result, err := migrate.Export(context.Background(), store, w, format)
		if err != nil {
			fatalf("%v", err)
		}
		if path != "" {
			fmt.Printf("%s Exported %d lists and %d todos to %s\n",
				ui.RenderPass("✓"), result.Lists, result.Todos, path)
		}
	},
}

var importCmd = &cobra.Command{
	Use:     "import [FILE]",
	GroupID: "setup",
	Short:   "Add lists and todos from a JSONL or YAML export",
	Long: `Read lists and todos written by 'todos export' and add them to the
database. Lists get new ids and todos follow their list. Rows with an empty
name or text are skipped.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		path := fileArg(args)
		format := formatFlag(cmd, path)

		var r io.Reader = os.Stdin
		if path != "" {
			f, err := os.Open(path)
			if err != nil {
				fatalf("failed to open %s: %v", path, err)
			}
			defer f.Close()
			r = f
		}

		store := openStore()
		defer store.Close()

		result, err := migrate.Import(context.Background(), store, r, format)
		if err != nil {
			fatalf("%v", err)
		}

		fmt.Printf("%s Imported %d lists and %d todos\n", ui.RenderPass("✓"), result.Lists, result.Todos)
		if result.Skipped > 0 {
			fmt.Printf("   Skipped: %d\n", result.Skipped)
		}
		for _, e := range result.Errors {
			fmt.Printf("   %s %s\n", ui.RenderWarn("⚠"), e)
		}
	},
}

func fileArg(args []string) string {
	if len(args) == 0 || args[0] == "-" {
		return ""
	}
	return args[0]
}

func formatFlag(cmd *cobra.Command, path string) migrate.Format {
	name, _ := cmd.Flags().GetString("format")
	if name == "" {
		return migrate.FormatFromPath(path)
	}
	format, err := migrate.ParseFormat(name)
	if err != nil {
		fatalf("%v", err)
	}
	return format
}

var configCmd = &cobra.Command{
	Use:     "config",
	GroupID: "setup",
	Short:   "Show or create the configuration file",
}

var configInitCmd = &cobra.Command{
	Use:   "init [FILE]",
	Short: "Write a todos.toml with the default settings",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		force, _ := cmd.Flags().GetBool("force")
		path := config.DefaultFilePath()
		if len(args) == 1 {
			path = args[0]
		}

		if err := config.WriteFile(path, config.Defaults(), force); err != nil {
			fatalf("%v", err)
		}
		fmt.Printf("%s Wrote %s\n", ui.RenderPass("✓"), path)
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the resolved configuration",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		file := cfg.File
		if file == "" {
			file = ui.RenderMuted("(none, using defaults)")
		}

		rows := [][2]string{
			{config.KeyDBPath, cfg.DBPath},
			{config.KeySearchDebounce, cfg.SearchDebounce.String()},
			{config.KeyWatchDebounce, cfg.WatchDebounce.String()},
			{config.KeyDefaultAvatar, cfg.DefaultAvatar},
			{config.KeyServerPort, fmt.Sprint(cfg.ServerPort)},
			{config.KeyLogFile, cfg.LogFile},
			{config.KeyLogMaxSizeMB, fmt.Sprint(cfg.LogMaxSizeMB)},
			{config.KeyColor, fmt.Sprint(cfg.Color)},
		}

		fmt.Printf("Config file: %s\n\n", file)
		for _, row := range rows {
			fmt.Printf("  %s %s\n", ui.RenderAccent(row[0]+strings.Repeat(" ", 22-len(row[0]))), row[1])
		}
	},
}

func init() {
	exportCmd.Flags().StringP("format", "f", "", "jsonl or yaml (default: from the file extension, else jsonl)")
	importCmd.Flags().StringP("format", "f", "", "jsonl or yaml (default: from the file extension, else jsonl)")
	configInitCmd.Flags().Bool("force", false, "Overwrite an existing file")

	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(initCmd, exportCmd, importCmd, configCmd)
}
