package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/store/loadtest"
	"github.com/mschirtzinger/todos/internal/ui"
)

var benchCmd = &cobra.Command{
	Use:     "bench",
	GroupID: "setup",
	Short:   "Measure search latency under many concurrent viewers",
	Long: `Create a throwaway database, fill it with lists and todos, then run
concurrent searches the way live views do while their users type.

With --verify, writers also toggle todos while readers check every row, and
the command fails if a reader ever sees an inconsistent todo.

The configured database is never touched.

Examples:
  todos bench
  todos bench --viewers 200 --todos 5000
  todos bench --verify --json`,
	Args: cobra.NoArgs,
	Run:  runBench,
}

func init() {
	benchCmd.Flags().Int("viewers", 50, "Number of concurrent viewers to simulate")
	benchCmd.Flags().Int("lists", 10, "Number of lists in the database")
	benchCmd.Flags().Int("todos", 1000, "Number of todos in the database")
	benchCmd.Flags().Int("queries", 20, "Number of searches per viewer")
	benchCmd.Flags().Float64("done", 0.3, "Fraction of todos marked done (0.0-1.0)")
	benchCmd.Flags().Bool("verify", false, "Also run concurrent writers and check consistency")
	benchCmd.Flags().Duration("verify-for", 2*time.Second, "How long the consistency check runs")
	benchCmd.Flags().Bool("json", false, "Output results as JSON")
	rootCmd.AddCommand(benchCmd)
}

func runBench(cmd *cobra.Command, args []string) {
	viewers, _ := cmd.Flags().GetInt("viewers")
	lists, _ := cmd.Flags().GetInt("lists")
	todos, _ := cmd.Flags().GetInt("todos")
	queries, _ := cmd.Flags().GetInt("queries")
	done, _ := cmd.Flags().GetFloat64("done")
	verify, _ := cmd.Flags().GetBool("verify")
	verifyFor, _ := cmd.Flags().GetDuration("verify-for")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if viewers <= 0 || todos <= 0 || queries <= 0 {
		fatalf("--viewers, --todos and --queries must be positive")
	}
	if lists < 0 {
		fatalf("--lists must not be negative")
	}
	if done < 0 || done > 1 {
		fatalf("--done must be between 0.0 and 1.0")
	}

	dir, err := os.MkdirTemp("", "todos-bench-")
	if err != nil {
		fatalf("failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	if !jsonOutput {
		fmt.Printf("Populating %d lists and %d todos...\n", lists, todos)
	}
	td, err := loadtest.CreateTestDatabase(filepath.Join(dir, "bench.db"), lists, todos, done,
		db.WithLogger(logs.Logger("db")))
	if err != nil {
		fatalf("%v", err)
	}
	defer td.Close()

	if !jsonOutput {
		fmt.Printf("Running %d viewers x %d searches...\n\n", viewers, queries)
	}
	stats, err := td.RunConcurrentSearches(viewers, queries)
	if err != nil {
		fatalf("%v", err)
	}

	var verifyErr error
	if verify {
		verifyErr = td.VerifyConsistency(viewers/10+1, viewers, verifyFor)
	}

	if jsonOutput {
		out := map[string]interface{}{
			"viewers":       viewers,
			"todos":         todos,
			"total_queries": stats.TotalQueries,
			"errors":        stats.Errors,
			"mean_ms":       ms(stats.Mean),
			"p50_ms":        ms(stats.P50),
			"p95_ms":        ms(stats.P95),
			"p99_ms":        ms(stats.P99),
			"max_ms":        ms(stats.Max),
		}
		if verify {
			out["consistent"] = verifyErr == nil
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fatalf("failed to encode results: %v", err)
		}
	} else {
		stats.WriteStats(os.Stdout)
		if verify && verifyErr == nil {
			fmt.Printf("\n%s No inconsistent reads in %v\n", ui.RenderPass("✓"), verifyFor)
		}
	}

	if verifyErr != nil {
		fatalf("consistency check failed: %v", verifyErr)
	}
	if stats.Errors > 0 {
		os.Exit(1)
	}
}

func ms(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
