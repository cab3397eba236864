// Package loadtest measures the todo store under concurrent viewers.
//
// It populates a database with lists and todos drawn from a small
// vocabulary, then runs many simultaneous searches the way live views do
// while their users type, and checks that concurrent writers never leave a
// reader looking at an inconsistent row.
package loadtest

import (
	"context"
	"fmt"
	"io"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/mschirtzinger/todos/internal/search"
	"github.com/mschirtzinger/todos/internal/store/db"
	"github.com/mschirtzinger/todos/internal/store/schema"
)

var vocabulary = []string{
	"buy", "milk", "bread", "call", "mom", "clean", "kitchen", "walk", "dog",
	"write", "report", "fix", "bike", "book", "flights", "pay", "rent",
	"water", "plants", "read", "paper", "email", "team", "plan", "trip",
}

// TestDatabase is a populated database for load testing.
type TestDatabase struct {
	DB      *db.DB
	ListIDs []int64
	TodoIDs []int64
	Done    int
}

// LatencyStats captures performance metrics from a load test.
type LatencyStats struct {
	Min          time.Duration
	Max          time.Duration
	Mean         time.Duration
	P50          time.Duration
	P95          time.Duration
	P99          time.Duration
	TotalQueries int
	Errors       int
}

// CreateTestDatabase creates a database at dbPath with numLists lists and
// numTodos todos spread across them. About one in five todos is left
// outside any list and donePct of them are marked done.
func CreateTestDatabase(dbPath string, numLists, numTodos int, donePct float64, opts ...db.Option) (*TestDatabase, error) {
	database, err := db.Open(dbPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	database.RawDB().SetMaxOpenConns(64)
	database.RawDB().SetMaxIdleConns(16)

	if err := database.InitSchema(); err != nil {
		_ = database.Close()
		return nil, err
	}

	td := &TestDatabase{DB: database}
	ctx := context.Background()
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < numLists; i++ {
		list, err := database.CreateList(ctx, fmt.Sprintf("List %d", i+1), "")
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to create list %d: %w", i+1, err)
		}
		td.ListIDs = append(td.ListIDs, list.ID)
	}

	for i := 0; i < numTodos; i++ {
		var listID *int64
		if len(td.ListIDs) > 0 && i%5 != 0 {
			listID = &td.ListIDs[rng.Intn(len(td.ListIDs))]
		}
		todo, err := database.CreateTodo(ctx, randomText(rng), listID)
		if err != nil {
			_ = database.Close()
			return nil, fmt.Errorf("failed to create todo %d: %w", i+1, err)
		}
		td.TodoIDs = append(td.TodoIDs, todo.ID)

		if rng.Float64() < donePct {
			if err := database.SetTodoStatus(ctx, todo.ID, schema.StatusDone); err != nil {
				_ = database.Close()
				return nil, fmt.Errorf("failed to complete todo %d: %w", todo.ID, err)
			}
			td.Done++
		}
	}

	return td, nil
}

func randomText(rng *rand.Rand) string {
	words := make([]string, 2+rng.Intn(3))
	for i := range words {
		words[i] = vocabulary[rng.Intn(len(vocabulary))]
	}
	words[0] = strings.ToUpper(words[0][:1]) + words[0][1:]
	return strings.Join(words, " ")
}

// Close closes the test database connection.
func (td *TestDatabase) Close() error {
	if td.DB != nil {
		return td.DB.Close()
	}
	return nil
}

// RunConcurrentSearches simulates numViewers live views whose users are
// typing. Each viewer runs queriesPerViewer searches on growing prefixes of
// vocabulary words, scoped to a random list half of the time.
func (td *TestDatabase) RunConcurrentSearches(numViewers, queriesPerViewer int) (*LatencyStats, error) {
	var wg sync.WaitGroup
	results := make(chan []time.Duration, numViewers)
	errs := make(chan error, numViewers)

	for i := 0; i < numViewers; i++ {
		wg.Add(1)
		go func(viewer int) {
			defer wg.Done()

			rng := rand.New(rand.NewSource(int64(viewer)))
			ctx := context.Background()
			durations := make([]time.Duration, 0, queriesPerViewer)

			for j := 0; j < queriesPerViewer; j++ {
				word := vocabulary[rng.Intn(len(vocabulary))]
				q := search.Parse(word[:1+rng.Intn(len(word))])

				var listID *int64
				if len(td.ListIDs) > 0 && rng.Intn(2) == 0 {
					listID = &td.ListIDs[rng.Intn(len(td.ListIDs))]
				}

				start := time.Now()
				_, err := td.DB.SearchTodos(ctx, q, listID)
				durations = append(durations, time.Since(start))

				if err != nil {
					errs <- fmt.Errorf("viewer %d query %d failed: %w", viewer, j, err)
					return
				}
			}
			results <- durations
		}(i)
	}

	wg.Wait()
	close(results)
	close(errs)

	errorCount := 0
	for range errs {
		errorCount++
	}

	var all []time.Duration
	for durations := range results {
		all = append(all, durations...)
	}
	if len(all) == 0 {
		return nil, fmt.Errorf("no successful queries completed")
	}

	stats := computeLatencyStats(all)
	stats.Errors = errorCount
	return stats, nil
}

// VerifyConsistency runs numWriters goroutines toggling random todos while
// numReaders goroutines read every todo, until duration elapses. A reader
// fails the run if it sees an invalid status or a search vector that does
// not match the todo's text.
func (td *TestDatabase) VerifyConsistency(numWriters, numReaders int, duration time.Duration) error {
	if len(td.TodoIDs) == 0 {
		return fmt.Errorf("no todos to exercise")
	}

	ctx, cancel := context.WithTimeout(context.Background(), duration)
	defer cancel()

	var wg sync.WaitGroup
	errs := make(chan error, numWriters+numReaders)

	for i := 0; i < numWriters; i++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(1000 + writer)))
			for ctx.Err() == nil {
				id := td.TodoIDs[rng.Intn(len(td.TodoIDs))]
				if _, err := td.DB.ToggleTodo(ctx, id); err != nil && ctx.Err() == nil {
					errs <- fmt.Errorf("writer %d toggle %d failed: %w", writer, id, err)
					return
				}
			}
		}(i)
	}

	for i := 0; i < numReaders; i++ {
		wg.Add(1)
		go func(reader int) {
			defer wg.Done()
			for ctx.Err() == nil {
				todos, err := td.DB.ListTodos(ctx, nil)
				if err != nil {
					if ctx.Err() == nil {
						errs <- fmt.Errorf("reader %d failed: %w", reader, err)
					}
					return
				}
				for _, t := range todos {
					if !t.Status.Valid() {
						errs <- fmt.Errorf("reader %d saw todo %d with status %q", reader, t.ID, t.Status)
						return
					}
					if t.SearchVector != search.Vector(t.Text) {
						errs <- fmt.Errorf("reader %d saw todo %d with stale search vector %q", reader, t.ID, t.SearchVector)
						return
					}
				}
				time.Sleep(time.Millisecond)
			}
		}(i)
	}

	wg.Wait()
	close(errs)
	return <-errs
}

func computeLatencyStats(durations []time.Duration) *LatencyStats {
	if len(durations) == 0 {
		return &LatencyStats{}
	}

	sorted := slices.Clone(durations)
	slices.Sort(sorted)

	var sum time.Duration
	for _, d := range sorted {
		sum += d
	}

	return &LatencyStats{
		Min:          sorted[0],
		Max:          sorted[len(sorted)-1],
		Mean:         sum / time.Duration(len(sorted)),
		P50:          sorted[len(sorted)*50/100],
		P95:          sorted[len(sorted)*95/100],
		P99:          sorted[len(sorted)*99/100],
		TotalQueries: len(sorted),
	}
}

// WriteStats formats latency statistics to w.
func (s *LatencyStats) WriteStats(w io.Writer) {
	fmt.Fprintf(w, "Latency Statistics:\n")
	fmt.Fprintf(w, "  Total Queries: %d\n", s.TotalQueries)
	fmt.Fprintf(w, "  Errors:        %d\n", s.Errors)
	fmt.Fprintf(w, "  Min:           %v\n", s.Min)
	fmt.Fprintf(w, "  P50 (Median):  %v\n", s.P50)
	fmt.Fprintf(w, "  Mean:          %v\n", s.Mean)
	fmt.Fprintf(w, "  P95:           %v\n", s.P95)
	fmt.Fprintf(w, "  P99:           %v\n", s.P99)
	fmt.Fprintf(w, "  Max:           %v\n", s.Max)
}
