package search

import (
	"sync"
	"time"
)

// DefaultDebounce is the quiet period before typed input becomes the
// effective query.
const DefaultDebounce = 300 * time.Millisecond

// Debouncer delays raw input until it has been quiet for a fixed interval.
//
// Every Push supersedes the previous one: the earlier timer is stopped and,
// should it already be firing, its generation no longer matches and it
// delivers nothing. Only the latest value ever reaches C.
type Debouncer struct {
	delay time.Duration

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	latest  string
	pending bool
	stopped bool

	out chan string
}

// NewDebouncer creates a Debouncer with the given quiet period.
// A non-positive delay uses DefaultDebounce.
func NewDebouncer(delay time.Duration) *Debouncer {
	if delay <= 0 {
		delay = DefaultDebounce
	}
	return &Debouncer{
		delay: delay,
		out:   make(chan string, 1),
	}
}

// Push records raw as the latest input and restarts the quiet period.
func (d *Debouncer) Push(raw string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}

	d.gen++
	gen := d.gen
	d.latest = raw
	d.pending = true

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.delay, func() { d.fire(gen) })
}

// fire delivers the latest value if no newer Push happened since the timer
// for gen was armed.
func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped || gen != d.gen {
		return
	}
	d.pending = false

	// Latest wins: replace an undelivered value instead of blocking.
	select {
	case <-d.out:
	default:
	}
	d.out <- d.latest
}

// C returns the channel on which settled values are delivered.
func (d *Debouncer) C() <-chan string {
	return d.out
}

// Pending reports whether a pushed value is still waiting for its quiet
// period to elapse.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

// Stop cancels any pending delivery. Later pushes are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopped = true
	d.pending = false
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
	}
}
