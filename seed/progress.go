package seed

import (
	"fmt"
	"io"
	"sync"
	"time"
)

// Seeding phases, in the order Run goes through them.
const (
	phaseUsers    = "users"
	phaseMessages = "messages"
)

// progress reports one seeding phase at a time on a single overwritten
// line. Completed tasks are counted whether or not anything is printed.
type progress struct {
	w        io.Writer
	interval int

	mu      sync.Mutex
	phase   string
	total   int
	done    int
	printed int
	started time.Time
}

func newProgress(w io.Writer, interval int) *progress {
	if w == nil {
		w = io.Discard
	}
	if interval < 1 {
		interval = 1
	}
	return &progress{w: w, interval: interval}
}

// begin starts a phase of total tasks.
func (p *progress) begin(phase string, total int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.phase = phase
	p.total = total
	p.done = 0
	p.printed = 0
	p.started = time.Now()
}

// add records one completed task.
func (p *progress) add() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	if p.done-p.printed >= p.interval {
		p.print()
		p.printed = p.done
	}
}

// end prints the phase summary and returns the completed count and the
// phase duration.
func (p *progress) end() (int, time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.print()
	fmt.Fprintln(p.w)
	return p.done, time.Since(p.started)
}

// print must be called with the lock held.
func (p *progress) print() {
	elapsed := time.Since(p.started)
	pct := 100.0
	if p.total > 0 {
		pct = float64(p.done) / float64(p.total) * 100
	}
	fmt.Fprintf(p.w, "\rseeding %s: %d/%d (%.0f%%) %.1f/s",
		p.phase, p.done, p.total, pct, float64(p.done)/elapsed.Seconds())
}
