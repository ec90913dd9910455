package realtime

import (
	"sort"
	"sync"
	"time"
)

// Debouncer coalesces table names seen within a window into one flush.
// The window opens on the first Add after a flush.
type Debouncer struct {
	window time.Duration
	flush  func(tables []string)

	mu      sync.Mutex
	pending map[string]struct{}
	timer   *time.Timer
	stopped bool
}

// NewDebouncer creates a debouncer calling flush with the sorted distinct tables.
func NewDebouncer(window time.Duration, flush func(tables []string)) *Debouncer {
	return &Debouncer{window: window, flush: flush, pending: make(map[string]struct{})}
}

// Add records a touched table.
func (d *Debouncer) Add(table string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending[table] = struct{}{}
	if d.timer == nil {
		d.timer = time.AfterFunc(d.window, d.fire)
	}
}

func (d *Debouncer) fire() {
	d.mu.Lock()
	tables := make([]string, 0, len(d.pending))
	for t := range d.pending {
		tables = append(tables, t)
	}
	d.pending = make(map[string]struct{})
	d.timer = nil
	stopped := d.stopped
	d.mu.Unlock()

	if stopped || len(tables) == 0 {
		return
	}
	sort.Strings(tables)
	d.flush(tables)
}

// Stop drops pending tables and disables further flushes.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
