// Package watcher keeps the index in sync with files on disk. Filesystem
// notifications are noisy (editors write temp files, saves produce several
// events), so raw events pass through a debouncer that coalesces per-path
// activity within a settle window into one logical event.
package watcher

import (
	"sync"
	"time"
)

// Op is the logical file operation after coalescing.
type Op int

const (
	OpCreate Op = iota
	OpModify
	OpDelete
)

// String returns the operation name for logs.
func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpModify:
		return "modify"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Event is one coalesced file event.
type Event struct {
	Path string
	Op   Op
}

// Debouncer coalesces events per path within a settle window. The first and
// last raw operation for a path decide the emitted event:
//
//	create .. delete  -> nothing (the file never settled into existence)
//	create .. other   -> create
//	other  .. delete  -> delete
//	delete .. create  -> modify (the file was replaced in place)
//	anything else     -> modify
type Debouncer struct {
	window time.Duration
	out    chan []Event

	mu      sync.Mutex
	pending map[string]*opSpan
	timer   *time.Timer
	stopped bool
}

type opSpan struct {
	first, last Op
}

// NewDebouncer creates a debouncer emitting batches on Output after window
// of quiet per burst.
func NewDebouncer(window time.Duration) *Debouncer {
	return &Debouncer{
		window:  window,
		out:     make(chan []Event, 8),
		pending: make(map[string]*opSpan),
	}
}

// Add records a raw event. The flush timer restarts, so a burst of events
// settles into a single batch.
func (d *Debouncer) Add(path string, op Op) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}

	if span, ok := d.pending[path]; ok {
		span.last = op
	} else {
		d.pending[path] = &opSpan{first: op, last: op}
	}

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.flush)
}

// resolve applies the coalescing rules, returning false when the events
// cancelled out.
func (s *opSpan) resolve() (Op, bool) {
	switch {
	case s.first == OpCreate && s.last == OpDelete:
		return 0, false
	case s.first == OpCreate:
		return OpCreate, true
	case s.last == OpDelete:
		return OpDelete, true
	case s.first == OpDelete:
		return OpModify, true
	default:
		return OpModify, true
	}
}

func (d *Debouncer) flush() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped || len(d.pending) == 0 {
		return
	}

	batch := make([]Event, 0, len(d.pending))
	for path, span := range d.pending {
		if op, ok := span.resolve(); ok {
			batch = append(batch, Event{Path: path, Op: op})
		}
	}
	d.pending = make(map[string]*opSpan)

	if len(batch) == 0 {
		return
	}
	select {
	case d.out <- batch:
	default:
		// Consumer is behind; the next filesystem event will regenerate
		// whatever this batch carried.
	}
}

// Output returns the batch channel. Closed by Stop.
func (d *Debouncer) Output() <-chan []Event {
	return d.out
}

// Stop stops the debouncer. Safe to call more than once.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
	}
	close(d.out)
}
