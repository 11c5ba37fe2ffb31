package jobtest

import (
	"log/slog"
	"sync"

	"github.com/next-trace/scg-jobtest/contract/job"
)

// State is the lifecycle state of a Window.
type State int

const (
	Inactive State = iota
	Active
	Closed
)

func (s State) String() string {
	switch s {
	case Inactive:
		return "inactive"
	case Active:
		return "active"
	case Closed:
		return "closed"
	default:
		return "unknown"
	}
}

// Snapshot is what a window captured, in event order.
type Snapshot struct {
	Enqueued  []job.Descriptor
	Performed []job.Descriptor
}

// Of returns the captured jobs for one event type.
func (s Snapshot) Of(t job.EventType) []job.Descriptor {
	if t == job.Performed {
		return s.Performed
	}

	return s.Enqueued
}

// Window captures events between Start and Stop. It is single use.
type Window struct {
	mu          sync.Mutex
	src         job.EventSource
	state       State
	unsubscribe func()
	snap        Snapshot
	logger      *slog.Logger
}

// NewWindow returns an inactive window over src.
func NewWindow(src job.EventSource) *Window {
	return &Window{src: src}
}

// State reports the current lifecycle state.
func (w *Window) State() State {
	w.mu.Lock()
	defer w.mu.Unlock()

	return w.state
}

// Start subscribes to the source. Only an inactive window can be started.
func (w *Window) Start() error {
	w.mu.Lock()
	if w.state != Inactive {
		st := w.state
		w.mu.Unlock()

		return &InvalidWindowStateError{State: st}
	}

	w.state = Active
	w.mu.Unlock()

	// subscribe outside the lock: the source may emit synchronously
	unsubscribe := w.src.Subscribe(w.record)

	w.mu.Lock()
	w.unsubscribe = unsubscribe
	w.mu.Unlock()

	if w.logger != nil {
		w.logger.Debug("observation window opened")
	}

	return nil
}

// Stop detaches the listener and closes the window. Stopping a window that is
// not active is a no-op.
func (w *Window) Stop() {
	w.mu.Lock()
	if w.state != Active {
		w.mu.Unlock()
		return
	}

	w.state = Closed
	unsubscribe := w.unsubscribe
	w.unsubscribe = nil
	enq, perf := len(w.snap.Enqueued), len(w.snap.Performed)
	w.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}

	if w.logger != nil {
		w.logger.Debug("observation window closed", "enqueued", enq, "performed", perf)
	}
}

// Observe runs body with the window active and returns what it captured. The
// listener is detached on every exit path; a body error is returned after
// teardown together with the partial snapshot, and a panic propagates after
// teardown. A nil body observes nothing.
func (w *Window) Observe(body func() error) (Snapshot, error) {
	if err := w.Start(); err != nil {
		return Snapshot{}, err
	}

	err := w.run(body)

	return w.Snapshot(), err
}

func (w *Window) run(body func() error) error {
	defer w.Stop()

	if body == nil {
		return nil
	}

	return body()
}

// Snapshot returns a copy of what has been captured so far.
func (w *Window) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()

	return Snapshot{
		Enqueued:  append([]job.Descriptor(nil), w.snap.Enqueued...),
		Performed: append([]job.Descriptor(nil), w.snap.Performed...),
	}
}

func (w *Window) record(e job.Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.state != Active {
		return
	}

	switch e.Type {
	case job.Enqueued:
		w.snap.Enqueued = append(w.snap.Enqueued, e.Job.Clone())
	case job.Performed:
		w.snap.Performed = append(w.snap.Performed, e.Job.Clone())
	}
}
