package jobtest

import (
	"log/slog"
	"sync"

	"github.com/next-trace/scg-jobtest/contract/job"
)

// Recorder opens observation windows over one event source and runs count
// and pattern assertions against them. A background window, restarted by
// Reset, backs assertions made without a body.
type Recorder struct {
	src    job.EventSource
	logger *slog.Logger

	mu   sync.Mutex
	base *Window
}

// Option configures a Recorder.
type Option func(*Recorder)

// WithLogger enables debug logging of window lifecycle.
func WithLogger(l *slog.Logger) Option {
	return func(r *Recorder) { r.logger = l }
}

// NewRecorder returns a recorder whose background window is already active.
func NewRecorder(src job.EventSource, opts ...Option) *Recorder {
	r := &Recorder{src: src}
	for _, o := range opts {
		o(r)
	}

	r.Reset()

	return r
}

// NewWindow returns an inactive window over the recorder's source.
func (r *Recorder) NewWindow() *Window {
	w := NewWindow(r.src)
	w.logger = r.logger

	return w
}

// Reset discards everything captured since the previous reset.
func (r *Recorder) Reset() {
	w := r.NewWindow()
	_ = w.Start() // fresh windows are inactive

	r.mu.Lock()
	prev := r.base
	r.base = w
	r.mu.Unlock()

	if prev != nil {
		prev.Stop()
	}
}

// Close stops the background window.
func (r *Recorder) Close() {
	r.mu.Lock()
	base := r.base
	r.mu.Unlock()

	if base != nil {
		base.Stop()
	}
}

// Since returns what the background window captured since the last reset.
func (r *Recorder) Since() Snapshot {
	r.mu.Lock()
	base := r.base
	r.mu.Unlock()

	return base.Snapshot()
}

// Observe runs body in a fresh window. A nil body returns Since().
func (r *Recorder) Observe(body func() error) (Snapshot, error) {
	if body == nil {
		return r.Since(), nil
	}

	return r.NewWindow().Observe(body)
}

// CountEnqueued asserts that exactly expected jobs accepted by f were
// enqueued by body and returns them.
func (r *Recorder) CountEnqueued(expected int, f Filter, body func() error) ([]job.Descriptor, error) {
	return r.Count(job.Enqueued, expected, f, EnqueuedJobs, body)
}

// CountPerformed asserts that exactly expected jobs accepted by f were
// performed by body and returns them.
func (r *Recorder) CountPerformed(expected int, f Filter, body func() error) ([]job.Descriptor, error) {
	return r.Count(job.Performed, expected, f, PerformedJobs, body)
}

// Count is the generic form of CountEnqueued and CountPerformed. A body error
// is returned as is, without asserting.
func (r *Recorder) Count(t job.EventType, expected int, f Filter, noun Noun, body func() error) ([]job.Descriptor, error) {
	snap, err := r.Observe(body)
	if err != nil {
		return nil, err
	}

	observed := f.Apply(snap.Of(t))

	return observed, AssertCount(expected, observed, noun)
}

// MatchEnqueued returns the jobs enqueued by body that satisfy c.
func (r *Recorder) MatchEnqueued(c Criteria, res job.QueueResolver, body func() error) ([]job.Descriptor, error) {
	return r.Match(job.Enqueued, c, res, EnqueuedJobs, body)
}

// MatchPerformed returns the jobs performed by body that satisfy c.
func (r *Recorder) MatchPerformed(c Criteria, res job.QueueResolver, body func() error) ([]job.Descriptor, error) {
	return r.Match(job.Performed, c, res, PerformedJobs, body)
}

// Match is the generic form of MatchEnqueued and MatchPerformed.
func (r *Recorder) Match(t job.EventType, c Criteria, res job.QueueResolver, noun Noun, body func() error) ([]job.Descriptor, error) {
	snap, err := r.Observe(body)
	if err != nil {
		return nil, err
	}

	return Match(c, snap.Of(t), res, noun)
}
