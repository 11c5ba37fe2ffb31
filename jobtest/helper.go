package jobtest

import (
	"context"
	"fmt"

	"github.com/next-trace/scg-jobtest/contract/job"
	"github.com/next-trace/scg-jobtest/queue"
)

// maxPerformRounds bounds jobs that keep enqueuing follow-up jobs.
const maxPerformRounds = 100

// T is the subset of testing.TB the helper needs.
type T interface {
	Helper()
	Fatal(args ...any)
	Cleanup(func())
}

// Helper binds a Recorder to a test and a Dispatcher. Every failed assertion
// and every body error fails the test.
type Helper struct {
	t        T
	d        *queue.Dispatcher
	rec      *Recorder
	resolver job.QueueResolver
	ctx      context.Context
	recOpts  []Option
}

// HelperOption configures a Helper.
type HelperOption func(*Helper)

// WithContext sets the context used to perform enqueued jobs.
func WithContext(ctx context.Context) HelperOption {
	return func(h *Helper) { h.ctx = ctx }
}

// WithResolver overrides the queue configuration used to infer expected queues.
func WithResolver(r job.QueueResolver) HelperOption {
	return func(h *Helper) { h.resolver = r }
}

// WithRecorderOptions passes options to the underlying Recorder.
func WithRecorderOptions(opts ...Option) HelperOption {
	return func(h *Helper) { h.recOpts = append(h.recOpts, opts...) }
}

// New returns a Helper recording d. The recorder is closed on test cleanup.
func New(t T, d *queue.Dispatcher, opts ...HelperOption) *Helper {
	t.Helper()

	h := &Helper{
		t:        t,
		d:        d,
		resolver: d.QueueResolver(),
		ctx:      context.Background(),
	}

	for _, o := range opts {
		o(h)
	}

	h.rec = NewRecorder(d, h.recOpts...)

	t.Cleanup(h.rec.Close)

	return h
}

// Recorder returns the underlying recorder.
func (h *Helper) Recorder() *Recorder { return h.rec }

// Dispatcher returns the recorded dispatcher.
func (h *Helper) Dispatcher() *queue.Dispatcher { return h.d }

// Reset discards what was captured for body-less assertions.
func (h *Helper) Reset() { h.rec.Reset() }

// AssertCount fails the test unless exactly n jobs of event type t accepted
// by f were captured while body ran (since the last reset when body is nil).
func (h *Helper) AssertCount(t job.EventType, n int, f Filter, noun Noun, body func() error) []job.Descriptor {
	h.t.Helper()

	got, err := h.rec.Count(t, n, f, noun, body)
	if err != nil {
		h.t.Fatal(err)
	}

	return got
}

// AssertMatch fails the test unless a job of event type t satisfying c was
// captured while body ran.
func (h *Helper) AssertMatch(t job.EventType, c Criteria, noun Noun, body func() error) []job.Descriptor {
	h.t.Helper()

	got, err := h.rec.Match(t, c, h.resolver, noun, body)
	if err != nil {
		h.t.Fatal(err)
	}

	return got
}

// AssertEnqueuedJobs asserts that n jobs were enqueued.
func (h *Helper) AssertEnqueuedJobs(n int, body func() error, filter ...Filter) []job.Descriptor {
	h.t.Helper()

	return h.AssertCount(job.Enqueued, n, first(filter), EnqueuedJobs, body)
}

// AssertNoEnqueuedJobs asserts that no job was enqueued.
func (h *Helper) AssertNoEnqueuedJobs(body func() error, filter ...Filter) {
	h.t.Helper()

	h.AssertCount(job.Enqueued, 0, first(filter), EnqueuedJobs, body)
}

// AssertPerformedJobs asserts that n jobs were performed. With a body, the
// jobs body enqueues are performed before counting.
func (h *Helper) AssertPerformedJobs(n int, body func() error, filter ...Filter) []job.Descriptor {
	h.t.Helper()

	return h.AssertCount(job.Performed, n, first(filter), PerformedJobs, h.Performing(body, Filter{}))
}

// AssertNoPerformedJobs asserts that no job was performed.
func (h *Helper) AssertNoPerformedJobs(body func() error, filter ...Filter) {
	h.t.Helper()

	h.AssertCount(job.Performed, 0, first(filter), PerformedJobs, h.Performing(body, Filter{}))
}

// AssertEnqueuedWith asserts that a job satisfying c was enqueued.
func (h *Helper) AssertEnqueuedWith(c Criteria, body func() error) []job.Descriptor {
	h.t.Helper()

	return h.AssertMatch(job.Enqueued, c, EnqueuedJobs, body)
}

// AssertPerformedWith asserts that a job satisfying c was performed, performing
// what body enqueues first.
func (h *Helper) AssertPerformedWith(c Criteria, body func() error) []job.Descriptor {
	h.t.Helper()

	return h.AssertMatch(job.Performed, c, PerformedJobs, h.Performing(body, Filter{}))
}

// PerformEnqueuedJobs runs body and then performs the jobs it enqueued that f
// accepts, including the jobs those jobs enqueue. With a nil body every job
// pending now that f accepts is performed once.
func (h *Helper) PerformEnqueuedJobs(body func() error, filter ...Filter) {
	h.t.Helper()

	f := first(filter)

	if body == nil {
		if _, err := h.d.PerformEnqueued(h.ctx, f.Accepts); err != nil {
			h.t.Fatal(err)
		}

		return
	}

	if err := h.Performing(body, f)(); err != nil {
		h.t.Fatal(err)
	}
}

// Performing wraps body so that the jobs it enqueues, and f accepts, are
// performed once it returns. Jobs enqueued by those jobs are performed in turn
// until a round enqueues nothing f accepts. A nil body stays nil.
func (h *Helper) Performing(body func() error, f Filter) func() error {
	if body == nil {
		return nil
	}

	return func() error {
		snap, err := h.rec.NewWindow().Observe(body)
		if err != nil {
			return err
		}

		for round := 0; ; round++ {
			ids := make(map[string]struct{}, len(snap.Enqueued))
			for _, d := range f.Apply(snap.Enqueued) {
				ids[d.ID] = struct{}{}
			}

			if len(ids) == 0 {
				return nil
			}

			if round == maxPerformRounds {
				return fmt.Errorf("perform enqueued jobs: still enqueuing after %d rounds", maxPerformRounds)
			}

			snap, err = h.rec.NewWindow().Observe(func() error {
				_, err := h.d.PerformEnqueued(h.ctx, func(d job.Descriptor) bool {
					_, ok := ids[d.ID]
					return ok
				})

				return err
			})
			if err != nil {
				return err
			}
		}
	}
}

func first(fs []Filter) Filter {
	if len(fs) == 0 {
		return Filter{}
	}

	return fs[0]
}
