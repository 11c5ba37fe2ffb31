package queue_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/next-trace/scg-jobtest/adapters/inmemory"
	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
	"github.com/next-trace/scg-jobtest/queue"
)

type testJob struct{ ID string }

type queuedJob struct{ ID string }

func (queuedJob) QueueName() string    { return "commands" }
func (queuedJob) Delay() time.Duration { return time.Second }

type testJobHandler struct{ seen *[]string }

func (h testJobHandler) Handle(ctx context.Context, j testJob) error {
	*h.seen = append(*h.seen, j.ID)
	return nil
}

type queuedJobHandler struct{ seen *[]string }

func (h queuedJobHandler) Handle(ctx context.Context, j queuedJob) error {
	*h.seen = append(*h.seen, j.ID)
	return nil
}

// fakes

type fakeEnq struct {
	jobs []job.Descriptor
	err  error
}

func (f *fakeEnq) Enqueue(ctx context.Context, d job.Descriptor) error {
	if f.err != nil {
		return f.err
	}

	f.jobs = append(f.jobs, d)

	return nil
}

type eventLog struct{ events []job.Event }

func (l *eventLog) listen(e job.Event) { l.events = append(l.events, e) }

func (l *eventLog) count(t job.EventType) int {
	n := 0

	for _, e := range l.events {
		if e.Type == t {
			n++
		}
	}

	return n
}

var fixed = time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

func newDispatcher(enq job.Enqueuer, opts ...queue.Option) *queue.Dispatcher {
	opts = append([]queue.Option{
		queue.WithClock(func() time.Time { return fixed }),
		queue.WithIDGenerator(func() string { return "job-1" }),
	}, opts...)

	return queue.New(enq, nil, opts...)
}

func Test_RegisterAndErrors(t *testing.T) {
	d := newDispatcher(nil)
	if err := d.Register("k", func(ctx context.Context, _ job.Descriptor) error { return nil }); err != nil {
		t.Fatalf("register: %v", err)
	}

	err := d.Register("k", func(ctx context.Context, _ job.Descriptor) error { return nil })
	if !errors.Is(err, berr.ErrHandlerExists) {
		t.Fatalf("want ErrHandlerExists, got %v", err)
	}

	if _, err := d.PerformNow(t.Context(), job.Pending{Kind: "missing"}); !errors.Is(err, berr.ErrHandlerNotFound) {
		t.Fatalf("want ErrHandlerNotFound, got %v", err)
	}

	if _, err := d.Enqueue(t.Context(), job.Pending{Kind: "k"}); !errors.Is(err, berr.ErrAsyncNotConfigured) {
		t.Fatalf("want ErrAsyncNotConfigured, got %v", err)
	}

	if _, err := d.PerformEnqueued(t.Context(), nil); !errors.Is(err, berr.ErrAsyncNotConfigured) {
		t.Fatalf("want ErrAsyncNotConfigured for non-drainable enqueuer, got %v", err)
	}
}

func Test_BindTypedHandler(t *testing.T) {
	d := newDispatcher(nil)

	var seen []string
	if err := queue.Bind[testJob](d, testJobHandler{seen: &seen}); err != nil {
		t.Fatalf("bind: %v", err)
	}

	// Duplicate should error
	if err := queue.Bind[testJob](d, testJobHandler{seen: &seen}); !errors.Is(err, berr.ErrHandlerExists) {
		t.Fatalf("want ErrHandlerExists, got %v", err)
	}

	if err := d.DispatchNow(t.Context(), testJob{ID: "x"}); err != nil {
		t.Fatalf("dispatch now: %v", err)
	}

	if len(seen) != 1 || seen[0] != "x" {
		t.Fatalf("seen=%v", seen)
	}

	// Descriptor carrying the wrong argument type
	wrong := job.Descriptor{Kind: job.KindOf(testJob{}), Args: []any{"not a job"}}
	if err := d.Perform(t.Context(), wrong); !errors.Is(err, berr.ErrHandlerTypeMismatch) {
		t.Fatalf("want ErrHandlerTypeMismatch, got %v", err)
	}

	empty := job.Descriptor{Kind: job.KindOf(testJob{})}
	if err := d.Perform(t.Context(), empty); !errors.Is(err, berr.ErrHandlerTypeMismatch) {
		t.Fatalf("want ErrHandlerTypeMismatch for missing argument, got %v", err)
	}
}

type invoice struct{ ID string }

func (invoice) JobKind() string { return "billing.invoice" }

type invoiceHandler struct{ seen *[]string }

func (h invoiceHandler) Handle(ctx context.Context, j *invoice) error {
	*h.seen = append(*h.seen, j.ID)
	return nil
}

func Test_BindPointerToKindedJob(t *testing.T) {
	d := newDispatcher(nil)

	var seen []string
	if err := queue.Bind[*invoice](d, invoiceHandler{seen: &seen}); err != nil {
		t.Fatalf("bind: %v", err)
	}

	// same kind as the value type
	if err := d.Register("billing.invoice", func(context.Context, job.Descriptor) error { return nil }); !errors.Is(err, berr.ErrHandlerExists) {
		t.Fatalf("want ErrHandlerExists for billing.invoice, got %v", err)
	}

	if err := d.DispatchNow(t.Context(), &invoice{ID: "i-1"}); err != nil {
		t.Fatalf("dispatch now: %v", err)
	}

	if len(seen) != 1 || seen[0] != "i-1" {
		t.Fatalf("seen=%v", seen)
	}
}

func Test_EnqueueRaisesEventAndDescribes(t *testing.T) {
	enq := &fakeEnq{}
	d := newDispatcher(enq)

	log := &eventLog{}
	unsubscribe := d.Subscribe(log.listen)

	desc, err := d.Enqueue(t.Context(), job.Pending{
		Kind:      "test_args",
		Args:      []any{"a@x.com", "Bob"},
		NamedArgs: map[string]any{"locale": "en"},
		Delay:     5 * time.Second,
	})
	if err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if desc.ID != "job-1" || desc.Queue != job.DefaultQueue || !desc.EnqueuedAt.Equal(fixed) {
		t.Fatalf("desc=%+v", desc)
	}

	if !desc.ScheduledAt.Equal(fixed.Add(5 * time.Second)) {
		t.Fatalf("scheduled_at=%v", desc.ScheduledAt)
	}

	if len(enq.jobs) != 1 || log.count(job.Enqueued) != 1 || log.count(job.Performed) != 0 {
		t.Fatalf("jobs=%d events=%v", len(enq.jobs), log.events)
	}

	unsubscribe()
	unsubscribe()

	if _, err := d.Enqueue(t.Context(), job.Pending{Kind: "test"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if len(log.events) != 1 {
		t.Fatalf("detached listener still receives events: %v", log.events)
	}
}

func Test_EnqueueFailureRaisesNoEvent(t *testing.T) {
	boom := errors.New("boom")
	d := newDispatcher(&fakeEnq{err: boom})

	log := &eventLog{}
	d.Subscribe(log.listen)

	if _, err := d.Enqueue(t.Context(), job.Pending{Kind: "k"}); !errors.Is(err, boom) {
		t.Fatalf("want boom, got %v", err)
	}

	if len(log.events) != 0 {
		t.Fatalf("events=%v", log.events)
	}
}

func Test_QueueResolverUsedWhenDispatchNamesNoQueue(t *testing.T) {
	enq := &fakeEnq{}
	resolver := job.QueueResolverFunc(func(kind string) (string, error) {
		if kind == "mail" {
			return "mailers", nil
		}

		return "", berr.ErrUnresolvableQueueName
	})
	d := newDispatcher(enq, queue.WithQueueResolver(resolver))

	desc, err := d.Enqueue(t.Context(), job.Pending{Kind: "mail"})
	if err != nil || desc.Queue != "mailers" {
		t.Fatalf("resolved queue: %v %q", err, desc.Queue)
	}

	desc, err = d.Enqueue(t.Context(), job.Pending{Kind: "other", Queue: job.Symbol("low")})
	if err != nil || desc.Queue != "low" {
		t.Fatalf("explicit queue: %v %q", err, desc.Queue)
	}

	if _, err = d.Enqueue(t.Context(), job.Pending{Kind: "other"}); !errors.Is(err, berr.ErrUnresolvableQueueName) {
		t.Fatalf("want ErrUnresolvableQueueName, got %v", err)
	}
}

func Test_DispatchQueueablePaths(t *testing.T) {
	q := inmemory.New()
	d := newDispatcher(q)

	var seenQueued, seenSync []string
	_ = queue.Bind[queuedJob](d, queuedJobHandler{seen: &seenQueued})
	_ = queue.Bind[testJob](d, testJobHandler{seen: &seenSync})

	log := &eventLog{}
	d.Subscribe(log.listen)

	if err := d.Dispatch(t.Context(), queuedJob{ID: "a1"}); err != nil {
		t.Fatalf("dispatch queueable: %v", err)
	}

	if err := d.Dispatch(t.Context(), testJob{ID: "s1"}); err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}

	if q.Len() != 1 || q.Pending()[0].Queue != "commands" {
		t.Fatalf("pending=%v", q.Pending())
	}

	if len(seenQueued) != 0 || len(seenSync) != 1 {
		t.Fatalf("queued=%v sync=%v", seenQueued, seenSync)
	}

	n, err := d.PerformEnqueued(t.Context(), nil)
	if err != nil || n != 1 || len(seenQueued) != 1 {
		t.Fatalf("perform enqueued: n=%d err=%v seen=%v", n, err, seenQueued)
	}

	if log.count(job.Enqueued) != 1 || log.count(job.Performed) != 2 {
		t.Fatalf("events=%v", log.events)
	}

	// Without an enqueuer Queueable jobs run synchronously.
	d2 := newDispatcher(nil)
	var seen2 []string
	_ = queue.Bind[queuedJob](d2, queuedJobHandler{seen: &seen2})

	if err := d2.Dispatch(t.Context(), queuedJob{ID: "b1"}); err != nil || len(seen2) != 1 {
		t.Fatalf("sync fallback: %v %v", err, seen2)
	}
}

func Test_PerformFailureRaisesNoEvent(t *testing.T) {
	q := inmemory.New()
	d := newDispatcher(q)

	boom := errors.New("boom")
	_ = d.Register("bad", func(ctx context.Context, _ job.Descriptor) error { return boom })
	_ = d.Register("good", func(ctx context.Context, _ job.Descriptor) error { return nil })

	log := &eventLog{}
	d.Subscribe(log.listen)

	_, _ = d.Enqueue(t.Context(), job.Pending{Kind: "bad"})
	_, _ = d.Enqueue(t.Context(), job.Pending{Kind: "good"})

	n, err := d.PerformEnqueued(t.Context(), nil)
	if !errors.Is(err, boom) || n != 1 {
		t.Fatalf("n=%d err=%v", n, err)
	}

	if log.count(job.Performed) != 1 {
		t.Fatalf("events=%v", log.events)
	}
}

func Test_PerformEnqueued_FilterAndCancel(t *testing.T) {
	q := inmemory.New()
	d := newDispatcher(q)

	_ = d.Register("a", func(ctx context.Context, _ job.Descriptor) error { return nil })
	_ = d.Register("b", func(ctx context.Context, _ job.Descriptor) error { return nil })

	_, _ = d.Enqueue(t.Context(), job.Pending{Kind: "a"})
	_, _ = d.Enqueue(t.Context(), job.Pending{Kind: "b"})

	n, err := d.PerformEnqueued(t.Context(), func(desc job.Descriptor) bool { return desc.Kind == "b" })
	if err != nil || n != 1 || q.Len() != 1 {
		t.Fatalf("n=%d err=%v len=%d", n, err, q.Len())
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := d.PerformEnqueued(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func Test_MiddlewareOrderAndWrapping(t *testing.T) {
	var calls []string

	mw := func(name string) queue.Middleware {
		return func(next queue.PerformFunc) queue.PerformFunc {
			return func(ctx context.Context, desc job.Descriptor) error {
				calls = append(calls, name+">")
				err := next(ctx, desc)
				calls = append(calls, "<"+name)

				return err
			}
		}
	}

	d := newDispatcher(nil, queue.WithMiddleware(mw("g1"), mw("g2")))
	_ = d.Register("k", func(ctx context.Context, _ job.Descriptor) error {
		calls = append(calls, "handler")
		return nil
	})

	if err := d.PerformWithMiddleware(t.Context(), job.Descriptor{Kind: "k"}, mw("local")); err != nil {
		t.Fatalf("perform: %v", err)
	}

	want := []string{"g1>", "g2>", "local>", "handler", "<local", "<g2", "<g1"}
	if len(calls) != len(want) {
		t.Fatalf("calls=%v", calls)
	}

	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("calls=%v want %v", calls, want)
		}
	}
}

func Test_EnqueueBatch_ProgressErrorsAndCancel(t *testing.T) {
	d := newDispatcher(&fakeEnq{})

	var progress []int

	var failed []int

	jobs := []job.Pending{{Kind: "a"}, {Kind: "b", Params: []any{"not a map"}}, {Kind: "c"}}

	out, err := d.EnqueueBatch(t.Context(), jobs,
		queue.WithBatchProgress(func(done, total int) { progress = append(progress, done) }),
		queue.WithBatchOnError(func(i int, _ job.Pending, _ error) { failed = append(failed, i) }),
	)
	if !errors.Is(err, berr.ErrSerializationFailed) {
		t.Fatalf("want ErrSerializationFailed, got %v", err)
	}

	if len(out) != 2 || len(progress) != 3 || len(failed) != 1 || failed[0] != 1 {
		t.Fatalf("out=%d progress=%v failed=%v", len(out), progress, failed)
	}

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := d.EnqueueBatch(ctx, jobs); !errors.Is(err, context.Canceled) {
		t.Fatalf("want context.Canceled, got %v", err)
	}
}

func Test_CloseDetachesListeners(t *testing.T) {
	d := newDispatcher(&fakeEnq{})

	log := &eventLog{}
	d.Subscribe(log.listen)

	if err := d.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	_, _ = d.Enqueue(t.Context(), job.Pending{Kind: "k"})

	if len(log.events) != 0 {
		t.Fatalf("events after close: %v", log.events)
	}
}
