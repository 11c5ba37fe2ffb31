package queue

// revive:disable:max-public-structs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
)

// PerformFunc runs a described job.
type PerformFunc func(ctx context.Context, d job.Descriptor) error

// Middleware wraps job execution. Middlewares are executed in registration order.
type Middleware func(next PerformFunc) PerformFunc

// Handler performs jobs whose single positional argument is a J.
// Implementations must be safe for concurrent use by multiple goroutines.
type Handler[J any] interface {
	Handle(ctx context.Context, j J) error
}

// Dispatcher binds performers to job kinds and is the event source the test
// harness observes. It enqueues through the configured job.Enqueuer and raises
// job.Enqueued after the enqueuer accepted a job and job.Performed after a
// performer returned without error.
//
// Dispatcher is concurrency-safe and contains no global state.
type Dispatcher struct {
	mu sync.RWMutex

	performers map[string]PerformFunc

	// global middleware executed in registration order
	mw []Middleware

	enq      job.Enqueuer
	resolver job.QueueResolver
	events   *hub
	now      func() time.Time
	newID    func() string
	logger   *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithMiddleware registers global middleware.
func WithMiddleware(mw ...Middleware) Option {
	return func(d *Dispatcher) { d.mw = append(d.mw, mw...) }
}

// WithQueueResolver sets the configuration consulted for jobs dispatched without a queue.
func WithQueueResolver(r job.QueueResolver) Option {
	return func(d *Dispatcher) { d.resolver = r }
}

// WithClock overrides the time source used for enqueue timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

// WithIDGenerator overrides job ID generation (UUIDv4 by default).
func WithIDGenerator(gen func() string) Option {
	return func(d *Dispatcher) { d.newID = gen }
}

// New constructs a Dispatcher. enq and logger may be nil: without an enqueuer
// every Dispatch runs synchronously and Enqueue fails.
func New(enq job.Enqueuer, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		performers: make(map[string]PerformFunc),
		enq:        enq,
		events:     newHub(),
		now:        time.Now,
		newID:      uuid.NewString,
		logger:     logger,
	}

	for _, o := range opts {
		o(d)
	}

	return d
}

// Subscribe implements job.EventSource.
func (d *Dispatcher) Subscribe(l job.Listener) func() { return d.events.subscribe(l) }

// Enqueuer returns the configured enqueuer, possibly nil.
func (d *Dispatcher) Enqueuer() job.Enqueuer { return d.enq }

// QueueResolver returns the configured queue resolver, possibly nil.
func (d *Dispatcher) QueueResolver() job.QueueResolver { return d.resolver }

// Register binds a performer to a job kind. Duplicate bindings are rejected.
func (d *Dispatcher) Register(kind string, fn PerformFunc) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.performers[kind]; exists {
		return fmt.Errorf("register %s: %w", kind, berr.ErrHandlerExists)
	}

	d.performers[kind] = fn

	return nil
}

// Bind registers a typed handler for jobs of type J, keyed by job.KindFor[J].
func Bind[J any](d *Dispatcher, h Handler[J]) error {
	kind := job.KindFor[J]()

	return d.Register(kind, func(ctx context.Context, desc job.Descriptor) error {
		if len(desc.Args) != 1 {
			return fmt.Errorf("perform %s: want 1 argument, got %d: %w", kind, len(desc.Args), berr.ErrHandlerTypeMismatch)
		}

		j, ok := desc.Args[0].(J)
		if !ok {
			return fmt.Errorf("perform %s: argument is %T: %w", kind, desc.Args[0], berr.ErrHandlerTypeMismatch)
		}

		return h.Handle(ctx, j)
	})
}

// Describe introspects a pending dispatch using the dispatcher's clock, ID
// generator and queue configuration.
func (d *Dispatcher) Describe(p job.Pending) (job.Descriptor, error) {
	return job.Describe(p, d.resolver, d.now(), d.newID())
}

// Enqueue describes p, hands it to the enqueuer and raises job.Enqueued.
func (d *Dispatcher) Enqueue(ctx context.Context, p job.Pending) (job.Descriptor, error) {
	if d.enq == nil {
		return job.Descriptor{}, fmt.Errorf("enqueue %s: %w", p.Kind, berr.ErrAsyncNotConfigured)
	}

	desc, err := d.Describe(p)
	if err != nil {
		return job.Descriptor{}, fmt.Errorf("enqueue: %w", err)
	}

	if err := d.enq.Enqueue(ctx, desc); err != nil {
		return job.Descriptor{}, err
	}

	d.debug(ctx, "job enqueued", desc)
	d.events.emit(job.Event{Type: job.Enqueued, Job: desc})

	return desc, nil
}

// PerformNow describes p and runs it synchronously.
func (d *Dispatcher) PerformNow(ctx context.Context, p job.Pending) (job.Descriptor, error) {
	desc, err := d.Describe(p)
	if err != nil {
		return job.Descriptor{}, fmt.Errorf("perform: %w", err)
	}

	return desc, d.Perform(ctx, desc)
}

// Perform runs an already described job, e.g. one taken off a queue.
func (d *Dispatcher) Perform(ctx context.Context, desc job.Descriptor) error {
	return d.performWithMiddleware(ctx, desc)
}

// PerformWithMiddleware runs a job with additional per-call middleware.
func (d *Dispatcher) PerformWithMiddleware(ctx context.Context, desc job.Descriptor, mws ...Middleware) error {
	return d.performWithMiddleware(ctx, desc, mws...)
}

func (d *Dispatcher) performWithMiddleware(ctx context.Context, desc job.Descriptor, mws ...Middleware) error {
	d.mu.RLock()
	f, ok := d.performers[desc.Kind]
	chain := make([]Middleware, 0, len(d.mw)+len(mws))
	chain = append(chain, d.mw...)
	d.mu.RUnlock()

	if !ok {
		return fmt.Errorf("perform %s: %w", desc.Kind, berr.ErrHandlerNotFound)
	}

	chain = append(chain, mws...)

	// Build chain so the first registered middleware runs first
	final := f
	for i := len(chain) - 1; i >= 0; i-- {
		final = chain[i](final)
	}

	if err := final(ctx, desc); err != nil {
		if d.logger != nil {
			d.logger.WarnContext(ctx, "job failed", "kind", desc.Kind, "id", desc.ID, "err", err)
		}

		return err
	}

	d.debug(ctx, "job performed", desc)
	d.events.emit(job.Event{Type: job.Performed, Job: desc})

	return nil
}

// PerformEnqueued drains the enqueuer, if it is a job.Drainer, and performs
// the drained jobs in enqueue order. keep selects which jobs to take (nil takes
// all). Jobs enqueued while draining stay queued. Errors are aggregated with
// errors.Join; the number of successfully performed jobs is returned.
func (d *Dispatcher) PerformEnqueued(ctx context.Context, keep func(job.Descriptor) bool) (int, error) {
	dr, ok := d.enq.(job.Drainer)
	if !ok {
		return 0, fmt.Errorf("perform enqueued: %T cannot be drained: %w", d.enq, berr.ErrAsyncNotConfigured)
	}

	var (
		errs []error
		done int
	)

	for _, desc := range dr.Drain(keep) {
		if err := ctx.Err(); err != nil {
			return done, errors.Join(append(errs, err)...)
		}

		if err := d.Perform(ctx, desc); err != nil {
			errs = append(errs, err)
			continue
		}

		done++
	}

	return done, errors.Join(errs...)
}

// Dispatch enqueues v when it implements job.Queueable and an enqueuer is
// configured; otherwise it performs v synchronously via DispatchNow.
func (d *Dispatcher) Dispatch(ctx context.Context, v any) error {
	if _, ok := v.(job.Queueable); ok && d.enq != nil {
		_, err := d.Enqueue(ctx, job.PendingFor(v))
		return err
	}

	return d.DispatchNow(ctx, v)
}

// DispatchNow performs v synchronously.
func (d *Dispatcher) DispatchNow(ctx context.Context, v any) error {
	_, err := d.PerformNow(ctx, job.PendingFor(v))
	return err
}

// Close detaches every subscribed listener.
func (d *Dispatcher) Close() error {
	d.events.clear()
	return nil
}

func (d *Dispatcher) debug(ctx context.Context, msg string, desc job.Descriptor) {
	if d.logger == nil {
		return
	}

	d.logger.DebugContext(ctx, msg, "kind", desc.Kind, "id", desc.ID, "queue", desc.Queue)
}
