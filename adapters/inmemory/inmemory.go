package inmemory

import (
	"context"
	"sync"

	"github.com/next-trace/scg-jobtest/contract/job"
)

// Queue is a thread-safe in-memory implementation of job.Enqueuer and
// job.Drainer. Jobs stay queued until drained, which makes it the adapter of
// choice for tests and examples.
type Queue struct {
	mu      sync.Mutex
	pending []job.Descriptor
	total   int
}

// Ensure Queue implements the contracts.
var (
	_ job.Enqueuer = (*Queue)(nil)
	_ job.Drainer  = (*Queue)(nil)
)

// New creates a new in-memory queue.
func New() *Queue { return &Queue{} }

func (q *Queue) Enqueue(ctx context.Context, d job.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	q.mu.Lock()
	q.pending = append(q.pending, d.Clone())
	q.total++
	q.mu.Unlock()

	return nil
}

// Drain removes and returns the pending jobs accepted by keep, in enqueue order.
func (q *Queue) Drain(keep func(job.Descriptor) bool) []job.Descriptor {
	q.mu.Lock()
	defer q.mu.Unlock()

	var (
		taken []job.Descriptor
		rest  = q.pending[:0:0]
	)

	for _, d := range q.pending {
		if keep == nil || keep(d) {
			taken = append(taken, d)
		} else {
			rest = append(rest, d)
		}
	}

	q.pending = rest

	return taken
}

// Pending returns a snapshot of the jobs still queued.
func (q *Queue) Pending() []job.Descriptor {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]job.Descriptor, len(q.pending))
	for i, d := range q.pending {
		out[i] = d.Clone()
	}

	return out
}

// Len returns the number of jobs still queued.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.pending)
}

// Total returns the number of jobs ever accepted.
func (q *Queue) Total() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return q.total
}

// Clear drops every pending job.
func (q *Queue) Clear() {
	q.mu.Lock()
	q.pending = nil
	q.mu.Unlock()
}
