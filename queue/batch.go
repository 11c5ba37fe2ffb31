package queue

import (
	"context"
	"errors"

	"github.com/next-trace/scg-jobtest/contract/job"
)

// revive:disable:max-public-structs
// BatchOptions controls EnqueueBatch behavior.
// OnProgress is called after each job is handled (success or failure) with done and total.
// OnError is called when enqueueing fails with the job's index, the pending job and the error.
type BatchOptions struct {
	OnProgress func(done, total int)
	OnError    func(index int, p job.Pending, err error)
}

// revive:enable:max-public-structs

// BatchOpt configures BatchOptions.
type BatchOpt func(*BatchOptions)

// WithBatchProgress sets the progress callback.
func WithBatchProgress(fn func(done, total int)) BatchOpt {
	return func(o *BatchOptions) { o.OnProgress = fn }
}

// WithBatchOnError sets the error callback.
func WithBatchOnError(fn func(index int, p job.Pending, err error)) BatchOpt {
	return func(o *BatchOptions) { o.OnError = fn }
}

// EnqueueBatch enqueues the pending jobs sequentially.
// It respects context cancellation, reports progress, and aggregates errors.
// The descriptors of the accepted jobs are returned in order.
func (d *Dispatcher) EnqueueBatch(ctx context.Context, jobs []job.Pending, opts ...BatchOpt) ([]job.Descriptor, error) {
	var o BatchOptions
	for _, f := range opts {
		f(&o)
	}

	total := len(jobs)

	var (
		errs []error
		out  = make([]job.Descriptor, 0, total)
	)

	for i, p := range jobs {
		if err := ctx.Err(); err != nil { // canceled or deadline exceeded
			return out, errors.Join(append(errs, err)...)
		}

		desc, err := d.Enqueue(ctx, p)
		if err != nil {
			if o.OnError != nil {
				o.OnError(i, p, err)
			}

			errs = append(errs, err)
		} else {
			out = append(out, desc)
		}

		if o.OnProgress != nil {
			o.OnProgress(i+1, total)
		}
	}

	return out, errors.Join(errs...)
}
