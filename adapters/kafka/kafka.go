package kafka

import (
	"context"
	"errors"
	"fmt"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
)

const topicPrefix = "jobs."

// Writer is a minimal Kafka-like writer interface.
// NewWithKgo adapts a franz-go client; any other client can be adapted too.
type Writer interface {
	Write(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// Adapter implements job.Enqueuer by writing job envelopes to
// "jobs.<queue>" topics, keyed by job ID.
type Adapter struct {
	Writer Writer
}

var _ job.Enqueuer = (*Adapter)(nil)

// New creates a new Kafka adapter instance with the provided writer.
func New(w Writer) *Adapter { return &Adapter{Writer: w} }

func (a *Adapter) Enqueue(ctx context.Context, d job.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Writer == nil {
		return fmt.Errorf("kafka enqueue %s: %w", d.Kind, berr.ErrEnqueueFailed)
	}

	val, err := job.Marshal(d)
	if err != nil {
		return fmt.Errorf("kafka enqueue serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	topic := job.Route(topicPrefix, d)

	if err = a.Writer.Write(ctx, topic, []byte(d.ID), val, job.Headers(d, nil)); err != nil {
		return wrapProduceErr(topic, err)
	}

	return nil
}

// context errors propagate unwrapped so callers can tell cancellation apart.
func wrapProduceErr(topic string, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	return fmt.Errorf("%w: kafka enqueue to %q: %w", berr.ErrEnqueueFailed, topic, err)
}
