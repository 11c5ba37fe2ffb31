package nats

import (
	"context"
	"errors"
	"fmt"

	natsgo "github.com/nats-io/nats.go"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
)

const subjectPrefix = "jobs."

// Client is a minimal NATS-like publisher interface decoupled from any concrete library.
// Users can provide a wrapper around their NATS connection to satisfy this.
type Client interface {
	// Publish publishes a message to a subject with optional headers.
	Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error
}

// Adapter implements job.Enqueuer by publishing job envelopes to
// "jobs.<queue>" subjects through an injected Client.
type Adapter struct {
	Client  Client
	Headers map[string]string // static headers added to every message
}

// Ensure Adapter implements the contract.
var _ job.Enqueuer = (*Adapter)(nil)

// New creates a new NATS adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

func (a *Adapter) Enqueue(ctx context.Context, d job.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("nats enqueue %s: %w", d.Kind, berr.ErrEnqueueFailed)
	}

	body, err := job.Marshal(d)
	if err != nil {
		return fmt.Errorf("nats enqueue serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	if err := a.Client.Publish(ctx, job.Route(subjectPrefix, d), body, headersFor(d, a.Headers)); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("nats enqueue publish: %w", errors.Join(berr.ErrEnqueueFailed, err))
	}

	return nil
}

// headersFor adds the JetStream message id, so a job published twice is
// stored once.
func headersFor(d job.Descriptor, extra map[string]string) map[string]string {
	h := job.Headers(d, extra)
	if d.ID != "" {
		h[natsgo.MsgIdHdr] = d.ID
	}

	return h
}
