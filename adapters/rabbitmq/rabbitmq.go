package rabbitmq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
)

const (
	jobsExchange     = "jobs"
	jobsExchangeType = "direct"
	routingPrefix    = "jobs."
)

type PubMsg struct {
	Exchange   string
	RoutingKey string
	Body       []byte
	Headers    map[string]string
}

type Publisher interface {
	Publish(ctx context.Context, m PubMsg) error
}

// Adapter implements job.Enqueuer over a Publisher.
type Adapter struct {
	Publisher  Publisher
	Propagator job.HeaderPropagator // optional, for context propagation into headers
}

var _ job.Enqueuer = (*Adapter)(nil)

func New(p Publisher) *Adapter { return &Adapter{Publisher: p} }

// NewWithPropagator allows configuring a HeaderPropagator for context propagation.
func NewWithPropagator(p Publisher, hp job.HeaderPropagator) *Adapter {
	return &Adapter{Publisher: p, Propagator: hp}
}

func (a *Adapter) Enqueue(ctx context.Context, d job.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Publisher == nil {
		return fmt.Errorf("rabbitmq enqueue %s: %w", d.Kind, berr.ErrEnqueueFailed)
	}

	body, err := job.Marshal(d)
	if err != nil {
		return fmt.Errorf("rabbitmq enqueue serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	// fresh map per message so propagators never mutate shared state
	hdrs := job.Headers(d, nil)
	if a.Propagator != nil {
		a.Propagator.Inject(ctx, hdrs)
	}

	msg := PubMsg{
		Exchange:   jobsExchange,
		RoutingKey: job.Route(routingPrefix, d),
		Body:       body,
		Headers:    hdrs,
	}

	if err := a.Publisher.Publish(ctx, msg); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("rabbitmq enqueue publish: %w", errors.Join(berr.ErrEnqueueFailed, err))
	}

	return nil
}

func publishing(m PubMsg) amqp.Publishing {
	var h amqp.Table
	if len(m.Headers) > 0 {
		h = amqp.Table{}
		for k, v := range m.Headers {
			h[k] = v
		}
	}

	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Headers:      h,
		ContentType:  "application/json",
		MessageId:    m.Headers[job.HeaderID],
		Type:         m.Headers[job.HeaderKind],
		Body:         m.Body,
	}
}

type amqpChannelPublisher struct{ ch *amqp.Channel }

func (p amqpChannelPublisher) Publish(ctx context.Context, m PubMsg) error {
	return p.ch.PublishWithContext(ctx, m.Exchange, m.RoutingKey, false, false, publishing(m))
}

// NewWithAMQPChannel publishes through an already open channel. The caller
// owns the channel and must have declared the "jobs" exchange.
func NewWithAMQPChannel(ch *amqp.Channel) *Adapter {
	return &Adapter{Publisher: amqpChannelPublisher{ch: ch}}
}
