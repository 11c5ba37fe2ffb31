// Package mailer dispatches mail deliveries as jobs. A delivery is either
// performed immediately (DeliverNow) or enqueued as a DeliveryJobKind job
// (DeliverLater) that a worker later hands to a Sink. Building and encoding
// the actual message is left to the Sink.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
	"github.com/next-trace/scg-jobtest/queue"
)

// DeliveryJobKind is the job kind of every mail delivery.
const DeliveryJobKind = "mailer.DeliveryJob"

// deliveryMode is the third positional argument of a delivery job.
const deliveryMode = "deliver_now"

// Mailer names a group of mail methods.
type Mailer interface {
	MailerName() string
}

// QueueConfigurer is implemented by mailers that deliver later on their own
// queue. A nil result means unset.
type QueueConfigurer interface {
	DeliverLaterQueueName() any
}

// Parameterized binds parameters to a mailer.
type Parameterized struct {
	Mailer Mailer
	params map[string]any
}

// With binds params to m.
func With(m Mailer, params map[string]any) Parameterized {
	return Parameterized{Mailer: m, params: params}
}

// Normalize implements job.Normalizer.
func (p Parameterized) Normalize() any { return p.params }

// Mail builds a parameterized delivery.
func (p Parameterized) Mail(method string, args ...any) Delivery {
	return Delivery{Mailer: p.Mailer, Method: method, Args: args, Params: p}
}

// Delivery is a mail method call waiting to be delivered.
type Delivery struct {
	Mailer Mailer
	Method string
	Args   []any
	Params any // nil, a raw map or Parameterized
}

// Mail builds a delivery of m.method(args...).
func Mail(m Mailer, method string, args ...any) Delivery {
	return Delivery{Mailer: m, Method: method, Args: args}
}

// Message is what reaches a Sink.
type Message struct {
	Mailer string
	Method string
	Args   []any
	Params map[string]any
}

// MessageOf decodes a delivery job. ok is false for other kinds.
func MessageOf(d job.Descriptor) (msg Message, ok bool) {
	if d.Kind != DeliveryJobKind || len(d.Args) < 2 {
		return Message{}, false
	}

	msg.Mailer, _ = d.Args[0].(string)
	msg.Method, _ = d.Args[1].(string)
	msg.Params = d.Params

	if args, ok := d.NamedArgs["args"].([]any); ok {
		msg.Args = args
	}

	return msg, true
}

// Option configures DeliverLater.
type Option func(*job.Pending)

// Wait delays the delivery.
func Wait(d time.Duration) Option {
	return func(p *job.Pending) { p.Delay = d }
}

// WaitUntil schedules the delivery at t.
func WaitUntil(t time.Time) Option {
	return func(p *job.Pending) { p.At = t }
}

// OnQueue overrides the queue. Accepts a string or job.Symbol.
func OnQueue(q any) Option {
	return func(p *job.Pending) { p.Queue = q }
}

// Deliverer performs delivery jobs by handing their message to a Sink.
type Deliverer struct {
	d    *queue.Dispatcher
	sink Sink
}

// NewDeliverer registers the delivery performer on d.
func NewDeliverer(d *queue.Dispatcher, sink Sink) (*Deliverer, error) {
	if sink == nil {
		return nil, errors.New("new deliverer: sink is required")
	}

	dl := &Deliverer{d: d, sink: sink}
	if err := d.Register(DeliveryJobKind, dl.perform); err != nil {
		return nil, err
	}

	return dl, nil
}

// DeliverLater enqueues del. The queue is taken from OnQueue, then from the
// mailer's DeliverLaterQueueName, then from the dispatcher's configuration.
func (dl *Deliverer) DeliverLater(ctx context.Context, del Delivery, opts ...Option) (job.Descriptor, error) {
	p := pendingFor(del)

	if qc, ok := del.Mailer.(QueueConfigurer); ok {
		if q := qc.DeliverLaterQueueName(); q != nil {
			p.Queue = q
		}
	}

	for _, o := range opts {
		o(&p)
	}

	return dl.d.Enqueue(ctx, p)
}

// DeliverNow performs del synchronously.
func (dl *Deliverer) DeliverNow(ctx context.Context, del Delivery) error {
	_, err := dl.d.PerformNow(ctx, pendingFor(del))
	return err
}

func (dl *Deliverer) perform(ctx context.Context, d job.Descriptor) error {
	msg, ok := MessageOf(d)
	if !ok {
		return fmt.Errorf("deliver %s: malformed arguments: %w", d.ID, berr.ErrHandlerTypeMismatch)
	}

	return dl.sink.Deliver(ctx, msg)
}

func pendingFor(del Delivery) job.Pending {
	args := del.Args
	if args == nil {
		args = []any{}
	}

	return job.Pending{
		Kind:      DeliveryJobKind,
		Args:      []any{del.Mailer.MailerName(), del.Method, deliveryMode},
		NamedArgs: map[string]any{"args": args},
		Params:    del.Params,
	}
}
