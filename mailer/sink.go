package mailer

import (
	"context"
	"sync"
)

// Sink receives messages once their delivery job runs.
type Sink interface {
	Deliver(ctx context.Context, m Message) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, m Message) error

func (f SinkFunc) Deliver(ctx context.Context, m Message) error { return f(ctx, m) }

// TestSink keeps every delivered message in memory.
type TestSink struct {
	mu   sync.Mutex
	msgs []Message
}

var _ Sink = (*TestSink)(nil)

func (s *TestSink) Deliver(ctx context.Context, m Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.msgs = append(s.msgs, m)
	s.mu.Unlock()

	return nil
}

// Deliveries returns the delivered messages in order.
func (s *TestSink) Deliveries() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]Message(nil), s.msgs...)
}

// Reset forgets every delivered message.
func (s *TestSink) Reset() {
	s.mu.Lock()
	s.msgs = nil
	s.mu.Unlock()
}
