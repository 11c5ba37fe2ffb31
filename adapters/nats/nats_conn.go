package nats

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
)

// DefaultStream captures every jobs.<queue> subject when publishing through JetStream.
const DefaultStream = "JOBS"

const setupTimeout = 5 * time.Second

type Config struct {
	URL           string
	Name          string
	ConnTimeout   time.Duration
	MaxReconnects int

	// JetStream publishes jobs into a stream so they survive until a worker
	// acks them. The job id is the message id, so JetStream drops a job
	// enqueued twice within DedupeWindow.
	JetStream    bool
	Stream       string        // DefaultStream when empty
	DedupeWindow time.Duration // server default when zero
}

// StreamConfig is the stream created or updated when JetStream is enabled.
func (c Config) StreamConfig() jetstream.StreamConfig {
	name := c.Stream
	if name == "" {
		name = DefaultStream
	}

	return jetstream.StreamConfig{
		Name:       name,
		Subjects:   []string{subjectPrefix + ">"},
		Retention:  jetstream.WorkQueuePolicy,
		Duplicates: c.DedupeWindow,
	}
}

type natsClient struct {
	nc *nats.Conn
	js jetstream.JetStream // nil for core NATS
}

func (c natsClient) Publish(ctx context.Context, subject string, data []byte, headers map[string]string) error {
	msg := nats.NewMsg(subject)
	msg.Data = data

	for k, v := range headers {
		msg.Header.Set(k, v)
	}

	if c.js != nil {
		_, err := c.js.PublishMsg(ctx, msg)
		return err
	}

	if err := c.nc.PublishMsg(msg); err != nil {
		return err
	}

	// FlushWithContext rejects contexts without a deadline
	if _, ok := ctx.Deadline(); ok {
		return c.nc.FlushWithContext(ctx)
	}

	return c.nc.Flush()
}

// NewWithNATS connects to NATS, optionally ensures the jobs stream, and
// returns an Adapter and a cleanup.
func NewWithNATS(cfg Config) (*Adapter, func(), error) {
	if cfg.URL == "" {
		return nil, nil, fmt.Errorf("%w: nats url required", berr.ErrEnqueueFailed)
	}

	opts := []nats.Option{}
	if cfg.Name != "" {
		opts = append(opts, nats.Name(cfg.Name))
	}

	if cfg.ConnTimeout > 0 {
		opts = append(opts, nats.Timeout(cfg.ConnTimeout))
	}

	if cfg.MaxReconnects != 0 {
		opts = append(opts, nats.MaxReconnects(cfg.MaxReconnects))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: nats connect: %w", berr.ErrEnqueueFailed, err)
	}

	cleanup := func() {
		if !nc.IsClosed() {
			_ = nc.Drain() //nolint:errcheck // best-effort shutdown; cannot return error here
			nc.Close()
		}
	}

	client := natsClient{nc: nc}

	if cfg.JetStream {
		js, err := setupStream(nc, cfg)
		if err != nil {
			cleanup()
			return nil, nil, err
		}

		client.js = js
	}

	return New(client), cleanup, nil
}

func setupStream(nc *nats.Conn, cfg Config) (jetstream.JetStream, error) {
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("%w: jetstream: %w", berr.ErrEnqueueFailed, err)
	}

	timeout := cfg.ConnTimeout
	if timeout <= 0 {
		timeout = setupTimeout
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	sc := cfg.StreamConfig()
	if _, err := js.CreateOrUpdateStream(ctx, sc); err != nil {
		return nil, fmt.Errorf("%w: ensure stream %s: %w", berr.ErrEnqueueFailed, sc.Name, err)
	}

	return js, nil
}
