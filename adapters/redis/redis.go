// Package redis stores job envelopes in Redis: ready jobs are pushed onto a
// per-queue list and delayed jobs go to a sorted set scored by their run time.
package redis

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
)

const (
	listPrefix   = "queue:"
	ScheduledKey = "jobs:scheduled"
)

// Client is the subset of *redis.Client the adapter needs.
type Client interface {
	LPush(ctx context.Context, key string, values ...any) *redis.IntCmd
	ZAdd(ctx context.Context, key string, members ...redis.Z) *redis.IntCmd
}

// Adapter implements job.Enqueuer on top of a Redis client.
type Adapter struct {
	Client Client
}

var _ job.Enqueuer = (*Adapter)(nil)

// New creates a new Redis adapter instance with the provided client.
func New(c Client) *Adapter { return &Adapter{Client: c} }

func (a *Adapter) Enqueue(ctx context.Context, d job.Descriptor) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if a.Client == nil {
		return fmt.Errorf("redis enqueue %s: %w", d.Kind, berr.ErrEnqueueFailed)
	}

	body, err := job.Marshal(d)
	if err != nil {
		return fmt.Errorf("redis enqueue serialize: %w", errors.Join(berr.ErrSerializationFailed, err))
	}

	var cmd *redis.IntCmd
	if d.Scheduled() && d.ScheduledAt.After(d.EnqueuedAt) {
		cmd = a.Client.ZAdd(ctx, ScheduledKey, redis.Z{Score: float64(d.ScheduledAt.Unix()), Member: body})
	} else {
		cmd = a.Client.LPush(ctx, ListKey(d.Queue), body)
	}

	if err := cmd.Err(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		return fmt.Errorf("redis enqueue %s: %w", d.Kind, errors.Join(berr.ErrEnqueueFailed, err))
	}

	return nil
}

// ListKey returns the list holding ready jobs of queue.
func ListKey(queue string) string {
	if queue == "" {
		queue = job.DefaultQueue
	}

	return listPrefix + queue
}

// Config configures NewWithRedis.
type Config struct {
	Addr     string
	Password string
	DB       int
}

// NewWithRedis connects to Redis, verifies the connection and returns an Adapter and a cleanup.
func NewWithRedis(ctx context.Context, cfg Config) (*Adapter, func(), error) {
	if cfg.Addr == "" {
		return nil, nil, fmt.Errorf("%w: redis addr required", berr.ErrEnqueueFailed)
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, nil, fmt.Errorf("%w: redis connect: %w", berr.ErrEnqueueFailed, err)
	}

	cleanup := func() { _ = rdb.Close() }

	return New(rdb), cleanup, nil
}
