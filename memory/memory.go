package memory

import (
	"log/slog"

	"github.com/next-trace/scg-jobtest/adapters/inmemory"
	"github.com/next-trace/scg-jobtest/queue"
)

// New constructs a dispatcher backed by the in-memory queue and returns both
// along with a cleanup function that closes the dispatcher.
func New(logger *slog.Logger, opts ...queue.Option) (*queue.Dispatcher, *inmemory.Queue, func()) {
	q := inmemory.New()
	d := queue.New(q, logger, opts...)
	cleanup := func() {
		q.Clear()
		_ = d.Close()
	}

	return d, q, cleanup
}
