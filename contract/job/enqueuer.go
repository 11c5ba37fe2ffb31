package job

import "context"

// Enqueuer hands a described job to a queue backend.
// Library users provide an implementation backed by their queue/broker.
type Enqueuer interface {
	Enqueue(ctx context.Context, d Descriptor) error
}

// Drainer is implemented by enqueuers that keep jobs in process, such as the
// in-memory adapter. Drain removes and returns, in enqueue order, every pending
// job accepted by keep (nil keeps all).
type Drainer interface {
	Drain(keep func(Descriptor) bool) []Descriptor
}
