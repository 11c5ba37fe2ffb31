package job

// EventType distinguishes the two observable moments of a job's life.
type EventType int

const (
	// Enqueued fires when a job is scheduled for later execution.
	Enqueued EventType = iota + 1
	// Performed fires after a job ran to completion.
	Performed
)

func (t EventType) String() string {
	switch t {
	case Enqueued:
		return "enqueued"
	case Performed:
		return "performed"
	default:
		return "unknown"
	}
}

// Event is raised by a job-queue adapter.
type Event struct {
	Type EventType
	Job  Descriptor
}

// Listener receives events. Listeners may be called from any goroutine that
// enqueues or performs jobs.
type Listener func(Event)

// EventSource lets observers attach to a queue's event stream. The returned
// function detaches the listener; calling it more than once is a no-op.
type EventSource interface {
	Subscribe(l Listener) (unsubscribe func())
}
