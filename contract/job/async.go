package job

import "time"

// Queueable indicates that a job prefers to be enqueued for async processing.
// Implement on job types that should be queued by default.
type Queueable interface {
	QueueName() string
	Delay() time.Duration
}

// ShouldQueue is an alias for Queueable kept for familiarity.
type ShouldQueue = Queueable

// Kinded lets a job type override the identifier derived from its Go type name.
type Kinded interface {
	JobKind() string
}
