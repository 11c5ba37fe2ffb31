// Package job holds the transport-agnostic job contracts shared by the
// dispatcher, the queue adapters and the test harness.
package job

import "time"

// Descriptor is the normalized record of a scheduled or executed unit of work.
// Descriptors are treated as immutable once produced; use Clone before handing
// one to code that may retain it.
type Descriptor struct {
	ID          string
	Kind        string
	Queue       string
	EnqueuedAt  time.Time
	ScheduledAt time.Time // zero unless the job was delayed
	Args        []any
	NamedArgs   map[string]any
	Params      map[string]any // bound construction parameters, nil when unbound
}

// Clone returns a copy whose argument containers are not shared with d.
func (d Descriptor) Clone() Descriptor {
	c := d
	c.Args = cloneSlice(d.Args)
	c.NamedArgs = cloneMap(d.NamedArgs)
	c.Params = cloneMap(d.Params)

	return c
}

// Scheduled reports whether the job was enqueued with a delay.
func (d Descriptor) Scheduled() bool { return !d.ScheduledAt.IsZero() }

// Pending is a dispatch before it has been introspected into a Descriptor.
// Queue may be nil, a string or a Symbol. Params may be a raw map or any value
// implementing Normalizer.
type Pending struct {
	Kind      string
	Queue     any
	Args      []any
	NamedArgs map[string]any
	Params    any
	Delay     time.Duration
	At        time.Time
}
