package job

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Wire headers carried next to every envelope.
const (
	HeaderID    = "x-job-id"
	HeaderKind  = "x-job-kind"
	HeaderDelay = "x-delay"
)

// Envelope is the JSON shape transports put on the wire.
type Envelope struct {
	ID          string         `json:"id"`
	Kind        string         `json:"kind"`
	Queue       string         `json:"queue"`
	EnqueuedAt  time.Time      `json:"enqueued_at"`
	ScheduledAt *time.Time     `json:"scheduled_at,omitempty"`
	Args        []any          `json:"args"`
	NamedArgs   map[string]any `json:"named_args,omitempty"`
	Params      map[string]any `json:"params,omitempty"`
}

// EnvelopeOf converts a descriptor into its wire form.
func EnvelopeOf(d Descriptor) Envelope {
	env := Envelope{
		ID:         d.ID,
		Kind:       d.Kind,
		Queue:      d.Queue,
		EnqueuedAt: d.EnqueuedAt,
		Args:       d.Args,
		NamedArgs:  d.NamedArgs,
		Params:     d.Params,
	}

	if env.Args == nil {
		env.Args = []any{}
	}

	if d.Scheduled() {
		at := d.ScheduledAt
		env.ScheduledAt = &at
	}

	return env
}

// Descriptor converts the wire form back. Argument values come back as
// encoding/json decodes them.
func (e Envelope) Descriptor() Descriptor {
	d := Descriptor{
		ID:         e.ID,
		Kind:       e.Kind,
		Queue:      e.Queue,
		EnqueuedAt: e.EnqueuedAt,
		Args:       e.Args,
		NamedArgs:  e.NamedArgs,
		Params:     e.Params,
	}

	if e.ScheduledAt != nil {
		d.ScheduledAt = *e.ScheduledAt
	}

	return d
}

// Marshal encodes d as a JSON envelope.
func Marshal(d Descriptor) ([]byte, error) {
	b, err := json.Marshal(EnvelopeOf(d))
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", d.Kind, err)
	}

	return b, nil
}

// Unmarshal decodes a JSON envelope.
func Unmarshal(b []byte) (Descriptor, error) {
	var env Envelope
	if err := json.Unmarshal(b, &env); err != nil {
		return Descriptor{}, fmt.Errorf("unmarshal envelope: %w", err)
	}

	return env.Descriptor(), nil
}

// Headers returns the transport headers for d merged over extra.
func Headers(d Descriptor, extra map[string]string) map[string]string {
	h := make(map[string]string, len(extra)+3)
	for k, v := range extra {
		h[k] = v
	}

	h[HeaderID] = d.ID
	h[HeaderKind] = d.Kind

	if d.Scheduled() {
		if delay := d.ScheduledAt.Sub(d.EnqueuedAt); delay > 0 {
			h[HeaderDelay] = strconv.Itoa(int(delay.Seconds()))
		}
	}

	return h
}

// Route returns "<prefix><queue>", the subject/topic/routing key for d.
func Route(prefix string, d Descriptor) string {
	if d.Queue == "" {
		return prefix + DefaultQueue
	}

	return prefix + d.Queue
}
