package jobtest

import (
	"reflect"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/next-trace/scg-jobtest/contract/job"
)

// Criteria selects descriptors by value. Zero fields are wildcards; a nil
// Queue is inferred from configuration when Kind is set and a resolver is
// supplied.
type Criteria struct {
	Kind        string
	Args        []any
	NamedArgs   map[string]any
	Params      any // raw map or a job.Normalizer wrapper
	Queue       any // string, job.Symbol or nil
	ScheduledAt time.Time
}

// structural equality: empty equals nil, unexported fields are compared
var equalOpts = cmp.Options{
	cmpopts.EquateEmpty(),
	cmp.Exporter(func(reflect.Type) bool { return true }),
}

// Match returns the observed descriptors satisfying every set field of c, in
// order. An empty result is a *NoMatchFoundError.
func Match(c Criteria, observed []job.Descriptor, r job.QueueResolver, noun Noun) ([]job.Descriptor, error) {
	queue, err := expectedQueue(c, r)
	if err != nil {
		return nil, err
	}

	want := viewOf(c, queue)

	var out []job.Descriptor

	for _, d := range observed {
		if c.Kind != "" && d.Kind != c.Kind {
			continue
		}

		if cmp.Equal(want, want.mask(d), equalOpts) {
			out = append(out, d)
		}
	}

	if len(out) > 0 {
		return out, nil
	}

	nm := &NoMatchFoundError{Criteria: c, Queue: queue, Noun: noun, Observed: observed}

	if c.Kind != "" {
		for _, d := range observed {
			if d.Kind == c.Kind {
				nm.Diffs = append(nm.Diffs, "-expected +actual:\n"+cmp.Diff(want, want.mask(d), equalOpts))
			}
		}
	}

	return nil, nm
}

func expectedQueue(c Criteria, r job.QueueResolver) (string, error) {
	if q, ok := job.QueueKey(c.Queue); ok {
		return q, nil
	}

	if c.Kind == "" || r == nil {
		return "", nil
	}

	q, err := r.ResolveQueue(c.Kind)
	if err != nil {
		return "", &UnresolvableQueueNameError{Kind: c.Kind, Err: err}
	}

	if q == "" {
		q = job.DefaultQueue
	}

	return q, nil
}

// matchView is the comparable projection of a descriptor.
type matchView struct {
	Queue       string
	Args        any
	NamedArgs   any
	Params      any
	ScheduledAt time.Time
}

func viewOf(c Criteria, queue string) matchView {
	v := matchView{Queue: queue, ScheduledAt: c.ScheduledAt}

	if c.Args != nil {
		v.Args = job.Normalize(c.Args)
	}

	if c.NamedArgs != nil {
		v.NamedArgs = job.Normalize(c.NamedArgs)
	}

	if c.Params != nil {
		v.Params = job.Normalize(c.Params)
	}

	return v
}

// mask projects d onto the fields set in want so wildcards never differ.
func (want matchView) mask(d job.Descriptor) matchView {
	var v matchView

	if want.Queue != "" {
		v.Queue = d.Queue
	}

	if want.Args != nil {
		v.Args = emptyAsSlice(job.Normalize(d.Args))
	}

	if want.NamedArgs != nil {
		v.NamedArgs = emptyAsMap(job.Normalize(d.NamedArgs))
	}

	if want.Params != nil {
		v.Params = emptyAsMap(job.Normalize(d.Params))
	}

	if !want.ScheduledAt.IsZero() {
		v.ScheduledAt = d.ScheduledAt
	}

	return v
}

// keep a typed empty container so an expected empty value still compares
// against a descriptor that recorded none
func emptyAsSlice(v any) any {
	if s, ok := v.([]any); ok && s == nil {
		return []any{}
	}

	return v
}

func emptyAsMap(v any) any {
	if m, ok := v.(map[string]any); ok && m == nil {
		return map[string]any{}
	}

	return v
}
