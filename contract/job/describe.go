package job

import (
	"fmt"
	"reflect"
	"time"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
)

// KindOf returns the job kind of v: the Kinded override if present, otherwise
// the package-qualified Go type name with pointers stripped.
func KindOf(v any) string {
	if v == nil {
		return "<nil>"
	}

	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Ptr && rv.IsNil() {
		return kindOfType(rv.Type())
	}

	if k, ok := v.(Kinded); ok {
		return k.JobKind()
	}

	return elemOf(reflect.TypeOf(v)).String()
}

// KindFor returns the job kind of type J without a value of it. Pointer types
// share the kind of their element; interface types are named as such.
func KindFor[J any]() string {
	return kindOfType(reflect.TypeFor[J]())
}

// kindOfType asks a fresh zero value for its Kinded override, never a nil pointer.
func kindOfType(t reflect.Type) string {
	elem := elemOf(t)
	if elem.Kind() != reflect.Interface {
		if k, ok := reflect.New(elem).Interface().(Kinded); ok {
			return k.JobKind()
		}
	}

	return elem.String()
}

func elemOf(t reflect.Type) reflect.Type {
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	return t
}

// PendingFor builds the pending dispatch of a typed job value. The value itself
// is the single positional argument; Queueable values carry their queue and delay.
func PendingFor(v any) Pending {
	p := Pending{Kind: KindOf(v), Args: []any{v}}
	if q, ok := v.(Queueable); ok {
		p.Queue = q.QueueName()
		p.Delay = q.Delay()
	}

	return p
}

// Describe introspects a pending dispatch into a Descriptor. The queue comes
// from the dispatch itself, then from r, then DefaultQueue when r is nil.
func Describe(p Pending, r QueueResolver, now time.Time, id string) (Descriptor, error) {
	queue, err := resolveQueue(p, r)
	if err != nil {
		return Descriptor{}, err
	}

	params, err := normalizeParams(p.Params)
	if err != nil {
		return Descriptor{}, fmt.Errorf("describe %s: %w", p.Kind, err)
	}

	d := Descriptor{
		ID:         id,
		Kind:       p.Kind,
		Queue:      queue,
		EnqueuedAt: now,
		Args:       cloneSlice(p.Args),
		NamedArgs:  cloneMap(p.NamedArgs),
		Params:     params,
	}

	switch {
	case !p.At.IsZero():
		d.ScheduledAt = p.At
	case p.Delay > 0:
		d.ScheduledAt = now.Add(p.Delay)
	}

	return d, nil
}

func resolveQueue(p Pending, r QueueResolver) (string, error) {
	if q, ok := QueueKey(p.Queue); ok {
		return q, nil
	}

	if r == nil {
		return DefaultQueue, nil
	}

	q, err := r.ResolveQueue(p.Kind)
	if err != nil {
		return "", fmt.Errorf("resolve queue for %s: %w", p.Kind, err)
	}

	if q == "" {
		return DefaultQueue, nil
	}

	return q, nil
}

func normalizeParams(v any) (map[string]any, error) {
	switch n := Normalize(v).(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return n, nil
	default:
		return nil, fmt.Errorf("params normalize to %T, want map[string]any: %w", n, berr.ErrSerializationFailed)
	}
}
