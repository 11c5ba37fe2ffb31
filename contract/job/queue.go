package job

import (
	"fmt"
	"strings"
)

// DefaultQueue is used when neither the dispatch nor any configuration names a queue.
const DefaultQueue = "default"

// Symbol is a symbol-like queue identifier. Symbol("mailers") and "mailers"
// resolve to the same queue key.
type Symbol string

func (s Symbol) String() string { return ":" + string(s) }

// QueueResolver maps a job kind to the queue it is configured to run on.
type QueueResolver interface {
	ResolveQueue(kind string) (string, error)
}

// QueueResolverFunc adapts a function to QueueResolver.
type QueueResolverFunc func(kind string) (string, error)

func (f QueueResolverFunc) ResolveQueue(kind string) (string, error) { return f(kind) }

// QueueKey normalizes a configured queue value into its comparison key.
// nil, empty strings and unsupported types report ok=false.
func QueueKey(v any) (key string, ok bool) {
	switch q := v.(type) {
	case nil:
		return "", false
	case string:
		key = q
	case Symbol:
		key = string(q)
	case *string:
		if q == nil {
			return "", false
		}

		key = *q
	case fmt.Stringer:
		key = strings.TrimPrefix(q.String(), ":")
	default:
		return "", false
	}

	return key, key != ""
}
