package jobtest_test

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/next-trace/scg-jobtest/adapters/inmemory"
	"github.com/next-trace/scg-jobtest/contract/job"
	"github.com/next-trace/scg-jobtest/queue"
)

var epoch = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

// newQueue returns a dispatcher over an in-memory queue with deterministic
// ids and a no-op performer for kinds.
func newQueue(t *testing.T, kinds []string, opts ...queue.Option) (*queue.Dispatcher, *inmemory.Queue) {
	t.Helper()

	var n atomic.Int64

	opts = append([]queue.Option{
		queue.WithClock(func() time.Time { return epoch }),
		queue.WithIDGenerator(func() string {
			return fmt.Sprintf("id-%d", n.Add(1))
		}),
	}, opts...)

	q := inmemory.New()
	d := queue.New(q, nil, opts...)

	for _, k := range kinds {
		if err := d.Register(k, func(context.Context, job.Descriptor) error { return nil }); err != nil {
			t.Fatalf("register %s: %v", k, err)
		}
	}

	t.Cleanup(func() { _ = d.Close() })

	return d, q
}

func enqueue(t *testing.T, d *queue.Dispatcher, p job.Pending) job.Descriptor {
	t.Helper()

	desc, err := d.Enqueue(t.Context(), p)
	if err != nil {
		t.Fatalf("enqueue %s: %v", p.Kind, err)
	}

	return desc
}

// bound stands for a parameters object wrapping a raw map.
type bound struct{ params map[string]any }

func (b bound) Normalize() any { return b.params }

// fakeT records Fatal calls and aborts the calling assertion with a panic.
type fakeT struct {
	fatals   []string
	cleanups []func()
}

var errFatal = errors.New("fatal")

func (f *fakeT) Helper() {}

func (f *fakeT) Fatal(args ...any) {
	f.fatals = append(f.fatals, fmt.Sprint(args...))
	panic(errFatal)
}

func (f *fakeT) Cleanup(fn func()) { f.cleanups = append(f.cleanups, fn) }

func (f *fakeT) cleanup() {
	for i := len(f.cleanups) - 1; i >= 0; i-- {
		f.cleanups[i]()
	}
}

// expectFatal runs fn and returns the Fatal message it produced.
func expectFatal(t *testing.T, ft *fakeT, fn func()) (msg string) {
	t.Helper()

	defer func() {
		r := recover()
		if r == nil {
			t.Fatalf("expected the assertion to fail")
		}

		if r != errFatal {
			panic(r)
		}

		msg = ft.fatals[len(ft.fatals)-1]
	}()

	fn()

	return ""
}
