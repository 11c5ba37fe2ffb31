package jobtest_test

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	berr "github.com/next-trace/scg-jobtest/contract/errors"
	"github.com/next-trace/scg-jobtest/contract/job"
	"github.com/next-trace/scg-jobtest/jobtest"
)

func Test_WindowLifecycle(t *testing.T) {
	d, _ := newQueue(t, nil)
	w := jobtest.NewWindow(d)

	if w.State() != jobtest.Inactive {
		t.Fatalf("new window state = %s", w.State())
	}

	snap, err := w.Observe(func() error {
		if w.State() != jobtest.Active {
			t.Fatalf("state inside body = %s", w.State())
		}

		enqueue(t, d, job.Pending{Kind: "test"})

		return nil
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	if w.State() != jobtest.Closed {
		t.Fatalf("state after observe = %s", w.State())
	}

	if len(snap.Enqueued) != 1 || snap.Enqueued[0].Kind != "test" {
		t.Fatalf("enqueued = %+v", snap.Enqueued)
	}

	if len(snap.Performed) != 0 {
		t.Fatalf("performed = %+v", snap.Performed)
	}

	// closed windows stay closed and record nothing more
	enqueue(t, d, job.Pending{Kind: "test"})

	if got := len(w.Snapshot().Enqueued); got != 1 {
		t.Fatalf("closed window recorded %d jobs", got)
	}
}

func Test_WindowReuseFails(t *testing.T) {
	d, _ := newQueue(t, nil)
	w := jobtest.NewWindow(d)

	if _, err := w.Observe(nil); err != nil {
		t.Fatalf("observe: %v", err)
	}

	_, err := w.Observe(func() error { return nil })
	if !errors.Is(err, berr.ErrInvalidWindowState) {
		t.Fatalf("want ErrInvalidWindowState, got %v", err)
	}

	var ws *jobtest.InvalidWindowStateError
	if !errors.As(err, &ws) || ws.State != jobtest.Closed {
		t.Fatalf("want closed state in %v", err)
	}

	active := jobtest.NewWindow(d)
	if err := active.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := active.Start(); !errors.Is(err, berr.ErrInvalidWindowState) {
		t.Fatalf("double start: %v", err)
	}

	active.Stop()
	active.Stop()
}

func Test_WindowBodyErrorTearsDown(t *testing.T) {
	d, _ := newQueue(t, nil)
	w := jobtest.NewWindow(d)
	boom := errors.New("boom")

	snap, err := w.Observe(func() error {
		enqueue(t, d, job.Pending{Kind: "test"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("want body error, got %v", err)
	}

	if len(snap.Enqueued) != 1 {
		t.Fatalf("partial snapshot lost: %+v", snap)
	}

	if w.State() != jobtest.Closed {
		t.Fatalf("state = %s", w.State())
	}
}

func Test_WindowPanicTearsDown(t *testing.T) {
	d, _ := newQueue(t, nil)
	w := jobtest.NewWindow(d)

	func() {
		defer func() {
			if r := recover(); r != "kaboom" {
				t.Fatalf("recovered %v", r)
			}
		}()

		_, _ = w.Observe(func() error {
			enqueue(t, d, job.Pending{Kind: "test"})
			panic("kaboom")
		})
	}()

	if w.State() != jobtest.Closed {
		t.Fatalf("state after panic = %s", w.State())
	}

	enqueue(t, d, job.Pending{Kind: "test"})

	if got := len(w.Snapshot().Enqueued); got != 1 {
		t.Fatalf("listener still attached after panic: %d jobs", got)
	}
}

func Test_NestedWindowsMerge(t *testing.T) {
	d, _ := newQueue(t, nil)
	outer := jobtest.NewWindow(d)

	var inner jobtest.Snapshot

	snap, err := outer.Observe(func() error {
		enqueue(t, d, job.Pending{Kind: "outer"})

		var err error

		inner, err = jobtest.NewWindow(d).Observe(func() error {
			enqueue(t, d, job.Pending{Kind: "inner"})
			return nil
		})

		return err
	})
	if err != nil {
		t.Fatalf("observe: %v", err)
	}

	if len(inner.Enqueued) != 1 || inner.Enqueued[0].Kind != "inner" {
		t.Fatalf("inner = %+v", inner.Enqueued)
	}

	if len(snap.Enqueued) != 2 || snap.Enqueued[0].Kind != "outer" || snap.Enqueued[1].Kind != "inner" {
		t.Fatalf("outer = %+v", snap.Enqueued)
	}
}

func Test_SequentialWindowsIsolated(t *testing.T) {
	d, _ := newQueue(t, nil)

	first, _ := jobtest.NewWindow(d).Observe(func() error {
		enqueue(t, d, job.Pending{Kind: "a"})
		enqueue(t, d, job.Pending{Kind: "b"})

		return nil
	})

	second, _ := jobtest.NewWindow(d).Observe(func() error {
		enqueue(t, d, job.Pending{Kind: "c"})
		return nil
	})

	if len(first.Enqueued) != 2 || len(second.Enqueued) != 1 || second.Enqueued[0].Kind != "c" {
		t.Fatalf("windows leaked: first=%d second=%+v", len(first.Enqueued), second.Enqueued)
	}
}

func Test_WindowRecordsCopies(t *testing.T) {
	d, _ := newQueue(t, nil)
	args := []any{map[string]any{"to": "a@x.com"}}

	snap, _ := jobtest.NewWindow(d).Observe(func() error {
		enqueue(t, d, job.Pending{Kind: "test", Args: args})
		return nil
	})

	args[0].(map[string]any)["to"] = "changed"

	got := snap.Enqueued[0].Args[0].(map[string]any)["to"]
	if got != "a@x.com" {
		t.Fatalf("recorded args alias caller data: %v", got)
	}
}

func Test_WindowConcurrentEnqueue(t *testing.T) {
	const workers = 50

	d, q := newQueue(t, nil)
	rec := jobtest.NewRecorder(d)
	defer rec.Close()

	got, err := rec.CountEnqueued(workers, jobtest.Filter{}, func() error {
		var wg sync.WaitGroup

		errs := make(chan error, workers)

		for i := range workers {
			wg.Add(1)

			go func() {
				defer wg.Done()

				if _, err := d.Enqueue(t.Context(), job.Pending{Kind: "test", Args: []any{i}}); err != nil {
					errs <- fmt.Errorf("worker %d: %w", i, err)
				}
			}()
		}

		wg.Wait()
		close(errs)

		return errors.Join(collect(errs)...)
	})
	if err != nil {
		t.Fatalf("concurrent enqueue: %v", err)
	}

	ids := make(map[string]struct{}, len(got))
	for _, desc := range got {
		ids[desc.ID] = struct{}{}
	}

	if len(ids) != workers || q.Len() != workers {
		t.Fatalf("distinct ids=%d pending=%d", len(ids), q.Len())
	}
}

func collect(errs <-chan error) []error {
	var out []error
	for err := range errs {
		out = append(out, err)
	}

	return out
}
