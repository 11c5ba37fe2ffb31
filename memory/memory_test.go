package memory

import (
	"context"
	"testing"

	"github.com/next-trace/scg-jobtest/contract/job"
)

func TestNewMemoryDispatcher_BasicFlow(t *testing.T) {
	d, q, cleanup := New(nil)
	defer cleanup()

	ctx := context.Background()

	performed := 0
	if err := d.Register("test", func(ctx context.Context, _ job.Descriptor) error {
		performed++
		return nil
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if _, err := d.Enqueue(ctx, job.Pending{Kind: "test"}); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if q.Len() != 1 || performed != 0 {
		t.Fatalf("enqueue must not perform: len=%d performed=%d", q.Len(), performed)
	}

	n, err := d.PerformEnqueued(ctx, nil)
	if err != nil || n != 1 {
		t.Fatalf("perform enqueued: n=%d err=%v", n, err)
	}

	if performed != 1 || q.Len() != 0 {
		t.Fatalf("performed=%d len=%d", performed, q.Len())
	}

	// Cleanup is safe to call more than once
	cleanup()
}
