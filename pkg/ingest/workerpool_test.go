package ingest

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func noop(context.Context) error { return nil }

func TestWorkerPoolDrainsQueueOnClose(t *testing.T) {
	p := NewWorkerPool(3, 8)
	p.Start(context.Background())

	var ran atomic.Int64
	const n = 64
	for i := 0; i < n; i++ {
		if err := p.Submit(func(context.Context) error {
			ran.Add(1)
			return nil
		}); err != nil {
			t.Fatalf("submit %d failed: %v", i, err)
		}
	}
	p.Close()

	if got := ran.Load(); got != n {
		t.Fatalf("expected %d jobs to run before Close returned, ran %d", n, got)
	}
}

func TestWorkerPoolRejectsAfterClose(t *testing.T) {
	p := NewWorkerPool(1, 2)
	p.Start(context.Background())
	p.Close()
	// Close twice is allowed.
	p.Close()

	if err := p.Submit(noop); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed, got %v", err)
	}
	if err := p.SubmitCtx(context.Background(), noop); err != ErrPoolClosed {
		t.Fatalf("expected ErrPoolClosed from SubmitCtx, got %v", err)
	}
}

func TestWorkerPoolCloseReleasesBlockedSubmit(t *testing.T) {
	// No workers run, so the second job waits on the full queue.
	p := NewWorkerPool(1, 1)
	if err := p.Submit(noop); err != nil {
		t.Fatalf("setup submit failed: %v", err)
	}

	blocked := make(chan error, 1)
	go func() { blocked <- p.Submit(noop) }()
	time.Sleep(10 * time.Millisecond)
	p.Close()

	select {
	case err := <-blocked:
		if err != ErrPoolClosed {
			t.Fatalf("expected ErrPoolClosed, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("blocked Submit was not released by Close")
	}
}

func TestWorkerPoolSubmitCtxHonoursDeadline(t *testing.T) {
	p := NewWorkerPool(1, 1)
	defer p.Close()
	if err := p.Submit(noop); err != nil {
		t.Fatalf("setup submit failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := p.SubmitCtx(ctx, noop); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
}

func TestWorkerPoolStopsOnCancelledContext(t *testing.T) {
	p := NewWorkerPool(2, 16)
	ctx, cancel := context.WithCancel(context.Background())
	p.Start(ctx)
	cancel()

	closed := make(chan struct{})
	go func() {
		p.Close()
		close(closed)
	}()
	select {
	case <-closed:
	case <-time.After(100 * time.Millisecond):
		t.Fatal("Close blocked after the worker context was cancelled")
	}
}
