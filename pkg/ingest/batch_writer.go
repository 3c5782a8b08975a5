package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// WriteFunc performs database writes inside a batch transaction. tx is nil
// when the writer has no database.
type WriteFunc func(ctx context.Context, tx *sql.Tx) error

// BatchWriter groups writes into transactions committed by a single
// goroutine. Seeding funnels every usage row and progress checkpoint
// through it, so SQLite sees one writer. A failing write rolls back its
// whole batch.
type BatchWriter struct {
	conn *sql.DB
	size int

	mu      sync.Mutex
	pending []WriteFunc
	closed  bool

	queue  chan []WriteFunc
	ticker *time.Ticker
	ctx    context.Context
	stop   context.CancelFunc
	wg     sync.WaitGroup

	// OnError is called for every failed or dropped batch.
	OnError func(error)
	// Logger receives a debug line per committed batch. nil means slog.Default().
	Logger *slog.Logger

	batches atomic.Int64
	writes  atomic.Int64

	errMu    sync.Mutex
	firstErr error
}

// NewBatchWriter starts a writer that commits once size writes are pending
// and, when interval is positive, at least every interval.
func NewBatchWriter(conn *sql.DB, size int, interval time.Duration) *BatchWriter {
	if size <= 0 {
		size = 10
	}
	ctx, stop := context.WithCancel(context.Background())
	bw := &BatchWriter{
		conn:    conn,
		size:    size,
		pending: make([]WriteFunc, 0, size),
		queue:   make(chan []WriteFunc, 1),
		ctx:     ctx,
		stop:    stop,
	}

	bw.wg.Add(1)
	go bw.commitLoop()

	if interval > 0 {
		bw.ticker = time.NewTicker(interval)
		bw.wg.Add(1)
		go bw.tickLoop()
	}
	return bw
}

// Submit queues w for the next batch. It blocks while the committer is a
// full batch behind.
func (bw *BatchWriter) Submit(w WriteFunc) error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed {
		return ErrBatchWriterClosed
	}
	bw.pending = append(bw.pending, w)
	if len(bw.pending) >= bw.size {
		bw.flushLocked()
	}
	return nil
}

// Flush hands pending writes to the committer without waiting for them to
// commit.
func (bw *BatchWriter) Flush() {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	bw.flushLocked()
}

func (bw *BatchWriter) flushLocked() {
	if len(bw.pending) == 0 {
		return
	}
	batch := bw.pending
	bw.pending = make([]WriteFunc, 0, bw.size)

	select {
	case bw.queue <- batch:
	case <-bw.ctx.Done():
		bw.fail(fmt.Errorf("batch writer: dropping batch of %d items due to context cancellation", len(batch)))
	}
}

func (bw *BatchWriter) fail(err error) {
	bw.errMu.Lock()
	if bw.firstErr == nil {
		bw.firstErr = err
	}
	bw.errMu.Unlock()
	if bw.OnError != nil {
		bw.OnError(err)
	}
}

func (bw *BatchWriter) logger() *slog.Logger {
	if bw.Logger != nil {
		return bw.Logger
	}
	return slog.Default()
}

func (bw *BatchWriter) commitLoop() {
	defer bw.wg.Done()
	for batch := range bw.queue {
		if err := bw.commit(batch); err != nil {
			bw.fail(err)
			continue
		}
		bw.batches.Add(1)
		bw.writes.Add(int64(len(batch)))
		bw.logger().Debug("batch committed", "writes", len(batch))
	}
}

func (bw *BatchWriter) tickLoop() {
	defer bw.wg.Done()
	for {
		select {
		case <-bw.ctx.Done():
			return
		case <-bw.ticker.C:
			bw.Flush()
		}
	}
}

func (bw *BatchWriter) commit(batch []WriteFunc) error {
	if bw.conn == nil {
		for _, w := range batch {
			if err := w(bw.ctx, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Commits outlive the writer's own context so Close can drain.
	ctx := context.Background()
	tx, err := bw.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, w := range batch {
		if err := w(ctx, tx); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch of %d writes: %w", len(batch), err)
	}
	return nil
}

// Stats reports how many batches and individual writes have been committed.
func (bw *BatchWriter) Stats() (batches, writes int64) {
	return bw.batches.Load(), bw.writes.Load()
}

// Close flushes pending writes, waits for them to commit and returns the
// first error seen by the writer. A second Close returns ErrBatchWriterClosed.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	if bw.closed {
		bw.mu.Unlock()
		return ErrBatchWriterClosed
	}
	bw.closed = true
	if bw.ticker != nil {
		bw.ticker.Stop()
	}
	bw.flushLocked()
	bw.mu.Unlock()

	bw.stop()
	close(bw.queue)
	bw.wg.Wait()

	bw.errMu.Lock()
	defer bw.errMu.Unlock()
	return bw.firstErr
}

// ErrBatchWriterClosed is returned by Submit and Close once Close has run.
var ErrBatchWriterClosed = &BatchWriterError{"batch writer closed"}

// BatchWriterError is the typed error for batch writer operations.
type BatchWriterError struct{ msg string }

func (e *BatchWriterError) Error() string { return e.msg }
