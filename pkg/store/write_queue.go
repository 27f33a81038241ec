package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/calmstack/declutter/pkg/logger"
	"github.com/sirupsen/logrus"
)

var wqLog *logrus.Entry

func init() {
	wqLog = logger.WithName("write-queue")
}

// WriteQueue serializes all write operations through a single goroutine.
// SQLite supports one writer at a time; concurrent writes from the HTTP
// handlers, the scheduler, and the scan commit path would otherwise race
// into "database is locked" errors.
type WriteQueue struct {
	db      *sql.DB
	queue   chan writeRequest
	done    chan struct{}
	wg      sync.WaitGroup
	started bool
	mu      sync.Mutex
}

type writeRequest struct {
	ctx       context.Context
	operation func(db *sql.DB) error
	result    chan error
}

// WriteQueueConfig configures queue buffering.
type WriteQueueConfig struct {
	// QueueSize is the buffer size for pending requests (default 100).
	QueueSize int
	// WriteTimeout bounds how long a submitter waits (default 30s).
	WriteTimeout time.Duration
}

// DefaultWriteQueueConfig returns sensible defaults.
func DefaultWriteQueueConfig() *WriteQueueConfig {
	return &WriteQueueConfig{
		QueueSize:    100,
		WriteTimeout: 30 * time.Second,
	}
}

// NewWriteQueue creates a queue bound to db. Start must be called before
// Submit.
func NewWriteQueue(db *sql.DB, config *WriteQueueConfig) *WriteQueue {
	if config == nil {
		config = DefaultWriteQueueConfig()
	}
	return &WriteQueue{
		db:    db,
		queue: make(chan writeRequest, config.QueueSize),
		done:  make(chan struct{}),
	}
}

// Start begins processing write requests.
func (wq *WriteQueue) Start() {
	wq.mu.Lock()
	defer wq.mu.Unlock()

	if wq.started {
		return
	}
	wq.started = true
	wq.wg.Add(1)
	go wq.worker()

	wqLog.Debug("Write queue started")
}

// Stop shuts the queue down after draining pending writes.
func (wq *WriteQueue) Stop() {
	wq.mu.Lock()
	if !wq.started {
		wq.mu.Unlock()
		return
	}
	wq.started = false
	wq.mu.Unlock()

	close(wq.done)
	wq.wg.Wait()

	wqLog.Debug("Write queue stopped")
}

// Submit queues a write and waits for it to complete.
func (wq *WriteQueue) Submit(ctx context.Context, operation func(db *sql.DB) error) error {
	wq.mu.Lock()
	if !wq.started {
		wq.mu.Unlock()
		return fmt.Errorf("write queue not started")
	}
	wq.mu.Unlock()

	result := make(chan error, 1)
	req := writeRequest{ctx: ctx, operation: operation, result: result}

	select {
	case wq.queue <- req:
	case <-ctx.Done():
		return ctx.Err()
	case <-wq.done:
		return fmt.Errorf("write queue is shutting down")
	}

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-wq.done:
		return fmt.Errorf("write queue shut down while waiting for result")
	}
}

// SubmitTx queues a write that runs inside a transaction, committed on
// success and rolled back on error.
func (wq *WriteQueue) SubmitTx(ctx context.Context, operation func(tx *sql.Tx) error) error {
	return wq.Submit(ctx, func(db *sql.DB) error {
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}

		if err := operation(tx); err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				wqLog.WithError(rbErr).Error("Failed to rollback transaction after error")
			}
			return err
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit transaction: %w", err)
		}
		return nil
	})
}

func (wq *WriteQueue) worker() {
	defer wq.wg.Done()

	for {
		select {
		case req := <-wq.queue:
			wq.process(req)
		case <-wq.done:
			wq.drain()
			return
		}
	}
}

func (wq *WriteQueue) process(req writeRequest) {
	if req.ctx != nil && req.ctx.Err() != nil {
		req.result <- req.ctx.Err()
		return
	}

	err := req.operation(wq.db)

	select {
	case req.result <- err:
	default:
		if err != nil {
			wqLog.WithError(err).Warn("Write failed but submitter is gone")
		}
	}
}

func (wq *WriteQueue) drain() {
	for {
		select {
		case req := <-wq.queue:
			wq.process(req)
		default:
			return
		}
	}
}
