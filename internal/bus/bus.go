package bus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"permgate/internal/domain"
)

const publishTimeout = 10 * time.Second

// ErrQueueClosed is returned when publishing to a closed queue.
var ErrQueueClosed = errors.New("audit queue closed")

// AuditSink durably receives audit entries.
type AuditSink interface {
	LogAudit(ctx context.Context, entry domain.AuditEntry) error
}

// AuditQueue decouples the enforcer from a slow audit sink. Entries are
// buffered in a channel and written by Drain in publish order.
type AuditQueue struct {
	entries chan domain.AuditEntry
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
	logger  *slog.Logger
}

// NewAuditQueue creates a queue with the given buffer size.
func NewAuditQueue(bufferSize int, logger *slog.Logger) *AuditQueue {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditQueue{
		entries: make(chan domain.AuditEntry, bufferSize),
		timeout: publishTimeout,
		logger:  logger,
	}
}

// LogAudit enqueues an entry. It blocks up to 10 seconds when the buffer is
// full and drops the entry after that.
func (q *AuditQueue) LogAudit(ctx context.Context, entry domain.AuditEntry) error {
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		return ErrQueueClosed
	}

	select {
	case q.entries <- entry:
		return nil
	default:
	}

	q.logger.Warn("audit queue full, waiting...", "id", entry.ID)
	timer := time.NewTimer(q.timeout)
	defer timer.Stop()
	select {
	case q.entries <- entry:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		q.logger.Error("audit entry dropped: queue full", "id", entry.ID, "wait", q.timeout)
		return errors.New("audit queue full")
	}
}

// Len returns the number of buffered entries.
func (q *AuditQueue) Len() int {
	return len(q.entries)
}

// Drain writes queued entries to sink until ctx is cancelled or the queue is
// closed and empty. Sink errors are logged and the entry is skipped.
func (q *AuditQueue) Drain(ctx context.Context, sink AuditSink) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case entry, ok := <-q.entries:
			if !ok {
				return nil
			}
			if err := sink.LogAudit(ctx, entry); err != nil {
				q.logger.Error("audit sink write failed", "id", entry.ID, "error", err)
			}
		}
	}
}

// Close stops accepting entries. Drain returns once the buffer is empty.
func (q *AuditQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if !q.closed {
		q.closed = true
		close(q.entries)
	}
}
