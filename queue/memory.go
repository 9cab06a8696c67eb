package queue

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// ErrQueueClosed is returned by Enqueue after Close.
var ErrQueueClosed = errors.New("queue closed")

// MemoryQueue is a bounded in-process queue. It is the default backend for
// single-instance deployments; Redis Streams takes over when enrichment is
// scaled out.
type MemoryQueue struct {
	ch     chan string
	done   chan struct{}
	logger *slog.Logger

	closeOnce sync.Once
}

// NewMemoryQueue creates a queue holding at most capacity pending ids.
func NewMemoryQueue(capacity int, logger *slog.Logger) *MemoryQueue {
	if capacity <= 0 {
		capacity = 1024
	}

	return &MemoryQueue{
		ch:     make(chan string, capacity),
		done:   make(chan struct{}),
		logger: logger,
	}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, articleID string) error {
	select {
	case <-q.done:
		return ErrQueueClosed
	default:
	}

	select {
	case q.ch <- articleID:
		return nil
	case <-q.done:
		return ErrQueueClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Consume delivers ids to the handler. After Close it drains what is already
// buffered, then returns.
func (q *MemoryQueue) Consume(ctx context.Context, handler Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case articleID := <-q.ch:
			q.handle(ctx, handler, articleID)
		case <-q.done:
			for {
				select {
				case articleID := <-q.ch:
					q.handle(ctx, handler, articleID)
				default:
					return nil
				}
			}
		}
	}
}

func (q *MemoryQueue) handle(ctx context.Context, handler Handler, articleID string) {
	if err := handler(ctx, articleID); err != nil {
		q.logger.ErrorContext(ctx, "failed to process queued article",
			"article_id", articleID,
			"error", err)
	}
}

func (q *MemoryQueue) Close() error {
	q.closeOnce.Do(func() {
		close(q.done)
	})
	return nil
}
