// Package queue carries article ids from ingestion to the enrichment workers.
package queue

import "context"

// Handler processes one queued article id. A non-nil error leaves the
// message unacknowledged so the backend can redeliver it.
type Handler func(ctx context.Context, articleID string) error

// ArticleQueue is the hand-off between ingestion and enrichment.
type ArticleQueue interface {
	// Enqueue publishes an article id. It blocks when the queue is full
	// until space frees up or the context is cancelled.
	Enqueue(ctx context.Context, articleID string) error

	// Consume delivers queued ids to the handler until the context is
	// cancelled or the queue is closed.
	Consume(ctx context.Context, handler Handler) error

	Close() error
}
