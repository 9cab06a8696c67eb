// Package indexqueue batches article documents for bulk indexing.
package indexqueue

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"storyhub/domain"
	"storyhub/search"
)

// Config holds index queue parameters.
type Config struct {
	// BatchSize is the number of documents per bulk request.
	BatchSize int
	// FlushInterval is the maximum time a document waits before indexing.
	FlushInterval time.Duration
}

// DefaultConfig returns the default index queue configuration.
func DefaultConfig() Config {
	return Config{
		BatchSize:     64,
		FlushInterval: 10 * time.Second,
	}
}

// Result summarizes one flush: how many documents were indexed, how many
// were in batches that failed, and the first error encountered.
type Result struct {
	Indexed int
	Failed  int
	Err     error
}

// ResultFunc observes flush outcomes. Callers decide reprocessing policy;
// the queue itself never requeues a failed batch.
type ResultFunc func(Result)

// Queue accumulates article documents and flushes them in batches, either
// when the batch size is reached or when the flush interval elapses. It is
// not durable: unflushed documents are lost on crash, and re-running
// enrichment regenerates them.
type Queue struct {
	backend  search.Engine
	cfg      Config
	logger   *slog.Logger
	onResult ResultFunc

	mu      sync.Mutex
	pending []domain.SearchDocument

	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New creates and starts an index queue.
func New(backend search.Engine, cfg Config, onResult ResultFunc, logger *slog.Logger) *Queue {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultConfig().FlushInterval
	}

	q := &Queue{
		backend:  backend,
		cfg:      cfg,
		logger:   logger,
		onResult: onResult,
		done:     make(chan struct{}),
	}

	q.wg.Add(1)
	go q.flushLoop()

	return q
}

// Add queues a document. When the pending set reaches the batch size the
// queue flushes immediately instead of waiting for the interval.
func (q *Queue) Add(ctx context.Context, doc domain.SearchDocument) {
	q.mu.Lock()
	q.pending = append(q.pending, doc)
	full := len(q.pending) >= q.cfg.BatchSize
	q.mu.Unlock()

	if full {
		q.Flush(ctx)
	}
}

// Flush indexes everything currently pending, in batch-size chunks. Chunks
// fail independently: a failed bulk request loses only its own documents,
// and the result reports the split.
func (q *Queue) Flush(ctx context.Context) Result {
	q.mu.Lock()
	batch := q.pending
	q.pending = nil
	q.mu.Unlock()

	if len(batch) == 0 {
		return Result{}
	}

	var result Result

	for start := 0; start < len(batch); start += q.cfg.BatchSize {
		end := start + q.cfg.BatchSize
		if end > len(batch) {
			end = len(batch)
		}
		chunk := batch[start:end]

		if err := q.backend.IndexArticles(ctx, chunk); err != nil {
			q.logger.ErrorContext(ctx, "failed to index document batch",
				"batch_size", len(chunk),
				"error", err)

			result.Failed += len(chunk)
			if result.Err == nil {
				result.Err = err
			}
			continue
		}

		result.Indexed += len(chunk)
	}

	if q.onResult != nil {
		q.onResult(result)
	}

	return result
}

// Close stops the flush loop and performs one final flush.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
		q.wg.Wait()
		q.Flush(context.Background())
	})
}

func (q *Queue) flushLoop() {
	defer q.wg.Done()

	ticker := time.NewTicker(q.cfg.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-q.done:
			return
		case <-ticker.C:
			q.Flush(context.Background())
		}
	}
}
