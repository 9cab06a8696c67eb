// Package storyqueue debounces recomputation of story aggregates.
package storyqueue

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"storyhub/domain"
	"storyhub/repository"
	"storyhub/search"
)

// Config holds story queue parameters.
type Config struct {
	// Debounce is how long the queue waits for the burst to settle before
	// flushing.
	Debounce time.Duration
	// BatchThreshold flushes immediately once this many stories are pending.
	BatchThreshold int
}

// DefaultConfig returns the default story queue configuration.
func DefaultConfig() Config {
	return Config{
		Debounce:       5 * time.Minute,
		BatchThreshold: 50,
	}
}

// Queue coalesces story recomputation: clustering bursts touch the same
// story many times in quick succession, and recomputing once per burst is
// enough. Aggregates are derived from member articles and written to both
// the store and the search index.
type Queue struct {
	articles repository.ArticleRepository
	stories  repository.StoryRepository
	backend  search.Engine
	cfg      Config
	logger   *slog.Logger

	mu       sync.Mutex
	pending  map[string]struct{}
	timer    *time.Timer
	flushing bool
	closed   bool
}

// New creates a story maintenance queue.
func New(articles repository.ArticleRepository, stories repository.StoryRepository, backend search.Engine, cfg Config, logger *slog.Logger) *Queue {
	if cfg.Debounce <= 0 {
		cfg.Debounce = DefaultConfig().Debounce
	}
	if cfg.BatchThreshold <= 0 {
		cfg.BatchThreshold = DefaultConfig().BatchThreshold
	}

	return &Queue{
		articles: articles,
		stories:  stories,
		backend:  backend,
		cfg:      cfg,
		logger:   logger,
		pending:  make(map[string]struct{}),
	}
}

// Enqueue marks a story for recomputation and restarts the debounce timer.
// Reaching the batch threshold flushes immediately instead.
func (q *Queue) Enqueue(storyID string) {
	q.mu.Lock()

	if q.closed {
		q.mu.Unlock()
		return
	}

	q.pending[storyID] = struct{}{}

	if len(q.pending) >= q.cfg.BatchThreshold {
		q.stopTimerLocked()
		q.mu.Unlock()
		q.Flush(context.Background())
		return
	}

	q.stopTimerLocked()
	q.timer = time.AfterFunc(q.cfg.Debounce, func() {
		q.Flush(context.Background())
	})

	q.mu.Unlock()
}

// Pending returns the number of stories waiting for recomputation.
func (q *Queue) Pending() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Flush recomputes every pending story and submits the batch. A concurrent
// flush already in progress makes this call a no-op. A story whose
// recomputation fails is logged and skipped; a failed batch submission puts
// the entire set back for a future flush.
func (q *Queue) Flush(ctx context.Context) {
	q.mu.Lock()
	if q.flushing || len(q.pending) == 0 {
		q.mu.Unlock()
		return
	}
	q.flushing = true
	batch := q.pending
	q.pending = make(map[string]struct{})
	q.stopTimerLocked()
	q.mu.Unlock()

	defer func() {
		q.mu.Lock()
		q.flushing = false
		q.mu.Unlock()
	}()

	ids := make([]string, 0, len(batch))
	for id := range batch {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	computed := make([]*domain.Story, 0, len(ids))

	for _, id := range ids {
		story, err := q.recompute(ctx, id)
		if err != nil {
			q.logger.WarnContext(ctx, "skipping story this flush",
				"story_id", id,
				"error", err)
			continue
		}
		computed = append(computed, story)
	}

	if len(computed) == 0 {
		return
	}

	if err := q.submit(ctx, computed); err != nil {
		q.logger.ErrorContext(ctx, "story batch submission failed, requeueing",
			"stories", len(batch),
			"error", err)
		q.requeue(batch)
		return
	}

	q.logger.InfoContext(ctx, "story aggregates updated", "stories", len(computed))
}

// Close cancels the debounce timer and flushes synchronously. Used at
// shutdown so recently clustered updates are not lost.
func (q *Queue) Close() {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	q.stopTimerLocked()
	q.mu.Unlock()

	q.Flush(context.Background())
}

func (q *Queue) stopTimerLocked() {
	if q.timer != nil {
		q.timer.Stop()
		q.timer = nil
	}
}

// requeue puts a failed batch back and rearms the debounce timer so the
// retry happens without waiting for another Enqueue.
func (q *Queue) requeue(batch map[string]struct{}) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	for id := range batch {
		q.pending[id] = struct{}{}
	}

	q.stopTimerLocked()
	q.timer = time.AfterFunc(q.cfg.Debounce, func() {
		q.Flush(context.Background())
	})
}

// recompute derives the story aggregate from its member articles: the
// earliest member contributes the representative title and summary, keyword
// and source sets are merged, and the centroid is the mean of the members'
// indexed embeddings.
func (q *Queue) recompute(ctx context.Context, storyID string) (*domain.Story, error) {
	members, err := q.articles.GetByStoryID(ctx, storyID)
	if err != nil {
		return nil, fmt.Errorf("failed to load story members: %w", err)
	}
	if len(members) == 0 {
		return nil, fmt.Errorf("story %s has no members", storyID)
	}

	earliest := members[0]

	story := &domain.Story{
		ID:               storyID,
		Title:            earliest.Title,
		Summary:          earliest.Summary,
		FirstPublishedAt: earliest.PublishedAt,
		LastPublishedAt:  earliest.PublishedAt,
		ArticleCount:     len(members),
		UpdatedAt:        time.Now(),
	}

	keywords := map[string]struct{}{}
	sources := map[string]struct{}{}

	var (
		centroid []float32
		vectors  int
	)

	for _, m := range members {
		if m.PublishedAt.Before(story.FirstPublishedAt) {
			story.FirstPublishedAt = m.PublishedAt
		}
		if m.PublishedAt.After(story.LastPublishedAt) {
			story.LastPublishedAt = m.PublishedAt
		}

		for _, k := range m.Keywords {
			keywords[k] = struct{}{}
		}
		sources[m.FeedID] = struct{}{}

		doc, err := q.backend.GetArticle(ctx, m.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch indexed member %s: %w", m.ID, err)
		}
		if doc == nil {
			continue
		}

		vector := doc.Vectors["default"]
		if len(vector) == 0 {
			continue
		}

		if centroid == nil {
			centroid = make([]float32, len(vector))
		}
		if len(vector) != len(centroid) {
			continue
		}

		for i, v := range vector {
			centroid[i] += v
		}
		vectors++
	}

	if vectors > 0 {
		for i := range centroid {
			centroid[i] /= float32(vectors)
		}
		story.Centroid = centroid
	}

	story.Keywords = sortedSet(keywords)
	story.Sources = sortedSet(sources)

	return story, nil
}

// submit writes the batch to the store and the search index. Either failure
// makes the whole flush retryable.
func (q *Queue) submit(ctx context.Context, stories []*domain.Story) error {
	docs := make([]domain.StoryDocument, 0, len(stories))

	for _, story := range stories {
		if err := q.stories.Upsert(ctx, story); err != nil {
			return fmt.Errorf("failed to persist story %s: %w", story.ID, err)
		}
		docs = append(docs, domain.NewStoryDocument(story))
	}

	if err := q.backend.IndexStories(ctx, docs); err != nil {
		return fmt.Errorf("failed to index stories: %w", err)
	}

	return nil
}

func sortedSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for v := range set {
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}
