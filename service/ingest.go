package service

import (
	"context"
	"log/slog"
	"runtime/debug"
	"time"

	"storyhub/domain"
	"storyhub/fetcher"
	"storyhub/queue"
	"storyhub/repository"

	"github.com/google/uuid"
)

// ingestService fetches a feed, upserts its entries and hands new articles
// to the enrichment queue. Each run is bracketed by a fetch log row.
type ingestService struct {
	feeds     repository.FeedRepository
	articles  repository.ArticleRepository
	fetchLogs repository.FetchLogRepository
	fetcher   fetcher.FeedFetcher
	queue     queue.ArticleQueue
	logger    *slog.Logger
	now       func() time.Time
}

// NewIngestService creates the ingestion pipeline service.
func NewIngestService(
	feeds repository.FeedRepository,
	articles repository.ArticleRepository,
	fetchLogs repository.FetchLogRepository,
	feedFetcher fetcher.FeedFetcher,
	articleQueue queue.ArticleQueue,
	logger *slog.Logger,
) IngestService {
	return &ingestService{
		feeds:     feeds,
		articles:  articles,
		fetchLogs: fetchLogs,
		fetcher:   feedFetcher,
		queue:     articleQueue,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *ingestService) IngestFeed(ctx context.Context, feedID string) *IngestResult {
	result := &IngestResult{FeedID: feedID}

	feed, err := s.feeds.GetByID(ctx, feedID)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to load feed", "feed_id", feedID, "error", err)
		result.Err = err
		return result
	}

	run := &domain.FetchLog{
		FeedID:    feed.ID,
		Status:    domain.FetchLogRunning,
		StartedAt: s.now(),
	}

	if err := s.fetchLogs.Create(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "failed to open fetch log", "feed_id", feedID, "error", err)
		result.Err = err
		return result
	}

	doc, err := s.fetcher.Fetch(ctx, feed.URL)
	if err != nil {
		s.fail(ctx, feed, run, result, err)
		return result
	}

	for _, entry := range doc.Entries {
		result.ItemsParsed++

		if entry.Link == "" {
			s.logger.WarnContext(ctx, "skipping entry without link",
				"feed_id", feed.ID,
				"title", entry.Title)
			continue
		}

		article := entryToArticle(feed.ID, entry, s.now())

		inserted, err := s.articles.Upsert(ctx, article)
		if err != nil {
			s.fail(ctx, feed, run, result, err)
			return result
		}

		if !inserted {
			result.ItemsDuplicate++
			continue
		}

		result.ItemsInserted++

		if err := s.queue.Enqueue(ctx, article.ID); err != nil {
			// The article row exists either way; a retry sweep picks up
			// pending articles the queue missed.
			s.logger.ErrorContext(ctx, "failed to enqueue article for enrichment",
				"article_id", article.ID,
				"error", err)
		}
	}

	s.complete(ctx, feed, run, result)

	s.logger.InfoContext(ctx, "feed ingested",
		"feed_id", feed.ID,
		"parsed", result.ItemsParsed,
		"inserted", result.ItemsInserted,
		"duplicate", result.ItemsDuplicate)

	return result
}

func (s *ingestService) complete(ctx context.Context, feed *domain.Feed, run *domain.FetchLog, result *IngestResult) {
	finishedAt := s.now()

	run.Status = domain.FetchLogSuccess
	run.FinishedAt = &finishedAt
	run.ItemsParsed = result.ItemsParsed
	run.ItemsInserted = result.ItemsInserted
	run.ItemsDuplicate = result.ItemsDuplicate

	if err := s.fetchLogs.Complete(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "failed to close fetch log", "fetch_log_id", run.ID, "error", err)
	}

	if err := s.feeds.MarkFetched(ctx, feed.ID, finishedAt, domain.FetchStatusSuccess); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark feed fetched", "feed_id", feed.ID, "error", err)
	}
}

// fail closes the run as a failure and still advances the feed's fetch
// timestamp, so a broken feed waits out its interval instead of being
// retried every tick.
func (s *ingestService) fail(ctx context.Context, feed *domain.Feed, run *domain.FetchLog, result *IngestResult, cause error) {
	result.Err = cause

	s.logger.ErrorContext(ctx, "feed ingestion failed",
		"feed_id", feed.ID,
		"error", cause)

	finishedAt := s.now()

	run.Status = domain.FetchLogFailure
	run.FinishedAt = &finishedAt
	run.ItemsParsed = result.ItemsParsed
	run.ItemsInserted = result.ItemsInserted
	run.ItemsDuplicate = result.ItemsDuplicate
	run.ErrorMessage = cause.Error()
	run.ErrorStack = string(debug.Stack())

	if err := s.fetchLogs.Complete(ctx, run); err != nil {
		s.logger.ErrorContext(ctx, "failed to close fetch log", "fetch_log_id", run.ID, "error", err)
	}

	if err := s.feeds.MarkFetched(ctx, feed.ID, finishedAt, domain.FetchStatusError); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark feed fetched", "feed_id", feed.ID, "error", err)
	}
}

func entryToArticle(feedID string, entry fetcher.FeedEntry, fetchedAt time.Time) *domain.Article {
	publishedAt := fetchedAt
	if entry.PublishedAt != nil {
		publishedAt = *entry.PublishedAt
	}

	return &domain.Article{
		ID:          uuid.NewString(),
		FeedID:      feedID,
		SourceURL:   entry.Link,
		Title:       entry.Title,
		Summary:     entry.Summary,
		Author:      entry.Author,
		Keywords:    entry.Categories,
		PublishedAt: publishedAt,
		FetchedAt:   fetchedAt,
	}
}
