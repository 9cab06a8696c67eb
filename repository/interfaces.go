package repository

import (
	"context"
	"time"

	"storyhub/domain"
)

// FeedRepository manages feed subscriptions and their scheduling state.
type FeedRepository interface {
	GetActive(ctx context.Context) ([]*domain.Feed, error)
	GetByID(ctx context.Context, id string) (*domain.Feed, error)
	MarkFetched(ctx context.Context, id string, fetchedAt time.Time, status domain.FetchStatus) error
}

// ArticleRepository persists articles keyed by (feed_id, source_url).
type ArticleRepository interface {
	// Upsert inserts the article or refreshes an existing row with the same
	// (feed_id, source_url). It reports whether a new row was inserted.
	Upsert(ctx context.Context, article *domain.Article) (bool, error)
	GetByID(ctx context.Context, id string) (*domain.Article, error)
	GetEnrichmentStatus(ctx context.Context, id string) (domain.EnrichmentStatus, error)
	SetEnrichmentStatus(ctx context.Context, id string, status domain.EnrichmentStatus, errorMessage string) error
	SaveEnrichment(ctx context.Context, article *domain.Article, meta *domain.ArticleMetadata) error
	ResetFailed(ctx context.Context, feedID string) (int64, error)
	GetByStoryID(ctx context.Context, storyID string) ([]*domain.Article, error)
}

// FetchLogRepository records one row per ingestion run.
type FetchLogRepository interface {
	Create(ctx context.Context, log *domain.FetchLog) error
	Complete(ctx context.Context, log *domain.FetchLog) error
}

// StoryRepository persists story aggregates.
type StoryRepository interface {
	Upsert(ctx context.Context, story *domain.Story) error
	GetByID(ctx context.Context, id string) (*domain.Story, error)
}
