// Package service holds the ingestion and enrichment pipeline logic.
package service

import (
	"context"
)

// IngestService runs the per-feed ingestion pipeline.
type IngestService interface {
	// IngestFeed fetches, parses and persists one feed. Failures are
	// recorded on the feed and its fetch log, never returned, so one bad
	// feed cannot affect the others submitted in the same tick.
	IngestFeed(ctx context.Context, feedID string) *IngestResult
}

// EnrichService runs the per-article enrichment pipeline.
type EnrichService interface {
	// EnrichArticle fetches the article page, extracts content and
	// metadata, embeds, clusters and persists. Failures mark the article
	// failed rather than propagating.
	EnrichArticle(ctx context.Context, articleID string) error

	// RetryFailed resets failed articles back to pending. An empty feed
	// id resets them across all feeds.
	RetryFailed(ctx context.Context, feedID string) (int64, error)
}

// IngestResult summarizes one ingestion run.
type IngestResult struct {
	FeedID         string
	ItemsParsed    int
	ItemsInserted  int
	ItemsDuplicate int
	Err            error
}
