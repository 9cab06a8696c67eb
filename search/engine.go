// Package search is the port to the external vector + keyword search
// engine: bulk document upserts, approximate nearest-neighbor candidate
// queries for clustering, and point gets.
package search

import (
	"context"
	"time"

	"storyhub/domain"
)

// Engine is the search-engine collaborator consumed by enrichment,
// clustering, and story maintenance.
type Engine interface {
	// EnsureIndexes provisions indexes and their filterable attributes.
	EnsureIndexes(ctx context.Context) error

	// IndexArticles bulk-upserts article documents by id.
	IndexArticles(ctx context.Context, docs []domain.SearchDocument) error

	// IndexStories bulk-upserts story documents by id.
	IndexStories(ctx context.Context, docs []domain.StoryDocument) error

	// SimilarArticles runs an approximate k-NN query over article
	// embeddings restricted to articles published at or after since,
	// excluding excludeID, capped at limit.
	SimilarArticles(ctx context.Context, embedding []float32, since time.Time, excludeID string, limit int) ([]domain.Candidate, error)

	// GetArticle returns the indexed document for an article id, or nil
	// when it is not indexed.
	GetArticle(ctx context.Context, id string) (*domain.SearchDocument, error)
}
