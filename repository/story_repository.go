package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storyhub/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// StoryRepository implementation.
type storyRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewStoryRepository creates a new story repository.
func NewStoryRepository(db *pgxpool.Pool, logger *slog.Logger) StoryRepository {
	return &storyRepository{
		db:     db,
		logger: logger,
	}
}

func (r *storyRepository) Upsert(ctx context.Context, story *domain.Story) error {
	query := `
		INSERT INTO stories (id, title, summary, keywords, sources,
		                     first_published_at, last_published_at,
		                     centroid, article_count, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO UPDATE
		SET title = EXCLUDED.title,
		    summary = EXCLUDED.summary,
		    keywords = EXCLUDED.keywords,
		    sources = EXCLUDED.sources,
		    first_published_at = EXCLUDED.first_published_at,
		    last_published_at = EXCLUDED.last_published_at,
		    centroid = EXCLUDED.centroid,
		    article_count = EXCLUDED.article_count,
		    updated_at = EXCLUDED.updated_at
	`

	_, err := r.db.Exec(ctx, query,
		story.ID, story.Title, story.Summary, story.Keywords, story.Sources,
		story.FirstPublishedAt, story.LastPublishedAt,
		story.Centroid, story.ArticleCount, time.Now())
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to upsert story", "error", err, "story_id", story.ID)
		return fmt.Errorf("failed to upsert story: %w", err)
	}

	return nil
}

func (r *storyRepository) GetByID(ctx context.Context, id string) (*domain.Story, error) {
	query := `
		SELECT id, title, summary, COALESCE(keywords, '{}'), COALESCE(sources, '{}'),
		       first_published_at, last_published_at, centroid, article_count, updated_at
		FROM stories
		WHERE id = $1
	`

	var story domain.Story

	err := r.db.QueryRow(ctx, query, id).Scan(
		&story.ID, &story.Title, &story.Summary, &story.Keywords, &story.Sources,
		&story.FirstPublishedAt, &story.LastPublishedAt,
		&story.Centroid, &story.ArticleCount, &story.UpdatedAt)
	if err != nil {
		if errNoRows(err) {
			return nil, fmt.Errorf("story %s not found", id)
		}
		r.logger.ErrorContext(ctx, "failed to get story", "error", err, "story_id", id)
		return nil, fmt.Errorf("failed to get story: %w", err)
	}

	return &story, nil
}
