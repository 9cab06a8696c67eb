package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"storyhub/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ArticleRepository implementation.
type articleRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewArticleRepository creates a new article repository.
func NewArticleRepository(db *pgxpool.Pool, logger *slog.Logger) ArticleRepository {
	return &articleRepository{
		db:     db,
		logger: logger,
	}
}

// Upsert inserts the article or refreshes the existing row with the same
// (feed_id, source_url). The xmax trick distinguishes insert from update:
// xmax is zero only for freshly inserted rows.
func (r *articleRepository) Upsert(ctx context.Context, article *domain.Article) (bool, error) {
	query := `
		INSERT INTO articles (id, feed_id, source_url, canonical_url, title, summary, author, published_at, fetched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (feed_id, source_url) DO UPDATE
		SET title = EXCLUDED.title,
		    summary = EXCLUDED.summary,
		    author = EXCLUDED.author,
		    fetched_at = EXCLUDED.fetched_at
		RETURNING id, (xmax = 0) AS inserted
	`

	var (
		id       string
		inserted bool
	)

	err := r.db.QueryRow(ctx, query,
		article.ID, article.FeedID, article.SourceURL, article.CanonicalURL,
		article.Title, article.Summary, article.Author,
		article.PublishedAt, article.FetchedAt,
	).Scan(&id, &inserted)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to upsert article", "error", err, "source_url", article.SourceURL)
		return false, fmt.Errorf("failed to upsert article: %w", err)
	}

	article.ID = id

	if inserted {
		metaQuery := `
			INSERT INTO article_metadata (article_id, status, updated_at)
			VALUES ($1, $2, $3)
			ON CONFLICT (article_id) DO NOTHING
		`
		if _, err := r.db.Exec(ctx, metaQuery, id, string(domain.EnrichmentPending), time.Now()); err != nil {
			return false, fmt.Errorf("failed to create metadata row: %w", err)
		}
	}

	return inserted, nil
}

func (r *articleRepository) GetByID(ctx context.Context, id string) (*domain.Article, error) {
	query := `
		SELECT id, feed_id, source_url, canonical_url, title, summary,
		       COALESCE(raw_content, ''), COALESCE(plain_content, ''), author,
		       COALESCE(language, ''), COALESCE(keywords, '{}'),
		       COALESCE(content_hash, ''), published_at, fetched_at, story_id
		FROM articles
		WHERE id = $1
	`

	var article domain.Article

	err := r.db.QueryRow(ctx, query, id).Scan(
		&article.ID, &article.FeedID, &article.SourceURL, &article.CanonicalURL,
		&article.Title, &article.Summary, &article.RawContent, &article.PlainContent,
		&article.Author, &article.Language, &article.Keywords, &article.ContentHash,
		&article.PublishedAt, &article.FetchedAt, &article.StoryID,
	)
	if err != nil {
		if errNoRows(err) {
			return nil, domain.ErrArticleNotFound
		}
		r.logger.ErrorContext(ctx, "failed to get article", "error", err, "article_id", id)
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	return &article, nil
}

func (r *articleRepository) GetEnrichmentStatus(ctx context.Context, id string) (domain.EnrichmentStatus, error) {
	query := `SELECT status FROM article_metadata WHERE article_id = $1`

	var status string

	err := r.db.QueryRow(ctx, query, id).Scan(&status)
	if err != nil {
		if errNoRows(err) {
			return "", domain.ErrArticleNotFound
		}
		return "", fmt.Errorf("failed to get enrichment status: %w", err)
	}

	return domain.EnrichmentStatus(status), nil
}

func (r *articleRepository) SetEnrichmentStatus(ctx context.Context, id string, status domain.EnrichmentStatus, errorMessage string) error {
	query := `
		UPDATE article_metadata
		SET status = $2,
		    error_message = $3,
		    retry_count = retry_count + CASE WHEN $2 = 'failed' THEN 1 ELSE 0 END,
		    updated_at = $4
		WHERE article_id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, string(status), errorMessage, time.Now())
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to set enrichment status", "error", err, "article_id", id)
		return fmt.Errorf("failed to set enrichment status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}

	return nil
}

// SaveEnrichment writes the extracted content, language, story assignment and
// page metadata in one transaction so a crash never leaves the article half
// enriched.
func (r *articleRepository) SaveEnrichment(ctx context.Context, article *domain.Article, meta *domain.ArticleMetadata) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	articleQuery := `
		UPDATE articles
		SET canonical_url = $2, raw_content = $3, plain_content = $4,
		    language = $5, keywords = $6, content_hash = $7, story_id = $8
		WHERE id = $1
	`

	tag, err := tx.Exec(ctx, articleQuery,
		article.ID, article.CanonicalURL, article.RawContent, article.PlainContent,
		article.Language, article.Keywords, article.ContentHash, article.StoryID)
	if err != nil {
		return fmt.Errorf("failed to save enriched article: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrArticleNotFound
	}

	metaQuery := `
		UPDATE article_metadata
		SET status = $2, og_title = $3, og_description = $4, og_image = $5,
		    og_locale = $6, twitter_card = $7, twitter_image = $8, favicon = $9,
		    hero_image = $10, word_count = $11, reading_time_minutes = $12,
		    error_message = '', updated_at = $13
		WHERE article_id = $1
	`

	_, err = tx.Exec(ctx, metaQuery,
		article.ID, string(domain.EnrichmentSuccess),
		meta.OGTitle, meta.OGDescription, meta.OGImage, meta.OGLocale,
		meta.TwitterCard, meta.TwitterImage, meta.Favicon, meta.HeroImage,
		meta.WordCount, meta.ReadingTimeMinutes, time.Now())
	if err != nil {
		return fmt.Errorf("failed to save article metadata: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit enrichment: %w", err)
	}

	return nil
}

func (r *articleRepository) ResetFailed(ctx context.Context, feedID string) (int64, error) {
	query := `
		UPDATE article_metadata m
		SET status = 'pending', error_message = '', updated_at = $1
		FROM articles a
		WHERE a.id = m.article_id
		  AND m.status = 'failed'
		  AND ($2 = '' OR a.feed_id = $2)
	`

	tag, err := r.db.Exec(ctx, query, time.Now(), feedID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to reset failed articles", "error", err, "feed_id", feedID)
		return 0, fmt.Errorf("failed to reset failed articles: %w", err)
	}

	r.logger.InfoContext(ctx, "reset failed articles for retry",
		"feed_id", feedID, "count", tag.RowsAffected())

	return tag.RowsAffected(), nil
}

func (r *articleRepository) GetByStoryID(ctx context.Context, storyID string) ([]*domain.Article, error) {
	query := `
		SELECT id, feed_id, source_url, canonical_url, title, summary,
		       COALESCE(plain_content, ''), author, COALESCE(language, ''),
		       COALESCE(keywords, '{}'), published_at
		FROM articles
		WHERE story_id = $1
		ORDER BY published_at ASC
	`

	rows, err := r.db.Query(ctx, query, storyID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to query story members", "error", err, "story_id", storyID)
		return nil, fmt.Errorf("failed to query story members: %w", err)
	}
	defer rows.Close()

	articles := []*domain.Article{}

	for rows.Next() {
		var article domain.Article

		err := rows.Scan(&article.ID, &article.FeedID, &article.SourceURL,
			&article.CanonicalURL, &article.Title, &article.Summary,
			&article.PlainContent, &article.Author, &article.Language,
			&article.Keywords, &article.PublishedAt)
		if err != nil {
			return nil, fmt.Errorf("failed to scan story member: %w", err)
		}

		article.StoryID = &storyID
		articles = append(articles, &article)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate story members: %w", err)
	}

	return articles, nil
}
