package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"storyhub/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// FeedRepository implementation.
type feedRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewFeedRepository creates a new feed repository.
func NewFeedRepository(db *pgxpool.Pool, logger *slog.Logger) FeedRepository {
	return &feedRepository{
		db:     db,
		logger: logger,
	}
}

func (r *feedRepository) GetActive(ctx context.Context) ([]*domain.Feed, error) {
	query := `
		SELECT id, url, title, active, interval_minutes, last_fetch_at, last_fetch_status, created_at
		FROM feeds
		WHERE active = TRUE
		ORDER BY created_at ASC
	`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to query active feeds", "error", err)
		return nil, fmt.Errorf("failed to query active feeds: %w", err)
	}
	defer rows.Close()

	feeds := []*domain.Feed{}

	for rows.Next() {
		feed, err := scanFeed(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, feed)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate feeds: %w", err)
	}

	return feeds, nil
}

func (r *feedRepository) GetByID(ctx context.Context, id string) (*domain.Feed, error) {
	query := `
		SELECT id, url, title, active, interval_minutes, last_fetch_at, last_fetch_status, created_at
		FROM feeds
		WHERE id = $1
	`

	rows, err := r.db.Query(ctx, query, id)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to query feed", "error", err, "feed_id", id)
		return nil, fmt.Errorf("failed to query feed: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, domain.ErrFeedNotFound
	}

	feed, err := scanFeed(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan feed: %w", err)
	}

	return feed, nil
}

func (r *feedRepository) MarkFetched(ctx context.Context, id string, fetchedAt time.Time, status domain.FetchStatus) error {
	query := `
		UPDATE feeds
		SET last_fetch_at = $2, last_fetch_status = $3
		WHERE id = $1
	`

	tag, err := r.db.Exec(ctx, query, id, fetchedAt, string(status))
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to mark feed fetched", "error", err, "feed_id", id)
		return fmt.Errorf("failed to mark feed fetched: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return domain.ErrFeedNotFound
	}

	return nil
}

func scanFeed(rows pgx.Rows) (*domain.Feed, error) {
	var (
		feed        domain.Feed
		lastFetchAt *time.Time
		lastStatus  *string
	)

	err := rows.Scan(&feed.ID, &feed.URL, &feed.Title, &feed.Active,
		&feed.IntervalMinutes, &lastFetchAt, &lastStatus, &feed.CreatedAt)
	if err != nil {
		return nil, err
	}

	feed.LastFetchAt = lastFetchAt
	if lastStatus != nil {
		feed.LastFetchStatus = domain.FetchStatus(*lastStatus)
	}

	return &feed, nil
}

// errNoRows reports whether the error is a pgx no-rows result.
func errNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
