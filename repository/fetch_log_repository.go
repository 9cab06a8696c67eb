package repository

import (
	"context"
	"fmt"
	"log/slog"

	"storyhub/domain"

	"github.com/jackc/pgx/v5/pgxpool"
)

// FetchLogRepository implementation.
type fetchLogRepository struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// NewFetchLogRepository creates a new fetch log repository.
func NewFetchLogRepository(db *pgxpool.Pool, logger *slog.Logger) FetchLogRepository {
	return &fetchLogRepository{
		db:     db,
		logger: logger,
	}
}

func (r *fetchLogRepository) Create(ctx context.Context, log *domain.FetchLog) error {
	query := `
		INSERT INTO fetch_logs (feed_id, status, started_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	err := r.db.QueryRow(ctx, query, log.FeedID, string(log.Status), log.StartedAt).Scan(&log.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to create fetch log", "error", err, "feed_id", log.FeedID)
		return fmt.Errorf("failed to create fetch log: %w", err)
	}

	return nil
}

// Complete closes the run row. The status guard keeps the row terminal: a
// row already marked success or failure is never rewritten.
func (r *fetchLogRepository) Complete(ctx context.Context, log *domain.FetchLog) error {
	query := `
		UPDATE fetch_logs
		SET status = $2, finished_at = $3, items_parsed = $4,
		    items_inserted = $5, items_duplicate = $6,
		    error_message = $7, error_stack = $8
		WHERE id = $1 AND status = 'running'
	`

	tag, err := r.db.Exec(ctx, query,
		log.ID, string(log.Status), log.FinishedAt,
		log.ItemsParsed, log.ItemsInserted, log.ItemsDuplicate,
		log.ErrorMessage, log.ErrorStack)
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to complete fetch log", "error", err, "fetch_log_id", log.ID)
		return fmt.Errorf("failed to complete fetch log: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return fmt.Errorf("fetch log %s is not running", log.ID)
	}

	return nil
}
